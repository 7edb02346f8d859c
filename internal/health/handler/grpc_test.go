package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	healthv1 "cuidame-health/backend/api/health/v1"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestHealthCheck_NoDependencies(t *testing.T) {
	srv := NewServer(nil, nil, nil)
	resp, err := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if resp.GetStatus() != healthv1.ServingStatus_SERVING {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}
}

func TestHealthCheck_AllHealthy(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv := NewServer(&mockPinger{}, &mockPolicyChecker{}, rdb)
	resp, err := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if resp.GetStatus() != healthv1.ServingStatus_SERVING {
		t.Errorf("status = %v, want SERVING (%v)", resp.GetStatus(), resp.Checks)
	}
	for _, name := range []string{"database", "redis", "policy"} {
		if resp.Checks[name] != "ok" {
			t.Errorf("check %s = %q", name, resp.Checks[name])
		}
	}
}

func TestHealthCheck_PingerFailure(t *testing.T) {
	srv := NewServer(&mockPinger{pingErr: errors.New("connection refused")}, &mockPolicyChecker{}, nil)
	resp, err := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("HealthCheck must not return gRPC error on ping failure: %v", err)
	}
	if resp.GetStatus() != healthv1.ServingStatus_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
	if resp.Checks["database"] != "connection refused" || resp.Checks["policy"] != "ok" {
		t.Errorf("checks = %v", resp.Checks)
	}
}

func TestHealthCheck_PolicyCheckerFailure(t *testing.T) {
	srv := NewServer(nil, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}, nil)
	resp, err := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("HealthCheck must not return gRPC error on policy check failure: %v", err)
	}
	if resp.GetStatus() != healthv1.ServingStatus_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
}

func TestHealthCheck_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	srv := NewServer(nil, nil, rdb)
	resp, _ := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if resp.GetStatus() != healthv1.ServingStatus_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
	if resp.Checks["redis"] == "ok" {
		t.Error("redis check should fail")
	}
}
