package handler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	healthv1 "cuidame-health/backend/api/health/v1"
)

const checkTimeout = 2 * time.Second

// Pinger checks database connectivity. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks the in-process policy engine.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// RedisPinger checks the lock backend. redis.UniversalClient satisfies it.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Server implements HealthService for readiness and liveness probes.
type Server struct {
	healthv1.UnimplementedHealthServiceServer
	db     Pinger
	policy PolicyChecker
	redis  RedisPinger
}

// NewServer returns a new Health gRPC server. Nil dependencies are skipped.
func NewServer(db Pinger, policy PolicyChecker, rdb RedisPinger) *Server {
	return &Server{db: db, policy: policy, redis: rdb}
}

// HealthCheck reports NOT_SERVING when any configured dependency fails. It never returns a gRPC
// error for a failed dependency so probes can read the per-check detail.
func (s *Server) HealthCheck(ctx context.Context, _ *healthv1.HealthCheckRequest) (*healthv1.HealthCheckResponse, error) {
	resp := &healthv1.HealthCheckResponse{Status: healthv1.ServingStatus_SERVING, Checks: map[string]string{}}
	run := func(name string, check func(context.Context) error) {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()
		if err := check(cctx); err != nil {
			resp.Status = healthv1.ServingStatus_NOT_SERVING
			resp.Checks[name] = err.Error()
			return
		}
		resp.Checks[name] = "ok"
	}
	if s.db != nil {
		run("database", s.db.PingContext)
	}
	if s.redis != nil {
		run("redis", func(ctx context.Context) error { return s.redis.Ping(ctx).Err() })
	}
	if s.policy != nil {
		run("policy", s.policy.HealthCheck)
	}
	return resp, nil
}
