package rbac

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	identitydomain "cuidame-health/backend/internal/identity/domain"
	"cuidame-health/backend/internal/server/interceptors"
	userdomain "cuidame-health/backend/internal/user/domain"
)

type errChecker struct{}

func (errChecker) AllowRole(context.Context, string, []string) (bool, error) {
	return false, errors.New("policy engine down")
}

func withRole(role string) context.Context {
	return interceptors.WithPrincipal(context.Background(), identitydomain.Principal{UserID: "user-1", Role: role, SessionID: "s1"})
}

func TestRequireRole_Allowed(t *testing.T) {
	p, err := RequireRole(withRole(userdomain.RoleAdmin), nil, userdomain.RoleAdmin)
	if err != nil {
		t.Fatalf("RequireRole: %v", err)
	}
	if p.UserID != "user-1" {
		t.Errorf("principal = %+v", p)
	}
}

func TestRequireRole_NoPrincipal(t *testing.T) {
	_, err := RequireRole(context.Background(), StaticChecker{}, userdomain.RoleAdmin)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestRequireRole_Denied(t *testing.T) {
	for _, role := range []string{userdomain.RoleUser, ""} {
		_, err := RequireRole(withRole(role), StaticChecker{}, userdomain.RoleAdmin)
		if status.Code(err) != codes.PermissionDenied {
			t.Errorf("role %q: code = %v, want PermissionDenied", role, status.Code(err))
		}
	}
}

func TestRequireRole_CheckerError(t *testing.T) {
	_, err := RequireRole(withRole(userdomain.RoleAdmin), errChecker{}, userdomain.RoleAdmin)
	if status.Code(err) != codes.Internal {
		t.Fatalf("code = %v, want Internal", status.Code(err))
	}
}

func TestRoleUnary(t *testing.T) {
	roles := map[string][]string{"/cuidame.session.v1.SessionService/SweepSessions": {userdomain.RoleAdmin}}
	interceptor := RoleUnary(StaticChecker{}, roles, zaptest.NewLogger(t))
	h := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }
	sweep := &grpc.UnaryServerInfo{FullMethod: "/cuidame.session.v1.SessionService/SweepSessions"}
	list := &grpc.UnaryServerInfo{FullMethod: "/cuidame.session.v1.SessionService/ListSessions"}

	if _, err := interceptor(withRole(userdomain.RoleUser), nil, sweep, h); status.Code(err) != codes.PermissionDenied {
		t.Errorf("user on sweep: %v", err)
	}
	if resp, err := interceptor(withRole(userdomain.RoleAdmin), nil, sweep, h); err != nil || resp != "ok" {
		t.Errorf("admin on sweep: %v %v", resp, err)
	}
	if resp, err := interceptor(withRole(userdomain.RoleUser), nil, list, h); err != nil || resp != "ok" {
		t.Errorf("ungated method: %v %v", resp, err)
	}
}
