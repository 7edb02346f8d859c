// Package rbac gates RPCs on the caller's role.
package rbac

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	identitydomain "cuidame-health/backend/internal/identity/domain"
	"cuidame-health/backend/internal/server/interceptors"
	sessiondomain "cuidame-health/backend/internal/session/domain"
)

// RoleChecker decides whether role is one of allowed. Implemented by the OPA policy evaluator.
type RoleChecker interface {
	AllowRole(ctx context.Context, role string, allowed []string) (bool, error)
}

// StaticChecker allows a role when it appears verbatim in the allowed set.
type StaticChecker struct{}

func (StaticChecker) AllowRole(_ context.Context, role string, allowed []string) (bool, error) {
	for _, a := range allowed {
		if role != "" && a == role {
			return true, nil
		}
	}
	return false, nil
}

// RequireRole ensures the caller is authenticated and holds one of allowed.
// Returns the principal on success; returns a gRPC error (Unauthenticated or PermissionDenied) on failure.
// A checker error is reported as Internal. A nil checker falls back to StaticChecker.
func RequireRole(ctx context.Context, checker RoleChecker, allowed ...string) (identitydomain.Principal, error) {
	p, ok := interceptors.GetPrincipal(ctx)
	if !ok || p.UserID == "" {
		return identitydomain.Principal{}, interceptors.ToStatus(sessiondomain.ErrMissingToken)
	}
	if checker == nil {
		checker = StaticChecker{}
	}
	allow, err := checker.AllowRole(ctx, p.Role, allowed)
	if err != nil {
		return identitydomain.Principal{}, interceptors.ToStatus(err)
	}
	if !allow {
		return identitydomain.Principal{}, interceptors.ToStatus(sessiondomain.ErrForbidden)
	}
	return p, nil
}

// RoleUnary enforces methodRoles after authentication. Methods not in the map are not role-gated.
// Must be chained after AuthUnary so the principal is in context.
func RoleUnary(checker RoleChecker, methodRoles map[string][]string, logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		allowed, gated := methodRoles[info.FullMethod]
		if !gated {
			return handler(ctx, req)
		}
		if _, err := RequireRole(ctx, checker, allowed...); err != nil {
			uid, _ := interceptors.GetUserID(ctx)
			logger.Info("rbac: denied", zap.String("method", info.FullMethod), zap.String("user_id", uid))
			return nil, err
		}
		return handler(ctx, req)
	}
}
