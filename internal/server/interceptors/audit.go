package interceptors

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"cuidame-health/backend/internal/audit"
)

// AuditUnary returns a unary server interceptor that records an audit log entry after each
// authenticated RPC. skipMethods is the set of full method names to not audit (e.g. ListSessions).
// LogEvent is best-effort: failures are logged and do not fail the RPC.
func AuditUnary(logger audit.AuditLogger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if logger == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		userID, ok := GetUserID(ctx)
		if !ok {
			return resp, err
		}
		ar := audit.ParseFullMethod(info.FullMethod)
		logger.LogEvent(ctx, userID, ar.Action, ar.Resource, audit.Metadata(map[string]any{
			"status": status.Code(err).String(),
		}))
		return resp, err
	}
}
