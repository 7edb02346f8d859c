package interceptors

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingUnary logs one line per RPC. Tokens and request bodies are never logged.
// Internal and Unknown failures log at error level; other non-OK codes at info.
func LoggingUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("grpc")
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", ClientIP(ctx)),
		}
		if p, ok := GetPrincipal(ctx); ok {
			fields = append(fields, zap.String("user_id", p.UserID), zap.String("session_id", p.SessionID))
		}
		level := zapcore.DebugLevel
		switch code {
		case codes.OK:
		case codes.Internal, codes.Unknown, codes.DataLoss:
			level = zapcore.ErrorLevel
			fields = append(fields, zap.Error(err))
		default:
			level = zapcore.InfoLevel
		}
		if ce := logger.Check(level, "rpc"); ce != nil {
			ce.Write(fields...)
		}
		return resp, err
	}
}
