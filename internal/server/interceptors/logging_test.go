package interceptors

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestLoggingUnary_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	interceptor := LoggingUnary(zap.New(core))
	info := &grpc.UnaryServerInfo{FullMethod: "/cuidame.auth.v1.AuthService/Login"}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer secret-token"))
	_, _ = interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil })
	_, _ = interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	})
	_, _ = interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, errors.New("db down")
	})

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	want := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Errorf("entry %d level = %v, want %v", i, e.Level, want[i])
		}
		for k, v := range e.ContextMap() {
			if s, ok := v.(string); ok && s == "Bearer secret-token" {
				t.Errorf("entry %d logged the authorization header under %q", i, k)
			}
		}
	}
}
