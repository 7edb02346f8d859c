package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	identitydomain "cuidame-health/backend/internal/identity/domain"
	sessiondomain "cuidame-health/backend/internal/session/domain"
)

const bearerPrefix = "bearer "

// Authenticator resolves bearer tokens to principals. Implemented by the auth service.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*identitydomain.Principal, error)
	AuthenticateRefresh(ctx context.Context, refreshToken string) (*identitydomain.Principal, error)
}

// AuthUnary returns a unary server interceptor that resolves the Bearer access token from
// gRPC metadata to a principal and stores it in context for protected RPCs.
// publicMethods is the set of full method names that do not require a Bearer token
// (e.g. AuthService Login, Refresh; HealthService HealthCheck).
func AuthUnary(auth Authenticator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		token := extractBearer(ctx)
		if token == "" {
			return nil, ToStatus(sessiondomain.ErrMissingToken)
		}
		p, err := auth.Authenticate(ctx, token)
		if err != nil {
			return nil, ToStatus(err)
		}
		return handler(WithPrincipal(ctx, *p), req)
	}
}

// refreshTokenRequest is implemented by request messages that carry a refresh token in the body.
type refreshTokenRequest interface {
	GetRefreshToken() string
}

// RefreshUnary returns a unary server interceptor mounted on the refresh RPC only. It accepts
// a refresh token from the Bearer header or from the request body, and stores the principal and
// the token in context. The header is tried first; when it does not authenticate as a refresh
// token and the body carries a different token, the body token is used instead.
func RefreshUnary(auth Authenticator, refreshMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !refreshMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		header := extractBearer(ctx)
		var body string
		if r, ok := req.(refreshTokenRequest); ok {
			body = strings.TrimSpace(r.GetRefreshToken())
		}
		if header == "" && body == "" {
			return nil, ToStatus(sessiondomain.ErrMissingToken)
		}
		token := header
		if token == "" {
			token = body
		}
		p, err := auth.AuthenticateRefresh(ctx, token)
		if err != nil && token == header && body != "" && body != header {
			token = body
			p, err = auth.AuthenticateRefresh(ctx, token)
		}
		if err != nil {
			return nil, ToStatus(err)
		}
		ctx = WithPrincipal(ctx, *p)
		ctx = WithRefreshToken(ctx, token)
		return handler(ctx, req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
