package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	authv1 "cuidame-health/backend/api/auth/v1"
	"cuidame-health/backend/api/codec"
	healthv1 "cuidame-health/backend/api/health/v1"
	sessionv1 "cuidame-health/backend/api/session/v1"
	"cuidame-health/backend/internal/audit"
	healthhandler "cuidame-health/backend/internal/health/handler"
	identityhandler "cuidame-health/backend/internal/identity/handler"
	identityservice "cuidame-health/backend/internal/identity/service"
	"cuidame-health/backend/internal/platform/rbac"
	"cuidame-health/backend/internal/server/interceptors"
	"cuidame-health/backend/internal/session/governor"
	sessionhandler "cuidame-health/backend/internal/session/handler"
	"cuidame-health/backend/internal/telemetry"
	userdomain "cuidame-health/backend/internal/user/domain"
)

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// Auth is the session lifecycle service and the token authenticator. If nil, auth RPCs and
	// ListSessions return Unimplemented.
	Auth *identityservice.AuthService
	// Governor backs SweepSessions and PurgeSessions. If nil, those RPCs return Unimplemented.
	Governor *governor.Governor
	// HealthPinger is used by HealthService for readiness (e.g. *sql.DB). If nil, HealthCheck skips DB ping.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by HealthService for readiness (e.g. OPA evaluator). If nil, HealthCheck skips policy check.
	HealthPolicyChecker healthhandler.PolicyChecker
	// HealthRedis is pinged by HealthService when the session lock runs on Redis.
	HealthRedis healthhandler.RedisPinger
	// AuditLogger records authenticated RPCs. If nil, nothing is audited.
	AuditLogger audit.AuditLogger
	// Emitter receives a telemetry event per RPC. If nil, no events are emitted.
	Emitter telemetry.EventEmitter
	// RoleChecker decides admin-gated methods. Defaults to rbac.StaticChecker.
	RoleChecker rbac.RoleChecker
	Logger      *zap.Logger
}

// PublicMethods skip access-token authentication.
var PublicMethods = map[string]bool{
	authv1.AuthService_Login_FullMethodName:           true,
	authv1.AuthService_Refresh_FullMethodName:         true,
	healthv1.HealthService_HealthCheck_FullMethodName: true,
}

// RefreshMethods are authenticated with a refresh token instead of an access token.
var RefreshMethods = map[string]bool{
	authv1.AuthService_Refresh_FullMethodName: true,
}

// AdminMethodRoles are the role-gated methods and the roles allowed to call them.
var AdminMethodRoles = map[string][]string{
	sessionv1.SessionService_SweepSessions_FullMethodName: {userdomain.RoleAdmin},
	sessionv1.SessionService_PurgeSessions_FullMethodName: {userdomain.RoleAdmin},
}

// RegisterServices registers the gRPC services with the given server.
//
// Service → handler mapping:
//   - AuthService    → internal/identity/handler
//   - SessionService → internal/session/handler
//   - HealthService  → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	// Typed nils must not reach the handlers as non-nil interfaces.
	var auth identityhandler.Authenticator
	var lister sessionhandler.SessionLister
	if deps.Auth != nil {
		auth = deps.Auth
		lister = deps.Auth
	}
	var maintainer sessionhandler.Maintainer
	if deps.Governor != nil {
		maintainer = deps.Governor
	}
	authv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(auth))
	sessionv1.RegisterSessionServiceServer(s, sessionhandler.NewServer(lister, maintainer))
	healthv1.RegisterHealthServiceServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker, deps.HealthRedis))
}

// NewGRPCServer builds a server with the JSON codec, OTel instrumentation, and the interceptor
// chain: logging, telemetry, refresh gate, auth gate, role gate, audit. Services are registered.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	checker := deps.RoleChecker
	if checker == nil {
		checker = rbac.StaticChecker{}
	}
	chain := []grpc.UnaryServerInterceptor{
		interceptors.LoggingUnary(logger),
		interceptors.TelemetryUnary(deps.Emitter, logger, nil),
	}
	// Without an auth service there is nothing to resolve tokens against; protected RPCs
	// then fail in their handlers or the role gate.
	if deps.Auth != nil {
		chain = append(chain,
			interceptors.RefreshUnary(deps.Auth, RefreshMethods),
			interceptors.AuthUnary(deps.Auth, PublicMethods),
		)
	}
	chain = append(chain,
		rbac.RoleUnary(checker, AdminMethodRoles, logger),
		interceptors.AuditUnary(deps.AuditLogger, nil),
	)
	base := []grpc.ServerOption{
		grpc.ForceServerCodec(codec.JSON{}),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}
