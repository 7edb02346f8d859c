package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cuidame-health/backend/internal/audit"
	auditrepo "cuidame-health/backend/internal/audit/repository"
	"cuidame-health/backend/internal/config"
	"cuidame-health/backend/internal/db"
	identityrepo "cuidame-health/backend/internal/identity/repository"
	identityservice "cuidame-health/backend/internal/identity/service"
	"cuidame-health/backend/internal/logger"
	"cuidame-health/backend/internal/policy/engine"
	"cuidame-health/backend/internal/security"
	"cuidame-health/backend/internal/server"
	"cuidame-health/backend/internal/server/interceptors"
	"cuidame-health/backend/internal/session/governor"
	sessionrepo "cuidame-health/backend/internal/session/repository"
	"cuidame-health/backend/internal/telemetry"
	telemetryotel "cuidame-health/backend/internal/telemetry/otel"
	"cuidame-health/backend/internal/telemetry/producer"
	userrepo "cuidame-health/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

// stores are the persistence backends selected by configuration.
type stores struct {
	users      userrepo.Repository
	identities identityrepo.Repository
	sessions   sessionrepo.Repository
	audit      auditrepo.Repository
	db         *sql.DB
}

func openStores(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		zl.Warn("DATABASE_URL is not set; using in-memory stores")
		return &stores{
			users:      userrepo.NewMemoryRepository(),
			identities: identityrepo.NewMemoryRepository(),
			sessions:   sessionrepo.NewMemoryRepository(),
			audit:      auditrepo.NewMemoryRepository(),
		}, nil
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	return &stores{
		users:      userrepo.NewPostgresRepository(conn),
		identities: identityrepo.NewPostgresRepository(conn),
		sessions:   sessionrepo.NewPostgresRepository(conn),
		audit:      auditrepo.NewPostgresRepository(conn),
		db:         conn,
	}, nil
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx := context.Background()

	st, err := openStores(ctx, cfg, zl)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    cfg.OTLPInsecure,
	}, zl)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		emitters = append(emitters, kafkaProducer)
		zl.Info("telemetry to kafka enabled", zap.String("topic", cfg.TelemetryKafkaTopic))
	}

	var locker governor.Locker = governor.NewLocalLocker()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		locker = governor.NewRedisLocker(rdb, "", 0, 0)
		zl.Info("session lock on redis", zap.String("addr", cfg.RedisAddr))
	}

	policy, err := engine.NewOPAEvaluator(ctx, "")
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	gov := governor.New(st.sessions, governor.Config{
		RetentionDays:       cfg.SessionRetentionDays,
		NeverUsedGraceHours: cfg.SessionNeverUsedGraceHours,
	}, zl, governor.WithMeterProvider(providers.MeterProvider))
	auditLogger := audit.NewLogger(st.audit, interceptors.ClientIP, zl)
	auth := identityservice.NewAuthService(identityservice.Deps{
		Users:      st.users,
		Identities: st.identities,
		Sessions:   st.sessions,
		Governor:   gov,
		Locker:     locker,
		Tokens:     security.NewTokenCodec(cfg.Secret, cfg.JWTIssuer),
		Hasher:     security.NewHasher(cfg.Argon2Params()),
		Audit:      auditLogger,
		Logger:     zl,
	}, identityservice.Config{
		AccessTTL:             cfg.AccessTTL(),
		MaxSessionsPerUser:    cfg.MaxSessionsPerUser,
		SweepOnLogin:          cfg.SweepOnLogin,
		RehashLegacyPasswords: cfg.RehashLegacyPasswords,
	})

	deps := server.Deps{
		Auth:                auth,
		Governor:            gov,
		HealthPolicyChecker: policy,
		AuditLogger:         auditLogger,
		Emitter:             telemetry.Multi(emitters...),
		RoleChecker:         policy,
		Logger:              zl,
	}
	if st.db != nil {
		deps.HealthPinger = st.db
	}
	if rdb != nil {
		deps.HealthRedis = rdb
	}
	s := server.NewGRPCServer(deps)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer lis.Close()

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		serveErr <- s.Serve(lis)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	}

	zl.Info("shutting down gRPC server")
	s.GracefulStop()
	// Let in-flight async telemetry emits finish before the exporters go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		zl.Warn("otel shutdown", zap.Error(err))
	}
	zl.Info("gRPC server stopped")
	return nil
}
