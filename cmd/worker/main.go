// Worker sweeps and purges sessions every SWEEP_INTERVAL and reports each pass as a
// session_sweep telemetry event. Requires DATABASE_URL; GRPC_ADDR is loaded but unused.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cuidame-health/backend/internal/config"
	"cuidame-health/backend/internal/db"
	"cuidame-health/backend/internal/logger"
	sessiondomain "cuidame-health/backend/internal/session/domain"
	"cuidame-health/backend/internal/session/governor"
	sessionrepo "cuidame-health/backend/internal/session/repository"
	"cuidame-health/backend/internal/telemetry"
	telemetrydomain "cuidame-health/backend/internal/telemetry/domain"
	telemetryotel "cuidame-health/backend/internal/telemetry/otel"
	"cuidame-health/backend/internal/telemetry/producer"
)

type sweepMetadata struct {
	Expired   int64 `json:"expired"`
	Inactive  int64 `json:"inactive"`
	NeverUsed int64 `json:"never_used"`
	Purged    int64 `json:"purged"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		zl.Info("worker: shutting down")
		cancel()
	}()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("db", zap.Error(err))
	}
	defer conn.Close()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.OTelServiceName + "-worker",
		Insecure:    cfg.OTLPInsecure,
	}, zl)
	if err != nil {
		zl.Fatal("otel", zap.Error(err))
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			zl.Warn("otel shutdown", zap.Error(err))
		}
	}()

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		zl.Fatal("kafka", zap.Error(err))
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		emitters = append(emitters, kafkaProducer)
	}
	emitter := telemetry.Multi(emitters...)

	report := func(_ context.Context, sweep sessiondomain.SweepResult, purge sessiondomain.PurgeResult) {
		meta, _ := json.Marshal(sweepMetadata{
			Expired:   sweep.Expired,
			Inactive:  sweep.Inactive,
			NeverUsed: sweep.NeverUsed,
			Purged:    purge.Deleted,
		})
		emitCtx, stop := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
		defer stop()
		if err := emitter.Emit(emitCtx, &telemetrydomain.Event{
			EventType: telemetrydomain.EventSessionSweep,
			Source:    "worker",
			Metadata:  meta,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			zl.Warn("worker: sweep event not emitted", zap.Error(err))
		}
	}

	gov := governor.New(sessionrepo.NewPostgresRepository(conn), governor.Config{
		RetentionDays:       cfg.SessionRetentionDays,
		NeverUsedGraceHours: cfg.SessionNeverUsedGraceHours,
	}, zl, governor.WithMeterProvider(providers.MeterProvider), governor.WithTickFunc(report))

	zl.Info("worker: sweeping", zap.Duration("interval", cfg.SweepEvery()))
	gov.Run(ctx, cfg.SweepEvery())
	zl.Info("worker: stopped")
}
