// seed inserts development accounts for local testing. Idempotent: existing emails are skipped.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"cuidame-health/backend/internal/config"
	"cuidame-health/backend/internal/db"
	"cuidame-health/backend/internal/devseed"
	identityrepo "cuidame-health/backend/internal/identity/repository"
	"cuidame-health/backend/internal/logger"
	"cuidame-health/backend/internal/security"
	userrepo "cuidame-health/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("db", zap.Error(err))
	}
	defer conn.Close()

	seeder := &devseed.Seeder{
		Users:      userrepo.NewPostgresRepository(conn),
		Identities: identityrepo.NewPostgresRepository(conn),
		Hasher:     security.NewHasher(cfg.Argon2Params()),
	}
	n, err := seeder.Seed(ctx, devseed.DefaultAccounts)
	if err != nil {
		zl.Fatal("seed", zap.Error(err))
	}
	zl.Info("seed complete", zap.Int("created", n), zap.Int("accounts", len(devseed.DefaultAccounts)))
}
