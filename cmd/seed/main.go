package main

import (
	"context"
	"errors"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/account-service/config"
	"github.com/oksasatya/account-service/internal/application"
	"github.com/oksasatya/account-service/internal/domain/entity"
	cacheinfra "github.com/oksasatya/account-service/internal/infrastructure/cache"
	"github.com/oksasatya/account-service/internal/infrastructure/eventlog"
	pginfra "github.com/oksasatya/account-service/internal/infrastructure/postgres"
	"github.com/oksasatya/account-service/pkg/helpers"
)

// seed creates (or reuses) the bootstrap admin account, verifies it and
// grants the admin role.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	if cfg.SeedAdminPassword == "" {
		log.Fatal("SEED_ADMIN_PASSWORD must be set")
	}

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2, MinConns: 1, MaxConnLife: cfg.DBMaxConnLife})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	store := pginfra.NewStore(pool, cfg.DBStatementTimeout)
	svc := application.NewService(application.Deps{
		Store:  store,
		Cache:  cacheinfra.NewRedisCache(rdb, cfg.CacheTimeout, logger, nil),
		Events: eventlog.NewPublisher(logger),
		Logger: logger,
	}, application.Options{CacheTTL: cfg.CacheTTL, TokenTTL: cfg.VerificationTokenTTL})

	admin, err := svc.Create(ctx, application.CreateAccountInput{
		Email:     cfg.SeedAdminEmail,
		FirstName: "Admin",
		LastName:  "Account",
		Password:  cfg.SeedAdminPassword,
	})
	switch {
	case errors.Is(err, application.ErrDuplicateIdentity):
		if admin, err = svc.GetByEmail(ctx, cfg.SeedAdminEmail); err != nil {
			log.Fatalf("failed to load existing admin: %v", err)
		}
		logger.WithField("account_id", admin.ID).Info("admin account already exists")
	case err != nil:
		log.Fatalf("failed to create admin: %v", err)
	}

	if _, err := svc.VerifyEmailByAdmin(ctx, admin.ID, entity.System); err != nil {
		log.Fatalf("failed to verify admin: %v", err)
	}
	if err := store.Accounts().AssignRole(ctx, admin.ID, entity.RoleAdmin); err != nil {
		log.Fatalf("failed to assign admin role: %v", err)
	}
	logger.WithField("account_id", admin.ID).WithField("email", admin.Email).Info("admin role assigned")
}
