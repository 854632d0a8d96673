package router

import (
	"context"
	"time"

	"github.com/oksasatya/account-service/internal/container"
	handlers "github.com/oksasatya/account-service/internal/interface/http"
	"github.com/oksasatya/account-service/internal/interface/middleware"
	"github.com/oksasatya/account-service/internal/router/modules"
	"github.com/oksasatya/account-service/pkg/helpers"
)

type AccountModuleDeps struct {
	Accounts *handlers.AccountHandler
	Profiles *handlers.ProfileHandler
	Auth     *handlers.AuthHandler
	Health   *handlers.HealthHandler
	Limiter  *middleware.RateLimit
}

func buildAccountDeps() AccountModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	svc := container.GetAccountService()

	checks := map[string]handlers.Pinger{}
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = pool.Ping
	}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return helpers.PingRedis(ctx, rdb, time.Second) }
	}

	return AccountModuleDeps{
		Accounts: handlers.NewAccountHandler(svc, logger),
		Profiles: handlers.NewProfileHandler(svc, logger),
		Auth:     handlers.NewAuthHandler(container.GetAuthService(), logger, cfg.CookieDomain, cfg.CookieSecure),
		Health:   handlers.NewHealthHandler(checks),
		Limiter:  middleware.NewRateLimit(container.GetCache(), container.GetMetrics()),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	deps := buildAccountDeps()

	r.Add(
		modules.NewHealthModule(deps.Health),
		modules.NewAuthModule(deps.Auth, deps.Limiter),
		modules.NewAccountModule(deps.Accounts, deps.Profiles, container.GetJWT(), deps.Limiter, cfg.RateLimitRequests, cfg.RateLimitWindow),
	)
	r.AddIf(cfg.MetricsEnabled, modules.NewMetricsModule(container.GetMetrics(), deps.Limiter))
}
