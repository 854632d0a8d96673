package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-service/config"
	"github.com/oksasatya/account-service/internal/application"
	"github.com/oksasatya/account-service/pkg/helpers"
	"github.com/oksasatya/account-service/pkg/metrics"
)

// app-level container to share constructed components across packages.
// cmd/main.go fills it once at startup; the router auto-wires modules from it.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	jwtManager  *helpers.JWTManager
	appMetrics  *metrics.Metrics

	cache       application.Cache
	accountSvc  *application.Service
	authService *application.AuthService
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool } // nil with STORE_DRIVER=memory
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

func SetMetrics(m *metrics.Metrics) { appMetrics = m }
func GetMetrics() *metrics.Metrics  { return appMetrics }

func SetCache(c application.Cache) { cache = c }
func GetCache() application.Cache  { return cache }

func SetAccountService(s *application.Service) { accountSvc = s }
func GetAccountService() *application.Service  { return accountSvc }

func SetAuthService(s *application.AuthService) { authService = s }
func GetAuthService() *application.AuthService  { return authService }
