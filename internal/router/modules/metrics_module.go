package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/account-service/internal/interface/middleware"
	"github.com/oksasatya/account-service/pkg/metrics"
)

type MetricsModule struct {
	Metrics *metrics.Metrics
	Limiter *middleware.RateLimit
}

func NewMetricsModule(m *metrics.Metrics, rl *middleware.RateLimit) *MetricsModule {
	return &MetricsModule{Metrics: m, Limiter: rl}
}

func (m *MetricsModule) Register(rg *gin.RouterGroup) {
	// Prometheus scrape endpoint; in-cluster scrapers bypass the per-IP limit
	rl := m.Limiter.Limit("metrics", 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/metrics", rl, gin.WrapH(m.Metrics.Handler()))
}
