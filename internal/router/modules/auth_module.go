package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/account-service/internal/interface/http"
	"github.com/oksasatya/account-service/internal/interface/middleware"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	Limiter *middleware.RateLimit
}

func NewAuthModule(h *handlers.AuthHandler, rl *middleware.RateLimit) *AuthModule {
	return &AuthModule{Handler: h, Limiter: rl}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	loginLimiter := m.Limiter.Limit("login", 10, time.Minute, middleware.KeyByIP(), nil) // 10 req/min per IP

	rg.POST("/auth/login", loginLimiter, m.Handler.Login)
	rg.POST("/auth/logout", m.Handler.Logout)
}
