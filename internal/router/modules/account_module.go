package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/account-service/internal/interface/http"
	"github.com/oksasatya/account-service/internal/interface/middleware"
	"github.com/oksasatya/account-service/pkg/helpers"
)

// AccountModule wires account and profile handlers into routes.
// Public: POST /accounts, POST /accounts/verify-email, POST /accounts/verification/resend
// Protected: GET /me, GET|PATCH|DELETE /accounts/:id, GET|PATCH /accounts/:id/profile,
// POST /accounts/:id/profile/avatar
// Admin: search, by-email lookup, status transitions, admin verification, restore
type AccountModule struct {
	Accounts *handlers.AccountHandler
	Profiles *handlers.ProfileHandler
	JWT      *helpers.JWTManager
	Limiter  *middleware.RateLimit

	// per-IP budget for sign-up
	PublicMax    int
	PublicWindow time.Duration
}

func NewAccountModule(a *handlers.AccountHandler, p *handlers.ProfileHandler, jwt *helpers.JWTManager, rl *middleware.RateLimit, max int, window time.Duration) *AccountModule {
	return &AccountModule{Accounts: a, Profiles: p, JWT: jwt, Limiter: rl, PublicMax: max, PublicWindow: window}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	signupLimiter := m.Limiter.Limit("signup", m.PublicMax, m.PublicWindow, middleware.KeyByIP(), middleware.AllowPrivateIP())
	verifyLimiter := m.Limiter.Limit("verify", 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	resendLimiter := m.Limiter.Limit("resend", 5, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/accounts", signupLimiter, m.Accounts.Create)
	rg.POST("/accounts/verify-email", verifyLimiter, m.Accounts.VerifyEmail)
	rg.POST("/accounts/verification/resend", resendLimiter, m.Accounts.ResendVerification)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	auth.Use(m.Limiter.Limit("account", 120, time.Minute, middleware.KeyByAccount(), middleware.AllowAdmin()))
	{
		auth.GET("/me", m.Accounts.Me)
		auth.GET("/accounts/:id", m.Accounts.Get)
		auth.PATCH("/accounts/:id", m.Accounts.UpdateBasicInfo)
		auth.DELETE("/accounts/:id", m.Accounts.Delete)
		auth.GET("/accounts/:id/profile", m.Profiles.Get)
		auth.PATCH("/accounts/:id/profile", m.Profiles.Update)
		auth.POST("/accounts/:id/profile/avatar", m.Profiles.UploadAvatar)
	}

	admin := auth.Group("/")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/accounts", m.Accounts.Search)
		admin.GET("/accounts/by-email", m.Accounts.GetByEmail)
		admin.POST("/accounts/:id/activate", m.Accounts.Activate)
		admin.POST("/accounts/:id/deactivate", m.Accounts.Deactivate)
		admin.POST("/accounts/:id/suspend", m.Accounts.Suspend)
		admin.POST("/accounts/:id/close", m.Accounts.Close)
		admin.POST("/accounts/:id/verify-email", m.Accounts.VerifyEmailByAdmin)
		admin.POST("/accounts/:id/restore", m.Accounts.Restore)
	}
}
