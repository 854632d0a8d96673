package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/account-service/internal/application"
	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/pkg/helpers"
	"github.com/oksasatya/account-service/pkg/response"
)

const (
	CtxActorKey     = "actor"
	CtxAccountIDKey = "accountID"
)

// Auth validates the access token from the Authorization header or the
// access_token cookie and stores the actor in the Gin context.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}
		c.Set(CtxActorKey, application.ActorFromClaims(claims))
		c.Set(CtxAccountIDKey, claims.AccountID)
		c.Next()
	}
}

// RequireAdmin rejects actors without the admin role. It must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).Admin {
			response.Abort(c, http.StatusForbidden, "admin role required", nil)
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated actor, or the zero Actor.
func ActorFrom(c *gin.Context) entity.Actor {
	if v, ok := c.Get(CtxActorKey); ok {
		if a, ok := v.(entity.Actor); ok {
			return a
		}
	}
	return entity.Actor{}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if tok, err := c.Cookie(helpers.AccessCookie); err == nil {
		return tok
	}
	return ""
}
