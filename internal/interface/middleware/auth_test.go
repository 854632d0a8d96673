package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/pkg/helpers"
)

func authRouter(jwt *helpers.JWTManager) *gin.Engine {
	r := gin.New()
	g := r.Group("/", Auth(jwt))
	g.GET("/me", func(c *gin.Context) {
		a := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": a.ID, "admin": a.Admin, "account_id": c.GetString(CtxAccountIDKey)})
	})
	g.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuth(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", "account-service", time.Minute)
	r := authRouter(jwt)
	userToken, _, err := jwt.GenerateAccessToken("acc-1", []string{entity.RoleUser})
	require.NoError(t, err)
	adminToken, _, err := jwt.GenerateAccessToken("acc-2", []string{entity.RoleAdmin})
	require.NoError(t, err)
	foreign, _, err := helpers.NewJWTManager("other", "account-service", time.Minute).GenerateAccessToken("acc-1", nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		cookie string
		want   int
	}{
		{"no token", "/me", "", "", http.StatusUnauthorized},
		{"bearer", "/me", "Bearer " + userToken, "", http.StatusOK},
		{"lower-case scheme", "/me", "bearer " + userToken, "", http.StatusOK},
		{"cookie", "/me", "", userToken, http.StatusOK},
		{"wrong scheme", "/me", "Basic " + userToken, "", http.StatusUnauthorized},
		{"foreign signature", "/me", "Bearer " + foreign, "", http.StatusUnauthorized},
		{"user on admin route", "/admin", "Bearer " + userToken, "", http.StatusForbidden},
		{"admin on admin route", "/admin", "Bearer " + adminToken, "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthStoresActor(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", "", time.Minute)
	tok, _, err := jwt.GenerateAccessToken("acc-9", []string{entity.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	authRouter(jwt).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"acc-9","admin":true,"account_id":"acc-9"}`, w.Body.String())
}
