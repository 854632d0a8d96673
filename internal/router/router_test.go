package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/account-service/config"
	"github.com/oksasatya/account-service/internal/application"
	"github.com/oksasatya/account-service/internal/container"
	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/domain/event"
	"github.com/oksasatya/account-service/internal/infrastructure/cache"
	"github.com/oksasatya/account-service/internal/infrastructure/memory"
	"github.com/oksasatya/account-service/internal/interface/middleware"
	"github.com/oksasatya/account-service/pkg/helpers"
	"github.com/oksasatya/account-service/pkg/metrics"
	"github.com/oksasatya/account-service/pkg/validation"
)

const password = "Sup3r-secret!"

type tokenSink struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (s *tokenSink) Publish(_ context.Context, e event.Event) error {
	if v, ok := e.(event.EmailVerificationRequested); ok {
		s.mu.Lock()
		s.tokens[v.Email()] = v.VerificationToken()
		s.mu.Unlock()
	}
	return nil
}

func (s *tokenSink) token(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[email]
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   map[string]any  `json:"error"`
}

type api struct {
	t      *testing.T
	engine *gin.Engine
	store  *memory.Store
	sink   *tokenSink
	mr     *miniredis.Miniredis
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.Load()
	cfg.RateLimitRequests = 100
	cfg.MetricsEnabled = true
	logger := helpers.NewNopLogger()
	m := metrics.New(prometheus.NewRegistry())
	c := cache.NewRedisCache(rdb, time.Second, logger, m)
	store := memory.NewStore()
	sink := &tokenSink{tokens: map[string]string{}}
	svc := application.NewService(application.Deps{
		Store: store, Cache: c, Events: sink, Logger: logger, Metrics: m,
	}, application.Options{})
	jwt := helpers.NewJWTManager("test-secret", cfg.JWTIssuer, time.Minute)

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(nil)
	container.SetRedis(rdb)
	container.SetMetrics(m)
	container.SetCache(c)
	container.SetJWT(jwt)
	container.SetAccountService(svc)
	container.SetAuthService(application.NewAuthService(svc, jwt, logger))

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	reg := NewRegistry(engine)
	InitModules(reg)
	reg.RegisterAll()

	return &api{t: t, engine: engine, store: store, sink: sink, mr: mr}
}

func (a *api) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.serve(req)
}

func (a *api) serve(req *http.Request) (int, envelope) {
	a.t.Helper()
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (a *api) signup(email string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/accounts", "", map[string]string{
		"email": email, "first_name": "Alice", "last_name": "Smith", "password": password,
	})
	require.Equal(a.t, http.StatusCreated, code, env.Message)
	var acc struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &acc))
	return acc.ID
}

func (a *api) verify(email string) {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/accounts/verify-email", "", map[string]string{"token": a.sink.token(email)})
	require.Equal(a.t, http.StatusOK, code, env.Message)
}

func (a *api) login(email string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, code, env.Message)
	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	return out.AccessToken
}

func (a *api) admin() string {
	a.t.Helper()
	id := a.signup("root@example.com")
	a.verify("root@example.com")
	require.NoError(a.t, a.store.Accounts().AssignRole(context.Background(), id, entity.RoleAdmin))
	return a.login("root@example.com")
}

func TestSignupVerifyLogin(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(http.MethodPost, "/api/accounts", "", map[string]string{
		"email": "alice@example.com", "first_name": "Alice", "last_name": "Smith", "password": "weak",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "password")

	id := a.signup("alice@example.com")

	code, _ = a.do(http.MethodPost, "/api/accounts", "", map[string]string{
		"email": "ALICE@example.com", "first_name": "A", "last_name": "B", "password": password,
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": password})
	assert.Equal(t, http.StatusForbidden, code, "pending accounts cannot log in")

	token := a.sink.token("alice@example.com")
	code, env = a.do(http.MethodPost, "/api/accounts/verify-email", "", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, env.Meta["already_verified"])

	code, _ = a.do(http.MethodPost, "/api/accounts/verify-email", "", map[string]string{"token": token})
	assert.Equal(t, http.StatusBadRequest, code, "tokens are single use")

	code, _ = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "Wrong-pass1!"})
	assert.Equal(t, http.StatusUnauthorized, code)

	access := a.login("alice@example.com")
	code, env = a.do(http.MethodGet, "/api/me", access, nil)
	require.Equal(t, http.StatusOK, code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, id, me["id"])
	assert.Equal(t, "ACTIVE", me["status"])
	assert.Equal(t, true, me["active"])
	assert.NotContains(t, me, "credential_hash")
}

func TestResendVerification(t *testing.T) {
	a := newAPI(t)
	a.signup("alice@example.com")
	first := a.sink.token("alice@example.com")

	code, _ := a.do(http.MethodPost, "/api/accounts/verification/resend", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusAccepted, code)
	assert.NotEqual(t, first, a.sink.token("alice@example.com"))

	code, _ = a.do(http.MethodPost, "/api/accounts/verification/resend", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusAccepted, code, "unknown addresses look the same")

	a.verify("alice@example.com")
	code, _ = a.do(http.MethodPost, "/api/accounts/verification/resend", "", map[string]string{"email": "alice@example.com"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestOwnershipAndUpdates(t *testing.T) {
	a := newAPI(t)
	alice := a.signup("alice@example.com")
	a.verify("alice@example.com")
	bob := a.signup("bob@example.com")
	a.verify("bob@example.com")
	access := a.login("alice@example.com")

	code, _ := a.do(http.MethodGet, "/api/accounts/"+bob, access, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(http.MethodGet, "/api/accounts/not-a-uuid", access, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(http.MethodGet, "/api/accounts/"+alice, "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := a.do(http.MethodGet, "/api/me", access, nil)
	require.Equal(t, http.StatusOK, code)
	var me struct {
		Version int64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))

	code, env = a.do(http.MethodPatch, "/api/accounts/"+alice, access, map[string]any{"first_name": "Alicia", "version": me.Version})
	require.Equal(t, http.StatusOK, code, env.Message)
	code, _ = a.do(http.MethodPatch, "/api/accounts/"+alice, access, map[string]any{"first_name": "Ali", "version": me.Version})
	assert.Equal(t, http.StatusConflict, code, "stale version")

	code, env = a.do(http.MethodPatch, "/api/accounts/"+alice+"/profile", access, map[string]any{"gender": "ROBOT"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "gender")

	code, env = a.do(http.MethodPatch, "/api/accounts/"+alice+"/profile", access, map[string]any{
		"gender": "FEMALE", "date_of_birth": "1990-05-17", "city": "Jakarta",
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var p map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "1990-05-17", p["date_of_birth"])
	assert.Equal(t, "Jakarta", p["city"])

	code, _ = a.do(http.MethodGet, "/api/accounts/"+bob+"/profile", access, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodPost, "/api/accounts/"+alice+"/suspend", access, nil)
	assert.Equal(t, http.StatusForbidden, code, "status changes are admin only")
}

func TestAvatarUploadWithoutStorage(t *testing.T) {
	a := newAPI(t)
	alice := a.signup("alice@example.com")
	a.verify("alice@example.com")
	access := a.login("alice@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/accounts/"+alice+"/profile/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+access)
	code, _ := a.serve(req)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestAdminLifecycle(t *testing.T) {
	a := newAPI(t)
	alice := a.signup("alice@example.com")
	root := a.admin()

	code, env := a.do(http.MethodPost, "/api/accounts/"+alice+"/verify-email", root, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = a.do(http.MethodGet, "/api/accounts?q=alice%40example.com&size=10", root, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.EqualValues(t, 1, env.Meta["total_items"])

	code, env = a.do(http.MethodGet, "/api/accounts/by-email?email=ALICE@example.com", root, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	transitions := []struct {
		path string
		want string
	}{
		{"/suspend", "SUSPENDED"},
		{"/activate", "ACTIVE"},
		{"/deactivate", "INACTIVE"},
		{"/deactivate?permanent=true", "DEACTIVATED"},
		{"/close", "CLOSED"},
		{"/activate", "ACTIVE"},
	}
	for _, tr := range transitions {
		code, env = a.do(http.MethodPost, "/api/accounts/"+alice+tr.path, root, nil)
		require.Equal(t, http.StatusOK, code, tr.path)
		var acc map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &acc))
		assert.Equal(t, tr.want, acc["status"], tr.path)
		assert.Equal(t, tr.want == "ACTIVE", acc["active"], tr.path)
	}

	code, _ = a.do(http.MethodPost, "/api/accounts/"+alice+"/restore", root, nil)
	assert.Equal(t, http.StatusForbidden, code, "not deleted")

	access := a.login("alice@example.com")
	code, _ = a.do(http.MethodDelete, "/api/accounts/"+alice, access, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = a.do(http.MethodGet, "/api/me", access, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(http.MethodGet, "/api/accounts/"+alice, root, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = a.do(http.MethodPost, "/api/accounts/"+alice+"/restore", root, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	code, _ = a.do(http.MethodGet, "/api/me", access, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(http.MethodGet, "/api/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"redis":"ok"}`, string(env.Data))

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "account_service_accounts_created_total")

	a.mr.Close()
	code, env = a.do(http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, env.Error, "redis")
}

func TestLogoutClearsCookie(t *testing.T) {
	a := newAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, helpers.AccessCookie, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}
