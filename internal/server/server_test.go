package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/internal/config"
	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"github.com/portfolio/portfolio/backend/go-services/internal/sessions"
	"github.com/portfolio/portfolio/backend/go-services/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ClientURL: "http://localhost:3000", MaxBodySize: 1 << 20},
		JWT: config.JWTConfig{
			Secret:          "server-test-secret-server-test-01",
			RefreshSecret:   "server-test-refresh-server-test-1",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: time.Hour,
		},
		Auth:      config.AuthConfig{BcryptCost: bcrypt.MinCost},
		RateLimit: config.RateLimitConfig{Enabled: true, Max: 100, Window: time.Minute},
	}
}

type fixture struct {
	r     *gin.Engine
	users *resource.MemoryStore[models.User]
}

func newFixture(t *testing.T, cfg *config.Config, checks map[string]Check) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	u := users.NewMemoryStore()
	r := NewRouter(Deps{
		Config:   cfg,
		Projects: resource.NewMemoryStore[models.Project]("slug"),
		Users:    u,
		Sessions: sessions.NewMemoryRepository(),
		Checks:   checks,
	})
	return &fixture{r: r, users: u}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, token string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func (f *fixture) login(t *testing.T, email, password string) string {
	t.Helper()
	code, env := f.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, code, env.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestHealthAndNotFound(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	code, env := f.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, _ = f.do(t, http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, code)

	code, env = f.do(t, http.MethodGet, "/api/v1/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Equal(t, "Route not found.", env.Message)
}

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	f := newFixture(t, testConfig(), map[string]Check{"mongodb": ok})
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mongodb":true`)

	f = newFixture(t, testConfig(), map[string]Check{"mongodb": ok, "redis": down})
	w = httptest.NewRecorder()
	f.r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":false`)
}

func TestProjectLifecycleThroughRouter(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	svc := users.NewService(f.users, bcrypt.MinCost, nil)
	_, err := svc.CreateAdmin(t.Context(), users.RegisterInput{Name: "Admin", Email: "admin@example.com", Password: "Secret123!"})
	require.NoError(t, err)
	_, err = svc.Register(t.Context(), users.RegisterInput{Name: "Visitor", Email: "visitor@example.com", Password: "Secret123!"})
	require.NoError(t, err)

	project := map[string]interface{}{
		"title":       "Router Project",
		"description": "Created through the assembled router.",
		"github":      "https://github.com/me/router-project",
	}

	code, env := f.do(t, http.MethodPost, "/api/v1/projects", project, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Access denied. No token provided.", env.Message)

	visitor := f.login(t, "visitor@example.com", "Secret123!")
	code, _ = f.do(t, http.MethodPost, "/api/v1/projects", project, visitor)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = f.do(t, http.MethodGet, "/api/v1/users", nil, visitor)
	assert.Equal(t, http.StatusForbidden, code)

	admin := f.login(t, "admin@example.com", "Secret123!")
	code, env = f.do(t, http.MethodPost, "/api/v1/projects", project, admin)
	require.Equal(t, http.StatusCreated, code, string(env.Data))

	code, env = f.do(t, http.MethodGet, "/api/v1/projects/slug/router-project", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Router Project")

	code, env = f.do(t, http.MethodGet, "/api/v1/users?sort=email", nil, admin)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "visitor@example.com")
	assert.NotContains(t, string(env.Data), "password")

	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "portfolio_resource_operations_total")
}

func TestUploadsMountedOnlyWithObjectStore(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	code, env := f.do(t, http.MethodPost, "/api/v1/uploads/images", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Route not found.", env.Message)
}

func TestRateLimitApplied(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Max = 2
	f := newFixture(t, cfg, nil)

	for i := 0; i < 2; i++ {
		code, _ := f.do(t, http.MethodGet, "/api/v1/projects", nil, "")
		require.Equal(t, http.StatusOK, code)
	}
	code, env := f.do(t, http.MethodGet, "/api/v1/projects", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "Too many requests from this IP, please try again later.", env.Message)

	// health stays outside the limiter
	code, _ = f.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/projects", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
