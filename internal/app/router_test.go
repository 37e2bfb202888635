package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/societyhub/societyhub/internal/auth"
	"github.com/societyhub/societyhub/internal/observability"
	"github.com/societyhub/societyhub/internal/roles"
	"github.com/societyhub/societyhub/internal/shared"
	"github.com/societyhub/societyhub/internal/view"
)

type noUsers struct{}

func (noUsers) FindByEmail(context.Context, string) (*auth.User, error) {
	return nil, shared.ErrNotFound
}
func (noUsers) CreateSession(context.Context, string, int64, time.Time, string, string) error {
	return nil
}
func (noUsers) DeleteSession(context.Context, string) error { return nil }
func (noUsers) Societies(context.Context, int64) ([]auth.Society, error) {
	return []auth.Society{{ID: 3, Name: "Green Acres"}}, nil
}

type fixedStats struct{}

func (fixedStats) Stats(context.Context, int64) (roles.Stats, error) {
	return roles.Stats{Total: 16, Active: 12, System: 4, Custom: 12}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "sh_session", time.Hour, false)
	csrf := shared.NewCSRFManager("secret")
	templates, err := view.NewEngine()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authService := auth.NewService(noUsers{})

	router := NewRouter(RouterParams{
		Logger:         logger,
		Config:         &Config{RateLimitPerMinute: 1000, AppRequestTimeout: 5 * time.Second},
		Templates:      templates,
		SessionManager: sessions,
		CSRFManager:    csrf,
		AuthHandler:    auth.NewHandler(logger, authService, templates, sessions, csrf),
		Metrics:        observability.NewMetrics(),
		RoleStats:      fixedStats{},
		Societies:      authService,
		Checks: map[string]func(context.Context) error{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		},
	})
	return router, sessions, mr
}

func TestHealthz(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"redis":"ok"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	healthHandler(map[string]func(context.Context) error{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("down") },
	}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"ok","redis":"down"}}`, rr.Body.String())
}

func TestHomeRedirectsAnonymous(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth/login", rr.Header().Get("Location"))
	assert.NotEmpty(t, rr.Result().Cookies(), "session cookie is committed")
}

func TestHomeShowsStatsForSignedInUser(t *testing.T) {
	router, sessions, _ := newTestRouter(t)

	seed := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sessions.Load(context.Background(), seed)
	require.NoError(t, err)
	sess.SetUser("1")
	sess.SetSociety(3)
	require.NoError(t, sessions.Commit(context.Background(), httptest.NewRecorder(), sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessions.CookieName(), Value: sess.ID})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Green Acres")
	assert.Contains(t, body, ">16<")
}

func TestPostWithoutCSRFTokenIsForbidden(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("CSRF_SECRET", "c")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.RolesCacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.True(t, cfg.BulkNotify)
	assert.False(t, cfg.IsProduction())
}
