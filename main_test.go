package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariebrainware/cml-tracker/config"
	"github.com/ariebrainware/cml-tracker/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:        "CML Tracker",
		AppEnv:         "test",
		AppPort:        3000,
		DBDriver:       "sqlite",
		SessionBackend: config.SessionBackendMemory,
		SessionSecret:  "0123456789abcdef0123456789abcdef",
		CORSOrigins:    []string{"http://localhost:3000"},
		DefaultLocale:  "th",
		RateLimit:      5,
	}
}

func TestNewSessionRepository(t *testing.T) {
	cfg := testConfig()
	db, err := config.ConnectDatabase(cfg, "")
	require.NoError(t, err)

	tests := []struct {
		backend string
		want    interface{}
	}{
		{config.SessionBackendMemory, &session.MemoryRepository{}},
		{config.SessionBackendDatabase, &session.DatabaseRepository{}},
		{config.SessionBackendCookie, &session.CookieRepository{}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg.SessionBackend = tt.backend
			repo, err := newSessionRepository(cfg, db, nil)
			require.NoError(t, err)
			assert.IsType(t, tt.want, repo)
		})
	}

	cfg.SessionBackend = config.SessionBackendRedis
	_, err = newSessionRepository(cfg, db, nil)
	assert.Error(t, err)
}

func TestNewRouter(t *testing.T) {
	cfg := testConfig()
	dbs, err := config.ConnectDatabases(cfg)
	require.NoError(t, err)
	require.NoError(t, migrate(dbs.Service))
	sessions := session.NewManager(session.NewMemoryRepository())
	r := newRouter(cfg, dbs, sessions, nil)

	t.Run("locale prefix redirects", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/en/admin?x=1", nil))
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/admin?x=1", w.Header().Get("Location"))
	})

	t.Run("default locale", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tki-medications", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "th", w.Header().Get("Content-Language"))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/admin/login", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})
}
