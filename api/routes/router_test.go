package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmoreno/storefront-checkout/pkg/config"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
)

func testDeps() Deps {
	return Deps{
		Config: &config.Config{App: config.AppConfig{Env: "dev", CORSOrigins: "http://localhost:3000"}},
		Logger: logger.New(logger.Options{Level: logger.ParseLevel("error")}),
	}
}

func TestRouterHealthLive(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"live"`)
	assert.Equal(t, "dev", rec.Header().Get("X-Storefront-Env"))
}

func TestRouterResolvesCartSession(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodPost, "/checkout/complete", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// The service is not wired in this test, but the session middleware
	// already ran and minted a token.
	assert.NotEmpty(t, rec.Header().Get("X-Cart-Session"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRouterUnknownRoute(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
