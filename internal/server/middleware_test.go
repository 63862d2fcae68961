package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seowriter/zalo-bridge/internal/config"
)

func TestRecoverMiddleware(t *testing.T) {
	handler := NewRecoverMiddleware("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_server_error")
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := NewRateLimitMiddleware(1, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	mk := func(addr string) (*httptest.ResponseRecorder, *http.Request) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		return httptest.NewRecorder(), req
	}

	for i := 0; i < 2; i++ {
		rec, req := mk("10.0.0.1:1234")
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, req := mk("10.0.0.1:1234")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate_limited")

	// Other clients keep their own bucket
	other, otherReq := mk("10.0.0.2:1234")
	handler.ServeHTTP(other, otherReq)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouterMountsByRole(t *testing.T) {
	origin := newOriginFixture(t, "app-123")
	relay := newRelayFixture(t, "app-123")

	tests := []struct {
		role       config.Role
		path       string
		wantRouted bool
	}{
		{config.RoleOrigin, "/auth/error", true},
		{config.RoleOrigin, "/api/zalo-proxy/auth", false},
		{config.RoleRelay, "/api/zalo-proxy/auth", true},
		{config.RoleRelay, "/auth/error", false},
		{config.RoleBoth, "/auth/error", true},
		{config.RoleBoth, "/api/zalo-proxy/callback-relay", true},
	}

	for _, tt := range tests {
		router := NewRouter(config.Config{Role: tt.role}, origin.handlers, relay.handlers)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

		if tt.wantRouted {
			assert.NotEqual(t, http.StatusNotFound, rec.Code, "%s should be routed for role %s", tt.path, tt.role)
		} else {
			assert.Equal(t, http.StatusNotFound, rec.Code, "%s should not be routed for role %s", tt.path, tt.role)
		}
	}
}

func TestRouterHealthAlwaysMounted(t *testing.T) {
	origin := newOriginFixture(t, "app-123")
	relay := newRelayFixture(t, "app-123")

	for _, role := range []config.Role{config.RoleOrigin, config.RoleRelay, config.RoleBoth} {
		router := NewRouter(config.Config{Role: role}, origin.handlers, relay.handlers)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
