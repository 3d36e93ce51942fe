package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/infrastructure/identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier map[string]*entity.Owner

func (f fakeVerifier) Verify(_ context.Context, token string) (*entity.Owner, error) {
	switch token {
	case "expired":
		return nil, identity.ErrTokenExpired
	case "broken":
		return nil, errors.New("provider unreachable")
	}
	if owner, ok := f[token]; ok {
		return owner, nil
	}
	return nil, identity.ErrTokenInvalid
}

func newAuthEngine() *gin.Engine {
	v := fakeVerifier{
		"parent": {ID: "u1", Email: "parent@example.com"},
		"admin":  {ID: "a1", Email: "ops@example.com", Admin: true},
	}
	r := gin.New()
	r.Use(Auth(AuthConfig{Verifier: v, SkipPaths: DefaultSkipPaths, Enabled: true}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/me", RequireOwner(), func(c *gin.Context) {
		owner, _ := OwnerFromGin(c)
		c.String(http.StatusOK, owner.ID+"|"+GetUserIDFromGin(c))
	})
	r.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newAuthEngine()

	assert.Equal(t, http.StatusOK, get(r, "/health", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer unknown").Code)

	w := get(r, "/me", "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token expired")

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer broken").Code)

	w = get(r, "/me", "bearer parent")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1|u1", w.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	r := newAuthEngine()

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", "Bearer parent").Code)
	assert.Equal(t, http.StatusOK, get(r, "/admin", "Bearer admin").Code)
}

func TestAuthDisabledLeavesOwnerUnset(t *testing.T) {
	r := gin.New()
	r.Use(Auth(AuthConfig{Enabled: false}))
	r.GET("/me", RequireOwner(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
}

type fakeLimiter struct {
	counts map[string]int
	err    error
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.counts[key]++
	return f.counts[key] <= limit, nil
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int{}}
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{Enabled: true, Limit: 2, Window: time.Minute}, limiter))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/x", "").Code)
	assert.Equal(t, 3, limiter.counts["ip:192.0.2.1"])
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{Enabled: true, Limit: 1}, &fakeLimiter{err: errors.New("redis down")}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
}

func TestSubjectKeyPrefersUser(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		SetOwner(c, entity.Owner{ID: "u9"})
		c.String(http.StatusOK, SubjectKey(c))
	})
	assert.Equal(t, "user:u9", get(r, "/x", "").Body.String())
}

func TestRequestIDPropagation(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = get(r, "/x", "")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestRecoveryReturns500(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	assert.Equal(t, http.StatusInternalServerError, get(r, "/panic", "").Code)
}
