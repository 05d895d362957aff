package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestResolver(url string) *HTTPResolver {
	return NewHTTPResolver(HTTPConfig{
		BaseURL:         url,
		Timeout:         time.Second,
		RetryMaxElapsed: 10 * time.Second,
		MaxFailures:     2,
		OpenTimeout:     time.Minute,
	}, zap.NewNop().Sugar())
}

func TestHTTPResolverFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(User{ID: "u1", HasActivePackage: true, DisplayName: "Uma"})
	}))
	defer srv.Close()

	u, err := newTestResolver(srv.URL).ResolveUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.True(t, u.HasActivePackage)
	assert.False(t, u.IsAdmin)
	assert.True(t, u.CanMessage())
}

func TestHTTPResolverNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := r.ResolveUser(context.Background(), "ghost")
		assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	}
	// not-found never trips the breaker
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPResolverRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(User{ID: "a1", IsAdmin: true})
	}))
	defer srv.Close()

	u, err := newTestResolver(srv.URL).ResolveUser(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPResolverBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewHTTPResolver(HTTPConfig{
		BaseURL:         srv.URL,
		RetryMaxElapsed: 50 * time.Millisecond,
		MaxFailures:     2,
		OpenTimeout:     time.Minute,
	}, zap.NewNop().Sugar())

	for i := 0; i < 2; i++ {
		_, err := r.ResolveUser(context.Background(), "u1")
		assert.ErrorIs(t, err, apperr.ErrNetwork)
	}
	_, err := r.ResolveUser(context.Background(), "u1")
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.Contains(t, err.Error(), "unavailable")
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(User{ID: "a1", IsAdmin: true})
	u, err := r.ResolveUser(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	_, err = r.ResolveUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)

	r.Put(User{ID: "u2"})
	u, err = r.ResolveUser(context.Background(), "u2")
	require.NoError(t, err)
	assert.False(t, u.CanMessage())
}

func TestUserDocPackageExpiry(t *testing.T) {
	now := time.Now()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	assert.False(t, userDoc{PackageActive: true, PackageExpiresAt: &past}.toUser("u", now).HasActivePackage)
	assert.True(t, userDoc{PackageActive: true, PackageExpiresAt: &future}.toUser("u", now).HasActivePackage)
	assert.True(t, userDoc{PackageActive: true}.toUser("u", now).HasActivePackage)
	assert.True(t, userDoc{Role: "admin"}.toUser("u", now).IsAdmin)
}
