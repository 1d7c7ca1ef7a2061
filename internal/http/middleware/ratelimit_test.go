package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dental-assistant/pkg/logging"
)

func TestTokenBucket(t *testing.T) {
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	tb := NewTokenBucket(1, 2)
	tb.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _ := tb.Allow(ctx, "1.2.3.4")
		assert.True(t, ok, "request %d within burst", i)
	}
	ok, _ := tb.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)

	ok, _ = tb.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Second)
	ok, _ = tb.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "one token refilled")

	now = now.Add(time.Hour)
	tb.Evict(10 * time.Minute)
	assert.Empty(t, tb.buckets)
}

func TestRedisWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rw := NewRedisWindow(client, 2, time.Minute)
	rw.now = func() time.Time { return time.Date(2025, 3, 5, 10, 0, 30, 0, time.UTC) }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rw.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rw.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, ok)

	rw.now = func() time.Time { return time.Date(2025, 3, 5, 10, 1, 30, 0, time.UTC) }
	ok, err = rw.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, ok, "new window")

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))

	mr.Close()
	_, err = rw.Allow(ctx, "ip")
	assert.Error(t, err)
}

type stubLimiter struct {
	ok  bool
	err error
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) { return s.ok, s.err }

func TestRateLimit(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name    string
		limiter Limiter
		want    int
	}{
		{"allowed", stubLimiter{ok: true}, http.StatusOK},
		{"limited", stubLimiter{ok: false}, http.StatusTooManyRequests},
		{"limiter down fails open", stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RateLimit(tt.limiter, logging.Discard())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusTooManyRequests {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
		})
	}
}
