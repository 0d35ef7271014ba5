package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRateLimitedHandler(t *testing.T, limit int) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mw := RateLimitMiddleware(client, RateLimitConfig{
		RequestsPerWindow: limit,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit",
	}, zap.NewNop())

	return SessionMiddleware()(mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
}

func limitedRequest(session string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session})
	return req
}

func TestRateLimit_AllowsWithinWindow(t *testing.T) {
	handler := newRateLimitedHandler(t, 3)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, limitedRequest("sess-1"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestRateLimit_RejectsBeyondWindow(t *testing.T) {
	handler := newRateLimitedHandler(t, 2)

	handler.ServeHTTP(httptest.NewRecorder(), limitedRequest("sess-1"))
	handler.ServeHTTP(httptest.NewRecorder(), limitedRequest("sess-1"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest("sess-1"))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimit_SessionsCountSeparately(t *testing.T) {
	handler := newRateLimitedHandler(t, 1)

	handler.ServeHTTP(httptest.NewRecorder(), limitedRequest("sess-1"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest("sess-2"))

	assert.Equal(t, http.StatusOK, rec.Code, "another session has its own counter")
}
