package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"petcare/internal/ratelimit/models"
	"petcare/internal/ratelimit/store"
	"petcare/pkg/requestcontext"
	"petcare/pkg/testutil"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func fromIP(t *testing.T, ip string) *http.Request {
	req := testutil.NewRequest(t, http.MethodPost, "/auth/token")
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test-agent"))
}

func TestRateLimit(t *testing.T) {
	m := New(store.NewInMemory(), WithPolicy(models.ClassAuth, models.Policy{Limit: 2, Window: time.Minute}))
	h := m.RateLimit(models.ClassAuth)(okHandler())

	for range 2 {
		rr := testutil.DoRequest(h, fromIP(t, "10.0.0.1"))
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	}

	t.Run("third request from the same IP is rejected", func(t *testing.T) {
		rr := testutil.DoRequest(h, fromIP(t, "10.0.0.1"))
		testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limit_exceeded")
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("another IP is unaffected", func(t *testing.T) {
		rr := testutil.DoRequest(h, fromIP(t, "10.0.0.2"))
		testutil.AssertStatus(t, rr, http.StatusNoContent)
		assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))
	})
}

func TestRateLimitCaller(t *testing.T) {
	m := New(store.NewInMemory(), WithPolicy(models.ClassWrite, models.Policy{Limit: 1, Window: time.Minute}))
	h := m.RateLimitCaller(models.ClassWrite)(okHandler())
	caller := testutil.Owner()

	rr := testutil.DoRequest(h, testutil.AsCaller(fromIP(t, "10.0.0.1"), caller))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.DoRequest(h, testutil.AsCaller(fromIP(t, "10.0.0.9"), caller))
	testutil.AssertStatus(t, rr, http.StatusTooManyRequests)

	rr = testutil.DoRequest(h, testutil.AsCaller(fromIP(t, "10.0.0.1"), testutil.Owner()))
	testutil.AssertStatus(t, rr, http.StatusNoContent)
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := New(failingStore{}).RateLimit(models.ClassAuth)(okHandler())

	rr := testutil.DoRequest(h, fromIP(t, "10.0.0.1"))

	testutil.AssertStatus(t, rr, http.StatusNoContent)
}

func TestRateLimitDisabled(t *testing.T) {
	m := New(store.NewInMemory(), WithDisabled(true), WithPolicy(models.ClassAuth, models.Policy{Limit: 1, Window: time.Minute}))
	h := m.RateLimit(models.ClassAuth)(okHandler())

	for range 3 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, fromIP(t, "10.0.0.1"))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	}
}
