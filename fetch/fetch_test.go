package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftwatch/events"
)

func newTestFetcher(bus *events.Bus) *HTTPFetcher {
	return NewHTTPFetcher(Options{
		Timeout:       5 * time.Second,
		MaxRetries:    2,
		RatePerSecond: 1000,
		UserAgent:     "test-agent",
	}, bus)
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		var gotUserAgent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserAgent = r.Header.Get("User-Agent")
			w.Write([]byte("<html><body>roster</body></html>"))
		}))
		defer server.Close()

		before := time.Now().UTC()
		result, err := newTestFetcher(nil).Fetch(context.Background(), 1, server.URL)
		require.NoError(t, err)

		assert.Equal(t, "<html><body>roster</body></html>", result.Markup)
		assert.Equal(t, "test-agent", gotUserAgent)
		assert.False(t, result.CapturedAt.Before(before))
	})

	t.Run("retries transient status then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		bus := events.NewBus()
		var retried atomic.Int32
		bus.Subscribe(events.EventTypeFetchRetried, func(ctx context.Context, event events.Event) {
			retried.Add(1)
		})

		result, err := newTestFetcher(bus).Fetch(context.Background(), 1, server.URL)
		require.NoError(t, err)

		assert.Equal(t, "ok", result.Markup)
		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, int32(1), retried.Load())
	})

	t.Run("client error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestFetcher(nil).Fetch(context.Background(), 1, server.URL)
		require.Error(t, err)

		assert.Contains(t, err.Error(), "status 404")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newTestFetcher(nil).Fetch(context.Background(), 1, server.URL)
		require.Error(t, err)

		// Initial attempt plus two retries.
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestFetcher(nil).Fetch(ctx, 1, server.URL)
		require.Error(t, err)
	})
}
