// Package fetch retrieves roster page markup over HTTP.
//
// All venues share one fetcher. A single rate limiter paces requests across
// venues so a collection cycle never bursts against the source site, and
// transient failures are retried with exponential backoff before the venue is
// reported failed.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"shiftwatch/events"
)

// Result is one successful page retrieval. CapturedAt is taken when the
// response body has been read in full, so every observation derived from the
// markup shares one capture instant.
type Result struct {
	Markup     string
	CapturedAt time.Time
}

// Options configures an HTTPFetcher.
type Options struct {
	Timeout       time.Duration
	MaxRetries    uint64
	RatePerSecond float64
	UserAgent     string
}

// HTTPFetcher fetches pages with shared pacing and bounded retries.
type HTTPFetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
	userAgent  string
	bus        *events.Bus
}

// NewHTTPFetcher creates a fetcher. The bus may be nil when no observer cares
// about retry events.
func NewHTTPFetcher(opts Options, bus *events.Bus) *HTTPFetcher {
	return &HTTPFetcher{
		client:     &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		maxRetries: opts.MaxRetries,
		userAgent:  opts.UserAgent,
		bus:        bus,
	}
}

// permanentStatusError marks a response status that retrying cannot fix.
type permanentStatusError struct {
	status int
}

func (e *permanentStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

// Fetch retrieves the page at url. Network errors, 5xx and 429 responses are
// retried with exponential backoff up to the configured attempt limit; any
// other non-2xx status fails immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, venueID int64, url string) (*Result, error) {
	var result *Result
	attempt := 0

	operation := func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		attempt++

		markup, err := f.fetchOnce(ctx, url)
		if err == nil {
			result = &Result{Markup: markup, CapturedAt: time.Now().UTC()}
			return nil
		}

		var statusErr *permanentStatusError
		if ctx.Err() != nil || errors.As(err, &statusErr) {
			return backoff.Permanent(err)
		}

		log.WithFields(log.Fields{
			"venueID": venueID,
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Roster fetch failed, will retry")
		if f.bus != nil {
			f.bus.Emit(ctx, events.FetchRetriedEvent{
				VenueID: venueID,
				Attempt: attempt,
				Err:     err.Error(),
			})
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("failed to fetch roster page: %w", err)
	}
	return result, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		// Drain so the connection can be reused across retries.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transient status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &permanentStatusError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}
