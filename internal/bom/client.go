// Package bom talks to the Bureau of Meteorology's public endpoints: the
// location/weather JSON API and the anonymous file archive that serves radar
// imagery.
package bom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bomcache/bomcache/internal/config"
	"github.com/bomcache/bomcache/internal/faults"
	"github.com/bomcache/bomcache/internal/models"
	"github.com/sony/gobreaker"
)

// Client fetches location and weather data from the BOM API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	retryLimit int
	retryDelay time.Duration
	breaker    *gobreaker.CircuitBreaker
	sleep      func(context.Context, time.Duration) error
}

// NewClient builds a client from config. The circuit breaker opens after
// repeated consecutive failures so a provider outage doesn't burn the retry
// budget on every resource in a cycle.
func NewClient(cfg config.ClientConfig) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "bom-api",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 8
		},
	})
	return &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retryLimit: cfg.RetryLimit,
		retryDelay: cfg.RetryDelay,
		breaker:    breaker,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryable statuses: the API serves 503 during maintenance windows and 429
// when it is rate limiting.
func isRetryable(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status == http.StatusServiceUnavailable
}

// get fetches a URL with bounded retries, honouring Retry-After on throttled
// responses. Exhausted retries and non-retryable failures come back tagged as
// network faults.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryLimit; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		delay := c.retryDelay

		body, retryAfter, err := c.doOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ra, ok := err.(*retryableError); ok {
			if retryAfter > 0 {
				delay = retryAfter
			}
			slog.Debug("retrying request", "url", url, "attempt", attempt+1, "delay", delay, "cause", ra.cause)
		} else {
			return nil, faults.Network(url, err)
		}

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, faults.Network(url, fmt.Errorf("retry limit exceeded: %w", lastErr))
}

// retryableError marks a failure worth another attempt.
type retryableError struct{ cause error }

func (e *retryableError) Error() string { return e.cause.Error() }
func (e *retryableError) Unwrap() error { return e.cause }

func (c *Client) doOnce(ctx context.Context, url string) ([]byte, time.Duration, error) {
	var retryAfter time.Duration

	result, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		slog.Debug("fetching", "url", url)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &retryableError{cause: err}
		}
		defer resp.Body.Close()

		if isRetryable(resp.StatusCode) {
			if header := resp.Header.Get("Retry-After"); header != "" {
				if secs, err := strconv.Atoi(header); err == nil {
					retryAfter = time.Duration(secs) * time.Second
				}
			}
			return nil, &retryableError{cause: fmt.Errorf("status %d", resp.StatusCode)}
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
		}
		return io.ReadAll(resp.Body)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, retryAfter, &retryableError{cause: err}
	}
	if err != nil {
		return nil, retryAfter, err
	}
	return result.([]byte), retryAfter, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return faults.Decode(url, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// Search queries the location search endpoint.
func (c *Client) Search(ctx context.Context, term string) ([]models.SearchResult, error) {
	var resp searchResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s?search=%s", c.baseURL, term), &resp); err != nil {
		return nil, err
	}
	slog.Debug("search complete", "term", term, "results", len(resp.Data))
	return resp.Data, nil
}

// GetLocation fetches the detail record for a geohash. The API expects the
// 6 character form even though search results carry 7.
func (c *Client) GetLocation(ctx context.Context, geohash string) (*models.Location, error) {
	var resp locationResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s", c.baseURL, shortHash(geohash)), &resp); err != nil {
		return nil, err
	}
	loc := resp.Data.toModel()
	return &loc, nil
}

// GetObservation fetches current conditions. Some locations have no nearby
// station; those return a nil observation rather than an error.
func (c *Client) GetObservation(ctx context.Context, geohash string) (*models.Observation, error) {
	var resp observationResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/observations", c.baseURL, shortHash(geohash)), &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// GetDaily fetches the multi-day forecast.
func (c *Client) GetDaily(ctx context.Context, geohash string) (*models.DailyForecast, error) {
	var resp dailyResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/forecasts/daily", c.baseURL, shortHash(geohash)), &resp); err != nil {
		return nil, err
	}
	f := resp.toModel()
	return &f, nil
}

// GetHourly fetches the hour-by-hour forecast.
func (c *Client) GetHourly(ctx context.Context, geohash string) (*models.HourlyForecast, error) {
	var resp hourlyResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/forecasts/hourly", c.baseURL, shortHash(geohash)), &resp); err != nil {
		return nil, err
	}
	f := resp.toModel()
	return &f, nil
}

// GetWarnings fetches active warnings for a location's area.
func (c *Client) GetWarnings(ctx context.Context, geohash string) ([]models.Warning, error) {
	var resp warningResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/warnings", c.baseURL, shortHash(geohash)), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// stationListURL is a var so tests can point it at a local server.
var stationListURL = "https://reg.bom.gov.au/climate/data/lists_by_element/stations.txt"

// GetStationList downloads the national fixed-width station list.
func (c *Client) GetStationList(ctx context.Context) (string, error) {
	body, err := c.get(ctx, stationListURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func shortHash(geohash string) string {
	if len(geohash) > 6 {
		return geohash[:6]
	}
	return geohash
}
