// Package restcountries is the HTTP client for the REST Countries v3.1 API.
//
// It provides the two remote calls the directory depends on:
//
//	GET {base}/all?fields=...   → the whole directory, one snapshot
//	GET {base}/alpha/{code}     → zero or one record (404 = no such code)
//
// Requests are paced by a ticker (RatePerMinute) and retried up to three
// times on transport errors, 429 and 5xx responses.
package restcountries

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/model"
)

// DefaultBaseURL is the public v3.1 endpoint.
const DefaultBaseURL = "https://restcountries.com/v3.1"

const maxAttempts = 3

// Config controls the client. Zero values fall back to sensible defaults,
// except RatePerMinute where 0 disables pacing.
type Config struct {
	BaseURL       string
	RatePerMinute int
	Timeout       time.Duration
	// RetryBackoff is the wait between attempts; 429 responses wait twice as long.
	RetryBackoff time.Duration
}

// Client talks to REST Countries. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	backoff    time.Duration
	limiter    *time.Ticker
	logger     *slog.Logger
}

// NewClient builds a client. Call Close to stop the rate-limit ticker.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		backoff:    cfg.RetryBackoff,
		logger:     logger,
	}
	if cfg.RatePerMinute > 0 {
		c.limiter = time.NewTicker(time.Minute / time.Duration(cfg.RatePerMinute))
	}
	return c
}

// Close stops the rate limiter.
func (c *Client) Close() {
	if c.limiter != nil {
		c.limiter.Stop()
	}
}

// FetchAll returns every country in API order. The caller sorts.
func (c *Client) FetchAll(ctx context.Context) ([]model.Country, error) {
	endpoint := c.baseURL + "/all?fields=" + strings.Join(allFields, ",")

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var records []apiCountry
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("restcountries: decoding /all: %w", err)
	}

	countries := make([]model.Country, 0, len(records))
	for i := range records {
		if records[i].CCA3 == "" {
			continue
		}
		countries = append(countries, records[i].toModel())
	}
	return countries, nil
}

// FetchByCode returns the country for an alpha-2 or alpha-3 code.
// A 404 (or an empty result) yields apperror.ErrNotFound.
func (c *Client) FetchByCode(ctx context.Context, code string) (*model.Country, error) {
	endpoint := c.baseURL + "/alpha/" + url.PathEscape(code)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("country", code)
		}
		return nil, err
	}

	// v3.1 answers /alpha with an array; older deployments return an object.
	var records []apiCountry
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one apiCountry
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("restcountries: decoding /alpha/%s: %w", code, err)
		}
		records = append(records, one)
	} else if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("restcountries: decoding /alpha/%s: %w", code, err)
	}

	if len(records) == 0 || records[0].CCA3 == "" {
		return nil, apperror.NotFound("country", code)
	}
	country := records[0].toModel()
	return &country, nil
}

// get performs a paced GET with retries and returns the body of a 200.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			pause := c.backoff
			if errors.Is(lastErr, errTooManyRequests) {
				pause *= 2
			}
			if err := sleep(ctx, pause); err != nil {
				return nil, apperror.Remote(endpoint, err)
			}
		}

		body, retry, err := c.do(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("countries API request failed",
			slog.String("url", endpoint),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	return nil, apperror.Remote(endpoint, fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr))
}

var errTooManyRequests = errors.New("429 Too Many Requests")

// do runs one attempt. retry reports whether a further attempt may help.
func (c *Client) do(ctx context.Context, endpoint string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("restcountries: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, apperror.Remote(endpoint, ctx.Err())
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, fmt.Errorf("reading body: %w", err)
		}
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, apperror.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, errTooManyRequests
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: %s", resp.Status)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, apperror.Remote(endpoint, fmt.Errorf("status %s: %s", resp.Status, snippet))
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	select {
	case <-c.limiter.C:
		return nil
	case <-ctx.Done():
		return apperror.Remote("rate limiter", ctx.Err())
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
