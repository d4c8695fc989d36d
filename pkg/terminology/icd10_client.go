// Package terminology looks up ICD-10-CM codes against the NLM Clinical
// Tables search API, with client-side rate limiting and a circuit
// breaker around the upstream service.
package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sympdx-server/internal/domain"
)

// Code is one ICD-10-CM code with its description.
type Code struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Client queries the ICD-10-CM terminology service. Successful searches
// are cached so repeated queries, and queries arriving while the breaker
// is open, do not hit the upstream service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cache      *lru.Cache[string, []Code]
}

// NewClient creates a terminology client from configuration. Zero-value
// settings fall back to service defaults.
func NewClient(cfg domain.TerminologyConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://clinicaltables.nlm.nih.gov/api/icd10cm/v3"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rateLimit := cfg.RateLimit
	if rateLimit == 0 {
		rateLimit = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ICD10",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	})

	// Size can only fail for non-positive values.
	searchCache, _ := lru.New[string, []Code](512)

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(rateLimit), 1),
		breaker:   breaker,
		cache:     searchCache,
	}
}

// Lookup resolves one exact ICD-10-CM code to its description.
func (c *Client) Lookup(ctx context.Context, code string) (*Code, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, fmt.Errorf("code cannot be empty")
	}

	matches, err := c.Search(ctx, code, 10)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if matches[i].Code == code {
			return &matches[i], nil
		}
	}
	return nil, fmt.Errorf("code %s not found: %w", code, domain.ErrNotFound)
}

// Search returns codes whose code or name matches the term, up to limit.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]Code, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("search term cannot be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("%s|%d", strings.ToLower(term), limit)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached, nil
	}

	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.search(ctx, term, limit)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("terminology service unavailable (circuit breaker open)")
		}
		return nil, err
	}

	codes := result.([]Code)
	c.cache.Add(cacheKey, codes)
	return codes, nil
}

// search performs the actual API call. The service responds with a
// four-element array: [count, [codes], extra, [[code, name], ...]].
func (c *Client) search(ctx context.Context, term string, limit int) ([]Code, error) {
	params := url.Values{
		"sf":      {"code,name"},
		"terms":   {term},
		"maxList": {fmt.Sprintf("%d", limit)},
	}
	if c.apiKey != "" {
		params.Set("apiKey", c.apiKey)
	}

	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("terminology API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var envelope []json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if len(envelope) < 4 {
		return nil, fmt.Errorf("unexpected response shape")
	}

	var pairs [][]string
	if err := json.Unmarshal(envelope[3], &pairs); err != nil {
		return nil, fmt.Errorf("failed to parse code list: %w", err)
	}

	codes := make([]Code, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) < 2 {
			continue
		}
		codes = append(codes, Code{
			Code:        strings.ToUpper(pair[0]),
			Description: pair[1],
		})
	}
	return codes, nil
}

// BreakerState reports the circuit breaker state for health endpoints.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}
