// Package websearch queries an external search engine for result URLs.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// MaxResults is the most locators a search ever returns.
const MaxResults = 3

// Google is a client for the Google Custom Search JSON API.
type Google struct {
	baseURL    string
	apiKey     string
	cx         string
	maxResults int
	limiter    *rate.Limiter
	client     *http.Client
}

// GoogleConfig configures the Custom Search client.
type GoogleConfig struct {
	BaseURL     string
	APIKeyEnv   string
	CXEnv       string
	MaxResults  int
	MinInterval time.Duration
	Timeout     time.Duration
}

// NewGoogle creates a client reading credentials from the configured env vars.
func NewGoogle(cfg GoogleConfig) (*Google, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	cx := os.Getenv(cfg.CXEnv)
	if cx == "" {
		return nil, fmt.Errorf("missing search engine id in env %s", cfg.CXEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if cfg.MaxResults <= 0 || cfg.MaxResults > MaxResults {
		cfg.MaxResults = MaxResults
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 15 * time.Second
	}
	return &Google{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		cx:         cx,
		maxResults: cfg.MaxResults,
		limiter:    rate.NewLimiter(limit, 1),
		client:     &http.Client{Timeout: t},
	}, nil
}

// Search returns up to three result links for query. It makes one request
// and never retries; pacing waits honour ctx.
func (g *Google) Search(ctx context.Context, query string) ([]string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.cx)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(g.maxResults))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		// the request URL carries the API key; keep it out of the error
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search failed: %s", resp.Status)
	}
	var out struct {
		Items []struct {
			Link string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("web search: decode response: %w", err)
	}
	links := make([]string, 0, g.maxResults)
	for _, it := range out.Items {
		if it.Link == "" {
			continue
		}
		links = append(links, it.Link)
		if len(links) == g.maxResults {
			break
		}
	}
	return links, nil
}
