// Package video looks up exercise tutorial videos on YouTube.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://www.googleapis.com/youtube/v3"
	defaultTimeout  = 10 * time.Second
	defaultRate     = 5
	defaultBurst    = 5
	defaultCacheTTL = 24 * time.Hour

	watchURL         = "https://www.youtube.com/watch?v="
	searchResultsURL = "https://www.youtube.com/results?search_query="
)

var ErrEmptyQuery = errors.New("video: empty search query")

// SearchLink builds a YouTube search-results link for query.
func SearchLink(query string) string {
	return searchResultsURL + url.QueryEscape(strings.TrimSpace(query))
}

// IsSearchLink reports whether s is a search-results link rather than a
// direct video link.
func IsSearchLink(s string) bool {
	return strings.Contains(s, "/results?search_query=")
}

// Cache stores resolved links between lookups.
type Cache interface {
	GetVideo(ctx context.Context, category, query string) (string, bool, error)
	SetVideo(ctx context.Context, category, query, link string, ttl time.Duration) error
}

type Config struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// Finder resolves a search query to a single video link.
type Finder struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	cache   Cache
	logger  *zap.Logger
}

type Option func(*Finder)

func WithHTTPClient(client *http.Client) Option {
	return func(f *Finder) {
		if client != nil {
			f.http = client
		}
	}
}

func WithCache(cache Cache) Option {
	return func(f *Finder) {
		f.cache = cache
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Finder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFinder(cfg Config, opts ...Option) *Finder {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	f := &Finder{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

// FindVideoURL returns a watch link for the best match of query. Without an
// API key, or when nothing matches, it returns a search-results link instead.
func (f *Finder) FindVideoURL(ctx context.Context, query, category, label string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if f.cfg.APIKey == "" {
		return SearchLink(query), nil
	}

	if f.cache != nil {
		link, ok, err := f.cache.GetVideo(ctx, category, query)
		if err != nil {
			f.logger.Warn("video cache read failed", zap.String("query", query), zap.Error(err))
		} else if ok {
			return link, nil
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("video search rate limit: %w", err)
	}

	videoID, err := f.search(ctx, query)
	if err != nil {
		return "", err
	}
	if videoID == "" {
		f.logger.Debug("no video found", zap.String("query", query), zap.String("label", label))
		return SearchLink(query), nil
	}

	link := watchURL + videoID
	if f.cache != nil {
		if err := f.cache.SetVideo(ctx, category, query, link, f.cfg.CacheTTL); err != nil {
			f.logger.Warn("video cache write failed", zap.String("query", query), zap.Error(err))
		}
	}
	f.logger.Debug("video found",
		zap.String("category", category),
		zap.String("label", label),
		zap.String("query", query),
		zap.String("video_id", videoID),
	)
	return link, nil
}

func (f *Finder) search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", "1")
	params.Set("videoEmbeddable", "true")
	params.Set("q", query)
	params.Set("key", f.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build video search request: %w", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("video search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read video search response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("video search: status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode video search response: %w", err)
	}
	for _, item := range result.Items {
		if item.ID.VideoID != "" {
			return item.ID.VideoID, nil
		}
	}
	return "", nil
}
