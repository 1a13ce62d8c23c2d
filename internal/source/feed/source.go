package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"post_importer/internal/domain"
)

// APIKeyHeader carries the feed credentials.
const APIKeyHeader = "X-API-Key"

const maxBodyBytes = 32 << 20

// Config holds feed source configuration.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Source reads the upstream article feed.
type Source struct {
	httpClient *http.Client
	url        string
	apiKey     string
	logger     *slog.Logger
}

// New creates a new feed source.
func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		logger: logger.With("component", "feed"),
	}
}

// Name returns the feed URL.
func (s *Source) Name() string {
	return s.url
}

// FetchArticles downloads the feed and validates every entry. Any transport,
// decoding or shape error fails the whole fetch; no partial result is returned.
func (s *Source) FetchArticles(ctx context.Context) ([]domain.RemoteArticle, error) {
	entries, err := s.doRequest(ctx)
	if err != nil {
		return nil, err
	}

	articles := make([]domain.RemoteArticle, 0, len(entries))
	for i, e := range entries {
		a, err := e.ToArticle()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		articles = append(articles, a)
	}

	s.logger.Debug("fetched feed", "articles", len(articles))

	return articles, nil
}

func (s *Source) doRequest(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "PostImporter/1.0")
	if s.apiKey != "" {
		req.Header.Set(APIKeyHeader, s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))

	var entries []Entry
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	// The body must hold exactly one JSON value.
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode response: trailing data")
	}

	return entries, nil
}
