package scrape

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/entityscout/entityscout/internal/config"
	"github.com/entityscout/entityscout/internal/storage"
	"github.com/entityscout/entityscout/pkg/logger"
)

const maxPageBytes = 64 * 1024 // keep scraped pages from flooding the context window

// ReaderScraper fetches a URL through a reader-style endpoint (r.jina.ai and
// compatible services) that converts pages to markdown-ish text. Failures
// degrade to an empty result; the conversation loop never sees an error from
// this path.
type ReaderScraper struct {
	baseURL string
	client  *http.Client
	cache   *storage.PageCache
	log     *zap.Logger
}

// NewReader creates a scraper. The cache may be nil, in which case every
// scrape goes to the network.
func NewReader(cfg config.ScraperConfig, cache *storage.PageCache) *ReaderScraper {
	baseURL := strings.TrimSuffix(cfg.ReaderBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://r.jina.ai"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30
	}
	return &ReaderScraper{
		baseURL: baseURL,
		cache:   cache,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		log: logger.Named("scrape"),
	}
}

// Scrape returns the extracted text of the page, or "" when the page cannot
// be retrieved.
func (s *ReaderScraper) Scrape(ctx context.Context, url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}

	if s.cache != nil {
		if text, ok := s.cache.Get(url); ok {
			s.log.Debug("cache hit", zap.String("url", url))
			return text
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+url, nil)
	if err != nil {
		s.log.Warn("unable to build scrape request", zap.String("url", url), zap.Error(err))
		return ""
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("unable to scrape the URL", zap.String("url", url), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Warn("scrape returned non-200",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		s.log.Warn("unable to read scrape response", zap.String("url", url), zap.Error(err))
		return ""
	}

	text := string(body)
	if len(text) > maxPageBytes {
		text = text[:maxPageBytes] + "\n[TRUNCATED]"
	}

	if s.cache != nil && text != "" {
		if err := s.cache.Put(url, text); err != nil {
			s.log.Warn("unable to cache page", zap.String("url", url), zap.Error(err))
		}
	}

	s.log.Info("scraped page", zap.String("url", url), zap.Int("bytes", len(text)))
	return text
}
