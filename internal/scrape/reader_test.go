package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/entityscout/entityscout/internal/config"
	"github.com/entityscout/entityscout/internal/storage"
)

func TestScrapeUsesCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("page text"))
	}))
	defer srv.Close()

	cache, err := storage.NewPageCache(filepath.Join(t.TempDir(), "pages.db"))
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	s := NewReader(config.ScraperConfig{ReaderBaseURL: srv.URL, Timeout: 5}, cache)

	if got := s.Scrape(context.Background(), "https://a.test"); got != "page text" {
		t.Fatalf("unexpected scrape result: %q", got)
	}
	if got := s.Scrape(context.Background(), "https://a.test"); got != "page text" {
		t.Fatalf("unexpected cached result: %q", got)
	}
	if hits != 1 {
		t.Errorf("expected 1 network fetch, got %d", hits)
	}
}

func TestScrapeFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewReader(config.ScraperConfig{ReaderBaseURL: srv.URL, Timeout: 5}, nil)

	if got := s.Scrape(context.Background(), "https://down.test"); got != "" {
		t.Errorf("expected empty result on failure, got %q", got)
	}
}

func TestScrapeEmptyURL(t *testing.T) {
	s := NewReader(config.ScraperConfig{ReaderBaseURL: "https://r.jina.ai"}, nil)
	if got := s.Scrape(context.Background(), "   "); got != "" {
		t.Errorf("expected empty result for blank URL, got %q", got)
	}
}
