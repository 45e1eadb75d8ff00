package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/entityscout/entityscout/internal/config"
	"github.com/entityscout/entityscout/internal/models"
	"github.com/entityscout/entityscout/pkg/logger"
)

// FirecrawlProvider runs semantic web searches through the Firecrawl API
type FirecrawlProvider struct {
	apiKey     string
	baseURL    string
	timeout    int
	maxResults int
	client     *http.Client
	log        *zap.Logger
}

// NewFirecrawl creates a Firecrawl search provider
func NewFirecrawl(cfg config.SearchConfig) *FirecrawlProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.firecrawl.dev/v2"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 5
	}

	return &FirecrawlProvider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		maxResults: cfg.MaxResults,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		log: logger.Named("search"),
	}
}

// IsAvailable returns true if the provider is properly configured
func (p *FirecrawlProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// firecrawlSearchRequest represents the search request body
type firecrawlSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// firecrawlSearchResponse represents the search response
type firecrawlSearchResponse struct {
	Success bool                 `json:"success"`
	Data    *firecrawlSearchData `json:"data,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// firecrawlSearchData represents the data structure in response
type firecrawlSearchData struct {
	Web []firecrawlSearchResult `json:"web,omitempty"`
}

// firecrawlSearchResult represents a single search result
type firecrawlSearchResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Markdown    string `json:"markdown,omitempty"`
}

// Search performs a search query using Firecrawl
func (p *FirecrawlProvider) Search(ctx context.Context, query string) (*models.SearchProviderResult, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("firecrawl provider not configured: missing API key")
	}

	reqBody := firecrawlSearchRequest{
		Query: query,
		Limit: p.maxResults,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/search", p.baseURL)
	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(p.timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	p.log.Debug("firecrawl response",
		zap.Int("status", resp.StatusCode),
		zap.Int("body_bytes", len(body)),
	)

	var searchResp firecrawlSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !searchResp.Success {
		errMsg := searchResp.Error
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return nil, fmt.Errorf("firecrawl search failed: %s", errMsg)
	}

	result := &models.SearchProviderResult{
		Query:   query,
		Results: make([]models.SearchResult, 0),
	}

	if searchResp.Data != nil {
		for _, item := range searchResp.Data.Web {
			result.Results = append(result.Results, models.SearchResult{
				Title:   item.Title,
				URL:     item.URL,
				Content: item.Markdown,
				Snippet: item.Description,
			})
		}
	}

	p.log.Info("firecrawl search completed",
		zap.String("query", query),
		zap.Int("result_count", len(result.Results)),
	)

	return result, nil
}

// FormatResults renders search results as text for the extraction prompt
func FormatResults(result *models.SearchProviderResult) string {
	if result == nil || len(result.Results) == 0 {
		return "No search results found."
	}

	output := fmt.Sprintf("Search results for: %s\n\n", result.Query)
	for i, r := range result.Results {
		output += fmt.Sprintf("%d. %s\n", i+1, r.Title)
		if r.URL != "" {
			output += fmt.Sprintf("   URL: %s\n", r.URL)
		}
		if r.Snippet != "" {
			output += fmt.Sprintf("   Summary: %s\n", r.Snippet)
		}
		if r.Content != "" && r.Content != r.Snippet {
			// Truncate content if too long
			content := r.Content
			if len(content) > 2000 {
				content = content[:2000] + "..."
			}
			output += fmt.Sprintf("   Content: %s\n", content)
		}
		output += "\n"
	}

	return output
}
