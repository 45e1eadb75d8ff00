package models

// SearchProviderResult represents the result from a search provider
type SearchProviderResult struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// SearchResult represents a single search result
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchFindings is the structured payload the search tool returns to the
// model after extraction: candidate URLs worth scraping plus any research
// items already identified in the results.
type SearchFindings struct {
	RelatedURLsToScrapeFurther []string      `json:"related_urls_to_scrape_further"`
	InfoFound                  []FindingItem `json:"info_found"`
}

// FindingItem is a single research item spotted in search results
type FindingItem struct {
	ResearchItem string `json:"research_item"`
	Reference    string `json:"reference"`
}
