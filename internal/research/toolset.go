package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/entityscout/entityscout/internal/agent"
	"github.com/entityscout/entityscout/internal/facts"
	"github.com/entityscout/entityscout/internal/models"
	"github.com/entityscout/entityscout/internal/search"
	"github.com/entityscout/entityscout/pkg/logger"
)

const extractionPromptFormat = `Below are some search results from the internet about %s:
%s
-----

Your goal is to find specific information about an entity called %s regarding %s.

Please extract information from the search results above in the following JSON format:
{
    "related_urls_to_scrape_further": ["url1", "url2", "url3"],
    "info_found": [
        {
            "research_item": "xxxx",
            "reference": "url"
        }
        ...
    ]
}

Where "research_item" is the actual research item name you are looking for.

Only return research items that you actually found.
If no research item information is found from the content provided, just don't return any research item.

Extracted JSON:`

// emptyFindings is the degraded search result: well-formed, nothing found.
var emptyFindings = func() string {
	encoded, _ := json.Marshal(models.SearchFindings{
		RelatedURLsToScrapeFurther: []string{},
		InfoFound:                  []models.FindingItem{},
	})
	return string(encoded)
}()

// Scraper fetches a URL and returns extracted text, or "" on failure.
type Scraper interface {
	Scrape(ctx context.Context, url string) string
}

// Searcher runs a semantic web search.
type Searcher interface {
	Search(ctx context.Context, query string) (*models.SearchProviderResult, error)
}

// Toolset binds the fact store and the I/O providers into the tool handlers
// the conversation loop dispatches to. Handlers return an error only for
// malformed arguments; execution failures degrade to result text so the
// conversation stays well-formed.
type Toolset struct {
	facts    *facts.Store
	scraper  Scraper
	searcher Searcher
	chat     agent.ChatCompleter
	model    string
	log      *zap.Logger
}

// NewToolset creates the toolset. The chat completer and model drive the
// extraction step of the search tool.
func NewToolset(store *facts.Store, scraper Scraper, searcher Searcher, chat agent.ChatCompleter, model string) *Toolset {
	return &Toolset{
		facts:    store,
		scraper:  scraper,
		searcher: searcher,
		chat:     chat,
		model:    model,
		log:      logger.Named("research"),
	}
}

// Register binds every tool the declaration sets name. Missing a name here
// would be caught at dispatch time as a fatal contract error, so wiring
// happens in one place.
func (t *Toolset) Register(r *agent.Registry) error {
	if err := r.Register("update_data", t.updateData); err != nil {
		return err
	}
	if err := r.Register("scrape", t.scrape); err != nil {
		return err
	}
	return r.Register("search", t.search)
}

type updateDataArgs struct {
	DataToUpdate []facts.DataPoint `json:"data_to_update"`
}

func (t *Toolset) updateData(_ context.Context, raw json.RawMessage) (string, error) {
	var args updateDataArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("decode update_data arguments: %w", err)
	}
	t.log.Info("updating data points", zap.Int("count", len(args.DataToUpdate)))
	return t.facts.UpdateData(args.DataToUpdate), nil
}

type scrapeArgs struct {
	URL string `json:"url"`
}

func (t *Toolset) scrape(ctx context.Context, raw json.RawMessage) (string, error) {
	var args scrapeArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("decode scrape arguments: %w", err)
	}
	text := t.scraper.Scrape(ctx, args.URL)
	t.facts.RecordLink(args.URL)
	if strings.TrimSpace(text) == "" {
		return fmt.Sprintf("no content could be retrieved from %s", args.URL), nil
	}
	return text, nil
}

type searchArgs struct {
	Query      string `json:"query"`
	EntityName string `json:"entity_name"`
}

func (t *Toolset) search(ctx context.Context, raw json.RawMessage) (string, error) {
	var args searchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("decode search arguments: %w", err)
	}

	result, err := t.searcher.Search(ctx, args.Query)
	if err != nil {
		t.log.Warn("search failed, returning empty findings",
			zap.String("query", args.Query),
			zap.Error(err),
		)
		return emptyFindings, nil
	}

	prompt := fmt.Sprintf(extractionPromptFormat,
		args.Query,
		search.FormatResults(result),
		args.EntityName,
		strings.Join(t.facts.PendingNames(), ", "),
	)

	resp, err := t.chat.CreateChatCompletion(ctx, models.ChatCompletionRequest{
		Model:    t.model,
		Messages: []models.ChatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil || len(resp.Choices) == 0 {
		t.log.Warn("search extraction failed, returning empty findings",
			zap.String("query", args.Query),
			zap.Error(err),
		)
		return emptyFindings, nil
	}

	return resp.Choices[0].Message.Content, nil
}
