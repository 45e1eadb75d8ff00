package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/entityscout/entityscout/internal/models"
)

// ErrUnknownTool is returned when the model requests a tool that was declared
// but never registered. This is a contract mismatch between the declaration
// set and the registry, so the run aborts rather than skipping the call.
var ErrUnknownTool = errors.New("tool not found in dispatch table")

// ErrBadToolArguments is returned when a model-emitted argument payload does
// not parse as JSON.
var ErrBadToolArguments = errors.New("malformed tool arguments")

// Handler executes one tool call. Handlers return an error only for malformed
// arguments; execution failures (unreachable page, empty search) must degrade
// to result text so the conversation stays well-formed.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Registry maps tool names to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a tool name. Empty names and duplicate
// registrations are rejected.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if h == nil {
		return fmt.Errorf("handler for tool %s is nil", name)
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// Lookup fetches a handler by name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Dispatch runs the handler registered under name.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (string, error) {
	h, ok := r.handlers[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return h(ctx, args)
}

// ScrapeTools returns the declarations for site-scoped research:
// update_data plus scrape.
func ScrapeTools() []models.ChatTool {
	return toolSet(scrapeTool())
}

// SearchTools returns the declarations for open-web research:
// update_data plus search.
func SearchTools() []models.ChatTool {
	return toolSet(searchTool())
}

// toolSet pairs the always-present update_data declaration with the
// variant-specific tool. The two fixed external schemas differ only in that
// variant.
func toolSet(variant models.ChatTool) []models.ChatTool {
	return []models.ChatTool{updateDataTool(), variant}
}

func updateDataTool() models.ChatTool {
	return models.ChatTool{
		Type: "function",
		Function: models.FunctionDef{
			Name:        "update_data",
			Description: "Save data points found for later retrieval",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"data_to_update": map[string]interface{}{
						"type":        "array",
						"description": "The data points to update",
						"items": map[string]interface{}{
							"type":        "object",
							"description": "The data point to update, should follow specific JSON format: {'name': 'xxx', 'value': 'yyy', 'reference': 'url'}",
							"properties": map[string]interface{}{
								"name": map[string]interface{}{
									"type":        "string",
									"description": "The name of the data point",
								},
								"value": map[string]interface{}{
									"type":        "string",
									"description": "The value of the data point",
								},
								"reference": map[string]interface{}{
									"type":        "string",
									"description": "The reference URL of the data point",
								},
							},
							"required": []string{"name", "value", "reference"},
						},
					},
				},
				"required": []string{"data_to_update"},
			},
		},
	}
}

func scrapeTool() models.ChatTool {
	return models.ChatTool{
		Type: "function",
		Function: models.FunctionDef{
			Name:        "scrape",
			Description: "Scrape a URL for information",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"url": map[string]interface{}{
						"type":        "string",
						"description": "The URL of the website to scrape",
					},
				},
				"required": []string{"url"},
			},
		},
	}
}

func searchTool() models.ChatTool {
	return models.ChatTool{
		Type: "function",
		Function: models.FunctionDef{
			Name:        "search",
			Description: "Search the internet for information and related URLs",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The query to search, should be a semantic search query as we are using AI to search",
					},
					"entity_name": map[string]interface{}{
						"type":        "string",
						"description": "The name of the entity that we are researching about",
					},
				},
				"required": []string{"query", "entity_name"},
			},
		},
	}
}
