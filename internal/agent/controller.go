package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/entityscout/entityscout/internal/models"
	"github.com/entityscout/entityscout/pkg/logger"
)

// ChatCompleter issues a single chat completion request. chat.Client
// implements it; tests substitute scripted fakes.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req models.ChatCompletionRequest) (*models.ChatCompletionResponse, error)
}

// FactView is the read-only projection of the fact store used when building
// prompts. The core never mutates fact state directly; mutation happens only
// inside the update_data tool.
type FactView interface {
	PendingNames() []string
	ScrapedLinks() []string
}

// Observer receives every message appended to the conversation. Implementers
// may wire it to any observability backend.
type Observer interface {
	OnMessage(role, content string)
}

type logObserver struct {
	log *zap.Logger
}

func (o logObserver) OnMessage(role, content string) {
	o.log.Info("conversation message",
		zap.String("role", role),
		zap.String("content", content),
	)
}

type runState int

const (
	stateRunning runState = iota
	stateFinished
)

// Agent drives the model/tool interaction loop: it seeds the conversation,
// alternates between model turns and tool dispatch, compacts history each
// cycle, and stops when the model declares completion or a request fails.
type Agent struct {
	chat      ChatCompleter
	registry  *Registry
	compactor *Compactor
	facts     FactView
	observer  Observer
	log       *zap.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithObserver replaces the default log-backed message observer.
func WithObserver(o Observer) Option {
	return func(a *Agent) { a.observer = o }
}

// WithLogger overrides the agent's logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Agent) { a.log = log }
}

// New constructs an Agent.
func New(chat ChatCompleter, registry *Registry, compactor *Compactor, facts FactView, opts ...Option) *Agent {
	a := &Agent{
		chat:      chat,
		registry:  registry,
		compactor: compactor,
		facts:     facts,
		log:       logger.Named("agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.observer == nil {
		a.observer = logObserver{log: a.log}
	}
	return a
}

// WebsiteSearch researches the entity on a known website. It runs in
// plan-first mode with the scrape tool set and keeps scraping pages until the
// pending data points are found or the model gives up.
func (a *Agent) WebsiteSearch(ctx context.Context, entityName, website string) (string, error) {
	prompt := buildSitePrompt(entityName, website, a.facts.PendingNames())
	return a.run(ctx, siteSystemPrompt, prompt, ScrapeTools(), true)
}

// InternetSearch researches the entity on the open web with the search tool
// set and no planning step.
func (a *Agent) InternetSearch(ctx context.Context, entityName string) (string, error) {
	prompt := buildWebPrompt(entityName, a.facts.ScrapedLinks(), a.facts.PendingNames())
	return a.run(ctx, webSystemPrompt, prompt, SearchTools(), false)
}

// run is the conversation state machine. It returns the content of the final
// assistant message, or an error (and empty content) when the chat request
// fails or a tool contract is violated.
func (a *Agent) run(ctx context.Context, systemPrompt, prompt string, tools []models.ChatTool, planFirst bool) (string, error) {
	log := a.log.With(zap.String("run_id", uuid.NewString()))
	seed := strings.TrimSpace(systemPrompt) + " " + strings.TrimSpace(prompt)

	var history []models.ChatMessage
	if planFirst {
		planSeed := seed + " Let's think step by step, make a plan first"
		resp, err := a.chat.CreateChatCompletion(ctx, models.ChatCompletionRequest{
			Messages: []models.ChatMessage{{Role: "user", Content: planSeed}},
		})
		if err != nil {
			log.Warn("failed to get plan response", zap.Error(err))
			return "", fmt.Errorf("plan request: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("plan response has no choices")
		}
		history = []models.ChatMessage{
			{Role: "user", Content: seed},
			{Role: "assistant", Content: resp.Choices[0].Message.Content},
		}
	} else {
		history = []models.ChatMessage{{Role: "user", Content: seed}}
	}
	for _, m := range history {
		a.observe(m)
	}

	state := stateRunning
	var finalContent string

	for state == stateRunning {
		resp, err := a.chat.CreateChatCompletion(ctx, models.ChatCompletionRequest{
			Messages: history,
			Tools:    tools,
		})
		if err != nil {
			log.Warn("failed to get chat response, ending run", zap.Error(err))
			return "", fmt.Errorf("chat request: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat response has no choices")
		}
		choice := resp.Choices[0]

		assistant := models.ChatMessage{
			Role:      "assistant",
			Content:   choice.Message.Content,
			ToolCalls: choice.Message.ToolCalls,
		}
		history = append(history, assistant)
		a.observe(assistant)

		switch choice.FinishReason {
		case "tool_calls":
			// Tool calls run strictly in the order received, one at a time.
			for _, call := range choice.Message.ToolCalls {
				toolMsg, err := a.dispatch(ctx, call)
				if err != nil {
					log.Error("tool dispatch failed, aborting run",
						zap.String("tool", call.Function.Name),
						zap.Error(err),
					)
					return "", err
				}
				history = append(history, toolMsg)
				a.observe(toolMsg)
			}
		case "stop":
			state = stateFinished
			finalContent = choice.Message.Content
		}

		history = a.compactor.Compact(ctx, history)
	}

	return finalContent, nil
}

// dispatch decodes one tool call and runs its handler. Malformed argument
// payloads and undeclared tool names are fatal; they signal a protocol drift
// or a declaration/implementation mismatch, not a recoverable condition.
func (a *Agent) dispatch(ctx context.Context, call models.ToolCall) (models.ChatMessage, error) {
	name := call.Function.Name
	args := json.RawMessage(call.Function.Arguments)
	if !json.Valid(args) {
		return models.ChatMessage{}, fmt.Errorf("%w: tool %s", ErrBadToolArguments, name)
	}

	result, err := a.registry.Dispatch(ctx, name, args)
	if err != nil {
		return models.ChatMessage{}, err
	}

	return models.ChatMessage{
		Role:       "tool",
		ToolCallID: call.ID,
		Name:       name,
		Content:    result,
	}, nil
}

func (a *Agent) observe(m models.ChatMessage) {
	content := m.Content
	if m.Role == "assistant" && len(m.ToolCalls) > 0 {
		if encoded, err := json.Marshal(m.ToolCalls); err == nil {
			content = string(encoded)
		}
	}
	a.observer.OnMessage(m.Role, content)
}
