package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/entityscout/entityscout/internal/config"
	"github.com/entityscout/entityscout/internal/models"
	"github.com/entityscout/entityscout/pkg/logger"
)

const summaryPromptFormat = `Conversation History:
%s

-----

Above is the conversation history between the user and the AI, including actions the AI has already taken.
Please summarize the past actions taken so far, highlight any key information learned, and mention tasks that have been completed.
Remove any redundant information and keep the summary concise. Remove scraped content from the summary.

SUMMARY:`

// TokenCounter estimates how many tokens a piece of text costs.
type TokenCounter interface {
	Count(text string) int
}

// tiktokenCounter resolves the encoding for the active model lazily. Models
// without a registered tiktoken encoding fall back to the cl100k_base
// reference encoding; if no encoding can be loaded at all the counter uses a
// bytes/4 heuristic so compaction keeps working offline.
type tiktokenCounter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

func (t *tiktokenCounter) Count(text string) int {
	t.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(t.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err == nil {
			t.enc = enc
		}
	})
	if t.enc == nil {
		return len(text) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Compactor keeps a growing conversation inside the context budget. When the
// history exceeds either the message-count or the token threshold, everything
// before the retained window is summarized by one extra model call and the
// summary is folded into the instruction message. A failed summarization
// leaves the history untouched; compaction must never abort the main loop.
type Compactor struct {
	chat         ChatCompleter
	summaryModel string
	maxMessages  int
	maxTokens    int
	retainRecent int
	counter      TokenCounter
	log          *zap.Logger
}

// NewCompactor builds a compactor for the given active model. The summary
// request goes to summaryModel, typically a cheaper one.
func NewCompactor(chat ChatCompleter, model, summaryModel string, cfg config.AgentConfig) *Compactor {
	maxMessages := cfg.MaxMessages
	if maxMessages <= 0 {
		maxMessages = 24
	}
	maxTokens := cfg.MaxHistoryTokens
	if maxTokens <= 0 {
		maxTokens = 10000
	}
	retain := cfg.RetainRecent
	if retain <= 0 {
		retain = 12
	}
	return &Compactor{
		chat:         chat,
		summaryModel: summaryModel,
		maxMessages:  maxMessages,
		maxTokens:    maxTokens,
		retainRecent: retain,
		counter:      &tiktokenCounter{model: model},
		log:          logger.Named("compactor"),
	}
}

// Compact returns the history unchanged while it fits the budget. Once either
// trigger fires, it returns [updated instruction message] + [most recent
// retainRecent messages]. On summarization failure the input is returned
// as-is.
func (c *Compactor) Compact(ctx context.Context, history []models.ChatMessage) []models.ChatMessage {
	if len(history) == 0 {
		return history
	}
	if len(history) <= c.maxMessages && c.counter.Count(serializeMessages(history)) <= c.maxTokens {
		return history
	}

	cut := len(history) - c.retainRecent
	if cut < 0 {
		cut = 0
	}
	early := history[:cut]
	retained := history[cut:]

	prompt := fmt.Sprintf(summaryPromptFormat, serializeMessages(early))
	temperature := 0.0
	resp, err := c.chat.CreateChatCompletion(ctx, models.ChatCompletionRequest{
		Model:       c.summaryModel,
		Messages:    []models.ChatMessage{{Role: "user", Content: prompt}},
		Temperature: &temperature,
	})
	if err != nil {
		c.log.Warn("error while summarizing past messages, keeping full history", zap.Error(err))
		return history
	}
	if len(resp.Choices) == 0 {
		c.log.Warn("summary response has no choices, keeping full history")
		return history
	}
	summary := resp.Choices[0].Message.Content

	updated := models.ChatMessage{
		Role:    "system",
		Content: fmt.Sprintf("%s; Here is a summary of past actions taken so far: %s", history[0].Content, summary),
	}

	compacted := make([]models.ChatMessage, 0, 1+len(retained))
	compacted = append(compacted, updated)
	compacted = append(compacted, retained...)

	c.log.Info("history compacted",
		zap.Int("before", len(history)),
		zap.Int("after", len(compacted)),
		zap.Int("summarized", len(early)),
	)
	return compacted
}

// serializeMessages renders the history for token counting and for the
// summary prompt.
func serializeMessages(history []models.ChatMessage) string {
	encoded, err := json.Marshal(history)
	if err != nil {
		return fmt.Sprintf("%v", history)
	}
	return string(encoded)
}
