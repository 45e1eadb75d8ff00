package agent

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/entityscout/entityscout/internal/config"
	"github.com/entityscout/entityscout/internal/models"
)

// staticCounter reports the same token estimate for any text.
type staticCounter int

func (s staticCounter) Count(string) int { return int(s) }

func historyOfLength(n int) []models.ChatMessage {
	history := []models.ChatMessage{{Role: "user", Content: "research Grafo Technologies"}}
	for i := 1; i < n; i++ {
		role := "assistant"
		if i%2 == 0 {
			role = "tool"
		}
		history = append(history, models.ChatMessage{Role: role, Content: fmt.Sprintf("message %d", i)})
	}
	return history
}

func newTestCompactor(chat ChatCompleter, counter TokenCounter) *Compactor {
	c := NewCompactor(chat, "gpt-4o", "gpt-4o-mini", config.AgentConfig{})
	c.counter = counter
	return c
}

func TestCompactIdentityUnderThresholds(t *testing.T) {
	chat := &scriptedChat{}
	c := newTestCompactor(chat, staticCounter(10000))

	history := historyOfLength(24)
	got := c.Compact(context.Background(), history)

	if !reflect.DeepEqual(got, history) {
		t.Fatal("expected history to be returned unchanged")
	}
	if chat.calls != 0 {
		t.Errorf("expected no summarization request, got %d calls", chat.calls)
	}
}

func TestCompactShapeOnMessageCountTrigger(t *testing.T) {
	chat := &scriptedChat{responses: []*models.ChatCompletionResponse{
		stopResponse("visited the homepage and the about page"),
	}}
	c := newTestCompactor(chat, staticCounter(0))

	history := historyOfLength(30)
	got := c.Compact(context.Background(), history)

	if len(got) != 13 {
		t.Fatalf("expected 13 messages after compaction, got %d", len(got))
	}
	if got[0].Role != "system" {
		t.Errorf("expected system role on instruction message, got %q", got[0].Role)
	}
	if !strings.Contains(got[0].Content, history[0].Content) {
		t.Errorf("instruction message should contain the original text: %q", got[0].Content)
	}
	if !strings.Contains(got[0].Content, "visited the homepage") {
		t.Errorf("instruction message should contain the summary: %q", got[0].Content)
	}
	if !reflect.DeepEqual(got[1:], history[len(history)-12:]) {
		t.Error("expected the most recent 12 messages to be retained verbatim")
	}

	// The summarization prompt covers only the early messages, without the
	// retained window.
	summaryPrompt := chat.requests[0].Messages[0].Content
	if !strings.Contains(summaryPrompt, "message 17") {
		t.Errorf("summary prompt missing early message: %q", summaryPrompt)
	}
	if strings.Contains(summaryPrompt, "message 29") {
		t.Errorf("summary prompt should not contain retained messages: %q", summaryPrompt)
	}
}

func TestCompactTokenTriggerIndependentOfCount(t *testing.T) {
	chat := &scriptedChat{responses: []*models.ChatCompletionResponse{
		stopResponse("short summary"),
	}}
	c := newTestCompactor(chat, staticCounter(20000))

	history := historyOfLength(5)
	got := c.Compact(context.Background(), history)

	if len(got) != len(history)+1 {
		t.Fatalf("expected %d messages, got %d", len(history)+1, len(got))
	}
	if got[0].Role != "system" {
		t.Errorf("expected system instruction message first, got %q", got[0].Role)
	}
}

func TestCompactSummarizerFailureKeepsHistory(t *testing.T) {
	chat := &scriptedChat{responses: []*models.ChatCompletionResponse{nil}}
	c := newTestCompactor(chat, staticCounter(0))

	history := historyOfLength(30)
	got := c.Compact(context.Background(), history)

	if !reflect.DeepEqual(got, history) {
		t.Fatal("expected unchanged history when summarization fails")
	}
	if chat.calls != 1 {
		t.Errorf("expected exactly one summarization attempt, got %d", chat.calls)
	}
}
