package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/entityscout/entityscout/internal/models"
)

func newTestClient(baseURL string) *Client {
	return &Client{
		baseURL:        baseURL,
		model:          "gpt-4o",
		maxAttempts:    3,
		initialBackoff: time.Millisecond,
		maxBackoff:     5 * time.Millisecond,
		client:         &http.Client{Timeout: 5 * time.Second},
		log:            zap.NewNop(),
	}
}

func simpleRequest() models.ChatCompletionRequest {
	return models.ChatCompletionRequest{
		Messages: []models.ChatMessage{{Role: "user", Content: "hello"}},
	}
}

func TestRetryBudgetExhausted(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	resp, err := c.CreateChatCompletion(context.Background(), simpleRequest())
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if resp != nil {
		t.Errorf("expected nil response, got %+v", resp)
	}
	if attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", attempts)
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	resp, err := c.CreateChatCompletion(context.Background(), simpleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
	if resp.Choices[0].Message.Content != "hi" {
		t.Errorf("unexpected content: %q", resp.Choices[0].Message.Content)
	}
}

func TestEmptyHistoryRejected(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.CreateChatCompletion(context.Background(), models.ChatCompletionRequest{}); err == nil {
		t.Fatal("expected an error for an empty history")
	}
	if attempts != 0 {
		t.Errorf("expected no HTTP attempts, got %d", attempts)
	}
}

func TestDefaultModelApplied(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotModel = req.Model
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.CreateChatCompletion(context.Background(), simpleRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotModel != "gpt-4o" {
		t.Errorf("expected default model to be applied, got %q", gotModel)
	}
}
