package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/neoglyph/rippley/chat"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var gotAuth string
	var gotReq struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  hi there  "}},
			},
		})
	}))
	defer srv.Close()

	client := chat.NewWithConfig(chat.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})

	out, err := client.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete failed with %q", err)
	}

	if out != "hi there" {
		t.Fatalf("completion should be %q; is %q", "hi there", out)
	}

	if gotAuth != "Bearer test-key" {
		t.Fatalf("Authorization header should be %q; is %q", "Bearer test-key", gotAuth)
	}

	if len(gotReq.Messages) != 2 {
		t.Fatalf("request should contain 2 messages; got %d", len(gotReq.Messages))
	}

	if gotReq.Messages[0].Role != "system" {
		t.Fatalf("first message should have role %q; has %q", "system", gotReq.Messages[0].Role)
	}

	if gotReq.Messages[1].Content != "hello" {
		t.Fatalf("user message should be %q; is %q", "hello", gotReq.Messages[1].Content)
	}
}

func TestOpenAIClient_CompleteWithSystem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Messages[0].Content != "You are a pirate." {
			t.Errorf("system message should be %q; is %q", "You are a pirate.", req.Messages[0].Content)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "arr"}},
			},
		})
	}))
	defer srv.Close()

	client := chat.NewWithConfig(chat.Config{APIKey: "test-key", BaseURL: srv.URL})

	out, err := client.CompleteWithSystem(context.Background(), "You are a pirate.", "hello")
	if err != nil {
		t.Fatalf("CompleteWithSystem failed with %q", err)
	}

	if out != "arr" {
		t.Fatalf("completion should be %q; is %q", "arr", out)
	}
}

func TestOpenAIClient_noAPIKey(t *testing.T) {
	client := chat.New("")

	if _, err := client.Complete(context.Background(), "hello"); !errors.Is(err, chat.ErrNoAPIKey) {
		t.Fatalf("Complete should fail with %q; got %q", chat.ErrNoAPIKey, err)
	}
}

func TestOpenAIClient_apiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded"},
		})
	}))
	defer srv.Close()

	client := chat.NewWithConfig(chat.Config{APIKey: "test-key", BaseURL: srv.URL})

	if _, err := client.Complete(context.Background(), "hello"); err == nil || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("Complete should fail with an error containing %q; got %q", "model overloaded", err)
	}
}

func TestOpenAIClient_httpError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := chat.NewWithConfig(chat.Config{APIKey: "test-key", BaseURL: srv.URL})

	if _, err := client.Complete(context.Background(), "hello"); err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("Complete should fail with an error containing %q; got %q", "status 500", err)
	}
}
