package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/upb/ai-product-council/services/providers"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc, key string) (*OpenAIAdapter, *providers.Credential) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cred := providers.NewCredential(key)
	adapter := NewOpenAIAdapter(providers.ProviderConfig{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	}, cred)
	return adapter, cred
}

func TestNewOpenAIAdapter_Defaults(t *testing.T) {
	adapter := NewOpenAIAdapter(providers.ProviderConfig{}, nil)

	if adapter.Name() != "openai" {
		t.Errorf("Name() = %s, want openai", adapter.Name())
	}
	if adapter.config.Model != "gpt-3.5-turbo" {
		t.Errorf("Model = %s, want gpt-3.5-turbo", adapter.config.Model)
	}
	if adapter.config.MaxTokens != 500 || adapter.config.Temperature != 0.3 {
		t.Errorf("defaults = %+v", adapter.config)
	}
	if adapter.config.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", adapter.config.Timeout)
	}
	if adapter.Available() {
		t.Error("adapter without key should not be available")
	}
}

func TestOpenAIAdapter_Complete(t *testing.T) {
	var gotBody map[string]interface{}
	var gotAuth string

	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-3.5-turbo",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"analysis\":\"ok\"}"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}, "sk-test")

	resp, err := adapter.Complete(context.Background(), &providers.CompletionRequest{
		System: "You are a product manager.",
		Prompt: "Analyze this idea",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if resp.Content != `{"analysis":"ok"}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Provider != "openai" || resp.Usage.TotalTokens != 17 {
		t.Errorf("response = %+v", resp)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", gotAuth)
	}
	if gotBody["model"] != "gpt-3.5-turbo" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["max_tokens"] != float64(500) || gotBody["temperature"] != 0.3 {
		t.Errorf("max_tokens/temperature = %v/%v", gotBody["max_tokens"], gotBody["temperature"])
	}
	messages, _ := gotBody["messages"].([]interface{})
	if len(messages) != 2 {
		t.Errorf("messages = %d, want 2", len(messages))
	}
}

func TestOpenAIAdapter_Complete_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind providers.FailureKind
	}{
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`,
			wantKind: providers.KindRateLimited,
		},
		{
			name:     "quota exceeded",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`,
			wantKind: providers.KindQuotaExceeded,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `{"error":{"message":"internal","type":"server_error"}}`,
			wantKind: providers.KindConnection,
		},
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			body:     `{"error":{"message":"invalid messages","type":"invalid_request_error"}}`,
			wantKind: providers.KindInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, "sk-test")

			_, err := adapter.Complete(context.Background(), &providers.CompletionRequest{Prompt: "hi"})
			if err == nil {
				t.Fatal("Complete() expected error")
			}

			var provErr *providers.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("error = %T, want *providers.ProviderError", err)
			}
			if provErr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", provErr.Kind, tt.wantKind)
			}
			if provErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", provErr.StatusCode, tt.status)
			}
		})
	}
}

func TestOpenAIAdapter_Complete_NoCredential(t *testing.T) {
	called := false
	adapter, cred := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, "")

	_, err := adapter.Complete(context.Background(), &providers.CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, ErrCredentialMissing) {
		t.Errorf("error = %v, want ErrCredentialMissing", err)
	}
	if called {
		t.Error("no request should be sent without a key")
	}

	cred.Set("sk-late")
	if !adapter.Available() {
		t.Error("adapter should become available once a key is set")
	}
}

func TestOpenAIAdapter_Complete_Timeout(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, "sk-test")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := adapter.Complete(ctx, &providers.CompletionRequest{Prompt: "hi"})
	if providers.KindOf(err) != providers.KindTimeout {
		t.Errorf("KindOf() = %q, want timeout (err = %v)", providers.KindOf(err), err)
	}
}
