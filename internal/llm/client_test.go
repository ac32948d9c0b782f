package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragway/internal/domain"
	"github.com/kailas-cloud/ragway/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterRAGMetrics()
	os.Exit(m.Run())
}

type completionRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "llama3",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
		"usage": map[string]any{"prompt_tokens": 4, "completion_tokens": 8, "total_tokens": 12},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&Config{
		APIKey:      "test",
		BaseURL:     srv.URL + "/v1",
		Model:       "llama3",
		Temperature: 0.7,
		Logger:      zap.NewNop(),
	})
}

func TestInvoke(t *testing.T) {
	var got completionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionResponse("the answer"))
	})

	text, err := c.Invoke(context.Background(), "the question")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if text != "the answer" {
		t.Errorf("Invoke() = %q, want %q", text, "the answer")
	}
	if got.Model != "llama3" || got.Temperature != 0.7 {
		t.Errorf("request = %+v, want model llama3 at temperature 0.7", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "the question" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestInvokeProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"model not loaded"}`, http.StatusServiceUnavailable)
	})

	_, err := c.Invoke(context.Background(), "q")
	if !errors.Is(err, domain.ErrGenerationProviderError) {
		t.Fatalf("Invoke() error = %v, want ErrGenerationProviderError", err)
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("error %q is missing the provider detail", err.Error())
	}
}

func TestInvokeEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	_, err := c.Invoke(context.Background(), "q")
	if !errors.Is(err, domain.ErrGenerationProviderError) {
		t.Fatalf("Invoke() error = %v, want ErrGenerationProviderError", err)
	}
}

func TestInvokeStreamDeliversOrderedChunks(t *testing.T) {
	full := strings.Repeat("lorem ipsum dolor sit amet ", 8)
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionResponse(full))
	})

	ch, err := c.InvokeStream(context.Background(), "q")
	if err != nil {
		t.Fatalf("InvokeStream() error = %v", err)
	}

	var sb strings.Builder
	count := 0
	for chunk := range ch {
		sb.WriteString(chunk)
		count++
	}
	if sb.String() != full {
		t.Errorf("reassembled stream differs from the full response")
	}
	if count < 2 {
		t.Errorf("stream delivered %d chunks, want at least 2", count)
	}
}

func TestInvokeStreamErrorBeforeChannel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := c.InvokeStream(context.Background(), "q"); err == nil {
		t.Fatal("InvokeStream() error = nil, want provider error")
	}
}

func TestHealthCheck(t *testing.T) {
	var got completionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionResponse("pong"))
	})

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if got.MaxTokens != 1 {
		t.Errorf("health ping max_tokens = %d, want 1", got.MaxTokens)
	}
}

func TestHealthCheckDown(t *testing.T) {
	c := NewClient(&Config{BaseURL: "http://127.0.0.1:1/v1", Model: "llama3"})
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatal("HealthCheck() error = nil, want connection error")
	}
}
