package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func ollamaServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/generate":
			var req ollamaRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("Bad request body: %v", err)
			}
			if req.Stream {
				t.Error("Expected non-streaming request")
			}
			_ = json.NewEncoder(w).Encode(ollamaResponse{
				Model:           req.Model,
				Response:        reply,
				Done:            true,
				PromptEvalCount: 10,
				EvalCount:       20,
			})
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
}

func TestOllamaProvider_Summarize_Success(t *testing.T) {
	server := ollamaServer(t, "Ice cream buyers always buy candy (R1.1).")
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5, StrictRefs: true})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	report := testReport()
	resp, err := provider.Summarize(context.Background(), SummarizeRequest{Report: report, AllowedRefs: AllowedRefs(report)})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if len(resp.CitedRefs) != 1 || resp.CitedRefs[0] != "R1.1" {
		t.Errorf("Unexpected cited refs: %v", resp.CitedRefs)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("Unexpected token usage: %d", resp.TokensUsed)
	}
	if resp.Model != "llama3.1" {
		t.Errorf("Unexpected model: %s", resp.Model)
	}
}

func TestOllamaProvider_Summarize_ReferenceLeak(t *testing.T) {
	server := ollamaServer(t, "R1.0 is interesting.")
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5, StrictRefs: true})

	report := testReport()
	_, err := provider.Summarize(context.Background(), SummarizeRequest{Report: report, AllowedRefs: AllowedRefs(report)})
	if !errors.Is(err, ErrReferenceLeak) {
		t.Fatalf("Expected ErrReferenceLeak, got %v", err)
	}
}

func TestOllamaProvider_Summarize_LenientRefs(t *testing.T) {
	server := ollamaServer(t, "R1.0 is interesting.")
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})

	resp, err := provider.Summarize(context.Background(), SummarizeRequest{Report: testReport()})
	if err != nil {
		t.Fatalf("Expected no error without strict refs, got %v", err)
	}
	if len(resp.CitedRefs) != 1 {
		t.Errorf("Expected cited refs still recorded, got %v", resp.CitedRefs)
	}
}

func TestOllamaProvider_Summarize_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})
	_, err := provider.Summarize(context.Background(), SummarizeRequest{Report: testReport()})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("Expected API error message, got %v", err)
	}
}

func TestOllamaProvider_Summarize_NoModel(t *testing.T) {
	provider, _ := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := provider.Summarize(context.Background(), SummarizeRequest{}); err == nil {
		t.Error("Expected error when no model is configured")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := ollamaServer(t, "")
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL + "/"})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}

	down, _ := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1", Timeout: 1})
	if down.IsAvailable(context.Background()) {
		t.Error("Expected unreachable provider to be unavailable")
	}
}
