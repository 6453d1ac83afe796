package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateSendsNonStreamingRequest(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"response":"  Sehr geehrte Damen und Herren  "}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "llama2", time.Second)
	text, err := c.Generate(context.Background(), "prompt", GenerateOptions{System: "sys", Temperature: 0.7, MaxTokens: 64})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Sehr geehrte Damen und Herren" {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Stream || got.Model != "llama2" || got.System != "sys" {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Options["num_predict"].(float64) != 64 {
		t.Fatalf("expected num_predict, got %v", got.Options)
	}
}

func TestGenerateReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := New(srv.URL, "x", time.Second).Generate(context.Background(), "p", GenerateOptions{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestListModelsAndAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"llama2:latest"},{"name":"mistral"}]}`))
	}))
	c := New(srv.URL, "llama2", time.Second)
	models, err := c.ListModels(context.Background())
	if err != nil || len(models) != 2 || models[0] != "llama2:latest" {
		t.Fatalf("unexpected models %v %v", models, err)
	}
	srv.Close()
	if c.Available(context.Background()) {
		t.Fatal("expected unavailable after shutdown")
	}
}

func TestExtractJSONObject(t *testing.T) {
	got, ok := ExtractJSONObject("Antwort: {\"type\": \"completed\", \"x\": {\"y\": 1}} fertig")
	if !ok || got != `{"type": "completed", "x": {"y": 1}}` {
		t.Fatalf("unexpected extraction %q", got)
	}
	if _, ok := ExtractJSONObject("no json here"); ok {
		t.Fatal("expected no match")
	}
}

func TestStripThinkBlocks(t *testing.T) {
	if got := StripThinkBlocks("<think>hmm</think> {\"a\":1}"); got != `{"a":1}` {
		t.Fatalf("unexpected %q", got)
	}
	if got := StripThinkBlocks("answer <think>unclosed"); got != "answer" {
		t.Fatalf("unexpected %q", got)
	}
}
