package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(map[string]any{"age": 45, "gender": "F", "medico": "Dr. Paz"}, "  Glucosa: 180 mg/dl \n")

	for _, want := range []string{
		"PACIENTE: 45 años, F",
		"medico: Dr. Paz",
		"RESULTADOS:\nGlucosa: 180 mg/dl\n",
		`"suspicious_findings"`,
		`"urgency_level"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptWithoutPatientInfo(t *testing.T) {
	prompt := BuildPrompt(nil, "TSH: 2 mUI/L")
	if !strings.Contains(prompt, "PACIENTE: N/A años, N/A") {
		t.Fatalf("expected N/A placeholders:\n%s", prompt)
	}

	prompt = BuildPrompt(map[string]any{"age": nil, "gender": " "}, "TSH: 2 mUI/L")
	if !strings.Contains(prompt, "PACIENTE: N/A años, N/A") {
		t.Fatalf("expected N/A placeholders for empty values:\n%s", prompt)
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
	o, err := NewOpenAI(OpenAIConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Model() != "gpt-4o" {
		t.Fatalf("unexpected default model %q", o.Model())
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var got struct {
		Model          string `json:"model"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"summary\": \"ok\"}"}}]
		}`)
	}))
	defer srv.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("new openai: %v", err)
	}
	reply, err := o.Generate(context.Background(), "hola")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply != `{"summary": "ok"}` {
		t.Fatalf("unexpected reply %q", reply)
	}
	if got.Model != "gpt-4o" || got.ResponseFormat.Type != "json_object" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "hola" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestOpenAIGenerateErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.Header.Get("Authorization"), "bad") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error": {"message": "invalid key", "type": "invalid_request_error"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id": "x", "object": "chat.completion", "choices": []}`)
	}))
	defer srv.Close()

	for _, key := range []string{"bad-key", "good-key"} {
		o, err := NewOpenAI(OpenAIConfig{APIKey: key, BaseURL: srv.URL})
		if err != nil {
			t.Fatalf("new openai: %v", err)
		}
		if _, err := o.Generate(context.Background(), "hola"); err == nil {
			t.Errorf("key %s: expected error", key)
		}
	}
}

func TestNewGeminiValidates(t *testing.T) {
	ctx := context.Background()
	if _, err := NewGemini(ctx, GeminiConfig{Model: "gemini-2.0-flash"}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := NewGemini(ctx, GeminiConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error without model")
	}
}

func TestGeminiGenerate(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"summary\": \"ok\"}"}]}}]}`)
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "k", Model: "gemini-2.0-flash", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new gemini: %v", err)
	}
	reply, err := g.Generate(context.Background(), "hola")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply != `{"summary": "ok"}` {
		t.Fatalf("unexpected reply %q", reply)
	}
	if !strings.HasSuffix(path, "models/gemini-2.0-flash:generateContent") {
		t.Fatalf("unexpected path %q", path)
	}
}
