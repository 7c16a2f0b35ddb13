package openai_provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
)

func TestParseRecordRequestShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" {\"program_name\":\"UX\"} "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL+"/", "", nil)
	raw, err := c.ParseRecord(context.Background(), core.ParseRequest{
		Instructions:    "extract",
		PageText:        "URL: https://a\n\ntext",
		SchemaName:      "program_record",
		Schema:          json.RawMessage(`{"type":"object"}`),
		Temperature:     0,
		MaxOutputTokens: 900,
	})
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if string(raw) != `{"program_name":"UX"}` {
		t.Fatalf("unexpected content %s", raw)
	}

	if got["model"] != DefaultModel || got["temperature"] != float64(0) || got["max_tokens"] != float64(900) {
		t.Fatalf("unexpected request body %v", got)
	}
	format := got["response_format"].(map[string]any)
	schema := format["json_schema"].(map[string]any)
	if format["type"] != "json_schema" || schema["name"] != "program_record" {
		t.Fatalf("unexpected response_format %v", format)
	}
	msgs := got["messages"].([]any)
	if len(msgs) != 2 || msgs[0].(map[string]any)["role"] != "system" || msgs[1].(map[string]any)["content"] != "URL: https://a\n\ntext" {
		t.Fatalf("unexpected messages %v", msgs)
	}
}

func TestParseRecordFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"refusal", 200, `{"choices":[{"message":{"content":"","refusal":"no"}}]}`, ErrRefused},
		{"empty", 200, `{"choices":[{"message":{"content":"  "}}]}`, ErrEmptyContent},
		{"no choices", 200, `{"choices":[]}`, ErrEmptyContent},
		{"status", 500, `{"error":"boom"}`, nil},
		{"truncated", 200, `{"choices":[{"message":{"content":"{\"a\":"},"finish_reason":"length"}]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			_, err := NewOpenAIClient("k", srv.URL, "m", nil).ParseRecord(context.Background(), core.ParseRequest{})
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
