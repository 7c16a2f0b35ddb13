package openai_provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/helpers"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

var (
	ErrRefused      = errors.New("model refused the request")
	ErrEmptyContent = errors.New("model returned no content")
)

// Client calls the chat completions API with a JSON schema response format.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *helpers.HTTPClient
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaFormat `json:"json_schema"`
}

type request struct {
	Model          string         `json:"model"`
	Messages       []Message      `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewOpenAIClient creates a new OpenAI client. Empty baseURL and model use
// the public endpoint and gpt-4o-mini.
func NewOpenAIClient(apiKey, baseURL, model string, httpClient *helpers.HTTPClient) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = helpers.NewHTTPClient(0, 1, 0)
	}
	return &Client{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), model: model, http: httpClient}
}

// ParseRecord asks the model for one JSON object matching req.Schema and
// returns the raw content.
func (c *Client) ParseRecord(ctx context.Context, req core.ParseRequest) (json.RawMessage, error) {
	body := request{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: req.Instructions},
			{Role: "user", Content: req.PageText},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxOutputTokens,
		ResponseFormat: responseFormat{
			Type:       "json_schema",
			JSONSchema: jsonSchemaFormat{Name: req.SchemaName, Schema: req.Schema},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var resp response
	if err := c.http.DoJSON(ctx, "POST", c.baseURL+"/chat/completions", headers, body, &resp); err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyContent
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("%w: %s", ErrRefused, choice.Message.Refusal)
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if choice.FinishReason == "length" {
		return nil, fmt.Errorf("model output truncated at max tokens")
	}
	return json.RawMessage(content), nil
}
