// Package openai implements llm.Provider over the OpenAI chat completions
// API. Ollama exposes the same API surface, so both configured providers are
// served by this client with different base URLs.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/user/valet/pkg/llm"
)

const ollamaDefaultBaseURL = "http://localhost:11434/v1"

// Client implements llm.Provider for OpenAI-compatible endpoints.
type Client struct {
	api  openai.Client
	name string
}

// New creates a client from the provider configuration. An Ollama provider
// without an explicit base URL targets the local Ollama daemon.
func New(cfg *llm.Config) *Client {
	var opts []option.RequestOption
	baseURL := cfg.BaseURL
	if baseURL == "" && cfg.Provider == "ollama" {
		baseURL = ollamaDefaultBaseURL
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &Client{api: openai.NewClient(opts...), name: cfg.Provider}
}

// Name returns the configured provider name.
func (c *Client) Name() string { return c.name }

// GenerateObject issues one chat completion constrained to the request's
// JSON schema and returns the raw object.
func (c *Client) GenerateObject(ctx context.Context, req *llm.ObjectRequest) (json.RawMessage, error) {
	var schema map[string]any
	if err := json.Unmarshal(req.Schema, &schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: buildMessages(req.System, req.Messages),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: no choices in response")
	}
	return json.RawMessage(resp.Choices[0].Message.Content), nil
}

// StreamText issues one streaming chat completion, forwarding every content
// delta to onDelta in arrival order.
func (c *Client) StreamText(ctx context.Context, req *llm.TextRequest, onDelta func(string)) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: buildMessages(req.System, req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	stream := c.api.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("stream completion: %w", err)
	}
	return sb.String(), nil
}

func buildMessages(system string, msgs []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
