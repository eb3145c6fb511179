package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const maxWebFetchChars = 50_000

// WebFetchTool fetches a URL and converts its HTML content to markdown.
type WebFetchTool struct {
	client *http.Client
}

// NewWebFetch creates the web_fetch tool.
func NewWebFetch() *WebFetchTool {
	return &WebFetchTool{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *WebFetchTool) Name() string { return "web_fetch" }
func (w *WebFetchTool) Description() string {
	return "Fetch a URL and return its content as markdown"
}
func (w *WebFetchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {"type": "string", "description": "The URL to fetch (http or https)"}
		},
		"required": ["url"]
	}`)
}

func (w *WebFetchTool) Execute(ctx context.Context, input map[string]any, _ Context) (any, error) {
	var params struct {
		URL string `json:"url"`
	}
	if err := decodeInput(input, &params, false); err != nil {
		return nil, err
	}
	if params.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(params.URL, "http://") && !strings.HasPrefix(params.URL, "https://") {
		return nil, fmt.Errorf("url must be http or https")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, params.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Valet/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}

	truncated := false
	if len(md) > maxWebFetchChars {
		md = md[:maxWebFetchChars]
		truncated = true
	}
	return map[string]any{
		"url":       params.URL,
		"content":   md,
		"truncated": truncated,
	}, nil
}
