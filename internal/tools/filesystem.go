package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/user/valet/internal/paths"
	"github.com/user/valet/internal/permissions"
)

const defaultSearchResults = 20

// SearchTool finds files and directories by name pattern under the agent
// home and allow-listed roots.
type SearchTool struct {
	perms *permissions.Checker
}

// NewSearch creates the search tool.
func NewSearch(perms *permissions.Checker) *SearchTool {
	return &SearchTool{perms: perms}
}

func (s *SearchTool) Name() string { return "search" }
func (s *SearchTool) Description() string {
	return "Search for files and directories by name pattern in the agent home and allow-listed paths only"
}
func (s *SearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Search query (filename pattern, * and ? wildcards supported)"},
			"maxResults": {"type": "integer", "description": "Maximum results to return (default: 20)"}
		},
		"required": ["query"]
	}`)
}

type searchResult struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Size     int64  `json:"size,omitempty"`
	Modified string `json:"modified"`
}

func (s *SearchTool) Execute(ctx context.Context, input map[string]any, _ Context) (any, error) {
	var params struct {
		Query      string `json:"query"`
		MaxResults int    `json:"maxResults"`
	}
	if err := decodeInput(input, &params, false); err != nil {
		return nil, err
	}
	if params.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if params.MaxResults <= 0 {
		params.MaxResults = defaultSearchResults
	}

	pattern, err := queryToRegexp(params.Query)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	var results []searchResult
	visited := map[string]bool{}
	for _, root := range s.perms.ReadableRoots() {
		if len(results) >= params.MaxResults {
			break
		}
		s.searchDirectory(ctx, root, pattern, &results, params.MaxResults, visited)
	}

	if len(results) == 0 {
		return map[string]any{
			"message": fmt.Sprintf("No files matching %q found in the agent home or allow-listed paths", params.Query),
			"results": []searchResult{},
		}, nil
	}
	return map[string]any{
		"message": fmt.Sprintf("Found %d result(s) matching %q", len(results), params.Query),
		"results": results,
	}, nil
}

func (s *SearchTool) searchDirectory(ctx context.Context, dir string, pattern *regexp.Regexp, results *[]searchResult, max int, visited map[string]bool) {
	if ctx.Err() != nil {
		return
	}
	real := dir
	if r, err := filepath.EvalSymlinks(dir); err == nil {
		real = r
	}
	if visited[real] {
		return
	}
	visited[real] = true

	if err := s.perms.AssertRead(dir); err != nil {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if len(*results) >= max {
			return
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || name == "node_modules" {
			continue
		}
		full := filepath.Join(dir, name)
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if pattern.MatchString(name) {
			res := searchResult{
				Path:     full,
				Name:     name,
				Type:     "file",
				Modified: info.ModTime().UTC().Format(time.RFC3339),
			}
			if entry.IsDir() {
				res.Type = "directory"
			} else {
				res.Size = info.Size()
			}
			*results = append(*results, res)
		}
		if entry.IsDir() && len(*results) < max {
			s.searchDirectory(ctx, full, pattern, results, max, visited)
		}
	}
}

// queryToRegexp turns a glob-ish query into a case-insensitive regexp:
// * matches any run, ? any single character, everything else literally.
func queryToRegexp(query string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("(?i)")
	for _, r := range query {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return regexp.Compile(sb.String())
}

// ReadFileTool reads a file's contents, subject to read permissions.
type ReadFileTool struct {
	perms *permissions.Checker
}

// NewReadFile creates the read tool.
func NewReadFile(perms *permissions.Checker) *ReadFileTool {
	return &ReadFileTool{perms: perms}
}

func (r *ReadFileTool) Name() string        { return "read" }
func (r *ReadFileTool) Description() string { return "Read the contents of a file" }
func (r *ReadFileTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Path to the file to read"},
			"maxLines": {"type": "integer", "description": "Maximum lines to read"}
		},
		"required": ["path"]
	}`)
}

func (r *ReadFileTool) Execute(_ context.Context, input map[string]any, _ Context) (any, error) {
	var params struct {
		Path     string `json:"path"`
		MaxLines int    `json:"maxLines"`
	}
	if err := decodeInput(input, &params, false); err != nil {
		return nil, err
	}
	if params.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	abs, err := filepath.Abs(paths.ExpandTilde(params.Path))
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if err := r.perms.AssertRead(abs); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	content := string(data)

	if params.MaxLines > 0 {
		lines := strings.Split(content, "\n")
		if len(lines) > params.MaxLines {
			return map[string]any{
				"path":      abs,
				"content":   strings.Join(lines[:params.MaxLines], "\n"),
				"truncated": true,
			}, nil
		}
	}
	return map[string]any{"path": abs, "content": content}, nil
}
