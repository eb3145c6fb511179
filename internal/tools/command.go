package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// The generic command tool runs without a shell and only against this
// allow-list.
var allowedCommands = map[string]string{
	"osascript": "/usr/bin/osascript",
}

const (
	maxCommandArgs      = 50
	maxCommandArgLength = 2_000
	maxCommandTimeoutMS = 5_000
	maxScriptLength     = 4_000
)

var remindersTargetRe = regexp.MustCompile(`(?i)tell\s+(application|app)\s+"reminders"`)

// CommandTool runs a tightly allow-listed command. In safe mode the only
// permitted command is osascript targeting the Reminders app.
type CommandTool struct{}

// NewCommand creates the command tool.
func NewCommand() *CommandTool { return &CommandTool{} }

func (c *CommandTool) Name() string { return "command" }
func (c *CommandTool) Description() string {
	return "Run a tightly allow-listed command without a shell (safe mode; currently only osascript for Reminders)"
}
func (c *CommandTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {"type": "string", "enum": ["osascript"], "description": "Allow-listed command name"},
			"args": {"type": "array", "items": {"type": "string"}, "description": "Command arguments"},
			"timeoutMs": {"type": "integer", "description": "Timeout in milliseconds (max 5000)"}
		},
		"required": ["command"],
		"additionalProperties": false
	}`)
}

func (c *CommandTool) Execute(ctx context.Context, input map[string]any, _ Context) (any, error) {
	var params struct {
		Command   string   `json:"command"`
		Args      []string `json:"args"`
		TimeoutMS int      `json:"timeoutMs"`
	}
	if err := decodeInput(input, &params, true); err != nil {
		return nil, err
	}

	binary, ok := allowedCommands[params.Command]
	if !ok {
		return nil, fmt.Errorf("command %q is not allow-listed", params.Command)
	}
	if len(params.Args) > maxCommandArgs {
		return nil, fmt.Errorf("too many arguments (max %d)", maxCommandArgs)
	}
	for _, arg := range params.Args {
		if len(arg) > maxCommandArgLength {
			return nil, fmt.Errorf("argument exceeds %d characters", maxCommandArgLength)
		}
	}
	if params.TimeoutMS < 0 || params.TimeoutMS > maxCommandTimeoutMS {
		return nil, fmt.Errorf("timeoutMs must be between 0 and %d", maxCommandTimeoutMS)
	}

	if params.Command == "osascript" {
		if err := assertSafeOsascript(params.Args); err != nil {
			return nil, err
		}
	}

	timeout := time.Duration(params.TimeoutMS) * time.Millisecond
	result, err := RunCommand(ctx, binary, params.Args, CommandOptions{Timeout: timeout})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"command":   params.Command,
		"args":      params.Args,
		"exitCode":  result.ExitCode,
		"stdout":    strings.TrimSpace(result.Stdout),
		"stderr":    strings.TrimSpace(result.Stderr),
		"timedOut":  result.TimedOut,
		"truncated": result.Truncated,
		"success":   result.ExitCode == 0 && !result.TimedOut,
	}, nil
}

// extractOsascriptScript collects the -e script lines preceding an optional
// "--" argv separator. Any other flag is rejected.
func extractOsascriptScript(args []string) (string, error) {
	var lines []string
	i := 0
	for i < len(args) {
		arg := args[i]
		if arg == "--" {
			break
		}
		if arg != "-e" {
			return "", fmt.Errorf("unsupported osascript flag: %s", arg)
		}
		if i+1 >= len(args) || args[i+1] == "" {
			return "", fmt.Errorf("missing script line after -e")
		}
		lines = append(lines, args[i+1])
		i += 2
	}
	return strings.Join(lines, "\n"), nil
}

func assertSafeOsascript(args []string) error {
	script, err := extractOsascriptScript(args)
	if err != nil {
		return err
	}
	if script == "" {
		return fmt.Errorf("osascript requires at least one -e script line")
	}
	if len(script) > maxScriptLength {
		return fmt.Errorf("osascript script exceeds %d characters", maxScriptLength)
	}
	if strings.Contains(strings.ToLower(script), "do shell script") {
		return fmt.Errorf("osascript scripts cannot use 'do shell script' in safe mode")
	}
	if !remindersTargetRe.MatchString(script) {
		return fmt.Errorf("osascript scripts must target the Reminders app in safe mode")
	}
	return nil
}
