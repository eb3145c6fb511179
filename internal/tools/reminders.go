package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

func buildListRemindersScript() []string {
	return []string{
		"on run argv",
		fmt.Sprintf("set recordSep to character id %d", recordSepCharacterID),
		fmt.Sprintf("set fieldSep to character id %d", fieldSepCharacterID),
		`set targetListName to ""`,
		"if (count of argv) >= 1 then",
		"set targetListName to item 1 of argv",
		"end if",
		"set includeCompleted to false",
		"if (count of argv) >= 2 then",
		`set includeCompleted to (item 2 of argv) is "true"`,
		"end if",
		`tell application "Reminders"`,
		"set targetLists to lists",
		`if targetListName is not "" then`,
		"set targetLists to {list targetListName}",
		"end if",
		`set output to ""`,
		"repeat with L in targetLists",
		"set listName to name of L",
		`set output to output & "LIST" & fieldSep & listName & recordSep`,
		"repeat with R in reminders of L",
		"if includeCompleted or (completed of R is false) then",
		`set output to output & "REM" & fieldSep & listName & fieldSep & (name of R) & recordSep`,
		"end if",
		"end repeat",
		"end repeat",
		"end tell",
		"return output",
		"end run",
	}
}

type reminderList struct {
	Name      string   `json:"name"`
	Reminders []string `json:"reminders"`
}

func parseRemindersOutput(output string) []reminderList {
	byName := map[string]*reminderList{}
	var order []string
	ensure := func(name string) *reminderList {
		if l, ok := byName[name]; ok {
			return l
		}
		l := &reminderList{Name: name, Reminders: []string{}}
		byName[name] = l
		order = append(order, name)
		return l
	}

	for _, record := range splitRecords(output) {
		parts := strings.Split(record, fieldSep)
		switch parts[0] {
		case "LIST":
			if len(parts) >= 2 {
				ensure(parts[1])
			}
		case "REM":
			if len(parts) >= 3 {
				l := ensure(parts[1])
				if parts[2] != "" {
					l.Reminders = append(l.Reminders, parts[2])
				}
			}
		}
	}

	lists := make([]reminderList, 0, len(order))
	for _, name := range order {
		lists = append(lists, *byName[name])
	}
	return lists
}

func buildReminderListsScript() []string {
	return []string{
		"on run argv",
		fmt.Sprintf("set recordSep to character id %d", recordSepCharacterID),
		`tell application "Reminders"`,
		"set listNames to name of lists",
		"end tell",
		"set AppleScript's text item delimiters to recordSep",
		"return listNames as text",
		"end run",
	}
}

// RemindersListsTool lists Apple Reminders list names, cached for five
// minutes.
type RemindersListsTool struct {
	names *Cell[[]string]
}

// NewRemindersLists creates the reminders.lists tool.
func NewRemindersLists() *RemindersListsTool {
	return &RemindersListsTool{names: NewCell[[]string](listCacheTTL)}
}

func (t *RemindersListsTool) Name() string { return "reminders.lists" }
func (t *RemindersListsTool) Description() string {
	return "List available Apple Reminders lists (cached when possible). Use this when you need a list name."
}
func (t *RemindersListsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"refresh": {"type": "boolean", "description": "Force refresh lists instead of using cached data"}
		},
		"additionalProperties": false
	}`)
}

func (t *RemindersListsTool) Execute(ctx context.Context, input map[string]any, _ Context) (any, error) {
	var params struct {
		Refresh bool `json:"refresh"`
	}
	if err := decodeInput(input, &params, true); err != nil {
		return nil, err
	}

	if names, ok := t.names.Get(); ok && !params.Refresh {
		return map[string]any{"lists": names, "cached": true, "count": len(names)}, nil
	}

	result, err := runOsascript(ctx, buildReminderListsScript(), nil, "osascript failed to read Reminders lists")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, rec := range splitRecords(result.Stdout) {
		if name := strings.TrimSpace(rec); name != "" {
			names = append(names, name)
		}
	}
	t.names.Set(names)
	return map[string]any{"lists": names, "cached": false, "count": len(names)}, nil
}

// RemindersListTool reads reminders from Apple Reminders.
type RemindersListTool struct{}

// NewRemindersList creates the reminders.list tool.
func NewRemindersList() *RemindersListTool { return &RemindersListTool{} }

func (t *RemindersListTool) Name() string { return "reminders.list" }
func (t *RemindersListTool) Description() string {
	return "List reminders from Apple Reminders via AppleScript (read-only)"
}
func (t *RemindersListTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"listName": {"type": "string", "minLength": 1, "description": "Optional Reminders list name to filter by"},
			"includeCompleted": {"type": "boolean", "description": "Include completed reminders in the results (default: false)"}
		},
		"additionalProperties": false
	}`)
}

func (t *RemindersListTool) Execute(ctx context.Context, input map[string]any, _ Context) (any, error) {
	var params struct {
		ListName         string `json:"listName"`
		IncludeCompleted bool   `json:"includeCompleted"`
	}
	if err := decodeInput(input, &params, true); err != nil {
		return nil, err
	}

	includeArg := "false"
	if params.IncludeCompleted {
		includeArg = "true"
	}
	result, err := runOsascript(ctx, buildListRemindersScript(), []string{params.ListName, includeArg}, "osascript failed to read Reminders")
	if err != nil {
		return nil, err
	}

	var filtered any
	if params.ListName != "" {
		filtered = params.ListName
	}
	return map[string]any{
		"lists":            parseRemindersOutput(result.Stdout),
		"includeCompleted": params.IncludeCompleted,
		"filteredList":     filtered,
		"truncated":        result.Truncated,
	}, nil
}
