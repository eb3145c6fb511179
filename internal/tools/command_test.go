package tools

import (
	"strings"
	"testing"
)

func TestExtractOsascriptScript(t *testing.T) {
	script, err := extractOsascriptScript([]string{"-e", "line one", "-e", "line two", "--", "arg"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if script != "line one\nline two" {
		t.Errorf("script = %q", script)
	}
}

func TestExtractOsascriptScriptRejectsFlags(t *testing.T) {
	if _, err := extractOsascriptScript([]string{"-l", "JavaScript", "-e", "x"}); err == nil {
		t.Error("accepted non -e flag")
	}
	if _, err := extractOsascriptScript([]string{"-e"}); err == nil {
		t.Error("accepted dangling -e")
	}
}

func TestAssertSafeOsascript(t *testing.T) {
	safe := []string{"-e", `tell application "Reminders"`, "-e", "get name of lists", "-e", "end tell"}
	if err := assertSafeOsascript(safe); err != nil {
		t.Errorf("safe script rejected: %v", err)
	}

	cases := map[string][]string{
		"empty":           {"--", "arg"},
		"shell escape":    {"-e", `tell application "Reminders" to do shell script "rm -rf /"`},
		"wrong app":       {"-e", `tell application "Finder" to get windows`},
		"oversize script": {"-e", `tell application "Reminders" to ` + strings.Repeat("x", maxScriptLength)},
	}
	for name, args := range cases {
		if err := assertSafeOsascript(args); err == nil {
			t.Errorf("%s: unsafe script accepted", name)
		}
	}
}

func TestQueryToRegexp(t *testing.T) {
	re, err := queryToRegexp("rep*.md")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !re.MatchString("report.md") {
		t.Error("wildcard did not match report.md")
	}
	if !re.MatchString("REPORT.MD") {
		t.Error("match is not case-insensitive")
	}
	if re.MatchString("report.txt") {
		t.Error("dot was treated as a wildcard")
	}

	re, err = queryToRegexp("file?.go")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !re.MatchString("file1.go") {
		t.Error("? did not match a single character")
	}
}
