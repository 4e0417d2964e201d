package main

import (
	"testing"

	"github.com/irl-llc/impressionism/internal/hook"
)

func TestRootCmdSubcommands(t *testing.T) {
	want := map[string]bool{"init": true, "index": true, "select": true, "log": true, "status": true}
	got := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for name := range want {
		if !got[name] {
			t.Errorf("rootCmd missing subcommand %q", name)
		}
	}
	if len(got) != len(want) {
		t.Errorf("rootCmd.Commands() = %v, want exactly %v", got, want)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	cases := []struct {
		name string
		vals []string
		want string
	}{
		{"first wins", []string{"a", "b"}, "a"},
		{"skips leading empties", []string{"", "", "c"}, "c"},
		{"all empty", []string{"", ""}, ""},
		{"no args", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := firstNonEmpty(tc.vals...); got != tc.want {
				t.Errorf("firstNonEmpty(%v) = %q, want %q", tc.vals, got, tc.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name          string
		event         string
		payload       hook.Payload
		wantRole      string
		wantEventType string
		wantToolName  string
		wantContent   string
	}{
		{
			name:          "user_prompt carries the prompt text",
			event:         "user_prompt",
			payload:       hook.Payload{UserPrompt: "hello"},
			wantRole:      "user",
			wantEventType: "user_prompt",
			wantContent:   "hello",
		},
		{
			name:          "post_tool_use carries tool name and JSON input",
			event:         "post_tool_use",
			payload:       hook.Payload{ToolName: "Bash", ToolInput: map[string]any{"cmd": "ls"}},
			wantRole:      "tool",
			wantEventType: "post_tool_use",
			wantToolName:  "Bash",
			wantContent:   `{"cmd":"ls"}`,
		},
		{
			name:          "session_start has no content",
			event:         "session_start",
			payload:       hook.Payload{},
			wantRole:      "assistant",
			wantEventType: "session_start",
		},
		{
			name:    "unrecognized event classifies to nothing",
			event:   "nonsense",
			payload: hook.Payload{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			role, eventType, toolName, content := classify(tc.event, tc.payload)
			if string(role) != tc.wantRole {
				t.Errorf("classify() role = %q, want %q", role, tc.wantRole)
			}
			if eventType != tc.wantEventType {
				t.Errorf("classify() eventType = %q, want %q", eventType, tc.wantEventType)
			}
			if tc.event == "user_prompt" && content != tc.payload.UserPrompt {
				t.Errorf("classify() content = %q, want %q", content, tc.payload.UserPrompt)
			}
			if toolName != tc.wantToolName {
				t.Errorf("classify() toolName = %q, want %q", toolName, tc.wantToolName)
			}
			if content != tc.wantContent {
				t.Errorf("classify() content = %q, want %q", content, tc.wantContent)
			}
		})
	}
}
