package hook

import (
	"bytes"
	"strings"
	"testing"

	"github.com/irl-llc/impressionism/internal/policy"
)

func TestParsePayload(t *testing.T) {
	raw := `{"session_id":"s1","cwd":"/ws","hook_event_name":"UserPromptSubmit","user_prompt":"hello","extra_field_ignored":true}`
	p, err := ParsePayload(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if p.SessionID != "s1" || p.Cwd != "/ws" || p.UserPrompt != "hello" {
		t.Fatalf("ParsePayload() = %+v", p)
	}
}

func TestParsePayloadEmptyStdin(t *testing.T) {
	p, err := ParsePayload(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if p.SessionID != "" {
		t.Fatalf("ParsePayload(empty) = %+v, want zero value", p)
	}
}

func TestNormalizeEvent(t *testing.T) {
	cases := map[string]policy.HookEvent{
		"SessionStart":     policy.EventSessionStart,
		"user_prompt":      policy.EventUserPrompt,
		"UserPromptSubmit": policy.EventUserPrompt,
		"PostToolUse":      policy.EventPostToolUse,
		"stop":             policy.EventStop,
		"Stop":             policy.EventStop,
	}
	for in, want := range cases {
		got, ok := NormalizeEvent(in)
		if !ok || got != want {
			t.Errorf("NormalizeEvent(%q) = %q, %v, want %q, true", in, got, ok, want)
		}
	}
	if _, ok := NormalizeEvent("nonsense"); ok {
		t.Fatalf("NormalizeEvent(nonsense) should fail")
	}
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, "UserPromptSubmit", "hello"); err != nil {
		t.Fatalf("WriteResponse() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"additionalContext":"hello"`) {
		t.Fatalf("WriteResponse() output = %q", buf.String())
	}
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEmpty(&buf); err != nil {
		t.Fatalf("WriteEmpty() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "{}" {
		t.Fatalf("WriteEmpty() output = %q, want {}", buf.String())
	}
}
