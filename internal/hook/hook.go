// Package hook implements the Hook Adapter (I): stdin JSON parsing, event
// kind normalization, and stdout JSON response rendering shared by the
// `select` and `log` CLI commands (§4.7, §6).
package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/irl-llc/impressionism/internal/policy"
)

// Payload is the host-provided stdin JSON (§6). Required: SessionID, Cwd,
// HookEventName. Conditional: UserPrompt for user-prompt events, ToolName
// and ToolInput for tool events. Unrecognized extra fields are ignored by
// encoding/json's default decoding.
type Payload struct {
	SessionID     string         `json:"session_id"`
	Cwd           string         `json:"cwd"`
	HookEventName string         `json:"hook_event_name"`
	UserPrompt    string         `json:"user_prompt,omitempty"`
	ToolName      string         `json:"tool_name,omitempty"`
	ToolInput     map[string]any `json:"tool_input,omitempty"`
}

// ParsePayload decodes the stdin payload. An empty body (no stdin piped)
// is not an error — callers fall back to flag-supplied session/workspace.
func ParsePayload(r io.Reader) (Payload, error) {
	var p Payload
	data, err := io.ReadAll(r)
	if err != nil {
		return p, fmt.Errorf("read stdin: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse stdin payload: %w", err)
	}
	return p, nil
}

// NormalizeEvent maps a host-supplied hook_event_name onto the internal
// enumeration (§4.7). It accepts both the snake_case names already used
// internally and the host's own CamelCase event names, case-insensitively.
func NormalizeEvent(name string) (policy.HookEvent, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "session_start", "sessionstart":
		return policy.EventSessionStart, true
	case "user_prompt", "userpromptsubmit", "user_prompt_submit":
		return policy.EventUserPrompt, true
	case "post_tool_use", "posttooluse":
		return policy.EventPostToolUse, true
	case "stop":
		return policy.EventStop, true
	default:
		return "", false
	}
}

// EvalContext builds the evaluation context from a Payload and its
// normalized event, per §4.5's "evaluation context" shape.
func EvalContext(p Payload, event policy.HookEvent) policy.EvalContext {
	return policy.EvalContext{
		SessionID:     p.SessionID,
		WorkspacePath: p.Cwd,
		HookEvent:     event,
		UserPrompt:    p.UserPrompt,
		ToolName:      p.ToolName,
	}
}

// Response is the `select` command's stdout shape (§6): a single
// hookSpecificOutput object. WriteResponse always fills it in, with an
// empty additionalContext when there is no context to add.
type Response struct {
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

type SpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// WriteResponse renders additionalContext for hookEventName. An empty
// additionalContext still emits the hookSpecificOutput wrapper with an
// empty string, matching "the response is empty (no additionalContext
// emitted)" read as an empty string rather than a missing key — hosts
// parsing this schema expect the key to always be present.
func WriteResponse(w io.Writer, hookEventName, additionalContext string) error {
	return json.NewEncoder(w).Encode(Response{
		HookSpecificOutput: &SpecificOutput{HookEventName: hookEventName, AdditionalContext: additionalContext},
	})
}

// WriteEmpty writes the error-path fallback stdout: an empty JSON object,
// never a malformed payload (§4.7).
func WriteEmpty(w io.Writer) error {
	_, err := io.WriteString(w, "{}\n")
	return err
}
