package policy

// HookEvent enumerates the normalized event kinds the Hook Adapter
// recognizes (§4.7), the same four names the Lua evaluation context
// exposes as ctx.hook_event.
type HookEvent string

const (
	EventSessionStart HookEvent = "session_start"
	EventUserPrompt   HookEvent = "user_prompt"
	EventPostToolUse  HookEvent = "post_tool_use"
	EventStop         HookEvent = "stop"
)

// EvalContext is the evaluation context passed to evaluate_activation and
// evaluate_deactivation (§4.5).
type EvalContext struct {
	SessionID     string
	WorkspacePath string
	HookEvent     HookEvent
	UserPrompt    string // set only for user_prompt events
	ToolName      string // set only for post_tool_use events
}
