package policy

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Evaluate runs one entry point ("evaluate_activation" or
// "evaluate_deactivation") of rulesetPath against evalCtx, following the
// lifecycle of §4.5: fresh interpreter, sandbox installed, host API
// bound, ruleset loaded and shape-checked, entry point invoked, return
// value decoded into Decisions.
//
// Any failure — syntax error, runtime error, sandbox violation, or
// return-shape violation — is the caller's responsibility to map onto
// PolicyFailed/SandboxViolation (§7); Evaluate itself just returns the
// plain error and lets the caller decide the Kind via policyFailed /
// sandboxViolation.
func Evaluate(rulesDir, rulesetPath, entryPoint string, evalCtx EvalContext, host *HostAPI) ([]Decision, error) {
	L := newSandboxState(rulesDir, host)
	defer L.Close()
	if host.Ctx != nil {
		L.SetContext(host.Ctx)
	}

	ruleset, err := loadRuleset(L, rulesDir, rulesetPath)
	if err != nil {
		return nil, err
	}

	fn, ok := ruleset.RawGetString(entryPoint).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("ruleset %q does not expose %s", rulesetPath, entryPoint)
	}

	L.Push(fn)
	L.Push(evalContextToLua(L, evalCtx))
	if err := L.PCall(1, 1, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", entryPoint, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	decisions, err := decodeDecisions(ret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entryPoint, err)
	}
	return decisions, nil
}

func evalContextToLua(L *lua.LState, c EvalContext) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("session_id", lua.LString(c.SessionID))
	t.RawSetString("workspace_path", lua.LString(c.WorkspacePath))
	t.RawSetString("hook_event", lua.LString(c.HookEvent))
	if c.UserPrompt != "" {
		t.RawSetString("user_prompt", lua.LString(c.UserPrompt))
	}
	if c.ToolName != "" {
		t.RawSetString("tool_name", lua.LString(c.ToolName))
	}
	return t
}
