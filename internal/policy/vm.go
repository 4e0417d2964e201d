// Package policy implements the Script VM Host (G) and Policy Runner (H):
// a sandboxed gopher-lua interpreter that loads a user-authored ruleset,
// exposes the host API of §4.5.2, and applies the activation/deactivation
// decisions it returns.
//
// gopher-lua is the pure-Go embeddable Lua VM; it is the natural choice
// here because the sandbox's own vocabulary (`require`, `loadfile`,
// `dofile`, metatables) is Lua's, and two manifests in the retrieval pack
// already depend on it for embedded scripting.
package policy

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/irl-llc/impressionism/internal/errs"
)

// deniedBaseGlobals are registered by lua.OpenBase but violate §4.5.1:
// arbitrary code loading, metatable manipulation, and raw stdout writes
// that would corrupt the hook's stdout JSON response.
var deniedBaseGlobals = []string{
	"dofile", "loadfile", "loadstring", "load",
	"setmetatable", "getmetatable",
	"print", "collectgarbage", "module",
}

// newSandboxState builds a fresh *lua.LState with only the allowed
// primitives (§4.5.1) open, plus the require whitelist and the host API
// bound. A fresh state is created per evaluation so scripts never
// observe state from a prior evaluation (§4.5 Determinism).
func newSandboxState(rulesDir string, host *HostAPI) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true, CallStackSize: 256, RegistrySize: 4096})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// os, io, debug, and the stock package/require loader are never
	// opened, so their globals do not exist in this state at all.

	for _, name := range deniedBaseGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("require", L.NewFunction(requireFunc(rulesDir)))
	bindHostAPI(L, host)

	return L
}

// requireFunc implements the sandbox's whitelisted require: only
// `builtin/...` and `custom/...` paths resolved against rulesDir, with
// `..` and absolute roots refused (§4.5.1). The loaded file executes in
// the same sandboxed state, so it gets the identical restricted globals.
func requireFunc(rulesDir string) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		full, err := resolveRulePath(rulesDir, name)
		if err != nil {
			L.RaiseError("require %q: %v", name, err)
			return 0
		}
		fn, err := L.LoadFile(full)
		if err != nil {
			L.RaiseError("require %q: %v", name, err)
			return 0
		}
		L.Push(fn)
		if err := L.PCall(0, lua.MultRet, nil); err != nil {
			L.RaiseError("require %q: %v", name, err)
			return 0
		}
		return L.GetTop()
	}
}

// resolveRulePath validates and resolves a require-style module path
// (e.g. "builtin/default") against rulesDir, enforcing the sandbox's
// path-prefix whitelist and refusing any escape of rulesDir.
func resolveRulePath(rulesDir, name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("path escapes the rules directory")
	}
	if !strings.HasPrefix(clean, "builtin/") && !strings.HasPrefix(clean, "custom/") {
		return "", fmt.Errorf("path must be under builtin/ or custom/")
	}
	full := filepath.Join(rulesDir, filepath.FromSlash(clean)+".lua")
	rel, err := filepath.Rel(rulesDir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path escapes the rules directory")
	}
	return full, nil
}

// loadRuleset loads and runs rulesetPath (resolved the same way require
// resolves a module) in L and verifies it returned a table exposing both
// entry points (§4.5 Lifecycle).
func loadRuleset(L *lua.LState, rulesDir, rulesetPath string) (*lua.LTable, error) {
	full, err := resolveRulePath(rulesDir, rulesetPath)
	if err != nil {
		return nil, err
	}
	fn, err := L.LoadFile(full)
	if err != nil {
		return nil, fmt.Errorf("load ruleset: %w", err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, fmt.Errorf("run ruleset: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("ruleset %q did not return a table", rulesetPath)
	}
	if _, ok := tbl.RawGetString("evaluate_activation").(*lua.LFunction); !ok {
		return nil, fmt.Errorf("ruleset %q does not expose evaluate_activation", rulesetPath)
	}
	if _, ok := tbl.RawGetString("evaluate_deactivation").(*lua.LFunction); !ok {
		return nil, fmt.Errorf("ruleset %q does not expose evaluate_deactivation", rulesetPath)
	}
	return tbl, nil
}

// sandboxViolation wraps err as a PolicyFailed/SandboxViolation error
// carrying the ruleset path and diagnostic, per §7.
func sandboxViolation(rulesetPath string, err error) error {
	return errs.WrapDetail(errs.KindSandboxViolation, "evaluate", err, "ruleset="+rulesetPath)
}

func policyFailed(rulesetPath string, err error) error {
	return errs.WrapDetail(errs.KindPolicyFailed, "evaluate", err, "ruleset="+rulesetPath)
}

// deniedGlobalNames is used to classify an evaluation failure as a
// SandboxViolation rather than a generic PolicyFailed: any of these names
// showing up in the Lua runtime's error message means the script reached
// for a global the sandbox deliberately never registered.
var deniedGlobalNames = []string{"os", "io", "debug", "dofile", "loadfile", "loadstring", "setmetatable", "getmetatable", "package"}

// classifyEvalError picks PolicyFailed vs. its SandboxViolation sub-kind
// for one failed evaluation (§7), based on whether the Lua error mentions
// a name the sandbox denies.
func classifyEvalError(rulesetPath string, err error) error {
	msg := err.Error()
	for _, name := range deniedGlobalNames {
		if strings.Contains(msg, "global '"+name+"'") || strings.Contains(msg, "field '"+name+"'") {
			return sandboxViolation(rulesetPath, err)
		}
	}
	return policyFailed(rulesetPath, err)
}
