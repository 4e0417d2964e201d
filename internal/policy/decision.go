package policy

import (
	"errors"

	lua "github.com/yuin/gopher-lua"
)

var errReturnShape = errors.New("entry point return value is not a sequence of ids or {skill_id, reason} records")

// Decision is one activation or deactivation record returned by a
// ruleset entry point (§4.5 Entry points).
type Decision struct {
	SkillID string
	Reason  string
}

// decodeDecisions converts an entry point's Lua return value into
// Decisions per the shape contract: elements are either plain skill id
// strings or {skill_id, reason} records. A missing-or-nil return decodes
// to an empty, non-error result.
func decodeDecisions(lv lua.LValue) ([]Decision, error) {
	if lv == nil || lv == lua.LNil {
		return nil, nil
	}
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil, errReturnShape
	}
	var out []Decision
	n := t.Len()
	for i := 1; i <= n; i++ {
		switch e := t.RawGetInt(i).(type) {
		case lua.LString:
			out = append(out, Decision{SkillID: string(e)})
		case *lua.LTable:
			id, ok := e.RawGetString("skill_id").(lua.LString)
			if !ok {
				return nil, errReturnShape
			}
			reason := ""
			if r, ok := e.RawGetString("reason").(lua.LString); ok {
				reason = string(r)
			}
			out = append(out, Decision{SkillID: string(id), Reason: reason})
		default:
			return nil, errReturnShape
		}
	}
	return out, nil
}
