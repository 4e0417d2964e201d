package policy

import (
	lua "github.com/yuin/gopher-lua"
)

// toLua converts a plain Go value (string, bool, int, int64, float64,
// []string, []float32, map[string]any, []any, time.Time-as-string, nil)
// into the equivalent Lua value. Unsupported types become lua.LNil.
func toLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case string:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case []string:
		t := L.NewTable()
		for i, s := range x {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case []float32:
		t := L.NewTable()
		for i, f := range x {
			t.RawSetInt(i+1, lua.LNumber(f))
		}
		return t
	case []any:
		t := L.NewTable()
		for i, e := range x {
			t.RawSetInt(i+1, toLua(L, e))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, e := range x {
			t.RawSetString(k, toLua(L, e))
		}
		return t
	case map[string]string:
		t := L.NewTable()
		for k, e := range x {
			t.RawSetString(k, lua.LString(e))
		}
		return t
	default:
		return lua.LNil
	}
}

// toGoValue converts a Lua value into a plain Go value, used for
// get_param's default passthrough and generic decision parsing.
func toGoValue(lv lua.LValue) any {
	switch x := lv.(type) {
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LTable:
		if isArray(x) {
			var out []any
			x.ForEach(func(_, v lua.LValue) { out = append(out, toGoValue(v)) })
			return out
		}
		out := map[string]any{}
		x.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				out[string(ks)] = toGoValue(v)
			}
		})
		return out
	default:
		return nil
	}
}

// isArray reports whether t looks like a sequence (1..n integer keys,
// no string keys), used to decide how to shape toGoValue's output.
func isArray(t *lua.LTable) bool {
	hasString := false
	t.ForEach(func(k, _ lua.LValue) {
		if _, ok := k.(lua.LString); ok {
			hasString = true
		}
	})
	return !hasString
}

// floatSlice converts a Lua sequence table of numbers into []float32,
// used for search_skills_by_embedding and cosine_similarity arguments.
func floatSlice(lv lua.LValue) []float32 {
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil
	}
	n := t.Len()
	out := make([]float32, n)
	for i := 1; i <= n; i++ {
		if num, ok := t.RawGetInt(i).(lua.LNumber); ok {
			out[i-1] = float32(num)
		}
	}
	return out
}

// stringSlice converts a Lua sequence table of strings into []string.
func stringSlice(lv lua.LValue) []string {
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil
	}
	n := t.Len()
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if s, ok := t.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}
