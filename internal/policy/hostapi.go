package policy

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/irl-llc/impressionism/internal/catalog"
	"github.com/irl-llc/impressionism/internal/embedder"
	"github.com/irl-llc/impressionism/internal/logging"
	"github.com/irl-llc/impressionism/internal/skill"
	"github.com/irl-llc/impressionism/internal/vector"
)

// HostAPI is the binding surface for §4.5.2: every value a ruleset's
// evaluate_* functions can reach beyond pure Lua computation goes through
// here. One HostAPI is built per CLI invocation and shared by both the
// activation and deactivation evaluation calls.
type HostAPI struct {
	Store    *catalog.Store
	Embedder embedder.Embedder
	Ctx      context.Context
	Session  catalog.Session

	// Params is the pre-merged (ruleset-over-global) parameter block for
	// get_param's primary lookup; Global backs its final fallback.
	Params map[string]any
	Global map[string]any

	Log logging.Logger
}

// bindHostAPI registers the eleven host API functions as globals in L.
func bindHostAPI(L *lua.LState, h *HostAPI) {
	L.SetGlobal("get_recent_messages", L.NewFunction(h.getRecentMessages))
	L.SetGlobal("get_recent_tool_use", L.NewFunction(h.getRecentToolUse))
	L.SetGlobal("get_active_skills", L.NewFunction(h.getActiveSkills))
	L.SetGlobal("get_all_skills", L.NewFunction(h.getAllSkills))
	L.SetGlobal("search_skills", L.NewFunction(h.searchSkills))
	L.SetGlobal("search_skills_by_embedding", L.NewFunction(h.searchSkillsByEmbedding))
	L.SetGlobal("embed_text", L.NewFunction(h.embedText))
	L.SetGlobal("cosine_similarity", L.NewFunction(h.cosineSimilarity))
	L.SetGlobal("get_param", L.NewFunction(h.getParam))
	L.SetGlobal("get_session", L.NewFunction(h.getSession))
	L.SetGlobal("log", L.NewFunction(h.log))
}

func logEntryToLua(L *lua.LState, e catalog.LogEntry) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("role", lua.LString(e.Role))
	t.RawSetString("content", lua.LString(e.ContentPreview))
	if e.ToolName != "" {
		t.RawSetString("tool_name", lua.LString(e.ToolName))
	}
	if len(e.Embedding) > 0 {
		t.RawSetString("embedding", toLua(L, e.Embedding))
	}
	t.RawSetString("sequence", lua.LNumber(e.Sequence))
	return t
}

func skillToLua(L *lua.LState, sk skillRecord) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(sk.ID))
	t.RawSetString("name", lua.LString(sk.Name))
	t.RawSetString("path", lua.LString(sk.Path))
	t.RawSetString("description", lua.LString(sk.Description))
	t.RawSetString("keywords", toLua(L, stringsToAny(sk.Keywords)))
	t.RawSetString("sticky", lua.LBool(sk.Sticky))
	t.RawSetString("embedding", toLua(L, sk.Embedding))
	t.RawSetString("source", lua.LString(sk.Source))
	return t
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func (h *HostAPI) getRecentMessages(L *lua.LState) int {
	sessionID := L.CheckString(1)
	count := L.CheckInt(2)
	entries, err := h.Store.RecentMessages(h.Ctx, sessionID, count)
	if err != nil {
		L.RaiseError("get_recent_messages: %v", err)
		return 0
	}
	out := L.NewTable()
	for i, e := range entries {
		out.RawSetInt(i+1, logEntryToLua(L, e))
	}
	L.Push(out)
	return 1
}

func (h *HostAPI) getRecentToolUse(L *lua.LState) int {
	sessionID := L.CheckString(1)
	count := L.CheckInt(2)
	entries, err := h.Store.RecentToolEvents(h.Ctx, sessionID, count)
	if err != nil {
		L.RaiseError("get_recent_tool_use: %v", err)
		return 0
	}
	out := L.NewTable()
	for i, e := range entries {
		t := L.NewTable()
		t.RawSetString("tool_name", lua.LString(e.ToolName))
		t.RawSetString("tool_input_preview", lua.LString(e.ContentPreview))
		t.RawSetString("logged_at", lua.LString(e.LoggedAt.Format("2006-01-02T15:04:05Z07:00")))
		t.RawSetString("sequence", lua.LNumber(e.Sequence))
		out.RawSetInt(i+1, t)
	}
	L.Push(out)
	return 1
}

func (h *HostAPI) getActiveSkills(L *lua.LState) int {
	sessionID := L.CheckString(1)
	skills, err := h.Store.ActiveSkills(h.Ctx, sessionID)
	if err != nil {
		L.RaiseError("get_active_skills: %v", err)
		return 0
	}
	out := L.NewTable()
	for i, sk := range skills {
		out.RawSetInt(i+1, skillToLua(L, toRecord(sk)))
	}
	L.Push(out)
	return 1
}

func (h *HostAPI) getAllSkills(L *lua.LState) int {
	skills, err := h.Store.ListSkills(h.Ctx, catalog.SkillFilter{})
	if err != nil {
		L.RaiseError("get_all_skills: %v", err)
		return 0
	}
	out := L.NewTable()
	for i, sk := range skills {
		out.RawSetInt(i+1, skillToLua(L, toRecord(sk)))
	}
	L.Push(out)
	return 1
}

func (h *HostAPI) searchSkills(L *lua.LState) int {
	query := L.CheckString(1)
	limit := L.CheckInt(2)
	vecs, err := h.Embedder.Embed(h.Ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		L.Push(L.NewTable())
		return 1
	}
	h.pushSearchResults(L, vecs[0], limit)
	return 1
}

func (h *HostAPI) searchSkillsByEmbedding(L *lua.LState) int {
	vec := floatSlice(L.CheckAny(1))
	limit := L.CheckInt(2)
	h.pushSearchResults(L, vec, limit)
	return 1
}

func (h *HostAPI) pushSearchResults(L *lua.LState, vec []float32, limit int) {
	results, err := h.Store.SearchByEmbedding(h.Ctx, vec, limit)
	if err != nil {
		L.RaiseError("search_skills: %v", err)
		return
	}
	out := L.NewTable()
	for i, r := range results {
		t := L.NewTable()
		t.RawSetString("skill", skillToLua(L, toRecord(r.Skill)))
		t.RawSetString("similarity", lua.LNumber(r.Similarity))
		out.RawSetInt(i+1, t)
	}
	L.Push(out)
}

func (h *HostAPI) embedText(L *lua.LState) int {
	text := L.CheckString(1)
	vecs, err := h.Embedder.Embed(h.Ctx, []string{text})
	if err != nil || len(vecs) == 0 {
		L.Push(L.NewTable()) // empty vector on failure, never raise (§4.5.2)
		return 1
	}
	L.Push(toLua(L, vecs[0]))
	return 1
}

func (h *HostAPI) cosineSimilarity(L *lua.LState) int {
	a := floatSlice(L.CheckAny(1))
	b := floatSlice(L.CheckAny(2))
	L.Push(lua.LNumber(vector.Cosine(a, b)))
	return 1
}

func (h *HostAPI) getParam(L *lua.LState) int {
	name := L.CheckString(1)
	def := L.Get(2)
	if v, ok := h.Params[name]; ok {
		L.Push(toLua(L, v))
		return 1
	}
	if v, ok := h.Global[name]; ok {
		L.Push(toLua(L, v))
		return 1
	}
	L.Push(def)
	return 1
}

func (h *HostAPI) getSession(L *lua.LState) int {
	t := L.NewTable()
	t.RawSetString("session_id", lua.LString(h.Session.ID))
	t.RawSetString("workspace_path", lua.LString(h.Session.WorkspacePath))
	t.RawSetString("started_at", lua.LString(h.Session.StartedAt.Format("2006-01-02T15:04:05Z07:00")))
	L.Push(t)
	return 1
}

func (h *HostAPI) log(L *lua.LState) int {
	level := logging.ParseLevel(L.CheckString(1))
	msg := L.CheckString(2)
	h.Log.Log(level, msg, "source", "ruleset")
	return 0
}

// skillRecord is the shape skillToLua renders, decoupling the conversion
// helper from the skill package's field names.
type skillRecord struct {
	ID, Name, Path, Description, Source string
	Keywords                            []string
	Sticky                              bool
	Embedding                           []float32
}

func toRecord(sk skill.Skill) skillRecord {
	return skillRecord{
		ID: sk.ID, Name: sk.Name, Path: sk.Path, Description: sk.Description,
		Source: string(sk.Source), Keywords: sk.Keywords, Sticky: sk.Sticky, Embedding: sk.Embedding,
	}
}
