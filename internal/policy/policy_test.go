package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/irl-llc/impressionism/internal/catalog"
	"github.com/irl-llc/impressionism/internal/embedder"
	"github.com/irl-llc/impressionism/internal/errs"
	"github.com/irl-llc/impressionism/internal/logging"
	"github.com/irl-llc/impressionism/internal/skill"
)

func newTestStore(t *testing.T) (*catalog.Store, *embedder.Fixture) {
	t.Helper()
	emb := embedder.NewFixture(nil)
	store, err := catalog.Open(context.Background(), filepath.Join(t.TempDir(), "catalog"), emb.Dim(), time.Second, logging.Nop())
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, emb
}

func seedSkill(t *testing.T, store *catalog.Store, emb *embedder.Fixture, id, name, description string, sticky bool) {
	t.Helper()
	err := store.UpsertSkill(context.Background(), skill.Skill{
		ID: id, Name: name, Path: name + "/SKILL.md", Description: description,
		Sticky: sticky, Embedding: emb.Vector(name + "\n" + description), Source: skill.BucketProject,
	})
	if err != nil {
		t.Fatalf("UpsertSkill(%s) error = %v", id, err)
	}
}

func writeRuleset(t *testing.T, rulesDir, relPath, body string) {
	t.Helper()
	full := filepath.Join(rulesDir, filepath.FromSlash(relPath)+".lua")
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
		t.Fatalf("write ruleset: %v", err)
	}
}

const similarityRuleset = `
local M = {}
function M.evaluate_activation(context)
  local results = search_skills(context.user_prompt or "", 5)
  local decisions = {}
  for _, r in ipairs(results) do
    if r.similarity >= get_param("similarity_threshold", 0.5) then
      table.insert(decisions, {skill_id = r.skill.id, reason = "match"})
    end
  end
  return decisions
end
function M.evaluate_deactivation(context)
  if context.hook_event ~= "stop" then return {} end
  local decisions = {}
  for _, sk in ipairs(get_active_skills(context.session_id)) do
    table.insert(decisions, {skill_id = sk.id, reason = "stop"})
  end
  return decisions
end
return M
`

func TestRunActivatesBySimilarity(t *testing.T) {
	store, emb := newTestStore(t)
	seedSkill(t, store, emb, "db", "db", "database migration helpers", false)
	seedSkill(t, store, emb, "net", "net", "network protocol tools", false)

	rulesDir := t.TempDir()
	writeRuleset(t, rulesDir, "custom/test", similarityRuleset)

	runner := NewRunner(store, emb, logging.Nop(), RunnerConfig{
		RulesDir: rulesDir, ActiveRuleset: "custom/test",
		GlobalParams: map[string]any{"similarity_threshold": 0.5},
	})

	res, err := runner.Run(context.Background(), EvalContext{
		SessionID: "s1", WorkspacePath: "/ws", HookEvent: EventUserPrompt, UserPrompt: "write a database migration",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	found := false
	for _, sk := range res.Active {
		if sk.ID == "db" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Active = %+v, want db activated", res.Active)
	}
}

func TestStopDeactivatesStickySkills(t *testing.T) {
	store, emb := newTestStore(t)
	seedSkill(t, store, emb, "db", "db", "database migration helpers", true)

	if err := store.SetActive(context.Background(), "s1", "db", "seed"); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	rulesDir := t.TempDir()
	writeRuleset(t, rulesDir, "custom/test", similarityRuleset)
	runner := NewRunner(store, emb, logging.Nop(), RunnerConfig{RulesDir: rulesDir, ActiveRuleset: "custom/test"})

	// A non-stop event must not remove the sticky skill.
	if _, err := runner.Run(context.Background(), EvalContext{SessionID: "s1", HookEvent: EventPostToolUse}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	active, err := store.ActiveSkills(context.Background(), "s1")
	if err != nil || len(active) != 1 {
		t.Fatalf("sticky skill removed by a non-stop event: active=%+v err=%v", active, err)
	}

	res, err := runner.RunDeactivateOnly(context.Background(), EvalContext{SessionID: "s1", HookEvent: EventStop})
	if err != nil {
		t.Fatalf("RunDeactivateOnly() error = %v", err)
	}
	if len(res.Active) != 0 {
		t.Fatalf("Active = %+v, want sticky skill removed on stop", res.Active)
	}
}

const sandboxEscapeRuleset = `
local M = {}
function M.evaluate_activation(context)
  os.execute("ls")
  return {}
end
function M.evaluate_deactivation(context) return {} end
return M
`

func TestSandboxDeniesOSAccess(t *testing.T) {
	store, emb := newTestStore(t)
	rulesDir := t.TempDir()
	writeRuleset(t, rulesDir, "custom/escape", sandboxEscapeRuleset)

	host := &HostAPI{Store: store, Embedder: emb, Ctx: context.Background(), Log: logging.Nop()}
	_, err := Evaluate(rulesDir, "custom/escape", "evaluate_activation", EvalContext{SessionID: "s1"}, host)
	if err == nil {
		t.Fatalf("Evaluate() should fail: os is not a sandboxed global")
	}
}

func TestRequireRefusesEscapingPaths(t *testing.T) {
	rulesDir := t.TempDir()
	cases := []string{"../outside", "/etc/passwd", "other/thing"}
	for _, c := range cases {
		if _, err := resolveRulePath(rulesDir, c); err == nil {
			t.Fatalf("resolveRulePath(%q) should be refused", c)
		}
	}
	if _, err := resolveRulePath(rulesDir, "builtin/default"); err != nil {
		t.Fatalf("resolveRulePath(builtin/default) error = %v, want allowed", err)
	}
}

const badShapeRuleset = `
local M = {}
function M.evaluate_activation(context) return "not-a-table" end
function M.evaluate_deactivation(context) return {} end
return M
`

func TestReturnShapeViolationFailsPolicy(t *testing.T) {
	store, emb := newTestStore(t)
	rulesDir := t.TempDir()
	writeRuleset(t, rulesDir, "custom/bad", badShapeRuleset)

	host := &HostAPI{Store: store, Embedder: emb, Ctx: context.Background(), Log: logging.Nop()}
	_, err := Evaluate(rulesDir, "custom/bad", "evaluate_activation", EvalContext{SessionID: "s1"}, host)
	if err == nil {
		t.Fatalf("Evaluate() should reject a non-table activation return")
	}
}

func TestRenderEmptyWhenNoActiveSkills(t *testing.T) {
	if got := Render(nil); got != "" {
		t.Fatalf("Render(nil) = %q, want empty", got)
	}
}

func TestSandboxErrorMapsToSandboxViolationKind(t *testing.T) {
	err := sandboxViolation("custom/escape", errReturnShape)
	if errs.KindOf(err) != errs.KindSandboxViolation {
		t.Fatalf("KindOf() = %v, want SandboxViolation", errs.KindOf(err))
	}
}
