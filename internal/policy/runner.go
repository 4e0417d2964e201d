package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/irl-llc/impressionism/internal/catalog"
	"github.com/irl-llc/impressionism/internal/embedder"
	"github.com/irl-llc/impressionism/internal/errs"
	"github.com/irl-llc/impressionism/internal/logging"
	"github.com/irl-llc/impressionism/internal/skill"
)

// RunnerConfig is the resolved subset of the configuration file the
// Policy Runner needs (§6): which ruleset to load and its merged
// parameter blocks.
type RunnerConfig struct {
	RulesDir      string
	ActiveRuleset string
	GlobalParams  map[string]any
	RulesetParams map[string]map[string]any // keyed by ruleset path
}

// Runner is the Policy Runner (H): it resolves the ruleset and
// parameters, invokes the Script VM Host, and applies the resulting
// decisions to the catalog's session-skill state (§4.6).
type Runner struct {
	store *catalog.Store
	emb   embedder.Embedder
	log   logging.Logger
	cfg   RunnerConfig
}

func NewRunner(store *catalog.Store, emb embedder.Embedder, log logging.Logger, cfg RunnerConfig) *Runner {
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{store: store, emb: emb, log: log.With("component", "policy"), cfg: cfg}
}

// Result is what the Hook Adapter needs to render a response (§4.6/§4.7).
type Result struct {
	Activated   []Decision
	Deactivated []Decision
	Active      []skill.Skill // the session's active-skill set after applying decisions
}

// Run resolves the active ruleset, invokes its entry points against
// evalCtx, and applies the decisions. It always calls both
// evaluate_activation and evaluate_deactivation; the `--deactivate-only`
// path is RunDeactivateOnly. Any PolicyFailed/SandboxViolation leaves that evaluation's
// decision set empty and the session's active-skill set for that half of
// the pass untouched, per §7 — it does not abort the other half.
func (r *Runner) Run(ctx context.Context, evalCtx EvalContext) (Result, error) {
	session, err := r.store.GetOrCreateSession(ctx, evalCtx.SessionID, evalCtx.WorkspacePath)
	if err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	params := mergeParams(r.cfg.GlobalParams, r.cfg.RulesetParams[r.cfg.ActiveRuleset])
	host := &HostAPI{
		Store: r.store, Embedder: r.emb, Ctx: ctx, Session: session,
		Params: params, Global: r.cfg.GlobalParams, Log: r.log.With("run_id", runID),
	}

	var result Result

	actDecisions, actErr := Evaluate(r.cfg.RulesDir, r.cfg.ActiveRuleset, "evaluate_activation", evalCtx, host)
	if actErr != nil {
		wrapped := classifyEvalError(r.cfg.ActiveRuleset, actErr)
		r.log.Warn("evaluate_activation failed", "run_id", runID, "ruleset", r.cfg.ActiveRuleset, "kind", errs.KindOf(wrapped), "error", wrapped.Error())
	} else {
		result.Activated = r.applyActivations(ctx, evalCtx, actDecisions)
	}

	decisions, evalErr := Evaluate(r.cfg.RulesDir, r.cfg.ActiveRuleset, "evaluate_deactivation", evalCtx, host)
	if evalErr != nil {
		wrapped := classifyEvalError(r.cfg.ActiveRuleset, evalErr)
		r.log.Warn("evaluate_deactivation failed", "run_id", runID, "ruleset", r.cfg.ActiveRuleset, "kind", errs.KindOf(wrapped), "error", wrapped.Error())
	} else {
		result.Deactivated = r.applyDeactivations(ctx, evalCtx, decisions)
	}

	active, err := r.store.ActiveSkills(ctx, evalCtx.SessionID)
	if err != nil {
		return result, err
	}
	result.Active = active
	return result, nil
}

// RunDeactivateOnly is the `stop` event's dedicated path: it skips
// evaluate_activation entirely (§4.6).
func (r *Runner) RunDeactivateOnly(ctx context.Context, evalCtx EvalContext) (Result, error) {
	session, err := r.store.GetOrCreateSession(ctx, evalCtx.SessionID, evalCtx.WorkspacePath)
	if err != nil {
		return Result{}, err
	}
	runID := uuid.NewString()
	params := mergeParams(r.cfg.GlobalParams, r.cfg.RulesetParams[r.cfg.ActiveRuleset])
	host := &HostAPI{
		Store: r.store, Embedder: r.emb, Ctx: ctx, Session: session,
		Params: params, Global: r.cfg.GlobalParams, Log: r.log.With("run_id", runID),
	}

	var result Result
	decisions, evalErr := Evaluate(r.cfg.RulesDir, r.cfg.ActiveRuleset, "evaluate_deactivation", evalCtx, host)
	if evalErr != nil {
		wrapped := classifyEvalError(r.cfg.ActiveRuleset, evalErr)
		r.log.Warn("evaluate_deactivation failed", "run_id", runID, "ruleset", r.cfg.ActiveRuleset, "kind", errs.KindOf(wrapped), "error", wrapped.Error())
	} else {
		result.Deactivated = r.applyDeactivations(ctx, evalCtx, decisions)
	}

	active, err := r.store.ActiveSkills(ctx, evalCtx.SessionID)
	if err != nil {
		return result, err
	}
	result.Active = active
	return result, nil
}

// applyActivations adds a SessionSkill row per decision; an
// already-active skill is a no-op (§4.6), and an unknown skill id is
// dropped with a logged warning (§4.5 entry point contract) rather than
// failing the whole pass.
func (r *Runner) applyActivations(ctx context.Context, evalCtx EvalContext, decisions []Decision) []Decision {
	var applied []Decision
	for _, d := range decisions {
		reason := d.Reason
		if reason == "" {
			reason = "ruleset activation"
		}
		if err := r.store.SetActive(ctx, evalCtx.SessionID, d.SkillID, reason); err != nil {
			if errors.Is(err, errs.ErrUnknownSkill) {
				r.log.Warn("evaluate_activation returned unknown skill id", "skill_id", d.SkillID)
				continue
			}
			r.log.Warn("activation failed", "skill_id", d.SkillID, "error", err.Error())
			continue
		}
		r.log.Info("skill activated", "skill_id", d.SkillID, "reason", reason, "session_id", evalCtx.SessionID)
		applied = append(applied, d)
	}
	return applied
}

// applyDeactivations removes a SessionSkill row per decision. A sticky
// skill is suppressed (logged, not removed) unless the event is `stop`,
// in which case stickiness no longer protects it — the decision this
// spec's §9 open question resolves in favor of an always-clean stop.
func (r *Runner) applyDeactivations(ctx context.Context, evalCtx EvalContext, decisions []Decision) []Decision {
	active, err := r.store.ActiveSkills(ctx, evalCtx.SessionID)
	if err != nil {
		r.log.Warn("deactivation: could not load active skills", "error", err.Error())
		return nil
	}
	byID := make(map[string]skill.Skill, len(active))
	for _, sk := range active {
		byID[sk.ID] = sk
	}

	var applied []Decision
	for _, d := range decisions {
		sk, ok := byID[d.SkillID]
		if !ok {
			continue // not active; nothing to do
		}
		if sk.Sticky && evalCtx.HookEvent != EventStop {
			r.log.Info("sticky skill deactivation suppressed", "skill_id", d.SkillID, "hook_event", evalCtx.HookEvent)
			continue
		}
		if err := r.store.SetInactive(ctx, evalCtx.SessionID, d.SkillID); err != nil {
			r.log.Warn("deactivation failed", "skill_id", d.SkillID, "error", err.Error())
			continue
		}
		r.log.Info("skill deactivated", "skill_id", d.SkillID, "reason", d.Reason, "session_id", evalCtx.SessionID)
		applied = append(applied, d)
	}
	return applied
}

func mergeParams(global, override map[string]any) map[string]any {
	out := make(map[string]any, len(global)+len(override))
	for k, v := range global {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Render turns the net active-skill set into the Hook Adapter's
// banner-plus-bullet-list response (§4.6). No active skills at all
// renders to an empty string, signaling "no additionalContext".
func Render(active []skill.Skill) string {
	if len(active) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Active skills for this turn:\n")
	for _, sk := range active {
		fmt.Fprintf(&b, "/%s — %s\n", sk.Name, sk.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

