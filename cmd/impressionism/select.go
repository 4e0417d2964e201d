package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/irl-llc/impressionism/internal/catalog"
	"github.com/irl-llc/impressionism/internal/config"
	"github.com/irl-llc/impressionism/internal/embedder"
	"github.com/irl-llc/impressionism/internal/hook"
	"github.com/irl-llc/impressionism/internal/policy"
)

var (
	selectSession        string
	selectWorkspace      string
	selectDeactivateOnly bool
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "run the policy for the current context and print a hook response",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := hook.ParsePayload(os.Stdin)
		if err != nil {
			hook.WriteEmpty(os.Stdout)
			return err
		}

		sessionID := firstNonEmpty(selectSession, payload.SessionID)
		workspace := firstNonEmpty(selectWorkspace, payload.Cwd)
		if sessionID == "" {
			hook.WriteEmpty(os.Stdout)
			return fmt.Errorf("select: session id required (--session or stdin session_id)")
		}

		event, ok := hook.NormalizeEvent(payload.HookEventName)
		if !ok {
			hook.WriteEmpty(os.Stdout)
			return fmt.Errorf("select: unrecognized hook_event_name %q", payload.HookEventName)
		}
		evalCtx := hook.EvalContext(payload, event)
		evalCtx.SessionID = sessionID
		evalCtx.WorkspacePath = workspace

		dirs, err := config.ResolveDirs()
		if err != nil {
			hook.WriteEmpty(os.Stdout)
			return err
		}
		cfg, err := config.Load(dirs)
		if err != nil {
			hook.WriteEmpty(os.Stdout)
			return err
		}

		emb := embedder.NewFixture(nil)
		store, err := catalog.Open(cmd.Context(), dirs.CatalogDir(), emb.Dim(), catalog.DefaultLockTimeout, log)
		if err != nil {
			hook.WriteEmpty(os.Stdout)
			return err
		}
		defer store.Close()

		runner := policy.NewRunner(store, emb, log, policy.RunnerConfig{
			RulesDir:      dirs.RulesDir(),
			ActiveRuleset: cfg.ActiveRuleset,
			GlobalParams:  cfg.Parameters,
			RulesetParams: cfg.Rulesets,
		})

		var result policy.Result
		if selectDeactivateOnly || event == policy.EventStop {
			result, err = runner.RunDeactivateOnly(cmd.Context(), evalCtx)
		} else {
			result, err = runner.Run(cmd.Context(), evalCtx)
		}
		if err != nil {
			hook.WriteEmpty(os.Stdout)
			return err
		}

		additionalContext := policy.Render(result.Active)
		return hook.WriteResponse(os.Stdout, payload.HookEventName, additionalContext)
	},
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	selectCmd.Flags().StringVar(&selectSession, "session", "", "session id (overrides stdin session_id)")
	selectCmd.Flags().StringVar(&selectWorkspace, "workspace", "", "workspace path (overrides stdin cwd)")
	selectCmd.Flags().BoolVar(&selectDeactivateOnly, "deactivate-only", false, "skip evaluate_activation (always used for the stop event)")
}
