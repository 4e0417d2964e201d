package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/irl-llc/impressionism/internal/catalog"
	"github.com/irl-llc/impressionism/internal/config"
	"github.com/irl-llc/impressionism/internal/embedder"
	"github.com/irl-llc/impressionism/internal/hook"
	"github.com/irl-llc/impressionism/internal/session"
)

var (
	logSession   string
	logWorkspace string
	logEvent     string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "append a log entry built from the stdin payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := hook.ParsePayload(os.Stdin)
		if err != nil {
			return err
		}
		sessionID := firstNonEmpty(logSession, payload.SessionID)
		workspace := firstNonEmpty(logWorkspace, payload.Cwd)
		if sessionID == "" {
			return fmt.Errorf("log: session id required (--session or stdin session_id)")
		}

		dirs, err := config.ResolveDirs()
		if err != nil {
			return err
		}
		cfg, err := config.Load(dirs)
		if err != nil {
			return err
		}

		emb := embedder.NewFixture(nil)
		store, err := catalog.Open(cmd.Context(), dirs.CatalogDir(), emb.Dim(), catalog.DefaultLockTimeout, log)
		if err != nil {
			return err
		}
		defer store.Close()

		if _, err := store.GetOrCreateSession(cmd.Context(), sessionID, workspace); err != nil {
			return err
		}

		role, eventType, toolName, content := classify(logEvent, payload)
		if role == "" {
			return nil // nothing to log for this event kind
		}
		if role == catalog.RoleTool && !cfg.ShouldLogTool(toolName) {
			return nil
		}

		if _, err := session.Append(cmd.Context(), store, emb, cfg, sessionID, role, eventType, toolName, content, session.DefaultPreviewChars); err != nil {
			return err
		}
		return nil
	},
}

// classify maps a normalized hook event plus stdin payload onto the
// MessageLog fields to write, per §4.4 and §4.7.
func classify(eventName string, p hook.Payload) (role catalog.Role, eventType, toolName, content string) {
	event, ok := hook.NormalizeEvent(eventName)
	if !ok {
		event, ok = hook.NormalizeEvent(p.HookEventName)
	}
	if !ok {
		return "", "", "", ""
	}
	switch event {
	case "user_prompt":
		return catalog.RoleUser, string(event), "", p.UserPrompt
	case "post_tool_use":
		inputJSON, _ := json.Marshal(p.ToolInput)
		return catalog.RoleTool, string(event), p.ToolName, string(inputJSON)
	default:
		return catalog.RoleAssistant, string(event), "", ""
	}
}

func init() {
	logCmd.Flags().StringVar(&logSession, "session", "", "session id (overrides stdin session_id)")
	logCmd.Flags().StringVar(&logWorkspace, "workspace", "", "workspace path (overrides stdin cwd)")
	logCmd.Flags().StringVar(&logEvent, "event", "", "event kind (overrides stdin hook_event_name)")
}
