// Package session implements the Session & Log component (F): the
// append-only message log write path, including content-preview
// truncation and the default embed-on-write policy (§4.4).
package session

import (
	"context"

	"github.com/irl-llc/impressionism/internal/catalog"
	"github.com/irl-llc/impressionism/internal/config"
	"github.com/irl-llc/impressionism/internal/embedder"
)

// DefaultPreviewChars bounds content_preview when the caller doesn't
// specify K explicitly.
const DefaultPreviewChars = 2000

// Truncate bounds content to at most k runes, a deterministic operation
// so the round-trip law in §8 ("body truncation deterministic") also
// holds for log previews.
func Truncate(content string, k int) string {
	if k <= 0 {
		k = DefaultPreviewChars
	}
	r := []rune(content)
	if len(r) <= k {
		return content
	}
	return string(r[:k])
}

// ShouldEmbed applies §4.4's default embedding policy: user-role content
// is embedded by default; assistant and tool content is not, unless
// cfg.Logging.EmbedToolUse opts tool events in.
func ShouldEmbed(role catalog.Role, cfg config.Config) bool {
	switch role {
	case catalog.RoleUser:
		return true
	case catalog.RoleTool:
		return cfg.Logging.EmbedToolUse
	default:
		return false
	}
}

// Append builds and writes one MessageLog entry: it truncates content,
// embeds it when ShouldEmbed says to, snapshots the session's currently
// active skills, and delegates to the catalog's append-only writer.
func Append(ctx context.Context, store *catalog.Store, emb embedder.Embedder, cfg config.Config, sessionID string, role catalog.Role, eventType, toolName, content string, previewChars int) (int64, error) {
	preview := Truncate(content, previewChars)

	var vec []float32
	if ShouldEmbed(role, cfg) && preview != "" {
		vecs, err := emb.Embed(ctx, []string{preview})
		if err == nil && len(vecs) == 1 {
			vec = vecs[0]
		}
		// an embedding failure here does not fail the log write (§4.4
		// does not make embedding a precondition of logging); the entry
		// is simply stored without a vector.
	}

	active, err := store.ActiveSkills(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(active))
	for i, sk := range active {
		ids[i] = sk.ID
	}

	return store.AppendLog(ctx, catalog.LogEntry{
		SessionID:      sessionID,
		Role:           role,
		EventType:      eventType,
		ToolName:       toolName,
		ContentPreview: preview,
		Embedding:      vec,
		ActiveSkillIDs: ids,
	})
}
