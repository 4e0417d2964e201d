package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/irl-llc/impressionism/internal/catalog"
	"github.com/irl-llc/impressionism/internal/config"
	"github.com/irl-llc/impressionism/internal/embedder"
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

// failingEmbedder always errors, used to exercise Append's
// embed-failure-tolerant path.
type failingEmbedder struct{ dim int }

func (f failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, embedder.EmbedFailed(errTest)
}
func (f failingEmbedder) Dim() int { return f.dim }

var errTest = errors.New("embedding backend unavailable")

func TestTruncate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		k    int
		want string
	}{
		{"under limit unchanged", "hello", 10, "hello"},
		{"exact limit unchanged", "hello", 5, "hello"},
		{"over limit truncated", "hello world", 5, "hello"},
		{"non-positive k uses default", "short", 0, "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Truncate(tc.in, tc.k)
			if got != tc.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.k, got, tc.want)
			}
		})
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	// multi-byte runes must count as one unit each, not one byte each.
	in := "日本語のテキスト"
	got := Truncate(in, 3)
	want := "日本語"
	if got != want {
		t.Errorf("Truncate(%q, 3) = %q, want %q", in, got, want)
	}
}

func TestShouldEmbed(t *testing.T) {
	cfgEmbedTool := config.Default()
	cfgEmbedTool.Logging.EmbedToolUse = true

	cases := []struct {
		name string
		role catalog.Role
		cfg  config.Config
		want bool
	}{
		{"user always embedded", catalog.RoleUser, config.Default(), true},
		{"assistant never embedded", catalog.RoleAssistant, config.Default(), false},
		{"tool not embedded by default", catalog.RoleTool, config.Default(), false},
		{"tool embedded when opted in", catalog.RoleTool, cfgEmbedTool, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldEmbed(tc.role, tc.cfg); got != tc.want {
				t.Errorf("ShouldEmbed(%s) = %v, want %v", tc.role, got, tc.want)
			}
		})
	}
}

func TestAppendWritesTruncatedEntry(t *testing.T) {
	store, emb := newTestStore(t)
	ctx := context.Background()
	cfg := config.Default()

	if _, err := store.GetOrCreateSession(ctx, "s1", "/ws"); err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}

	content := "this is a user prompt about databases"
	seq, err := Append(ctx, store, emb, cfg, "s1", catalog.RoleUser, "user_prompt", "", content, 10)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if seq != 1 {
		t.Errorf("Append() sequence = %d, want 1", seq)
	}

	entries, err := store.RecentMessages(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("RecentMessages() len = %d, want 1", len(entries))
	}
	if got := entries[0].ContentPreview; got != Truncate(content, 10) {
		t.Errorf("ContentPreview = %q, want %q", got, Truncate(content, 10))
	}
	if entries[0].Embedding == nil {
		t.Errorf("expected a user-role entry to carry an embedding")
	}
}

func TestAppendSkipsEmbedForAssistantRole(t *testing.T) {
	store, emb := newTestStore(t)
	ctx := context.Background()
	cfg := config.Default()

	if _, err := store.GetOrCreateSession(ctx, "s1", "/ws"); err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}
	if _, err := Append(ctx, store, emb, cfg, "s1", catalog.RoleAssistant, "session_start", "", "", DefaultPreviewChars); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	entries, err := store.RecentMessages(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("RecentMessages() len = %d, want 1", len(entries))
	}
	if entries[0].Embedding != nil {
		t.Errorf("expected no embedding for an assistant-role entry")
	}
}

func TestAppendToleratesEmbedFailure(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	cfg := config.Default()
	failing := failingEmbedder{dim: 4}

	if _, err := store.GetOrCreateSession(ctx, "s1", "/ws"); err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}

	seq, err := Append(ctx, store, failing, cfg, "s1", catalog.RoleUser, "user_prompt", "", "a user prompt", DefaultPreviewChars)
	if err != nil {
		t.Fatalf("Append() error = %v, want write to succeed despite embed failure", err)
	}
	if seq != 1 {
		t.Errorf("Append() sequence = %d, want 1", seq)
	}

	entries, err := store.RecentMessages(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("RecentMessages() len = %d, want 1", len(entries))
	}
	if entries[0].Embedding != nil {
		t.Errorf("expected nil embedding when the embedder fails, got %v", entries[0].Embedding)
	}
	if entries[0].ContentPreview != "a user prompt" {
		t.Errorf("ContentPreview = %q, want the log write to still succeed", entries[0].ContentPreview)
	}
}

func TestAppendSnapshotsActiveSkillIDs(t *testing.T) {
	store, emb := newTestStore(t)
	ctx := context.Background()
	cfg := config.Default()

	if _, err := store.GetOrCreateSession(ctx, "s1", "/ws"); err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}
	if err := store.UpsertSkill(ctx, skill.Skill{
		ID: "sk1", Name: "sk1", Path: "sk1/SKILL.md", Description: "a skill",
		Embedding: emb.Vector("sk1"), Source: skill.BucketProject,
	}); err != nil {
		t.Fatalf("UpsertSkill() error = %v", err)
	}
	if err := store.SetActive(ctx, "s1", "sk1", "test"); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	if _, err := Append(ctx, store, emb, cfg, "s1", catalog.RoleUser, "user_prompt", "", "hi", DefaultPreviewChars); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	entries, err := store.RecentMessages(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(entries[0].ActiveSkillIDs) != 1 || entries[0].ActiveSkillIDs[0] != "sk1" {
		t.Errorf("ActiveSkillIDs = %v, want [sk1]", entries[0].ActiveSkillIDs)
	}
}
