package index

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/irl-llc/impressionism/internal/catalog"
	"github.com/irl-llc/impressionism/internal/embedder"
	"github.com/irl-llc/impressionism/internal/hash"
	"github.com/irl-llc/impressionism/internal/logging"
	"github.com/irl-llc/impressionism/internal/skill"
)

// Config configures a discovery/refresh pass.
type Config struct {
	Roots     []Root
	Patterns  []string
	Ignore    []string
	BodyChars int // chars of body batched into the embedder; default 4096
	Workers   int
}

// Indexer drives the Skill Parser and Embedder against the Catalog
// Store, per §4.2.
type Indexer struct {
	cfg   Config
	store *catalog.Store
	emb   embedder.Embedder
	log   logging.Logger
}

func New(cfg Config, store *catalog.Store, emb embedder.Embedder, log logging.Logger) *Indexer {
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = DefaultPatterns
	}
	if len(cfg.Ignore) == 0 {
		cfg.Ignore = DefaultIgnore
	}
	if cfg.BodyChars <= 0 {
		cfg.BodyChars = 4096
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Indexer{cfg: cfg, store: store, emb: emb, log: log.With("component", "indexer")}
}

// ParseFailure reports one file that failed to parse during a pass.
type ParseFailure struct {
	Path       string
	Diagnostic string
}

// Result summarizes one indexing pass.
type Result struct {
	Upserted     int
	Deleted      int
	Unchanged    int
	ParseErrors  []ParseFailure
	RootWarnings []string
	Partial      bool // true if a quick pass stopped early on its time budget
}

// Options controls one Run invocation.
type Options struct {
	Force  bool          // ignore the hash skip; recompute everything
	Quick  bool          // bounded time-budget pass; never deletes; checkpoints between files
	Budget time.Duration // soft wall-clock budget for a Quick pass
}

// pendingUpsert pairs a freshly-parsed document with its skill-to-be,
// awaiting its embedding.
type pendingUpsert struct {
	sk   skill.Skill
	text string
}

// Run performs one discovery + incremental-refresh pass.
func (ix *Indexer) Run(ctx context.Context, opts Options) (Result, error) {
	var res Result
	deadline := time.Time{}
	if opts.Quick {
		budget := opts.Budget
		if budget <= 0 {
			budget = 5 * time.Second
		}
		deadline = time.Now().Add(budget)
	}

	allDiscoveredPaths := map[string]struct{}{}
	var anyRootUnreadable bool
	var pending []pendingUpsert

	for _, root := range ix.cfg.Roots {
		files, unreadable, err := walkRoot(root, ix.cfg.Patterns, ix.cfg.Ignore)
		if unreadable {
			anyRootUnreadable = true
			msg := "root unreadable: " + root.Path
			res.RootWarnings = append(res.RootWarnings, msg)
			ix.log.Warn("root unreadable", "root", root.Path, "error", err)
			continue
		}

		for _, f := range files {
			allDiscoveredPaths[f.path] = struct{}{}

			if opts.Quick && !deadline.IsZero() && time.Now().After(deadline) {
				res.Partial = true
				break
			}

			p, err := ix.refreshOne(ctx, f, opts.Force, &res)
			if err != nil {
				return res, err
			}
			if p != nil {
				pending = append(pending, *p)
			}
		}
	}

	if len(pending) > 0 {
		texts := make([]string, len(pending))
		for i, p := range pending {
			texts[i] = p.text
		}
		vecs, err := ix.emb.Embed(ctx, texts)
		if err != nil {
			return res, embedder.EmbedFailed(err)
		}
		if len(vecs) != len(pending) {
			return res, embedder.EmbedFailed(errShortBatch)
		}

		skills := make([]skill.Skill, len(pending))
		for i, p := range pending {
			p.sk.Embedding = vecs[i]
			skills[i] = p.sk
		}
		if err := ix.store.UpsertSkillsBatch(ctx, skills); err != nil {
			return res, err
		}
		res.Upserted = len(skills)
	}

	// Deletion policy: only on a full pass (not Quick) where every root
	// was walked in full, or when --force was given.
	if !opts.Quick && (opts.Force || !anyRootUnreadable) {
		deleted, err := ix.deleteMissing(ctx, allDiscoveredPaths)
		if err != nil {
			return res, err
		}
		res.Deleted = deleted
	}

	return res, nil
}

var errShortBatch = errors.New("embedder returned a different number of vectors than texts")

// refreshOne applies the hash-diff/parse/queue steps to a single
// discovered file, per §4.2's 1–5. It returns a non-nil *pendingUpsert
// when the file needs (re-)embedding, and nil when it was skipped
// (unchanged) or isolated as a parse failure.
func (ix *Indexer) refreshOne(ctx context.Context, f discovered, force bool, res *Result) (*pendingUpsert, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		res.RootWarnings = append(res.RootWarnings, "unreadable file: "+f.path)
		return nil, nil
	}
	contentHash := hash.Content(raw)

	if !force {
		existing, ok, err := ix.store.GetFileHash(ctx, f.path)
		if err != nil {
			return nil, err
		}
		if ok && existing.ContentHash == contentHash {
			res.Unchanged++
			return nil, nil
		}
	}

	doc, err := skill.Parse(raw)
	if err != nil {
		res.ParseErrors = append(res.ParseErrors, ParseFailure{Path: f.path, Diagnostic: err.Error()})
		ix.log.Warn("skill parse failed", "path", f.path, "error", err)
		return nil, nil
	}

	sk := skill.Skill{
		ID:          hash.SkillID(f.path),
		Name:        doc.Name,
		Path:        f.path,
		Description: doc.Description,
		Keywords:    doc.Keywords,
		Sticky:      doc.Sticky,
		Preamble:    doc.Preamble,
		ContentHash: contentHash,
		IndexedAt:   time.Now().UTC(),
		Source:      f.source,
	}
	text := skill.EmbeddingText(doc, ix.cfg.BodyChars)
	return &pendingUpsert{sk: sk, text: text}, nil
}

// deleteMissing removes skill rows for previously-discovered paths that
// are no longer present on disk.
func (ix *Indexer) deleteMissing(ctx context.Context, present map[string]struct{}) (int, error) {
	existing, err := ix.store.ListSkills(ctx, catalog.SkillFilter{})
	if err != nil {
		return 0, err
	}
	var missing []string
	for _, sk := range existing {
		if _, ok := present[sk.Path]; !ok {
			missing = append(missing, sk.Path)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := ix.store.DeleteSkillsByPath(ctx, missing); err != nil {
		return 0, err
	}
	return len(missing), nil
}
