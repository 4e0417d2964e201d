package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/irl-llc/impressionism/internal/errs"
	"github.com/irl-llc/impressionism/internal/skill"
	"github.com/irl-llc/impressionism/internal/vector"
)

// SkillFilter narrows ListSkills by source bucket; an empty Source means
// no filtering.
type SkillFilter struct {
	Source skill.Bucket
}

// UpsertSkill inserts or replaces a Skill by id, atomically updating its
// row, embedding, and FileHash entry (§4.1).
func (s *Store) UpsertSkill(ctx context.Context, sk skill.Skill) error {
	return s.UpsertSkillsBatch(ctx, []skill.Skill{sk})
}

// UpsertSkillsBatch upserts many skills in a single transaction, so an
// indexing pass's writes are all-or-nothing from a reader's perspective.
func (s *Store) UpsertSkillsBatch(ctx context.Context, skills []skill.Skill) error {
	if len(skills) == 0 {
		return nil
	}
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		for _, sk := range skills {
			if err := upsertOne(ctx, tx, sk); err != nil {
				return errs.Wrap(errs.KindStoreUnavailable, "upsert_skill", err)
			}
		}
		return nil
	})
}

func upsertOne(ctx context.Context, tx *sql.Tx, sk skill.Skill) error {
	embBytes, err := vector.Encode(sk.Embedding)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	kwJSON, err := json.Marshal(sk.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}
	preJSON, err := json.Marshal(sk.Preamble)
	if err != nil {
		return fmt.Errorf("encode preamble: %w", err)
	}
	if sk.IndexedAt.IsZero() {
		sk.IndexedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO skills (id, name, path, description, keywords, sticky, embedding, preamble, content_hash, indexed_at, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, path=excluded.path, description=excluded.description,
			keywords=excluded.keywords, sticky=excluded.sticky, embedding=excluded.embedding,
			preamble=excluded.preamble, content_hash=excluded.content_hash,
			indexed_at=excluded.indexed_at, source=excluded.source
	`, sk.ID, sk.Name, sk.Path, sk.Description, string(kwJSON), boolInt(sk.Sticky), embBytes, string(preJSON), sk.ContentHash, sk.IndexedAt, string(sk.Source))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO file_hashes (path, content_hash, last_checked_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET content_hash=excluded.content_hash, last_checked_at=excluded.last_checked_at
	`, sk.Path, sk.ContentHash, sk.IndexedAt)
	return err
}

// DeleteSkill removes a Skill and cascades to SessionSkill rows.
func (s *Store) DeleteSkill(ctx context.Context, id string) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_skills WHERE skill_id = ?`, id); err != nil {
			return errs.Wrap(errs.KindStoreUnavailable, "delete_skill", err)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM skills WHERE id = ?`, id)
		if err != nil {
			return errs.Wrap(errs.KindStoreUnavailable, "delete_skill", err)
		}
		return nil
	})
}

// DeleteSkillsByPath removes skill rows for paths no longer present on
// disk, used by the Indexer's deletion policy (full/force passes only).
func (s *Store) DeleteSkillsByPath(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		for _, p := range paths {
			if _, err := tx.ExecContext(ctx, `DELETE FROM session_skills WHERE skill_id IN (SELECT id FROM skills WHERE path = ?)`, p); err != nil {
				return errs.Wrap(errs.KindStoreUnavailable, "delete_skill", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM skills WHERE path = ?`, p); err != nil {
				return errs.Wrap(errs.KindStoreUnavailable, "delete_skill", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM file_hashes WHERE path = ?`, p); err != nil {
				return errs.Wrap(errs.KindStoreUnavailable, "delete_skill", err)
			}
		}
		return nil
	})
}

// ListSkills enumerates skills, optionally filtered by source bucket.
func (s *Store) ListSkills(ctx context.Context, filter SkillFilter) ([]skill.Skill, error) {
	query := `SELECT id, name, path, description, keywords, sticky, embedding, preamble, content_hash, indexed_at, source FROM skills`
	args := []any{}
	if filter.Source != "" {
		query += ` WHERE source = ?`
		args = append(args, string(filter.Source))
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreUnavailable, "list_skills", err)
	}
	defer rows.Close()

	var out []skill.Skill
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindStoreUnavailable, "list_skills", err)
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSkill(r rowScanner) (skill.Skill, error) {
	var sk skill.Skill
	var kwJSON, preJSON, source sql.NullString
	var embBytes []byte
	var stickyInt int
	if err := r.Scan(&sk.ID, &sk.Name, &sk.Path, &sk.Description, &kwJSON, &stickyInt, &embBytes, &preJSON, &sk.ContentHash, &sk.IndexedAt, &source); err != nil {
		return sk, err
	}
	sk.Sticky = stickyInt != 0
	sk.Source = skill.Bucket(source.String)

	if kwJSON.Valid && kwJSON.String != "" {
		_ = json.Unmarshal([]byte(kwJSON.String), &sk.Keywords)
	}
	if preJSON.Valid && preJSON.String != "" {
		_ = json.Unmarshal([]byte(preJSON.String), &sk.Preamble)
	}
	emb, err := vector.Decode(embBytes)
	if err != nil {
		return sk, err
	}
	sk.Embedding = emb
	return sk, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ScoredSkill pairs a Skill with its similarity score.
type ScoredSkill struct {
	Skill      skill.Skill
	Similarity float64
}

// SearchByEmbedding returns the top-k skills by cosine similarity to
// vec, excluding stub entries (empty embedding). Ties are broken by id
// ascending. A brute-force scan over the skills table, acceptable at the
// low-thousands scale the spec targets (§4.1, §9).
func (s *Store) SearchByEmbedding(ctx context.Context, vec []float32, k int) ([]ScoredSkill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, path, description, keywords, sticky, embedding, preamble, content_hash, indexed_at, source
		FROM skills WHERE embedding IS NOT NULL AND length(embedding) > 0
	`)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreUnavailable, "search_by_embedding", err)
	}
	defer rows.Close()

	var scored []ScoredSkill
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindStoreUnavailable, "search_by_embedding", err)
		}
		if sk.Stub() {
			continue
		}
		scored = append(scored, ScoredSkill{Skill: sk, Similarity: vector.Cosine(vec, sk.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindStoreUnavailable, "search_by_embedding", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Skill.ID < scored[j].Skill.ID
	})
	if k >= 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// GetFileHash looks up the tracked content hash for path.
func (s *Store) GetFileHash(ctx context.Context, path string) (skill.FileHash, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT path, content_hash, last_checked_at FROM file_hashes WHERE path = ?`, path)
	var fh skill.FileHash
	err := row.Scan(&fh.Path, &fh.ContentHash, &fh.LastChecked)
	if err == sql.ErrNoRows {
		return skill.FileHash{}, false, nil
	}
	if err != nil {
		return skill.FileHash{}, false, errs.Wrap(errs.KindStoreUnavailable, "get_file_hash", err)
	}
	return fh, true, nil
}

// PutFileHash records path's current content hash, independent of
// whether a Skill row exists. The Indexer does not call it: a file that
// fails to parse gets no FileHash entry and is parsed again next pass.
func (s *Store) PutFileHash(ctx context.Context, path, contentHash string) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO file_hashes (path, content_hash, last_checked_at) VALUES (?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET content_hash=excluded.content_hash, last_checked_at=excluded.last_checked_at
		`, path, contentHash, time.Now().UTC())
		if err != nil {
			return errs.Wrap(errs.KindStoreUnavailable, "put_file_hash", err)
		}
		return nil
	})
}
