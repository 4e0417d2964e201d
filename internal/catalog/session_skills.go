package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/irl-llc/impressionism/internal/errs"
	"github.com/irl-llc/impressionism/internal/skill"
)

// ActiveSkills returns the full Skill records (including embedding)
// currently active for sessionID, via a join against the skills table.
func (s *Store) ActiveSkills(ctx context.Context, sessionID string) ([]skill.Skill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sk.id, sk.name, sk.path, sk.description, sk.keywords, sk.sticky, sk.embedding, sk.preamble, sk.content_hash, sk.indexed_at, sk.source
		FROM session_skills ss
		JOIN skills sk ON sk.id = ss.skill_id
		WHERE ss.session_id = ?
		ORDER BY sk.id ASC
	`, sessionID)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreUnavailable, "active_skills", err)
	}
	defer rows.Close()

	var out []skill.Skill
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindStoreUnavailable, "active_skills", err)
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

// SetActive adds sessionID/skillID to the active set with reason,
// resolving skillID against the skills table. Activating an
// already-active skill is a no-op (its activated_at/reason are left
// untouched).
func (s *Store) SetActive(ctx context.Context, sessionID, skillID, reason string) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM skills WHERE id = ?`, skillID).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return errs.ErrUnknownSkill
			}
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_skills (session_id, skill_id, activated_at, activation_reason)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(session_id, skill_id) DO NOTHING
		`, sessionID, skillID, time.Now().UTC(), reason)
		return err
	})
}

// SetInactive removes sessionID/skillID from the active set. Removing a
// skill that isn't active is a no-op.
func (s *Store) SetInactive(ctx context.Context, sessionID, skillID string) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM session_skills WHERE session_id = ? AND skill_id = ?`, sessionID, skillID)
		return err
	})
}
