package catalog

import (
	"context"

	"github.com/irl-llc/impressionism/internal/errs"
)

// Summary backs the `status` CLI command (SPEC_FULL.md's supplemented
// status detail): per-bucket skill counts, the most recently indexed
// skill's path, active session count, and the schema version in use.
type Summary struct {
	TotalSkills      int
	SkillsBySource   map[string]int
	LastIndexedPath  string
	ActiveSessions   int
	SchemaVersion    int
}

// Summarize computes a point-in-time Summary from the catalog.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	sum := Summary{SkillsBySource: map[string]int{}}

	rows, err := s.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM skills GROUP BY source`)
	if err != nil {
		return sum, errs.Wrap(errs.KindStoreUnavailable, "status", err)
	}
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			rows.Close()
			return sum, errs.Wrap(errs.KindStoreUnavailable, "status", err)
		}
		sum.SkillsBySource[src] = n
		sum.TotalSkills += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return sum, errs.Wrap(errs.KindStoreUnavailable, "status", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT path FROM skills ORDER BY indexed_at DESC LIMIT 1`)
	_ = row.Scan(&sum.LastIndexedPath) // no rows ⇒ leaves LastIndexedPath empty

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT session_id) FROM session_skills`).Scan(&sum.ActiveSessions); err != nil {
		return sum, errs.Wrap(errs.KindStoreUnavailable, "status", err)
	}

	sum.SchemaVersion = SchemaVersion
	return sum, nil
}
