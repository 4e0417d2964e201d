package catalog

import "context"

// SchemaVersion is embedded in the catalog; an existing store with a
// different version is refused rather than silently migrated (§4.1, §9).
const SchemaVersion = 1

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS skills (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	path TEXT UNIQUE NOT NULL,
	description TEXT NOT NULL,
	keywords TEXT,
	sticky INTEGER NOT NULL DEFAULT 0,
	embedding BLOB,
	preamble TEXT,
	content_hash TEXT NOT NULL,
	indexed_at DATETIME NOT NULL,
	source TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_hashes (
	path TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	last_checked_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	workspace_path TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	last_active DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS message_log (
	session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
	sequence INTEGER NOT NULL,
	role TEXT NOT NULL,
	event_type TEXT NOT NULL,
	tool_name TEXT,
	content_preview TEXT,
	embedding BLOB,
	active_skills TEXT,
	logged_at DATETIME NOT NULL,
	PRIMARY KEY (session_id, sequence)
);

CREATE TABLE IF NOT EXISTS session_skills (
	session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
	skill_id TEXT NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
	activated_at DATETIME NOT NULL,
	activation_reason TEXT,
	PRIMARY KEY (session_id, skill_id)
);

CREATE INDEX IF NOT EXISTS idx_skills_source ON skills(source);
CREATE INDEX IF NOT EXISTS idx_message_log_session ON message_log(session_id, sequence);
`

// createTables creates the catalog schema if it does not already exist.
func (s *Store) createTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTablesSQL); err != nil {
		return err
	}
	return nil
}

// checkOrSetVersion reads schema_meta and refuses a mismatched version,
// or seeds it with SchemaVersion on a brand-new catalog.
func (s *Store) checkOrSetVersion(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT version FROM schema_meta LIMIT 1`)
	var version int
	err := row.Scan(&version)
	if err != nil {
		// No row yet: seed it.
		_, execErr := s.db.ExecContext(ctx, `INSERT INTO schema_meta (version) VALUES (?)`, SchemaVersion)
		return execErr
	}
	if version != SchemaVersion {
		return &schemaMismatchError{found: version, want: SchemaVersion}
	}
	return nil
}

type schemaMismatchError struct {
	found, want int
}

func (e *schemaMismatchError) Error() string {
	return "catalog schema version mismatch"
}
