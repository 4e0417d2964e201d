package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/irl-llc/impressionism/internal/errs"
	"github.com/irl-llc/impressionism/internal/vector"
)

// Session is a live conversation context identified by a host-supplied
// session id.
type Session struct {
	ID            string
	WorkspacePath string
	StartedAt     time.Time
	LastActive    time.Time
}

// Role is the speaker of a MessageLog entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// LogEntry is one append-only MessageLog row.
type LogEntry struct {
	SessionID      string
	Sequence       int64 // assigned by AppendLog; ignored on input
	Role           Role
	EventType      string
	ToolName       string
	ContentPreview string
	Embedding      []float32
	ActiveSkillIDs []string
	LoggedAt       time.Time
}

// GetOrCreateSession is idempotent: it creates the session row on first
// reference and bumps last_active on every call. A session's workspace
// path is immutable once created — later calls with a different
// workspace for the same id keep the original.
func (s *Store) GetOrCreateSession(ctx context.Context, sessionID, workspace string) (Session, error) {
	var sess Session
	err := s.withWriteLock(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		row := tx.QueryRowContext(ctx, `SELECT session_id, workspace_path, started_at, last_active FROM sessions WHERE session_id = ?`, sessionID)
		err := row.Scan(&sess.ID, &sess.WorkspacePath, &sess.StartedAt, &sess.LastActive)
		switch {
		case err == sql.ErrNoRows:
			sess = Session{ID: sessionID, WorkspacePath: workspace, StartedAt: now, LastActive: now}
			_, execErr := tx.ExecContext(ctx, `
				INSERT INTO sessions (session_id, workspace_path, started_at, last_active) VALUES (?, ?, ?, ?)
			`, sess.ID, sess.WorkspacePath, sess.StartedAt, sess.LastActive)
			return execErr
		case err != nil:
			return err
		default:
			sess.LastActive = now
			_, execErr := tx.ExecContext(ctx, `UPDATE sessions SET last_active = ? WHERE session_id = ?`, now, sessionID)
			return execErr
		}
	})
	if err != nil {
		return Session{}, errs.Wrap(errs.KindStoreUnavailable, "get_or_create_session", err)
	}
	return sess, nil
}

// AppendLog computes the next sequence for the session atomically and
// inserts the entry. It fails with ErrDuplicateSequence if the
// (session, sequence) pair is already taken — which should be impossible
// under the single-writer model the advisory lock enforces.
func (s *Store) AppendLog(ctx context.Context, e LogEntry) (int64, error) {
	var seq int64
	err := s.withWriteLock(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) + 1 FROM message_log WHERE session_id = ?`, e.SessionID)
		if err := row.Scan(&seq); err != nil {
			return err
		}

		embBytes, err := vector.Encode(e.Embedding)
		if err != nil {
			return err
		}
		activeJSON, err := json.Marshal(e.ActiveSkillIDs)
		if err != nil {
			return err
		}
		if e.LoggedAt.IsZero() {
			e.LoggedAt = time.Now().UTC()
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO message_log (session_id, sequence, role, event_type, tool_name, content_preview, embedding, active_skills, logged_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id, sequence) DO NOTHING
		`, e.SessionID, seq, string(e.Role), e.EventType, nullIfEmpty(e.ToolName), e.ContentPreview, embBytes, string(activeJSON), e.LoggedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return errs.ErrDuplicateSequence
		}
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(errs.KindStoreUnavailable, "append_log", err)
	}
	return seq, nil
}

// RecentMessages returns the most recent count log entries in session
// order, oldest of the returned slice first. count == 0 returns an empty
// slice without error.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, count int) ([]LogEntry, error) {
	if count <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, sequence, role, event_type, tool_name, content_preview, embedding, active_skills, logged_at
		FROM message_log WHERE session_id = ? ORDER BY sequence DESC LIMIT ?
	`, sessionID, count)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreUnavailable, "recent_messages", err)
	}
	defer rows.Close()

	entries, err := scanLogEntries(rows)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreUnavailable, "recent_messages", err)
	}
	reverse(entries)
	return entries, nil
}

// RecentToolEvents is RecentMessages filtered to role=tool.
func (s *Store) RecentToolEvents(ctx context.Context, sessionID string, count int) ([]LogEntry, error) {
	if count <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, sequence, role, event_type, tool_name, content_preview, embedding, active_skills, logged_at
		FROM message_log WHERE session_id = ? AND role = ? ORDER BY sequence DESC LIMIT ?
	`, sessionID, string(RoleTool), count)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreUnavailable, "recent_tool_events", err)
	}
	defer rows.Close()

	entries, err := scanLogEntries(rows)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreUnavailable, "recent_tool_events", err)
	}
	reverse(entries)
	return entries, nil
}

func scanLogEntries(rows *sql.Rows) ([]LogEntry, error) {
	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var role, toolName, activeJSON sql.NullString
		var embBytes []byte
		if err := rows.Scan(&e.SessionID, &e.Sequence, &role, &e.EventType, &toolName, &e.ContentPreview, &embBytes, &activeJSON, &e.LoggedAt); err != nil {
			return nil, err
		}
		e.Role = Role(role.String)
		e.ToolName = toolName.String
		if activeJSON.Valid && activeJSON.String != "" {
			_ = json.Unmarshal([]byte(activeJSON.String), &e.ActiveSkillIDs)
		}
		emb, err := vector.Decode(embBytes)
		if err != nil {
			return nil, err
		}
		e.Embedding = emb
		out = append(out, e)
	}
	return out, rows.Err()
}

func reverse(e []LogEntry) {
	for i, j := 0, len(e)-1; i < j; i, j = i+1, j-1 {
		e[i], e[j] = e[j], e[i]
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
