// Package catalog implements the hybrid vector/relational store (§4.1):
// a single on-disk SQLite database holding skills with embeddings,
// sessions, the append-only message log, and active-skill state.
//
// Adapted from the teacher's pkg/core store_init.go/store.go: same DSN
// pragmas (WAL, busy timeout, bounded cache), same Op-wrapped error
// style, same single connection-pool-per-store shape. The ANN index
// machinery (HNSW/IVF) is dropped in favor of the brute-force cosine
// scan §4.1/§9 call out as acceptable at catalog scale; advisory
// cross-process locking is added per §5, which the teacher (a
// single-process library) did not need.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/irl-llc/impressionism/internal/errs"
	"github.com/irl-llc/impressionism/internal/logging"
)

// Store is the catalog's handle: one *sql.DB plus the advisory
// cross-process lock guarding the single-writer discipline of §5.
type Store struct {
	db  *sql.DB
	dim int

	dir         string
	lock        *flock.Flock
	lockTimeout time.Duration

	log logging.Logger
}

// DefaultLockTimeout is the wait budget for StoreBusy, per §5.
const DefaultLockTimeout = 10 * time.Second

// Open opens (creating if absent) the catalog directory dir, with
// embeddings of dimension dim. If the catalog directory cannot be
// created or the database cannot be opened, a StoreUnavailable error is
// returned; a version mismatch returns SchemaMismatch.
func Open(ctx context.Context, dir string, dim int, lockTimeout time.Duration, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Nop()
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindStoreUnavailable, "open", fmt.Errorf("create catalog dir: %w", err))
	}

	dbPath := filepath.Join(dir, "catalog.db")
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-2000&_foreign_keys=on", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreUnavailable, "open", fmt.Errorf("open database: %w", err))
	}
	db.SetMaxOpenConns(1) // single-writer discipline; sqlite serializes anyway under WAL
	db.SetMaxIdleConns(1)

	s := &Store{
		db:          db,
		dim:         dim,
		dir:         dir,
		lock:        flock.New(filepath.Join(dir, "catalog.lock")),
		lockTimeout: lockTimeout,
		log:         log.With("component", "catalog"),
	}

	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindStoreUnavailable, "open", fmt.Errorf("create tables: %w", err))
	}
	if err := s.checkOrSetVersion(ctx); err != nil {
		db.Close()
		if _, ok := err.(*schemaMismatchError); ok {
			return nil, errs.Wrap(errs.KindSchemaMismatch, "open", err)
		}
		return nil, errs.Wrap(errs.KindStoreUnavailable, "open", err)
	}

	s.log.Info("catalog opened", "dir", dir, "dim", dim)
	return s, nil
}

// Close releases the database handle. It does not remove the on-disk
// directory.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dim returns the configured embedding dimension D.
func (s *Store) Dim() int { return s.dim }

// withWriteLock acquires the cross-process advisory lock, runs fn inside
// a single SQL transaction, and commits iff fn succeeds. Any write
// operation in this package goes through here so that a batch of writes
// (e.g. an indexing pass) is atomic from a reader's perspective and so
// concurrent CLI processes serialize per §5.
func (s *Store) withWriteLock(ctx context.Context, fn func(tx *sql.Tx) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(lockCtx, 25*time.Millisecond)
	if err != nil || !locked {
		return errs.Wrap(errs.KindStoreBusy, "write", fmt.Errorf("catalog lock not acquired within %s", s.lockTimeout))
	}
	defer s.lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindStoreUnavailable, "write", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindStoreUnavailable, "write", err)
	}
	return nil
}
