// Package store persists dictionaries and translated sentences in SQLite.
// A Store is a dict.Source: indexes are built from the stored entries on
// first use and rebuilt after the context changes.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/minios-linux/nameproxy/dict"
	"github.com/minios-linux/nameproxy/store/migrations"
)

var errNotConfigured = errors.New("storage is not configured")

// Store is a SQLite-backed dictionary and translation cache. It is safe for
// concurrent use.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	indexes map[string]*dict.Index
}

// Open opens (creating if needed) the database at path and applies the
// embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), db, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, indexes: make(map[string]*dict.Index)}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return errNotConfigured
	}
	return nil
}

func (s *Store) invalidate(contexts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range contexts {
		delete(s.indexes, id)
	}
}

// ---------------------------------------------------------------------------
// Dictionary
// ---------------------------------------------------------------------------

// PutRecords inserts records in one transaction. A record equal to a stored
// one (same context, kind, source and target) updates its role instead.
// It returns the number of rows written.
func (s *Store) PutRecords(ctx context.Context, records []dict.Record) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO entries (context, kind, source, target, role)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (context, kind, source, target) DO UPDATE SET role = excluded.role`)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	touched := make(map[string]bool)
	for _, rec := range records {
		if rec.Context == "" || rec.Source == "" {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s %q: context and source are required", rec.Kind, rec.Source)
		}
		role := ""
		if rec.Kind == dict.RecordName {
			role = rec.Role.String()
		}
		source := dict.NormalizeText(rec.Source)
		if _, err := stmt.ExecContext(ctx, rec.Context, rec.Kind.String(), source, rec.Target, role); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert %s %q: %w", rec.Kind, rec.Source, err)
		}
		touched[rec.Context] = true
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	s.invalidate(ids...)
	return len(records), nil
}

// DeleteContext removes every entry of a context and returns how many rows
// were deleted.
func (s *Store) DeleteContext(ctx context.Context, contextID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE context = ?`, contextID)
	if err != nil {
		return 0, fmt.Errorf("delete context %q: %w", contextID, err)
	}
	s.invalidate(contextID)
	n, _ := res.RowsAffected()
	return n, nil
}

// Contexts returns the IDs of all contexts holding at least one entry, sorted.
func (s *Store) Contexts(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT context FROM entries ORDER BY context`)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan context: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Records returns the entries of a context in insertion order.
func (s *Store) Records(ctx context.Context, contextID string) ([]dict.Record, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, source, target, role FROM entries WHERE context = ? ORDER BY id`, contextID)
	if err != nil {
		return nil, fmt.Errorf("query context %q: %w", contextID, err)
	}
	defer rows.Close()

	var out []dict.Record
	for rows.Next() {
		var kind, source, target, role string
		if err := rows.Scan(&kind, &source, &target, &role); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		rec, err := dict.Normalize(dict.RawRecord{
			Context: contextID, Kind: kind, Source: source, Target: target, Role: role,
		})
		if err != nil {
			return nil, fmt.Errorf("stored entry: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Index implements dict.Source. Unknown contexts yield an empty index.
func (s *Store) Index(ctx context.Context, contextID string) (*dict.Index, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	idx, ok := s.indexes[contextID]
	s.mu.Unlock()
	if ok {
		return idx, nil
	}

	records, err := s.Records(ctx, contextID)
	if err != nil {
		return nil, err
	}
	entries := make([]dict.Entry, 0, len(records))
	for _, rec := range records {
		if e, ok := rec.Entry(); ok {
			entries = append(entries, e)
		}
	}
	idx = dict.NewIndex(contextID, entries)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.indexes[contextID]; ok {
		return cached, nil
	}
	s.indexes[contextID] = idx
	return idx, nil
}

// ---------------------------------------------------------------------------
// Translation cache
// ---------------------------------------------------------------------------

func cacheKey(namespace, sentence string) string {
	sum := sha256.Sum256([]byte(namespace + "\x00" + sentence))
	return hex.EncodeToString(sum[:])
}

// CachedTranslation returns the stored output for sentence under namespace.
// ok is false on a cache miss.
func (s *Store) CachedTranslation(ctx context.Context, namespace, sentence string) (output string, ok bool, err error) {
	if err := s.ready(ctx); err != nil {
		return "", false, err
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT output FROM translations WHERE key = ?`, cacheKey(namespace, sentence),
	).Scan(&output)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cache: %w", err)
	}
	return output, true, nil
}

// PutTranslation stores output for sentence under namespace, replacing any
// previous value.
func (s *Store) PutTranslation(ctx context.Context, namespace, sentence, output string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO translations (key, namespace, sentence, output, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET output = excluded.output, created_at = excluded.created_at`,
		cacheKey(namespace, sentence), namespace, sentence, output, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// PurgeTranslations deletes cached translations of a namespace, or all of
// them when namespace is empty.
func (s *Store) PurgeTranslations(ctx context.Context, namespace string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var (
		res sql.Result
		err error
	)
	if namespace == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM translations`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM translations WHERE namespace = ?`, namespace)
	}
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
