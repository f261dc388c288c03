// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Owns schema versioning, idempotent migrations and the self-healing reset path

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/g333vn/Glingo-sub002/internal/auth"
)

// SchemaVersion is the schema version this build targets. Open upgrades
// older databases step by step; a database stamped with a newer version
// triggers the recovery path.
const SchemaVersion = 3

// migration is one upgrade step. Steps are idempotent: re-running a step
// against a database that already has its objects is harmless.
type migration struct {
	version int
	name    string
	stmts   string
}

var migrations = []migration{
	{
		version: 1,
		name:    "catalog stores",
		stmts: `
			CREATE TABLE IF NOT EXISTS levels (
				id         TEXT PRIMARY KEY,
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS series (
				level      TEXT NOT NULL,
				id         TEXT NOT NULL,
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				PRIMARY KEY (level, id)
			);
			CREATE INDEX IF NOT EXISTS idx_series_level ON series(level);

			CREATE TABLE IF NOT EXISTS books (
				level      TEXT NOT NULL,
				id         TEXT NOT NULL,
				category   TEXT NOT NULL DEFAULT '',
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				PRIMARY KEY (level, id)
			);
			CREATE INDEX IF NOT EXISTS idx_books_level ON books(level);
			CREATE INDEX IF NOT EXISTS idx_books_id ON books(id);
			CREATE INDEX IF NOT EXISTS idx_books_category ON books(level, category);

			CREATE TABLE IF NOT EXISTS chapters (
				book_id    TEXT PRIMARY KEY,
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS lessons (
				book_id    TEXT NOT NULL,
				chapter_id TEXT NOT NULL,
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				PRIMARY KEY (book_id, chapter_id)
			);
			CREATE INDEX IF NOT EXISTS idx_lessons_book ON lessons(book_id);

			CREATE TABLE IF NOT EXISTS quizzes (
				book_id    TEXT NOT NULL,
				chapter_id TEXT NOT NULL,
				lesson_id  TEXT NOT NULL,
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				PRIMARY KEY (book_id, chapter_id, lesson_id)
			);
			CREATE INDEX IF NOT EXISTS idx_quizzes_book ON quizzes(book_id);
			CREATE INDEX IF NOT EXISTS idx_quizzes_chapter ON quizzes(book_id, chapter_id);
		`,
	},
	{
		version: 2,
		name:    "exams and level configs",
		stmts: `
			CREATE TABLE IF NOT EXISTS exams (
				level      TEXT NOT NULL,
				id         TEXT NOT NULL,
				year       INTEGER NOT NULL DEFAULT 0,
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				PRIMARY KEY (level, id)
			);
			CREATE INDEX IF NOT EXISTS idx_exams_level ON exams(level);
			CREATE INDEX IF NOT EXISTS idx_exams_year ON exams(level, year);

			CREATE TABLE IF NOT EXISTS level_configs (
				level      TEXT PRIMARY KEY,
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
		`,
	},
	{
		version: 3,
		name:    "learner progress stores",
		stmts: `
			CREATE TABLE IF NOT EXISTS card_progress (
				card_id    TEXT NOT NULL,
				user_id    TEXT NOT NULL,
				deck_id    TEXT NOT NULL DEFAULT '',
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				PRIMARY KEY (card_id, user_id)
			);
			CREATE INDEX IF NOT EXISTS idx_progress_user ON card_progress(user_id);
			CREATE INDEX IF NOT EXISTS idx_progress_deck ON card_progress(user_id, deck_id);

			CREATE TABLE IF NOT EXISTS reviews (
				id         TEXT PRIMARY KEY,
				card_id    TEXT NOT NULL,
				user_id    TEXT NOT NULL,
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_reviews_card ON reviews(card_id, user_id);
			CREATE INDEX IF NOT EXISTS idx_reviews_user ON reviews(user_id, created_at);

			CREATE TABLE IF NOT EXISTS daily_stats (
				user_id    TEXT NOT NULL,
				deck_id    TEXT NOT NULL,
				date       TEXT NOT NULL,
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				PRIMARY KEY (user_id, deck_id, date)
			);
			CREATE INDEX IF NOT EXISTS idx_stats_user ON daily_stats(user_id, deck_id);

			CREATE TABLE IF NOT EXISTS users (
				id         TEXT PRIMARY KEY,
				data       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
		`,
	},
}

// storeTables lists every entity store for Info reporting.
var storeTables = []string{
	"levels", "series", "books", "chapters", "lessons", "quizzes",
	"exams", "level_configs", "card_progress", "reviews", "daily_stats",
	"users",
}

// DB implements Store on an embedded SQLite database.
type DB struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	warn   WarningFunc
	mirror Mirror
}

type options struct {
	warn      WarningFunc
	mirror    Mirror
	autoReset bool
}

// Option configures Open.
type Option func(*options)

// WithWarningFunc registers a callback for recoverable warnings
// (blocked/blocking contention, self-healing reset). Without it, warnings
// are only logged.
func WithWarningFunc(f WarningFunc) Option {
	return func(o *options) { o.warn = f }
}

// WithMirror enables best-effort mirroring of writes that carry an
// identity token to the remote content service.
func WithMirror(m Mirror) Option {
	return func(o *options) { o.mirror = m }
}

// WithoutAutoReset disables the self-healing delete-and-recreate recovery.
// With it set, a version conflict or aborted upgrade fails with
// ErrMigrationFailed instead of destroying local data.
func WithoutAutoReset() Option {
	return func(o *options) { o.autoReset = false }
}

// Open opens (creating if needed) the content database at path and brings
// its schema to SchemaVersion. Parent directories are created.
//
// A database stamped with a newer schema version, or an upgrade that
// aborts, triggers one self-healing pass: the database file is deleted and
// initialization retried. WarnDatabaseReset is emitted before the deletion
// so the caller can tell the user. If the retry also fails the error wraps
// ErrMigrationFailed. Availability failures wrap ErrUnavailable.
func Open(path string, opts ...Option) (*DB, error) {
	o := options{autoReset: true}
	for _, opt := range opts {
		opt(&o)
	}

	logger := slog.Default().With("component", "store")
	s := &DB{
		path:   path,
		logger: logger,
		warn:   o.warn,
		mirror: o.mirror,
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating database directory: %v", ErrUnavailable, err)
	}

	db, err := openAndMigrate(path, s)
	if err == nil {
		s.db = db
		logger.Info("content store initialized", "path", path, "schema_version", SchemaVersion)
		return s, nil
	}

	if isBusy(err) {
		// Another handle is holding the database. Surfaced as a warning;
		// the caller decides whether to retry or run read-only.
		s.warning(WarnBlocked, err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if !o.autoReset {
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	// Self-healing pass: trade local data for availability. The warning
	// goes out before anything is deleted.
	s.warning(WarnDatabaseReset, err)
	logger.Warn("resetting content database after failed initialization",
		"path", path, "error", err)
	if rmErr := removeDatabase(path); rmErr != nil {
		return nil, fmt.Errorf("%w: removing database for reset: %v (after %v)",
			ErrMigrationFailed, rmErr, err)
	}

	db, retryErr := openAndMigrate(path, s)
	if retryErr != nil {
		return nil, fmt.Errorf("%w: retry after reset: %v", ErrMigrationFailed, retryErr)
	}
	s.db = db
	logger.Info("content store reinitialized after reset", "path", path)
	return s, nil
}

// openAndMigrate opens the SQLite file and runs all pending upgrade steps
// inside one transaction.
func openAndMigrate(path string, s *DB) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL for concurrent readers; busy_timeout so transient contention
	// from another handle resolves itself instead of failing outright.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading schema version: %w", err)
	}

	if current > SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("%w: stored %d, target %d", ErrVersionConflict, current, SchemaVersion)
	}
	if current == SchemaVersion {
		return db, nil
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		if isBusy(err) {
			s.warning(WarnBlocking, err)
		}
		return nil, fmt.Errorf("beginning upgrade transaction: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := tx.Exec(m.stmts); err != nil {
			tx.Rollback()
			db.Close()
			return nil, fmt.Errorf("applying migration %d (%s): %w", m.version, m.name, err)
		}
		s.logger.Info("applied migration", "version", m.version, "name", m.name)
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		tx.Rollback()
		db.Close()
		return nil, fmt.Errorf("stamping schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		db.Close()
		return nil, fmt.Errorf("committing upgrade: %w", err)
	}
	return db, nil
}

// removeDatabase deletes the database file and its WAL/SHM sidecars.
func removeDatabase(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// isBusy checks if the error is SQLite handle contention.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}

func (s *DB) warning(kind WarningKind, err error) {
	s.logger.Warn("store warning", "kind", string(kind), "error", err)
	if s.warn != nil {
		s.warn(Warning{Kind: kind, Err: err})
	}
}

// Close closes the database handle.
func (s *DB) Close() error {
	s.logger.Info("closing content store")
	return s.db.Close()
}

// Info reports per-store counts and sizes. It never fails: stores that
// cannot be read contribute zeroed entries.
func (s *DB) Info(ctx context.Context) StorageInfo {
	info := StorageInfo{StorageKind: "sqlite"}
	for _, tbl := range storeTables {
		entry := StoreInfo{Store: tbl}
		query := fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0) FROM %s", tbl)
		if err := s.db.QueryRowContext(ctx, query).Scan(&entry.Count, &entry.Size); err != nil {
			s.logger.Warn("storage info query failed", "store", tbl, "error", err)
			entry.Count, entry.Size = 0, 0
		}
		info.PerStore = append(info.PerStore, entry)
		info.ItemCount += entry.Count
		info.TotalSize += entry.Size
	}
	return info
}

// rowData fetches the JSON payload of a single row. Absence is (nil, nil).
func (s *DB) rowData(ctx context.Context, query string, args ...any) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying row: %w", err)
	}
	return data, nil
}

// priorMeta fetches the lifecycle metadata of an existing row, if any.
// Used by the fetch-before-write stamping path.
func (s *DB) priorMeta(ctx context.Context, query string, args ...any) (*Meta, error) {
	data, err := s.rowData(ctx, query, args...)
	if err != nil || data == nil {
		return nil, err
	}
	var p struct{ Meta }
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding prior record: %w", err)
	}
	return &p.Meta, nil
}

func decodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	return nil
}

// getEntity fetches and decodes one entity. Absence is (nil, nil).
func getEntity[T any](ctx context.Context, s *DB, query string, args ...any) (*T, error) {
	data, err := s.rowData(ctx, query, args...)
	if err != nil || data == nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &v, nil
}

// listEntities fetches and decodes every entity matched by the query.
func listEntities[T any](ctx context.Context, s *DB, query string, args ...any) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// writeEntity marshals v and executes the upsert. Column order in every
// upsert is (keys..., [extra indexed cols...,] data, created_at,
// updated_at); args here carry everything before data.
func (s *DB) writeEntity(ctx context.Context, w MirrorWrite, m *Meta, v any, query string, args ...any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	args = append(args, data,
		m.CreatedAt.UTC().Format(time.RFC3339),
		m.UpdatedAt.UTC().Format(time.RFC3339))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("writing %s record: %w", w.Store, err)
	}
	w.Data = data
	s.mirrorWrite(ctx, w)
	return nil
}

// execDelete removes rows; deleting nothing is success.
func (s *DB) execDelete(ctx context.Context, w MirrorWrite, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting %s record: %w", w.Store, err)
	}
	w.Delete = true
	s.mirrorWrite(ctx, w)
	return nil
}

// mirrorWrite forwards a successful local write to the remote content
// service when the context carries an identity token. Best effort: the
// push runs detached and failures are only logged.
func (s *DB) mirrorWrite(ctx context.Context, w MirrorWrite) {
	if s.mirror == nil {
		return
	}
	token, ok := auth.TokenFromContext(ctx)
	if !ok {
		return
	}
	w.Token = token
	w.UserID, _ = auth.UserIDFromContext(ctx)
	go func() {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.mirror.Push(pushCtx, w); err != nil {
			s.logger.Warn("mirror push failed", "store", w.Store, "key", w.Key, "error", err)
		}
	}()
}

var _ Store = (*DB)(nil)
