// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store provides the embedded SQLite store used by scripts and by
// the engine for persisted tags and structures.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	// Register the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

var paramNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options configures Open.
type Options struct {
	// DataDir is the directory relative paths are resolved against.
	DataDir string
	// Path is the database file relative to DataDir. Empty opens a private
	// in-memory database.
	Path string
	// Migrate applies the embedded schema after opening.
	Migrate bool
	// ManualMigrations attaches a Migrator without applying anything, for
	// tooling that inspects or rolls back the schema.
	ManualMigrations bool
	// OpenRetries bounds how often a failing ping is retried.
	OpenRetries uint64
}

// Params are named statement parameters. Keys may carry a "$", ":", or "@"
// sigil; values must be string, float64, int64, int, bool, []byte, or nil.
type Params map[string]any

// Row is one result row keyed by column name. Values are int64, float64,
// string, or nil.
type Row map[string]any

// DB is an open SQLite database.
type DB struct {
	sql      *sql.DB
	path     string
	migrator *Migrator
	closed   atomic.Bool
}

// Open opens (creating if needed) the database described by opts.
func Open(ctx context.Context, opts Options) (*DB, error) {
	path, err := resolvePath(opts.DataDir, opts.Path)
	if err != nil {
		return nil, err
	}

	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, oops.In("store").Code(CodeOpenFailed).With("path", path).Wrap(err)
		}
		dsn = path
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, oops.In("store").Code(CodeOpenFailed).With("path", path).Wrap(err)
	}
	if path == "" {
		// Every connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}

	backoff := retry.WithMaxRetries(opts.OpenRetries, retry.NewExponential(50*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			slog.DebugContext(ctx, "sqlite ping failed", "path", path, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = sqlDB.Close() //nolint:errcheck // open error takes precedence
		return nil, oops.In("store").Code(CodeOpenFailed).With("path", path).Wrap(err)
	}
	if err := initPragmas(ctx, sqlDB, path != ""); err != nil {
		_ = sqlDB.Close() //nolint:errcheck // open error takes precedence
		return nil, oops.In("store").Code(CodeOpenFailed).With("path", path).Wrap(err)
	}

	db := &DB{sql: sqlDB, path: path}
	if opts.Migrate || opts.ManualMigrations {
		m, err := NewMigrator(sqlDB)
		if err != nil {
			_ = sqlDB.Close() //nolint:errcheck // open error takes precedence
			return nil, err
		}
		if opts.Migrate {
			if err := m.Up(); err != nil {
				m.release()
				_ = sqlDB.Close() //nolint:errcheck // open error takes precedence
				return nil, err
			}
		}
		db.migrator = m
	}

	slog.DebugContext(ctx, "store opened", "path", db.Name(), "migrated", opts.Migrate)
	return db, nil
}

func initPragmas(ctx context.Context, db *sql.DB, onDisk bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	if onDisk {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// resolvePath joins rel onto dataDir. rel must stay inside dataDir.
func resolvePath(dataDir, rel string) (string, error) {
	if rel == "" {
		return "", nil
	}
	if !filepath.IsLocal(rel) {
		return "", oops.In("store").
			Code(CodeInvalidPath).
			With("path", rel).
			Hint("database paths are relative to the data directory").
			Errorf("database path %q escapes the data directory", rel)
	}
	return filepath.Join(dataDir, rel), nil
}

// Name returns the database file path, or ":memory:".
func (db *DB) Name() string {
	if db.path == "" {
		return ":memory:"
	}
	return db.path
}

// Migrator returns the migrator of a database opened with Migrate, or nil.
func (db *DB) Migrator() *Migrator { return db.migrator }

// Close closes the database. Closing twice is a no-op.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	if db.migrator != nil {
		db.migrator.release()
	}
	if err := db.sql.Close(); err != nil {
		return oops.In("store").With("path", db.Name()).Wrap(err)
	}
	return nil
}

func (db *DB) checkOpen() error {
	if db.closed.Load() {
		return oops.In("store").Code(CodeClosed).Errorf("store %s is closed", db.Name())
	}
	return nil
}

// Exec runs one or more statements. With a nil callback it returns the
// number of rows changed. With a callback, every result row is delivered
// to it with values in text form (NULL columns are omitted) and Exec
// returns the number of rows delivered. Rows are read completely before
// the first callback, so cb may use db.
func (db *DB) Exec(ctx context.Context, query string, cb func(map[string]string)) (int64, error) {
	if err := db.checkOpen(); err != nil {
		return 0, err
	}
	if cb == nil {
		res, err := db.sql.ExecContext(ctx, query)
		if err != nil {
			return 0, queryError(query, err)
		}
		n, _ := res.RowsAffected() //nolint:errcheck // sqlite always reports it
		return n, nil
	}

	rows, err := db.collect(ctx, query, nil)
	if err != nil {
		return 0, err
	}
	for _, r := range rows {
		line := make(map[string]string, len(r))
		for k, v := range r {
			if v != nil {
				line[k] = fmt.Sprint(v)
			}
		}
		cb(line)
	}
	return int64(len(rows)), nil
}

// Query runs a statement with named params and returns every row.
func (db *DB) Query(ctx context.Context, query string, params Params) ([]Row, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	args, err := bindParams(params)
	if err != nil {
		return nil, err
	}
	return db.collect(ctx, query, args)
}

// Update runs a statement with named params and returns the number of
// rows changed.
func (db *DB) Update(ctx context.Context, query string, params Params) (int64, error) {
	if err := db.checkOpen(); err != nil {
		return 0, err
	}
	args, err := bindParams(params)
	if err != nil {
		return 0, err
	}
	res, err := db.sql.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, queryError(query, err)
	}
	n, _ := res.RowsAffected() //nolint:errcheck // sqlite always reports it
	return n, nil
}

func (db *DB) collect(ctx context.Context, query string, args []any) ([]Row, error) {
	rows, err := db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryError(query, err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked

	cols, err := rows.Columns()
	if err != nil {
		return nil, queryError(query, err)
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, queryError(query, err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = normalize(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(query, err)
	}
	return out, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case int:
		return int64(x)
	default:
		return v
	}
}

func bindParams(params Params) ([]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	args := make([]any, 0, len(params))
	seen := make(map[string]string, len(params))
	for _, key := range names {
		name := key
		if len(name) > 0 && (name[0] == '$' || name[0] == ':' || name[0] == '@') {
			name = name[1:]
		}
		if !paramNamePattern.MatchString(name) {
			return nil, oops.In("store").Code(CodeInvalidParam).With("param", key).Errorf("invalid parameter name %q", key)
		}
		if prev, dup := seen[name]; dup {
			return nil, oops.In("store").Code(CodeInvalidParam).
				With("param", key).
				Errorf("parameter %q duplicates %q", key, prev)
		}
		seen[name] = key

		switch v := params[key].(type) {
		case nil, string, float64, int64, []byte:
			args = append(args, sql.Named(name, v))
		case int:
			args = append(args, sql.Named(name, int64(v)))
		case bool:
			n := int64(0)
			if v {
				n = 1
			}
			args = append(args, sql.Named(name, n))
		default:
			return nil, oops.In("store").Code(CodeInvalidParam).
				With("param", key).
				Errorf("unsupported value of type %T for parameter %q", v, key)
		}
	}
	return args, nil
}

func queryError(query string, err error) error {
	return oops.In("store").Code(CodeQueryFailed).With("sql", query).Wrap(err)
}
