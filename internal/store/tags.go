// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/tag"
)

// PutTag stores t under (scope, key), replacing any previous value. The
// tag is kept in its binary encoding.
func (db *DB) PutTag(ctx context.Context, scope, key string, t tag.Tag) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	data, err := tag.Encode(t)
	if err != nil {
		return oops.In("store").With("scope", scope).With("key", key).Wrap(err)
	}
	_, err = db.sql.ExecContext(ctx,
		`INSERT INTO tag_blobs (scope, key, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (scope, key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		scope, key, data, time.Now().UnixMilli())
	if err != nil {
		return oops.In("store").Code(CodeQueryFailed).With("scope", scope).With("key", key).Wrap(err)
	}
	return nil
}

// GetTag loads the tag stored under (scope, key). The bool is false when
// nothing is stored.
func (db *DB) GetTag(ctx context.Context, scope, key string) (tag.Tag, bool, error) {
	if err := db.checkOpen(); err != nil {
		return nil, false, err
	}
	var data []byte
	err := db.sql.QueryRowContext(ctx,
		`SELECT data FROM tag_blobs WHERE scope = ? AND key = ?`, scope, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, oops.In("store").Code(CodeQueryFailed).With("scope", scope).With("key", key).Wrap(err)
	}
	t, err := tag.Decode(data)
	if err != nil {
		return nil, false, oops.In("store").
			Code(CodeCorruptData).
			With("scope", scope).
			With("key", key).
			Errorf("stored tag cannot be decoded: %v", err)
	}
	return t, true, nil
}

// DeleteTag removes (scope, key). It reports whether a value existed.
func (db *DB) DeleteTag(ctx context.Context, scope, key string) (bool, error) {
	if err := db.checkOpen(); err != nil {
		return false, err
	}
	res, err := db.sql.ExecContext(ctx, `DELETE FROM tag_blobs WHERE scope = ? AND key = ?`, scope, key)
	if err != nil {
		return false, oops.In("store").Code(CodeQueryFailed).With("scope", scope).With("key", key).Wrap(err)
	}
	n, _ := res.RowsAffected() //nolint:errcheck // sqlite always reports it
	return n > 0, nil
}

// TagKeys lists the keys stored in scope, sorted.
func (db *DB) TagKeys(ctx context.Context, scope string) ([]string, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := db.sql.QueryContext(ctx, `SELECT key FROM tag_blobs WHERE scope = ? ORDER BY key`, scope)
	if err != nil {
		return nil, oops.In("store").Code(CodeQueryFailed).With("scope", scope).Wrap(err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, oops.In("store").Code(CodeQueryFailed).With("scope", scope).Wrap(err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.In("store").Code(CodeQueryFailed).With("scope", scope).Wrap(err)
	}
	return keys, nil
}

// StructureRecord is a saved structure.
type StructureRecord struct {
	Name      string
	Size      [3]int32
	Data      tag.Compound
	UpdatedAt time.Time
}

// SaveStructure stores a structure under name, replacing any previous one.
func (db *DB) SaveStructure(ctx context.Context, name string, size [3]int32, data tag.Compound) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	blob, err := tag.Encode(data)
	if err != nil {
		return oops.In("store").With("structure", name).Wrap(err)
	}
	_, err = db.sql.ExecContext(ctx,
		`INSERT INTO structures (name, size_x, size_y, size_z, data, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET size_x = excluded.size_x, size_y = excluded.size_y,
		 size_z = excluded.size_z, data = excluded.data, updated_at = excluded.updated_at`,
		name, size[0], size[1], size[2], blob, time.Now().UnixMilli())
	if err != nil {
		return oops.In("store").Code(CodeQueryFailed).With("structure", name).Wrap(err)
	}
	return nil
}

// LoadStructure loads a saved structure. The bool is false when none is
// stored under name.
func (db *DB) LoadStructure(ctx context.Context, name string) (*StructureRecord, bool, error) {
	if err := db.checkOpen(); err != nil {
		return nil, false, err
	}
	var (
		rec     = StructureRecord{Name: name}
		blob    []byte
		updated int64
	)
	err := db.sql.QueryRowContext(ctx,
		`SELECT size_x, size_y, size_z, data, updated_at FROM structures WHERE name = ?`, name).
		Scan(&rec.Size[0], &rec.Size[1], &rec.Size[2], &blob, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, oops.In("store").Code(CodeQueryFailed).With("structure", name).Wrap(err)
	}
	t, err := tag.Decode(blob)
	if err != nil {
		return nil, false, oops.In("store").Code(CodeCorruptData).With("structure", name).Errorf("stored structure cannot be decoded: %v", err)
	}
	c, ok := t.(tag.Compound)
	if !ok {
		return nil, false, oops.In("store").Code(CodeCorruptData).With("structure", name).Errorf("stored structure is a %s, not a compound", t.Type())
	}
	rec.Data = c
	rec.UpdatedAt = time.UnixMilli(updated).UTC()
	return &rec, true, nil
}
