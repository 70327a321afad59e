// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/stonehook/internal/tag"
	"github.com/holomush/stonehook/pkg/errutil"
)

func openMemory(t *testing.T, migrate bool) *DB {
	t.Helper()
	db, err := Open(context.Background(), Options{Migrate: migrate})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_InMemory(t *testing.T) {
	db := openMemory(t, false)
	assert.Equal(t, ":memory:", db.Name())
	assert.Nil(t, db.Migrator())
}

func TestOpen_RelativeToDataDir(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(ctx, Options{DataDir: dir, Path: "scripts/test.db"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scripts", "test.db"), db.Name())
	_, err = db.Exec(ctx, "CREATE TABLE t(id); INSERT INTO t VALUES (1);", nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, Options{DataDir: dir, Path: "scripts/test.db"})
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // test cleanup
	rows, err := db.Query(ctx, "SELECT id FROM t", nil)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": int64(1)}}, rows)
}

func TestOpen_RejectsEscapingPaths(t *testing.T) {
	for _, p := range []string{"../outside.db", "/etc/passwd", "a/../../b.db"} {
		_, err := Open(context.Background(), Options{DataDir: t.TempDir(), Path: p})
		require.Error(t, err, p)
		errutil.AssertErrorCode(t, err, CodeInvalidPath)
	}
}

func TestExecUpdateQuery(t *testing.T) {
	db := openMemory(t, false)
	ctx := context.Background()

	_, err := db.Exec(ctx, "CREATE TABLE test(id)", nil)
	require.NoError(t, err)

	n, err := db.Update(ctx, "INSERT INTO test VALUES ($test)", Params{"$test": "test"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := db.Query(ctx, "SELECT * from test", Params{})
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": "test"}}, rows)
}

func TestParams_SigilsAndTypes(t *testing.T) {
	db := openMemory(t, false)
	ctx := context.Background()
	_, err := db.Exec(ctx, "CREATE TABLE v(a, b, c, d, e)", nil)
	require.NoError(t, err)

	_, err = db.Update(ctx, "INSERT INTO v VALUES ($a, :b, @c, $d, $e)", Params{
		"$a": "text",
		":b": 2.5,
		"@c": int64(7),
		"d":  true,
		"$e": nil,
	})
	require.NoError(t, err)

	rows, err := db.Query(ctx, "SELECT * FROM v WHERE c = @c", Params{"c": 7})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{"a": "text", "b": 2.5, "c": int64(7), "d": int64(1), "e": nil}, rows[0])
}

func TestParams_Invalid(t *testing.T) {
	db := openMemory(t, false)
	ctx := context.Background()

	tests := []Params{
		{"$bad name": 1},
		{"$": 1},
		{"$x": struct{}{}},
		{"$x": 1, ":x": 2},
	}
	for _, p := range tests {
		_, err := db.Update(ctx, "SELECT 1", p)
		errutil.AssertErrorCode(t, err, CodeInvalidParam)
	}
}

func TestExec_Callback(t *testing.T) {
	db := openMemory(t, false)
	ctx := context.Background()
	_, err := db.Exec(ctx, "CREATE TABLE p(name, score); INSERT INTO p VALUES ('a', 1), ('b', NULL);", nil)
	require.NoError(t, err)

	var lines []map[string]string
	n, err := db.Exec(ctx, "SELECT name, score FROM p ORDER BY name", func(line map[string]string) {
		lines = append(lines, line)
		_, innerErr := db.Query(ctx, "SELECT 1", nil)
		assert.NoError(t, innerErr)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []map[string]string{{"name": "a", "score": "1"}, {"name": "b"}}, lines)
}

func TestQuery_SyntaxError(t *testing.T) {
	db := openMemory(t, false)
	_, err := db.Query(context.Background(), "SELEKT", nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeQueryFailed)
	errutil.AssertErrorContext(t, err, "sql", "SELEKT")
}

func TestClosed(t *testing.T) {
	db, err := Open(context.Background(), Options{})
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err = db.Query(context.Background(), "SELECT 1", nil)
	errutil.AssertErrorCode(t, err, CodeClosed)
}

func TestMigrate_AppliesSchema(t *testing.T) {
	db := openMemory(t, true)
	require.NotNil(t, db.Migrator())

	version, dirty, err := db.Migrator().Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	pending, err := db.Migrator().PendingMigrations()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestManualMigrations_DoesNotApply(t *testing.T) {
	db, err := Open(context.Background(), Options{ManualMigrations: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NotNil(t, db.Migrator())

	version, _, err := db.Migrator().Version()
	require.NoError(t, err)
	assert.Zero(t, version)

	pending, err := db.Migrator().PendingMigrations()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, pending)

	require.NoError(t, db.Migrator().Up())
	applied, err := db.Migrator().AppliedMigrations()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, applied)
}

func TestTags(t *testing.T) {
	db := openMemory(t, true)
	ctx := context.Background()

	_, ok, err := db.GetTag(ctx, "component", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	value := tag.Compound{"hp": tag.Short(20), "tags": tag.ListOf(tag.String("boss"))}
	require.NoError(t, db.PutTag(ctx, "component", "entity:zombie", value))
	require.NoError(t, db.PutTag(ctx, "component", "entity:alpha", tag.Int(1)))
	require.NoError(t, db.PutTag(ctx, "other", "entity:zombie", tag.Int(2)))

	got, ok, err := db.GetTag(ctx, "component", "entity:zombie")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, tag.Equal(value, got))

	require.NoError(t, db.PutTag(ctx, "component", "entity:zombie", tag.String("replaced")))
	got, _, err = db.GetTag(ctx, "component", "entity:zombie")
	require.NoError(t, err)
	assert.Equal(t, tag.String("replaced"), got)

	keys, err := db.TagKeys(ctx, "component")
	require.NoError(t, err)
	assert.Equal(t, []string{"entity:alpha", "entity:zombie"}, keys)

	deleted, err := db.DeleteTag(ctx, "component", "entity:alpha")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = db.DeleteTag(ctx, "component", "entity:alpha")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTags_RejectsMalformed(t *testing.T) {
	db := openMemory(t, true)
	err := db.PutTag(context.Background(), "s", "k", tag.Compound{"x": nil})
	errutil.AssertErrorCode(t, err, tag.CodeMalformed)
}

func TestTags_CorruptBlob(t *testing.T) {
	db := openMemory(t, true)
	ctx := context.Background()
	_, err := db.Update(ctx, "INSERT INTO tag_blobs VALUES ('s', 'k', x'0c', 0)", nil)
	require.NoError(t, err)

	_, _, err = db.GetTag(ctx, "s", "k")
	errutil.AssertErrorCode(t, err, CodeCorruptData)
}

func TestStructures(t *testing.T) {
	db := openMemory(t, true)
	ctx := context.Background()

	_, ok, err := db.LoadStructure(ctx, "house")
	require.NoError(t, err)
	assert.False(t, ok)

	data := tag.Compound{"size": tag.IntArray{2, 1, 1}}
	require.NoError(t, db.SaveStructure(ctx, "house", [3]int32{2, 1, 1}, data))

	rec, ok, err := db.LoadStructure(ctx, "house")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [3]int32{2, 1, 1}, rec.Size)
	assert.True(t, tag.Equal(data, rec.Data))
	assert.False(t, rec.UpdatedAt.IsZero())
}
