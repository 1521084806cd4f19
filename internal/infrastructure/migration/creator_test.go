package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/erp/backoffice/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"add journal index":   "add_journal_index",
		"Add-Journal-Index":   "add_journal_index",
		"add__journal__index": "add_journal_index",
		"   spaces   ":        "spaces",
		"special!@#$chars":    "specialchars",
		"_leading":            "leading",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeName(in), in)
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	mf, err := createMigrationAt(dir, "Add resolver note", "note column on the journal", now)
	require.NoError(t, err)

	assert.Equal(t, "20240506070809", mf.Version)
	assert.Equal(t, filepath.Join(dir, "20240506070809_add_resolver_note.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20240506070809_add_resolver_note.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: Add resolver note")
	assert.Contains(t, string(up), "note column on the journal")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")

	_, err = createMigrationAt(dir, "Add resolver note", "", now)
	assert.Error(t, err, "existing files are not overwritten")
}

func TestCreateMigration_EmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"2_b.up.sql":   {},
		"2_b.down.sql": {},
		"1_a.up.sql":   {},
		"1_a.down.sql": {},
		"README.md":    {},
	}
	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"1_a", "2_b"}, names)
}

func TestListMigrations_MissingDir(t *testing.T) {
	names, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "absent")))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListMigrations_Embedded(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	assert.Contains(t, names, "20240301090000_create_compensation_failures")
}
