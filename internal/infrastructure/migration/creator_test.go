package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplysync/backend/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add sync logs", "add_sync_logs"},
		{"Add-Sync-Logs", "add_sync_logs"},
		{"ADD_SYNC_LOGS", "add_sync_logs"},
		{"add__sync__logs", "add_sync_logs"},
		{"Add Index 123", "add_index_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add media index", "Speed up gallery lookups")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, "000001_add_media_index.up.sql", filepath.Base(first.UpPath))
	assert.Equal(t, "000001_add_media_index.down.sql", filepath.Base(first.DownPath))

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add_media_index")
	assert.Contains(t, string(up), "Speed up gallery lookups")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")

	second, err := CreateMigration(dir, "drop old column", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.Equal(t, "drop old column", second.Description)
	assert.True(t, strings.HasPrefix(filepath.Base(second.UpPath), "000002_"))
}

func TestCreateMigration_ContinuesNumbering(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000009_seed.up.sql"), []byte("--"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000009_seed.down.sql"), []byte("--"), 0o644))

	mf, err := CreateMigration(dir, "next", "")
	require.NoError(t, err)
	assert.Equal(t, uint(10), mf.Version)
	assert.Equal(t, "000010_next.up.sql", filepath.Base(mf.UpPath))
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_late.up.sql":     {Data: []byte("--")},
		"000010_late.down.sql":   {Data: []byte("--")},
		"000002_second.up.sql":   {Data: []byte("--")},
		"000002_second.down.sql": {Data: []byte("--")},
		"000001_first.up.sql":    {Data: []byte("--")},
		"README.md":              {Data: []byte("docs")},
		"subdir.up.sql/keep.txt": {Data: []byte("x")},
		"000003_orphan.down.sql": {Data: []byte("--")},
	}

	got, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_first", "000002_second", "000010_late"}, got)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	got, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"000001_create_catalog",
		"000002_create_supplier_sync",
		"000003_create_import_logs",
	}, got)

	// every up migration ships with its rollback
	for _, base := range got {
		_, err := migrations.FS.ReadFile(base + ".down.sql")
		assert.NoError(t, err, base)
	}
}
