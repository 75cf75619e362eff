package database

import (
	"testing"
	"testing/fstest"

	"treelof-api/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingFilesSortsAndSkips(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/010_b.sql":      {Data: []byte("SELECT 1")},
		"sql/002_a.sql":      {Data: []byte("SELECT 1")},
		"sql/003_reset.sql":  {Data: []byte("DROP TABLE x")},
		"sql/004_done.sql":   {Data: []byte("SELECT 1")},
		"sql/README.md":      {Data: []byte("notes")},
		"sql/nested/005.sql": {Data: []byte("SELECT 1")},
	}

	files, err := PendingFiles(fsys, "sql", map[string]bool{"004_done.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_a.sql", "010_b.sql"}, files)
}

func TestPendingFilesMissingDir(t *testing.T) {
	_, err := PendingFiles(fstest.MapFS{}, "nope", nil)
	assert.Error(t, err)
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	files, err := PendingFiles(migrations.FS, ".", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"001_create_plants.sql",
		"002_create_profiles.sql",
		"003_create_revisions.sql",
		"004_notify_revision_changes.sql",
	}, files)
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "a.sql", joinPath(".", "a.sql"))
	assert.Equal(t, "a.sql", joinPath("", "a.sql"))
	assert.Equal(t, "dir/a.sql", joinPath("dir/", "a.sql"))
}
