package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB returns a migrated in-memory SQLite database that is closed when
// the test ends.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db.DB
}
