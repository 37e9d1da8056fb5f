package testutil

import (
	"testing"

	"github.com/HerbHall/wlanmon/internal/store"
)

// NewStore creates an in-memory SQLite database for testing.
// The database is automatically closed when the test completes.
func NewStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("testutil.NewStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
