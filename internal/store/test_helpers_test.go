package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/procmigrate/internal/testutil"
)

var testStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a store in a temp dir with deterministic IDs and
// timestamps one second apart.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(testutil.NewFixedIDGenerator(ids...)),
		WithClock(testutil.NewStepClock(testStart, time.Second).Now),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
