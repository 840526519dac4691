package artifact

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDir = "ConvertedProcedures"

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	return NewStore(fsys, testDir), fsys
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name      string
		procedure string
		want      string
	}{
		{"plain", "GetOrders", "GetOrders.sql"},
		{"schema qualified stays dotted", "dbo.GetOrders", "dbo.GetOrders.sql"},
		{"slash replaced", "a/b", "a_b.sql"},
		{"backslash replaced", `a\b`, "a_b.sql"},
		{"decomposed accent composed", "Cafe\u0301", "Caf\u00e9.sql"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.procedure))
		})
	}
}

func TestStore_SaveLoadExists(t *testing.T) {
	s, _ := newTestStore(t)

	ok, err := s.Exists("GetOrders")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save("GetOrders", "first"))
	require.NoError(t, s.Save("GetOrders", "second"))

	ok, err = s.Exists("GetOrders")
	require.NoError(t, err)
	assert.True(t, ok)

	text, err := s.Load("GetOrders")
	require.NoError(t, err)
	assert.Equal(t, "second", text)

	require.NoError(t, s.Remove("GetOrders"))
	ok, err = s.Exists("GetOrders")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SaveLeavesNoTempFile(t *testing.T) {
	s, fsys := newTestStore(t)
	require.NoError(t, s.Save("GetOrders", "body"))

	ok, err := afero.Exists(fsys, filepath.Join(testDir, "GetOrders.sql.tmp"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PendingMissingDir(t *testing.T) {
	s, _ := newTestStore(t)
	files, err := s.Pending()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStore_PendingFiltersAndSorts(t *testing.T) {
	s, fsys := newTestStore(t)
	require.NoError(t, s.Save("b", "x"))
	require.NoError(t, s.Save("a", "x"))
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(testDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(testDir, "accept", "c.sql"), []byte("x"), 0o644))

	files, err := s.Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.sql", "b.sql"}, files)
}

func TestStore_RelocateIsExclusive(t *testing.T) {
	s, fsys := newTestStore(t)

	// Leftovers from an earlier run in two other partitions.
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(testDir, "decline", "p.sql"), []byte("old"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(testDir, "acceptWithGpt", "p.sql"), []byte("old"), 0o644))
	require.NoError(t, s.Save("p", "new"))

	dst, err := s.Relocate("p.sql", Accepted)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(testDir, "accept", "p.sql"), dst)

	data, err := afero.ReadFile(fsys, dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	for _, p := range []Partition{AcceptedWithCorrection, Declined} {
		ok, err := afero.Exists(fsys, filepath.Join(testDir, string(p), "p.sql"))
		require.NoError(t, err)
		assert.False(t, ok, "partition %s still holds p.sql", p)
	}

	pending, err := s.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	part, ok, err := s.Locate("p.sql")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Accepted, part)
}

func TestStore_RelocateOverwritesSamePartition(t *testing.T) {
	s, fsys := newTestStore(t)
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(testDir, "decline", "p.sql"), []byte("old"), 0o644))
	require.NoError(t, s.Save("p", "new"))

	dst, err := s.Relocate("p.sql", Declined)
	require.NoError(t, err)

	data, err := afero.ReadFile(fsys, dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestStore_RelocateMissingFile(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Relocate("ghost.sql", Accepted)
	require.Error(t, err)
}

func TestStore_LocateNone(t *testing.T) {
	s, _ := newTestStore(t)
	_, ok, err := s.Locate("p.sql")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Archive(t *testing.T) {
	s, fsys := newTestStore(t)
	require.NoError(t, s.Save("GetOrders", "orders"))
	require.NoError(t, s.Save("GetUsers", "users"))

	now := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	path, err := s.Archive(now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(testDir, "ConvertedProcedures_2024-05-01_12-30-45.zip"), path)

	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	got := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		got[f.Name] = string(body)
	}
	assert.Equal(t, map[string]string{"GetOrders.sql": "orders", "GetUsers.sql": "users"}, got)

	// Sources stay in place and the archive is not itself pending.
	pending, err := s.Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{"GetOrders.sql", "GetUsers.sql"}, pending)
}

func TestStore_ArchiveNothing(t *testing.T) {
	s, _ := newTestStore(t)
	path, err := s.Archive(time.Now())
	require.NoError(t, err)
	assert.Empty(t, path)
}
