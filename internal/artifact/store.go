package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"
)

// Extension is the suffix of artifact files.
const Extension = ".sql"

// Partition is a terminal location for an applied artifact.
type Partition string

const (
	Accepted               Partition = "accept"
	AcceptedWithCorrection Partition = "acceptWithGpt"
	Declined               Partition = "decline"
)

// Partitions lists every terminal partition.
var Partitions = []Partition{Accepted, AcceptedWithCorrection, Declined}

// Store reads and writes artifacts under one working directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore returns a store rooted at dir on fsys.
func NewStore(fsys afero.Fs, dir string) *Store {
	return &Store{fs: fsys, dir: dir}
}

// NewOSStore returns a store on the local filesystem.
func NewOSStore(dir string) *Store {
	return NewStore(afero.NewOsFs(), dir)
}

// Dir returns the working directory.
func (s *Store) Dir() string {
	return s.dir
}

// FileName maps a procedure name to its artifact file name. Names are NFC
// normalized so composed and decomposed spellings share one file, and path
// separators are replaced.
func FileName(procedure string) string {
	name := norm.NFC.String(procedure)
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	return name + Extension
}

// Path returns the working-directory path of procedure's artifact.
func (s *Store) Path(procedure string) string {
	return filepath.Join(s.dir, FileName(procedure))
}

// Exists reports whether procedure has an uncategorized artifact.
func (s *Store) Exists(procedure string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.Path(procedure))
	if err != nil {
		return false, fmt.Errorf("stat artifact %s: %w", procedure, err)
	}
	return ok, nil
}

// Load returns procedure's artifact text.
func (s *Store) Load(procedure string) (string, error) {
	return s.ReadFile(FileName(procedure))
}

// Save writes procedure's artifact, replacing any previous one.
func (s *Store) Save(procedure, text string) error {
	return s.WriteFile(FileName(procedure), text)
}

// Remove deletes procedure's artifact.
func (s *Store) Remove(procedure string) error {
	if err := s.fs.Remove(s.Path(procedure)); err != nil {
		return fmt.Errorf("remove artifact %s: %w", procedure, err)
	}
	return nil
}

// Pending lists the uncategorized artifact files, sorted by name.
// A missing working directory has no pending files.
func (s *Store) Pending() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Extension {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}

// ReadFile returns the text of an uncategorized artifact file.
func (s *Store) ReadFile(file string) (string, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, file))
	if err != nil {
		return "", fmt.Errorf("read artifact %s: %w", file, err)
	}
	return string(data), nil
}

// WriteFile replaces the content of an uncategorized artifact file.
func (s *Store) WriteFile(file, text string) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(s.dir, file)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", file, err)
	}
	if err := s.replace(tmp, path); err != nil {
		return fmt.Errorf("write artifact %s: %w", file, err)
	}
	return nil
}

// Relocate moves an uncategorized artifact file into partition p and returns
// its new path. A same-named file in any other partition is removed first,
// so a file is never present in two partitions.
func (s *Store) Relocate(file string, p Partition) (string, error) {
	dstDir := filepath.Join(s.dir, string(p))
	if err := s.fs.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("create partition %s: %w", p, err)
	}

	for _, other := range Partitions {
		if other == p {
			continue
		}
		stale := filepath.Join(s.dir, string(other), file)
		if err := s.fs.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("remove stale %s/%s: %w", other, file, err)
		}
	}

	dst := filepath.Join(dstDir, file)
	if err := s.replace(filepath.Join(s.dir, file), dst); err != nil {
		return "", fmt.Errorf("relocate %s to %s: %w", file, p, err)
	}
	return dst, nil
}

// Locate reports which partition holds file, if any.
func (s *Store) Locate(file string) (Partition, bool, error) {
	for _, p := range Partitions {
		ok, err := afero.Exists(s.fs, filepath.Join(s.dir, string(p), file))
		if err != nil {
			return "", false, err
		}
		if ok {
			return p, true, nil
		}
	}
	return "", false, nil
}

// replace renames src over dst, removing dst first.
func (s *Store) replace(src, dst string) error {
	if err := s.fs.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return s.fs.Rename(src, dst)
}
