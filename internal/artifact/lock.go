package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFile is created in the working directory while a run holds it.
const LockFile = ".procmigrate.lock"

// ErrLocked is returned when another process holds the working directory.
var ErrLocked = errors.New("artifact directory is locked by another run")

// Lock takes an exclusive, non-blocking lock on dir and returns the function
// releasing it. The lock lives on the OS filesystem regardless of the Fs a
// Store uses.
func Lock(dir string) (func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	fl := flock.New(filepath.Join(dir, LockFile))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return fl.Unlock, nil
}
