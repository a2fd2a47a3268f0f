package fits

import (
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock is an advisory lock held on a sidecar file next to an image.
type Lock struct {
	fl *flock.Flock
}

func LockPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".lock")
}

// TryLock acquires the lock for path without waiting. A lock held elsewhere
// yields an AccessError wrapping ErrLocked.
func TryLock(path string) (*Lock, error) {
	fl := flock.New(LockPath(path))

	ok, err := fl.TryLock()
	if err != nil {
		return nil, &AccessError{Op: "lock", Path: path, Err: err}
	}
	if !ok {
		return nil, &AccessError{Op: "lock", Path: path, Err: ErrLocked}
	}

	return &Lock{fl: fl}, nil
}

// Unlock releases the lock. The sidecar is left in place; its inode is what
// every process locks.
func (l *Lock) Unlock() error {
	return l.fl.Unlock()
}
