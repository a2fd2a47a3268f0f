package fits

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/rickbassham/fitsnorm/common"
)

var errSessionDone = errors.New("session already committed or closed")

// Session is an open-for-update FITS file. The original file is only
// replaced by Commit; Close without Commit leaves it untouched.
type Session struct {
	path   string
	f      *os.File
	mode   os.FileMode
	dataAt int64

	header  common.Header
	pending common.Header

	tmp       *renameio.PendingFile
	truncated []string

	verify    bool
	committed bool
	closed    bool
}

type Option func(*Session)

// WithVerify makes Commit re-read the rewritten header with fitsio before it
// replaces the original.
func WithVerify(verify bool) Option {
	return func(s *Session) {
		s.verify = verify
	}
}

// OpenUpdate opens path read-write and decodes its primary header.
func OpenUpdate(path string, opts ...Option) (*Session, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &AccessError{Op: "open", Path: path, Err: err}
	}

	s := &Session{path: path, f: f}
	for _, opt := range opts {
		opt(s)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &AccessError{Op: "stat", Path: path, Err: err}
	}
	s.mode = fi.Mode().Perm()

	dec := NewDecoder(f)
	s.header, err = dec.ReadHeader()
	if err != nil {
		_ = f.Close()
		if errors.Is(err, ErrMalformedHeader) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, &AccessError{Op: "read", Path: path, Err: err}
	}
	s.dataAt = dec.BytesRead()

	return s, nil
}

// Header returns a copy of the header as read from disk.
func (s *Session) Header() common.Header {
	return s.header.Clone()
}

// Replace stages h as the new primary header.
func (s *Session) Replace(h common.Header) {
	s.pending = h.Clone()
}

// Truncated lists the keywords whose comment the last Commit cut short to
// fit in 80 columns.
func (s *Session) Truncated() []string {
	return s.truncated
}

// Commit writes the staged header and the untouched data that follows it to
// a pending file next to the original, then atomically renames it into place.
func (s *Session) Commit() (err error) {
	if s.committed || s.closed {
		return errSessionDone
	}

	h := s.pending
	if h == nil {
		h = s.header
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.WriteHeader(h); err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}

	s.tmp, err = renameio.NewPendingFile(s.path,
		renameio.WithTempDir(filepath.Dir(s.path)),
		renameio.WithStaticPermissions(s.mode),
	)
	if err != nil {
		return &AccessError{Op: "create", Path: s.path, Err: err}
	}
	defer func() {
		if err != nil {
			_ = s.discard()
		}
	}()

	if _, err = s.tmp.Write(buf.Bytes()); err != nil {
		return &AccessError{Op: "write", Path: s.tmp.Name(), Err: err}
	}
	if _, err = s.f.Seek(s.dataAt, io.SeekStart); err != nil {
		return &AccessError{Op: "seek", Path: s.path, Err: err}
	}
	if _, err = io.Copy(s.tmp, s.f); err != nil {
		return &AccessError{Op: "copy", Path: s.path, Err: err}
	}

	if s.verify {
		if _, err = s.tmp.Seek(0, io.SeekStart); err != nil {
			return &AccessError{Op: "seek", Path: s.tmp.Name(), Err: err}
		}
		if err = Verify(s.tmp, h); err != nil {
			return fmt.Errorf("%s: %w", s.path, err)
		}
	}

	if err = s.close(); err != nil {
		return &AccessError{Op: "close", Path: s.path, Err: err}
	}
	if err = s.tmp.CloseAtomicallyReplace(); err != nil {
		return &AccessError{Op: "rename", Path: s.path, Err: err}
	}

	s.tmp = nil
	s.committed = true
	s.header, s.pending = h, nil
	s.truncated = enc.Truncated()

	return nil
}

// Close releases the file handle and removes a pending file left by a failed
// Commit. It is safe to call more than once.
func (s *Session) Close() error {
	derr := s.discard()
	if err := s.close(); err != nil {
		return &AccessError{Op: "close", Path: s.path, Err: err}
	}
	if derr != nil {
		return &AccessError{Op: "cleanup", Path: s.path, Err: derr}
	}
	return nil
}

func (s *Session) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}

func (s *Session) discard() error {
	if s.tmp == nil {
		return nil
	}
	err := s.tmp.Cleanup()
	s.tmp = nil
	return err
}
