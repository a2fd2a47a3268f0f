package fits

import "errors"

// ErrLocked is returned when another process holds the lock on a file.
var ErrLocked = errors.New("file is locked by another normalizer")

// AccessError reports an I/O failure on the image file or its lock.
type AccessError struct {
	Op   string
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
