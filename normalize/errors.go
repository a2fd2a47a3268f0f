package normalize

import (
	"errors"
	"fmt"

	"github.com/rickbassham/fitsnorm/common"
	"github.com/rickbassham/fitsnorm/fits"
	"github.com/rickbassham/fitsnorm/wcs"
)

var (
	ErrDuplicateKeywordConflict = errors.New("duplicate keyword conflict")
	ErrMissingCoordinateData    = wcs.ErrMissingCoordinateData
	ErrInvalidCoordinateData    = wcs.ErrInvalidCoordinateData
	ErrMalformedHeader          = fits.ErrMalformedHeader
	ErrLocked                   = fits.ErrLocked
)

// ConflictError names a keyword repeated with values no rule reconciles.
type ConflictError struct {
	Key    string
	First  interface{}
	Second interface{}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate keyword %s found in header, with different values %s and %s",
		e.Key, common.FormatValue(e.First), common.FormatValue(e.Second))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrDuplicateKeywordConflict
}

// IsAccessError reports whether err came from file I/O or locking.
func IsAccessError(err error) bool {
	var ae *fits.AccessError
	return errors.As(err, &ae)
}
