package fits_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickbassham/fitsnorm/fits"
)

func TestTryLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "light.fits")

	lk, err := fits.TryLock(path)
	require.NoError(t, err)
	assert.FileExists(t, fits.LockPath(path))

	_, err = fits.TryLock(path)
	assert.ErrorIs(t, err, fits.ErrLocked)

	require.NoError(t, lk.Unlock())
	assert.FileExists(t, fits.LockPath(path), "the sidecar outlives the lock")

	lk, err = fits.TryLock(path)
	require.NoError(t, err)
	require.NoError(t, lk.Unlock())
}

func TestLockPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", ".m31.fits.lock"), fits.LockPath(filepath.Join("data", "m31.fits")))
}
