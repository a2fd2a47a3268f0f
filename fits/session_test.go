package fits_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickbassham/fitsnorm/common"
	"github.com/rickbassham/fitsnorm/fits"
	"github.com/rickbassham/fitsnorm/fitstest"
)

func TestSessionCommitRewritesHeaderAndKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := fitstest.WriteFile(t, dir, "light.fits", fitstest.Primary(
		common.Card{Key: "OBJECT", Value: "M31"},
	))

	s, err := fits.OpenUpdate(path)
	require.NoError(t, err)
	defer s.Close()

	h := s.Header()
	h.Set("OBJECT", "M33", "target")
	for i := 0; i < 40; i++ {
		h = append(h, common.Card{Key: "HISTORY", Value: "grows the header past one block", Commentary: true})
	}
	s.Replace(h)
	require.NoError(t, s.Commit())
	require.NoError(t, s.Close())

	assert.Equal(t, h, fitstest.ReadHeader(t, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 3*2880)
	assert.Equal(t, fitstest.Data(), raw[2*2880:])

	leftovers, err := filepath.Glob(filepath.Join(dir, ".*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp files must not survive a commit")
}

func TestSessionCloseWithoutCommitLeavesFile(t *testing.T) {
	path := fitstest.WriteFile(t, t.TempDir(), "light.fits", fitstest.Primary())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	s, err := fits.OpenUpdate(path)
	require.NoError(t, err)

	h := s.Header()
	h.Set("OBJECT", "M33", "")
	s.Replace(h)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.Error(t, s.Commit(), "a closed session cannot commit")
}

func TestSessionCommitRejectsBadHeader(t *testing.T) {
	dir := t.TempDir()
	path := fitstest.WriteFile(t, dir, "light.fits", fitstest.Primary())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	s, err := fits.OpenUpdate(path)
	require.NoError(t, err)
	defer s.Close()

	s.Replace(common.Header{{Key: "OBJECT", Value: "no SIMPLE first"}})
	err = s.Commit()
	assert.ErrorIs(t, err, fits.ErrMalformedHeader)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestOpenUpdateErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := fits.OpenUpdate(filepath.Join(dir, "missing.fits"))
	var ae *fits.AccessError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "open", ae.Op)
	assert.ErrorIs(t, err, os.ErrNotExist)

	junk := filepath.Join(dir, "junk.fits")
	require.NoError(t, os.WriteFile(junk, []byte("not a fits file"), 0o644))
	_, err = fits.OpenUpdate(junk)
	assert.ErrorIs(t, err, fits.ErrMalformedHeader)
}

func TestSessionCommitWithVerify(t *testing.T) {
	path := fitstest.WriteFile(t, t.TempDir(), "light.fits", fitstest.Primary(
		common.Card{Key: "OBJECT", Value: "M31"},
		common.Card{Key: "EXPTIME", Value: 300.0, Comment: "[s]"},
	))

	s, err := fits.OpenUpdate(path, fits.WithVerify(true))
	require.NoError(t, err)
	defer s.Close()

	h := s.Header()
	h.Set("DATE-OBS", "2024-01-01T12:30:45.123", "")
	s.Replace(h)
	require.NoError(t, s.Commit())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	kw, err := fits.ReadKeywords(f)
	require.NoError(t, err)
	assert.True(t, kw.Has("OBJECT"))
	assert.True(t, kw.Has("DATE-OBS"))
}

func TestSessionCommitWithVerifyUnpaddedData(t *testing.T) {
	dir := t.TempDir()
	raw := fitstest.Encode(t, fitstest.Primary(common.Card{Key: "OBJECT", Value: "M31"}))
	raw = raw[:len(raw)-2880+fitstest.Width*fitstest.Height]

	path := filepath.Join(dir, "short.fits")
	require.NoError(t, os.WriteFile(path, raw, 0o640))

	s, err := fits.OpenUpdate(path, fits.WithVerify(true))
	require.NoError(t, err)
	defer s.Close()

	h := s.Header()
	h.Set("OBJECT", "M33", "")
	s.Replace(h)
	require.NoError(t, s.Commit())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2880+fitstest.Width*fitstest.Height)
	assert.Equal(t, fitstest.Data()[:fitstest.Width*fitstest.Height], got[2880:])

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), fi.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(dir, ".*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestVerify(t *testing.T) {
	h := fitstest.Primary(common.Card{Key: "OBJECT", Value: "M31"})
	raw := fitstest.Encode(t, h)

	require.NoError(t, fits.Verify(bytes.NewReader(raw[:2880]), h))

	want := append(h.Clone(), common.Card{Key: "EXPTIME", Value: 300.0})
	err := fits.Verify(bytes.NewReader(raw), want)
	assert.ErrorIs(t, err, fits.ErrMalformedHeader)
	assert.Contains(t, err.Error(), "EXPTIME")
}
