// Package fitstest builds small FITS images for tests.
package fitstest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rickbassham/fitsnorm/common"
	"github.com/rickbassham/fitsnorm/fits"
)

// Width and Height of the 8-bit images written by WriteFile.
const (
	Width  = 4
	Height = 4
)

// Primary returns the mandatory cards of a 4x4 8-bit image followed by extra.
func Primary(extra ...common.Card) common.Header {
	h := common.Header{
		{Key: "SIMPLE", Value: true, Comment: "conforms to FITS standard"},
		{Key: "BITPIX", Value: int64(8), Comment: "array data type"},
		{Key: "NAXIS", Value: int64(2), Comment: "number of array dimensions"},
		{Key: "NAXIS1", Value: int64(Width)},
		{Key: "NAXIS2", Value: int64(Height)},
	}
	return append(h, extra...)
}

// Celestial returns a gnomonic RA/Dec coordinate system in its raw form.
func Celestial() []common.Card {
	return []common.Card{
		{Key: "CTYPE1", Value: "RA---TAN"},
		{Key: "CTYPE2", Value: "DEC--TAN"},
		{Key: "CRPIX1", Value: int64(2)},
		{Key: "CRPIX2", Value: int64(2)},
		{Key: "CRVAL1", Value: 10.6847},
		{Key: "CRVAL2", Value: 41.2687},
		{Key: "CDELT1", Value: -0.000277},
		{Key: "CDELT2", Value: 0.000277},
	}
}

// Data is the pixel block written after the header, padded to 2880 bytes.
func Data() []byte {
	data := make([]byte, 2880)
	for i := 0; i < Width*Height; i++ {
		data[i] = byte(i + 1)
	}
	return data
}

// Encode returns the header and Data as a FITS byte stream.
func Encode(t testing.TB, h common.Header) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, fits.NewEncoder(&buf).WriteHeader(h))
	buf.Write(Data())

	return buf.Bytes()
}

// WriteFile writes h and Data to name inside dir and returns the path.
func WriteFile(t testing.TB, dir, name string, h common.Header) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, Encode(t, h), 0o644))

	return path
}

// ReadHeader decodes the primary header of the file at path.
func ReadHeader(t testing.TB, path string) common.Header {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	h, err := fits.NewDecoder(f).ReadHeader()
	require.NoError(t, err)

	return h
}
