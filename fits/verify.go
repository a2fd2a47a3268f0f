package fits

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/rickbassham/fitsnorm/common"
)

// ReadKeywords reads the primary header through fitsio. fitsio keeps one card
// per keyword, so this is a view of the header as downstream tools see it.
func ReadKeywords(rdr io.Reader) (common.Header, error) {
	var raw bytes.Buffer
	if _, err := NewDecoder(io.TeeReader(rdr, &raw)).ReadHeader(); err != nil {
		return nil, err
	}

	hdr, err := decodePrimary(raw.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	keys := hdr.Keys()

	h := make(common.Header, 0, len(keys))

	for _, key := range keys {
		card := hdr.Get(key)
		if card == nil {
			continue
		}

		h = append(h, common.Card{Key: key, Value: fromFitsio(card.Value), Comment: card.Comment})
	}

	return h, nil
}

// Verify parses the header blocks read from rdr with fitsio and checks that
// every keyword of want survived the rewrite. The data unit is not consulted.
func Verify(rdr io.Reader, want common.Header) error {
	var raw bytes.Buffer
	if _, err := NewDecoder(io.TeeReader(rdr, &raw)).ReadHeader(); err != nil {
		return err
	}

	hdr, err := decodePrimary(raw.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	for _, key := range want.Keys() {
		if structural(key) {
			continue
		}
		if hdr.Get(key) == nil {
			return fmt.Errorf("%w: keyword %s missing after rewrite", ErrMalformedHeader, key)
		}
	}

	return nil
}

// decodePrimary runs fitsio over header, whole blocks ending with END. fitsio
// insists on reading the data unit as well, so it is fed zeros in its place.
func decodePrimary(header []byte) (*fitsio.Header, error) {
	hdu, err := fitsio.NewDecoder(io.MultiReader(bytes.NewReader(header), zeros{})).DecodeHDU()
	if err != nil {
		return nil, err
	}
	defer hdu.Close()

	return hdu.Header(), nil
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// structural keywords are consumed by fitsio itself and may not be listed
// among the header cards.
func structural(key string) bool {
	switch key {
	case "SIMPLE", "BITPIX", "EXTEND", "PCOUNT", "GCOUNT", "END":
		return true
	}
	return strings.HasPrefix(key, "NAXIS")
}

func fromFitsio(v interface{}) interface{} {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case complex64:
		return complex128(v)
	}
	return v
}
