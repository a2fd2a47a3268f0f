package fits

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rickbassham/fitsnorm/common"
)

// Decoder reads the primary header of a FITS stream card by card. Unlike
// fitsio it keeps repeated keywords, so it is the reader the normalizer uses.
type Decoder struct {
	rdr io.Reader
	n   int64
}

func NewDecoder(rdr io.Reader) *Decoder {
	return &Decoder{rdr: rdr}
}

// BytesRead is the size of the header consumed so far, a multiple of 2880
// once ReadHeader returns.
func (d *Decoder) BytesRead() int64 {
	return d.n
}

// ReadHeader reads whole header blocks up to and including the one holding
// END. The reader is left positioned at the first data byte.
func (d *Decoder) ReadHeader() (h common.Header, err error) {
	buf := make([]byte, blockSize)
	h = common.Header{}

	for cardNo := 0; ; {
		n, err := io.ReadFull(d.rdr, buf)
		d.n += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: missing END card", ErrMalformedHeader)
			}
			return nil, err
		}

		for off := 0; off < blockSize; off += cardSize {
			line := string(buf[off : off+cardSize])
			cardNo++

			card, end, err := parseCard(line)
			if err != nil {
				return nil, fmt.Errorf("card %d: %w", cardNo, err)
			}
			if end {
				if len(h) == 0 || h[0].Key != "SIMPLE" {
					return nil, fmt.Errorf("%w: primary header must start with SIMPLE", ErrMalformedHeader)
				}
				return h, nil
			}

			if card.Commentary && card.Key == "CONTINUE" && continues(h) {
				if err := appendContinue(&h[len(h)-1], line); err != nil {
					return nil, fmt.Errorf("card %d: %w", cardNo, err)
				}
				continue
			}

			h = append(h, card)
		}
	}
}

// continues reports whether the last card is a long string awaiting a
// CONTINUE card.
func continues(h common.Header) bool {
	if len(h) == 0 || h[len(h)-1].Commentary {
		return false
	}
	s, ok := h[len(h)-1].Value.(string)
	return ok && strings.HasSuffix(s, "&")
}

func appendContinue(c *common.Card, line string) error {
	value, comment, err := parseValue(line[10:])
	if err != nil {
		return fmt.Errorf("%w: CONTINUE: %s", ErrMalformedHeader, err.Error())
	}

	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: CONTINUE without string value", ErrMalformedHeader)
	}

	prev := c.Value.(string)
	c.Value = prev[:len(prev)-1] + s
	if comment != "" {
		c.Comment = strings.TrimSpace(c.Comment + " " + comment)
	}

	return nil
}
