package fits

import (
	"fmt"
	"io"
	"strings"

	"github.com/rickbassham/fitsnorm/common"
)

type Encoder struct {
	w         io.Writer
	truncated []string
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteHeader writes h followed by END, padded with blanks to a whole number
// of 2880 byte blocks.
func (e *Encoder) WriteHeader(h common.Header) error {
	if len(h) == 0 || h[0].Key != "SIMPLE" || h[0].Commentary {
		return fmt.Errorf("%w: primary header must start with SIMPLE", ErrMalformedHeader)
	}

	e.truncated = nil

	var b strings.Builder
	for _, c := range h {
		cards, clipped, err := formatCard(c)
		if err != nil {
			return err
		}
		if clipped {
			e.truncated = append(e.truncated, c.Key)
		}
		for _, card := range cards {
			b.WriteString(card)
		}
	}

	b.WriteString(pad("END"))
	if rem := b.Len() % blockSize; rem != 0 {
		b.WriteString(strings.Repeat(" ", blockSize-rem))
	}

	_, err := io.WriteString(e.w, b.String())
	return err
}

// Truncated lists the keywords whose comment the last WriteHeader had to cut
// short to fit in 80 columns.
func (e *Encoder) Truncated() []string {
	return e.truncated
}
