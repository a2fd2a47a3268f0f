package xisf

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rickbassham/fitsnorm/common"
)

var stringRegex = regexp.MustCompile(`^'.*'$`)
var integerRegex = regexp.MustCompile(`^[\+\-]?\d+$`)

var ErrInvalidSignature = errors.New("invalid XISF signature")

type FITSKeyword struct {
	XMLName xml.Name `xml:"FITSKeyword"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:"value,attr"`
	Comment string   `xml:"comment,attr"`
}

type Image struct {
	XMLName      xml.Name      `xml:"Image"`
	FITSKeywords []FITSKeyword `xml:"FITSKeyword"`
}

type Xisf struct {
	XMLName xml.Name `xml:"xisf"`
	Image   Image    `xml:"Image"`
}

// Decoder reads the FITS keywords embedded in a monolithic XISF file.
type Decoder struct {
	rdr io.Reader
}

func NewDecoder(rdr io.Reader) *Decoder {
	return &Decoder{rdr: rdr}
}

func (d *Decoder) checkSignature() error {
	signature := make([]byte, 8)

	if _, err := io.ReadFull(d.rdr, signature); err != nil {
		return err
	}

	if !bytes.Equal([]byte("XISF0100"), signature) {
		return ErrInvalidSignature
	}

	return nil
}

func (d *Decoder) getHeaderLength() (uint32, error) {
	headerLengthBytes := make([]byte, 4)

	if _, err := io.ReadFull(d.rdr, headerLengthBytes); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(headerLengthBytes), nil
}

func (d *Decoder) skipReserved(count int64) error {
	_, err := io.CopyN(io.Discard, d.rdr, count)
	return err
}

// ReadHeader returns the image's FITS keywords in document order. Repeated
// keywords are kept.
func (d *Decoder) ReadHeader() (h common.Header, err error) {
	err = d.checkSignature()
	if err != nil {
		return h, err
	}

	headerLen, err := d.getHeaderLength()
	if err != nil {
		return h, err
	}

	err = d.skipReserved(4)
	if err != nil {
		return h, err
	}

	rawHeader := make([]byte, headerLen)

	if _, err = io.ReadFull(d.rdr, rawHeader); err != nil {
		return h, err
	}

	img := Xisf{}

	err = xml.Unmarshal(rawHeader, &img)
	if err != nil {
		return h, err
	}

	h = make(common.Header, 0, len(img.Image.FITSKeywords))

	for _, kw := range img.Image.FITSKeywords {
		card := common.Card{Key: kw.Name, Comment: strings.TrimSpace(kw.Comment)}

		if common.IsCommentaryKey(kw.Name) {
			card.Value = kw.Comment
			card.Comment = ""
			card.Commentary = true
			h = append(h, card)
			continue
		}

		card.Value = parseValue(kw.Value)

		h = append(h, card)
	}

	return h, nil
}

func parseValue(raw string) interface{} {
	value := strings.TrimSpace(raw)

	switch {
	case len(value) == 0:
		return nil
	case stringRegex.MatchString(value) && len(value) >= 2:
		s := value[1 : len(value)-1]
		return strings.TrimRight(strings.ReplaceAll(s, "''", "'"), " ")
	case integerRegex.MatchString(value):
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	case value == "T":
		return true
	case value == "F":
		return false
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		// not a FITS literal; keep the text so it still takes part in comparisons
		return value
	}

	return val
}
