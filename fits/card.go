package fits

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rickbassham/fitsnorm/common"
)

const (
	blockSize = 2880
	cardSize  = 80

	// maxStringChunk leaves room for the quotes and the trailing '&' of a
	// long-string card that starts in column 11.
	maxStringChunk = 67
)

var (
	ErrMalformedHeader = errors.New("malformed FITS header")

	integerRegex = regexp.MustCompile(`^[\+\-]?\d+$`)
	realRegex    = regexp.MustCompile(`^[\+\-]?(\d+\.?\d*|\.\d+)([EeDd][\+\-]?\d+)?$`)
	keywordRegex = regexp.MustCompile(`^[A-Z0-9_\-]{1,8}$`)
)

// parseCard decodes one 80 byte card image. end is true for the END card.
func parseCard(line string) (c common.Card, end bool, err error) {
	key := strings.TrimRight(line[:8], " ")

	if key == "END" && strings.TrimSpace(line[8:]) == "" {
		return c, true, nil
	}

	if common.IsCommentaryKey(key) || line[8:10] != "= " {
		return common.Card{
			Key:        key,
			Value:      strings.TrimRight(line[8:], " "),
			Commentary: true,
		}, false, nil
	}

	if !keywordRegex.MatchString(key) {
		return c, false, fmt.Errorf("%w: invalid keyword %q", ErrMalformedHeader, key)
	}

	value, comment, err := parseValue(line[10:])
	if err != nil {
		return c, false, fmt.Errorf("%w: keyword %s: %s", ErrMalformedHeader, key, err.Error())
	}

	return common.Card{Key: key, Value: value, Comment: comment}, false, nil
}

// parseValue decodes the value/comment field of a keyed card (columns 11-80).
func parseValue(field string) (interface{}, string, error) {
	s := strings.TrimLeft(field, " ")

	if s == "" {
		return nil, "", nil
	}

	var (
		value interface{}
		rest  string
	)

	switch s[0] {
	case '/':
		return nil, strings.TrimSpace(s[1:]), nil

	case '\'':
		str, n, err := parseQuoted(s)
		if err != nil {
			return nil, "", err
		}
		value, rest = str, s[n:]

	case '(':
		closing := strings.IndexByte(s, ')')
		if closing < 0 {
			return nil, "", errors.New("unterminated complex value")
		}
		parts := strings.Split(s[1:closing], ",")
		if len(parts) != 2 {
			return nil, "", fmt.Errorf("invalid complex value %q", s[:closing+1])
		}
		re, err := parseReal(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, "", err
		}
		im, err := parseReal(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, "", err
		}
		value, rest = complex(re, im), s[closing+1:]

	default:
		token := s
		if slash := strings.IndexByte(s, '/'); slash >= 0 {
			token, rest = s[:slash], s[slash:]
		}
		token = strings.TrimSpace(token)

		switch {
		case token == "":
			value = nil
		case token == "T":
			value = true
		case token == "F":
			value = false
		case integerRegex.MatchString(token):
			n, err := strconv.ParseInt(token, 10, 64)
			if err != nil {
				f, ferr := parseReal(token)
				if ferr != nil {
					return nil, "", err
				}
				value = f
				break
			}
			value = n
		default:
			f, err := parseReal(token)
			if err != nil {
				return nil, "", err
			}
			value = f
		}
	}

	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "/") {
		rest = rest[1:]
	}

	return value, strings.TrimSpace(rest), nil
}

// parseQuoted reads a quoted string starting at s[0] and returns the
// unescaped text with trailing blanks removed and the bytes consumed.
func parseQuoted(s string) (string, int, error) {
	var b strings.Builder

	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return strings.TrimRight(b.String(), " "), i + 1, nil
	}

	return "", 0, errors.New("unterminated string value")
}

func parseReal(token string) (float64, error) {
	if !realRegex.MatchString(token) {
		return 0, fmt.Errorf("invalid value %q", token)
	}

	token = strings.Replace(strings.Replace(token, "D", "E", 1), "d", "e", 1)

	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", token)
	}

	return f, nil
}

// formatCard renders a card into one or more 80 byte card images. clipped
// reports that the comment had to be cut at column 80.
func formatCard(c common.Card) (cards []string, clipped bool, err error) {
	if c.Commentary {
		cards, err = formatCommentary(c)
		return cards, false, err
	}

	if !keywordRegex.MatchString(c.Key) {
		return nil, false, fmt.Errorf("%w: invalid keyword %q", ErrMalformedHeader, c.Key)
	}

	if err := checkText(c.Comment); err != nil {
		return nil, false, fmt.Errorf("%w: keyword %s comment: %s", ErrMalformedHeader, c.Key, err.Error())
	}

	if s, ok := c.Value.(string); ok {
		if err := checkText(s); err != nil {
			return nil, false, fmt.Errorf("%w: keyword %s: %s", ErrMalformedHeader, c.Key, err.Error())
		}
		cards, clipped = formatString(c.Key, s, c.Comment)
		return cards, clipped, nil
	}

	var value string
	switch v := c.Value.(type) {
	case nil:
		value = ""
	case bool, int64:
		value = common.FormatValue(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false, fmt.Errorf("%w: keyword %s: non-finite value", ErrMalformedHeader, c.Key)
		}
		value = common.FormatValue(v)
	case complex128:
		value = common.FormatValue(v)
	default:
		return nil, false, fmt.Errorf("%w: keyword %s: unsupported value type %T", ErrMalformedHeader, c.Key, v)
	}

	// fixed format right-justifies to column 30; free format starts in
	// column 11 and leaves more room for the comment
	card, clipped := withComment(c.Comment,
		fmt.Sprintf("%-8s= %20s", c.Key, value),
		fmt.Sprintf("%-8s= %s", c.Key, value),
	)

	return []string{card}, clipped, nil
}

func formatCommentary(c common.Card) ([]string, error) {
	if len(c.Key) > 8 {
		return nil, fmt.Errorf("%w: invalid keyword %q", ErrMalformedHeader, c.Key)
	}

	text := fmt.Sprint(c.Value)
	if c.Value == nil {
		text = ""
	}
	if err := checkText(text); err != nil {
		return nil, fmt.Errorf("%w: %s card: %s", ErrMalformedHeader, c.Key, err.Error())
	}

	var cards []string
	for {
		chunk := text
		if len(chunk) > cardSize-8 {
			chunk = text[:cardSize-8]
		}
		cards = append(cards, pad(fmt.Sprintf("%-8s%s", c.Key, chunk)))
		text = text[len(chunk):]
		if text == "" || !common.IsCommentaryKey(c.Key) {
			return cards, nil
		}
	}
}

// formatString writes a string value, splitting it over CONTINUE cards when
// it does not fit in a single card.
func formatString(key, value, comment string) ([]string, bool) {
	escaped := strings.ReplaceAll(value, "'", "''")

	if len(escaped) <= cardSize-12 {
		card, clipped := withComment(comment,
			fmt.Sprintf("%-8s= '%-8s'", key, escaped),
			fmt.Sprintf("%-8s= '%s'", key, escaped),
		)
		return []string{card}, clipped
	}

	var chunks []string
	for len(escaped) > maxStringChunk {
		n := maxStringChunk
		// keep escaped quote pairs on one card
		if quotes := len(escaped[:n]) - len(strings.TrimRight(escaped[:n], "'")); quotes%2 == 1 {
			n--
		}
		chunks = append(chunks, escaped[:n])
		escaped = escaped[n:]
	}
	chunks = append(chunks, escaped)

	cards := make([]string, 0, len(chunks))
	clipped := false
	for i, chunk := range chunks {
		prefix := fmt.Sprintf("%-8s= ", key)
		if i > 0 {
			prefix = "CONTINUE  "
		}
		if i < len(chunks)-1 {
			cards = append(cards, pad(prefix+"'"+chunk+"&'"))
			continue
		}
		var card string
		card, clipped = withComment(comment, prefix+"'"+chunk+"'")
		cards = append(cards, card)
	}

	return cards, clipped
}

// withComment appends comment to the first layout that leaves room for it,
// trying the compact "/" separator on the last layout before giving up. When
// nothing fits the comment is cut at column 80 and clipped is true.
func withComment(comment string, layouts ...string) (card string, clipped bool) {
	if comment == "" {
		return pad(layouts[0]), false
	}

	for _, layout := range layouts {
		if len(layout)+len(" / ")+len(comment) <= cardSize {
			return pad(layout + " / " + comment), false
		}
	}

	last := layouts[len(layouts)-1]
	if len(last)+len("/")+len(comment) <= cardSize {
		return pad(last + "/" + comment), false
	}

	return pad(last + " / " + comment), true
}

func pad(card string) string {
	if len(card) > cardSize {
		return card[:cardSize]
	}
	return card + strings.Repeat(" ", cardSize-len(card))
}

func checkText(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return fmt.Errorf("non-printable character 0x%02x", s[i])
		}
	}
	return nil
}
