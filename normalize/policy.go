package normalize

import (
	"strings"

	"github.com/rickbassham/fitsnorm/common"
	"github.com/rickbassham/fitsnorm/config"
)

// Resolution is the outcome of comparing a repeated keyword with its first
// occurrence.
type Resolution int

const (
	// Undecided lets the next rule (or the conflict error) handle the pair.
	Undecided Resolution = iota
	KeepFirst
	KeepSecond
)

func (r Resolution) String() string {
	switch r {
	case KeepFirst:
		return "keep-first"
	case KeepSecond:
		return "keep-second"
	default:
		return "undecided"
	}
}

// Rule decides between the first and a later card sharing one keyword.
type Rule func(first, second common.Card) Resolution

// Identical discards a repeat whose value and comment match the first card.
func Identical(first, second common.Card) Resolution {
	if common.ValuesEqual(first.Value, second.Value) && first.Comment == second.Comment {
		return KeepFirst
	}
	return Undecided
}

// LongestValue keeps the longer of two string values, the first on a tie.
// Used for dates, where a longer value carries more precision.
func LongestValue(first, second common.Card) Resolution {
	a, ok := common.AsString(first.Value)
	if !ok {
		return Undecided
	}
	b, ok := common.AsString(second.Value)
	if !ok {
		return Undecided
	}
	if len(b) > len(a) {
		return KeepSecond
	}
	return KeepFirst
}

// EqualValue discards a repeat with the same value, whatever its comment.
func EqualValue(first, second common.Card) Resolution {
	if common.ValuesEqual(first.Value, second.Value) {
		return KeepFirst
	}
	return Undecided
}

// Policy maps keywords to the rules tried, in order, after Identical.
type Policy struct {
	rules map[string][]Rule
}

func NewPolicy() *Policy {
	return &Policy{rules: map[string][]Rule{}}
}

// DefaultPolicy keeps the most precise DATE and tolerates CCD-TEMP repeats
// that differ only in their comment.
func DefaultPolicy() *Policy {
	d := config.Default().Policy
	return PolicyFor(d.PreciseDateKeywords, d.SensorTemperatureKeywords)
}

// PolicyFor builds the standard policy for the given keyword sets.
func PolicyFor(preciseDate, sensorTemperature []string) *Policy {
	p := NewPolicy()
	for _, key := range preciseDate {
		p.Register(key, LongestValue)
	}
	for _, key := range sensorTemperature {
		p.Register(key, EqualValue)
	}
	return p
}

func (p *Policy) Register(key string, rule Rule) {
	key = strings.ToUpper(strings.TrimSpace(key))
	p.rules[key] = append(p.rules[key], rule)
}

// Resolve applies Identical and then the rules registered for the keyword.
// A pair no rule decides is a *ConflictError.
func (p *Policy) Resolve(first, second common.Card) (Resolution, error) {
	if r := Identical(first, second); r != Undecided {
		return r, nil
	}

	for _, rule := range p.rules[first.Key] {
		if r := rule(first, second); r != Undecided {
			return r, nil
		}
	}

	return Undecided, &ConflictError{Key: first.Key, First: first.Value, Second: second.Value}
}

// Dedupe folds h into one card per keyword, in first-seen order, resolving
// repeats with p. Commentary cards pass through in place. It returns the
// number of cards dropped.
func Dedupe(p *Policy, h common.Header) (common.Header, int, error) {
	out := make(common.Header, 0, len(h))
	index := make(map[string]int, len(h))
	dropped := 0

	for _, c := range h {
		// COMMENT, HISTORY and HIERARCH cards repeat by nature; they are
		// never compared, even when their text differs.
		if c.Commentary {
			out = append(out, c)
			continue
		}

		i, seen := index[c.Key]
		if !seen {
			index[c.Key] = len(out)
			out = append(out, c)
			continue
		}

		r, err := p.Resolve(out[i], c)
		if err != nil {
			return nil, 0, err
		}
		if r == KeepSecond {
			out[i].Value, out[i].Comment = c.Value, c.Comment
		}
		dropped++
	}

	return out, dropped, nil
}
