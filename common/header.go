package common

import (
	"fmt"
	"strings"
)

// Card is a single header entry. Value holds nil (undefined), bool, int64,
// float64, complex128 or string.
type Card struct {
	Key     string
	Value   interface{}
	Comment string

	// Commentary cards (COMMENT, HISTORY, blank keyword, cards without a
	// value indicator) carry free text in Value and are never deduplicated.
	Commentary bool
}

func (c Card) String() string {
	if c.Commentary {
		return fmt.Sprintf("%-8s%v", c.Key, c.Value)
	}
	if c.Comment == "" {
		return fmt.Sprintf("%-8s= %s", c.Key, FormatValue(c.Value))
	}
	return fmt.Sprintf("%-8s= %s / %s", c.Key, FormatValue(c.Value), c.Comment)
}

// Header is an ordered list of cards. Keys are not guaranteed unique.
type Header []Card

// Index returns the position of the first keyed card named key, or -1.
func (h Header) Index(key string) int {
	for i := range h {
		if !h[i].Commentary && h[i].Key == key {
			return i
		}
	}
	return -1
}

func (h Header) Has(key string) bool {
	return h.Index(key) >= 0
}

// Get returns the value of the first card named key.
func (h Header) Get(key string) (interface{}, bool) {
	i := h.Index(key)
	if i < 0 {
		return nil, false
	}
	return h[i].Value, true
}

// Count returns how many keyed cards are named key.
func (h Header) Count(key string) int {
	n := 0
	for i := range h {
		if !h[i].Commentary && h[i].Key == key {
			n++
		}
	}
	return n
}

// Delete removes every keyed card named key and reports how many were removed.
func (h *Header) Delete(key string) int {
	out := (*h)[:0]
	removed := 0
	for _, c := range *h {
		if !c.Commentary && c.Key == key {
			removed++
			continue
		}
		out = append(out, c)
	}
	*h = out
	return removed
}

// Set overwrites the value and comment of the first card named key, or
// appends a new card when there is none.
func (h *Header) Set(key string, value interface{}, comment string) {
	if i := h.Index(key); i >= 0 {
		(*h)[i].Value = value
		(*h)[i].Comment = comment
		return
	}
	*h = append(*h, Card{Key: key, Value: value, Comment: comment})
}

// Update applies Set for each card in order.
func (h *Header) Update(cards ...Card) {
	for _, c := range cards {
		if c.Commentary {
			*h = append(*h, c)
			continue
		}
		h.Set(c.Key, c.Value, c.Comment)
	}
}

// Keys lists keyed card names in first-seen order without repeats.
func (h Header) Keys() []string {
	seen := make(map[string]bool, len(h))
	keys := make([]string, 0, len(h))
	for _, c := range h {
		if c.Commentary || seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		keys = append(keys, c.Key)
	}
	return keys
}

// Clone returns a copy that shares no backing array with h.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	copy(out, h)
	return out
}

func (h Header) String() string {
	var b strings.Builder
	for _, c := range h {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}
