// Package idgen generates prefixed, zero-padded sequential identifiers such as
// vin_doc_0001 or SKU001.
//
// Next is pure: it derives the following id from the greatest existing one.
// Sequence binds Next to a storage lookup. Two callers reading the same last id
// will produce the same candidate; the storage unique constraint rejects the
// loser, which is expected to retry with a freshly generated id.
package idgen

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultWidth is the zero-padding width of document and human-readable ids.
const DefaultWidth = 4

// Lookup returns the greatest existing id with the given prefix, ordered by
// length first and then lexicographically, or "" when none exists.
type Lookup interface {
	LastID(ctx context.Context, prefix string) (string, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, prefix string) (string, error)

func (f LookupFunc) LastID(ctx context.Context, prefix string) (string, error) {
	return f(ctx, prefix)
}

// Next returns the id following last.
//
// An empty last yields prefix + 1 padded to width. A suffix that is not purely
// numeric falls back to the unix millisecond timestamp of now, so a corrupted
// row never blocks id allocation and retries a few milliseconds apart get
// distinct candidates.
func Next(prefix, last string, width int, now time.Time) string {
	if last == "" {
		return format(prefix, 1, width)
	}
	n, ok := ParseSuffix(prefix, last)
	if !ok {
		return prefix + strconv.FormatInt(now.UnixMilli(), 10)
	}
	return format(prefix, n+1, width)
}

// ParseSuffix extracts the numeric suffix of id. It reports false when id does
// not carry prefix or the remainder contains anything but ASCII digits.
func ParseSuffix(prefix, id string) (uint64, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	suffix := id[len(prefix):]
	if suffix == "" {
		return 0, false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(suffix, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func format(prefix string, n uint64, width int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}

// Sequence is one numbering domain.
type Sequence struct {
	Prefix string
	Width  int
	Lookup Lookup
	Now    func() time.Time
}

// Next allocates the next candidate id for the sequence.
func (s Sequence) Next(ctx context.Context) (string, error) {
	last, err := s.Lookup.LastID(ctx, s.Prefix)
	if err != nil {
		return "", fmt.Errorf("lookup last id for %q: %w", s.Prefix, err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	width := s.Width
	if width <= 0 {
		width = DefaultWidth
	}
	return Next(s.Prefix, last, width, now()), nil
}
