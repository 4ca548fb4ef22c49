// Package numbering assigns human-readable document numbers of the form
// PREFIX-YYYYMMDD-NNN, unique per entry kind and monotonically increasing
// within a calendar day.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store is the storage the generator checks candidates against.
type Store interface {
	CountEntriesOnDate(ctx context.Context, kind string, date time.Time) (int64, error)
	NumberExists(ctx context.Context, number string) (bool, error)
}

// ErrExhausted indicates the retry loop gave up finding a free suffix.
var ErrExhausted = errors.New("numbering: no free number found")

// maxProbes bounds the collision loop. The suffix is unbounded in format
// (%03d grows past 999), so this only guards against a broken store.
const maxProbes = 10000

// Generator produces document numbers for one entry kind.
type Generator struct {
	prefix string
	kind   string
	store  Store
}

// NewGenerator builds a Generator for the given prefix and entry kind.
func NewGenerator(prefix, kind string, store Store) *Generator {
	return &Generator{prefix: prefix, kind: kind, store: store}
}

// Next returns the next free number for the given effective date. The
// starting suffix is (count of entries dated that day)+1; each candidate is
// checked against storage and bumped on collision. This is a best-effort
// loop, not a transactional reservation: a concurrent writer can still take
// the candidate between the check and the insert, in which case the caller
// sees a unique-constraint conflict and retries.
func (g *Generator) Next(ctx context.Context, date time.Time) (string, error) {
	count, err := g.store.CountEntriesOnDate(ctx, g.kind, date)
	if err != nil {
		return "", err
	}
	dateStr := date.Format("20060102")
	suffix := count + 1
	for probes := 0; probes < maxProbes; probes++ {
		candidate := fmt.Sprintf("%s-%s-%03d", g.prefix, dateStr, suffix)
		exists, err := g.store.NumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		suffix++
	}
	return "", ErrExhausted
}
