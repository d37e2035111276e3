// Package product implements the read-only N-chain product view: joining
// several independent chains at the union of their key dates without any
// cross-chain interaction during reconstruction.
package product

import (
	"fmt"
	"sort"
	"time"

	"github.com/nrjones8/timechain/pkg/chain"
)

// Source adapts one chain (of whatever entity type) into the shape Join
// needs: its own key dates and a way to reconstruct its state at an
// arbitrary instant. Use NewSource to build one from a *chain.Chain[T].
type Source struct {
	Name     string
	KeyDates func() []time.Time
	At       func(moment time.Time) (any, error)
}

// NewSource adapts a typed chain into a Source, closing over its initial
// entity so callers of Join never need to know T.
func NewSource[T any](name string, c *chain.Chain[T], initial T) Source {
	return Source{
		Name:     name,
		KeyDates: c.KeyDates,
		At: func(moment time.Time) (any, error) {
			res, err := c.PatchToDate(initial, moment)
			if err != nil {
				return nil, err
			}
			return res.State, nil
		},
	}
}

// Record is one row of a product view: the states every source held at
// KeyDate, keyed by source name.
type Record struct {
	KeyDate time.Time
	States  map[string]any
}

// Join reconstructs every source at the ascending union of all sources'
// key dates. Each source is reconstructed independently via its own
// PatchToDate; chains never observe one another.
func Join(sources []Source) ([]Record, error) {
	seen := make(map[int64]time.Time)
	for _, src := range sources {
		for _, d := range src.KeyDates() {
			seen[d.UnixNano()] = d
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	records := make([]Record, 0, len(dates))
	for _, d := range dates {
		rec := Record{KeyDate: d, States: make(map[string]any, len(sources))}
		for _, src := range sources {
			v, err := src.At(d)
			if err != nil {
				return nil, fmt.Errorf("product: source %q at %s: %w", src.Name, d, err)
			}
			rec.States[src.Name] = v
		}
		records = append(records, rec)
	}
	return records, nil
}
