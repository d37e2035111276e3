package chain

import (
	"github.com/nrjones8/timechain/pkg/slice"
)

// Reverse produces a new chain that walks time the opposite way, without
// mutating c. It returns the entity value at the chain's far boundary in
// the new direction (the value PatchToDate would give at +inf for a
// Forward source, or at -inf for a Backward source) together with the new
// chain, since a Backward chain's "initial" is conceptually the +inf-end
// value rather than the -inf-end value c's caller started from.
//
// Every slice's patch is rebuilt as diff(earlySideOf, lateSideOf) — always
// the chronological, earlier-to-later orientation, regardless of c's own
// direction — because a Backward chain's reconstruction always calls
// Patch.Unapply, which inverts exactly that chronological patch back from
// the later state to the earlier one. This keeps patch construction
// identical for both reversal directions; only the new chain's Direction
// tag changes which method PatchToDate calls against it.
func (c *Chain[T]) Reverse(initial T) (T, *Chain[T], error) {
	var zero T

	newDirection := Backward
	if c.direction == Backward {
		newDirection = Forward
	}

	newSlices := make([]slice.Slice, len(c.slices))
	for i, s := range c.slices {
		newSlices[i] = slice.Slice{From: s.From, To: s.To, Direction: newDirection}
		if s.Patch == nil {
			continue
		}

		before, err := c.earlySideOf(initial, i)
		if err != nil {
			return zero, nil, err
		}
		after, err := c.lateSideOf(initial, i)
		if err != nil {
			return zero, nil, err
		}

		patch, err := c.diff(before, after)
		if err != nil {
			return zero, nil, err
		}
		newSlices[i].Patch = &patch
	}

	// boundary is the value at the far end of c in chronological terms:
	// for a Forward source that's the +inf side (late side of the last
	// slice); for a Backward source, whose own initial anchors the +inf
	// side, it's the -inf side (early side of the first slice).
	var boundary T
	var err error
	if c.direction == Forward {
		boundary, err = c.lateSideOf(initial, len(c.slices)-1)
	} else {
		boundary, err = c.earlySideOf(initial, 0)
	}
	if err != nil {
		return zero, nil, err
	}

	reversed := &Chain[T]{
		direction:    newDirection,
		slices:       newSlices,
		codec:        c.codec,
		skipPolicies: c.skipPolicies,
		graceTicks:   c.graceTicks,
		logger:       c.logger,
		metrics:      c.metrics,
		maxAudit:     c.maxAudit,
	}
	return boundary, reversed, nil
}
