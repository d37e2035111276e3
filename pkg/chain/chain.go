// Package chain implements the time-slice chain engine: a contiguous,
// gapless sequence of half-open time intervals, each storing only the
// differential patch to its predecessor, from which entity state at any
// instant is reconstructed by composing diffs rather than storing full
// snapshots.
package chain

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nrjones8/timechain/pkg/entity"
	"github.com/nrjones8/timechain/pkg/slice"
	"github.com/nrjones8/timechain/pkg/timeinstant"
)

// Chain is the temporal history of one entity of type T, stored as an
// ordered, gapless set of slices. A Chain does not hold the entity's
// "initial" value itself; that is supplied by the caller on every
// reconstruction and insertion call, consistent with the engine storing
// only diffs.
type Chain[T any] struct {
	direction    Direction
	slices       []slice.Slice
	codec        entity.Codec[T]
	skipPolicies []SkipPolicy[T]
	graceTicks   time.Duration
	logger       *zap.Logger
	metrics      MetricsRecorder
	maxAudit     int
	audit        []AuditEntry

	mu sync.RWMutex
}

// New constructs a Chain. With no options it is a virgin Forward chain: a
// single [-inf, +inf) slice with no patch, ready for its first Add. Passing
// WithSlices seeds it with a pre-existing slice set instead, which is
// validated against invariants C1-C5.
func New[T any](opts ...Option[T]) (*Chain[T], error) {
	c := &Chain[T]{
		direction:  Forward,
		codec:      entity.NewJSONCodec[T](),
		graceTicks: DefaultGraceTicks,
		logger:     zap.NewNop(),
		metrics:    noopRecorder{},
		maxAudit:   DefaultAuditHistorySize,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.slices == nil {
		c.slices = []slice.Slice{{
			From:      timeinstant.NegInf,
			To:        timeinstant.PosInf,
			Patch:     nil,
			Direction: c.direction,
		}}
		return c, nil
	}

	if err := validateSlices(c.slices, c.direction); err != nil {
		return nil, err
	}
	return c, nil
}

func validateSlices(slices []slice.Slice, direction Direction) error {
	if len(slices) == 0 {
		return errInconsistentChain("chain must contain at least one slice")
	}
	if !timeinstant.IsNegInf(slices[0].From) {
		return errInconsistentChain("first slice must start at -inf")
	}
	if !timeinstant.IsPosInf(slices[len(slices)-1].To) {
		return errInconsistentChain("last slice must end at +inf")
	}
	for i, s := range slices {
		if s.Direction != direction {
			return errInconsistentChain("slice direction does not match chain direction").
				WithDetail("index", i)
		}
		if !s.From.Before(s.To) {
			return errAmbiguousBoundaries("slice has zero or negative duration").
				WithDetail("index", i)
		}
		if i > 0 && !s.From.Equal(slices[i-1].To) {
			return errInconsistentChain("gap or overlap between consecutive slices").
				WithDetail("index", i)
		}
	}
	return nil
}

// Direction reports whether the chain currently composes Forward or
// Backward.
func (c *Chain[T]) Direction() Direction {
	return c.direction
}

// Slices returns a copy of the chain's current slice set. Callers must not
// rely on mutating the returned slice to affect the chain.
func (c *Chain[T]) Slices() []slice.Slice {
	out := make([]slice.Slice, len(c.slices))
	copy(out, c.slices)
	return out
}

// KeyDates returns every slice boundary in the chain except the leading
// -inf and trailing +inf sentinels, ascending.
func (c *Chain[T]) KeyDates() []time.Time {
	out := make([]time.Time, 0, len(c.slices)-1)
	for _, s := range c.slices[1:] {
		out = append(out, s.From)
	}
	return out
}

// AuditTrail returns the chain's recorded Add history, oldest first.
func (c *Chain[T]) AuditTrail() []AuditEntry {
	out := make([]AuditEntry, len(c.audit))
	copy(out, c.audit)
	return out
}

// Locker exposes the chain's internal mutex for callers who want coarse
// external serialization. Add and PatchToDate never take this lock
// themselves: serializing concurrent access remains the caller's
// responsibility, per the engine's single-threaded/cooperative model. This
// is a convenience for callers who'd otherwise have to invent their own
// lock next to the chain.
func (c *Chain[T]) Locker() sync.Locker {
	return &c.mu
}

func (c *Chain[T]) recordAudit(entry AuditEntry) {
	if c.maxAudit <= 0 {
		return
	}
	entry.ID = uuid.New().String()
	entry.At = time.Now().UTC()
	c.audit = append(c.audit, entry)
	if len(c.audit) > c.maxAudit {
		c.audit = c.audit[len(c.audit)-c.maxAudit:]
	}
}

func (c *Chain[T]) mode() applyMode {
	if c.direction == Forward {
		return modeApply
	}
	return modeUnapply
}
