package chain

import (
	"encoding/json"
	"time"

	"github.com/nrjones8/timechain/pkg/jsonpatch"
	"github.com/nrjones8/timechain/pkg/slice"
	"github.com/nrjones8/timechain/pkg/timeinstant"
)

// Add records that the entity changed from initial to changed at moment.
// initial must reconstruct to the same value PatchToDate(initial, moment)
// would have produced immediately before this call; Add does not verify
// that itself, it trusts the caller the same way the underlying patch
// engine trusts two documents handed to Diff.
//
// moment may coincide with, precede, or follow every existing slice
// boundary. Four regimes apply, selected automatically:
//
//   - (A) the chain is virgin (no Add has ever succeeded): the single
//     [-inf,+inf) slice splits into [-inf,moment) with no patch and
//     [moment,+inf) holding diff(initial,changed).
//   - (B) moment is later than every existing boundary: the chain's open
//     trailing slice shrinks to end at moment and a new trailing slice is
//     appended.
//   - (C) moment is not later than every existing boundary and policy is
//     OverwriteFuture: every slice at or after moment is discarded and
//     replaced exactly as in (B).
//   - (D) moment is not later than every existing boundary and policy is
//     KeepFuture: the chain grows by rediffing its neighbor(s) so that
//     every later key date still reconstructs to the value it held
//     before this call. D.1 covers moment exactly matching an existing
//     boundary (a same-instant replace); D.2 covers moment falling
//     strictly inside an existing slice.
//
// futurePolicy is ignored for (A) and (B), where there is no future to
// preserve or discard.
func (c *Chain[T]) Add(initial, changed T, moment time.Time, futurePolicy FuturePolicy) error {
	if c.direction != Forward {
		return errUnsupportedOperation("Add")
	}
	moment = moment.UTC()
	c.metrics.AddCalled()

	nearIdx, exact := c.findNear(moment)
	if nearIdx != -1 {
		if !exact {
			return errDuplicateKeyDate(moment)
		}
		switch futurePolicy {
		case KeepFuture:
			return c.addKeepFutureExact(initial, changed, moment, nearIdx)
		case OverwriteFuture:
			return c.addOverwriteFuture(initial, changed, moment, nearIdx)
		default:
			return errDuplicateKeyDate(moment)
		}
	}

	firstFuture := c.findFirstAfter(moment)
	if firstFuture == -1 {
		return c.addAppend(initial, changed, moment)
	}

	switch futurePolicy {
	case OverwriteFuture:
		return c.addOverwriteFuture(initial, changed, moment, firstFuture)
	case KeepFuture:
		return c.addKeepFutureMid(initial, changed, moment, firstFuture)
	default:
		return errMissingFuturePolicy(moment)
	}
}

// findNear returns the index of the slice whose From lies within
// graceTicks of moment, and whether it is an exact match. -1 if none.
func (c *Chain[T]) findNear(moment time.Time) (int, bool) {
	for i, s := range c.slices {
		if absDuration(s.From.Sub(moment)) <= c.graceTicks {
			return i, s.From.Equal(moment)
		}
	}
	return -1, false
}

// findFirstAfter returns the index of the first slice whose From is
// strictly after moment. -1 if none (moment is the latest point so far).
func (c *Chain[T]) findFirstAfter(moment time.Time) int {
	for i, s := range c.slices {
		if s.From.After(moment) {
			return i
		}
	}
	return -1
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// addAppend covers both case A (virgin chain) and case B (new latest
// point): the current reconstructed state at moment becomes the diff's
// left side, the chain's trailing slice shrinks to end at moment, and a
// new trailing slice carries the patch to changed. Case A falls out of
// this naturally: reconstructing a virgin chain at any moment always
// yields initial unchanged, so the computed patch is exactly
// diff(initial, changed).
func (c *Chain[T]) addAppend(initial, changed T, moment time.Time) error {
	current, err := c.stateThroughIndex(initial, len(c.slices)-1)
	if err != nil {
		return err
	}
	patch, err := c.diff(current, changed)
	if err != nil {
		return err
	}

	c.slices[len(c.slices)-1].To = moment
	c.slices = append(c.slices, slice.Slice{
		From:      moment,
		To:        timeinstant.PosInf,
		Patch:     &patch,
		Direction: Forward,
	})

	c.recordAudit(AuditEntry{Moment: moment, FuturePolicy: FutureUnspecified, PatchBytes: patchBytes(patch)})
	return nil
}

// addOverwriteFuture discards every slice whose From is at or after
// moment and replaces the future exactly as addAppend would.
func (c *Chain[T]) addOverwriteFuture(initial, changed T, moment time.Time, cutIdx int) error {
	current, err := c.stateBeforeIndex(initial, cutIdx)
	if err != nil {
		return err
	}
	patch, err := c.diff(current, changed)
	if err != nil {
		return err
	}

	c.slices = c.slices[:cutIdx]
	c.slices[len(c.slices)-1].To = moment
	c.slices = append(c.slices, slice.Slice{
		From:      moment,
		To:        timeinstant.PosInf,
		Patch:     &patch,
		Direction: Forward,
	})

	c.recordAudit(AuditEntry{Moment: moment, FuturePolicy: OverwriteFuture, PatchBytes: patchBytes(patch)})
	return nil
}

// addKeepFutureExact is case D.1: moment names an existing slice exactly.
// That slice is rediffed to transition from its predecessor state to
// changed; if a following slice exists, it is rediffed too, so that it
// still transitions from changed to whatever value previously held at its
// own start.
func (c *Chain[T]) addKeepFutureExact(initial, changed T, moment time.Time, idx int) error {
	predecessor, err := c.stateBeforeIndex(initial, idx)
	if err != nil {
		return err
	}

	hasFollowing := idx+1 < len(c.slices)
	var oldFollowingTarget T
	if hasFollowing {
		oldFollowingTarget, err = c.stateThroughIndex(initial, idx+1)
		if err != nil {
			return err
		}
	}

	newPatch, err := c.diff(predecessor, changed)
	if err != nil {
		return err
	}
	c.slices[idx].Patch = &newPatch

	rediffed := false
	if hasFollowing {
		followingPatch, err := c.diff(changed, oldFollowingTarget)
		if err != nil {
			return err
		}
		c.slices[idx+1].Patch = &followingPatch
		rediffed = true
		c.metrics.SliceRediffed()
	}

	c.recordAudit(AuditEntry{Moment: moment, FuturePolicy: KeepFuture, Rediffed: rediffed, PatchBytes: patchBytes(newPatch)})
	return nil
}

// addKeepFutureMid is case D.2: moment falls strictly inside an existing
// slice. Rather than shifting every later slice's boundaries and purging
// the resulting transient zero-duration slices (the legacy approach this
// engine's design explicitly moves away from), positions are derived
// directly from the anchors already on the timeline: the host slice
// shrinks to end at moment, a brand-new slice fills [moment, f.from), and
// f itself keeps its original From/To and is rediffed in place. No other
// slice's boundary ever moves.
func (c *Chain[T]) addKeepFutureMid(initial, changed T, moment time.Time, fIdx int) error {
	hostIdx := fIdx - 1

	current, err := c.stateThroughIndex(initial, hostIdx)
	if err != nil {
		return err
	}
	oldFTarget, err := c.stateThroughIndex(initial, fIdx)
	if err != nil {
		return err
	}

	newSlicePatch, err := c.diff(current, changed)
	if err != nil {
		return err
	}
	followingPatch, err := c.diff(changed, oldFTarget)
	if err != nil {
		return err
	}

	fFrom := c.slices[fIdx].From

	c.slices[hostIdx].To = moment
	c.slices[fIdx].Patch = &followingPatch

	newSlice := slice.Slice{From: moment, To: fFrom, Patch: &newSlicePatch, Direction: Forward}
	c.slices = insertSliceAt(c.slices, fIdx, newSlice)

	c.metrics.SliceRediffed()
	c.recordAudit(AuditEntry{Moment: moment, FuturePolicy: KeepFuture, Rediffed: true, PatchBytes: patchBytes(newSlicePatch)})
	return nil
}

func insertSliceAt(slices []slice.Slice, idx int, s slice.Slice) []slice.Slice {
	slices = append(slices, slice.Slice{})
	copy(slices[idx+1:], slices[idx:])
	slices[idx] = s
	return slices
}

func (c *Chain[T]) diff(left, right T) (jsonpatch.Patch, error) {
	leftJSON, err := c.codec.Serialize(left)
	if err != nil {
		return jsonpatch.Patch{}, err
	}
	rightJSON, err := c.codec.Serialize(right)
	if err != nil {
		return jsonpatch.Patch{}, err
	}
	var leftDoc, rightDoc any
	if err := json.Unmarshal([]byte(leftJSON), &leftDoc); err != nil {
		return jsonpatch.Patch{}, err
	}
	if err := json.Unmarshal([]byte(rightJSON), &rightDoc); err != nil {
		return jsonpatch.Patch{}, err
	}
	return jsonpatch.Diff(leftDoc, rightDoc)
}

func patchBytes(p jsonpatch.Patch) int {
	b, err := json.Marshal(p)
	if err != nil {
		return 0
	}
	return len(b)
}
