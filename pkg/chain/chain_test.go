package chain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrjones8/timechain/pkg/slice"
	"github.com/nrjones8/timechain/pkg/timeinstant"
)

type doc struct {
	P     string  `json:"p"`
	Items []int   `json:"items,omitempty"`
	Note  *string `json:"note,omitempty"`
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func newForward(t *testing.T) *Chain[doc] {
	t.Helper()
	c, err := New[doc]()
	require.NoError(t, err)
	return c
}

// Scenario: a single Add splits the virgin chain; reconstruction before
// the moment returns the untouched initial value, at and after it returns
// the changed value.
func TestAddSingleSplit(t *testing.T) {
	c := newForward(t)
	initial := doc{P: "foo"}
	changed := doc{P: "bar"}
	moment := at(t, "2022-01-01T00:00:00Z")

	require.NoError(t, c.Add(initial, changed, moment, FutureUnspecified))

	before, err := c.PatchToDate(initial, at(t, "2021-12-31T23:59:59Z"))
	require.NoError(t, err)
	assert.Equal(t, initial, before.State, "expected untouched initial before moment")

	atMoment, err := c.PatchToDate(initial, moment)
	require.NoError(t, err)
	assert.Equal(t, changed, atMoment.State, "expected changed value at moment")

	after, err := c.PatchToDate(initial, moment.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, changed, after.State, "expected changed value after moment")
}

// Scenario: appending a second, later change (case B) layers on top of the
// first without disturbing it.
func TestAddAppendLatest(t *testing.T) {
	c := newForward(t)
	initial := doc{P: "foo"}
	mid := doc{P: "bar"}
	final := doc{P: "baz"}
	m1 := at(t, "2022-01-01T00:00:00Z")
	m2 := at(t, "2022-06-01T00:00:00Z")

	require.NoError(t, c.Add(initial, mid, m1, FutureUnspecified))
	require.NoError(t, c.Add(mid, final, m2, FutureUnspecified))

	atM1, err := c.PatchToDate(initial, m1)
	require.NoError(t, err)
	assert.Equal(t, mid, atM1.State)

	atM2, err := c.PatchToDate(initial, m2)
	require.NoError(t, err)
	assert.Equal(t, final, atM2.State)

	between, err := c.PatchToDate(initial, m1.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, mid, between.State)
}

// Scenario: inserting before the latest point with no future policy fails.
func TestAddMissingFuturePolicy(t *testing.T) {
	c := newForward(t)
	initial := doc{P: "foo"}
	mid := doc{P: "bar"}
	m1 := at(t, "2022-06-01T00:00:00Z")
	require.NoError(t, c.Add(initial, mid, m1, FutureUnspecified))

	earlier := at(t, "2022-01-01T00:00:00Z")
	err := c.Add(initial, doc{P: "earlier"}, earlier, FutureUnspecified)

	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, CodeMissingFuturePolicy, chainErr.Code)
}

// Scenario: re-adding at an existing moment without KeepFuture/OverwriteFuture
// is a duplicate key date.
func TestAddDuplicateKeyDate(t *testing.T) {
	c := newForward(t)
	initial := doc{P: "foo"}
	changed := doc{P: "bar"}
	moment := at(t, "2022-01-01T00:00:00Z")
	require.NoError(t, c.Add(initial, changed, moment, FutureUnspecified))

	err := c.Add(initial, doc{P: "baz"}, moment, FutureUnspecified)

	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, CodeDuplicateKeyDate, chainErr.Code)
}

// Scenario: OverwriteFuture discards everything from the insertion point
// onward, including a point that used to be later.
func TestAddOverwriteFuture(t *testing.T) {
	c := newForward(t)
	initial := doc{P: "foo"}
	later := doc{P: "later"}
	earlyMoment := at(t, "2022-01-01T00:00:00Z")
	lateMoment := at(t, "2022-06-01T00:00:00Z")
	require.NoError(t, c.Add(initial, later, lateMoment, FutureUnspecified))

	overwritten := doc{P: "overwritten"}
	require.NoError(t, c.Add(initial, overwritten, earlyMoment, OverwriteFuture))

	atLate, err := c.PatchToDate(initial, lateMoment)
	require.NoError(t, err)
	assert.Equal(t, overwritten, atLate.State, "expected overwritten state to persist past the old late moment")
}

// Scenario: KeepFuture inserting strictly inside an existing slice
// preserves every later key date's reconstructed value.
func TestAddKeepFutureMidSlice(t *testing.T) {
	c := newForward(t)
	initial := doc{P: "foo"}
	later := doc{P: "later"}
	lateMoment := at(t, "2022-06-01T00:00:00Z")
	require.NoError(t, c.Add(initial, later, lateMoment, FutureUnspecified))

	earlyMoment := at(t, "2022-01-01T00:00:00Z")
	inserted := doc{P: "inserted"}
	require.NoError(t, c.Add(initial, inserted, earlyMoment, KeepFuture))

	between, err := c.PatchToDate(initial, earlyMoment.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, inserted, between.State)

	atLate, err := c.PatchToDate(initial, lateMoment)
	require.NoError(t, err)
	assert.Equal(t, later, atLate.State, "KeepFuture should preserve the later value")

	beforeEarly, err := c.PatchToDate(initial, earlyMoment.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, initial, beforeEarly.State, "before early moment should be untouched")
}

// Scenario: KeepFuture replacing an exact existing boundary rediffs the
// following slice but leaves later boundaries' reconstructed values
// untouched.
func TestAddKeepFutureExactMatch(t *testing.T) {
	c := newForward(t)
	initial := doc{P: "foo"}
	first := doc{P: "first"}
	second := doc{P: "second"}
	m1 := at(t, "2022-01-01T00:00:00Z")
	m2 := at(t, "2022-06-01T00:00:00Z")
	require.NoError(t, c.Add(initial, first, m1, FutureUnspecified))
	require.NoError(t, c.Add(first, second, m2, FutureUnspecified))

	replaced := doc{P: "replaced"}
	require.NoError(t, c.Add(initial, replaced, m1, KeepFuture))

	atM1, err := c.PatchToDate(initial, m1)
	require.NoError(t, err)
	assert.Equal(t, replaced, atM1.State)

	atM2, err := c.PatchToDate(initial, m2)
	require.NoError(t, err)
	assert.Equal(t, second, atM2.State, "KeepFuture exact match should preserve m2's value")
}

// I1: after three appends, every slice starts exactly where its predecessor
// ends, so there are no gaps or overlaps between consecutive slices.
func TestInvariantGaplessCoverage(t *testing.T) {
	c := newForward(t)
	initial := doc{P: "v0"}
	prev := initial
	moments := []time.Time{
		at(t, "2022-01-01T00:00:00Z"),
		at(t, "2022-03-01T00:00:00Z"),
		at(t, "2022-05-01T00:00:00Z"),
	}
	for i, m := range moments {
		next := doc{P: "v" + string(rune('1'+i))}
		require.NoError(t, c.Add(prev, next, m, FutureUnspecified))
		prev = next
	}

	slices := c.Slices()
	for i := 1; i < len(slices); i++ {
		assert.Truef(t, slices[i].From.Equal(slices[i-1].To),
			"gap between slice %d and %d: %v != %v", i-1, i, slices[i-1].To, slices[i].From)
	}
}

// I4: reconstructing before the earliest insertion returns initial
// unchanged.
func TestInvariantBeforeFirstInsertReturnsInitial(t *testing.T) {
	c := newForward(t)
	initial := doc{P: "v0"}
	require.NoError(t, c.Add(initial, doc{P: "v1"}, at(t, "2022-01-01T00:00:00Z"), FutureUnspecified))

	res, err := c.PatchToDate(initial, at(t, "2000-01-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, initial, res.State)
}

func TestReverseRoundTrip(t *testing.T) {
	c := newForward(t)
	initial := doc{P: "v0"}
	v1 := doc{P: "v1"}
	v2 := doc{P: "v2"}
	m1 := at(t, "2022-01-01T00:00:00Z")
	m2 := at(t, "2022-06-01T00:00:00Z")
	require.NoError(t, c.Add(initial, v1, m1, FutureUnspecified))
	require.NoError(t, c.Add(v1, v2, m2, FutureUnspecified))

	boundary, reversed, err := c.Reverse(initial)
	require.NoError(t, err)
	assert.Equal(t, v2, boundary, "expected reverse boundary to be the latest value")
	assert.Equal(t, Backward, reversed.Direction())

	atM1, err := reversed.PatchToDate(boundary, m1)
	require.NoError(t, err)
	assert.Equal(t, v1, atM1.State)

	atStart, err := reversed.PatchToDate(boundary, at(t, "2000-01-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, initial, atStart.State)

	again, rereversed, err := reversed.Reverse(boundary)
	require.NoError(t, err)
	assert.Equal(t, initial, again, "expected double reverse boundary to be initial")

	atM2, err := rereversed.PatchToDate(again, m2)
	require.NoError(t, err)
	assert.Equal(t, v2, atM2.State)
}

func TestContainsGraceTicks(t *testing.T) {
	c := newForward(t)
	initial := doc{P: "v0"}
	moment := at(t, "2022-01-01T00:00:00Z")
	require.NoError(t, c.Add(initial, doc{P: "v1"}, moment, FutureUnspecified))

	assert.True(t, c.Contains(moment))
	assert.True(t, c.Contains(moment.Add(10*time.Microsecond)), "expected Contains to tolerate grace ticks")
	assert.False(t, c.Contains(moment.Add(time.Hour)), "expected Contains to be false far from any boundary")
}

func TestSkipOnOutOfRangeWhenListMissing(t *testing.T) {
	listOf := func(d doc) []any {
		if d.Items == nil {
			return nil
		}
		out := make([]any, len(d.Items))
		for i, v := range d.Items {
			out[i] = v
		}
		return out
	}
	policy := SkipOnOutOfRangeWhenListMissing(listOf)

	outOfRangeErr := errors.New("index 3 out of range")
	otherErr := errors.New("boom")

	assert.False(t, policy(doc{P: "v0"}, nil, outOfRangeErr), "expected no skip when the list itself is absent")
	assert.True(t, policy(doc{P: "v0", Items: []int{1}}, nil, outOfRangeErr), "expected skip when the list is present but the patch targets a member past its end")
	assert.False(t, policy(doc{P: "v0"}, nil, otherErr), "expected no skip for an unrelated error")
}

// Concrete scenario 6: a Backward chain whose single patch was diffed
// between a 1-element and a 2-element list (Reverse = "remove /items/1"),
// queried against a corrupted initial entity whose list already has only
// 1 element. Unapplying the slice replays that remove op against a list
// too short for it, producing a real out-of-range error from the patch
// engine. Without the skip policy this surfaces as a PatchingFailure; with
// it registered, reconstruction swallows the failure and returns the
// initial entity with PatchesHaveBeenSkipped set.
func TestSkipOnOutOfRangeWhenListMissingEndToEnd(t *testing.T) {
	listOf := func(d doc) []any {
		if d.Items == nil {
			return nil
		}
		out := make([]any, len(d.Items))
		for i, v := range d.Items {
			out[i] = v
		}
		return out
	}

	oneItem := doc{P: "v0", Items: []int{10}}
	twoItems := doc{P: "v0", Items: []int{10, 20}}
	moment := at(t, "2022-01-01T00:00:00Z")

	scratch := newForward(t)
	patch, err := scratch.diff(oneItem, twoItems)
	require.NoError(t, err)

	build := func(t *testing.T, opts ...Option[doc]) *Chain[doc] {
		t.Helper()
		slices := []slice.Slice{
			{From: timeinstant.NegInf, To: moment, Direction: Backward},
			{From: moment, To: timeinstant.PosInf, Patch: &patch, Direction: Backward},
		}
		opts = append([]Option[doc]{WithDirection[doc](Backward), WithSlices[doc](slices)}, opts...)
		c, err := New[doc](opts...)
		require.NoError(t, err)
		return c
	}

	t.Run("without policy raises PatchingFailure", func(t *testing.T) {
		c := build(t)
		_, err := c.PatchToDate(oneItem, moment.Add(-time.Hour))

		var chainErr *ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, CodePatchingFailure, chainErr.Code)
	})

	t.Run("with policy skips and returns initial", func(t *testing.T) {
		c := build(t, WithSkipPolicy[doc](SkipOnOutOfRangeWhenListMissing(listOf)))
		res, err := c.PatchToDate(oneItem, moment.Add(-time.Hour))

		require.NoError(t, err)
		assert.True(t, res.PatchesHaveBeenSkipped)
		assert.Equal(t, oneItem, res.State, "expected initial entity back when the failing patch is skipped")
	})
}

func TestNewValidatesSuppliedSlices(t *testing.T) {
	_, err := New[doc](WithSlices[doc]([]slice.Slice{}))
	require.Error(t, err)

	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, CodeInconsistentChain, chainErr.Code)
}
