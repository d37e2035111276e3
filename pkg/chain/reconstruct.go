package chain

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/nrjones8/timechain/pkg/slice"
	"github.com/nrjones8/timechain/pkg/timeinstant"
)

type applyMode int

const (
	modeApply applyMode = iota
	modeUnapply
)

// PatchToDate reconstructs the entity's state at moment, starting from
// initial and composing every slice whose patch applies between the
// chain's origin and moment.
//
// Forward chains apply every slice s with patch != nil such that
// (s.from = -inf AND moment != -inf) OR s.from <= moment, in ascending
// order. Backward chains unapply every slice with patch != nil and
// s.from > moment, in descending order, so each patch is undone against
// the exact document it was originally diffed from.
func (c *Chain[T]) PatchToDate(initial T, moment time.Time) (Result[T], error) {
	c.metrics.ReconstructCalled()
	moment = moment.UTC()
	idxs := c.selectIndices(moment)
	c.logger.Debug("reconstructing state", zap.Time("moment", moment), zap.Int("slices_composed", len(idxs)))
	return c.reconstructIndices(initial, idxs)
}

// PatchToDateInto behaves like PatchToDate but decodes into an existing
// *T via entity.Populator instead of allocating a fresh value. It returns
// CodePopulateNotConfigured if the chain's codec does not implement
// entity.Populator.
func (c *Chain[T]) PatchToDateInto(initial T, moment time.Time, target *T) (Result[T], error) {
	populator, ok := c.codec.(interface {
		Populate(string, *T) error
	})
	if !ok {
		var zero Result[T]
		return zero, errPopulateNotConfigured()
	}

	c.metrics.ReconstructCalled()
	moment = moment.UTC()
	idxs := c.selectIndices(moment)
	c.logger.Debug("reconstructing state into target", zap.Time("moment", moment), zap.Int("slices_composed", len(idxs)))
	return c.reconstructIndicesInto(initial, idxs, target, populator)
}

// selectIndices returns the slice indices to compose for a PatchToDate query,
// already in the order applyOne must visit them. Forward chains apply
// ascending from the origin; Backward chains unapply descending from their
// own origin so that every patch is undone against the exact document it was
// diffed from, rather than relying on later absolute writes to paper over an
// out-of-order unapply.
func (c *Chain[T]) selectIndices(moment time.Time) []int {
	var idxs []int
	if c.direction == Forward {
		for i, s := range c.slices {
			if s.Patch != nil && appliesForward(s, moment) {
				idxs = append(idxs, i)
			}
		}
		return idxs
	}
	for i := len(c.slices) - 1; i >= 0; i-- {
		s := c.slices[i]
		if s.Patch != nil && s.From.After(moment) {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// appliesForward implements the forward reconstruction predicate exactly as
// specified: (s.from = -inf AND moment != -inf) OR s.from <= moment. The
// first disjunct never selects a slice the second would not, since -inf <=
// every moment; at the literal -inf instant the leading slice still
// qualifies through the second disjunct. A query at -inf returns the
// untouched initial entity because the leading sentinel slice never carries
// a patch in a chain built purely through Add.
func appliesForward(s slice.Slice, moment time.Time) bool {
	isLeading := timeinstant.IsNegInf(s.From)
	momentIsNegInf := timeinstant.IsNegInf(moment)
	if isLeading && !momentIsNegInf {
		return true
	}
	return !s.From.After(moment)
}

// indexRange returns [lo, hi) restricted to indices carrying a non-nil
// patch, ascending. Add only ever runs against Forward chains (enforced at
// the top of Add), so an ascending apply over a prefix of the array is
// exactly "the state as of a given slice boundary" with no direction
// bookkeeping needed.
func (c *Chain[T]) indexRange(lo, hi int) []int {
	var idxs []int
	for i := lo; i < hi; i++ {
		if c.slices[i].Patch != nil {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// stateThroughIndex reconstructs the entity as of just after slices[idx]'s
// own patch (inclusive). stateBeforeIndex reconstructs the entity as of
// just before it (exclusive). Forward-chain-only; see indexRange.
func (c *Chain[T]) stateBeforeIndex(initial T, idx int) (T, error) {
	res, err := c.reconstructIndices(initial, c.indexRange(0, idx))
	return res.State, err
}

func (c *Chain[T]) stateThroughIndex(initial T, idx int) (T, error) {
	res, err := c.reconstructIndices(initial, c.indexRange(0, idx+1))
	return res.State, err
}

// earlySideOf reconstructs the entity's state at the early (chronologically
// first) boundary of slices[idx] — i.e. the state slices[idx] itself is
// about to transform. lateSideOf reconstructs the state at its late
// boundary. Reverse uses these to recompute a chronological diff for every
// slice regardless of the source chain's own direction: on a Forward chain
// they are an ascending prefix (exclusive/inclusive of idx); on a Backward
// chain, whose own initial anchors the chronologically-last boundary, they
// are a descending suffix, since reaching an earlier boundary means undoing
// strictly more slices than reaching a later one.
func (c *Chain[T]) earlySideOf(initial T, idx int) (T, error) {
	var res Result[T]
	var err error
	if c.direction == Forward {
		res, err = c.reconstructIndices(initial, c.indexRange(0, idx))
	} else {
		res, err = c.reconstructIndices(initial, descending(c.indexRange(idx, len(c.slices))))
	}
	return res.State, err
}

func (c *Chain[T]) lateSideOf(initial T, idx int) (T, error) {
	var res Result[T]
	var err error
	if c.direction == Forward {
		res, err = c.reconstructIndices(initial, c.indexRange(0, idx+1))
	} else {
		res, err = c.reconstructIndices(initial, descending(c.indexRange(idx+1, len(c.slices))))
	}
	return res.State, err
}

// descending reverses idxs in place and returns it; idxs come from
// indexRange in ascending order and Backward composition must visit them
// latest-first.
func descending(idxs []int) []int {
	for i, j := 0, len(idxs)-1; i < j; i, j = i+1, j-1 {
		idxs[i], idxs[j] = idxs[j], idxs[i]
	}
	return idxs
}

func (c *Chain[T]) reconstructIndices(initial T, indices []int) (Result[T], error) {
	var res Result[T]

	serialized, err := c.codec.Serialize(initial)
	if err != nil {
		return res, err
	}
	var doc any
	if err := json.Unmarshal([]byte(serialized), &doc); err != nil {
		return res, err
	}

	for _, i := range indices {
		s := c.slices[i]
		doc, err = c.applyOne(doc, s, &res)
		if err != nil {
			return res, c.wrapPatchingFailure(serialized, doc, i, err)
		}
	}

	finalBytes, err := json.Marshal(doc)
	if err != nil {
		if c.shouldSkip(doc, nil, err) {
			res.FinalDeserializationFailed = true
			res.State = initial
			return res, nil
		}
		return res, err
	}
	final, err := c.codec.Deserialize(string(finalBytes))
	if err != nil {
		if c.shouldSkip(doc, nil, err) {
			res.FinalDeserializationFailed = true
			res.State = initial
			return res, nil
		}
		return res, err
	}
	res.State = final
	return res, nil
}

func (c *Chain[T]) reconstructIndicesInto(initial T, indices []int, target *T, populator interface {
	Populate(string, *T) error
}) (Result[T], error) {
	var res Result[T]

	serialized, err := c.codec.Serialize(initial)
	if err != nil {
		return res, err
	}
	var doc any
	if err := json.Unmarshal([]byte(serialized), &doc); err != nil {
		return res, err
	}

	for _, i := range indices {
		s := c.slices[i]
		doc, err = c.applyOne(doc, s, &res)
		if err != nil {
			return res, c.wrapPatchingFailure(serialized, doc, i, err)
		}
	}

	finalBytes, err := json.Marshal(doc)
	if err != nil {
		if c.shouldSkip(doc, nil, err) {
			res.FinalDeserializationFailed = true
			res.State = initial
			return res, nil
		}
		return res, err
	}
	if err := populator.Populate(string(finalBytes), target); err != nil {
		if c.shouldSkip(doc, nil, err) {
			res.FinalDeserializationFailed = true
			res.State = initial
			return res, nil
		}
		return res, err
	}
	res.State = *target
	return res, nil
}

// applyOne applies or unapplies a single slice's patch depending on the
// chain's direction, consulting skip policies on failure. It returns the
// possibly-unchanged doc and a non-nil error only when the failure was not
// swallowed by a skip policy.
func (c *Chain[T]) applyOne(doc any, s slice.Slice, res *Result[T]) (any, error) {
	if s.Patch == nil {
		return doc, nil
	}
	var newDoc any
	var err error
	if c.mode() == modeApply {
		newDoc, err = s.Patch.Apply(doc)
	} else {
		newDoc, err = s.Patch.Unapply(doc)
	}
	if err != nil {
		if c.shouldSkip(doc, &s, err) {
			res.Skipped = append(res.Skipped, s)
			res.PatchesHaveBeenSkipped = true
			c.metrics.PatchSkipped()
			c.logger.Warn("skipping patch application failure", zap.Error(err))
			return doc, nil
		}
		return doc, err
	}
	return newDoc, nil
}

func (c *Chain[T]) wrapPatchingFailure(initialJSON string, intermediate any, index int, cause error) error {
	intermediateBytes, _ := json.Marshal(intermediate)
	c.logger.Error("unrecovered patching failure", zap.Int("index", index), zap.Error(cause))
	return newPatchingFailure(initialJSON, string(intermediateBytes), c.slices[index].Patch, index, cause)
}
