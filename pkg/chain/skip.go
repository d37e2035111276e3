package chain

import (
	"encoding/json"
	"strings"

	"github.com/nrjones8/timechain/pkg/slice"
)

// shouldSkip consults every registered skip policy in order, decoding doc
// (the raw JSON document mid-reconstruction) into the entity type only if
// at least one policy is registered, since that decode is pure overhead
// otherwise.
func (c *Chain[T]) shouldSkip(doc any, failing *slice.Slice, err error) bool {
	if len(c.skipPolicies) == 0 {
		return false
	}
	entity, convErr := c.docToEntity(doc)
	if convErr != nil {
		var zero T
		entity = zero
	}
	for _, policy := range c.skipPolicies {
		if policy(entity, failing, err) {
			return true
		}
	}
	return false
}

func (c *Chain[T]) docToEntity(doc any) (T, error) {
	var zero T
	b, err := json.Marshal(doc)
	if err != nil {
		return zero, err
	}
	return c.codec.Deserialize(string(b))
}

// isOutOfRange reports whether err looks like a list-index-out-of-range
// failure from the underlying patch engine, which phrases such errors with
// "out of bounds" or "out of range".
func isOutOfRange(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "out of bounds") || strings.Contains(msg, "out of range")
}

// SkipOnOutOfRangeWhenListMissing builds the built-in skip policy: given an
// accessor that extracts a list from the entity, it skips a failed patch
// application iff the failure looks like an out-of-range list index AND
// the accessor reports a non-nil list on the entity as it stood
// immediately before the failing patch — i.e. the list itself is present,
// just shorter than the patch expected, a common corruption pattern when
// an initial entity's list has fewer members than the patches that were
// diffed against a longer one.
func SkipOnOutOfRangeWhenListMissing[T any](accessor func(T) []any) SkipPolicy[T] {
	return func(entityBeforePatch T, failing *slice.Slice, err error) bool {
		if !isOutOfRange(err) {
			return false
		}
		return accessor(entityBeforePatch) != nil
	}
}
