package chain

import (
	"time"

	"github.com/nrjones8/timechain/pkg/slice"
)

// Direction re-exports slice.Direction so callers never need to import
// pkg/slice just to name chain.Forward/chain.Backward.
type Direction = slice.Direction

const (
	Forward  = slice.Forward
	Backward = slice.Backward
)

// FuturePolicy resolves the ambiguity of inserting at a moment that falls
// before an existing slice boundary.
type FuturePolicy int

const (
	// FutureUnspecified means the caller has not chosen a policy; Add
	// returns MissingFuturePolicy if one turns out to be required.
	FutureUnspecified FuturePolicy = iota
	// KeepFuture preserves every later key date's reconstructed value by
	// rediffing the neighboring slice(s) around the new insertion.
	KeepFuture
	// OverwriteFuture discards every slice at or after the insertion
	// moment and starts the future fresh from the new value.
	OverwriteFuture
)

func (p FuturePolicy) String() string {
	switch p {
	case KeepFuture:
		return "keep_future"
	case OverwriteFuture:
		return "overwrite_future"
	default:
		return "unspecified"
	}
}

// SkipPolicy decides whether a failed patch application should be swallowed
// rather than surfaced as a PatchingFailure. entityBeforePatch is the
// entity state immediately prior to the failing patch; failing is the
// slice whose patch could not be applied/unapplied (nil when the failure
// happened during final deserialization rather than mid-chain); err is the
// underlying cause. Returning true skips the slice (or, for a final
// deserialization failure, falls back to the caller's initial entity) and
// continues reconstruction.
type SkipPolicy[T any] func(entityBeforePatch T, failing *slice.Slice, err error) bool

// Result is what PatchToDate/PatchToDateInto return: the reconstructed
// state plus whatever sideband information accumulated, rather than
// mutating anything on the chain itself.
type Result[T any] struct {
	State                      T
	Skipped                    []slice.Slice
	PatchesHaveBeenSkipped     bool
	FinalDeserializationFailed bool
}

// AuditEntry records one successful Add call for observability. It is not
// consulted by reconstruction, which always recomputes from slices. ID is a
// fresh UUID minted at record time, giving callers a stable handle to
// correlate an entry against external logs even after the ring buffer has
// evicted it from AuditTrail.
type AuditEntry struct {
	ID           string
	At           time.Time
	Moment       time.Time
	FuturePolicy FuturePolicy
	Rediffed     bool
	PatchBytes   int
}

// MetricsRecorder lets a caller observe chain activity. See
// NewPrometheusRecorder for a ready-made implementation.
type MetricsRecorder interface {
	AddCalled()
	ReconstructCalled()
	SliceRediffed()
	PatchSkipped()
}

type noopRecorder struct{}

func (noopRecorder) AddCalled()         {}
func (noopRecorder) ReconstructCalled() {}
func (noopRecorder) SliceRediffed()     {}
func (noopRecorder) PatchSkipped()      {}
