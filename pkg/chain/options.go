package chain

import (
	"time"

	"go.uber.org/zap"

	"github.com/nrjones8/timechain/pkg/entity"
	"github.com/nrjones8/timechain/pkg/slice"
)

// Option configures a Chain at construction time.
type Option[T any] func(*Chain[T])

// WithSerializer overrides the default JSON codec.
func WithSerializer[T any](codec entity.Codec[T]) Option[T] {
	return func(c *Chain[T]) {
		c.codec = codec
	}
}

// WithSkipPolicy registers an additional skip policy. Policies are
// consulted in registration order; the first one to return true wins.
func WithSkipPolicy[T any](policy SkipPolicy[T]) Option[T] {
	return func(c *Chain[T]) {
		c.skipPolicies = append(c.skipPolicies, policy)
	}
}

// WithGraceTicks overrides DefaultGraceTicks.
func WithGraceTicks[T any](d time.Duration) Option[T] {
	return func(c *Chain[T]) {
		c.graceTicks = d
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(c *Chain[T]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetricsRecorder overrides the default no-op recorder.
func WithMetricsRecorder[T any](rec MetricsRecorder) Option[T] {
	return func(c *Chain[T]) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

// WithAuditHistorySize overrides DefaultAuditHistorySize. A size of 0
// disables audit recording entirely.
func WithAuditHistorySize[T any](n int) Option[T] {
	return func(c *Chain[T]) {
		c.maxAudit = n
	}
}

// WithDirection sets the chain's direction. The default virgin slice takes
// it, and slices supplied via WithSlices must all carry it. Rarely needed:
// most callers build a Forward chain and reach Backward only via Reverse.
func WithDirection[T any](d Direction) Option[T] {
	return func(c *Chain[T]) {
		c.direction = d
	}
}

// WithSlices seeds the chain with a pre-existing, already-ordered slice
// set (e.g. one deserialized from storage) instead of the single virgin
// [-inf, +inf) slice New creates by default. New validates the supplied
// slices against invariants C1-C5 and returns InconsistentChain if they
// don't hold, or AmbiguousBoundaries for a slice of zero or negative
// duration.
func WithSlices[T any](slices []slice.Slice) Option[T] {
	return func(c *Chain[T]) {
		c.slices = slices
	}
}
