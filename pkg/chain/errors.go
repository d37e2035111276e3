package chain

import (
	"fmt"
	"time"

	"github.com/nrjones8/timechain/pkg/jsonpatch"
)

// Code is a machine-readable identifier for a chain error's taxonomy member.
type Code string

const (
	// CodeDuplicateKeyDate: Add was called with a moment that already names
	// a slice boundary (within grace tolerance) and no future policy makes
	// that legal.
	CodeDuplicateKeyDate Code = "duplicate_key_date"
	// CodeMissingFuturePolicy: Add targets a moment that falls before an
	// existing slice boundary and no FuturePolicy was given to resolve the
	// ambiguity.
	CodeMissingFuturePolicy Code = "missing_future_policy"
	// CodeInconsistentChain: the slices supplied to New do not form a
	// contiguous, gapless, ascending chain.
	CodeInconsistentChain Code = "inconsistent_chain"
	// CodeAmbiguousBoundaries: a slice supplied to New has equal or crossed
	// bounds (its From is not before its To).
	CodeAmbiguousBoundaries Code = "ambiguous_boundaries"
	// CodePatchingFailure: a patch could not be applied or unapplied and no
	// skip policy swallowed the failure.
	CodePatchingFailure Code = "patching_failure"
	// CodeUnsupportedOperation: the operation is not defined for the
	// chain's current direction (e.g. Add on a Backward chain).
	CodeUnsupportedOperation Code = "unsupported_operation"
	// CodePopulateNotConfigured: PatchToDateInto was called against a chain
	// whose Codec does not implement entity.Populator.
	CodePopulateNotConfigured Code = "populate_not_configured"
)

// ChainError is the taxonomy member common to every error this package
// returns. It carries a machine-readable Code, a human message, optional
// structured Details, and an optional Cause for errors.Unwrap/errors.Is.
type ChainError struct {
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

func (e *ChainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chain: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("chain: %s: %s", e.Code, e.Message)
}

func (e *ChainError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, &ChainError{Code: X}) match any ChainError sharing
// the same Code, without requiring identical Details/Cause.
func (e *ChainError) Is(target error) bool {
	t, ok := target.(*ChainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail attaches a key/value pair of forensic context and returns e for
// chaining.
func (e *ChainError) WithDetail(key string, value any) *ChainError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newError(code Code, message string) *ChainError {
	return &ChainError{Code: code, Message: message}
}

func errDuplicateKeyDate(moment time.Time) *ChainError {
	return newError(CodeDuplicateKeyDate, "moment already names a slice boundary").
		WithDetail("moment", moment)
}

func errMissingFuturePolicy(moment time.Time) *ChainError {
	return newError(CodeMissingFuturePolicy, "insertion before an existing slice requires a future policy").
		WithDetail("moment", moment)
}

func errInconsistentChain(reason string) *ChainError {
	return newError(CodeInconsistentChain, reason)
}

func errAmbiguousBoundaries(reason string) *ChainError {
	return newError(CodeAmbiguousBoundaries, reason)
}

func errUnsupportedOperation(op string) *ChainError {
	return newError(CodeUnsupportedOperation, "operation not supported in this direction").
		WithDetail("operation", op)
}

func errPopulateNotConfigured() *ChainError {
	return newError(CodePopulateNotConfigured, "codec does not implement entity.Populator")
}

// PatchingFailure is the forensic payload described by the external
// interfaces: the entity the reconstruction started from, the intermediate
// JSON document at the moment of failure, the patch that failed, its
// position in the chain, and the underlying cause.
type PatchingFailure struct {
	*ChainError
	Index        int
	Patch        *jsonpatch.Patch
	Intermediate string
}

func newPatchingFailure(initialJSON, intermediateJSON string, patch *jsonpatch.Patch, index int, cause error) *PatchingFailure {
	base := newError(CodePatchingFailure, "patch could not be applied").
		WithDetail("index", index).
		WithDetail("initial", initialJSON)
	base.Cause = cause
	return &PatchingFailure{
		ChainError:   base,
		Index:        index,
		Patch:        patch,
		Intermediate: intermediateJSON,
	}
}

// As lets errors.As(err, &chainErr) reach the embedded *ChainError, since
// the promoted Unwrap skips straight to the underlying cause.
func (e *PatchingFailure) As(target any) bool {
	if t, ok := target.(**ChainError); ok {
		*t = e.ChainError
		return true
	}
	return false
}
