// Package jsonpatch adapts github.com/agentflare-ai/jsonpatch into the
// diff/apply/unapply contract the chain engine consumes.
//
// A Patch stores the RFC 6902 operations in both directions, computed once
// at diff time, so that it round-trips through JSON as an opaque value (the
// wire format chain.md calls for) without needing the original documents
// around again to invert it later.
package jsonpatch

import (
	"fmt"

	agjsonpatch "github.com/agentflare-ai/jsonpatch"
)

// Patch is a reversible RFC 6902 patch between two JSON documents.
type Patch struct {
	Forward agjsonpatch.Patch `json:"forward"`
	Reverse agjsonpatch.Patch `json:"reverse"`
}

// Diff computes the patch that transforms left into right, and its inverse.
func Diff(left, right any) (Patch, error) {
	forward, err := agjsonpatch.New(left, right)
	if err != nil {
		return Patch{}, fmt.Errorf("jsonpatch: diff forward: %w", err)
	}
	reverse, err := agjsonpatch.New(right, left)
	if err != nil {
		return Patch{}, fmt.Errorf("jsonpatch: diff reverse: %w", err)
	}
	return Patch{Forward: forward, Reverse: reverse}, nil
}

// Apply replays the forward patch against doc, moving it from left to right.
func (p Patch) Apply(doc any) (any, error) {
	out, err := agjsonpatch.Apply(doc, p.Forward)
	if err != nil {
		return nil, fmt.Errorf("jsonpatch: apply: %w", err)
	}
	return out, nil
}

// Unapply replays the reverse patch against doc, moving it from right to
// left — undoing whatever Apply would have done.
func (p Patch) Unapply(doc any) (any, error) {
	out, err := agjsonpatch.Apply(doc, p.Reverse)
	if err != nil {
		return nil, fmt.Errorf("jsonpatch: unapply: %w", err)
	}
	return out, nil
}

// IsEmpty reports whether the patch carries no operations in either
// direction (the two documents it was diffed from were identical).
func (p Patch) IsEmpty() bool {
	return len(p.Forward) == 0 && len(p.Reverse) == 0
}
