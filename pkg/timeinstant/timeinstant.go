// Package timeinstant defines the sentinel instants a time-slice chain uses
// to represent the open ends of its timeline.
//
// A chain's first slice always starts at NegInf and its last slice always
// ends at PosInf. NegInf is time.Time's zero value, chosen only because that
// value sorts before every other UTC instant we expect to see in practice,
// not because it means "zero/unset"; the sentinels are tested with IsNegInf
// and IsPosInf rather than IsZero.
package timeinstant

import "time"

// NegInf represents "the beginning of time" for chain purposes.
var NegInf = time.Time{}

// PosInf represents "the end of time" for chain purposes.
var PosInf = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)

// IsNegInf reports whether t is the NegInf sentinel.
func IsNegInf(t time.Time) bool {
	return t.Equal(NegInf)
}

// IsPosInf reports whether t is the PosInf sentinel.
func IsPosInf(t time.Time) bool {
	return t.Equal(PosInf)
}

// IsFinite reports whether t is neither sentinel.
func IsFinite(t time.Time) bool {
	return !IsNegInf(t) && !IsPosInf(t)
}
