// Package est implements the eST-Miner candidate-place search: a process
// discovery algorithm that enumerates Petri-net places as pairs of input
// and output activity sets and keeps those that replay an event log within
// a configurable noise tolerance.
package est

import "math/bits"

// ActivitySet is a bitmask over the activities of an EncodedLog. Bit i is
// set iff the activity assigned index i is a member. A uint64 caps the
// package at 64 distinct activities including the synthetic start/end
// activities; EncodeLog reports ErrTooManyActivities beyond that rather
// than truncating.
type ActivitySet uint64

// Contains reports whether every activity in other is also in s.
func (s ActivitySet) Contains(other ActivitySet) bool {
	return s&other == other
}

// Intersects reports whether s and other share at least one activity.
func (s ActivitySet) Intersects(other ActivitySet) bool {
	return s&other != 0
}

// Count returns the number of activities in s (its popcount).
func (s ActivitySet) Count() int {
	return bits.OnesCount64(uint64(s))
}

// Union returns the set containing every activity in either s or other.
func (s ActivitySet) Union(other ActivitySet) ActivitySet {
	return s | other
}

// Place is a candidate Petri-net place: a pair of non-empty activity sets.
// In is the set of activities that produce a token into the place; Out is
// the set that consumes one. Popcounts are cached because the search
// driver and post-processor both query them repeatedly.
type Place struct {
	In, Out           ActivitySet
	InCount, OutCount int
}

// NewPlace builds a Place from two activity sets, returning ok=false if
// either set is empty (places are required to be non-empty on both sides).
func NewPlace(in, out ActivitySet) (Place, bool) {
	if in == 0 || out == 0 {
		return Place{}, false
	}
	return Place{In: in, Out: out, InCount: in.Count(), OutCount: out.Count()}, true
}

// Useless reports whether a place can never occur in a valid net: its
// input set contains the end activity, or its output set contains the
// start activity.
func (p Place) Useless(startMask, endMask ActivitySet) bool {
	return p.In.Intersects(endMask) || p.Out.Intersects(startMask)
}

// Equal reports whether two places have identical input and output sets.
func (p Place) Equal(other Place) bool {
	return p.In == other.In && p.Out == other.Out
}

// WithExtraInput returns a new place with a extended into In.
func (p Place) WithExtraInput(a ActivitySet) Place {
	in := p.In | a
	return Place{In: in, Out: p.Out, InCount: in.Count(), OutCount: p.OutCount}
}

// WithExtraOutput returns a new place with a extended into Out.
func (p Place) WithExtraOutput(a ActivitySet) Place {
	out := p.Out | a
	return Place{In: p.In, Out: out, InCount: p.InCount, OutCount: out.Count()}
}
