package est

import "fmt"

// PlaceState is one bit of a PlaceStates set.
type PlaceState uint8

const (
	// Fitting marks a place that replays cleanly on at least a tau fraction
	// of the traces it is involved in.
	Fitting PlaceState = 1 << iota
	// Overfed marks a place left with unconsumed tokens at the end of
	// enough traces.
	Overfed
	// Underfed marks a place where enough traces tried to consume a token
	// while the place was empty.
	Underfed
)

// PlaceStates is the set of PlaceState bits a place exhibited across an
// encoded log. The three bits are independent: a place can be both
// Overfed and Underfed on different traces whenever tau < 1.
type PlaceStates uint8

// Has reports whether s contains bit.
func (s PlaceStates) Has(bit PlaceState) bool {
	return PlaceState(s)&bit != 0
}

func (s PlaceStates) add(bit PlaceState) PlaceStates {
	return s | PlaceStates(bit)
}

// String renders the set as e.g. "fitting|overfed".
func (s PlaceStates) String() string {
	if s == 0 {
		return "none"
	}
	out := ""
	for _, b := range []struct {
		bit  PlaceState
		name string
	}{{Fitting, "fitting"}, {Overfed, "overfed"}, {Underfed, "underfed"}} {
		if s.Has(b.bit) {
			if out != "" {
				out += "|"
			}
			out += b.name
		}
	}
	return out
}

// traceState classifies a single trace's replay against p. A trace is
// involved if any event touches In or Out at all; uninvolved traces carry
// no state and do not enter any ratio. overfed and underfed are not
// mutually exclusive with each other or with fitting being false: a trace
// that goes negative and still ends with residual tokens is both.
type traceState struct {
	involved, overfed, underfed, fitting bool
}

// replayTrace runs the token game for p over one trace's event sequence:
// an integer token counter, not a 1-safe marking.
// Per event, consumption is checked before production; if the event's
// activity is in both p.Out and p.In (a self-loop place), the token is
// removed before a new one is added. Underfed is raised the instant the
// counter goes negative; overfed is decided once, at the end, from the
// final residual. A momentary double production is not itself overfed;
// only a positive balance left over at trace end is.
func replayTrace(p Place, events []ActivitySet) traceState {
	var st traceState
	tokens := 0
	for _, e := range events {
		if p.In.Intersects(e) || p.Out.Intersects(e) {
			st.involved = true
		}
		if p.Out.Intersects(e) {
			tokens--
		}
		if tokens < 0 {
			st.underfed = true
		}
		if p.In.Intersects(e) {
			tokens++
		}
	}
	if tokens > 0 {
		st.overfed = true
	} else if tokens == 0 && !st.underfed && st.involved {
		st.fitting = true
	}
	return st
}

// PlaceFitnessStats summarizes EvaluatePlace's per-trace counts, by
// distinct trace, not frequency-weighted occurrence count. Ratios are
// taken over InvolvedTraces, not TotalTraces: a trace the place never
// touches contributes to neither numerator nor denominator.
type PlaceFitnessStats struct {
	TotalTraces    int
	InvolvedTraces int
	FittingTraces  int
	OverfedTraces  int
	UnderfedTraces int
}

// OverfedRatio returns the fraction of involved traces that overfed p, or 0
// if no trace was involved.
func (s PlaceFitnessStats) OverfedRatio() float64 {
	if s.InvolvedTraces == 0 {
		return 0
	}
	return float64(s.OverfedTraces) / float64(s.InvolvedTraces)
}

// UnderfedRatio returns the fraction of involved traces that underfed p, or
// 0 if no trace was involved.
func (s PlaceFitnessStats) UnderfedRatio() float64 {
	if s.InvolvedTraces == 0 {
		return 0
	}
	return float64(s.UnderfedTraces) / float64(s.InvolvedTraces)
}

// FittingRatio returns the fraction of involved traces that fit p, or 0 if
// no trace was involved.
func (s PlaceFitnessStats) FittingRatio() float64 {
	if s.InvolvedTraces == 0 {
		return 0
	}
	return float64(s.FittingTraces) / float64(s.InvolvedTraces)
}

// EvaluatePlace replays every distinct trace in log against p and
// classifies it: Overfed when the overfed ratio exceeds 1-tau, Underfed
// when the underfed ratio exceeds 1-tau, Fitting when the fitting ratio
// is at least tau. The three bits are independent; a place can be
// simultaneously Overfed and Underfed whenever tau < 1. A place with zero
// involved traces is vacuously non-fitting: no bit is ever set for it.
func EvaluatePlace(p Place, log *EncodedLog, tau float64) (PlaceStates, PlaceFitnessStats) {
	var stats PlaceFitnessStats
	stats.TotalTraces = log.NumTraces()

	for _, t := range log.Traces {
		ts := replayTrace(p, t.Events)
		if !ts.involved {
			continue
		}
		stats.InvolvedTraces++
		if ts.overfed {
			stats.OverfedTraces++
		}
		if ts.underfed {
			stats.UnderfedTraces++
		}
		if ts.fitting {
			stats.FittingTraces++
		}
	}

	var states PlaceStates
	if stats.InvolvedTraces == 0 {
		return states, stats
	}
	// The thresholds carry a small tolerance so that a ratio of exactly
	// 1-tau (e.g. 1/10 against 1-0.9, which is 0.0999... in floating point)
	// does not count as exceeding it.
	const eps = 1e-9
	if stats.OverfedRatio() > 1-tau+eps {
		states = states.add(Overfed)
	}
	if stats.UnderfedRatio() > 1-tau+eps {
		states = states.add(Underfed)
	}
	if stats.FittingRatio() >= tau-eps {
		states = states.add(Fitting)
	}
	return states, stats
}

// ValidateTau returns ErrInvalidConfig if tau is outside the (0, 1]
// noise-tolerance range; tau = 1 demands exact replay on every trace, and
// tau = 0 is never valid since no place could ever be declared fitting.
func ValidateTau(tau float64) error {
	if tau <= 0 || tau > 1 {
		return fmt.Errorf("%w: tau %v outside (0, 1]", ErrInvalidConfig, tau)
	}
	return nil
}
