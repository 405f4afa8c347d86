package est

import (
	"errors"
	"fmt"
	"sort"
)

// OrderStrategy selects how activity scores are computed for C2.
type OrderStrategy int

const (
	OrderLexicographic OrderStrategy = iota
	OrderAbsTraceFrequency
	OrderRelTraceFrequency
	OrderAvgTraceOcc
	OrderAvgFirstOccIndex
)

// String implements fmt.Stringer.
func (s OrderStrategy) String() string {
	switch s {
	case OrderLexicographic:
		return "lexicographic"
	case OrderAbsTraceFrequency:
		return "abs-trace-frequency"
	case OrderRelTraceFrequency:
		return "rel-trace-frequency"
	case OrderAvgTraceOcc:
		return "avg-trace-occ"
	case OrderAvgFirstOccIndex:
		return "avg-first-occ-index"
	default:
		return "unknown"
	}
}

// OrderOrientation selects which extension direction the frequency-based
// strategies optimize for: growing the input set into overfed territory
// early, or growing the output set into underfed territory early.
type OrderOrientation int

const (
	// OrientUnderfed makes the most frequent activities minimal in the
	// input order and the least frequent minimal in the output order.
	OrientUnderfed OrderOrientation = iota
	// OrientOverfed swaps input/output relative to OrientUnderfed,
	// favoring early overfed cutoffs instead.
	OrientOverfed
)

// ErrInvalidConfig is returned for an unrecognized order strategy or
// post-processing mode, a nil activity order, or an out-of-range tau.
var ErrInvalidConfig = errors.New("est: invalid config")

// ActivityOrder is a strict total order over activity labels, exposing for
// each activity the (ordered, duplicate-free) list of activities strictly
// greater than it.
type ActivityOrder struct {
	order []string
	index map[string]int
	// larger[i] holds larger(order[i]), in ascending order.
	larger [][]string
}

// First returns the minimal activity in this order.
func (o *ActivityOrder) First() string {
	return o.order[0]
}

// Larger returns the activities strictly greater than a, in ascending
// order. Returns nil for the maximal activity or an unknown label.
func (o *ActivityOrder) Larger(a string) []string {
	i, ok := o.index[a]
	if !ok {
		return nil
	}
	return o.larger[i]
}

// Max returns the greatest activity (by this order) present in set,
// decoded via log. Returns "" if set is empty; Place guarantees non-empty
// In/Out sets.
func (o *ActivityOrder) Max(set ActivitySet, log *EncodedLog) string {
	best := ""
	bestIdx := -1
	for mask, label := range log.MaskToActivity {
		if !set.Intersects(mask) {
			continue
		}
		if idx := o.index[label]; idx > bestIdx {
			bestIdx = idx
			best = label
		}
	}
	return best
}

// buildFromRanks constructs an ActivityOrder where activities are ordered
// ascending by rank, ties broken by label.
func buildFromRanks(labels []string, rank map[string]float64) *ActivityOrder {
	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.SliceStable(sorted, func(i, j int) bool {
		if rank[sorted[i]] != rank[sorted[j]] {
			return rank[sorted[i]] < rank[sorted[j]]
		}
		return sorted[i] < sorted[j]
	})

	index := make(map[string]int, len(sorted))
	for i, a := range sorted {
		index[a] = i
	}
	larger := make([][]string, len(sorted))
	for i := range sorted {
		larger[i] = append([]string(nil), sorted[i+1:]...)
	}
	return &ActivityOrder{order: sorted, index: index, larger: larger}
}

// BuildOrders runs the activity-ordering strategy (C2) over an encoded log,
// returning the (in_order, out_order) pair that shapes the search tree.
func BuildOrders(log *EncodedLog, strategy OrderStrategy, orientation OrderOrientation) (in, out *ActivityOrder, err error) {
	switch strategy {
	case OrderLexicographic:
		rank := make(map[string]float64, len(log.Activities))
		for _, a := range log.Activities {
			rank[a] = 0 // tiebreak-only; label order decides
		}
		o := buildFromRanks(log.Activities, rank)
		return o, o, nil

	case OrderAbsTraceFrequency:
		return buildFreqOrders(log, absTraceFrequency(log), orientation), buildFreqOrdersOut(log, absTraceFrequency(log), orientation), nil

	case OrderRelTraceFrequency:
		return buildFreqOrders(log, relTraceFrequency(log), orientation), buildFreqOrdersOut(log, relTraceFrequency(log), orientation), nil

	case OrderAvgTraceOcc:
		return buildFreqOrders(log, avgTraceOcc(log), orientation), buildFreqOrdersOut(log, avgTraceOcc(log), orientation), nil

	case OrderAvgFirstOccIndex:
		score := avgFirstOccIndex(log)
		// Output order: early-first is minimal. Input order: late-first is
		// minimal (the ranks are reversed relative to each other).
		negated := make(map[string]float64, len(score))
		for a, v := range score {
			negated[a] = -v
		}
		return buildFromRanks(log.Activities, negated), buildFromRanks(log.Activities, score), nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown order strategy %d", ErrInvalidConfig, strategy)
	}
}

// buildFreqOrders builds the input order for a frequency-based strategy.
// Under OrientUnderfed the most frequent activity is minimal in the input
// order; under OrientOverfed the least frequent activity is minimal
// instead (the two orientations swap input/output polarity).
func buildFreqOrders(log *EncodedLog, score map[string]float64, orientation OrderOrientation) *ActivityOrder {
	rank := make(map[string]float64, len(score))
	for a, v := range score {
		if orientation == OrientUnderfed {
			rank[a] = -v // most frequent (largest v) sorts first -> minimal
		} else {
			rank[a] = v // least frequent sorts first -> minimal
		}
	}
	return buildFromRanks(log.Activities, rank)
}

// buildFreqOrdersOut mirrors buildFreqOrders for the output order, which
// always takes the opposite polarity from the input order for the same
// strategy family.
func buildFreqOrdersOut(log *EncodedLog, score map[string]float64, orientation OrderOrientation) *ActivityOrder {
	rank := make(map[string]float64, len(score))
	for a, v := range score {
		if orientation == OrientUnderfed {
			rank[a] = v // least frequent minimal
		} else {
			rank[a] = -v // most frequent minimal
		}
	}
	return buildFromRanks(log.Activities, rank)
}

func absTraceFrequency(log *EncodedLog) map[string]float64 {
	score := make(map[string]float64, len(log.Activities))
	for _, a := range log.Activities {
		mask := log.ActivityMask[a]
		count := 0
		for _, t := range log.Traces {
			if traceContains(t, mask) {
				count++
			}
		}
		score[a] = float64(count)
	}
	return score
}

func relTraceFrequency(log *EncodedLog) map[string]float64 {
	score := absTraceFrequency(log)
	n := float64(log.NumTraces())
	if n == 0 {
		return score
	}
	for a, v := range score {
		score[a] = v / n
	}
	return score
}

func avgTraceOcc(log *EncodedLog) map[string]float64 {
	score := make(map[string]float64, len(log.Activities))
	n := float64(log.NumTraces())
	if n == 0 {
		return score
	}
	for _, a := range log.Activities {
		mask := log.ActivityMask[a]
		sum := 0.0
		for _, t := range log.Traces {
			occ := 0
			for _, e := range t.Events {
				if e == mask {
					occ++
				}
			}
			sum += float64(occ) / float64(len(t.Events))
		}
		score[a] = sum / n
	}
	return score
}

func avgFirstOccIndex(log *EncodedLog) map[string]float64 {
	score := make(map[string]float64, len(log.Activities))
	for _, a := range log.Activities {
		mask := log.ActivityMask[a]
		indexSum := 0
		traces := 0
		for _, t := range log.Traces {
			for idx, e := range t.Events {
				if e == mask {
					indexSum += idx
					traces++
					break
				}
			}
		}
		if traces == 0 {
			score[a] = 0
			continue
		}
		score[a] = float64(indexSum) / float64(traces)
	}
	return score
}

func traceContains(t EncodedTrace, mask ActivitySet) bool {
	for _, e := range t.Events {
		if e == mask {
			return true
		}
	}
	return false
}
