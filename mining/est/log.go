package est

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pflow-xyz/pflow-miner/eventlog"
)

// ErrEmptyLog is returned when the input log has zero traces.
var ErrEmptyLog = errors.New("est: log has zero traces")

// ErrEmptyTrace is returned when a trace has zero events.
var ErrEmptyTrace = errors.New("est: trace has zero events")

// ErrTooManyActivities is returned when a log (including its synthetic
// start/end activities) has more distinct activities than fit in an
// ActivitySet.
var ErrTooManyActivities = errors.New("est: more than 64 distinct activities")

// ErrInvalidLog is returned when the configured start/end labels collide
// with an activity already present in the log.
var ErrInvalidLog = errors.New("est: start/end label collides with an existing activity")

// EncodedTrace is one distinct activity sequence, bitmask-encoded, with the
// number of original traces that collapsed into it.
type EncodedTrace struct {
	Frequency int
	Events    []ActivitySet
}

// EncodedLog is the immutable result of running the log encoder (C1). Every
// trace begins with StartMask and ends with EndMask.
type EncodedLog struct {
	Activities     []string
	ActivityMask   map[string]ActivitySet
	MaskToActivity map[ActivitySet]string
	StartMask      ActivitySet
	EndMask        ActivitySet
	Traces         []EncodedTrace
}

// NumTraces returns the number of distinct traces.
func (l *EncodedLog) NumTraces() int {
	return len(l.Traces)
}

// EffectiveSize returns the sum of trace frequencies: the size of the
// original (pre-deduplication) log.
func (l *EncodedLog) EffectiveSize() int {
	total := 0
	for _, t := range l.Traces {
		total += t.Frequency
	}
	return total
}

// Decode maps an ActivitySet back to its activity label, or "" if it is not
// a single recognized activity (e.g. a union of several).
func (l *EncodedLog) Decode(a ActivitySet) string {
	return l.MaskToActivity[a]
}

// EncodeLog runs the log encoder (C1): it prepends/appends synthetic
// start/end activities to every trace, assigns each distinct activity a
// one-hot ActivitySet bit in encounter order, and deduplicates identical
// label sequences into EncodedTrace records with a frequency count.
func EncodeLog(log *eventlog.EventLog, startLabel, endLabel string) (*EncodedLog, error) {
	traces := log.GetTraces()
	if len(traces) == 0 {
		return nil, ErrEmptyLog
	}
	for _, t := range traces {
		if len(t.Events) == 0 {
			return nil, fmt.Errorf("%w: case %q", ErrEmptyTrace, t.CaseID)
		}
	}

	activityOrder := make([]string, 0, 8)
	seen := make(map[string]bool)
	for _, label := range []string{startLabel, endLabel} {
		if !seen[label] {
			seen[label] = true
			activityOrder = append(activityOrder, label)
		}
	}
	for _, t := range traces {
		for _, e := range t.Events {
			if e.Activity == startLabel || e.Activity == endLabel {
				return nil, fmt.Errorf("%w: %q", ErrInvalidLog, e.Activity)
			}
			if !seen[e.Activity] {
				seen[e.Activity] = true
				activityOrder = append(activityOrder, e.Activity)
			}
		}
	}
	if len(activityOrder) > 64 {
		return nil, ErrTooManyActivities
	}

	activityMask := make(map[string]ActivitySet, len(activityOrder))
	maskToActivity := make(map[ActivitySet]string, len(activityOrder))
	for i, label := range activityOrder {
		mask := ActivitySet(1) << uint(i)
		activityMask[label] = mask
		maskToActivity[mask] = label
	}

	dedup := make(map[string]*EncodedTrace, len(traces))
	order := make([]string, 0, len(traces))
	for _, t := range traces {
		labels := make([]string, 0, len(t.Events)+2)
		labels = append(labels, startLabel)
		for _, e := range t.Events {
			labels = append(labels, e.Activity)
		}
		labels = append(labels, endLabel)
		signature := strings.Join(labels, "\x1f")

		if existing, ok := dedup[signature]; ok {
			existing.Frequency++
			continue
		}
		events := make([]ActivitySet, len(labels))
		for i, label := range labels {
			events[i] = activityMask[label]
		}
		dedup[signature] = &EncodedTrace{Frequency: 1, Events: events}
		order = append(order, signature)
	}

	encodedTraces := make([]EncodedTrace, len(order))
	for i, sig := range order {
		encodedTraces[i] = *dedup[sig]
	}

	return &EncodedLog{
		Activities:     activityOrder,
		ActivityMask:   activityMask,
		MaskToActivity: maskToActivity,
		StartMask:      activityMask[startLabel],
		EndMask:        activityMask[endLabel],
		Traces:         encodedTraces,
	}, nil
}
