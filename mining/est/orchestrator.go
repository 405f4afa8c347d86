package est

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pflow-xyz/pflow-miner/eventlog"
	"github.com/pflow-xyz/pflow-miner/petri"
)

// ErrCancelled is surfaced (wrapped) by Run when the supplied context is
// cancelled or its deadline expires mid-search. The returned Result still
// holds every place collected before cancellation; post-processing is
// skipped rather than the whole run being discarded.
var ErrCancelled = errors.New("est: run cancelled")

// Config parameterizes one end-to-end discovery run. DefaultConfig is the
// standard preset: lexicographic ordering, useless-place pruning only, no
// noise tolerance, and the redundant-then-implicit post-processing chain.
type Config struct {
	StartLabel string
	EndLabel   string

	Tau              float64
	OrderStrategy    OrderStrategy
	OrderOrientation OrderOrientation
	Restricted       RestrictedEdge
	Workers          int

	ArityMaxIn, ArityMaxOut int
	HeuristicThreshold      float64 // 0 disables heuristic-follows pruning
	InterestingTheta        float64 // 0 disables interesting-places pruning
	ImportantTraceIndices   []int

	PostProcessing PostProcessing
	LPMaxNodes     int
}

// PostProcessing selects which implicit-place removal passes run after the
// search.
type PostProcessing int

const (
	// PostNone keeps every fitting place the search collected.
	PostNone PostProcessing = iota
	// PostStructural runs only the structural implicit-place test.
	PostStructural
	// PostConcurrent runs only the concurrent implicit-place test.
	PostConcurrent
	// PostBoth runs two full passes: the structural test, then the
	// concurrent test over the structural pass's survivors.
	PostBoth
	// PostRedundantThenImplicit chains the redundant-place pass before
	// the combined implicit tests; the standard preset.
	PostRedundantThenImplicit
)

// String implements fmt.Stringer.
func (p PostProcessing) String() string {
	switch p {
	case PostNone:
		return "none"
	case PostStructural:
		return "structural"
	case PostConcurrent:
		return "concurrent"
	case PostBoth:
		return "both"
	case PostRedundantThenImplicit:
		return "redundant-then-implicit"
	default:
		return "unknown"
	}
}

// DefaultConfig returns the standard preset.
func DefaultConfig() Config {
	return Config{
		StartLabel:       "[start>",
		EndLabel:         "[end]",
		Tau:              1,
		OrderStrategy:    OrderLexicographic,
		OrderOrientation: OrientUnderfed,
		Restricted:       RestrictRed,
		Workers:          4,
		PostProcessing:   PostRedundantThenImplicit,
		LPMaxNodes:       5000,
	}
}

// Result is the output of one discovery Run: the discovered net, the
// surviving candidate places behind it, and run statistics. RunID lets a
// caller correlate this run's stats/places/net across repeated sweeps or
// logged output.
type Result struct {
	RunID   uuid.UUID
	Net     *petri.PetriNet
	Places  []Place
	EncLog  *EncodedLog
	Stats   RunStats
}

// RunStats records per-phase timings and search/post-processing counts.
type RunStats struct {
	EncodeTime      time.Duration
	SearchTime      time.Duration
	PostProcessTime time.Duration
	Search          Stats
	PlacesFound     int
	PlacesKept      int
	Warnings        []string
}

// Run executes the full eST-Miner pipeline with a background context: see
// RunContext for the cancellable form.
func Run(log *eventlog.EventLog, cfg Config) (*Result, error) {
	return RunContext(context.Background(), log, cfg)
}

// RunContext executes the full eST-Miner pipeline: encode the log, build
// activity orders, search for fitting candidate places under the
// configured pruning strategy, post-process to drop implicit/redundant
// places, and assemble the result into a petri.PetriNet. If ctx is
// cancelled or its deadline expires during the search phase, RunContext
// returns the places collected so far wrapped into a Result (net built
// from the unfiltered set, post-processing skipped) alongside an error
// wrapping ErrCancelled.
func RunContext(ctx context.Context, log *eventlog.EventLog, cfg Config) (*Result, error) {
	if err := ValidateTau(cfg.Tau); err != nil {
		return nil, err
	}

	start := time.Now()
	encLog, err := EncodeLog(log, cfg.StartLabel, cfg.EndLabel)
	if err != nil {
		return nil, fmt.Errorf("est: encode log: %w", err)
	}
	encodeTime := time.Since(start)

	inOrder, outOrder, err := BuildOrders(encLog, cfg.OrderStrategy, cfg.OrderOrientation)
	if err != nil {
		return nil, fmt.Errorf("est: build orders: %w", err)
	}

	prunerFactory := func() PrePruner {
		pruners := []PrePruner{NewUselessPrune()}
		if cfg.ArityMaxIn > 0 || cfg.ArityMaxOut > 0 {
			pruners = append(pruners, NewArityPrune(cfg.ArityMaxIn, cfg.ArityMaxOut))
		}
		if cfg.InterestingTheta > 0 {
			pruners = append(pruners, NewInterestingPlacesPrune(cfg.InterestingTheta))
		}
		if cfg.HeuristicThreshold > 0 {
			pruners = append(pruners, NewHeuristicFollowsPrune(cfg.HeuristicThreshold))
		}
		if len(cfg.ImportantTraceIndices) > 0 {
			pruners = append(pruners, NewImportantTracesPrune(encLog, cfg.ImportantTraceIndices))
		}
		return ComposePruners(pruners...)
	}

	searchStart := time.Now()
	places, searchStats, err := Search(ctx, encLog, SearchConfig{
		Tau:          cfg.Tau,
		Workers:      cfg.Workers,
		InOrder:      inOrder,
		OutOrder:     outOrder,
		Restricted:   cfg.Restricted,
		NewPrePruner: prunerFactory,
	})
	searchTime := time.Since(searchStart)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &Result{
				RunID:  uuid.New(),
				Net:    BuildPetriNet(places, encLog),
				Places: places,
				EncLog: encLog,
				Stats: RunStats{
					EncodeTime:  encodeTime,
					SearchTime:  searchTime,
					Search:      searchStats,
					PlacesFound: len(places),
					PlacesKept:  len(places),
					Warnings:    []string{"cancelled mid-search: post-processing skipped"},
				},
			}, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return nil, fmt.Errorf("est: search: %w", err)
	}

	postStart := time.Now()
	kept := places
	var warnings []string
	if searchStats.WorkerPanic > 0 {
		warnings = append(warnings, fmt.Sprintf("%d root subtree(s) discarded after a worker panic", searchStats.WorkerPanic))
	}
	if cfg.PostProcessing != PostNone {
		solver := NewBranchAndBoundSolver(cfg.LPMaxNodes)
		switch cfg.PostProcessing {
		case PostStructural:
			kept, err = RemoveImplicitStructural(kept, encLog, solver)
		case PostConcurrent:
			kept, err = RemoveImplicitConcurrent(kept, encLog, solver)
		case PostBoth:
			kept, err = RemoveImplicit(kept, encLog, solver)
		case PostRedundantThenImplicit:
			kept, err = RemoveRedundantThenImplicit(kept, encLog, solver)
		default:
			return nil, fmt.Errorf("%w: unknown post-processing mode %d", ErrInvalidConfig, cfg.PostProcessing)
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("post-processing failed, keeping unfiltered places: %v", err))
			kept = places
		}
	}
	postTime := time.Since(postStart)

	net := BuildPetriNet(kept, encLog)

	return &Result{
		RunID:  uuid.New(),
		Net:    net,
		Places: kept,
		EncLog: encLog,
		Stats: RunStats{
			EncodeTime:      encodeTime,
			SearchTime:      searchTime,
			PostProcessTime: postTime,
			Search:          searchStats,
			PlacesFound:     len(places),
			PlacesKept:      len(kept),
			Warnings:        warnings,
		},
	}, nil
}

// BuildPetriNet assembles a petri.PetriNet from a surviving place set: one
// petri.Transition per activity (the synthetic start/end activities
// included), one petri.Place per candidate place, and arcs wiring each
// place to the activities in its In/Out sets. A src place marked with one
// token feeds the start transition and a sink place drains the end
// transition, so the initial marking is {src: 1} and a complete run ends
// with the single token in sink.
func BuildPetriNet(places []Place, log *EncodedLog) *petri.PetriNet {
	net := petri.NewPetriNet()

	for _, a := range log.Activities {
		label := a
		net.AddTransition(a, "default", 0, 0, &label)
	}

	net.AddPlace("src", 1.0, nil, 0, 0, nil)
	net.AddPlace("sink", 0.0, nil, 0, 0, nil)
	net.AddArc("src", log.Decode(log.StartMask), 1.0, false)
	net.AddArc(log.Decode(log.EndMask), "sink", 1.0, false)

	for i, p := range places {
		placeName := fmt.Sprintf("p%d", i)
		net.AddPlace(placeName, 0.0, nil, 0, 0, nil)

		for mask, activity := range log.MaskToActivity {
			if p.In.Intersects(mask) {
				net.AddArc(activity, placeName, 1.0, false)
			}
			if p.Out.Intersects(mask) {
				net.AddArc(placeName, activity, 1.0, false)
			}
		}
	}

	return net
}
