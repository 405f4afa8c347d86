package est

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Stats summarizes one Search run. PrunedPlaces counts the descendants a
// monotone cut skipped without visiting: a cut below a node with k
// unplaced extension activities removes 2^k - 1 candidate places.
type Stats struct {
	Visited      int64
	Fitting      int64
	PrunedRed    int64
	PrunedBlue   int64
	PrunedPre    int64
	PrunedPlaces int64
	WorkerPanic  int64
}

func (s *Stats) merge(other *Stats) {
	atomic.AddInt64(&s.Visited, atomic.LoadInt64(&other.Visited))
	atomic.AddInt64(&s.Fitting, atomic.LoadInt64(&other.Fitting))
	atomic.AddInt64(&s.PrunedRed, atomic.LoadInt64(&other.PrunedRed))
	atomic.AddInt64(&s.PrunedBlue, atomic.LoadInt64(&other.PrunedBlue))
	atomic.AddInt64(&s.PrunedPre, atomic.LoadInt64(&other.PrunedPre))
	atomic.AddInt64(&s.PrunedPlaces, atomic.LoadInt64(&other.PrunedPlaces))
	atomic.AddInt64(&s.WorkerPanic, atomic.LoadInt64(&other.WorkerPanic))
}

// prunedSubtreeSize counts the candidate places a cut at a node with the
// given extension activities still available would otherwise have reached:
// every non-empty subset of them, 2^k - 1. The synthetic start activity
// never extends an output set and the end activity never extends an input
// set, so the caller passes the already-filtered extension list.
func prunedSubtreeSize(missing int) int64 {
	if missing <= 0 {
		return 0
	}
	if missing >= 63 {
		return 1<<63 - 1
	}
	return int64(1)<<uint(missing) - 1
}

// RestrictedEdge selects which edge kind the search constrains to a single
// opposite-side activity. The orderings guarantee a unique tree path to
// every place regardless of which edge is restricted; the choice only
// changes the shape of the recursion.
type RestrictedEdge int

const (
	// RestrictRed is the default: a red child (growing In) is only
	// generated while Out is still a singleton; Out then grows freely via
	// blue children at every red node.
	RestrictRed RestrictedEdge = iota
	// RestrictBlue swaps the roles: a blue child (growing Out) is only
	// generated while In is still a singleton; In then grows freely via
	// red children at every blue node.
	RestrictBlue
)

// SearchConfig parameterizes one run of the candidate-place search.
type SearchConfig struct {
	Tau        float64
	Workers    int
	InOrder    *ActivityOrder
	OutOrder   *ActivityOrder
	Restricted RestrictedEdge
	// NewPrePruner builds a fresh PrePruner per root-level worker. Each
	// worker gets its own instance (Init'd against the same log) rather
	// than sharing one, so a stateful pruner like importantTracesPrune
	// never needs a lock on the search's hot path.
	NewPrePruner func() PrePruner
}

// Search runs the candidate-place search over an encoded log and returns
// every fitting place found. The root layer is the full Cartesian product
// of single-activity-in, single-activity-out places: every (a, b) pair
// with a != b is its own root, because growing a
// set only ever inserts an activity greater (in the relevant order) than
// its current maximum, so a root's own minimum element never changes
// along any path below it: two different roots can never reach the same
// place. Each root is handed to a worker goroutine that explores it per
// the configured restricted-edge mode.
func Search(ctx context.Context, log *EncodedLog, cfg SearchConfig) ([]Place, Stats, error) {
	if err := ValidateTau(cfg.Tau); err != nil {
		return nil, Stats{}, err
	}
	if cfg.InOrder == nil || cfg.OutOrder == nil {
		return nil, Stats{}, fmt.Errorf("%w: nil activity order", ErrInvalidConfig)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	type root struct {
		place Place
	}
	var roots []root
	for _, a := range log.Activities {
		for _, b := range log.Activities {
			if a == b {
				continue
			}
			p, ok := NewPlace(log.ActivityMask[a], log.ActivityMask[b])
			if !ok {
				continue
			}
			roots = append(roots, root{place: p})
		}
	}

	jobs := make(chan root, len(roots))
	type jobResult struct {
		places []Place
		stats  Stats
	}
	results := make(chan jobResult, len(roots))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pruner := cfg.NewPrePruner()
			if err := pruner.Init(log); err != nil {
				results <- jobResult{}
				return
			}
			for j := range jobs {
				places, stats := runWorker(ctx, log, cfg, pruner, j.place)
				results <- jobResult{places: places, stats: stats}
			}
		}()
	}

	for _, r := range roots {
		jobs <- r
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var found []Place
	var total Stats
	for jr := range results {
		found = append(found, jr.places...)
		total.merge(&jr.stats)
	}

	select {
	case <-ctx.Done():
		return found, total, ctx.Err()
	default:
	}
	return found, total, nil
}

// runWorker explores one root's subtree, recovering from any panic in the
// recursive walk so one bad root cannot take down the whole pool.
func runWorker(ctx context.Context, log *EncodedLog, cfg SearchConfig, pruner PrePruner, rootPlace Place) (places []Place, stats Stats) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&stats.WorkerPanic, 1)
		}
	}()
	w := &walker{ctx: ctx, log: log, cfg: cfg, pruner: pruner}
	if cfg.Restricted == RestrictBlue {
		w.traverseBluePrimary(rootPlace)
	} else {
		w.traverseRed(rootPlace)
	}
	return w.found, w.stats
}

type walker struct {
	ctx    context.Context
	log    *EncodedLog
	cfg    SearchConfig
	pruner PrePruner
	found  []Place
	stats  Stats
}

func (w *walker) cancelled() bool {
	select {
	case <-w.ctx.Done():
		return true
	default:
		return false
	}
}

// missingIn counts the activities still available to extend p's input set,
// excluding the end activity (which never usefully joins an input set).
func (w *walker) missingIn(p Place) int {
	end := w.log.Decode(w.log.EndMask)
	n := 0
	for _, a := range w.cfg.InOrder.Larger(w.cfg.InOrder.Max(p.In, w.log)) {
		if a != end {
			n++
		}
	}
	return n
}

// missingOut mirrors missingIn for the output set, excluding the start
// activity.
func (w *walker) missingOut(p Place) int {
	start := w.log.Decode(w.log.StartMask)
	n := 0
	for _, a := range w.cfg.OutOrder.Larger(w.cfg.OutOrder.Max(p.Out, w.log)) {
		if a != start {
			n++
		}
	}
	return n
}

// traverseRed walks the red subtree rooted at p, growing In. At every
// node (including p itself) it spawns a blue subtree that grows Out with
// In held at p.In.
func (w *walker) traverseRed(p Place) {
	if w.cancelled() {
		return
	}
	if w.pruner.ShouldPrune(p) {
		w.stats.PrunedPre++
		return
	}

	states, _ := EvaluatePlace(p, w.log, w.cfg.Tau)
	w.stats.Visited++

	w.traverseBlue(p, states)

	// Every red descendant spawns its own blue subtree, and adding outputs
	// can cure overfeeding, so the red cut is only taken once Out has no
	// extension left.
	if states.Has(Overfed) && w.missingOut(p) == 0 {
		w.stats.PrunedRed++
		w.stats.PrunedPlaces += prunedSubtreeSize(w.missingIn(p))
		return
	}
	for _, a := range w.cfg.InOrder.Larger(w.cfg.InOrder.Max(p.In, w.log)) {
		child := p.WithExtraInput(w.log.ActivityMask[a])
		w.traverseRed(child)
	}
}

// traverseBlue walks the blue subtree rooted at q, growing Out with In
// fixed. baseStates is q's already-computed PlaceStates (avoids
// re-evaluating the root of this subtree); every deeper node is evaluated
// fresh.
func (w *walker) traverseBlue(q Place, baseStates PlaceStates) {
	if w.cancelled() {
		return
	}
	if baseStates.Has(Fitting) {
		w.found = append(w.found, q)
		w.stats.Fitting++
	}
	if baseStates.Has(Underfed) {
		w.stats.PrunedBlue++
		w.stats.PrunedPlaces += prunedSubtreeSize(w.missingOut(q))
		return
	}
	for _, a := range w.cfg.OutOrder.Larger(w.cfg.OutOrder.Max(q.Out, w.log)) {
		child := q.WithExtraOutput(w.log.ActivityMask[a])
		if w.pruner.ShouldPrune(child) {
			w.stats.PrunedPre++
			continue
		}
		states, _ := EvaluatePlace(child, w.log, w.cfg.Tau)
		w.stats.Visited++
		w.traverseBlue(child, states)
	}
}

// traverseBluePrimary mirrors traverseRed for RestrictBlue mode: it walks
// the blue subtree rooted at p, growing Out, while In stays a singleton.
// At every node it spawns a red subtree that grows In freely with Out
// held fixed.
func (w *walker) traverseBluePrimary(p Place) {
	if w.cancelled() {
		return
	}
	if w.pruner.ShouldPrune(p) {
		w.stats.PrunedPre++
		return
	}

	states, _ := EvaluatePlace(p, w.log, w.cfg.Tau)
	w.stats.Visited++

	w.traverseRedSecondary(p, states)

	// Mirror of traverseRed's cut: adding inputs can cure underfeeding, so
	// the blue cut is only taken once In has no extension left.
	if states.Has(Underfed) && w.missingIn(p) == 0 {
		w.stats.PrunedBlue++
		w.stats.PrunedPlaces += prunedSubtreeSize(w.missingOut(p))
		return
	}
	for _, a := range w.cfg.OutOrder.Larger(w.cfg.OutOrder.Max(p.Out, w.log)) {
		child := p.WithExtraOutput(w.log.ActivityMask[a])
		w.traverseBluePrimary(child)
	}
}

// traverseRedSecondary mirrors traverseBlue for RestrictBlue mode: it
// walks the red subtree rooted at q, growing In freely with Out fixed at
// q.Out. baseStates is q's already-computed PlaceStates.
func (w *walker) traverseRedSecondary(q Place, baseStates PlaceStates) {
	if w.cancelled() {
		return
	}
	if baseStates.Has(Fitting) {
		w.found = append(w.found, q)
		w.stats.Fitting++
	}
	if baseStates.Has(Overfed) {
		w.stats.PrunedRed++
		w.stats.PrunedPlaces += prunedSubtreeSize(w.missingIn(q))
		return
	}
	for _, a := range w.cfg.InOrder.Larger(w.cfg.InOrder.Max(q.In, w.log)) {
		child := q.WithExtraInput(w.log.ActivityMask[a])
		if w.pruner.ShouldPrune(child) {
			w.stats.PrunedPre++
			continue
		}
		states, _ := EvaluatePlace(child, w.log, w.cfg.Tau)
		w.stats.Visited++
		w.traverseRedSecondary(child, states)
	}
}
