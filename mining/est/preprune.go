package est

// PrePruner decides, before a candidate place is ever replayed against the
// log, whether its subtree in the search tree can be skipped outright. It
// is called once per place as search.go descends; Init runs once up front
// so strategies can precompute log-wide statistics.
type PrePruner interface {
	// Init prepares the pruner against the full encoded log. Called once
	// before search begins.
	Init(log *EncodedLog) error
	// ShouldPrune reports whether p's entire subtree can be skipped.
	ShouldPrune(p Place) bool
}

// noPrune never prunes anything; it is the zero-cost default.
type noPrune struct{}

// NewNoPrune returns a PrePruner that never prunes.
func NewNoPrune() PrePruner { return noPrune{} }

func (noPrune) Init(*EncodedLog) error { return nil }
func (noPrune) ShouldPrune(Place) bool { return false }

// uselessPrune discards places whose In set contains the end activity or
// whose Out set contains the start activity: these can never appear in a
// sound net regardless of replay fitness.
type uselessPrune struct {
	startMask, endMask ActivitySet
}

// NewUselessPrune returns a PrePruner that discards structurally useless
// places (Place.Useless).
func NewUselessPrune() PrePruner { return &uselessPrune{} }

func (u *uselessPrune) Init(log *EncodedLog) error {
	u.startMask, u.endMask = log.StartMask, log.EndMask
	return nil
}

func (u *uselessPrune) ShouldPrune(p Place) bool {
	return p.Useless(u.startMask, u.endMask)
}

// followStats tallies, over distinct traces, how activity pairs relate:
// directly (b is the very next event after some occurrence of a),
// eventually (b occurs anywhere after some occurrence of a, not
// necessarily adjacent), and bothPresent (both a and b occur somewhere in
// the trace, in either order). Counts are distinct-trace counts, matching
// the fitness evaluator's convention, not frequency-weighted.
type followStats struct {
	directly    map[string]map[string]int
	eventually  map[string]map[string]int
	bothPresent map[string]map[string]int
}

func bumpFollow(m map[string]map[string]int, a, b string) {
	if m[a] == nil {
		m[a] = make(map[string]int)
	}
	m[a][b]++
}

func buildFollowStats(log *EncodedLog) *followStats {
	fs := &followStats{
		directly:    map[string]map[string]int{},
		eventually:  map[string]map[string]int{},
		bothPresent: map[string]map[string]int{},
	}
	for _, t := range log.Traces {
		firstIdx := map[string]int{}
		lastIdx := map[string]int{}
		for i, e := range t.Events {
			a := log.Decode(e)
			if a == "" {
				continue
			}
			if _, ok := firstIdx[a]; !ok {
				firstIdx[a] = i
			}
			lastIdx[a] = i
		}
		direct := map[string]map[string]bool{}
		for i := 0; i+1 < len(t.Events); i++ {
			a := log.Decode(t.Events[i])
			b := log.Decode(t.Events[i+1])
			if a == "" || b == "" {
				continue
			}
			if direct[a] == nil {
				direct[a] = map[string]bool{}
			}
			direct[a][b] = true
		}
		for a := range firstIdx {
			for b := range firstIdx {
				if a == b {
					continue
				}
				bumpFollow(fs.bothPresent, a, b)
				if firstIdx[a] < lastIdx[b] {
					bumpFollow(fs.eventually, a, b)
				}
				if direct[a][b] {
					bumpFollow(fs.directly, a, b)
				}
			}
		}
	}
	return fs
}

// interestingPrune keeps only "interesting" places: it prunes unless, for
// every pair (a in In, b in Out), the support of "b eventually
// follows a" among traces containing both a and b is at least theta. A
// pair neither activity co-occurs for has zero support and fails the
// threshold, so a place whose in/out activities never co-occur is pruned.
type interestingPrune struct {
	stats *followStats
	log   *EncodedLog
	theta float64
}

// NewInterestingPlacesPrune returns a PrePruner that keeps a place only
// when every In/Out activity pair has eventually-follows support of at
// least theta (0.9 is a reasonable default).
func NewInterestingPlacesPrune(theta float64) PrePruner {
	return &interestingPrune{theta: theta}
}

func (ip *interestingPrune) Init(log *EncodedLog) error {
	ip.stats = buildFollowStats(log)
	ip.log = log
	return nil
}

func (ip *interestingPrune) support(a, b string) float64 {
	both := float64(ip.stats.bothPresent[a][b])
	if both == 0 {
		return 0
	}
	return float64(ip.stats.eventually[a][b]) / both
}

func (ip *interestingPrune) ShouldPrune(p Place) bool {
	for aMask, a := range ip.log.MaskToActivity {
		if !p.In.Intersects(aMask) {
			continue
		}
		for bMask, b := range ip.log.MaskToActivity {
			if !p.Out.Intersects(bMask) {
				continue
			}
			if ip.support(a, b) < ip.theta {
				return true
			}
		}
	}
	return false
}

// heuristicFollowsPrune prunes, in addition to structurally useless
// places, any place where for some pair (a in In, b in Out) the fraction
// of distinct traces in which b never directly follows a exceeds the
// configured threshold: the causal link a->b has no support.
type heuristicFollowsPrune struct {
	stats      *followStats
	log        *EncodedLog
	totalCount int
	threshold  float64
}

// NewHeuristicFollowsPrune returns a PrePruner that discards places where
// some In/Out activity pair's causal link is unsupported past threshold
// (0.95 works well in practice).
func NewHeuristicFollowsPrune(threshold float64) PrePruner {
	return &heuristicFollowsPrune{threshold: threshold}
}

func (hp *heuristicFollowsPrune) Init(log *EncodedLog) error {
	hp.stats = buildFollowStats(log)
	hp.log = log
	hp.totalCount = log.NumTraces()
	return nil
}

func (hp *heuristicFollowsPrune) neverFollowsFraction(a, b string) float64 {
	if hp.totalCount == 0 {
		return 1
	}
	return 1 - float64(hp.stats.directly[a][b])/float64(hp.totalCount)
}

func (hp *heuristicFollowsPrune) ShouldPrune(p Place) bool {
	if (&uselessPrune{startMask: hp.log.StartMask, endMask: hp.log.EndMask}).ShouldPrune(p) {
		return true
	}
	for aMask, a := range hp.log.MaskToActivity {
		if !p.In.Intersects(aMask) {
			continue
		}
		for bMask, b := range hp.log.MaskToActivity {
			if !p.Out.Intersects(bMask) {
				continue
			}
			if hp.neverFollowsFraction(a, b) > hp.threshold {
				return true
			}
		}
	}
	return false
}

// arityPrune discards places whose input or output set has grown past a
// configured cardinality, bounding the size of the discovered net's
// places.
type arityPrune struct {
	maxIn, maxOut int
}

// NewArityPrune returns a PrePruner that discards places with more than
// maxIn input activities or maxOut output activities. A value <= 0 means
// unbounded on that side.
func NewArityPrune(maxIn, maxOut int) PrePruner {
	return &arityPrune{maxIn: maxIn, maxOut: maxOut}
}

func (a *arityPrune) Init(*EncodedLog) error { return nil }

func (a *arityPrune) ShouldPrune(p Place) bool {
	if a.maxIn > 0 && p.InCount > a.maxIn {
		return true
	}
	if a.maxOut > 0 && p.OutCount > a.maxOut {
		return true
	}
	return false
}

// importantTracesPrune discards a place as soon as it fails to fit one of
// a caller-designated set of "important" traces: traces the caller has
// decided the discovered net must explain perfectly, regardless of tau.
// Each search worker owns its own copy of this pruner (seeded identically
// at dispatch) rather than sharing one mutable instance across goroutines.
type importantTracesPrune struct {
	traces []EncodedTrace
}

// NewImportantTracesPrune returns a PrePruner that discards any place not
// fitting every trace at the given indices into log.Traces. Callers
// should Init a fresh copy per worker; the pruner holds no mutable state
// after Init, so copying it by value is safe.
func NewImportantTracesPrune(log *EncodedLog, indices []int) PrePruner {
	traces := make([]EncodedTrace, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(log.Traces) {
			traces = append(traces, log.Traces[i])
		}
	}
	return &importantTracesPrune{traces: traces}
}

func (it *importantTracesPrune) Init(*EncodedLog) error { return nil }

func (it *importantTracesPrune) ShouldPrune(p Place) bool {
	for _, t := range it.traces {
		ts := replayTrace(p, t.Events)
		if ts.overfed || ts.underfed {
			return true
		}
	}
	return false
}

// composedPrune runs a fixed list of pruners in order, short-circuiting
// on the first that prunes.
type composedPrune struct {
	pruners []PrePruner
}

// ComposePruners combines several PrePruners into one: a place is pruned
// if any of them would prune it.
func ComposePruners(pruners ...PrePruner) PrePruner {
	return &composedPrune{pruners: pruners}
}

func (c *composedPrune) Init(log *EncodedLog) error {
	for _, p := range c.pruners {
		if err := p.Init(log); err != nil {
			return err
		}
	}
	return nil
}

func (c *composedPrune) ShouldPrune(p Place) bool {
	for _, pruner := range c.pruners {
		if pruner.ShouldPrune(p) {
			return true
		}
	}
	return false
}
