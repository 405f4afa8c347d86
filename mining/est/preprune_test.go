package est

import "testing"

func TestUselessPrunesEndInOrStartOut(t *testing.T) {
	enc := encodedLogFixture(t)
	pruner := NewUselessPrune()
	if err := pruner.Init(enc); err != nil {
		t.Fatalf("Init: %v", err)
	}

	endIn := place(t, enc, []string{"[end]"}, []string{"A"})
	if !pruner.ShouldPrune(endIn) {
		t.Errorf("place with end in In should be pruned as useless")
	}

	fine := place(t, enc, []string{"A"}, []string{"B"})
	if pruner.ShouldPrune(fine) {
		t.Errorf("({A},{B}) should not be pruned as useless")
	}
}

func TestArityPrune(t *testing.T) {
	enc := encodedLogFixture(t)
	p := place(t, enc, []string{"A"}, []string{"B", "C"})

	unbounded := NewArityPrune(0, 0)
	if unbounded.ShouldPrune(p) {
		t.Errorf("unbounded arity pruner should never prune")
	}

	boundedOut := NewArityPrune(0, 1)
	if !boundedOut.ShouldPrune(p) {
		t.Errorf("place with 2 Out activities should be pruned when maxOut=1")
	}

	boundedIn := NewArityPrune(1, 0)
	if boundedIn.ShouldPrune(p) {
		t.Errorf("place with 1 In activity should not be pruned when maxIn=1")
	}
}

// TestInterestingPlacesPruneSupportThreshold exercises C4's INTERESTING_PLACES
// strategy: a branch where B only ever eventually-follows A on half of the
// traces that carry both falls below theta and is pruned.
func TestInterestingPlacesPruneSupportThreshold(t *testing.T) {
	log := buildLog(t, map[string][]string{
		"c1": {"a", "b"},
		"c2": {"a", "b"},
		"c3": {"b", "a"}, // b occurs but never after a here
		"c4": {"b", "a"},
	})
	enc, err := EncodeLog(log, "[start>", "[end]")
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}

	pruner := NewInterestingPlacesPrune(0.6)
	if err := pruner.Init(enc); err != nil {
		t.Fatalf("Init: %v", err)
	}
	p := place(t, enc, []string{"a"}, []string{"b"})
	if !pruner.ShouldPrune(p) {
		t.Errorf("support(a,b) is 0.5 (2 of 4 co-occurring traces), should be pruned at theta=0.6")
	}

	lenient := NewInterestingPlacesPrune(0.4)
	if err := lenient.Init(enc); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if lenient.ShouldPrune(p) {
		t.Errorf("support(a,b)=0.5 should survive theta=0.4")
	}
}

// TestInterestingPlacesPruneNoCooccurrence checks the zero-support edge case:
// activities that never co-occur in any trace always fail the threshold.
func TestInterestingPlacesPruneNoCooccurrence(t *testing.T) {
	log := buildLog(t, map[string][]string{
		"c1": {"a", "b"},
		"c2": {"c", "d"},
	})
	enc, err := EncodeLog(log, "[start>", "[end]")
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}
	pruner := NewInterestingPlacesPrune(0.01)
	if err := pruner.Init(enc); err != nil {
		t.Fatalf("Init: %v", err)
	}
	p := place(t, enc, []string{"a"}, []string{"c"})
	if !pruner.ShouldPrune(p) {
		t.Errorf("activities that never co-occur must be pruned regardless of theta")
	}
}

// TestHeuristicFollowsPruneNeverFollows:
// a causal link with no direct-follows support across distinct traces is
// pruned once the never-follows fraction exceeds the threshold.
func TestHeuristicFollowsPruneNeverFollows(t *testing.T) {
	log := buildLog(t, map[string][]string{
		"c1": {"a", "b"},
		"c2": {"a", "c", "b"}, // b does not directly follow a here
	})
	enc, err := EncodeLog(log, "[start>", "[end]")
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}

	strict := NewHeuristicFollowsPrune(0.4)
	if err := strict.Init(enc); err != nil {
		t.Fatalf("Init: %v", err)
	}
	p := place(t, enc, []string{"a"}, []string{"b"})
	if !strict.ShouldPrune(p) {
		t.Errorf("never-follows fraction is 0.5, should be pruned at threshold=0.4")
	}

	lenient := NewHeuristicFollowsPrune(0.6)
	if err := lenient.Init(enc); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if lenient.ShouldPrune(p) {
		t.Errorf("never-follows fraction 0.5 should survive threshold=0.6")
	}
}

func TestHeuristicFollowsPruneStillAppliesUseless(t *testing.T) {
	enc := encodedLogFixture(t)
	pruner := NewHeuristicFollowsPrune(1.0)
	if err := pruner.Init(enc); err != nil {
		t.Fatalf("Init: %v", err)
	}
	endIn := place(t, enc, []string{"[end]"}, []string{"A"})
	if !pruner.ShouldPrune(endIn) {
		t.Errorf("heuristic-follows pruner must still reject structurally useless places")
	}
}

func TestComposePrunersPrunesWhenAnyMemberPrunes(t *testing.T) {
	enc := encodedLogFixture(t)
	composed := ComposePruners(NewNoPrune(), NewUselessPrune(), NewArityPrune(1, 1))
	if err := composed.Init(enc); err != nil {
		t.Fatalf("Init: %v", err)
	}
	tooWide := place(t, enc, []string{"A"}, []string{"B", "C"})
	if !composed.ShouldPrune(tooWide) {
		t.Errorf("composed pruner should prune on the arity rule even when earlier pruners pass")
	}
	fine := place(t, enc, []string{"A"}, []string{"B"})
	if composed.ShouldPrune(fine) {
		t.Errorf("composed pruner should not prune a place none of its members reject")
	}
}

// TestImportantTracesPrune checks that a place failing to fit a
// caller-designated "important" trace is pruned even though it fits every
// other trace in the log.
func TestImportantTracesPrune(t *testing.T) {
	log := buildLog(t, map[string][]string{
		"ab":  {"a", "b"},
		"abc": {"a", "b", "c"},
	})
	enc, err := EncodeLog(log, "[start>", "[end]")
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}

	// ({a},{c}): trace "ab" never touches c, so it overfeeds (a produces a
	// token that's never consumed); trace "abc" fits.
	p := place(t, enc, []string{"a"}, []string{"c"})

	var abIdx, abcIdx int = -1, -1
	for i, tr := range enc.Traces {
		if len(tr.Events) == 4 { // [start>, a, b, [end]
			abIdx = i
		}
		if len(tr.Events) == 5 { // [start>, a, b, c, [end]
			abcIdx = i
		}
	}
	if abIdx == -1 || abcIdx == -1 {
		t.Fatalf("expected to find both distinct traces, got %d traces", enc.NumTraces())
	}

	onlyABC := NewImportantTracesPrune(enc, []int{abcIdx})
	if err := onlyABC.Init(enc); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if onlyABC.ShouldPrune(p) {
		t.Errorf("({a},{c}) fits the abc trace, should not be pruned when only it is important")
	}

	withAB := NewImportantTracesPrune(enc, []int{abIdx, abcIdx})
	if err := withAB.Init(enc); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !withAB.ShouldPrune(p) {
		t.Errorf("({a},{c}) overfeeds the ab trace, should be pruned once it is important")
	}
}
