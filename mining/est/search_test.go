package est

import (
	"context"
	"testing"
)

func xorLog(t *testing.T) *EncodedLog {
	t.Helper()
	traces := map[string][]string{}
	for i := 0; i < 3; i++ {
		traces[caseID("b", i)] = []string{"a", "b", "d"}
		traces[caseID("c", i)] = []string{"a", "c", "d"}
	}
	log := buildLog(t, traces)
	enc, err := EncodeLog(log, "[start>", "[end]")
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}
	return enc
}

func searchCfg(t *testing.T, enc *EncodedLog, restricted RestrictedEdge) SearchConfig {
	t.Helper()
	inOrder, outOrder, err := BuildOrders(enc, OrderLexicographic, OrientUnderfed)
	if err != nil {
		t.Fatalf("BuildOrders: %v", err)
	}
	return SearchConfig{
		Tau:          1.0,
		Workers:      2,
		InOrder:      inOrder,
		OutOrder:     outOrder,
		Restricted:   restricted,
		NewPrePruner: func() PrePruner { return NewUselessPrune() },
	}
}

func placeSet(places []Place) map[Place]bool {
	set := make(map[Place]bool, len(places))
	for _, p := range places {
		set[p] = true
	}
	return set
}

// TestSearchFindsKnownFittingPlaces checks that the expected XOR-split
// places are all discovered by the red-restricted default search.
func TestSearchFindsKnownFittingPlaces(t *testing.T) {
	enc := xorLog(t)
	places, stats, err := Search(context.Background(), enc, searchCfg(t, enc, RestrictRed))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if stats.Visited == 0 {
		t.Errorf("expected at least one place visited")
	}

	want := []struct{ in, out []string }{
		{[]string{"a"}, []string{"b", "c"}},
		{[]string{"b", "c"}, []string{"d"}},
	}
	set := placeSet(places)
	for _, w := range want {
		p := place(t, enc, w.in, w.out)
		if !set[p] {
			t.Errorf("expected place (%v,%v) among search results", w.in, w.out)
		}
	}
}

// TestSearchRestrictedEdgeModesAgree checks that RestrictRed and
// RestrictBlue, which only differ in which edge kind is held fixed while
// the other grows freely, discover the same set of fitting places: both
// enumerate the same root Cartesian product and every reachable place has
// exactly one path to its root regardless of which side is restricted.
func TestSearchRestrictedEdgeModesAgree(t *testing.T) {
	enc := xorLog(t)
	redPlaces, _, err := Search(context.Background(), enc, searchCfg(t, enc, RestrictRed))
	if err != nil {
		t.Fatalf("Search(RestrictRed): %v", err)
	}
	bluePlaces, _, err := Search(context.Background(), enc, searchCfg(t, enc, RestrictBlue))
	if err != nil {
		t.Fatalf("Search(RestrictBlue): %v", err)
	}

	redSet, blueSet := placeSet(redPlaces), placeSet(bluePlaces)
	if len(redSet) != len(blueSet) {
		t.Fatalf("RestrictRed found %d distinct places, RestrictBlue found %d", len(redSet), len(blueSet))
	}
	for p := range redSet {
		if !blueSet[p] {
			t.Errorf("place %+v found under RestrictRed but not RestrictBlue", p)
		}
	}
}

// TestSearchCancellation checks the cooperative-cancellation
// contract: a context cancelled before Search starts returns immediately
// with context.Canceled and whatever (possibly empty) partial result had
// already been collected, rather than blocking or panicking.
func TestSearchCancellation(t *testing.T) {
	enc := xorLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Search(ctx, enc, searchCfg(t, enc, RestrictRed))
	if err == nil {
		t.Fatalf("expected an error from a pre-cancelled context")
	}
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// TestSearchRootsCoverFullCartesianProduct guards against the
// single-fixed-output-activity root bug: ({a},{b,c}) is reachable only by
// growing Out from the root keyed on (a,b); a root enumeration that fixed
// a single shared output activity across all roots would never generate
// (a,b) as a root unless b happened to be that one designated activity,
// silently dropping most of the candidate space. Finding it here, plus
// (b,c -> d) requiring a root keyed on b, demonstrates every (x,y) pair is
// independently available as a root.
func TestSearchRootsCoverFullCartesianProduct(t *testing.T) {
	enc := xorLog(t)
	places, _, err := Search(context.Background(), enc, searchCfg(t, enc, RestrictRed))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	set := placeSet(places)
	split := place(t, enc, []string{"a"}, []string{"b", "c"})
	join := place(t, enc, []string{"b", "c"}, []string{"d"})
	if !set[split] {
		t.Errorf("expected ({a},{b,c}) reachable via the (a,b) root")
	}
	if !set[join] {
		t.Errorf("expected ({b,c},{d}) reachable via the (b,d) root")
	}
}

// TestSearchVisitsEachPlaceOnce: the restricted-edge rule plus the
// larger-than-max extension discipline must yield exactly one path to
// every place, so the collected fitting set can never contain duplicates.
func TestSearchVisitsEachPlaceOnce(t *testing.T) {
	enc := xorLog(t)
	for _, mode := range []RestrictedEdge{RestrictRed, RestrictBlue} {
		places, _, err := Search(context.Background(), enc, searchCfg(t, enc, mode))
		if err != nil {
			t.Fatalf("Search(%v): %v", mode, err)
		}
		seen := make(map[Place]int, len(places))
		for _, p := range places {
			seen[p]++
			if seen[p] > 1 {
				t.Errorf("mode %v: place %+v collected %d times", mode, p, seen[p])
			}
		}
	}
}

// TestMonotoneCuts: extending an overfed place's input set can only add
// token production, so every red extension stays overfed; symmetrically,
// extending an underfed place's output set stays underfed.
func TestMonotoneCuts(t *testing.T) {
	enc := xorLog(t)

	overfed := place(t, enc, []string{"a"}, []string{"b"})
	if states, _ := EvaluatePlace(overfed, enc, 1.0); !states.Has(Overfed) {
		t.Fatalf("precondition: ({a},{b}) should be overfed on the c-branch")
	}
	for _, extra := range []string{"b", "c", "d"} {
		grown := overfed.WithExtraInput(enc.ActivityMask[extra])
		if states, _ := EvaluatePlace(grown, enc, 1.0); !states.Has(Overfed) {
			t.Errorf("red extension by %q lost the Overfed state", extra)
		}
	}

	underfed := place(t, enc, []string{"b"}, []string{"d"})
	if states, _ := EvaluatePlace(underfed, enc, 1.0); !states.Has(Underfed) {
		t.Fatalf("precondition: ({b},{d}) should be underfed on the c-branch")
	}
	for _, extra := range []string{"a", "b", "c"} {
		grown := underfed.WithExtraOutput(enc.ActivityMask[extra])
		if states, _ := EvaluatePlace(grown, enc, 1.0); !states.Has(Underfed) {
			t.Errorf("blue extension by %q lost the Underfed state", extra)
		}
	}
}

func TestPrunedSubtreeSize(t *testing.T) {
	cases := []struct {
		missing int
		want    int64
	}{
		{0, 0}, {1, 1}, {3, 7}, {10, 1023},
	}
	for _, c := range cases {
		if got := prunedSubtreeSize(c.missing); got != c.want {
			t.Errorf("prunedSubtreeSize(%d) = %d, want %d", c.missing, got, c.want)
		}
	}
}

func TestSearchRejectsInvalidTau(t *testing.T) {
	enc := xorLog(t)
	cfg := searchCfg(t, enc, RestrictRed)
	cfg.Tau = 0
	if _, _, err := Search(context.Background(), enc, cfg); err == nil {
		t.Errorf("expected Search to reject tau=0")
	}
}

func TestSearchRejectsNilOrders(t *testing.T) {
	enc := xorLog(t)
	cfg := searchCfg(t, enc, RestrictRed)
	cfg.InOrder = nil
	if _, _, err := Search(context.Background(), enc, cfg); err == nil {
		t.Errorf("expected Search to reject a nil InOrder")
	}
}
