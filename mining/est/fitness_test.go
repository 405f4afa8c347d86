package est

import "testing"

// place builds a Place from two label sets against an encoded log, failing
// the test if either side is empty or a label is unrecognized.
func place(t *testing.T, log *EncodedLog, in, out []string) Place {
	t.Helper()
	var inMask, outMask ActivitySet
	for _, a := range in {
		mask, ok := log.ActivityMask[a]
		if !ok {
			t.Fatalf("unknown activity %q", a)
		}
		inMask = inMask.Union(mask)
	}
	for _, a := range out {
		mask, ok := log.ActivityMask[a]
		if !ok {
			t.Fatalf("unknown activity %q", a)
		}
		outMask = outMask.Union(mask)
	}
	p, ok := NewPlace(inMask, outMask)
	if !ok {
		t.Fatalf("NewPlace(%v, %v) rejected as empty", in, out)
	}
	return p
}

// TestEvaluatePlaceTwoActivities replays the simplest sequential log [<a,b>,
// <a,b>], tau=1. The three places chaining start->a->b->end must all fit.
func TestEvaluatePlaceTwoActivities(t *testing.T) {
	log := buildLog(t, map[string][]string{
		"c1": {"a", "b"},
		"c2": {"a", "b"},
	})
	enc, err := EncodeLog(log, "[start>", "[end]")
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}

	cases := []struct {
		name    string
		in, out []string
	}{
		{"start->a", []string{"[start>"}, []string{"a"}},
		{"a->b", []string{"a"}, []string{"b"}},
		{"b->end", []string{"b"}, []string{"[end]"}},
	}
	for _, c := range cases {
		p := place(t, enc, c.in, c.out)
		states, _ := EvaluatePlace(p, enc, 1.0)
		if !states.Has(Fitting) {
			t.Errorf("%s: expected Fitting, got %s", c.name, states)
		}
	}
}

// TestEvaluatePlaceXORBranch covers an exclusive choice between b and c.
func TestEvaluatePlaceXORBranch(t *testing.T) {
	traces := map[string][]string{}
	for i := 0; i < 5; i++ {
		traces[caseID("b", i)] = []string{"a", "b", "d"}
		traces[caseID("c", i)] = []string{"a", "c", "d"}
	}
	log := buildLog(t, traces)
	enc, err := EncodeLog(log, "[start>", "[end]")
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}

	pBC := place(t, enc, []string{"a"}, []string{"b", "c"})
	if states, _ := EvaluatePlace(pBC, enc, 1.0); !states.Has(Fitting) {
		t.Errorf("({a},{b,c}) should be fitting, got %s", states)
	}

	pJoin := place(t, enc, []string{"b", "c"}, []string{"d"})
	if states, _ := EvaluatePlace(pJoin, enc, 1.0); !states.Has(Fitting) {
		t.Errorf("({b,c},{d}) should be fitting, got %s", states)
	}

	pAB := place(t, enc, []string{"a"}, []string{"b"})
	if states, _ := EvaluatePlace(pAB, enc, 1.0); !states.Has(Overfed) {
		t.Errorf("({a},{b}) should be overfed on the c-branch, got %s", states)
	}

	pBD := place(t, enc, []string{"b"}, []string{"d"})
	if states, _ := EvaluatePlace(pBD, enc, 1.0); !states.Has(Underfed) {
		t.Errorf("({b},{d}) should be underfed on the c-branch, got %s", states)
	}
}

// TestEvaluatePlaceConcurrency covers b and c running in either order.
func TestEvaluatePlaceConcurrency(t *testing.T) {
	log := buildLog(t, map[string][]string{
		"c1": {"a", "b", "c", "d"},
		"c2": {"a", "c", "b", "d"},
	})
	enc, err := EncodeLog(log, "[start>", "[end]")
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}

	fitting := [][2][]string{
		{{"a"}, {"b"}},
		{{"a"}, {"c"}},
		{{"b"}, {"d"}},
		{{"c"}, {"d"}},
	}
	for _, f := range fitting {
		p := place(t, enc, f[0], f[1])
		if states, _ := EvaluatePlace(p, enc, 1.0); !states.Has(Fitting) {
			t.Errorf("(%v,%v) should be fitting, got %s", f[0], f[1], states)
		}
	}
}

// TestEvaluatePlaceNoiseTolerance checks classification under tau < 1, in
// the distinct-trace ratio convention: 9 distinct
// variants of <a,...,b> fit place ({a},{b}) and one distinct variant
// double-fires b, underfeeding it. At tau=0.9 the underfed ratio (1/10)
// does not exceed 1-tau, and the fitting ratio (9/10) meets tau, so the
// place is still classified FITTING despite the noisy variant.
func TestEvaluatePlaceNoiseTolerance(t *testing.T) {
	traces := map[string][]string{}
	decoys := []string{"x1", "x2", "x3", "x4", "x5", "x6", "x7", "x8", "x9"}
	for i, decoy := range decoys {
		traces[caseID("good", i)] = []string{"a", decoy, "b"}
	}
	traces["noisy"] = []string{"a", "b", "b"}
	log := buildLog(t, traces)
	enc, err := EncodeLog(log, "[start>", "[end]")
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}
	if enc.NumTraces() != 10 {
		t.Fatalf("expected 10 distinct traces, got %d", enc.NumTraces())
	}

	p := place(t, enc, []string{"a"}, []string{"b"})
	states, stats := EvaluatePlace(p, enc, 0.9)
	if !states.Has(Fitting) {
		t.Errorf("({a},{b}) should be FITTING under tau=0.9 despite noise, got %s (%+v)", states, stats)
	}
	if states.Has(Underfed) {
		t.Errorf("({a},{b}) should not be flagged Underfed at tau=0.9, got %s (%+v)", states, stats)
	}
}

// TestReplayIdempotence: evaluating the same place twice on the same log
// yields identical states.
func TestReplayIdempotence(t *testing.T) {
	log := buildLog(t, map[string][]string{
		"c1": {"a", "b", "c"},
		"c2": {"a", "c", "b"},
	})
	enc, err := EncodeLog(log, "[start>", "[end]")
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}
	p := place(t, enc, []string{"a"}, []string{"b", "c"})
	s1, stats1 := EvaluatePlace(p, enc, 1.0)
	s2, stats2 := EvaluatePlace(p, enc, 1.0)
	if s1 != s2 || stats1 != stats2 {
		t.Errorf("EvaluatePlace not idempotent: %v/%+v vs %v/%+v", s1, stats1, s2, stats2)
	}
}

// TestValidateTauRange checks that tau must be in (0, 1].
func TestValidateTauRange(t *testing.T) {
	for _, tau := range []float64{0, -0.1, 1.1} {
		if err := ValidateTau(tau); err == nil {
			t.Errorf("expected ValidateTau(%v) to fail", tau)
		}
	}
	for _, tau := range []float64{0.01, 0.5, 1.0} {
		if err := ValidateTau(tau); err != nil {
			t.Errorf("ValidateTau(%v) should succeed, got %v", tau, err)
		}
	}
}

func caseID(prefix string, i int) string {
	return prefix + string(rune('0'+i%10)) + string(rune('a'+i/10))
}
