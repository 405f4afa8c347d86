package est

// activityDependencies indexes, for every activity, which places in a
// candidate set are fed by it (activity in In) and which are drained by
// it (activity in Out). RemoveImplicit and RemoveRedundant use it both to
// build LP constraints and as a safety check after solving: a place
// proposed for removal must never be the sole place gating some activity
// that no surviving place also gates.
type activityDependencies struct {
	feeds  map[string][]int // activity -> indices of places with it in In
	drains map[string][]int // activity -> indices of places with it in Out
}

func buildActivityDependencies(places []Place, log *EncodedLog) *activityDependencies {
	d := &activityDependencies{feeds: map[string][]int{}, drains: map[string][]int{}}
	for i, p := range places {
		for _, a := range log.Activities {
			mask := log.ActivityMask[a]
			if p.In.Intersects(mask) {
				d.feeds[a] = append(d.feeds[a], i)
			}
			if p.Out.Intersects(mask) {
				d.drains[a] = append(d.drains[a], i)
			}
		}
	}
	return d
}

// incidence is the place's signed effect on an activity's token balance:
// +1 when activity is one of p's input activities (p gains a token when it
// fires), -1 when it is one of p's output activities. The formulations
// below use it for the "structural dominance" constraint family, stated
// as >= in this sign convention.
func incidence(p Place, activity string, log *EncodedLog) float64 {
	mask := log.ActivityMask[activity]
	v := 0.0
	if p.In.Intersects(mask) {
		v++
	}
	if p.Out.Intersects(mask) {
		v--
	}
	return v
}

// preIndicator is 1 iff activity is one of p's input activities.
func preIndicator(p Place, activity string, log *EncodedLog) float64 {
	if p.In.Intersects(log.ActivityMask[activity]) {
		return 1
	}
	return 0
}

// postIndicator is 1 iff activity is one of p's output activities.
func postIndicator(p Place, activity string, log *EncodedLog) float64 {
	if p.Out.Intersects(log.ActivityMask[activity]) {
		return 1
	}
	return 0
}

// supportSet lists the indices eligible to dominate place target: every
// place but target itself, excluding whatever the caller has already
// pruned. Building every LP's support set from the surviving places only
// (rather than from the full places slice) is what keeps repeated
// post-processing passes idempotent: otherwise a place could be
// "dominated" by a combination that itself included an already-removed
// place.
func supportSet(places []Place, target int, removed map[int]bool) []int {
	others := make([]int, 0, len(places)-1)
	for i := range places {
		if i == target || removed[i] {
			continue
		}
		others = append(others, i)
	}
	return others
}

// implicitProblem builds the structural implicit-place test as a 0/1
// program: find a combination y of the surviving places other than target,
// and a slack mu, minimizing mu subject to
//
//	for every activity t:       sum_p y[p]*incidence(p,t) >= incidence(target,t)
//	for every t in target.Out:  sum_p y[p]*pre(p,t) + mu  >= pre(target,t)
//
// mu is modeled as one more 0/1 variable rather than an unbounded
// nonnegative integer: pre(q,t) is never more than 1, so no feasible
// minimal mu ever needs to exceed 1 and {0,1} already covers every value
// mu could usefully take.
func implicitProblem(places []Place, target int, removed map[int]bool, log *EncodedLog) LPProblem {
	others := supportSet(places, target, removed)
	n := len(others)
	numVars := n + 1 // others..., mu
	mu := n

	obj := make([]float64, numVars)
	obj[mu] = 1 // minimize mu alone, not support-set size

	var constraints []LPConstraint
	for _, a := range log.Activities {
		coef := make([]float64, numVars)
		for i, idx := range others {
			coef[i] = incidence(places[idx], a, log)
		}
		constraints = append(constraints, LPConstraint{
			Coef:  coef,
			Op:    LPGreaterEqual,
			Bound: incidence(places[target], a, log),
		})
	}
	for _, a := range log.Activities {
		if !places[target].Out.Intersects(log.ActivityMask[a]) {
			continue
		}
		coef := make([]float64, numVars)
		for i, idx := range others {
			coef[i] = preIndicator(places[idx], a, log)
		}
		coef[mu] = 1
		constraints = append(constraints, LPConstraint{
			Coef:  coef,
			Op:    LPGreaterEqual,
			Bound: preIndicator(places[target], a, log),
		})
	}
	return LPProblem{NumVars: numVars, Objective: obj, Constraints: constraints}
}

// concurrentImplicitProblem builds the concurrent implicit-place test:
// unlike implicitProblem, the two constraint families get independent
// selector vectors y and z, mu is maximized instead of minimized, and
// mu <= 0 is an
// explicit constraint rather than a consequence of the objective sense.
// Combined with mu's {0,1} domain, the mu<=0 constraint forces mu == 0,
// which collapses the problem to joint feasibility of the two families
// under their own (disjoint) variables: y must satisfy the structural
// family and z must satisfy the pre-coverage family with zero slack. That
// is exactly what "maximize mu subject to mu <= 0, declare implicit when
// the optimum is <= 0" means once mu's domain is bounded below by 0.
func concurrentImplicitProblem(places []Place, target int, removed map[int]bool, log *EncodedLog) LPProblem {
	others := supportSet(places, target, removed)
	n := len(others)
	numVars := 2*n + 1 // y..., z..., mu
	zOff := n
	mu := 2 * n

	obj := make([]float64, numVars)
	obj[mu] = 1 // maximize mu

	var constraints []LPConstraint
	for _, a := range log.Activities {
		coef := make([]float64, numVars)
		for i, idx := range others {
			coef[i] = incidence(places[idx], a, log)
		}
		constraints = append(constraints, LPConstraint{
			Coef:  coef,
			Op:    LPGreaterEqual,
			Bound: incidence(places[target], a, log),
		})
	}
	for _, a := range log.Activities {
		if !places[target].Out.Intersects(log.ActivityMask[a]) {
			continue
		}
		coef := make([]float64, numVars)
		for i, idx := range others {
			coef[zOff+i] = preIndicator(places[idx], a, log)
		}
		coef[mu] = 1
		constraints = append(constraints, LPConstraint{
			Coef:  coef,
			Op:    LPGreaterEqual,
			Bound: preIndicator(places[target], a, log),
		})
	}
	muBound := make([]float64, numVars)
	muBound[mu] = 1
	constraints = append(constraints, LPConstraint{Coef: muBound, Op: LPLessEqual, Bound: 0})

	return LPProblem{NumVars: numVars, Objective: obj, Maximize: true, Constraints: constraints}
}

// redundantProblem builds the redundant-place test: find a 0/1
// combination y of the surviving places other than target whose pre- and
// post-sets match
// target's exactly, with the covering sums additionally capped at 1. This
// is its own equality-constrained formulation, independent of
// implicitProblem/concurrentImplicitProblem: matching pre and post exactly
// (rather than the signed incidence difference) is a strictly tighter
// condition, and the <=1 bounds rule out covering target with an
// over-complete combination that happens to sum to the right incidence.
func redundantProblem(places []Place, target int, removed map[int]bool, log *EncodedLog) LPProblem {
	others := supportSet(places, target, removed)
	numVars := len(others)

	obj := make([]float64, numVars)
	for i := range obj {
		obj[i] = 1 // minimize support-set size
	}

	var constraints []LPConstraint
	for _, a := range log.Activities {
		preCoef := make([]float64, numVars)
		postCoef := make([]float64, numVars)
		for i, idx := range others {
			preCoef[i] = preIndicator(places[idx], a, log)
			postCoef[i] = postIndicator(places[idx], a, log)
		}
		constraints = append(constraints,
			LPConstraint{Coef: preCoef, Op: LPEqual, Bound: preIndicator(places[target], a, log)},
			LPConstraint{Coef: postCoef, Op: LPEqual, Bound: postIndicator(places[target], a, log)},
			LPConstraint{Coef: preCoef, Op: LPLessEqual, Bound: 1},
			LPConstraint{Coef: postCoef, Op: LPLessEqual, Bound: 1},
		)
	}
	return LPProblem{NumVars: numVars, Objective: obj, Constraints: constraints}
}

// safeToRemove reports whether dropping place idx from places would leave
// every activity it feeds or drains still covered by some other surviving
// place. This is the dependency-map safety check: an LP solution can be
// mathematically valid yet still leave an activity with zero remaining
// gating places, which would silently change net behavior rather than
// simplify it.
func safeToRemove(places []Place, idx int, removed map[int]bool, deps *activityDependencies, log *EncodedLog) bool {
	for _, a := range log.Activities {
		mask := log.ActivityMask[a]
		if places[idx].In.Intersects(mask) {
			if !hasSurvivor(deps.feeds[a], idx, removed) {
				return false
			}
		}
		if places[idx].Out.Intersects(mask) {
			if !hasSurvivor(deps.drains[a], idx, removed) {
				return false
			}
		}
	}
	return true
}

func hasSurvivor(candidates []int, self int, removed map[int]bool) bool {
	for _, c := range candidates {
		if c == self {
			continue
		}
		if !removed[c] {
			return true
		}
	}
	return false
}

// muFeasible reports whether solving an implicit/concurrent-implicit LP
// (both of which minimize or maximize a mu variable, declaring the tested
// place implicit iff the optimum is <= 0) found an optimum at or below
// zero. Feasibility alone is not enough for these two, unlike
// redundantProblem above: mu's value is the actual implicitness criterion,
// not just a witness that some covering combination exists.
func muFeasible(result LPResult) bool {
	return result.Status == LPOptimal && result.Value <= 1e-9
}

// RemoveImplicit drops structurally and concurrently implicit places from
// a fitting-place set, using solver to test each candidate in turn. The
// tests run as two full passes, not interleaved per place: the structural
// pass completes over the whole set, then the concurrent pass runs over
// its survivors. Interleaving would change the support set a later test
// sees and therefore which places survive.
func RemoveImplicit(places []Place, log *EncodedLog, solver LPSolver) ([]Place, error) {
	afterStructural, err := RemoveImplicitStructural(places, log, solver)
	if err != nil {
		return nil, err
	}
	return RemoveImplicitConcurrent(afterStructural, log, solver)
}

// RemoveImplicitStructural runs only the structural implicit-place test.
func RemoveImplicitStructural(places []Place, log *EncodedLog, solver LPSolver) ([]Place, error) {
	return removeByTest(places, log, solver, implicitProblem)
}

// RemoveImplicitConcurrent runs only the concurrent implicit-place test.
func RemoveImplicitConcurrent(places []Place, log *EncodedLog, solver LPSolver) ([]Place, error) {
	return removeByTest(places, log, solver, concurrentImplicitProblem)
}

// removeByTest makes one full removal pass with a single LP formulation.
// Places are processed from largest In/Out cardinality down, since a
// bigger place is more likely to be dominated by a combination of smaller
// ones. Each test's LP support set is built over only the places that
// have survived so far (supportSet), so a later test never relies on a
// place this pass already removed, which keeps repeated post-processing
// idempotent.
func removeByTest(places []Place, log *EncodedLog, solver LPSolver, build func([]Place, int, map[int]bool, *EncodedLog) LPProblem) ([]Place, error) {
	order := placesBySizeDesc(places)
	removed := map[int]bool{}
	deps := buildActivityDependencies(places, log)

	for _, i := range order {
		if testImplicit(places, i, removed, log, solver, build) && safeToRemove(places, i, removed, deps, log) {
			removed[i] = true
		}
	}
	return surviving(places, removed), nil
}

func testImplicit(places []Place, i int, removed map[int]bool, log *EncodedLog, solver LPSolver, build func([]Place, int, map[int]bool, *EncodedLog) LPProblem) bool {
	result, err := solver.Solve(build(places, i, removed, log))
	if err != nil {
		return false
	}
	return muFeasible(result)
}

// RemoveRedundant drops places that are exact behavioral duplicates of a
// combination of other places, per the equality-constrained LP variant.
// Run before RemoveImplicit (see RemoveRedundantThenImplicit) since a
// redundant place can mask an implicit one underneath it. Unlike the
// implicit tests, redundancy is plain feasibility: any covering
// combination that matches target's pre/post sets exactly condemns it.
func RemoveRedundant(places []Place, log *EncodedLog, solver LPSolver) ([]Place, error) {
	order := placesBySizeDesc(places)
	removed := map[int]bool{}
	deps := buildActivityDependencies(places, log)

	for _, i := range order {
		result, err := solver.Solve(redundantProblem(places, i, removed, log))
		if err == nil && result.Status == LPOptimal && safeToRemove(places, i, removed, deps, log) {
			removed[i] = true
		}
	}
	return surviving(places, removed), nil
}

// RemoveRedundantThenImplicit chains RemoveRedundant and RemoveImplicit, in
// that order: a redundant place can mask an implicit one underneath it,
// never the other way around.
func RemoveRedundantThenImplicit(places []Place, log *EncodedLog, solver LPSolver) ([]Place, error) {
	afterRedundant, err := RemoveRedundant(places, log, solver)
	if err != nil {
		return nil, err
	}
	return RemoveImplicit(afterRedundant, log, solver)
}

func placesBySizeDesc(places []Place) []int {
	idx := make([]int, len(places))
	for i := range idx {
		idx[i] = i
	}
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0; j-- {
			a, b := places[idx[j-1]], places[idx[j]]
			if a.InCount+a.OutCount < b.InCount+b.OutCount {
				idx[j-1], idx[j] = idx[j], idx[j-1]
			} else {
				break
			}
		}
	}
	return idx
}

func surviving(places []Place, removed map[int]bool) []Place {
	out := make([]Place, 0, len(places)-len(removed))
	for i, p := range places {
		if !removed[i] {
			out = append(out, p)
		}
	}
	return out
}
