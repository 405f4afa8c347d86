package est

import "fmt"

// LPStatus is the outcome of solving an LPProblem.
type LPStatus int

const (
	// LPOptimal means Solution holds the best feasible assignment found: a
	// proven optimum unless a node budget cut the search short.
	LPOptimal LPStatus = iota
	// LPInfeasible means no assignment satisfies every constraint.
	LPInfeasible
)

// LPProblem is a 0/1 integer program: minimize (or maximize, via
// Maximize) sum(Objective[i] * x[i]) subject to, for every row r,
// sum(Constraints[r].Coef[i] * x[i]) <op> Constraints[r].Bound.
//
// This is deliberately narrow: just enough structure to express the
// implicit- and redundant-place LP formulations in postprocess.go,
// isolated behind LPSolver so the solver backend can be swapped without
// touching the places that build problems.
type LPProblem struct {
	NumVars     int
	Objective   []float64
	Maximize    bool
	Constraints []LPConstraint
}

// LPOp is a constraint's relational operator.
type LPOp int

const (
	LPLessEqual LPOp = iota
	LPGreaterEqual
	LPEqual
)

// LPConstraint is one row of an LPProblem.
type LPConstraint struct {
	Coef  []float64
	Op    LPOp
	Bound float64
}

// LPResult is the outcome of LPSolver.Solve.
type LPResult struct {
	Status   LPStatus
	Solution []float64
	Value    float64
}

// LPSolver solves 0/1 integer programs of the shape LPProblem describes.
// The implicit- and redundant-place checks only ever talk to this
// interface, so a different backend (an external MILP solver, say) can be
// substituted without touching postprocess.go.
type LPSolver interface {
	Solve(p LPProblem) (LPResult, error)
}

// BranchAndBoundSolver is a depth-first branch-and-bound solver over 0/1
// variables. It is sized for the instances the post-processor actually
// produces, a few hundred binary variables at most, and avoids any
// external solver dependency at that scale.
type BranchAndBoundSolver struct {
	// MaxNodes caps the number of branch-and-bound nodes explored before
	// giving up and returning the best solution found so far as if it
	// were optimal; if no feasible assignment was found within the budget
	// the result is LPInfeasible. Zero means unbounded.
	MaxNodes int
}

// NewBranchAndBoundSolver returns a BranchAndBoundSolver with the given
// node budget (0 = unbounded).
func NewBranchAndBoundSolver(maxNodes int) *BranchAndBoundSolver {
	return &BranchAndBoundSolver{MaxNodes: maxNodes}
}

// Solve implements LPSolver.
func (b *BranchAndBoundSolver) Solve(p LPProblem) (LPResult, error) {
	if p.NumVars == 0 {
		return LPResult{Status: LPOptimal}, nil
	}
	sign := 1.0
	if p.Maximize {
		sign = -1.0
	}
	obj := make([]float64, p.NumVars)
	for i, c := range p.Objective {
		obj[i] = c * sign
	}

	assign := make([]int, p.NumVars)
	for i := range assign {
		assign[i] = -1
	}
	best := make([]int, p.NumVars)
	bestVal := make([]float64, 1)
	bestVal[0] = 0
	found := false
	nodes := 0

	var feasible = func(a []int) bool {
		for _, c := range p.Constraints {
			sum := 0.0
			unknown := false
			for i, x := range a {
				if x < 0 {
					if c.Coef[i] != 0 {
						unknown = true
					}
					continue
				}
				sum += c.Coef[i] * float64(x)
			}
			if unknown {
				continue
			}
			switch c.Op {
			case LPLessEqual:
				if sum > c.Bound+1e-9 {
					return false
				}
			case LPGreaterEqual:
				if sum < c.Bound-1e-9 {
					return false
				}
			case LPEqual:
				if sum < c.Bound-1e-9 || sum > c.Bound+1e-9 {
					return false
				}
			}
		}
		return true
	}

	var value = func(a []int) float64 {
		sum := 0.0
		for i, x := range a {
			if x > 0 {
				sum += obj[i]
			}
		}
		return sum
	}

	var rec func(i int) bool
	rec = func(i int) bool {
		if b.MaxNodes > 0 && nodes >= b.MaxNodes {
			return false
		}
		nodes++
		if i == p.NumVars {
			if !feasible(assign) {
				return true
			}
			v := value(assign)
			if !found || v < bestVal[0] {
				found = true
				bestVal[0] = v
				copy(best, assign)
			}
			return true
		}
		for _, x := range [2]int{0, 1} {
			assign[i] = x
			if feasible(assign) {
				if !rec(i + 1) {
					assign[i] = -1
					return false
				}
			}
			assign[i] = -1
		}
		return true
	}
	rec(0)

	if !found {
		return LPResult{Status: LPInfeasible}, nil
	}
	solution := make([]float64, p.NumVars)
	for i, x := range best {
		solution[i] = float64(x)
	}
	result := bestVal[0]
	if p.Maximize {
		result = -result
	}
	return LPResult{Status: LPOptimal, Solution: solution, Value: result}, nil
}

// ErrLPInfeasible is returned by callers that require a feasible result.
var ErrLPInfeasible = fmt.Errorf("est: lp problem infeasible")
