package est

import "testing"

func TestBranchAndBoundSolverMinimizesSubjectToConstraints(t *testing.T) {
	// minimize x0 + x1 subject to x0 + x1 >= 1: optimal is exactly one
	// variable set to 1, objective value 1.
	p := LPProblem{
		NumVars:   2,
		Objective: []float64{1, 1},
		Constraints: []LPConstraint{
			{Coef: []float64{1, 1}, Op: LPGreaterEqual, Bound: 1},
		},
	}
	solver := NewBranchAndBoundSolver(0)
	result, err := solver.Solve(p)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result.Status != LPOptimal {
		t.Fatalf("expected LPOptimal, got %v", result.Status)
	}
	if result.Value != 1 {
		t.Errorf("expected optimal value 1, got %v", result.Value)
	}
	sum := 0.0
	for _, x := range result.Solution {
		sum += x
	}
	if sum != 1 {
		t.Errorf("expected exactly one variable set, got solution %v", result.Solution)
	}
}

func TestBranchAndBoundSolverInfeasible(t *testing.T) {
	// x0 == 0 and x0 == 1 simultaneously: no 0/1 assignment satisfies both.
	p := LPProblem{
		NumVars:   1,
		Objective: []float64{1},
		Constraints: []LPConstraint{
			{Coef: []float64{1}, Op: LPEqual, Bound: 0},
			{Coef: []float64{1}, Op: LPEqual, Bound: 1},
		},
	}
	solver := NewBranchAndBoundSolver(0)
	result, err := solver.Solve(p)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result.Status != LPInfeasible {
		t.Fatalf("expected LPInfeasible, got %v", result.Status)
	}
}

func TestBranchAndBoundSolverZeroVarsIsTriviallyOptimal(t *testing.T) {
	solver := NewBranchAndBoundSolver(0)
	result, err := solver.Solve(LPProblem{})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result.Status != LPOptimal {
		t.Errorf("expected a problem with no variables to be trivially optimal, got %v", result.Status)
	}
}

func TestBranchAndBoundSolverMaximize(t *testing.T) {
	// maximize x0 + 2*x1 subject to x0 + x1 <= 1: optimal picks x1 alone,
	// value 2.
	p := LPProblem{
		NumVars:   2,
		Objective: []float64{1, 2},
		Maximize:  true,
		Constraints: []LPConstraint{
			{Coef: []float64{1, 1}, Op: LPLessEqual, Bound: 1},
		},
	}
	solver := NewBranchAndBoundSolver(0)
	result, err := solver.Solve(p)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result.Status != LPOptimal {
		t.Fatalf("expected LPOptimal, got %v", result.Status)
	}
	if result.Value != 2 {
		t.Errorf("expected optimal value 2, got %v", result.Value)
	}
	if result.Solution[1] != 1 {
		t.Errorf("expected x1=1 in the optimal solution, got %v", result.Solution)
	}
}
