// Copyright 2025 The cpmod Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package solvers

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cpmod/cpmod/expr"
)

func TestCpSatAllDifferent(t *testing.T) {
	s := MustGet("cpsat")
	xs := []expr.Expr{
		expr.NewIntVar(1, 3, "x0"),
		expr.NewIntVar(1, 3, "x1"),
		expr.NewIntVar(1, 3, "x2"),
	}
	if err := s.Add(expr.NewAllDifferent(xs...)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	st, err := s.Solve(nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != Feasible {
		t.Fatalf("Solve exit = %v, want FEASIBLE", st.Exit)
	}
	seen := map[int64]bool{}
	for _, x := range xs {
		seen[intValue(t, x.(*expr.IntVar))] = true
	}
	if len(seen) != 3 {
		t.Errorf("values are not all different: %v", seen)
	}
}

func TestCpSatObjective(t *testing.T) {
	s := MustGet("cpsat")
	x := expr.NewIntVar(0, 10, "x")
	y := expr.NewIntVar(0, 10, "y")
	if err := s.Add(expr.Ge(expr.Sum(x, y), expr.K(7))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Minimize(expr.WeightedSum([]int64{2, 3}, []expr.Expr{x, y})); err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	st, err := s.Solve(nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != Optimal {
		t.Fatalf("Solve exit = %v, want OPTIMAL", st.Exit)
	}
	if obj, ok := s.ObjectiveValue(); !ok || obj != 14 {
		t.Errorf("objective = %d (%v), want 14", obj, ok)
	}
	if got := intValue(t, x); got != 7 {
		t.Errorf("x = %d, want 7", got)
	}
}

func TestCpSatReifiedComparison(t *testing.T) {
	s := MustGet("cpsat")
	b := expr.NewBoolVar("b")
	x := expr.NewIntVar(0, 5, "x")
	err := s.Add(
		expr.Eq(b, expr.Ge(x, expr.K(3))),
		b,
		expr.Le(x, expr.K(3)),
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	st, err := s.Solve(nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != Feasible {
		t.Fatalf("Solve exit = %v, want FEASIBLE", st.Exit)
	}
	if got := intValue(t, x); got != 3 {
		t.Errorf("x = %d, want 3", got)
	}
}

func TestCpSatAssumptionsAndCore(t *testing.T) {
	s := MustGet("cpsat")
	a := expr.NewBoolVar("a")
	b := expr.NewBoolVar("b")
	c := expr.NewBoolVar("c")
	x := expr.NewIntVar(0, 5, "x")
	err := s.Add(
		expr.Implies(a, expr.Ge(x, expr.K(4))),
		expr.Implies(b, expr.Le(x, expr.K(2))),
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	st, err := s.Solve(&SolveOptions{Assumptions: []expr.Var{a, b, c}})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != Unsatisfiable {
		t.Fatalf("Solve exit = %v, want UNSATISFIABLE", st.Exit)
	}
	core, err := s.GetCore()
	if err != nil {
		t.Fatalf("GetCore: %v", err)
	}
	names := make([]string, len(core))
	for i, v := range core {
		names[i] = v.Name()
	}
	sort.Strings(names)
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("core mismatch (-want +got):\n%s", diff)
	}

	st, err = s.Solve(nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != Feasible {
		t.Errorf("Solve exit = %v, want FEASIBLE", st.Exit)
	}
}

func TestCpSatSolveAll(t *testing.T) {
	s := MustGet("cpsat")
	xs := []expr.Expr{
		expr.NewIntVar(1, 3, "x0"),
		expr.NewIntVar(1, 3, "x1"),
		expr.NewIntVar(1, 3, "x2"),
	}
	if err := s.Add(expr.NewAllDifferent(xs...)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	n, err := s.SolveAll(nil, nil)
	if err != nil {
		t.Fatalf("SolveAll: %v", err)
	}
	if n != 6 {
		t.Errorf("SolveAll found %d solutions, want 6", n)
	}
	// An exhausted enumeration that found solutions reports feasible
	// and keeps the last solution on the variables.
	if got := s.Status().Exit; got != Feasible {
		t.Errorf("Status after SolveAll = %v, want FEASIBLE", got)
	}
	for _, x := range xs {
		if _, ok := x.(*expr.IntVar).Value(); !ok {
			t.Errorf("%s has no value after SolveAll", x)
		}
	}

	// Blocking clauses from the enumeration must not survive it.
	st, err := s.Solve(nil)
	if err != nil {
		t.Fatalf("Solve after SolveAll: %v", err)
	}
	if st.Exit != Feasible {
		t.Errorf("Solve after SolveAll exit = %v, want FEASIBLE", st.Exit)
	}
}

func TestCpSatSolutionHint(t *testing.T) {
	s := MustGet("cpsat")
	x := expr.NewIntVar(0, 9, "x")
	if err := s.Add(expr.Ge(x, expr.K(1))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.SolutionHint([]expr.Var{x}, []int64{3}); err != nil {
		t.Fatalf("SolutionHint: %v", err)
	}
	if err := s.SolutionHint([]expr.Var{x}, []int64{3, 4}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("SolutionHint with mismatched lengths = %v, want ErrConfiguration", err)
	}
	st, err := s.Solve(nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != Feasible {
		t.Errorf("Solve exit = %v, want FEASIBLE", st.Exit)
	}
}

func TestCpSatRejectsUnknownParam(t *testing.T) {
	s := MustGet("cpsat")
	x := expr.NewIntVar(0, 3, "x")
	if err := s.Add(expr.Ge(x, expr.K(1))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := s.Solve(&SolveOptions{Params: map[string]any{"warp_drive": true}})
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Solve = %v, want ErrConfiguration", err)
	}
	_, err = s.Solve(&SolveOptions{Params: map[string]any{"num_workers": "four"}})
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Solve with mistyped param = %v, want ErrConfiguration", err)
	}
}

func TestCpSatCumulative(t *testing.T) {
	s := MustGet("cpsat")
	starts := []expr.Expr{
		expr.NewIntVar(0, 10, "s0"),
		expr.NewIntVar(0, 10, "s1"),
		expr.NewIntVar(0, 10, "s2"),
	}
	durs := []expr.Expr{expr.K(3), expr.K(3), expr.K(3)}
	ends := []expr.Expr{
		expr.NewIntVar(0, 13, "e0"),
		expr.NewIntVar(0, 13, "e1"),
		expr.NewIntVar(0, 13, "e2"),
	}
	cum := expr.NewCumulative(starts, durs, ends, []int64{1, 1, 1}, expr.K(1))
	if err := s.Add(cum); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Minimize(expr.Max(ends...)); err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	st, err := s.Solve(nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != Optimal {
		t.Fatalf("Solve exit = %v, want OPTIMAL", st.Exit)
	}
	// Unit capacity serializes three length-3 tasks.
	if obj, ok := s.ObjectiveValue(); !ok || obj != 9 {
		t.Errorf("makespan = %d (%v), want 9", obj, ok)
	}
}

func TestCpSatCircuit(t *testing.T) {
	s := MustGet("cpsat")
	succ := []expr.Expr{
		expr.NewIntVar(0, 2, "n0"),
		expr.NewIntVar(0, 2, "n1"),
		expr.NewIntVar(0, 2, "n2"),
	}
	if err := s.Add(expr.NewCircuit(succ...), expr.Eq(succ[0], expr.K(2))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	st, err := s.Solve(nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != Feasible {
		t.Fatalf("Solve exit = %v, want FEASIBLE", st.Exit)
	}
	// 0 -> 2 forces the cycle 0 -> 2 -> 1 -> 0.
	if got := intValue(t, succ[2].(*expr.IntVar)); got != 1 {
		t.Errorf("successor of 2 = %d, want 1", got)
	}
	if got := intValue(t, succ[1].(*expr.IntVar)); got != 0 {
		t.Errorf("successor of 1 = %d, want 0", got)
	}
}

func TestCpSatTimeLimitValidation(t *testing.T) {
	s := MustGet("cpsat")
	x := expr.NewIntVar(0, 3, "x")
	if err := s.Add(expr.Ge(x, expr.K(1))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Solve(&SolveOptions{TimeLimit: -1}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Solve with negative limit = %v, want ErrConfiguration", err)
	}
}
