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

package cpmod

import (
	"errors"
	"strings"
	"testing"

	"github.com/cpmod/cpmod/expr"
	"github.com/cpmod/cpmod/solvers"
)

func TestModelSolve(t *testing.T) {
	x := expr.NewIntVar(1, 9, "x")
	y := expr.NewIntVar(1, 9, "y")
	m := NewModel(
		expr.Eq(expr.Sum(x, y), expr.K(10)),
		expr.Gt(x, y),
	)
	st, err := m.Solve("pb", nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != solvers.Feasible {
		t.Fatalf("Solve exit = %v, want FEASIBLE", st.Exit)
	}
	vx, _ := x.Value()
	vy, _ := y.Value()
	if vx+vy != 10 || vx <= vy {
		t.Errorf("x = %d, y = %d violates the model", vx, vy)
	}
}

func TestModelObjective(t *testing.T) {
	x := expr.NewIntVar(0, 9, "x")
	m := NewModel(expr.Ge(x, expr.K(3)))
	m.Maximize(expr.Neg(x))
	st, err := m.Solve("pb", nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != solvers.Optimal {
		t.Fatalf("Solve exit = %v, want OPTIMAL", st.Exit)
	}
	if !st.HasObjective || st.Objective != -3 {
		t.Errorf("objective = %d (%v), want -3", st.Objective, st.HasObjective)
	}
}

func TestModelSolveAll(t *testing.T) {
	x := expr.NewIntVar(1, 3, "x")
	m := NewModel(expr.Ne(x, expr.K(2)))
	n, err := m.SolveAll("pb", nil, nil)
	if err != nil {
		t.Fatalf("SolveAll: %v", err)
	}
	if n != 2 {
		t.Errorf("SolveAll found %d solutions, want 2", n)
	}
}

func TestModelBooleanSatisfaction(t *testing.T) {
	x := expr.NewBoolVar("x")
	y := expr.NewBoolVar("y")
	z := expr.NewBoolVar("z")
	m := NewModel(expr.Or(x, y, z), expr.Implies(x, y))
	st, err := m.Solve("sat", nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != solvers.Feasible {
		t.Fatalf("Solve exit = %v, want FEASIBLE", st.Exit)
	}
	vx, _ := x.Value()
	vy, _ := y.Value()
	vz, _ := z.Value()
	if !vx && !vy && !vz {
		t.Error("no variable is true")
	}
	if vx && !vy {
		t.Error("x is true but y is not")
	}
}

func TestModelLinearOptimum(t *testing.T) {
	a := expr.NewIntVar(0, 10, "a")
	b := expr.NewIntVar(0, 10, "b")
	m := NewModel(expr.Eq(expr.Sum(a, b), expr.K(10)))
	m.Minimize(a)
	st, err := m.Solve("pb", nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != solvers.Optimal {
		t.Fatalf("Solve exit = %v, want OPTIMAL", st.Exit)
	}
	if st.Objective != 0 {
		t.Errorf("objective = %d, want 0", st.Objective)
	}
	if va, _ := a.Value(); va != 0 {
		t.Errorf("a = %d, want 0", va)
	}
	if vb, _ := b.Value(); vb != 10 {
		t.Errorf("b = %d, want 10", vb)
	}
}

func TestModelUnknownSolver(t *testing.T) {
	m := NewModel(expr.NewBoolVar("a"))
	if _, err := m.Solve("nonesuch", nil); !errors.Is(err, solvers.ErrConfiguration) {
		t.Errorf("Solve = %v, want ErrConfiguration", err)
	}
}

func TestModelBackendAssumptions(t *testing.T) {
	a := expr.NewBoolVar("a")
	x := expr.NewIntVar(0, 5, "x")
	m := NewModel(expr.Implies(a, expr.Ge(x, expr.K(4))))
	s, err := m.Backend("pb")
	if err != nil {
		t.Fatalf("Backend: %v", err)
	}
	st, err := s.Solve(&solvers.SolveOptions{Assumptions: []expr.Var{a}})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if st.Exit != solvers.Feasible {
		t.Fatalf("Solve exit = %v, want FEASIBLE", st.Exit)
	}
	if v, _ := x.Value(); v < 4 {
		t.Errorf("x = %d, want >= 4 under the assumption", v)
	}
}

func TestModelString(t *testing.T) {
	x := expr.NewIntVar(0, 5, "x")
	m := NewModel(expr.Ge(x, expr.K(1)))
	m.Minimize(x)
	s := m.String()
	if !strings.Contains(s, "x >= 1") && !strings.Contains(s, "(x) >= (1)") {
		t.Errorf("String() lacks the constraint: %q", s)
	}
	if !strings.Contains(s, "minimize") {
		t.Errorf("String() lacks the objective: %q", s)
	}
}
