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

package expr

import (
	"math"
	"strings"
	"testing"
)

func TestBounds(t *testing.T) {
	x := NewIntVar(-2, 3, "x")
	y := NewIntVar(1, 4, "y")
	b := NewBoolVar("b")

	testCases := []struct {
		name           string
		e              Expr
		wantLb, wantUb int64
	}{
		{name: "var", e: x, wantLb: -2, wantUb: 3},
		{name: "bool_var", e: b, wantLb: 0, wantUb: 1},
		{name: "neg_view", e: b.Not(), wantLb: 0, wantUb: 1},
		{name: "constant", e: IntVal(7), wantLb: 7, wantUb: 7},
		{name: "sum", e: Sum(x, y), wantLb: -1, wantUb: 7},
		{name: "sum_with_bool", e: Sum(x, b), wantLb: -2, wantUb: 4},
		{name: "wsum", e: WeightedSum([]int64{2, -1}, []Expr{x, y}), wantLb: -8, wantUb: 5},
		{name: "sub", e: Sub(x, y), wantLb: -6, wantUb: 2},
		{name: "mul", e: Mul(x, y), wantLb: -8, wantUb: 12},
		{name: "div", e: Div(x, y), wantLb: -2, wantUb: 3},
		{name: "div_straddling_divisor", e: Div(y, x), wantLb: -4, wantUb: 4},
		{name: "mod", e: Mod(x, y), wantLb: -3, wantUb: 3},
		{name: "mod_nonneg_dividend", e: Mod(y, IntVal(3)), wantLb: 0, wantUb: 2},
		{name: "pow", e: Pow(x, IntVal(2)), wantLb: 0, wantUb: 9},
		{name: "pow_wide_exponent", e: Pow(IntVal(2), NewIntVar(0, 1<<40, "e")), wantLb: 1, wantUb: math.MaxInt64},
		{name: "pow_negative_base_saturates", e: Pow(IntVal(-2), NewIntVar(0, 1<<40, "e")), wantLb: math.MinInt64, wantUb: math.MaxInt64},
		{name: "pow_negative_exponent", e: Pow(x, NewIntVar(-3, -1, "e")), wantLb: 0, wantUb: 0},
		{name: "neg", e: Neg(x), wantLb: -3, wantUb: 2},
		{name: "abs", e: Abs(x), wantLb: 0, wantUb: 3},
		{name: "min", e: Min(x, y), wantLb: -2, wantUb: 3},
		{name: "max", e: Max(x, y), wantLb: 1, wantUb: 4},
		{name: "element", e: ElementOf([]Expr{x, y, IntVal(10)}, NewIntVar(0, 2, "i")), wantLb: -2, wantUb: 10},
		{name: "comparison", e: Lt(x, y), wantLb: 0, wantUb: 1},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			gotLb, gotUb := test.e.Bounds()
			if gotLb != test.wantLb || gotUb != test.wantUb {
				t.Errorf("Bounds(%v) = [%v,%v], want [%v,%v]", test.e, gotLb, gotUb, test.wantLb, test.wantUb)
			}
		})
	}
}

func TestNot(t *testing.T) {
	a := NewBoolVar("a")
	b := NewBoolVar("b")
	x := NewIntVar(0, 5, "x")

	testCases := []struct {
		name string
		e    Expr
		want string
	}{
		{name: "var", e: a, want: "~a"},
		{name: "neg_view_roundtrip", e: a.Not(), want: "a"},
		{name: "constant", e: BoolVal(true), want: "false"},
		{name: "comparison", e: Lt(x, IntVal(3)), want: "(x) >= (3)"},
		{name: "and_de_morgan", e: And(a, b), want: "or(~a,~b)"},
		{name: "or_de_morgan", e: Or(a, b), want: "and(~a,~b)"},
		{name: "implication", e: Implies(a, b), want: "and(a,~b)"},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if got := Not(test.e).String(); got != test.want {
				t.Errorf("Not(%v) = %q, want %q", test.e, got, test.want)
			}
		})
	}
}

func TestNegBoolViewSharesIdentity(t *testing.T) {
	a := NewBoolVar("a")
	view := a.Not()
	if view.Base() != a.Base() {
		t.Errorf("view.Base() = %v, want %v", view.Base(), a)
	}
	a.SetValue(true)
	if got, ok := view.Value(); !ok || got {
		t.Errorf("view.Value() = (%v, %v), want (false, true)", got, ok)
	}
	a.ClearValue()
	if _, ok := view.Value(); ok {
		t.Error("view.Value() ok after ClearValue, want unknown")
	}
}

func TestAutoNames(t *testing.T) {
	b := NewBoolVar("")
	x := NewIntVar(0, 1, "")
	if !strings.HasPrefix(b.Name(), "BV") {
		t.Errorf("auto Boolean name %q, want BV prefix", b.Name())
	}
	if !strings.HasPrefix(x.Name(), "IV") {
		t.Errorf("auto integer name %q, want IV prefix", x.Name())
	}
	if b2 := NewBoolVar(""); b2.Name() == b.Name() {
		t.Errorf("two auto names collide: %q", b.Name())
	}
}

func TestEval(t *testing.T) {
	x := NewIntVar(-10, 10, "x")
	y := NewIntVar(-10, 10, "y")
	b := NewBoolVar("b")
	x.SetValue(7)
	y.SetValue(-3)
	b.SetValue(true)

	testCases := []struct {
		name string
		e    Expr
		want int64
	}{
		{name: "sum", e: Sum(x, y), want: 4},
		{name: "sum_with_bool", e: Sum(x, b), want: 8},
		{name: "wsum", e: WeightedSum([]int64{2, 3}, []Expr{x, y}), want: 5},
		{name: "div_truncates", e: Div(x, IntVal(2)), want: 3},
		{name: "div_negative_truncates", e: Div(y, IntVal(2)), want: -1},
		{name: "mod_sign_of_dividend", e: Mod(y, IntVal(2)), want: -1},
		{name: "pow", e: Pow(x, IntVal(2)), want: 49},
		{name: "abs", e: Abs(y), want: 3},
		{name: "min", e: Min(x, y, IntVal(0)), want: -3},
		{name: "max", e: Max(x, y, IntVal(0)), want: 7},
		{name: "element", e: ElementOf([]Expr{y, x}, IntVal(1)), want: 7},
		{name: "comparison_true", e: Gt(x, y), want: 1},
		{name: "comparison_false", e: Eq(x, y), want: 0},
		{name: "implication", e: Implies(b, Gt(x, y)), want: 1},
		{name: "neg_view", e: b.Not(), want: 0},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			got, err := Eval(test.e)
			if err != nil {
				t.Fatalf("Eval(%v) returned error %v", test.e, err)
			}
			if got != test.want {
				t.Errorf("Eval(%v) = %v, want %v", test.e, got, test.want)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	x := NewIntVar(0, 5, "x")
	y := NewIntVar(0, 5, "y")
	x.SetValue(3)
	y.SetValue(0)

	if _, err := Eval(Sum(x, NewIntVar(0, 1, "unset"))); err == nil {
		t.Error("Eval with unassigned variable succeeded, want error")
	}
	if _, err := Eval(Div(x, y)); err == nil {
		t.Error("Eval of division by zero succeeded, want error")
	}
	if _, err := Truth(x); err == nil {
		t.Error("Truth of numeric expression succeeded, want error")
	}
}

// assign sets vals on the variables behind xs. All xs must be *IntVar.
func assign(t *testing.T, xs []Expr, vals []int64) {
	t.Helper()
	for i, x := range xs {
		x.(*IntVar).SetValue(vals[i])
	}
}

func TestGlobalTruth(t *testing.T) {
	ivs := func(n int, lb, ub int64) []Expr {
		xs := make([]Expr, n)
		for i := range xs {
			xs[i] = NewIntVar(lb, ub, "")
		}
		return xs
	}

	t.Run("alldifferent", func(t *testing.T) {
		xs := ivs(3, 0, 5)
		g := NewAllDifferent(xs...)
		assign(t, xs, []int64{1, 2, 3})
		if ok, err := Truth(g); err != nil || !ok {
			t.Errorf("Truth on distinct values = (%v, %v), want (true, nil)", ok, err)
		}
		assign(t, xs, []int64{1, 2, 1})
		if ok, err := Truth(g); err != nil || ok {
			t.Errorf("Truth on repeated values = (%v, %v), want (false, nil)", ok, err)
		}
	})

	t.Run("xor", func(t *testing.T) {
		a, b, c := NewBoolVar(""), NewBoolVar(""), NewBoolVar("")
		g := NewXor(a, b, c)
		a.SetValue(true)
		b.SetValue(true)
		c.SetValue(true)
		if ok, err := Truth(g); err != nil || !ok {
			t.Errorf("Truth on odd parity = (%v, %v), want (true, nil)", ok, err)
		}
		c.SetValue(false)
		if ok, err := Truth(g); err != nil || ok {
			t.Errorf("Truth on even parity = (%v, %v), want (false, nil)", ok, err)
		}
	})

	t.Run("table", func(t *testing.T) {
		xs := ivs(2, 0, 3)
		g := NewTable(xs, [][]int64{{0, 1}, {2, 3}})
		assign(t, xs, []int64{2, 3})
		if ok, err := Truth(g); err != nil || !ok {
			t.Errorf("Truth on listed row = (%v, %v), want (true, nil)", ok, err)
		}
		assign(t, xs, []int64{2, 2})
		if ok, err := Truth(g); err != nil || ok {
			t.Errorf("Truth on unlisted row = (%v, %v), want (false, nil)", ok, err)
		}
		neg := NewNegativeTable(xs, [][]int64{{2, 2}})
		if ok, err := Truth(neg); err != nil || ok {
			t.Errorf("negative table Truth on forbidden row = (%v, %v), want (false, nil)", ok, err)
		}
	})

	t.Run("circuit", func(t *testing.T) {
		xs := ivs(4, 0, 3)
		g := NewCircuit(xs...)
		assign(t, xs, []int64{1, 2, 3, 0})
		if ok, err := Truth(g); err != nil || !ok {
			t.Errorf("Truth on hamiltonian circuit = (%v, %v), want (true, nil)", ok, err)
		}
		// Two 2-cycles, not a single circuit.
		assign(t, xs, []int64{1, 0, 3, 2})
		if ok, err := Truth(g); err != nil || ok {
			t.Errorf("Truth on split cycles = (%v, %v), want (false, nil)", ok, err)
		}
	})

	t.Run("inverse", func(t *testing.T) {
		fwd := ivs(3, 0, 2)
		rev := ivs(3, 0, 2)
		g := NewInverse(fwd, rev)
		assign(t, fwd, []int64{1, 2, 0})
		assign(t, rev, []int64{2, 0, 1})
		if ok, err := Truth(g); err != nil || !ok {
			t.Errorf("Truth on inverse pair = (%v, %v), want (true, nil)", ok, err)
		}
		assign(t, rev, []int64{0, 1, 2})
		if ok, err := Truth(g); err != nil || ok {
			t.Errorf("Truth on non-inverse pair = (%v, %v), want (false, nil)", ok, err)
		}
	})

	t.Run("regular", func(t *testing.T) {
		// Accepts words over {0,1} with no two adjacent ones.
		trans := []Transition{
			{From: 0, Label: 0, To: 0},
			{From: 0, Label: 1, To: 1},
			{From: 1, Label: 0, To: 0},
		}
		xs := ivs(4, 0, 1)
		g := NewRegular(xs, trans, 0, []int64{0, 1})
		assign(t, xs, []int64{1, 0, 1, 0})
		if ok, err := Truth(g); err != nil || !ok {
			t.Errorf("Truth on accepted word = (%v, %v), want (true, nil)", ok, err)
		}
		assign(t, xs, []int64{1, 1, 0, 0})
		if ok, err := Truth(g); err != nil || ok {
			t.Errorf("Truth on rejected word = (%v, %v), want (false, nil)", ok, err)
		}
	})

	t.Run("no_overlap", func(t *testing.T) {
		starts := ivs(2, 0, 10)
		durs := []Expr{IntVal(2), IntVal(3)}
		ends := ivs(2, 0, 13)
		g := NewNoOverlap(starts, durs, ends)
		assign(t, starts, []int64{0, 2})
		assign(t, ends, []int64{2, 5})
		if ok, err := Truth(g); err != nil || !ok {
			t.Errorf("Truth on disjoint tasks = (%v, %v), want (true, nil)", ok, err)
		}
		assign(t, starts, []int64{0, 1})
		assign(t, ends, []int64{2, 4})
		if ok, err := Truth(g); err != nil || ok {
			t.Errorf("Truth on overlapping tasks = (%v, %v), want (false, nil)", ok, err)
		}
	})

	t.Run("cumulative", func(t *testing.T) {
		starts := ivs(2, 0, 10)
		durs := []Expr{IntVal(2), IntVal(2)}
		ends := ivs(2, 0, 12)
		g := NewCumulative(starts, durs, ends, []int64{2, 2}, IntVal(3))
		assign(t, starts, []int64{0, 2})
		assign(t, ends, []int64{2, 4})
		if ok, err := Truth(g); err != nil || !ok {
			t.Errorf("Truth within capacity = (%v, %v), want (true, nil)", ok, err)
		}
		assign(t, starts, []int64{0, 0})
		assign(t, ends, []int64{2, 2})
		if ok, err := Truth(g); err != nil || ok {
			t.Errorf("Truth over capacity = (%v, %v), want (false, nil)", ok, err)
		}
	})
}

// Decompositions without fresh variables must agree with the global's
// own semantics on fully assigned arguments.
func TestDecomposeAgreesWithTruth(t *testing.T) {
	xs := []Expr{NewIntVar(0, 2, ""), NewIntVar(0, 2, ""), NewIntVar(0, 2, "")}
	globals := []Global{
		NewAllDifferent(xs...),
		NewTable(xs, [][]int64{{0, 1, 2}, {2, 1, 0}}),
		NewNegativeTable(xs, [][]int64{{1, 1, 1}, {0, 0, 0}}),
	}
	for a := int64(0); a <= 2; a++ {
		for b := int64(0); b <= 2; b++ {
			for c := int64(0); c <= 2; c++ {
				assign(t, xs, []int64{a, b, c})
				for _, g := range globals {
					want, err := Truth(g)
					if err != nil {
						t.Fatalf("Truth(%v) returned error %v", g, err)
					}
					got := true
					for _, d := range g.Decompose() {
						ok, err := Truth(d)
						if err != nil {
							t.Fatalf("Truth of decomposition part %v returned error %v", d, err)
						}
						got = got && ok
					}
					if got != want {
						t.Errorf("decomposition of %s on (%d,%d,%d) = %v, want %v", g.GlobalName(), a, b, c, got, want)
					}
				}
			}
		}
	}
}

func TestComparisonOpNegate(t *testing.T) {
	pairs := map[CmpOp]CmpOp{OpEq: OpNe, OpLt: OpGe, OpLe: OpGt}
	for op, neg := range pairs {
		if got := op.Negate(); got != neg {
			t.Errorf("%s.Negate() = %s, want %s", op, got, neg)
		}
		if got := neg.Negate(); got != op {
			t.Errorf("%s.Negate() = %s, want %s", neg, got, op)
		}
	}
}
