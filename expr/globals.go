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
	"fmt"
	"strings"

	log "github.com/golang/glog"
)

// Global is a constraint over a whole collection of expressions. A
// backend either handles a global natively, or the pipeline replaces it
// with its Decompose form.
type Global interface {
	Expr
	// GlobalName returns the vocabulary name of the constraint, e.g.
	// "alldifferent". Backends declare support by this name.
	GlobalName() string
	// Decompose returns a conjunction of simpler expressions equivalent
	// to the global. The result may contain further globals and fresh
	// auxiliary variables.
	Decompose() []Expr
}

// AllDifferent constrains all of Xs to take pairwise distinct values.
type AllDifferent struct {
	Xs []Expr
}

// NewAllDifferent creates an alldifferent constraint over xs.
func NewAllDifferent(xs ...Expr) *AllDifferent {
	checkNumeric("AllDifferent", xs...)
	return &AllDifferent{Xs: xs}
}

// GlobalName returns "alldifferent".
func (g *AllDifferent) GlobalName() string { return "alldifferent" }

// IsBool reports that the constraint is Boolean-valued.
func (g *AllDifferent) IsBool() bool { return true }

// Bounds returns the [0,1] truth interval.
func (g *AllDifferent) Bounds() (int64, int64) { return 0, 1 }

func (g *AllDifferent) String() string { return globalString("alldifferent", g.Xs) }

// Decompose returns the pairwise disequalities.
func (g *AllDifferent) Decompose() []Expr {
	var cons []Expr
	for i := 0; i < len(g.Xs); i++ {
		for j := i + 1; j < len(g.Xs); j++ {
			cons = append(cons, Ne(g.Xs[i], g.Xs[j]))
		}
	}
	return cons
}

// Xor constrains an odd number of Xs to be true.
type Xor struct {
	Xs []Expr
}

// NewXor creates an odd-parity constraint over the Boolean xs.
func NewXor(xs ...Expr) *Xor {
	checkBool("Xor", xs...)
	return &Xor{Xs: xs}
}

// GlobalName returns "xor".
func (g *Xor) GlobalName() string { return "xor" }

// IsBool reports that the constraint is Boolean-valued.
func (g *Xor) IsBool() bool { return true }

// Bounds returns the [0,1] truth interval.
func (g *Xor) Bounds() (int64, int64) { return 0, 1 }

func (g *Xor) String() string { return globalString("xor", g.Xs) }

// Decompose encodes odd parity as `sum(xs) mod 2 == 1`.
func (g *Xor) Decompose() []Expr {
	return []Expr{Eq(Mod(Sum(g.Xs...), IntVal(2)), IntVal(1))}
}

// Table constrains the tuple Xs to equal one of Rows.
type Table struct {
	Xs   []Expr
	Rows [][]int64
}

// NewTable creates a table constraint: xs must match some row.
func NewTable(xs []Expr, rows [][]int64) *Table {
	checkNumeric("Table", xs...)
	for i, r := range rows {
		if len(r) != len(xs) {
			log.Fatalf("Table: row %d has %d values, want %d", i, len(r), len(xs))
		}
	}
	return &Table{Xs: xs, Rows: rows}
}

// GlobalName returns "table".
func (g *Table) GlobalName() string { return "table" }

// IsBool reports that the constraint is Boolean-valued.
func (g *Table) IsBool() bool { return true }

// Bounds returns the [0,1] truth interval.
func (g *Table) Bounds() (int64, int64) { return 0, 1 }

func (g *Table) String() string {
	return fmt.Sprintf("%s x %d rows", globalString("table", g.Xs), len(g.Rows))
}

// Decompose returns a disjunction over rows of per-position equalities.
func (g *Table) Decompose() []Expr {
	rowTests := make([]Expr, len(g.Rows))
	for i, row := range g.Rows {
		eqs := make([]Expr, len(g.Xs))
		for j, x := range g.Xs {
			eqs[j] = Eq(x, IntVal(row[j]))
		}
		rowTests[i] = And(eqs...)
	}
	return []Expr{Or(rowTests...)}
}

// NegativeTable constrains the tuple Xs to differ from every row.
type NegativeTable struct {
	Xs   []Expr
	Rows [][]int64
}

// NewNegativeTable creates a forbidden-assignments constraint: xs must
// not match any row.
func NewNegativeTable(xs []Expr, rows [][]int64) *NegativeTable {
	checkNumeric("NegativeTable", xs...)
	for i, r := range rows {
		if len(r) != len(xs) {
			log.Fatalf("NegativeTable: row %d has %d values, want %d", i, len(r), len(xs))
		}
	}
	return &NegativeTable{Xs: xs, Rows: rows}
}

// GlobalName returns "negative_table".
func (g *NegativeTable) GlobalName() string { return "negative_table" }

// IsBool reports that the constraint is Boolean-valued.
func (g *NegativeTable) IsBool() bool { return true }

// Bounds returns the [0,1] truth interval.
func (g *NegativeTable) Bounds() (int64, int64) { return 0, 1 }

func (g *NegativeTable) String() string {
	return fmt.Sprintf("%s x %d rows", globalString("negative_table", g.Xs), len(g.Rows))
}

// Decompose returns, per row, a disequality on at least one position.
func (g *NegativeTable) Decompose() []Expr {
	cons := make([]Expr, len(g.Rows))
	for i, row := range g.Rows {
		nes := make([]Expr, len(g.Xs))
		for j, x := range g.Xs {
			nes[j] = Ne(x, IntVal(row[j]))
		}
		cons[i] = Or(nes...)
	}
	return cons
}

// Cumulative constrains tasks with given starts, durations, ends and
// demands to never exceed Capacity at any point in time.
type Cumulative struct {
	Starts, Durs, Ends []Expr
	Demands            []int64
	Capacity           Expr
}

// NewCumulative creates a cumulative resource constraint. All task
// slices must have the same length.
func NewCumulative(starts, durs, ends []Expr, demands []int64, capacity Expr) *Cumulative {
	if len(durs) != len(starts) || len(ends) != len(starts) || len(demands) != len(starts) {
		log.Fatalf("Cumulative: got %d starts, %d durations, %d ends, %d demands; lengths must match",
			len(starts), len(durs), len(ends), len(demands))
	}
	checkNumeric("Cumulative", starts...)
	checkNumeric("Cumulative", durs...)
	checkNumeric("Cumulative", ends...)
	checkNumeric("Cumulative", capacity)
	return &Cumulative{Starts: starts, Durs: durs, Ends: ends, Demands: demands, Capacity: capacity}
}

// GlobalName returns "cumulative".
func (g *Cumulative) GlobalName() string { return "cumulative" }

// IsBool reports that the constraint is Boolean-valued.
func (g *Cumulative) IsBool() bool { return true }

// Bounds returns the [0,1] truth interval.
func (g *Cumulative) Bounds() (int64, int64) { return 0, 1 }

func (g *Cumulative) String() string { return globalString("cumulative", g.Starts) }

// Decompose links starts, durations and ends, then caps the demand of
// the tasks running at each task's start time.
func (g *Cumulative) Decompose() []Expr {
	var cons []Expr
	n := len(g.Starts)
	for i := 0; i < n; i++ {
		cons = append(cons, Eq(Sum(g.Starts[i], g.Durs[i]), g.Ends[i]))
	}
	for j := 0; j < n; j++ {
		running := make([]Expr, n)
		for i := 0; i < n; i++ {
			running[i] = And(Le(g.Starts[i], g.Starts[j]), Lt(g.Starts[j], g.Ends[i]))
		}
		cons = append(cons, Le(WeightedSum(g.Demands, running), g.Capacity))
	}
	return cons
}

// NoOverlap constrains tasks with given starts, durations and ends to
// not overlap in time.
type NoOverlap struct {
	Starts, Durs, Ends []Expr
}

// NewNoOverlap creates a disjunctive scheduling constraint. All task
// slices must have the same length.
func NewNoOverlap(starts, durs, ends []Expr) *NoOverlap {
	if len(durs) != len(starts) || len(ends) != len(starts) {
		log.Fatalf("NoOverlap: got %d starts, %d durations, %d ends; lengths must match",
			len(starts), len(durs), len(ends))
	}
	checkNumeric("NoOverlap", starts...)
	checkNumeric("NoOverlap", durs...)
	checkNumeric("NoOverlap", ends...)
	return &NoOverlap{Starts: starts, Durs: durs, Ends: ends}
}

// GlobalName returns "no_overlap".
func (g *NoOverlap) GlobalName() string { return "no_overlap" }

// IsBool reports that the constraint is Boolean-valued.
func (g *NoOverlap) IsBool() bool { return true }

// Bounds returns the [0,1] truth interval.
func (g *NoOverlap) Bounds() (int64, int64) { return 0, 1 }

func (g *NoOverlap) String() string { return globalString("no_overlap", g.Starts) }

// Decompose links starts, durations and ends, then orders each task
// pair one way or the other.
func (g *NoOverlap) Decompose() []Expr {
	var cons []Expr
	n := len(g.Starts)
	for i := 0; i < n; i++ {
		cons = append(cons, Eq(Sum(g.Starts[i], g.Durs[i]), g.Ends[i]))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			cons = append(cons, Or(Le(g.Ends[i], g.Starts[j]), Le(g.Ends[j], g.Starts[i])))
		}
	}
	return cons
}

// Circuit constrains the successor variables Succ to form a single
// Hamiltonian circuit: following Succ from node 0 visits every node
// exactly once before returning to 0.
type Circuit struct {
	Succ []Expr
}

// NewCircuit creates a circuit constraint over the successor array.
func NewCircuit(succ ...Expr) *Circuit {
	checkNumeric("Circuit", succ...)
	return &Circuit{Succ: succ}
}

// GlobalName returns "circuit".
func (g *Circuit) GlobalName() string { return "circuit" }

// IsBool reports that the constraint is Boolean-valued.
func (g *Circuit) IsBool() bool { return true }

// Bounds returns the [0,1] truth interval.
func (g *Circuit) Bounds() (int64, int64) { return 0, 1 }

func (g *Circuit) String() string { return globalString("circuit", g.Succ) }

// Decompose introduces visit-order variables: order[k] is the node
// visited k steps after node 0, chained through the successor array.
func (g *Circuit) Decompose() []Expr {
	n := len(g.Succ)
	order := make([]Expr, n)
	for i := range order {
		order[i] = NewIntVar(0, int64(n-1), "")
	}
	cons := []Expr{
		NewAllDifferent(g.Succ...),
		NewAllDifferent(order...),
		Eq(order[0], g.Succ[0]),
		Eq(order[n-1], IntVal(0)),
	}
	for i := 1; i < n; i++ {
		cons = append(cons, Eq(order[i], ElementOf(g.Succ, order[i-1])))
	}
	for _, s := range g.Succ {
		cons = append(cons, Ge(s, IntVal(0)), Lt(s, IntVal(int64(n))))
	}
	return cons
}

// Inverse constrains Rev to be the inverse assignment of Fwd:
// Rev[Fwd[i]] == i for all i.
type Inverse struct {
	Fwd, Rev []Expr
}

// NewInverse creates an inverse-channeling constraint between the two
// arrays, which must have the same length.
func NewInverse(fwd, rev []Expr) *Inverse {
	if len(fwd) != len(rev) {
		log.Fatalf("Inverse: len(fwd)=%d must equal len(rev)=%d", len(fwd), len(rev))
	}
	checkNumeric("Inverse", fwd...)
	checkNumeric("Inverse", rev...)
	return &Inverse{Fwd: fwd, Rev: rev}
}

// GlobalName returns "inverse".
func (g *Inverse) GlobalName() string { return "inverse" }

// IsBool reports that the constraint is Boolean-valued.
func (g *Inverse) IsBool() bool { return true }

// Bounds returns the [0,1] truth interval.
func (g *Inverse) Bounds() (int64, int64) { return 0, 1 }

func (g *Inverse) String() string { return globalString("inverse", append(append([]Expr{}, g.Fwd...), g.Rev...)) }

// Decompose channels each forward assignment through the reverse array.
func (g *Inverse) Decompose() []Expr {
	n := int64(len(g.Fwd))
	var cons []Expr
	for i, f := range g.Fwd {
		cons = append(cons, Ge(f, IntVal(0)), Lt(f, IntVal(n)))
		cons = append(cons, Eq(ElementOf(g.Rev, f), IntVal(int64(i))))
	}
	return cons
}

// Transition is one edge of a Regular automaton: reading Label in state
// From moves to state To.
type Transition struct {
	From, Label, To int64
}

// Regular constrains the word Xs to be accepted by the deterministic
// finite automaton given by Trans, Start and Accepting.
type Regular struct {
	Xs        []Expr
	Trans     []Transition
	Start     int64
	Accepting []int64
}

// NewRegular creates an automaton constraint over xs.
func NewRegular(xs []Expr, trans []Transition, start int64, accepting []int64) *Regular {
	checkNumeric("Regular", xs...)
	if len(trans) == 0 {
		log.Fatalf("Regular requires at least one transition")
	}
	return &Regular{Xs: xs, Trans: trans, Start: start, Accepting: accepting}
}

// GlobalName returns "regular".
func (g *Regular) GlobalName() string { return "regular" }

// IsBool reports that the constraint is Boolean-valued.
func (g *Regular) IsBool() bool { return true }

// Bounds returns the [0,1] truth interval.
func (g *Regular) Bounds() (int64, int64) { return 0, 1 }

func (g *Regular) String() string { return globalString("regular", g.Xs) }

// Decompose chains state variables through a table of transitions and
// requires the final state to be accepting.
func (g *Regular) Decompose() []Expr {
	minState, maxState := g.Start, g.Start
	for _, t := range g.Trans {
		for _, s := range []int64{t.From, t.To} {
			if s < minState {
				minState = s
			}
			if s > maxState {
				maxState = s
			}
		}
	}
	rows := make([][]int64, len(g.Trans))
	for i, t := range g.Trans {
		rows[i] = []int64{t.From, t.Label, t.To}
	}

	states := make([]Expr, len(g.Xs)+1)
	states[0] = IntVal(g.Start)
	for i := 1; i < len(states); i++ {
		states[i] = NewIntVar(minState, maxState, "")
	}
	var cons []Expr
	for i, x := range g.Xs {
		cons = append(cons, NewTable([]Expr{states[i], x, states[i+1]}, rows))
	}
	final := make([]Expr, len(g.Accepting))
	for i, a := range g.Accepting {
		final[i] = Eq(states[len(g.Xs)], IntVal(a))
	}
	cons = append(cons, Or(final...))
	return cons
}

// Direct is an escape hatch: a named constraint handed verbatim to a
// backend that knows the name. It has no decomposition; a backend that
// does not recognize the name rejects the model.
type Direct struct {
	Name string
	Args []any
}

// IsBool reports that the constraint is Boolean-valued.
func (d *Direct) IsBool() bool { return true }

// Bounds returns the [0,1] truth interval.
func (d *Direct) Bounds() (int64, int64) { return 0, 1 }

func (d *Direct) String() string { return fmt.Sprintf("direct:%s/%d", d.Name, len(d.Args)) }

func globalString(name string, args []Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}
