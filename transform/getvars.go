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

package transform

import "github.com/cpmod/cpmod/expr"

// VarSet is an insertion-ordered set of decision variables. Negated
// views resolve to their underlying variable.
type VarSet struct {
	order []expr.Var
	seen  map[expr.Var]bool
}

// NewVarSet creates an empty variable set.
func NewVarSet() *VarSet {
	return &VarSet{seen: make(map[expr.Var]bool)}
}

// Add inserts the variable behind v, keeping first-insertion order.
func (s *VarSet) Add(v expr.Var) {
	base := v.Base()
	if s.seen[base] {
		return
	}
	s.seen[base] = true
	s.order = append(s.order, base)
}

// Has reports whether the variable behind v is in the set.
func (s *VarSet) Has(v expr.Var) bool { return s.seen[v.Base()] }

// Vars returns the variables in insertion order. The returned slice is
// shared; callers must not modify it.
func (s *VarSet) Vars() []expr.Var { return s.order }

// Len returns the number of variables in the set.
func (s *VarSet) Len() int { return len(s.order) }

// CollectVars adds every decision variable reachable from e to s.
func CollectVars(e expr.Expr, s *VarSet) {
	switch t := e.(type) {
	case expr.Var:
		s.Add(t)
	case *expr.Comparison:
		CollectVars(t.Lhs, s)
		CollectVars(t.Rhs, s)
	case *expr.Operator:
		collectAll(t.Args, s)
	case *expr.Element:
		collectAll(t.Arr, s)
		CollectVars(t.Index, s)
	case *expr.AllDifferent:
		collectAll(t.Xs, s)
	case *expr.Xor:
		collectAll(t.Xs, s)
	case *expr.Table:
		collectAll(t.Xs, s)
	case *expr.NegativeTable:
		collectAll(t.Xs, s)
	case *expr.Cumulative:
		collectAll(t.Starts, s)
		collectAll(t.Durs, s)
		collectAll(t.Ends, s)
		CollectVars(t.Capacity, s)
	case *expr.NoOverlap:
		collectAll(t.Starts, s)
		collectAll(t.Durs, s)
		collectAll(t.Ends, s)
	case *expr.Circuit:
		collectAll(t.Succ, s)
	case *expr.Inverse:
		collectAll(t.Fwd, s)
		collectAll(t.Rev, s)
	case *expr.Regular:
		collectAll(t.Xs, s)
	case *expr.Direct:
		for _, a := range t.Args {
			if sub, ok := a.(expr.Expr); ok {
				CollectVars(sub, s)
			}
		}
	}
}

func collectAll(xs []expr.Expr, s *VarSet) {
	for _, x := range xs {
		CollectVars(x, s)
	}
}
