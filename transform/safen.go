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

// SafenPartialFunctions guards the partial functions div and mod.
// An occurrence the constraint evaluates at toplevel truth gets its
// `divisor != 0` guard conjoined after the constraint, and a toplevel
// constant-zero divisor replaces the constraint with `false` outright.
// An occurrence under a disjunction, negation, implication or
// reification is totalized in place instead: the enclosing comparison
// becomes its conjunction with the guards, so an undefined
// subexpression falsifies exactly that node and nothing else.
func SafenPartialFunctions(cons []expr.Expr) []expr.Expr {
	var out []expr.Expr
	for _, c := range cons {
		safe, guards, zero := safenConstraint(c)
		if zero {
			out = append(out, expr.BoolVal(false))
			continue
		}
		out = append(out, safe)
		out = append(out, guards...)
	}
	return out
}

// safenConstraint rewrites one constraint known to hold. Conjunction
// arguments inherit the toplevel truth; every other Boolean context
// loses it and is totalized rather than guarded.
func safenConstraint(c expr.Expr) (safe expr.Expr, guards []expr.Expr, zero bool) {
	switch t := c.(type) {
	case *expr.Operator:
		switch t.Name {
		case expr.OpAnd:
			args := make([]expr.Expr, len(t.Args))
			for i, a := range t.Args {
				sa, g, z := safenConstraint(a)
				if z {
					return nil, nil, true
				}
				args[i] = sa
				guards = append(guards, g...)
			}
			return &expr.Operator{Name: expr.OpAnd, Args: args}, guards, false
		case expr.OpOr, expr.OpImp, expr.OpNot:
			return totalize(t), nil, false
		}
		return t, nil, false
	case *expr.Comparison:
		if t.Lhs.IsBool() && t.Rhs.IsBool() {
			// Reified: neither side's truth follows from the toplevel.
			return &expr.Comparison{Op: t.Op, Lhs: totalize(t.Lhs), Rhs: totalize(t.Rhs)}, nil, false
		}
		guards, zero = divisorGuards(t)
		return t, guards, zero
	case *expr.Xor:
		// The only global with Boolean arguments; its truth says
		// nothing about theirs.
		args := make([]expr.Expr, len(t.Xs))
		for i, a := range t.Xs {
			args[i] = totalize(a)
		}
		return expr.NewXor(args...), nil, false
	case expr.Global:
		// Numeric arguments of a holding global are all evaluated.
		guards, zero = divisorGuards(t)
		return t, guards, zero
	}
	return c, nil, false
}

// totalize rewrites a Boolean expression whose truth context is
// unknown: a comparison or global over a possibly-undefined div or mod
// becomes its conjunction with the divisor guards, and a constant-zero
// divisor makes the node false.
func totalize(e expr.Expr) expr.Expr {
	switch t := e.(type) {
	case *expr.Operator:
		if !t.IsBool() {
			return e
		}
		args := make([]expr.Expr, len(t.Args))
		for i, a := range t.Args {
			args[i] = totalize(a)
		}
		return &expr.Operator{Name: t.Name, Args: args}
	case *expr.Comparison:
		if t.Lhs.IsBool() && t.Rhs.IsBool() {
			return &expr.Comparison{Op: t.Op, Lhs: totalize(t.Lhs), Rhs: totalize(t.Rhs)}
		}
		return guardNode(t)
	case *expr.Xor:
		args := make([]expr.Expr, len(t.Xs))
		for i, a := range t.Xs {
			args[i] = totalize(a)
		}
		return expr.NewXor(args...)
	case expr.Global:
		return guardNode(t)
	}
	return e
}

// guardNode conjoins a node with the divisor guards of its subtree.
func guardNode(e expr.Expr) expr.Expr {
	guards, zero := divisorGuards(e)
	if zero {
		return expr.BoolVal(false)
	}
	if len(guards) == 0 {
		return e
	}
	return expr.And(append(guards, e)...)
}

// divisorGuards collects `divisor != 0` guards for every div or mod
// under e, including inside global-constraint arguments. zero reports
// a constant-zero divisor.
func divisorGuards(e expr.Expr) (guards []expr.Expr, zero bool) {
	seen := make(map[string]bool)
	var walk func(e expr.Expr)
	walkAll := func(xs []expr.Expr) {
		for _, x := range xs {
			walk(x)
		}
	}
	walk = func(e expr.Expr) {
		switch t := e.(type) {
		case *expr.Comparison:
			walk(t.Lhs)
			walk(t.Rhs)
		case *expr.Element:
			walkAll(t.Arr)
			walk(t.Index)
		case *expr.Operator:
			walkAll(t.Args)
			if t.Name != expr.OpDiv && t.Name != expr.OpMod {
				return
			}
			div := t.Args[1]
			lb, ub := div.Bounds()
			if lb == 0 && ub == 0 {
				zero = true
				return
			}
			if lb > 0 || ub < 0 {
				return
			}
			key := div.String()
			if seen[key] {
				return
			}
			seen[key] = true
			guards = append(guards, expr.Ne(div, expr.IntVal(0)))
		case *expr.AllDifferent:
			walkAll(t.Xs)
		case *expr.Xor:
			walkAll(t.Xs)
		case *expr.Table:
			walkAll(t.Xs)
		case *expr.NegativeTable:
			walkAll(t.Xs)
		case *expr.Cumulative:
			walkAll(t.Starts)
			walkAll(t.Durs)
			walkAll(t.Ends)
			walk(t.Capacity)
		case *expr.NoOverlap:
			walkAll(t.Starts)
			walkAll(t.Durs)
			walkAll(t.Ends)
		case *expr.Circuit:
			walkAll(t.Succ)
		case *expr.Inverse:
			walkAll(t.Fwd)
			walkAll(t.Rev)
		case *expr.Regular:
			walkAll(t.Xs)
		}
	}
	walk(e)
	return guards, zero
}
