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

// FlattenConstraints brings every constraint into flat normal form:
// all operator and comparison arguments are variables or constants,
// with nested subexpressions replaced by cache-memoized auxiliary
// variables whose defining constraints are emitted alongside. The flat
// toplevel forms are a Boolean literal, or/and over literals, a half
// implication with a literal antecedent, a reified equality with a
// literal on the left, a comparison over flat numeric expressions, or
// a natively supported global over literals.
func FlattenConstraints(cons []expr.Expr, cache *Cache) ([]expr.Expr, error) {
	var out []expr.Expr
	for _, c := range cons {
		flat, err := flattenConstraint(c, cache)
		if err != nil {
			return nil, err
		}
		out = append(out, flat...)
	}
	return out, nil
}

// FlattenObjective flattens an objective expression to a variable,
// constant, or sum/wsum over variables and constants, returning the
// defining constraints of any auxiliaries introduced.
func FlattenObjective(obj expr.Expr, cache *Cache) (expr.Expr, []expr.Expr, error) {
	if isLeaf(obj) {
		return obj, nil, nil
	}
	if op, ok := obj.(*expr.Operator); ok && (op.Name == expr.OpSum || op.Name == expr.OpWSum) {
		args, defs, err := leafArgs(op.Args, cache)
		if err != nil {
			return nil, nil, err
		}
		return &expr.Operator{Name: op.Name, Args: args, Weights: op.Weights}, defs, nil
	}
	return getOrMakeVar(obj, cache)
}

// isLeaf reports whether e needs no further flattening as an argument.
func isLeaf(e expr.Expr) bool {
	switch e.(type) {
	case expr.Var, expr.IntVal, expr.BoolVal:
		return true
	}
	return false
}

// getOrMakeVar returns a variable or constant equal to e. On a cache
// miss a fresh auxiliary is introduced and its flattened defining
// constraint is returned alongside.
func getOrMakeVar(e expr.Expr, cache *Cache) (expr.Expr, []expr.Expr, error) {
	if isLeaf(e) {
		return e, nil, nil
	}
	key := e.String()
	if v, ok := cache.Get(key); ok {
		return v, nil, nil
	}
	if e.IsBool() {
		bv := expr.NewBoolVar("")
		cache.Put(key, bv)
		defs, err := flattenConstraint(expr.Eq(bv, e), cache)
		return bv, defs, err
	}
	lb, ub := e.Bounds()
	iv := expr.NewIntVar(lb, ub, "")
	cache.Put(key, iv)
	defs, err := flattenConstraint(expr.Eq(e, iv), cache)
	return iv, defs, err
}

func leafArgs(args []expr.Expr, cache *Cache) ([]expr.Expr, []expr.Expr, error) {
	out := make([]expr.Expr, len(args))
	var defs []expr.Expr
	for i, a := range args {
		v, adefs, err := getOrMakeVar(a, cache)
		if err != nil {
			return nil, nil, err
		}
		out[i] = v
		defs = append(defs, adefs...)
	}
	return out, defs, nil
}

func flattenConstraint(c expr.Expr, cache *Cache) ([]expr.Expr, error) {
	switch t := c.(type) {
	case expr.Var, expr.BoolVal:
		return []expr.Expr{c}, nil
	case *expr.Direct:
		return []expr.Expr{c}, nil
	case *expr.Operator:
		return flattenBoolOp(t, cache)
	case *expr.Comparison:
		return flattenComparison(t, cache)
	case expr.Global:
		return flattenGlobal(t, cache)
	}
	return nil, &UnsupportedError{Expr: c, Reason: "not a constraint"}
}

func flattenBoolOp(t *expr.Operator, cache *Cache) ([]expr.Expr, error) {
	switch t.Name {
	case expr.OpAnd:
		var out []expr.Expr
		for _, a := range t.Args {
			flat, err := flattenConstraint(a, cache)
			if err != nil {
				return nil, err
			}
			out = append(out, flat...)
		}
		return out, nil
	case expr.OpOr:
		args, defs, err := leafArgs(t.Args, cache)
		if err != nil {
			return nil, err
		}
		return append(defs, &expr.Operator{Name: expr.OpOr, Args: args}), nil
	case expr.OpImp:
		a, b := t.Args[0], t.Args[1]
		if !isLeaf(a) {
			if isLeaf(b) {
				// Contrapose so the complex side sits in the
				// consequent, keeping the reification half.
				return flattenConstraint(expr.Implies(expr.Not(b), expr.Not(a)), cache)
			}
			va, adefs, err := getOrMakeVar(a, cache)
			if err != nil {
				return nil, err
			}
			flat, err := flattenConstraint(expr.Implies(va, b), cache)
			if err != nil {
				return nil, err
			}
			return append(adefs, flat...), nil
		}
		fb, bdefs, err := flattenBoolSub(b, cache)
		if err != nil {
			return nil, err
		}
		return append(bdefs, &expr.Operator{Name: expr.OpImp, Args: []expr.Expr{a, fb}}), nil
	case expr.OpNot:
		v, defs, err := getOrMakeVar(t.Args[0], cache)
		if err != nil {
			return nil, err
		}
		return append(defs, expr.Not(v)), nil
	}
	return nil, &UnsupportedError{Expr: t, Reason: "not a Boolean constraint"}
}

func flattenComparison(t *expr.Comparison, cache *Cache) ([]expr.Expr, error) {
	if t.Lhs.IsBool() && t.Rhs.IsBool() {
		return flattenReified(t, cache)
	}

	lhs, rhs, op := t.Lhs, t.Rhs, t.Op
	if isLeaf(lhs) && !isLeaf(rhs) {
		lhs, rhs, op = rhs, lhs, op.Flip()
	}
	flhs, ldefs, err := flattenNumExpr(lhs, cache)
	if err != nil {
		return nil, err
	}
	frhs, rdefs, err := getOrMakeVar(rhs, cache)
	if err != nil {
		return nil, err
	}
	out := append(ldefs, rdefs...)
	return append(out, &expr.Comparison{Op: op, Lhs: flhs, Rhs: frhs}), nil
}

// flattenReified normalizes a Boolean (dis)equality into the reified
// form `literal == flatexpr`.
func flattenReified(t *expr.Comparison, cache *Cache) ([]expr.Expr, error) {
	lhs, rhs := t.Lhs, t.Rhs
	if t.Op == expr.OpNe {
		return flattenConstraint(expr.Eq(lhs, expr.Not(rhs)), cache)
	}
	if t.Op != expr.OpEq {
		// Order comparisons over Booleans read them as 0/1 integers.
		flhs, ldefs, err := getOrMakeVar(lhs, cache)
		if err != nil {
			return nil, err
		}
		frhs, rdefs, err := getOrMakeVar(rhs, cache)
		if err != nil {
			return nil, err
		}
		out := append(ldefs, rdefs...)
		return append(out, &expr.Comparison{Op: t.Op, Lhs: flhs, Rhs: frhs}), nil
	}
	if !isLeaf(lhs) && isLeaf(rhs) {
		lhs, rhs = rhs, lhs
	}
	if _, ok := rhs.(expr.BoolVal); ok {
		if _, ok := lhs.(expr.BoolVal); !ok {
			lhs, rhs = rhs, lhs
		}
	}
	if !isLeaf(lhs) {
		v, defs, err := getOrMakeVar(lhs, cache)
		if err != nil {
			return nil, err
		}
		flat, err := flattenConstraint(expr.Eq(v, rhs), cache)
		if err != nil {
			return nil, err
		}
		return append(defs, flat...), nil
	}
	if bv, ok := lhs.(expr.BoolVal); ok {
		// A constant truth value asserts or denies the other side.
		if bool(bv) {
			return flattenConstraint(rhs, cache)
		}
		return flattenConstraint(expr.Not(rhs), cache)
	}
	frhs, defs, err := flattenBoolSub(rhs, cache)
	if err != nil {
		return nil, err
	}
	return append(defs, &expr.Comparison{Op: expr.OpEq, Lhs: lhs, Rhs: frhs}), nil
}

// flattenNumExpr flattens a numeric expression one level: the node is
// kept, its arguments become variables or constants.
func flattenNumExpr(e expr.Expr, cache *Cache) (expr.Expr, []expr.Expr, error) {
	switch t := e.(type) {
	case *expr.Operator:
		args, defs, err := leafArgs(t.Args, cache)
		if err != nil {
			return nil, nil, err
		}
		return &expr.Operator{Name: t.Name, Args: args, Weights: t.Weights}, defs, nil
	case *expr.Element:
		arr, defs, err := leafArgs(t.Arr, cache)
		if err != nil {
			return nil, nil, err
		}
		idx, idefs, err := getOrMakeVar(t.Index, cache)
		if err != nil {
			return nil, nil, err
		}
		return &expr.Element{Arr: arr, Index: idx}, append(defs, idefs...), nil
	}
	return getOrMakeVar(e, cache)
}

// flattenBoolSub flattens a Boolean expression in consequent or
// reified-rhs position: literals, or/and over literals and flat
// comparisons survive; implications and negations are rewritten into
// clause form; Boolean equalities get an auxiliary. The rewrites are
// structural rather than going through getOrMakeVar on e itself, since
// this function runs while e's own cache entry is being defined.
func flattenBoolSub(e expr.Expr, cache *Cache) (expr.Expr, []expr.Expr, error) {
	switch t := e.(type) {
	case expr.Var, expr.BoolVal:
		return e, nil, nil
	case *expr.Operator:
		switch t.Name {
		case expr.OpAnd, expr.OpOr:
			args, defs, err := leafArgs(t.Args, cache)
			if err != nil {
				return nil, nil, err
			}
			return &expr.Operator{Name: t.Name, Args: args}, defs, nil
		case expr.OpImp:
			va, d1, err := getOrMakeVar(t.Args[0], cache)
			if err != nil {
				return nil, nil, err
			}
			vb, d2, err := getOrMakeVar(t.Args[1], cache)
			if err != nil {
				return nil, nil, err
			}
			return &expr.Operator{Name: expr.OpOr, Args: []expr.Expr{expr.Not(va), vb}}, append(d1, d2...), nil
		case expr.OpNot:
			v, defs, err := getOrMakeVar(t.Args[0], cache)
			if err != nil {
				return nil, nil, err
			}
			return expr.Not(v), defs, nil
		}
	case *expr.Comparison:
		if t.Lhs.IsBool() && t.Rhs.IsBool() {
			switch t.Op {
			case expr.OpNe:
				return flattenBoolSub(expr.Eq(t.Lhs, expr.Not(t.Rhs)), cache)
			case expr.OpEq:
				v1, d1, err := getOrMakeVar(t.Lhs, cache)
				if err != nil {
					return nil, nil, err
				}
				v2, d2, err := getOrMakeVar(t.Rhs, cache)
				if err != nil {
					return nil, nil, err
				}
				// Equivalence as the conjunction of its two clauses,
				// keyed on the rewritten structure.
				xnor := expr.And(expr.Or(expr.Not(v1), v2), expr.Or(v1, expr.Not(v2)))
				v, d3, err := getOrMakeVar(xnor, cache)
				if err != nil {
					return nil, nil, err
				}
				return v, append(append(d1, d2...), d3...), nil
			}
			// Order comparisons read Booleans as 0/1 integers.
		}
		lhs, rhs, op := t.Lhs, t.Rhs, t.Op
		if isLeaf(lhs) && !isLeaf(rhs) {
			lhs, rhs, op = rhs, lhs, op.Flip()
		}
		flhs, ldefs, err := flattenNumExpr(lhs, cache)
		if err != nil {
			return nil, nil, err
		}
		frhs, rdefs, err := getOrMakeVar(rhs, cache)
		if err != nil {
			return nil, nil, err
		}
		return &expr.Comparison{Op: op, Lhs: flhs, Rhs: frhs}, append(ldefs, rdefs...), nil
	}
	return nil, nil, &UnsupportedError{Expr: e, Reason: "cannot appear in reified position"}
}

// flattenGlobal rebuilds a natively supported global with variable or
// constant arguments.
func flattenGlobal(g expr.Global, cache *Cache) ([]expr.Expr, error) {
	switch t := g.(type) {
	case *expr.AllDifferent:
		xs, defs, err := leafArgs(t.Xs, cache)
		if err != nil {
			return nil, err
		}
		return append(defs, &expr.AllDifferent{Xs: xs}), nil
	case *expr.Xor:
		xs, defs, err := leafArgs(t.Xs, cache)
		if err != nil {
			return nil, err
		}
		return append(defs, &expr.Xor{Xs: xs}), nil
	case *expr.Table:
		xs, defs, err := leafArgs(t.Xs, cache)
		if err != nil {
			return nil, err
		}
		return append(defs, &expr.Table{Xs: xs, Rows: t.Rows}), nil
	case *expr.NegativeTable:
		xs, defs, err := leafArgs(t.Xs, cache)
		if err != nil {
			return nil, err
		}
		return append(defs, &expr.NegativeTable{Xs: xs, Rows: t.Rows}), nil
	case *expr.Cumulative:
		starts, d1, err := leafArgs(t.Starts, cache)
		if err != nil {
			return nil, err
		}
		durs, d2, err := leafArgs(t.Durs, cache)
		if err != nil {
			return nil, err
		}
		ends, d3, err := leafArgs(t.Ends, cache)
		if err != nil {
			return nil, err
		}
		capacity, d4, err := getOrMakeVar(t.Capacity, cache)
		if err != nil {
			return nil, err
		}
		defs := append(append(d1, d2...), append(d3, d4...)...)
		return append(defs, &expr.Cumulative{Starts: starts, Durs: durs, Ends: ends, Demands: t.Demands, Capacity: capacity}), nil
	case *expr.NoOverlap:
		starts, d1, err := leafArgs(t.Starts, cache)
		if err != nil {
			return nil, err
		}
		durs, d2, err := leafArgs(t.Durs, cache)
		if err != nil {
			return nil, err
		}
		ends, d3, err := leafArgs(t.Ends, cache)
		if err != nil {
			return nil, err
		}
		return append(append(append(d1, d2...), d3...), &expr.NoOverlap{Starts: starts, Durs: durs, Ends: ends}), nil
	case *expr.Circuit:
		succ, defs, err := leafArgs(t.Succ, cache)
		if err != nil {
			return nil, err
		}
		return append(defs, &expr.Circuit{Succ: succ}), nil
	case *expr.Inverse:
		fwd, d1, err := leafArgs(t.Fwd, cache)
		if err != nil {
			return nil, err
		}
		rev, d2, err := leafArgs(t.Rev, cache)
		if err != nil {
			return nil, err
		}
		return append(append(d1, d2...), &expr.Inverse{Fwd: fwd, Rev: rev}), nil
	case *expr.Regular:
		xs, defs, err := leafArgs(t.Xs, cache)
		if err != nil {
			return nil, err
		}
		return append(defs, &expr.Regular{Xs: xs, Trans: t.Trans, Start: t.Start, Accepting: t.Accepting}), nil
	}
	return nil, &UnsupportedError{Expr: g, Reason: "unknown global constraint"}
}
