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

// ReifyRewrite restricts what may sit inside a reification to the
// backend's declared reifiable vocabulary. A comparison consequent
// whose left side is an operator outside `reifiable` is split: the
// operator is bound to an auxiliary by a hard equality, and the
// auxiliary takes its place inside the reification. Expects flat
// constraints.
func ReifyRewrite(cons []expr.Expr, reifiable map[expr.OpName]bool, cache *Cache) ([]expr.Expr, error) {
	var out []expr.Expr
	for _, c := range cons {
		switch t := c.(type) {
		case *expr.Comparison:
			if t.Op == expr.OpEq && t.Lhs.IsBool() && t.Rhs.IsBool() {
				rhs, defs, err := reifiableSub(t.Rhs, reifiable, cache)
				if err != nil {
					return nil, err
				}
				out = append(out, defs...)
				out = append(out, &expr.Comparison{Op: expr.OpEq, Lhs: t.Lhs, Rhs: rhs})
				continue
			}
		case *expr.Operator:
			if t.Name == expr.OpImp {
				rhs, defs, err := reifiableSub(t.Args[1], reifiable, cache)
				if err != nil {
					return nil, err
				}
				out = append(out, defs...)
				out = append(out, &expr.Operator{Name: expr.OpImp, Args: []expr.Expr{t.Args[0], rhs}})
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// reifiableSub rewrites the inside of a reification. The defining
// constraints it returns are hard toplevel equalities.
func reifiableSub(e expr.Expr, reifiable map[expr.OpName]bool, cache *Cache) (expr.Expr, []expr.Expr, error) {
	cmp, ok := e.(*expr.Comparison)
	if !ok {
		return e, nil, nil
	}
	switch lhs := cmp.Lhs.(type) {
	case *expr.Operator:
		if reifiable[lhs.Name] {
			return e, nil, nil
		}
		aux, defs, err := getOrMakeVar(lhs, cache)
		if err != nil {
			return nil, nil, err
		}
		return &expr.Comparison{Op: cmp.Op, Lhs: aux, Rhs: cmp.Rhs}, defs, nil
	case *expr.Element:
		aux, defs, err := getOrMakeVar(lhs, cache)
		if err != nil {
			return nil, nil, err
		}
		return &expr.Comparison{Op: cmp.Op, Lhs: aux, Rhs: cmp.Rhs}, defs, nil
	}
	return e, nil, nil
}

// OnlyNumExprEquality limits which numeric expressions may sit on the
// left of a non-equality comparison. An operator outside `supported`
// is bound to an auxiliary with a hard equality, and the auxiliary
// carries the order comparison. Applies at toplevel and inside
// reifications. Expects flat constraints.
func OnlyNumExprEquality(cons []expr.Expr, supported map[expr.OpName]bool, cache *Cache) ([]expr.Expr, error) {
	var out []expr.Expr
	for _, c := range cons {
		switch t := c.(type) {
		case *expr.Comparison:
			if t.Op != expr.OpEq && !t.Lhs.IsBool() {
				c2, defs, err := numEqLhs(t, supported, cache)
				if err != nil {
					return nil, err
				}
				out = append(out, defs...)
				out = append(out, c2)
				continue
			}
			if t.Op == expr.OpEq && t.Lhs.IsBool() && t.Rhs.IsBool() {
				if inner, ok := t.Rhs.(*expr.Comparison); ok && inner.Op != expr.OpEq {
					c2, defs, err := numEqLhs(inner, supported, cache)
					if err != nil {
						return nil, err
					}
					out = append(out, defs...)
					out = append(out, &expr.Comparison{Op: expr.OpEq, Lhs: t.Lhs, Rhs: c2})
					continue
				}
			}
		case *expr.Operator:
			if t.Name == expr.OpImp {
				if inner, ok := t.Args[1].(*expr.Comparison); ok && inner.Op != expr.OpEq {
					c2, defs, err := numEqLhs(inner, supported, cache)
					if err != nil {
						return nil, err
					}
					out = append(out, defs...)
					out = append(out, &expr.Operator{Name: expr.OpImp, Args: []expr.Expr{t.Args[0], c2}})
					continue
				}
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func numEqLhs(cmp *expr.Comparison, supported map[expr.OpName]bool, cache *Cache) (expr.Expr, []expr.Expr, error) {
	switch lhs := cmp.Lhs.(type) {
	case *expr.Operator:
		if supported[lhs.Name] {
			return cmp, nil, nil
		}
		aux, defs, err := getOrMakeVar(lhs, cache)
		if err != nil {
			return nil, nil, err
		}
		return &expr.Comparison{Op: cmp.Op, Lhs: aux, Rhs: cmp.Rhs}, defs, nil
	case *expr.Element:
		aux, defs, err := getOrMakeVar(lhs, cache)
		if err != nil {
			return nil, nil, err
		}
		return &expr.Comparison{Op: cmp.Op, Lhs: aux, Rhs: cmp.Rhs}, defs, nil
	}
	return cmp, nil, nil
}

// OnlyImplies lowers every reified equality into half implications:
// `bv == e` becomes `bv -> e` and `~bv -> ~e`. Constant right sides
// assert or deny the literal directly. Expects flat constraints.
func OnlyImplies(cons []expr.Expr) []expr.Expr {
	var out []expr.Expr
	for _, c := range cons {
		t, ok := c.(*expr.Comparison)
		if !ok || t.Op != expr.OpEq || !t.Lhs.IsBool() || !t.Rhs.IsBool() {
			out = append(out, c)
			continue
		}
		lit, ok := t.Lhs.(expr.Var)
		if !ok {
			out = append(out, c)
			continue
		}
		if bv, ok := t.Rhs.(expr.BoolVal); ok {
			if bool(bv) {
				out = append(out, lit)
			} else {
				out = append(out, expr.Not(lit))
			}
			continue
		}
		out = append(out,
			&expr.Operator{Name: expr.OpImp, Args: []expr.Expr{lit, t.Rhs}},
			&expr.Operator{Name: expr.OpImp, Args: []expr.Expr{expr.Not(lit), expr.Not(t.Rhs)}})
	}
	return out
}
