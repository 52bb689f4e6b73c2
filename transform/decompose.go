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

// DecomposeGlobals replaces global constraints outside the backend's
// native vocabulary with their decompositions. A toplevel global is
// spliced in place; a global under an implication is distributed over
// its decomposition parts; a global anywhere else (negated, reified,
// inside a disjunction) is extracted behind a cached auxiliary Boolean
// equated with the conjunction of its fully-reified parts. Supported
// globals survive only at toplevel; nested occurrences are decomposed
// too, since no backend enforces a global conditionally.
func DecomposeGlobals(cons []expr.Expr, supported map[string]bool, cache *Cache) ([]expr.Expr, error) {
	d := &decomposer{supported: supported, cache: cache}
	var out []expr.Expr
	queue := append([]expr.Expr{}, cons...)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]

		if g, ok := c.(expr.Global); ok {
			if supported[g.GlobalName()] {
				out = append(out, g)
				continue
			}
			queue = append(g.Decompose(), queue...)
			continue
		}
		if imp, ok := c.(*expr.Operator); ok && imp.Name == expr.OpImp {
			if g, ok := imp.Args[1].(expr.Global); ok {
				// Distributing the antecedent over the parts is sound
				// for a half implication even when the decomposition
				// introduces fresh variables.
				var dist []expr.Expr
				for _, p := range g.Decompose() {
					dist = append(dist, expr.Implies(imp.Args[0], p))
				}
				queue = append(dist, queue...)
				continue
			}
		}

		c2, defs, err := d.rewrite(c)
		if err != nil {
			return nil, err
		}
		queue = append(defs, queue...)
		out = append(out, c2)
	}
	return out, nil
}

type decomposer struct {
	supported map[string]bool
	cache     *Cache
}

// rewrite returns e with every nested global replaced by its auxiliary
// Boolean, plus the defining constraints introduced along the way. The
// defining constraints may contain further globals at toplevel.
func (d *decomposer) rewrite(e expr.Expr) (expr.Expr, []expr.Expr, error) {
	switch t := e.(type) {
	case expr.Global:
		return d.extract(t)
	case *expr.Operator:
		if t.Name == expr.OpNot {
			if g, ok := t.Args[0].(expr.Global); ok {
				bv, defs, err := d.extract(g)
				if err != nil {
					return nil, nil, err
				}
				return expr.Not(bv), defs, nil
			}
		}
		args, defs, changed, err := d.rewriteAll(t.Args)
		if err != nil {
			return nil, nil, err
		}
		if !changed {
			return t, nil, nil
		}
		return &expr.Operator{Name: t.Name, Args: args, Weights: t.Weights}, defs, nil
	case *expr.Comparison:
		lhs, ldefs, err := d.rewrite(t.Lhs)
		if err != nil {
			return nil, nil, err
		}
		rhs, rdefs, err := d.rewrite(t.Rhs)
		if err != nil {
			return nil, nil, err
		}
		if lhs == t.Lhs && rhs == t.Rhs {
			return t, nil, nil
		}
		return &expr.Comparison{Op: t.Op, Lhs: lhs, Rhs: rhs}, append(ldefs, rdefs...), nil
	case *expr.Element:
		arr, adefs, changed, err := d.rewriteAll(t.Arr)
		if err != nil {
			return nil, nil, err
		}
		idx, idefs, err := d.rewrite(t.Index)
		if err != nil {
			return nil, nil, err
		}
		if !changed && idx == t.Index {
			return t, nil, nil
		}
		return &expr.Element{Arr: arr, Index: idx}, append(adefs, idefs...), nil
	}
	return e, nil, nil
}

func (d *decomposer) rewriteAll(xs []expr.Expr) ([]expr.Expr, []expr.Expr, bool, error) {
	out := make([]expr.Expr, len(xs))
	var defs []expr.Expr
	changed := false
	for i, x := range xs {
		x2, xdefs, err := d.rewrite(x)
		if err != nil {
			return nil, nil, false, err
		}
		out[i] = x2
		defs = append(defs, xdefs...)
		changed = changed || x2 != x
	}
	return out, defs, changed, nil
}

// extract returns the cached auxiliary Boolean equivalent to g. On a
// cache miss it emits, per decomposition part, a fully reified
// auxiliary, and equates the global's Boolean with their conjunction.
func (d *decomposer) extract(g expr.Global) (expr.Expr, []expr.Expr, error) {
	if err := checkFreelyDecomposable(g); err != nil {
		return nil, nil, err
	}
	key := g.String()
	if v, ok := d.cache.Get(key); ok {
		return v, nil, nil
	}
	bv := expr.NewBoolVar("")
	d.cache.Put(key, bv)

	var defs []expr.Expr
	var auxs []expr.Expr
	for _, p := range g.Decompose() {
		p2, pdefs, err := d.rewrite(p)
		if err != nil {
			return nil, nil, err
		}
		defs = append(defs, pdefs...)
		if v, ok := p2.(expr.Var); ok {
			auxs = append(auxs, v)
			continue
		}
		pkey := p2.String()
		pv, ok := d.cache.Get(pkey)
		if !ok {
			fresh := expr.NewBoolVar("")
			d.cache.Put(pkey, fresh)
			defs = append(defs, expr.Eq(fresh, p2))
			pv = fresh
		}
		auxs = append(auxs, pv)
	}
	defs = append(defs, expr.Eq(bv, expr.And(auxs...)))
	return bv, defs, nil
}

// checkFreelyDecomposable rejects globals whose decomposition relies on
// fresh existential variables. Their conjunction cannot stand in for
// the global under negation or partial truth, so such globals are only
// usable as toplevel constraints.
func checkFreelyDecomposable(g expr.Global) error {
	switch g.(type) {
	case *expr.Circuit, *expr.Regular:
		return &UnsupportedError{Expr: g, Reason: "cannot be negated or reified"}
	}
	return nil
}
