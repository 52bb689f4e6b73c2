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
	"errors"
	"fmt"
)

// ErrNoValue is returned when evaluating an expression whose variables
// have no assigned value.
var ErrNoValue = errors.New("variable has no value")

// Eval computes the value of an expression under the current variable
// assignment. Boolean expressions evaluate to 0 or 1. It returns
// ErrNoValue if some variable is unassigned.
func Eval(e Expr) (int64, error) {
	switch t := e.(type) {
	case IntVal:
		return int64(t), nil
	case BoolVal:
		return b2i(bool(t)), nil
	case *IntVar:
		v, ok := t.Value()
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrNoValue, t.Name())
		}
		return v, nil
	case *BoolVar:
		v, ok := t.Value()
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrNoValue, t.Name())
		}
		return b2i(v), nil
	case *NegBoolView:
		v, ok := t.Value()
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrNoValue, t.Name())
		}
		return b2i(v), nil
	case *Comparison:
		l, err := Eval(t.Lhs)
		if err != nil {
			return 0, err
		}
		r, err := Eval(t.Rhs)
		if err != nil {
			return 0, err
		}
		return b2i(compareValues(t.Op, l, r)), nil
	case *Operator:
		return evalOperator(t)
	case *Element:
		idx, err := Eval(t.Index)
		if err != nil {
			return 0, err
		}
		if idx < 0 || idx >= int64(len(t.Arr)) {
			return 0, fmt.Errorf("element index %d out of range [0,%d)", idx, len(t.Arr))
		}
		return Eval(t.Arr[idx])
	case Global:
		ok, err := evalGlobal(t)
		if err != nil {
			return 0, err
		}
		return b2i(ok), nil
	}
	return 0, fmt.Errorf("cannot evaluate %T", e)
}

// Truth reports whether a Boolean expression holds under the current
// variable assignment.
func Truth(e Expr) (bool, error) {
	if !e.IsBool() {
		return false, fmt.Errorf("truth of non-Boolean expression %s", e)
	}
	v, err := Eval(e)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func evalOperator(o *Operator) (int64, error) {
	vals := make([]int64, len(o.Args))
	for i, a := range o.Args {
		v, err := Eval(a)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	switch o.Name {
	case OpAnd:
		for _, v := range vals {
			if v == 0 {
				return 0, nil
			}
		}
		return 1, nil
	case OpOr:
		for _, v := range vals {
			if v != 0 {
				return 1, nil
			}
		}
		return 0, nil
	case OpImp:
		return b2i(vals[0] == 0 || vals[1] != 0), nil
	case OpNot:
		return b2i(vals[0] == 0), nil
	case OpSum:
		var s int64
		for _, v := range vals {
			s += v
		}
		return s, nil
	case OpWSum:
		var s int64
		for i, v := range vals {
			s += o.Weights[i] * v
		}
		return s, nil
	case OpSub:
		return vals[0] - vals[1], nil
	case OpMul:
		return vals[0] * vals[1], nil
	case OpDiv:
		if vals[1] == 0 {
			return 0, fmt.Errorf("division by zero in %s", o)
		}
		return vals[0] / vals[1], nil
	case OpMod:
		if vals[1] == 0 {
			return 0, fmt.Errorf("modulo by zero in %s", o)
		}
		return vals[0] % vals[1], nil
	case OpPow:
		if vals[1] < 0 {
			return 0, fmt.Errorf("negative exponent in %s", o)
		}
		return pow64(vals[0], vals[1]), nil
	case OpNeg:
		return -vals[0], nil
	case OpAbs:
		return abs64(vals[0]), nil
	case OpMin:
		m := vals[0]
		for _, v := range vals[1:] {
			m = minInt64(m, v)
		}
		return m, nil
	case OpMax:
		m := vals[0]
		for _, v := range vals[1:] {
			m = maxInt64(m, v)
		}
		return m, nil
	}
	return 0, fmt.Errorf("cannot evaluate operator %q", string(o.Name))
}

// evalGlobal checks a global constraint directly against the current
// assignment rather than going through its decomposition, so round-trip
// checks exercise the global's own semantics.
func evalGlobal(g Global) (bool, error) {
	switch t := g.(type) {
	case *AllDifferent:
		seen := make(map[int64]bool, len(t.Xs))
		for _, x := range t.Xs {
			v, err := Eval(x)
			if err != nil {
				return false, err
			}
			if seen[v] {
				return false, nil
			}
			seen[v] = true
		}
		return true, nil
	case *Xor:
		var n int64
		for _, x := range t.Xs {
			v, err := Eval(x)
			if err != nil {
				return false, err
			}
			n += v
		}
		return n%2 == 1, nil
	case *Table:
		vals, err := evalAll(t.Xs)
		if err != nil {
			return false, err
		}
		for _, row := range t.Rows {
			if rowMatches(vals, row) {
				return true, nil
			}
		}
		return false, nil
	case *NegativeTable:
		vals, err := evalAll(t.Xs)
		if err != nil {
			return false, err
		}
		for _, row := range t.Rows {
			if rowMatches(vals, row) {
				return false, nil
			}
		}
		return true, nil
	case *Cumulative:
		starts, err := evalAll(t.Starts)
		if err != nil {
			return false, err
		}
		ends, err := evalAll(t.Ends)
		if err != nil {
			return false, err
		}
		durs, err := evalAll(t.Durs)
		if err != nil {
			return false, err
		}
		capacity, err := Eval(t.Capacity)
		if err != nil {
			return false, err
		}
		for i := range starts {
			if starts[i]+durs[i] != ends[i] {
				return false, nil
			}
			var load int64
			for j := range starts {
				if starts[j] <= starts[i] && starts[i] < ends[j] {
					load += t.Demands[j]
				}
			}
			if load > capacity {
				return false, nil
			}
		}
		return true, nil
	case *NoOverlap:
		starts, err := evalAll(t.Starts)
		if err != nil {
			return false, err
		}
		ends, err := evalAll(t.Ends)
		if err != nil {
			return false, err
		}
		durs, err := evalAll(t.Durs)
		if err != nil {
			return false, err
		}
		for i := range starts {
			if starts[i]+durs[i] != ends[i] {
				return false, nil
			}
			for j := i + 1; j < len(starts); j++ {
				if starts[i] < ends[j] && starts[j] < ends[i] {
					return false, nil
				}
			}
		}
		return true, nil
	case *Circuit:
		succ, err := evalAll(t.Succ)
		if err != nil {
			return false, err
		}
		n := int64(len(succ))
		cur, steps := int64(0), int64(0)
		for {
			if succ[cur] < 0 || succ[cur] >= n {
				return false, nil
			}
			cur = succ[cur]
			steps++
			if cur == 0 || steps > n {
				break
			}
		}
		return cur == 0 && steps == n, nil
	case *Inverse:
		fwd, err := evalAll(t.Fwd)
		if err != nil {
			return false, err
		}
		rev, err := evalAll(t.Rev)
		if err != nil {
			return false, err
		}
		for i, f := range fwd {
			if f < 0 || f >= int64(len(rev)) || rev[f] != int64(i) {
				return false, nil
			}
		}
		return true, nil
	case *Regular:
		word, err := evalAll(t.Xs)
		if err != nil {
			return false, err
		}
		state := t.Start
		for _, c := range word {
			next, ok := step(t.Trans, state, c)
			if !ok {
				return false, nil
			}
			state = next
		}
		for _, a := range t.Accepting {
			if state == a {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("cannot evaluate global %q", g.GlobalName())
}

func step(trans []Transition, state, label int64) (int64, bool) {
	for _, t := range trans {
		if t.From == state && t.Label == label {
			return t.To, true
		}
	}
	return 0, false
}

func evalAll(xs []Expr) ([]int64, error) {
	vals := make([]int64, len(xs))
	for i, x := range xs {
		v, err := Eval(x)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func rowMatches(vals, row []int64) bool {
	for i := range vals {
		if vals[i] != row[i] {
			return false
		}
	}
	return true
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func compareValues(op CmpOp, l, r int64) bool {
	switch op {
	case OpEq:
		return l == r
	case OpNe:
		return l != r
	case OpLt:
		return l < r
	case OpLe:
		return l <= r
	case OpGt:
		return l > r
	case OpGe:
		return l >= r
	}
	return false
}
