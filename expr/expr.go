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

// Package expr defines the expression trees of the constraint-modeling
// front end: decision variables, constants, comparisons, Boolean and
// arithmetic operators, and global constraints. Expressions are built by
// plain constructor functions and are immutable once built; the
// transformation pipeline rewrites trees by constructing new nodes.
package expr

import (
	"fmt"
	"math"
	"strings"

	log "github.com/golang/glog"
)

// Expr is a node of an expression tree.
type Expr interface {
	// IsBool reports whether the expression is Boolean-valued. Boolean
	// expressions can appear as constraints; numeric expressions only
	// inside comparisons and arithmetic.
	IsBool() bool
	// Bounds returns a containing interval for the values the expression
	// can take. Boolean expressions report [0,1]. The bounds need not be
	// tight.
	Bounds() (lb, ub int64)
	// String returns a canonical printable form. Structurally equal
	// expressions print identically; the cache keys on this.
	String() string
}

// CmpOp is a comparison operator.
type CmpOp string

// Comparison operators.
const (
	OpEq CmpOp = "=="
	OpNe CmpOp = "!="
	OpLt CmpOp = "<"
	OpLe CmpOp = "<="
	OpGt CmpOp = ">"
	OpGe CmpOp = ">="
)

// Negate returns the comparison operator accepting exactly the pairs this
// one rejects.
func (op CmpOp) Negate() CmpOp {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	case OpGe:
		return OpLt
	}
	log.Fatalf("unknown comparison operator %q", string(op))
	return op
}

// Flip returns the operator with its sides swapped, e.g. `a < b`
// becomes `b > a`.
func (op CmpOp) Flip() CmpOp {
	switch op {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	}
	return op
}

// Comparison relates two expressions. It is Boolean-valued.
type Comparison struct {
	Op       CmpOp
	Lhs, Rhs Expr
}

// IsBool reports that a comparison is Boolean-valued.
func (c *Comparison) IsBool() bool { return true }

// Bounds returns the [0,1] truth interval.
func (c *Comparison) Bounds() (int64, int64) { return 0, 1 }

func (c *Comparison) String() string {
	return fmt.Sprintf("(%s) %s (%s)", c.Lhs, c.Op, c.Rhs)
}

// OpName names an Operator.
type OpName string

// Operator names.
const (
	OpAnd  OpName = "and"
	OpOr   OpName = "or"
	OpImp  OpName = "->"
	OpNot  OpName = "not"
	OpSum  OpName = "sum"
	OpWSum OpName = "wsum"
	OpSub  OpName = "sub"
	OpMul  OpName = "mul"
	OpDiv  OpName = "div"
	OpMod  OpName = "mod"
	OpPow  OpName = "pow"
	OpNeg  OpName = "-"
	OpAbs  OpName = "abs"
	OpMin  OpName = "min"
	OpMax  OpName = "max"
)

// IsBoolOp reports whether the operator yields a Boolean.
func (n OpName) IsBoolOp() bool {
	switch n {
	case OpAnd, OpOr, OpImp, OpNot:
		return true
	}
	return false
}

// Operator applies a named Boolean or arithmetic operator to its
// arguments. Weights is set only for wsum and runs parallel to Args.
type Operator struct {
	Name    OpName
	Args    []Expr
	Weights []int64
}

// IsBool reports whether the operator yields a Boolean.
func (o *Operator) IsBool() bool { return o.Name.IsBoolOp() }

// Bounds returns a containing interval for the operator's value,
// combined from the argument bounds.
func (o *Operator) Bounds() (int64, int64) {
	if o.IsBool() {
		return 0, 1
	}
	switch o.Name {
	case OpSum:
		var lb, ub int64
		for _, a := range o.Args {
			l, u := a.Bounds()
			lb += l
			ub += u
		}
		return lb, ub
	case OpWSum:
		var lb, ub int64
		for i, a := range o.Args {
			l, u := a.Bounds()
			w := o.Weights[i]
			if w >= 0 {
				lb += w * l
				ub += w * u
			} else {
				lb += w * u
				ub += w * l
			}
		}
		return lb, ub
	case OpSub:
		l0, u0 := o.Args[0].Bounds()
		l1, u1 := o.Args[1].Bounds()
		return l0 - u1, u0 - l1
	case OpMul:
		l0, u0 := o.Args[0].Bounds()
		l1, u1 := o.Args[1].Bounds()
		return cornerBounds(l0, u0, l1, u1, func(a, b int64) int64 { return a * b })
	case OpDiv:
		l0, u0 := o.Args[0].Bounds()
		l1, u1 := o.Args[1].Bounds()
		// Guard the corners against the excluded zero divisor.
		if l1 == 0 {
			l1 = 1
		}
		if u1 == 0 {
			u1 = -1
		}
		if l1 <= 0 && u1 >= 0 {
			// Divisor domain straddles zero; |q| is at most |dividend|.
			m := maxInt64(abs64(l0), abs64(u0))
			return -m, m
		}
		return cornerBounds(l0, u0, l1, u1, func(a, b int64) int64 { return a / b })
	case OpMod:
		l1, u1 := o.Args[1].Bounds()
		// Result magnitude is below the divisor magnitude and has the
		// dividend's sign under truncated division.
		m := maxInt64(abs64(l1), abs64(u1)) - 1
		if m < 0 {
			m = 0
		}
		l0, u0 := o.Args[0].Bounds()
		lb, ub := int64(0), int64(0)
		if l0 < 0 {
			lb = -m
		}
		if u0 > 0 {
			ub = m
		}
		return lb, ub
	case OpPow:
		l0, u0 := o.Args[0].Bounds()
		l1, u1 := o.Args[1].Bounds()
		// pow64 saturates, so exponents past a 64-exponent window add no
		// new values beyond the two saturation signs already inside it.
		// The scan therefore stays bounded for any exponent domain.
		el := maxInt64(l1, 0)
		eu := minInt64(u1, el+63)
		var lb, ub int64
		seeded := false
		note := func(v int64) {
			if !seeded {
				lb, ub = v, v
				seeded = true
				return
			}
			lb = minInt64(lb, v)
			ub = maxInt64(ub, v)
		}
		if l1 < 0 {
			// Negative exponents evaluate to zero.
			note(0)
		}
		for _, b := range []int64{l0, u0, 0, 1, -1} {
			if b < l0 || b > u0 {
				continue
			}
			for e := el; e <= eu; e++ {
				note(pow64(b, e))
			}
		}
		if !seeded {
			note(0)
		}
		return lb, ub
	case OpNeg:
		l, u := o.Args[0].Bounds()
		return -u, -l
	case OpAbs:
		l, u := o.Args[0].Bounds()
		if l >= 0 {
			return l, u
		}
		if u <= 0 {
			return -u, -l
		}
		return 0, maxInt64(-l, u)
	case OpMin:
		lb, ub := o.Args[0].Bounds()
		for _, a := range o.Args[1:] {
			l, u := a.Bounds()
			lb = minInt64(lb, l)
			ub = minInt64(ub, u)
		}
		return lb, ub
	case OpMax:
		lb, ub := o.Args[0].Bounds()
		for _, a := range o.Args[1:] {
			l, u := a.Bounds()
			lb = maxInt64(lb, l)
			ub = maxInt64(ub, u)
		}
		return lb, ub
	}
	log.Fatalf("bounds of unknown operator %q", string(o.Name))
	return 0, 0
}

func (o *Operator) String() string {
	if o.Name == OpWSum {
		terms := make([]string, len(o.Args))
		for i, a := range o.Args {
			terms[i] = fmt.Sprintf("%d*(%s)", o.Weights[i], a)
		}
		return "wsum(" + strings.Join(terms, ",") + ")"
	}
	args := make([]string, len(o.Args))
	for i, a := range o.Args {
		args[i] = a.String()
	}
	return string(o.Name) + "(" + strings.Join(args, ",") + ")"
}

// Element indexes into an array of expressions: its value is
// Arr[Index]. The index is constrained to [0,len(Arr)) when posted.
type Element struct {
	Arr   []Expr
	Index Expr
}

// IsBool reports that the element lookup is numeric.
func (e *Element) IsBool() bool { return false }

// Bounds returns the union interval of all array entries.
func (e *Element) Bounds() (int64, int64) {
	lb, ub := e.Arr[0].Bounds()
	for _, a := range e.Arr[1:] {
		l, u := a.Bounds()
		lb = minInt64(lb, l)
		ub = maxInt64(ub, u)
	}
	return lb, ub
}

func (e *Element) String() string {
	args := make([]string, len(e.Arr))
	for i, a := range e.Arr {
		args[i] = a.String()
	}
	return fmt.Sprintf("[%s][%s]", strings.Join(args, ","), e.Index)
}

func cornerBounds(l0, u0, l1, u1 int64, f func(a, b int64) int64) (int64, int64) {
	lb, ub := f(l0, l1), f(l0, l1)
	for _, v := range []int64{f(l0, u1), f(u0, l1), f(u0, u1)} {
		if v < lb {
			lb = v
		}
		if v > ub {
			ub = v
		}
	}
	return lb, ub
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// pow64 raises base to a non-negative exponent, saturating at the
// int64 limits instead of wrapping.
func pow64(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	r := int64(1)
	for ; exp > 0; exp-- {
		r = satMul64(r, base)
	}
	return r
}

func satMul64(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a == math.MinInt64 && b == -1 || b == math.MinInt64 && a == -1 {
		return math.MaxInt64
	}
	p := a * b
	if p/b != a {
		if (a < 0) != (b < 0) {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return p
}

// Constructors. Each checks Boolean/numeric typing with log.Fatalf, as
// these are caller programming errors rather than model states.

func checkBool(where string, args ...Expr) {
	for _, a := range args {
		if !a.IsBool() {
			log.Fatalf("%s requires Boolean arguments, got %v", where, a)
		}
	}
}

func checkNumeric(where string, args ...Expr) {
	for _, a := range args {
		if a.IsBool() {
			log.Fatalf("%s requires numeric arguments, got %v", where, a)
		}
	}
}

// And returns the conjunction of the given Boolean expressions.
func And(args ...Expr) Expr {
	checkBool("And", args...)
	return &Operator{Name: OpAnd, Args: args}
}

// Or returns the disjunction of the given Boolean expressions.
func Or(args ...Expr) Expr {
	checkBool("Or", args...)
	return &Operator{Name: OpOr, Args: args}
}

// Implies returns the implication `a -> b`.
func Implies(a, b Expr) Expr {
	checkBool("Implies", a, b)
	return &Operator{Name: OpImp, Args: []Expr{a, b}}
}

// Not returns the logical complement of a Boolean expression. Negation
// is pushed into the node: variables flip to their views, comparisons
// flip their operator, and/or distribute by De Morgan, and implications
// become conjunctions.
func Not(e Expr) Expr {
	switch t := e.(type) {
	case BoolVal:
		return BoolVal(!bool(t))
	case *BoolVar:
		return t.Not()
	case *NegBoolView:
		return t.Not()
	case *Comparison:
		return &Comparison{Op: t.Op.Negate(), Lhs: t.Lhs, Rhs: t.Rhs}
	case *Operator:
		switch t.Name {
		case OpAnd:
			args := make([]Expr, len(t.Args))
			for i, a := range t.Args {
				args[i] = Not(a)
			}
			return &Operator{Name: OpOr, Args: args}
		case OpOr:
			args := make([]Expr, len(t.Args))
			for i, a := range t.Args {
				args[i] = Not(a)
			}
			return &Operator{Name: OpAnd, Args: args}
		case OpImp:
			return &Operator{Name: OpAnd, Args: []Expr{t.Args[0], Not(t.Args[1])}}
		}
	}
	if !e.IsBool() {
		log.Fatalf("Not requires a Boolean argument, got %v", e)
	}
	// Globals and other opaque Boolean nodes keep an explicit negation
	// wrapper; decomposition resolves it later.
	return &Operator{Name: OpNot, Args: []Expr{e}}
}

// Sum returns the sum of the given expressions. Boolean arguments
// count as 0/1.
func Sum(args ...Expr) Expr {
	return &Operator{Name: OpSum, Args: args}
}

// WeightedSum returns the dot product of weights and exprs. The two
// slices must have the same length. Boolean arguments count as 0/1.
func WeightedSum(weights []int64, exprs []Expr) Expr {
	if len(weights) != len(exprs) {
		log.Fatalf("WeightedSum: len(weights)=%d must equal len(exprs)=%d", len(weights), len(exprs))
	}
	ws := make([]int64, len(weights))
	copy(ws, weights)
	return &Operator{Name: OpWSum, Args: exprs, Weights: ws}
}

// Sub returns the difference `a - b`.
func Sub(a, b Expr) Expr {
	checkNumeric("Sub", a, b)
	return &Operator{Name: OpSub, Args: []Expr{a, b}}
}

// Mul returns the product `a * b`.
func Mul(a, b Expr) Expr {
	checkNumeric("Mul", a, b)
	return &Operator{Name: OpMul, Args: []Expr{a, b}}
}

// Div returns the truncated integer quotient `a / b`. Division is a
// partial function: a toplevel use is guarded with `b != 0` by the
// transformation pipeline.
func Div(a, b Expr) Expr {
	checkNumeric("Div", a, b)
	return &Operator{Name: OpDiv, Args: []Expr{a, b}}
}

// Mod returns the remainder of the truncated division `a / b`. The
// result takes the sign of the dividend.
func Mod(a, b Expr) Expr {
	checkNumeric("Mod", a, b)
	return &Operator{Name: OpMod, Args: []Expr{a, b}}
}

// Pow returns `a` raised to the power `b`.
func Pow(a, b Expr) Expr {
	checkNumeric("Pow", a, b)
	return &Operator{Name: OpPow, Args: []Expr{a, b}}
}

// Neg returns the negation `-a`.
func Neg(a Expr) Expr {
	checkNumeric("Neg", a)
	return &Operator{Name: OpNeg, Args: []Expr{a}}
}

// Abs returns the absolute value of `a`.
func Abs(a Expr) Expr {
	checkNumeric("Abs", a)
	return &Operator{Name: OpAbs, Args: []Expr{a}}
}

// Min returns the minimum of the given numeric expressions.
func Min(args ...Expr) Expr {
	checkNumeric("Min", args...)
	return &Operator{Name: OpMin, Args: args}
}

// Max returns the maximum of the given numeric expressions.
func Max(args ...Expr) Expr {
	checkNumeric("Max", args...)
	return &Operator{Name: OpMax, Args: args}
}

// ElementOf returns the expression `arr[index]`.
func ElementOf(arr []Expr, index Expr) Expr {
	if len(arr) == 0 {
		log.Fatalf("ElementOf requires a non-empty array")
	}
	checkNumeric("ElementOf", index)
	checkNumeric("ElementOf", arr...)
	return &Element{Arr: arr, Index: index}
}

// Eq returns the comparison `a == b`.
func Eq(a, b Expr) Expr { return compare(OpEq, a, b) }

// Ne returns the comparison `a != b`.
func Ne(a, b Expr) Expr { return compare(OpNe, a, b) }

// Lt returns the comparison `a < b`.
func Lt(a, b Expr) Expr { return compare(OpLt, a, b) }

// Le returns the comparison `a <= b`.
func Le(a, b Expr) Expr { return compare(OpLe, a, b) }

// Gt returns the comparison `a > b`.
func Gt(a, b Expr) Expr { return compare(OpGt, a, b) }

// Ge returns the comparison `a >= b`.
func Ge(a, b Expr) Expr { return compare(OpGe, a, b) }

func compare(op CmpOp, a, b Expr) Expr {
	if a.IsBool() != b.IsBool() && op != OpEq && op != OpNe {
		log.Fatalf("comparison %s mixes Boolean and numeric operands: %v, %v", op, a, b)
	}
	return &Comparison{Op: op, Lhs: a, Rhs: b}
}

// K returns the integer constant v as an expression.
func K(v int64) Expr { return IntVal(v) }
