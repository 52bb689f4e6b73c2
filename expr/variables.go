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
	"strconv"
	"sync/atomic"
)

// Var is an identity-bearing leaf of the expression tree. Two Var values
// denote the same decision variable iff they resolve to the same Base.
type Var interface {
	Expr
	// Name returns the variable's stable name.
	Name() string
	// Base returns the storage-backed variable behind this value. For a
	// NegBoolView that is the wrapped BoolVar, for everything else the
	// variable itself.
	Base() Var
}

var varCounter uint64

func nextVarID() uint64 {
	return atomic.AddUint64(&varCounter, 1)
}

// BoolVar is a Boolean decision variable.
type BoolVar struct {
	name  string
	value *bool
}

// NewBoolVar creates a Boolean variable. If name is empty, a unique name
// of the form "BV<n>" is generated.
func NewBoolVar(name string) *BoolVar {
	if name == "" {
		name = fmt.Sprintf("BV%d", nextVarID())
	}
	return &BoolVar{name: name}
}

// Name returns the name of the variable.
func (b *BoolVar) Name() string { return b.name }

// Base returns the variable itself.
func (b *BoolVar) Base() Var { return b }

// IsBool reports that the variable is Boolean-valued.
func (b *BoolVar) IsBool() bool { return true }

// Bounds returns the {0,1} domain of the variable.
func (b *BoolVar) Bounds() (int64, int64) { return 0, 1 }

func (b *BoolVar) String() string { return b.name }

// Not returns the logical complement of the variable. The view shares the
// variable's identity; it is not a distinct decision variable.
func (b *BoolVar) Not() *NegBoolView { return &NegBoolView{bv: b} }

// Value returns the value assigned by the most recent successful solve.
// ok is false if no value is known.
func (b *BoolVar) Value() (val, ok bool) {
	if b.value == nil {
		return false, false
	}
	return *b.value, true
}

// SetValue records a solution value. Called by solver adapters.
func (b *BoolVar) SetValue(v bool) { b.value = &v }

// ClearValue resets the value to unknown. Called by solver adapters after
// an unsuccessful solve.
func (b *BoolVar) ClearValue() { b.value = nil }

// NegBoolView is the logical complement of a BoolVar. It is a lightweight
// wrapper: it caches and solves through the wrapped variable, inverting
// truth values on read and write.
type NegBoolView struct {
	bv *BoolVar
}

// Name returns the name of the view, "~" prepended to the variable name.
func (n *NegBoolView) Name() string { return "~" + n.bv.name }

// Base returns the wrapped variable.
func (n *NegBoolView) Base() Var { return n.bv }

// IsBool reports that the view is Boolean-valued.
func (n *NegBoolView) IsBool() bool { return true }

// Bounds returns the {0,1} domain of the view.
func (n *NegBoolView) Bounds() (int64, int64) { return 0, 1 }

func (n *NegBoolView) String() string { return n.Name() }

// Not returns the wrapped variable.
func (n *NegBoolView) Not() *BoolVar { return n.bv }

// Value returns the complement of the wrapped variable's value.
func (n *NegBoolView) Value() (val, ok bool) {
	v, ok := n.bv.Value()
	return !v, ok
}

// IntVar is a bounded integer decision variable with domain [lb,ub].
type IntVar struct {
	name   string
	lb, ub int64
	value  *int64
}

// NewIntVar creates an integer variable with domain [lb,ub]. If name is
// empty, a unique name of the form "IV<n>" is generated.
func NewIntVar(lb, ub int64, name string) *IntVar {
	if name == "" {
		name = fmt.Sprintf("IV%d", nextVarID())
	}
	return &IntVar{name: name, lb: lb, ub: ub}
}

// Name returns the name of the variable.
func (i *IntVar) Name() string { return i.name }

// Base returns the variable itself.
func (i *IntVar) Base() Var { return i }

// IsBool reports that the variable is not Boolean-valued.
func (i *IntVar) IsBool() bool { return false }

// Bounds returns the domain bounds of the variable.
func (i *IntVar) Bounds() (int64, int64) { return i.lb, i.ub }

func (i *IntVar) String() string { return i.name }

// Value returns the value assigned by the most recent successful solve.
// ok is false if no value is known.
func (i *IntVar) Value() (val int64, ok bool) {
	if i.value == nil {
		return 0, false
	}
	return *i.value, true
}

// SetValue records a solution value. Called by solver adapters.
func (i *IntVar) SetValue(v int64) { i.value = &v }

// ClearValue resets the value to unknown. Called by solver adapters after
// an unsuccessful solve.
func (i *IntVar) ClearValue() { i.value = nil }

// IntVal is an integer constant.
type IntVal int64

// IsBool reports that the constant is not Boolean-valued.
func (v IntVal) IsBool() bool { return false }

// Bounds returns the singleton interval [v,v].
func (v IntVal) Bounds() (int64, int64) { return int64(v), int64(v) }

func (v IntVal) String() string { return strconv.FormatInt(int64(v), 10) }

// BoolVal is a Boolean constant.
type BoolVal bool

// IsBool reports that the constant is Boolean-valued.
func (v BoolVal) IsBool() bool { return true }

// Bounds returns the singleton 0/1 interval of the constant.
func (v BoolVal) Bounds() (int64, int64) {
	if v {
		return 1, 1
	}
	return 0, 0
}

func (v BoolVal) String() string { return strconv.FormatBool(bool(v)) }
