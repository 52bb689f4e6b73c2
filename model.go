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

// Package cpmod is a solver-independent constraint modeling layer.
// Models collect expression-level constraints lazily; solving hands
// the whole model to a backend adapter from the solvers package,
// which rewrites it into the engine's vocabulary.
package cpmod

import (
	"strings"

	"github.com/cpmod/cpmod/expr"
	"github.com/cpmod/cpmod/solvers"
)

// Model is an append-only collection of constraints with an optional
// objective. The zero value is an empty satisfaction model.
type Model struct {
	cons     []expr.Expr
	obj      expr.Expr
	maximize bool
}

// NewModel returns a model over the given constraints.
func NewModel(cons ...expr.Expr) *Model {
	m := &Model{}
	m.Add(cons...)
	return m
}

// Add appends constraints to the model.
func (m *Model) Add(cons ...expr.Expr) *Model {
	m.cons = append(m.cons, cons...)
	return m
}

// Minimize sets the objective, replacing any previous one.
func (m *Model) Minimize(obj expr.Expr) *Model {
	m.obj, m.maximize = obj, false
	return m
}

// Maximize sets the objective, replacing any previous one.
func (m *Model) Maximize(obj expr.Expr) *Model {
	m.obj, m.maximize = obj, true
	return m
}

// Constraints returns the posted constraints in order. The slice is
// shared; callers must not modify it.
func (m *Model) Constraints() []expr.Expr { return m.cons }

// HasObjective reports whether an objective is set.
func (m *Model) HasObjective() bool { return m.obj != nil }

// Backend loads the model into the named backend and returns the
// adapter for further interaction, such as assumption solves or warm
// starts. An empty name picks the first available backend.
func (m *Model) Backend(name string) (solvers.Interface, error) {
	s, err := solvers.Get(name)
	if err != nil {
		return nil, err
	}
	if err := s.Add(m.cons...); err != nil {
		return nil, err
	}
	if m.obj != nil {
		if m.maximize {
			err = s.Maximize(m.obj)
		} else {
			err = s.Minimize(m.obj)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Solve runs the model on the named backend. On a solution the user
// variables carry their assigned values.
func (m *Model) Solve(solver string, opts *solvers.SolveOptions) (solvers.Status, error) {
	s, err := m.Backend(solver)
	if err != nil {
		return solvers.Status{}, err
	}
	return s.Solve(opts)
}

// SolveAll enumerates the model's solutions on the named backend,
// calling cb for each. It returns the number of solutions found.
func (m *Model) SolveAll(solver string, opts *solvers.SolveOptions, cb func(solvers.Solution)) (int, error) {
	s, err := m.Backend(solver)
	if err != nil {
		return 0, err
	}
	return s.SolveAll(opts, cb)
}

// String renders the model one constraint per line.
func (m *Model) String() string {
	var b strings.Builder
	b.WriteString("Model(\n")
	for _, c := range m.cons {
		b.WriteString("  ")
		b.WriteString(c.String())
		b.WriteString("\n")
	}
	if m.obj != nil {
		if m.maximize {
			b.WriteString("  maximize ")
		} else {
			b.WriteString("  minimize ")
		}
		b.WriteString(m.obj.String())
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}
