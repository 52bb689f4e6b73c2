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

// Package solvers adapts the expression model to concrete solver
// engines. Every adapter runs the same rewrite pipeline, parameterized
// by its native vocabulary, and maps the engine's results back onto
// the user's variables.
package solvers

import (
	"errors"
	"time"

	"github.com/cpmod/cpmod/expr"
	"github.com/cpmod/cpmod/transform"
)

// Sentinel errors of the adapter surface. Errors wrapping these are
// returned unmodified from Solve and friends; use errors.Is to branch.
var (
	// ErrConfiguration reports an invalid option, parameter, or solver
	// name.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrNotSupported reports a feature the backend cannot provide,
	// such as optimization on a pure satisfaction engine.
	ErrNotSupported = errors.New("not supported by this solver")
	// ErrModelInvalid reports a model the engine rejected.
	ErrModelInvalid = errors.New("model invalid")
	// ErrPrecondition reports an operation called in the wrong state,
	// such as requesting a core before an unsatisfiable solve.
	ErrPrecondition = errors.New("operation precondition not met")
	// ErrUnknownStatus reports an engine status this package cannot
	// classify.
	ErrUnknownStatus = errors.New("unknown solver status")
)

// UnsupportedError reports an expression no rewrite could bring into
// the backend's vocabulary.
type UnsupportedError = transform.UnsupportedError

// ExitStatus classifies the outcome of a solve.
type ExitStatus int

const (
	// Unknown means the search ended without a conclusion, e.g. on a
	// time limit.
	Unknown ExitStatus = iota
	// Feasible means a solution was found. On a satisfaction problem
	// this is the final answer; with an objective it may not be proven
	// optimal.
	Feasible
	// Optimal means a solution was found and proven optimal.
	Optimal
	// Unsatisfiable means no solution exists under the posted
	// constraints and assumptions.
	Unsatisfiable
)

func (s ExitStatus) String() string {
	switch s {
	case Feasible:
		return "FEASIBLE"
	case Optimal:
		return "OPTIMAL"
	case Unsatisfiable:
		return "UNSATISFIABLE"
	}
	return "UNKNOWN"
}

// Status describes the last solve of an adapter.
type Status struct {
	Exit      ExitStatus
	Runtime   time.Duration
	Objective int64
	// HasObjective reports whether Objective is meaningful.
	HasObjective bool
}

// SolveOptions configures a single solve call.
type SolveOptions struct {
	// TimeLimit bounds the wall-clock search time. Zero means no
	// limit; a negative value is a configuration error.
	TimeLimit time.Duration
	// Assumptions are Boolean literals held true for this solve only.
	Assumptions []expr.Var
	// Params carries backend-specific tuning parameters by name. An
	// unknown name or mistyped value is a configuration error.
	Params map[string]any
	// SolutionLimit caps SolveAll enumeration. Zero means no cap.
	SolutionLimit int
}

// Solution is one satisfying assignment reported by SolveAll, keyed by
// user variable.
type Solution map[expr.Var]int64

// Interface is the surface every backend adapter implements. Adapters
// are not safe for concurrent use; callers serialize access.
type Interface interface {
	// Name returns the registry name of the backend.
	Name() string

	// Add posts constraints. The batch is transformed as a whole; on
	// any error nothing from the batch is kept.
	Add(cons ...expr.Expr) error

	// Minimize and Maximize set the objective, replacing any previous
	// one. Auxiliary constraints introduced for an earlier objective
	// stay posted.
	Minimize(obj expr.Expr) error
	Maximize(obj expr.Expr) error

	// Solve runs the engine. On a solution, user variables receive
	// their values; on any other outcome their values are cleared.
	Solve(opts *SolveOptions) (Status, error)

	// SolveAll enumerates solutions, invoking cb for each one found.
	// It is rejected when an objective is set. Returns the number of
	// solutions found.
	SolveAll(opts *SolveOptions, cb func(Solution)) (int, error)

	// SolutionHint replaces the current warm-start hint.
	SolutionHint(vars []expr.Var, vals []int64) error

	// GetCore returns a subset of the last solve's assumptions that is
	// sufficient for unsatisfiability. Only valid directly after an
	// unsatisfiable assumption solve.
	GetCore() ([]expr.Var, error)

	// ObjectiveValue returns the objective value of the last solution.
	ObjectiveValue() (int64, bool)

	// Status returns the status of the last solve.
	Status() Status

	// UserVars returns the user-posted decision variables, in first
	// appearance order.
	UserVars() []expr.Var
}
