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

package solvers

import (
	"fmt"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"

	"github.com/cpmod/cpmod/expr"
	"github.com/cpmod/cpmod/transform"
)

// satSolver is the clause-only backend on an incremental CDCL engine.
// It accepts purely Boolean models; any numeric comparison that
// survives the rewrite pipeline is rejected at posting time.
type satSolver struct {
	g     *gini.Gini
	cache *transform.Cache
	users *transform.VarSet
	lits  map[expr.Var]z.Lit

	status          Status
	lastAssumptions []expr.Var
	lastCore        []expr.Var
}

var satConfig = transform.Config{
	Reifiable: map[expr.OpName]bool{expr.OpAnd: true, expr.OpOr: true},
}

func newSAT(sub string) (Interface, error) {
	if sub != "" {
		return nil, fmt.Errorf("%w: sat has no sub-solver %q", ErrConfiguration, sub)
	}
	return &satSolver{
		g:     gini.New(),
		cache: transform.NewCache(),
		users: transform.NewVarSet(),
		lits:  make(map[expr.Var]z.Lit),
	}, nil
}

func (s *satSolver) Name() string { return "sat" }

func (s *satSolver) Add(cons ...expr.Expr) error {
	for _, c := range cons {
		transform.CollectVars(c, s.users)
	}
	flat, err := transform.Pipeline(cons, satConfig, s.cache)
	if err != nil {
		return err
	}
	for _, c := range flat {
		if err := s.post(c, z.LitNull); err != nil {
			return err
		}
	}
	return nil
}

func (s *satSolver) Minimize(obj expr.Expr) error {
	return fmt.Errorf("%w: sat solves satisfaction problems only", ErrNotSupported)
}

func (s *satSolver) Maximize(obj expr.Expr) error {
	return fmt.Errorf("%w: sat solves satisfaction problems only", ErrNotSupported)
}

func (s *satSolver) Solve(opts *SolveOptions) (Status, error) {
	if opts != nil && opts.TimeLimit < 0 {
		return Status{}, fmt.Errorf("%w: time limit must be positive, got %v", ErrConfiguration, opts.TimeLimit)
	}
	if opts != nil && len(opts.Params) > 0 {
		return Status{}, fmt.Errorf("%w: sat accepts no tuning parameters", ErrConfiguration)
	}
	assumed, err := s.assume(opts)
	if err != nil {
		return Status{}, err
	}

	start := time.Now()
	res := s.run(opts, assumed)
	st := Status{Runtime: time.Since(start)}
	switch res {
	case 1:
		st.Exit = Feasible
		s.copyValues()
	case -1:
		st.Exit = Unsatisfiable
		s.clearValues()
		if len(assumed) > 0 {
			s.lastCore = s.coreVars(s.g.Why(nil))
		}
	default:
		st.Exit = Unknown
		s.clearValues()
	}
	s.status = st
	return st, nil
}

// run starts the engine with the given assumption literals already
// queued. A time limit uses the engine's bounded entry point.
func (s *satSolver) run(opts *SolveOptions, assumed []z.Lit) int {
	s.g.Assume(assumed...)
	if opts != nil && opts.TimeLimit > 0 {
		return s.g.Try(opts.TimeLimit)
	}
	return s.g.Solve()
}

func (s *satSolver) assume(opts *SolveOptions) ([]z.Lit, error) {
	s.lastAssumptions = nil
	s.lastCore = nil
	if opts == nil || len(opts.Assumptions) == 0 {
		return nil, nil
	}
	lits := make([]z.Lit, len(opts.Assumptions))
	for i, a := range opts.Assumptions {
		m, err := s.lit(a)
		if err != nil {
			return nil, err
		}
		lits[i] = m
	}
	s.lastAssumptions = append([]expr.Var{}, opts.Assumptions...)
	return lits, nil
}

func (s *satSolver) coreVars(why []z.Lit) []expr.Var {
	var core []expr.Var
	for _, a := range s.lastAssumptions {
		m, err := s.lit(a)
		if err != nil {
			continue
		}
		for _, w := range why {
			if w == m {
				core = append(core, a)
				break
			}
		}
	}
	return core
}

func (s *satSolver) SolveAll(opts *SolveOptions, cb func(Solution)) (int, error) {
	if opts != nil && opts.TimeLimit < 0 {
		return 0, fmt.Errorf("%w: time limit must be positive, got %v", ErrConfiguration, opts.TimeLimit)
	}
	if opts != nil && len(opts.Params) > 0 {
		return 0, fmt.Errorf("%w: sat accepts no tuning parameters", ErrConfiguration)
	}
	assumed, err := s.assume(opts)
	if err != nil {
		return 0, err
	}
	limit := 0
	if opts != nil {
		limit = opts.SolutionLimit
	}

	// Blocking clauses are guarded by a session literal so they turn
	// vacuous once enumeration ends.
	session := s.g.Lit()
	count := 0
	for {
		res := s.run(opts, append(append([]z.Lit{}, assumed...), session))
		if res != 1 {
			exit := Unsatisfiable
			if res == 0 {
				exit = Unknown
			} else if count > 0 {
				exit = Feasible
			}
			s.status = Status{Exit: exit}
			return count, nil
		}
		s.copyValues()
		s.status = Status{Exit: Feasible}
		count++
		sol := make(Solution, s.users.Len())
		block := []z.Lit{session.Not()}
		for _, v := range s.users.Vars() {
			val, err := varValue(v)
			if err != nil {
				return count, err
			}
			sol[v] = val
			m, err := s.lit(v)
			if err != nil {
				return count, err
			}
			if val != 0 {
				m = m.Not()
			}
			block = append(block, m)
		}
		if cb != nil {
			cb(sol)
		}
		if limit > 0 && count >= limit {
			return count, nil
		}
		if len(block) == 1 {
			// No decision variables to flip.
			return count, nil
		}
		s.addClause(block...)
	}
}

func (s *satSolver) SolutionHint(vars []expr.Var, vals []int64) error {
	return fmt.Errorf("%w: sat does not accept solution hints", ErrNotSupported)
}

func (s *satSolver) GetCore() ([]expr.Var, error) {
	if s.status.Exit != Unsatisfiable || len(s.lastAssumptions) == 0 {
		return nil, fmt.Errorf("%w: a core needs an unsatisfiable solve under assumptions", ErrPrecondition)
	}
	return append([]expr.Var{}, s.lastCore...), nil
}

func (s *satSolver) ObjectiveValue() (int64, bool) { return 0, false }

func (s *satSolver) Status() Status { return s.status }

func (s *satSolver) UserVars() []expr.Var { return s.users.Vars() }

func (s *satSolver) copyValues() {
	for _, v := range s.users.Vars() {
		if bv, ok := v.(*expr.BoolVar); ok {
			m, err := s.lit(bv)
			if err != nil {
				continue
			}
			bv.SetValue(s.g.Value(m))
		}
	}
}

func (s *satSolver) clearValues() {
	for _, v := range s.users.Vars() {
		if bv, ok := v.(*expr.BoolVar); ok {
			bv.ClearValue()
		}
	}
}

// lit returns the engine literal of a Boolean leaf.
func (s *satSolver) lit(e expr.Expr) (z.Lit, error) {
	switch t := e.(type) {
	case *expr.BoolVar:
		base := t.Base()
		if m, ok := s.lits[base]; ok {
			return m, nil
		}
		m := s.g.Lit()
		s.lits[base] = m
		return m, nil
	case *expr.NegBoolView:
		m, err := s.lit(t.Not())
		return m.Not(), err
	}
	return z.LitNull, &UnsupportedError{Expr: e, Reason: "expected a Boolean literal"}
}

func (s *satSolver) addClause(lits ...z.Lit) {
	for _, m := range lits {
		s.g.Add(m)
	}
	s.g.Add(z.LitNull)
}

// post adds one flat constraint as clauses. A non-null guard relaxes
// every emitted clause.
func (s *satSolver) post(c expr.Expr, guard z.Lit) error {
	switch t := c.(type) {
	case *expr.BoolVar, *expr.NegBoolView:
		m, err := s.lit(t)
		if err != nil {
			return err
		}
		s.emit(guard, m)
		return nil
	case expr.BoolVal:
		if bool(t) {
			return nil
		}
		s.emit(guard)
		return nil
	case *expr.Operator:
		switch t.Name {
		case expr.OpOr:
			lits := make([]z.Lit, 0, len(t.Args))
			for _, a := range t.Args {
				if bv, ok := a.(expr.BoolVal); ok {
					if bool(bv) {
						return nil
					}
					continue
				}
				m, err := s.lit(a)
				if err != nil {
					return err
				}
				lits = append(lits, m)
			}
			s.emit(guard, lits...)
			return nil
		case expr.OpAnd:
			for _, a := range t.Args {
				if err := s.post(a, guard); err != nil {
					return err
				}
			}
			return nil
		case expr.OpImp:
			if guard != z.LitNull {
				return &UnsupportedError{Expr: t, Reason: "nested implication survived rewriting"}
			}
			m, err := s.lit(t.Args[0])
			if err != nil {
				return err
			}
			return s.post(t.Args[1], m)
		}
		return &UnsupportedError{Expr: t}
	case *expr.Comparison:
		return &UnsupportedError{Expr: t, Reason: "sat accepts Boolean constraints only"}
	case *expr.Direct:
		if t.Name != "clause" {
			return &UnsupportedError{Expr: t, Reason: fmt.Sprintf("sat has no constraint named %q", t.Name)}
		}
		lits := make([]z.Lit, len(t.Args))
		for i, a := range t.Args {
			e, ok := a.(expr.Expr)
			if !ok {
				return &UnsupportedError{Expr: t, Reason: fmt.Sprintf("argument %d is not an expression", i)}
			}
			m, err := s.lit(e)
			if err != nil {
				return err
			}
			lits[i] = m
		}
		s.emit(guard, lits...)
		return nil
	case expr.Global:
		return &UnsupportedError{Expr: t, Reason: "sat posts no globals natively"}
	}
	return &UnsupportedError{Expr: c}
}

// emit adds a clause, relaxed by the guard's negation when present.
func (s *satSolver) emit(guard z.Lit, lits ...z.Lit) {
	if guard != z.LitNull {
		lits = append(lits, guard.Not())
	}
	s.addClause(lits...)
}
