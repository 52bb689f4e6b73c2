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

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	sppb "github.com/google/or-tools/ortools/sat/proto/satparameters"
	"google.golang.org/protobuf/proto"

	"github.com/cpmod/cpmod/expr"
	"github.com/cpmod/cpmod/transform"
)

// cpSatAvailable reports whether the CP-SAT backend can run. The
// native library is linked into the binary, so a build that contains
// this package can always use it.
func cpSatAvailable() bool { return true }

// cpSat posts constraints to CP-SAT through the proto model builder.
// It is the default backend: the full vocabulary of globals is native
// and optimization, assumptions, hints and cores are all supported.
type cpSat struct {
	builder *cpmodel.Builder
	cache   *transform.Cache
	users   *transform.VarSet

	ints   map[expr.Var]cpmodel.IntVar
	bools  map[expr.Var]cpmodel.BoolVar
	consts map[int64]cpmodel.IntVar

	objSet bool
	status Status

	lastAssumptions []expr.Var
	lastResponse    *cmpb.CpSolverResponse
}

var cpSatConfig = transform.Config{
	NativeGlobals: map[string]bool{
		"alldifferent": true,
		"xor":          true,
		"table":        true,
		"cumulative":   true,
		"no_overlap":   true,
		"circuit":      true,
		"inverse":      true,
		"regular":      true,
	},
	Reifiable: map[expr.OpName]bool{
		expr.OpAnd: true, expr.OpOr: true, expr.OpSum: true, expr.OpWSum: true,
	},
	NumEqLhs: map[expr.OpName]bool{
		expr.OpSum: true, expr.OpWSum: true, expr.OpSub: true, expr.OpNeg: true,
	},
}

func newCpSat(sub string) (Interface, error) {
	if sub != "" {
		return nil, fmt.Errorf("%w: cpsat has no sub-solver %q", ErrConfiguration, sub)
	}
	return &cpSat{
		builder: cpmodel.NewCpModelBuilder(),
		cache:   transform.NewCache(),
		users:   transform.NewVarSet(),
		ints:    make(map[expr.Var]cpmodel.IntVar),
		bools:   make(map[expr.Var]cpmodel.BoolVar),
		consts:  make(map[int64]cpmodel.IntVar),
	}, nil
}

func (s *cpSat) Name() string { return "cpsat" }

func (s *cpSat) Add(cons ...expr.Expr) error {
	for _, c := range cons {
		transform.CollectVars(c, s.users)
	}
	flat, err := transform.Pipeline(cons, cpSatConfig, s.cache)
	if err != nil {
		return err
	}
	for _, c := range flat {
		if err := s.post(c, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *cpSat) Minimize(obj expr.Expr) error { return s.objective(obj, false) }
func (s *cpSat) Maximize(obj expr.Expr) error { return s.objective(obj, true) }

func (s *cpSat) objective(obj expr.Expr, maximize bool) error {
	if obj.IsBool() {
		return fmt.Errorf("%w: objective must be numeric, got %s", ErrConfiguration, obj)
	}
	transform.CollectVars(obj, s.users)
	flat, defs, err := transform.FlattenObjective(obj, s.cache)
	if err != nil {
		return err
	}
	flatDefs, err := transform.Pipeline(defs, cpSatConfig, s.cache)
	if err != nil {
		return err
	}
	for _, c := range flatDefs {
		if err := s.post(c, nil); err != nil {
			return err
		}
	}
	le, err := s.linearExpr(flat)
	if err != nil {
		return err
	}
	if maximize {
		s.builder.Maximize(le)
	} else {
		s.builder.Minimize(le)
	}
	s.objSet = true
	return nil
}

func (s *cpSat) Solve(opts *SolveOptions) (Status, error) {
	params, err := s.satParams(opts)
	if err != nil {
		return Status{}, err
	}

	s.builder.ClearAssumption()
	s.lastAssumptions = nil
	if opts != nil && len(opts.Assumptions) > 0 {
		lits := make([]cpmodel.BoolVar, len(opts.Assumptions))
		for i, a := range opts.Assumptions {
			lit, err := s.litOf(a)
			if err != nil {
				return Status{}, err
			}
			lits[i] = lit
		}
		s.builder.AddAssumption(lits...)
		s.lastAssumptions = append([]expr.Var{}, opts.Assumptions...)
		// Presolve may strip feasible solutions that only matter under
		// assumptions.
		params.KeepAllFeasibleSolutionsInPresolve = proto.Bool(true)
	}

	model, err := s.builder.Model()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrModelInvalid, err)
	}
	start := time.Now()
	response, err := cpmodel.SolveCpModelWithParameters(model, params)
	if err != nil {
		return Status{}, err
	}
	s.lastResponse = response

	st := Status{Runtime: time.Since(start)}
	switch response.GetStatus() {
	case cmpb.CpSolverStatus_OPTIMAL:
		st.Exit = Optimal
		if !s.objSet {
			// Proving a satisfaction problem "optimal" just means a
			// solution was found.
			st.Exit = Feasible
		}
	case cmpb.CpSolverStatus_FEASIBLE:
		st.Exit = Feasible
	case cmpb.CpSolverStatus_INFEASIBLE:
		st.Exit = Unsatisfiable
	case cmpb.CpSolverStatus_UNKNOWN:
		st.Exit = Unknown
	case cmpb.CpSolverStatus_MODEL_INVALID:
		s.status = Status{Exit: Unknown, Runtime: st.Runtime}
		s.clearValues()
		return s.status, fmt.Errorf("%w: %s", ErrModelInvalid, response.GetSolutionInfo())
	default:
		s.status = Status{Exit: Unknown, Runtime: st.Runtime}
		s.clearValues()
		return s.status, fmt.Errorf("%w: %v", ErrUnknownStatus, response.GetStatus())
	}

	if st.Exit == Feasible || st.Exit == Optimal {
		s.copyValues(response)
		if s.objSet {
			st.Objective = int64(response.GetObjectiveValue())
			st.HasObjective = true
		}
	} else {
		s.clearValues()
	}
	s.status = st
	return st, nil
}

func (s *cpSat) SolveAll(opts *SolveOptions, cb func(Solution)) (int, error) {
	if s.objSet {
		return 0, fmt.Errorf("%w: cannot enumerate solutions of an optimization model", ErrNotSupported)
	}
	// Blocking clauses are guarded by a session literal, so they all
	// turn vacuous once the enumeration's assumption is dropped.
	session := s.builder.NewBoolVar()
	limit := 0
	if opts != nil {
		limit = opts.SolutionLimit
	}

	count := 0
	var last Solution
	for {
		runOpts := &SolveOptions{}
		if opts != nil {
			*runOpts = *opts
		}
		st, err := s.solveAssuming(runOpts, session)
		if err != nil {
			return count, err
		}
		if st.Exit != Feasible && st.Exit != Optimal {
			if st.Exit == Unsatisfiable && count > 0 {
				// Exhausted enumeration still found solutions; the last
				// one stays readable on the variables.
				s.restoreSolution(last)
				s.status = Status{Exit: Feasible}
			}
			return count, nil
		}
		count++
		sol := make(Solution, s.users.Len())
		var diffs []cpmodel.BoolVar
		for _, v := range s.users.Vars() {
			val, err := varValue(v)
			if err != nil {
				return count, err
			}
			sol[v] = val
			d := s.builder.NewBoolVar()
			iv, err := s.linearLeaf(v)
			if err != nil {
				return count, err
			}
			s.builder.AddNotEqual(iv, cpmodel.NewConstant(val)).OnlyEnforceIf(d)
			s.builder.AddEquality(iv, cpmodel.NewConstant(val)).OnlyEnforceIf(d.Not())
			diffs = append(diffs, d)
		}
		if cb != nil {
			cb(sol)
		}
		last = sol
		if limit > 0 && count >= limit {
			return count, nil
		}
		s.builder.AddBoolOr(diffs...).OnlyEnforceIf(session)
	}
}

// restoreSolution writes a recorded solution back onto the variables.
func (s *cpSat) restoreSolution(sol Solution) {
	for v, val := range sol {
		switch t := v.(type) {
		case *expr.BoolVar:
			t.SetValue(val != 0)
		case *expr.IntVar:
			t.SetValue(val)
		}
	}
}

// solveAssuming runs Solve with an extra assumption literal appended.
func (s *cpSat) solveAssuming(opts *SolveOptions, session cpmodel.BoolVar) (Status, error) {
	params, err := s.satParams(opts)
	if err != nil {
		return Status{}, err
	}
	params.KeepAllFeasibleSolutionsInPresolve = proto.Bool(true)

	s.builder.ClearAssumption()
	s.builder.AddAssumption(session)
	for _, a := range opts.Assumptions {
		lit, err := s.litOf(a)
		if err != nil {
			return Status{}, err
		}
		s.builder.AddAssumption(lit)
	}

	model, err := s.builder.Model()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrModelInvalid, err)
	}
	start := time.Now()
	response, err := cpmodel.SolveCpModelWithParameters(model, params)
	if err != nil {
		return Status{}, err
	}
	st := Status{Runtime: time.Since(start)}
	switch response.GetStatus() {
	case cmpb.CpSolverStatus_OPTIMAL, cmpb.CpSolverStatus_FEASIBLE:
		st.Exit = Feasible
		s.copyValues(response)
	case cmpb.CpSolverStatus_INFEASIBLE:
		st.Exit = Unsatisfiable
		s.clearValues()
	default:
		st.Exit = Unknown
		s.clearValues()
	}
	s.status = st
	return st, nil
}

func (s *cpSat) SolutionHint(vars []expr.Var, vals []int64) error {
	if len(vars) != len(vals) {
		return fmt.Errorf("%w: %d hint variables with %d values", ErrConfiguration, len(vars), len(vals))
	}
	hint := &cpmodel.Hint{
		Ints:  make(map[cpmodel.IntVar]int64),
		Bools: make(map[cpmodel.BoolVar]bool),
	}
	for i, v := range vars {
		switch v.(type) {
		case *expr.BoolVar, *expr.NegBoolView:
			lit, err := s.litOf(v)
			if err != nil {
				return err
			}
			hint.Bools[lit] = vals[i] != 0
		default:
			hint.Ints[s.intVar(v)] = vals[i]
		}
	}
	s.builder.ClearHint()
	s.builder.SetHint(hint)
	return nil
}

func (s *cpSat) GetCore() ([]expr.Var, error) {
	if s.status.Exit != Unsatisfiable || len(s.lastAssumptions) == 0 {
		return nil, fmt.Errorf("%w: a core needs an unsatisfiable solve under assumptions", ErrPrecondition)
	}
	byIndex := make(map[int32]expr.Var, len(s.lastAssumptions))
	for _, a := range s.lastAssumptions {
		lit, err := s.litOf(a)
		if err != nil {
			return nil, err
		}
		byIndex[int32(lit.Index())] = a
	}
	var core []expr.Var
	for _, idx := range s.lastResponse.GetSufficientAssumptionsForEstablishingInfeasibility() {
		if v, ok := byIndex[idx]; ok {
			core = append(core, v)
		}
	}
	return core, nil
}

func (s *cpSat) ObjectiveValue() (int64, bool) {
	return s.status.Objective, s.status.HasObjective
}

func (s *cpSat) Status() Status { return s.status }

func (s *cpSat) UserVars() []expr.Var { return s.users.Vars() }

func (s *cpSat) satParams(opts *SolveOptions) (*sppb.SatParameters, error) {
	params := &sppb.SatParameters{}
	if opts == nil {
		return params, nil
	}
	if opts.TimeLimit < 0 {
		return nil, fmt.Errorf("%w: time limit must be positive, got %v", ErrConfiguration, opts.TimeLimit)
	}
	if opts.TimeLimit > 0 {
		params.MaxTimeInSeconds = proto.Float64(opts.TimeLimit.Seconds())
	}
	for name, val := range opts.Params {
		switch name {
		case "num_workers":
			n, ok := asInt(val)
			if !ok {
				return nil, paramTypeErr(name, val, "int")
			}
			params.NumWorkers = proto.Int32(int32(n))
		case "random_seed":
			n, ok := asInt(val)
			if !ok {
				return nil, paramTypeErr(name, val, "int")
			}
			params.RandomSeed = proto.Int32(int32(n))
		case "log_search_progress":
			b, ok := val.(bool)
			if !ok {
				return nil, paramTypeErr(name, val, "bool")
			}
			params.LogSearchProgress = proto.Bool(b)
		case "cp_model_presolve":
			b, ok := val.(bool)
			if !ok {
				return nil, paramTypeErr(name, val, "bool")
			}
			params.CpModelPresolve = proto.Bool(b)
		case "max_deterministic_time":
			f, ok := val.(float64)
			if !ok {
				return nil, paramTypeErr(name, val, "float64")
			}
			params.MaxDeterministicTime = proto.Float64(f)
		default:
			return nil, fmt.Errorf("%w: unknown cpsat parameter %q", ErrConfiguration, name)
		}
	}
	return params, nil
}

func paramTypeErr(name string, val any, want string) error {
	return fmt.Errorf("%w: parameter %q wants %s, got %T", ErrConfiguration, name, want, val)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func (s *cpSat) copyValues(r *cmpb.CpSolverResponse) {
	for _, v := range s.users.Vars() {
		switch t := v.(type) {
		case *expr.BoolVar:
			t.SetValue(cpmodel.SolutionBooleanValue(r, s.boolVar(t)))
		case *expr.IntVar:
			t.SetValue(cpmodel.SolutionIntegerValue(r, s.intVar(t)))
		}
	}
}

func (s *cpSat) clearValues() {
	for _, v := range s.users.Vars() {
		switch t := v.(type) {
		case *expr.BoolVar:
			t.ClearValue()
		case *expr.IntVar:
			t.ClearValue()
		}
	}
}

// varValue reads a user variable's copied-back value.
func varValue(v expr.Var) (int64, error) {
	switch t := v.(type) {
	case *expr.BoolVar:
		b, ok := t.Value()
		if !ok {
			return 0, fmt.Errorf("%w: %s has no value", ErrPrecondition, t.Name())
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case *expr.IntVar:
		n, ok := t.Value()
		if !ok {
			return 0, fmt.Errorf("%w: %s has no value", ErrPrecondition, t.Name())
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %s is not a decision variable", ErrPrecondition, v.Name())
}

// boolVar maps a Boolean decision variable into the builder.
func (s *cpSat) boolVar(v expr.Var) cpmodel.BoolVar {
	base := v.Base()
	if bv, ok := s.bools[base]; ok {
		return bv
	}
	bv := s.builder.NewBoolVar().WithName(base.Name())
	s.bools[base] = bv
	return bv
}

// intVar maps an integer decision variable into the builder.
func (s *cpSat) intVar(v expr.Var) cpmodel.IntVar {
	if iv, ok := s.ints[v]; ok {
		return iv
	}
	lb, ub := v.Bounds()
	iv := s.builder.NewIntVar(lb, ub).WithName(v.Name())
	s.ints[v] = iv
	return iv
}

func (s *cpSat) constant(c int64) cpmodel.IntVar {
	if iv, ok := s.consts[c]; ok {
		return iv
	}
	iv := s.builder.NewConstant(c)
	s.consts[c] = iv
	return iv
}

// litOf maps a Boolean leaf to a builder literal.
func (s *cpSat) litOf(e expr.Expr) (cpmodel.BoolVar, error) {
	switch t := e.(type) {
	case *expr.BoolVar:
		return s.boolVar(t), nil
	case *expr.NegBoolView:
		return s.boolVar(t).Not(), nil
	case expr.BoolVal:
		if bool(t) {
			return s.builder.TrueVar(), nil
		}
		return s.builder.FalseVar(), nil
	}
	return cpmodel.BoolVar{}, &UnsupportedError{Expr: e, Reason: "expected a Boolean literal"}
}

// linearLeaf maps a flat argument to a linear argument.
func (s *cpSat) linearLeaf(e expr.Expr) (cpmodel.LinearArgument, error) {
	switch t := e.(type) {
	case *expr.IntVar:
		return s.intVar(t), nil
	case *expr.BoolVar, *expr.NegBoolView:
		return s.litOf(t)
	case expr.IntVal:
		return s.constant(int64(t)), nil
	case expr.BoolVal:
		return s.litOf(t)
	}
	return nil, &UnsupportedError{Expr: e, Reason: "expected a variable or constant"}
}

// intVarLeaf maps a flat argument to an IntVar, materializing
// constants. Used for the constraints whose proto wants variables.
func (s *cpSat) intVarLeaf(e expr.Expr) (cpmodel.IntVar, error) {
	switch t := e.(type) {
	case *expr.IntVar:
		return s.intVar(t), nil
	case expr.IntVal:
		return s.constant(int64(t)), nil
	}
	return cpmodel.IntVar{}, &UnsupportedError{Expr: e, Reason: "expected an integer variable or constant"}
}

// linearExpr builds a LinearExpr from a flat numeric expression.
func (s *cpSat) linearExpr(e expr.Expr) (*cpmodel.LinearExpr, error) {
	switch t := e.(type) {
	case *expr.IntVar, *expr.BoolVar, *expr.NegBoolView:
		la, err := s.linearLeaf(t)
		if err != nil {
			return nil, err
		}
		return cpmodel.NewLinearExpr().Add(la), nil
	case expr.IntVal:
		return cpmodel.NewConstant(int64(t)), nil
	case *expr.Operator:
		switch t.Name {
		case expr.OpSum:
			le := cpmodel.NewLinearExpr()
			for _, a := range t.Args {
				la, err := s.linearLeaf(a)
				if err != nil {
					return nil, err
				}
				le.Add(la)
			}
			return le, nil
		case expr.OpWSum:
			le := cpmodel.NewLinearExpr()
			for i, a := range t.Args {
				la, err := s.linearLeaf(a)
				if err != nil {
					return nil, err
				}
				le.AddTerm(la, t.Weights[i])
			}
			return le, nil
		case expr.OpSub:
			a, err := s.linearLeaf(t.Args[0])
			if err != nil {
				return nil, err
			}
			b, err := s.linearLeaf(t.Args[1])
			if err != nil {
				return nil, err
			}
			return cpmodel.NewLinearExpr().Add(a).AddTerm(b, -1), nil
		case expr.OpNeg:
			a, err := s.linearLeaf(t.Args[0])
			if err != nil {
				return nil, err
			}
			return cpmodel.NewLinearExpr().AddTerm(a, -1), nil
		}
	}
	return nil, &UnsupportedError{Expr: e, Reason: "not a linear expression"}
}

func isLinearName(n expr.OpName) bool {
	return n == expr.OpSum || n == expr.OpWSum || n == expr.OpSub || n == expr.OpNeg
}

// post adds one flat constraint, optionally under enforcement
// literals.
func (s *cpSat) post(c expr.Expr, enforce []cpmodel.BoolVar) error {
	switch t := c.(type) {
	case *expr.BoolVar, *expr.NegBoolView:
		lit, err := s.litOf(t)
		if err != nil {
			return err
		}
		s.builder.AddBoolOr(lit).OnlyEnforceIf(enforce...)
		return nil
	case expr.BoolVal:
		if bool(t) {
			return nil
		}
		s.builder.AddBoolOr().OnlyEnforceIf(enforce...)
		return nil
	case *expr.Operator:
		return s.postOperator(t, enforce)
	case *expr.Comparison:
		return s.postComparison(t, enforce)
	case expr.Global:
		if len(enforce) > 0 {
			return &UnsupportedError{Expr: c, Reason: "globals cannot be enforced conditionally"}
		}
		return s.postGlobal(t)
	case *expr.Direct:
		if len(enforce) > 0 {
			return &UnsupportedError{Expr: c, Reason: "direct constraints cannot be enforced conditionally"}
		}
		return s.postDirect(t)
	}
	return &UnsupportedError{Expr: c}
}

func (s *cpSat) postOperator(t *expr.Operator, enforce []cpmodel.BoolVar) error {
	switch t.Name {
	case expr.OpOr, expr.OpAnd:
		lits := make([]cpmodel.BoolVar, len(t.Args))
		for i, a := range t.Args {
			lit, err := s.litOf(a)
			if err != nil {
				return err
			}
			lits[i] = lit
		}
		if t.Name == expr.OpOr {
			s.builder.AddBoolOr(lits...).OnlyEnforceIf(enforce...)
		} else {
			s.builder.AddBoolAnd(lits...).OnlyEnforceIf(enforce...)
		}
		return nil
	case expr.OpImp:
		lit, err := s.litOf(t.Args[0])
		if err != nil {
			return err
		}
		return s.post(t.Args[1], append(append([]cpmodel.BoolVar{}, enforce...), lit))
	}
	return &UnsupportedError{Expr: t}
}

func (s *cpSat) postComparison(t *expr.Comparison, enforce []cpmodel.BoolVar) error {
	// Linear left sides use the domain-based linear constraints; the
	// functional forms become target equalities.
	if op, ok := t.Lhs.(*expr.Operator); ok && !isLinearName(op.Name) {
		if t.Op != expr.OpEq {
			return &UnsupportedError{Expr: t, Reason: "only equality is supported on this expression"}
		}
		if len(enforce) > 0 {
			return &UnsupportedError{Expr: t, Reason: "cannot be enforced conditionally"}
		}
		return s.postFunctional(op, t.Rhs)
	}
	if el, ok := t.Lhs.(*expr.Element); ok {
		if t.Op != expr.OpEq {
			return &UnsupportedError{Expr: t, Reason: "only equality is supported on an element lookup"}
		}
		if len(enforce) > 0 {
			return &UnsupportedError{Expr: t, Reason: "cannot be enforced conditionally"}
		}
		return s.postElement(el, t.Rhs)
	}

	le, err := s.linearExpr(t.Lhs)
	if err != nil {
		return err
	}
	rhs, err := s.linearLeaf(t.Rhs)
	if err != nil {
		return err
	}
	var ct cpmodel.Constraint
	switch t.Op {
	case expr.OpEq:
		ct = s.builder.AddEquality(le, rhs)
	case expr.OpNe:
		ct = s.builder.AddNotEqual(le, rhs)
	case expr.OpLt:
		ct = s.builder.AddLessThan(le, rhs)
	case expr.OpLe:
		ct = s.builder.AddLessOrEqual(le, rhs)
	case expr.OpGt:
		ct = s.builder.AddGreaterThan(le, rhs)
	case expr.OpGe:
		ct = s.builder.AddGreaterOrEqual(le, rhs)
	default:
		return &UnsupportedError{Expr: t}
	}
	ct.OnlyEnforceIf(enforce...)
	return nil
}

// postFunctional posts `op(args) == target` for the non-linear
// operators CP-SAT models as target constraints.
func (s *cpSat) postFunctional(op *expr.Operator, target expr.Expr) error {
	tgt, err := s.linearLeaf(target)
	if err != nil {
		return err
	}
	args := make([]cpmodel.LinearArgument, len(op.Args))
	for i, a := range op.Args {
		la, err := s.linearLeaf(a)
		if err != nil {
			return err
		}
		args[i] = la
	}
	switch op.Name {
	case expr.OpMul:
		s.builder.AddMultiplicationEquality(tgt, args...)
	case expr.OpDiv:
		s.builder.AddDivisionEquality(tgt, args[0], args[1])
	case expr.OpMod:
		s.builder.AddModuloEquality(tgt, args[0], args[1])
	case expr.OpAbs:
		s.builder.AddAbsEquality(tgt, args[0])
	case expr.OpMin:
		s.builder.AddMinEquality(tgt, args...)
	case expr.OpMax:
		s.builder.AddMaxEquality(tgt, args...)
	case expr.OpPow:
		return s.postPow(op, tgt)
	default:
		return &UnsupportedError{Expr: op}
	}
	return nil
}

// postPow expands a constant-exponent power into a multiplication
// chain. A variable exponent has no CP-SAT counterpart.
func (s *cpSat) postPow(op *expr.Operator, tgt cpmodel.LinearArgument) error {
	exp, ok := op.Args[1].(expr.IntVal)
	if !ok {
		return &UnsupportedError{Expr: op, Reason: "exponent must be a constant"}
	}
	if exp < 0 {
		return &UnsupportedError{Expr: op, Reason: "exponent must be non-negative"}
	}
	base, err := s.linearLeaf(op.Args[0])
	if err != nil {
		return err
	}
	switch exp {
	case 0:
		s.builder.AddEquality(tgt, cpmodel.NewConstant(1))
	case 1:
		s.builder.AddEquality(tgt, base)
	default:
		lb, ub := op.Args[0].Bounds()
		acc := base
		for i := int64(2); i <= int64(exp); i++ {
			powLb, powUb := powRange(lb, ub, i)
			var next cpmodel.LinearArgument
			if i == int64(exp) {
				next = tgt
			} else {
				next = s.builder.NewIntVar(powLb, powUb)
			}
			s.builder.AddMultiplicationEquality(next, acc, base)
			acc = next
		}
	}
	return nil
}

func powRange(lb, ub, exp int64) (int64, int64) {
	lo, hi := int64(1), int64(1)
	for i := int64(0); i < exp; i++ {
		a, b := lo*lb, hi*ub
		c, d := lo*ub, hi*lb
		lo = min4(a, b, c, d)
		hi = max4(a, b, c, d)
	}
	return lo, hi
}

func min4(a, b, c, d int64) int64 {
	m := a
	for _, v := range []int64{b, c, d} {
		if v < m {
			m = v
		}
	}
	return m
}

func max4(a, b, c, d int64) int64 {
	m := a
	for _, v := range []int64{b, c, d} {
		if v > m {
			m = v
		}
	}
	return m
}

func (s *cpSat) postElement(el *expr.Element, target expr.Expr) error {
	tgt, err := s.intVarLeaf(target)
	if err != nil {
		return err
	}
	idx, err := s.intVarLeaf(el.Index)
	if err != nil {
		return err
	}
	allConst := true
	for _, a := range el.Arr {
		if _, ok := a.(expr.IntVal); !ok {
			allConst = false
			break
		}
	}
	if allConst {
		values := make([]int64, len(el.Arr))
		for i, a := range el.Arr {
			values[i] = int64(a.(expr.IntVal))
		}
		s.builder.AddElement(idx, values, tgt)
		return nil
	}
	vars := make([]cpmodel.IntVar, len(el.Arr))
	for i, a := range el.Arr {
		iv, err := s.intVarLeaf(a)
		if err != nil {
			return err
		}
		vars[i] = iv
	}
	s.builder.AddVariableElement(idx, vars, tgt)
	return nil
}

func (s *cpSat) postGlobal(g expr.Global) error {
	switch t := g.(type) {
	case *expr.AllDifferent:
		args := make([]cpmodel.LinearArgument, len(t.Xs))
		for i, x := range t.Xs {
			la, err := s.linearLeaf(x)
			if err != nil {
				return err
			}
			args[i] = la
		}
		s.builder.AddAllDifferent(args...)
		return nil
	case *expr.Xor:
		lits := make([]cpmodel.BoolVar, len(t.Xs))
		for i, x := range t.Xs {
			lit, err := s.litOf(x)
			if err != nil {
				return err
			}
			lits[i] = lit
		}
		s.builder.AddBoolXor(lits...)
		return nil
	case *expr.Table:
		vars := make([]cpmodel.IntVar, len(t.Xs))
		for i, x := range t.Xs {
			iv, err := s.intVarLeaf(x)
			if err != nil {
				return err
			}
			vars[i] = iv
		}
		tc := s.builder.AddAllowedAssignments(vars...)
		for _, row := range t.Rows {
			tc.AddTuple(row...)
		}
		return nil
	case *expr.Cumulative:
		capacity, err := s.linearLeaf(t.Capacity)
		if err != nil {
			return err
		}
		cc := s.builder.AddCumulative(capacity)
		for i := range t.Starts {
			iv, err := s.interval(t.Starts[i], t.Durs[i], t.Ends[i])
			if err != nil {
				return err
			}
			cc.AddDemand(iv, cpmodel.NewConstant(t.Demands[i]))
		}
		return nil
	case *expr.NoOverlap:
		intervals := make([]cpmodel.IntervalVar, len(t.Starts))
		for i := range t.Starts {
			iv, err := s.interval(t.Starts[i], t.Durs[i], t.Ends[i])
			if err != nil {
				return err
			}
			intervals[i] = iv
		}
		s.builder.AddNoOverlap(intervals...)
		return nil
	case *expr.Circuit:
		n := len(t.Succ)
		succ := make([]cpmodel.IntVar, n)
		for i, x := range t.Succ {
			iv, err := s.intVarLeaf(x)
			if err != nil {
				return err
			}
			succ[i] = iv
		}
		cc := s.builder.AddCircuitConstraint()
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				arc := s.builder.NewBoolVar()
				s.builder.AddEquality(succ[i], cpmodel.NewConstant(int64(j))).OnlyEnforceIf(arc)
				s.builder.AddNotEqual(succ[i], cpmodel.NewConstant(int64(j))).OnlyEnforceIf(arc.Not())
				cc.AddArc(int32(i), int32(j), arc)
			}
		}
		return nil
	case *expr.Inverse:
		fwd := make([]cpmodel.IntVar, len(t.Fwd))
		rev := make([]cpmodel.IntVar, len(t.Rev))
		for i := range t.Fwd {
			var err error
			if fwd[i], err = s.intVarLeaf(t.Fwd[i]); err != nil {
				return err
			}
			if rev[i], err = s.intVarLeaf(t.Rev[i]); err != nil {
				return err
			}
		}
		s.builder.AddInverseConstraint(fwd, rev)
		return nil
	case *expr.Regular:
		vars := make([]cpmodel.IntVar, len(t.Xs))
		for i, x := range t.Xs {
			iv, err := s.intVarLeaf(x)
			if err != nil {
				return err
			}
			vars[i] = iv
		}
		ac := s.builder.AddAutomaton(vars, t.Start, t.Accepting)
		for _, tr := range t.Trans {
			ac.AddTransition(tr.From, tr.To, tr.Label)
		}
		return nil
	}
	return &UnsupportedError{Expr: g, Reason: "global not supported by cpsat"}
}

func (s *cpSat) interval(start, size, end expr.Expr) (cpmodel.IntervalVar, error) {
	st, err := s.linearLeaf(start)
	if err != nil {
		return cpmodel.IntervalVar{}, err
	}
	sz, err := s.linearLeaf(size)
	if err != nil {
		return cpmodel.IntervalVar{}, err
	}
	en, err := s.linearLeaf(end)
	if err != nil {
		return cpmodel.IntervalVar{}, err
	}
	return s.builder.NewIntervalVar(st, sz, en), nil
}

// postDirect dispatches an escape-hatch constraint onto the builder by
// name. Arguments must be Boolean literals.
func (s *cpSat) postDirect(d *expr.Direct) error {
	lits := make([]cpmodel.BoolVar, len(d.Args))
	for i, a := range d.Args {
		e, ok := a.(expr.Expr)
		if !ok {
			return &UnsupportedError{Expr: d, Reason: fmt.Sprintf("argument %d is not an expression", i)}
		}
		lit, err := s.litOf(e)
		if err != nil {
			return err
		}
		lits[i] = lit
	}
	switch d.Name {
	case "at_most_one":
		s.builder.AddAtMostOne(lits...)
	case "at_least_one":
		s.builder.AddAtLeastOne(lits...)
	case "exactly_one":
		s.builder.AddExactlyOne(lits...)
	default:
		return &UnsupportedError{Expr: d, Reason: fmt.Sprintf("cpsat has no constraint named %q", d.Name)}
	}
	return nil
}
