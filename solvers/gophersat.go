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

	"github.com/crillab/gophersat/solver"

	"github.com/cpmod/cpmod/expr"
	"github.com/cpmod/cpmod/transform"
)

// maxDirectDomain bounds the integer domains the pb backend will
// direct-encode, one value literal per domain member.
const maxDirectDomain = 1 << 16

// pbSolver is the pure-Go pseudo-Boolean backend. Integer variables
// are direct-encoded: one literal per domain value under an
// exactly-one constraint, so every linear comparison becomes a single
// pseudo-Boolean constraint over literals. Solves are stateless: each
// call rebuilds the engine from the accumulated constraints plus the
// call's assumption units.
type pbSolver struct {
	cache *transform.Cache
	users *transform.VarSet

	nbVars  int
	lits    map[expr.Var]int
	encs    map[expr.Var]*intEnc
	constrs []solver.PBConstr

	objSet      bool
	objMaximize bool
	costLits    []solver.Lit
	costWeights []int
	costConst   int64

	status          Status
	lastAssumptions []expr.Var
}

// intEnc is the direct encoding of one integer variable.
type intEnc struct {
	lb, ub int64
	lits   []int // lits[v-lb] is the literal of x == v
}

var pbConfig = transform.Config{
	Reifiable: map[expr.OpName]bool{
		expr.OpAnd: true, expr.OpOr: true, expr.OpSum: true, expr.OpWSum: true,
	},
	NumEqLhs: map[expr.OpName]bool{
		expr.OpSum: true, expr.OpWSum: true, expr.OpSub: true, expr.OpNeg: true,
	},
}

func newPB(sub string) (Interface, error) {
	if sub != "" {
		return nil, fmt.Errorf("%w: pb has no sub-solver %q", ErrConfiguration, sub)
	}
	return &pbSolver{
		cache: transform.NewCache(),
		users: transform.NewVarSet(),
		lits:  make(map[expr.Var]int),
		encs:  make(map[expr.Var]*intEnc),
	}, nil
}

func (s *pbSolver) Name() string { return "pb" }

func (s *pbSolver) Add(cons ...expr.Expr) error {
	for _, c := range cons {
		transform.CollectVars(c, s.users)
	}
	flat, err := transform.Pipeline(cons, pbConfig, s.cache)
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

func (s *pbSolver) Minimize(obj expr.Expr) error { return s.objective(obj, false) }
func (s *pbSolver) Maximize(obj expr.Expr) error { return s.objective(obj, true) }

func (s *pbSolver) objective(obj expr.Expr, maximize bool) error {
	if obj.IsBool() {
		return fmt.Errorf("%w: objective must be numeric, got %s", ErrConfiguration, obj)
	}
	transform.CollectVars(obj, s.users)
	flat, defs, err := transform.FlattenObjective(obj, s.cache)
	if err != nil {
		return err
	}
	flatDefs, err := transform.Pipeline(defs, pbConfig, s.cache)
	if err != nil {
		return err
	}
	for _, c := range flatDefs {
		if err := s.post(c, nil); err != nil {
			return err
		}
	}
	terms, konst, err := s.linTerms(flat)
	if err != nil {
		return err
	}
	if maximize {
		for i := range terms {
			terms[i].weight = -terms[i].weight
		}
		konst = -konst
	}
	// The engine minimizes a positively weighted sum of literals;
	// negative weights move onto the negated literal with a constant
	// shift.
	s.costLits = nil
	s.costWeights = nil
	s.costConst = konst
	for _, t := range terms {
		lit, w := t.lit, t.weight
		if w == 0 {
			continue
		}
		if w < 0 {
			lit, w = -lit, -w
			s.costConst -= w
		}
		s.costLits = append(s.costLits, solver.IntToLit(int32(lit)))
		s.costWeights = append(s.costWeights, int(w))
	}
	s.objSet = true
	s.objMaximize = maximize
	return nil
}

func (s *pbSolver) Solve(opts *SolveOptions) (Status, error) {
	if opts != nil && opts.TimeLimit < 0 {
		return Status{}, fmt.Errorf("%w: time limit must be positive, got %v", ErrConfiguration, opts.TimeLimit)
	}
	if opts != nil && len(opts.Params) > 0 {
		return Status{}, fmt.Errorf("%w: pb accepts no tuning parameters", ErrConfiguration)
	}
	extra, err := s.assumptionUnits(opts)
	if err != nil {
		return Status{}, err
	}

	start := time.Now()
	st, model := s.runSolve(extra, timeLimit(opts))
	st.Runtime = time.Since(start)

	if st.Exit == Feasible || st.Exit == Optimal {
		s.copyValues(model)
	} else {
		s.clearValues()
	}
	s.status = st
	return st, nil
}

// runSolve builds a fresh engine over the posted constraints plus
// extra unit constraints and runs it.
func (s *pbSolver) runSolve(extra []solver.PBConstr, limit time.Duration) (Status, []bool) {
	all := make([]solver.PBConstr, 0, len(s.constrs)+len(extra))
	all = append(all, s.constrs...)
	all = append(all, extra...)
	problem := solver.ParsePBConstrs(all)
	if s.objSet && len(s.costLits) > 0 {
		problem.SetCostFunc(s.costLits, s.costWeights)
	}
	engine := solver.New(problem)

	type outcome struct {
		status Status
		model  []bool
	}
	run := func() outcome {
		if s.objSet && len(s.costLits) == 0 {
			// The objective folded to a constant; any solution is
			// optimal.
			obj := s.costConst
			if s.objMaximize {
				obj = -obj
			}
			switch engine.Solve() {
			case solver.Sat:
				return outcome{
					status: Status{Exit: Optimal, Objective: obj, HasObjective: true},
					model:  engine.Model(),
				}
			case solver.Unsat:
				return outcome{status: Status{Exit: Unsatisfiable}}
			}
			return outcome{status: Status{Exit: Unknown}}
		}
		if s.objSet {
			cost := engine.Minimize()
			if cost == -1 {
				return outcome{status: Status{Exit: Unsatisfiable}}
			}
			obj := int64(cost) + s.costConst
			if s.objMaximize {
				obj = -obj
			}
			return outcome{
				status: Status{Exit: Optimal, Objective: obj, HasObjective: true},
				model:  engine.Model(),
			}
		}
		switch engine.Solve() {
		case solver.Sat:
			return outcome{status: Status{Exit: Feasible}, model: engine.Model()}
		case solver.Unsat:
			return outcome{status: Status{Exit: Unsatisfiable}}
		}
		return outcome{status: Status{Exit: Unknown}}
	}

	if limit <= 0 {
		o := run()
		return o.status, o.model
	}
	done := make(chan outcome, 1)
	go func() { done <- run() }()
	select {
	case o := <-done:
		return o.status, o.model
	case <-time.After(limit):
		// The engine offers no interruption hook; the goroutine is
		// abandoned and finishes on its own.
		return Status{Exit: Unknown}, nil
	}
}

func timeLimit(opts *SolveOptions) time.Duration {
	if opts == nil {
		return 0
	}
	return opts.TimeLimit
}

func (s *pbSolver) assumptionUnits(opts *SolveOptions) ([]solver.PBConstr, error) {
	s.lastAssumptions = nil
	if opts == nil || len(opts.Assumptions) == 0 {
		return nil, nil
	}
	units := make([]solver.PBConstr, len(opts.Assumptions))
	for i, a := range opts.Assumptions {
		lit, err := s.boolLit(a)
		if err != nil {
			return nil, err
		}
		units[i] = solver.PropClause(lit)
	}
	s.lastAssumptions = append([]expr.Var{}, opts.Assumptions...)
	return units, nil
}

func (s *pbSolver) SolveAll(opts *SolveOptions, cb func(Solution)) (int, error) {
	if s.objSet {
		return 0, fmt.Errorf("%w: cannot enumerate solutions of an optimization model", ErrNotSupported)
	}
	if opts != nil && opts.TimeLimit < 0 {
		return 0, fmt.Errorf("%w: time limit must be positive, got %v", ErrConfiguration, opts.TimeLimit)
	}
	extra, err := s.assumptionUnits(opts)
	if err != nil {
		return 0, err
	}
	limit := 0
	if opts != nil {
		limit = opts.SolutionLimit
	}

	count := 0
	var blocking []solver.PBConstr
	for {
		st, model := s.runSolve(append(extra, blocking...), timeLimit(opts))
		if st.Exit == Unknown {
			s.status = st
			return count, nil
		}
		if st.Exit != Feasible {
			s.status = Status{Exit: Unsatisfiable}
			if count > 0 {
				// Exhausted enumeration still found solutions.
				s.status = Status{Exit: Feasible}
			}
			return count, nil
		}
		s.copyValues(model)
		s.status = st
		count++
		sol := make(Solution, s.users.Len())
		var block []int
		for _, v := range s.users.Vars() {
			val, err := varValue(v)
			if err != nil {
				return count, err
			}
			sol[v] = val
			lit, err := s.assignedLit(v, val)
			if err != nil {
				return count, err
			}
			block = append(block, -lit)
		}
		if cb != nil {
			cb(sol)
		}
		if limit > 0 && count >= limit {
			return count, nil
		}
		if len(block) == 0 {
			// No decision variables: the empty model is the only one.
			return count, nil
		}
		blocking = append(blocking, solver.PropClause(block...))
	}
}

// assignedLit returns the literal stating that v takes value val.
func (s *pbSolver) assignedLit(v expr.Var, val int64) (int, error) {
	switch t := v.(type) {
	case *expr.BoolVar:
		lit, err := s.boolLit(t)
		if err != nil {
			return 0, err
		}
		if val == 0 {
			lit = -lit
		}
		return lit, nil
	case *expr.IntVar:
		lit, fixed, truth, err := s.valueLit(t, val)
		if err != nil {
			return 0, err
		}
		if fixed {
			return 0, fmt.Errorf("%w: %s cannot take value %d (fixed %v)", ErrPrecondition, v.Name(), val, truth)
		}
		return lit, nil
	}
	return 0, fmt.Errorf("%w: %s is not a decision variable", ErrPrecondition, v.Name())
}

func (s *pbSolver) SolutionHint(vars []expr.Var, vals []int64) error {
	return fmt.Errorf("%w: pb does not accept solution hints", ErrNotSupported)
}

// GetCore shrinks the failed assumptions by deletion: drop one
// assumption at a time and keep the drop whenever the rest still
// proves unsatisfiability.
func (s *pbSolver) GetCore() ([]expr.Var, error) {
	if s.status.Exit != Unsatisfiable || len(s.lastAssumptions) == 0 {
		return nil, fmt.Errorf("%w: a core needs an unsatisfiable solve under assumptions", ErrPrecondition)
	}
	core := append([]expr.Var{}, s.lastAssumptions...)
	for i := 0; i < len(core); {
		trial := make([]solver.PBConstr, 0, len(core)-1)
		for j, a := range core {
			if j == i {
				continue
			}
			lit, err := s.boolLit(a)
			if err != nil {
				return nil, err
			}
			trial = append(trial, solver.PropClause(lit))
		}
		st, _ := s.runSolve(trial, 0)
		if st.Exit == Unsatisfiable {
			core = append(core[:i], core[i+1:]...)
		} else {
			i++
		}
	}
	return core, nil
}

func (s *pbSolver) ObjectiveValue() (int64, bool) {
	return s.status.Objective, s.status.HasObjective
}

func (s *pbSolver) Status() Status { return s.status }

func (s *pbSolver) UserVars() []expr.Var { return s.users.Vars() }

// copyValues reads the model back into the user variables. It only
// consults existing encodings: a variable never posted in a constraint
// has no literal in the model and its value is cleared.
func (s *pbSolver) copyValues(model []bool) {
	for _, v := range s.users.Vars() {
		switch t := v.(type) {
		case *expr.BoolVar:
			lit, ok := s.lits[t.Base()]
			if !ok {
				t.ClearValue()
				continue
			}
			t.SetValue(litTrue(model, lit))
		case *expr.IntVar:
			enc, ok := s.encs[t]
			if !ok {
				t.ClearValue()
				continue
			}
			found := false
			for i, lit := range enc.lits {
				if litTrue(model, lit) {
					t.SetValue(enc.lb + int64(i))
					found = true
					break
				}
			}
			if !found {
				t.ClearValue()
			}
		}
	}
}

func litTrue(model []bool, lit int) bool {
	if lit < 0 {
		return !model[-lit-1]
	}
	return model[lit-1]
}

func (s *pbSolver) clearValues() {
	for _, v := range s.users.Vars() {
		switch t := v.(type) {
		case *expr.BoolVar:
			t.ClearValue()
		case *expr.IntVar:
			t.ClearValue()
		}
	}
}

func (s *pbSolver) newVar() int {
	s.nbVars++
	return s.nbVars
}

// boolLit returns the engine literal of a Boolean leaf.
func (s *pbSolver) boolLit(e expr.Expr) (int, error) {
	switch t := e.(type) {
	case *expr.BoolVar:
		base := t.Base()
		if lit, ok := s.lits[base]; ok {
			return lit, nil
		}
		lit := s.newVar()
		s.lits[base] = lit
		return lit, nil
	case *expr.NegBoolView:
		lit, err := s.boolLit(t.Not())
		return -lit, err
	}
	return 0, &UnsupportedError{Expr: e, Reason: "expected a Boolean literal"}
}

// intEnc returns the direct encoding of an integer variable, creating
// the value literals and their exactly-one constraint on first use. A
// domain wider than maxDirectDomain is rejected before any literal is
// allocated.
func (s *pbSolver) intEnc(v expr.Var) (*intEnc, error) {
	if enc, ok := s.encs[v]; ok {
		return enc, nil
	}
	lb, ub := v.Bounds()
	if ub-lb+1 > maxDirectDomain {
		return nil, &UnsupportedError{Expr: v, Reason: "domain too large for direct encoding"}
	}
	enc := &intEnc{lb: lb, ub: ub, lits: make([]int, ub-lb+1)}
	for i := range enc.lits {
		enc.lits[i] = s.newVar()
	}
	// Exactly one value literal holds. The helpers take ownership of
	// their slices, so each gets its own copy.
	atLeast := make([]int, len(enc.lits))
	atMost := make([]int, len(enc.lits))
	copy(atLeast, enc.lits)
	copy(atMost, enc.lits)
	s.constrs = append(s.constrs, solver.AtLeast(atLeast, 1), solver.AtMost(atMost, 1))
	s.encs[v] = enc
	return enc, nil
}

// valueLit returns the literal of `e == v` for a leaf. fixed reports a
// constant truth value instead.
func (s *pbSolver) valueLit(e expr.Expr, v int64) (lit int, fixed, truth bool, err error) {
	switch t := e.(type) {
	case expr.IntVal:
		return 0, true, int64(t) == v, nil
	case expr.BoolVal:
		return 0, true, b2i64(bool(t)) == v, nil
	case *expr.IntVar:
		enc, err := s.intEnc(t)
		if err != nil {
			return 0, false, false, err
		}
		if v < enc.lb || v > enc.ub {
			return 0, true, false, nil
		}
		return enc.lits[v-enc.lb], false, false, nil
	case *expr.BoolVar, *expr.NegBoolView:
		lit, err := s.boolLit(t)
		if err != nil {
			return 0, false, false, err
		}
		switch v {
		case 1:
			return lit, false, false, nil
		case 0:
			return -lit, false, false, nil
		}
		return 0, true, false, nil
	}
	return 0, false, false, &UnsupportedError{Expr: e, Reason: "expected a variable or constant"}
}

func b2i64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// pbTerm is one weighted literal of a linear form.
type pbTerm struct {
	lit    int
	weight int64
}

// linTerms lowers a flat linear expression to weighted literals plus a
// constant. Integer variables contribute one term per domain value.
func (s *pbSolver) linTerms(e expr.Expr) ([]pbTerm, int64, error) {
	switch t := e.(type) {
	case expr.IntVal:
		return nil, int64(t), nil
	case expr.BoolVal:
		return nil, b2i64(bool(t)), nil
	case *expr.BoolVar, *expr.NegBoolView:
		lit, err := s.boolLit(t)
		if err != nil {
			return nil, 0, err
		}
		return []pbTerm{{lit: lit, weight: 1}}, 0, nil
	case *expr.IntVar:
		terms, err := s.intTerms(t, 1)
		return terms, 0, err
	case *expr.Operator:
		switch t.Name {
		case expr.OpSum:
			return s.weightedTerms(t.Args, nil)
		case expr.OpWSum:
			return s.weightedTerms(t.Args, t.Weights)
		case expr.OpSub:
			return s.weightedTerms(t.Args, []int64{1, -1})
		case expr.OpNeg:
			return s.weightedTerms(t.Args, []int64{-1})
		}
	}
	return nil, 0, &UnsupportedError{Expr: e, Reason: "not a linear expression"}
}

func (s *pbSolver) intTerms(v *expr.IntVar, w int64) ([]pbTerm, error) {
	enc, err := s.intEnc(v)
	if err != nil {
		return nil, err
	}
	var terms []pbTerm
	for i, lit := range enc.lits {
		val := enc.lb + int64(i)
		if val*w == 0 {
			continue
		}
		terms = append(terms, pbTerm{lit: lit, weight: val * w})
	}
	return terms, nil
}

func (s *pbSolver) weightedTerms(args []expr.Expr, weights []int64) ([]pbTerm, int64, error) {
	var out []pbTerm
	var konst int64
	for i, a := range args {
		w := int64(1)
		if weights != nil {
			w = weights[i]
		}
		switch t := a.(type) {
		case expr.IntVal:
			konst += w * int64(t)
		case expr.BoolVal:
			konst += w * b2i64(bool(t))
		case *expr.IntVar:
			terms, err := s.intTerms(t, w)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, terms...)
		case *expr.BoolVar, *expr.NegBoolView:
			lit, err := s.boolLit(t)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, pbTerm{lit: lit, weight: w})
		default:
			return nil, 0, &UnsupportedError{Expr: a, Reason: "expected a variable or constant"}
		}
	}
	return out, konst, nil
}

// post adds one flat constraint. enforce lists literals that must all
// hold for the constraint to apply; with any of them false the
// constraint is relaxed.
func (s *pbSolver) post(c expr.Expr, enforce []int) error {
	switch t := c.(type) {
	case *expr.BoolVar, *expr.NegBoolView:
		lit, err := s.boolLit(t)
		if err != nil {
			return err
		}
		s.addClause(enforce, lit)
		return nil
	case expr.BoolVal:
		if bool(t) {
			return nil
		}
		s.addClause(enforce)
		return nil
	case *expr.Operator:
		switch t.Name {
		case expr.OpOr:
			lits := make([]int, 0, len(t.Args))
			for _, a := range t.Args {
				if bv, ok := a.(expr.BoolVal); ok {
					if bool(bv) {
						return nil
					}
					continue
				}
				lit, err := s.boolLit(a)
				if err != nil {
					return err
				}
				lits = append(lits, lit)
			}
			s.addClause(enforce, lits...)
			return nil
		case expr.OpAnd:
			for _, a := range t.Args {
				if err := s.post(a, enforce); err != nil {
					return err
				}
			}
			return nil
		case expr.OpImp:
			lit, err := s.boolLit(t.Args[0])
			if err != nil {
				return err
			}
			return s.post(t.Args[1], append(append([]int{}, enforce...), lit))
		}
		return &UnsupportedError{Expr: t}
	case *expr.Comparison:
		return s.postComparison(t, enforce)
	case expr.Global:
		return &UnsupportedError{Expr: t, Reason: "pb posts no globals natively"}
	case *expr.Direct:
		return s.postDirect(t, enforce)
	}
	return &UnsupportedError{Expr: c}
}

// addClause posts a clause relaxed by the negation of every
// enforcement literal.
func (s *pbSolver) addClause(enforce []int, lits ...int) {
	all := make([]int, 0, len(lits)+len(enforce))
	all = append(all, lits...)
	for _, e := range enforce {
		all = append(all, -e)
	}
	if len(all) == 0 {
		// An empty clause: encode falsity with a fresh split variable.
		f := s.newVar()
		s.constrs = append(s.constrs, solver.PropClause(f), solver.PropClause(-f))
		return
	}
	s.constrs = append(s.constrs, solver.PropClause(all...))
}

func (s *pbSolver) postComparison(t *expr.Comparison, enforce []int) error {
	if op, ok := t.Lhs.(*expr.Operator); ok && !isLinearName(op.Name) {
		if t.Op != expr.OpEq {
			return &UnsupportedError{Expr: t, Reason: "only equality is supported on this expression"}
		}
		return s.postFunctional(op, t.Rhs, enforce)
	}
	if el, ok := t.Lhs.(*expr.Element); ok {
		if t.Op != expr.OpEq {
			return &UnsupportedError{Expr: t, Reason: "only equality is supported on an element lookup"}
		}
		return s.postElement(el, t.Rhs, enforce)
	}

	lhsTerms, lhsConst, err := s.linTerms(t.Lhs)
	if err != nil {
		return err
	}
	rhsTerms, rhsConst, err := s.linTerms(t.Rhs)
	if err != nil {
		return err
	}
	terms := lhsTerms
	for _, rt := range rhsTerms {
		terms = append(terms, pbTerm{lit: rt.lit, weight: -rt.weight})
	}
	k := rhsConst - lhsConst
	s.postLinear(t.Op, terms, k, enforce)
	return nil
}

// postLinear posts `terms <op> k` under enforcement literals.
func (s *pbSolver) postLinear(op expr.CmpOp, terms []pbTerm, k int64, enforce []int) {
	switch op {
	case expr.OpEq:
		s.postGe(terms, k, enforce)
		s.postLe(terms, k, enforce)
	case expr.OpNe:
		split := s.newVar()
		s.postLe(terms, k-1, append(append([]int{}, enforce...), split))
		s.postGe(terms, k+1, append(append([]int{}, enforce...), -split))
	case expr.OpGe:
		s.postGe(terms, k, enforce)
	case expr.OpGt:
		s.postGe(terms, k+1, enforce)
	case expr.OpLe:
		s.postLe(terms, k, enforce)
	case expr.OpLt:
		s.postLe(terms, k-1, enforce)
	}
}

func (s *pbSolver) postLe(terms []pbTerm, k int64, enforce []int) {
	neg := make([]pbTerm, len(terms))
	for i, t := range terms {
		neg[i] = pbTerm{lit: t.lit, weight: -t.weight}
	}
	s.postGe(neg, -k, enforce)
}

// postGe posts `sum(terms) >= k`, relaxed through weighted slack on
// the negated enforcement literals.
func (s *pbSolver) postGe(terms []pbTerm, k int64, enforce []int) {
	var minSum, maxSum int64
	for _, t := range terms {
		if t.weight < 0 {
			minSum += t.weight
		} else {
			maxSum += t.weight
		}
	}
	if minSum >= k {
		return
	}
	if maxSum < k {
		// Impossible: forbid the enforcement combination instead.
		s.addClause(enforce)
		return
	}
	lits := make([]int, 0, len(terms)+len(enforce))
	weights := make([]int, 0, len(terms)+len(enforce))
	for _, t := range terms {
		lits = append(lits, t.lit)
		weights = append(weights, int(t.weight))
	}
	slack := k - minSum
	for _, e := range enforce {
		lits = append(lits, -e)
		weights = append(weights, int(slack))
	}
	s.constrs = append(s.constrs, solver.GtEq(lits, weights, int(k)))
}

// postFunctional posts `op(args) == target` by enumerating the
// operand domains: each operand valuation forces the matching target
// value literal.
func (s *pbSolver) postFunctional(op *expr.Operator, target expr.Expr, enforce []int) error {
	switch op.Name {
	case expr.OpMin, expr.OpMax:
		return s.postMinMax(op, target, enforce)
	case expr.OpMul, expr.OpDiv, expr.OpMod, expr.OpPow:
		return s.postBinaryTable(op, target, enforce)
	case expr.OpAbs:
		return s.postUnaryTable(op, target, enforce, abs64v)
	}
	return &UnsupportedError{Expr: op}
}

func abs64v(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func leafDomain(e expr.Expr) (lb, ub int64, err error) {
	lb, ub = e.Bounds()
	if ub-lb+1 > maxDirectDomain {
		return 0, 0, &UnsupportedError{Expr: e, Reason: "domain too large for direct encoding"}
	}
	return lb, ub, nil
}

func (s *pbSolver) postUnaryTable(op *expr.Operator, target expr.Expr, enforce []int, f func(int64) int64) error {
	lb, ub, err := leafDomain(op.Args[0])
	if err != nil {
		return err
	}
	for v := lb; v <= ub; v++ {
		conj, err := s.litConj(op.Args[0], v)
		if err != nil {
			return err
		}
		if err := s.forceTarget(enforce, target, f(v), conj); err != nil {
			return err
		}
	}
	return nil
}

func (s *pbSolver) postBinaryTable(op *expr.Operator, target expr.Expr, enforce []int) error {
	lb0, ub0, err := leafDomain(op.Args[0])
	if err != nil {
		return err
	}
	lb1, ub1, err := leafDomain(op.Args[1])
	if err != nil {
		return err
	}
	for a := lb0; a <= ub0; a++ {
		for b := lb1; b <= ub1; b++ {
			var res int64
			switch op.Name {
			case expr.OpMul:
				res = a * b
			case expr.OpDiv:
				if b == 0 {
					continue
				}
				res = a / b
			case expr.OpMod:
				if b == 0 {
					continue
				}
				res = a % b
			case expr.OpPow:
				if b < 0 {
					// Forbid negative exponents outright.
					if err := s.blockPair(enforce, op.Args[0], a, op.Args[1], b); err != nil {
						return err
					}
					continue
				}
				res = pow64v(a, b)
			}
			ca, err := s.litConj(op.Args[0], a)
			if err != nil {
				return err
			}
			cb, err := s.litConj(op.Args[1], b)
			if err != nil {
				return err
			}
			if err := s.forceTarget(enforce, target, res, append(ca, cb...)); err != nil {
				return err
			}
		}
	}
	return nil
}

func pow64v(base, exp int64) int64 {
	r := int64(1)
	for ; exp > 0; exp-- {
		r *= base
	}
	return r
}

// litConj returns the literals asserting `e == v`, or nil when the
// equality is a constant truth. A constant falsehood is returned as a
// marker literal 0, making the guarded clause vacuous.
func (s *pbSolver) litConj(e expr.Expr, v int64) ([]int, error) {
	lit, fixed, truth, err := s.valueLit(e, v)
	if err != nil {
		return nil, err
	}
	if fixed {
		if truth {
			return nil, nil
		}
		return []int{0}, nil
	}
	return []int{lit}, nil
}

// forceTarget posts `enforce and conj -> target == val` as a clause.
func (s *pbSolver) forceTarget(enforce []int, target expr.Expr, val int64, conj []int) error {
	for _, l := range conj {
		if l == 0 {
			return nil
		}
	}
	guards := append([]int{}, enforce...)
	for _, l := range conj {
		guards = append(guards, l)
	}
	lit, fixed, truth, err := s.valueLit(target, val)
	if err != nil {
		return err
	}
	if fixed {
		if truth {
			return nil
		}
		s.addClause(guards)
		return nil
	}
	s.addClause(guards, lit)
	return nil
}

// blockPair forbids a pair of operand values.
func (s *pbSolver) blockPair(enforce []int, a expr.Expr, va int64, b expr.Expr, vb int64) error {
	ca, err := s.litConj(a, va)
	if err != nil {
		return err
	}
	cb, err := s.litConj(b, vb)
	if err != nil {
		return err
	}
	conj := append(ca, cb...)
	for _, l := range conj {
		if l == 0 {
			return nil
		}
	}
	guards := append([]int{}, enforce...)
	guards = append(guards, conj...)
	s.addClause(guards)
	return nil
}

// postMinMax posts `min/max(args) == target` with per-argument bounds
// plus a witness literal choosing the attained argument.
func (s *pbSolver) postMinMax(op *expr.Operator, target expr.Expr, enforce []int) error {
	tTerms, tConst, err := s.linTerms(target)
	if err != nil {
		return err
	}
	var witnesses []int
	for _, a := range op.Args {
		aTerms, aConst, err := s.linTerms(a)
		if err != nil {
			return err
		}
		// target - arg as one linear form.
		diff := append([]pbTerm{}, tTerms...)
		for _, at := range aTerms {
			diff = append(diff, pbTerm{lit: at.lit, weight: -at.weight})
		}
		k := aConst - tConst
		if op.Name == expr.OpMin {
			s.postLinear(expr.OpLe, diff, k, enforce)
		} else {
			s.postLinear(expr.OpGe, diff, k, enforce)
		}
		// The witness pins target to its argument; it stays free when
		// the constraint is relaxed.
		w := s.newVar()
		witnesses = append(witnesses, w)
		if op.Name == expr.OpMin {
			s.postLinear(expr.OpGe, diff, k, []int{w})
		} else {
			s.postLinear(expr.OpLe, diff, k, []int{w})
		}
	}
	s.addClause(enforce, witnesses...)
	return nil
}

// postElement posts `arr[index] == target`: choosing an index value
// forces the equality of that entry with the target, and the index is
// pinned into range.
func (s *pbSolver) postElement(el *expr.Element, target expr.Expr, enforce []int) error {
	idxTerms, idxConst, err := s.linTerms(el.Index)
	if err != nil {
		return err
	}
	n := int64(len(el.Arr))
	s.postLinear(expr.OpGe, idxTerms, -idxConst, enforce)
	s.postLinear(expr.OpLe, idxTerms, n-1-idxConst, enforce)

	tTerms, tConst, err := s.linTerms(target)
	if err != nil {
		return err
	}
	for k := int64(0); k < n; k++ {
		conj, err := s.litConj(el.Index, k)
		if err != nil {
			return err
		}
		vacuous := false
		for _, l := range conj {
			if l == 0 {
				vacuous = true
			}
		}
		if vacuous {
			continue
		}
		aTerms, aConst, err := s.linTerms(el.Arr[k])
		if err != nil {
			return err
		}
		diff := append([]pbTerm{}, aTerms...)
		for _, tt := range tTerms {
			diff = append(diff, pbTerm{lit: tt.lit, weight: -tt.weight})
		}
		guard := append(append([]int{}, enforce...), conj...)
		s.postLinear(expr.OpEq, diff, tConst-aConst, guard)
	}
	return nil
}

// postDirect accepts the clause escape hatch: the named native form of
// a pseudo-Boolean engine.
func (s *pbSolver) postDirect(d *expr.Direct, enforce []int) error {
	if d.Name != "clause" {
		return &UnsupportedError{Expr: d, Reason: fmt.Sprintf("pb has no constraint named %q", d.Name)}
	}
	lits := make([]int, len(d.Args))
	for i, a := range d.Args {
		e, ok := a.(expr.Expr)
		if !ok {
			return &UnsupportedError{Expr: d, Reason: fmt.Sprintf("argument %d is not an expression", i)}
		}
		lit, err := s.boolLit(e)
		if err != nil {
			return err
		}
		lits[i] = lit
	}
	s.addClause(enforce, lits...)
	return nil
}
