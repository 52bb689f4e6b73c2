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

// Config declares a backend's vocabulary: which globals it posts
// natively, which operators may sit inside a reification, and which
// numeric expressions may carry an order comparison directly.
type Config struct {
	NativeGlobals map[string]bool
	Reifiable     map[expr.OpName]bool
	NumEqLhs      map[expr.OpName]bool
	// Dedupe drops syntactically duplicate toplevel constraints.
	Dedupe bool
}

// Pipeline runs the full rewrite chain for one constraint batch. The
// stage order is load-bearing: decomposition must see the safened
// tree, flattening must see no foreign globals, and the reification
// stages expect flat input. The cache carries auxiliaries across
// batches of the same adapter.
func Pipeline(cons []expr.Expr, cfg Config, cache *Cache) ([]expr.Expr, error) {
	cs, err := ToplevelList(cons, cfg.Dedupe)
	if err != nil {
		return nil, err
	}
	cs = SafenPartialFunctions(cs)
	cs, err = DecomposeGlobals(cs, cfg.NativeGlobals, cache)
	if err != nil {
		return nil, err
	}
	cs, err = FlattenConstraints(cs, cache)
	if err != nil {
		return nil, err
	}
	cs, err = ReifyRewrite(cs, cfg.Reifiable, cache)
	if err != nil {
		return nil, err
	}
	cs, err = OnlyNumExprEquality(cs, cfg.NumEqLhs, cache)
	if err != nil {
		return nil, err
	}
	return OnlyImplies(cs), nil
}
