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

// ToplevelList normalizes a constraint batch into a flat list of
// Boolean expressions: nested conjunctions are spliced inline and
// `true` constants are dropped. `false` is kept, making the model
// trivially unsatisfiable. A non-Boolean entry is an UnsupportedError.
// With dedupe set, syntactically identical constraints are kept once,
// first occurrence wins.
func ToplevelList(cons []expr.Expr, dedupe bool) ([]expr.Expr, error) {
	out := make([]expr.Expr, 0, len(cons))
	var seen map[string]bool
	if dedupe {
		seen = make(map[string]bool)
	}
	emit := func(e expr.Expr) {
		if dedupe {
			key := e.String()
			if seen[key] {
				return
			}
			seen[key] = true
		}
		out = append(out, e)
	}
	var walk func(e expr.Expr) error
	walk = func(e expr.Expr) error {
		if !e.IsBool() {
			return &UnsupportedError{Expr: e, Reason: "constraints must be Boolean"}
		}
		if v, ok := e.(expr.BoolVal); ok {
			if bool(v) {
				return nil
			}
			emit(v)
			return nil
		}
		if op, ok := e.(*expr.Operator); ok && op.Name == expr.OpAnd {
			for _, a := range op.Args {
				if err := walk(a); err != nil {
					return err
				}
			}
			return nil
		}
		emit(e)
		return nil
	}
	for _, c := range cons {
		if err := walk(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}
