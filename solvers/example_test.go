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

package solvers_test

import (
	"fmt"
	"log"
	"strings"

	"github.com/cpmod/cpmod/expr"
	"github.com/cpmod/cpmod/solvers"
)

func ExampleNames() {
	fmt.Println(strings.Join(solvers.Names(), " "))
	// Output: cpsat pb sat
}

func ExampleInterface_assumptions() {
	s := solvers.MustGet("sat")
	a := expr.NewBoolVar("a")
	b := expr.NewBoolVar("b")
	if err := s.Add(expr.Or(a, b)); err != nil {
		log.Fatal(err)
	}

	st, err := s.Solve(&solvers.SolveOptions{Assumptions: []expr.Var{a.Not(), b.Not()}})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(st.Exit)
	// Output: UNSATISFIABLE
}
