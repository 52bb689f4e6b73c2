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

package cpmod_test

import (
	"fmt"
	"log"

	"github.com/cpmod/cpmod"
	"github.com/cpmod/cpmod/expr"
)

func ExampleModel() {
	x := expr.NewIntVar(0, 9, "x")
	y := expr.NewIntVar(0, 9, "y")

	m := cpmod.NewModel(
		expr.Eq(expr.Sum(x, y), expr.K(10)),
		expr.Gt(x, y),
	).Minimize(x)

	st, err := m.Solve("pb", nil)
	if err != nil {
		log.Fatal(err)
	}
	vx, _ := x.Value()
	vy, _ := y.Value()
	fmt.Println(st.Exit, vx, vy)
	// Output: OPTIMAL 6 4
}
