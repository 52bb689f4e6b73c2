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

// Command cpmod demonstrates the modeling layer: it lists the solver
// backends of this build and solves the classic n-queens puzzle.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cpmod/cpmod"
	"github.com/cpmod/cpmod/expr"
	"github.com/cpmod/cpmod/solvers"
)

var rootCmd = &cobra.Command{
	Use:   "cpmod",
	Short: "Constraint modeling demos",
}

var solversCmd = &cobra.Command{
	Use:   "solvers",
	Short: "List solver backends and their availability",
	Run: func(cmd *cobra.Command, args []string) {
		supported := map[string]bool{}
		for _, n := range solvers.Supported() {
			supported[n] = true
		}
		for _, n := range solvers.Names() {
			mark := "unavailable"
			if supported[n] {
				mark = "available"
			}
			fmt.Printf("%-8s %s\n", n, mark)
		}
	},
}

var nqueensCmd = &cobra.Command{
	Use:   "nqueens",
	Short: "Solve the n-queens puzzle",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("n")
		name, _ := cmd.Flags().GetString("solver")
		all, _ := cmd.Flags().GetBool("all")
		if n < 1 {
			return fmt.Errorf("need at least one queen, got %d", n)
		}

		queens := make([]*expr.IntVar, n)
		cols := make([]expr.Expr, n)
		up := make([]expr.Expr, n)
		down := make([]expr.Expr, n)
		for i := range queens {
			queens[i] = expr.NewIntVar(0, int64(n-1), fmt.Sprintf("q%d", i))
			cols[i] = queens[i]
			up[i] = expr.Sum(queens[i], expr.K(int64(i)))
			down[i] = expr.Sub(queens[i], expr.K(int64(i)))
		}
		m := cpmod.NewModel(
			expr.NewAllDifferent(cols...),
			expr.NewAllDifferent(up...),
			expr.NewAllDifferent(down...),
		)

		if all {
			count, err := m.SolveAll(name, nil, nil)
			if err != nil {
				return err
			}
			fmt.Printf("%d solutions\n", count)
			return nil
		}

		st, err := m.Solve(name, nil)
		if err != nil {
			return err
		}
		fmt.Printf("status: %v (%.3fs)\n", st.Exit, st.Runtime.Seconds())
		if st.Exit == solvers.Feasible || st.Exit == solvers.Optimal {
			printBoard(queens)
		}
		return nil
	},
}

func printBoard(queens []*expr.IntVar) {
	n := len(queens)
	for _, q := range queens {
		col, ok := q.Value()
		if !ok {
			continue
		}
		row := make([]string, n)
		for i := range row {
			row[i] = "."
		}
		row[col] = "Q"
		fmt.Println(strings.Join(row, " "))
	}
}

func init() {
	nqueensCmd.Flags().IntP("n", "n", 8, "board size")
	nqueensCmd.Flags().String("solver", "", "backend name, empty for the default")
	nqueensCmd.Flags().Bool("all", false, "count all solutions instead of printing one")
	rootCmd.AddCommand(solversCmd, nqueensCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
