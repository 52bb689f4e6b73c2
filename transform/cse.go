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

// Package transform rewrites expression trees into the flat normal
// forms the backend adapters post to their engines. Each stage is a
// pure function over a constraint list; auxiliary variables introduced
// along the way are memoized in a Cache so a subexpression posted twice
// resolves to the same variable.
package transform

import (
	"fmt"

	"github.com/cpmod/cpmod/expr"
)

// Cache memoizes the auxiliary variable standing for a subexpression.
// Keys are the canonical String form of the subexpression. A cache
// belongs to one adapter and lives as long as the adapter; entries are
// never evicted, since the defining constraints stay posted.
type Cache struct {
	vars map[string]expr.Var
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{vars: make(map[string]expr.Var)}
}

// Get returns the auxiliary variable memoized for key, if any.
func (c *Cache) Get(key string) (expr.Var, bool) {
	v, ok := c.vars[key]
	return v, ok
}

// Put memoizes v as the auxiliary variable for key.
func (c *Cache) Put(key string, v expr.Var) {
	c.vars[key] = v
}

// Len returns the number of memoized subexpressions.
func (c *Cache) Len() int { return len(c.vars) }

// UnsupportedError reports an expression node that no rewrite stage
// could bring into the target vocabulary. The whole Add call that
// produced it is rolled back by the caller.
type UnsupportedError struct {
	Expr   expr.Expr
	Reason string
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported expression %s: %s", e.Expr, e.Reason)
	}
	return fmt.Sprintf("unsupported expression %s", e.Expr)
}
