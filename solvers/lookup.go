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
	"strings"

	log "github.com/golang/glog"
)

// entry is one registered backend. Registration order is the
// preference order: the first available entry is the default.
type entry struct {
	name      string
	available func() bool
	construct func(sub string) (Interface, error)
}

var registry = []entry{
	{name: "cpsat", available: cpSatAvailable, construct: newCpSat},
	{name: "pb", available: func() bool { return true }, construct: newPB},
	{name: "sat", available: func() bool { return true }, construct: newSAT},
}

// Names returns all registered backend names in preference order.
func Names() []string {
	out := make([]string, len(registry))
	for i, e := range registry {
		out[i] = e.name
	}
	return out
}

// Supported returns the names of the backends available in this build.
func Supported() []string {
	var out []string
	for _, e := range registry {
		if e.available() {
			out = append(out, e.name)
		}
	}
	return out
}

// Get constructs the backend registered under name. A name of the form
// "base:sub" forwards the sub name to the base backend's constructor.
// An empty name yields the first available backend.
func Get(name string) (Interface, error) {
	if name == "" {
		for _, e := range registry {
			if e.available() {
				return e.construct("")
			}
		}
		return nil, fmt.Errorf("%w: no solver available", ErrConfiguration)
	}
	base, sub, _ := strings.Cut(name, ":")
	for _, e := range registry {
		if e.name != base {
			continue
		}
		if !e.available() {
			return nil, fmt.Errorf("%w: solver %q is not available in this build", ErrConfiguration, base)
		}
		return e.construct(sub)
	}
	return nil, fmt.Errorf("%w: unknown solver %q, registered: %s", ErrConfiguration, base, strings.Join(Names(), ", "))
}

// MustGet is Get for static solver names; it aborts on error.
func MustGet(name string) Interface {
	s, err := Get(name)
	if err != nil {
		log.Fatalf("MustGet(%q): %v", name, err)
	}
	return s
}
