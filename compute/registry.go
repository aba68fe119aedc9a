// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compute

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// FunctionRegistry is a named lookup of Functions and aliases. A child
// registry sees every function of its parent but only ever modifies its
// own entries.
type FunctionRegistry interface {
	CanAddFunction(fn Function, allowOverwrite bool) bool
	AddFunction(fn Function, allowOverwrite bool) bool
	CanAddAlias(target, source string) bool
	AddAlias(target, source string) bool
	GetFunction(name string) (Function, bool)
	GetFunctionNames() []string
	NumFunctions() int

	canAddFuncName(string, bool) bool
}

var (
	registry FunctionRegistry
	once     sync.Once
)

// GetFunctionRegistry returns the process-wide registry holding every
// built-in function. It is populated the first time it is requested.
func GetFunctionRegistry() FunctionRegistry {
	once.Do(func() {
		registry = NewRegistry()
		RegisterScalarCast(registry)
		RegisterScalarComparisons(registry)
		RegisterScalarBoolean(registry)
		RegisterScalarBetween(registry)
		RegisterScalarMinMax(registry)
	})
	return registry
}

func NewRegistry() FunctionRegistry {
	return &funcRegistry{
		nameToFunction: make(map[string]Function)}
}

func NewChildRegistry(parent FunctionRegistry) FunctionRegistry {
	return &funcRegistry{
		parent:         parent.(*funcRegistry),
		nameToFunction: make(map[string]Function)}
}

type funcRegistry struct {
	parent *funcRegistry

	mx             sync.RWMutex
	nameToFunction map[string]Function
}

func (reg *funcRegistry) CanAddFunction(fn Function, allowOverwrite bool) bool {
	return reg.doAddFunction(fn, allowOverwrite, false)
}

func (reg *funcRegistry) AddFunction(fn Function, allowOverwrite bool) bool {
	return reg.doAddFunction(fn, allowOverwrite, true)
}

func (reg *funcRegistry) CanAddAlias(target, source string) bool {
	return reg.doAddAlias(target, source, false)
}

func (reg *funcRegistry) AddAlias(target, source string) bool {
	return reg.doAddAlias(target, source, true)
}

func (reg *funcRegistry) GetFunction(name string) (Function, bool) {
	reg.mx.RLock()
	defer reg.mx.RUnlock()

	fn, ok := reg.nameToFunction[name]
	if !ok && reg.parent != nil {
		return reg.parent.GetFunction(name)
	}
	return fn, ok
}

func (reg *funcRegistry) GetFunctionNames() (out []string) {
	if reg.parent != nil {
		out = reg.parent.GetFunctionNames()
	} else {
		out = make([]string, 0, len(reg.nameToFunction))
	}

	reg.mx.RLock()
	defer reg.mx.RUnlock()

	out = append(out, maps.Keys(reg.nameToFunction)...)
	slices.Sort(out)
	return
}

func (reg *funcRegistry) NumFunctions() (n int) {
	if reg.parent != nil {
		n = reg.parent.NumFunctions()
	}

	reg.mx.RLock()
	defer reg.mx.RUnlock()
	return n + len(reg.nameToFunction)
}

func (reg *funcRegistry) canAddFuncName(name string, allowOverwrite bool) bool {
	if reg.parent != nil && !reg.parent.canAddFuncName(name, allowOverwrite) {
		return false
	}
	if allowOverwrite {
		return true
	}

	reg.mx.RLock()
	defer reg.mx.RUnlock()
	_, ok := reg.nameToFunction[name]
	return !ok
}

func (reg *funcRegistry) doAddFunction(fn Function, allowOverwrite bool, add bool) bool {
	if fn.Validate() != nil {
		return false
	}

	name := fn.Name()
	if reg.parent != nil && !reg.parent.canAddFuncName(name, allowOverwrite) {
		return false
	}

	reg.mx.Lock()
	defer reg.mx.Unlock()

	if _, exists := reg.nameToFunction[name]; exists && !allowOverwrite {
		return false
	}

	if add {
		reg.nameToFunction[name] = fn
	}
	return true
}

func (reg *funcRegistry) doAddAlias(target, source string, add bool) bool {
	fn, ok := reg.GetFunction(source)
	if !ok {
		return false
	}

	if reg.parent != nil && !reg.parent.canAddFuncName(target, false) {
		return false
	}

	reg.mx.Lock()
	defer reg.mx.Unlock()

	if _, exists := reg.nameToFunction[target]; exists {
		return false
	}

	if add {
		reg.nameToFunction[target] = fn
	}
	return true
}
