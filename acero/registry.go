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

package acero

import (
	"context"
	"fmt"
	"sync"

	"github.com/apache/arrow/go/v17/arrow"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

// ExecNodeOptions are the factory specific options of a node, such as
// SinkNodeOptions or *TableSinkNodeOptions.
type ExecNodeOptions any

// ExecFactory builds a node of one kind and adds it to plan.
type ExecFactory func(plan *ExecPlan, inputs []ExecNode, opts ExecNodeOptions) (ExecNode, error)

// ExecFactoryRegistry maps node kind names to their factories.
type ExecFactoryRegistry interface {
	AddFactory(name string, factory ExecFactory) error
	GetFactory(name string) (ExecFactory, error)
	FactoryNames() []string
}

type factoryRegistry struct {
	mx        sync.RWMutex
	factories map[string]ExecFactory
}

func NewExecFactoryRegistry() ExecFactoryRegistry {
	return &factoryRegistry{factories: make(map[string]ExecFactory)}
}

func (r *factoryRegistry) AddFactory(name string, factory ExecFactory) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: ExecFactory named %s already registered", arrow.ErrInvalid, name)
	}
	r.factories[name] = factory
	return nil
}

func (r *factoryRegistry) GetFactory(name string) (ExecFactory, error) {
	r.mx.RLock()
	defer r.mx.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: ExecFactory named %s not present in registry", arrow.ErrInvalid, name)
	}
	return f, nil
}

func (r *factoryRegistry) FactoryNames() []string {
	r.mx.RLock()
	defer r.mx.RUnlock()
	names := maps.Keys(r.factories)
	slices.Sort(names)
	return names
}

var (
	defaultRegistry ExecFactoryRegistry
	registryOnce    sync.Once
)

// DefaultExecFactoryRegistry returns the registry holding the built-in
// node kinds.
func DefaultExecFactoryRegistry() ExecFactoryRegistry {
	registryOnce.Do(func() {
		defaultRegistry = NewExecFactoryRegistry()
		RegisterSourceNode(defaultRegistry)
		RegisterSinkNodes(defaultRegistry)
	})
	return defaultRegistry
}

func mustAdd(reg ExecFactoryRegistry, name string, f ExecFactory) {
	if err := reg.AddFactory(name, f); err != nil {
		panic(err)
	}
}

func RegisterSourceNode(reg ExecFactoryRegistry) {
	mustAdd(reg, "source", makeSourceNode)
}

func RegisterSinkNodes(reg ExecFactoryRegistry) {
	mustAdd(reg, "select_k_sink", makeSelectKSinkNode)
	mustAdd(reg, "order_by_sink", makeOrderBySinkNode)
	mustAdd(reg, "consuming_sink", makeConsumingSinkNode)
	mustAdd(reg, "sink", makeSinkNode)
	mustAdd(reg, "table_sink", makeTableSinkNode)
}

// MakeExecNode builds a node with the factory registered under name in
// the plan's registry.
func MakeExecNode(name string, plan *ExecPlan, inputs []ExecNode, opts ExecNodeOptions) (ExecNode, error) {
	factory, err := plan.Registry().GetFactory(name)
	if err != nil {
		return nil, err
	}
	return factory(plan, inputs, opts)
}

// ValidateExecNodeInputs checks that inputs holds exactly expected nodes,
// all belonging to plan.
func ValidateExecNodeInputs(plan *ExecPlan, inputs []ExecNode, expected int, kindName string) error {
	if len(inputs) != expected {
		return fmt.Errorf("%w: %s requires %d inputs but got %d", arrow.ErrInvalid, kindName, expected, len(inputs))
	}
	for _, in := range inputs {
		if in.Plan() != plan {
			return fmt.Errorf("%w: node %s is not part of the plan of %s", arrow.ErrInvalid, in.Label(), kindName)
		}
	}
	return nil
}

func optionsAs[T any](opts ExecNodeOptions, factory string) (T, error) {
	switch o := opts.(type) {
	case T:
		return o, nil
	case *T:
		if o != nil {
			return *o, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s requires %T options, got %T", arrow.ErrInvalid, factory, zero, opts)
}

// optionsPtr is optionsAs for options with output fields, which must be
// passed by pointer.
func optionsPtr[T any](opts ExecNodeOptions, factory string) (*T, error) {
	if o, ok := opts.(*T); ok && o != nil {
		return o, nil
	}
	return nil, fmt.Errorf("%w: %s requires *%T options, got %T", arrow.ErrInvalid, factory, *new(T), opts)
}

// Declaration describes a node and, recursively, its inputs, so that a
// whole plan can be spelled out before it is built.
type Declaration struct {
	Factory string
	Options ExecNodeOptions
	Inputs  []Declaration
	Label   string
}

// Sequence chains decls so that each is the first input of the next,
// returning the last. decls must not be empty.
func Sequence(decls ...Declaration) Declaration {
	out := decls[0]
	for _, d := range decls[1:] {
		d.Inputs = append([]Declaration{out}, d.Inputs...)
		out = d
	}
	return out
}

// AddToPlan builds the declared nodes, inputs first, and returns the
// node of d itself.
func (d Declaration) AddToPlan(plan *ExecPlan) (ExecNode, error) {
	inputs := make([]ExecNode, len(d.Inputs))
	for i, in := range d.Inputs {
		n, err := in.AddToPlan(plan)
		if err != nil {
			return nil, err
		}
		inputs[i] = n
	}

	n, err := MakeExecNode(d.Factory, plan, inputs, d.Options)
	if err != nil {
		return nil, xerrors.Errorf("making %s node: %w", d.Factory, err)
	}
	if d.Label != "" {
		n.SetLabel(d.Label)
	}
	return n, nil
}

// DeclarationToTable runs the plan declared by decl into a table sink
// and returns the collected table, which the caller must release.
func DeclarationToTable(ctx context.Context, decl Declaration, opts ...PlanOption) (arrow.Table, error) {
	plan := NewExecPlan(opts...)
	out := &TableSinkNodeOptions{}
	sink := Declaration{Factory: "table_sink", Options: out, Inputs: []Declaration{decl}}
	if _, err := sink.AddToPlan(plan); err != nil {
		return nil, err
	}

	if err := plan.StartProducing(ctx); err != nil {
		return nil, err
	}
	if err := plan.Wait(ctx); err != nil {
		if out.Table != nil {
			out.Table.Release()
		}
		return nil, err
	}
	return out.Table, nil
}
