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
	"strconv"
	"strings"

	"github.com/acero-go/acero/executor"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type planConfig struct {
	mem      memory.Allocator
	exec     executor.Executor
	logger   log.Logger
	metrics  *Metrics
	registry ExecFactoryRegistry
}

type PlanOption func(*planConfig)

// WithAllocator sets the allocator nodes use for the data they create.
func WithAllocator(mem memory.Allocator) PlanOption {
	return func(c *planConfig) { c.mem = mem }
}

// WithExecutor runs the plan's source loops on e rather than on
// dedicated goroutines.
func WithExecutor(e executor.Executor) PlanOption {
	return func(c *planConfig) { c.exec = e }
}

func WithLogger(logger log.Logger) PlanOption {
	return func(c *planConfig) { c.logger = logger }
}

func WithMetrics(m *Metrics) PlanOption {
	return func(c *planConfig) { c.metrics = m }
}

// WithFactoryRegistry makes MakeExecNode resolve factories in reg.
func WithFactoryRegistry(reg ExecFactoryRegistry) PlanOption {
	return func(c *planConfig) { c.registry = reg }
}

var unregisteredMetrics = NewMetrics(nil)

// ExecPlan owns a DAG of ExecNodes. Nodes are added inputs first, so the
// order of Nodes is a topological order of the graph.
type ExecPlan struct {
	id     uuid.UUID
	cfg    planConfig
	logger log.Logger

	nodes    []ExecNode
	started  atomic.Bool
	stopped  atomic.Bool
	finished *executor.Future[executor.Empty]
}

func NewExecPlan(opts ...PlanOption) *ExecPlan {
	cfg := planConfig{
		mem:      memory.DefaultAllocator,
		logger:   log.NewNopLogger(),
		metrics:  unregisteredMetrics,
		registry: DefaultExecFactoryRegistry(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	id := uuid.New()
	return &ExecPlan{
		id:       id,
		cfg:      cfg,
		logger:   log.With(cfg.logger, "plan", id.String()),
		finished: executor.NewFuture[executor.Empty](),
	}
}

func (p *ExecPlan) ID() string                    { return p.id.String() }
func (p *ExecPlan) Allocator() memory.Allocator   { return p.cfg.mem }
func (p *ExecPlan) Executor() executor.Executor   { return p.cfg.exec }
func (p *ExecPlan) Logger() log.Logger            { return p.logger }
func (p *ExecPlan) Nodes() []ExecNode             { return p.nodes }
func (p *ExecPlan) Registry() ExecFactoryRegistry { return p.cfg.registry }
func (p *ExecPlan) metrics() *Metrics             { return p.cfg.metrics }

// AddNode adds n to the plan, registers it as an output of its inputs and
// gives it a label if it has none.
func (p *ExecPlan) AddNode(n ExecNode) ExecNode {
	if n.Label() == "" {
		n.SetLabel(n.KindName() + ":" + strconv.Itoa(len(p.nodes)))
	}
	for _, in := range n.Inputs() {
		in.addOutput(n)
	}
	p.nodes = append(p.nodes, n)
	return n
}

// Sources returns the nodes without inputs.
func (p *ExecPlan) Sources() []ExecNode {
	var out []ExecNode
	for _, n := range p.nodes {
		if len(n.Inputs()) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// Sinks returns the nodes without outputs.
func (p *ExecPlan) Sinks() []ExecNode {
	var out []ExecNode
	for _, n := range p.nodes {
		if len(n.Outputs()) == 0 {
			out = append(out, n)
		}
	}
	return out
}

func (p *ExecPlan) Validate() error {
	if len(p.nodes) == 0 {
		return fmt.Errorf("%w: ExecPlan has no nodes", arrow.ErrInvalid)
	}
	for _, n := range p.nodes {
		if err := n.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// StartProducing validates the plan and starts every node, sinks first so
// that each node is ready before its inputs begin pushing. If a node
// fails to start, the nodes already started are stopped.
func (p *ExecPlan) StartProducing(ctx context.Context) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: restarted ExecPlan", arrow.ErrInvalid)
	}

	level.Debug(p.logger).Log("msg", "starting plan", "nodes", len(p.nodes))
	for i := len(p.nodes) - 1; i >= 0; i-- {
		n := p.nodes[i]
		if err := n.StartProducing(ctx); err != nil {
			level.Error(p.logger).Log("msg", "node failed to start", "node", n.Label(), "err", err)
			for _, started := range p.nodes[i+1:] {
				started.StopProducing()
			}
			p.stopped.Store(true)
			err = xerrors.Errorf("starting %s: %w", n, err)
			p.finish(err)
			return err
		}
	}

	futs := make([]*executor.Future[executor.Empty], len(p.nodes))
	for i, n := range p.nodes {
		futs[i] = n.Finished()
	}
	executor.AllComplete(futs...).AddCallback(func(_ executor.Empty, err error) {
		p.finish(err)
	})
	return nil
}

func (p *ExecPlan) finish(err error) {
	status := "ok"
	if err != nil {
		status = "error"
		level.Warn(p.logger).Log("msg", "plan failed", "err", err)
	} else {
		level.Debug(p.logger).Log("msg", "plan finished")
	}
	p.metrics().plansFinished.WithLabelValues(status).Inc()
	p.finished.MarkFinished(executor.Empty{}, err)
}

// StopProducing stops every node, sources first. Only the first call
// has any effect.
func (p *ExecPlan) StopProducing() {
	if !p.started.Load() || !p.stopped.CompareAndSwap(false, true) {
		return
	}
	level.Debug(p.logger).Log("msg", "stopping plan")
	for _, n := range p.nodes {
		n.StopProducing()
	}
}

// Finished completes once every node has finished, with the first error
// among them in node order.
func (p *ExecPlan) Finished() *executor.Future[executor.Empty] { return p.finished }

// Wait blocks until every node finished and returns the first error any
// of them reported. If a node fails or ctx ends first, the plan is
// stopped and Wait returns once it has wound down.
func (p *ExecPlan) Wait(ctx context.Context) error {
	if !p.started.Load() {
		return fmt.Errorf("%w: waiting on an ExecPlan which was not started", arrow.ErrInvalid)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, n := range p.nodes {
		n := n
		g.Go(func() error {
			_, err := n.Finished().Wait(gctx)
			if err != nil && gctx.Err() == nil {
				return xerrors.Errorf("%s: %w", n.Label(), err)
			}
			return err
		})
	}
	// finished without its nodes when starting failed
	g.Go(func() error {
		_, err := p.finished.Wait(gctx)
		return err
	})

	err := g.Wait()
	if ctx.Err() != nil {
		err = context.Cause(ctx)
	}
	if err != nil {
		p.StopProducing()
	}
	p.finished.Err()
	return err
}

func (p *ExecPlan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ExecPlan with %d nodes:\n", len(p.nodes))
	for i := len(p.nodes) - 1; i >= 0; i-- {
		sb.WriteString(p.nodes[i].String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
