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
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/acero-go/acero/executor"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// BatchGenerator yields the batches of a source one at a time and
// returns io.EOF once exhausted. It is never called concurrently.
type BatchGenerator func(ctx context.Context) (ExecBatch, error)

// SourceNodeOptions configure a "source" node.
type SourceNodeOptions struct {
	Schema    *arrow.Schema
	Generator BatchGenerator
}

// SourceNode pushes the batches of a generator to its single output,
// honoring backpressure from it.
type SourceNode struct {
	BaseNode

	gen    BatchGenerator
	logger log.Logger

	mu      sync.Mutex
	resumed *sync.Cond
	paused  bool
	counter int32
	stopped bool
}

func makeSourceNode(plan *ExecPlan, inputs []ExecNode, opts ExecNodeOptions) (ExecNode, error) {
	if err := ValidateExecNodeInputs(plan, inputs, 0, "SourceNode"); err != nil {
		return nil, err
	}
	srcOpts, err := optionsAs[SourceNodeOptions](opts, "source")
	if err != nil {
		return nil, err
	}
	if srcOpts.Schema == nil || srcOpts.Generator == nil {
		return nil, fmt.Errorf("%w: source node requires a schema and a generator", arrow.ErrInvalid)
	}

	n := &SourceNode{
		BaseNode: NewBaseNode(plan, "SourceNode", nil, nil, srcOpts.Schema, 1),
		gen:      srcOpts.Generator,
	}
	n.resumed = sync.NewCond(&n.mu)
	plan.AddNode(n)
	n.logger = nodeLogger(n)
	return n, nil
}

// StartProducing launches the loop feeding the output, on the plan's
// executor if it has one.
func (n *SourceNode) StartProducing(ctx context.Context) error {
	level.Debug(n.logger).Log("msg", "starting source")
	e := n.Plan().Executor()
	if e == nil {
		go n.loop(ctx)
		return nil
	}
	if err := e.Spawn(func(context.Context) { n.loop(ctx) }); err != nil {
		n.finished.MarkFinished(executor.Empty{}, err)
		return err
	}
	return nil
}

func (n *SourceNode) loop(ctx context.Context) {
	out := n.Outputs()[0]
	total := 0
	var loopErr error
	for n.waitUnpaused() {
		batch, err := n.gen(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			level.Warn(n.logger).Log("msg", "source generator failed", "batches", total, "err", err)
			out.ErrorReceived(n, err)
			loopErr = err
			break
		}
		out.InputReceived(n, batch)
		total++
	}

	level.Debug(n.logger).Log("msg", "source finished", "batches", total)
	out.InputFinished(n, total)
	n.finished.MarkFinished(executor.Empty{}, loopErr)
}

// waitUnpaused blocks while the source is paused and reports whether it
// should keep producing.
func (n *SourceNode) waitUnpaused() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for n.paused && !n.stopped {
		n.resumed.Wait()
	}
	return !n.stopped
}

func (n *SourceNode) PauseProducing(_ ExecNode, counter int32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if counter <= n.counter {
		return
	}
	n.counter = counter
	n.paused = true
	level.Debug(n.logger).Log("msg", "source paused", "counter", counter)
}

func (n *SourceNode) ResumeProducing(_ ExecNode, counter int32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if counter <= n.counter {
		return
	}
	n.counter = counter
	n.paused = false
	n.resumed.Broadcast()
	level.Debug(n.logger).Log("msg", "source resumed", "counter", counter)
}

func (n *SourceNode) StopProducingFor(ExecNode) { n.StopProducing() }

// StopProducing makes the loop exit before pulling another batch.
func (n *SourceNode) StopProducing() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
	n.resumed.Broadcast()
}

func (n *SourceNode) InputReceived(ExecNode, ExecBatch) { abortNoInputs() }
func (n *SourceNode) ErrorReceived(ExecNode, error)     { abortNoInputs() }
func (n *SourceNode) InputFinished(ExecNode, int)       { abortNoInputs() }

// RecordGenerator yields one batch per record, in order.
func RecordGenerator(recs ...arrow.Record) BatchGenerator {
	next := 0
	return func(context.Context) (ExecBatch, error) {
		if next >= len(recs) {
			return ExecBatch{}, io.EOF
		}
		rec := recs[next]
		next++
		return NewExecBatch(rec), nil
	}
}
