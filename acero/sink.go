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

	"github.com/acero-go/acero/compute"
	"github.com/acero-go/acero/executor"
	"github.com/acero-go/acero/internal/debug"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

func abortNoOutputs() { debug.Abort("no outputs; this should never be called") }

func abortNoInputs() { debug.Abort("no inputs; this should never be called") }

// SinkNodeOptions configure a "sink" node. The factory stores the
// reader draining the sink in Reader, so the options must be passed by
// pointer for the caller to see it.
type SinkNodeOptions struct {
	Backpressure BackpressureOptions
	Reader       *SinkReader
}

// SinkNode hands the batches it receives to a SinkReader. It finishes
// once its input is exhausted, failed or stopped; an error received from
// the input is delivered to the reader and fails the node.
type SinkNode struct {
	BaseNode
	noOutputs

	counter AtomicCounter
	queue   *sinkQueue
	logger  log.Logger
	metrics *Metrics
	// finishFn is the hook run once the counter completes.
	finishFn func(err error)
}

func newSinkNode(plan *ExecPlan, inputs []ExecNode, kind string, opts *SinkNodeOptions) (*SinkNode, error) {
	if err := opts.Backpressure.Validate(); err != nil {
		return nil, err
	}

	n := &SinkNode{
		BaseNode: NewBaseNode(plan, kind, inputs, []string{"collected"}, inputs[0].OutputSchema(), 0),
		metrics:  plan.metrics(),
	}
	n.queue = newSinkQueue(opts.Backpressure, n.backpressure)
	n.finishFn = n.finish
	opts.Reader = &SinkReader{q: n.queue}
	return n, nil
}

func makeSinkNode(plan *ExecPlan, inputs []ExecNode, opts ExecNodeOptions) (ExecNode, error) {
	if err := ValidateExecNodeInputs(plan, inputs, 1, "SinkNode"); err != nil {
		return nil, err
	}
	sinkOpts, err := optionsPtr[SinkNodeOptions](opts, "sink")
	if err != nil {
		return nil, err
	}

	n, err := newSinkNode(plan, inputs, "SinkNode", sinkOpts)
	if err != nil {
		return nil, err
	}
	n.register()
	return n, nil
}

func (n *SinkNode) register() {
	n.plan.AddNode(n)
	n.logger = nodeLogger(n)
}

// Reader returns the reader draining this sink.
func (n *SinkNode) Reader() *SinkReader { return &SinkReader{q: n.queue} }

func (n *SinkNode) StartProducing(context.Context) error {
	level.Debug(n.logger).Log("msg", "starting sink")
	return nil
}

func (n *SinkNode) backpressure(paused bool, counter int32) {
	if paused {
		n.metrics.backpressurePauses.Inc()
		level.Debug(n.logger).Log("msg", "pausing input", "bytes", n.queue.BytesInUse())
		n.inputs[0].PauseProducing(n, counter)
		return
	}
	level.Debug(n.logger).Log("msg", "resuming input", "bytes", n.queue.BytesInUse())
	n.inputs[0].ResumeProducing(n, counter)
}

func (n *SinkNode) InputReceived(input ExecNode, batch ExecBatch) {
	debug.Assert(input == n.inputs[0], "batch from unknown input")
	n.metrics.batchesReceived.WithLabelValues(n.kind).Inc()

	if !n.queue.push(batch) {
		// already finished
		return
	}
	if n.counter.Increment() {
		n.finishFn(nil)
	}
}

func (n *SinkNode) ErrorReceived(input ExecNode, err error) {
	debug.Assert(input == n.inputs[0], "error from unknown input")
	level.Warn(n.logger).Log("msg", "input failed", "err", err)

	n.queue.pushError(err)
	if n.counter.Cancel() {
		n.finishFn(err)
	}
}

func (n *SinkNode) InputFinished(_ ExecNode, totalBatches int) {
	if n.counter.SetTotal(totalBatches) {
		n.finishFn(nil)
	}
}

func (n *SinkNode) StopProducing() {
	if n.counter.Cancel() {
		n.finishFn(nil)
	}
}

func (n *SinkNode) finish(err error) {
	n.queue.close()
	level.Debug(n.logger).Log("msg", "sink finished", "batches", n.counter.Count())
	n.finished.MarkFinished(executor.Empty{}, err)
}

// SinkNodeConsumer consumes the batches of a "consuming_sink" node. It
// does not own the batches passed to Consume, which may be called
// concurrently. Finish is called exactly once, after the last Consume,
// and the node finishes when the returned future does.
type SinkNodeConsumer interface {
	Consume(batch ExecBatch) error
	Finish() *executor.Future[executor.Empty]
}

type ConsumingSinkNodeOptions struct {
	Consumer SinkNodeConsumer
}

// ConsumingSinkNode feeds its input to a SinkNodeConsumer and does not
// finish until the consumer has.
type ConsumingSinkNode struct {
	BaseNode
	noOutputs

	counter  AtomicCounter
	consumer SinkNodeConsumer
	logger   log.Logger
	metrics  *Metrics
}

func makeConsumingSinkNode(plan *ExecPlan, inputs []ExecNode, opts ExecNodeOptions) (ExecNode, error) {
	if err := ValidateExecNodeInputs(plan, inputs, 1, "ConsumingSinkNode"); err != nil {
		return nil, err
	}
	sinkOpts, err := optionsAs[ConsumingSinkNodeOptions](opts, "consuming_sink")
	if err != nil {
		return nil, err
	}
	if sinkOpts.Consumer == nil {
		return nil, fmt.Errorf("%w: consuming sink requires a consumer", arrow.ErrInvalid)
	}

	n := &ConsumingSinkNode{
		BaseNode: NewBaseNode(plan, "ConsumingSinkNode", inputs, []string{"to_consume"}, inputs[0].OutputSchema(), 0),
		consumer: sinkOpts.Consumer,
		metrics:  plan.metrics(),
	}
	plan.AddNode(n)
	n.logger = nodeLogger(n)
	return n, nil
}

func (n *ConsumingSinkNode) StartProducing(context.Context) error {
	level.Debug(n.logger).Log("msg", "starting consuming sink")
	return nil
}

func (n *ConsumingSinkNode) InputReceived(input ExecNode, batch ExecBatch) {
	debug.Assert(input == n.inputs[0], "batch from unknown input")
	defer batch.Release()
	n.metrics.batchesReceived.WithLabelValues(n.kind).Inc()

	// an error may have finished the consumer while the input still runs
	if n.counter.Completed() {
		return
	}

	if err := n.consumer.Consume(batch); err != nil {
		level.Warn(n.logger).Log("msg", "consumer failed", "err", err)
		if n.counter.Cancel() {
			n.finish(err)
		}
		return
	}
	if n.counter.Increment() {
		n.finish(nil)
	}
}

func (n *ConsumingSinkNode) ErrorReceived(input ExecNode, err error) {
	debug.Assert(input == n.inputs[0], "error from unknown input")
	level.Warn(n.logger).Log("msg", "input failed", "err", err)
	if n.counter.Cancel() {
		n.finish(err)
	}
}

func (n *ConsumingSinkNode) InputFinished(_ ExecNode, totalBatches int) {
	if n.counter.SetTotal(totalBatches) {
		n.finish(nil)
	}
}

// StopProducing still lets the consumer finish so it can clean up.
func (n *ConsumingSinkNode) StopProducing() {
	if n.counter.Cancel() {
		n.finish(nil)
	}
}

// finish completes the node once the consumer finished, preferring the
// plan's error over the consumer's.
func (n *ConsumingSinkNode) finish(planErr error) {
	n.consumer.Finish().AddCallback(func(_ executor.Empty, err error) {
		if planErr != nil {
			err = planErr
		}
		level.Debug(n.logger).Log("msg", "consuming sink finished", "batches", n.counter.Count(), "err", err)
		n.finished.MarkFinished(executor.Empty{}, err)
	})
}

// TableSinkNodeOptions configure a "table_sink" node. Table is set
// when the node finishes successfully, so the options must be passed by
// pointer. OutputSchema defaults to the input's schema.
type TableSinkNodeOptions struct {
	OutputSchema *arrow.Schema
	Table        arrow.Table
}

type tableConsumer struct {
	opts   *TableSinkNodeOptions
	schema *arrow.Schema
	plan   *ExecPlan

	mu       sync.Mutex
	recs     []arrow.Record
	finished bool
}

func (c *tableConsumer) Consume(batch ExecBatch) error {
	rec, err := batch.ToRecord(c.plan.Allocator(), c.schema)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		// raced with a stop
		rec.Release()
		return nil
	}
	c.recs = append(c.recs, rec)
	return nil
}

func (c *tableConsumer) Finish() *executor.Future[executor.Empty] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.finished = true
	c.opts.Table = array.NewTableFromRecords(c.schema, c.recs)
	for _, r := range c.recs {
		r.Release()
	}
	c.recs = nil
	return executor.FinishedFuture(executor.Empty{}, nil)
}

func makeTableSinkNode(plan *ExecPlan, inputs []ExecNode, opts ExecNodeOptions) (ExecNode, error) {
	if err := ValidateExecNodeInputs(plan, inputs, 1, "TableConsumingSinkNode"); err != nil {
		return nil, err
	}
	tableOpts, err := optionsPtr[TableSinkNodeOptions](opts, "table_sink")
	if err != nil {
		return nil, err
	}

	schema := tableOpts.OutputSchema
	if schema == nil {
		schema = inputs[0].OutputSchema()
	}
	consumer := &tableConsumer{opts: tableOpts, schema: schema, plan: plan}
	return MakeExecNode("consuming_sink", plan, inputs, ConsumingSinkNodeOptions{Consumer: consumer})
}

// OrderBySinkNodeOptions configure an "order_by_sink" node.
type OrderBySinkNodeOptions struct {
	SinkNodeOptions
	SortOptions compute.SortOptions
}

// SelectKSinkNodeOptions configure a "select_k_sink" node.
type SelectKSinkNodeOptions struct {
	SinkNodeOptions
	SelectKOptions compute.SelectKOptions
}

// OrderBySinkNode accumulates its whole input, then emits it sorted,
// or only its first K rows, through a SinkReader.
type OrderBySinkNode struct {
	*SinkNode

	keys      []compute.SortKey
	placement compute.NullPlacement
	k         int

	mu   sync.Mutex
	recs []arrow.Record
}

func validateSortKeys(schema *arrow.Schema, keys []compute.SortKey) error {
	if len(keys) == 0 {
		return fmt.Errorf("%w: must specify one or more sort keys", arrow.ErrInvalid)
	}
	for _, k := range keys {
		if len(schema.FieldIndices(k.Name)) != 1 {
			return fmt.Errorf("%w: sort key %q does not name exactly one field of %s",
				arrow.ErrInvalid, k.Name, schema)
		}
	}
	return nil
}

func newOrderBySinkNode(plan *ExecPlan, inputs []ExecNode, opts *SinkNodeOptions, keys []compute.SortKey, placement compute.NullPlacement, k int) (ExecNode, error) {
	if err := validateSortKeys(inputs[0].OutputSchema(), keys); err != nil {
		return nil, err
	}
	sink, err := newSinkNode(plan, inputs, "OrderBySinkNode", opts)
	if err != nil {
		return nil, err
	}

	n := &OrderBySinkNode{SinkNode: sink, keys: keys, placement: placement, k: k}
	sink.finishFn = n.finishSorted
	plan.AddNode(n)
	sink.logger = nodeLogger(n)
	return n, nil
}

func makeOrderBySinkNode(plan *ExecPlan, inputs []ExecNode, opts ExecNodeOptions) (ExecNode, error) {
	if err := ValidateExecNodeInputs(plan, inputs, 1, "OrderBySinkNode"); err != nil {
		return nil, err
	}
	sortOpts, err := optionsPtr[OrderBySinkNodeOptions](opts, "order_by_sink")
	if err != nil {
		return nil, err
	}
	return newOrderBySinkNode(plan, inputs, &sortOpts.SinkNodeOptions,
		sortOpts.SortOptions.SortKeys, sortOpts.SortOptions.NullPlacement, -1)
}

func makeSelectKSinkNode(plan *ExecPlan, inputs []ExecNode, opts ExecNodeOptions) (ExecNode, error) {
	if err := ValidateExecNodeInputs(plan, inputs, 1, "OrderBySinkNode"); err != nil {
		return nil, err
	}
	selOpts, err := optionsPtr[SelectKSinkNodeOptions](opts, "select_k_sink")
	if err != nil {
		return nil, err
	}
	if selOpts.SelectKOptions.K < 0 {
		return nil, fmt.Errorf("%w: select_k requires a non-negative k, got %d",
			arrow.ErrInvalid, selOpts.SelectKOptions.K)
	}
	return newOrderBySinkNode(plan, inputs, &selOpts.SinkNodeOptions,
		selOpts.SelectKOptions.SortKeys, compute.NullsAtEnd, selOpts.SelectKOptions.K)
}

func (n *OrderBySinkNode) InputReceived(input ExecNode, batch ExecBatch) {
	debug.Assert(input == n.inputs[0], "batch from unknown input")
	n.metrics.batchesReceived.WithLabelValues(n.kind).Inc()

	rec, err := batch.ToRecord(n.plan.Allocator(), n.inputs[0].OutputSchema())
	batch.Release()
	if err != nil {
		level.Warn(n.logger).Log("msg", "cannot convert batch", "err", err)
		if n.counter.Cancel() {
			n.queue.pushError(err)
			n.finishSorted(err)
		}
		return
	}

	n.mu.Lock()
	if n.counter.Completed() {
		n.mu.Unlock()
		rec.Release()
		return
	}
	n.recs = append(n.recs, rec)
	n.mu.Unlock()

	if n.counter.Increment() {
		n.finishSorted(nil)
	}
}

// finishSorted emits whatever was accumulated, in order, then closes the
// reader. A received error is forwarded instead.
func (n *OrderBySinkNode) finishSorted(err error) {
	n.mu.Lock()
	recs := n.recs
	n.recs = nil
	n.mu.Unlock()
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()

	if err == nil {
		if err = n.emitSorted(recs); err != nil {
			level.Warn(n.logger).Log("msg", "sorting failed", "err", err)
			n.queue.pushError(err)
		}
	}
	n.SinkNode.finish(err)
}

func (n *OrderBySinkNode) emitSorted(recs []arrow.Record) error {
	if len(recs) == 0 {
		return nil
	}

	combined, err := concatRecords(n.plan, n.inputs[0].OutputSchema(), recs)
	if err != nil {
		return err
	}
	defer combined.Release()

	indices, err := compute.SortIndices(combined, n.keys, n.placement, n.k)
	if err != nil {
		return err
	}
	ctx := compute.WithAllocator(context.Background(), n.plan.Allocator())
	sorted, err := compute.TakeRecord(ctx, combined, indices)
	if err != nil {
		return err
	}
	defer sorted.Release()

	n.queue.push(NewExecBatch(sorted))
	return nil
}

func (n *OrderBySinkNode) String() string {
	return fmt.Sprintf("%s by=%v", n.BaseNode.String(), n.keys)
}

func concatRecords(plan *ExecPlan, schema *arrow.Schema, recs []arrow.Record) (arrow.Record, error) {
	if len(recs) == 1 {
		recs[0].Retain()
		return recs[0], nil
	}

	cols := make([]arrow.Array, schema.NumFields())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	var rows int64
	for _, r := range recs {
		rows += r.NumRows()
	}
	parts := make([]arrow.Array, len(recs))
	for i := range cols {
		for j, r := range recs {
			parts[j] = r.Column(i)
		}
		col, err := array.Concatenate(parts, plan.Allocator())
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return array.NewRecord(schema, cols, rows), nil
}
