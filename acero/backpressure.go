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
	"io"
	"sync"

	"github.com/apache/arrow/go/v17/arrow"
)

// BackpressureOptions bounds the bytes a sink buffers for its reader.
// Once more than PauseIfAbove bytes are queued the sink's input is
// paused, and it is resumed when the queue drains to ResumeIfBelow or
// less. A zero PauseIfAbove disables backpressure.
type BackpressureOptions struct {
	ResumeIfBelow uint64
	PauseIfAbove  uint64
}

// DefaultBackpressureOptions pauses above 1GiB and resumes below 256MiB.
func DefaultBackpressureOptions() BackpressureOptions {
	return BackpressureOptions{ResumeIfBelow: 1 << 28, PauseIfAbove: 1 << 30}
}

func NoBackpressure() BackpressureOptions { return BackpressureOptions{} }

func (o BackpressureOptions) ShouldApply() bool { return o.PauseIfAbove > 0 }

func (o BackpressureOptions) Validate() error {
	if o.ShouldApply() && o.ResumeIfBelow > o.PauseIfAbove {
		return fmt.Errorf("%w: backpressure resume threshold %d is above pause threshold %d",
			arrow.ErrInvalid, o.ResumeIfBelow, o.PauseIfAbove)
	}
	return nil
}

// BackpressureMonitor reports the state of a sink's queue.
type BackpressureMonitor interface {
	BytesInUse() uint64
	IsPaused() bool
}

type queueItem struct {
	batch ExecBatch
	err   error
}

// sinkQueue hands batches from a sink to its reader. toggle is invoked
// outside the lock whenever the queue crosses a threshold, with a counter
// that increases with every call so receivers can discard stale signals.
type sinkQueue struct {
	opts   BackpressureOptions
	toggle func(paused bool, counter int32)

	mu      sync.Mutex
	wake    *sync.Cond
	items   []queueItem
	closed  bool
	bytes   uint64
	paused  bool
	counter int32
}

func newSinkQueue(opts BackpressureOptions, toggle func(bool, int32)) *sinkQueue {
	q := &sinkQueue{opts: opts, toggle: toggle}
	q.wake = sync.NewCond(&q.mu)
	return q
}

// push enqueues batch, taking ownership of it. It reports false, and
// releases the batch, if the queue was already closed.
func (q *sinkQueue) push(batch ExecBatch) bool {
	size := batch.TotalBytes()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		batch.Release()
		return false
	}
	q.items = append(q.items, queueItem{batch: batch})
	q.bytes += size
	toggled, counter := false, int32(0)
	if q.opts.ShouldApply() && !q.paused && q.bytes > q.opts.PauseIfAbove {
		q.paused = true
		q.counter++
		toggled, counter = true, q.counter
	}
	q.wake.Signal()
	q.mu.Unlock()

	if toggled && q.toggle != nil {
		q.toggle(true, counter)
	}
	return true
}

func (q *sinkQueue) pushError(err error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, queueItem{err: err})
	q.wake.Signal()
	return true
}

// close ends the stream once the queued items are read. It reports
// whether this call closed the queue.
func (q *sinkQueue) close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.closed = true
	q.wake.Broadcast()
	return true
}

func (q *sinkQueue) pop(ctx context.Context) (ExecBatch, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.wake.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	for len(q.items) == 0 && !q.closed {
		if ctx.Err() != nil {
			q.mu.Unlock()
			return ExecBatch{}, context.Cause(ctx)
		}
		q.wake.Wait()
	}
	if len(q.items) == 0 {
		q.mu.Unlock()
		return ExecBatch{}, io.EOF
	}

	item := q.items[0]
	q.items[0] = queueItem{}
	q.items = q.items[1:]
	q.bytes -= item.batch.TotalBytes()

	toggled, counter := false, int32(0)
	if q.paused && q.bytes <= q.opts.ResumeIfBelow {
		q.paused = false
		q.counter++
		toggled, counter = true, q.counter
	}
	q.mu.Unlock()

	if toggled && q.toggle != nil {
		q.toggle(false, counter)
	}
	return item.batch, item.err
}

func (q *sinkQueue) BytesInUse() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.bytes
}

func (q *sinkQueue) IsPaused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

// SinkReader pulls the batches collected by a sink node.
type SinkReader struct {
	q *sinkQueue
}

// Next blocks until a batch is available and returns it; the caller owns
// and must release it. Next returns io.EOF once the sink finished and
// every batch was read, or the error the sink received.
func (r *SinkReader) Next(ctx context.Context) (ExecBatch, error) {
	return r.q.pop(ctx)
}

// Monitor exposes the reader's backpressure state.
func (r *SinkReader) Monitor() BackpressureMonitor { return r.q }
