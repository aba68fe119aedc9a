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

package executor

import (
	"container/heap"
	"context"
)

type queuedTask struct {
	fn  Task
	cfg spawnConfig
	seq uint64
}

// taskQueue orders tasks by descending priority, then by submission.
type taskQueue struct {
	items []*queuedTask
	seq   uint64
}

func (q *taskQueue) Len() int { return len(q.items) }
func (q *taskQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.cfg.hints.Priority != b.cfg.hints.Priority {
		return a.cfg.hints.Priority > b.cfg.hints.Priority
	}
	return a.seq < b.seq
}
func (q *taskQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *taskQueue) Push(x any)    { q.items = append(q.items, x.(*queuedTask)) }
func (q *taskQueue) Pop() any {
	n := len(q.items)
	t := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	return t
}

func (q *taskQueue) push(fn Task, cfg spawnConfig) {
	q.seq++
	heap.Push(q, &queuedTask{fn: fn, cfg: cfg, seq: q.seq})
}

func (q *taskQueue) pop() *queuedTask {
	return heap.Pop(q).(*queuedTask)
}

// drain empties the queue and returns its tasks in run order.
func (q *taskQueue) drain() []*queuedTask {
	out := make([]*queuedTask, 0, q.Len())
	for q.Len() > 0 {
		out = append(out, q.pop())
	}
	return out
}

// run executes t unless its stop token has been triggered, in which case
// only its stop callback is invoked.
func (t *queuedTask) run(ctx context.Context) {
	if err := t.cfg.token.Poll(); err != nil {
		t.stop(err)
		return
	}
	t.fn(ctx)
}

func (t *queuedTask) stop(err error) {
	if t.cfg.onStop != nil {
		t.cfg.onStop(err)
	}
}
