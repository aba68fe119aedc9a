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
	"context"
	"errors"

	"golang.org/x/xerrors"
)

var (
	// ErrShutdown is returned when spawning on an executor which was shut
	// down, and reported to the stop callbacks of tasks it discarded.
	ErrShutdown = errors.New("executor: shut down")
	// ErrNotOwned is returned by ThreadLocalState.Get when called from a
	// goroutine that is not a worker of the state's executor.
	ErrNotOwned = errors.New("executor: not running on a worker of this executor")
	// ErrStateInvalidated is returned by ThreadLocalState.Get after the
	// state was finished or the executor's capacity changed.
	ErrStateInvalidated = errors.New("executor: thread local state invalidated")
)

// TaskHints are advisory scheduling attributes. Executors run tasks of
// higher Priority first and equal priorities in submission order. The
// size and cost fields default to -1 meaning unknown.
type TaskHints struct {
	Priority   int32
	IOSize     int64
	CPUCost    int64
	ExternalID int64
}

func DefaultTaskHints() TaskHints {
	return TaskHints{IOSize: -1, CPUCost: -1, ExternalID: -1}
}

// Task is a unit of work. The context identifies the worker running it.
type Task func(ctx context.Context)

type spawnConfig struct {
	hints  TaskHints
	token  StopToken
	onStop func(error)
}

type SpawnOption func(*spawnConfig)

func WithHints(hints TaskHints) SpawnOption {
	return func(c *spawnConfig) { c.hints = hints }
}

// WithStopToken makes the task cancellable: if tok is stopped by the time
// a worker picks the task up, the task is skipped and onStop, which may be
// nil, receives the cancellation error instead.
func WithStopToken(tok StopToken, onStop func(error)) SpawnOption {
	return func(c *spawnConfig) {
		c.token = tok
		c.onStop = chainStop(c.onStop, onStop)
	}
}

func withStopCallback(onStop func(error)) SpawnOption {
	return func(c *spawnConfig) { c.onStop = chainStop(c.onStop, onStop) }
}

func chainStop(first, second func(error)) func(error) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return func(err error) {
		first(err)
		second(err)
	}
}

func newSpawnConfig(opts []SpawnOption) spawnConfig {
	cfg := spawnConfig{hints: DefaultTaskHints()}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Executor runs tasks asynchronously.
type Executor interface {
	Spawn(task Task, opts ...SpawnOption) error
	// Capacity is the number of tasks the executor may run concurrently.
	Capacity() int
	// OwnsThisThread reports whether ctx belongs to a task running on one
	// of this executor's workers.
	OwnsThisThread(ctx context.Context) bool
	// ThreadIndex returns the index, in [0, Capacity()), of the worker
	// running the task ctx was handed to, or -1.
	ThreadIndex(ctx context.Context) int
}

type workerKey struct{}

type workerInfo struct {
	owner Executor
	index int
}

func withWorker(ctx context.Context, owner Executor, index int) context.Context {
	return context.WithValue(ctx, workerKey{}, workerInfo{owner: owner, index: index})
}

func workerFrom(ctx context.Context, owner Executor) (int, bool) {
	w, ok := ctx.Value(workerKey{}).(workerInfo)
	if !ok || w.owner != owner {
		return -1, false
	}
	return w.index, true
}

// Submit spawns fn on e and returns a future for its result. If the task
// is cancelled through a stop token before it runs, the future fails
// with the cancellation error.
func Submit[T any](e Executor, fn func(ctx context.Context) (T, error), opts ...SpawnOption) (*Future[T], error) {
	fut := NewFuture[T]()
	opts = append(opts, withStopCallback(func(err error) {
		var zero T
		fut.MarkFinished(zero, err)
	}))

	err := e.Spawn(func(ctx context.Context) {
		fut.MarkFinished(fn(ctx))
	}, opts...)
	if err != nil {
		return nil, xerrors.Errorf("submitting task: %w", err)
	}
	return fut, nil
}

// Transfer returns a future whose callbacks run on e rather than on the
// goroutine that completes fut. If fut is already finished it is returned
// unchanged, since its callbacks would run inline anyway.
func Transfer[T any](e Executor, fut *Future[T]) *Future[T] {
	transferred := NewFuture[T]()
	added := fut.TryAddCallback(func() func(T, error) {
		return transferCallback(e, transferred)
	})
	if !added {
		return fut
	}
	return transferred
}

// TransferAlways is like Transfer but schedules on e even when fut has
// already finished.
func TransferAlways[T any](e Executor, fut *Future[T]) *Future[T] {
	transferred := NewFuture[T]()
	fut.AddCallback(transferCallback(e, transferred))
	return transferred
}

func transferCallback[T any](e Executor, transferred *Future[T]) func(T, error) {
	return func(val T, err error) {
		spawnErr := e.Spawn(func(context.Context) { transferred.MarkFinished(val, err) })
		if spawnErr != nil {
			var zero T
			transferred.MarkFinished(zero, spawnErr)
		}
	}
}
