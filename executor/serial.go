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
	"io"
	"sync"
)

// AsyncGenerator produces a sequence of values, one future per call. The
// end of the sequence is signalled by a future failed with io.EOF.
type AsyncGenerator[T any] func() *Future[T]

// SerialExecutor runs every task on the goroutine that drives its run
// loop, one at a time. It is only reachable through RunInSerialExecutor
// and IterateGenerator, which own that loop.
type SerialExecutor struct {
	mu       sync.Mutex
	wake     *sync.Cond
	queue    taskQueue
	paused   bool
	finished bool
}

func newSerialExecutor() *SerialExecutor {
	s := &SerialExecutor{}
	s.wake = sync.NewCond(&s.mu)
	return s
}

func (s *SerialExecutor) Spawn(task Task, opts ...SpawnOption) error {
	cfg := newSpawnConfig(opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return ErrShutdown
	}
	s.queue.push(task, cfg)
	s.wake.Signal()
	return nil
}

func (s *SerialExecutor) Capacity() int { return 1 }

func (s *SerialExecutor) OwnsThisThread(ctx context.Context) bool {
	_, ok := workerFrom(ctx, s)
	return ok
}

func (s *SerialExecutor) ThreadIndex(ctx context.Context) int {
	idx, _ := workerFrom(ctx, s)
	return idx
}

func (s *SerialExecutor) pause() {
	s.mu.Lock()
	s.paused = true
	s.wake.Broadcast()
	s.mu.Unlock()
}

func (s *SerialExecutor) unpause() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// finish stops accepting tasks. The run loop still drains what is queued.
func (s *SerialExecutor) finish() {
	s.mu.Lock()
	s.finished = true
	s.wake.Broadcast()
	s.mu.Unlock()
}

// runLoop runs queued tasks on the calling goroutine until the executor
// is paused, finished and empty, or ctx is done. Tasks left queued when
// ctx ends are discarded through their stop callbacks.
func (s *SerialExecutor) runLoop(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.wake.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	taskCtx := withWorker(ctx, s, 0)

	s.mu.Lock()
	for !s.paused && !(s.finished && s.queue.Len() == 0) {
		if ctx.Err() != nil {
			discarded := s.queue.drain()
			s.finished = true
			s.mu.Unlock()

			err := context.Cause(ctx)
			for _, t := range discarded {
				t.stop(err)
			}
			return err
		}

		if s.queue.Len() == 0 {
			s.wake.Wait()
			continue
		}

		t := s.queue.pop()
		s.mu.Unlock()
		t.run(taskCtx)
		s.mu.Lock()
	}
	s.mu.Unlock()
	return nil
}

// RunInSerialExecutor calls initial with a fresh serial executor and runs
// that executor's tasks on the calling goroutine until the returned
// future completes. The context handed to initial is owned by the
// executor.
func RunInSerialExecutor[T any](ctx context.Context, initial func(ctx context.Context, e Executor) *Future[T]) (T, error) {
	s := newSerialExecutor()
	fut := initial(withWorker(ctx, s, 0), s)
	fut.AddCallback(func(T, error) { s.finish() })

	if err := s.runLoop(ctx); err != nil {
		var zero T
		return zero, err
	}
	return fut.Result()
}

// RunSynchronously runs fn to completion and returns its result. With
// useThreads the work is spawned on the CPU thread pool, otherwise on a
// serial executor driven by the calling goroutine.
func RunSynchronously[T any](ctx context.Context, fn func(ctx context.Context, e Executor) *Future[T], useThreads bool) (T, error) {
	if useThreads {
		return fn(ctx, GetCPUThreadPool()).Wait(ctx)
	}
	return RunInSerialExecutor(ctx, fn)
}

// SerialIterator pulls values from an AsyncGenerator whose work is
// scheduled on a serial executor, running that work on the goroutine
// calling Next.
type SerialIterator[T any] struct {
	ctx  context.Context
	exec *SerialExecutor
	gen  AsyncGenerator[T]
	err  error
}

// IterateGenerator builds a generator with a fresh serial executor and
// returns an iterator over its values. Close must be called once the
// iterator is no longer needed.
func IterateGenerator[T any](ctx context.Context, initial func(ctx context.Context, e Executor) (AsyncGenerator[T], error)) (*SerialIterator[T], error) {
	s := newSerialExecutor()
	gen, err := initial(withWorker(ctx, s, 0), s)
	if err != nil {
		s.finish()
		return nil, err
	}
	return &SerialIterator[T]{ctx: ctx, exec: s, gen: gen}, nil
}

// Next returns the next value of the sequence, io.EOF once it is
// exhausted, or the error that ended it. After an error every further
// call returns the same error.
func (it *SerialIterator[T]) Next() (T, error) {
	var zero T
	if it.err != nil {
		return zero, it.err
	}

	fut := it.gen()
	if !fut.IsFinished() {
		fut.AddCallback(func(T, error) { it.exec.pause() })
		if err := it.exec.runLoop(it.ctx); err != nil {
			it.err = err
			return zero, err
		}
		it.exec.unpause()
	}

	if !fut.IsFinished() {
		it.err = errors.New("executor: generator future abandoned with no work left to run")
		return zero, it.err
	}

	val, err := fut.Result()
	if err != nil {
		it.err = err
		if errors.Is(err, io.EOF) {
			it.err = io.EOF
		}
		return zero, it.err
	}
	return val, nil
}

// Close stops the executor and runs whatever work is still queued so
// outstanding futures complete.
func (it *SerialIterator[T]) Close() error {
	it.exec.finish()
	it.exec.unpause()
	return it.exec.runLoop(it.ctx)
}
