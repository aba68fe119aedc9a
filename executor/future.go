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
	"sync"

	"github.com/acero-go/acero/internal/debug"
)

// Empty is the value type of futures which only signal completion.
type Empty = struct{}

// Future holds the eventual result of an asynchronous operation.
// Callbacks added before completion run on the goroutine that marks the
// future finished, in the order they were added; callbacks added after
// completion run immediately on the caller's goroutine.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	finished  bool
	val       T
	err       error
	callbacks []func(T, error)
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// FinishedFuture returns a future which is already complete.
func FinishedFuture[T any](val T, err error) *Future[T] {
	f := NewFuture[T]()
	f.MarkFinished(val, err)
	return f
}

// MarkFinished completes the future and runs its callbacks. A future can
// only be finished once; later calls are ignored.
func (f *Future[T]) MarkFinished(val T, err error) {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		debug.Assert(false, "future marked finished twice")
		return
	}
	f.finished, f.val, f.err = true, val, err
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(val, err)
	}
}

func (f *Future[T]) IsFinished() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished
}

// Done returns a channel closed when the future completes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Result blocks until the future completes and returns its outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// Err blocks until the future completes and returns its error.
func (f *Future[T]) Err() error {
	_, err := f.Result()
	return err
}

// Wait blocks until the future completes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, context.Cause(ctx)
	}
}

func (f *Future[T]) AddCallback(cb func(T, error)) {
	f.mu.Lock()
	if !f.finished {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	cb(f.val, f.err)
}

// TryAddCallback adds the callback built by factory only if the future
// is not yet finished, reporting whether it did.
func (f *Future[T]) TryAddCallback(factory func() func(T, error)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished {
		return false
	}
	f.callbacks = append(f.callbacks, factory())
	return true
}

// Then returns a future completed with fn applied to the value of f, or
// with the error of f if it failed, in which case fn is not called.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	next := NewFuture[U]()
	f.AddCallback(func(val T, err error) {
		if err != nil {
			var zero U
			next.MarkFinished(zero, err)
			return
		}
		next.MarkFinished(fn(val))
	})
	return next
}

// AllComplete returns a future finished once every future in futs has
// finished, failed with the first error among them in argument order.
func AllComplete[T any](futs ...*Future[T]) *Future[Empty] {
	out := NewFuture[Empty]()
	if len(futs) == 0 {
		out.MarkFinished(Empty{}, nil)
		return out
	}

	var (
		mu        sync.Mutex
		remaining = len(futs)
		errs      = make([]error, len(futs))
	)
	for i, f := range futs {
		i := i
		f.AddCallback(func(_ T, err error) {
			mu.Lock()
			errs[i] = err
			remaining--
			last := remaining == 0
			mu.Unlock()

			if !last {
				return
			}
			for _, e := range errs {
				if e != nil {
					out.MarkFinished(Empty{}, e)
					return
				}
			}
			out.MarkFinished(Empty{}, nil)
		})
	}
	return out
}
