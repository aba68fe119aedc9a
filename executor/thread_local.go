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
)

// ThreadLocalState hands each worker of an executor its own instance of
// T, created lazily on first use. Finish collects the instances and
// invalidates the state, as does resizing the executor since worker
// indices are only stable for a fixed capacity.
type ThreadLocalState[T any] struct {
	exec     Executor
	capacity int

	mu       sync.Mutex
	states   []*T
	finished bool
}

func NewThreadLocalState[T any](e Executor) *ThreadLocalState[T] {
	capacity := e.Capacity()
	return &ThreadLocalState[T]{exec: e, capacity: capacity, states: make([]*T, capacity)}
}

// Get returns the instance for the worker running ctx. It fails with
// ErrNotOwned when ctx does not come from one of the executor's workers
// and with ErrStateInvalidated after Finish or a capacity change.
func (s *ThreadLocalState[T]) Get(ctx context.Context) (*T, error) {
	idx, ok := workerFrom(ctx, s.exec)
	if !ok {
		return nil, ErrNotOwned
	}

	if s.exec.Capacity() != s.capacity {
		return nil, ErrStateInvalidated
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || idx >= len(s.states) {
		return nil, ErrStateInvalidated
	}
	if s.states[idx] == nil {
		s.states[idx] = new(T)
	}
	return s.states[idx], nil
}

// Finish returns every instance created so far, ordered by worker index.
func (s *ThreadLocalState[T]) Finish() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true

	out := make([]T, 0, len(s.states))
	for _, st := range s.states {
		if st != nil {
			out = append(out, *st)
		}
	}
	s.states = nil
	return out
}
