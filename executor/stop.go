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

	"go.uber.org/atomic"
)

// ErrCancelled is the error reported by a StopSource stopped without an
// explicit reason.
var ErrCancelled = errors.New("executor: operation cancelled")

// StopSource requests cancellation of the operations holding one of its
// tokens. Requesting a stop is idempotent; only the first reason is kept.
type StopSource struct {
	requested atomic.Bool
	err       atomic.Error
}

func NewStopSource() *StopSource { return &StopSource{} }

// RequestStop cancels with ErrCancelled.
func (s *StopSource) RequestStop() { s.RequestStopWith(ErrCancelled) }

// RequestStopWith cancels with err as the reason.
func (s *StopSource) RequestStopWith(err error) {
	if s.requested.CompareAndSwap(false, true) {
		s.err.Store(err)
	}
}

func (s *StopSource) Token() StopToken { return StopToken{src: s} }

// StopToken is the read side of a StopSource. The zero value is a token
// which can never be stopped.
type StopToken struct {
	src *StopSource
}

// Unstoppable returns a token which is never cancelled.
func Unstoppable() StopToken { return StopToken{} }

func (t StopToken) IsStopRequested() bool {
	return t.src != nil && t.src.requested.Load()
}

// Poll returns the cancellation reason, or nil if no stop was requested.
func (t StopToken) Poll() error {
	if !t.IsStopRequested() {
		return nil
	}
	// the flag is set before the error is stored
	if err := t.src.err.Load(); err != nil {
		return err
	}
	return ErrCancelled
}

// StopTokenFromContext returns a token stopped when ctx is done. The
// returned release function must be called to free the watcher.
func StopTokenFromContext(ctx context.Context) (StopToken, func()) {
	src := NewStopSource()
	stop := context.AfterFunc(ctx, func() { src.RequestStopWith(context.Cause(ctx)) })
	return src.Token(), func() { stop() }
}
