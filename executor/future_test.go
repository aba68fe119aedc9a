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

package executor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/acero-go/acero/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureCallbacks(t *testing.T) {
	fut := executor.NewFuture[int]()
	assert.False(t, fut.IsFinished())

	var order []string
	fut.AddCallback(func(v int, err error) { order = append(order, "first") })
	fut.AddCallback(func(v int, err error) {
		assert.Equal(t, 7, v)
		assert.NoError(t, err)
		order = append(order, "second")
	})
	assert.Empty(t, order)

	fut.MarkFinished(7, nil)
	assert.True(t, fut.IsFinished())
	assert.Equal(t, []string{"first", "second"}, order)

	fut.AddCallback(func(int, error) { order = append(order, "late") })
	assert.Equal(t, []string{"first", "second", "late"}, order)

	v, err := fut.Result()
	assert.NoError(t, err)
	assert.Equal(t, 7, v)

	select {
	case <-fut.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestFutureTryAddCallback(t *testing.T) {
	fut := executor.NewFuture[string]()
	calls := 0
	added := fut.TryAddCallback(func() func(string, error) {
		return func(string, error) { calls++ }
	})
	assert.True(t, added)

	fut.MarkFinished("x", nil)
	assert.Equal(t, 1, calls)

	added = fut.TryAddCallback(func() func(string, error) {
		t.Fatal("factory must not be called on a finished future")
		return nil
	})
	assert.False(t, added)
}

func TestFutureWaitContext(t *testing.T) {
	fut := executor.NewFuture[int]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fut.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	fut.MarkFinished(3, nil)
	v, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestThen(t *testing.T) {
	src := executor.NewFuture[int]()
	doubled := executor.Then(src, func(v int) (int, error) { return v * 2, nil })
	src.MarkFinished(21, nil)
	v, err := doubled.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	failed := executor.FinishedFuture(0, boom)
	called := false
	next := executor.Then(failed, func(int) (string, error) {
		called = true
		return "", nil
	})
	assert.ErrorIs(t, next.Err(), boom)
	assert.False(t, called)
}

func TestAllComplete(t *testing.T) {
	a, b, c := executor.NewFuture[int](), executor.NewFuture[int](), executor.NewFuture[int]()
	all := executor.AllComplete(a, b, c)

	errB, errC := errors.New("b failed"), errors.New("c failed")
	c.MarkFinished(0, errC)
	assert.False(t, all.IsFinished())
	b.MarkFinished(0, errB)
	assert.False(t, all.IsFinished())
	a.MarkFinished(1, nil)

	require.True(t, all.IsFinished())
	assert.ErrorIs(t, all.Err(), errB)

	assert.NoError(t, executor.AllComplete[int]().Err())
	assert.NoError(t, executor.AllComplete(executor.FinishedFuture(1, nil)).Err())
}
