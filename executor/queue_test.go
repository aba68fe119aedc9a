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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueueOrder(t *testing.T) {
	var (
		q   taskQueue
		ran []int32
	)
	for _, prio := range []int32{1, 3, 1, 2, 3} {
		prio := prio
		cfg := newSpawnConfig([]SpawnOption{WithHints(TaskHints{Priority: prio})})
		q.push(func(context.Context) { ran = append(ran, prio) }, cfg)
	}

	first := q.pop()
	assert.Equal(t, int32(3), first.cfg.hints.Priority)
	assert.Equal(t, uint64(2), first.seq)

	rest := q.drain()
	assert.Zero(t, q.Len())
	var seqs []uint64
	for _, task := range rest {
		task.run(context.Background())
		seqs = append(seqs, task.seq)
	}
	assert.Equal(t, []int32{3, 2, 1, 1}, ran)
	assert.Equal(t, []uint64{5, 4, 1, 3}, seqs)
}

func TestQueuedTaskStopped(t *testing.T) {
	src := NewStopSource()
	reason := errors.New("abandoned")
	src.RequestStopWith(reason)

	var got []error
	cfg := newSpawnConfig([]SpawnOption{
		WithStopToken(src.Token(), func(err error) { got = append(got, err) }),
		withStopCallback(func(err error) { got = append(got, err) }),
	})
	task := &queuedTask{fn: func(context.Context) { t.Fatal("stopped task ran") }, cfg: cfg}
	task.run(context.Background())

	require.Len(t, got, 2)
	assert.ErrorIs(t, got[0], reason)
	assert.ErrorIs(t, got[1], reason)
}

func TestDefaultSpawnConfig(t *testing.T) {
	cfg := newSpawnConfig(nil)
	assert.Equal(t, DefaultTaskHints(), cfg.hints)
	assert.False(t, cfg.token.IsStopRequested())
	assert.Nil(t, cfg.onStop)
}

func TestThreadPoolMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewThreadPool(2, WithName("test"), WithRegisterer(reg))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Spawn(func(context.Context) {}))
	}
	p.WaitForIdle()

	assert.Equal(t, float64(5), testutil.ToFloat64(p.m.spawned))
	assert.Equal(t, float64(5), testutil.ToFloat64(p.m.completed))
	assert.Equal(t, float64(0), testutil.ToFloat64(p.m.queueLength))

	n, err := testutil.GatherAndCount(reg, "acero_executor_tasks_spawned_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, p.Shutdown(true))
}

func TestParseThreads(t *testing.T) {
	for in, want := range map[string]int{"4": 4, " 8 ": 8, "": 0, "x": 0, "-2": -2} {
		assert.Equal(t, want, parseThreads(in), in)
	}
}
