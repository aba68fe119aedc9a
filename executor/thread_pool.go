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
	"fmt"
	"sync"

	"github.com/go-kit/log/level"
	"go.uber.org/atomic"
)

// ThreadPool runs tasks on a resizable set of worker goroutines, taking
// them from a shared queue ordered by TaskHints.Priority.
//
// Each worker has a stable index in [0, Capacity()) for as long as the
// capacity is unchanged. Shrinking the pool retires the workers with the
// highest indices once their current task completes.
type ThreadPool struct {
	cfg config
	m   *metrics

	mu           sync.Mutex
	work         *sync.Cond
	idle         *sync.Cond
	queue        taskQueue
	desired      int
	alive        map[int]bool
	running      int
	shuttingDown bool
	workers      sync.WaitGroup

	numTasks atomic.Int64
}

// NewThreadPool starts a pool with the given number of workers.
func NewThreadPool(capacity int, opts ...Option) (*ThreadPool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("executor: thread pool capacity must be positive, got %d", capacity)
	}

	cfg := newConfig("thread_pool", opts)
	p := &ThreadPool{
		cfg:     cfg,
		m:       newMetrics(cfg.reg, cfg.name),
		desired: capacity,
		alive:   make(map[int]bool),
	}
	p.work = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)

	p.mu.Lock()
	p.launchWorkersLocked()
	p.mu.Unlock()
	return p, nil
}

func (p *ThreadPool) launchWorkersLocked() {
	for i := 0; i < p.desired; i++ {
		if p.alive[i] {
			continue
		}
		p.alive[i] = true
		p.workers.Add(1)
		go p.workerLoop(i)
	}
}

func (p *ThreadPool) workerLoop(index int) {
	defer p.workers.Done()

	logger := level.Debug(p.cfg.logger)
	logger.Log("msg", "worker started", "executor", p.cfg.name, "index", index)
	ctx := withWorker(context.Background(), p, index)

	p.mu.Lock()
	for index < p.desired {
		if p.queue.Len() > 0 {
			t := p.queue.pop()
			p.m.queueLength.Set(float64(p.queue.Len()))
			p.running++
			p.mu.Unlock()

			t.run(ctx)
			p.numTasks.Dec()
			p.m.completed.Inc()

			p.mu.Lock()
			p.running--
			p.signalIdleLocked()
			continue
		}

		if p.shuttingDown {
			break
		}
		p.work.Wait()
	}
	delete(p.alive, index)
	p.mu.Unlock()

	logger.Log("msg", "worker stopped", "executor", p.cfg.name, "index", index)
}

func (p *ThreadPool) signalIdleLocked() {
	if p.running == 0 && p.queue.Len() == 0 {
		p.idle.Broadcast()
	}
}

func (p *ThreadPool) Spawn(task Task, opts ...SpawnOption) error {
	cfg := newSpawnConfig(opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shuttingDown {
		return ErrShutdown
	}

	p.queue.push(task, cfg)
	p.numTasks.Inc()
	p.m.spawned.Inc()
	p.m.queueLength.Set(float64(p.queue.Len()))
	p.work.Signal()
	return nil
}

func (p *ThreadPool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.desired
}

// SetCapacity grows or shrinks the pool. Growing starts workers
// immediately, shrinking takes effect as the retired workers go idle.
func (p *ThreadPool) SetCapacity(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("executor: thread pool capacity must be positive, got %d", capacity)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shuttingDown {
		return ErrShutdown
	}

	level.Debug(p.cfg.logger).Log("msg", "resizing thread pool", "executor", p.cfg.name,
		"from", p.desired, "to", capacity)
	p.desired = capacity
	p.launchWorkersLocked()
	p.work.Broadcast()
	return nil
}

// NumTasks returns the number of tasks queued or running.
func (p *ThreadPool) NumTasks() int { return int(p.numTasks.Load()) }

func (p *ThreadPool) OwnsThisThread(ctx context.Context) bool {
	_, ok := workerFrom(ctx, p)
	return ok
}

func (p *ThreadPool) ThreadIndex(ctx context.Context) int {
	idx, _ := workerFrom(ctx, p)
	return idx
}

// WaitForIdle blocks until no task is queued or running.
func (p *ThreadPool) WaitForIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.running > 0 || p.queue.Len() > 0 {
		p.idle.Wait()
	}
}

// Shutdown stops the pool and waits for its workers to exit. With wait
// the queued tasks run first; otherwise they are discarded and their stop
// callbacks receive ErrShutdown. Spawning after Shutdown fails.
func (p *ThreadPool) Shutdown(wait bool) error {
	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return fmt.Errorf("%w: Shutdown already called", ErrShutdown)
	}
	p.shuttingDown = true

	var discarded []*queuedTask
	if !wait {
		discarded = p.queue.drain()
		p.m.queueLength.Set(0)
		p.signalIdleLocked()
	}
	p.work.Broadcast()
	p.mu.Unlock()

	if len(discarded) > 0 {
		level.Warn(p.cfg.logger).Log("msg", "discarding queued tasks on shutdown",
			"executor", p.cfg.name, "tasks", len(discarded))
	}
	for _, t := range discarded {
		t.stop(ErrShutdown)
		p.numTasks.Dec()
		p.m.completed.Inc()
	}

	p.workers.Wait()
	return nil
}

var (
	cpuPool     *ThreadPool
	cpuPoolOnce sync.Once
)

// GetCPUThreadPool returns the process-wide pool sized by
// DefaultCapacity. It lives for the life of the process.
func GetCPUThreadPool() *ThreadPool {
	cpuPoolOnce.Do(func() {
		pool, err := NewThreadPool(DefaultCapacity(), WithName("cpu"))
		if err != nil {
			panic(err)
		}
		cpuPool = pool
	})
	return cpuPool
}

func GetCPUThreadPoolCapacity() int { return GetCPUThreadPool().Capacity() }

func SetCPUThreadPoolCapacity(n int) error { return GetCPUThreadPool().SetCapacity(n) }
