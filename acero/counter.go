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

import "go.uber.org/atomic"

// AtomicCounter tracks the batches a node has received against the total
// its input announced. Exactly one call among Increment, SetTotal and
// Cancel reports completion, whatever the interleaving.
type AtomicCounter struct {
	count atomic.Int64
	// total+1, so the zero value means no total yet
	total    atomic.Int64
	complete atomic.Bool
}

func (c *AtomicCounter) Count() int { return int(c.count.Load()) }

// Total returns the announced total, if any.
func (c *AtomicCounter) Total() (int, bool) {
	t := c.total.Load()
	return int(t - 1), t != 0
}

// Increment records one more batch and reports whether this call
// completed the counter.
func (c *AtomicCounter) Increment() bool {
	count := c.count.Inc()
	if count+1 != c.total.Load() {
		return false
	}
	return c.doneOnce()
}

// SetTotal announces the number of batches to expect and reports
// whether this call completed the counter.
func (c *AtomicCounter) SetTotal(total int) bool {
	c.total.Store(int64(total) + 1)
	if c.count.Load() != int64(total) {
		return false
	}
	return c.doneOnce()
}

// Cancel completes the counter early, reporting whether it was this call
// that did so.
func (c *AtomicCounter) Cancel() bool { return c.doneOnce() }

func (c *AtomicCounter) Completed() bool { return c.complete.Load() }

func (c *AtomicCounter) doneOnce() bool { return c.complete.CompareAndSwap(false, true) }
