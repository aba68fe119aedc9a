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
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/klauspost/cpuid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Environment variables consulted by DefaultCapacity, in order.
const (
	EnvNumThreads    = "ACERO_NUM_THREADS"
	EnvOMPNumThreads = "OMP_NUM_THREADS"
	EnvOMPThreadLim  = "OMP_THREAD_LIMIT"
)

type config struct {
	name   string
	logger log.Logger
	reg    prometheus.Registerer
}

type Option func(*config)

// WithName sets the executor's name, used as a metric label and in logs.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithRegisterer registers the executor's metrics with reg. Without it
// the metrics are collected but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) { c.reg = reg }
}

func newConfig(defaultName string, opts []Option) config {
	cfg := config{name: defaultName, logger: log.NewNopLogger()}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// DefaultCapacity returns the number of workers for the process-wide
// CPU pool. ACERO_NUM_THREADS takes precedence, then the first entry of
// OMP_NUM_THREADS, then the number of logical cores. The result is
// bounded by OMP_THREAD_LIMIT when set.
func DefaultCapacity() int {
	n := parseThreads(os.Getenv(EnvNumThreads))
	if n <= 0 {
		first, _, _ := strings.Cut(os.Getenv(EnvOMPNumThreads), ",")
		n = parseThreads(first)
	}
	if n <= 0 {
		n = cpuid.CPU.LogicalCores
	}
	if n <= 0 {
		n = runtime.NumCPU()
	}

	if limit := parseThreads(os.Getenv(EnvOMPThreadLim)); limit > 0 && n > limit {
		n = limit
	}
	return n
}

func parseThreads(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
