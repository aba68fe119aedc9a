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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	spawned     prometheus.Counter
	completed   prometheus.Counter
	queueLength prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer, name string) *metrics {
	labels := prometheus.Labels{"executor": name}
	return &metrics{
		spawned: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "acero_executor_tasks_spawned_total",
			Help:        "Total number of tasks spawned on the executor.",
			ConstLabels: labels,
		}),
		completed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "acero_executor_tasks_completed_total",
			Help:        "Total number of tasks the executor ran or discarded.",
			ConstLabels: labels,
		}),
		queueLength: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name:        "acero_executor_queue_length",
			Help:        "Number of tasks waiting for a worker.",
			ConstLabels: labels,
		}),
	}
}
