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

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the collectors shared by the plans created with them.
// Create them once per registerer.
type Metrics struct {
	plansFinished      *prometheus.CounterVec
	batchesReceived    *prometheus.CounterVec
	backpressurePauses prometheus.Counter
}

// NewMetrics creates plan metrics registered with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		plansFinished: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "acero_plan_finished_total",
			Help: "Total number of execution plans which finished, by outcome.",
		}, []string{"status"}),
		batchesReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "acero_sink_batches_received_total",
			Help: "Total number of batches received by sink nodes.",
		}, []string{"kind"}),
		backpressurePauses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "acero_sink_backpressure_pauses_total",
			Help: "Total number of times a sink paused its input.",
		}),
	}
}
