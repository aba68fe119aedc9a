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

// Package acero implements a push-based streaming execution plan: a DAG
// of nodes exchanging ExecBatches, terminated by sink nodes which turn
// the pushed batches into a completion future.
//
// Producers call InputReceived on their single output for each batch,
// followed by exactly one InputFinished carrying the total number of
// batches sent. The two may arrive in any order, so nodes track the
// count with an AtomicCounter and finish exactly once. A batch passed to
// InputReceived is owned by the receiver, which must release it.
//
// Sink nodes have no outputs. Calling PauseProducing, ResumeProducing or
// StopProducingFor on one indicates a malformed plan and panics.
package acero
