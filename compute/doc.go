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

// Package compute evaluates functions over arrow arrays and scalars.
//
// Functions are looked up by name in a FunctionRegistry and invoked with
// CallFunction. Each scalar function owns a set of kernels keyed by input
// signature; when no kernel matches the argument types exactly the
// function's DispatchBest promotes the argument types (integer widening,
// decimal rescaling, temporal unit refinement, binary widening) and the
// arguments are implicitly cast through the CastTable of the ExecCtx
// before the kernel runs.
//
// Dispatch errors (arrow.ErrNotImplemented, arrow.ErrType) are reported
// before any value is read. Errors raised while evaluating values, such
// as an overflowing safe cast, are wrapped around arrow.ErrInvalid.
//
// The registry built by GetFunctionRegistry holds "cast", the six
// comparison functions, "compare", "between", "and",
// "min_element_wise" and "max_element_wise".
package compute
