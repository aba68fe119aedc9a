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

package kernels

import (
	"fmt"

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

type CastOptions struct {
	ToType               arrow.DataType `compute:"to_type"`
	AllowIntOverflow     bool           `compute:"allow_int_overflow"`
	AllowTimeTruncate    bool           `compute:"allow_time_truncate"`
	AllowTimeOverflow    bool           `compute:"allow_time_overflow"`
	AllowDecimalTruncate bool           `compute:"allow_decimal_truncate"`
	AllowFloatTruncate   bool           `compute:"allow_float_truncate"`
	AllowInvalidUtf8     bool           `compute:"allow_invalid_utf8"`
}

func (CastOptions) TypeName() string { return "CastOptions" }

// IsSafe reports whether every lossy conversion is disallowed.
func (c *CastOptions) IsSafe() bool {
	return !c.AllowIntOverflow && !c.AllowTimeTruncate && !c.AllowTimeOverflow &&
		!c.AllowDecimalTruncate && !c.AllowFloatTruncate && !c.AllowInvalidUtf8
}

type CastState = CastOptions

// OutputTargetType resolves the output of a cast kernel to the ToType of
// the options it was initialized with, which is how parameterized targets
// (timestamps, decimals, fixed size binary) receive their parameters.
func OutputTargetType(ctx *exec.KernelCtx, _ []arrow.DataType) (arrow.DataType, error) {
	if opts, ok := ctx.State.(CastState); ok && opts.ToType != nil {
		return opts.ToType, nil
	}
	return nil, fmt.Errorf("%w: cast kernel requires options with a ToType", arrow.ErrInvalid)
}

var outputTargetType = exec.NewComputedOutputType(OutputTargetType)

func CastFromNull(ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
	return array.MakeArrayOfNull(ctx.Allocator(), out, batch.Len), nil
}

// newCastKernel builds a unary cast kernel which produces its own
// validity from the input's.
func newCastKernel(in exec.InputType, out exec.OutputType, fn exec.ArrayKernelExec) exec.ScalarKernel {
	k := exec.NewScalarKernel([]exec.InputType{in}, out, fn, exec.OptionsInit[CastState])
	k.NullHandling = exec.NullComputed
	return k
}

// reinterpret copies values between two types sharing a physical
// representation, e.g. date32 and int32.
func reinterpret[I, O exec.IntTypes](ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
	return mapValues(batch.Values[0], newBuilder[O](ctx.Allocator(), out), func(v I) (O, error) {
		return O(v), nil
	})
}

// GetZeroCastKernel returns a kernel that converts between types with the
// same physical layout without inspecting values.
func GetZeroCastKernel[I, O exec.IntTypes](inType exec.InputType, out exec.OutputType) exec.ScalarKernel {
	return newCastKernel(inType, out, reinterpret[I, O])
}

// GetCommonCastKernels returns the kernels every cast function carries,
// currently the cast from the null type.
func GetCommonCastKernels(outType exec.OutputType) []exec.ScalarKernel {
	return []exec.ScalarKernel{
		newCastKernel(exec.NewExactInput(arrow.Null), outType, CastFromNull),
	}
}
