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
	"math"

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/decimal128"
	"github.com/apache/arrow/go/v17/arrow/decimal256"
)

// minMaxExec selects, for every row, the smallest (or largest) value among
// the inputs according to cmp. With SkipNulls a row is null only if every
// input is null there; otherwise any null input makes the row null.
func minMaxExec[T any](isMin bool) exec.ArrayKernelExec {
	return func(ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
		opts := ctx.State.(ElementWiseAggregateOptions)

		vals := make([]exec.ValueArray[T], len(batch.Values))
		cmps := make([][]func(i, j int) int, len(batch.Values))
		for k, arr := range batch.Values {
			vals[k] = arr.(exec.ValueArray[T])
			cmps[k] = make([]func(i, j int) int, len(batch.Values))
			for b, other := range batch.Values {
				cmp, err := NewComparator(arr, other)
				if err != nil {
					return nil, err
				}
				cmps[k][b] = cmp
			}
		}

		bldr := newBuilder[T](ctx.Allocator(), out)
		defer bldr.Release()
		bldr.Reserve(batch.Len)

		for i := 0; i < batch.Len; i++ {
			best, sawNull := -1, false
			for k, arr := range batch.Values {
				if arr.IsNull(i) {
					sawNull = true
					continue
				}

				switch {
				case best < 0:
					best = k
				case isNaN(arr, i):
				case isNaN(batch.Values[best], i) || better(isMin, cmps[k][best](i, i)):
					best = k
				}
			}

			if best < 0 || (sawNull && !opts.SkipNulls) {
				bldr.AppendNull()
				continue
			}
			bldr.Append(vals[best].Value(i))
		}
		return bldr.NewArray(), nil
	}
}

// isNaN reports whether element i is a floating point NaN. NaN only
// wins a min/max when every non-null input is NaN.
func isNaN(arr arrow.Array, i int) bool {
	switch a := arr.(type) {
	case *array.Float32:
		return math.IsNaN(float64(a.Value(i)))
	case *array.Float64:
		return math.IsNaN(a.Value(i))
	}
	return false
}

func better(isMin bool, c int) bool {
	if isMin {
		return c < 0
	}
	return c > 0
}

func initMinMax(ctx *exec.KernelCtx, args exec.KernelInitArgs) (exec.KernelState, error) {
	for _, t := range args.Inputs[1:] {
		if !arrow.TypeEqual(t, args.Inputs[0]) {
			if t.ID() == arrow.FIXED_SIZE_BINARY {
				return nil, fmt.Errorf("%w: min/max over fixed size binary of different widths: %s and %s",
					arrow.ErrNotImplemented, args.Inputs[0], t)
			}
			return nil, fmt.Errorf("%w: min/max requires all inputs to share one type, got %s and %s",
				arrow.ErrType, args.Inputs[0], t)
		}
	}
	return exec.OptionsInit[ElementWiseAggregateOptions](ctx, args)
}

func minMaxKernel(in exec.InputType, fn exec.ArrayKernelExec) exec.ScalarKernel {
	k := exec.NewScalarKernelWithSig(&exec.KernelSignature{
		InputTypes: []exec.InputType{in},
		OutType:    exec.NewComputedOutputType(exec.FirstType),
		IsVarArgs:  true,
	}, fn, initMinMax)
	k.NullHandling = exec.NullComputed
	return k
}

// MinMaxKernels returns the element-wise min (isMin) or max kernels.
func MinMaxKernels(isMin bool) []exec.ScalarKernel {
	kns := []exec.ScalarKernel{
		minMaxKernel(exec.NewExactInput(arrow.PrimitiveTypes.Int8), minMaxExec[int8](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.PrimitiveTypes.Int16), minMaxExec[int16](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.PrimitiveTypes.Int32), minMaxExec[int32](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.PrimitiveTypes.Int64), minMaxExec[int64](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.PrimitiveTypes.Uint8), minMaxExec[uint8](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.PrimitiveTypes.Uint16), minMaxExec[uint16](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.PrimitiveTypes.Uint32), minMaxExec[uint32](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.PrimitiveTypes.Uint64), minMaxExec[uint64](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.PrimitiveTypes.Float32), minMaxExec[float32](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.PrimitiveTypes.Float64), minMaxExec[float64](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.FixedWidthTypes.Boolean), minMaxExec[bool](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.FixedWidthTypes.Date32), minMaxExec[arrow.Date32](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.FixedWidthTypes.Date64), minMaxExec[arrow.Date64](isMin)),
		minMaxKernel(exec.NewIDInput(arrow.TIMESTAMP), minMaxExec[arrow.Timestamp](isMin)),
		minMaxKernel(exec.NewIDInput(arrow.DURATION), minMaxExec[arrow.Duration](isMin)),
		minMaxKernel(exec.NewIDInput(arrow.TIME32), minMaxExec[arrow.Time32](isMin)),
		minMaxKernel(exec.NewIDInput(arrow.TIME64), minMaxExec[arrow.Time64](isMin)),
		minMaxKernel(exec.NewIDInput(arrow.DECIMAL128), minMaxExec[decimal128.Num](isMin)),
		minMaxKernel(exec.NewIDInput(arrow.DECIMAL256), minMaxExec[decimal256.Num](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.BinaryTypes.String), minMaxExec[string](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.BinaryTypes.LargeString), minMaxExec[string](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.BinaryTypes.Binary), minMaxExec[[]byte](isMin)),
		minMaxKernel(exec.NewExactInput(arrow.BinaryTypes.LargeBinary), minMaxExec[[]byte](isMin)),
		minMaxKernel(exec.NewIDInput(arrow.FIXED_SIZE_BINARY), minMaxExec[[]byte](isMin)),
	}
	return kns
}
