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
	"math/big"
	"unsafe"

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

type integer interface {
	exec.IntTypes | exec.UintTypes
}

type numeric interface {
	exec.NumericTypes
}

func isSigned[T integer]() bool {
	var zero T
	return zero-1 < 0
}

// floatBounds returns the half-open range [lo, hi) of float values
// which fit in the integer type T.
func floatBounds[T integer]() (lo, hi float64) {
	var zero T
	bits := int(unsafe.Sizeof(zero)) * 8
	if isSigned[T]() {
		return -math.Ldexp(1, bits-1), math.Ldexp(1, bits-1)
	}
	return 0, math.Ldexp(1, bits)
}

func intToInt[I, O integer](opts CastOptions, out arrow.DataType) func(I) (O, error) {
	return func(v I) (O, error) {
		res := O(v)
		if !opts.AllowIntOverflow && (I(res) != v || (v < 0) != (res < 0)) {
			return res, fmt.Errorf("%w: integer value %d not in range for %s", arrow.ErrInvalid, v, out)
		}
		return res, nil
	}
}

func floatToInt[I exec.FloatTypes, O integer](opts CastOptions, out arrow.DataType) func(I) (O, error) {
	lo, hi := floatBounds[O]()
	return func(v I) (O, error) {
		f := float64(v)
		t := math.Trunc(f)
		if !opts.AllowFloatTruncate && t != f {
			return 0, fmt.Errorf("%w: float value %f was truncated converting to %s", arrow.ErrInvalid, f, out)
		}
		if math.IsNaN(t) || t < lo || t >= hi {
			if !opts.AllowIntOverflow {
				return 0, fmt.Errorf("%w: float value %f out of range for %s", arrow.ErrInvalid, f, out)
			}
		}
		return O(t), nil
	}
}

func intToFloat[I integer, O exec.FloatTypes](opts CastOptions, out arrow.DataType) func(I) (O, error) {
	return func(v I) (O, error) {
		res := O(v)
		if !opts.AllowFloatTruncate && I(res) != v {
			return res, fmt.Errorf("%w: integer value %d not exactly representable as %s", arrow.ErrInvalid, v, out)
		}
		return res, nil
	}
}

func floatToFloat[I, O exec.FloatTypes](v I) (O, error) { return O(v), nil }

func boolToNum[O numeric](v bool) (O, error) {
	if v {
		return 1, nil
	}
	return 0, nil
}

func numToBool[I numeric](v I) (bool, error) { return v != 0, nil }

// decimalToInt converts element i of a decimal array to the integer
// type O, dropping the fractional digits only if truncation is allowed.
func decimalToInt[O integer](opts CastOptions, arr arrow.Array, i int, out arrow.DataType) (O, error) {
	v, scale := decimalValue(arr, i)
	v, err := rescale(v, scale, 0, opts.AllowDecimalTruncate)
	if err != nil {
		return 0, err
	}

	switch {
	case v.IsInt64():
		return intToInt[int64, O](opts, out)(v.Int64())
	case v.IsUint64():
		return intToInt[uint64, O](opts, out)(v.Uint64())
	case opts.AllowIntOverflow:
		return O(new(big.Int).And(v, new(big.Int).SetUint64(math.MaxUint64)).Uint64()), nil
	}
	return 0, fmt.Errorf("%w: decimal value %s not in range for %s", arrow.ErrInvalid, v, out)
}

func decimalToFloat(arr arrow.Array, i int) float64 {
	v, scale := decimalValue(arr, i)
	f := new(big.Float).SetInt(v)
	f.Quo(f, new(big.Float).SetInt(pow10(scale)))
	res, _ := f.Float64()
	return res
}

// mapIndexed is like mapValues but hands fn the element index, for
// inputs whose values need more than the Value accessor to interpret.
func mapIndexed[O any](in arrow.Array, bldr exec.ValueBuilder[O], fn func(i int) (O, error)) (arrow.Array, error) {
	defer bldr.Release()

	n := in.Len()
	bldr.Reserve(n)
	for i := 0; i < n; i++ {
		if in.IsNull(i) {
			bldr.AppendNull()
			continue
		}
		v, err := fn(i)
		if err != nil {
			return nil, err
		}
		bldr.Append(v)
	}
	return bldr.NewArray(), nil
}

// castToInteger dispatches on the physical type of the input.
func castToInteger[O integer](ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
	opts := ctx.State.(CastState)
	in := batch.Values[0]
	bldr := newBuilder[O](ctx.Allocator(), out)

	switch in.(type) {
	case *array.Int8:
		return mapValues(in, bldr, intToInt[int8, O](opts, out))
	case *array.Int16:
		return mapValues(in, bldr, intToInt[int16, O](opts, out))
	case *array.Int32:
		return mapValues(in, bldr, intToInt[int32, O](opts, out))
	case *array.Int64:
		return mapValues(in, bldr, intToInt[int64, O](opts, out))
	case *array.Uint8:
		return mapValues(in, bldr, intToInt[uint8, O](opts, out))
	case *array.Uint16:
		return mapValues(in, bldr, intToInt[uint16, O](opts, out))
	case *array.Uint32:
		return mapValues(in, bldr, intToInt[uint32, O](opts, out))
	case *array.Uint64:
		return mapValues(in, bldr, intToInt[uint64, O](opts, out))
	case *array.Float32:
		return mapValues(in, bldr, floatToInt[float32, O](opts, out))
	case *array.Float64:
		return mapValues(in, bldr, floatToInt[float64, O](opts, out))
	case *array.Boolean:
		return mapValues(in, bldr, boolToNum[O])
	case *array.Decimal128, *array.Decimal256:
		return mapIndexed(in, bldr, func(i int) (O, error) {
			return decimalToInt[O](opts, in, i, out)
		})
	}

	bldr.Release()
	return nil, fmt.Errorf("%w: cast from %s to %s", arrow.ErrNotImplemented, in.DataType(), out)
}

func castToFloating[O exec.FloatTypes](ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
	opts := ctx.State.(CastState)
	in := batch.Values[0]
	bldr := newBuilder[O](ctx.Allocator(), out)

	switch in.(type) {
	case *array.Int8:
		return mapValues(in, bldr, intToFloat[int8, O](opts, out))
	case *array.Int16:
		return mapValues(in, bldr, intToFloat[int16, O](opts, out))
	case *array.Int32:
		return mapValues(in, bldr, intToFloat[int32, O](opts, out))
	case *array.Int64:
		return mapValues(in, bldr, intToFloat[int64, O](opts, out))
	case *array.Uint8:
		return mapValues(in, bldr, intToFloat[uint8, O](opts, out))
	case *array.Uint16:
		return mapValues(in, bldr, intToFloat[uint16, O](opts, out))
	case *array.Uint32:
		return mapValues(in, bldr, intToFloat[uint32, O](opts, out))
	case *array.Uint64:
		return mapValues(in, bldr, intToFloat[uint64, O](opts, out))
	case *array.Float32:
		return mapValues(in, bldr, floatToFloat[float32, O])
	case *array.Float64:
		return mapValues(in, bldr, floatToFloat[float64, O])
	case *array.Boolean:
		return mapValues(in, bldr, boolToNum[O])
	case *array.Decimal128, *array.Decimal256:
		return mapIndexed(in, bldr, func(i int) (O, error) {
			return O(decimalToFloat(in, i)), nil
		})
	}

	bldr.Release()
	return nil, fmt.Errorf("%w: cast from %s to %s", arrow.ErrNotImplemented, in.DataType(), out)
}

func castToBoolean(ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
	in := batch.Values[0]
	bldr := newBuilder[bool](ctx.Allocator(), out)

	switch in.(type) {
	case *array.Int8:
		return mapValues(in, bldr, numToBool[int8])
	case *array.Int16:
		return mapValues(in, bldr, numToBool[int16])
	case *array.Int32:
		return mapValues(in, bldr, numToBool[int32])
	case *array.Int64:
		return mapValues(in, bldr, numToBool[int64])
	case *array.Uint8:
		return mapValues(in, bldr, numToBool[uint8])
	case *array.Uint16:
		return mapValues(in, bldr, numToBool[uint16])
	case *array.Uint32:
		return mapValues(in, bldr, numToBool[uint32])
	case *array.Uint64:
		return mapValues(in, bldr, numToBool[uint64])
	case *array.Float32:
		return mapValues(in, bldr, numToBool[float32])
	case *array.Float64:
		return mapValues(in, bldr, numToBool[float64])
	}

	bldr.Release()
	return nil, fmt.Errorf("%w: cast from %s to %s", arrow.ErrNotImplemented, in.DataType(), out)
}

var numericInputs = []arrow.DataType{
	arrow.PrimitiveTypes.Int8, arrow.PrimitiveTypes.Int16, arrow.PrimitiveTypes.Int32, arrow.PrimitiveTypes.Int64,
	arrow.PrimitiveTypes.Uint8, arrow.PrimitiveTypes.Uint16, arrow.PrimitiveTypes.Uint32, arrow.PrimitiveTypes.Uint64,
	arrow.PrimitiveTypes.Float32, arrow.PrimitiveTypes.Float64,
}

func numericCastKernels(out exec.OutputType, fn exec.ArrayKernelExec) []exec.ScalarKernel {
	kns := GetCommonCastKernels(out)
	for _, in := range numericInputs {
		kns = append(kns, newCastKernel(exec.NewExactInput(in), out, fn))
	}
	kns = append(kns, newCastKernel(exec.NewExactInput(arrow.FixedWidthTypes.Boolean), out, fn))
	kns = append(kns, newCastKernel(exec.NewIDInput(arrow.DECIMAL128), out, fn))
	return append(kns, newCastKernel(exec.NewIDInput(arrow.DECIMAL256), out, fn))
}

// GetCastToInteger returns the kernels casting numeric, boolean and
// decimal inputs to the integer type outType.
func GetCastToInteger[T integer](outType arrow.DataType) []exec.ScalarKernel {
	return numericCastKernels(exec.NewOutputType(outType), castToInteger[T])
}

// GetCastToFloating returns the kernels casting numeric, boolean and
// decimal inputs to the floating point type outType.
func GetCastToFloating[T exec.FloatTypes](outType arrow.DataType) []exec.ScalarKernel {
	return numericCastKernels(exec.NewOutputType(outType), castToFloating[T])
}

func GetBooleanCastKernels() []exec.ScalarKernel {
	out := exec.NewOutputType(arrow.FixedWidthTypes.Boolean)
	kns := GetCommonCastKernels(out)
	for _, in := range numericInputs {
		kns = append(kns, newCastKernel(exec.NewExactInput(in), out, castToBoolean))
	}
	return kns
}
