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

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/decimal128"
	"github.com/apache/arrow/go/v17/arrow/decimal256"
)

// unscaledFromInput reads element i of any numeric or decimal array as an
// unscaled integer at the requested scale.
func unscaledFromInput(opts CastOptions, in arrow.Array, i int, scale int32) (*big.Int, error) {
	switch a := in.(type) {
	case *array.Decimal128, *array.Decimal256:
		v, from := decimalValue(in, i)
		return rescale(v, from, scale, opts.AllowDecimalTruncate)
	case *array.Float32:
		return floatToUnscaled(opts, float64(a.Value(i)), scale)
	case *array.Float64:
		return floatToUnscaled(opts, a.Value(i), scale)
	case *array.Int8:
		return rescale(big.NewInt(int64(a.Value(i))), 0, scale, false)
	case *array.Int16:
		return rescale(big.NewInt(int64(a.Value(i))), 0, scale, false)
	case *array.Int32:
		return rescale(big.NewInt(int64(a.Value(i))), 0, scale, false)
	case *array.Int64:
		return rescale(big.NewInt(a.Value(i)), 0, scale, false)
	case *array.Uint8:
		return rescale(new(big.Int).SetUint64(uint64(a.Value(i))), 0, scale, false)
	case *array.Uint16:
		return rescale(new(big.Int).SetUint64(uint64(a.Value(i))), 0, scale, false)
	case *array.Uint32:
		return rescale(new(big.Int).SetUint64(uint64(a.Value(i))), 0, scale, false)
	case *array.Uint64:
		return rescale(new(big.Int).SetUint64(a.Value(i)), 0, scale, false)
	}
	return nil, fmt.Errorf("%w: cast from %s to decimal", arrow.ErrNotImplemented, in.DataType())
}

func floatToUnscaled(opts CastOptions, v float64, scale int32) (*big.Int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: cannot convert %f to decimal", arrow.ErrInvalid, v)
	}

	f := new(big.Float).SetFloat64(v)
	f.Mul(f, new(big.Float).SetInt(pow10(scale)))
	res, acc := f.Int(nil)
	if acc != big.Exact && !opts.AllowDecimalTruncate {
		return nil, fmt.Errorf("%w: float value %f was truncated converting to decimal with scale %d",
			arrow.ErrInvalid, v, scale)
	}
	return res, nil
}

func castToDecimal[O any](toNum func(*big.Int) O) exec.ArrayKernelExec {
	return func(ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
		opts := ctx.State.(CastState)
		in := batch.Values[0]
		precision, scale := decimalParams(out)

		return mapIndexed(in, newBuilder[O](ctx.Allocator(), out), func(i int) (O, error) {
			var zero O
			v, err := unscaledFromInput(opts, in, i, scale)
			if err != nil {
				return zero, err
			}
			if !fitsInPrecision(v, precision) {
				return zero, fmt.Errorf("%w: value %s does not fit in precision of %s", arrow.ErrInvalid, v, out)
			}
			return toNum(v), nil
		})
	}
}

func decimalCastKernels(fn exec.ArrayKernelExec) []exec.ScalarKernel {
	kns := GetCommonCastKernels(outputTargetType)
	for _, in := range numericInputs {
		kns = append(kns, newCastKernel(exec.NewExactInput(in), outputTargetType, fn))
	}
	kns = append(kns, newCastKernel(exec.NewIDInput(arrow.DECIMAL128), outputTargetType, fn))
	return append(kns, newCastKernel(exec.NewIDInput(arrow.DECIMAL256), outputTargetType, fn))
}

func GetCastToDecimal128() []exec.ScalarKernel {
	return decimalCastKernels(castToDecimal(decimal128.FromBigInt))
}

func GetCastToDecimal256() []exec.ScalarKernel {
	return decimalCastKernels(castToDecimal(decimal256.FromBigInt))
}
