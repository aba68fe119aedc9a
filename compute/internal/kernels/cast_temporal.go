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

	"github.com/JohnCGriffin/overflow"
	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/apache/arrow/go/v17/arrow"
)

const (
	secondsPerDay = 86400
	millisPerDay  = secondsPerDay * 1000
)

var timeUnits = []arrow.TimeUnit{arrow.Second, arrow.Millisecond, arrow.Microsecond, arrow.Nanosecond}

// ticksPerDay returns the number of ticks of unit in a day.
func ticksPerDay(unit arrow.TimeUnit) int64 {
	return secondsPerDay * int64(arrow.Second.Multiplier()/unit.Multiplier())
}

// shiftTime converts a value counted in ticks of `from` into ticks of
// `to`. Converting to a finer unit multiplies and is checked for overflow,
// converting to a coarser unit divides and is checked for truncation.
func shiftTime(opts CastOptions, from, to arrow.TimeUnit, inType, outType arrow.DataType) func(int64) (int64, error) {
	switch {
	case from == to:
		return func(v int64) (int64, error) { return v, nil }
	case from.Multiplier() > to.Multiplier():
		factor := int64(from.Multiplier() / to.Multiplier())
		return multiplyTime(opts, factor, inType, outType)
	}

	factor := int64(to.Multiplier() / from.Multiplier())
	return divideTime(opts, factor, inType, outType)
}

func multiplyTime(opts CastOptions, factor int64, inType, outType arrow.DataType) func(int64) (int64, error) {
	return func(v int64) (int64, error) {
		res, ok := overflow.Mul64(v, factor)
		if !ok && !opts.AllowTimeOverflow {
			return 0, fmt.Errorf("%w: casting from %s to %s would result in out of bounds timestamp: %d",
				arrow.ErrInvalid, inType, outType, v)
		}
		return res, nil
	}
}

func divideTime(opts CastOptions, factor int64, inType, outType arrow.DataType) func(int64) (int64, error) {
	return func(v int64) (int64, error) {
		if v%factor != 0 && !opts.AllowTimeTruncate {
			return 0, fmt.Errorf("%w: casting from %s to %s would lose data: %d",
				arrow.ErrInvalid, inType, outType, v)
		}
		return v / factor, nil
	}
}

// floorDiv divides rounding towards negative infinity so timestamps
// before the epoch land on the day they fall in.
func floorDiv(v, d int64) int64 {
	q := v / d
	if (v%d != 0) && ((v < 0) != (d < 0)) {
		q--
	}
	return q
}

// temporalExec adapts an int64 conversion into a kernel between two
// temporal types of physical types I and O.
func temporalExec[I, O exec.IntTypes](conv func(opts CastOptions, in, out arrow.DataType) func(int64) (int64, error)) exec.ArrayKernelExec {
	return func(ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
		opts := ctx.State.(CastState)
		in := batch.Values[0]
		fn := conv(opts, in.DataType(), out)
		return mapValues(in, newBuilder[O](ctx.Allocator(), out), func(v I) (O, error) {
			res, err := fn(int64(v))
			return O(res), err
		})
	}
}

func unitOf(dt arrow.DataType) arrow.TimeUnit {
	return dt.(arrow.TemporalWithUnit).TimeUnit()
}

func unitToUnit(opts CastOptions, in, out arrow.DataType) func(int64) (int64, error) {
	return shiftTime(opts, unitOf(in), unitOf(out), in, out)
}

func date32ToTimestamp(opts CastOptions, in, out arrow.DataType) func(int64) (int64, error) {
	shift := shiftTime(opts, arrow.Second, unitOf(out), in, out)
	return func(v int64) (int64, error) {
		secs, ok := overflow.Mul64(v, secondsPerDay)
		if !ok {
			return 0, fmt.Errorf("%w: casting from %s to %s would result in out of bounds timestamp: %d",
				arrow.ErrInvalid, in, out, v)
		}
		return shift(secs)
	}
}

func date64ToTimestamp(opts CastOptions, in, out arrow.DataType) func(int64) (int64, error) {
	return shiftTime(opts, arrow.Millisecond, unitOf(out), in, out)
}

func timestampToDate32(_ CastOptions, in, _ arrow.DataType) func(int64) (int64, error) {
	perDay := ticksPerDay(unitOf(in))
	return func(v int64) (int64, error) { return floorDiv(v, perDay), nil }
}

func timestampToDate64(_ CastOptions, in, _ arrow.DataType) func(int64) (int64, error) {
	perDay := ticksPerDay(unitOf(in))
	return func(v int64) (int64, error) { return floorDiv(v, perDay) * millisPerDay, nil }
}

func date32ToDate64(opts CastOptions, in, out arrow.DataType) func(int64) (int64, error) {
	return multiplyTime(opts, millisPerDay, in, out)
}

func date64ToDate32(opts CastOptions, in, out arrow.DataType) func(int64) (int64, error) {
	return divideTime(opts, millisPerDay, in, out)
}

func GetTimestampCastKernels() []exec.ScalarKernel {
	kns := GetCommonCastKernels(outputTargetType)
	kns = append(kns,
		newCastKernel(exec.NewIDInput(arrow.TIMESTAMP), outputTargetType,
			temporalExec[arrow.Timestamp, arrow.Timestamp](unitToUnit)),
		newCastKernel(exec.NewExactInput(arrow.FixedWidthTypes.Date32), outputTargetType,
			temporalExec[arrow.Date32, arrow.Timestamp](date32ToTimestamp)),
		newCastKernel(exec.NewExactInput(arrow.FixedWidthTypes.Date64), outputTargetType,
			temporalExec[arrow.Date64, arrow.Timestamp](date64ToTimestamp)),
		GetZeroCastKernel[int64, arrow.Timestamp](exec.NewExactInput(arrow.PrimitiveTypes.Int64), outputTargetType),
	)
	return kns
}

func GetDate32CastKernels() []exec.ScalarKernel {
	out := exec.NewOutputType(arrow.FixedWidthTypes.Date32)
	kns := GetCommonCastKernels(out)
	kns = append(kns,
		newCastKernel(exec.NewIDInput(arrow.TIMESTAMP), out,
			temporalExec[arrow.Timestamp, arrow.Date32](timestampToDate32)),
		newCastKernel(exec.NewExactInput(arrow.FixedWidthTypes.Date64), out,
			temporalExec[arrow.Date64, arrow.Date32](date64ToDate32)),
		GetZeroCastKernel[int32, arrow.Date32](exec.NewExactInput(arrow.PrimitiveTypes.Int32), out),
	)
	return kns
}

func GetDate64CastKernels() []exec.ScalarKernel {
	out := exec.NewOutputType(arrow.FixedWidthTypes.Date64)
	kns := GetCommonCastKernels(out)
	kns = append(kns,
		newCastKernel(exec.NewIDInput(arrow.TIMESTAMP), out,
			temporalExec[arrow.Timestamp, arrow.Date64](timestampToDate64)),
		newCastKernel(exec.NewExactInput(arrow.FixedWidthTypes.Date32), out,
			temporalExec[arrow.Date32, arrow.Date64](date32ToDate64)),
		GetZeroCastKernel[int64, arrow.Date64](exec.NewExactInput(arrow.PrimitiveTypes.Int64), out),
	)
	return kns
}

func GetDurationCastKernels() []exec.ScalarKernel {
	kns := GetCommonCastKernels(outputTargetType)
	kns = append(kns,
		newCastKernel(exec.NewIDInput(arrow.DURATION), outputTargetType,
			temporalExec[arrow.Duration, arrow.Duration](unitToUnit)),
		GetZeroCastKernel[int64, arrow.Duration](exec.NewExactInput(arrow.PrimitiveTypes.Int64), outputTargetType),
	)
	return kns
}

// GetTime32CastKernels converts between time units, from either time32
// or time64. Widening the unit is checked for overflow, narrowing it
// for truncation.
func GetTime32CastKernels() []exec.ScalarKernel {
	kns := GetCommonCastKernels(outputTargetType)
	kns = append(kns,
		newCastKernel(exec.NewIDInput(arrow.TIME32), outputTargetType,
			temporalExec[arrow.Time32, arrow.Time32](unitToUnit)),
		newCastKernel(exec.NewIDInput(arrow.TIME64), outputTargetType,
			temporalExec[arrow.Time64, arrow.Time32](unitToUnit)),
		GetZeroCastKernel[int32, arrow.Time32](exec.NewExactInput(arrow.PrimitiveTypes.Int32), outputTargetType),
	)
	return kns
}

func GetTime64CastKernels() []exec.ScalarKernel {
	kns := GetCommonCastKernels(outputTargetType)
	kns = append(kns,
		newCastKernel(exec.NewIDInput(arrow.TIME64), outputTargetType,
			temporalExec[arrow.Time64, arrow.Time64](unitToUnit)),
		newCastKernel(exec.NewIDInput(arrow.TIME32), outputTargetType,
			temporalExec[arrow.Time32, arrow.Time64](unitToUnit)),
		GetZeroCastKernel[int64, arrow.Time64](exec.NewExactInput(arrow.PrimitiveTypes.Int64), outputTargetType),
	)
	return kns
}

// GetTemporalToIntegerKernels returns the zero-copy casts from temporal
// types onto their physical integer type.
func GetTemporalToIntegerKernels(id arrow.Type) []exec.ScalarKernel {
	switch id {
	case arrow.INT32:
		out := exec.NewOutputType(arrow.PrimitiveTypes.Int32)
		return []exec.ScalarKernel{
			GetZeroCastKernel[arrow.Date32, int32](exec.NewExactInput(arrow.FixedWidthTypes.Date32), out),
			GetZeroCastKernel[arrow.Time32, int32](exec.NewIDInput(arrow.TIME32), out),
		}
	case arrow.INT64:
		out := exec.NewOutputType(arrow.PrimitiveTypes.Int64)
		return []exec.ScalarKernel{
			GetZeroCastKernel[arrow.Date64, int64](exec.NewExactInput(arrow.FixedWidthTypes.Date64), out),
			GetZeroCastKernel[arrow.Time64, int64](exec.NewIDInput(arrow.TIME64), out),
			GetZeroCastKernel[arrow.Timestamp, int64](exec.NewIDInput(arrow.TIMESTAMP), out),
			GetZeroCastKernel[arrow.Duration, int64](exec.NewIDInput(arrow.DURATION), out),
		}
	}
	return nil
}
