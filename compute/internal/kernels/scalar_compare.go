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
	"bytes"
	"fmt"

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"golang.org/x/exp/constraints"
)

func orderedPred[T constraints.Ordered](op CompareOperator) func(a, b T) bool {
	switch op {
	case CmpEQ:
		return func(a, b T) bool { return a == b }
	case CmpNE:
		return func(a, b T) bool { return a != b }
	case CmpGT:
		return func(a, b T) bool { return a > b }
	case CmpGE:
		return func(a, b T) bool { return a >= b }
	case CmpLT:
		return func(a, b T) bool { return a < b }
	default:
		return func(a, b T) bool { return a <= b }
	}
}

func threeWayPred[T any](op CompareOperator, cmp func(a, b T) int) func(a, b T) bool {
	return func(a, b T) bool { return op.apply(cmp(a, b)) }
}

func buildBoolean(ctx *exec.KernelCtx, batch *exec.ExecBatch, fn func(i int) bool) arrow.Array {
	bldr := array.NewBooleanBuilder(ctx.Allocator())
	defer bldr.Release()

	bldr.Reserve(batch.Len)
	for i := 0; i < batch.Len; i++ {
		if !batch.IsValid(i) {
			bldr.AppendNull()
			continue
		}
		bldr.Append(fn(i))
	}
	return bldr.NewArray()
}

func compareExec[T any](pred func(a, b T) bool) exec.ArrayKernelExec {
	return func(ctx *exec.KernelCtx, batch *exec.ExecBatch, _ arrow.DataType) (arrow.Array, error) {
		left := batch.Values[0].(exec.ValueArray[T])
		right := batch.Values[1].(exec.ValueArray[T])
		return buildBoolean(ctx, batch, func(i int) bool {
			return pred(left.Value(i), right.Value(i))
		}), nil
	}
}

func comparatorExec(op CompareOperator) exec.ArrayKernelExec {
	return func(ctx *exec.KernelCtx, batch *exec.ExecBatch, _ arrow.DataType) (arrow.Array, error) {
		cmp, err := NewComparator(batch.Values[0], batch.Values[1])
		if err != nil {
			return nil, err
		}
		return buildBoolean(ctx, batch, func(i int) bool { return op.apply(cmp(i, i)) }), nil
	}
}

func compareNulls(ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
	return array.MakeArrayOfNull(ctx.Allocator(), out, batch.Len), nil
}

// CheckTimestampZones fails if timestamps with and without a time zone
// are mixed among the given types. Instants in different zones are
// comparable since they are stored relative to UTC.
func CheckTimestampZones(types ...arrow.DataType) error {
	var zoned, naive arrow.DataType
	for _, t := range types {
		ts, ok := t.(*arrow.TimestampType)
		if !ok {
			continue
		}
		if ts.TimeZone == "" {
			naive = t
		} else {
			zoned = t
		}
	}

	if zoned != nil && naive != nil {
		return fmt.Errorf("%w: Cannot compare timestamp with timezone to timestamp without timezone, got: %s and %s",
			arrow.ErrType, zoned, naive)
	}
	return nil
}

func initTimestampCompare(_ *exec.KernelCtx, args exec.KernelInitArgs) (exec.KernelState, error) {
	return nil, CheckTimestampZones(args.Inputs...)
}

func binaryCompareKernel(in exec.InputType, fn exec.ArrayKernelExec) exec.ScalarKernel {
	return exec.NewScalarKernel([]exec.InputType{in, in},
		exec.NewOutputType(arrow.FixedWidthTypes.Boolean), fn, nil)
}

func numericCompare(op CompareOperator, dt arrow.DataType) exec.ArrayKernelExec {
	switch dt.ID() {
	case arrow.INT8:
		return compareExec(orderedPred[int8](op))
	case arrow.INT16:
		return compareExec(orderedPred[int16](op))
	case arrow.INT32:
		return compareExec(orderedPred[int32](op))
	case arrow.INT64:
		return compareExec(orderedPred[int64](op))
	case arrow.UINT8:
		return compareExec(orderedPred[uint8](op))
	case arrow.UINT16:
		return compareExec(orderedPred[uint16](op))
	case arrow.UINT32:
		return compareExec(orderedPred[uint32](op))
	case arrow.UINT64:
		return compareExec(orderedPred[uint64](op))
	case arrow.FLOAT32:
		return compareExec(orderedPred[float32](op))
	case arrow.FLOAT64:
		return compareExec(orderedPred[float64](op))
	}
	panic("arrow/compute: unsupported numeric type " + dt.String())
}

// CompareKernels returns the kernels implementing op for every
// comparable type. Inputs of the same type id with differing parameters
// are expected to have been unified by dispatch, except for decimals and
// fixed size binary which compare by value and by bytes respectively.
func CompareKernels(op CompareOperator) []exec.ScalarKernel {
	kns := make([]exec.ScalarKernel, 0, 32)

	nullKn := binaryCompareKernel(exec.NewExactInput(arrow.Null), compareNulls)
	nullKn.NullHandling = exec.NullComputed
	kns = append(kns, nullKn)

	kns = append(kns, binaryCompareKernel(exec.NewExactInput(arrow.FixedWidthTypes.Boolean),
		compareExec(threeWayPred(op, cmpBool))))

	for _, dt := range numericInputs {
		kns = append(kns, binaryCompareKernel(exec.NewExactInput(dt), numericCompare(op, dt)))
	}

	kns = append(kns,
		binaryCompareKernel(exec.NewIDInput(arrow.DECIMAL128), comparatorExec(op)),
		binaryCompareKernel(exec.NewIDInput(arrow.DECIMAL256), comparatorExec(op)),
		binaryCompareKernel(exec.NewExactInput(arrow.FixedWidthTypes.Date32),
			compareExec(orderedPred[arrow.Date32](op))),
		binaryCompareKernel(exec.NewExactInput(arrow.FixedWidthTypes.Date64),
			compareExec(orderedPred[arrow.Date64](op))),
	)

	for _, unit := range timeUnits {
		tsKn := binaryCompareKernel(exec.NewMatchedInput(exec.TimestampTypeUnit(unit)),
			compareExec(orderedPred[arrow.Timestamp](op)))
		tsKn.Init = initTimestampCompare
		kns = append(kns, tsKn,
			binaryCompareKernel(exec.NewMatchedInput(exec.DurationTypeUnit(unit)),
				compareExec(orderedPred[arrow.Duration](op))))
	}
	for _, unit := range timeUnits[:2] {
		kns = append(kns, binaryCompareKernel(exec.NewMatchedInput(exec.Time32TypeUnit(unit)),
			compareExec(orderedPred[arrow.Time32](op))))
	}
	for _, unit := range timeUnits[2:] {
		kns = append(kns, binaryCompareKernel(exec.NewMatchedInput(exec.Time64TypeUnit(unit)),
			compareExec(orderedPred[arrow.Time64](op))))
	}

	bytesCmp := compareExec(threeWayPred(op, bytes.Compare))
	kns = append(kns,
		binaryCompareKernel(exec.NewExactInput(arrow.BinaryTypes.String), compareExec(orderedPred[string](op))),
		binaryCompareKernel(exec.NewExactInput(arrow.BinaryTypes.LargeString), compareExec(orderedPred[string](op))),
		binaryCompareKernel(exec.NewExactInput(arrow.BinaryTypes.Binary), bytesCmp),
		binaryCompareKernel(exec.NewExactInput(arrow.BinaryTypes.LargeBinary), bytesCmp),
		binaryCompareKernel(exec.NewIDInput(arrow.FIXED_SIZE_BINARY), bytesCmp),
	)
	return kns
}

func andExec(ctx *exec.KernelCtx, batch *exec.ExecBatch, _ arrow.DataType) (arrow.Array, error) {
	left := batch.Values[0].(*array.Boolean)
	right := batch.Values[1].(*array.Boolean)
	return buildBoolean(ctx, batch, func(i int) bool {
		return left.Value(i) && right.Value(i)
	}), nil
}

// AndKernels returns the boolean AND kernel, which is null wherever
// either input is null.
func AndKernels() []exec.ScalarKernel {
	return []exec.ScalarKernel{
		binaryCompareKernel(exec.NewExactInput(arrow.FixedWidthTypes.Boolean), andExec),
	}
}
