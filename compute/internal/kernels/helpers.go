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
	"math"
	"math/big"

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/decimal128"
	"github.com/apache/arrow/go/v17/arrow/decimal256"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"golang.org/x/exp/constraints"
)

// mapValues applies fn to every valid element of in, appending the
// results to bldr. Nulls are carried over unchanged. The builder is
// always released; on error nothing is returned so a failing element
// never leaves a partially filled output behind.
func mapValues[I, O any](in arrow.Array, bldr exec.ValueBuilder[O], fn func(I) (O, error)) (arrow.Array, error) {
	defer bldr.Release()

	vals := in.(exec.ValueArray[I])
	n := in.Len()
	bldr.Reserve(n)
	for i := 0; i < n; i++ {
		if in.IsNull(i) {
			bldr.AppendNull()
			continue
		}
		v, err := fn(vals.Value(i))
		if err != nil {
			return nil, err
		}
		bldr.Append(v)
	}
	return bldr.NewArray(), nil
}

func newBuilder[T any](mem memory.Allocator, dt arrow.DataType) exec.ValueBuilder[T] {
	return array.NewBuilder(mem, dt).(exec.ValueBuilder[T])
}

var bigTen = big.NewInt(10)

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

// decimalValue returns the unscaled value of element i of a decimal
// array as a big.Int together with the array's scale.
func decimalValue(arr arrow.Array, i int) (*big.Int, int32) {
	switch a := arr.(type) {
	case *array.Decimal128:
		return a.Value(i).BigInt(), a.DataType().(*arrow.Decimal128Type).Scale
	case *array.Decimal256:
		return a.Value(i).BigInt(), a.DataType().(*arrow.Decimal256Type).Scale
	}
	panic(fmt.Sprintf("arrow/compute: %s is not a decimal array", arr.DataType()))
}

func decimalParams(dt arrow.DataType) (precision, scale int32) {
	switch dt := dt.(type) {
	case *arrow.Decimal128Type:
		return dt.Precision, dt.Scale
	case *arrow.Decimal256Type:
		return dt.Precision, dt.Scale
	}
	return 0, 0
}

// rescale moves the unscaled value v from scale `from` to scale `to`,
// failing if digits would be dropped unless truncation is allowed.
func rescale(v *big.Int, from, to int32, allowTruncate bool) (*big.Int, error) {
	switch {
	case to == from:
		return v, nil
	case to > from:
		return new(big.Int).Mul(v, pow10(to-from)), nil
	}

	q, r := new(big.Int).QuoRem(v, pow10(from-to), new(big.Int))
	if r.Sign() != 0 && !allowTruncate {
		return nil, fmt.Errorf("%w: rescaling decimal value %s from scale %d to scale %d would cause data loss",
			arrow.ErrInvalid, v, from, to)
	}
	return q, nil
}

func fitsInPrecision(v *big.Int, precision int32) bool {
	return new(big.Int).Abs(v).Cmp(pow10(precision)) < 0
}

// binaryValue returns element i of any binary-like array as bytes.
func binaryValue(arr arrow.Array, i int) []byte {
	switch a := arr.(type) {
	case *array.String:
		return []byte(a.Value(i))
	case *array.LargeString:
		return []byte(a.Value(i))
	case *array.Binary:
		return a.Value(i)
	case *array.LargeBinary:
		return a.Value(i)
	case *array.FixedSizeBinary:
		return a.Value(i)
	}
	panic(fmt.Sprintf("arrow/compute: %s is not a binary-like array", arr.DataType()))
}

func cmpOrdered[T constraints.Ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpFloat orders NaN after every number and equal to itself.
func cmpFloat[T constraints.Float](a, b T) int {
	aNaN, bNaN := math.IsNaN(float64(a)), math.IsNaN(float64(b))
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmpOrdered(a, b)
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	}
	return 1
}

func valueCmp[T any](left, right arrow.Array, cmp func(a, b T) int) func(i, j int) int {
	l, r := left.(exec.ValueArray[T]), right.(exec.ValueArray[T])
	return func(i, j int) int { return cmp(l.Value(i), r.Value(j)) }
}

// NewComparator returns a three-way comparison of left[i] against
// right[j]. Both arrays must have the same type id; decimals of
// different scales are compared by value. Null slots are not inspected.
func NewComparator(left, right arrow.Array) (func(i, j int) int, error) {
	if left.DataType().ID() != right.DataType().ID() {
		return nil, fmt.Errorf("%w: cannot compare %s with %s", arrow.ErrType, left.DataType(), right.DataType())
	}

	switch left.DataType().ID() {
	case arrow.NULL:
		return func(int, int) int { return 0 }, nil
	case arrow.BOOL:
		return valueCmp(left, right, cmpBool), nil
	case arrow.INT8:
		return valueCmp(left, right, cmpOrdered[int8]), nil
	case arrow.INT16:
		return valueCmp(left, right, cmpOrdered[int16]), nil
	case arrow.INT32:
		return valueCmp(left, right, cmpOrdered[int32]), nil
	case arrow.INT64:
		return valueCmp(left, right, cmpOrdered[int64]), nil
	case arrow.UINT8:
		return valueCmp(left, right, cmpOrdered[uint8]), nil
	case arrow.UINT16:
		return valueCmp(left, right, cmpOrdered[uint16]), nil
	case arrow.UINT32:
		return valueCmp(left, right, cmpOrdered[uint32]), nil
	case arrow.UINT64:
		return valueCmp(left, right, cmpOrdered[uint64]), nil
	case arrow.FLOAT32:
		return valueCmp(left, right, cmpFloat[float32]), nil
	case arrow.FLOAT64:
		return valueCmp(left, right, cmpFloat[float64]), nil
	case arrow.DATE32:
		return valueCmp(left, right, cmpOrdered[arrow.Date32]), nil
	case arrow.DATE64:
		return valueCmp(left, right, cmpOrdered[arrow.Date64]), nil
	case arrow.TIME32:
		return valueCmp(left, right, cmpOrdered[arrow.Time32]), nil
	case arrow.TIME64:
		return valueCmp(left, right, cmpOrdered[arrow.Time64]), nil
	case arrow.TIMESTAMP:
		return valueCmp(left, right, cmpOrdered[arrow.Timestamp]), nil
	case arrow.DURATION:
		return valueCmp(left, right, cmpOrdered[arrow.Duration]), nil
	case arrow.STRING, arrow.LARGE_STRING:
		return valueCmp(left, right, cmpOrdered[string]), nil
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return valueCmp(left, right, bytes.Compare), nil
	case arrow.DECIMAL128, arrow.DECIMAL256:
		return func(i, j int) int {
			lv, ls := decimalValue(left, i)
			rv, rs := decimalValue(right, j)
			if ls < rs {
				lv, _ = rescale(lv, ls, rs, false)
			} else if rs < ls {
				rv, _ = rescale(rv, rs, ls, false)
			}
			return lv.Cmp(rv)
		}, nil
	}

	return nil, fmt.Errorf("%w: comparing values of type %s", arrow.ErrNotImplemented, left.DataType())
}

func takeValues[T any](mem memory.Allocator, arr arrow.Array, indices []int) arrow.Array {
	vals := arr.(exec.ValueArray[T])
	bldr := newBuilder[T](mem, arr.DataType())
	defer bldr.Release()

	bldr.Reserve(len(indices))
	for _, idx := range indices {
		if idx < 0 || arr.IsNull(idx) {
			bldr.AppendNull()
			continue
		}
		bldr.Append(vals.Value(idx))
	}
	return bldr.NewArray()
}

// TakeRows gathers the elements of arr at the given indices into a new
// array allocated from mem. A negative index produces a null.
func TakeRows(mem memory.Allocator, arr arrow.Array, indices []int) (arrow.Array, error) {
	switch arr.DataType().ID() {
	case arrow.NULL:
		return array.MakeArrayOfNull(mem, arr.DataType(), len(indices)), nil
	case arrow.BOOL:
		return takeValues[bool](mem, arr, indices), nil
	case arrow.INT8:
		return takeValues[int8](mem, arr, indices), nil
	case arrow.INT16:
		return takeValues[int16](mem, arr, indices), nil
	case arrow.INT32:
		return takeValues[int32](mem, arr, indices), nil
	case arrow.INT64:
		return takeValues[int64](mem, arr, indices), nil
	case arrow.UINT8:
		return takeValues[uint8](mem, arr, indices), nil
	case arrow.UINT16:
		return takeValues[uint16](mem, arr, indices), nil
	case arrow.UINT32:
		return takeValues[uint32](mem, arr, indices), nil
	case arrow.UINT64:
		return takeValues[uint64](mem, arr, indices), nil
	case arrow.FLOAT32:
		return takeValues[float32](mem, arr, indices), nil
	case arrow.FLOAT64:
		return takeValues[float64](mem, arr, indices), nil
	case arrow.DATE32:
		return takeValues[arrow.Date32](mem, arr, indices), nil
	case arrow.DATE64:
		return takeValues[arrow.Date64](mem, arr, indices), nil
	case arrow.TIME32:
		return takeValues[arrow.Time32](mem, arr, indices), nil
	case arrow.TIME64:
		return takeValues[arrow.Time64](mem, arr, indices), nil
	case arrow.TIMESTAMP:
		return takeValues[arrow.Timestamp](mem, arr, indices), nil
	case arrow.DURATION:
		return takeValues[arrow.Duration](mem, arr, indices), nil
	case arrow.STRING, arrow.LARGE_STRING:
		return takeValues[string](mem, arr, indices), nil
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return takeValues[[]byte](mem, arr, indices), nil
	case arrow.DECIMAL128:
		return takeValues[decimal128.Num](mem, arr, indices), nil
	case arrow.DECIMAL256:
		return takeValues[decimal256.Num](mem, arr, indices), nil
	}
	return nil, fmt.Errorf("%w: taking values of type %s", arrow.ErrNotImplemented, arr.DataType())
}

// DecodeDictionary materializes a dictionary array into an array of its
// value type.
func DecodeDictionary(mem memory.Allocator, arr *array.Dictionary) (arrow.Array, error) {
	indices := make([]int, arr.Len())
	for i := range indices {
		if arr.IsNull(i) {
			indices[i] = -1
			continue
		}
		indices[i] = arr.GetValueIndex(i)
	}
	return TakeRows(mem, arr.Dictionary(), indices)
}
