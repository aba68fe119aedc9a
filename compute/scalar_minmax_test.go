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

package compute_test

import (
	"context"
	"math"
	"testing"

	"github.com/acero-go/acero/compute"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/arrow/scalar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MinMaxSuite struct {
	computeSuite
}

func (m *MinMaxSuite) min(opts *compute.ElementWiseAggregateOptions, args ...compute.Datum) compute.Datum {
	out, err := compute.MinElementWise(m.ctx, opts, args...)
	m.Require().NoError(err)
	return out
}

func (m *MinMaxSuite) max(opts *compute.ElementWiseAggregateOptions, args ...compute.Datum) compute.Datum {
	out, err := compute.MaxElementWise(m.ctx, opts, args...)
	m.Require().NoError(err)
	return out
}

func (m *MinMaxSuite) TestSkipNulls() {
	a := m.datumFromJSON(arrow.PrimitiveTypes.Int32, `[1, null, 3, null]`)
	defer a.Release()
	b := m.datumFromJSON(arrow.PrimitiveTypes.Int32, `[2, 2, null, null]`)
	defer b.Release()

	m.assertArrayResult(arrow.PrimitiveTypes.Int32, `[1, 2, 3, null]`, m.min(nil, a, b))
	m.assertArrayResult(arrow.PrimitiveTypes.Int32, `[2, 2, 3, null]`, m.max(nil, a, b))

	keep := &compute.ElementWiseAggregateOptions{SkipNulls: false}
	m.assertArrayResult(arrow.PrimitiveTypes.Int32, `[1, null, null, null]`, m.min(keep, a, b))
	m.assertArrayResult(arrow.PrimitiveTypes.Int32, `[2, null, null, null]`, m.max(keep, a, b))
}

func (m *MinMaxSuite) TestSingleArgument() {
	a := m.datumFromJSON(arrow.PrimitiveTypes.Uint16, `[5, null, 7]`)
	defer a.Release()
	m.assertArrayResult(arrow.PrimitiveTypes.Uint16, `[5, null, 7]`, m.min(nil, a))
}

func (m *MinMaxSuite) TestNoArguments() {
	_, err := compute.MinElementWise(m.ctx, nil)
	requireErrorIs(m.T(), err, arrow.ErrInvalid, "at least 1")
}

func (m *MinMaxSuite) TestMixedIntegerPromotion() {
	a := m.datumFromJSON(arrow.PrimitiveTypes.Int8, `[-1, 100, 3]`)
	defer a.Release()
	b := m.datumFromJSON(arrow.PrimitiveTypes.Int64, `[0, 1000, -5]`)
	defer b.Release()
	c := m.datumFromJSON(arrow.PrimitiveTypes.Uint8, `[9, 9, 9]`)
	defer c.Release()

	m.assertArrayResult(arrow.PrimitiveTypes.Int64, `[-1, 9, -5]`, m.min(nil, a, b, c))
	m.assertArrayResult(arrow.PrimitiveTypes.Int64, `[9, 1000, 9]`, m.max(nil, a, b, c))
}

func (m *MinMaxSuite) TestIntAndFloat() {
	a := m.datumFromJSON(arrow.PrimitiveTypes.Int32, `[1, 4]`)
	defer a.Release()
	b := m.datumFromJSON(arrow.PrimitiveTypes.Float32, `[1.5, 2.5]`)
	defer b.Release()

	m.assertArrayResult(arrow.PrimitiveTypes.Float32, `[1, 2.5]`, m.min(nil, a, b))
}

func (m *MinMaxSuite) TestScalarArrayMix() {
	a := m.datumFromJSON(arrow.PrimitiveTypes.Int64, `[1, 5, null, 9]`)
	defer a.Release()
	four := compute.NewDatum(int64(4))

	m.assertArrayResult(arrow.PrimitiveTypes.Int64, `[1, 4, 4, 4]`, m.min(nil, a, four))
	m.assertArrayResult(arrow.PrimitiveTypes.Int64, `[4, 5, 4, 9]`, m.max(nil, four, a))
}

func (m *MinMaxSuite) TestAllScalars() {
	out := m.min(nil, compute.NewDatum(int64(3)), compute.NewDatum(int64(5)), compute.NewDatum(int64(-2)))
	defer out.Release()
	m.Require().Equal(compute.KindScalar, out.Kind())
	m.Equal(int64(-2), out.(*compute.ScalarDatum).Value.(*scalar.Int64).Value)

	nullArg := compute.NewDatum(scalar.MakeNullScalar(arrow.PrimitiveTypes.Int64))
	out = m.max(&compute.ElementWiseAggregateOptions{SkipNulls: false}, compute.NewDatum(int64(3)), nullArg)
	defer out.Release()
	m.False(out.(*compute.ScalarDatum).Value.IsValid())
}

func (m *MinMaxSuite) TestNullTypedArgument() {
	nullArr := array.NewNull(3)
	defer nullArr.Release()
	nulls := compute.NewDatum(nullArr)
	defer nulls.Release()
	a := m.datumFromJSON(arrow.PrimitiveTypes.Int32, `[1, 2, 3]`)
	defer a.Release()

	m.assertArrayResult(arrow.PrimitiveTypes.Int32, `[1, 2, 3]`, m.min(nil, nulls, a))
	m.assertArrayResult(arrow.PrimitiveTypes.Int32, `[null, null, null]`,
		m.min(&compute.ElementWiseAggregateOptions{SkipNulls: false}, nulls, a))
}

func (m *MinMaxSuite) TestStrings() {
	a := m.datumFromJSON(arrow.BinaryTypes.String, `["a", "z", null]`)
	defer a.Release()
	b := m.datumFromJSON(arrow.BinaryTypes.LargeString, `["b", "c", "q"]`)
	defer b.Release()

	m.assertArrayResult(arrow.BinaryTypes.LargeString, `["a", "c", "q"]`, m.min(nil, a, b))
	m.assertArrayResult(arrow.BinaryTypes.LargeString, `["b", "z", "q"]`, m.max(nil, a, b))
}

func (m *MinMaxSuite) TestDecimals() {
	a := m.datumFromJSON(&arrow.Decimal128Type{Precision: 5, Scale: 2}, `["1.23", "4.50"]`)
	defer a.Release()
	b := m.datumFromJSON(&arrow.Decimal128Type{Precision: 6, Scale: 3}, `["1.200", "5.000"]`)
	defer b.Release()

	expected := &arrow.Decimal128Type{Precision: 6, Scale: 3}
	m.assertArrayResult(expected, `["1.200", "4.500"]`, m.min(nil, a, b))
	m.assertArrayResult(expected, `["1.230", "5.000"]`, m.max(nil, a, b))
}

func (m *MinMaxSuite) TestTimestamps() {
	ts := &arrow.TimestampType{Unit: arrow.Second}
	a := m.datumFromJSON(ts, `[10, 20]`)
	defer a.Release()
	b := m.datumFromJSON(&arrow.TimestampType{Unit: arrow.Millisecond}, `[15000, 5000]`)
	defer b.Release()

	m.assertArrayResult(&arrow.TimestampType{Unit: arrow.Millisecond}, `[10000, 5000]`, m.min(nil, a, b))

	zoned := m.datumFromJSON(&arrow.TimestampType{Unit: arrow.Second, TimeZone: "UTC"}, `[1, 2]`)
	defer zoned.Release()
	_, err := compute.MaxElementWise(m.ctx, nil, a, zoned)
	requireErrorIs(m.T(), err, arrow.ErrType)
}

func (m *MinMaxSuite) TestFixedSizeBinaryWidths() {
	a := m.datumFromJSON(&arrow.FixedSizeBinaryType{ByteWidth: 2}, `["YWE="]`)
	defer a.Release()
	b := m.datumFromJSON(&arrow.FixedSizeBinaryType{ByteWidth: 3}, `["YmJi"]`)
	defer b.Release()

	_, err := compute.MinElementWise(m.ctx, nil, a, b)
	requireErrorIs(m.T(), err, arrow.ErrNotImplemented, "fixed size binary")
}

func (m *MinMaxSuite) TestIncompatibleTypes() {
	a := m.datumFromJSON(arrow.PrimitiveTypes.Int32, `[1]`)
	defer a.Release()
	b := m.datumFromJSON(arrow.BinaryTypes.String, `["x"]`)
	defer b.Release()

	_, err := compute.MaxElementWise(m.ctx, nil, a, b)
	m.Error(err)
}

func TestMinMaxElementWise(t *testing.T) {
	suite.Run(t, new(MinMaxSuite))
}

func TestMinMaxNaN(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer assertNoLeaks(t, mem)
	ctx := compute.WithAllocator(context.Background(), mem)

	build := func(vals []float64, valid []bool) compute.Datum {
		bldr := array.NewFloat64Builder(mem)
		defer bldr.Release()
		bldr.AppendValues(vals, valid)
		arr := bldr.NewArray()
		defer arr.Release()
		return compute.NewDatum(arr)
	}

	nan := math.NaN()
	a := build([]float64{nan, 1, nan, 0}, []bool{true, true, true, false})
	defer a.Release()
	b := build([]float64{2, nan, nan, nan}, nil)
	defer b.Release()

	for _, isMin := range []bool{true, false} {
		var (
			out compute.Datum
			err error
		)
		if isMin {
			out, err = compute.MinElementWise(ctx, nil, a, b)
		} else {
			out, err = compute.MaxElementWise(ctx, nil, a, b)
		}
		require.NoError(t, err)

		arr := out.(*compute.ArrayDatum).MakeArray().(*array.Float64)
		assert.Equal(t, 2.0, arr.Value(0))
		assert.Equal(t, 1.0, arr.Value(1))
		assert.True(t, math.IsNaN(arr.Value(2)))
		assert.True(t, math.IsNaN(arr.Value(3)))
		assert.Zero(t, arr.NullN())
		arr.Release()
		out.Release()
	}
}
