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
	"strings"
	"testing"

	"github.com/acero-go/acero/compute"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/scalar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

type CastSuite struct {
	computeSuite
}

func (c *CastSuite) checkCast(from arrow.DataType, input string, opts *compute.CastOptions, expected string) {
	in := c.arrayFromJSON(from, input)
	defer in.Release()

	out, err := compute.CastArray(c.ctx, in, opts)
	c.Require().NoError(err)
	c.assertArrayResult(opts.ToType, expected, compute.NewDatum(out))
	out.Release()
}

func (c *CastSuite) checkCastFails(from arrow.DataType, input string, opts *compute.CastOptions, contains ...string) {
	in := c.arrayFromJSON(from, input)
	defer in.Release()

	_, err := compute.CastArray(c.ctx, in, opts)
	requireErrorIs(c.T(), err, arrow.ErrInvalid, contains...)
}

func (c *CastSuite) TestIntegerOverflow() {
	to := arrow.PrimitiveTypes.Int8
	c.checkCastFails(arrow.PrimitiveTypes.Int64, `[1, 300, null]`, compute.SafeCastOptions(to), "not in range")
	c.checkCast(arrow.PrimitiveTypes.Int64, `[1, 300, null]`, compute.UnsafeCastOptions(to), `[1, 44, null]`)

	c.checkCastFails(arrow.PrimitiveTypes.Int32, `[-1]`, compute.SafeCastOptions(arrow.PrimitiveTypes.Uint32))
	c.checkCast(arrow.PrimitiveTypes.Uint8, `[0, 255]`, compute.SafeCastOptions(arrow.PrimitiveTypes.Int16), `[0, 255]`)
}

func (c *CastSuite) TestFloatToInt() {
	to := arrow.PrimitiveTypes.Int32
	c.checkCastFails(arrow.PrimitiveTypes.Float64, `[1.5, 2.0]`, compute.SafeCastOptions(to), "truncated")
	c.checkCast(arrow.PrimitiveTypes.Float64, `[1.5, 2.0, null]`, compute.UnsafeCastOptions(to), `[1, 2, null]`)
	c.checkCast(arrow.PrimitiveTypes.Float32, `[-3, 7]`, compute.SafeCastOptions(to), `[-3, 7]`)
	c.checkCastFails(arrow.PrimitiveTypes.Float64, `[1e20]`, compute.SafeCastOptions(to), "out of range")
}

func (c *CastSuite) TestIntToFloat() {
	c.checkCast(arrow.PrimitiveTypes.Int32, `[1, -2, null]`,
		compute.SafeCastOptions(arrow.PrimitiveTypes.Float64), `[1, -2, null]`)
	c.checkCastFails(arrow.PrimitiveTypes.Int64, `[9007199254740993]`,
		compute.SafeCastOptions(arrow.PrimitiveTypes.Float64), "not exactly representable")
}

func (c *CastSuite) TestBoolean() {
	c.checkCast(arrow.PrimitiveTypes.Int32, `[0, 5, null]`,
		compute.SafeCastOptions(arrow.FixedWidthTypes.Boolean), `[false, true, null]`)
	c.checkCast(arrow.FixedWidthTypes.Boolean, `[true, false]`,
		compute.SafeCastOptions(arrow.PrimitiveTypes.Uint8), `[1, 0]`)
}

func (c *CastSuite) TestDecimal() {
	dec := &arrow.Decimal128Type{Precision: 5, Scale: 2}
	c.checkCast(arrow.PrimitiveTypes.Int32, `[1, -2, null]`, compute.SafeCastOptions(dec), `["1.00", "-2.00", null]`)
	c.checkCastFails(arrow.PrimitiveTypes.Int32, `[1000]`, compute.SafeCastOptions(dec), "precision")

	c.checkCastFails(dec, `["1.23"]`, compute.SafeCastOptions(arrow.PrimitiveTypes.Int64))
	c.checkCast(dec, `["1.23", "-4.00"]`, compute.UnsafeCastOptions(arrow.PrimitiveTypes.Int64), `[1, -4]`)
	c.checkCast(dec, `["1.25"]`, compute.SafeCastOptions(arrow.PrimitiveTypes.Float64), `[1.25]`)

	wide := &arrow.Decimal256Type{Precision: 40, Scale: 3}
	c.checkCast(dec, `["1.23", null]`, compute.SafeCastOptions(wide), `["1.230", null]`)
}

func (c *CastSuite) TestTimestampUnits() {
	sec := &arrow.TimestampType{Unit: arrow.Second}
	milli := &arrow.TimestampType{Unit: arrow.Millisecond}

	c.checkCast(sec, `[1, -2, null]`, compute.SafeCastOptions(milli), `[1000, -2000, null]`)
	c.checkCast(milli, `[3000]`, compute.SafeCastOptions(sec), `[3]`)
	c.checkCastFails(milli, `[1500]`, compute.SafeCastOptions(sec), "would lose data")
	c.checkCast(milli, `[1500]`, compute.UnsafeCastOptions(sec), `[1]`)

	nano := &arrow.TimestampType{Unit: arrow.Nanosecond}
	c.checkCastFails(sec, `[9223372037]`, compute.SafeCastOptions(nano), "out of bounds")
}

func (c *CastSuite) TestDates() {
	sec := &arrow.TimestampType{Unit: arrow.Second}
	c.checkCast(arrow.FixedWidthTypes.Date32, `[0, 1, null]`, compute.SafeCastOptions(sec), `[0, 86400, null]`)
	c.checkCast(sec, `[-1, 86401]`, compute.SafeCastOptions(arrow.FixedWidthTypes.Date32), `[-1, 1]`)
	c.checkCast(arrow.FixedWidthTypes.Date32, `[2]`,
		compute.SafeCastOptions(arrow.FixedWidthTypes.Date64), `[172800000]`)
	c.checkCast(arrow.FixedWidthTypes.Date64, `[86400000]`,
		compute.SafeCastOptions(arrow.FixedWidthTypes.Date32), `[1]`)
	c.checkCast(arrow.FixedWidthTypes.Date32, `[7]`,
		compute.SafeCastOptions(arrow.PrimitiveTypes.Int32), `[7]`)
}

func (c *CastSuite) TestDuration() {
	c.checkCast(&arrow.DurationType{Unit: arrow.Second}, `[2]`,
		compute.SafeCastOptions(&arrow.DurationType{Unit: arrow.Microsecond}), `[2000000]`)
	c.checkCast(arrow.PrimitiveTypes.Int64, `[5]`,
		compute.SafeCastOptions(&arrow.DurationType{Unit: arrow.Second}), `[5]`)
}

func (c *CastSuite) TestTimes() {
	c.checkCast(arrow.FixedWidthTypes.Time32s, `[1, null, 86399]`,
		compute.SafeCastOptions(arrow.FixedWidthTypes.Time32ms), `[1000, null, 86399000]`)
	c.checkCast(arrow.FixedWidthTypes.Time32ms, `[2000]`,
		compute.SafeCastOptions(arrow.FixedWidthTypes.Time64us), `[2000000]`)
	c.checkCast(arrow.FixedWidthTypes.Time64ns, `[3000000000]`,
		compute.SafeCastOptions(arrow.FixedWidthTypes.Time32s), `[3]`)
	c.checkCast(arrow.PrimitiveTypes.Int32, `[7]`,
		compute.SafeCastOptions(arrow.FixedWidthTypes.Time32s), `[7]`)

	c.checkCastFails(arrow.FixedWidthTypes.Time32ms, `[1500]`,
		compute.SafeCastOptions(arrow.FixedWidthTypes.Time32s), "would lose data")
	opts := compute.SafeCastOptions(arrow.FixedWidthTypes.Time32s)
	opts.AllowTimeTruncate = true
	c.checkCast(arrow.FixedWidthTypes.Time32ms, `[1500]`, opts, `[1]`)
}

func (c *CastSuite) TestBinaryToString() {
	bldr := array.NewBinaryBuilder(c.mem, arrow.BinaryTypes.Binary)
	defer bldr.Release()
	bldr.Append([]byte("ok"))
	bldr.Append([]byte{0xff, 0xfe})
	bldr.AppendNull()
	in := bldr.NewArray()
	defer in.Release()

	_, err := compute.CastArray(c.ctx, in, compute.SafeCastOptions(arrow.BinaryTypes.String))
	requireErrorIs(c.T(), err, arrow.ErrInvalid, "invalid UTF8")

	opts := compute.SafeCastOptions(arrow.BinaryTypes.String)
	opts.AllowInvalidUtf8 = true
	out, err := compute.CastArray(c.ctx, in, opts)
	c.Require().NoError(err)
	defer out.Release()
	c.Equal(3, out.Len())
	c.Equal("ok", out.(*array.String).Value(0))
	c.True(out.IsNull(2))
}

func (c *CastSuite) TestStringConversions() {
	c.checkCast(arrow.BinaryTypes.String, `["a", null, "bc"]`,
		compute.SafeCastOptions(arrow.BinaryTypes.LargeString), `["a", null, "bc"]`)

	fsb := &arrow.FixedSizeBinaryType{ByteWidth: 2}
	in := c.arrayFromJSON(arrow.BinaryTypes.String, `["ab", null]`)
	defer in.Release()
	out, err := compute.CastArray(c.ctx, in, compute.SafeCastOptions(fsb))
	c.Require().NoError(err)
	defer out.Release()
	c.True(arrow.TypeEqual(fsb, out.DataType()))
	c.Equal([]byte("ab"), out.(*array.FixedSizeBinary).Value(0))
	c.True(out.IsNull(1))

	c.checkCastFails(arrow.BinaryTypes.String, `["abc"]`, compute.SafeCastOptions(fsb), "widths must match")
}

func (c *CastSuite) TestFromNull() {
	nulls := array.NewNull(2)
	defer nulls.Release()

	out, err := compute.CastArray(c.ctx, nulls, compute.SafeCastOptions(arrow.PrimitiveTypes.Int32))
	c.Require().NoError(err)
	c.assertArrayResult(arrow.PrimitiveTypes.Int32, `[null, null]`, compute.NewDatum(out))
	out.Release()
}

func (c *CastSuite) TestDictionary() {
	dt := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int8, ValueType: arrow.BinaryTypes.String}
	dict, err := array.DictArrayFromJSON(c.mem, dt, `[1, 0, null, 1]`, `["x", "y"]`)
	c.Require().NoError(err)
	defer dict.Release()

	out, err := compute.CastArray(c.ctx, dict, compute.SafeCastOptions(arrow.BinaryTypes.String))
	c.Require().NoError(err)
	c.assertArrayResult(arrow.BinaryTypes.String, `["y", "x", null, "y"]`, compute.NewDatum(out))
	out.Release()

	intDt := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int16, ValueType: arrow.PrimitiveTypes.Int32}
	intDict, err := array.DictArrayFromJSON(c.mem, intDt, `[0, 1, 0]`, `[7, -1]`)
	c.Require().NoError(err)
	defer intDict.Release()

	out, err = compute.CastArray(c.ctx, intDict, compute.SafeCastOptions(arrow.PrimitiveTypes.Int64))
	c.Require().NoError(err)
	c.assertArrayResult(arrow.PrimitiveTypes.Int64, `[7, -1, 7]`, compute.NewDatum(out))
	out.Release()
}

func (c *CastSuite) TestIdentity() {
	in := c.datumFromJSON(arrow.PrimitiveTypes.Int32, `[1, 2]`)
	defer in.Release()

	out, err := compute.CastDatum(c.ctx, in, compute.SafeCastOptions(arrow.PrimitiveTypes.Int32))
	c.Require().NoError(err)
	defer out.Release()
	c.Same(in.(*compute.ArrayDatum).Value, out.(*compute.ArrayDatum).Value)
}

func (c *CastSuite) TestScalar() {
	out, err := compute.CastDatum(c.ctx, compute.NewDatum(int64(42)), compute.SafeCastOptions(arrow.PrimitiveTypes.Int16))
	c.Require().NoError(err)
	defer out.Release()
	c.Require().Equal(compute.KindScalar, out.Kind())
	c.Equal(int16(42), out.(*compute.ScalarDatum).Value.(*scalar.Int16).Value)
}

func (c *CastSuite) TestUnsupported() {
	in := c.datumFromJSON(arrow.PrimitiveTypes.Int32, `[1]`)
	defer in.Release()

	_, err := compute.CastDatum(c.ctx, in, compute.SafeCastOptions(arrow.ListOf(arrow.PrimitiveTypes.Int32)))
	requireErrorIs(c.T(), err, arrow.ErrNotImplemented, "unsupported cast")

	_, err = compute.CastDatum(c.ctx, in, compute.SafeCastOptions(arrow.FixedWidthTypes.Date64))
	requireErrorIs(c.T(), err, arrow.ErrNotImplemented, "unsupported cast from int32")
}

func (c *CastSuite) TestOptionsRequired() {
	in := c.datumFromJSON(arrow.PrimitiveTypes.Int32, `[1]`)
	defer in.Release()

	_, err := c.call("cast", nil, in)
	requireErrorIs(c.T(), err, arrow.ErrInvalid, "without options")

	_, err = c.call("cast", &compute.CastOptions{}, in)
	requireErrorIs(c.T(), err, arrow.ErrInvalid, "ToType")
}

func TestCast(t *testing.T) {
	suite.Run(t, new(CastSuite))
}

func TestCanCast(t *testing.T) {
	dict := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int8, ValueType: arrow.BinaryTypes.String}

	tests := []struct {
		from, to arrow.DataType
		expected bool
	}{
		{arrow.PrimitiveTypes.Int32, arrow.PrimitiveTypes.Int64, true},
		{arrow.PrimitiveTypes.Int32, arrow.PrimitiveTypes.Int32, true},
		{arrow.PrimitiveTypes.Float64, &arrow.Decimal128Type{Precision: 10, Scale: 2}, true},
		{arrow.Null, arrow.BinaryTypes.String, true},
		{dict, arrow.BinaryTypes.LargeString, true},
		{arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int32, false},
		{arrow.PrimitiveTypes.Int32, arrow.ListOf(arrow.PrimitiveTypes.Int32), false},
		{arrow.FixedWidthTypes.Date32, arrow.PrimitiveTypes.Int64, false},
		{&arrow.TimestampType{Unit: arrow.Second}, arrow.PrimitiveTypes.Int64, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, compute.CanCast(tt.from, tt.to))
		})
	}
}

func TestGetCastFunctionConcurrent(t *testing.T) {
	const workers = 16
	fns := make([]*compute.CastFunction, workers)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			fn, err := compute.GetCastFunction(arrow.PrimitiveTypes.Int64)
			fns[i] = fn
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, fn := range fns[1:] {
		assert.Same(t, fns[0], fn)
	}
	assert.Equal(t, "cast_int64", fns[0].Name())
	assert.Equal(t, arrow.INT64, fns[0].OutID())
	assert.Contains(t, fns[0].InputIDs(), arrow.TIMESTAMP)
	assert.Contains(t, fns[0].InputIDs(), arrow.DICTIONARY)
}

func TestGetCastFunctionUnknown(t *testing.T) {
	_, err := compute.GetCastFunction(arrow.StructOf())
	require.ErrorIs(t, err, arrow.ErrNotImplemented)
	assert.True(t, strings.Contains(err.Error(), "unsupported cast to"))
}
