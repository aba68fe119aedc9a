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
	"testing"

	"github.com/acero-go/acero/compute"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/scalar"
	"github.com/stretchr/testify/suite"
)

type BetweenSuite struct {
	computeSuite
}

func (b *BetweenSuite) between(inclusive compute.Inclusive, val, lower, upper compute.Datum) compute.Datum {
	out, err := compute.Between(b.ctx, val, lower, upper, inclusive)
	b.Require().NoError(err)
	return out
}

func (b *BetweenSuite) scalarBool(d compute.Datum) (value, valid bool) {
	defer d.Release()
	b.Require().Equal(compute.KindScalar, d.Kind())
	sc := d.(*compute.ScalarDatum).Value.(*scalar.Boolean)
	return sc.Value, sc.IsValid()
}

func (b *BetweenSuite) TestScalarBounds() {
	two := compute.NewDatum(int64(2))
	three := compute.NewDatum(int64(3))
	four := compute.NewDatum(int64(4))

	v, ok := b.scalarBool(b.between(compute.InclusiveBoth, three, two, four))
	b.True(ok)
	b.True(v)

	v, ok = b.scalarBool(b.between(compute.InclusiveNeither, two, two, four))
	b.True(ok)
	b.False(v)

	v, _ = b.scalarBool(b.between(compute.InclusiveLeft, two, two, four))
	b.True(v)
	v, _ = b.scalarBool(b.between(compute.InclusiveRight, two, two, four))
	b.False(v)
	v, _ = b.scalarBool(b.between(compute.InclusiveRight, four, two, four))
	b.True(v)
	v, _ = b.scalarBool(b.between(compute.InclusiveLeft, four, two, four))
	b.False(v)
}

func (b *BetweenSuite) TestInclusiveness() {
	val := b.datumFromJSON(arrow.PrimitiveTypes.Int32, `[1, 2, 3, 4, 5, null]`)
	defer val.Release()
	lower := compute.NewDatum(scalar.NewInt32Scalar(2))
	upper := compute.NewDatum(scalar.NewInt32Scalar(4))

	tests := []struct {
		inclusive compute.Inclusive
		expected  string
	}{
		{compute.InclusiveBoth, `[false, true, true, true, false, null]`},
		{compute.InclusiveLeft, `[false, true, true, false, false, null]`},
		{compute.InclusiveRight, `[false, false, true, true, false, null]`},
		{compute.InclusiveNeither, `[false, false, true, false, false, null]`},
	}

	for _, tt := range tests {
		b.Run(tt.inclusive.String(), func() {
			b.assertBoolResult(tt.expected, b.between(tt.inclusive, val, lower, upper))
		})
	}
}

func (b *BetweenSuite) TestNullsInAnyOperand() {
	val := b.datumFromJSON(arrow.PrimitiveTypes.Float64, `[1, 2, 3, null]`)
	defer val.Release()
	lower := b.datumFromJSON(arrow.PrimitiveTypes.Float64, `[0, null, 0, 0]`)
	defer lower.Release()
	upper := b.datumFromJSON(arrow.PrimitiveTypes.Float64, `[5, 5, null, 5]`)
	defer upper.Release()

	b.assertBoolResult(`[true, null, null, null]`, b.between(compute.InclusiveBoth, val, lower, upper))
}

func (b *BetweenSuite) TestMixedTypes() {
	val := b.datumFromJSON(arrow.PrimitiveTypes.Int8, `[1, 5, 10]`)
	defer val.Release()
	lower := b.datumFromJSON(arrow.PrimitiveTypes.Float64, `[0.5, 5.5, 9.5]`)
	defer lower.Release()
	upper := compute.NewDatum(scalar.NewUint32Scalar(9))

	b.assertBoolResult(`[true, false, false]`, b.between(compute.InclusiveBoth, val, lower, upper))

	str := b.datumFromJSON(arrow.BinaryTypes.String, `["b", "m", "z"]`)
	defer str.Release()
	b.assertBoolResult(`[true, true, false]`, b.between(compute.InclusiveBoth, str,
		compute.NewDatum("a"), compute.NewDatum("m")))
}

func (b *BetweenSuite) TestDecomposition() {
	val := b.datumFromJSON(arrow.PrimitiveTypes.Int64, `[0, 1, 2, 3, 4, 5, null, 7]`)
	defer val.Release()
	lower := b.datumFromJSON(arrow.PrimitiveTypes.Int64, `[1, 1, 3, 0, null, 5, 1, 8]`)
	defer lower.Release()
	upper := b.datumFromJSON(arrow.PrimitiveTypes.Int64, `[2, 1, 4, 3, 9, 4, 9, 9]`)
	defer upper.Release()

	got := b.between(compute.InclusiveBoth, val, lower, upper)
	defer got.Release()

	left, err := compute.Compare(b.ctx, compute.LessEqual, lower, val)
	b.Require().NoError(err)
	defer left.Release()
	right, err := compute.Compare(b.ctx, compute.LessEqual, val, upper)
	b.Require().NoError(err)
	defer right.Release()
	expected, err := b.call("and", nil, left, right)
	b.Require().NoError(err)
	defer expected.Release()

	b.True(expected.Equals(got))
}

func (b *BetweenSuite) TestTimestampZoneMismatch() {
	val := b.datumFromJSON(&arrow.TimestampType{Unit: arrow.Second}, `[1]`)
	defer val.Release()
	lower := b.datumFromJSON(&arrow.TimestampType{Unit: arrow.Second, TimeZone: "UTC"}, `[0]`)
	defer lower.Release()

	_, err := compute.Between(b.ctx, val, lower, val, compute.InclusiveBoth)
	requireErrorIs(b.T(), err, arrow.ErrType, "timezone")
}

func (b *BetweenSuite) TestDefaultOptions() {
	out, err := b.call("between", nil, compute.NewDatum(int64(2)), compute.NewDatum(int64(2)), compute.NewDatum(int64(2)))
	b.Require().NoError(err)
	v, ok := b.scalarBool(out)
	b.True(ok)
	b.True(v)
}

func TestBetween(t *testing.T) {
	suite.Run(t, new(BetweenSuite))
}
