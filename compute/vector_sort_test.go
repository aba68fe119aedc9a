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
	"strings"
	"testing"

	"github.com/acero-go/acero/compute"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortTestRecord(t *testing.T, mem memory.Allocator) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "b", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	rec, _, err := array.RecordFromJSON(mem, schema, strings.NewReader(`[
		{"a": 3, "b": "x"},
		{"a": 1, "b": "b"},
		{"a": null, "b": "z"},
		{"a": 1, "b": "a"},
		{"a": 2, "b": "y"}
	]`))
	require.NoError(t, err)
	return rec
}

func TestSortIndices(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := sortTestRecord(t, mem)
	defer rec.Release()

	tests := []struct {
		name      string
		keys      []compute.SortKey
		placement compute.NullPlacement
		k         int
		expected  []int
	}{
		{"a asc", []compute.SortKey{{Name: "a"}}, compute.NullsAtEnd, -1, []int{1, 3, 4, 0, 2}},
		{"a asc nulls first", []compute.SortKey{{Name: "a"}}, compute.NullsAtStart, -1, []int{2, 1, 3, 4, 0}},
		{"a asc b asc", []compute.SortKey{{Name: "a"}, {Name: "b"}}, compute.NullsAtEnd, -1, []int{3, 1, 4, 0, 2}},
		{"b desc", []compute.SortKey{{Name: "b", Order: compute.Descending}}, compute.NullsAtEnd, -1, []int{2, 4, 0, 1, 3}},
		{"top 2", []compute.SortKey{{Name: "a", Order: compute.Descending}}, compute.NullsAtEnd, 2, []int{0, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compute.SortIndices(rec, tt.keys, tt.placement, tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSortIndicesInvalidKeys(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := sortTestRecord(t, mem)
	defer rec.Release()

	_, err := compute.SortIndices(rec, nil, compute.NullsAtEnd, -1)
	requireErrorIs(t, err, arrow.ErrInvalid, "sort keys")

	_, err = compute.SortIndices(rec, []compute.SortKey{{Name: "missing"}}, compute.NullsAtEnd, -1)
	requireErrorIs(t, err, arrow.ErrInvalid, `"missing"`)
}

func TestTakeRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)
	ctx := compute.WithAllocator(context.Background(), mem)

	rec := sortTestRecord(t, mem)
	defer rec.Release()

	taken, err := compute.TakeRecord(ctx, rec, []int{4, 2, -1})
	require.NoError(t, err)
	defer taken.Release()

	assert.EqualValues(t, 3, taken.NumRows())
	assert.True(t, taken.Schema().Equal(rec.Schema()))

	a := taken.Column(0).(*array.Int32)
	assert.Equal(t, int32(2), a.Value(0))
	assert.True(t, a.IsNull(1))
	assert.True(t, a.IsNull(2))

	b := taken.Column(1).(*array.String)
	assert.Equal(t, "y", b.Value(0))
	assert.Equal(t, "z", b.Value(1))
	assert.True(t, b.IsNull(2))
}

func TestTakeArrayUnsupported(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	bldr := array.NewListBuilder(mem, arrow.PrimitiveTypes.Int8)
	defer bldr.Release()
	bldr.AppendNull()
	arr := bldr.NewArray()
	defer arr.Release()

	_, err := compute.TakeArray(compute.WithAllocator(context.Background(), mem), arr, []int{0})
	requireErrorIs(t, err, arrow.ErrNotImplemented, "list")
}
