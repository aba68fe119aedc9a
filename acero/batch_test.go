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

package acero_test

import (
	"strings"
	"testing"

	"github.com/acero-go/acero/acero"
	"github.com/acero-go/acero/compute"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/arrow/scalar"
	"github.com/apache/arrow/go/v17/arrow/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = arrow.NewSchema([]arrow.Field{
	{Name: "i32", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: "str", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

func recordFromJSON(t *testing.T, mem memory.Allocator, js string) arrow.Record {
	t.Helper()
	rec, _, err := array.RecordFromJSON(mem, testSchema, strings.NewReader(js))
	require.NoError(t, err)
	return rec
}

func TestExecBatchToRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	ints, _, err := array.FromJSON(mem, arrow.PrimitiveTypes.Int32, strings.NewReader(`[1, null, 3]`))
	require.NoError(t, err)
	batch := acero.ExecBatch{
		Values: []compute.Datum{compute.NewDatum(ints), compute.NewDatum(scalar.NewStringScalar("x"))},
		Len:    3,
	}
	ints.Release()
	defer batch.Release()

	rec, err := batch.ToRecord(mem, testSchema)
	require.NoError(t, err)
	defer rec.Release()

	assert.EqualValues(t, 3, rec.NumRows())
	i32 := rec.Column(0).(*array.Int32)
	assert.Equal(t, int32(1), i32.Value(0))
	assert.True(t, i32.IsNull(1))
	strs := rec.Column(1).(*array.String)
	for i := 0; i < strs.Len(); i++ {
		assert.Equal(t, "x", strs.Value(i))
	}
}

func TestExecBatchToRecordErrors(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	tests := []struct {
		name   string
		batch  acero.ExecBatch
		errMsg string
	}{
		{"too few values", acero.ExecBatch{
			Values: []compute.Datum{compute.NewDatum(scalar.NewInt32Scalar(1))}, Len: 1},
			"2 fields"},
		{"wrong type", acero.ExecBatch{
			Values: []compute.Datum{compute.NewDatum(int64(1)), compute.NewDatum("a")}, Len: 1},
			"expects int32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.batch.ToRecord(mem, testSchema)
			assert.ErrorIs(t, err, arrow.ErrInvalid)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}

	rec := recordFromJSON(t, mem, `[{"i32": 1, "str": "a"}, {"i32": 2, "str": "b"}]`)
	defer rec.Release()
	batch := acero.NewExecBatch(rec)
	defer batch.Release()
	batch.Len = 5
	_, err := batch.ToRecord(mem, testSchema)
	assert.ErrorIs(t, err, arrow.ErrInvalid)
	assert.ErrorContains(t, err, "length")
}

func TestNewExecBatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := recordFromJSON(t, mem, `[{"i32": 1, "str": "a"}, {"i32": null, "str": "bcd"}]`)
	batch := acero.NewExecBatch(rec)
	size := util.TotalRecordSize(rec)
	rec.Release()

	assert.EqualValues(t, 2, batch.Len)
	require.Len(t, batch.Values, 2)
	assert.Equal(t, compute.KindArray, batch.Values[0].Kind())
	assert.EqualValues(t, size, batch.TotalBytes())
	assert.Contains(t, batch.String(), "len=2")

	scalars := acero.ExecBatch{Values: []compute.Datum{compute.NewDatum(int64(1))}, Len: 10}
	assert.Zero(t, scalars.TotalBytes())

	batch.Release()
}
