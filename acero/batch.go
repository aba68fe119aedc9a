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

package acero

import (
	"fmt"

	"github.com/acero-go/acero/compute"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/arrow/scalar"
	"github.com/apache/arrow/go/v17/arrow/util"
)

// ExecBatch is the unit of data exchanged between nodes: a set of
// values of equal logical length. A scalar value stands for a column
// repeating it Len times.
type ExecBatch struct {
	Values []compute.Datum
	Len    int64
}

// NewExecBatch wraps the columns of rec, retaining them.
func NewExecBatch(rec arrow.Record) ExecBatch {
	values := make([]compute.Datum, rec.NumCols())
	for i, col := range rec.Columns() {
		values[i] = compute.NewDatum(col)
	}
	return ExecBatch{Values: values, Len: rec.NumRows()}
}

func (b ExecBatch) Release() {
	for _, v := range b.Values {
		if v != nil {
			v.Release()
		}
	}
}

// TotalBytes is the size of the buffers referenced by the array values
// of the batch. Scalars do not count.
func (b ExecBatch) TotalBytes() uint64 {
	var total int64
	for _, v := range b.Values {
		if ad, ok := v.(*compute.ArrayDatum); ok {
			arr := ad.MakeArray()
			total += util.TotalArraySize(arr)
			arr.Release()
		}
	}
	return uint64(total)
}

// ToRecord materializes the batch as a record of the given schema,
// broadcasting scalar values to full columns allocated from mem.
func (b ExecBatch) ToRecord(mem memory.Allocator, schema *arrow.Schema) (arrow.Record, error) {
	if len(b.Values) != schema.NumFields() {
		return nil, fmt.Errorf("%w: batch has %d values but schema has %d fields",
			arrow.ErrInvalid, len(b.Values), schema.NumFields())
	}

	cols := make([]arrow.Array, 0, len(b.Values))
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for i, v := range b.Values {
		var (
			col arrow.Array
			err error
		)
		switch v := v.(type) {
		case *compute.ArrayDatum:
			col = v.MakeArray()
		case *compute.ScalarDatum:
			col, err = scalar.MakeArrayFromScalar(v.Value, int(b.Len), mem)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: cannot convert %s value to a column", arrow.ErrInvalid, v.Kind())
		}
		cols = append(cols, col)

		if !arrow.TypeEqual(col.DataType(), schema.Field(i).Type) {
			return nil, fmt.Errorf("%w: value %d has type %s, schema expects %s",
				arrow.ErrInvalid, i, col.DataType(), schema.Field(i).Type)
		}
		if int64(col.Len()) != b.Len {
			return nil, fmt.Errorf("%w: value %d has length %d, batch length is %d",
				arrow.ErrInvalid, i, col.Len(), b.Len)
		}
	}
	return array.NewRecord(schema, cols, b.Len), nil
}

func (b ExecBatch) String() string {
	return fmt.Sprintf("ExecBatch{len=%d, values=%v}", b.Len, b.Values)
}
