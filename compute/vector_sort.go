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

package compute

import (
	"context"
	"fmt"

	"github.com/acero-go/acero/compute/internal/kernels"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

type (
	SortKey       = kernels.SortKey
	SortOrder     = kernels.Order
	NullPlacement = kernels.NullPlacement
)

const (
	Ascending    = kernels.Ascending
	Descending   = kernels.Descending
	NullsAtStart = kernels.AtStart
	NullsAtEnd   = kernels.AtEnd
)

// SortOptions orders rows by SortKeys, earlier keys taking precedence.
type SortOptions struct {
	SortKeys      []SortKey     `compute:"sort_keys"`
	NullPlacement NullPlacement `compute:"null_placement"`
}

func (SortOptions) TypeName() string { return "SortOptions" }

// SelectKOptions keeps the first K rows in SortKeys order. Nulls always
// sort last.
type SelectKOptions struct {
	K        int       `compute:"k"`
	SortKeys []SortKey `compute:"sort_keys"`
}

func (SelectKOptions) TypeName() string { return "SelectKOptions" }

// SortIndices returns the indices of the rows of rec in the order given
// by keys. Ties keep their input order. If k is non-negative only the
// first k indices are returned.
func SortIndices(rec arrow.Record, keys []SortKey, placement NullPlacement, k int) ([]int, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: must specify one or more sort keys", arrow.ErrInvalid)
	}

	cols := make([]arrow.Array, len(keys))
	for i, key := range keys {
		idx := rec.Schema().FieldIndices(key.Name)
		switch len(idx) {
		case 0:
			return nil, fmt.Errorf("%w: no column named %q to sort by", arrow.ErrInvalid, key.Name)
		case 1:
			cols[i] = rec.Column(idx[0])
		default:
			return nil, fmt.Errorf("%w: sort key %q is ambiguous", arrow.ErrInvalid, key.Name)
		}
	}

	cmp, err := kernels.NewRowComparator(cols, keys, placement)
	if err != nil {
		return nil, err
	}
	return kernels.SortIndices(int(rec.NumRows()), cmp, k), nil
}

// TakeArray gathers the values of arr at indices, allocating from the
// context's allocator. A negative index yields a null.
func TakeArray(ctx context.Context, arr arrow.Array, indices []int) (arrow.Array, error) {
	return kernels.TakeRows(GetAllocator(ctx), arr, indices)
}

// TakeRecord gathers the rows of rec at indices into a new record.
func TakeRecord(ctx context.Context, rec arrow.Record, indices []int) (arrow.Record, error) {
	cols := make([]arrow.Array, 0, rec.NumCols())
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for i, col := range rec.Columns() {
		taken, err := TakeArray(ctx, col, indices)
		if err != nil {
			return nil, fmt.Errorf("taking column %q: %w", rec.ColumnName(i), err)
		}
		cols = append(cols, taken)
	}
	return array.NewRecord(rec.Schema(), cols, int64(len(indices))), nil
}
