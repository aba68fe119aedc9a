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

	"github.com/apache/arrow/go/v17/arrow"
	"golang.org/x/exp/slices"
)

type SortKey struct {
	Name  string `compute:"name"`
	Order Order  `compute:"order"`
}

type Order int

const (
	Ascending Order = iota
	Descending
)

type NullPlacement int

const (
	AtStart NullPlacement = iota
	AtEnd
)

// RowComparator orders row i against row j of a set of columns.
type RowComparator func(i, j int) int

// NewRowComparator builds the comparator for sorting cols, where
// keys[k] is ordered by cols[k]. Nulls are placed according to
// placement regardless of the key's order, and ties fall through to
// the next key.
func NewRowComparator(cols []arrow.Array, keys []SortKey, placement NullPlacement) (RowComparator, error) {
	if len(cols) != len(keys) {
		return nil, fmt.Errorf("%w: %d sort keys for %d columns", arrow.ErrInvalid, len(keys), len(cols))
	}

	cmps := make([]func(i, j int) int, len(cols))
	for k, col := range cols {
		cmp, err := NewComparator(col, col)
		if err != nil {
			return nil, err
		}
		cmps[k] = cmp
	}

	nullOrder := -1
	if placement == AtEnd {
		nullOrder = 1
	}

	return func(i, j int) int {
		for k, col := range cols {
			iNull, jNull := col.IsNull(i), col.IsNull(j)
			switch {
			case iNull && jNull:
				continue
			case iNull:
				return nullOrder
			case jNull:
				return -nullOrder
			}

			c := cmps[k](i, j)
			if keys[k].Order == Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	}, nil
}

// SortIndices returns the stable permutation of [0, n) ordering rows by
// cmp. If k is non-negative only the first k indices are returned.
func SortIndices(n int, cmp RowComparator, k int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	slices.SortStableFunc(indices, func(a, b int) int { return cmp(a, b) })
	if k >= 0 && k < n {
		indices = indices[:k]
	}
	return indices
}
