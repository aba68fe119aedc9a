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
	"github.com/stretchr/testify/suite"
)

var registry compute.FunctionRegistry

func init() {
	// make tests fail if there's a problem initializing the global
	// function registry
	registry = compute.GetFunctionRegistry()
}

// computeSuite carries a checked allocator on the context handed to
// every call so each test can assert nothing leaked.
type computeSuite struct {
	suite.Suite

	mem *memory.CheckedAllocator
	ctx context.Context
}

func (c *computeSuite) SetupTest() {
	c.mem = memory.NewCheckedAllocator(memory.DefaultAllocator)
	c.ctx = compute.WithAllocator(context.Background(), c.mem)
}

func (c *computeSuite) TearDownTest() {
	c.mem.AssertSize(c.T(), 0)
}

func (c *computeSuite) arrayFromJSON(dt arrow.DataType, js string) arrow.Array {
	arr, _, err := array.FromJSON(c.mem, dt, strings.NewReader(js), array.WithUseNumber())
	c.Require().NoError(err)
	return arr
}

// datumFromJSON returns an array datum which the caller must release.
func (c *computeSuite) datumFromJSON(dt arrow.DataType, js string) compute.Datum {
	arr := c.arrayFromJSON(dt, js)
	defer arr.Release()
	return compute.NewDatum(arr)
}

func (c *computeSuite) call(name string, opts compute.FunctionOptions, args ...compute.Datum) (compute.Datum, error) {
	return compute.CallFunction(c.ctx, name, opts, args...)
}

// assertArrayResult checks that got is an array datum equal to the JSON
// array expected of type dt, then releases got.
func (c *computeSuite) assertArrayResult(dt arrow.DataType, expected string, got compute.Datum) {
	defer got.Release()

	exp := c.arrayFromJSON(dt, expected)
	defer exp.Release()

	c.Require().Equal(compute.KindArray, got.Kind())
	arr := got.(*compute.ArrayDatum).MakeArray()
	defer arr.Release()

	c.Truef(arrow.TypeEqual(dt, arr.DataType()), "expected type %s, got %s", dt, arr.DataType())
	c.Truef(array.Equal(exp, arr), "expected %s, got %s", exp, arr)
}

func (c *computeSuite) assertBoolResult(expected string, got compute.Datum) {
	c.assertArrayResult(arrow.FixedWidthTypes.Boolean, expected, got)
}

func assertNoLeaks(t *testing.T, mem *memory.CheckedAllocator) {
	t.Helper()
	mem.AssertSize(t, 0)
}

func requireErrorIs(t *testing.T, err, target error, contains ...string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, target)
	for _, s := range contains {
		assert.Contains(t, err.Error(), s)
	}
}
