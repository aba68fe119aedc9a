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

package exec_test

import (
	"context"
	"strings"
	"testing"

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/bitutil"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputTypeMatches(t *testing.T) {
	exact := exec.NewExactInput(&arrow.TimestampType{Unit: arrow.Second})
	assert.True(t, exact.Matches(&arrow.TimestampType{Unit: arrow.Second}))
	assert.False(t, exact.Matches(&arrow.TimestampType{Unit: arrow.Millisecond}))
	assert.Equal(t, arrow.TIMESTAMP, exact.MatchID())

	byID := exec.NewIDInput(arrow.TIMESTAMP)
	assert.True(t, byID.Matches(&arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}))
	assert.False(t, byID.Matches(arrow.PrimitiveTypes.Int64))
	assert.Equal(t, arrow.TIMESTAMP, byID.MatchID())

	unit := exec.NewMatchedInput(exec.TimestampTypeUnit(arrow.Millisecond))
	assert.True(t, unit.Matches(&arrow.TimestampType{Unit: arrow.Millisecond}))
	assert.False(t, unit.Matches(&arrow.TimestampType{Unit: arrow.Second}))

	assert.True(t, exec.NewMatchedInput(exec.Integer()).Matches(arrow.PrimitiveTypes.Uint16))
	assert.True(t, exec.NewMatchedInput(exec.BinaryLike()).Matches(arrow.BinaryTypes.String))
	assert.True(t, exec.NewMatchedInput(exec.Decimal()).Matches(&arrow.Decimal256Type{Precision: 40}))
	assert.True(t, exec.InputType{}.Matches(arrow.Null))
}

func TestInputTypeEquals(t *testing.T) {
	a := exec.NewIDInput(arrow.INT32)
	b := exec.NewIDInput(arrow.INT32)
	c := exec.NewExactInput(arrow.PrimitiveTypes.Int32)

	assert.True(t, a.Equals(&b))
	assert.False(t, a.Equals(&c))
	d := exec.NewExactInput(arrow.PrimitiveTypes.Int32)
	assert.True(t, c.Equals(&d))
}

func TestSignatureMatchesInputs(t *testing.T) {
	i32, str := arrow.PrimitiveTypes.Int32, arrow.BinaryTypes.String

	fixed := exec.KernelSignature{
		InputTypes: []exec.InputType{exec.NewExactInput(i32), exec.NewExactInput(str)},
		OutType:    exec.NewOutputType(arrow.FixedWidthTypes.Boolean),
	}
	assert.True(t, fixed.MatchesInputs([]arrow.DataType{i32, str}))
	assert.False(t, fixed.MatchesInputs([]arrow.DataType{str, i32}))
	assert.False(t, fixed.MatchesInputs([]arrow.DataType{i32}))
	assert.Equal(t, "(int32, utf8) -> bool", fixed.String())

	varargs := exec.KernelSignature{
		InputTypes: []exec.InputType{exec.NewExactInput(str), exec.NewExactInput(i32)},
		OutType:    exec.NewComputedOutputType(exec.FirstType),
		IsVarArgs:  true,
	}
	assert.True(t, varargs.MatchesInputs([]arrow.DataType{str, i32, i32, i32}))
	assert.False(t, varargs.MatchesInputs([]arrow.DataType{str, i32, str}))
	assert.True(t, strings.HasPrefix(varargs.String(), "varargs["))
	assert.False(t, varargs.Equals(fixed))
}

func TestOutputTypeResolve(t *testing.T) {
	out, err := exec.NewOutputType(arrow.PrimitiveTypes.Int8).Resolve(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, arrow.PrimitiveTypes.Int8, out)

	out, err = exec.NewComputedOutputType(exec.FirstType).Resolve(nil,
		[]arrow.DataType{arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int8})
	require.NoError(t, err)
	assert.Equal(t, arrow.BinaryTypes.String, out)
}

type testOptions struct {
	Flag bool
}

func TestOptionsInit(t *testing.T) {
	state, err := exec.OptionsInit[testOptions](nil, exec.KernelInitArgs{Options: &testOptions{Flag: true}})
	require.NoError(t, err)
	assert.Equal(t, testOptions{Flag: true}, state)

	_, err = exec.OptionsInit[testOptions](nil, exec.KernelInitArgs{Options: testOptions{}})
	assert.ErrorIs(t, err, arrow.ErrInvalid)
}

func TestIntersectValidity(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	build := func(valid []bool) arrow.Array {
		bldr := array.NewInt32Builder(mem)
		defer bldr.Release()
		bldr.AppendValues(make([]int32, len(valid)), valid)
		return bldr.NewArray()
	}

	a := build([]bool{true, false, true, true})
	defer a.Release()
	b := build([]bool{true, true, false, true})
	defer b.Release()
	full := build(nil)
	defer full.Release()

	assert.Nil(t, exec.IntersectValidity(4, full, full))

	bits := exec.IntersectValidity(4, a, full, b)
	require.NotNil(t, bits)
	got := make([]bool, 4)
	for i := range got {
		got[i] = bitutil.BitIsSet(bits, i)
	}
	assert.Equal(t, []bool{true, false, false, true}, got)

	nulls := array.NewNull(4)
	defer nulls.Release()
	bits = exec.IntersectValidity(4, full, nulls)
	for i := 0; i < 4; i++ {
		assert.False(t, bitutil.BitIsSet(bits, i))
	}

	batch := exec.ExecBatch{Values: []arrow.Array{a, b}, Len: 4, Validity: exec.IntersectValidity(4, a, b)}
	assert.True(t, batch.IsValid(0))
	assert.False(t, batch.IsValid(2))
	assert.True(t, (&exec.ExecBatch{Len: 1}).IsValid(0))
}

func TestAllocatorOnContext(t *testing.T) {
	mem := memory.NewGoAllocator()
	ctx := exec.WithAllocator(context.Background(), mem)
	kctx := &exec.KernelCtx{Ctx: ctx}
	assert.Same(t, mem, kctx.Allocator())
}
