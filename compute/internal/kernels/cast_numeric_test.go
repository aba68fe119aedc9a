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
	"math"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/stretchr/testify/assert"
)

func TestFloatBounds(t *testing.T) {
	lo, hi := floatBounds[int8]()
	assert.Equal(t, -128.0, lo)
	assert.Equal(t, 128.0, hi)

	lo, hi = floatBounds[uint16]()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 65536.0, hi)

	assert.True(t, isSigned[int64]())
	assert.False(t, isSigned[uint64]())
}

func TestIntToInt(t *testing.T) {
	safe := intToInt[int64, uint8](CastOptions{}, arrow.PrimitiveTypes.Uint8)
	v, err := safe(255)
	assert.NoError(t, err)
	assert.Equal(t, uint8(255), v)

	_, err = safe(256)
	assert.ErrorIs(t, err, arrow.ErrInvalid)
	_, err = safe(-1)
	assert.ErrorIs(t, err, arrow.ErrInvalid)

	unsafe := intToInt[int64, uint8](CastOptions{AllowIntOverflow: true}, arrow.PrimitiveTypes.Uint8)
	v, err = unsafe(257)
	assert.NoError(t, err)
	assert.Equal(t, uint8(1), v)

	signFlip := intToInt[uint64, int64](CastOptions{}, arrow.PrimitiveTypes.Int64)
	_, err = signFlip(math.MaxUint64)
	assert.ErrorIs(t, err, arrow.ErrInvalid)
}

func TestFloatToInt(t *testing.T) {
	conv := floatToInt[float64, int16](CastOptions{}, arrow.PrimitiveTypes.Int16)

	v, err := conv(-32768)
	assert.NoError(t, err)
	assert.Equal(t, int16(-32768), v)

	_, err = conv(32768)
	assert.ErrorIs(t, err, arrow.ErrInvalid)
	_, err = conv(0.5)
	assert.ErrorIs(t, err, arrow.ErrInvalid)
	_, err = conv(math.NaN())
	assert.ErrorIs(t, err, arrow.ErrInvalid)

	truncating := floatToInt[float64, int16](CastOptions{AllowFloatTruncate: true}, arrow.PrimitiveTypes.Int16)
	v, err = truncating(-2.7)
	assert.NoError(t, err)
	assert.Equal(t, int16(-2), v)
}

func TestTimeShift(t *testing.T) {
	sec := &arrow.TimestampType{Unit: arrow.Second}
	ms := &arrow.TimestampType{Unit: arrow.Millisecond}

	up := shiftTime(CastOptions{}, arrow.Second, arrow.Millisecond, sec, ms)
	v, err := up(-3)
	assert.NoError(t, err)
	assert.Equal(t, int64(-3000), v)

	_, err = up(math.MaxInt64 / 10)
	assert.ErrorIs(t, err, arrow.ErrInvalid)

	down := shiftTime(CastOptions{}, arrow.Millisecond, arrow.Second, ms, sec)
	v, err = down(4000)
	assert.NoError(t, err)
	assert.Equal(t, int64(4), v)
	_, err = down(4001)
	assert.ErrorIs(t, err, arrow.ErrInvalid)

	assert.Equal(t, int64(-1), floorDiv(-1, 86400))
	assert.Equal(t, int64(0), floorDiv(86399, 86400))
	assert.Equal(t, int64(86400*1000), ticksPerDay(arrow.Millisecond))
}

func TestCastOptionsIsSafe(t *testing.T) {
	assert.True(t, (&CastOptions{}).IsSafe())
	assert.False(t, (&CastOptions{AllowInvalidUtf8: true}).IsSafe())
}
