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
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/decimal128"
	"github.com/apache/arrow/go/v17/arrow/decimal256"
)

// The helpers below implement implicit promotion for DispatchBest. Each
// rewrites vals in place with the types the arguments must be cast to.

func replaceTypes(replacement arrow.DataType, vals ...arrow.DataType) {
	for i := range vals {
		vals[i] = replacement
	}
}

func ensureDictionaryDecoded(vals ...arrow.DataType) {
	for i, v := range vals {
		if dict, ok := v.(*arrow.DictionaryType); ok {
			vals[i] = dict.ValueType
		}
	}
}

func replaceNullWithOtherType(vals ...arrow.DataType) {
	if len(vals) != 2 {
		return
	}

	if vals[0].ID() == arrow.NULL {
		vals[0] = vals[1]
		return
	}

	if vals[1].ID() == arrow.NULL {
		vals[1] = vals[0]
	}
}

func hasDecimal(vals ...arrow.DataType) bool {
	for _, v := range vals {
		if arrow.IsDecimal(v.ID()) {
			return true
		}
	}
	return false
}

func intWidth(id arrow.Type) int {
	switch id {
	case arrow.INT8, arrow.UINT8:
		return 8
	case arrow.INT16, arrow.UINT16:
		return 16
	case arrow.INT32, arrow.UINT32:
		return 32
	default:
		return 64
	}
}

func signedOfWidth(width int) arrow.DataType {
	switch width {
	case 8:
		return arrow.PrimitiveTypes.Int8
	case 16:
		return arrow.PrimitiveTypes.Int16
	case 32:
		return arrow.PrimitiveTypes.Int32
	default:
		return arrow.PrimitiveTypes.Int64
	}
}

func unsignedOfWidth(width int) arrow.DataType {
	switch width {
	case 8:
		return arrow.PrimitiveTypes.Uint8
	case 16:
		return arrow.PrimitiveTypes.Uint16
	case 32:
		return arrow.PrimitiveTypes.Uint32
	default:
		return arrow.PrimitiveTypes.Uint64
	}
}

// commonNumeric returns the type all of vals can be compared as, or nil
// if any of them is not an integer or floating point type.
//
// Mixing a uint64 with a signed type yields int64, which is lossy for
// values above math.MaxInt64; the safe cast then fails at execution.
func commonNumeric(vals ...arrow.DataType) arrow.DataType {
	for _, v := range vals {
		id := v.ID()
		if !arrow.IsFloating(id) && !arrow.IsInteger(id) {
			return nil
		}
		if id == arrow.FLOAT16 {
			return nil
		}
	}

	var anyFloat, anyDouble bool
	for _, v := range vals {
		switch v.ID() {
		case arrow.FLOAT64:
			anyDouble = true
		case arrow.FLOAT32:
			anyFloat = true
		}
	}
	if anyDouble {
		return arrow.PrimitiveTypes.Float64
	}
	if anyFloat {
		return arrow.PrimitiveTypes.Float32
	}

	maxSigned, maxUnsigned := 0, 0
	for _, v := range vals {
		w := intWidth(v.ID())
		if arrow.IsUnsignedInteger(v.ID()) {
			maxUnsigned = max(maxUnsigned, w)
		} else {
			maxSigned = max(maxSigned, w)
		}
	}

	switch {
	case maxSigned == 0:
		return unsignedOfWidth(maxUnsigned)
	case maxSigned > maxUnsigned:
		return signedOfWidth(maxSigned)
	case maxUnsigned == 64:
		return arrow.PrimitiveTypes.Int64
	default:
		return signedOfWidth(maxUnsigned * 2)
	}
}

// commonTemporal returns the type all of vals can be compared as, or nil
// if they are not all temporal or mix incompatible temporal kinds.
// The finest unit wins. Timestamps take the first non-empty timezone;
// naive and zoned timestamps are rejected before promotion.
func commonTemporal(vals ...arrow.DataType) arrow.DataType {
	finest, tz := arrow.Second, ""
	var sawTimestamp, sawDate32, sawDate64, sawDuration, sawTime bool

	for _, v := range vals {
		switch dt := v.(type) {
		case *arrow.Date32Type:
			sawDate32 = true
		case *arrow.Date64Type:
			finest = max(finest, arrow.Millisecond)
			sawDate64 = true
		case *arrow.TimestampType:
			if tz == "" {
				tz = dt.TimeZone
			}
			finest = max(finest, dt.Unit)
			sawTimestamp = true
		case *arrow.DurationType:
			finest = max(finest, dt.Unit)
			sawDuration = true
		case *arrow.Time32Type:
			finest = max(finest, dt.Unit)
			sawTime = true
		case *arrow.Time64Type:
			finest = max(finest, dt.Unit)
			sawTime = true
		default:
			return nil
		}
	}

	sawPoint := sawTimestamp || sawDate32 || sawDate64
	switch {
	case sawPoint && (sawDuration || sawTime), sawDuration && sawTime:
		return nil
	case sawTimestamp:
		return &arrow.TimestampType{Unit: finest, TimeZone: tz}
	case sawDate64:
		return arrow.FixedWidthTypes.Date64
	case sawDate32:
		return arrow.FixedWidthTypes.Date32
	case sawDuration:
		return &arrow.DurationType{Unit: finest}
	case finest >= arrow.Microsecond:
		return &arrow.Time64Type{Unit: finest}
	default:
		return &arrow.Time32Type{Unit: finest}
	}
}

// commonBinary returns the type all of vals can be compared as, or nil
// if any of them is not binary-like or all are fixed size binary.
func commonBinary(vals ...arrow.DataType) arrow.DataType {
	allUTF8, allOffset32, allFixedWidth := true, true, true

	for _, v := range vals {
		switch v.ID() {
		case arrow.STRING:
			allFixedWidth = false
		case arrow.BINARY:
			allFixedWidth, allUTF8 = false, false
		case arrow.FIXED_SIZE_BINARY:
			allUTF8 = false
		case arrow.LARGE_STRING:
			allOffset32, allFixedWidth = false, false
		case arrow.LARGE_BINARY:
			allOffset32, allFixedWidth, allUTF8 = false, false, false
		default:
			return nil
		}
	}

	switch {
	case allFixedWidth:
		// fixed size binary values of any widths compare bytewise
		return nil
	case allUTF8 && allOffset32:
		return arrow.BinaryTypes.String
	case allUTF8:
		return arrow.BinaryTypes.LargeString
	case allOffset32:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.LargeBinary
	}
}

// castDecimalArgs promotes arguments where at least one is a decimal.
// Any integer or floating point argument turns every argument into
// float64. Otherwise all decimals take the largest scale and enough
// precision for the largest integral part, widening to decimal256 when
// needed.
func castDecimalArgs(vals ...arrow.DataType) error {
	for _, v := range vals {
		if arrow.IsFloating(v.ID()) || arrow.IsInteger(v.ID()) {
			for i, v := range vals {
				if arrow.IsDecimal(v.ID()) || arrow.IsFloating(v.ID()) || arrow.IsInteger(v.ID()) {
					vals[i] = arrow.PrimitiveTypes.Float64
				}
			}
			return nil
		}
	}

	var (
		maxScale, maxIntegral int32
		wide                  bool
	)
	for _, v := range vals {
		dec, ok := v.(arrow.DecimalType)
		if !ok {
			continue
		}
		if v.ID() == arrow.DECIMAL256 {
			wide = true
		}
		maxScale = max(maxScale, dec.GetScale())
		maxIntegral = max(maxIntegral, dec.GetPrecision()-dec.GetScale())
	}

	precision := maxIntegral + maxScale
	if wide || precision > decimal128.MaxPrecision {
		precision = min(precision, decimal256.MaxPrecision)
		common := &arrow.Decimal256Type{Precision: precision, Scale: maxScale}
		replaceDecimals(common, vals...)
		return nil
	}

	replaceDecimals(&arrow.Decimal128Type{Precision: precision, Scale: maxScale}, vals...)
	return nil
}

func replaceDecimals(common arrow.DataType, vals ...arrow.DataType) {
	for i, v := range vals {
		if arrow.IsDecimal(v.ID()) {
			vals[i] = common
		}
	}
}
