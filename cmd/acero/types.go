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

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
)

var namedTypes = map[string]arrow.DataType{
	"null":         arrow.Null,
	"bool":         arrow.FixedWidthTypes.Boolean,
	"int8":         arrow.PrimitiveTypes.Int8,
	"int16":        arrow.PrimitiveTypes.Int16,
	"int32":        arrow.PrimitiveTypes.Int32,
	"int64":        arrow.PrimitiveTypes.Int64,
	"uint8":        arrow.PrimitiveTypes.Uint8,
	"uint16":       arrow.PrimitiveTypes.Uint16,
	"uint32":       arrow.PrimitiveTypes.Uint32,
	"uint64":       arrow.PrimitiveTypes.Uint64,
	"float16":      arrow.FixedWidthTypes.Float16,
	"float32":      arrow.PrimitiveTypes.Float32,
	"float64":      arrow.PrimitiveTypes.Float64,
	"date32":       arrow.FixedWidthTypes.Date32,
	"date64":       arrow.FixedWidthTypes.Date64,
	"utf8":         arrow.BinaryTypes.String,
	"large_utf8":   arrow.BinaryTypes.LargeString,
	"binary":       arrow.BinaryTypes.Binary,
	"large_binary": arrow.BinaryTypes.LargeBinary,
}

var typeAliases = map[string]string{
	"boolean":      "bool",
	"string":       "utf8",
	"large_string": "large_utf8",
	"float":        "float32",
	"double":       "float64",
}

var timeUnits = map[string]arrow.TimeUnit{
	"s": arrow.Second, "ms": arrow.Millisecond, "us": arrow.Microsecond, "ns": arrow.Nanosecond,
}

// parseType reads the subset of arrow type names the CLI accepts:
// primitive names, decimal128(p, s), decimal256(p, s),
// timestamp[unit] or timestamp[unit, tz=zone], time32[unit],
// time64[unit], duration[unit] and fixed_size_binary[width].
func parseType(s string) (arrow.DataType, error) {
	s = strings.TrimSpace(s)
	if alias, ok := typeAliases[s]; ok {
		s = alias
	}
	if dt, ok := namedTypes[s]; ok {
		return dt, nil
	}

	name, params, err := splitParams(s)
	if err != nil {
		return nil, err
	}

	switch name {
	case "decimal128", "decimal256", "decimal":
		if len(params) != 2 {
			return nil, fmt.Errorf("%s needs a precision and a scale, got %q", name, s)
		}
		prec, err := strconv.ParseInt(params[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad precision in %q: %w", s, err)
		}
		scale, err := strconv.ParseInt(params[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad scale in %q: %w", s, err)
		}
		if name == "decimal256" {
			return &arrow.Decimal256Type{Precision: int32(prec), Scale: int32(scale)}, nil
		}
		return &arrow.Decimal128Type{Precision: int32(prec), Scale: int32(scale)}, nil
	case "timestamp":
		if len(params) < 1 || len(params) > 2 {
			return nil, fmt.Errorf("timestamp needs a unit and an optional zone, got %q", s)
		}
		unit, err := parseUnit(params[0])
		if err != nil {
			return nil, err
		}
		ts := &arrow.TimestampType{Unit: unit}
		if len(params) == 2 {
			zone, ok := strings.CutPrefix(params[1], "tz=")
			if !ok {
				return nil, fmt.Errorf("expected tz=zone in %q", s)
			}
			ts.TimeZone = zone
		}
		return ts, nil
	case "time32", "time64", "duration":
		if len(params) != 1 {
			return nil, fmt.Errorf("%s needs a unit, got %q", name, s)
		}
		unit, err := parseUnit(params[0])
		if err != nil {
			return nil, err
		}
		switch name {
		case "time32":
			if unit != arrow.Second && unit != arrow.Millisecond {
				return nil, fmt.Errorf("time32 unit must be s or ms, got %s", unit)
			}
			return &arrow.Time32Type{Unit: unit}, nil
		case "time64":
			if unit != arrow.Microsecond && unit != arrow.Nanosecond {
				return nil, fmt.Errorf("time64 unit must be us or ns, got %s", unit)
			}
			return &arrow.Time64Type{Unit: unit}, nil
		}
		return &arrow.DurationType{Unit: unit}, nil
	case "fixed_size_binary":
		if len(params) != 1 {
			return nil, fmt.Errorf("fixed_size_binary needs a width, got %q", s)
		}
		width, err := strconv.Atoi(params[0])
		if err != nil || width < 0 {
			return nil, fmt.Errorf("bad width in %q", s)
		}
		return &arrow.FixedSizeBinaryType{ByteWidth: width}, nil
	}
	return nil, fmt.Errorf("unknown type %q", s)
}

// splitParams splits "name[a, b]" or "name(a, b)" into its name and
// trimmed parameters.
func splitParams(s string) (string, []string, error) {
	open := strings.IndexAny(s, "[(")
	if open < 0 {
		return "", nil, fmt.Errorf("unknown type %q", s)
	}
	closer := byte(']')
	if s[open] == '(' {
		closer = ')'
	}
	if s[len(s)-1] != closer {
		return "", nil, fmt.Errorf("unbalanced type parameters in %q", s)
	}

	params := strings.Split(s[open+1:len(s)-1], ",")
	for i := range params {
		params[i] = strings.TrimSpace(params[i])
	}
	return strings.TrimSpace(s[:open]), params, nil
}

func parseUnit(s string) (arrow.TimeUnit, error) {
	if u, ok := timeUnits[s]; ok {
		return u, nil
	}
	return 0, fmt.Errorf("unknown time unit %q", s)
}
