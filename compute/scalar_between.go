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
)

// Inclusive selects which bounds of a between check are included.
type Inclusive int8

const (
	InclusiveBoth Inclusive = iota
	InclusiveLeft
	InclusiveRight
	InclusiveNeither
)

func (i Inclusive) String() string {
	switch i {
	case InclusiveBoth:
		return "both"
	case InclusiveLeft:
		return "left"
	case InclusiveRight:
		return "right"
	case InclusiveNeither:
		return "neither"
	}
	return fmt.Sprintf("Inclusive(%d)", int8(i))
}

// operators returns the comparison applied between the lower bound and
// the value, and between the value and the upper bound.
func (i Inclusive) operators() (left, right CompareOperator, err error) {
	switch i {
	case InclusiveBoth:
		return LessEqual, LessEqual, nil
	case InclusiveLeft:
		return LessEqual, Less, nil
	case InclusiveRight:
		return Less, LessEqual, nil
	case InclusiveNeither:
		return Less, Less, nil
	}
	return 0, 0, fmt.Errorf("%w: invalid between inclusiveness %s", arrow.ErrInvalid, i)
}

type BetweenOptions struct {
	Inclusive Inclusive `compute:"inclusive"`
}

func (BetweenOptions) TypeName() string { return "BetweenOptions" }

var betweenDoc = FunctionDoc{
	Summary:     "Check if values are in the given range, val between lower and upper",
	Description: "Bounds are included according to BetweenOptions.\nA null in any argument emits a null result.",
	ArgNames:    []string{"val", "lower", "upper"},
	OptionsType: "BetweenOptions",
}

// between evaluates lower op val AND val op upper. Each comparison is
// dispatched on its own pair, so each side is promoted independently.
func between(ctx context.Context, opts FunctionOptions, args ...Datum) (Datum, error) {
	betweenOpts, ok := opts.(*BetweenOptions)
	if !ok || betweenOpts == nil {
		return nil, fmt.Errorf("%w: between requires BetweenOptions, got %T", arrow.ErrInvalid, opts)
	}

	opLeft, opRight, err := betweenOpts.Inclusive.operators()
	if err != nil {
		return nil, err
	}

	val, lower, upper := args[0], args[1], args[2]
	types := make([]arrow.DataType, 0, 3)
	for _, a := range args {
		if v, ok := a.(ArrayLikeDatum); ok {
			types = append(types, v.Type())
		}
	}
	if err := kernels.CheckTimestampZones(types...); err != nil {
		return nil, err
	}

	left, err := CallFunction(ctx, opLeft.String(), nil, lower, val)
	if err != nil {
		return nil, err
	}
	defer left.Release()

	right, err := CallFunction(ctx, opRight.String(), nil, val, upper)
	if err != nil {
		return nil, err
	}
	defer right.Release()

	return CallFunction(ctx, "and", nil, left, right)
}

func RegisterScalarBetween(reg FunctionRegistry) {
	fn := NewMetaFunction("between", Ternary(), betweenDoc, between)
	fn.defaultOpts = &BetweenOptions{Inclusive: InclusiveBoth}
	reg.AddFunction(fn, false)
}

// Between is a convenience for CallFunction(ctx, "between", ...).
func Between(ctx context.Context, val, lower, upper Datum, inclusive Inclusive) (Datum, error) {
	return CallFunction(ctx, "between", &BetweenOptions{Inclusive: inclusive}, val, lower, upper)
}
