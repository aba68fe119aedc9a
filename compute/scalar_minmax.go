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

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/acero-go/acero/compute/internal/kernels"
	"github.com/apache/arrow/go/v17/arrow"
)

type ElementWiseAggregateOptions = kernels.ElementWiseAggregateOptions

// DefaultElementWiseAggregateOptions skips nulls.
func DefaultElementWiseAggregateOptions() *ElementWiseAggregateOptions {
	return &ElementWiseAggregateOptions{SkipNulls: true}
}

type minMaxFunction struct {
	ScalarFunction
}

func (fn *minMaxFunction) Execute(ctx context.Context, opt FunctionOptions, args ...Datum) (Datum, error) {
	return execInternal(ctx, fn, opt, args...)
}

// DispatchBest unifies all arguments to a single type so that one
// kernel handles every column. Null typed arguments take the type of the
// first non-null argument.
func (fn *minMaxFunction) DispatchBest(vals ...arrow.DataType) (exec.Kernel, error) {
	if err := fn.checkArity(len(vals)); err != nil {
		return nil, err
	}

	if err := kernels.CheckTimestampZones(vals...); err != nil {
		return nil, err
	}

	ensureDictionaryDecoded(vals...)
	for _, v := range vals {
		if v.ID() != arrow.NULL {
			for i := range vals {
				if vals[i].ID() == arrow.NULL {
					vals[i] = v
				}
			}
			break
		}
	}

	if hasDecimal(vals...) {
		if err := castDecimalArgs(vals...); err != nil {
			return nil, err
		}
	}

	if dt := commonNumeric(vals...); dt != nil {
		replaceTypes(dt, vals...)
	} else if dt := commonTemporal(vals...); dt != nil {
		replaceTypes(dt, vals...)
	} else if dt := commonBinary(vals...); dt != nil {
		replaceTypes(dt, vals...)
	}

	return fn.DispatchExact(vals...)
}

var (
	minElementWiseDoc = FunctionDoc{
		Summary:     "Find the element-wise minimum value",
		Description: "Nulls are ignored (by default) or propagated.\nNaN is preferred over null, but not over any valid value.",
		ArgNames:    []string{"args"},
		OptionsType: "ElementWiseAggregateOptions",
	}
	maxElementWiseDoc = FunctionDoc{
		Summary:     "Find the element-wise maximum value",
		Description: "Nulls are ignored (by default) or propagated.\nNaN is preferred over null, but not over any valid value.",
		ArgNames:    []string{"args"},
		OptionsType: "ElementWiseAggregateOptions",
	}
)

func RegisterScalarMinMax(reg FunctionRegistry) {
	for _, isMin := range []bool{true, false} {
		name, doc := "max_element_wise", maxElementWiseDoc
		if isMin {
			name, doc = "min_element_wise", minElementWiseDoc
		}

		fn := &minMaxFunction{*NewScalarFunction(name, VarArgs(1), doc)}
		fn.defaultOpts = DefaultElementWiseAggregateOptions()
		for _, k := range kernels.MinMaxKernels(isMin) {
			if err := fn.AddKernel(k); err != nil {
				panic(err)
			}
		}
		reg.AddFunction(fn, false)
	}
}

// MinElementWise is a convenience for CallFunction(ctx, "min_element_wise", ...).
func MinElementWise(ctx context.Context, opts *ElementWiseAggregateOptions, args ...Datum) (Datum, error) {
	if opts == nil {
		return CallFunction(ctx, "min_element_wise", nil, args...)
	}
	return CallFunction(ctx, "min_element_wise", opts, args...)
}

// MaxElementWise is a convenience for CallFunction(ctx, "max_element_wise", ...).
func MaxElementWise(ctx context.Context, opts *ElementWiseAggregateOptions, args ...Datum) (Datum, error) {
	if opts == nil {
		return CallFunction(ctx, "max_element_wise", nil, args...)
	}
	return CallFunction(ctx, "max_element_wise", opts, args...)
}
