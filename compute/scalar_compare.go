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

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/acero-go/acero/compute/internal/kernels"
	"github.com/apache/arrow/go/v17/arrow"
)

type CompareOperator = kernels.CompareOperator

const (
	Equal        = kernels.CmpEQ
	NotEqual     = kernels.CmpNE
	Greater      = kernels.CmpGT
	GreaterEqual = kernels.CmpGE
	Less         = kernels.CmpLT
	LessEqual    = kernels.CmpLE
)

// CompareOptions selects the operator for the "compare" function.
type CompareOptions struct {
	Op CompareOperator `compute:"op"`
}

func (CompareOptions) TypeName() string { return "CompareOptions" }

type compareFunction struct {
	ScalarFunction
}

func (fn *compareFunction) Execute(ctx context.Context, opt FunctionOptions, args ...Datum) (Datum, error) {
	return execInternal(ctx, fn, opt, args...)
}

func (fn *compareFunction) DispatchBest(vals ...arrow.DataType) (exec.Kernel, error) {
	if err := fn.checkArity(len(vals)); err != nil {
		return nil, err
	}

	ensureDictionaryDecoded(vals...)
	replaceNullWithOtherType(vals...)

	if err := kernels.CheckTimestampZones(vals...); err != nil {
		return nil, err
	}

	if hasDecimal(vals...) {
		if err := castDecimalArgs(vals...); err != nil {
			return nil, err
		}
	}

	if kn, err := fn.DispatchExact(vals...); err == nil {
		return kn, nil
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

var compareDocs = map[CompareOperator]FunctionDoc{
	Equal: {
		Summary:     "Compare values for equality (x == y)",
		Description: "A null on either side emits a null comparison result.",
		ArgNames:    []string{"x", "y"},
	},
	NotEqual: {
		Summary:     "Compare values for inequality (x != y)",
		Description: "A null on either side emits a null comparison result.",
		ArgNames:    []string{"x", "y"},
	},
	Greater: {
		Summary:     "Compare values for ordered inequality (x > y)",
		Description: "A null on either side emits a null comparison result.",
		ArgNames:    []string{"x", "y"},
	},
	GreaterEqual: {
		Summary:     "Compare values for ordered inequality (x >= y)",
		Description: "A null on either side emits a null comparison result.",
		ArgNames:    []string{"x", "y"},
	},
	Less: {
		Summary:     "Compare values for ordered inequality (x < y)",
		Description: "A null on either side emits a null comparison result.",
		ArgNames:    []string{"x", "y"},
	},
	LessEqual: {
		Summary:     "Compare values for ordered inequality (x <= y)",
		Description: "A null on either side emits a null comparison result.",
		ArgNames:    []string{"x", "y"},
	},
}

var compareMetaDoc = FunctionDoc{
	Summary:         "Compare values using the operator given in CompareOptions",
	Description:     "Dispatches to the comparison function named by the operator.",
	ArgNames:        []string{"x", "y"},
	OptionsType:     "CompareOptions",
	OptionsRequired: true,
}

func RegisterScalarComparisons(reg FunctionRegistry) {
	for _, op := range []CompareOperator{Equal, NotEqual, Greater, GreaterEqual, Less, LessEqual} {
		fn := &compareFunction{*NewScalarFunction(op.String(), Binary(), compareDocs[op])}
		for _, k := range kernels.CompareKernels(op) {
			if err := fn.AddKernel(k); err != nil {
				panic(err)
			}
		}
		reg.AddFunction(fn, false)
	}

	reg.AddFunction(NewMetaFunction("compare", Binary(), compareMetaDoc,
		func(ctx context.Context, opts FunctionOptions, args ...Datum) (Datum, error) {
			cmpOpts, ok := opts.(*CompareOptions)
			if !ok || cmpOpts == nil {
				return nil, fmt.Errorf("%w: compare requires CompareOptions, got %T", arrow.ErrInvalid, opts)
			}
			return CallFunction(ctx, cmpOpts.Op.String(), nil, args...)
		}), false)
}

var andDoc = FunctionDoc{
	Summary:     "Logical 'and' boolean values",
	Description: "A null on either side emits a null result.",
	ArgNames:    []string{"x", "y"},
}

func RegisterScalarBoolean(reg FunctionRegistry) {
	fn := NewScalarFunction("and", Binary(), andDoc)
	for _, k := range kernels.AndKernels() {
		if err := fn.AddKernel(k); err != nil {
			panic(err)
		}
	}
	reg.AddFunction(fn, false)
}

// Compare is a convenience for CallFunction(ctx, "compare", ...).
func Compare(ctx context.Context, op CompareOperator, left, right Datum) (Datum, error) {
	return CallFunction(ctx, "compare", &CompareOptions{Op: op}, left, right)
}
