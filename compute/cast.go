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
	"strings"
	"sync"

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/acero-go/acero/compute/internal/kernels"
	"github.com/acero-go/acero/internal/debug"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

type CastOptions = kernels.CastOptions

// SafeCastOptions returns options for casting to toType which reject
// every lossy conversion.
func SafeCastOptions(toType arrow.DataType) *CastOptions {
	return &CastOptions{ToType: toType}
}

// UnsafeCastOptions returns options for casting to toType which permit
// overflow, truncation and invalid utf8.
func UnsafeCastOptions(toType arrow.DataType) *CastOptions {
	return NewCastOptions(toType, false)
}

func NewCastOptions(toType arrow.DataType, safe bool) *CastOptions {
	return &CastOptions{
		ToType:               toType,
		AllowIntOverflow:     !safe,
		AllowTimeTruncate:    !safe,
		AllowTimeOverflow:    !safe,
		AllowDecimalTruncate: !safe,
		AllowFloatTruncate:   !safe,
		AllowInvalidUtf8:     !safe,
	}
}

var (
	defaultCastTable *CastTable
	castInit         sync.Once

	castDoc = FunctionDoc{
		Summary:         "Cast values to another data type",
		Description:     "Behavior when values wouldn't fit in the target type\ncan be controlled through CastOptions.",
		ArgNames:        []string{"input"},
		OptionsType:     "CastOptions",
		OptionsRequired: true,
	}
)

// castMeta runs a cast through the cast table of the call's ExecCtx.
func castMeta(ctx context.Context, fo FunctionOptions, d ...Datum) (Datum, error) {
	castOpts, ok := fo.(*CastOptions)
	if !ok || castOpts == nil || castOpts.ToType == nil {
		return nil, fmt.Errorf("%w: cast requires that options be passed with a ToType", arrow.ErrInvalid)
	}
	return GetExecCtx(ctx).castTable().Cast(ctx, castOpts, d[0])
}

func RegisterScalarCast(reg FunctionRegistry) {
	reg.AddFunction(NewMetaFunction("cast", Unary(), castDoc, castMeta), false)
}

// CastFunction holds the kernels casting to a single target type id,
// one per accepted source type id.
type CastFunction struct {
	ScalarFunction

	inIDs []arrow.Type
	out   arrow.Type
}

func newCastFunction(name string, outType arrow.Type) *CastFunction {
	return &CastFunction{
		ScalarFunction: *NewScalarFunction(name, Unary(), EmptyFuncDoc),
		out:            outType,
		inIDs:          make([]arrow.Type, 0, 1),
	}
}

// InputIDs lists the source type ids this function has kernels for.
func (cf *CastFunction) InputIDs() []arrow.Type { return cf.inIDs }
func (cf *CastFunction) OutID() arrow.Type      { return cf.out }

func (cf *CastFunction) AddTypeCast(in arrow.Type, kernel exec.ScalarKernel) error {
	kernel.Init = exec.OptionsInit[kernels.CastState]
	if err := cf.AddKernel(kernel); err != nil {
		return err
	}
	cf.inIDs = append(cf.inIDs, in)
	return nil
}

func (cf *CastFunction) DispatchExact(vals ...arrow.DataType) (exec.Kernel, error) {
	if err := cf.checkArity(len(vals)); err != nil {
		return nil, err
	}

	if k := dispatchExactKernel(cf.kernels, vals); k != nil {
		return k, nil
	}
	return nil, fmt.Errorf("%w: unsupported cast from %s to %s using function %s",
		arrow.ErrNotImplemented, vals[0], strings.ToLower(cf.out.String()), cf.name)
}

// DispatchBest performs no promotion: a cast has exactly one input
// whose type is the source type.
func (cf *CastFunction) DispatchBest(vals ...arrow.DataType) (exec.Kernel, error) {
	return cf.DispatchExact(vals...)
}

func (cf *CastFunction) Execute(ctx context.Context, opts FunctionOptions, args ...Datum) (Datum, error) {
	return execInternal(ctx, cf, opts, args...)
}

// castFromDictionary decodes the dictionary and then casts the decoded
// values if the value type is not already the target.
func castFromDictionary(ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
	opts := ctx.State.(kernels.CastState)

	dict, ok := batch.Values[0].(*array.Dictionary)
	if !ok {
		return nil, fmt.Errorf("%w: expected dictionary array, got %s", arrow.ErrInvalid, batch.Values[0].DataType())
	}

	decoded, err := kernels.DecodeDictionary(ctx.Allocator(), dict)
	if err != nil {
		return nil, err
	}
	if arrow.TypeEqual(decoded.DataType(), out) {
		return decoded, nil
	}
	defer decoded.Release()

	opts.ToType = out
	return CastArray(ctx.Ctx, decoded, &opts)
}

// CastTable maps a target type id to the CastFunction producing it.
// It is read-only once constructed.
type CastTable struct {
	fns map[arrow.Type]*CastFunction
}

// NewCastTable builds a table holding every cast kernel in this package.
func NewCastTable() *CastTable {
	t := &CastTable{fns: make(map[arrow.Type]*CastFunction)}
	t.addCastFuncs(getBooleanCasts())
	t.addCastFuncs(getNumericCasts())
	t.addCastFuncs(getTemporalCasts())
	t.addCastFuncs(getBinaryCasts())
	debug.Log(func() string { return fmt.Sprintf("cast table built for %d target types", len(t.fns)) })
	return t
}

// DefaultCastTable returns the process-wide table, building it on the
// first call. Concurrent first callers all receive the same table.
func DefaultCastTable() *CastTable {
	castInit.Do(func() { defaultCastTable = NewCastTable() })
	return defaultCastTable
}

func (t *CastTable) addCastFuncs(fns []*CastFunction) {
	for _, f := range fns {
		k := exec.NewScalarKernel([]exec.InputType{exec.NewIDInput(arrow.DICTIONARY)},
			f.kernels[0].Signature.OutType, castFromDictionary, nil)
		k.NullHandling = exec.NullComputed
		if err := f.AddTypeCast(arrow.DICTIONARY, k); err != nil {
			panic(err)
		}
		t.fns[f.out] = f
	}
}

// GetCastFunction returns the function casting to the type id of to.
func (t *CastTable) GetCastFunction(to arrow.DataType) (*CastFunction, error) {
	fn, ok := t.fns[to.ID()]
	if ok {
		return fn, nil
	}

	return nil, fmt.Errorf("%w: unsupported cast to %s", arrow.ErrNotImplemented, to)
}

// CanCast reports whether a value of type from can be cast to type to.
func (t *CastTable) CanCast(from, to arrow.DataType) bool {
	if arrow.TypeEqual(from, to) {
		return true
	}

	if dict, ok := from.(*arrow.DictionaryType); ok {
		return t.CanCast(dict.ValueType, to)
	}

	fn, err := t.GetCastFunction(to)
	if err != nil {
		return false
	}

	for _, id := range fn.inIDs {
		if from.ID() == id {
			return true
		}
	}
	return false
}

// Cast converts arg to opts.ToType. A value already of the target type
// is returned as a new reference rather than copied.
func (t *CastTable) Cast(ctx context.Context, opts *CastOptions, arg Datum) (Datum, error) {
	v, ok := arg.(ArrayLikeDatum)
	if !ok {
		return nil, fmt.Errorf("%w: cast of non-value datum %s", arrow.ErrInvalid, arg)
	}

	if arrow.TypeEqual(v.Type(), opts.ToType) {
		return shareDatum(arg), nil
	}

	fn, err := t.GetCastFunction(opts.ToType)
	if err != nil {
		return nil, fmt.Errorf("unsupported cast from %s to %s (no available cast function for target type): %w",
			v.Type(), opts.ToType, err)
	}

	return fn.Execute(ctx, opts, arg)
}

func getCastFunction(to arrow.DataType) (*CastFunction, error) {
	return DefaultCastTable().GetCastFunction(to)
}

// GetCastFunction returns the function in the default cast table which
// produces values of type to.
func GetCastFunction(to arrow.DataType) (*CastFunction, error) {
	return getCastFunction(to)
}

func addKernels(fn *CastFunction, kns []exec.ScalarKernel) *CastFunction {
	for _, k := range kns {
		if err := fn.AddTypeCast(k.Signature.InputTypes[0].MatchID(), k); err != nil {
			panic(err)
		}
	}
	return fn
}

func getBooleanCasts() []*CastFunction {
	return []*CastFunction{
		addKernels(newCastFunction("cast_boolean", arrow.BOOL), kernels.GetBooleanCastKernels()),
	}
}

func getTemporalCasts() []*CastFunction {
	return []*CastFunction{
		addKernels(newCastFunction("cast_timestamp", arrow.TIMESTAMP), kernels.GetTimestampCastKernels()),
		addKernels(newCastFunction("cast_date32", arrow.DATE32), kernels.GetDate32CastKernels()),
		addKernels(newCastFunction("cast_date64", arrow.DATE64), kernels.GetDate64CastKernels()),
		addKernels(newCastFunction("cast_duration", arrow.DURATION), kernels.GetDurationCastKernels()),
		addKernels(newCastFunction("cast_time32", arrow.TIME32), kernels.GetTime32CastKernels()),
		addKernels(newCastFunction("cast_time64", arrow.TIME64), kernels.GetTime64CastKernels()),
	}
}

func getNumericCasts() []*CastFunction {
	out := make([]*CastFunction, 0)

	getFn := func(name string, ty arrow.Type, kns []exec.ScalarKernel) *CastFunction {
		return addKernels(newCastFunction(name, ty), kns)
	}

	out = append(out, getFn("cast_int8", arrow.INT8, kernels.GetCastToInteger[int8](arrow.PrimitiveTypes.Int8)))
	out = append(out, getFn("cast_int16", arrow.INT16, kernels.GetCastToInteger[int16](arrow.PrimitiveTypes.Int16)))

	castInt32 := getFn("cast_int32", arrow.INT32, kernels.GetCastToInteger[int32](arrow.PrimitiveTypes.Int32))
	out = append(out, addKernels(castInt32, kernels.GetTemporalToIntegerKernels(arrow.INT32)))

	castInt64 := getFn("cast_int64", arrow.INT64, kernels.GetCastToInteger[int64](arrow.PrimitiveTypes.Int64))
	out = append(out, addKernels(castInt64, kernels.GetTemporalToIntegerKernels(arrow.INT64)))

	out = append(out, getFn("cast_uint8", arrow.UINT8, kernels.GetCastToInteger[uint8](arrow.PrimitiveTypes.Uint8)))
	out = append(out, getFn("cast_uint16", arrow.UINT16, kernels.GetCastToInteger[uint16](arrow.PrimitiveTypes.Uint16)))
	out = append(out, getFn("cast_uint32", arrow.UINT32, kernels.GetCastToInteger[uint32](arrow.PrimitiveTypes.Uint32)))
	out = append(out, getFn("cast_uint64", arrow.UINT64, kernels.GetCastToInteger[uint64](arrow.PrimitiveTypes.Uint64)))

	out = append(out, getFn("cast_float", arrow.FLOAT32, kernels.GetCastToFloating[float32](arrow.PrimitiveTypes.Float32)))
	out = append(out, getFn("cast_double", arrow.FLOAT64, kernels.GetCastToFloating[float64](arrow.PrimitiveTypes.Float64)))

	out = append(out, getFn("cast_decimal", arrow.DECIMAL128, kernels.GetCastToDecimal128()))
	out = append(out, getFn("cast_decimal256", arrow.DECIMAL256, kernels.GetCastToDecimal256()))
	return out
}

func getBinaryCasts() []*CastFunction {
	return []*CastFunction{
		addKernels(newCastFunction("cast_string", arrow.STRING), kernels.GetToBinaryKernels(arrow.BinaryTypes.String)),
		addKernels(newCastFunction("cast_large_string", arrow.LARGE_STRING), kernels.GetToBinaryKernels(arrow.BinaryTypes.LargeString)),
		addKernels(newCastFunction("cast_binary", arrow.BINARY), kernels.GetToBinaryKernels(arrow.BinaryTypes.Binary)),
		addKernels(newCastFunction("cast_large_binary", arrow.LARGE_BINARY), kernels.GetToBinaryKernels(arrow.BinaryTypes.LargeBinary)),
		addKernels(newCastFunction("cast_fixed_size_binary", arrow.FIXED_SIZE_BINARY), kernels.GetFixedSizeBinaryCastKernels()),
	}
}

// CastDatum is a convenience function for casting a Datum to another type.
// It is equivalent to calling CallFunction(ctx, "cast", opts, Datum) and
// works for Scalar and Array Datums.
func CastDatum(ctx context.Context, val Datum, opts *CastOptions) (Datum, error) {
	return CallFunction(ctx, "cast", opts, val)
}

// CastArray is a convenience function for casting an Array to another type.
// It is equivalent to constructing a Datum for the array and using
// CallFunction(ctx, "cast", ...).
func CastArray(ctx context.Context, val arrow.Array, opts *CastOptions) (arrow.Array, error) {
	d := NewDatum(val)
	defer d.Release()

	out, err := CastDatum(ctx, d, opts)
	if err != nil {
		return nil, err
	}

	defer out.Release()
	return out.(*ArrayDatum).MakeArray(), nil
}

// CanCast returns true if there is an implementation for casting an array
// or scalar value from the specified DataType to the other data type
// using the default cast table.
func CanCast(from, to arrow.DataType) bool {
	return DefaultCastTable().CanCast(from, to)
}
