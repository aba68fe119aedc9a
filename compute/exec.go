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
	"math"

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/arrow/scalar"
	"golang.org/x/exp/slices"
)

// ExecCtx holds the execution settings used by CallFunction. It travels
// on the context via SetExecCtx.
type ExecCtx struct {
	// ChunkSize is the maximum number of rows handed to a kernel in
	// a single batch.
	ChunkSize int64
	Registry  FunctionRegistry
	// CastTable resolves both explicit casts and the implicit casts
	// inserted by DispatchBest. Nil means DefaultCastTable.
	CastTable *CastTable
}

type ctxExecKey struct{}

const DefaultMaxChunkSize = math.MaxInt64

var defaultExecCtx ExecCtx

func init() {
	defaultExecCtx.ChunkSize = DefaultMaxChunkSize
	defaultExecCtx.Registry = GetFunctionRegistry()
}

// DefaultExecCtx returns the ExecCtx used when none is set on the context.
func DefaultExecCtx() ExecCtx { return defaultExecCtx }

func SetExecCtx(ctx context.Context, e ExecCtx) context.Context {
	return context.WithValue(ctx, ctxExecKey{}, e)
}

func GetExecCtx(ctx context.Context) ExecCtx {
	e, ok := ctx.Value(ctxExecKey{}).(ExecCtx)
	if ok {
		return e
	}
	return defaultExecCtx
}

func (e ExecCtx) castTable() *CastTable {
	if e.CastTable != nil {
		return e.CastTable
	}
	return DefaultCastTable()
}

func (e ExecCtx) registry() FunctionRegistry {
	if e.Registry != nil {
		return e.Registry
	}
	return GetFunctionRegistry()
}

// WithAllocator returns a context carrying mem for use by kernels.
func WithAllocator(ctx context.Context, mem memory.Allocator) context.Context {
	return exec.WithAllocator(ctx, mem)
}

// GetAllocator returns the allocator on ctx, or memory.DefaultAllocator.
func GetAllocator(ctx context.Context) memory.Allocator {
	return exec.GetAllocator(ctx)
}

// CallFunction looks up funcName in the registry of the context's ExecCtx
// and executes it with the given options and arguments.
//
// Options may be nil if the function has usable default options.
func CallFunction(ctx context.Context, funcName string, opts FunctionOptions, args ...Datum) (Datum, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	fn, ok := GetExecCtx(ctx).registry().GetFunction(funcName)
	if !ok {
		return nil, fmt.Errorf("%w: cannot find function '%s'", arrow.ErrNotFound, funcName)
	}

	return fn.Execute(ctx, opts, args...)
}

// execValue is an argument after conversion for execution: exactly one
// of arr and sc is set.
type execValue struct {
	arr arrow.Array
	sc  scalar.Scalar
}

func (v execValue) slice(mem memory.Allocator, offset, length int64) (arrow.Array, error) {
	if v.arr != nil {
		return array.NewSlice(v.arr, offset, offset+length), nil
	}
	return scalar.MakeArrayFromScalar(v.sc, int(length), mem)
}

func execInternal(ctx context.Context, fn Function, opts FunctionOptions, args ...Datum) (result Datum, err error) {
	if err = checkArity(fn.Name(), fn.Arity(), len(args)); err != nil {
		return nil, err
	}
	if err = checkOptions(fn, opts); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = fn.DefaultOptions()
	}

	inTypes := make([]arrow.DataType, len(args))
	for i, a := range args {
		v, ok := a.(ArrayLikeDatum)
		if !ok {
			return nil, fmt.Errorf("%w: tried executing function '%s' with non-value type: %s",
				arrow.ErrInvalid, fn.Name(), a)
		}
		inTypes[i] = v.Type()
	}

	// DispatchBest replaces entries with the types the arguments
	// must be cast to before running the kernel.
	kernelTypes := slices.Clone(inTypes)
	k, err := fn.DispatchBest(kernelTypes...)
	if err != nil {
		return nil, err
	}

	kernel, ok := k.(*exec.ScalarKernel)
	if !ok {
		return nil, fmt.Errorf("%w: direct execution of %s function '%s'", arrow.ErrNotImplemented, fn.Kind(), fn.Name())
	}

	kctx := &exec.KernelCtx{Ctx: ctx, Kernel: kernel}
	if init := kernel.GetInitFn(); init != nil {
		kctx.State, err = init(kctx, exec.KernelInitArgs{Kernel: kernel, Inputs: kernelTypes, Options: opts})
		if err != nil {
			return nil, err
		}
	}

	outType, err := kernel.Signature.OutType.Resolve(kctx, kernelTypes)
	if err != nil {
		return nil, err
	}

	length, allScalar := int64(1), true
	for _, a := range args {
		if a.Kind() != KindArray {
			continue
		}
		if allScalar {
			length, allScalar = a.Len(), false
			continue
		}
		if a.Len() != length {
			return nil, fmt.Errorf("%w: array arguments to '%s' must all be the same length, got %d and %d",
				arrow.ErrInvalid, fn.Name(), length, a.Len())
		}
	}

	ectx := GetExecCtx(ctx)
	values := make([]execValue, len(args))
	defer func() {
		for _, v := range values {
			if v.arr != nil {
				v.arr.Release()
			}
		}
	}()

	for i, a := range args {
		if !arrow.TypeEqual(inTypes[i], kernelTypes[i]) {
			casted, err := ectx.castTable().Cast(ctx, SafeCastOptions(kernelTypes[i]), a)
			if err != nil {
				return nil, fmt.Errorf("function '%s' argument %d from %s to %s: %w",
					fn.Name(), i, inTypes[i], kernelTypes[i], err)
			}
			defer casted.Release()
			a = casted
		}

		switch a := a.(type) {
		case *ArrayDatum:
			values[i].arr = a.MakeArray()
		case *ScalarDatum:
			values[i].sc = a.Value
		}
	}

	out, err := executeChunks(kctx, kernel, outType, values, length, ectx.ChunkSize)
	if err != nil {
		return nil, err
	}
	defer out.Release()

	if allScalar && len(args) > 0 {
		sc, err := scalar.GetScalar(out, 0)
		if err != nil {
			return nil, err
		}
		return NewDatum(sc), nil
	}
	return NewDatum(out), nil
}

// executeChunks runs kernel over values in slices of at most chunkSize
// rows and joins the outputs. A zero length input still runs the kernel
// once on an empty batch so the result carries the output type.
func executeChunks(kctx *exec.KernelCtx, kernel *exec.ScalarKernel, outType arrow.DataType, values []execValue, length, chunkSize int64) (arrow.Array, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultMaxChunkSize
	}

	mem := kctx.Allocator()
	results := make([]arrow.Array, 0, 1)
	defer func() {
		for _, r := range results {
			r.Release()
		}
	}()

	for offset := int64(0); ; {
		n := length - offset
		if n > chunkSize {
			n = chunkSize
		}

		res, err := executeBatch(kctx, kernel, outType, values, offset, n, mem)
		if err != nil {
			return nil, err
		}
		results = append(results, res)

		offset += n
		if offset >= length {
			break
		}
	}

	if len(results) == 1 {
		res := results[0]
		res.Retain()
		return res, nil
	}
	return array.Concatenate(results, mem)
}

func executeBatch(kctx *exec.KernelCtx, kernel *exec.ScalarKernel, outType arrow.DataType, values []execValue, offset, length int64, mem memory.Allocator) (arrow.Array, error) {
	batch := &exec.ExecBatch{Values: make([]arrow.Array, 0, len(values)), Len: int(length)}
	defer func() {
		for _, v := range batch.Values {
			v.Release()
		}
	}()

	for _, v := range values {
		arr, err := v.slice(mem, offset, length)
		if err != nil {
			return nil, err
		}
		batch.Values = append(batch.Values, arr)
	}

	if kernel.NullHandling == exec.NullIntersection {
		batch.Validity = exec.IntersectValidity(batch.Len, batch.Values...)
	}

	out, err := kernel.ExecFn(kctx, batch, outType)
	if err != nil {
		return nil, err
	}

	if out.Len() != batch.Len {
		defer out.Release()
		return nil, fmt.Errorf("%w: kernel produced %d values for a batch of length %d",
			arrow.ErrInvalid, out.Len(), batch.Len)
	}
	return out, nil
}
