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
	"fmt"
	"unicode/utf8"

	"github.com/acero-go/acero/compute/internal/exec"
	"github.com/apache/arrow/go/v17/arrow"
)

var binaryLikeInputs = []arrow.Type{
	arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY,
}

func isUtf8(id arrow.Type) bool { return id == arrow.STRING || id == arrow.LARGE_STRING }

func mapBinary[O any](in arrow.Array, bldr exec.ValueBuilder[O], fn func([]byte) (O, error)) (arrow.Array, error) {
	return mapIndexed(in, bldr, func(i int) (O, error) {
		return fn(binaryValue(in, i))
	})
}

func castBinaryToString(ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
	opts := ctx.State.(CastState)
	in := batch.Values[0]
	validate := !opts.AllowInvalidUtf8 && !isUtf8(in.DataType().ID())

	return mapBinary(in, newBuilder[string](ctx.Allocator(), out), func(v []byte) (string, error) {
		if validate && !utf8.Valid(v) {
			return "", fmt.Errorf("%w: invalid UTF8 payload casting %s to %s", arrow.ErrInvalid, in.DataType(), out)
		}
		return string(v), nil
	})
}

func castBinaryToBinary(ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
	return mapBinary(batch.Values[0], newBuilder[[]byte](ctx.Allocator(), out), func(v []byte) ([]byte, error) {
		return v, nil
	})
}

func castBinaryToFixedSize(ctx *exec.KernelCtx, batch *exec.ExecBatch, out arrow.DataType) (arrow.Array, error) {
	in := batch.Values[0]
	width := out.(*arrow.FixedSizeBinaryType).ByteWidth
	return mapBinary(in, newBuilder[[]byte](ctx.Allocator(), out), func(v []byte) ([]byte, error) {
		if len(v) != width {
			return nil, fmt.Errorf("%w: failed casting from %s to %s: widths must match, got value of length %d",
				arrow.ErrInvalid, in.DataType(), out, len(v))
		}
		return v, nil
	})
}

// GetToBinaryKernels returns the kernels casting any binary-like input
// to the variable length binary or string type outType.
func GetToBinaryKernels(outType arrow.DataType) []exec.ScalarKernel {
	out := exec.NewOutputType(outType)
	fn := castBinaryToBinary
	if isUtf8(outType.ID()) {
		fn = castBinaryToString
	}

	kns := GetCommonCastKernels(out)
	for _, id := range binaryLikeInputs {
		kns = append(kns, newCastKernel(exec.NewIDInput(id), out, fn))
	}
	return kns
}

func GetFixedSizeBinaryCastKernels() []exec.ScalarKernel {
	kns := GetCommonCastKernels(outputTargetType)
	for _, id := range binaryLikeInputs[:4] {
		kns = append(kns, newCastKernel(exec.NewIDInput(id), outputTargetType, castBinaryToFixedSize))
	}
	return kns
}
