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
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/acero-go/acero/compute"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

func listFunctions(w io.Writer) error {
	reg := compute.GetFunctionRegistry()
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, name := range reg.GetFunctionNames() {
		fn, ok := reg.GetFunction(name)
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, fn.Doc().Summary)
	}
	return tw.Flush()
}

type evalOptions struct {
	keepNulls bool
	inclusive string
}

var inclusiveModes = map[string]compute.Inclusive{
	"both":    compute.InclusiveBoth,
	"left":    compute.InclusiveLeft,
	"right":   compute.InclusiveRight,
	"neither": compute.InclusiveNeither,
}

func (o evalOptions) forFunction(name string) (compute.FunctionOptions, error) {
	switch name {
	case "between":
		incl, ok := inclusiveModes[o.inclusive]
		if !ok {
			return nil, fmt.Errorf("unknown --inclusive mode %q", o.inclusive)
		}
		return &compute.BetweenOptions{Inclusive: incl}, nil
	case "min_element_wise", "max_element_wise":
		return &compute.ElementWiseAggregateOptions{SkipNulls: !o.keepNulls}, nil
	}
	return nil, nil
}

// evalFunction calls fn with one array argument per JSON array in values,
// all of type typ, and prints the result.
func evalFunction(ctx context.Context, w io.Writer, fn, typ string, values []string, opts evalOptions) error {
	dt, err := parseType(typ)
	if err != nil {
		return err
	}
	fnOpts, err := opts.forFunction(fn)
	if err != nil {
		return err
	}

	mem := compute.GetAllocator(ctx)
	args := make([]compute.Datum, 0, len(values))
	defer func() {
		for _, a := range args {
			a.Release()
		}
	}()
	for _, js := range values {
		arr, err := arrayFromJSON(mem, dt, js)
		if err != nil {
			return err
		}
		args = append(args, compute.NewDatum(arr))
		arr.Release()
	}

	out, err := compute.CallFunction(ctx, fn, fnOpts, args...)
	if err != nil {
		return err
	}
	defer out.Release()
	return printDatum(w, out)
}

// castValues casts a JSON array of type from to type to.
func castValues(ctx context.Context, w io.Writer, from, to, values string, safe bool) error {
	fromType, err := parseType(from)
	if err != nil {
		return err
	}
	toType, err := parseType(to)
	if err != nil {
		return err
	}

	arr, err := arrayFromJSON(compute.GetAllocator(ctx), fromType, values)
	if err != nil {
		return err
	}
	defer arr.Release()

	out, err := compute.CastArray(ctx, arr, compute.NewCastOptions(toType, safe))
	if err != nil {
		return err
	}
	defer out.Release()
	fmt.Fprintln(w, out)
	return nil
}

func arrayFromJSON(mem memory.Allocator, dt arrow.DataType, js string) (arrow.Array, error) {
	arr, _, err := array.FromJSON(mem, dt, strings.NewReader(js), array.WithUseNumber())
	if err != nil {
		return nil, fmt.Errorf("reading %s values %s: %w", dt, js, err)
	}
	return arr, nil
}

func printDatum(w io.Writer, d compute.Datum) error {
	switch d := d.(type) {
	case *compute.ArrayDatum:
		arr := d.MakeArray()
		defer arr.Release()
		fmt.Fprintln(w, arr)
	case *compute.ScalarDatum:
		fmt.Fprintln(w, d.Value)
	default:
		return fmt.Errorf("unexpected %s result", d.Kind())
	}
	return nil
}
