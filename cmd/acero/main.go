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

// Command acero evaluates compute functions over JSON arrays and runs
// small execution plans declared in JSON.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/docopt/docopt-go"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const usage = `Acero compute and execution plan tool.

Usage:
  acero functions
  acero eval [--keep-nulls] [--inclusive=MODE] <function> <type> <values>...
  acero cast [--unsafe] <from> <to> <array>
  acero plan [--threads=N] [--verbose] <file>
  acero -h | --help

Options:
  -h --help          Show this screen.
  --keep-nulls       min/max_element_wise emit null if any input is null.
  --inclusive=MODE   Bounds of between: both, left, right or neither [default: both].
  --unsafe           Allow lossy casts.
  --threads=N        Run the plan on a pool of N workers, 0 runs it without one [default: 0].
  --verbose          Log plan execution to stderr.

Types are written like arrow prints them, e.g. int32, utf8,
decimal128(10, 2), timestamp[ms, tz=UTC] or fixed_size_binary[4].`

func main() {
	opts, _ := docopt.ParseDoc(usage)

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if verbose, _ := opts.Bool("--verbose"); verbose {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowWarn())
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	if err := run(context.Background(), os.Stdout, opts, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, opts docopt.Opts, logger log.Logger) error {
	switch {
	case isSet(opts, "functions"):
		return listFunctions(w)
	case isSet(opts, "eval"):
		fn, _ := opts.String("<function>")
		typ, _ := opts.String("<type>")
		values, _ := opts["<values>"].([]string)
		inclusive, _ := opts.String("--inclusive")
		return evalFunction(ctx, w, fn, typ, values, evalOptions{
			keepNulls: isSet(opts, "--keep-nulls"),
			inclusive: inclusive,
		})
	case isSet(opts, "cast"):
		from, _ := opts.String("<from>")
		to, _ := opts.String("<to>")
		values, _ := opts.String("<array>")
		return castValues(ctx, w, from, to, values, !isSet(opts, "--unsafe"))
	case isSet(opts, "plan"):
		threads, err := opts.Int("--threads")
		if err != nil {
			return fmt.Errorf("--threads: %w", err)
		}
		file, _ := opts.String("<file>")
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		return runPlan(ctx, w, f, threads, logger)
	}
	return fmt.Errorf("no command given")
}

func isSet(opts docopt.Opts, key string) bool {
	v, _ := opts.Bool(key)
	return v
}
