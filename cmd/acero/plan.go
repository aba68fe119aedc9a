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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/acero-go/acero/acero"
	"github.com/acero-go/acero/compute"
	"github.com/acero-go/acero/executor"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/goccy/go-json"
)

// planFile is a source feeding a single sink:
//
//	{
//	  "schema": [{"name": "x", "type": "int32", "nullable": true}],
//	  "batches": [[{"x": 1}, {"x": null}], [{"x": 3}]],
//	  "sink": {"kind": "order_by_sink", "sort_keys": [{"name": "x", "order": "descending"}]}
//	}
type planFile struct {
	Schema  []fieldDecl       `json:"schema"`
	Batches []json.RawMessage `json:"batches"`
	Sink    sinkDecl          `json:"sink"`
}

type fieldDecl struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type sortKeyDecl struct {
	Name  string `json:"name"`
	Order string `json:"order"`
}

type sinkDecl struct {
	Kind          string        `json:"kind"`
	SortKeys      []sortKeyDecl `json:"sort_keys"`
	NullPlacement string        `json:"null_placement"`
	K             int           `json:"k"`
	Backpressure  *struct {
		ResumeIfBelow uint64 `json:"resume_if_below"`
		PauseIfAbove  uint64 `json:"pause_if_above"`
	} `json:"backpressure"`
}

func (f *planFile) schema() (*arrow.Schema, error) {
	if len(f.Schema) == 0 {
		return nil, errors.New("plan has no schema")
	}
	fields := make([]arrow.Field, len(f.Schema))
	for i, fd := range f.Schema {
		dt, err := parseType(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fd.Name, err)
		}
		fields[i] = arrow.Field{Name: fd.Name, Type: dt, Nullable: fd.Nullable}
	}
	return arrow.NewSchema(fields, nil), nil
}

// records reads every batch; the caller releases them.
func (f *planFile) records(mem memory.Allocator, schema *arrow.Schema) ([]arrow.Record, error) {
	recs := make([]arrow.Record, 0, len(f.Batches))
	for i, raw := range f.Batches {
		rec, _, err := array.RecordFromJSON(mem, schema, bytes.NewReader(raw), array.WithUseNumber())
		if err != nil {
			releaseRecords(recs)
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *sinkDecl) sortKeys() ([]compute.SortKey, error) {
	keys := make([]compute.SortKey, len(s.SortKeys))
	for i, k := range s.SortKeys {
		keys[i].Name = k.Name
		switch k.Order {
		case "", "ascending":
			keys[i].Order = compute.Ascending
		case "descending":
			keys[i].Order = compute.Descending
		default:
			return nil, fmt.Errorf("unknown sort order %q", k.Order)
		}
	}
	return keys, nil
}

func (s *sinkDecl) options() (acero.ExecNodeOptions, *acero.SinkNodeOptions, error) {
	if s.Kind == "table_sink" {
		return &acero.TableSinkNodeOptions{}, nil, nil
	}

	base := acero.SinkNodeOptions{Backpressure: acero.NoBackpressure()}
	if s.Backpressure != nil {
		base.Backpressure = acero.BackpressureOptions{
			ResumeIfBelow: s.Backpressure.ResumeIfBelow,
			PauseIfAbove:  s.Backpressure.PauseIfAbove,
		}
	}

	switch s.Kind {
	case "", "sink":
		opts := &base
		return opts, opts, nil
	case "order_by_sink":
		keys, err := s.sortKeys()
		if err != nil {
			return nil, nil, err
		}
		placement := compute.NullsAtEnd
		switch s.NullPlacement {
		case "", "at_end":
		case "at_start":
			placement = compute.NullsAtStart
		default:
			return nil, nil, fmt.Errorf("unknown null placement %q", s.NullPlacement)
		}
		opts := &acero.OrderBySinkNodeOptions{
			SinkNodeOptions: base,
			SortOptions:     compute.SortOptions{SortKeys: keys, NullPlacement: placement},
		}
		return opts, &opts.SinkNodeOptions, nil
	case "select_k_sink":
		keys, err := s.sortKeys()
		if err != nil {
			return nil, nil, err
		}
		opts := &acero.SelectKSinkNodeOptions{
			SinkNodeOptions: base,
			SelectKOptions:  compute.SelectKOptions{K: s.K, SortKeys: keys},
		}
		return opts, &opts.SinkNodeOptions, nil
	}
	return nil, nil, fmt.Errorf("unknown sink kind %q", s.Kind)
}

// runPlan decodes a plan declaration from r, runs it and writes one JSON
// object per output row to w. With threads > 0 the source runs on a
// thread pool of that size.
func runPlan(ctx context.Context, w io.Writer, r io.Reader, threads int, logger log.Logger) error {
	var pf planFile
	if err := json.NewDecoder(r).Decode(&pf); err != nil {
		return fmt.Errorf("decoding plan: %w", err)
	}

	schema, err := pf.schema()
	if err != nil {
		return err
	}
	mem := memory.DefaultAllocator
	recs, err := pf.records(mem, schema)
	if err != nil {
		return err
	}
	defer releaseRecords(recs)

	sinkOpts, reader, err := pf.Sink.options()
	if err != nil {
		return err
	}

	planOpts := []acero.PlanOption{acero.WithAllocator(mem), acero.WithLogger(logger)}
	if threads > 0 {
		pool, err := executor.NewThreadPool(threads, executor.WithName("plan"), executor.WithLogger(logger))
		if err != nil {
			return err
		}
		defer pool.Shutdown(true)
		planOpts = append(planOpts, acero.WithExecutor(pool))
	}

	plan := acero.NewExecPlan(planOpts...)
	kind := pf.Sink.Kind
	if kind == "" {
		kind = "sink"
	}
	decl := acero.Sequence(
		acero.Declaration{Factory: "source", Options: acero.SourceNodeOptions{
			Schema: schema, Generator: acero.RecordGenerator(recs...),
		}},
		acero.Declaration{Factory: kind, Options: sinkOpts},
	)
	sink, err := decl.AddToPlan(plan)
	if err != nil {
		return err
	}
	level.Debug(logger).Log("msg", "built plan", "plan", plan)

	if err := plan.StartProducing(ctx); err != nil {
		return err
	}

	if reader == nil {
		if err := plan.Wait(ctx); err != nil {
			return err
		}
		tbl := sinkOpts.(*acero.TableSinkNodeOptions).Table
		defer tbl.Release()
		return writeTable(w, tbl)
	}

	if err := drain(ctx, w, reader.Reader, sink.OutputSchema(), mem); err != nil {
		plan.StopProducing()
		plan.Wait(ctx)
		return err
	}
	return plan.Wait(ctx)
}

// drain writes every batch read from reader as JSON rows.
func drain(ctx context.Context, w io.Writer, reader *acero.SinkReader, schema *arrow.Schema, mem memory.Allocator) error {
	for {
		batch, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		rec, err := batch.ToRecord(mem, schema)
		batch.Release()
		if err != nil {
			return err
		}
		err = array.RecordToJSON(rec, w)
		rec.Release()
		if err != nil {
			return err
		}
	}
}

func writeTable(w io.Writer, tbl arrow.Table) error {
	tr := array.NewTableReader(tbl, -1)
	defer tr.Release()
	for tr.Next() {
		if err := array.RecordToJSON(tr.Record(), w); err != nil {
			return err
		}
	}
	return tr.Err()
}

func releaseRecords(recs []arrow.Record) {
	for _, r := range recs {
		r.Release()
	}
}
