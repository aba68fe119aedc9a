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

package acero_test

import (
	"context"
	"testing"

	"github.com/acero-go/acero/acero"
	"github.com/acero-go/acero/executor"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptySource(t *testing.T, plan *acero.ExecPlan) acero.ExecNode {
	t.Helper()
	src, err := acero.MakeExecNode("source", plan, nil, acero.SourceNodeOptions{
		Schema: testSchema, Generator: acero.RecordGenerator(),
	})
	require.NoError(t, err)
	return src
}

func TestEmptyPlan(t *testing.T) {
	plan := acero.NewExecPlan()
	assert.ErrorIs(t, plan.Validate(), arrow.ErrInvalid)
	assert.ErrorIs(t, plan.StartProducing(context.Background()), arrow.ErrInvalid)
}

func TestWaitBeforeStart(t *testing.T) {
	plan := acero.NewExecPlan()
	emptySource(t, plan)
	assert.ErrorIs(t, plan.Wait(context.Background()), arrow.ErrInvalid)
}

func TestPlanRestart(t *testing.T) {
	plan := acero.NewExecPlan()
	src := emptySource(t, plan)
	opts := &acero.TableSinkNodeOptions{}
	_, err := acero.MakeExecNode("table_sink", plan, []acero.ExecNode{src}, opts)
	require.NoError(t, err)

	require.NoError(t, plan.StartProducing(context.Background()))
	require.NoError(t, plan.Wait(context.Background()))
	opts.Table.Release()

	err = plan.StartProducing(context.Background())
	assert.ErrorIs(t, err, arrow.ErrInvalid)
	assert.ErrorContains(t, err, "restarted")
}

func TestPlanTopology(t *testing.T) {
	plan := acero.NewExecPlan()
	src := emptySource(t, plan)
	opts := &acero.SinkNodeOptions{}
	sink, err := acero.MakeExecNode("sink", plan, []acero.ExecNode{src}, opts)
	require.NoError(t, err)

	assert.Equal(t, []acero.ExecNode{src, sink}, plan.Nodes())
	assert.Equal(t, []acero.ExecNode{src}, plan.Sources())
	assert.Equal(t, []acero.ExecNode{sink}, plan.Sinks())
	assert.Equal(t, []acero.ExecNode{sink}, src.Outputs())
	assert.Equal(t, []acero.ExecNode{src}, sink.Inputs())
	assert.Equal(t, []string{"collected"}, sink.InputLabels())
	assert.True(t, testSchema.Equal(sink.OutputSchema()))

	assert.Equal(t, "SourceNode:0", src.Label())
	assert.Equal(t, "SinkNode:1", sink.Label())
	assert.NotEmpty(t, plan.ID())
	assert.Contains(t, plan.String(), `SinkNode{label="SinkNode:1", inputs=[collected: "SourceNode:0"]}`)
	assert.NoError(t, plan.Validate())
}

func TestSinkUsedAsInput(t *testing.T) {
	plan := acero.NewExecPlan()
	src := emptySource(t, plan)
	first, err := acero.MakeExecNode("sink", plan, []acero.ExecNode{src}, &acero.SinkNodeOptions{})
	require.NoError(t, err)
	_, err = acero.MakeExecNode("sink", plan, []acero.ExecNode{first}, &acero.SinkNodeOptions{})
	require.NoError(t, err)

	assert.ErrorIs(t, plan.Validate(), acero.ErrSinkNoOutputs)
	assert.ErrorIs(t, plan.StartProducing(context.Background()), acero.ErrSinkNoOutputs)
}

func TestSourceWithoutOutput(t *testing.T) {
	plan := acero.NewExecPlan()
	emptySource(t, plan)
	err := plan.Validate()
	assert.ErrorIs(t, err, arrow.ErrInvalid)
	assert.ErrorContains(t, err, "expects 1 outputs but has 0")
}

func TestInputFromAnotherPlan(t *testing.T) {
	other := acero.NewExecPlan()
	src := emptySource(t, other)

	plan := acero.NewExecPlan()
	_, err := acero.MakeExecNode("sink", plan, []acero.ExecNode{src}, &acero.SinkNodeOptions{})
	assert.ErrorIs(t, err, arrow.ErrInvalid)
	assert.ErrorContains(t, err, "not part of the plan")
}

func TestStartFailureStopsStartedNodes(t *testing.T) {
	pool, err := executor.NewThreadPool(1)
	require.NoError(t, err)
	require.NoError(t, pool.Shutdown(true))

	plan := acero.NewExecPlan(acero.WithExecutor(pool))
	src := emptySource(t, plan)
	opts := &acero.TableSinkNodeOptions{}
	sink, err := acero.MakeExecNode("table_sink", plan, []acero.ExecNode{src}, opts)
	require.NoError(t, err)

	err = plan.StartProducing(context.Background())
	assert.ErrorIs(t, err, executor.ErrShutdown)

	assert.NoError(t, sink.Finished().Err(), "started sink must be stopped")
	assert.ErrorIs(t, plan.Wait(context.Background()), executor.ErrShutdown)
	assert.ErrorIs(t, src.Finished().Err(), executor.ErrShutdown)
	if opts.Table != nil {
		opts.Table.Release()
	}
}

func TestFactoryRegistry(t *testing.T) {
	names := acero.DefaultExecFactoryRegistry().FactoryNames()
	assert.Equal(t, []string{"consuming_sink", "order_by_sink", "select_k_sink", "sink", "source", "table_sink"}, names)

	reg := acero.NewExecFactoryRegistry()
	acero.RegisterSourceNode(reg)
	assert.ErrorIs(t, reg.AddFactory("source", nil), arrow.ErrInvalid)
	_, err := reg.GetFactory("sink")
	assert.ErrorIs(t, err, arrow.ErrInvalid)

	plan := acero.NewExecPlan(acero.WithFactoryRegistry(reg))
	src := emptySource(t, plan)
	_, err = acero.MakeExecNode("sink", plan, []acero.ExecNode{src}, &acero.SinkNodeOptions{})
	assert.ErrorIs(t, err, arrow.ErrInvalid)
	assert.ErrorContains(t, err, "not present in registry")
}

func TestSequence(t *testing.T) {
	decl := acero.Sequence(
		acero.Declaration{Factory: "source", Label: "a"},
		acero.Declaration{Factory: "filter", Label: "b"},
		acero.Declaration{Factory: "sink", Label: "c"},
	)
	assert.Equal(t, "c", decl.Label)
	require.Len(t, decl.Inputs, 1)
	assert.Equal(t, "b", decl.Inputs[0].Label)
	require.Len(t, decl.Inputs[0].Inputs, 1)
	assert.Equal(t, "a", decl.Inputs[0].Inputs[0].Label)
	assert.Empty(t, decl.Inputs[0].Inputs[0].Inputs)
}

func TestDeclarationLabels(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	plan := acero.NewExecPlan(acero.WithAllocator(mem))
	opts := &acero.SinkNodeOptions{}
	decl := acero.Sequence(
		acero.Declaration{Factory: "source", Label: "numbers", Options: acero.SourceNodeOptions{
			Schema: testSchema, Generator: acero.RecordGenerator(),
		}},
		acero.Declaration{Factory: "sink", Label: "out", Options: opts},
	)
	sink, err := decl.AddToPlan(plan)
	require.NoError(t, err)
	assert.Equal(t, "out", sink.Label())
	assert.Equal(t, "numbers", sink.Inputs()[0].Label())

	_, err = acero.Declaration{Factory: "bogus"}.AddToPlan(plan)
	assert.ErrorContains(t, err, "making bogus node")
}
