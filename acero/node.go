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

package acero

import (
	"context"
	"fmt"
	"strings"

	"github.com/acero-go/acero/executor"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/go-kit/log"
	"golang.org/x/xerrors"
)

// ErrSinkNoOutputs is reported by Validate for a sink node which some
// other node uses as its input.
var ErrSinkNoOutputs = xerrors.New("acero: sink nodes cannot have outputs")

// ExecNode is a node of an ExecPlan.
//
// Upstream nodes drive a node through InputReceived, ErrorReceived and
// InputFinished. Downstream nodes apply backpressure through
// PauseProducing and ResumeProducing; the counter increases with every
// signal so a node can ignore one which arrives late.
type ExecNode interface {
	Plan() *ExecPlan
	Label() string
	SetLabel(label string)
	KindName() string

	Inputs() []ExecNode
	InputLabels() []string
	Outputs() []ExecNode
	NumOutputs() int
	OutputSchema() *arrow.Schema

	Validate() error
	StartProducing(ctx context.Context) error

	InputReceived(input ExecNode, batch ExecBatch)
	ErrorReceived(input ExecNode, err error)
	InputFinished(input ExecNode, totalBatches int)

	PauseProducing(output ExecNode, counter int32)
	ResumeProducing(output ExecNode, counter int32)
	// StopProducingFor is called by an output which needs no more data.
	StopProducingFor(output ExecNode)
	// StopProducing stops the node and finishes it with whatever it has.
	StopProducing()

	// Finished completes once the node is done, successfully or not.
	Finished() *executor.Future[executor.Empty]

	fmt.Stringer

	addOutput(ExecNode)
}

// BaseNode holds the graph bookkeeping shared by every node. Node
// implementations embed it.
type BaseNode struct {
	plan         *ExecPlan
	kind         string
	label        string
	inputs       []ExecNode
	inputLabels  []string
	outputs      []ExecNode
	numOutputs   int
	outputSchema *arrow.Schema
	finished     *executor.Future[executor.Empty]
}

func NewBaseNode(plan *ExecPlan, kind string, inputs []ExecNode, inputLabels []string, outputSchema *arrow.Schema, numOutputs int) BaseNode {
	return BaseNode{
		plan:         plan,
		kind:         kind,
		inputs:       inputs,
		inputLabels:  inputLabels,
		numOutputs:   numOutputs,
		outputSchema: outputSchema,
		finished:     executor.NewFuture[executor.Empty](),
	}
}

func (n *BaseNode) Plan() *ExecPlan                            { return n.plan }
func (n *BaseNode) Label() string                              { return n.label }
func (n *BaseNode) SetLabel(label string)                      { n.label = label }
func (n *BaseNode) KindName() string                           { return n.kind }
func (n *BaseNode) Inputs() []ExecNode                         { return n.inputs }
func (n *BaseNode) InputLabels() []string                      { return n.inputLabels }
func (n *BaseNode) Outputs() []ExecNode                        { return n.outputs }
func (n *BaseNode) NumOutputs() int                            { return n.numOutputs }
func (n *BaseNode) OutputSchema() *arrow.Schema                { return n.outputSchema }
func (n *BaseNode) addOutput(out ExecNode)                     { n.outputs = append(n.outputs, out) }
func (n *BaseNode) Finished() *executor.Future[executor.Empty] { return n.finished }

func (n *BaseNode) Validate() error {
	if len(n.inputs) != len(n.inputLabels) {
		return fmt.Errorf("%w: %s node %q has %d inputs but %d input labels",
			arrow.ErrInvalid, n.kind, n.label, len(n.inputs), len(n.inputLabels))
	}
	if len(n.outputs) == n.numOutputs {
		return nil
	}
	if n.numOutputs == 0 {
		return xerrors.Errorf("%s node %q is used as an input: %w", n.kind, n.label, ErrSinkNoOutputs)
	}
	return fmt.Errorf("%w: %s node %q expects %d outputs but has %d",
		arrow.ErrInvalid, n.kind, n.label, n.numOutputs, len(n.outputs))
}

func (n *BaseNode) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s{label=%q", n.kind, n.label)
	if len(n.inputs) > 0 {
		sb.WriteString(", inputs=[")
		for i, in := range n.inputs {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %q", n.inputLabels[i], in.Label())
		}
		sb.WriteString("]")
	}
	sb.WriteString("}")
	return sb.String()
}

// nodeLogger tags the plan's logger with the node's current label.
func nodeLogger(n ExecNode) log.Logger {
	label := log.Valuer(func() interface{} { return n.Label() })
	return log.With(n.Plan().Logger(), "node", label, "kind", n.KindName())
}

// noOutputs is embedded by sinks. A call to any of its methods means the
// plan routed a downstream signal to a node without outputs.
type noOutputs struct{}

func (noOutputs) PauseProducing(ExecNode, int32)  { abortNoOutputs() }
func (noOutputs) ResumeProducing(ExecNode, int32) { abortNoOutputs() }
func (noOutputs) StopProducingFor(ExecNode)       { abortNoOutputs() }
