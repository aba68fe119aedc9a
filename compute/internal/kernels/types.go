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

// CompareOperator selects the ordering relation evaluated by a
// comparison kernel.
type CompareOperator int8

const (
	CmpEQ CompareOperator = iota // equal
	CmpNE                        // not_equal
	CmpGT                        // greater
	CmpGE                        // greater_equal
	CmpLT                        // less
	CmpLE                        // less_equal
)

var cmpOpNames = [...]string{"equal", "not_equal", "greater", "greater_equal", "less", "less_equal"}

func (op CompareOperator) String() string {
	if op < 0 || int(op) >= len(cmpOpNames) {
		return "CompareOperator(invalid)"
	}
	return cmpOpNames[op]
}

// Flip returns the operator to use when the operands are swapped, such
// that a op b == b op.Flip() a.
func (op CompareOperator) Flip() CompareOperator {
	switch op {
	case CmpGT:
		return CmpLT
	case CmpGE:
		return CmpLE
	case CmpLT:
		return CmpGT
	case CmpLE:
		return CmpGE
	}
	return op
}

// CompareOperatorFromName is the inverse of CompareOperator.String.
func CompareOperatorFromName(name string) (CompareOperator, bool) {
	for i, n := range cmpOpNames {
		if n == name {
			return CompareOperator(i), true
		}
	}
	return 0, false
}

func (op CompareOperator) apply(c int) bool {
	switch op {
	case CmpEQ:
		return c == 0
	case CmpNE:
		return c != 0
	case CmpGT:
		return c > 0
	case CmpGE:
		return c >= 0
	case CmpLT:
		return c < 0
	case CmpLE:
		return c <= 0
	}
	return false
}

type ElementWiseAggregateOptions struct {
	SkipNulls bool `compute:"skip_nulls"`
}

func (ElementWiseAggregateOptions) TypeName() string { return "ElementWiseAggregateOptions" }
