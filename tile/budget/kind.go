// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package budget

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Kind identifies an operator family. Operators in one family hold the same
// number of live buffers and the same scratch reservations, so they share a
// Policy.
type Kind int

const (
	KindInvalid Kind = iota
	KindCopy
	KindUnary
	KindLog
	KindLog2
	KindNeg
	KindExp
	KindAbs
	KindBinaryList
	KindAddList
	KindMaximumList
	KindPointwise
	KindPointwiseList
	KindBinaryScalar
	KindMulScalar
	KindSubScalar
	KindDivScalar
	KindSigmoid
	KindErf
	KindErfc
	KindCos
	KindSin
	KindCosh
	KindSinh
	KindTan
	KindAtan
	KindTanh
	KindLerpScalar
	KindLerpList
	KindPowScalar
	KindSign
	KindNorm
	KindPowList
	KindRoundOffNumber
	numKinds
)

var kindNames = [numKinds]string{
	KindInvalid:       "invalid",
	KindCopy:          "copy",
	KindUnary:         "unary",
	KindLog:           "log",
	KindLog2:          "log2",
	KindNeg:           "neg",
	KindExp:           "exp",
	KindAbs:           "abs",
	KindBinaryList:    "binary_list",
	KindAddList:       "add_list",
	KindMaximumList:   "maximum_list",
	KindPointwise:     "pointwise",
	KindPointwiseList: "pointwise_list",
	KindBinaryScalar:  "binary_scalar",
	KindMulScalar:     "mul_scalar",
	KindSubScalar:     "sub_scalar",
	KindDivScalar:     "div_scalar",
	KindSigmoid:       "sigmoid",
	KindErf:           "erf",
	KindErfc:          "erfc",
	KindCos:           "cos",
	KindSin:           "sin",
	KindCosh:          "cosh",
	KindSinh:          "sinh",
	KindTan:           "tan",
	KindAtan:          "atan",
	KindTanh:          "tanh",
	KindLerpScalar:    "lerp_scalar",
	KindLerpList:      "lerp_list",
	KindPowScalar:     "pow_scalar",
	KindSign:          "sign",
	KindNorm:          "norm",

	KindPowList:        "pow_list",
	KindRoundOffNumber: "round_off_number",
}

// Operators that share a family with a differently named kind.
var kindAliases = map[string]Kind{
	"add_scalar":     KindUnary,
	"expm1":          KindUnary,
	"sqrt":           KindUnary,
	"zero":           KindUnary,
	"log1p":          KindLog,
	"log10":          KindLog,
	"reciprocal":     KindNeg,
	"div_list":       KindBinaryList,
	"mul_list":       KindBinaryList,
	"sub_list":       KindBinaryList,
	"minimum_list":   KindBinaryList,
	"addcdiv":        KindPointwise,
	"addcmul":        KindPointwise,
	"addcdiv_list":   KindPointwiseList,
	"addcmul_list":   KindPointwiseList,
	"maximum_scalar": KindBinaryScalar,
	"minimum_scalar": KindBinaryScalar,
	"asin":           KindCosh,
	"acos":           KindCosh,

	"pow_scalar_list":       KindPowScalar,
	"pow_scalar_and_tensor": KindPowScalar,
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	ks := make([]Kind, 0, numKinds-1)
	for k := KindInvalid + 1; k < numKinds; k++ {
		ks = append(ks, k)
	}
	return ks
}

// Aliases returns the operator names that map onto k without being its
// canonical name.
func (k Kind) Aliases() []string {
	names := lo.Keys(lo.PickByValues(kindAliases, []Kind{k}))
	slices.Sort(names)
	return names
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k names a real operator family.
func (k Kind) Valid() bool {
	return k > KindInvalid && k < numKinds
}

// Reduces reports whether operators of kind k combine per-worker partial
// results, and therefore need a partition index.
func (k Kind) Reduces() bool {
	return k.Valid() && policies[k].Reduce
}

// ParseKind parses a canonical kind name or an operator alias.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k := KindInvalid + 1; k < numKinds; k++ {
		if kindNames[k] == name {
			return k, nil
		}
	}
	if k, ok := kindAliases[name]; ok {
		return k, nil
	}
	return KindInvalid, fmt.Errorf("budget: unknown operator kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("budget: cannot marshal kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
