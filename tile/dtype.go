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

package tile

import (
	"fmt"
	"strings"
)

// DType identifies the element type of the arrays being tiled.
type DType int

const (
	// Invalid is the zero DType and never describes real data.
	Invalid DType = iota
	Float32
	Float16
	BFloat16
	Float64
	Int8
	Int16
	Int32
	Int64
	Uint8
	Bool
)

var dtypeNames = [...]string{
	Invalid:  "invalid",
	Float32:  "float32",
	Float16:  "float16",
	BFloat16: "bfloat16",
	Float64:  "float64",
	Int8:     "int8",
	Int16:    "int16",
	Int32:    "int32",
	Int64:    "int64",
	Uint8:    "uint8",
	Bool:     "bool",
}

// String returns the canonical lower-case name of the type.
func (d DType) String() string {
	if d < 0 || int(d) >= len(dtypeNames) {
		return "unknown"
	}
	return dtypeNames[d]
}

// Size returns the element width in bytes, or 0 for Invalid.
func (d DType) Size() int64 {
	switch d {
	case Int8, Uint8, Bool:
		return 1
	case Float16, BFloat16, Int16:
		return 2
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	default:
		return 0
	}
}

// IsHalf reports whether d is one of the 16-bit float encodings. These are
// computed in float32 on the device, so tilings reserve room for the
// up-cast intermediates.
func (d DType) IsHalf() bool {
	return d == Float16 || d == BFloat16
}

// Valid reports whether d names a real element type.
func (d DType) Valid() bool {
	return d.Size() > 0
}

// MarshalText implements encoding.TextMarshaler.
func (d DType) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("tile: cannot marshal dtype %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DType) UnmarshalText(text []byte) error {
	v, err := ParseDType(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDType parses a dtype name. Common aliases ("half", "fp16", "bf16",
// "float", "int") are accepted.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float32", "fp32", "float", "f32":
		return Float32, nil
	case "float16", "fp16", "half", "f16":
		return Float16, nil
	case "bfloat16", "bf16":
		return BFloat16, nil
	case "float64", "fp64", "double", "f64":
		return Float64, nil
	case "int8", "i8":
		return Int8, nil
	case "int16", "i16":
		return Int16, nil
	case "int32", "int", "i32":
		return Int32, nil
	case "int64", "i64":
		return Int64, nil
	case "uint8", "u8":
		return Uint8, nil
	case "bool":
		return Bool, nil
	}
	return Invalid, fmt.Errorf("tile: unknown dtype %q", s)
}
