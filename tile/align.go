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

// CeilDiv returns ceil(a/b).
//
// A zero divisor returns a unchanged.
//
// Example:
//
//	CeilDiv(300, 32) // 10
//	CeilDiv(7, 0)    // 7
func CeilDiv[T Integers](a, b T) T {
	if b == 0 {
		return a
	}
	q := a / b
	// Go truncates toward zero; bump the quotient when the exact result is
	// positive and there is a remainder.
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}

// CeilAlign returns the smallest multiple of align that is >= x.
// Returns x unchanged when align is zero.
func CeilAlign[T Integers](x, align T) T {
	if align == 0 {
		return x
	}
	return CeilDiv(x, align) * align
}

// FloorAlign returns the largest multiple of align that is <= x.
// Returns x unchanged when align is zero.
func FloorAlign[T Integers](x, align T) T {
	if align == 0 {
		return x
	}
	q := x / align
	if x%align != 0 && (x < 0) != (align < 0) {
		q--
	}
	return q * align
}
