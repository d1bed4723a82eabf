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

package partition

import "fmt"

// Segment is the contiguous range of the concatenated workload assigned to
// one worker. Both ends are inclusive: the worker processes elements
// [StartOffset, len) of StartArray, every array strictly between, and
// [0, EndOffset] of EndArray.
type Segment struct {
	StartArray  int
	StartOffset int64
	EndArray    int
	EndOffset   int64
}

// EmptySegment is the single segment emitted for a workload with no data.
var EmptySegment = Segment{StartArray: 0, StartOffset: 0, EndArray: 0, EndOffset: -1}

// IsEmpty reports whether s is the degenerate empty-workload segment.
func (s Segment) IsEmpty() bool {
	return s == EmptySegment
}

// Span returns the number of arrays the segment's range covers, counting
// both end arrays.
func (s Segment) Span() int {
	return s.EndArray - s.StartArray + 1
}

// Elements returns how many elements of lengths the segment covers.
func (s Segment) Elements(lengths []int64) int64 {
	if s.IsEmpty() {
		return 0
	}
	if s.StartArray == s.EndArray {
		return s.EndOffset - s.StartOffset + 1
	}
	n := lengths[s.StartArray] - s.StartOffset
	for a := s.StartArray + 1; a < s.EndArray; a++ {
		n += lengths[a]
	}
	return n + s.EndOffset + 1
}

// Contains reports whether array a lies inside the segment's array range.
func (s Segment) Contains(a int) bool {
	return a >= s.StartArray && a <= s.EndArray
}

func (s Segment) String() string {
	return fmt.Sprintf("[%d:%d]-[%d:%d]", s.StartArray, s.StartOffset, s.EndArray, s.EndOffset)
}
