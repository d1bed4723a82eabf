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

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// ErrInvalidPartition is wrapped by every error Verify returns.
var ErrInvalidPartition = errors.New("partition: invalid partition")

// Verify checks that segs is a well-formed partition of lengths: at least
// one segment, every end offset on a real element, segments ordered and
// contiguous in the concatenated workload with no gap or overlap, and the
// whole workload covered exactly once.
//
// A segment may start at offset 0 of an empty array (AdvanceOnBoundary);
// any other offset must lie inside its array.
func Verify(lengths []int64, segs []Segment) error {
	if len(segs) == 0 {
		return fmt.Errorf("%w: no segments", ErrInvalidPartition)
	}
	total := lo.Sum(lengths)
	if total == 0 {
		if len(segs) != 1 || !segs[0].IsEmpty() {
			return fmt.Errorf("%w: empty workload must map to the single empty segment, got %v",
				ErrInvalidPartition, segs)
		}
		return nil
	}

	base := make([]int64, len(lengths))
	var acc int64
	for a, n := range lengths {
		base[a] = acc
		acc += n
	}

	next := int64(0)
	for w, s := range segs {
		if s.StartArray < 0 || s.EndArray >= len(lengths) || s.StartArray > s.EndArray {
			return fmt.Errorf("%w: segment %d %v: array range outside [0, %d)",
				ErrInvalidPartition, w, s, len(lengths))
		}
		startLen := lengths[s.StartArray]
		if s.StartOffset < 0 || (s.StartOffset >= startLen && !(s.StartOffset == 0 && startLen == 0)) {
			return fmt.Errorf("%w: segment %d %v: start offset outside array of length %d",
				ErrInvalidPartition, w, s, startLen)
		}
		if endLen := lengths[s.EndArray]; s.EndOffset < 0 || s.EndOffset >= endLen {
			return fmt.Errorf("%w: segment %d %v: end offset outside array of length %d",
				ErrInvalidPartition, w, s, endLen)
		}
		start := base[s.StartArray] + s.StartOffset
		end := base[s.EndArray] + s.EndOffset
		if start != next {
			return fmt.Errorf("%w: segment %d %v starts at element %d, want %d",
				ErrInvalidPartition, w, s, start, next)
		}
		if end < start {
			return fmt.Errorf("%w: segment %d %v ends before it starts", ErrInvalidPartition, w, s)
		}
		next = end + 1
	}
	if next != total {
		return fmt.Errorf("%w: segments cover %d of %d elements", ErrInvalidPartition, next, total)
	}
	return nil
}
