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
	"slices"

	"github.com/samber/lo"
)

// Index locates per-worker partial results of a reduction in a flat
// results buffer of Slots() entries, one entry per (worker, array) pair
// the partition touches.
//
// Because segments are ordered and contiguous, the workers touching an
// array are consecutive and the arrays a worker touches are consecutive,
// so array-major and worker-major enumeration of the pairs coincide:
// ArraySlot(a, w) == WorkerSlot(w, a) for every touched pair.
type Index struct {
	// TouchCount[a] is the number of workers whose range includes array a.
	TouchCount []int

	// MiddleStart[a] is the first slot of array a: the exclusive prefix sum
	// of TouchCount.
	MiddleStart []int

	// CoreMiddleOffset[w] is the first slot of worker w: the exclusive
	// prefix sum of the segment spans.
	CoreMiddleOffset []int

	// FirstWorker[a] is the lowest worker touching array a, or -1.
	FirstWorker []int

	// FirstArray[w] is the first array of worker w's range, or -1 for the
	// empty segment.
	FirstArray []int
}

// BuildIndex derives the reduction bookkeeping for segs over numArrays
// arrays in a single forward pass over the workers. The empty segment
// touches nothing.
func BuildIndex(numArrays int, segs []Segment) Index {
	idx := Index{
		TouchCount:       make([]int, numArrays),
		MiddleStart:      make([]int, numArrays),
		CoreMiddleOffset: make([]int, len(segs)),
		FirstWorker:      slices.Repeat([]int{-1}, numArrays),
		FirstArray:       make([]int, len(segs)),
	}

	slot := 0
	for w, s := range segs {
		idx.CoreMiddleOffset[w] = slot
		if s.IsEmpty() {
			idx.FirstArray[w] = -1
			continue
		}
		idx.FirstArray[w] = s.StartArray
		for a := s.StartArray; a <= s.EndArray && a < numArrays; a++ {
			// Every worker whose range includes a adds one partial
			// result for it.
			idx.TouchCount[a]++
			if idx.FirstWorker[a] < 0 {
				idx.FirstWorker[a] = w
			}
		}
		slot += s.Span()
	}

	slot = 0
	for a, n := range idx.TouchCount {
		idx.MiddleStart[a] = slot
		slot += n
	}
	return idx
}

// Slots returns the size of the partial-results buffer.
func (idx Index) Slots() int {
	return lo.Sum(idx.TouchCount)
}

// ArraySlot returns the slot of worker w's partial result for array a.
func (idx Index) ArraySlot(a, w int) int {
	return idx.MiddleStart[a] + w - idx.FirstWorker[a]
}

// WorkerSlot returns the slot of worker w's partial result for array a.
func (idx Index) WorkerSlot(w, a int) int {
	return idx.CoreMiddleOffset[w] + a - idx.FirstArray[w]
}

// Uncovered lists the arrays no worker touches. Only empty arrays can be
// uncovered; reducing consumers emit the identity result for them.
func (idx Index) Uncovered() []int {
	return lo.Filter(lo.Range(len(idx.TouchCount)), func(a int, _ int) bool {
		return idx.TouchCount[a] == 0
	})
}

// Clone returns a deep copy of idx.
func (idx Index) Clone() Index {
	return Index{
		TouchCount:       slices.Clone(idx.TouchCount),
		MiddleStart:      slices.Clone(idx.MiddleStart),
		CoreMiddleOffset: slices.Clone(idx.CoreMiddleOffset),
		FirstWorker:      slices.Clone(idx.FirstWorker),
		FirstArray:       slices.Clone(idx.FirstArray),
	}
}
