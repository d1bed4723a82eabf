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

// Package partition splits a list of variable-length arrays, viewed as one
// concatenated workload, into contiguous block-aligned ranges for a fixed
// number of parallel workers, and derives the bookkeeping that reducing
// consumers need to combine per-worker partial results.
//
// Quotas are handed out in whole blocks, so no two workers differ by more
// than one block. A single array may span many workers and a single worker
// may span many arrays.
//
// The package performs no input validation and never logs: callers pass
// non-negative lengths and positive block and worker counts.
package partition

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/ajroetker/go-tileplan/tile"
)

// BoundaryPolicy selects where the next worker starts when a quota is
// exhausted exactly at the end of an array.
type BoundaryPolicy int

const (
	// AdvanceOnBoundary starts the next worker at offset 0 of the following
	// array, even when that array is empty.
	AdvanceOnBoundary BoundaryPolicy = iota

	// HoldOnBoundary holds the next worker's start until the next array
	// that carries data. Empty arrays on the boundary belong to no worker.
	HoldOnBoundary
)

func (p BoundaryPolicy) String() string {
	switch p {
	case AdvanceOnBoundary:
		return "advance"
	case HoldOnBoundary:
		return "hold"
	default:
		return fmt.Sprintf("BoundaryPolicy(%d)", int(p))
	}
}

// ParseBoundaryPolicy parses "advance" or "hold".
func ParseBoundaryPolicy(s string) (BoundaryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "advance", "":
		return AdvanceOnBoundary, nil
	case "hold":
		return HoldOnBoundary, nil
	}
	return AdvanceOnBoundary, fmt.Errorf("partition: unknown boundary policy %q", s)
}

// Options tunes PartitionArraysWith.
type Options struct {
	Boundary BoundaryPolicy
}

// Workers returns the number of segments PartitionArrays produces for a
// workload of total elements: workerCount, reduced to the number of blocks
// when there are fewer blocks than workers, and never below 1.
func Workers(total int64, elementsPerBlock, workerCount int) int {
	blocks := tile.CeilDiv(total, int64(max(elementsPerBlock, 1)))
	return int(min(int64(max(workerCount, 1)), max(blocks, 1)))
}

// PartitionArrays splits lengths across workerCount workers using the
// AdvanceOnBoundary policy.
func PartitionArrays(lengths []int64, elementsPerBlock, workerCount int) []Segment {
	return PartitionArraysWith(lengths, elementsPerBlock, workerCount, Options{})
}

// PartitionArraysWith splits lengths across workerCount workers.
//
// The result has exactly Workers(sum(lengths), elementsPerBlock, workerCount)
// segments. The first blocks%W workers receive one block more than the rest.
// A worker whose quota ends inside an array hands the remainder of that array
// to the next worker; the last worker absorbs whatever the block rounding
// leaves over and always ends on the last element of the last non-empty
// array. An all-empty workload yields the single EmptySegment.
func PartitionArraysWith(lengths []int64, elementsPerBlock, workerCount int, opts Options) []Segment {
	total := lo.Sum(lengths)
	if total <= 0 {
		return []Segment{EmptySegment}
	}

	epb := int64(max(elementsPerBlock, 1))
	blocks := tile.CeilDiv(total, epb)
	w := Workers(total, elementsPerBlock, workerCount)
	perWorker := blocks / int64(w)
	remainder := blocks % int64(w)
	quota := func(worker int) int64 {
		if int64(worker) < remainder {
			return (perWorker + 1) * epb
		}
		return perWorker * epb
	}

	segs := make([]Segment, 0, w)
	var cur Segment
	if opts.Boundary == HoldOnBoundary {
		cur.StartArray = nextNonEmpty(lengths, 0)
	}

	var (
		i      int
		cursor int64 // offset of the next unassigned element of lengths[i]
		taken  int64 // elements already assigned to the open segment
	)
	for i < len(lengths) {
		avail := lengths[i] - cursor
		q := quota(len(segs))
		if taken+avail < q {
			taken += avail
			cursor = 0
			i++
			continue
		}

		cursor += q - taken
		cur.EndArray, cur.EndOffset = i, cursor-1
		segs = append(segs, cur)
		taken = 0
		if len(segs) == w {
			break
		}

		if cursor < lengths[i] {
			cur = Segment{StartArray: i, StartOffset: cursor}
			continue
		}
		cursor = 0
		i++
		cur = Segment{StartArray: i}
		if opts.Boundary == HoldOnBoundary {
			cur.StartArray = nextNonEmpty(lengths, i)
		}
	}

	if len(segs) < w {
		last := lastNonEmpty(lengths)
		cur.EndArray, cur.EndOffset = last, lengths[last]-1
		segs = append(segs, cur)
	}
	return segs
}

func nextNonEmpty(lengths []int64, from int) int {
	for a := from; a < len(lengths); a++ {
		if lengths[a] > 0 {
			return a
		}
	}
	return max(len(lengths)-1, 0)
}

func lastNonEmpty(lengths []int64) int {
	for a := len(lengths) - 1; a >= 0; a-- {
		if lengths[a] > 0 {
			return a
		}
	}
	return 0
}
