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
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndex(t *testing.T) {
	tests := []struct {
		name    string
		lengths []int64
		epb     int
		workers int
		policy  BoundaryPolicy
		want    Index
	}{
		{
			name:    "three arrays four workers",
			lengths: []int64{100, 50, 150},
			epb:     32,
			workers: 4,
			want: Index{
				TouchCount:       []int{2, 1, 3},
				MiddleStart:      []int{0, 2, 3},
				CoreMiddleOffset: []int{0, 1, 4, 5},
				FirstWorker:      []int{0, 1, 1},
				FirstArray:       []int{0, 0, 2, 2},
			},
		},
		{
			name:    "all empty",
			lengths: []int64{0, 0},
			epb:     32,
			workers: 4,
			want: Index{
				TouchCount:       []int{0, 0},
				MiddleStart:      []int{0, 0},
				CoreMiddleOffset: []int{0},
				FirstWorker:      []int{-1, -1},
				FirstArray:       []int{-1},
			},
		},
		{
			name:    "advance covers empty boundary array",
			lengths: []int64{32, 0, 32},
			epb:     32,
			workers: 2,
			want: Index{
				TouchCount:       []int{1, 1, 1},
				MiddleStart:      []int{0, 1, 2},
				CoreMiddleOffset: []int{0, 1},
				FirstWorker:      []int{0, 1, 1},
				FirstArray:       []int{0, 1},
			},
		},
		{
			name:    "hold skips empty boundary array",
			lengths: []int64{32, 0, 32},
			epb:     32,
			workers: 2,
			policy:  HoldOnBoundary,
			want: Index{
				TouchCount:       []int{1, 0, 1},
				MiddleStart:      []int{0, 1, 1},
				CoreMiddleOffset: []int{0, 1},
				FirstWorker:      []int{0, -1, 1},
				FirstArray:       []int{0, 2},
			},
		},
		{
			name:    "leading empty array",
			lengths: []int64{0, 10},
			epb:     8,
			workers: 4,
			want: Index{
				TouchCount:       []int{1, 2},
				MiddleStart:      []int{0, 1},
				CoreMiddleOffset: []int{0, 2},
				FirstWorker:      []int{0, 0},
				FirstArray:       []int{0, 1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := PartitionArraysWith(tt.lengths, tt.epb, tt.workers, Options{Boundary: tt.policy})
			got := BuildIndex(len(tt.lengths), segs)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildIndex mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIndexUncovered(t *testing.T) {
	lengths := []int64{32, 0, 32, 0}
	idx := BuildIndex(len(lengths), PartitionArraysWith(lengths, 32, 2, Options{Boundary: HoldOnBoundary}))
	assert.Equal(t, []int{1, 3}, idx.Uncovered())
	assert.Equal(t, 2, idx.Slots())

	idx = BuildIndex(len(lengths), PartitionArrays(lengths, 32, 2))
	assert.Equal(t, []int{3}, idx.Uncovered())
}

func TestIndexProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for iter := range 1000 {
		lengths := make([]int64, 1+rng.IntN(10))
		for a := range lengths {
			if rng.IntN(4) > 0 {
				lengths[a] = int64(rng.IntN(300))
			}
		}
		epb, workers := 1+rng.IntN(32), 1+rng.IntN(48)
		policy := BoundaryPolicy(iter % 2)
		segs := PartitionArraysWith(lengths, epb, workers, Options{Boundary: policy})
		idx := BuildIndex(len(lengths), segs)

		spans := 0
		for _, s := range segs {
			if !s.IsEmpty() {
				spans += s.Span()
			}
		}
		require.Equal(t, spans, idx.Slots(), "lengths=%v", lengths)

		for a, n := range lengths {
			if n > 0 {
				require.GreaterOrEqual(t, idx.TouchCount[a], 1, "array %d of %v", a, lengths)
			}
		}
		uncovered := lo.Map(idx.Uncovered(), func(a int, _ int) int64 { return lengths[a] })
		require.True(t, lo.EveryBy(uncovered, func(n int64) bool { return n == 0 }),
			"uncovered arrays of %v have data", lengths)

		// Every touched (worker, array) pair gets one distinct slot and both
		// layouts agree on it.
		seen := make(map[int]bool)
		for w, s := range segs {
			if s.IsEmpty() {
				continue
			}
			for a := s.StartArray; a <= s.EndArray; a++ {
				slot := idx.ArraySlot(a, w)
				require.Equal(t, slot, idx.WorkerSlot(w, a))
				require.False(t, seen[slot], "slot %d assigned twice", slot)
				require.Less(t, slot, idx.Slots())
				seen[slot] = true
			}
		}
		require.Len(t, seen, idx.Slots())
	}
}

func TestIndexClone(t *testing.T) {
	lengths := []int64{100, 50, 150}
	idx := BuildIndex(len(lengths), PartitionArrays(lengths, 32, 4))
	c := idx.Clone()
	require.Equal(t, idx, c)
	c.TouchCount[0] = 99
	assert.Equal(t, 2, idx.TouchCount[0])
}
