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

package plan

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-tileplan/tile"
	"github.com/ajroetker/go-tileplan/tile/budget"
)

func TestDecodeWorkload(t *testing.T) {
	const doc = `
platform:
  workers: 4
  budget: 65536
requests:
  - name: a
    kind: sqrt
    dtype: bf16
    lengths: [1, 2, 3]
---
platform:
  workers: 8
requests:
  - name: b
    kind: norm
    dtype: float32
    lengths: [0]
`
	w, err := DecodeWorkload(strings.NewReader(doc))
	require.NoError(t, err)

	want := Workload{
		Platform: PlatformOverrides{Workers: 8, MemoryBudget: 65536},
		Requests: []Request{
			{Name: "a", Kind: budget.KindUnary, DType: tile.BFloat16, Lengths: []int64{1, 2, 3}},
			{Name: "b", Kind: budget.KindNorm, DType: tile.Float32, Lengths: []int64{0}},
		},
	}
	if diff := cmp.Diff(want, w); diff != "" {
		t.Errorf("DecodeWorkload (-want +got):\n%s", diff)
	}
}

func TestDecodeWorkloadErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field": "requests:\n  - name: a\n    shape: [1]\n",
		"unknown kind":  "requests:\n  - kind: convolution\n",
		"unknown dtype": "requests:\n  - dtype: complex64\n",
		"not yaml":      "requests: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeWorkload(strings.NewReader(doc))
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDecodeWorkloadEmpty(t *testing.T) {
	w, err := DecodeWorkload(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, w.Requests)
}

func TestPlatformOverridesApply(t *testing.T) {
	p := PlatformOverrides{Workers: 4, BlockBytes: 64}.Apply(tile.DefaultPlatform())
	assert.Equal(t, 4, p.Workers)
	assert.Equal(t, int64(64), p.BlockBytes)
	assert.Equal(t, int64(128), p.HalfBlockBytes)
	assert.Equal(t, int64(512), p.RepeatBytes)
	assert.Equal(t, int64(tile.DefaultMemoryBudget), p.MemoryBudget)
	require.NoError(t, p.Validate())

	for _, block := range []int64{24, 48, 512} {
		p := PlatformOverrides{BlockBytes: block}.Apply(tile.DefaultPlatform())
		require.NoError(t, p.Validate(), "block %d", block)
		assert.Zero(t, p.RepeatBytes%p.HalfBlockBytes, "block %d: repeat %d", block, p.RepeatBytes)
		assert.GreaterOrEqual(t, p.RepeatBytes, int64(tile.DefaultRepeatBytes))
		for _, d := range []tile.DType{tile.Float32, tile.Float16} {
			tb := budget.PolicyFor(budget.KindLerpList).TileBytes(p.MemoryBudget, d, p)
			assert.Zero(t, tb%p.HalfBlockBytes, "block %d %v: lerp_list tile %d", block, d, tb)
		}
	}
	assert.Equal(t, int64(288), PlatformOverrides{BlockBytes: 24}.Apply(tile.DefaultPlatform()).RepeatBytes)

	assert.Equal(t, tile.DefaultPlatform(), PlatformOverrides{}.Apply(tile.DefaultPlatform()))
}
