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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-tileplan/tile"
	"github.com/ajroetker/go-tileplan/tile/budget"
)

func encodedThreeArrays(t *testing.T) (*Plan, []byte) {
	t.Helper()
	out, err := New(fourWorkers()).Plan(Request{
		Name:    "a",
		Kind:    budget.KindNorm,
		DType:   tile.Int8,
		Lengths: []int64{100, 50, 150},
	})
	require.NoError(t, err)
	data, err := out.MarshalBinary()
	require.NoError(t, err)
	return out, data
}

func TestParamLayout(t *testing.T) {
	require.Equal(t, int64(48), headerSize)
	out, data := encodedThreeArrays(t)
	require.Len(t, data, 192)

	le := binary.LittleEndian
	assert.Equal(t, "TPLN", string(data[:4]))
	assert.Equal(t, uint16(paramVersion), le.Uint16(data[4:]))
	assert.Equal(t, uint16(budget.KindNorm), le.Uint16(data[6:]))
	assert.Equal(t, uint16(tile.Int8), le.Uint16(data[8:]))
	assert.Equal(t, uint16(flagIndex), le.Uint16(data[10:]))
	assert.Equal(t, uint32(3), le.Uint32(data[12:]))
	assert.Equal(t, uint32(4), le.Uint32(data[16:]))
	assert.Equal(t, uint32(32), le.Uint32(data[20:]))
	assert.Equal(t, uint64(out.TileElems), le.Uint64(data[24:]))
	assert.Equal(t, uint64(out.WorkspaceBytes), le.Uint64(data[40:]))

	// lengths, then the per-worker start and end offsets
	assert.Equal(t, uint64(100), le.Uint64(data[48:]))
	assert.Equal(t, uint64(150), le.Uint64(data[64:]))
	assert.Equal(t, uint64(96), le.Uint64(data[72+8:]))
	assert.Equal(t, uint64(95), le.Uint64(data[104:]))
	// start arrays, end arrays
	assert.Equal(t, uint16(2), le.Uint16(data[136+2*2:]))
	assert.Equal(t, uint16(2), le.Uint16(data[144+2:]))
	// touch counts
	assert.Equal(t, uint32(2), le.Uint32(data[152:]))
	assert.Equal(t, uint32(3), le.Uint32(data[160:]))
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	_, good := encodedThreeArrays(t)
	corrupt := func(f func([]byte) []byte) []byte {
		return f(append([]byte(nil), good...))
	}
	tests := map[string][]byte{
		"empty":     nil,
		"truncated": good[:len(good)-1],
		"trailing":  append(append([]byte(nil), good...), 0),
		"bad magic": corrupt(func(b []byte) []byte { b[0] = 'X'; return b }),
		"bad version": corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[4:], 7)
			return b
		}),
		"bad kind": corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[6:], 999)
			return b
		}),
		"end offset past the array": corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[104:], 200)
			return b
		}),
		"index disagrees": corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[152:], 9)
			return b
		}),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			var p Plan
			require.ErrorIs(t, p.UnmarshalBinary(data), ErrMalformedParams)
		})
	}
}

func TestUnmarshalDegenerate(t *testing.T) {
	out, err := New(tile.DefaultPlatform()).Plan(Request{Kind: budget.KindNorm, DType: tile.Float16, Lengths: []int64{0, 0}})
	require.NoError(t, err)
	data, err := out.MarshalBinary()
	require.NoError(t, err)

	var got Plan
	require.NoError(t, got.UnmarshalBinary(data))
	assert.True(t, got.Degenerate)
	assert.Equal(t, 1, got.Workers)
	assert.True(t, got.Segments[0].IsEmpty())
	require.NotNil(t, got.Index)
	assert.Equal(t, []int{0, 1}, got.Index.Uncovered())
}

func TestMarshalRejectsInconsistentPlan(t *testing.T) {
	out, _ := encodedThreeArrays(t)
	bad := out.Clone()
	bad.Workers = 3
	_, err := bad.MarshalBinary()
	assert.Error(t, err)
}
