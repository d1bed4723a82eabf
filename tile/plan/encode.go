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
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/ajroetker/go-tileplan/tile"
	"github.com/ajroetker/go-tileplan/tile/budget"
	"github.com/ajroetker/go-tileplan/tile/partition"
)

// Parameter block layout, little-endian:
//
//	header                  48 bytes
//	lengths                 int64[arrays]
//	start offsets           int64[workers]
//	end offsets             int64[workers]
//	start arrays            uint16[workers]
//	end arrays              uint16[workers]
//	touch counts            uint32[arrays]   (index only)
//	middle starts           uint32[arrays]   (index only)
//	core middle offsets     uint32[workers]  (index only)
//
// Every int64 field sits on an 8-byte boundary.
const (
	paramMagic   = 0x4e4c5054 // "TPLN"
	paramVersion = 1

	flagIndex      = 1 << 0
	flagDegenerate = 1 << 1
)

type paramHeader struct {
	Magic            uint32
	Version          uint16
	Kind             uint16
	DType            uint16
	Flags            uint16
	Arrays           uint32
	Workers          uint32
	ElementsPerBlock uint32
	TileElems        int64
	TileBytes        int64
	WorkspaceBytes   int64
}

var headerSize = int64(binary.Size(paramHeader{}))

// paramSize returns the encoded size of a plan with the given shape.
func paramSize(arrays, workers int, index bool) int64 {
	n := headerSize + 8*int64(arrays) + (8+8+2+2)*int64(workers)
	if index {
		n += 4*2*int64(arrays) + 4*int64(workers)
	}
	return n
}

// MarshalBinary encodes p as the parameter block a kernel launch reads.
// The name is not part of the block.
func (p *Plan) MarshalBinary() ([]byte, error) {
	if len(p.Segments) != p.Workers {
		return nil, fmt.Errorf("plan: %d segments for %d workers", len(p.Segments), p.Workers)
	}
	h := paramHeader{
		Magic:            paramMagic,
		Version:          paramVersion,
		Kind:             uint16(p.Kind),
		DType:            uint16(p.DType),
		Arrays:           uint32(len(p.Lengths)),
		Workers:          uint32(p.Workers),
		ElementsPerBlock: uint32(p.ElementsPerBlock),
		TileElems:        p.TileElems,
		TileBytes:        p.TileBytes,
		WorkspaceBytes:   p.WorkspaceBytes,
	}
	if p.Index != nil {
		h.Flags |= flagIndex
	}
	if p.Degenerate {
		h.Flags |= flagDegenerate
	}

	size := paramSize(len(p.Lengths), p.Workers, p.Index != nil)
	buf := make([]byte, 0, size)
	var err error
	put := func(v any) {
		if err == nil {
			buf, err = binary.Append(buf, binary.LittleEndian, v)
		}
	}
	starts := make([]int64, p.Workers)
	ends := make([]int64, p.Workers)
	startArrays := make([]uint16, p.Workers)
	endArrays := make([]uint16, p.Workers)
	for w, s := range p.Segments {
		starts[w], ends[w] = s.StartOffset, s.EndOffset
		startArrays[w], endArrays[w] = uint16(s.StartArray), uint16(s.EndArray)
	}
	put(h)
	put(p.Lengths)
	put(starts)
	put(ends)
	put(startArrays)
	put(endArrays)
	if p.Index != nil {
		put(toUint32(p.Index.TouchCount))
		put(toUint32(p.Index.MiddleStart))
		put(toUint32(p.Index.CoreMiddleOffset))
	}
	if err != nil {
		return nil, fmt.Errorf("plan: encoding %q: %w", p.Name, err)
	}
	if int64(len(buf)) != size {
		return nil, fmt.Errorf("plan: encoded %d bytes, expected %d", len(buf), size)
	}
	return buf, nil
}

// UnmarshalBinary decodes a parameter block produced by MarshalBinary.
// The reduction index is rebuilt from the segments and must match the
// encoded one.
func (p *Plan) UnmarshalBinary(data []byte) error {
	var h paramHeader
	n, err := binary.Decode(data, binary.LittleEndian, &h)
	if err != nil {
		return fmt.Errorf("%w: header: %w", ErrMalformedParams, err)
	}
	if h.Magic != paramMagic {
		return fmt.Errorf("%w: bad magic %#x", ErrMalformedParams, h.Magic)
	}
	if h.Version != paramVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrMalformedParams, h.Version)
	}
	arrays, workers := int(h.Arrays), int(h.Workers)
	hasIndex := h.Flags&flagIndex != 0
	if want := paramSize(arrays, workers, hasIndex); int64(len(data)) != want {
		return fmt.Errorf("%w: %d bytes for %d arrays and %d workers, expected %d",
			ErrMalformedParams, len(data), arrays, workers, want)
	}
	kind, dtype := budget.Kind(h.Kind), tile.DType(h.DType)
	if !kind.Valid() || !dtype.Valid() {
		return fmt.Errorf("%w: kind %d dtype %d", ErrMalformedParams, h.Kind, h.DType)
	}

	rest := data[n:]
	get := func(v any) {
		if err != nil {
			return
		}
		var m int
		m, err = binary.Decode(rest, binary.LittleEndian, v)
		rest = rest[m:]
	}
	lengths := make([]int64, arrays)
	starts := make([]int64, workers)
	ends := make([]int64, workers)
	startArrays := make([]uint16, workers)
	endArrays := make([]uint16, workers)
	get(lengths)
	get(starts)
	get(ends)
	get(startArrays)
	get(endArrays)
	var touch, middle, core []uint32
	if hasIndex {
		touch = make([]uint32, arrays)
		middle = make([]uint32, arrays)
		core = make([]uint32, workers)
		get(touch)
		get(middle)
		get(core)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedParams, err)
	}

	segs := make([]partition.Segment, workers)
	for w := range segs {
		segs[w] = partition.Segment{
			StartArray:  int(startArrays[w]),
			StartOffset: starts[w],
			EndArray:    int(endArrays[w]),
			EndOffset:   ends[w],
		}
	}
	if err := partition.Verify(lengths, segs); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedParams, err)
	}

	out := Plan{
		Kind:             kind,
		DType:            dtype,
		Lengths:          lengths,
		Workers:          workers,
		ElementsPerBlock: int(h.ElementsPerBlock),
		Segments:         segs,
		TileElems:        h.TileElems,
		TileBytes:        h.TileBytes,
		ParamBytes:       int64(len(data)),
		WorkspaceBytes:   h.WorkspaceBytes,
		Degenerate:       h.Flags&flagDegenerate != 0,
	}
	if hasIndex {
		idx := partition.BuildIndex(arrays, segs)
		if !slices.Equal(toUint32(idx.TouchCount), touch) ||
			!slices.Equal(toUint32(idx.MiddleStart), middle) ||
			!slices.Equal(toUint32(idx.CoreMiddleOffset), core) {
			return fmt.Errorf("%w: reduction index does not match the segments", ErrMalformedParams)
		}
		out.Index = &idx
	}
	*p = out
	return nil
}

func toUint32(xs []int) []uint32 {
	return lo.Map(xs, func(x int, _ int) uint32 { return uint32(x) })
}
