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

package budget

import (
	"github.com/ajroetker/go-tileplan/tile"
)

// CastFactor is the budget divider applied when a dtype is up-cast to
// float32 inside the kernel.
const CastFactor = 10

// DTypeSet is a small set of element types.
type DTypeSet uint32

// DTypes builds a set from its members.
func DTypes(ds ...tile.DType) DTypeSet {
	var s DTypeSet
	for _, d := range ds {
		s |= 1 << uint(d)
	}
	return s
}

// Has reports whether d is in s.
func (s DTypeSet) Has(d tile.DType) bool {
	return d >= 0 && d < 32 && s&(1<<uint(d)) != 0
}

var (
	bf16Only = DTypes(tile.BFloat16)
	halfs    = DTypes(tile.BFloat16, tile.Float16)
)

// Policy describes how an operator family spends the per-worker memory
// budget. A tile of x bytes fits a budget U when
//
//	(x + tail) * (buffers * cast + proc) + reserved + scratch <= U
//
// where cast is CastFactor for dtypes in CastOn and 1 otherwise, and proc
// is the dtype's ProcBuffers entry. The tile is then floor-aligned to the
// block size (or the half block for dtypes in HalfAlign, or the repeat
// width when RepeatAlign is set).
//
// Policies with a RepeatOverhead instead split the budget over the buffers
// first, keep the data share R/(R + overhead*size) of each buffer, R being
// the platform repeat width, and only then divide by cast.
//
// "Wide" below means a 4-byte element type; every other width uses the
// narrow reservation.
type Policy struct {
	// Buffers is the number of live tile-sized buffers.
	Buffers int64
	// HalfBuffers overrides Buffers for 2-byte dtypes when non-zero.
	HalfBuffers int64

	// ReservedBytes is a fixed reservation taken before the split.
	ReservedBytes int64
	// ScratchElems and NarrowScratchElems reserve dtype-sized scratch before
	// the split, for wide and narrow dtypes respectively. ScratchOn limits
	// the reservation to some dtypes; empty means all of them.
	ScratchElems       int64
	NarrowScratchElems int64
	ScratchOn          DTypeSet
	// Attenuate halves the scratch until it is smaller than the budget.
	Attenuate bool

	// TailBlocks is a per-buffer reservation in platform blocks, taken
	// after the split.
	TailBlocks int64
	// NarrowTailElems is a per-buffer scratch in elements, taken after the
	// split, for narrow dtypes only.
	NarrowTailElems int64

	// ProcBuffers adds working buffers per dtype that stay in the source
	// type, so the cast factor does not scale them.
	ProcBuffers map[tile.DType]int64

	// RepeatOverhead is the per-repeat side buffer, in elements, that
	// shares each tile buffer with the data.
	RepeatOverhead int64

	CastOn      DTypeSet
	HalfAlign   DTypeSet
	RepeatAlign bool

	// Reduce marks operators that combine per-worker partial results.
	Reduce bool
}

// Sizing for the families with transcendental helpers. The helpers work
// on fixed basic blocks of elements and need several copies of them.
const (
	trigBlock = 1024
	sinBlock  = 2048
	powBlock  = 32
)

// Intermediate buffers of the list pow kernel, by dtype.
var powListProc = map[tile.DType]int64{
	tile.Float32:  3,
	tile.BFloat16: 3,
	tile.Int32:    5,
	tile.Float16:  12,
	tile.Float64:  12,
	tile.Int8:     12,
	tile.Int16:    12,
	tile.Int64:    12,
	tile.Uint8:    12,
	tile.Bool:     12,
}

var policies = [numKinds]Policy{
	KindCopy:          {Buffers: 1, CastOn: bf16Only},
	KindUnary:         {Buffers: 2, CastOn: bf16Only, HalfAlign: bf16Only},
	KindLog:           {Buffers: 2, ReservedBytes: 1024, CastOn: bf16Only, HalfAlign: bf16Only},
	KindLog2:          {Buffers: 2, NarrowTailElems: 4 * 1024, CastOn: bf16Only, HalfAlign: bf16Only},
	KindNeg:           {Buffers: 2, TailBlocks: 1, CastOn: bf16Only, HalfAlign: bf16Only},
	KindExp:           {Buffers: 2, ReservedBytes: 1024, CastOn: bf16Only, HalfAlign: bf16Only},
	KindAbs:           {Buffers: 4, ReservedBytes: 2048, CastOn: bf16Only, HalfAlign: bf16Only},
	KindBinaryList:    {Buffers: 6, CastOn: bf16Only, HalfAlign: bf16Only},
	KindAddList:       {Buffers: 6, CastOn: bf16Only, HalfAlign: bf16Only},
	KindMaximumList:   {Buffers: 6, CastOn: bf16Only, HalfAlign: bf16Only},
	KindPointwise:     {Buffers: 8, CastOn: halfs, HalfAlign: halfs},
	KindPointwiseList: {Buffers: 8, CastOn: bf16Only, HalfAlign: bf16Only},
	KindBinaryScalar:  {Buffers: 4, CastOn: bf16Only, HalfAlign: bf16Only},
	KindMulScalar:     {Buffers: 2, CastOn: bf16Only, HalfAlign: bf16Only},
	KindSubScalar:     {Buffers: 4, ReservedBytes: 32, CastOn: halfs, HalfAlign: halfs},
	KindDivScalar:     {Buffers: 4, ReservedBytes: 32, CastOn: halfs, HalfAlign: halfs},
	KindSigmoid:       {Buffers: 4, ReservedBytes: 1024, CastOn: bf16Only, HalfAlign: bf16Only},
	KindErf:           {Buffers: 4 * 4, HalfBuffers: 9 * 4, CastOn: bf16Only, HalfAlign: bf16Only},
	KindErfc:          {Buffers: 8 * 4, HalfBuffers: 17 * 4, CastOn: bf16Only, HalfAlign: bf16Only},
	KindCos: {
		Buffers: 4, ScratchElems: 32 * 4, NarrowScratchElems: 32 * 6,
		CastOn: bf16Only, HalfAlign: bf16Only,
	},
	KindSin: {
		Buffers: 4, ScratchElems: 4 * sinBlock * 2, NarrowScratchElems: 4 * sinBlock * 6,
		CastOn: bf16Only, HalfAlign: bf16Only,
	},
	KindCosh: {
		Buffers: 4, ScratchElems: 2 * trigBlock * 8, NarrowScratchElems: 6 * trigBlock * 8,
		CastOn: bf16Only, HalfAlign: bf16Only,
	},
	KindSinh: {
		Buffers: 4, ScratchElems: 1 * trigBlock, NarrowScratchElems: 4 * trigBlock,
		CastOn: bf16Only, HalfAlign: bf16Only,
	},
	KindTan: {
		Buffers: 4, ScratchElems: 4 * trigBlock * 8, NarrowScratchElems: 10 * trigBlock * 8,
		Attenuate: true, CastOn: bf16Only, HalfAlign: bf16Only,
	},
	KindAtan: {
		Buffers: 4, ScratchElems: 4 * trigBlock * 8, NarrowScratchElems: 10 * trigBlock * 8,
		Attenuate: true, CastOn: bf16Only, HalfAlign: bf16Only,
	},
	KindTanh: {Buffers: 6 + 2, HalfBuffers: 5 + 2, ReservedBytes: 1024, CastOn: bf16Only, HalfAlign: bf16Only},
	KindLerpScalar: {Buffers: 6, ReservedBytes: 128, CastOn: halfs, HalfAlign: halfs},
	KindLerpList:   {Buffers: 11, CastOn: halfs, HalfAlign: halfs, RepeatAlign: true},
	KindPowScalar: {
		Buffers: 4, ScratchElems: powBlock * 4, NarrowScratchElems: powBlock * 14,
		CastOn: bf16Only, HalfAlign: bf16Only,
	},
	KindSign: {
		Buffers: 4, ScratchElems: 3 * trigBlock * 8, NarrowScratchElems: 3 * trigBlock * 8,
		ScratchOn: DTypes(tile.Float32, tile.Float16),
		CastOn:    DTypes(tile.BFloat16, tile.Int64, tile.Int8), HalfAlign: bf16Only,
	},
	KindNorm: {Buffers: 2, ReservedBytes: 1024, CastOn: halfs, HalfAlign: halfs, Reduce: true},
	KindPowList: {
		Buffers: 6, ProcBuffers: powListProc,
		CastOn: bf16Only, HalfAlign: bf16Only,
	},
	KindRoundOffNumber: {Buffers: 2, RepeatOverhead: 2, CastOn: halfs, HalfAlign: halfs},
}

// PolicyFor returns the policy of kind k. Invalid kinds get the zero
// Policy, which fits nothing.
func PolicyFor(k Kind) Policy {
	if !k.Valid() {
		return Policy{}
	}
	return policies[k]
}

func (pol Policy) buffers(d tile.DType) int64 {
	if pol.HalfBuffers > 0 && d.Size() == 2 {
		return pol.HalfBuffers
	}
	return pol.Buffers
}

func (pol Policy) cast(d tile.DType) int64 {
	if pol.CastOn.Has(d) {
		return CastFactor
	}
	return 1
}

// divisor is how many budget bytes one tile byte costs when there is no
// repeat overhead.
func (pol Policy) divisor(d tile.DType) int64 {
	return pol.buffers(d)*pol.cast(d) + pol.ProcBuffers[d]
}

// repeatShare returns the numerator and denominator of the data share of
// a buffer under RepeatOverhead.
func (pol Policy) repeatShare(d tile.DType, p tile.Platform) (int64, int64) {
	return p.RepeatBytes, p.RepeatBytes + pol.RepeatOverhead*d.Size()
}

func (pol Policy) scratchBytes(d tile.DType, budget int64) int64 {
	if pol.ScratchOn != 0 && !pol.ScratchOn.Has(d) {
		return 0
	}
	elems := pol.NarrowScratchElems
	if d.Size() == 4 {
		elems = pol.ScratchElems
	}
	s := elems * d.Size()
	if pol.Attenuate {
		for s > 0 && budget <= s {
			s /= 2
		}
	}
	return s
}

func (pol Policy) tailBytes(d tile.DType, p tile.Platform) int64 {
	t := pol.TailBlocks * p.BlockBytes
	if d.Size() != 4 {
		t += pol.NarrowTailElems * d.Size()
	}
	return t
}

// AlignBytes returns the byte granularity of tiles of dtype d.
func (pol Policy) AlignBytes(d tile.DType, p tile.Platform) int64 {
	if pol.RepeatAlign {
		return p.RepeatBytes
	}
	if pol.HalfAlign.Has(d) {
		return p.HalfBlockBytes
	}
	return p.BlockBytes
}

// TileBytes returns the largest aligned tile, in bytes, that fits budget.
// It returns 0 when not even one aligned unit fits.
func (pol Policy) TileBytes(budget int64, d tile.DType, p tile.Platform) int64 {
	b := pol.buffers(d)
	if b <= 0 || !d.Valid() {
		return 0
	}
	total := budget - pol.ReservedBytes - pol.scratchBytes(d, budget)
	if total <= 0 {
		return 0
	}
	var usable int64
	if pol.RepeatOverhead > 0 {
		num, den := pol.repeatShare(d, p)
		usable = total/b*num/den/pol.cast(d) - pol.tailBytes(d, p)
	} else {
		usable = total/pol.divisor(d) - pol.tailBytes(d, p)
	}
	if usable <= 0 {
		return 0
	}
	return tile.FloorAlign(usable, pol.AlignBytes(d, p))
}

// Cost returns the bytes a tile of elems elements of dtype d occupies
// under budget, including every reservation. Scratch attenuation depends
// on budget, which is why it is an argument.
func (pol Policy) Cost(elems int64, d tile.DType, budget int64, p tile.Platform) int64 {
	x := elems*d.Size() + pol.tailBytes(d, p)
	fixed := pol.ReservedBytes + pol.scratchBytes(d, budget)
	if pol.RepeatOverhead > 0 {
		num, den := pol.repeatShare(d, p)
		return tile.CeilDiv(x*pol.cast(d)*den, num)*pol.buffers(d) + fixed
	}
	return x*pol.divisor(d) + fixed
}

// TileElems searches for the largest tile, in elements, whose Cost fits
// budget. The result always equals TileBytes/size when ok; when nothing
// fits it is 1 with ok=false.
func (pol Policy) TileElems(budget int64, d tile.DType, p tile.Platform) (int64, bool) {
	size := d.Size()
	if size == 0 || pol.buffers(d) <= 0 {
		return 1, false
	}
	rate := pol.AlignBytes(d, p) / size
	return MaxFittingRate(1, budget/size, rate, func(elems int64) bool {
		return pol.Cost(elems, d, budget, p) <= budget
	})
}
