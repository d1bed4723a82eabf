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
	"fmt"
	"math"

	"github.com/ajroetker/go-tileplan/tile"
)

// Pooling dimension indices.
const (
	Depth = iota
	Rows
	Cols
)

// Limits of the channels-last pooling kernel.
const (
	// MaxPoolInputElems is the largest input tile, in elements, a single
	// gather can address.
	MaxPoolInputElems = math.MaxUint16

	poolReservedBytes  = 512
	poolShrinkBytes    = 4096
	notGatherBytes     = 64
	minDivisorBytes    = 1024
	maxDivisorBytes    = 64 * 1024
	poolDoubleBuffer   = 2
	maxStrideToKernel  = 2
	poolLanesPerKernel = 4
)

// SplitMode records which output dimension a pooling tile is cut along.
// Every dimension outside the split is loaded whole.
type SplitMode int

const (
	SplitNone SplitMode = iota
	SplitCols
	SplitRows
	SplitDepths
	SplitBatches
)

func (m SplitMode) String() string {
	switch m {
	case SplitNone:
		return "none"
	case SplitCols:
		return "cols"
	case SplitRows:
		return "rows"
	case SplitDepths:
		return "depths"
	case SplitBatches:
		return "batches"
	default:
		return fmt.Sprintf("SplitMode(%d)", int(m))
	}
}

// PoolShape describes a channels-last 3-D pooling problem. Spatial arrays
// are indexed by Depth, Rows and Cols.
type PoolShape struct {
	DType    tile.DType
	Batches  int64
	Channels int64

	Input    [3]int64
	Output   [3]int64
	Kernel   [3]int64
	Stride   [3]int64
	Dilation [3]int64

	PadBefore [3]int64
	PadAfter  [3]int64

	// Avg selects average pooling, which may need a divisor buffer.
	Avg             bool
	CountIncludePad bool
	DivisorOverride int64
}

// PoolTiling is the chosen per-iteration tile and its distribution over
// workers.
type PoolTiling struct {
	Mode SplitMode

	// Output tile extent per iteration.
	BatchFactor int64
	OutFactor   [3]int64

	// Iterations along batch, depth, rows and cols.
	BatchLoops int64
	Loops      [3]int64

	// Input and output tile footprints, in elements.
	InTileElems  int64
	OutTileElems int64

	// AvailableElems is the budget the search ended with.
	AvailableElems int64
	DivisorBytes   int64

	// BlockFactor iterations go to every used worker; the first BlockTail
	// workers take one more.
	BlockFactor int64
	BlockTail   int64
	UsedWorkers int
}

// TotalLoops returns the number of tile iterations.
func (t PoolTiling) TotalLoops() int64 {
	return t.BatchLoops * t.Loops[Depth] * t.Loops[Rows] * t.Loops[Cols]
}

type poolSolver struct {
	s          PoolShape
	p          tile.Platform
	eff        [3]int64
	padded     bool
	oneBlock   int64
	paraNum    int64
	available  int64
	divisor    int64
	calcDivBuf bool
}

// PoolTile chooses a tile for the pooling problem s on platform p. It
// reports ok=false when the kernel cannot serve s: too little work to
// occupy every worker, strides much larger than the kernel, or a budget
// that cannot hold even the smallest tile.
func PoolTile(s PoolShape, p tile.Platform) (PoolTiling, bool) {
	size := s.DType.Size()
	if size == 0 || s.Batches <= 0 || s.Channels <= 0 || p.Workers <= 0 {
		return PoolTiling{}, false
	}
	if s.Batches*s.Output[Depth]*s.Output[Rows]*s.Output[Cols]*s.Channels < int64(p.Workers) {
		return PoolTiling{}, false
	}

	ps := &poolSolver{s: s, p: p}
	ps.init()
	for dim := range 3 {
		if s.Output[dim] > 1 && s.Stride[dim] >= maxStrideToKernel*ps.eff[dim] {
			return PoolTiling{}, false
		}
	}
	if !ps.minimalFits() {
		return PoolTiling{}, false
	}

	t, ok := ps.shrinkUntilBusy()
	if !ok {
		return PoolTiling{}, false
	}
	ps.distribute(&t)
	t.DivisorBytes = ps.divisor
	return t, true
}

func (ps *poolSolver) init() {
	s := ps.s
	for dim := range 3 {
		ps.eff[dim] = (s.Kernel[dim]-1)*max(s.Dilation[dim], 1) + 1
		if s.PadBefore[dim] != 0 || s.PadAfter[dim] != 0 {
			ps.padded = true
		}
	}
	if !ps.padded {
		// Windows that run past the input read implicit padding.
		for dim := range 3 {
			if (s.Output[dim]-1)*s.Stride[dim]+ps.eff[dim] > s.Input[dim] {
				ps.padded = true
			}
		}
	}
	size := s.DType.Size()
	ps.oneBlock = ps.p.BlockBytes / size
	ps.paraNum = ps.p.RepeatBytes / poolLanesPerKernel / size
	ps.divisorBytes()
	ps.available = (ps.p.MemoryBudget - ps.divisor - poolReservedBytes) / size
}

func (ps *poolSolver) divisorBytes() {
	s := ps.s
	allInPad := true
	for dim := range 3 {
		if (s.Output[dim]-1)*s.Stride[dim]+ps.eff[dim] > s.Input[dim]+s.PadBefore[dim]+s.PadAfter[dim] {
			allInPad = false
		}
	}
	if !s.Avg || !ps.padded || (allInPad && s.CountIncludePad) {
		return
	}
	out := s.Output[Depth] * s.Output[Rows] * s.Output[Cols]
	b := tile.CeilAlign(out*4, ps.p.BlockBytes)
	switch {
	case b <= minDivisorBytes:
		ps.divisor = minDivisorBytes
	case b <= maxDivisorBytes:
		ps.divisor = b
	default:
		ps.calcDivBuf = true
	}
}

func (ps *poolSolver) paddedExtent(dim int) int64 {
	return ps.s.Input[dim] + ps.s.PadBefore[dim] + ps.s.PadAfter[dim]
}

func (ps *poolSolver) inExtent(dim int, out int64) int64 {
	return (out-1)*ps.s.Stride[dim] + ps.eff[dim]
}

// outExtent is the number of outputs an input extent of in produces.
func (ps *poolSolver) outExtent(dim int, in int64) int64 {
	return (in-ps.eff[dim])/max(ps.s.Stride[dim], 1) + 1
}

// bufferElems returns the double-buffered footprint of one iteration
// reading an in[] input window and writing an out[] output window.
func (ps *poolSolver) bufferElems(in, out [3]int64) int64 {
	s := ps.s
	var inBuf, outBuf int64
	if s.Channels*s.DType.Size() >= notGatherBytes {
		c := tile.CeilAlign(s.Channels, ps.oneBlock)
		inBuf = in[Depth] * in[Rows] * in[Cols] * c
		outBuf = out[Depth] * out[Rows] * out[Cols] * c
	} else {
		inBuf = in[Depth] * in[Rows] * tile.CeilAlign(in[Cols]*s.Channels, ps.oneBlock)
		outBuf = tile.CeilAlign(out[Depth]*out[Rows]*out[Cols]*s.Channels, ps.oneBlock)
	}
	if s.Avg && s.DivisorOverride == 0 && s.DType.Size() == 2 {
		outBuf *= 2
	}
	total := (inBuf + outBuf) * poolDoubleBuffer
	if ps.padded {
		total += inBuf
	}
	if ps.calcDivBuf {
		total += tile.CeilAlign(out[Depth]*out[Rows]*out[Cols]*4, ps.p.BlockBytes) / s.DType.Size()
	}
	return total
}

func (ps *poolSolver) fits(in, out [3]int64) bool {
	return ps.bufferElems(in, out) <= ps.available
}

// minimalFits checks the smallest tile the kernel will ever use: enough
// output points to fill one vector of lanes.
func (ps *poolSolver) minimalFits() bool {
	s := ps.s
	in := ps.eff
	out := [3]int64{1, 1, 1}
	kernels := max(ps.paraNum/s.Channels, 1)
	switch {
	case s.Channels > ps.paraNum:
	case s.Output[Cols] > kernels:
		in[Cols] = ps.inExtent(Cols, kernels)
		out[Cols] = kernels
	case s.Output[Cols]*s.Output[Rows] > kernels:
		rows := max(kernels/s.Output[Cols], 1)
		in[Cols] = ps.inExtent(Cols, s.Output[Cols])
		in[Rows] = ps.inExtent(Rows, rows)
		out[Rows], out[Cols] = rows, s.Output[Cols]
	default:
		deps := max(kernels/(s.Output[Rows]*s.Output[Cols]), 1)
		in[Cols] = ps.inExtent(Cols, s.Output[Cols])
		in[Rows] = ps.inExtent(Rows, s.Output[Rows])
		in[Depth] = ps.inExtent(Depth, deps)
		out = [3]int64{deps, s.Output[Rows], s.Output[Cols]}
	}
	return ps.fits(in, out)
}

// shrinkUntilBusy repeats the single-pass search with a smaller budget
// until there are at least as many iterations as workers, so every worker
// gets work.
func (ps *poolSolver) shrinkUntilBusy() (PoolTiling, bool) {
	step := poolShrinkBytes / ps.s.DType.Size()
	for {
		t, ok := ps.single()
		if !ok {
			return t, false
		}
		if t.TotalLoops() >= int64(ps.p.Workers) || ps.available-step <= step {
			return t, true
		}
		ps.available -= step
	}
}

func (ps *poolSolver) single() (PoolTiling, bool) {
	s := ps.s
	var maxIn [3]int64
	for dim := range 3 {
		maxIn[dim] = max(ps.inExtent(dim, s.Output[dim]), ps.paddedExtent(dim))
	}
	minIn := ps.eff

	oneBatch := ps.bufferElems(maxIn, s.Output)
	oneDepth := ps.bufferElems([3]int64{minIn[Depth], maxIn[Rows], maxIn[Cols]},
		[3]int64{1, s.Output[Rows], s.Output[Cols]})
	oneRow := ps.bufferElems([3]int64{minIn[Depth], minIn[Rows], maxIn[Cols]},
		[3]int64{1, 1, s.Output[Cols]})
	if oneBatch <= 0 || oneRow <= 0 || s.Output[Rows]*s.Output[Cols] <= 0 {
		return PoolTiling{}, false
	}

	colElems := tile.CeilAlign(maxIn[Cols]*s.Channels, ps.oneBlock)
	oneBatchInput := maxIn[Depth] * maxIn[Rows] * colElems
	oneDepthInput := maxIn[Rows] * colElems

	var t PoolTiling
	switch {
	case oneBatch <= ps.available && oneBatchInput <= MaxPoolInputElems:
		t = ps.splitBatches(oneBatch, oneBatchInput)
	case oneDepth <= ps.available && oneDepthInput <= MaxPoolInputElems:
		t = ps.splitDepths(maxIn)
	case oneRow <= ps.available && maxIn[Cols] <= MaxPoolInputElems:
		t = ps.splitRows(maxIn, minIn)
	default:
		t = ps.splitCols(minIn)
	}
	if t.BatchFactor <= 0 || t.OutFactor[Depth] <= 0 || t.OutFactor[Rows] <= 0 || t.OutFactor[Cols] <= 0 {
		return t, false
	}
	t.AvailableElems = ps.available
	ps.footprint(&t)
	return t, true
}

func (ps *poolSolver) splitBatches(oneBatch, oneBatchInput int64) PoolTiling {
	s := ps.s
	n := min(s.Batches, ps.available/oneBatch)
	if n*oneBatchInput > MaxPoolInputElems {
		n = MaxPoolInputElems / oneBatchInput
	}
	return PoolTiling{
		Mode:        SplitBatches,
		BatchFactor: n,
		OutFactor:   s.Output,
		BatchLoops:  tile.CeilDiv(s.Batches, max(n, 1)),
		Loops:       [3]int64{1, 1, 1},
	}
}

func (ps *poolSolver) splitDepths(maxIn [3]int64) PoolTiling {
	s := ps.s
	deps := FindMaxTileSize(1, s.Output[Depth], func(d int64) bool {
		return ps.fits([3]int64{ps.inExtent(Depth, d), maxIn[Rows], maxIn[Cols]},
			[3]int64{d, s.Output[Rows], s.Output[Cols]})
	})
	plane := maxIn[Rows] * tile.CeilAlign(maxIn[Cols]*s.Channels, ps.oneBlock)
	if ps.inExtent(Depth, deps)*plane > MaxPoolInputElems {
		inDeps := MaxPoolInputElems / plane
		deps = min(ps.outExtent(Depth, inDeps), s.Output[Depth])
	}
	return PoolTiling{
		Mode:        SplitDepths,
		BatchFactor: 1,
		OutFactor:   [3]int64{deps, s.Output[Rows], s.Output[Cols]},
		BatchLoops:  s.Batches,
		Loops:       [3]int64{tile.CeilDiv(s.Output[Depth], max(deps, 1)), 1, 1},
	}
}

func (ps *poolSolver) splitRows(maxIn, minIn [3]int64) PoolTiling {
	s := ps.s
	rows := FindMaxTileSize(1, s.Output[Rows], func(r int64) bool {
		return ps.fits([3]int64{minIn[Depth], ps.inExtent(Rows, r), maxIn[Cols]},
			[3]int64{1, r, s.Output[Cols]})
	})
	line := tile.CeilAlign(maxIn[Cols]*s.Channels, ps.oneBlock)
	if ps.inExtent(Rows, rows)*line > MaxPoolInputElems {
		inRows := MaxPoolInputElems / line
		rows = min(ps.outExtent(Rows, inRows), s.Output[Rows])
	}
	return PoolTiling{
		Mode:        SplitRows,
		BatchFactor: 1,
		OutFactor:   [3]int64{1, rows, s.Output[Cols]},
		BatchLoops:  s.Batches,
		Loops:       [3]int64{s.Output[Depth], tile.CeilDiv(s.Output[Rows], max(rows, 1)), 1},
	}
}

func (ps *poolSolver) splitCols(minIn [3]int64) PoolTiling {
	s := ps.s
	cols := FindMaxTileSize(1, s.Output[Cols], func(c int64) bool {
		return ps.fits([3]int64{minIn[Depth], minIn[Rows], ps.inExtent(Cols, c)},
			[3]int64{1, 1, c})
	})
	inCols := ps.inExtent(Cols, cols)
	if minIn[Rows]*tile.CeilAlign(inCols*s.Channels, ps.oneBlock) > MaxPoolInputElems {
		limit := tile.FloorAlign(MaxPoolInputElems/(minIn[Rows]*s.Channels), ps.oneBlock)
		cols = min(ps.outExtent(Cols, limit), s.Output[Cols])
	}
	return PoolTiling{
		Mode:        SplitCols,
		BatchFactor: 1,
		OutFactor:   [3]int64{1, 1, cols},
		BatchLoops:  s.Batches,
		Loops:       [3]int64{s.Output[Depth], s.Output[Rows], tile.CeilDiv(s.Output[Cols], max(cols, 1))},
	}
}

// footprint fills the tile's input and output element counts. Dimensions
// outside the split are loaded whole, padding included.
func (ps *poolSolver) footprint(t *PoolTiling) {
	s := ps.s
	var in [3]int64
	for dim := range 3 {
		in[dim] = ps.inExtent(dim, t.OutFactor[dim])
	}
	if t.Mode == SplitBatches {
		in[Depth] = max(in[Depth], ps.paddedExtent(Depth))
		in[Rows] = max(in[Rows], ps.paddedExtent(Rows))
	}
	if t.Mode == SplitDepths {
		in[Rows] = max(in[Rows], ps.paddedExtent(Rows))
	}
	if t.Mode != SplitCols {
		in[Cols] = max(in[Cols], ps.paddedExtent(Cols))
	}
	out := t.OutFactor[Depth] * t.OutFactor[Rows] * t.OutFactor[Cols]
	if s.Channels*s.DType.Size() >= notGatherBytes {
		c := tile.CeilAlign(s.Channels, ps.oneBlock)
		t.InTileElems = t.BatchFactor * in[Depth] * in[Rows] * in[Cols] * c
		t.OutTileElems = t.BatchFactor * out * c
		return
	}
	t.InTileElems = t.BatchFactor * in[Depth] * in[Rows] * tile.CeilAlign(in[Cols]*s.Channels, ps.oneBlock)
	t.OutTileElems = t.BatchFactor * tile.CeilAlign(out*s.Channels, ps.oneBlock)
}

func (ps *poolSolver) distribute(t *PoolTiling) {
	total := t.TotalLoops()
	workers := int64(ps.p.Workers)
	t.BlockFactor = total / workers
	t.BlockTail = total - t.BlockFactor*workers
	if t.BlockFactor == 0 {
		t.UsedWorkers = int(t.BlockTail)
	} else {
		t.UsedWorkers = ps.p.Workers
	}
}
