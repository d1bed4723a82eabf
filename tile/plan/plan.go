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

// Package plan is the tiling pipeline around the partition and budget
// packages: it validates a request, splits the workload across workers,
// builds the reduction index when the operator needs one, sizes the tile
// against the memory left after the parameter block, and encodes the
// result as the flat parameter block a kernel launch consumes.
//
// Plans are immutable once returned and safe to share between goroutines.
// Use Clone before modifying one.
package plan

import (
	"slices"

	"github.com/samber/lo"

	"github.com/ajroetker/go-tileplan/tile"
	"github.com/ajroetker/go-tileplan/tile/budget"
	"github.com/ajroetker/go-tileplan/tile/partition"
)

// SystemWorkspaceBytes is the fixed scratch every launch reserves.
const SystemWorkspaceBytes = 32

// partialResultBytes is the width of one float32 partial result.
const partialResultBytes = 4

// Request describes one kernel launch to plan.
type Request struct {
	Name    string      `yaml:"name"`
	Kind    budget.Kind `yaml:"kind"`
	DType   tile.DType  `yaml:"dtype"`
	Lengths []int64     `yaml:"lengths"`
}

// Plan is the planning result for one Request.
type Plan struct {
	Name    string
	Kind    budget.Kind
	DType   tile.DType
	Lengths []int64

	Workers          int
	ElementsPerBlock int
	Segments         []partition.Segment

	// Index is set for reducing kinds only.
	Index *partition.Index

	TileElems int64
	TileBytes int64

	ParamBytes     int64
	WorkspaceBytes int64

	// Degenerate marks an all-empty workload.
	Degenerate bool
}

// Elements returns the total number of elements in the workload.
func (p *Plan) Elements() int64 {
	return lo.Sum(p.Lengths)
}

// Clone returns a deep copy of p.
func (p *Plan) Clone() *Plan {
	c := *p
	c.Lengths = slices.Clone(p.Lengths)
	c.Segments = slices.Clone(p.Segments)
	if p.Index != nil {
		idx := p.Index.Clone()
		c.Index = &idx
	}
	return &c
}
