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
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/ajroetker/go-tileplan/tile"
	"github.com/ajroetker/go-tileplan/tile/budget"
	"github.com/ajroetker/go-tileplan/tile/partition"
)

// Source produces plans. Both *Planner and *Cache implement it.
type Source interface {
	Plan(req Request) (*Plan, error)
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithBoundary selects how workers start after an array boundary.
func WithBoundary(b partition.BoundaryPolicy) Option {
	return func(p *Planner) {
		p.boundary = b
	}
}

// WithVerify re-checks every partition before it is returned.
func WithVerify(on bool) Option {
	return func(p *Planner) {
		p.verify = on
	}
}

// Planner turns requests into plans for one platform. It holds no mutable
// state and is safe for concurrent use.
type Planner struct {
	platform tile.Platform
	logger   *slog.Logger
	boundary partition.BoundaryPolicy
	verify   bool
}

// New creates a Planner for platform.
func New(platform tile.Platform, opts ...Option) *Planner {
	p := &Planner{
		platform: platform,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Platform returns the platform the planner sizes tiles for.
func (p *Planner) Platform() tile.Platform { return p.platform }

// Plan partitions req across workers and sizes its tile.
//
// Errors wrap ErrInvalidInput when req or the platform is malformed and
// ErrInfeasibleBudget when the memory left after the parameter block cannot
// hold one aligned tile.
func (p *Planner) Plan(req Request) (*Plan, error) {
	if err := validate(p.platform, req); err != nil {
		return nil, err
	}
	epb := p.platform.ElementsPerBlock(req.DType)
	workers := min(p.platform.Workers, p.platform.MaxWorkers)
	segs := partition.PartitionArraysWith(req.Lengths, int(epb), workers, partition.Options{Boundary: p.boundary})
	if p.verify {
		if err := partition.Verify(req.Lengths, segs); err != nil {
			return nil, fmt.Errorf("plan: request %q: %w", req.Name, err)
		}
	}

	out := &Plan{
		Name:             req.Name,
		Kind:             req.Kind,
		DType:            req.DType,
		Lengths:          slices.Clone(req.Lengths),
		Workers:          len(segs),
		ElementsPerBlock: int(epb),
		Segments:         segs,
		WorkspaceBytes:   SystemWorkspaceBytes,
	}
	out.Degenerate = out.Elements() == 0
	if req.Kind.Reduces() {
		idx := partition.BuildIndex(len(req.Lengths), segs)
		out.Index = &idx
		out.WorkspaceBytes += int64(idx.Slots()) * partialResultBytes
	}
	out.ParamBytes = paramSize(len(out.Lengths), out.Workers, out.Index != nil)

	available := p.platform.MemoryBudget - out.ParamBytes
	pol := budget.PolicyFor(req.Kind)
	elems, ok := pol.TileElems(available, req.DType, p.platform)
	if !ok {
		p.logger.Warn("tile does not fit",
			"name", req.Name, "kind", req.Kind, "dtype", req.DType,
			"budget", p.platform.MemoryBudget, "params", out.ParamBytes)
		return nil, fmt.Errorf("%w: request %q: %v/%v needs more than %d bytes (budget %d, params %d)",
			ErrInfeasibleBudget, req.Name, req.Kind, req.DType, available, p.platform.MemoryBudget, out.ParamBytes)
	}
	out.TileElems = elems
	out.TileBytes = elems * req.DType.Size()

	p.logger.Debug("planned",
		"name", out.Name, "kind", out.Kind, "dtype", out.DType,
		"arrays", len(out.Lengths), "workers", out.Workers,
		"tile_elems", out.TileElems, "params", out.ParamBytes, "workspace", out.WorkspaceBytes)
	return out, nil
}
