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

package tile

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
)

// Reference accelerator profile. These are the values the planner was tuned
// against; HostPlatform keeps the caps and the memory budget and only
// replaces what it can measure.
const (
	DefaultBlockBytes     = 32
	DefaultHalfBlockBytes = 64
	DefaultRepeatBytes    = 256
	DefaultWorkers        = 48
	DefaultMemoryBudget   = 192 * 1024
	DefaultMaxArrays      = 256
	DefaultMaxWorkers     = 50
)

// Platform describes the execution target a plan is built for.
//
// A Platform is a plain value: the planner never reads global state, so two
// plans built from equal Platforms and equal inputs are identical.
type Platform struct {
	// Name is a human-readable label ("default", "avx2", "neon", ...).
	Name string

	// BlockBytes is the alignment unit for data movement. Workloads are
	// split across workers in whole blocks.
	BlockBytes int64

	// HalfBlockBytes is the alignment used for tiles of reduced-precision
	// types that are up-cast to float32 on the device.
	HalfBlockBytes int64

	// RepeatBytes is the width of one vector repeat; some operators align
	// their tiles to it.
	RepeatBytes int64

	// Workers is the number of parallel execution units available.
	Workers int

	// MemoryBudget is the per-worker fast memory, in bytes.
	MemoryBudget int64

	// MaxArrays and MaxWorkers are validation caps on a single plan.
	MaxArrays  int
	MaxWorkers int
}

// DefaultPlatform returns the reference accelerator profile.
func DefaultPlatform() Platform {
	return Platform{
		Name:           "default",
		BlockBytes:     DefaultBlockBytes,
		HalfBlockBytes: DefaultHalfBlockBytes,
		RepeatBytes:    DefaultRepeatBytes,
		Workers:        DefaultWorkers,
		MemoryBudget:   DefaultMemoryBudget,
		MaxArrays:      DefaultMaxArrays,
		MaxWorkers:     DefaultMaxWorkers,
	}
}

// HostPlatform derives a profile from the running CPU: the block size
// follows the detected vector width (never below DefaultBlockBytes) and the
// worker count follows GOMAXPROCS, capped at DefaultMaxWorkers.
//
// Setting TILEPLAN_NO_SIMD to a true value forces the scalar profile.
func HostPlatform() Platform {
	p := DefaultPlatform()
	name, width := detectVectorWidth()
	if NoSimdEnv() {
		name, width = "scalar", 16
	}
	p.Name = name
	p.BlockBytes = max(int64(width), DefaultBlockBytes)
	p.HalfBlockBytes = 2 * p.BlockBytes
	p.RepeatBytes = max(8*p.BlockBytes, DefaultRepeatBytes)
	p.Workers = min(runtime.GOMAXPROCS(0), p.MaxWorkers)
	return p
}

// NoSimdEnv checks if the TILEPLAN_NO_SIMD environment variable is set.
func NoSimdEnv() bool {
	val := os.Getenv("TILEPLAN_NO_SIMD")
	if val == "" {
		return false
	}
	// Any non-empty value is considered true, but also parse as bool
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// ElementsPerBlock returns how many elements of d fill one alignment block.
func (p Platform) ElementsPerBlock(d DType) int64 {
	size := d.Size()
	if size == 0 {
		return 0
	}
	return p.BlockBytes / size
}

// Validate checks the platform's own invariants.
func (p Platform) Validate() error {
	switch {
	case p.BlockBytes <= 0:
		return fmt.Errorf("tile: platform %q: block bytes must be positive, got %d", p.Name, p.BlockBytes)
	case p.HalfBlockBytes <= 0 || p.HalfBlockBytes%p.BlockBytes != 0:
		return fmt.Errorf("tile: platform %q: half block bytes %d must be a positive multiple of %d",
			p.Name, p.HalfBlockBytes, p.BlockBytes)
	case p.RepeatBytes <= 0 || p.RepeatBytes%p.HalfBlockBytes != 0:
		return fmt.Errorf("tile: platform %q: repeat bytes %d must be a positive multiple of %d",
			p.Name, p.RepeatBytes, p.HalfBlockBytes)
	case p.Workers <= 0:
		return fmt.Errorf("tile: platform %q: workers must be positive, got %d", p.Name, p.Workers)
	case p.MemoryBudget <= 0:
		return fmt.Errorf("tile: platform %q: memory budget must be positive, got %d", p.Name, p.MemoryBudget)
	case p.MaxArrays <= 0 || p.MaxWorkers <= 0:
		return fmt.Errorf("tile: platform %q: caps must be positive (arrays=%d, workers=%d)",
			p.Name, p.MaxArrays, p.MaxWorkers)
	}
	return nil
}

// String returns a compact one-line description.
func (p Platform) String() string {
	return fmt.Sprintf("%s(block=%dB half=%dB repeat=%dB workers=%d budget=%dB)",
		p.Name, p.BlockBytes, p.HalfBlockBytes, p.RepeatBytes, p.Workers, p.MemoryBudget)
}
