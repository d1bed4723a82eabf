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
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ajroetker/go-tileplan/tile"
)

// Workload is the YAML document format read by the tileplan command:
//
//	platform:
//	  workers: 4
//	requests:
//	  - name: adam_step
//	    kind: pointwise
//	    dtype: float16
//	    lengths: [1000, 24, 0, 500]
//
// A stream may hold several documents separated by "---".
type Workload struct {
	Platform PlatformOverrides `yaml:"platform"`
	Requests []Request         `yaml:"requests"`
}

// PlatformOverrides replaces the non-zero fields of a platform.
type PlatformOverrides struct {
	Workers      int   `yaml:"workers"`
	MemoryBudget int64 `yaml:"budget"`
	BlockBytes   int64 `yaml:"block_bytes"`
}

// Apply returns p with the non-zero overrides set. A new block size also
// resets the half block to twice its value and widens the repeat to at
// least eight blocks, rounded up to a whole half block.
func (o PlatformOverrides) Apply(p tile.Platform) tile.Platform {
	if o.Workers != 0 {
		p.Workers = o.Workers
	}
	if o.MemoryBudget != 0 {
		p.MemoryBudget = o.MemoryBudget
	}
	if o.BlockBytes != 0 {
		p.BlockBytes = o.BlockBytes
		p.HalfBlockBytes = 2 * o.BlockBytes
		p.RepeatBytes = tile.CeilAlign(max(p.RepeatBytes, 8*o.BlockBytes), p.HalfBlockBytes)
	}
	return p
}

// Merge returns o with the non-zero fields of other laid over it.
func (o PlatformOverrides) Merge(other PlatformOverrides) PlatformOverrides {
	if other.Workers != 0 {
		o.Workers = other.Workers
	}
	if other.MemoryBudget != 0 {
		o.MemoryBudget = other.MemoryBudget
	}
	if other.BlockBytes != 0 {
		o.BlockBytes = other.BlockBytes
	}
	return o
}

// DecodeWorkload reads every YAML document in r. Requests are concatenated
// in order and later platform overrides win. Unknown fields are rejected.
func DecodeWorkload(r io.Reader) (Workload, error) {
	var out Workload
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	for doc := 0; ; doc++ {
		var w Workload
		err := dec.Decode(&w)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Workload{}, fmt.Errorf("%w: workload document %d: %w", ErrInvalidInput, doc, err)
		}
		out.Platform = out.Platform.Merge(w.Platform)
		out.Requests = append(out.Requests, w.Requests...)
	}
	return out, nil
}
