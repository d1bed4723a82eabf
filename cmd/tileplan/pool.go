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

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ajroetker/go-tileplan/tile"
	"github.com/ajroetker/go-tileplan/tile/budget"
	"github.com/ajroetker/go-tileplan/tile/plan"
)

var errPoolUnsupported = errors.New("pooling shape is not served by the channels-last small-kernel tiling")

type poolOptions struct {
	dtype    string
	batches  int64
	channels int64

	input, output, kernel, stride, dilation []int64
	pad, padAfter                           []int64

	avg             bool
	countIncludePad bool
	divisorOverride int64
}

func newPoolCmd(root *rootOptions) *cobra.Command {
	o := &poolOptions{}
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Tile a channels-last 3-D pooling problem",
		Long: `Pool chooses the per-iteration tile of a 3-D pooling kernel and how the
iterations are spread over workers. Spatial flags take depth,rows,cols.
The output extent is derived from the input when --output is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := root.basePlatform(plan.PlatformOverrides{})
			if err != nil {
				return err
			}
			s, err := o.shape(cmd)
			if err != nil {
				return err
			}
			t, ok := budget.PoolTile(s, p)
			if !ok {
				root.logger.Warn("pool tiling rejected", "shape", fmt.Sprintf("%+v", s))
				return errPoolUnsupported
			}
			printPoolTiling(cmd, s, t)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.dtype, "dtype", "float32", "element type")
	f.Int64Var(&o.batches, "batches", 1, "batch size")
	f.Int64Var(&o.channels, "channels", 1, "channels")
	f.Int64SliceVar(&o.input, "input", nil, "input extent")
	f.Int64SliceVar(&o.output, "output", nil, "output extent")
	f.Int64SliceVar(&o.kernel, "kernel", []int64{1, 1, 1}, "kernel extent")
	f.Int64SliceVar(&o.stride, "stride", nil, "stride (defaults to the kernel)")
	f.Int64SliceVar(&o.dilation, "dilation", []int64{1, 1, 1}, "dilation")
	f.Int64SliceVar(&o.pad, "pad", []int64{0, 0, 0}, "padding before each dimension")
	f.Int64SliceVar(&o.padAfter, "pad-after", nil, "padding after each dimension (defaults to --pad)")
	f.BoolVar(&o.avg, "avg", false, "average pooling")
	f.BoolVar(&o.countIncludePad, "count-include-pad", false, "average over padded elements too")
	f.Int64Var(&o.divisorOverride, "divisor-override", 0, "fixed average divisor")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (o *poolOptions) shape(cmd *cobra.Command) (budget.PoolShape, error) {
	dtype, err := tile.ParseDType(o.dtype)
	if err != nil {
		return budget.PoolShape{}, err
	}
	if o.stride == nil {
		o.stride = o.kernel
	}
	if o.padAfter == nil {
		o.padAfter = o.pad
	}
	s := budget.PoolShape{
		DType:           dtype,
		Batches:         o.batches,
		Channels:        o.channels,
		Avg:             o.avg,
		CountIncludePad: o.countIncludePad,
		DivisorOverride: o.divisorOverride,
	}
	for _, v := range []struct {
		flag string
		src  []int64
		dst  *[3]int64
	}{
		{"input", o.input, &s.Input},
		{"kernel", o.kernel, &s.Kernel},
		{"stride", o.stride, &s.Stride},
		{"dilation", o.dilation, &s.Dilation},
		{"pad", o.pad, &s.PadBefore},
		{"pad-after", o.padAfter, &s.PadAfter},
	} {
		if len(v.src) != 3 {
			return budget.PoolShape{}, fmt.Errorf("--%s: want depth,rows,cols, got %d values", v.flag, len(v.src))
		}
		copy(v.dst[:], v.src)
	}
	for dim := range 3 {
		if s.Kernel[dim] <= 0 || s.Stride[dim] <= 0 || s.Dilation[dim] <= 0 {
			return budget.PoolShape{}, fmt.Errorf("kernel, stride and dilation must be positive")
		}
	}

	if !cmd.Flags().Changed("output") {
		for dim := range 3 {
			span := s.Dilation[dim]*(s.Kernel[dim]-1) + 1
			s.Output[dim] = (s.Input[dim]+s.PadBefore[dim]+s.PadAfter[dim]-span)/s.Stride[dim] + 1
		}
	} else {
		if len(o.output) != 3 {
			return budget.PoolShape{}, fmt.Errorf("--output: want depth,rows,cols, got %d values", len(o.output))
		}
		copy(s.Output[:], o.output)
	}
	for dim := range 3 {
		if s.Output[dim] <= 0 {
			return budget.PoolShape{}, fmt.Errorf("output extent %v is empty", s.Output)
		}
	}
	return s, nil
}

func printPoolTiling(cmd *cobra.Command, s budget.PoolShape, t budget.PoolTiling) {
	pr := message.NewPrinter(language.English)
	out := cmd.OutOrStdout()
	pr.Fprintf(out, "output: %d x %s x %d channels\n", s.Batches, fmt.Sprint(s.Output), s.Channels)
	pr.Fprintf(out, "split: %s\n", t.Mode.String())
	pr.Fprintf(out, "tile: %d batches x %s\n", t.BatchFactor, fmt.Sprint(t.OutFactor))
	pr.Fprintf(out, "loops: %d x %s = %d\n", t.BatchLoops, fmt.Sprint(t.Loops), t.TotalLoops())
	pr.Fprintf(out, "input tile: %d elements\n", t.InTileElems)
	pr.Fprintf(out, "output tile: %d elements\n", t.OutTileElems)
	pr.Fprintf(out, "available: %d elements\n", t.AvailableElems)
	if t.DivisorBytes > 0 {
		pr.Fprintf(out, "divisor buffer: %d bytes\n", t.DivisorBytes)
	}
	pr.Fprintf(out, "workers: %d (%d loops each, first %d take one more)\n", t.UsedWorkers, t.BlockFactor, t.BlockTail)
}
