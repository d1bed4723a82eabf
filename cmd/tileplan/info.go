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
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ajroetker/go-tileplan/tile"
	"github.com/ajroetker/go-tileplan/tile/budget"
	"github.com/ajroetker/go-tileplan/tile/plan"
)

func newPlatformCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Print the platform profile plans are sized for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := root.basePlatform(plan.PlatformOverrides{})
			if err != nil {
				return err
			}
			pr := message.NewPrinter(language.English)
			out := cmd.OutOrStdout()
			pr.Fprintf(out, "name: %s\n", p.Name)
			pr.Fprintf(out, "block: %d bytes\n", p.BlockBytes)
			pr.Fprintf(out, "half block: %d bytes\n", p.HalfBlockBytes)
			pr.Fprintf(out, "repeat: %d bytes\n", p.RepeatBytes)
			pr.Fprintf(out, "workers: %d (at most %d)\n", p.Workers, p.MaxWorkers)
			pr.Fprintf(out, "memory budget: %d bytes\n", p.MemoryBudget)
			pr.Fprintf(out, "max arrays: %d\n", p.MaxArrays)
			return nil
		},
	}
}

func newKindsCmd(root *rootOptions) *cobra.Command {
	var dtypeName string
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List operator kinds with their aliases and largest tile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dtype, err := tile.ParseDType(dtypeName)
			if err != nil {
				return err
			}
			p, err := root.basePlatform(plan.PlatformOverrides{})
			if err != nil {
				return err
			}
			title := cases.Title(language.English)
			pr := message.NewPrinter(language.English)
			out := cmd.OutOrStdout()
			pr.Fprintf(out, "%-16s %12s  %s\n", "Kind", title.String(dtype.String()), "Aliases")
			for _, k := range budget.Kinds() {
				name := title.String(strings.ReplaceAll(k.String(), "_", " "))
				elems, ok := budget.PolicyFor(k).TileElems(p.MemoryBudget, dtype, p)
				if !ok {
					elems = 0
				}
				if k.Reduces() {
					name += " *"
				}
				pr.Fprintf(out, "%-16s %12d  %s\n", name, elems, strings.Join(k.Aliases(), ", "))
			}
			pr.Fprintf(out, "* combines per-worker partial results\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&dtypeName, "dtype", "float32", "element type the tile sizes are computed for")
	return cmd
}
