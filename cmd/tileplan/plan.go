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
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ajroetker/go-tileplan/tile"
	"github.com/ajroetker/go-tileplan/tile/partition"
	"github.com/ajroetker/go-tileplan/tile/plan"
)

type planOptions struct {
	boundary string
	outDir   string
	jobs     int
	verify   bool
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	o := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan [workload.yaml ...]",
		Short: "Plan every request of one or more workload files",
		Long: `Plan reads YAML workload files (standard input when none is given or
the name is "-"), plans every request and prints a report per plan.
With --out, each plan's parameter block is written to <dir>/<name>.bin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, root, o, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.boundary, "boundary", "advance", "worker start after an array boundary: advance or hold")
	f.StringVarP(&o.outDir, "out", "o", "", "directory for the binary parameter blocks")
	f.IntVarP(&o.jobs, "jobs", "j", 0, "requests planned concurrently (0 means unlimited)")
	f.BoolVar(&o.verify, "verify", true, "re-check every partition")
	return cmd
}

func runPlan(cmd *cobra.Command, root *rootOptions, o *planOptions, args []string) error {
	boundary, err := partition.ParseBoundaryPolicy(o.boundary)
	if err != nil {
		return fmt.Errorf("--boundary: %w", err)
	}
	if len(args) == 0 {
		args = []string{"-"}
	}

	caches := make(map[tile.Platform]*plan.Cache)
	var plans []*plan.Plan
	var errs []error
	for _, name := range args {
		w, err := readWorkload(cmd.InOrStdin(), name)
		if err != nil {
			return err
		}
		p, err := root.basePlatform(w.Platform)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		cache, ok := caches[p]
		if !ok {
			cache = plan.NewCache(plan.New(p,
				plan.WithLogger(root.logger.With("file", name)),
				plan.WithBoundary(boundary),
				plan.WithVerify(o.verify)))
			caches[p] = cache
		}
		root.logger.Info("planning", "file", name, "requests", len(w.Requests), "platform", p.String())

		got, err := plan.PlanBatch(cmd.Context(), cache, w.Requests, o.jobs)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		plans = append(plans, lo.Compact(got)...)
	}

	out := cmd.OutOrStdout()
	for i, p := range plans {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := p.Format(out); err != nil {
			return err
		}
	}
	if o.outDir != "" {
		if err := writeParams(o.outDir, plans); err != nil {
			return err
		}
	}

	printer := message.NewPrinter(language.English)
	paramBytes := lo.SumBy(plans, func(p *plan.Plan) int64 { return p.ParamBytes })
	printer.Fprintf(cmd.ErrOrStderr(), "planned %d requests, %d bytes of parameters\n", len(plans), paramBytes)
	return errors.Join(errs...)
}

func readWorkload(stdin io.Reader, name string) (plan.Workload, error) {
	if name == "-" {
		return plan.DecodeWorkload(stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		return plan.Workload{}, err
	}
	defer f.Close()
	w, err := plan.DecodeWorkload(f)
	if err != nil {
		return plan.Workload{}, fmt.Errorf("%s: %w", name, err)
	}
	return w, nil
}

func writeParams(dir string, plans []*plan.Plan) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, p := range plans {
		data, err := p.MarshalBinary()
		if err != nil {
			return err
		}
		path := filepath.Join(dir, fileName(p.Name, i)+".bin")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// fileName maps a plan name to a safe base name; unnamed plans use their
// position.
func fileName(name string, i int) string {
	if name == "" {
		return "plan-" + strconv.Itoa(i)
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
}
