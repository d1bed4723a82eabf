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
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ajroetker/go-tileplan/tile"
	"github.com/ajroetker/go-tileplan/tile/plan"
)

type rootOptions struct {
	logLevel  string
	platform  string
	overrides plan.PlatformOverrides

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "tileplan",
		Short:        "Plan multi-array kernel tilings",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	f.StringVar(&o.platform, "platform", "default", "base platform profile: default or host")
	f.IntVar(&o.overrides.Workers, "workers", 0, "override the worker count")
	f.Int64Var(&o.overrides.MemoryBudget, "budget", 0, "override the per-worker memory budget in bytes")
	f.Int64Var(&o.overrides.BlockBytes, "block-bytes", 0, "override the alignment block in bytes")

	cmd.AddCommand(
		newPlanCmd(o),
		newPlatformCmd(o),
		newKindsCmd(o),
		newPoolCmd(o),
	)
	return cmd
}

// basePlatform returns the selected profile with the flag overrides
// applied on top of file overrides.
func (o *rootOptions) basePlatform(file plan.PlatformOverrides) (tile.Platform, error) {
	var p tile.Platform
	switch o.platform {
	case "default", "":
		p = tile.DefaultPlatform()
	case "host":
		p = tile.HostPlatform()
	default:
		return tile.Platform{}, fmt.Errorf("--platform: unknown profile %q", o.platform)
	}
	p = file.Merge(o.overrides).Apply(p)
	if err := p.Validate(); err != nil {
		return tile.Platform{}, err
	}
	return p, nil
}
