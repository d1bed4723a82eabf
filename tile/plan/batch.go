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
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// PlanBatch plans every request from src with at most limit requests in
// flight (unlimited when limit <= 0). Results keep the order of reqs.
//
// A failing request leaves a nil entry and does not stop the others; the
// returned error joins every failure. Cancelling ctx stops planning and
// returns ctx's error alone.
func PlanBatch(ctx context.Context, src Source, reqs []Request, limit int) ([]*Plan, error) {
	plans := make([]*Plan, len(reqs))
	errs := make([]error, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := src.Plan(req)
			if err != nil {
				errs[i] = fmt.Errorf("request %d (%s): %w", i, req.Name, err)
				return nil
			}
			plans[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return plans, errors.Join(errs...)
}
