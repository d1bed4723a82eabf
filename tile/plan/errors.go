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

	"github.com/ajroetker/go-tileplan/tile"
)

var (
	// ErrInvalidInput reports a request or platform that violates a
	// precondition of the planner.
	ErrInvalidInput = errors.New("plan: invalid input")

	// ErrInfeasibleBudget reports a memory budget too small for one aligned
	// tile.
	ErrInfeasibleBudget = errors.New("plan: infeasible budget")

	// ErrMalformedParams reports a parameter block that does not decode.
	ErrMalformedParams = errors.New("plan: malformed parameter block")
)

func validate(p tile.Platform, req Request) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	switch {
	case !req.Kind.Valid():
		return fmt.Errorf("%w: request %q: unknown kind %v", ErrInvalidInput, req.Name, req.Kind)
	case !req.DType.Valid():
		return fmt.Errorf("%w: request %q: unknown dtype %v", ErrInvalidInput, req.Name, req.DType)
	case len(req.Lengths) == 0:
		return fmt.Errorf("%w: request %q: no arrays", ErrInvalidInput, req.Name)
	case len(req.Lengths) > p.MaxArrays:
		return fmt.Errorf("%w: request %q: %d arrays exceed the limit of %d",
			ErrInvalidInput, req.Name, len(req.Lengths), p.MaxArrays)
	case p.BlockBytes%req.DType.Size() != 0:
		return fmt.Errorf("%w: request %q: block of %d bytes does not hold whole %v elements",
			ErrInvalidInput, req.Name, p.BlockBytes, req.DType)
	}
	for a, n := range req.Lengths {
		if n < 0 {
			return fmt.Errorf("%w: request %q: array %d has negative length %d", ErrInvalidInput, req.Name, a, n)
		}
	}
	return nil
}
