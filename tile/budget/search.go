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

// Package budget chooses tile sizes that fit a fixed fast-memory budget.
//
// The search primitive is FindMaxTileSize, an integer bisection over a
// monotone predicate. Operator-specific memory accounting lives in a
// table of Policy values keyed by Kind; pooling kernels use PoolTile.
//
// Nothing in this package returns an error or logs. An infeasible budget
// yields the low end of the searched range, and the explicit variants
// additionally report ok=false.
package budget

import "github.com/ajroetker/go-tileplan/tile"

// FindMaxTileSize returns the largest x in [low, high] for which fits(x)
// holds. fits must be monotone: once false for some x it stays false for
// every larger x. If no value fits, including low, low is returned; use
// MaxFitting to tell the two cases apart.
//
// The search evaluates fits O(log(high-low)) times and never calls it
// outside [low, high].
func FindMaxTileSize(low, high int64, fits func(int64) bool) int64 {
	v, _ := MaxFitting(low, high, fits)
	return v
}

// MaxFitting is FindMaxTileSize with an explicit feasibility flag.
func MaxFitting(low, high int64, fits func(int64) bool) (int64, bool) {
	if high < low || !fits(low) {
		return low, false
	}
	lo, hi := low, high
	for lo < hi {
		// Upper midpoint so that lo = mid always makes progress.
		mid := lo + (hi-lo+1)/2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, true
}

// FindMaxTileSizeRate returns the largest multiple of rate in [low, high]
// for which fits holds, or low when no multiple fits. A non-positive rate
// searches every integer.
func FindMaxTileSizeRate(low, high, rate int64, fits func(int64) bool) int64 {
	v, _ := MaxFittingRate(low, high, rate, fits)
	return v
}

// MaxFittingRate is FindMaxTileSizeRate with an explicit feasibility flag.
func MaxFittingRate(low, high, rate int64, fits func(int64) bool) (int64, bool) {
	if rate <= 0 {
		return MaxFitting(low, high, fits)
	}
	kLow := tile.CeilDiv(low, rate)
	kHigh := tile.FloorAlign(high, rate) / rate
	k, ok := MaxFitting(kLow, kHigh, func(k int64) bool { return fits(k * rate) })
	if !ok {
		return low, false
	}
	return k * rate, true
}
