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
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes a Planner. Identical requests planned concurrently share
// one computation, and every later caller receives the same *Plan.
// Failed requests are not cached.
type Cache struct {
	planner *Planner
	group   singleflight.Group

	mu    sync.RWMutex
	plans map[string]*Plan
}

// NewCache wraps p.
func NewCache(p *Planner) *Cache {
	return &Cache{planner: p, plans: make(map[string]*Plan)}
}

// Plan returns the cached plan for req, planning it on first use.
func (c *Cache) Plan(req Request) (*Plan, error) {
	key := requestKey(req)
	c.mu.RLock()
	cached, ok := c.plans[key]
	c.mu.RUnlock()
	if ok {
		c.planner.logger.Debug("plan cache hit", "name", req.Name)
		return cached, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.plans[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}
		out, err := c.planner.Plan(req)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.plans[key] = out
		c.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.planner.logger.Debug("plan shared with a concurrent caller", "name", req.Name)
	}
	return v.(*Plan), nil
}

// Len returns the number of cached plans.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.plans)
}

func requestKey(req Request) string {
	var b strings.Builder
	b.WriteString(strconv.Quote(req.Name))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(int(req.Kind)))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(int(req.DType)))
	for _, n := range req.Lengths {
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(n, 10))
	}
	return b.String()
}
