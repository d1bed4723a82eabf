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
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Format writes a human-readable report of p to w.
func (p *Plan) Format(w io.Writer) error {
	bw := bufio.NewWriter(w)
	name := p.Name
	if name == "" {
		name = "(unnamed)"
	}
	line := func(parts ...string) {
		for _, s := range parts {
			bw.WriteString(s)
		}
		bw.WriteByte('\n')
	}
	i64 := func(v int64) string { return strconv.FormatInt(v, 10) }

	line("plan ", name)
	line("kind: ", p.Kind.String())
	line("dtype: ", p.DType.String())
	line("arrays: ", strconv.Itoa(len(p.Lengths)))
	line("elements: ", i64(p.Elements()))
	if p.Degenerate {
		line("degenerate: true")
	}
	line("workers: ", strconv.Itoa(p.Workers))
	line("elements per block: ", strconv.Itoa(p.ElementsPerBlock))
	line("tile: ", i64(p.TileElems), " elements (", i64(p.TileBytes), " bytes)")
	line("params: ", i64(p.ParamBytes), " bytes")
	line("workspace: ", i64(p.WorkspaceBytes), " bytes")
	line("segments:")
	for w, s := range p.Segments {
		line("  ", strconv.Itoa(w), ": ", s.String(), " ", i64(s.Elements(p.Lengths)))
	}
	if p.Index != nil {
		line("index:")
		line("  touch: ", joinInts(p.Index.TouchCount))
		line("  middle start: ", joinInts(p.Index.MiddleStart))
		line("  core middle offset: ", joinInts(p.Index.CoreMiddleOffset))
		if un := p.Index.Uncovered(); len(un) > 0 {
			line("  uncovered: ", joinInts(un))
		}
	}
	return bw.Flush()
}

func joinInts(xs []int) string {
	return strings.Join(lo.Map(xs, func(x int, _ int) string { return strconv.Itoa(x) }), " ")
}
