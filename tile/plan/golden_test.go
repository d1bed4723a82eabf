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
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/ajroetker/go-tileplan/tile"
)

var update = flag.Bool("update", false, "rewrite the report sections of testdata/*.txtar")

// Each archive holds a workload.yaml and either the expected report of
// every plan or the expected error.
func TestGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			require.NoError(t, err)
			sections := make(map[string]string, len(ar.Files))
			for _, f := range ar.Files {
				sections[f.Name] = string(f.Data)
			}

			w, err := DecodeWorkload(strings.NewReader(sections["workload.yaml"]))
			require.NoError(t, err)
			p := New(w.Platform.Apply(tile.DefaultPlatform()), WithVerify(true))

			var report strings.Builder
			var errs []string
			for _, req := range w.Requests {
				out, err := p.Plan(req)
				if err != nil {
					errs = append(errs, err.Error())
					continue
				}
				require.NoError(t, out.Format(&report))
				checkRoundTrip(t, out)
			}

			if want, ok := sections["error"]; ok {
				require.Len(t, errs, 1)
				assert.Contains(t, errs[0], strings.TrimSpace(want))
				return
			}
			require.Empty(t, errs)

			if *update {
				for i := range ar.Files {
					if ar.Files[i].Name == "report" {
						ar.Files[i].Data = []byte(report.String())
					}
				}
				require.NoError(t, os.WriteFile(file, txtar.Format(ar), 0o644))
				return
			}
			if diff := cmp.Diff(sections["report"], report.String()); diff != "" {
				t.Errorf("report mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func checkRoundTrip(t *testing.T, want *Plan) {
	t.Helper()
	data, err := want.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, want.ParamBytes, int64(len(data)))

	var got Plan
	require.NoError(t, got.UnmarshalBinary(data))
	got.Name = want.Name
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Errorf("parameter block round trip (-want +got):\n%s", diff)
	}
}
