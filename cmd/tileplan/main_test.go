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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-tileplan/tile/plan"
)

const threeArrays = `
requests:
  - name: scenario_a
    kind: norm
    dtype: int8
    lengths: [100, 50, 150]
`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestPlanCommand(t *testing.T) {
	dir := t.TempDir()
	workload := filepath.Join(dir, "w.yaml")
	require.NoError(t, os.WriteFile(workload, []byte(threeArrays), 0o644))
	outDir := filepath.Join(dir, "params")

	stdout, stderr, err := run(t, "", "plan", "--workers", "4", "--out", outDir, workload)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "plan scenario_a\n"))
	assert.Contains(t, stdout, "  3: [2:106]-[2:149] 44\n")
	assert.Contains(t, stdout, "  core middle offset: 0 1 4 5\n")
	assert.Contains(t, stderr, "planned 1 requests, 192 bytes of parameters")

	data, err := os.ReadFile(filepath.Join(outDir, "scenario_a.bin"))
	require.NoError(t, err)
	var p plan.Plan
	require.NoError(t, p.UnmarshalBinary(data))
	assert.Equal(t, 4, p.Workers)
	assert.Equal(t, []int{2, 1, 3}, p.Index.TouchCount)
}

func TestPlanCommandStdin(t *testing.T) {
	stdout, _, err := run(t, threeArrays, "plan", "--workers", "2", "--boundary", "hold")
	require.NoError(t, err)
	assert.Contains(t, stdout, "workers: 2\n")
}

func TestPlanCommandFileOverrides(t *testing.T) {
	doc := "platform:\n  workers: 3\n" + threeArrays
	stdout, _, err := run(t, doc, "plan")
	require.NoError(t, err)
	assert.Contains(t, stdout, "workers: 3\n")

	// Flags win over the file.
	stdout, _, err = run(t, doc, "plan", "--workers", "5")
	require.NoError(t, err)
	assert.Contains(t, stdout, "workers: 5\n")
}

func TestPlanCommandReportsFailures(t *testing.T) {
	doc := threeArrays + `
  - name: broken
    kind: copy
    dtype: float32
    lengths: [-3]
`
	stdout, _, err := run(t, doc, "plan")
	require.ErrorIs(t, err, plan.ErrInvalidInput)
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, stdout, "plan scenario_a\n")
}

func TestPlanCommandBadFlags(t *testing.T) {
	_, _, err := run(t, threeArrays, "plan", "--boundary", "sideways")
	assert.ErrorContains(t, err, "--boundary")

	_, _, err = run(t, threeArrays, "--log-level", "loud", "plan")
	assert.ErrorContains(t, err, "--log-level")

	_, _, err = run(t, threeArrays, "--platform", "gpu", "plan")
	assert.ErrorContains(t, err, "--platform")

	_, _, err = run(t, "", "plan", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPlatformCommand(t *testing.T) {
	stdout, _, err := run(t, "", "platform")
	require.NoError(t, err)
	assert.Contains(t, stdout, "name: default\n")
	assert.Contains(t, stdout, "memory budget: 196,608 bytes\n")
	assert.Contains(t, stdout, "workers: 48 (at most 50)\n")

	stdout, _, err = run(t, "", "platform", "--workers", "4", "--budget", "65536")
	require.NoError(t, err)
	assert.Contains(t, stdout, "workers: 4 (at most 50)\n")
	assert.Contains(t, stdout, "memory budget: 65,536 bytes\n")

	_, _, err = run(t, "", "platform", "--workers", "-1")
	assert.Error(t, err)
}

func TestKindsCommand(t *testing.T) {
	stdout, _, err := run(t, "", "kinds")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "Kind"))
	assert.Contains(t, lines[0], "Float32")

	var copyLine, coshLine string
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "Copy "):
			copyLine = l
		case strings.HasPrefix(l, "Cosh "):
			coshLine = l
		}
	}
	assert.Contains(t, copyLine, "49,152")
	assert.Contains(t, coshLine, "acos, asin")
	assert.Contains(t, stdout, "Pointwise List")
	assert.Contains(t, stdout, "Norm *")

	_, _, err = run(t, "", "kinds", "--dtype", "complex64")
	assert.Error(t, err)
}

func TestPoolCommand(t *testing.T) {
	stdout, _, err := run(t, "", "pool",
		"--batches", "2", "--channels", "16",
		"--input", "8,16,16", "--kernel", "2,2,2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "output: 2 x [4 8 8] x 16 channels\n")
	assert.Contains(t, stdout, "split: rows\n")
	assert.Contains(t, stdout, "available: 3,968 elements\n")
	assert.Contains(t, stdout, "workers: 48 (1 loops each, first 16 take one more)\n")

	_, _, err = run(t, "", "pool", "--input", "1,2,2")
	assert.ErrorIs(t, err, errPoolUnsupported)

	_, _, err = run(t, "", "pool", "--input", "1,2")
	assert.ErrorContains(t, err, "--input")

	_, _, err = run(t, "", "pool")
	assert.Error(t, err, "input is required")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "plan-3", fileName("", 3))
	assert.Equal(t, "a_b_c.d", fileName("a/b c.d", 0))
}
