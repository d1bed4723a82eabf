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

// Package main prints the CPU features the host platform profile is
// derived from, and how that profile differs from the reference one.
package main

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/ajroetker/go-tileplan/tile"
	"github.com/ajroetker/go-tileplan/tile/budget"
)

func main() {
	fmt.Printf("GOOS: %s\n", runtime.GOOS)
	fmt.Printf("GOARCH: %s\n", runtime.GOARCH)
	fmt.Printf("NumCPU: %d\n", runtime.NumCPU())
	fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
	fmt.Printf("TILEPLAN_NO_SIMD: %v\n", tile.NoSimdEnv())
	fmt.Println()

	switch runtime.GOARCH {
	case "arm64":
		printARM64Features()
	case "amd64":
		printAMD64Features()
	}
	fmt.Println()

	host, ref := tile.HostPlatform(), tile.DefaultPlatform()
	fmt.Printf("host platform:    %v\n", host)
	fmt.Printf("default platform: %v\n", ref)
	fmt.Println()

	fmt.Println("float32 tile elements (default -> host):")
	for _, k := range []budget.Kind{budget.KindCopy, budget.KindUnary, budget.KindPointwise, budget.KindTanh, budget.KindNorm} {
		pol := budget.PolicyFor(k)
		a, _ := pol.TileElems(ref.MemoryBudget, tile.Float32, ref)
		b, _ := pol.TileElems(host.MemoryBudget, tile.Float32, host)
		fmt.Printf("  %-10s %7d -> %7d\n", k, a, b)
	}
}

func printARM64Features() {
	fmt.Println("=== golang.org/x/sys/cpu.ARM64 ===")
	fmt.Printf("  HasASIMD:   %v (NEON, 16-byte blocks)\n", cpu.ARM64.HasASIMD)
	fmt.Printf("  HasASIMDHP: %v (FP16 NEON)\n", cpu.ARM64.HasASIMDHP)
	fmt.Printf("  HasSVE:     %v\n", cpu.ARM64.HasSVE)
	fmt.Printf("  HasSVE2:    %v\n", cpu.ARM64.HasSVE2)
}

func printAMD64Features() {
	fmt.Println("=== golang.org/x/sys/cpu.X86 ===")
	fmt.Printf("  HasSSE2:     %v (16-byte blocks)\n", cpu.X86.HasSSE2)
	fmt.Printf("  HasAVX2:     %v\n", cpu.X86.HasAVX2)
	fmt.Printf("  HasFMA:      %v\n", cpu.X86.HasFMA)
	fmt.Printf("  HasAVX512F:  %v (64-byte blocks with BW and VL)\n", cpu.X86.HasAVX512F)
	fmt.Printf("  HasAVX512BW: %v\n", cpu.X86.HasAVX512BW)
	fmt.Printf("  HasAVX512VL: %v\n", cpu.X86.HasAVX512VL)
}
