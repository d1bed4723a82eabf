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

package tile

import "testing"

func TestDefaultPlatformValid(t *testing.T) {
	p := DefaultPlatform()
	if err := p.Validate(); err != nil {
		t.Fatalf("DefaultPlatform().Validate() = %v", err)
	}
	if got := p.ElementsPerBlock(Float32); got != 8 {
		t.Errorf("ElementsPerBlock(float32) = %d, want 8", got)
	}
	if got := p.ElementsPerBlock(BFloat16); got != 16 {
		t.Errorf("ElementsPerBlock(bfloat16) = %d, want 16", got)
	}
	if got := p.ElementsPerBlock(Invalid); got != 0 {
		t.Errorf("ElementsPerBlock(invalid) = %d, want 0", got)
	}
}

func TestHostPlatform(t *testing.T) {
	p := HostPlatform()
	if err := p.Validate(); err != nil {
		t.Fatalf("HostPlatform().Validate() = %v", err)
	}
	if p.BlockBytes < DefaultBlockBytes {
		t.Errorf("BlockBytes = %d, want >= %d", p.BlockBytes, DefaultBlockBytes)
	}
	if p.Workers < 1 || p.Workers > p.MaxWorkers {
		t.Errorf("Workers = %d, want in [1, %d]", p.Workers, p.MaxWorkers)
	}
}

func TestHostPlatformNoSimd(t *testing.T) {
	t.Setenv("TILEPLAN_NO_SIMD", "1")
	p := HostPlatform()
	if p.Name != "scalar" {
		t.Errorf("Name = %q, want scalar", p.Name)
	}
	if p.BlockBytes != DefaultBlockBytes {
		t.Errorf("BlockBytes = %d, want %d", p.BlockBytes, DefaultBlockBytes)
	}
}

func TestPlatformValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Platform)
	}{
		{"zero block", func(p *Platform) { p.BlockBytes = 0 }},
		{"half not multiple", func(p *Platform) { p.HalfBlockBytes = 48 }},
		{"repeat not multiple", func(p *Platform) { p.BlockBytes, p.HalfBlockBytes = 512, 1024 }},
		{"repeat not a half block", func(p *Platform) { p.BlockBytes, p.HalfBlockBytes = 24, 48 }},
		{"no workers", func(p *Platform) { p.Workers = 0 }},
		{"no budget", func(p *Platform) { p.MemoryBudget = 0 }},
		{"no caps", func(p *Platform) { p.MaxArrays = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPlatform()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}

func TestParseDType(t *testing.T) {
	tests := []struct {
		in   string
		want DType
	}{
		{"float32", Float32},
		{"FP16", Float16},
		{" bf16 ", BFloat16},
		{"half", Float16},
		{"int", Int32},
		{"int64", Int64},
		{"bool", Bool},
	}
	for _, tt := range tests {
		got, err := ParseDType(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseDType(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseDType("complex64"); err == nil {
		t.Errorf("ParseDType(complex64) = nil error, want error")
	}
}

func TestDTypeText(t *testing.T) {
	for d := Float32; d <= Bool; d++ {
		text, err := d.MarshalText()
		if err != nil {
			t.Fatalf("%v.MarshalText() = %v", d, err)
		}
		var back DType
		if err := back.UnmarshalText(text); err != nil || back != d {
			t.Errorf("UnmarshalText(%q) = %v, %v; want %v", text, back, err, d)
		}
	}
	if _, err := Invalid.MarshalText(); err == nil {
		t.Errorf("Invalid.MarshalText() = nil error, want error")
	}
}
