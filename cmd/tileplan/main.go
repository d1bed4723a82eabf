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

// Command tileplan plans how elementwise and reduction kernels split their
// arrays across workers and how large a tile fits each worker's memory.
//
// Usage:
//
//	tileplan plan workload.yaml [--out dir]
//	tileplan platform [--platform host]
//	tileplan kinds [--dtype bf16]
//	tileplan pool --batches 2 --channels 16 --input 8,16,16 --output 4,8,8 --kernel 2,2,2 --stride 2,2,2
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
