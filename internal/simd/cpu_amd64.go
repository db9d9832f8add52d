// SPDX-License-Identifier: MIT

//go:build amd64 && !purego

package simd

import "golang.org/x/sys/cpu"

func detect() bool {
	return cpu.X86.HasAVX2 || cpu.X86.HasSSE41
}

func feature() string {
	if cpu.X86.HasAVX2 {
		return "avx2"
	}
	return "sse4.1"
}
