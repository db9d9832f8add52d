// SPDX-License-Identifier: MIT

//go:build arm64 && !purego

package simd

import "golang.org/x/sys/cpu"

func detect() bool {
	return cpu.ARM64.HasASIMD
}

func feature() string {
	return "asimd"
}
