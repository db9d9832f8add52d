// SPDX-License-Identifier: MIT

//go:build purego || (!amd64 && !arm64)

package simd

func detect() bool { return false }

func feature() string { return "scalar" }
