// SPDX-License-Identifier: MIT

//go:build !debug

package mixdown

// assertCapacity is compiled out of release builds; the re-slice of dst
// still panics on undersized buffers.
func assertCapacity(have, want int) {}
