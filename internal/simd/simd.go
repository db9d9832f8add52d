// SPDX-License-Identifier: MIT

// Package simd reports whether the running CPU has the vector units the
// accelerated numeric kernels are tuned for. Detection runs once at init.
// Callers check Enabled when they pick a kernel, either per call or once per
// engine, and use the scalar reference otherwise. Building with the purego
// tag forces the scalar paths everywhere.
package simd

import "sync/atomic"

var enabled atomic.Bool

func init() {
	enabled.Store(detect())
}

// Enabled reports whether accelerated kernels should be used.
func Enabled() bool {
	return enabled.Load()
}

// Feature names the capability that enabled acceleration, or "scalar".
func Feature() string {
	if !Enabled() {
		return "scalar"
	}
	return feature()
}

// Override forces acceleration on or off and returns a function restoring
// the detected setting. Tests use it to pin one path.
func Override(on bool) (restore func()) {
	prev := enabled.Swap(on)
	return func() { enabled.Store(prev) }
}
