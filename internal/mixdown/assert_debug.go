// SPDX-License-Identifier: MIT

//go:build debug

package mixdown

import "fmt"

func assertCapacity(have, want int) {
	if have < want {
		panic(fmt.Sprintf("mixdown: dst holds %d samples, need %d", have, want))
	}
}
