package nnue

import "golang.org/x/sys/cpu"

// lane is the unroll width used by macClippedRelu. Go has no portable SIMD
// intrinsics, so this is not real vector code; it picks a wider unroll on
// hardware that can actually keep more independent multiply-accumulate
// chains in flight; the compiler's own auto-vectorizer does the rest.
var lane = func() int {
	switch {
	case cpu.X86.HasAVX2, cpu.ARM64.HasASIMD:
		return 16
	default:
		return 8
	}
}()

// macClippedRelu computes sum(clippedRelu(acc[i]) * weights[i]) over the
// full width, unrolled by lane to reduce loop-carried dependency stalls.
func macClippedRelu(acc []int16, weights []int16) int32 {
	var sum int32
	n := len(acc)
	i := 0
	for ; i+lane <= n; i += lane {
		var partial int32
		for j := 0; j < lane; j++ {
			partial += clipped(acc[i+j]) * int32(weights[i+j])
		}
		sum += partial
	}
	for ; i < n; i++ {
		sum += clipped(acc[i]) * int32(weights[i])
	}
	return sum
}
