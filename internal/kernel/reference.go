package kernel

// addCoeffsReference is the straightforward implementation: every sample
// is addressed as idx + x + y*stride.
//
// The sum is narrowed to 16 bits before the 8-bit clamp. The narrowing
// saturates, so a pixel plus a coefficient near the int16 limits cannot
// wrap around.
func addCoeffsReference(dst []uint8, idx, stride int, coeffs []int16) {
	for y := 0; y < BlockSize; y++ {
		for x := 0; x < BlockSize; x++ {
			sum := clip16(int32(dst[idx+x]) + int32(coeffs[x+y*BlockSize]))
			dst[idx+x] = Clip8(int32(sum))
		}
		idx += stride
	}
}
