package kernel

import "fmt"

// addCoeffsStrided carves the 3*stride+4 byte window starting at idx into
// row slices of length stride (the last one is 4 bytes long) and updates
// the first four samples of each row. Sums are widened to 32 bits.
//
// Out-of-range access panics in the runtime. A stride narrower than a row
// would make the rows overlap, so it panics with ErrStride up front.
func addCoeffsStrided(dst []uint8, idx, stride int, coeffs []int16) {
	if stride < BlockSize {
		panic(fmt.Errorf("%w: stride %d", ErrStride, stride))
	}
	_ = dst[idx+3*stride+3]
	out := dst[idx : idx+3*stride+4]

	sidx := 0
	for off := 0; off < len(out) && sidx < NumCoeffs; off += stride {
		el := out[off:min(off+stride, len(out))]
		el[0] = Clip8(int32(el[0]) + int32(coeffs[sidx+0]))
		el[1] = Clip8(int32(el[1]) + int32(coeffs[sidx+1]))
		el[2] = Clip8(int32(el[2]) + int32(coeffs[sidx+2]))
		el[3] = Clip8(int32(el[3]) + int32(coeffs[sidx+3]))
		sidx += BlockSize
	}
}

// addCoeffsBounded walks the same window as addCoeffsStrided, pairing each
// pixel row with a 4-coefficient row of coeffs[:16]. Before touching a row
// it asserts that both slices hold at least four elements; a violation
// panics with an error wrapping ErrOutOfBounds, ErrShortCoeffs or ErrStride.
func addCoeffsBounded(dst []uint8, idx, stride int, coeffs []int16) {
	if err := CheckFootprint(len(dst), idx, stride); err != nil {
		panic(err)
	}
	if len(coeffs) < NumCoeffs {
		panic(fmt.Errorf("%w: got %d", ErrShortCoeffs, len(coeffs)))
	}

	out := dst[idx : idx+3*stride+4]
	cf := coeffs[:NumCoeffs]

	for row := 0; row < BlockSize; row++ {
		start := row * stride
		el := out[start:min(start+stride, len(out))]
		c := cf[row*BlockSize : (row+1)*BlockSize]
		if len(el) < BlockSize {
			panic(fmt.Errorf("%w: row %d holds %d samples", ErrOutOfBounds, row, len(el)))
		}
		if len(c) < BlockSize {
			panic(fmt.Errorf("%w: row %d holds %d coefficients", ErrShortCoeffs, row, len(c)))
		}
		el[0] = Clip8(int32(el[0]) + int32(c[0]))
		el[1] = Clip8(int32(el[1]) + int32(c[1]))
		el[2] = Clip8(int32(el[2]) + int32(c[2]))
		el[3] = Clip8(int32(el[3]) + int32(c[3]))
	}
}
