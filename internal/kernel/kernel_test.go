package kernel

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// randomPlane creates a plane of n pseudorandom samples.
func randomPlane(n int, seed int64) []uint8 {
	rng := rand.New(rand.NewSource(seed))
	buf := make([]uint8, n)
	for i := range buf {
		buf[i] = uint8(rng.Intn(256))
	}
	return buf
}

// randomCoeffs draws 16 coefficients from [lo, hi].
func randomCoeffs(lo, hi int, seed int64) []int16 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]int16, NumCoeffs)
	for i := range out {
		out[i] = int16(lo + rng.Intn(hi-lo+1))
	}
	return out
}

// expectedSample is the clamp oracle used by the tests.
func expectedSample(p uint8, c int16) uint8 {
	return uint8(max(0, min(255, int(p)+int(c))))
}

// checksumOutside hashes every byte of buf except the footprint at idx.
func checksumOutside(buf []uint8, idx, stride int) uint64 {
	skip := make(map[int]bool, NumCoeffs)
	for _, off := range FootprintOffsets(idx, stride) {
		skip[off] = true
	}
	h := fnv.New64a()
	for i, b := range buf {
		if skip[i] {
			continue
		}
		h.Write([]byte{b})
	}
	return h.Sum64()
}

// expectPanic runs fn and returns the recovered value.
func expectPanic(t *testing.T, fn func()) (recovered any) {
	t.Helper()
	defer func() {
		recovered = recover()
		if recovered == nil {
			t.Fatal("expected panic, got none")
		}
	}()
	fn()
	return nil
}

func TestClip8(t *testing.T) {
	tests := []struct {
		in   int32
		want uint8
	}{
		{math.MinInt32, 0},
		{-32768, 0},
		{-1, 0},
		{0, 0},
		{1, 1},
		{128, 128},
		{255, 255},
		{256, 255},
		{32767 + 255, 255},
		{math.MaxInt32, 255},
	}
	for _, tt := range tests {
		if got := Clip8(tt.in); got != tt.want {
			t.Errorf("Clip8(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestAddCoeffs_Example checks the clamp at both ends on a single row.
func TestAddCoeffs_Example(t *testing.T) {
	for _, k := range All() {
		t.Run(string(k.Variant), func(t *testing.T) {
			const stride = 8
			plane := make([]uint8, 4*stride)
			copy(plane, []uint8{10, 20, 30, 40})

			coeffs := make([]int16, NumCoeffs)
			copy(coeffs, []int16{-5, 300, 0, -50})

			k.AddCoeffs(plane, 0, stride, coeffs)

			want := []uint8{5, 255, 30, 0}
			if diff := cmp.Diff(want, plane[:4]); diff != "" {
				t.Errorf("first row mismatch (-want +got):\n%s", diff)
			}
			for i := 4; i < len(plane); i++ {
				if plane[i] != 0 {
					t.Fatalf("sample %d changed to %d", i, plane[i])
				}
			}
		})
	}
}

// TestAddCoeffs_Saturation sweeps every pixel value against the whole
// int16 coefficient range.
func TestAddCoeffs_Saturation(t *testing.T) {
	pixelStep := 1
	if testing.Short() {
		pixelStep = 17
	}

	const stride = 4
	plane := make([]uint8, 4*stride)
	coeffs := make([]int16, NumCoeffs)

	for _, k := range All() {
		t.Run(string(k.Variant), func(t *testing.T) {
			for p := 0; p < 256; p += pixelStep {
				for base := math.MinInt16; base <= math.MaxInt16; base += NumCoeffs {
					for i := range coeffs {
						coeffs[i] = int16(base + i)
					}
					for i := range plane {
						plane[i] = uint8(p)
					}

					k.AddCoeffs(plane, 0, stride, coeffs)

					for i, got := range plane {
						if want := expectedSample(uint8(p), coeffs[i]); got != want {
							t.Fatalf("p=%d c=%d: got %d, want %d", p, coeffs[i], got, want)
						}
					}
				}
			}
		})
	}
}

// TestAddCoeffs_Locality verifies nothing outside the footprint changes.
func TestAddCoeffs_Locality(t *testing.T) {
	const (
		stride = 64
		rows   = 16
	)

	positions := []struct{ x, y int }{
		{0, 0}, {4, 0}, {60, 0}, {0, 12}, {33, 5}, {60, 12},
	}

	for _, k := range All() {
		for _, pos := range positions {
			t.Run(fmt.Sprintf("%s/%d_%d", k.Variant, pos.x, pos.y), func(t *testing.T) {
				plane := randomPlane(stride*rows, 7)
				coeffs := randomCoeffs(math.MinInt16, math.MaxInt16, 11)
				idx := pos.x + pos.y*stride

				before := checksumOutside(plane, idx, stride)
				k.AddCoeffs(plane, idx, stride, coeffs)
				after := checksumOutside(plane, idx, stride)

				if before != after {
					t.Errorf("samples outside the footprint changed (checksum %x -> %x)", before, after)
				}
			})
		}
	}
}

// TestAddCoeffs_CrossVariant runs every variant over a whole frame and
// requires byte-identical planes.
func TestAddCoeffs_CrossVariant(t *testing.T) {
	ranges := []struct {
		name   string
		lo, hi int
	}{
		{"narrow", -511, 510},
		{"full", math.MinInt16, math.MaxInt16},
	}

	const (
		stride = 128
		rows   = 96
	)

	for _, r := range ranges {
		t.Run(r.name, func(t *testing.T) {
			coeffs := randomCoeffs(r.lo, r.hi, 3)
			var want []uint8
			for i, k := range All() {
				plane := randomPlane(stride*rows, 5)
				for y := 0; y < rows/4; y++ {
					for x := 0; x < stride/4; x++ {
						k.AddCoeffs(plane, x*4+y*4*stride, stride, coeffs)
					}
				}
				if i == 0 {
					want = plane
					continue
				}
				if diff := cmp.Diff(want, plane); diff != "" {
					t.Errorf("%s differs from %s (-want +got):\n%s", k.Variant, VariantReference, diff)
				}
			}
		})
	}
}

// TestAddCoeffs_Boundary updates the bottom-right tile of a plane whose
// capacity ends at its last sample and checks the guard bytes behind it.
func TestAddCoeffs_Boundary(t *testing.T) {
	const (
		stride = 32
		rows   = 16
		n      = stride * rows
		guard  = 64
	)

	for _, k := range All() {
		t.Run(string(k.Variant), func(t *testing.T) {
			backing := randomPlane(n+guard, 9)
			for i := n; i < len(backing); i++ {
				backing[i] = 0xA5
			}
			plane := backing[:n:n]
			coeffs := randomCoeffs(-511, 510, 13)

			idx := (stride - 4) + (rows-4)*stride
			if err := CheckFootprint(len(plane), idx, stride); err != nil {
				t.Fatalf("last tile rejected: %v", err)
			}

			orig := append([]uint8(nil), plane...)
			k.AddCoeffs(plane, idx, stride, coeffs)

			for i, off := range FootprintOffsets(idx, stride) {
				if want := expectedSample(orig[off], coeffs[i]); plane[off] != want {
					t.Errorf("offset %d: got %d, want %d", off, plane[off], want)
				}
			}
			for i := n; i < len(backing); i++ {
				if backing[i] != 0xA5 {
					t.Fatalf("guard byte %d overwritten", i)
				}
			}
		})
	}
}

// TestAddCoeffs_ExtraCapacity verifies that spare slice capacity is never
// treated as part of the plane.
func TestAddCoeffs_ExtraCapacity(t *testing.T) {
	const stride = 16
	for _, k := range All() {
		t.Run(string(k.Variant), func(t *testing.T) {
			backing := make([]uint8, 4*stride+64)
			plane := backing[:3*stride+3]
			coeffs := randomCoeffs(-511, 510, 1)

			expectPanic(t, func() {
				k.AddCoeffs(plane, 0, stride, coeffs)
			})
		})
	}
}

func TestAddCoeffs_CoefficientsUnmodified(t *testing.T) {
	for _, k := range All() {
		plane := randomPlane(64, 2)
		coeffs := randomCoeffs(math.MinInt16, math.MaxInt16, 4)
		orig := append([]int16(nil), coeffs...)

		k.AddCoeffs(plane, 0, 16, coeffs)

		if diff := cmp.Diff(orig, coeffs); diff != "" {
			t.Errorf("%s modified coefficients (-want +got):\n%s", k.Variant, diff)
		}
	}
}

func TestStridedChunk_NarrowStride(t *testing.T) {
	k, err := Lookup(string(VariantStridedChunk))
	if err != nil {
		t.Fatal(err)
	}
	coeffs := make([]int16, NumCoeffs)

	for _, stride := range []int{0, 1, BlockSize - 1} {
		plane := make([]uint8, 64)
		r := expectPanic(t, func() {
			k.AddCoeffs(plane, 0, stride, coeffs)
		})
		if err, ok := r.(error); !ok || !errors.Is(err, ErrStride) {
			t.Errorf("stride %d: panic %v does not wrap ErrStride", stride, r)
		}
	}
}

// TestBoundedChunk_Violations checks the sentinel errors raised by the
// checked variant.
func TestBoundedChunk_Violations(t *testing.T) {
	k, err := Lookup(string(VariantBoundedChunk))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		n       int
		idx     int
		stride  int
		ncoeffs int
		want    error
	}{
		{"past end", 64, 16, 16, 16, ErrOutOfBounds},
		{"negative offset", 64, -1, 16, 16, ErrOutOfBounds},
		{"short plane", 3*16 + 3, 0, 16, 16, ErrOutOfBounds},
		{"narrow stride", 64, 0, 3, 16, ErrStride},
		{"short coefficients", 64, 0, 16, 15, ErrShortCoeffs},
		{"no coefficients", 64, 0, 16, 0, ErrShortCoeffs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plane := make([]uint8, tt.n)
			coeffs := make([]int16, tt.ncoeffs)
			for i := range coeffs {
				coeffs[i] = 100
			}

			r := expectPanic(t, func() {
				k.AddCoeffs(plane, tt.idx, tt.stride, coeffs)
			})

			err, ok := r.(error)
			if !ok {
				t.Fatalf("panic value %v is not an error", r)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			for i, b := range plane {
				if b != 0 {
					t.Fatalf("sample %d written before the check failed", i)
				}
			}
		})
	}
}

// TestUnchecked_OutOfBoundsPanics verifies the unchecked variants still
// abort through the runtime's index checks.
func TestUnchecked_OutOfBoundsPanics(t *testing.T) {
	for _, k := range All() {
		if k.Policy != PolicyUnchecked {
			continue
		}
		t.Run(string(k.Variant), func(t *testing.T) {
			plane := make([]uint8, 64)
			coeffs := make([]int16, NumCoeffs)
			expectPanic(t, func() {
				k.AddCoeffs(plane, 20, 16, coeffs)
			})
		})
		t.Run(string(k.Variant)+"/short_coeffs", func(t *testing.T) {
			plane := make([]uint8, 64)
			coeffs := make([]int16, 8)
			expectPanic(t, func() {
				k.AddCoeffs(plane, 0, 16, coeffs)
			})
		})
	}
}

func TestCheckFootprint(t *testing.T) {
	tests := []struct {
		n, idx, stride int
		want           error
	}{
		{16, 0, 4, nil},
		{15, 0, 4, ErrOutOfBounds},
		{512 * 384, 508 + 380*512, 512, nil},
		{512 * 384, 509 + 380*512, 512, ErrOutOfBounds},
		{100, -4, 8, ErrOutOfBounds},
		{100, 0, 2, ErrStride},
	}
	for _, tt := range tests {
		err := CheckFootprint(tt.n, tt.idx, tt.stride)
		if tt.want == nil && err != nil {
			t.Errorf("CheckFootprint(%d, %d, %d) = %v, want nil", tt.n, tt.idx, tt.stride, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("CheckFootprint(%d, %d, %d) = %v, want %v", tt.n, tt.idx, tt.stride, err, tt.want)
		}
	}
}

func TestFootprintOffsets(t *testing.T) {
	offs := FootprintOffsets(5, 10)
	want := [NumCoeffs]int{
		5, 6, 7, 8,
		15, 16, 17, 18,
		25, 26, 27, 28,
		35, 36, 37, 38,
	}
	if offs != want {
		t.Errorf("FootprintOffsets(5, 10) = %v, want %v", offs, want)
	}
}
