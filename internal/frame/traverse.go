package frame

import "github.com/cwbudde/coeffbench/internal/kernel"

// TileRows returns the number of 4-row tile bands in a frame of samples
// bytes at the given stride.
func TileRows(samples, stride int) int {
	if stride <= 0 {
		return 0
	}
	return samples / kernel.BlockSize / stride
}

// TileCols returns the number of tiles per band.
func TileCols(stride int) int {
	return stride / kernel.BlockSize
}

// TileCount returns the number of non-overlapping tiles in the frame.
func TileCount(samples, stride int) int {
	return TileRows(samples, stride) * TileCols(stride)
}

// TileOffset returns the position of tile (x, y).
func TileOffset(x, y, stride int) int {
	return x*kernel.BlockSize + y*kernel.BlockSize*stride
}

// ForEachTile calls fn with the position of every tile, band by band.
func ForEachTile(samples, stride int, fn func(idx int)) {
	rows := TileRows(samples, stride)
	cols := TileCols(stride)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			fn(TileOffset(x, y, stride))
		}
	}
}

// Traverse applies add once per tile of p with the shared coefficient block.
func Traverse(p *Plane, coeffs []int16, add kernel.AddCoeffsFunc) {
	stride := p.Stride
	rows := TileRows(len(p.Pix), stride)
	cols := TileCols(stride)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			add(p.Pix, x*4+y*4*stride, stride, coeffs)
		}
	}
}
