package quantize

import (
	"image"
	"image/color"

	"github.com/bodgit/nesimg/chr"
	"github.com/bodgit/nesimg/nes"
)

// Result is a converted image.
type Result struct {
	Width, Height  int
	TilesX, TilesY int

	// Reduced is the clustered palette, background first
	Reduced Palette
	// Groups lists the reduced palette slots of each subpalette
	Groups [NumGroups]Group
	// Subpalettes holds the hardware colors of each group
	Subpalettes [NumGroups]Subpalette
	// Tiles is the subpalette chosen for each tile, row-major
	Tiles []uint8
	// Misses is the number of each tile's colors missing from its
	// subpalette
	Misses []int
	// Pix is the subpalette color, 0 to 3, of every pixel, row-major
	Pix []uint8

	// Score is the clustering score that was kept, Scores the score of
	// every attempt
	Score  float64
	Scores []float64

	hw *nes.Palette
}

// Tile returns the subpalette used by the tile at (tx, ty).
func (r *Result) Tile(tx, ty int) int {
	return int(r.Tiles[ty*r.TilesX+tx])
}

// HardwareAt returns the hardware palette index of the pixel at (x, y).
func (r *Result) HardwareAt(x, y int) uint8 {
	sp := r.Subpalettes[r.Tile(x/tileWidth, y/tileHeight)]
	return sp[r.Pix[y*r.Width+x]]
}

// Colors returns the 13 hardware colors; the background then three for each
// subpalette in turn.
func (r *Result) Colors() [NumColors]uint8 {
	var c [NumColors]uint8
	c[0] = r.Subpalettes[0][0]
	for n, sp := range r.Subpalettes {
		copy(c[1+n*GroupSize:], sp[1:])
	}
	return c
}

// Full16 returns the palette as written to the PPU, four colors per
// subpalette with the background repeated at the start of each.
func (r *Result) Full16() [NumGroups * 4]uint8 {
	var p [NumGroups * 4]uint8
	for n, sp := range r.Subpalettes {
		copy(p[n*4:], sp[:])
	}
	return p
}

// Image returns the converted image. Its palette holds the 16 colors of
// Full16 and each pixel's index is its subpalette times four plus its color.
func (r *Result) Image() *image.Paletted {
	full := r.Full16()
	p := make(color.Palette, len(full))
	for i, c := range full {
		p[i] = r.hw.RGB(int(c))
	}

	m := image.NewPaletted(image.Rect(0, 0, r.Width, r.Height), p)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			i := r.Tile(x/tileWidth, y/tileHeight)*4 + int(r.Pix[y*r.Width+x])
			m.SetColorIndex(x, y, uint8(i))
		}
	}
	return m
}

// CHR returns the tile data ready for encoding.
func (r *Result) CHR() *chr.Image {
	m := chr.New(r.TilesX, r.TilesY)
	copy(m.Pix, r.Pix)
	copy(m.Tiles, r.Tiles)
	m.Palette = r.Full16()
	return m
}
