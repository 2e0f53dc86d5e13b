/*
Package chr implements an encoder and decoder for NES tile data.

An image is split into 8 by 8 tiles. Up to four subpalettes of four colors can
be defined, the first color of each being shared, and each tile can use only
one of these subpalettes.

The file starts with the width and height in tiles as two 16-bit little endian
values. The pattern data follows as 16 bytes per tile in row-major tile order,
which is the layout the NES expects in CHR memory: eight bytes holding the low
bit of each pixel's color, one byte per row with the leftmost pixel in the
most significant bit, followed by eight bytes holding the high bit. Next is
one byte per tile holding its subpalette index, and finally the 16 byte
palette of hardware color indices as it would be written to the PPU.
*/
package chr

import (
	"image"
	"image/color"

	"github.com/bodgit/nesimg/nes"
)

const (
	tileWidth       = 8
	tileHeight      = tileWidth
	tilePixels      = tileWidth * tileHeight
	tileBytes       = tilePixels >> 2
	colorsPerTile   = 4
	maxSubpalettes  = 4
	paletteBytes    = colorsPerTile * maxSubpalettes
	headerBytes     = 4
	maxTilesPerSide = 1<<16 - 1
)

// Image is a tiled image with two bits per pixel.
type Image struct {
	TilesX, TilesY int

	// Pix holds the color, 0 to 3, of each pixel within its tile's
	// subpalette, row-major
	Pix []uint8
	// Tiles holds the subpalette of each tile, row-major
	Tiles []uint8
	// Palette holds the hardware color indices, four per subpalette
	Palette [paletteBytes]uint8
}

// New returns a blank image of the given size in tiles.
func New(tilesX, tilesY int) *Image {
	return &Image{
		TilesX: tilesX,
		TilesY: tilesY,
		Pix:    make([]uint8, tilesX*tilesY*tilePixels),
		Tiles:  make([]uint8, tilesX*tilesY),
	}
}

// Bounds returns the size of the image in pixels.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.TilesX*tileWidth, m.TilesY*tileHeight)
}

// ColorIndexAt returns the index into the full 16 color palette of the pixel
// at (x, y).
func (m *Image) ColorIndexAt(x, y int) uint8 {
	t := (y/tileHeight)*m.TilesX + x/tileWidth
	return m.Tiles[t]*colorsPerTile + m.Pix[y*m.TilesX*tileWidth+x]
}

// Render draws the image using the colors of the hardware palette hw.
func (m *Image) Render(hw *nes.Palette) *image.Paletted {
	p := make(color.Palette, paletteBytes)
	for i, c := range m.Palette {
		p[i] = hw.RGB(int(c))
	}

	b := m.Bounds()
	dst := image.NewPaletted(b, p)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetColorIndex(x, y, m.ColorIndexAt(x, y))
		}
	}
	return dst
}

// Patterns returns the raw CHR pattern data for every tile.
func (m *Image) Patterns() []byte {
	w := m.TilesX * tileWidth
	b := make([]byte, 0, m.TilesX*m.TilesY*tileBytes)
	for ty := 0; ty < m.TilesY; ty++ {
		for tx := 0; tx < m.TilesX; tx++ {
			var lo, hi [tileHeight]byte
			for y := 0; y < tileHeight; y++ {
				row := (ty*tileHeight+y)*w + tx*tileWidth
				for _, c := range m.Pix[row : row+tileWidth] {
					lo[y] = lo[y]<<1 | c&0x01
					hi[y] = hi[y]<<1 | c>>1&0x01
				}
			}
			b = append(b, lo[:]...)
			b = append(b, hi[:]...)
		}
	}
	return b
}
