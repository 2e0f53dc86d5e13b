/*
Package nes holds the table of 64 colors the NES picture processing unit can
display.

A Palette is immutable once built. The compiled-in table is available from
Default, alternative tables as dumped by emulators can be loaded with Decode.
A .pal file is 192 bytes; an 8-bit RGB triple for each of the 64 entries.
*/
package nes

import (
	"errors"
	"image/color"
	"io"
	"math"

	"github.com/bodgit/nesimg/lab"
)

// NumColors is the number of entries in a hardware palette.
const NumColors = 64

// ErrEmptyPalette is returned when searching a palette with no entries.
var ErrEmptyPalette = errors.New("nes: empty palette")

var errShortPalette = errors.New("nes: not enough palette data")

// Palette is a hardware color table in both RGB and L*a*b* form.
type Palette struct {
	rgb [NumColors]color.RGBA
	lab [NumColors]lab.Color
	n   int
}

var rgbTable = [NumColors][3]uint8{
	// 00
	{128, 128, 128}, {0, 61, 166}, {0, 18, 176}, {68, 0, 150},
	{161, 0, 94}, {199, 0, 40}, {186, 6, 0}, {140, 23, 0},
	{92, 47, 0}, {16, 69, 0}, {5, 74, 0}, {0, 71, 46},
	{0, 65, 102}, {3, 3, 3}, {3, 3, 3}, {3, 3, 3},
	// 10
	{199, 199, 199}, {0, 119, 255}, {33, 85, 255}, {130, 55, 250},
	{235, 47, 181}, {255, 41, 80}, {255, 34, 0}, {214, 50, 0},
	{196, 98, 0}, {53, 128, 0}, {5, 143, 0}, {0, 138, 85},
	{0, 153, 204}, {33, 33, 33}, {3, 3, 3}, {3, 3, 3},
	// 20
	{255, 255, 255}, {15, 215, 255}, {105, 162, 255}, {212, 128, 255},
	{255, 69, 243}, {255, 97, 139}, {255, 136, 51}, {255, 156, 18},
	{250, 188, 32}, {159, 227, 14}, {43, 240, 53}, {12, 240, 164},
	{5, 251, 255}, {94, 94, 94}, {13, 13, 13}, {13, 13, 13},
	// 30
	{255, 255, 255}, {166, 252, 255}, {179, 236, 255}, {218, 171, 235},
	{255, 168, 249}, {255, 171, 179}, {255, 210, 176}, {255, 239, 166},
	{255, 247, 156}, {215, 232, 149}, {166, 237, 157}, {162, 242, 218},
	{153, 255, 252}, {221, 221, 221}, {17, 17, 17}, {17, 17, 17},
}

var defaultPalette = newPalette(rgbTable)

func newPalette(t [NumColors][3]uint8) *Palette {
	p := &Palette{n: NumColors}
	for i, c := range t {
		p.rgb[i] = color.RGBA{c[0], c[1], c[2], 0xff}
		p.lab[i] = lab.FromRGB(c[0], c[1], c[2])
	}
	return p
}

// Default returns the compiled-in hardware palette. It is shared and must be
// treated as read-only, which the API enforces.
func Default() *Palette {
	return defaultPalette
}

// Decode reads a 64 color .pal file from r. Any data after the first 192
// bytes, such as the emphasis variants some emulators append, is ignored.
func Decode(r io.Reader) (*Palette, error) {
	var b [NumColors * 3]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errShortPalette
		}
		return nil, err
	}

	var t [NumColors][3]uint8
	for i := range t {
		copy(t[i][:], b[i*3:i*3+3])
	}
	return newPalette(t), nil
}

// Encode writes p to w in .pal format.
func (p *Palette) Encode(w io.Writer) error {
	b := make([]byte, 0, NumColors*3)
	for _, c := range p.rgb[:p.n] {
		b = append(b, c.R, c.G, c.B)
	}
	_, err := w.Write(b)
	return err
}

// Len returns the number of entries in the palette.
func (p *Palette) Len() int {
	return p.n
}

// RGB returns the RGB form of entry i.
func (p *Palette) RGB(i int) color.RGBA {
	return p.rgb[i]
}

// Lab returns the L*a*b* form of entry i.
func (p *Palette) Lab(i int) lab.Color {
	return p.lab[i]
}

// Nearest returns the index of the entry closest to c and the distance to
// it. Ties go to the lowest index.
func (p *Palette) Nearest(c lab.Color) (int, float64, error) {
	if p == nil || p.n == 0 {
		return 0, 0, ErrEmptyPalette
	}
	best, bestDist := 0, math.Inf(1)
	for i, e := range p.lab[:p.n] {
		if d := c.Distance(e); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist, nil
}

// Index returns the lowest index whose RGB value matches c exactly.
func (p *Palette) Index(c color.Color) (int, bool) {
	n := color.RGBAModel.Convert(c).(color.RGBA)
	n.A = 0xff
	for i, e := range p.rgb[:p.n] {
		if e == n {
			return i, true
		}
	}
	return 0, false
}

// Colors returns the RGB table as a color.Palette.
func (p *Palette) Colors() color.Palette {
	cp := make(color.Palette, p.n)
	for i := range cp {
		cp[i] = p.rgb[i]
	}
	return cp
}
