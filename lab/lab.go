/*
Package lab converts between gamma encoded sRGB and the CIE L*a*b* color space
using the D65 white point.

Distances are measured with the CIE76 formula, the Euclidean distance between
two L*a*b* triples, which is symmetric and orders colors by rough perceptual
similarity.
*/
package lab

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is a color in L*a*b* space. L is in the range 0 to 1, a and b are
// roughly within -1 and 1 as produced by go-colorful.
type Color struct {
	L, A, B float64
}

// FromRGB converts an 8-bit per channel sRGB triple.
func FromRGB(r, g, b uint8) Color {
	c := colorful.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}
	l, a, bb := c.Lab()
	return Color{l, a, bb}
}

// FromColor converts any color.Color. Alpha is ignored, the color channels
// are taken as they are after converting to non-premultiplied form.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return FromRGB(n.R, n.G, n.B)
}

// RGB converts c back to the nearest valid 8-bit sRGB triple.
func (c Color) RGB() (uint8, uint8, uint8) {
	return colorful.Lab(c.L, c.A, c.B).Clamped().RGB255()
}

// RGBA implements the color.Color interface.
func (c Color) RGBA() (uint32, uint32, uint32, uint32) {
	r, g, b := c.RGB()
	return color.RGBA{r, g, b, 0xff}.RGBA()
}

// Distance returns the CIE76 distance between c and o.
func (c Color) Distance(o Color) float64 {
	return math.Sqrt(c.sqDistance(o))
}

func (c Color) sqDistance(o Color) float64 {
	dl, da, db := c.L-o.L, c.A-o.A, c.B-o.B
	return dl*dl + da*da + db*db
}

// Mean returns the weighted mean of colors. It returns false if the total
// weight is zero.
func Mean(colors []Color, weights []int) (Color, bool) {
	var m Color
	var total float64
	for i, c := range colors {
		w := float64(weights[i])
		m.L += c.L * w
		m.A += c.A * w
		m.B += c.B * w
		total += w
	}
	if total == 0 {
		return Color{}, false
	}
	return Color{m.L / total, m.A / total, m.B / total}, true
}
