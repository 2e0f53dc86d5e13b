package quantize

import (
	"image"
	"image/color"

	"github.com/bodgit/nesimg/lab"
)

// histogram holds each distinct source color once, with the number of pixels
// using it and, for every pixel, which distinct color it is.
type histogram struct {
	colors []lab.Color
	counts []int
	pixels []int32
}

func newHistogram(m image.Image) *histogram {
	b := m.Bounds()
	h := &histogram{
		pixels: make([]int32, 0, b.Dx()*b.Dy()),
	}
	seen := make(map[uint32]int32)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			k := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
			i, ok := seen[k]
			if !ok {
				i = int32(len(h.colors))
				seen[k] = i
				h.colors = append(h.colors, lab.FromRGB(c.R, c.G, c.B))
				h.counts = append(h.counts, 0)
			}
			h.counts[i]++
			h.pixels = append(h.pixels, i)
		}
	}
	return h
}

// pixelLabels expands a label per distinct color into a label per pixel.
func (h *histogram) pixelLabels(labels []int) []uint8 {
	out := make([]uint8, len(h.pixels))
	for i, c := range h.pixels {
		out[i] = uint8(labels[c])
	}
	return out
}
