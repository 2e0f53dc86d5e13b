package lab

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	tables := []color.RGBA{
		{0, 0, 0, 0xff},
		{255, 255, 255, 0xff},
		{128, 128, 128, 0xff},
		{0, 61, 166, 0xff},
		{255, 136, 51, 0xff},
		{12, 240, 164, 0xff},
	}

	for _, table := range tables {
		r, g, b := FromRGB(table.R, table.G, table.B).RGB()
		assert.InDelta(t, table.R, r, 1)
		assert.InDelta(t, table.G, g, 1)
		assert.InDelta(t, table.B, b, 1)
	}
}

func TestFromColor(t *testing.T) {
	assert.Equal(t, FromRGB(200, 100, 50), FromColor(color.NRGBA{200, 100, 50, 0xff}))
}

func TestDistance(t *testing.T) {
	black := FromRGB(0, 0, 0)
	white := FromRGB(255, 255, 255)
	grey := FromRGB(128, 128, 128)

	assert.Equal(t, 0.0, black.Distance(black))
	assert.Equal(t, black.Distance(white), white.Distance(black))
	assert.Less(t, black.Distance(grey), black.Distance(white))
	assert.InDelta(t, 1.0, black.Distance(white), 0.01)
}

func TestMean(t *testing.T) {
	a := Color{0.2, 0.1, -0.1}
	b := Color{0.6, -0.1, 0.3}

	m, ok := Mean([]Color{a, b}, []int{1, 3})
	assert.True(t, ok)
	assert.InDelta(t, 0.5, m.L, 1e-9)
	assert.InDelta(t, -0.05, m.A, 1e-9)
	assert.InDelta(t, 0.2, m.B, 1e-9)

	_, ok = Mean([]Color{a}, []int{0})
	assert.False(t, ok)
}
