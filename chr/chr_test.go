package chr

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/bodgit/nesimg/nes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() *Image {
	m := New(2, 1)
	for y := 0; y < tileHeight; y++ {
		for x := 0; x < 2*tileWidth; x++ {
			m.Pix[y*2*tileWidth+x] = uint8(x+y) % colorsPerTile
		}
	}
	m.Tiles[0], m.Tiles[1] = 0, 3
	m.Palette = [paletteBytes]uint8{
		0x0f, 0x1d, 0x2d, 0x3d,
		0x0f, 0x01, 0x11, 0x21,
		0x0f, 0x06, 0x16, 0x26,
		0x0f, 0x09, 0x19, 0x29,
	}
	return m
}

func TestPatterns(t *testing.T) {
	p := testImage().Patterns()
	require.Len(t, p, 2*tileBytes)

	// First row of the first tile is 0, 1, 2, 3, 0, 1, 2, 3
	assert.Equal(t, byte(0x55), p[0])
	assert.Equal(t, byte(0x33), p[tileHeight])

	// Second row is shifted by one pixel; 1, 2, 3, 0, ...
	assert.Equal(t, byte(0xaa), p[1])
	assert.Equal(t, byte(0x66), p[tileHeight+1])
}

func TestEncodeDecode(t *testing.T) {
	m := testImage()

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m))
	assert.Equal(t, headerBytes+2*tileBytes+2+paletteBytes, b.Len())

	cfg, err := DecodeConfig(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Width)
	assert.Equal(t, 8, cfg.Height)

	d, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, m, d)
}

func TestDecodeErrors(t *testing.T) {
	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, testImage()))
	data := b.Bytes()

	_, err := Decode(bytes.NewReader(data[:len(data)-1]))
	assert.Equal(t, errNotEnough, err)

	_, err = Decode(bytes.NewReader(append(append([]byte{}, data...), 0)))
	assert.Equal(t, errTooMuch, err)

	bad := append([]byte{}, data...)
	bad[headerBytes+2*tileBytes] = maxSubpalettes
	_, err = Decode(bytes.NewReader(bad))
	assert.Equal(t, errBadPalette, err)

	_, err = Decode(bytes.NewReader([]byte{0, 0, 1, 0}))
	assert.Equal(t, errBadSize, err)
}

func TestDecodeTruncatedHeader(t *testing.T) {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := Decode(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
	runtime.ReadMemStats(&after)

	assert.Equal(t, errNotEnough, err)
	// One row of 65535 tiles is about 5 MiB of buffers
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(16<<20))
}

func TestEncodeErrors(t *testing.T) {
	m := testImage()
	m.Pix[3] = colorsPerTile
	assert.Equal(t, errBadPixel, Encode(new(bytes.Buffer), m))

	m = testImage()
	m.Palette[5] = nes.NumColors
	assert.Equal(t, errBadColor, Encode(new(bytes.Buffer), m))

	m = testImage()
	m.Tiles = m.Tiles[:1]
	assert.Equal(t, errBadSize, Encode(new(bytes.Buffer), m))
}

func TestRender(t *testing.T) {
	m := testImage()
	hw := nes.Default()
	r := m.Render(hw)

	// Pixel (9, 0) is in the second tile, subpalette 3, color 1
	assert.Equal(t, uint8(13), r.ColorIndexAt(9, 0))
	assert.Equal(t, hw.RGB(0x09), r.At(9, 0))
	assert.Equal(t, hw.RGB(0x0f), r.At(0, 0))
}
