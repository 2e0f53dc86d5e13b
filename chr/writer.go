package chr

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/bodgit/nesimg/nes"
)

var (
	errBadSize  = errors.New("chr: image is wrong size")
	errBadPixel = errors.New("chr: invalid pixel color")
)

type encoder struct {
	w io.Writer
}

func (e *encoder) encode(m *Image) error {
	var hdr [headerBytes]byte
	binary.LittleEndian.PutUint16(hdr[0:], uint16(m.TilesX))
	binary.LittleEndian.PutUint16(hdr[2:], uint16(m.TilesY))
	if _, err := e.w.Write(hdr[:]); err != nil {
		return err
	}

	// Write out pixel information
	if _, err := e.w.Write(m.Patterns()); err != nil {
		return err
	}

	// Write out subpalette indices
	if _, err := e.w.Write(m.Tiles); err != nil {
		return err
	}

	// Write out the palette
	if _, err := e.w.Write(m.Palette[:]); err != nil {
		return err
	}

	return nil
}

func check(m *Image) error {
	if m.TilesX <= 0 || m.TilesY <= 0 || m.TilesX > maxTilesPerSide || m.TilesY > maxTilesPerSide {
		return errBadSize
	}
	if len(m.Pix) != m.TilesX*m.TilesY*tilePixels || len(m.Tiles) != m.TilesX*m.TilesY {
		return errBadSize
	}
	for _, c := range m.Pix {
		if c >= colorsPerTile {
			return errBadPixel
		}
	}
	for _, t := range m.Tiles {
		if t >= maxSubpalettes {
			return errBadPalette
		}
	}
	for _, c := range m.Palette {
		if c >= nes.NumColors {
			return errBadColor
		}
	}
	return nil
}

// Encode writes the Image m to w in CHR format.
func Encode(w io.Writer, m *Image) error {
	if err := check(m); err != nil {
		return err
	}

	e := encoder{w: w}

	return e.encode(m)
}
