package chr

import (
	"encoding/binary"
	"errors"
	"image"
	"io"

	"github.com/bodgit/nesimg/nes"
)

var (
	errNotEnough  = errors.New("chr: not enough image data")
	errTooMuch    = errors.New("chr: too much image data")
	errBadPalette = errors.New("chr: invalid palette index")
	errBadColor   = errors.New("chr: invalid hardware color")
)

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

type decoder struct {
	r io.Reader

	image *Image
}

func (d *decoder) readHeader() error {
	var hdr [headerBytes]byte
	if err := readFull(d.r, hdr[:]); err != nil {
		return err
	}
	tx := int(binary.LittleEndian.Uint16(hdr[0:]))
	ty := int(binary.LittleEndian.Uint16(hdr[2:]))
	if tx == 0 || ty == 0 {
		return errBadSize
	}
	d.image = &Image{TilesX: tx, TilesY: ty}
	return nil
}

// readPatterns reads one row of tiles at a time so the pixel buffer only
// grows as pattern data actually arrives.
func (d *decoder) readPatterns() error {
	m := d.image
	w := m.TilesX * tileWidth
	b := make([]byte, m.TilesX*tileBytes)
	row := make([]uint8, w*tileHeight)
	for ty := 0; ty < m.TilesY; ty++ {
		if err := readFull(d.r, b); err != nil {
			return err
		}
		for tx := 0; tx < m.TilesX; tx++ {
			lo := b[tx*tileBytes : tx*tileBytes+tileHeight]
			hi := b[tx*tileBytes+tileHeight : (tx+1)*tileBytes]
			for y := 0; y < tileHeight; y++ {
				for x := 0; x < tileWidth; x++ {
					shift := uint(tileWidth - 1 - x)
					row[y*w+tx*tileWidth+x] = lo[y]>>shift&0x01 | (hi[y]>>shift&0x01)<<1
				}
			}
		}
		m.Pix = append(m.Pix, row...)
	}
	return nil
}

func (d *decoder) readTiles() error {
	m := d.image
	m.Tiles = make([]uint8, m.TilesX*m.TilesY)
	if err := readFull(d.r, m.Tiles); err != nil {
		return err
	}
	for _, t := range m.Tiles {
		if t >= maxSubpalettes {
			return errBadPalette
		}
	}
	return nil
}

func (d *decoder) readPalette() error {
	m := d.image
	if err := readFull(d.r, m.Palette[:]); err != nil {
		return err
	}
	for _, c := range m.Palette {
		if c >= nes.NumColors {
			return errBadColor
		}
	}
	return nil
}

func (d *decoder) decode(r io.Reader, configOnly bool) error {
	d.r = r

	if err := d.readHeader(); err != nil {
		if err != io.ErrUnexpectedEOF {
			return err
		}
		return errNotEnough
	}

	if configOnly {
		return nil
	}

	for _, f := range []func() error{d.readPatterns, d.readTiles, d.readPalette} {
		if err := f(); err != nil {
			if err != io.ErrUnexpectedEOF {
				return err
			}
			return errNotEnough
		}
	}

	var tmp [1]byte
	if n, err := r.Read(tmp[:]); n != 0 || (err != io.EOF && err != io.ErrUnexpectedEOF) {
		if err != nil {
			return err
		}
		return errTooMuch
	}

	return nil
}

// Decode reads tile data from r.
func Decode(r io.Reader) (*Image, error) {
	var d decoder
	if err := d.decode(r, false); err != nil {
		return nil, err
	}
	return d.image, nil
}

// DecodeConfig returns the dimensions of the image without decoding the
// entire file.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var d decoder
	if err := d.decode(r, true); err != nil {
		return image.Config{}, err
	}
	b := d.image.Bounds()
	return image.Config{
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}
