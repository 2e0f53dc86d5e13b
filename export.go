package nesimg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"os"

	"github.com/bodgit/nesimg/chr"
	"github.com/bodgit/nesimg/quantize"
)

const (
	pngSuffix     = ".export.png"
	paletteSuffix = ".pallet.json"
	chrSuffix     = ".chr"
)

// PaletteData is the JSON palette description written next to each source
// image. Colors holds the hardware color indices; the background followed by
// three per subpalette. TilePalettes holds the subpalette of each tile.
type PaletteData struct {
	Colors       [quantize.NumColors]uint8 `json:"colors"`
	TilePalettes []int                     `json:"tile_pallets"`
}

// NewPaletteData describes the palette of r.
func NewPaletteData(r *quantize.Result) PaletteData {
	d := PaletteData{
		Colors:       r.Colors(),
		TilePalettes: make([]int, len(r.Tiles)),
	}
	for i, t := range r.Tiles {
		d.TilePalettes[i] = int(t)
	}
	return d
}

// Exports holds the encoded forms of a conversion.
type Exports struct {
	PNG     []byte
	Palette []byte
	CHR     []byte
}

// Encode encodes r in each of the export formats.
func Encode(r *quantize.Result) (*Exports, error) {
	e := new(Exports)

	b := new(bytes.Buffer)
	if err := png.Encode(b, r.Image()); err != nil {
		return nil, err
	}
	e.PNG = b.Bytes()

	p, err := json.MarshalIndent(NewPaletteData(r), "", "  ")
	if err != nil {
		return nil, err
	}
	e.Palette = p

	b = new(bytes.Buffer)
	if err := chr.Encode(b, r.CHR()); err != nil {
		return nil, err
	}
	e.CHR = b.Bytes()

	return e, nil
}

// Write writes the exports next to the source file.
func (e *Exports) Write(file string) error {
	for suffix, b := range map[string][]byte{
		pngSuffix:     e.PNG,
		paletteSuffix: e.Palette,
		chrSuffix:     e.CHR,
	} {
		if err := os.WriteFile(file+suffix, b, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// ConvertFile converts the image at file and writes the exports next to it.
// If the Converter has an ExportDB the conversion is recorded.
func (c *Converter) ConvertFile(ctx context.Context, file string, crop bool) (*quantize.Result, error) {
	src, err := LoadSource(file, crop)
	if err != nil {
		return nil, err
	}
	return c.convertSource(ctx, src)
}

func (c *Converter) convertSource(ctx context.Context, src *Source) (*quantize.Result, error) {
	r, err := c.Convert(ctx, src.Image)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Path, err)
	}

	e, err := Encode(r)
	if err != nil {
		return nil, err
	}

	if err := e.Write(src.Path); err != nil {
		return nil, err
	}

	if c.db != nil {
		if err := c.db.Add(src, r, e.CHR); err != nil {
			return nil, err
		}
	}

	return r, nil
}
