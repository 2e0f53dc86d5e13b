/*
Package nesimg is a library for turning images into NES background graphics.

Images are converted with the quantize package into tile data limited to the
four subpalettes the NES can display at once, and exported alongside the
source image as a PNG preview, a JSON palette description and CHR tile data.
*/
package nesimg

import (
	"context"
	"image"
	"log"

	"github.com/bodgit/nesimg/nes"
	"github.com/bodgit/nesimg/quantize"
)

// Converter converts images against a hardware palette.
type Converter struct {
	palette *nes.Palette
	opts    quantize.Options
	db      *ExportDB
	logger  *log.Logger
}

// New returns a Converter. db may be nil in which case exports are not
// recorded.
func New(palette *nes.Palette, opts quantize.Options, db *ExportDB, logger *log.Logger) *Converter {
	return &Converter{
		palette: palette,
		opts:    opts,
		db:      db,
		logger:  logger,
	}
}

// Convert converts m.
func (c *Converter) Convert(ctx context.Context, m image.Image) (*quantize.Result, error) {
	b := m.Bounds()
	c.logger.Printf("Converting %dx%d image\n", b.Dx(), b.Dy())

	r, err := quantize.Convert(ctx, m, c.palette, c.opts)
	if err != nil {
		return nil, err
	}

	misses := 0
	for _, n := range r.Misses {
		if n > 0 {
			misses++
		}
	}
	c.logger.Printf("Kept score %.4f of %d attempts, %d of %d tiles lost colors\n", r.Score, len(r.Scores), misses, len(r.Tiles))

	return r, nil
}

// Outcome is the result of an asynchronous conversion.
type Outcome struct {
	Result *quantize.Result
	Err    error
}

// ConvertAsync converts m on a separate goroutine. The returned channel
// receives exactly one Outcome and is then closed.
func (c *Converter) ConvertAsync(ctx context.Context, m image.Image) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		r, err := c.Convert(ctx, m)
		out <- Outcome{Result: r, Err: err}
	}()
	return out
}
