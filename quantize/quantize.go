/*
Package quantize reduces an arbitrary RGB image to something the NES can
display.

The image is split into 8 by 8 tiles. The NES can show four subpalettes of
four colors at once where the first color of each subpalette is a shared
background color, and each tile can use only one of these subpalettes. The
source colors are clustered down to 13; the most common becomes the background
and the other 12 are split into four groups of three, keeping colors that
appear in the same tiles together. Each reduced color is then snapped to the
hardware table, every tile picks the subpalette covering most of its colors
and every pixel is redrawn with the nearest color from its tile's subpalette.
*/
package quantize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"runtime"
	"time"

	"github.com/bodgit/nesimg/nes"
)

const (
	tileWidth  = 8
	tileHeight = tileWidth

	// NumColors is the number of reduced colors, the background plus
	// NumGroups groups of GroupSize colors
	NumColors = 1 + NumGroups*GroupSize
	// NumGroups is the number of subpalettes
	NumGroups = 4
	// GroupSize is the number of non-background colors in a subpalette
	GroupSize     = 3
	numForeground = NumColors - 1
)

var (
	// ErrNotTileAligned is returned if either image dimension is not a
	// multiple of 8
	ErrNotTileAligned = errors.New("quantize: image is not a multiple of 8 pixels")
	// ErrEmptyImage is returned for an image with no pixels
	ErrEmptyImage = errors.New("quantize: image is empty")
	// ErrNoScore is returned if no clustering attempt produced a usable score
	ErrNoScore = errors.New("quantize: no clustering attempt could be scored")
)

// Stage identifies a step of the conversion.
type Stage int

// The stages in the order they run.
const (
	StageValidate Stage = iota
	StageReduce
	StageBackground
	StageAdjacency
	StageAssign
	StageMap
	StageSelect
	StageRequantize
)

var stageNames = [...]string{
	StageValidate:   "validate",
	StageReduce:     "reduce",
	StageBackground: "background",
	StageAdjacency:  "adjacency",
	StageAssign:     "assign",
	StageMap:        "map",
	StageSelect:     "select",
	StageRequantize: "requantize",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Error records the stage a conversion failed at.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("quantize: %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func stageError(s Stage, err error) error {
	return &Error{Stage: s, Err: err}
}

// Options controls the clustering.
type Options struct {
	// Attempts is the number of independently seeded clustering runs, the
	// lowest scoring run wins
	Attempts int
	// MaxIterations bounds each clustering run
	MaxIterations int
	// Threshold is the largest centroid movement, in L*a*b* units, that
	// still counts as converged
	Threshold float64
	// Seed is the seed of the first attempt, attempt n uses Seed+n
	Seed int64
	// MedianCut adds one attempt seeded from a median cut palette
	MedianCut bool
	// Workers is the number of attempts run at once
	Workers int
}

// DefaultOptions returns the options used by the editor.
func DefaultOptions() Options {
	return Options{
		Attempts:      5,
		MaxIterations: 300,
		Threshold:     1e-3,
		Seed:          time.Now().UnixNano(),
		Workers:       runtime.NumCPU(),
	}
}

func (o Options) normalize() Options {
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 1
	}
	if o.Threshold < 0 {
		o.Threshold = 0
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

func validate(m image.Image) error {
	b := m.Bounds()
	if b.Empty() {
		return ErrEmptyImage
	}
	if b.Dx()%tileWidth != 0 || b.Dy()%tileHeight != 0 {
		return ErrNotTileAligned
	}
	return nil
}

// Convert runs the whole conversion of m against the hardware palette hw.
// Nothing is returned unless every stage succeeds.
func Convert(ctx context.Context, m image.Image, hw *nes.Palette, opts Options) (*Result, error) {
	if err := validate(m); err != nil {
		return nil, stageError(StageValidate, err)
	}
	if hw == nil || hw.Len() == 0 {
		return nil, stageError(StageValidate, nes.ErrEmptyPalette)
	}
	opts = opts.normalize()

	b := m.Bounds()
	g := grid{tilesX: b.Dx() / tileWidth, tilesY: b.Dy() / tileHeight}

	h := newHistogram(m)

	red, err := reduce(ctx, h, m, opts)
	if err != nil {
		return nil, stageError(StageReduce, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, stageError(StageBackground, err)
	}
	palette, labels := selectBackground(red.centroids, red.labels, h.counts)

	if err := ctx.Err(); err != nil {
		return nil, stageError(StageAdjacency, err)
	}
	pixels := h.pixelLabels(labels)
	tiles := analyzeTiles(g, pixels)
	graph := buildGraph(tiles)

	if err := ctx.Err(); err != nil {
		return nil, stageError(StageAssign, err)
	}
	groups := assignSubpalettes(graph)

	subpalettes, err := mapSubpalettes(hw, palette, groups)
	if err != nil {
		return nil, stageError(StageMap, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, stageError(StageSelect, err)
	}
	assignment, misses := selectTilePalettes(tiles, groups)

	if err := ctx.Err(); err != nil {
		return nil, stageError(StageRequantize, err)
	}
	pix := requantize(g, hw, palette, pixels, assignment, subpalettes, opts.Workers)

	return &Result{
		Width:       b.Dx(),
		Height:      b.Dy(),
		TilesX:      g.tilesX,
		TilesY:      g.tilesY,
		Reduced:     palette,
		Groups:      groups,
		Subpalettes: subpalettes,
		Tiles:       assignment,
		Misses:      misses,
		Pix:         pix,
		Score:       red.score,
		Scores:      red.scores,
		hw:          hw,
	}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
