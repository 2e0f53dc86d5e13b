package quantize

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"

	"github.com/bodgit/nesimg/lab"
	"github.com/bodgit/nesimg/nes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		Attempts:      3,
		MaxIterations: 100,
		Threshold:     1e-6,
		Seed:          1,
		MedianCut:     true,
		Workers:       2,
	}
}

func randomImage(w, h, colors int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	p := make([]color.RGBA, colors)
	for i := range p {
		p[i] = color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 0xff}
	}
	m := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetRGBA(x, y, p[rng.Intn(colors)])
		}
	}
	return m
}

func TestConvertValidate(t *testing.T) {
	tables := []struct {
		image   image.Image
		palette *nes.Palette
		err     error
	}{
		{image.NewRGBA(image.Rect(0, 0, 12, 8)), nes.Default(), ErrNotTileAligned},
		{image.NewRGBA(image.Rect(0, 0, 8, 20)), nes.Default(), ErrNotTileAligned},
		{image.NewRGBA(image.Rect(0, 0, 0, 0)), nes.Default(), ErrEmptyImage},
		{image.NewRGBA(image.Rect(0, 0, 8, 8)), nil, nes.ErrEmptyPalette},
		{image.NewRGBA(image.Rect(0, 0, 8, 8)), &nes.Palette{}, nes.ErrEmptyPalette},
	}

	for _, table := range tables {
		r, err := Convert(context.Background(), table.image, table.palette, testOptions())
		assert.Nil(t, r)
		assert.True(t, errors.Is(err, table.err))

		var qe *Error
		if assert.True(t, errors.As(err, &qe)) {
			assert.Equal(t, StageValidate, qe.Stage)
		}
	}
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Convert(ctx, randomImage(16, 16, 20, 1), nes.Default(), testOptions())
	assert.True(t, errors.Is(err, context.Canceled))

	var qe *Error
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, StageReduce, qe.Stage)
	assert.Equal(t, "quantize: reduce: context canceled", err.Error())
}

func TestConvertProperties(t *testing.T) {
	hw := nes.Default()
	src := randomImage(32, 24, 40, 2)

	r, err := Convert(context.Background(), src, hw, testOptions())
	require.NoError(t, err)

	assert.Equal(t, 32, r.Width)
	assert.Equal(t, 24, r.Height)
	assert.Equal(t, 4, r.TilesX)
	assert.Equal(t, 3, r.TilesY)

	// Every tile has exactly one subpalette
	require.Len(t, r.Tiles, r.TilesX*r.TilesY)
	require.Len(t, r.Misses, r.TilesX*r.TilesY)
	for _, s := range r.Tiles {
		assert.Less(t, int(s), NumGroups)
	}

	// All subpalettes share the background
	for _, sp := range r.Subpalettes {
		assert.Equal(t, r.Subpalettes[0][0], sp[0])
	}

	// Groups partition the foreground slots
	seen := make(map[int]int)
	for _, g := range r.Groups {
		for _, i := range g {
			seen[i]++
		}
	}
	require.Len(t, seen, numForeground)
	for i := 1; i < NumColors; i++ {
		assert.Equal(t, 1, seen[i])
	}

	// The kept score is the lowest
	require.Len(t, r.Scores, 4)
	for _, s := range r.Scores {
		assert.LessOrEqual(t, r.Score, s)
	}

	// Every output pixel is a hardware color from its tile's subpalette
	m := r.Image()
	require.Equal(t, src.Bounds(), m.Bounds())
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			hwi := r.HardwareAt(x, y)
			assert.Contains(t, r.Subpalettes[r.Tile(x/8, y/8)], hwi)
			assert.Equal(t, hw.RGB(int(hwi)), m.At(x, y))
			_, ok := hw.Index(m.At(x, y))
			assert.True(t, ok)
		}
	}

	colors := r.Colors()
	assert.Equal(t, r.Subpalettes[0][0], colors[0])
	assert.Equal(t, r.Subpalettes[2][1], colors[7])
	full := r.Full16()
	for i := 0; i < len(full); i += 4 {
		assert.Equal(t, colors[0], full[i])
	}
	assert.Equal(t, colors[12], full[15])

	c := r.CHR()
	assert.Equal(t, r.Pix, c.Pix)
	assert.Equal(t, r.Tiles, c.Tiles)
	assert.Equal(t, full, c.Palette)
}

// 16 by 16 image where color X covers 136 pixels and color Y covers 120
func TestBackgroundChecker(t *testing.T) {
	x := color.RGBA{200, 40, 40, 0xff}
	y := color.RGBA{20, 20, 200, 0xff}
	m := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < 256; i++ {
		c := y
		if i < 136 {
			c = x
		}
		m.SetRGBA(i%16, i/16, c)
	}

	r, err := Convert(context.Background(), m, nes.Default(), testOptions())
	require.NoError(t, err)

	want := lab.FromColor(x)
	assert.InDelta(t, want.L, r.Reduced[0].L, 1e-9)
	assert.InDelta(t, want.A, r.Reduced[0].A, 1e-9)
	assert.InDelta(t, want.B, r.Reduced[0].B, 1e-9)

	bg, _, err := nes.Default().Nearest(want)
	require.NoError(t, err)
	assert.Equal(t, uint8(bg), r.HardwareAt(0, 0))

	// Scores are near zero; both colors are centroids
	assert.InDelta(t, 0, r.Score, 1e-6)
}

func TestSelectBackground(t *testing.T) {
	var cs centroids
	for i := range cs {
		cs[i] = lab.Color{L: float64(i) / 100}
	}
	labels := []int{0, 4, 4, 7}
	counts := []int{10, 6, 6, 12}

	p, out := selectBackground(cs, labels, counts)
	assert.Equal(t, cs[4], p[0])
	assert.Equal(t, cs[0], p[1])
	assert.Equal(t, cs[3], p[4])
	assert.Equal(t, cs[5], p[5])
	assert.Equal(t, []int{1, 0, 0, 7}, out)

	// Equal weights go to the lowest index
	p, _ = selectBackground(cs, []int{2, 9}, []int{5, 5})
	assert.Equal(t, cs[2], p[0])
}

// 13 colors, one per 8 pixel wide column of tiles
func TestReduceExact(t *testing.T) {
	palette := make([]color.RGBA, NumColors)
	rng := rand.New(rand.NewSource(4))
	for i := range palette {
		palette[i] = color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 0xff}
	}
	m := image.NewRGBA(image.Rect(0, 0, NumColors*8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < NumColors*8; x++ {
			m.SetRGBA(x, y, palette[x/8])
		}
	}

	h := newHistogram(m)
	require.Len(t, h.colors, NumColors)

	red, err := reduce(context.Background(), h, m, testOptions())
	require.NoError(t, err)
	assert.InDelta(t, 0, red.score, 1e-6)

	for _, c := range palette {
		want := lab.FromColor(c)
		found := false
		for _, got := range red.centroids {
			if want.Distance(got) < 1e-9 {
				found = true
			}
		}
		assert.True(t, found, "no centroid for %v", c)
	}
}

func TestReduceFewColors(t *testing.T) {
	m := randomImage(8, 8, 2, 5)
	h := newHistogram(m)

	red, err := reduce(context.Background(), h, m, testOptions())
	require.NoError(t, err)
	assert.InDelta(t, 0, red.score, 1e-6)
	assert.Len(t, red.labels, len(h.colors))
}

func TestBest(t *testing.T) {
	results := []reduction{{score: 3}, {score: 1}, {score: 2}, {score: 1}}
	r, err := best(results, make([]error, len(results)))
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.score)
	assert.Equal(t, []float64{3, 1, 2, 1}, r.scores)

	results = []reduction{{score: math.NaN()}, {score: math.Inf(1)}, {score: 4}}
	r, err = best(results, make([]error, len(results)))
	require.NoError(t, err)
	assert.Equal(t, 4.0, r.score)

	results = []reduction{{score: math.NaN()}}
	_, err = best(results, make([]error, len(results)))
	assert.Equal(t, ErrNoScore, err)

	boom := errors.New("boom")
	_, err = best([]reduction{{score: 1}}, []error{boom})
	assert.Equal(t, boom, err)
}

func TestAnalyzeTiles(t *testing.T) {
	g := grid{tilesX: 2, tilesY: 1}
	pixels := make([]uint8, 16*8)
	// First tile uses the background and slots 1 and 2
	pixels[1] = 1
	pixels[16*7+7] = 2
	// Second tile uses slot 3 alone
	for y := 0; y < 8; y++ {
		for x := 8; x < 16; x++ {
			pixels[y*16+x] = 3
		}
	}

	tiles := analyzeTiles(g, pixels)
	require.Len(t, tiles, 2)
	assert.Equal(t, []int{1, 2}, tiles[0].slots())
	assert.Equal(t, []int{3}, tiles[1].slots())
	assert.False(t, tiles[0].has(0))

	graph := buildGraph(tiles)
	assert.Equal(t, 1, graph.Weight(1, 2))
	assert.Equal(t, 1, graph.Weight(2, 1))
	assert.Equal(t, 0, graph.Weight(1, 3))
	for i := 0; i < NumColors; i++ {
		assert.Equal(t, 0, graph.Weight(0, i))
		assert.Equal(t, 0, graph.Weight(i, i))
	}
}

func TestBuildGraphCounts(t *testing.T) {
	a := colorSet(1<<1 | 1<<2 | 1<<3)
	b := colorSet(1<<1 | 1<<2)

	g := buildGraph([]colorSet{a, b, b, 0})
	assert.Equal(t, 3, g.Weight(1, 2))
	assert.Equal(t, 1, g.Weight(1, 3))
	assert.Equal(t, 1, g.Weight(3, 2))
}

func assertPartition(t *testing.T, groups [NumGroups]Group) {
	t.Helper()
	var s colorSet
	for _, g := range groups {
		for _, i := range g {
			require.True(t, i >= 1 && i < NumColors)
			require.False(t, s.has(i), "slot %d appears twice", i)
			s |= 1 << uint(i)
		}
	}
	assert.Equal(t, numForeground, s.len())
}

func TestAssignSubpalettes(t *testing.T) {
	var g Graph
	link := func(i, j, w int) {
		g[i][j], g[j][i] = w, w
	}
	link(12, 3, 5)
	link(12, 7, 2)
	link(12, 1, 1)

	groups := assignSubpalettes(g)
	assertPartition(t, groups)
	assert.Equal(t, Group{12, 3, 7}, groups[0])
	// No edges to the seed falls back to pool order
	assert.Equal(t, Group{11, 1, 2}, groups[1])
	assert.Equal(t, Group{10, 4, 5}, groups[2])
	assert.Equal(t, Group{9, 6, 8}, groups[3])
}

func TestAssignSubpalettesPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	for n := 0; n < 50; n++ {
		var g Graph
		for i := 1; i < NumColors; i++ {
			for j := i + 1; j < NumColors; j++ {
				w := rng.Intn(4)
				g[i][j], g[j][i] = w, w
			}
		}
		assertPartition(t, assignSubpalettes(g))
	}
	assertPartition(t, assignSubpalettes(Graph{}))
}

func TestMapSubpalettes(t *testing.T) {
	hw := nes.Default()
	var p Palette
	for i := range p {
		p[i] = hw.Lab(0x10 + i)
	}
	// Two reduced colors may share a hardware color
	p[5] = hw.Lab(0x11)

	groups := [NumGroups]Group{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10, 11, 12}}
	sp, err := mapSubpalettes(hw, p, groups)
	require.NoError(t, err)
	assert.Equal(t, Subpalette{0x10, 0x11, 0x12, 0x13}, sp[0])
	assert.Equal(t, Subpalette{0x10, 0x14, 0x11, 0x16}, sp[1])
	assert.Equal(t, Subpalette{0x10, 0x1a, 0x1b, 0x1c}, sp[3])

	_, err = mapSubpalettes(&nes.Palette{}, p, groups)
	assert.Equal(t, nes.ErrEmptyPalette, err)
}

func TestSelectTilePalettes(t *testing.T) {
	groups := [NumGroups]Group{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10, 11, 12}}
	tiles := []colorSet{
		// Four colors across two groups
		1<<1 | 1<<2 | 1<<3 | 1<<4,
		1<<1 | 1<<4 | 1<<5 | 1<<6,
		// Equal misses go to the lowest subpalette
		1<<7 | 1<<10,
		// Background only
		0,
		1 << 12,
	}

	assignment, misses := selectTilePalettes(tiles, groups)
	assert.Equal(t, []uint8{0, 1, 2, 0, 3}, assignment)
	assert.Equal(t, []int{1, 1, 1, 0, 0}, misses)
}

func TestConvertBackgroundOnly(t *testing.T) {
	m := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range m.Pix {
		m.Pix[i] = 0x40
	}

	r, err := Convert(context.Background(), m, nes.Default(), testOptions())
	require.NoError(t, err)
	require.Len(t, r.Tiles, 1)
	assert.Less(t, r.Tile(0, 0), NumGroups)
	assert.Equal(t, 0, r.Misses[0])
	for _, c := range r.Pix {
		assert.Equal(t, uint8(0), c)
	}
}

func TestRequantize(t *testing.T) {
	hw := nes.Default()
	g := grid{tilesX: 2, tilesY: 1}

	var p Palette
	p[0] = hw.Lab(0x0f)
	p[1] = hw.Lab(0x16)
	p[2] = hw.Lab(0x2a)
	p[3] = hw.Lab(0x05)
	subpalettes := [NumGroups]Subpalette{
		{0x0f, 0x16, 0x2a, 0x30},
		{0x0f, 0x06, 0x11, 0x21},
	}

	pixels := make([]uint8, 16*8)
	pixels[0] = 1
	pixels[1] = 2
	// Slot 3 is not in either subpalette; it lands on the nearest color
	pixels[8] = 3
	pixels[9] = 1

	out := requantize(g, hw, p, pixels, []uint8{0, 1}, subpalettes, 3)
	assert.Equal(t, uint8(0), out[2])
	assert.Equal(t, uint8(1), out[0])
	assert.Equal(t, uint8(2), out[1])
	assert.Equal(t, uint8(1), out[8])
	assert.Equal(t, uint8(1), out[9])
	assert.Equal(t, uint8(0), out[15])
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "requantize", StageRequantize.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
}
