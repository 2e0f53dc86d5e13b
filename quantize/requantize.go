package quantize

import (
	"math"
	"sync"

	"github.com/bodgit/nesimg/lab"
	"github.com/bodgit/nesimg/nes"
)

// requantize returns, for every pixel, which of the four colors of its
// tile's subpalette is closest to the pixel's reduced color. The pixel's own
// group is not consulted; its color may not be in the tile's subpalette.
// Tile rows are processed concurrently.
func requantize(g grid, hw *nes.Palette, p Palette, pixels []uint8, tiles []uint8, subpalettes [NumGroups]Subpalette, workers int) []uint8 {
	// For every subpalette, the slot nearest to each reduced color
	var lookup [NumGroups][NumColors]uint8
	for n, sp := range subpalettes {
		var colors [4]lab.Color
		for k, i := range sp {
			colors[k] = hw.Lab(int(i))
		}
		for c := range p {
			best, bestDist := 0, math.Inf(1)
			for k := range colors {
				if d := p[c].Distance(colors[k]); d < bestDist {
					best, bestDist = k, d
				}
			}
			lookup[n][c] = uint8(best)
		}
	}

	out := make([]uint8, len(pixels))
	w := g.width()

	var wg sync.WaitGroup
	rows := make(chan int)
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ty := range rows {
				for y := ty * tileHeight; y < (ty+1)*tileHeight; y++ {
					for x := 0; x < w; x++ {
						n := tiles[ty*g.tilesX+x/tileWidth]
						out[y*w+x] = lookup[n][pixels[y*w+x]]
					}
				}
			}
		}()
	}
	for ty := 0; ty < g.tilesY; ty++ {
		rows <- ty
	}
	close(rows)
	wg.Wait()

	return out
}
