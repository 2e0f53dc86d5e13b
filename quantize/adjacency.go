package quantize

import "math/bits"

type grid struct {
	tilesX, tilesY int
}

func (g grid) width() int {
	return g.tilesX * tileWidth
}

func (g grid) numTiles() int {
	return g.tilesX * g.tilesY
}

// colorSet is a bit set of reduced palette slots.
type colorSet uint16

func (s colorSet) has(i int) bool {
	return s&(1<<uint(i)) != 0
}

func (s colorSet) len() int {
	return bits.OnesCount16(uint16(s))
}

func (s colorSet) slots() []int {
	var out []int
	for i := 1; i < NumColors; i++ {
		if s.has(i) {
			out = append(out, i)
		}
	}
	return out
}

// analyzeTiles returns, for every tile in row-major order, the set of
// foreground slots used by its pixels. The background never appears.
func analyzeTiles(g grid, pixels []uint8) []colorSet {
	w := g.width()
	tiles := make([]colorSet, g.numTiles())
	for ty := 0; ty < g.tilesY; ty++ {
		for tx := 0; tx < g.tilesX; tx++ {
			var s colorSet
			for y := 0; y < tileHeight; y++ {
				row := (ty*tileHeight+y)*w + tx*tileWidth
				for _, l := range pixels[row : row+tileWidth] {
					s |= 1 << l
				}
			}
			tiles[ty*g.tilesX+tx] = s &^ 1
		}
	}
	return tiles
}

// Graph counts, for each pair of foreground slots, the number of tiles using
// both. It is symmetric and row and column 0 are always zero.
type Graph [NumColors][NumColors]int

// Weight returns the number of tiles using both i and j.
func (g *Graph) Weight(i, j int) int {
	return g[i][j]
}

func buildGraph(tiles []colorSet) Graph {
	var g Graph
	for _, s := range tiles {
		slots := s.slots()
		for a := 0; a < len(slots); a++ {
			for b := a + 1; b < len(slots); b++ {
				g[slots[a]][slots[b]]++
				g[slots[b]][slots[a]]++
			}
		}
	}
	return g
}
