package quantize

// selectTilePalettes picks a subpalette for every tile, the one missing the
// fewest of the tile's foreground colors, lowest index on a tie. A tile whose
// colors span groups keeps a non-zero miss count, which is returned per tile.
func selectTilePalettes(tiles []colorSet, groups [NumGroups]Group) ([]uint8, []int) {
	var sets [NumGroups]colorSet
	for n, g := range groups {
		sets[n] = g.set()
	}

	assignment := make([]uint8, len(tiles))
	misses := make([]int, len(tiles))
	for t, s := range tiles {
		best, bestMiss := 0, NumColors
		for n, g := range sets {
			if m := (s &^ g).len(); m < bestMiss {
				best, bestMiss = n, m
			}
		}
		assignment[t] = uint8(best)
		misses[t] = bestMiss
	}
	return assignment, misses
}
