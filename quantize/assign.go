package quantize

import "math"

// Group is one subpalette's worth of foreground slots.
type Group [GroupSize]int

func (g Group) set() colorSet {
	var s colorSet
	for _, i := range g {
		s |= 1 << uint(i)
	}
	return s
}

// Cost of putting j in the same group as i, lower is better. Colors that
// never share a tile cost infinity so are only picked when nothing else is
// left.
func cost(g *Graph, i, j int) float64 {
	if w := g.Weight(i, j); w > 0 {
		return 1 / float64(w)
	}
	return math.Inf(1)
}

// assignSubpalettes splits the 12 foreground slots into NumGroups groups.
//
// This is a greedy nearest neighbor search and gives no guarantee of the best
// split. The pool starts as slots 1 to 12 in order. Each group is seeded with
// the last slot left in the pool, then filled with whichever remaining slots
// have the lowest cost to the seed, the earliest in the pool winning a tie.
// There is no backtracking.
func assignSubpalettes(g Graph) [NumGroups]Group {
	pool := make([]int, 0, numForeground)
	for i := 1; i < NumColors; i++ {
		pool = append(pool, i)
	}

	var groups [NumGroups]Group
	for n := range groups {
		seed := pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		groups[n][0] = seed

		for k := 1; k < GroupSize; k++ {
			best, bestCost := 0, math.Inf(1)
			for i, j := range pool {
				if c := cost(&g, seed, j); c < bestCost {
					best, bestCost = i, c
				}
			}
			groups[n][k] = pool[best]
			pool = append(pool[:best], pool[best+1:]...)
		}
	}
	return groups
}
