package quantize

import "github.com/bodgit/nesimg/lab"

// Palette is the reduced palette. Slot 0 is the background color, slots 1 to
// 12 are the foreground colors.
type Palette [NumColors]lab.Color

// selectBackground moves the centroid covering the most pixels to slot 0,
// the lowest index wins a tie. The other centroids keep their relative order.
// It returns the reordered palette and the labels renumbered to match.
func selectBackground(cs centroids, labels []int, counts []int) (Palette, []int) {
	var weight [NumColors]int
	for i, l := range labels {
		weight[l] += counts[i]
	}

	bg := 0
	for i, w := range weight {
		if w > weight[bg] {
			bg = i
		}
	}

	var p Palette
	var order [NumColors]int
	p[0], order[bg] = cs[bg], 0
	n := 1
	for i, c := range cs {
		if i == bg {
			continue
		}
		p[n], order[i] = c, n
		n++
	}

	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = order[l]
	}
	return p, out
}
