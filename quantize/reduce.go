package quantize

import (
	"context"
	"image"
	"image/color"
	"math"
	"math/rand"
	"sync"

	"github.com/bodgit/nesimg/lab"
	mediancut "github.com/ericpauley/go-quantize/quantize"
)

type centroids [NumColors]lab.Color

// reduction is the result of one clustering run; the label of every distinct
// color and the summed pixel distance to the assigned centroids.
type reduction struct {
	centroids centroids
	labels    []int
	score     float64
	scores    []float64
}

// Return the index of the nearest centroid, lowest index on a tie
func nearest(c lab.Color, cs *centroids) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for i := range cs {
		if d := c.Distance(cs[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

func label(h *histogram, cs *centroids, labels []int) float64 {
	var score float64
	for i, c := range h.colors {
		l, d := nearest(c, cs)
		labels[i] = l
		score += d * float64(h.counts[i])
	}
	return score
}

// Pick an index with probability proportional to its weight
func pick(rng *rand.Rand, weights []float64, total float64) int {
	r := rng.Float64() * total
	last := 0
	var acc float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if r < acc {
			return i
		}
	}
	return last
}

// spread chooses the remaining centroids k-means++ style, each new centroid
// picked with probability proportional to its pixel weighted squared distance
// from the nearest chosen one. Once every pixel is covered exactly the rest
// are drawn by pixel weight alone and so duplicate existing centroids.
func spread(h *histogram, rng *rand.Rand, chosen []lab.Color) centroids {
	var cs centroids
	n := copy(cs[:], chosen)

	weights := make([]float64, len(h.colors))
	dist := make([]float64, len(h.colors))
	for i := range dist {
		dist[i] = math.Inf(1)
	}

	covered := 0
	for ; n < NumColors; n++ {
		var total float64
		for i, c := range h.colors {
			for _, k := range cs[covered:n] {
				if d := c.Distance(k); d*d < dist[i] {
					dist[i] = d * d
				}
			}
			if n == 0 {
				weights[i] = float64(h.counts[i])
			} else {
				weights[i] = dist[i] * float64(h.counts[i])
			}
			total += weights[i]
		}
		covered = n
		if total == 0 {
			for i := range weights {
				weights[i] = float64(h.counts[i])
				total += weights[i]
			}
		}
		cs[n] = h.colors[pick(rng, weights, total)]
	}
	return cs
}

func medianCut(m image.Image) []lab.Color {
	q := mediancut.MedianCutQuantizer{}
	p := q.Quantize(make(color.Palette, 0, NumColors), m)
	cs := make([]lab.Color, 0, len(p))
	for _, c := range p {
		cs = append(cs, lab.FromColor(c))
	}
	return cs
}

// kmeans runs Lloyd's algorithm from the given centroids. Running out of
// iterations is not an error, the result is scored as it stands.
func kmeans(ctx context.Context, h *histogram, cs centroids, maxIterations int, threshold float64) (reduction, error) {
	labels := make([]int, len(h.colors))
	members := make([][]lab.Color, NumColors)
	weights := make([][]int, NumColors)

	for iter := 0; iter < maxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return reduction{}, err
		}

		label(h, &cs, labels)

		for i := range members {
			members[i] = members[i][:0]
			weights[i] = weights[i][:0]
		}
		for i, l := range labels {
			members[l] = append(members[l], h.colors[i])
			weights[l] = append(weights[l], h.counts[i])
		}

		var moved float64
		for i := range cs {
			// Empty clusters keep their centroid
			m, ok := lab.Mean(members[i], weights[i])
			if !ok {
				continue
			}
			if d := m.Distance(cs[i]); d > moved {
				moved = d
			}
			cs[i] = m
		}

		if moved <= threshold {
			break
		}
	}

	score := label(h, &cs, labels)
	return reduction{
		centroids: cs,
		labels:    labels,
		score:     score,
	}, nil
}

// reduce clusters the histogram down to NumColors colors. Each attempt is an
// independent run with its own seed; the lowest score wins, earliest attempt
// on a tie.
func reduce(ctx context.Context, h *histogram, m image.Image, opts Options) (reduction, error) {
	seeds := make([]centroids, 0, opts.Attempts+1)
	for i := 0; i < opts.Attempts; i++ {
		rng := rand.New(rand.NewSource(opts.Seed + int64(i)))
		seeds = append(seeds, spread(h, rng, nil))
	}
	if opts.MedianCut {
		rng := rand.New(rand.NewSource(opts.Seed + int64(opts.Attempts)))
		seeds = append(seeds, spread(h, rng, medianCut(m)))
	}

	results := make([]reduction, len(seeds))
	errs := make([]error, len(seeds))

	var wg sync.WaitGroup
	sem := make(chan struct{}, opts.Workers)
	for i, s := range seeds {
		wg.Add(1)
		go func(i int, s centroids) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i], errs[i] = kmeans(ctx, h, s, opts.MaxIterations, opts.Threshold)
		}(i, s)
	}
	wg.Wait()

	return best(results, errs)
}

func best(results []reduction, errs []error) (reduction, error) {
	scores := make([]float64, len(results))
	winner := -1
	for i, r := range results {
		if errs[i] != nil {
			return reduction{}, errs[i]
		}
		scores[i] = r.score
		if !finite(r.score) {
			continue
		}
		if winner < 0 || r.score < results[winner].score {
			winner = i
		}
	}
	if winner < 0 {
		return reduction{}, ErrNoScore
	}
	r := results[winner]
	r.scores = scores
	return r, nil
}
