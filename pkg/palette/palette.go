// Package palette reduces an image's colours to a small palette and labels
// every pixel with a palette entry.
//
// # Overview
//
// Colours are first grouped by density with [DBSCAN]. The resulting groups
// are then condensed to the requested palette size with weighted k-means
// ([Condense]). DBSCAN needs an eps and a minimum neighbourhood size that
// suit the image, so [AssignColors] draws several random parameter pairs and
// keeps the one whose palette stays closest to the original pixels.
//
// All randomness comes from a seeded generator, so a fixed seed always gives
// the same palette.
package palette

import (
	"errors"
	"image/color"
	"math"
	"math/rand/v2"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidTarget is returned when the requested palette size is not positive.
var ErrInvalidTarget = errors.New("palette: target size must be positive")

// Defaults of the clustering search.
const (
	DefaultSeed       = uint64(42)
	DefaultIterations = 10
	DefaultSampleRate = 0.1
)

const (
	minEps    = 0.1
	maxEps    = 5.0
	minMinPts = 2
	maxMinPts = 10

	kmeansRounds = 50
)

// Option configures [AssignColors].
type Option func(*options)

type options struct {
	seed       uint64
	iterations int
	sampleRate float64
}

// WithSeed sets the random seed. The default is 42.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithIterations sets how many DBSCAN parameter draws are tried. The default is 10.
func WithIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.iterations = n
		}
	}
}

// WithSampleRate sets the share of pixels used to score a draw. The default is 0.1.
func WithSampleRate(r float64) Option {
	return func(o *options) {
		if r > 0 && r <= 1 {
			o.sampleRate = r
		}
	}
}

// AssignColors labels each pixel with an index into the returned palette,
// which has at most target colours.
func AssignColors(pixels []color.Color, target int, opts ...Option) ([]int, []color.RGBA, error) {
	if target <= 0 {
		return nil, nil, ErrInvalidTarget
	}
	if len(pixels) == 0 {
		return []int{}, []color.RGBA{}, nil
	}
	o := options{seed: DefaultSeed, iterations: DefaultIterations, sampleRate: DefaultSampleRate}
	for _, opt := range opts {
		opt(&o)
	}

	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	points := toPoints(pixels)
	samples := max(int(float64(len(points))*o.sampleRate), 1)

	var (
		bestLabels []int
		bestColors []Point
		bestDiff   = math.Inf(1)
	)
	for range o.iterations {
		eps := minEps + rng.Float64()*(maxEps-minEps)
		minPts := minMinPts + rng.IntN(maxMinPts-minMinPts+1)

		labels, colors := cluster(points, eps, minPts, target, rng)
		diff := difference(points, labels, colors, rng.Perm(len(points))[:samples])
		if diff < bestDiff {
			bestDiff, bestLabels, bestColors = diff, labels, colors
		}
	}

	out := make([]color.RGBA, len(bestColors))
	for i, c := range bestColors {
		out[i] = toRGBA(c)
	}
	return bestLabels, out, nil
}

// cluster runs one DBSCAN draw and condenses the groups to target colours.
func cluster(points []Point, eps float64, minPts, target int, rng *rand.Rand) ([]int, []Point) {
	labels := DBSCAN(points, eps, minPts, 0)
	centers, ids, sizes := Centroids(points, labels)

	group := make(map[int]int, len(ids))
	for g, id := range ids {
		group[id] = g
	}
	weights := make([]float64, len(sizes))
	for i, s := range sizes {
		weights[i] = float64(s)
	}

	assign, colors := Condense(centers, weights, target, rng)
	out := make([]int, len(points))
	for i, l := range labels {
		out[i] = assign[group[l]]
	}
	return out, colors
}

// difference is the mean RGB distance between sampled pixels and their
// palette colour.
func difference(points []Point, labels []int, colors []Point, sample []int) float64 {
	var total float64
	for _, i := range sample {
		total += toColorful(points[i]).DistanceRgb(toColorful(colors[labels[i]])) * 255
	}
	return total / float64(len(sample))
}

// Condense groups centers into at most k clusters with k-means weighted by
// weights, seeded k-means++ style. It returns the cluster of every input
// center and the cluster means. When there are no more than k centers they
// are returned unchanged.
func Condense(centers []Point, weights []float64, k int, rng *rand.Rand) ([]int, []Point) {
	assign := make([]int, len(centers))
	if len(centers) <= k {
		for i := range assign {
			assign[i] = i
		}
		return assign, append([]Point(nil), centers...)
	}

	means := seed(centers, weights, k, rng)
	for range kmeansRounds {
		changed := false
		for i, c := range centers {
			best := nearest(c, means)
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}

		sums := make([]Point, k)
		mass := make([]float64, k)
		for i, c := range centers {
			a := assign[i]
			for d := range 3 {
				sums[a][d] += c[d] * weights[i]
			}
			mass[a] += weights[i]
		}
		for j := range means {
			if mass[j] > 0 {
				means[j] = Point{sums[j][0] / mass[j], sums[j][1] / mass[j], sums[j][2] / mass[j]}
			}
		}
		if !changed {
			break
		}
	}
	return assign, means
}

// seed picks k initial means: the first with probability proportional to
// weight, the rest proportional to weight times squared distance to the
// closest mean chosen so far.
func seed(centers []Point, weights []float64, k int, rng *rand.Rand) []Point {
	means := make([]Point, 0, k)
	means = append(means, centers[pick(weights, rng)])

	d2 := make([]float64, len(centers))
	for len(means) < k {
		for i, c := range centers {
			d := c.dist(means[nearest(c, means)])
			d2[i] = weights[i] * d * d
		}
		means = append(means, centers[pick(d2, rng)])
	}
	return means
}

// pick draws an index with probability proportional to w. When every weight
// is zero it returns the first index.
func pick(w []float64, rng *rand.Rand) int {
	var total float64
	for _, v := range w {
		total += v
	}
	if total <= 0 {
		return 0
	}
	r := rng.Float64() * total
	for i, v := range w {
		r -= v
		if r < 0 {
			return i
		}
	}
	return len(w) - 1
}

func nearest(p Point, means []Point) int {
	best, bestDist := 0, math.Inf(1)
	for j, m := range means {
		if d := p.dist(m); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

func toPoints(pixels []color.Color) []Point {
	out := make([]Point, len(pixels))
	for i, px := range pixels {
		c, ok := colorful.MakeColor(px)
		if !ok {
			continue
		}
		r, g, b := c.RGB255()
		out[i] = Point{float64(r), float64(g), float64(b)}
	}
	return out
}

func toColorful(p Point) colorful.Color {
	return colorful.Color{R: p[0] / 255, G: p[1] / 255, B: p[2] / 255}
}

func toRGBA(p Point) color.RGBA {
	r, g, b := toColorful(p).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
