package palette

import (
	"math"
	"slices"
)

// Labels with special meaning in DBSCAN output. Clusters are numbered from 1.
const (
	Noise      = -1
	Unassigned = 0
)

// Point is a colour in RGB space, each channel in [0, 255].
type Point [3]float64

func (p Point) dist(q Point) float64 {
	dr, dg, db := p[0]-q[0], p[1]-q[1], p[2]-q[2]
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// DBSCAN clusters points by density. Two points are neighbours when their
// distance is strictly below eps, and a point is a core point when it has at
// least minPts neighbours, itself included.
//
// Points are scanned in order. Once maxClusters-1 clusters exist the scan
// stops at the next core point and the remaining unvisited points keep the
// Unassigned label. A maxClusters of zero or less means no limit.
func DBSCAN(points []Point, eps float64, minPts, maxClusters int) []int {
	uniq, weight, index := dedupe(points)
	ul := dbscan(uniq, weight, eps, minPts, maxClusters)

	labels := make([]int, len(points))
	for i, u := range index {
		labels[i] = ul[u]
	}
	return labels
}

// dedupe collapses identical points. Identical points share every
// neighbourhood, so clustering them once with a weight gives the same labels.
func dedupe(points []Point) (uniq []Point, weight []int, index []int) {
	seen := make(map[Point]int, len(points))
	index = make([]int, len(points))
	for i, p := range points {
		u, ok := seen[p]
		if !ok {
			u = len(uniq)
			seen[p] = u
			uniq = append(uniq, p)
			weight = append(weight, 0)
		}
		weight[u]++
		index[i] = u
	}
	return uniq, weight, index
}

func dbscan(pts []Point, weight []int, eps float64, minPts, maxClusters int) []int {
	labels := make([]int, len(pts))
	if len(pts) == 0 || eps <= 0 {
		for i := range labels {
			labels[i] = Noise
		}
		return labels
	}

	h := newSpatialHash(pts, eps)
	mass := func(idx []int) int {
		n := 0
		for _, j := range idx {
			n += weight[j]
		}
		return n
	}

	cluster := 0
	for i := range pts {
		if labels[i] != Unassigned {
			continue
		}
		nb := h.query(i)
		if mass(nb) < minPts {
			labels[i] = Noise
			continue
		}
		if maxClusters > 0 && cluster == maxClusters-1 {
			break
		}
		cluster++

		labels[i] = cluster
		for k := 0; k < len(nb); k++ {
			j := nb[k]
			switch labels[j] {
			case Noise:
				labels[j] = cluster
			case Unassigned:
				labels[j] = cluster
				if next := h.query(j); mass(next) >= minPts {
					nb = append(nb, next...)
				}
			}
		}
	}
	return labels
}

type cellKey [3]int

// spatialHash buckets points into cubes of side eps, so a radius query only
// looks at the 27 cubes around the query point.
type spatialHash struct {
	pts     []Point
	eps     float64
	buckets map[cellKey][]int
}

func newSpatialHash(pts []Point, eps float64) *spatialHash {
	h := &spatialHash{pts: pts, eps: eps, buckets: make(map[cellKey][]int)}
	for i, p := range pts {
		k := h.key(p)
		h.buckets[k] = append(h.buckets[k], i)
	}
	return h
}

func (h *spatialHash) key(p Point) cellKey {
	return cellKey{
		int(math.Floor(p[0] / h.eps)),
		int(math.Floor(p[1] / h.eps)),
		int(math.Floor(p[2] / h.eps)),
	}
}

// query returns the indices of all points closer than eps to point i, in
// ascending order.
func (h *spatialHash) query(i int) []int {
	p := h.pts[i]
	k := h.key(p)
	var out []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				for _, j := range h.buckets[cellKey{k[0] + dx, k[1] + dy, k[2] + dz}] {
					if p.dist(h.pts[j]) < h.eps {
						out = append(out, j)
					}
				}
			}
		}
	}
	slices.Sort(out)
	return out
}

// Centroids returns the mean point of every label, in order of first
// appearance, along with the label and size of each group. Noise and
// Unassigned points form groups of their own.
func Centroids(points []Point, labels []int) (centers []Point, ids []int, sizes []int) {
	pos := make(map[int]int)
	var sums []Point
	for i, l := range labels {
		c, ok := pos[l]
		if !ok {
			c = len(ids)
			pos[l] = c
			ids = append(ids, l)
			sums = append(sums, Point{})
			sizes = append(sizes, 0)
		}
		for d := range 3 {
			sums[c][d] += points[i][d]
		}
		sizes[c]++
	}
	centers = make([]Point, len(sums))
	for c, s := range sums {
		n := float64(sizes[c])
		centers[c] = Point{s[0] / n, s[1] / n, s[2] / n}
	}
	return centers, ids, sizes
}
