package audio

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrTooFewPoints = errors.New("kmeans: fewer points than clusters")

type KMeansOptions struct {
	Seed    int64
	NInit   int
	MaxIter int
	Tol     float64
}

func (o KMeansOptions) withDefaults() KMeansOptions {
	if o.NInit <= 0 {
		o.NInit = 10
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 300
	}
	if o.Tol <= 0 {
		o.Tol = 1e-4
	}
	return o
}

type KMeansResult struct {
	Labels    []int
	Centroids [][]float64
	Inertia   float64
}

// KMeans clusters points with k-means++ seeding, keeping the best of
// NInit runs. All runs draw from one generator seeded with opts.Seed so
// results are reproducible.
func KMeans(points [][]float64, k int, opts KMeansOptions) (*KMeansResult, error) {
	if k <= 0 || len(points) < k {
		return nil, ErrTooFewPoints
	}
	opts = opts.withDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))
	tol := opts.Tol * meanVariance(points)

	var best *KMeansResult
	for run := 0; run < opts.NInit; run++ {
		res := lloyd(points, seedPlusPlus(points, k, rng), opts.MaxIter, tol)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

// meanVariance is the mean of per dimension variances, used to scale tol.
func meanVariance(points [][]float64) float64 {
	dims := len(points[0])
	if dims == 0 {
		return 0
	}
	col := make([]float64, len(points))
	total := 0.0
	for d := 0; d < dims; d++ {
		for i, p := range points {
			col[i] = p[d]
		}
		if len(col) > 1 {
			// population variance
			total += stat.Variance(col, nil) * float64(len(col)-1) / float64(len(col))
		}
	}
	return total / float64(dims)
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := points[rng.Intn(len(points))]
	centroids = append(centroids, clone(first))

	dist := make([]float64, len(points))
	for i, p := range points {
		dist[i] = sqDist(p, first)
	}
	for len(centroids) < k {
		total := floats.Sum(dist)
		idx := 0
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range dist {
				r -= d
				if r <= 0 {
					idx = i
					break
				}
				idx = i
			}
		} else {
			idx = rng.Intn(len(points))
		}
		c := clone(points[idx])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

func lloyd(points, centroids [][]float64, maxIter int, tol float64) *KMeansResult {
	k := len(centroids)
	dims := len(points[0])
	labels := make([]int, len(points))

	for iter := 0; iter < maxIter; iter++ {
		assign(points, centroids, labels)

		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, dims)
		}
		for i, p := range points {
			floats.Add(next[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range next {
			if counts[c] == 0 {
				// empty cluster takes the point farthest from its centroid
				next[c] = clone(points[farthest(points, centroids, labels)])
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}

		shift := 0.0
		for c := range next {
			shift += sqDist(next[c], centroids[c])
		}
		centroids = next
		if shift <= tol {
			break
		}
	}

	inertia := assign(points, centroids, labels)
	return &KMeansResult{Labels: labels, Centroids: centroids, Inertia: inertia}
}

// assign labels every point with its nearest centroid and returns the
// summed squared distance.
func assign(points, centroids [][]float64, labels []int) float64 {
	inertia := 0.0
	for i, p := range points {
		best, bestD := 0, math.Inf(1)
		for c, cen := range centroids {
			if d := sqDist(p, cen); d < bestD {
				best, bestD = c, d
			}
		}
		labels[i] = best
		inertia += bestD
	}
	return inertia
}

func farthest(points, centroids [][]float64, labels []int) int {
	idx, max := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[labels[i]]); d > max {
			idx, max = i, d
		}
	}
	return idx
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
