package cluster

import (
	"math"
	"math/rand"
)

const (
	kmeansMaxIterations = 100
	kmeansRestarts      = 10
)

// kMeans fits k clusters to the rows of points and returns the assignment
// per row. Runs kmeansRestarts independent fits with k-means++ seeding and
// keeps the lowest-inertia result. Deterministic for a given rng state.
func kMeans(points [][]float64, k int, rng *rand.Rand) []int {
	bestInertia := math.Inf(1)
	var best []int

	for restart := 0; restart < kmeansRestarts; restart++ {
		assign, inertia := kMeansOnce(points, k, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			best = assign
		}
	}
	return best
}

func kMeansOnce(points [][]float64, k int, rng *rand.Rand) ([]int, float64) {
	centroids := seedCentroids(points, k, rng)
	assign := make([]int, len(points))

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, p := range points {
			c := nearestCentroid(p, centroids)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		// Recompute centroids; an emptied cluster keeps its position.
		dims := len(points[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, p := range points {
			c := assign[i]
			counts[c]++
			for j, v := range p {
				sums[c][j] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	var inertia float64
	for i, p := range points {
		inertia += squaredDistance(p, centroids[assign[i]])
	}
	return assign, inertia
}

// seedCentroids picks k initial centroids with the k-means++ scheme:
// each new centroid is drawn with probability proportional to its squared
// distance from the nearest chosen one.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := points[rng.Intn(len(points))]
	centroids = append(centroids, append([]float64(nil), first...))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				if sd := squaredDistance(p, c); sd < d {
					d = sd
				}
			}
			dist[i] = d
			total += d
		}

		if total == 0 {
			// All remaining points coincide with a centroid.
			p := points[rng.Intn(len(points))]
			centroids = append(centroids, append([]float64(nil), p...))
			continue
		}

		target := rng.Float64() * total
		var cum float64
		chosen := len(points) - 1
		for i, d := range dist {
			cum += d
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), points[chosen]...))
	}
	return centroids
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(p, centroid); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
