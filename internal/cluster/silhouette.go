package cluster

import "math"

// silhouetteScore returns the mean silhouette coefficient over all points:
// (b-a)/max(a,b) where a is the mean intra-cluster distance and b the mean
// distance to the nearest other cluster. Points in singleton clusters
// score 0.
func silhouetteScore(points [][]float64, assign []int, k int) float64 {
	n := len(points)
	if n < 2 || k < 2 {
		return 0
	}

	counts := make([]int, k)
	for _, c := range assign {
		counts[c]++
	}

	var total float64
	for i := range points {
		own := assign[i]
		if counts[own] < 2 {
			continue
		}

		// Mean distance to every cluster.
		sums := make([]float64, k)
		for j := range points {
			if i == j {
				continue
			}
			sums[assign[j]] += math.Sqrt(squaredDistance(points[i], points[j]))
		}

		a := sums[own] / float64(counts[own]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || counts[c] == 0 {
				continue
			}
			if m := sums[c] / float64(counts[c]); m < b {
				b = m
			}
		}
		if math.IsInf(b, 1) {
			continue
		}

		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(n)
}
