package cluster

import "math/rand"

const (
	// pcaThreshold is the input size above which features are reduced to
	// at most pcaComponents principal components; distances in the full
	// 29-dim space get unstable on large onset sets.
	pcaThreshold  = 50
	pcaComponents = 15

	kMin = 2
	kCap = 8

	// lowQualityScore is the silhouette floor below which the k search is
	// abandoned for a fixed k=3. Silhouette is unreliable on small or
	// ambiguous onset sets, and a moderate fixed granularity produces
	// more usable clusters than an unstable "optimal" k.
	lowQualityScore = 0.15
	fallbackK       = 3
)

// Onsets groups feature vectors into instrument clusters. Returns the
// cluster id per input and the cluster count k. Deterministic for a fixed
// seed. Inputs with fewer than 3 rows coalesce into a single cluster.
func Onsets(features [][]float64, seed int64) ([]int, int) {
	n := len(features)
	if n == 0 {
		return nil, 0
	}
	if n < 3 {
		return make([]int, n), 1
	}

	points := standardize(features)
	if n > pcaThreshold {
		points = reduceDimensions(points, pcaComponents)
	}

	rng := rand.New(rand.NewSource(seed))

	kMax := n / 3
	if kMax > kCap {
		kMax = kCap
	}
	if kMax < kMin {
		kMax = kMin
	}
	if kMax <= kMin {
		return kMeans(points, kMin, rng), kMin
	}

	bestK := fallbackK
	bestScore := -1.0
	var bestAssign []int

	for k := kMin; k <= kMax; k++ {
		assign := kMeans(points, k, rng)
		score := silhouetteScore(points, assign, k)
		if score > bestScore {
			bestScore = score
			bestK = k
			bestAssign = assign
		}
	}

	if bestScore < lowQualityScore {
		return kMeans(points, fallbackK, rng), fallbackK
	}
	return bestAssign, bestK
}
