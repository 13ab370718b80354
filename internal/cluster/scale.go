// Package cluster groups onset fingerprints into instrument clusters using
// seeded k-means with automatic selection of the cluster count.
package cluster

import "math"

const scaleEpsilon = 1e-10

// standardize returns a copy of the matrix scaled to zero mean and unit
// variance per dimension.
func standardize(features [][]float64) [][]float64 {
	if len(features) == 0 {
		return nil
	}
	dims := len(features[0])
	mean := make([]float64, dims)
	for _, row := range features {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(features))
	}

	variance := make([]float64, dims)
	for _, row := range features {
		for j, v := range row {
			d := v - mean[j]
			variance[j] += d * d
		}
	}

	std := make([]float64, dims)
	for j := range variance {
		std[j] = math.Sqrt(variance[j]/float64(len(features))) + scaleEpsilon
	}

	out := make([][]float64, len(features))
	for i, row := range features {
		scaled := make([]float64, dims)
		for j, v := range row {
			scaled[j] = (v - mean[j]) / std[j]
		}
		out[i] = scaled
	}
	return out
}
