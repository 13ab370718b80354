package cluster

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// reduceDimensions projects the rows of features onto their first
// numComponents principal components. Falls back to the input unchanged if
// the decomposition fails (possible only on degenerate all-constant input).
func reduceDimensions(features [][]float64, numComponents int) [][]float64 {
	n := len(features)
	if n == 0 {
		return features
	}
	dims := len(features[0])
	if numComponents > dims {
		numComponents = dims
	}

	flat := make([]float64, 0, n*dims)
	for _, row := range features {
		flat = append(flat, row...)
	}
	X := mat.NewDense(n, dims, flat)

	var pc stat.PC
	if ok := pc.PrincipalComponents(X, nil); !ok {
		return features
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)

	var projected mat.Dense
	projected.Mul(X, vectors.Slice(0, dims, 0, numComponents))

	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, &projected)
	}
	return out
}
