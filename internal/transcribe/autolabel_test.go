package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drumscribe/drumscribe-api/internal/drums"
	"github.com/drumscribe/drumscribe-api/internal/dsp"
)

// featureVec builds a zeroed fingerprint with selected indices set.
func featureVec(values map[int]float64) []float64 {
	v := make([]float64, dsp.FeatureDim)
	for idx, val := range values {
		v[idx] = val
	}
	return v
}

func labelOf(clusters []ClusterInfo, id int) drums.Type {
	for _, c := range clusters {
		if c.ID == id {
			return c.Label
		}
	}
	return ""
}

func TestAutoLabelKick(t *testing.T) {
	features := [][]float64{featureVec(map[int]float64{
		dsp.IdxSubBass:  0.40,
		dsp.IdxBass:     0.35,
		dsp.IdxCentroid: 800,
	})}

	clusters := AutoLabel(features, []int{0})

	require.Len(t, clusters, 1)
	assert.Equal(t, drums.Kick, clusters[0].Label)
	assert.Equal(t, clusters[0].Label, clusters[0].SuggestedLabel)
	assert.InDelta(t, 0.9, clusters[0].SuggestionConfidence, 1e-9)
}

func TestAutoLabelCrash(t *testing.T) {
	features := [][]float64{featureVec(map[int]float64{
		dsp.IdxHiMid:    0.30,
		dsp.IdxHigh:     0.25,
		dsp.IdxFlatness: 0.30,
		dsp.IdxSustain:  0.70,
		dsp.IdxCentroid: 6000,
	})}

	clusters := AutoLabel(features, []int{0})
	require.Len(t, clusters, 1)
	assert.Equal(t, drums.Crash, clusters[0].Label)
}

func TestAutoLabelRide(t *testing.T) {
	features := [][]float64{featureVec(map[int]float64{
		dsp.IdxHiMid:    0.25,
		dsp.IdxHigh:     0.20,
		dsp.IdxFlatness: 0.18,
		dsp.IdxSustain:  0.55,
		dsp.IdxCentroid: 5000,
	})}

	clusters := AutoLabel(features, []int{0})
	require.Len(t, clusters, 1)
	assert.Equal(t, drums.Ride, clusters[0].Label)
}

func TestAutoLabelClosedHiHat(t *testing.T) {
	features := [][]float64{featureVec(map[int]float64{
		dsp.IdxHiMid:    0.30,
		dsp.IdxHigh:     0.15,
		dsp.IdxFlatness: 0.10,
		dsp.IdxSustain:  0.20,
		dsp.IdxCentroid: 7000,
	})}

	clusters := AutoLabel(features, []int{0})
	require.Len(t, clusters, 1)
	assert.Equal(t, drums.ClosedHiHat, clusters[0].Label)
}

func TestAutoLabelOpenHiHat(t *testing.T) {
	features := [][]float64{featureVec(map[int]float64{
		dsp.IdxHiMid:    0.30,
		dsp.IdxHigh:     0.15,
		dsp.IdxFlatness: 0.10,
		dsp.IdxSustain:  0.50,
		dsp.IdxCentroid: 7000,
	})}

	clusters := AutoLabel(features, []int{0})
	require.Len(t, clusters, 1)
	assert.Equal(t, drums.OpenHiHat, clusters[0].Label)
}

func TestAutoLabelSnare(t *testing.T) {
	features := [][]float64{featureVec(map[int]float64{
		dsp.IdxMid:      0.30,
		dsp.IdxHiMid:    0.20,
		dsp.IdxHigh:     0.10,
		dsp.IdxFlatness: 0.12,
		dsp.IdxSustain:  0.15,
		dsp.IdxCentroid: 2500,
	})}

	clusters := AutoLabel(features, []int{0})
	require.Len(t, clusters, 1)
	assert.Equal(t, drums.Snare, clusters[0].Label)
}

func TestAutoLabelTomOrderingByCentroid(t *testing.T) {
	// Four clusters matching no cascade rule: three toms by ascending
	// centroid, then the closed hi-hat fallback.
	features := [][]float64{
		featureVec(map[int]float64{dsp.IdxCentroid: 600}),
		featureVec(map[int]float64{dsp.IdxCentroid: 300}),
		featureVec(map[int]float64{dsp.IdxCentroid: 900}),
		featureVec(map[int]float64{dsp.IdxCentroid: 1200}),
	}

	clusters := AutoLabel(features, []int{0, 1, 2, 3})
	require.Len(t, clusters, 4)

	assert.Equal(t, drums.TomLow, labelOf(clusters, 1))
	assert.Equal(t, drums.TomMid, labelOf(clusters, 0))
	assert.Equal(t, drums.TomHigh, labelOf(clusters, 2))
	assert.Equal(t, drums.ClosedHiHat, labelOf(clusters, 3))
}

func TestAutoLabelCascadePrecedence(t *testing.T) {
	// A signature satisfying both the crash and ride conditions must take
	// the earlier rule.
	features := [][]float64{featureVec(map[int]float64{
		dsp.IdxHiMid:    0.35,
		dsp.IdxHigh:     0.25,
		dsp.IdxFlatness: 0.30,
		dsp.IdxSustain:  0.80,
		dsp.IdxCentroid: 6000,
	})}

	clusters := AutoLabel(features, []int{0})
	require.Len(t, clusters, 1)
	assert.Equal(t, drums.Crash, clusters[0].Label)
}

func TestAutoLabelEmpty(t *testing.T) {
	assert.Nil(t, AutoLabel(nil, nil))
}

func TestAutoLabelEveryLabelInCatalog(t *testing.T) {
	features := [][]float64{
		featureVec(map[int]float64{dsp.IdxSubBass: 0.5, dsp.IdxBass: 0.3, dsp.IdxCentroid: 500}),
		featureVec(map[int]float64{dsp.IdxCentroid: 400}),
		featureVec(map[int]float64{dsp.IdxCentroid: 800}),
	}

	clusters := AutoLabel(features, []int{0, 1, 2})
	for _, c := range clusters {
		assert.True(t, c.Label.Valid(), "label %q not in catalog", c.Label)
	}
}
