package dsp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthKick builds a decaying low-frequency sine burst.
func synthKick(rate int, dur float64) []float64 {
	n := int(float64(rate) * dur)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(rate)
		out[i] = math.Sin(2*math.Pi*60*t) * math.Exp(-t*30)
	}
	return out
}

// synthNoiseBurst builds a decaying white-noise burst, crudely cymbal-like.
func synthNoiseBurst(rate int, dur float64, decay float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	n := int(float64(rate) * dur)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(rate)
		out[i] = (rng.Float64()*2 - 1) * math.Exp(-t*decay)
	}
	return out
}

func TestExtractFeaturesDimension(t *testing.T) {
	buf := Buffer{Samples: synthKick(22050, 0.5), Rate: 22050}

	tests := []struct {
		name  string
		onset int
	}{
		{"at start", 0},
		{"mid buffer", 2000},
		{"near end", len(buf.Samples) - 10},
		{"past end", len(buf.Samples) + 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			features := ExtractFeatures(buf, tt.onset)
			require.Len(t, features, FeatureDim)
			for i, f := range features {
				assert.False(t, math.IsNaN(f) || math.IsInf(f, 0),
					"feature %d should be finite, got %v", i, f)
			}
		})
	}
}

func TestExtractFeaturesRatiosSumToOne(t *testing.T) {
	buf := Buffer{Samples: synthNoiseBurst(22050, 0.4, 10, 1), Rate: 22050}
	features := ExtractFeatures(buf, 100)

	var bandSum float64
	for i := IdxSubBass; i <= IdxAir; i++ {
		assert.GreaterOrEqual(t, features[i], 0.0, "band ratio %d", i)
		bandSum += features[i]
	}
	assert.InDelta(t, 1.0, bandSum, 1e-6, "band ratios should sum to 1")

	var quartileSum float64
	for i := IdxQuartile; i < IdxQuartile+4; i++ {
		assert.GreaterOrEqual(t, features[i], 0.0, "quartile ratio %d", i)
		quartileSum += features[i]
	}
	assert.InDelta(t, 1.0, quartileSum, 1e-6, "quartile ratios should sum to 1")

	assert.GreaterOrEqual(t, features[IdxSustain], 0.0)
}

func TestExtractFeaturesSpectralSeparation(t *testing.T) {
	rate := 22050
	kick := Buffer{Samples: synthKick(rate, 0.3), Rate: rate}
	noise := Buffer{Samples: synthNoiseBurst(rate, 0.3, 5, 2), Rate: rate}

	kickFeat := ExtractFeatures(kick, 0)
	noiseFeat := ExtractFeatures(noise, 0)

	// A 60Hz burst concentrates energy in the low bands; noise spreads it.
	kickLow := kickFeat[IdxSubBass] + kickFeat[IdxBass]
	noiseLow := noiseFeat[IdxSubBass] + noiseFeat[IdxBass]
	assert.Greater(t, kickLow, 0.65)
	assert.Less(t, noiseLow, 0.3)

	assert.Less(t, kickFeat[IdxCentroid], noiseFeat[IdxCentroid])
	assert.Less(t, kickFeat[IdxFlatness], noiseFeat[IdxFlatness])
	assert.Less(t, kickFeat[IdxZCR], noiseFeat[IdxZCR])
}

func TestExtractFeaturesDeterministic(t *testing.T) {
	buf := Buffer{Samples: synthNoiseBurst(22050, 0.4, 8, 3), Rate: 22050}
	a := ExtractFeatures(buf, 500)
	b := ExtractFeatures(buf, 500)
	assert.Equal(t, a, b)
}

func TestSustainRatioNoTail(t *testing.T) {
	// Buffer ends inside the head window: no tail available.
	rate := 22050
	short := Buffer{Samples: synthKick(rate, 0.04), Rate: rate}
	features := ExtractFeatures(short, 0)
	assert.Equal(t, 0.0, features[IdxSustain])
}

func TestRMSAtOnset(t *testing.T) {
	rate := 22050
	buf := Buffer{Samples: synthKick(rate, 0.5), Rate: rate}

	loud := RMSAtOnset(buf, 0)
	quiet := RMSAtOnset(buf, rate/4)
	assert.Greater(t, loud, quiet, "RMS should decay with the envelope")
	assert.GreaterOrEqual(t, quiet, 0.0)

	assert.Equal(t, 0.0, RMSAtOnset(buf, len(buf.Samples)+1))
}

func TestZeroCrossingRate(t *testing.T) {
	assert.Equal(t, 0.0, ZeroCrossingRate([]float64{1}))

	alternating := []float64{1, -1, 1, -1, 1}
	assert.Equal(t, 1.0, ZeroCrossingRate(alternating))

	constant := []float64{1, 1, 1, 1}
	assert.Equal(t, 0.0, ZeroCrossingRate(constant))
}
