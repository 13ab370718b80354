package transcribe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drumscribe/drumscribe-api/internal/drums"
	"github.com/drumscribe/drumscribe-api/internal/dsp"
)

const testRate = 44100

// addDecayingSine mixes a percussive decaying sine into samples at t0.
func addDecayingSine(samples []float64, t0, freq, amp float64) {
	start := int(t0 * testRate)
	length := testRate / 10 // 100ms body
	for i := 0; i < length && start+i < len(samples); i++ {
		t := float64(i) / testRate
		env := amp * math.Exp(-t*35)
		samples[start+i] += env * math.Sin(2*math.Pi*freq*t)
	}
}

// testMix lays down alternating low (kick-like) and mid (tom-like) hits
// on the sixteenth grid at 120 bpm over 6 seconds.
func testMix() (dsp.Buffer, []float64, []float64) {
	samples := make([]float64, testRate*6)
	var lowTimes, midTimes []float64
	for i := 0; i < 8; i++ {
		lt := 0.5 + float64(i)*0.5
		mt := 0.75 + float64(i)*0.5
		addDecayingSine(samples, lt, 60, 0.9)
		addDecayingSine(samples, mt, 200, 0.7)
		lowTimes = append(lowTimes, lt)
		midTimes = append(midTimes, mt)
	}
	return dsp.Buffer{Samples: samples, Rate: testRate}, lowTimes, midTimes
}

func TestTranscribeMixEndToEnd(t *testing.T) {
	buf, lowTimes, midTimes := testMix()
	engine := NewEngine()

	events, clusters := engine.TranscribeMix(buf, 120)

	require.NotEmpty(t, events)
	require.NotEmpty(t, clusters)
	assert.GreaterOrEqual(t, len(events), len(lowTimes)+len(midTimes)-2,
		"most synthetic hits should be transcribed")

	sixteenth := SixteenthDuration(120)
	hitTimes := append(append([]float64{}, lowTimes...), midTimes...)
	for i, e := range events {
		// Raw detection must track the synthetic attacks. Quantized time
		// is snapped by construction and would stay on-grid even if
		// detection drifted wholesale, so the raw time is what anchors
		// this test to the known hits.
		nearest := math.Inf(1)
		for _, ht := range hitTimes {
			if d := math.Abs(e.Time - ht); d < nearest {
				nearest = d
			}
		}
		assert.Less(t, nearest, 0.05,
			"event %d raw time %v far from every synthetic hit", i, e.Time)

		// Hits were placed exactly on the grid, so quantized times land
		// on sixteenth multiples (within rounding of stored values).
		slots := e.QuantizedTime / sixteenth
		assert.InDelta(t, math.Round(slots), slots, 1e-2,
			"event %d quantized off-grid: %v", i, e.QuantizedTime)

		assert.GreaterOrEqual(t, e.Velocity, 40)
		assert.LessOrEqual(t, e.Velocity, 127)
		assert.GreaterOrEqual(t, e.Confidence, 0.0)
		assert.LessOrEqual(t, e.Confidence, 1.0)
		assert.True(t, e.DrumType.Valid())
		assert.Equal(t, e.DrumType.MIDINote(), e.MIDINote)
		if i > 0 {
			assert.LessOrEqual(t, events[i-1].Time, e.Time)
		}
	}

	for _, c := range clusters {
		assert.True(t, c.Label.Valid())
	}
}

func TestTranscribeMixDeterministic(t *testing.T) {
	buf, _, _ := testMix()
	engine := NewEngine()

	events1, clusters1 := engine.TranscribeMix(buf, 120)
	events2, clusters2 := engine.TranscribeMix(buf, 120)

	assert.Equal(t, events1, events2)
	assert.Equal(t, clusters1, clusters2)
}

func TestTranscribeMixSilence(t *testing.T) {
	buf := dsp.Buffer{Samples: make([]float64, testRate*2), Rate: testRate}
	engine := NewEngine()

	events, clusters := engine.TranscribeMix(buf, 120)

	assert.Empty(t, events)
	assert.Empty(t, clusters)
}

func TestTranscribeStems(t *testing.T) {
	kickSamples := make([]float64, testRate*4)
	snareSamples := make([]float64, testRate*4)
	for i := 0; i < 4; i++ {
		addDecayingSine(kickSamples, 0.5+float64(i)*1.0, 60, 0.9)
		addDecayingSine(snareSamples, 1.0+float64(i)*1.0, 250, 0.8)
	}
	stems := map[string]dsp.Buffer{
		"kick":  {Samples: kickSamples, Rate: testRate},
		"snare": {Samples: snareSamples, Rate: testRate},
	}
	engine := NewEngine()

	events, clusters := engine.TranscribeStems(stems, 120)

	require.NotEmpty(t, events)
	require.Len(t, clusters, 2)

	var sawKick, sawSnare bool
	for _, e := range events {
		switch e.DrumType {
		case drums.Kick:
			sawKick = true
			assert.Equal(t, 0, e.ClusterID)
		case drums.Snare:
			sawSnare = true
			assert.Equal(t, 1, e.ClusterID)
		default:
			t.Fatalf("unexpected drum type %q in stem output", e.DrumType)
		}
	}
	assert.True(t, sawKick)
	assert.True(t, sawSnare)
}

func TestTranscribeStemsUnknownStemSkipped(t *testing.T) {
	samples := make([]float64, testRate)
	addDecayingSine(samples, 0.3, 60, 0.9)
	stems := map[string]dsp.Buffer{
		"vocals": {Samples: samples, Rate: testRate},
	}
	engine := NewEngine()

	events, clusters := engine.TranscribeStems(stems, 120)

	assert.Empty(t, events)
	assert.Empty(t, clusters)
}

func TestRecomputeClusterStats(t *testing.T) {
	events := []DrumEvent{
		kickEvent(0.5, 80, 0),
		kickEvent(1.0, 100, 0),
		kickEvent(1.5, 90, 0),
	}
	clusters := []ClusterInfo{
		{ID: 0, Label: drums.Kick},
		{ID: 1, Label: drums.Snare},
	}

	recomputeClusterStats(events, clusters)

	assert.Equal(t, 3, clusters[0].EventCount)
	assert.InDelta(t, 90.0, clusters[0].MeanVelocity, 1e-9)
	assert.InDelta(t, 1.0, clusters[0].RepresentativeTime, 1e-9)
	assert.Equal(t, 0, clusters[1].EventCount)
}
