package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantizeSnapsToSixteenthGrid(t *testing.T) {
	// 120 bpm: sixteenth = 0.125s.
	assert.InDelta(t, 0.125, Quantize(0.13, 120), 1e-9)
	assert.InDelta(t, 0.0, Quantize(0.04, 120), 1e-9)
	assert.InDelta(t, 0.25, Quantize(0.24, 120), 1e-9)
}

func TestQuantizeToleranceKeepsLooseTiming(t *testing.T) {
	// 0.07s is 56% of a sixteenth away from the nearest grid point.
	assert.InDelta(t, 0.07, QuantizeTolerance(0.07, 120, 0.15), 1e-9)
	// Within tolerance, it snaps.
	assert.InDelta(t, 0.125, QuantizeTolerance(0.13, 120, 0.15), 1e-9)
}

func TestSixteenthDuration(t *testing.T) {
	assert.InDelta(t, 0.125, SixteenthDuration(120), 1e-9)
	assert.InDelta(t, 0.25, SixteenthDuration(60), 1e-9)
}
