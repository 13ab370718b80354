package transcribe

import "math"

// SixteenthDuration returns the duration of one sixteenth note at bpm.
func SixteenthDuration(bpm float64) float64 {
	return 60.0 / bpm / 4.0
}

// Quantize snaps a time in seconds to the nearest sixteenth-note grid
// position at bpm.
func Quantize(timeSec, bpm float64) float64 {
	sixteenth := SixteenthDuration(bpm)
	return math.Round(timeSec/sixteenth) * sixteenth
}

// QuantizeTolerance snaps only when the deviation from the nearest grid
// point is within tolerance (a fraction of a sixteenth note); otherwise
// the original time is kept. Loose hi-hat and cymbal timing is left alone
// rather than forced onto the grid.
func QuantizeTolerance(timeSec, bpm, tolerance float64) float64 {
	sixteenth := SixteenthDuration(bpm)
	snapped := math.Round(timeSec/sixteenth) * sixteenth
	if math.Abs(timeSec-snapped)/sixteenth > tolerance {
		return timeSec
	}
	return snapped
}
