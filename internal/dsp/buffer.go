// Package dsp implements the signal-processing front end of the
// transcription engine: short-time spectral analysis and the fixed
// 29-dimensional onset fingerprint consumed by clustering and labeling.
package dsp

// Buffer is a mono audio buffer. It is immutable once loaded and owned by
// the caller for the duration of a pipeline run.
type Buffer struct {
	Samples []float64
	Rate    int
}

// Duration returns the buffer length in seconds.
func (b Buffer) Duration() float64 {
	if b.Rate == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.Rate)
}

// SampleAt converts a sample offset to seconds.
func (b Buffer) SampleAt(sample int) float64 {
	if b.Rate == 0 {
		return 0
	}
	return float64(sample) / float64(b.Rate)
}
