package dsp

import "math"

// FeatureDim is the length of every onset fingerprint.
const FeatureDim = 29

// Feature vector layout. Indices are relied on by the cluster auto-labeler.
//
//	[0:6]   6 frequency band energy ratios: sub bass, bass, mid, hi mid, high, air
//	[6:11]  centroid, bandwidth, flatness, zero-crossing rate, rolloff
//	[11:24] 13 mean cepstral coefficients
//	[24:28] 4 temporal decay quartile energy ratios
//	[28]    sustain ratio (tail energy 50-150ms / head energy 0-50ms)
const (
	IdxSubBass   = 0
	IdxBass      = 1
	IdxMid       = 2
	IdxHiMid     = 3
	IdxHigh      = 4
	IdxAir       = 5
	IdxCentroid  = 6
	IdxBandwidth = 7
	IdxFlatness  = 8
	IdxZCR       = 9
	IdxRolloff   = 10
	IdxMFCC      = 11
	IdxQuartile  = 24
	IdxSustain   = 28
)

// freqBands are the six fixed band boundaries in Hz. A zero upper bound
// means "to Nyquist".
var freqBands = [6][2]float64{
	{0, 80},
	{80, 250},
	{250, 1000},
	{1000, 3000},
	{3000, 8000},
	{8000, 0},
}

const (
	numMFCC    = 13
	numMels    = 40
	minSegment = 256

	headWindowSec     = 0.050
	extendedWindowSec = 0.150
	rolloffPercent    = 0.85
)

// ExtractFeatures computes the 29-dimensional fingerprint of the onset at
// the given sample offset. It is a pure function of the buffer: no learned
// parameters, deterministic, and it zero-pads rather than failing on short
// segments.
func ExtractFeatures(buf Buffer, onsetSample int) []float64 {
	window50 := int(float64(buf.Rate) * headWindowSec)
	start := onsetSample
	if start < 0 {
		start = 0
	}
	end := start + window50
	if end > len(buf.Samples) {
		end = len(buf.Samples)
	}
	var segment []float64
	if start < end {
		segment = append(segment, buf.Samples[start:end]...)
	}
	for len(segment) < minSegment {
		segment = append(segment, 0)
	}

	nfft := 1024
	if len(segment) < nfft {
		nfft = len(segment)
	}
	spec := STFT(segment, nfft, nfft/4, buf.Rate)

	features := make([]float64, 0, FeatureDim)

	// 6 frequency band energy ratios.
	var totalEnergy float64
	for _, row := range spec.Mags {
		for _, m := range row {
			totalEnergy += m * m
		}
	}
	totalEnergy += epsilon
	for _, band := range freqBands {
		var e float64
		for _, row := range spec.Mags {
			for i, m := range row {
				f := spec.BinFreq(i)
				if f < band[0] {
					continue
				}
				if band[1] != 0 && f >= band[1] {
					continue
				}
				e += m * m
			}
		}
		features = append(features, e/totalEnergy)
	}

	// 5 spectral shape scalars.
	features = append(features,
		spec.Centroid(),
		spec.Bandwidth(),
		spec.Flatness(),
		ZeroCrossingRate(segment),
		spec.Rolloff(rolloffPercent),
	)

	// 13 mean cepstral coefficients.
	features = append(features, mfccMeans(spec, numMels, numMFCC)...)

	// 4 temporal decay quartile energy ratios. The denominator covers
	// exactly the four quartile slices; when the segment length is not a
	// multiple of 4 the trailing samples belong to no quartile and must
	// not hold energy back from the ratios.
	quarter := len(segment) / 4
	if quarter > 0 {
		var total float64
		for _, s := range segment[:4*quarter] {
			total += s * s
		}
		total += epsilon
		for q := 0; q < 4; q++ {
			var e float64
			for _, s := range segment[q*quarter : (q+1)*quarter] {
				e += s * s
			}
			features = append(features, e/total)
		}
	} else {
		features = append(features, 0.25, 0.25, 0.25, 0.25)
	}

	// Sustain ratio over an extended 150ms window.
	features = append(features, sustainRatio(buf, start, segment))

	return features
}

// sustainRatio compares tail energy (50-150ms) against head energy
// (0-50ms). Returns 0 when the buffer ends before any tail exists.
func sustainRatio(buf Buffer, start int, head []float64) float64 {
	window150 := int(float64(buf.Rate) * extendedWindowSec)
	end := start + window150
	if end > len(buf.Samples) {
		end = len(buf.Samples)
	}
	extended := buf.Samples[start:end]
	if len(extended) <= len(head) {
		return 0
	}

	var headEnergy float64
	for _, s := range head {
		headEnergy += s * s
	}
	headEnergy += epsilon

	var tailEnergy float64
	for _, s := range extended[len(head):] {
		tailEnergy += s * s
	}
	return tailEnergy / headEnergy
}

// RMSAtOnset returns the RMS energy of a 50ms window at an onset point,
// used for velocity estimation.
func RMSAtOnset(buf Buffer, onsetSample int) float64 {
	window := int(float64(buf.Rate) * headWindowSec)
	start := onsetSample
	if start < 0 {
		start = 0
	}
	end := start + window
	if end > len(buf.Samples) {
		end = len(buf.Samples)
	}
	if start >= end {
		return 0
	}
	segment := buf.Samples[start:end]
	n := len(segment)
	if n < minSegment {
		n = minSegment
	}
	var sum float64
	for _, s := range segment {
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
