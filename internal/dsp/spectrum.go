package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// epsilon guards denominators throughout the feature pipeline.
const epsilon = 1e-10

// Spectrogram is a short-time magnitude spectrum: one row of nfft/2+1
// magnitudes per analysis frame.
type Spectrogram struct {
	Mags [][]float64
	NFFT int
	Rate int
}

// Bins returns the number of frequency bins per frame.
func (s *Spectrogram) Bins() int {
	return s.NFFT/2 + 1
}

// BinFreq returns the center frequency in Hz of bin i.
func (s *Spectrogram) BinFreq(i int) float64 {
	return float64(i) * float64(s.Rate) / float64(s.NFFT)
}

// STFT computes a Hann-windowed short-time magnitude spectrum over signal.
// Frames shorter than nfft at the tail are dropped; a signal shorter than
// nfft produces a single zero-padded frame so every input yields at least
// one spectrum.
func STFT(signal []float64, nfft, hop, rate int) *Spectrogram {
	fft := fourier.NewFFT(nfft)
	window := HannWindow(nfft)
	frame := make([]float64, nfft)
	coeffs := make([]complex128, nfft/2+1)

	var mags [][]float64
	analyze := func(src []float64) {
		for i := range frame {
			if i < len(src) {
				frame[i] = src[i] * window[i]
			} else {
				frame[i] = 0
			}
		}
		fft.Coefficients(coeffs, frame)
		row := make([]float64, len(coeffs))
		for i, c := range coeffs {
			row[i] = cmplx.Abs(c)
		}
		mags = append(mags, row)
	}

	if len(signal) < nfft {
		analyze(signal)
	} else {
		for start := 0; start+nfft <= len(signal); start += hop {
			analyze(signal[start : start+nfft])
		}
	}

	return &Spectrogram{Mags: mags, NFFT: nfft, Rate: rate}
}

// Centroid returns the magnitude-weighted mean frequency, averaged over
// frames.
func (s *Spectrogram) Centroid() float64 {
	var sum float64
	for _, row := range s.Mags {
		var num, den float64
		for i, m := range row {
			num += s.BinFreq(i) * m
			den += m
		}
		sum += num / (den + epsilon)
	}
	return sum / float64(len(s.Mags))
}

// Bandwidth returns the magnitude-weighted standard deviation around the
// per-frame centroid, averaged over frames.
func (s *Spectrogram) Bandwidth() float64 {
	var sum float64
	for _, row := range s.Mags {
		var num, den float64
		for i, m := range row {
			num += s.BinFreq(i) * m
			den += m
		}
		centroid := num / (den + epsilon)

		var spread float64
		for i, m := range row {
			d := s.BinFreq(i) - centroid
			spread += m * d * d
		}
		sum += math.Sqrt(spread / (den + epsilon))
	}
	return sum / float64(len(s.Mags))
}

// Flatness returns the ratio of geometric to arithmetic mean of the power
// spectrum, averaged over frames. 1.0 is white noise, 0 a pure tone.
func (s *Spectrogram) Flatness() float64 {
	var sum float64
	for _, row := range s.Mags {
		var logSum, linSum float64
		for _, m := range row {
			p := m*m + epsilon
			logSum += math.Log(p)
			linSum += p
		}
		n := float64(len(row))
		gm := math.Exp(logSum / n)
		am := linSum / n
		sum += gm / (am + epsilon)
	}
	return sum / float64(len(s.Mags))
}

// Rolloff returns the frequency below which rollPercent of the spectral
// energy lies, averaged over frames.
func (s *Spectrogram) Rolloff(rollPercent float64) float64 {
	var sum float64
	for _, row := range s.Mags {
		var total float64
		for _, m := range row {
			total += m * m
		}
		target := rollPercent * total

		var cum float64
		freq := s.BinFreq(len(row) - 1)
		for i, m := range row {
			cum += m * m
			if cum >= target {
				freq = s.BinFreq(i)
				break
			}
		}
		sum += freq
	}
	return sum / float64(len(s.Mags))
}

// ZeroCrossingRate returns the fraction of adjacent sample pairs in signal
// whose signs differ.
func ZeroCrossingRate(signal []float64) float64 {
	if len(signal) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(signal); i++ {
		if (signal[i-1] >= 0) != (signal[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(signal)-1)
}
