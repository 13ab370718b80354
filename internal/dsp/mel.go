package dsp

import "math"

// Mel filterbank and DCT-II, the cepstral front end for the 13 MFCC
// features. Triangular filters on the mel scale follow the usual
// HTK-style construction.

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterBank builds numMels triangular filters over nfft/2+1 bins.
func melFilterBank(numMels, nfft, rate int, lowFreq, highFreq float64) [][]float64 {
	if highFreq <= 0 {
		highFreq = float64(rate) / 2
	}
	lowMel := hzToMel(lowFreq)
	highMel := hzToMel(highFreq)

	// numMels+2 evenly spaced points on the mel scale, mapped to FFT bins.
	points := make([]float64, numMels+2)
	for i := range points {
		mel := lowMel + (highMel-lowMel)*float64(i)/float64(numMels+1)
		points[i] = melToHz(mel) * float64(nfft) / float64(rate)
	}

	bins := nfft/2 + 1
	bank := make([][]float64, numMels)
	for m := range bank {
		filter := make([]float64, bins)
		left, center, right := points[m], points[m+1], points[m+2]
		for k := 0; k < bins; k++ {
			fk := float64(k)
			switch {
			case fk > left && fk <= center:
				filter[k] = (fk - left) / (center - left + epsilon)
			case fk > center && fk < right:
				filter[k] = (right - fk) / (right - center + epsilon)
			}
		}
		bank[m] = filter
	}
	return bank
}

// dctII applies an orthonormal DCT-II and returns the first numCoeffs
// coefficients.
func dctII(input []float64, numCoeffs int) []float64 {
	n := len(input)
	out := make([]float64, numCoeffs)
	scale0 := math.Sqrt(1.0 / float64(n))
	scale := math.Sqrt(2.0 / float64(n))
	for k := 0; k < numCoeffs && k < n; k++ {
		var sum float64
		for i, x := range input {
			sum += x * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(n))
		}
		if k == 0 {
			out[k] = sum * scale0
		} else {
			out[k] = sum * scale
		}
	}
	return out
}

// mfccMeans computes numCoeffs mean cepstral coefficients over the frames
// of a magnitude spectrogram.
func mfccMeans(spec *Spectrogram, numMels, numCoeffs int) []float64 {
	bank := melFilterBank(numMels, spec.NFFT, spec.Rate, 0, float64(spec.Rate)/2)

	means := make([]float64, numCoeffs)
	for _, row := range spec.Mags {
		logMel := make([]float64, numMels)
		for m, filter := range bank {
			var e float64
			for k, w := range filter {
				if w != 0 {
					e += w * row[k] * row[k]
				}
			}
			logMel[m] = math.Log(e + epsilon)
		}
		coeffs := dctII(logMel, numCoeffs)
		for i, c := range coeffs {
			means[i] += c
		}
	}
	for i := range means {
		means[i] /= float64(len(spec.Mags))
	}
	return means
}
