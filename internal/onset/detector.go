package onset

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/drumscribe/drumscribe-api/internal/dsp"
)

const (
	// STFT geometry for the flux envelope.
	fluxNFFT = 1024
	// HopSize is the envelope frame hop in samples; onset frame indices
	// convert to sample offsets by this factor.
	HopSize = 512

	refineWindowSec    = 0.015
	refineThresholdPct = 0.30
)

// Detect returns the onset sample positions in buf under the given
// profile, strictly increasing. A buffer with no transients returns an
// empty slice, never an error.
func Detect(buf dsp.Buffer, profile Profile) []int {
	if len(buf.Samples) == 0 {
		return nil
	}

	env := fluxEnvelope(buf.Samples, buf.Rate)
	frames := pickPeaks(env, profile)

	if profile.Backtrack {
		for i, f := range frames {
			frames[i] = backtrack(env, f)
		}
	}

	onsets := make([]int, 0, len(frames))
	last := -1
	for _, f := range frames {
		sample := f * HopSize
		if profile.Refine {
			sample = refineAttack(buf, sample)
		}
		if sample > last {
			onsets = append(onsets, sample)
			last = sample
		}
	}
	return onsets
}

// fluxEnvelope computes a max-normalized positive spectral flux per frame.
func fluxEnvelope(samples []float64, rate int) []float64 {
	spec := dsp.STFT(samples, fluxNFFT, HopSize, rate)
	if len(spec.Mags) == 0 {
		return nil
	}

	env := make([]float64, len(spec.Mags))
	for t := 1; t < len(spec.Mags); t++ {
		var flux float64
		for i, m := range spec.Mags[t] {
			d := m - spec.Mags[t-1][i]
			if d > 0 {
				flux += d
			}
		}
		env[t] = flux
	}

	if peak := floats.Max(env); peak > 0 {
		floats.Scale(1/peak, env)
	}
	return env
}

// pickPeaks selects envelope frames that are a local maximum over
// [n-preMax, n+postMax], exceed the local mean over [n-preAvg, n+postAvg]
// by delta, and are at least wait frames after the previous pick.
func pickPeaks(env []float64, p Profile) []int {
	var peaks []int
	lastPeak := -p.Wait - 1

	for n := range env {
		maxLo := max(0, n-p.PreMax)
		maxHi := min(len(env), n+p.PostMax+1)
		isMax := true
		for i := maxLo; i < maxHi; i++ {
			if env[i] > env[n] {
				isMax = false
				break
			}
		}
		if !isMax {
			continue
		}

		avgLo := max(0, n-p.PreAvg)
		avgHi := min(len(env), n+p.PostAvg+1)
		mean := floats.Sum(env[avgLo:avgHi]) / float64(avgHi-avgLo)

		if env[n] < mean+p.Delta {
			continue
		}
		if n-lastPeak <= p.Wait {
			continue
		}
		peaks = append(peaks, n)
		lastPeak = n
	}
	return peaks
}

// backtrack walks a peak frame back down the rising slope to the
// preceding envelope minimum. The walk is strict: a flat stretch (the
// flux envelope is exactly zero between hits) terminates the descent at
// its right edge rather than being crossed, so the result stays at the
// foot of this onset's rise instead of drifting into the previous decay.
func backtrack(env []float64, frame int) int {
	for frame > 0 && env[frame-1] < env[frame] {
		frame--
	}
	return frame
}

// refineAttack searches ±15ms around a coarse onset for the first sample
// whose absolute amplitude exceeds 30% of the local peak. Gives
// attack-accurate timing for transient-heavy instruments.
func refineAttack(buf dsp.Buffer, coarse int) int {
	window := int(refineWindowSec * float64(buf.Rate))
	start := max(0, coarse-window)
	end := min(len(buf.Samples), coarse+window)
	if start >= end {
		return coarse
	}

	var peak float64
	for _, s := range buf.Samples[start:end] {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return coarse
	}

	threshold := refineThresholdPct * peak
	for i := start; i < end; i++ {
		if math.Abs(buf.Samples[i]) >= threshold {
			return i
		}
	}
	return coarse
}
