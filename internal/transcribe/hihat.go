package transcribe

import (
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	// minBarsForInference: with fewer bars there is not enough material
	// to vote on a pattern and the raw detections pass through.
	minBarsForInference = 4

	// dominanceThreshold: a grid slot is dominant when hits land there in
	// at least this fraction of bars.
	dominanceThreshold = 0.50

	// nonDominantVelocityMult: a non-dominant detection survives only if
	// louder than this multiple of the global median (a deliberate accent).
	nonDominantVelocityMult = 1.3

	confidenceDetected = 0.95
	confidenceFilled   = 0.70
	confidenceAccent   = 0.75
	anchorBoost        = 0.10

	// anchorWindowSec: a kick or snare within this window of a filled
	// slot confirms the beat truly falls there.
	anchorWindowSec = 0.030

	hihatSlotsPerBar = 16
	sparseSlotLimit  = 4
)

// PatternType classifies the dominant hi-hat figure.
type PatternType string

const (
	PatternSparse  PatternType = "sparse"
	PatternEighths PatternType = "8ths"
	Pattern16ths   PatternType = "16ths"
	PatternShuffle PatternType = "shuffle"
	PatternMixed   PatternType = "mixed"
)

// CorrectHiHats applies grid-based pattern correction to raw hi-hat
// events. Hi-hats are rhythmically regular, so the dominant per-bar
// pattern found by majority vote is used to fill missed hits and drop
// hallucinated ones. Kick and snare events anchor the confidence of
// filled slots. Inputs shorter than four bars are returned unmodified.
func CorrectHiHats(hhEvents, kickEvents, snareEvents []DrumEvent, bpm, duration float64) []DrumEvent {
	beatDur := 60.0 / bpm
	barDur := beatDur * 4
	sixteenthDur := beatDur / 4
	numBars := int(duration / barDur)

	if numBars < minBarsForInference {
		log.Printf("[DEBUG] Hi-hat: only %d bars, skipping pattern inference", numBars)
		return hhEvents
	}
	if len(hhEvents) == 0 {
		return hhEvents
	}

	// Grid: velocities per (bar, sixteenth slot).
	barSlotHits := make(map[int]map[int][]int)
	for _, e := range hhEvents {
		barIdx := int(e.Time / barDur)
		if barIdx >= numBars {
			barIdx = numBars - 1
		}
		timeInBar := e.Time - float64(barIdx)*barDur
		slot := int(math.Round(timeInBar/sixteenthDur)) % hihatSlotsPerBar

		if barSlotHits[barIdx] == nil {
			barSlotHits[barIdx] = make(map[int][]int)
		}
		barSlotHits[barIdx][slot] = append(barSlotHits[barIdx][slot], e.Velocity)
	}

	dominant := dominantSlots(barSlotHits, numBars, hihatSlotsPerBar)
	pattern := classifyPattern(dominant)
	log.Printf("[DEBUG] Hi-hat pattern: %s, %d dominant slots, %d bars", pattern, len(dominant), numBars)

	if pattern == PatternSparse {
		return hhEvents
	}

	velocities := make([]float64, len(hhEvents))
	for i, e := range hhEvents {
		velocities[i] = float64(e.Velocity)
	}
	sort.Float64s(velocities)
	medianVelocity := int(stat.Quantile(0.5, stat.Empirical, velocities, nil))

	anchorTimes := make([]float64, 0, len(kickEvents)+len(snareEvents))
	for _, e := range kickEvents {
		anchorTimes = append(anchorTimes, e.Time)
	}
	for _, e := range snareEvents {
		anchorTimes = append(anchorTimes, e.Time)
	}
	sort.Float64s(anchorTimes)

	template := hhEvents[0]
	var corrected []DrumEvent

	for barIdx := 0; barIdx < numBars; barIdx++ {
		barStart := float64(barIdx) * barDur
		barData := barSlotHits[barIdx]

		for slot := 0; slot < hihatSlotsPerBar; slot++ {
			slotTime := barStart + float64(slot)*sixteenthDur
			if slotTime > duration {
				break
			}

			isDominant := dominant[slot]
			hits, hasDetection := barData[slot]

			switch {
			case isDominant && hasDetection:
				corrected = append(corrected, gridEvent(template, slotTime, meanVelocity(hits), confidenceDetected))

			case isDominant:
				conf := confidenceFilled
				if hasNearbyTime(anchorTimes, slotTime, anchorWindowSec) {
					conf += anchorBoost
				}
				corrected = append(corrected, gridEvent(template, slotTime, medianVelocity, round(math.Min(conf, 1.0), 2)))

			case hasDetection:
				if vel := meanVelocity(hits); float64(vel) > nonDominantVelocityMult*float64(medianVelocity) {
					corrected = append(corrected, gridEvent(template, slotTime, vel, confidenceAccent))
				}
			}
		}
	}

	log.Printf("[DEBUG] Hi-hat pattern correction: %d raw -> %d corrected", len(hhEvents), len(corrected))
	return corrected
}

// classifyPattern names the figure implied by the dominant slot set.
// Sparse patterns (at most 4 dominant slots) bypass correction entirely.
func classifyPattern(dominant map[int]bool) PatternType {
	if len(dominant) <= sparseSlotLimit {
		return PatternSparse
	}

	evenSlots := map[int]bool{0: true, 2: true, 4: true, 6: true, 8: true, 10: true, 12: true, 14: true}
	shuffleSlots := map[int]bool{0: true, 3: true, 4: true, 7: true, 8: true, 11: true, 12: true, 15: true}

	var evenMatch, shuffleMatch int
	for slot := range dominant {
		if evenSlots[slot] {
			evenMatch++
		}
		if shuffleSlots[slot] {
			shuffleMatch++
		}
	}
	evenRatio := float64(evenMatch) / float64(len(dominant))
	shuffleRatio := float64(shuffleMatch) / float64(len(dominant))

	switch {
	case len(dominant) >= 14:
		return Pattern16ths
	case shuffleRatio > 0.8 && evenRatio < 0.7:
		return PatternShuffle
	case evenRatio > 0.7:
		return PatternEighths
	default:
		return PatternMixed
	}
}

// dominantSlots counts, per slot, how many bars contain a hit there, and
// returns the slots active in at least dominanceThreshold of bars.
func dominantSlots(barSlotHits map[int]map[int][]int, numBars, slotsPerBar int) map[int]bool {
	slotBarCount := make(map[int]int)
	for barIdx := 0; barIdx < numBars; barIdx++ {
		for slot := range barSlotHits[barIdx] {
			slotBarCount[slot]++
		}
	}

	dominant := make(map[int]bool)
	for slot, count := range slotBarCount {
		if float64(count)/float64(numBars) >= dominanceThreshold {
			dominant[slot] = true
		}
	}
	return dominant
}

func gridEvent(template DrumEvent, slotTime float64, velocity int, confidence float64) DrumEvent {
	return DrumEvent{
		Time:          round(slotTime, 4),
		QuantizedTime: round(slotTime, 4),
		DrumType:      template.DrumType,
		MIDINote:      template.MIDINote,
		Velocity:      velocity,
		Confidence:    confidence,
		ClusterID:     template.ClusterID,
	}
}

func meanVelocity(velocities []int) int {
	var sum int
	for _, v := range velocities {
		sum += v
	}
	return sum / len(velocities)
}

// hasNearbyTime reports whether sorted times contains an entry within
// ±window of t, by binary search.
func hasNearbyTime(sorted []float64, t, window float64) bool {
	i := sort.SearchFloat64s(sorted, t-window)
	return i < len(sorted) && sorted[i] <= t+window
}
