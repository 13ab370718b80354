package transcribe

import (
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/drumscribe/drumscribe-api/internal/drums"
)

const (
	// ridingCVThreshold: inter-onset intervals with a coefficient of
	// variation below this are regular enough to be a riding pattern.
	ridingCVThreshold = 0.35
	// ridingMinDensity: events per bar needed to call it riding.
	ridingMinDensity = 4.0

	accentWeightVelocity   = 0.40
	accentWeightKick       = 0.35
	accentWeightStrongBeat = 0.25
	accentMinScore         = 0.60

	// accentVelocityThreshold: a strike at or above this velocity counts
	// as a strong attack in accent scoring.
	accentVelocityThreshold = 60

	kickCoincidenceWindow = 0.050
	strongBeatTolerance   = 0.15

	// After keeping an accent, suppress further crashes for this many
	// beats unless a candidate is sustainOverrideMult louder.
	sustainSuppressBeats = 2.0
	sustainOverrideMult  = 1.2

	rideSlotsPerBar = 8
)

// ClassifyCrashes analyzes crash-labeled events and decides between two
// performance modes: riding (the crash used as a steady timekeeper, all
// events relabeled to ride and grid-corrected) and accent mode (events
// filtered down to genuine accents). Fewer than 2 events pass through
// unchanged. The second return reports riding.
func ClassifyCrashes(crashEvents, kickEvents []DrumEvent, bpm, duration float64) ([]DrumEvent, bool) {
	if len(crashEvents) < 2 {
		return crashEvents, false
	}

	beatDur := 60.0 / bpm
	barDur := beatDur * 4
	numBars := int(duration / barDur)
	if numBars < 1 {
		numBars = 1
	}

	times := make([]float64, len(crashEvents))
	for i, e := range crashEvents {
		times[i] = e.Time
	}
	sort.Float64s(times)

	iois := make([]float64, len(times)-1)
	for i := 1; i < len(times); i++ {
		iois[i-1] = times[i] - times[i-1]
	}
	if len(iois) == 0 {
		return crashEvents, false
	}

	meanIOI := stat.Mean(iois, nil)
	cv := math.Inf(1)
	if meanIOI > 0 {
		cv = stat.PopStdDev(iois, nil) / meanIOI
	}
	density := float64(len(crashEvents)) / float64(numBars)

	log.Printf("[DEBUG] Crash analysis: %d events, IOI CV=%.3f, density=%.1f/bar", len(crashEvents), cv, density)

	if cv < ridingCVThreshold && density >= ridingMinDensity {
		return correctRiding(crashEvents, bpm, duration), true
	}
	return filterAccents(crashEvents, kickEvents, bpm), false
}

// correctRiding relabels a regular crash pattern as ride and applies
// 8th-note grid majority voting, the same dominant/fill/suppress logic as
// the hi-hat corrector at half the resolution. Under four bars there is
// nothing to vote on, so events are only relabeled.
func correctRiding(crashEvents []DrumEvent, bpm, duration float64) []DrumEvent {
	beatDur := 60.0 / bpm
	eighthDur := beatDur / 2
	barDur := beatDur * 4
	numBars := int(duration / barDur)

	rideNote := drums.Ride.MIDINote()
	log.Printf("[DEBUG] Crash riding detected, relabeling %d events as ride", len(crashEvents))

	if numBars < minBarsForInference {
		relabeled := make([]DrumEvent, len(crashEvents))
		for i, e := range crashEvents {
			e.DrumType = drums.Ride
			e.MIDINote = rideNote
			relabeled[i] = e
		}
		return relabeled
	}

	barSlotHits := make(map[int]map[int][]int)
	for _, e := range crashEvents {
		barIdx := int(e.Time / barDur)
		if barIdx >= numBars {
			barIdx = numBars - 1
		}
		timeInBar := e.Time - float64(barIdx)*barDur
		slot := int(math.Round(timeInBar/eighthDur)) % rideSlotsPerBar

		if barSlotHits[barIdx] == nil {
			barSlotHits[barIdx] = make(map[int][]int)
		}
		barSlotHits[barIdx][slot] = append(barSlotHits[barIdx][slot], e.Velocity)
	}

	dominant := dominantSlots(barSlotHits, numBars, rideSlotsPerBar)

	velocities := make([]float64, len(crashEvents))
	for i, e := range crashEvents {
		velocities[i] = float64(e.Velocity)
	}
	sort.Float64s(velocities)
	medianVelocity := int(stat.Quantile(0.5, stat.Empirical, velocities, nil))

	clusterID := crashEvents[0].ClusterID
	var corrected []DrumEvent

	rideEvent := func(slotTime float64, velocity int, confidence float64) DrumEvent {
		return DrumEvent{
			Time:          round(slotTime, 4),
			QuantizedTime: round(slotTime, 4),
			DrumType:      drums.Ride,
			MIDINote:      rideNote,
			Velocity:      velocity,
			Confidence:    confidence,
			ClusterID:     clusterID,
		}
	}

	for barIdx := 0; barIdx < numBars; barIdx++ {
		barStart := float64(barIdx) * barDur
		barData := barSlotHits[barIdx]

		for slot := 0; slot < rideSlotsPerBar; slot++ {
			slotTime := barStart + float64(slot)*eighthDur
			if slotTime > duration {
				break
			}

			hits, hasDetection := barData[slot]
			switch {
			case dominant[slot] && hasDetection:
				corrected = append(corrected, rideEvent(slotTime, meanVelocity(hits), 0.90))
			case dominant[slot]:
				corrected = append(corrected, rideEvent(slotTime, medianVelocity, 0.65))
			case hasDetection:
				if vel := meanVelocity(hits); float64(vel) > nonDominantVelocityMult*float64(medianVelocity) {
					corrected = append(corrected, rideEvent(slotTime, vel, 0.70))
				}
			}
		}
	}

	log.Printf("[DEBUG] Ride pattern: %d raw -> %d corrected", len(crashEvents), len(corrected))
	return corrected
}

// filterAccents keeps only genuine crash accents: each event scores on
// attack velocity, kick coincidence, and strong-beat placement, and must
// reach accentMinScore. A kept crash suppresses detections for two beats,
// overridden only by a markedly louder candidate.
func filterAccents(crashEvents, kickEvents []DrumEvent, bpm float64) []DrumEvent {
	beatDur := 60.0 / bpm

	kickTimes := make([]float64, len(kickEvents))
	for i, e := range kickEvents {
		kickTimes[i] = e.Time
	}
	sort.Float64s(kickTimes)

	sorted := make([]DrumEvent, len(crashEvents))
	copy(sorted, crashEvents)
	sortEventsByTime(sorted)

	var kept []DrumEvent
	suppressUntil := -1.0

	for _, e := range sorted {
		if e.Time < suppressUntil {
			if len(kept) == 0 || float64(e.Velocity) <= sustainOverrideMult*float64(kept[len(kept)-1].Velocity) {
				continue
			}
		}

		var score float64
		if e.Velocity >= accentVelocityThreshold {
			score += accentWeightVelocity
		}
		if hasNearbyTime(kickTimes, e.Time, kickCoincidenceWindow) {
			score += accentWeightKick
		}

		// Strong beats are 1 and 3, within a fraction of the beat.
		beatPosition := math.Mod(e.Time, beatDur*4) / beatDur
		onStrongBeat := beatPosition < strongBeatTolerance ||
			math.Abs(beatPosition-2) < strongBeatTolerance ||
			math.Abs(beatPosition-4) < strongBeatTolerance
		if onStrongBeat {
			score += accentWeightStrongBeat
		}

		if score >= accentMinScore {
			e.Confidence = round(math.Min(score, 1.0), 2)
			kept = append(kept, e)
			suppressUntil = e.Time + sustainSuppressBeats*beatDur
		}
	}

	log.Printf("[DEBUG] Crash accent filter: %d raw -> %d kept", len(crashEvents), len(kept))
	return kept
}
