package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drumscribe/drumscribe-api/internal/drums"
)

func hhEvent(t float64, velocity int) DrumEvent {
	return DrumEvent{
		Time:      t,
		DrumType:  drums.ClosedHiHat,
		MIDINote:  drums.ClosedHiHat.MIDINote(),
		Velocity:  velocity,
		ClusterID: 3,
	}
}

// eighthsPattern builds hi-hat hits on every even sixteenth slot at
// 120 bpm, optionally skipping specific (bar, slot) pairs.
func eighthsPattern(numBars int, velocity int, skip map[[2]int]bool) []DrumEvent {
	var events []DrumEvent
	for bar := 0; bar < numBars; bar++ {
		for slot := 0; slot < 16; slot += 2 {
			if skip[[2]int{bar, slot}] {
				continue
			}
			events = append(events, hhEvent(float64(bar)*2.0+float64(slot)*0.125, velocity))
		}
	}
	return events
}

func TestCorrectHiHatsShortInputPassthrough(t *testing.T) {
	events := eighthsPattern(2, 80, nil)
	out := CorrectHiHats(events, nil, nil, 120, 6.0) // 3 bars, below threshold
	assert.Equal(t, events, out)
}

func TestCorrectHiHatsSparsePassthrough(t *testing.T) {
	// Hits only on the downbeat of each bar: 1 dominant slot, sparse.
	var events []DrumEvent
	for bar := 0; bar < 5; bar++ {
		events = append(events, hhEvent(float64(bar)*2.0, 80))
	}
	out := CorrectHiHats(events, nil, nil, 120, 10.0)
	assert.Equal(t, events, out)
}

func TestCorrectHiHatsFillsMissedDominantSlot(t *testing.T) {
	skip := map[[2]int]bool{{2, 4}: true} // omit bar 2, slot 4 (t=4.5)
	events := eighthsPattern(5, 80, skip)

	out := CorrectHiHats(events, nil, nil, 120, 10.0)

	var filled *DrumEvent
	for i := range out {
		if out[i].Time == 4.5 {
			filled = &out[i]
		}
	}
	require.NotNil(t, filled, "missed slot was not filled")
	assert.Equal(t, 80, filled.Velocity, "filled slot should carry the median velocity")
	assert.InDelta(t, confidenceFilled, filled.Confidence, 1e-9)
}

func TestCorrectHiHatsAnchorBoostsFilledConfidence(t *testing.T) {
	skip := map[[2]int]bool{{2, 4}: true}
	events := eighthsPattern(5, 80, skip)
	kicks := []DrumEvent{kickEvent(4.5, 100, 0)}

	out := CorrectHiHats(events, kicks, nil, 120, 10.0)

	for _, e := range out {
		if e.Time == 4.5 {
			assert.InDelta(t, confidenceFilled+anchorBoost, e.Confidence, 1e-9)
			return
		}
	}
	t.Fatal("filled slot not found")
}

func TestCorrectHiHatsAccentSurvivesOffGrid(t *testing.T) {
	events := eighthsPattern(5, 80, nil)
	// Loud hit on a non-dominant slot (bar 1, slot 1): a deliberate accent.
	events = append(events, hhEvent(2.125, 110))
	// Quiet hit on a non-dominant slot: hallucination, must be dropped.
	events = append(events, hhEvent(6.625, 50))
	sortEventsByTime(events)

	out := CorrectHiHats(events, nil, nil, 120, 10.0)

	var sawAccent, sawGhost bool
	for _, e := range out {
		if e.Time == 2.125 {
			sawAccent = true
			assert.InDelta(t, confidenceAccent, e.Confidence, 1e-9)
		}
		if e.Time == 6.625 {
			sawGhost = true
		}
	}
	assert.True(t, sawAccent, "loud off-pattern accent was dropped")
	assert.False(t, sawGhost, "quiet off-pattern hit survived")
}

func TestCorrectHiHatsConfidenceVocabulary(t *testing.T) {
	skip := map[[2]int]bool{{1, 2}: true, {3, 8}: true}
	events := eighthsPattern(5, 80, skip)
	events = append(events, hhEvent(2.125, 110))
	kicks := []DrumEvent{kickEvent(2.25, 100, 0)}
	sortEventsByTime(events)

	out := CorrectHiHats(events, kicks, nil, 120, 10.0)
	require.NotEmpty(t, out)

	allowed := map[float64]bool{0.95: true, 0.70: true, 0.80: true, 0.75: true}
	for _, e := range out {
		assert.True(t, allowed[e.Confidence], "unexpected confidence %v at t=%v", e.Confidence, e.Time)
	}
}

func TestClassifyPattern(t *testing.T) {
	even := map[int]bool{0: true, 2: true, 4: true, 6: true, 8: true, 10: true, 12: true, 14: true}
	assert.Equal(t, PatternEighths, classifyPattern(even))

	all := make(map[int]bool)
	for s := 0; s < 16; s++ {
		all[s] = true
	}
	assert.Equal(t, Pattern16ths, classifyPattern(all))

	shuffle := map[int]bool{0: true, 3: true, 4: true, 7: true, 8: true, 11: true, 12: true, 15: true}
	assert.Equal(t, PatternShuffle, classifyPattern(shuffle))

	assert.Equal(t, PatternSparse, classifyPattern(map[int]bool{0: true, 8: true}))
}
