package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drumscribe/drumscribe-api/internal/drums"
)

func crashEvent(t float64, velocity int) DrumEvent {
	return DrumEvent{
		Time:      t,
		DrumType:  drums.Crash,
		MIDINote:  drums.Crash.MIDINote(),
		Velocity:  velocity,
		ClusterID: 4,
	}
}

func TestClassifyCrashesFewEventsPassthrough(t *testing.T) {
	events := []DrumEvent{crashEvent(1.0, 90)}
	out, riding := ClassifyCrashes(events, nil, 120, 8.0)
	assert.False(t, riding)
	assert.Equal(t, events, out)
}

func TestClassifyCrashesRidingDetected(t *testing.T) {
	// Quarter-note crashes for 4 bars at 120 bpm: perfectly regular,
	// 4 per bar. That is a timekeeping pattern, not accenting.
	var events []DrumEvent
	for i := 0; i < 16; i++ {
		events = append(events, crashEvent(float64(i)*0.5, 85))
	}

	out, riding := ClassifyCrashes(events, nil, 120, 8.0)

	assert.True(t, riding)
	require.NotEmpty(t, out)
	for _, e := range out {
		assert.Equal(t, drums.Ride, e.DrumType)
		assert.Equal(t, drums.Ride.MIDINote(), e.MIDINote)
	}
}

func TestClassifyCrashesRidingShortClipRelabelsOnly(t *testing.T) {
	// Regular and dense but under four bars: relabel without grid voting.
	var events []DrumEvent
	for i := 0; i < 8; i++ {
		events = append(events, crashEvent(float64(i)*0.5, 85))
	}

	out, riding := ClassifyCrashes(events, nil, 120, 4.0)

	assert.True(t, riding)
	require.Len(t, out, len(events))
	for i, e := range out {
		assert.Equal(t, drums.Ride, e.DrumType)
		assert.Equal(t, events[i].Time, e.Time, "relabel-only path must not move events")
	}
}

func TestClassifyCrashesAccentMode(t *testing.T) {
	// Two sparse crashes: a real accent on beat 1 with a kick under it,
	// and a quiet mid-beat hit that should be filtered out.
	events := []DrumEvent{
		crashEvent(0.0, 95),
		crashEvent(5.3, 40),
	}
	kicks := []DrumEvent{kickEvent(0.01, 100, 0)}

	out, riding := ClassifyCrashes(events, kicks, 120, 16.0)

	assert.False(t, riding)
	require.Len(t, out, 1)
	assert.Equal(t, 0.0, out[0].Time)
	assert.Equal(t, drums.Crash, out[0].DrumType)
	assert.InDelta(t, 1.0, out[0].Confidence, 1e-9)
}

func TestFilterAccentsSustainSuppression(t *testing.T) {
	// A kept accent suppresses detections for two beats; both follow-ups
	// sit on strong beats with kick support but only the markedly louder
	// one overrides the window.
	events := []DrumEvent{
		crashEvent(0.0, 100),
		crashEvent(0.5, 90),  // inside window, not louder enough
		crashEvent(0.9, 125), // inside window, > 1.2x the kept velocity
	}
	kicks := []DrumEvent{
		kickEvent(0.0, 100, 0),
		kickEvent(0.5, 100, 0),
		kickEvent(0.9, 100, 0),
	}

	out := filterAccents(events, kicks, 120)

	require.Len(t, out, 2)
	assert.Equal(t, 0.0, out[0].Time)
	assert.Equal(t, 0.9, out[1].Time)
}
