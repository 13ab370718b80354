// Package drums defines the drum-type catalog: the nine General MIDI
// percussion categories the transcription engine can emit, their MIDI note
// numbers on channel 10, and the per-type minimum inter-onset gaps used by
// deduplication. The catalog is process-wide and immutable; concurrent
// pipeline runs read it without synchronization.
package drums

// Type identifies one of the nine drum categories in the catalog.
type Type string

const (
	Kick        Type = "kick"
	Snare       Type = "snare"
	ClosedHiHat Type = "closed_hihat"
	OpenHiHat   Type = "open_hihat"
	TomHigh     Type = "tom_high"
	TomMid      Type = "tom_mid"
	TomLow      Type = "tom_low"
	Crash       Type = "crash"
	Ride        Type = "ride"
)

// midiNotes maps drum types to General MIDI percussion notes (channel 10).
var midiNotes = map[Type]int{
	Kick:        36,
	Snare:       38,
	ClosedHiHat: 42,
	OpenHiHat:   46,
	TomHigh:     50,
	TomMid:      47,
	TomLow:      45,
	Crash:       49,
	Ride:        51,
}

// minGapMS is the minimum inter-onset gap per drum type in milliseconds.
// Deduplication merges onsets of the same cluster closer than this.
var minGapMS = map[Type]int{
	Kick:        35,
	Snare:       40,
	ClosedHiHat: 25,
	OpenHiHat:   80,
	Crash:       150,
	Ride:        60,
	TomHigh:     40,
	TomMid:      40,
	TomLow:      50,
}

// defaultMinGapMS applies when a type is somehow absent from the gap table.
const defaultMinGapMS = 40

// Parse returns the Type for a catalog key. The second return is false for
// anything outside the nine catalog keys; callers other than the relabel
// path should treat that as a construction error.
func Parse(s string) (Type, bool) {
	t := Type(s)
	_, ok := midiNotes[t]
	return t, ok
}

// Types returns all nine catalog keys in a stable order.
func Types() []Type {
	return []Type{Kick, Snare, ClosedHiHat, OpenHiHat, TomHigh, TomMid, TomLow, Crash, Ride}
}

// Valid reports whether t is one of the nine catalog keys.
func (t Type) Valid() bool {
	_, ok := midiNotes[t]
	return ok
}

// MIDINote returns the General MIDI percussion note for t. Unknown types
// map to 0, which no caller should ever see: events are constructed only
// from parsed types.
func (t Type) MIDINote() int {
	return midiNotes[t]
}

// MinGap returns the minimum inter-onset gap for t in seconds.
func (t Type) MinGap() float64 {
	if ms, ok := minGapMS[t]; ok {
		return float64(ms) / 1000.0
	}
	return float64(defaultMinGapMS) / 1000.0
}

const (
	velocityMin = 40
	velocityMax = 127

	// Typical onset-window RMS for drum hits tops out around 0.3.
	velocityFullScaleRMS = 0.3
)

// EstimateVelocity maps onset RMS energy to a MIDI velocity in [40, 127].
func EstimateVelocity(rms float64) int {
	normalized := rms / velocityFullScaleRMS
	if normalized > 1.0 {
		normalized = 1.0
	}
	if normalized < 0.0 {
		normalized = 0.0
	}
	v := velocityMin + int(normalized*float64(velocityMax-velocityMin))
	if v > velocityMax {
		v = velocityMax
	}
	if v < velocityMin {
		v = velocityMin
	}
	return v
}
