// Package midi renders transcribed drum events to a standard MIDI file:
// SMF type 0, channel 10, one short note per event at its quantized time.
package midi

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/drumscribe/drumscribe-api/internal/transcribe"
)

const (
	// drumChannel is General MIDI channel 10 (zero-based 9), the
	// percussion channel.
	drumChannel = 9

	// ticksPerQuarter is the SMF resolution.
	ticksPerQuarter = 960

	// noteDurationSec is the fixed length of every rendered note. Drum
	// hits are impulses; 50 ms is enough for any sampler to trigger.
	noteDurationSec = 0.05
)

// Render writes the events as a type-0 SMF at the given tempo. Events
// are placed at their quantized times; velocities are clamped to the
// MIDI range.
func Render(w io.Writer, events []transcribe.DrumEvent, bpm float64) error {
	if bpm <= 0 {
		return fmt.Errorf("invalid bpm: %v", bpm)
	}

	ticks := smf.MetricTicks(ticksPerQuarter)
	s := smf.New()
	s.TimeFormat = ticks

	sorted := make([]transcribe.DrumEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].QuantizedTime < sorted[j].QuantizedTime
	})

	// Interleave note-on/note-off pairs in absolute tick order, then
	// convert to deltas while writing.
	type tickEvent struct {
		tick uint32
		msg  midi.Message
	}
	timeline := make([]tickEvent, 0, len(sorted)*2+1)

	secToTick := func(sec float64) uint32 {
		beats := sec * bpm / 60.0
		return uint32(beats*float64(ticksPerQuarter) + 0.5)
	}

	for _, e := range sorted {
		onTick := secToTick(e.QuantizedTime)
		offTick := secToTick(e.QuantizedTime + noteDurationSec)
		if offTick <= onTick {
			offTick = onTick + 1
		}
		timeline = append(timeline,
			tickEvent{tick: onTick, msg: midi.NoteOn(drumChannel, uint8(e.MIDINote), clampVelocity(e.Velocity))},
			tickEvent{tick: offTick, msg: midi.NoteOff(drumChannel, uint8(e.MIDINote))},
		)
	}
	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].tick < timeline[j].tick })

	var track smf.Track
	track.Add(0, smf.MetaTempo(bpm))

	var cursor uint32
	for _, te := range timeline {
		track.Add(te.tick-cursor, te.msg)
		cursor = te.tick
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return fmt.Errorf("add midi track: %w", err)
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

// RenderFile renders the events to a file on disk.
func RenderFile(path string, events []transcribe.DrumEvent, bpm float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create midi file: %w", err)
	}
	defer file.Close()

	return Render(file, events, bpm)
}

func clampVelocity(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
