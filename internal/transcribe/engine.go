package transcribe

import (
	"log"
	"sort"

	"github.com/drumscribe/drumscribe-api/internal/cluster"
	"github.com/drumscribe/drumscribe-api/internal/drums"
	"github.com/drumscribe/drumscribe-api/internal/dsp"
	"github.com/drumscribe/drumscribe-api/internal/onset"
)

// Engine runs the full transcription pipeline over decoded audio. A
// fixed seed makes clustering reproducible across runs on identical
// input.
type Engine struct {
	Seed int64
}

// NewEngine returns an engine with the default clustering seed.
func NewEngine() *Engine {
	return &Engine{Seed: 42}
}

// stemTypes maps separated stem names to the drum type their onsets are
// assigned before pattern correction.
var stemTypes = map[string]drums.Type{
	"kick":    drums.Kick,
	"snare":   drums.Snare,
	"toms":    drums.TomMid,
	"hh":      drums.ClosedHiHat,
	"cymbals": drums.Crash,
}

// stemClusterIDs gives each stem a stable synthetic cluster id so that
// relabeling works the same way it does on the clustered mix path.
var stemClusterIDs = map[string]int{
	"kick":    0,
	"snare":   1,
	"toms":    2,
	"hh":      3,
	"cymbals": 4,
}

// TranscribeMix transcribes a single (unseparated) drum mix: detect
// onsets aggressively, extract a feature vector per onset, cluster the
// vectors, auto-label the clusters, then deduplicate and run the
// hi-hat and crash pattern correctors.
func (e *Engine) TranscribeMix(buf dsp.Buffer, bpm float64) ([]DrumEvent, []ClusterInfo) {
	onsets := onset.Detect(buf, onset.AggressiveProfile())
	log.Printf("[DEBUG] Detected %d onsets in %.2fs of audio", len(onsets), buf.Duration())
	if len(onsets) == 0 {
		return []DrumEvent{}, []ClusterInfo{}
	}

	features := make([][]float64, len(onsets))
	rms := make([]float64, len(onsets))
	for i, smp := range onsets {
		features[i] = dsp.ExtractFeatures(buf, smp)
		rms[i] = dsp.RMSAtOnset(buf, smp)
	}

	assign, k := cluster.Onsets(features, e.Seed)
	log.Printf("[DEBUG] Clustered %d onsets into %d groups", len(onsets), k)

	clusters := AutoLabel(features, assign)
	labelByID := make(map[int]drums.Type, len(clusters))
	confByID := make(map[int]float64, len(clusters))
	for _, c := range clusters {
		labelByID[c.ID] = c.Label
		confByID[c.ID] = c.SuggestionConfidence
	}

	events := make([]DrumEvent, 0, len(onsets))
	for i, smp := range onsets {
		t := float64(smp) / float64(buf.Rate)
		dt := labelByID[assign[i]]
		events = append(events, DrumEvent{
			Time:          round(t, 4),
			QuantizedTime: round(Quantize(t, bpm), 4),
			DrumType:      dt,
			MIDINote:      dt.MIDINote(),
			Velocity:      drums.EstimateVelocity(rms[i]),
			Confidence:    round(confByID[assign[i]], 3),
			ClusterID:     assign[i],
		})
	}

	events = Deduplicate(events)
	events, clusters = e.correctPatterns(events, clusters, bpm, buf.Duration())
	recomputeClusterStats(events, clusters)
	return events, clusters
}

// TranscribeStems transcribes pre-separated drum stems. Each stem gets
// its own onset profile and a fixed drum type, so no clustering or
// auto-labeling runs; the synthetic clusters still allow relabeling.
func (e *Engine) TranscribeStems(stems map[string]dsp.Buffer, bpm float64) ([]DrumEvent, []ClusterInfo) {
	var events []DrumEvent
	var clusters []ClusterInfo
	var duration float64

	names := make([]string, 0, len(stems))
	for name := range stems {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		buf := stems[name]
		if buf.Duration() > duration {
			duration = buf.Duration()
		}
		dt, ok := stemTypes[name]
		if !ok {
			log.Printf("[DEBUG] Skipping unrecognized stem %q", name)
			continue
		}
		profile := onset.StemProfile(name)
		onsets := onset.Detect(buf, profile)
		log.Printf("[DEBUG] Stem %s: %d onsets", name, len(onsets))

		id := stemClusterIDs[name]
		for _, smp := range onsets {
			t := float64(smp) / float64(buf.Rate)
			events = append(events, DrumEvent{
				Time:          round(t, 4),
				QuantizedTime: round(QuantizeTolerance(t, bpm, profile.SnapTolerance), 4),
				DrumType:      dt,
				MIDINote:      dt.MIDINote(),
				Velocity:      drums.EstimateVelocity(dsp.RMSAtOnset(buf, smp)),
				Confidence:    0.9,
				ClusterID:     id,
			})
		}
		clusters = append(clusters, ClusterInfo{
			ID:                   id,
			SuggestedLabel:       dt,
			Label:                dt,
			SuggestionConfidence: 0.9,
		})
	}

	if events == nil {
		return []DrumEvent{}, clusters
	}
	events = Deduplicate(events)
	events, clusters = e.correctPatterns(events, clusters, bpm, duration)
	recomputeClusterStats(events, clusters)
	return events, clusters
}

// correctPatterns runs the hi-hat grid inference and crash riding/accent
// classification over a deduplicated event list, then merges the results
// back into time order.
func (e *Engine) correctPatterns(events []DrumEvent, clusters []ClusterInfo, bpm, duration float64) ([]DrumEvent, []ClusterInfo) {
	var hh, kick, snare, crash, rest []DrumEvent
	for _, ev := range events {
		switch ev.DrumType {
		case drums.ClosedHiHat:
			hh = append(hh, ev)
		case drums.Kick:
			kick = append(kick, ev)
		case drums.Snare:
			snare = append(snare, ev)
		case drums.Crash:
			crash = append(crash, ev)
		default:
			rest = append(rest, ev)
		}
	}

	hh = CorrectHiHats(hh, kick, snare, bpm, duration)

	crash, riding := ClassifyCrashes(crash, kick, bpm, duration)
	if riding {
		for i := range clusters {
			if clusters[i].Label == drums.Crash {
				clusters[i].Label = drums.Ride
				log.Printf("[DEBUG] Relabeled cluster %d crash -> ride (riding pattern)", clusters[i].ID)
			}
		}
	}

	merged := make([]DrumEvent, 0, len(hh)+len(kick)+len(snare)+len(crash)+len(rest))
	merged = append(merged, kick...)
	merged = append(merged, snare...)
	merged = append(merged, hh...)
	merged = append(merged, crash...)
	merged = append(merged, rest...)
	sortEventsByTime(merged)
	return merged, clusters
}
