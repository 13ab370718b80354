// Package transcribe turns detected onsets into a quantized,
// per-instrument drum event timeline: cluster auto-labeling, type-aware
// deduplication, rhythmic pattern correction, and the user-driven
// relabel/regenerate flow.
package transcribe

import (
	"math"
	"sort"

	"github.com/drumscribe/drumscribe-api/internal/drums"
)

// DrumEvent is one transcribed strike. Raw Time is never altered after
// construction; QuantizedTime, DrumType and MIDINote change under
// relabeling and pattern correction.
type DrumEvent struct {
	Time          float64    `json:"time"`
	QuantizedTime float64    `json:"quantized_time"`
	DrumType      drums.Type `json:"drum_type"`
	MIDINote      int        `json:"midi_note"`
	Velocity      int        `json:"velocity"`
	Confidence    float64    `json:"confidence"`
	ClusterID     int        `json:"cluster_id"`
}

// ClusterInfo describes one onset cluster: the heuristic label suggestion,
// the currently active label, and summary statistics recomputed after
// every deduplication pass.
type ClusterInfo struct {
	ID                   int        `json:"id"`
	SuggestedLabel       drums.Type `json:"suggested_label"`
	Label                drums.Type `json:"label"`
	SuggestionConfidence float64    `json:"suggestion_confidence"`
	EventCount           int        `json:"event_count"`
	MeanVelocity         float64    `json:"mean_velocity"`
	RepresentativeTime   float64    `json:"representative_time"`
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func sortEventsByTime(events []DrumEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
}

// recomputeClusterStats refreshes event count, mean velocity, and
// representative time (median member time) per cluster from the surviving
// events.
func recomputeClusterStats(events []DrumEvent, clusters []ClusterInfo) {
	byCluster := make(map[int][]DrumEvent)
	for _, e := range events {
		byCluster[e.ClusterID] = append(byCluster[e.ClusterID], e)
	}

	for i := range clusters {
		members := byCluster[clusters[i].ID]
		clusters[i].EventCount = len(members)
		if len(members) == 0 {
			clusters[i].MeanVelocity = 0
			clusters[i].RepresentativeTime = 0
			continue
		}

		var velocitySum float64
		times := make([]float64, len(members))
		for j, e := range members {
			velocitySum += float64(e.Velocity)
			times[j] = e.Time
		}
		sort.Float64s(times)

		clusters[i].MeanVelocity = round(velocitySum/float64(len(members)), 1)
		clusters[i].RepresentativeTime = round(times[len(times)/2], 3)
	}
}
