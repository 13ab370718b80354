package transcribe

import (
	"log"

	"github.com/drumscribe/drumscribe-api/internal/drums"
)

// Relabel applies user-supplied cluster label overrides, propagates the
// new type and MIDI note to every event of each relabeled cluster,
// re-deduplicates (gap thresholds are type-dependent), and re-quantizes.
// Raw event times are never altered.
//
// This is the one deliberately permissive path for drum-type strings: a
// label outside the catalog is silently ignored for that cluster and the
// remaining clusters are still processed.
func Relabel(events []DrumEvent, clusters []ClusterInfo, labels map[int]string, bpm float64) ([]DrumEvent, []ClusterInfo) {
	active := make(map[int]drums.Type, len(clusters))
	for i := range clusters {
		if proposed, ok := labels[clusters[i].ID]; ok {
			if dt, valid := drums.Parse(proposed); valid {
				clusters[i].Label = dt
			} else {
				log.Printf("[DEBUG] Ignoring unknown drum type %q for cluster %d", proposed, clusters[i].ID)
			}
		}
		active[clusters[i].ID] = clusters[i].Label
	}

	for i := range events {
		if dt, ok := active[events[i].ClusterID]; ok {
			events[i].DrumType = dt
			events[i].MIDINote = dt.MIDINote()
		}
	}

	events = Deduplicate(events)

	for i := range events {
		events[i].QuantizedTime = round(Quantize(events[i].Time, bpm), 4)
	}

	recomputeClusterStats(events, clusters)
	return events, clusters
}
