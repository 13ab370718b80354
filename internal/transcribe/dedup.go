package transcribe

import "sort"

// Deduplicate collapses near-duplicate onsets per cluster using the drum
// type's minimum inter-onset gap, keeping the higher-velocity event of any
// sub-gap pair. The last-kept pointer advances only on a genuine keep, so
// a chain of sub-threshold onsets collapses to its single strongest
// representative. Idempotent, and the result is globally time-sorted.
func Deduplicate(events []DrumEvent) []DrumEvent {
	if len(events) == 0 {
		return events
	}

	byCluster := make(map[int][]DrumEvent)
	var order []int
	for _, e := range events {
		if _, ok := byCluster[e.ClusterID]; !ok {
			order = append(order, e.ClusterID)
		}
		byCluster[e.ClusterID] = append(byCluster[e.ClusterID], e)
	}
	sort.Ints(order)

	kept := make([]DrumEvent, 0, len(events))
	for _, cid := range order {
		group := byCluster[cid]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Time < group[j].Time })

		// Clusters carry a uniform drum type; the first event stands in
		// for the group.
		minGap := group[0].DrumType.MinGap()

		result := []DrumEvent{group[0]}
		last := group[0]
		for _, e := range group[1:] {
			if e.Time-last.Time >= minGap {
				result = append(result, e)
				last = e
				continue
			}
			if e.Velocity > last.Velocity {
				result[len(result)-1] = e
				last = e
			}
		}
		kept = append(kept, result...)
	}

	sortEventsByTime(kept)
	return kept
}
