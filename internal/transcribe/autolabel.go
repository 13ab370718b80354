package transcribe

import (
	"math"
	"sort"

	"github.com/drumscribe/drumscribe-api/internal/drums"
	"github.com/drumscribe/drumscribe-api/internal/dsp"
)

// Auto-labeling cascade thresholds. Hand-tuned calibration constants kept
// in one block; retune against a reference corpus, not individually.
const (
	kickLowEnergy   = 0.65
	kickMaxCentroid = 1500.0

	crashHighEnergy  = 0.45
	crashMinFlatness = 0.20
	crashMinSustain  = 0.6

	rideHighEnergy  = 0.40
	rideMinFlatness = 0.15
	rideMinSustain  = 0.5

	hatHighEnergy        = 0.35
	closedHatMaxSustain  = 0.4
	snareMidEnergy       = 0.45
	snareMinFlatness     = 0.08
	snareMinCentroid     = 2000.0
	tomSuggestConfidence = 0.4
)

// AutoLabel assigns a drum type to each cluster from its mean spectral
// signature. The decision cascade is ordered: earlier rules pre-empt later
// ones. Clusters matching nothing are sorted by ascending centroid and
// assigned low/mid/high tom; any surplus falls back to closed hi-hat.
func AutoLabel(features [][]float64, assign []int) []ClusterInfo {
	if len(features) == 0 {
		return nil
	}

	ids := uniqueClusterIDs(assign)
	means := clusterMeans(features, assign, ids)

	clusters := make([]ClusterInfo, 0, len(ids))
	type tomCandidate struct {
		id       int
		centroid float64
	}
	var toms []tomCandidate

	counts := make(map[int]int)
	for _, c := range assign {
		counts[c]++
	}

	for _, id := range ids {
		mean := means[id]
		subBass := mean[dsp.IdxSubBass]
		bass := mean[dsp.IdxBass]
		mid := mean[dsp.IdxMid]
		hiMid := mean[dsp.IdxHiMid]
		high := mean[dsp.IdxHigh]
		centroid := mean[dsp.IdxCentroid]
		flatness := mean[dsp.IdxFlatness]
		sustain := mean[dsp.IdxSustain]

		var label drums.Type
		confidence := 0.5

		switch {
		case subBass+bass > kickLowEnergy && centroid < kickMaxCentroid:
			label = drums.Kick
			confidence = math.Min(0.95, (subBass+bass)*1.2)
		case hiMid+high > crashHighEnergy && flatness > crashMinFlatness && sustain > crashMinSustain:
			label = drums.Crash
			confidence = math.Min(0.9, flatness*3)
		case hiMid+high > rideHighEnergy && flatness > rideMinFlatness && sustain > rideMinSustain:
			label = drums.Ride
			confidence = math.Min(0.85, flatness*3)
		case hiMid+high > hatHighEnergy && sustain < closedHatMaxSustain:
			label = drums.ClosedHiHat
			confidence = math.Min(0.85, (hiMid+high)*1.1)
		case hiMid+high > hatHighEnergy && sustain >= closedHatMaxSustain:
			label = drums.OpenHiHat
			confidence = math.Min(0.8, sustain)
		case mid+hiMid > snareMidEnergy && flatness > snareMinFlatness && centroid > snareMinCentroid:
			label = drums.Snare
			confidence = math.Min(0.8, mid+hiMid)
		default:
			toms = append(toms, tomCandidate{id: id, centroid: centroid})
			continue
		}

		clusters = append(clusters, ClusterInfo{
			ID:                   id,
			SuggestedLabel:       label,
			Label:                label,
			SuggestionConfidence: round(confidence, 3),
			EventCount:           counts[id],
		})
	}

	// Tom sorting: remaining clusters by ascending centroid get low, mid,
	// high tom; anything past three becomes closed hi-hat as a label of
	// last resort.
	sort.Slice(toms, func(i, j int) bool { return toms[i].centroid < toms[j].centroid })
	tomOrder := []drums.Type{drums.TomLow, drums.TomMid, drums.TomHigh}
	for idx, cand := range toms {
		label := drums.ClosedHiHat
		if idx < len(tomOrder) {
			label = tomOrder[idx]
		}
		clusters = append(clusters, ClusterInfo{
			ID:                   cand.id,
			SuggestedLabel:       label,
			Label:                label,
			SuggestionConfidence: tomSuggestConfidence,
			EventCount:           counts[cand.id],
		})
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })
	return clusters
}

func uniqueClusterIDs(assign []int) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, c := range assign {
		if !seen[c] {
			seen[c] = true
			ids = append(ids, c)
		}
	}
	sort.Ints(ids)
	return ids
}

func clusterMeans(features [][]float64, assign []int, ids []int) map[int][]float64 {
	sums := make(map[int][]float64, len(ids))
	counts := make(map[int]int, len(ids))
	for _, id := range ids {
		sums[id] = make([]float64, len(features[0]))
	}
	for i, row := range features {
		id := assign[i]
		counts[id]++
		for j, v := range row {
			sums[id][j] += v
		}
	}
	for id, sum := range sums {
		for j := range sum {
			sum[j] /= float64(counts[id])
		}
	}
	return sums
}
