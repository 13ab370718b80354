// Package onset finds candidate strike times in a mono buffer using a
// spectral-flux envelope and local-maximum peak picking.
package onset

// Profile is a peak-picking parameter set. Frames refer to envelope frames
// at the detector hop size.
type Profile struct {
	// Delta is the required height of a peak above the local average, on
	// the max-normalized flux envelope.
	Delta float64
	// Wait is the minimum number of frames between reported onsets.
	Wait int

	PreMax  int
	PostMax int
	PreAvg  int
	PostAvg int

	// Backtrack walks each peak back to the preceding envelope minimum,
	// closer to the true attack start.
	Backtrack bool
	// Refine locates the first sample exceeding 30% of the local peak
	// amplitude within ±15ms of the coarse onset. Used for stems with
	// sharp transients; cymbal attacks are too soft for it to help.
	Refine bool

	// SnapTolerance is the largest deviation, as a fraction of a
	// sixteenth note, at which a detected time still snaps to the grid.
	SnapTolerance float64
}

// stemProfiles holds the conservative single-pass parameters per isolated
// instrument stem. Low wait for fast hi-hats and snares, high wait for
// long-ringing cymbals to suppress retriggers.
var stemProfiles = map[string]Profile{
	"kick":    {Delta: 0.08, Wait: 3, PreMax: 2, PostMax: 2, PreAvg: 3, PostAvg: 4, Refine: true, SnapTolerance: 0.15},
	"snare":   {Delta: 0.06, Wait: 2, PreMax: 2, PostMax: 2, PreAvg: 3, PostAvg: 4, Refine: true, SnapTolerance: 0.15},
	"toms":    {Delta: 0.07, Wait: 3, PreMax: 2, PostMax: 2, PreAvg: 3, PostAvg: 4, Refine: true, SnapTolerance: 0.15},
	"hh":      {Delta: 0.05, Wait: 1, PreMax: 2, PostMax: 2, PreAvg: 3, PostAvg: 4, Backtrack: true, SnapTolerance: 0.30},
	"cymbals": {Delta: 0.06, Wait: 4, PreMax: 2, PostMax: 2, PreAvg: 3, PostAvg: 4, Backtrack: true, SnapTolerance: 0.30},
}

// DefaultProfile applies to stems without a dedicated parameter set.
func DefaultProfile() Profile {
	return Profile{Delta: 0.06, Wait: 2, PreMax: 2, PostMax: 2, PreAvg: 3, PostAvg: 4, Backtrack: true, SnapTolerance: 0.30}
}

// AggressiveProfile is the low-wait, low-delta regime used when clustering
// must discover instrument identity from a mixed drums-only buffer.
func AggressiveProfile() Profile {
	return Profile{Delta: 0.06, Wait: 1, PreMax: 2, PostMax: 2, PreAvg: 3, PostAvg: 4, Backtrack: true, SnapTolerance: 0.30}
}

// StemProfile returns the parameter set for a named stem, falling back to
// DefaultProfile for unknown names.
func StemProfile(stem string) Profile {
	if p, ok := stemProfiles[stem]; ok {
		return p
	}
	return DefaultProfile()
}
