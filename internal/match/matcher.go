package match

import (
	"github.com/your-org/azuratime/internal/models"
)

// Match is the nearest gallery identity to a probe.
type Match struct {
	StudentID string
	Name      string
	Distance  float32
}

// Best scans the gallery linearly and returns the entry closest to the
// probe, accepted only if its distance is strictly below threshold.
// Ties keep the first-encountered entry, so results are deterministic
// for a fixed gallery order. Returns ok=false when the gallery is empty
// or no entry clears the threshold ("unregistered").
//
// Brute force O(len(gallery) × dim) per probe; fine for a single-site
// attendance roster. An ANN index would change accept/reject behavior
// at the threshold boundary, so the linear scan is kept.
func Best(probe []float32, gallery []models.Face, threshold float32) (Match, bool, error) {
	best := Match{Distance: -1}
	found := false

	for _, face := range gallery {
		d, err := Distance(probe, face.Embedding)
		if err != nil {
			return Match{}, false, err
		}
		if !found || d < best.Distance {
			best = Match{StudentID: face.StudentID, Name: face.Name, Distance: d}
			found = true
		}
	}

	if !found || best.Distance >= threshold {
		return Match{}, false, nil
	}
	return best, true, nil
}
