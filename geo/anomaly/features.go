package anomaly

import (
	"github.com/madrasiot/trackd/types/observation"
)

// FeatureDim is the width of every feature vector:
// [lat, lon, hour, day_of_week, speed].
const FeatureDim = 5

// ExtractFeatures encodes obs as a model input vector in the context of the
// current history. The speed element is computed between the history's
// second-to-last entry and obs when the history holds at least two entries,
// else 0. Note that the anchor is the history tail, not obs's own
// predecessor: during training every row of the matrix is extracted against
// the same (full) history snapshot, so every training row's speed is
// anchored on the same second-to-last point. That coupling is how the model
// was defined and trained, and changing it would shift the feature space.
func ExtractFeatures(obs observation.Observation, history []observation.Observation) []float64 {
	speed := 0.0
	if len(history) > 1 {
		speed = Speed(history[len(history)-2], obs)
	}
	return []float64{
		obs.Lat,
		obs.Lon,
		float64(obs.Hour),
		float64(obs.DayOfWeek),
		speed,
	}
}
