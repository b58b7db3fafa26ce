// Package anomaly flags device observations that deviate from the learned
// movement pattern of a single tracked device.
//
// The Detector owns an append-only observation history and an isolation
// forest that is fit exactly once, on the history snapshot present when the
// training threshold is first reached. There is no path back: later
// ingestion never refits the model.
package anomaly

import (
	"fmt"
	"sync"
	"time"

	"github.com/madrasiot/trackd/iforest"
	"github.com/madrasiot/trackd/params"
	"github.com/madrasiot/trackd/types/observation"
	"github.com/montanaflynn/stats"
)

const (
	reasonNormal      = "Normal behavior"
	reasonUnusualTime = "Movement at unusual time"
	reasonPattern     = "Location pattern is unusual"
)

// Result is the outcome of one prediction, as served to clients.
type Result struct {
	IsAnomaly  bool    `json:"is_anomaly"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	DataPoints int     `json:"data_points"`
}

// Stats reports detector training state. Reads are idempotent.
type Stats struct {
	IsTrained    bool `json:"is_trained"`
	TotalPoints  int  `json:"total_points"`
	PointsNeeded int  `json:"points_needed"`
}

// A Prediction pairs the queried observation with its result.
// It's the payload of the prediction event feed.
type Prediction struct {
	Observation observation.Observation `json:"observation"`
	Result      Result                  `json:"result"`
}

// SpeedSummary describes the distribution of speeds derived between
// consecutive history entries.
type SpeedSummary struct {
	Segments  int     `json:"segments"`
	MeanKmH   float64 `json:"mean_kmh"`
	MedianKmH float64 `json:"median_kmh"`
	MaxKmH    float64 `json:"max_kmh"`
}

// Detector is the process-scoped orchestrator. One instance is constructed
// at startup and injected into the web daemon; it lives as long as the
// process and holds no persistent state.
//
// All mutation happens under the write lock; reads take the read lock and
// observe a history consistent with any in-flight ingestion. The forest
// pointer doubles as the trained/untrained tag: nil means untrained, and
// once set it is never reassigned.
type Detector struct {
	config *params.DetectorConfig

	mu      sync.RWMutex
	history []observation.Observation
	forest  *iforest.Forest
}

func NewDetector(config *params.DetectorConfig) *Detector {
	if config == nil {
		config = params.DefaultDetectorConfig()
	}
	return &Detector{
		config:  config,
		history: []observation.Observation{},
	}
}

// AddLocation appends one observation to the history. A zero t means now.
// When the untrained detector's history first reaches the training
// threshold, the model is fit on feature vectors for the entire history
// snapshot; a fit failure is returned, never swallowed, and leaves the
// detector untrained. For well-formed input the fit cannot fail.
func (d *Detector) AddLocation(lat, lon float64, t time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.history = append(d.history, observation.New(lat, lon, t))

	if d.forest != nil || len(d.history) < d.config.TrainingThreshold {
		return nil
	}

	X := make([][]float64, len(d.history))
	for i, obs := range d.history {
		X[i] = ExtractFeatures(obs, d.history)
	}
	forest := iforest.New(d.config.Forest)
	if err := forest.Fit(X); err != nil {
		return fmt.Errorf("anomaly: training failed: %w", err)
	}
	d.forest = forest
	return nil
}

// Predict classifies a queried coordinate against the learned pattern.
// The queried point is NOT appended to the history. Before training it
// returns the insufficient-data result; that is an answer, not an error.
func (d *Detector) Predict(lat, lon float64, t time.Time) (Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.forest == nil {
		return Result{
			IsAnomaly:  false,
			Confidence: 0,
			Reason:     fmt.Sprintf("Model not trained yet (need %d+ data points)", d.config.TrainingThreshold),
			DataPoints: len(d.history),
		}, nil
	}

	obs := observation.New(lat, lon, t)
	anomalous, score, err := d.forest.Classify(ExtractFeatures(obs, d.history))
	if err != nil {
		return Result{}, fmt.Errorf("anomaly: classify: %w", err)
	}

	confidence := score
	if confidence < 0 {
		confidence = -confidence
	}

	return Result{
		IsAnomaly:  anomalous,
		Confidence: confidence,
		Reason:     d.reason(anomalous, obs),
		DataPoints: len(d.history),
	}, nil
}

// reason derives the human-readable explanation, in strict priority order:
// high derived speed from the last history entry, then unusual hour, then
// the generic pattern reason. Callers hold at least the read lock.
func (d *Detector) reason(anomalous bool, obs observation.Observation) string {
	if !anomalous {
		return reasonNormal
	}
	if len(d.history) > 0 {
		speed := Speed(d.history[len(d.history)-1], obs)
		if speed > d.config.HighSpeedKmH {
			return fmt.Sprintf("Unusually high speed detected: %.1f km/h", speed)
		}
	}
	if obs.Hour < d.config.UnusualHourBefore || obs.Hour > d.config.UnusualHourAfter {
		return reasonUnusualTime
	}
	return reasonPattern
}

// Stats is a pure read of training state.
func (d *Detector) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	needed := d.config.TrainingThreshold - len(d.history)
	if needed < 0 {
		needed = 0
	}
	return Stats{
		IsTrained:    d.forest != nil,
		TotalPoints:  len(d.history),
		PointsNeeded: needed,
	}
}

// HistorySnapshot copies the current history for read-only callers.
// The history is unbounded for the process lifetime; retention is an
// integrator decision, not the detector's.
func (d *Detector) HistorySnapshot() []observation.Observation {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snap := make([]observation.Observation, len(d.history))
	copy(snap, d.history)
	return snap
}

// Speeds summarizes the derived speeds between consecutive history entries.
func (d *Detector) Speeds() SpeedSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.history) < 2 {
		return SpeedSummary{}
	}
	speeds := make(stats.Float64Data, 0, len(d.history)-1)
	for i := 1; i < len(d.history); i++ {
		speeds = append(speeds, Speed(d.history[i-1], d.history[i]))
	}
	mean, _ := speeds.Mean()
	median, _ := speeds.Median()
	max, _ := speeds.Max()
	return SpeedSummary{
		Segments:  len(speeds),
		MeanKmH:   mean,
		MedianKmH: median,
		MaxKmH:    max,
	}
}
