package params

type DetectorConfig struct {
	// TrainingThreshold is the history length at which the model is fit.
	// The fit happens exactly once, on the history snapshot present when
	// the threshold is first reached.
	TrainingThreshold int

	// HighSpeedKmH is the derived-speed ceiling for the anomaly reason.
	// Movement faster than this is reported as unusually high speed.
	HighSpeedKmH float64

	// UnusualHourBefore and UnusualHourAfter bound the "normal" hours of day.
	// An anomalous point with hour < UnusualHourBefore or hour > UnusualHourAfter
	// is reported as movement at an unusual time.
	UnusualHourBefore int
	UnusualHourAfter  int

	Forest IsolationForestConfig
}

type IsolationForestConfig struct {
	// Trees is the ensemble size.
	Trees int
	// SampleSize caps the per-tree subsample of the training set.
	SampleSize int
	// Contamination is the expected fraction of training points scoring
	// as outliers; it calibrates the decision offset.
	Contamination float64
	// Seed makes repeated fits on identical input deterministic.
	Seed int64
}

func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		TrainingThreshold: 20,
		HighSpeedKmH:      100,
		UnusualHourBefore: 6,
		UnusualHourAfter:  23,
		Forest:            DefaultIsolationForestConfig(),
	}
}

func DefaultIsolationForestConfig() IsolationForestConfig {
	return IsolationForestConfig{
		Trees:         100,
		SampleSize:    256,
		Contamination: 0.1,
		Seed:          42,
	}
}
