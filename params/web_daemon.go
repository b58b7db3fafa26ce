package params

import "time"

type WebDaemonConfig struct {
	ListenerConfig

	// AssetsPath is where the daemon looks for index.html.
	// If the file does not exist the root handler falls back to JSON status.
	AssetsPath string

	Detector *DetectorConfig
	Gateway  *GatewayConfig
	Sampler  *SamplerConfig
}

// SamplerConfig drives the optional background device sampler.
// A zero Interval disables it; ingestion is then driven entirely by
// GET /api/location, as the original tracker behaves.
type SamplerConfig struct {
	Interval time.Duration

	// Dedupe drops a polled sample when an identical one was seen recently.
	// The device reports the same fix between movements, and with Dedupe off
	// every poll is appended; that repetition is part of the learned pattern,
	// so this defaults off.
	Dedupe bool

	// MeterInterval is how often the sampler logs its ingest meter.
	MeterInterval time.Duration
}

func DefaultWebListenerConfig() ListenerConfig {
	return ListenerConfig{
		Network: "tcp",
		Address: "localhost:5000",
	}
}

func DefaultSamplerConfig() *SamplerConfig {
	return &SamplerConfig{
		Interval:      0,
		Dedupe:        false,
		MeterInterval: 60 * time.Second,
	}
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: DefaultWebListenerConfig(),
		AssetsPath:     "index.html",
		Detector:       DefaultDetectorConfig(),
		Gateway:        DefaultGatewayConfig(),
		Sampler:        DefaultSamplerConfig(),
	}
}

func DefaultTestWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:5555",
		},
		AssetsPath: "",
		Detector:   DefaultDetectorConfig(),
		Gateway:    DefaultGatewayConfig(),
		Sampler:    DefaultSamplerConfig(),
	}
}
