package params

import (
	"os"
	"time"
)

// GatewayConfig points at the Thinger.io device API for one tracked device.
// The token is an outbound device credential, not inbound auth.
type GatewayConfig struct {
	BaseURL string
	User    string
	Device  string
	// Token is never serialized; /status would leak it otherwise.
	Token string `json:"-"`

	// ResourceTimeout bounds reads (gps_location, gps_status).
	ResourceTimeout time.Duration
	// ActuatorTimeout bounds writes (led, buzzer). The device firmware can be
	// slow to acknowledge actuator posts, so this is more generous.
	ActuatorTimeout time.Duration
}

// DefaultGatewayBaseURL must match the device token's server region
// (the "svr" field of the token).
const DefaultGatewayBaseURL = "https://ap-southeast.aws.thinger.io/v3"

func DefaultGatewayConfig() *GatewayConfig {
	base := os.Getenv("THINGER_API_BASE")
	if base == "" {
		base = DefaultGatewayBaseURL
	}
	return &GatewayConfig{
		BaseURL:         base,
		User:            os.Getenv("THINGER_USER"),
		Device:          os.Getenv("THINGER_DEVICE"),
		Token:           os.Getenv("THINGER_TOKEN"),
		ResourceTimeout: 5 * time.Second,
		ActuatorTimeout: 8 * time.Second,
	}
}

// FallbackLat and FallbackLon locate the synthetic sample substituted by the
// web daemon when the device or network is unreachable.
const (
	FallbackLat = 13.0827
	FallbackLon = 80.2707
)
