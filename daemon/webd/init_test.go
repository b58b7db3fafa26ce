package webd

import (
	"time"

	"github.com/madrasiot/trackd/params"
)

// newTestWebDaemon creates a WebDaemon for testing purposes, with no
// device credentials configured.
func newTestWebDaemon() *WebDaemon {
	return NewWebDaemon(params.DefaultTestWebDaemonConfig())
}

// newTestWebDaemonWithGateway creates a WebDaemon whose gateway points at a
// stub device API, usually an httptest server.
func newTestWebDaemonWithGateway(baseURL, device string) *WebDaemon {
	config := params.DefaultTestWebDaemonConfig()
	config.Gateway = &params.GatewayConfig{
		BaseURL:         baseURL,
		User:            "cattracker",
		Device:          device,
		Token:           "test-token",
		ResourceTimeout: time.Second,
		ActuatorTimeout: time.Second,
	}
	return NewWebDaemon(config)
}
