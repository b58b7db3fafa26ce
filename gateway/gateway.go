// Package gateway talks to the Thinger.io device API for the tracked device.
//
// It is the boundary collaborator in front of the detection core: it fetches
// raw device resources, rejects invalid samples before they can reach the
// detector, and reports failures as explicit errors. Whether to substitute
// synthetic data on failure is the caller's decision, never made here.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/madrasiot/trackd/params"
	"github.com/madrasiot/trackd/types/observation"
	"github.com/tidwall/gjson"
)

// Sample is one validated device fix.
type Sample struct {
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Time time.Time `json:"timestamp"`
}

var (
	// ErrUnconfigured means the Thinger credentials are absent.
	ErrUnconfigured = errors.New("gateway: missing thinger credentials")
	// ErrInvalidSample means the device response was readable but carried
	// missing or non-numeric coordinates.
	ErrInvalidSample = errors.New("gateway: invalid sample")
)

// A StatusError is a non-2xx answer from the device API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: thinger API status %d: %s", e.Code, e.Body)
}

type Client struct {
	config    *params.GatewayConfig
	resources *http.Client
	actuators *http.Client
	logger    *slog.Logger
}

func NewClient(config *params.GatewayConfig) *Client {
	if config == nil {
		config = params.DefaultGatewayConfig()
	}
	return &Client{
		config:    config,
		resources: &http.Client{Timeout: config.ResourceTimeout},
		actuators: &http.Client{Timeout: config.ActuatorTimeout},
		logger:    slog.With("d", "gateway"),
	}
}

// Configured reports whether the client can reach a real device.
func (c *Client) Configured() bool {
	return c.config.User != "" && c.config.Device != "" && c.config.Token != ""
}

func (c *Client) resourceURL(name string) string {
	return fmt.Sprintf("%s/users/%s/devices/%s/resources/%s",
		c.config.BaseURL, c.config.User, c.config.Device, name)
}

func (c *Client) get(ctx context.Context, resource string) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrUnconfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resourceURL(resource), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.resources.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Location fetches the device's gps_location resource.
// Missing or non-numeric latitude/longitude values are rejected here;
// the detection core assumes validated floats and never re-checks.
func (c *Client) Location(ctx context.Context) (Sample, error) {
	body, err := c.get(ctx, "gps_location")
	if err != nil {
		return Sample{}, err
	}

	lat := gjson.GetBytes(body, "latitude")
	lon := gjson.GetBytes(body, "longitude")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		return Sample{}, fmt.Errorf("%w: latitude=%s longitude=%s",
			ErrInvalidSample, lat.Raw, lon.Raw)
	}

	sample := Sample{Lat: lat.Float(), Lon: lon.Float(), Time: time.Now()}
	// A JSON number like 1e999 passes the type check but overflows float64
	// to Inf; it must not get past the boundary.
	if err := observation.New(sample.Lat, sample.Lon, sample.Time).Validate(); err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrInvalidSample, err)
	}
	return sample, nil
}

// GPSStatus fetches the device's gps_status resource verbatim.
func (c *Client) GPSStatus(ctx context.Context) (json.RawMessage, error) {
	body, err := c.get(ctx, "gps_status")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("gateway: gps_status is not JSON: %.80s", body)
	}
	return body, nil
}

// SetResource posts an on/off actuator state (led, buzzer) to the device.
// A non-2xx answer is a StatusError; transport failures return as-is.
func (c *Client) SetResource(ctx context.Context, name string, on bool) error {
	if !c.Configured() {
		return ErrUnconfigured
	}
	payload := "false"
	if on {
		payload = "true"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.resourceURL(name), strings.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Actuator post", "resource", name, "payload", payload)
	resp, err := c.actuators.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return nil
}
