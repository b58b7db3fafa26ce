package webd

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/madrasiot/trackd/common"
	"github.com/tidwall/gjson"
)

func TestWebDaemon_ping(t *testing.T) {
	req := httptest.NewRequest("GET", "http://tracker.local/ping", nil)
	w := httptest.NewRecorder()
	pingPong(w, req)
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	t.Log(resp.StatusCode)
	t.Log(string(body))
	if resp.StatusCode != 200 {
		t.Fatalf("status code not 200")
	}
	if string(body) != "pong" {
		t.Errorf("body is not pong: %s", string(body))
	}
}

func TestWebDaemon_statusReport(t *testing.T) {
	req := httptest.NewRequest("GET", "http://tracker.local/status", nil)
	w := httptest.NewRecorder()
	d := newTestWebDaemon()
	time.Sleep(10 * time.Millisecond)
	d.statusReport(w, req)
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	t.Log(resp.StatusCode)
	if resp.StatusCode != 200 {
		t.Fatalf("status code not 200")
	}
	if gjson.GetBytes(body, "uptime").String() == "" {
		t.Fatal("uptime is empty")
	}
	if gjson.GetBytes(body, "ml_stats.is_trained").Bool() {
		t.Error("fresh daemon should not be trained")
	}
}

// newStubDeviceAPI answers gps_location with a fixed fix and accepts
// actuator posts.
func newStubDeviceAPI(t *testing.T, lat, lon float64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/cattracker/devices/stubdev/resources/gps_location",
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"latitude": %v, "longitude": %v}`, lat, lon)
		})
	mux.HandleFunc("/users/cattracker/devices/stubdev/resources/gps_status",
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"fix": true, "satellites": 11, "hdop": 0.9}`)
		})
	mux.HandleFunc("/users/cattracker/devices/stubdev/resources/led",
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	return httptest.NewServer(mux)
}

func TestWebDaemon_handleLocation_ingests(t *testing.T) {
	srv := newStubDeviceAPI(t, 13.0827, 80.2707)
	defer srv.Close()
	d := newTestWebDaemonWithGateway(srv.URL, "stubdev")

	req := httptest.NewRequest("GET", "http://tracker.local/api/location", nil)
	w := httptest.NewRecorder()
	d.handleLocation(w, req)
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	t.Log(string(body))
	if resp.StatusCode != 200 {
		t.Fatalf("status code not 200")
	}
	if !gjson.GetBytes(body, "success").Bool() {
		t.Error("success is not true")
	}
	if got := gjson.GetBytes(body, "location.lat").Float(); got != 13.0827 {
		t.Errorf("lat: %v", got)
	}
	if gjson.GetBytes(body, "fallback").Exists() {
		t.Error("device fix should not be marked fallback")
	}
	wantReason := "Model not trained yet (need 20+ data points)"
	if got := gjson.GetBytes(body, "ml_analysis.reason").String(); got != wantReason {
		t.Errorf("reason: %q", got)
	}
	if st := d.detector.Stats(); st.TotalPoints != 1 {
		t.Errorf("device fix should be ingested, total_points=%d", st.TotalPoints)
	}
}

func TestWebDaemon_handleLocation_fallbackNotIngested(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
	d := newTestWebDaemon() // no device credentials

	req := httptest.NewRequest("GET", "http://tracker.local/api/location", nil)
	w := httptest.NewRecorder()
	d.handleLocation(w, req)
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	t.Log(string(body))
	if resp.StatusCode != 200 {
		t.Fatalf("status code not 200")
	}
	if !gjson.GetBytes(body, "success").Bool() {
		t.Error("success is not true")
	}
	if !gjson.GetBytes(body, "fallback").Bool() {
		t.Error("fallback is not true")
	}
	if got := gjson.GetBytes(body, "location.lat").Float(); got != 13.0827 {
		t.Errorf("fallback lat: %v", got)
	}
	if st := d.detector.Stats(); st.TotalPoints != 0 {
		t.Errorf("fallback must not be ingested, total_points=%d", st.TotalPoints)
	}
}

func TestWebDaemon_handleGPSStatus(t *testing.T) {
	srv := newStubDeviceAPI(t, 13, 80)
	defer srv.Close()
	d := newTestWebDaemonWithGateway(srv.URL, "stubdev")

	req := httptest.NewRequest("GET", "http://tracker.local/api/gps-status", nil)
	w := httptest.NewRecorder()
	d.handleGPSStatus(w, req)
	body, _ := io.ReadAll(w.Result().Body)
	if got := gjson.GetBytes(body, "satellites").Int(); got != 11 {
		t.Errorf("satellites: %d", got)
	}

	// Upstream down now, last good report is served from cache.
	defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
	srv.Close()
	w = httptest.NewRecorder()
	d.handleGPSStatus(w, req)
	body, _ = io.ReadAll(w.Result().Body)
	if got := gjson.GetBytes(body, "satellites").Int(); got != 11 {
		t.Errorf("cached satellites: %d", got)
	}
}

func TestWebDaemon_handleGPSStatus_mock(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
	d := newTestWebDaemon()
	req := httptest.NewRequest("GET", "http://tracker.local/api/gps-status", nil)
	w := httptest.NewRecorder()
	d.handleGPSStatus(w, req)
	body, _ := io.ReadAll(w.Result().Body)
	if got := gjson.GetBytes(body, "satellites").Int(); got != 8 {
		t.Errorf("mock satellites: %d", got)
	}
	if !gjson.GetBytes(body, "fix").Bool() {
		t.Error("mock fix is not true")
	}
}

func TestWebDaemon_actuators(t *testing.T) {
	stub := newStubDeviceAPI(t, 13, 80)
	defer stub.Close()
	d := newTestWebDaemonWithGateway(stub.URL, "stubdev")
	srv := httptest.NewServer(d.NewRouter())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/led/on", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("led on: status %d", resp.StatusCode)
	}
	if got := gjson.GetBytes(body, "led").String(); got != "on" {
		t.Errorf("led: %q", got)
	}
	if gjson.GetBytes(body, "simulated").Exists() {
		t.Error("reachable device should not simulate")
	}

	resp, err = http.Post(srv.URL+"/api/led/blink", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad state: status %d", resp.StatusCode)
	}
}

func TestWebDaemon_actuatorSimulatedSuccess(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
	// Credentials are set but the host is unreachable: a transport error,
	// not an upstream rejection, so the handler reports simulated success.
	d := newTestWebDaemonWithGateway("http://127.0.0.1:1", "stubdev")
	srv := httptest.NewServer(d.NewRouter())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/buzzer/off", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !gjson.GetBytes(body, "simulated").Bool() {
		t.Error("simulated is not true")
	}
	if got := gjson.GetBytes(body, "buzzer").String(); got != "off" {
		t.Errorf("buzzer: %q", got)
	}
}

func TestWebDaemon_actuatorUpstreamError(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
	stub := http.NewServeMux()
	stub.HandleFunc("/users/cattracker/devices/stubdev/resources/buzzer",
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overheated", http.StatusServiceUnavailable)
		})
	upstream := httptest.NewServer(stub)
	defer upstream.Close()
	d := newTestWebDaemonWithGateway(upstream.URL, "stubdev")
	srv := httptest.NewServer(d.NewRouter())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/buzzer/on", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	t.Log(string(body))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if gjson.GetBytes(body, "success").Bool() {
		t.Error("success should be false")
	}
	if got := gjson.GetBytes(body, "code").Int(); got != http.StatusServiceUnavailable {
		t.Errorf("code: %d", got)
	}
	if !strings.Contains(gjson.GetBytes(body, "body").String(), "overheated") {
		t.Errorf("body: %q", gjson.GetBytes(body, "body").String())
	}
}

func TestWebDaemon_handleMLCheck_validation(t *testing.T) {
	d := newTestWebDaemon()
	srv := httptest.NewServer(d.NewRouter())
	defer srv.Close()

	for _, payload := range []string{
		`{}`,
		`{"lat": 13.0827}`,
		`{"lat": "13.0827", "lon": "80.2707"}`,
		`{"lat": null, "lon": 80.2707}`,
		`{"lat": 1e999, "lon": 80.2707}`,
		`not json`,
	} {
		resp, err := http.Post(srv.URL+"/api/ml/check", "application/json", strings.NewReader(payload))
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("payload %s: status %d", payload, resp.StatusCode)
		}
		if gjson.GetBytes(body, "success").Bool() {
			t.Errorf("payload %s: success should be false", payload)
		}
	}

	resp, err := http.Post(srv.URL+"/api/ml/check", "application/json",
		strings.NewReader(`{"lat": 13.0827, "lon": 80.2707}`))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("valid check: status %d", resp.StatusCode)
	}
	if !gjson.GetBytes(body, "success").Bool() {
		t.Error("success is not true")
	}
	if gjson.GetBytes(body, "result.reason").String() == "" {
		t.Error("result.reason is empty")
	}
	if st := d.detector.Stats(); st.TotalPoints != 0 {
		t.Errorf("check must not ingest, total_points=%d", st.TotalPoints)
	}
}

func TestWebDaemon_recentAndHistory(t *testing.T) {
	srv := newStubDeviceAPI(t, 13.0827, 80.2707)
	defer srv.Close()
	d := newTestWebDaemonWithGateway(srv.URL, "stubdev")
	api := httptest.NewServer(d.NewRouter())
	defer api.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Get(api.URL + "/api/location")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(api.URL + "/api/ml/recent")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if got := len(gjson.GetBytes(body, "@this").Array()); got != 3 {
		t.Errorf("recent predictions: %d", got)
	}

	resp, err = http.Get(api.URL + "/api/ml/recent?limit=2")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if got := len(gjson.GetBytes(body, "@this").Array()); got != 2 {
		t.Errorf("limited recent predictions: %d", got)
	}

	resp, err = http.Get(api.URL + "/api/ml/recent?limit=x")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit: status %d", resp.StatusCode)
	}

	resp, err = http.Get(api.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if got := gjson.GetBytes(body, "last_prediction.result.reason").String(); got == "" {
		t.Error("status last_prediction.result.reason is empty")
	}

	resp, err = http.Get(api.URL + "/api/history")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if got := gjson.GetBytes(body, "type").String(); got != "FeatureCollection" {
		t.Errorf("history type: %q", got)
	}
	features := gjson.GetBytes(body, "features").Array()
	if len(features) != 3 {
		t.Fatalf("history features: %d", len(features))
	}
	coords := features[0].Get("geometry.coordinates").Array()
	// GeoJSON positions are [lon, lat].
	if coords[0].Float() != 80.2707 || coords[1].Float() != 13.0827 {
		t.Errorf("coordinates: %v", coords)
	}
}
