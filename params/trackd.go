package params

import (
	"os"
	"path/filepath"
	"time"
)

var DatadirRoot = func() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".trackd")
}()

var (
	// CacheGPSStatusTTL bounds how long a last-good device status report
	// may be served while the device is unreachable.
	CacheGPSStatusTTL = 30 * time.Second

	// CacheLastResultTTL bounds the last-known prediction served to clients.
	CacheLastResultTTL = 7 * 24 * time.Hour
)

// DedupeCacheSize is the number of recently seen sample hashes remembered
// by the sampler's dedupe filter.
var DedupeCacheSize = 10_000

// RecentResultsSize is the capacity of the webd ring buffer of predictions.
var RecentResultsSize = 100

// INFLUXDB_URL enables the InfluxDB prediction exporter when non-empty.
var INFLUXDB_URL = os.Getenv("INFLUXDB_URL")
var INFLUXDB_TOKEN = os.Getenv("INFLUXDB_TOKEN")
var INFLUXDB_ORG = os.Getenv("INFLUXDB_ORG")
var INFLUXDB_BUCKET = os.Getenv("INFLUXDB_BUCKET")
