package cache

import (
	"encoding/json"
	"fmt"

	"github.com/golang/groupcache/lru"
	"github.com/jellydator/ttlcache/v3"
	"github.com/madrasiot/trackd/gateway"
	"github.com/madrasiot/trackd/geo/anomaly"
	"github.com/madrasiot/trackd/params"
	"github.com/mitchellh/hashstructure/v2"
)

// LastPredictionTTLCache holds the most recent prediction per device.
var LastPredictionTTLCache = ttlcache.New[string, anomaly.Prediction](
	ttlcache.WithTTL[string, anomaly.Prediction](params.CacheLastResultTTL))

// GPSStatusTTLCache holds the last good raw gps_status payload per device,
// served when the upstream device API is slow or down.
var GPSStatusTTLCache = ttlcache.New[string, json.RawMessage](
	ttlcache.WithTTL[string, json.RawMessage](params.CacheGPSStatusTTL))

func SetLastPredictionTTL(device string, p anomaly.Prediction) {
	LastPredictionTTLCache.Set(device, p, ttlcache.DefaultTTL)
}

func SetGPSStatusTTL(device string, raw json.RawMessage) {
	GPSStatusTTLCache.Set(device, raw, ttlcache.DefaultTTL)
}

// NewDedupePassLRUFunc returns a predicate reporting true for samples
// not seen before, using a Least Recently Used (LRU) cache.
// Repeated polls of a parked device differ only by poll timestamp, so the
// key is the coordinate pair, not the whole sample.
func NewDedupePassLRUFunc() func(gateway.Sample) bool {
	var dedupeCache = lru.New(params.DedupeCacheSize)
	return func(s gateway.Sample) bool {
		hash, err := hashstructure.Hash(struct{ Lat, Lon float64 }{s.Lat, s.Lon},
			hashstructure.FormatV2, nil)
		if err != nil {
			return false
		}
		key := fmt.Sprintf("%d", hash)
		_, ok := dedupeCache.Get(key)
		if ok {
			return false
		}
		dedupeCache.Add(key, true)
		return true
	}
}
