package events

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/madrasiot/trackd/gateway"
	"github.com/madrasiot/trackd/geo/anomaly"
)

// SampleIngestedFeed is emitted for every device sample appended to the
// detector's history, whatever the source (background sampler, HTTP ingest).
var SampleIngestedFeed = event.FeedOf[gateway.Sample]{}

// PredictionFeed is emitted for every scored observation.
// Subscribers should expect predictions from untrained models too;
// those carry the training-pending reason and zero confidence.
var PredictionFeed = event.FeedOf[anomaly.Prediction]{}
