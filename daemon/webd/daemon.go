package webd

import (
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/madrasiot/trackd/cache"
	"github.com/madrasiot/trackd/common"
	"github.com/madrasiot/trackd/events"
	"github.com/madrasiot/trackd/gateway"
	"github.com/madrasiot/trackd/geo/anomaly"
	"github.com/madrasiot/trackd/metrics/influxdb"
	"github.com/madrasiot/trackd/params"
	"github.com/madrasiot/trackd/stream"
)

type WebDaemon struct {
	Config *params.WebDaemonConfig

	logger   *slog.Logger
	detector *anomaly.Detector
	gateway  *gateway.Client
	recent   *common.RingBuffer[anomaly.Prediction]
	meter    *stream.TickSampleMeter
	started  time.Time
	done     chan struct{}
}

func NewWebDaemon(config *params.WebDaemonConfig) *WebDaemon {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	if config.Detector == nil {
		config.Detector = params.DefaultDetectorConfig()
	}
	if config.Gateway == nil {
		config.Gateway = params.DefaultGatewayConfig()
	}
	if config.Sampler == nil {
		config.Sampler = params.DefaultSamplerConfig()
	}
	return &WebDaemon{
		Config: config,

		logger:   slog.With("d", "web"),
		detector: anomaly.NewDetector(config.Detector),
		gateway:  gateway.NewClient(config.Gateway),
		recent:   common.NewRingBuffer[anomaly.Prediction](params.RecentResultsSize),
		started:  time.Now(),
		done:     make(chan struct{}),
	}
}

// Run starts the HTTP server and waits for it, returning any server error.
// The background sampler and the prediction exporter are started first,
// when configured.
func (s *WebDaemon) Run() error {
	router := s.NewRouter()

	s.meter = stream.NewTickSampleMeter(s.Config.Sampler.MeterInterval)
	go s.meterIngested()

	if params.INFLUXDB_URL != "" {
		go s.exportPredictions()
	}
	if s.Config.Sampler.Interval > 0 {
		go s.runSampler()
	}

	listener, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return err
	}
	log.Printf("Starting web daemon on %s", s.Config.Address)
	return http.Serve(listener, router)
}

// Stop ends the sampler and exporter goroutines. The HTTP listener is left
// to die with the process.
func (s *WebDaemon) Stop() {
	close(s.done)
}

func (s *WebDaemon) NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(false)
	router.Use(loggingMiddleware)

	apiRoutes := router.NewRoute().Subrouter()

	// All API routes use permissive CORS settings.
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiRoutes.Path("/").HandlerFunc(s.handleRoot).Methods(http.MethodGet)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	jsonMiddleware := contentTypeMiddlewareFunc("application/json")
	apiJSONRoutes.Use(jsonMiddleware)

	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/api/location").HandlerFunc(s.handleLocation).Methods(http.MethodGet)
	apiJSONRoutes.Path("/api/gps-status").HandlerFunc(s.handleGPSStatus).Methods(http.MethodGet)
	apiJSONRoutes.Path("/api/ml/stats").HandlerFunc(s.handleMLStats).Methods(http.MethodGet)
	apiJSONRoutes.Path("/api/ml/check").HandlerFunc(s.handleMLCheck).Methods(http.MethodPost)
	apiJSONRoutes.Path("/api/ml/recent").HandlerFunc(s.handleMLRecent).Methods(http.MethodGet)
	apiJSONRoutes.Path("/api/history").HandlerFunc(s.handleHistory).Methods(http.MethodGet)

	// The device firmware links to these with plain anchors, so GET stays
	// routable alongside POST.
	actuatorMethods := []string{http.MethodGet, http.MethodPost}
	apiJSONRoutes.Path("/api/led/{state}").
		HandlerFunc(s.handleActuator("led")).Methods(actuatorMethods...)
	apiJSONRoutes.Path("/api/buzzer/{state}").
		HandlerFunc(s.handleActuator("buzzer")).Methods(actuatorMethods...)

	return router
}

// ingest appends a validated sample to the detector and scores it,
// publishing both events. Every ingestion path (HTTP, sampler) funnels here.
func (s *WebDaemon) ingest(sample gateway.Sample) (anomaly.Result, error) {
	if err := s.detector.AddLocation(sample.Lat, sample.Lon, sample.Time); err != nil {
		return anomaly.Result{}, err
	}
	events.SampleIngestedFeed.Send(sample)
	return s.score(sample)
}

// score runs a prediction without touching the history.
func (s *WebDaemon) score(sample gateway.Sample) (anomaly.Result, error) {
	result, err := s.detector.Predict(sample.Lat, sample.Lon, sample.Time)
	if err != nil {
		return anomaly.Result{}, err
	}
	pred := anomaly.Prediction{
		Observation: observationOf(sample),
		Result:      result,
	}
	s.recent.Add(pred)
	cache.SetLastPredictionTTL(s.Config.Gateway.Device, pred)
	events.PredictionFeed.Send(pred)
	return result, nil
}

// meterIngested meters every sample reaching the detector, whatever the
// ingestion path drove it: the HTTP location handler and the background
// sampler both publish to the same feed.
func (s *WebDaemon) meterIngested() {
	defer s.meter.Stop()
	ch := make(chan gateway.Sample, 32)
	sub := events.SampleIngestedFeed.Subscribe(ch)
	defer sub.Unsubscribe()

	for {
		select {
		case smp := <-ch:
			s.meter.MarkIngested(smp.Time)
		case err := <-sub.Err():
			s.logger.Error("Sample feed subscription died", "error", err)
			return
		case <-s.done:
			return
		}
	}
}

// exportPredictions drains the prediction feed into InfluxDB.
// Losing a batch on write error is acceptable; the detector is the source
// of truth and the export is observability only.
func (s *WebDaemon) exportPredictions() {
	ch := make(chan anomaly.Prediction, 32)
	sub := events.PredictionFeed.Subscribe(ch)
	defer sub.Unsubscribe()

	batch := []anomaly.Prediction{}
	flush := time.NewTicker(30 * time.Second)
	defer flush.Stop()

	for {
		select {
		case p := <-ch:
			batch = append(batch, p)
		case <-flush.C:
			if len(batch) == 0 {
				continue
			}
			if err := influxdb.ExportPredictions(s.Config.Gateway.Device, batch); err != nil {
				s.logger.Warn("InfluxDB export failed", "error", err, "n", len(batch))
			}
			batch = batch[:0]
		case err := <-sub.Err():
			s.logger.Error("Prediction feed subscription died", "error", err)
			return
		case <-s.done:
			return
		}
	}
}
