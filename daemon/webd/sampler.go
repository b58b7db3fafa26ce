package webd

import (
	"context"
	"time"

	"github.com/madrasiot/trackd/cache"
	"github.com/madrasiot/trackd/gateway"
	"github.com/madrasiot/trackd/stream"
)

// runSampler polls the device on a ticker and pushes each fix through the
// same ingest path the HTTP handler uses, as a channel pipeline:
// poll -> dedupe filter -> ingest. With no device configured it falls back
// to a synthetic wanderer, which makes an offline demo able to reach a
// trained model.
//
// Duplicate fixes are ingested unless dedupe is enabled: a parked device
// reporting the same fix is itself part of the pattern to learn.
func (s *WebDaemon) runSampler() {
	cfg := s.Config.Sampler

	pass := func(gateway.Sample) bool { return true }
	if cfg.Dedupe {
		pass = cache.NewDedupePassLRUFunc()
	}

	var wanderer *gateway.Wanderer
	if !s.gateway.Configured() {
		s.logger.Warn("No device configured, sampling synthetic walk")
		wanderer = gateway.NewWanderer(time.Now().UnixNano())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.done
		cancel()
	}()

	polled := s.pollSamples(ctx, wanderer)
	ingested := stream.Transform(ctx, s.ingestSample, stream.Filter(ctx, pass, polled))
	for range ingested {
	}
}

// pollSamples emits one device fix per tick until ctx is done.
// Failed polls are skipped, never substituted: the fallback sample is a
// serving convenience and must not enter the history.
func (s *WebDaemon) pollSamples(ctx context.Context, wanderer *gateway.Wanderer) <-chan gateway.Sample {
	out := make(chan gateway.Sample)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.Config.Sampler.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sample, ok := s.poll(ctx, wanderer)
				if !ok {
					continue
				}
				s.meter.MarkPolled()
				select {
				case <-ctx.Done():
					return
				case out <- sample:
				}
			}
		}
	}()
	return out
}

func (s *WebDaemon) poll(ctx context.Context, wanderer *gateway.Wanderer) (gateway.Sample, bool) {
	if wanderer != nil {
		return wanderer.Next(), true
	}
	pollCtx, cancel := context.WithTimeout(ctx, s.Config.Gateway.ResourceTimeout)
	defer cancel()
	sample, err := s.gateway.Location(pollCtx)
	if err != nil {
		s.logger.Warn("Sampler poll failed", "error", err)
		return gateway.Sample{}, false
	}
	return sample, true
}

func (s *WebDaemon) ingestSample(sample gateway.Sample) bool {
	if _, err := s.ingest(sample); err != nil {
		s.logger.Error("Sampler ingest failed", "error", err)
		return false
	}
	return true
}
