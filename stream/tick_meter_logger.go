package stream

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/madrasiot/trackd/common"
)

// TickSampleMeter periodically logs sample throughput: how many fixes were
// polled from the device and how many reached the detector, with the ingest
// rate. Methods are nil-receiver safe so callers can meter optionally.
type TickSampleMeter struct {
	label       time.Time // time of the last ingested sample
	interval    time.Duration
	started     time.Time
	done        chan struct{}
	reg         metrics.Registry
	polled      metrics.Counter
	ingested    metrics.Counter
	ingestMeter metrics.Meter
}

func NewTickSampleMeter(interval time.Duration) *TickSampleMeter {
	// Enable metrics package.
	// Won't work without this global setting.
	metrics.Enabled = true

	if interval <= 0 {
		interval = time.Minute
	}

	reg := metrics.NewRegistry()
	m := &TickSampleMeter{
		reg:         reg,
		interval:    interval,
		started:     time.Now(),
		done:        make(chan struct{}),
		polled:      metrics.NewCounter(),
		ingested:    metrics.NewCounter(),
		ingestMeter: metrics.NewMeter(),
	}

	if err := reg.Register("sample.polled", m.polled); err != nil {
		panic(err)
	}
	if err := reg.Register("sample.ingested", m.ingested); err != nil {
		panic(err)
	}
	if err := reg.Register("sample.meter", m.ingestMeter); err != nil {
		panic(err)
	}
	go m.run()
	return m
}

// MarkPolled records a fix fetched from the device, ingested or not.
func (m *TickSampleMeter) MarkPolled() {
	if m == nil {
		return
	}
	m.polled.Inc(1)
}

// MarkIngested records a sample that reached the detector.
func (m *TickSampleMeter) MarkIngested(label time.Time) {
	if m == nil {
		return
	}
	m.label = label
	m.ingested.Inc(1)
	m.ingestMeter.Mark(1)
}

func (m *TickSampleMeter) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.log()
		case <-m.done:
			return
		}
	}
}

func (m *TickSampleMeter) log() {
	snap := m.ingestMeter.Snapshot()

	slog.Info("Sampled locations", "polled", humanize.Comma(m.polled.Snapshot().Count()),
		"ingested", humanize.Comma(snap.Count()),
		"sample.last", m.label.Format(time.DateTime),
		"sps", common.DecimalToFixed(snap.Rate1(), 2),
		"running", time.Since(m.started).Round(time.Second))
}

// Stop ends the logging goroutine. Stopping a ticker does not close its
// channel, so run selects on done instead of ranging the ticker.
func (m *TickSampleMeter) Stop() {
	if m == nil {
		return
	}
	close(m.done)
	m.ingestMeter.Stop()
}
