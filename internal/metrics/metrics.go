// Package metrics collects per-run counters and optionally writes them in
// the Prometheus textfile-collector format. A run is a short-lived process
// with nothing to scrape, so the node_exporter textfile convention is the
// exposition path.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Drop reasons used as label values on DroppedTotal.
const (
	ReasonDuplicate = "duplicate"
	ReasonTopic     = "topic"
	ReasonMiss      = "miss"
	ReasonError     = "error"
)

// Metrics holds the run counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	EntriesTotal prometheus.Counter
	DroppedTotal *prometheus.CounterVec
	RecordsAdded prometheus.Counter
	LastRun      prometheus.Gauge
}

// New creates a fresh metric set for one run.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EntriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bearwatch_feed_entries_total",
			Help: "Feed entries seen during the run.",
		}),
		DroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bearwatch_entries_dropped_total",
			Help: "Entries dropped during the run, by reason.",
		}, []string{"reason"}),
		RecordsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "bearwatch_records_added_total",
			Help: "New sighting records appended during the run.",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bearwatch_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run.",
		}),
	}
}

// WriteTextfile gathers the registry and atomically replaces the .prom file
// at path, using the same write-then-rename discipline as the store.
func (m *Metrics) WriteTextfile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".metrics-*.prom")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			tmp.Close()
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
