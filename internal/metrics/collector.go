package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "allstar"

// Collector holds pipeline metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	rowsLoaded    *prometheus.CounterVec
	rowsEmitted   *prometheus.CounterVec
	tableDuration *prometheus.HistogramVec
	stageDuration *prometheus.GaugeVec
	downloads     *prometheus.CounterVec
	masterRows    prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		rowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_rows_loaded_total",
			Help:      "Rows read from raw databank tables",
		}, []string{"table"}),

		rowsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_rows_emitted_total",
			Help:      "Rows emitted by table processors",
		}, []string{"table"}),

		tableDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "table_process_seconds",
			Help:      "Time spent processing one table",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"table"}),

		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of the last run of a pipeline stage",
		}, []string{"stage"}),

		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Downloaded files by outcome",
		}, []string{"outcome"}),

		masterRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "master_rows",
			Help:      "Rows in the last built player-season table",
		}),

		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
	c.registry.MustRegister(
		c.rowsLoaded,
		c.rowsEmitted,
		c.tableDuration,
		c.stageDuration,
		c.downloads,
		c.masterRows,
		c.lastSuccess,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveTable records one processed databank table.
func (c *Collector) ObserveTable(table string, rowsIn, rowsOut int, took time.Duration) {
	c.rowsLoaded.WithLabelValues(table).Add(float64(rowsIn))
	c.rowsEmitted.WithLabelValues(table).Add(float64(rowsOut))
	c.tableDuration.WithLabelValues(table).Observe(took.Seconds())
}

func (c *Collector) ObserveDownloads(saved, failed int) {
	c.downloads.WithLabelValues("saved").Add(float64(saved))
	c.downloads.WithLabelValues("failed").Add(float64(failed))
}

func (c *Collector) SetMasterRows(n int) { c.masterRows.Set(float64(n)) }

// Stage starts timing a stage; call the returned func when it ends.
func (c *Collector) Stage(name string) func() {
	start := time.Now()
	return func() {
		c.stageDuration.WithLabelValues(name).Set(time.Since(start).Seconds())
	}
}

func (c *Collector) MarkSuccess() { c.lastSuccess.SetToCurrentTime() }

// WriteTextfile writes the registry in text exposition format, for the node
// exporter textfile collector. An empty path is a no-op.
func (c *Collector) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir metrics dir")
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrapf(err, "write metrics %s", path)
	}
	return nil
}
