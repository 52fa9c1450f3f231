// Package metrics exposes Prometheus instrumentation for scans and fetches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"AssetJudge/internal/model"
)

// Registry holds all AssetJudge metrics. A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	ScansTotal    *prometheus.CounterVec
	GradedTotal   *prometheus.CounterVec
	ExcludedTotal prometheus.Counter
	ScanDuration  prometheus.Histogram
	FetchDuration *prometheus.HistogramVec
	FetchErrors   *prometheus.CounterVec
	LastVIX       prometheus.Gauge
}

// NewRegistry creates a registry with all metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetjudge_scans_total",
			Help: "Completed scans by market status",
		}, []string{"status"}),
		GradedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetjudge_graded_items_total",
			Help: "Graded tickers by grade",
		}, []string{"grade"}),
		ExcludedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assetjudge_excluded_snapshots_total",
			Help: "Snapshots dropped as invalid before grading",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assetjudge_scan_duration_seconds",
			Help:    "Wall time of the grading and allocation pipeline",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assetjudge_fetch_duration_seconds",
			Help:    "Duration of upstream market data calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"source", "result"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetjudge_fetch_errors_total",
			Help: "Upstream fetch failures by kind",
		}, []string{"kind"}),
		LastVIX: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "assetjudge_last_vix",
			Help: "VIX reading used by the most recent scan",
		}),
	}
	r.reg.MustRegister(
		r.ScansTotal, r.GradedTotal, r.ExcludedTotal, r.ScanDuration,
		r.FetchDuration, r.FetchErrors, r.LastVIX,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveScan records the outcome of one scan.
func (r *Registry) ObserveScan(res *model.ScanResult, took time.Duration) {
	if r == nil || res == nil {
		return
	}
	r.ScansTotal.WithLabelValues(string(res.Status)).Inc()
	r.ScanDuration.Observe(took.Seconds())
	r.ExcludedTotal.Add(float64(len(res.Excluded)))
	r.LastVIX.Set(res.VIXUsed)
	for _, it := range res.Items {
		r.GradedTotal.WithLabelValues(string(it.Grade)).Inc()
	}
}

// ObserveFetch records one upstream call.
func (r *Registry) ObserveFetch(source string, took time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.FetchDuration.WithLabelValues(source, result).Observe(took.Seconds())
}

// FetchFailed counts a classified fetch failure.
func (r *Registry) FetchFailed(kind string) {
	if r == nil {
		return
	}
	r.FetchErrors.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
