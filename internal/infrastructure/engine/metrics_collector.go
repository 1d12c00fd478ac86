package engine

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/archflow/archengine/internal/ports"
)

// PrometheusCollector adapts ports.MetricsCollector to the
// prometheus/client_golang SDK, lazily creating vector metrics the first
// time a given name is observed, with the label names of the first call
// as its label set (subsequent calls must use the same label set).
type PrometheusCollector struct {
	registry   *prometheus.Registry
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusCollector constructs a PrometheusCollector registered
// against registry.
func NewPrometheusCollector(registry *prometheus.Registry) *PrometheusCollector {
	return &PrometheusCollector{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (c *PrometheusCollector) IncCounter(ctx context.Context, name string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cv, ok := c.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelNames(labels))
		c.registry.MustRegister(cv)
		c.counters[name] = cv
	}
	cv.With(labels).Inc()
}

func (c *PrometheusCollector) SetGauge(ctx context.Context, name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gv, ok := c.gauges[name]
	if !ok {
		gv = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labelNames(labels))
		c.registry.MustRegister(gv)
		c.gauges[name] = gv
	}
	gv.With(labels).Set(value)
}

func (c *PrometheusCollector) ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hv, ok := c.histograms[name]
	if !ok {
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name}, labelNames(labels))
		c.registry.MustRegister(hv)
		c.histograms[name] = hv
	}
	hv.With(labels).Observe(value)
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}

var _ ports.MetricsCollector = (*PrometheusCollector)(nil)
