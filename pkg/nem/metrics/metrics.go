// Package metrics records Prometheus request metrics for nem routes and
// exposes them in the text exposition format.
package metrics

import (
	"bytes"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/toyz/nem/pkg/nem"
)

// Metrics holds the request collectors of one application
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// Options configures the collectors
type Options struct {
	// Namespace prefixes every metric name, "nem" by default
	Namespace string

	// Buckets of the duration histogram, prometheus.DefBuckets by default
	Buckets []float64

	// Registry receives the collectors; a new registry with the Go and
	// process collectors by default
	Registry *prometheus.Registry
}

// New creates and registers the request collectors
func New(opts Options) (*Metrics, error) {
	if opts.Namespace == "" {
		opts.Namespace = "nem"
	}
	if opts.Buckets == nil {
		opts.Buckets = prometheus.DefBuckets
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
		opts.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: opts.Registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "http_requests_total",
			Help:      "Number of handled HTTP requests.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time spent handling HTTP requests.",
			Buckets:   opts.Buckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests being handled.",
		}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration, m.inflight} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records count, duration and status of the requests passing
// through it. Register it for every controller with
// nem.MiddlewareProvider(nem.Func(m.Middleware())).
func (m *Metrics) Middleware() nem.HandlerFunc {
	return func(req nem.Request, res nem.Response, next nem.Next) error {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		err := next()

		status := res.StatusCode()
		if err != nil {
			status = nem.AsHTTPError(err).Code
		}
		route := nem.RouteOf(req)
		if route == "" {
			route = req.Path()
		}
		m.requests.WithLabelValues(req.Method(), route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(req.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Gather collects the current metric families
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

// Handler serves the metrics in the text exposition format
func (m *Metrics) Handler() nem.HandlerFunc {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	return func(_ nem.Request, res nem.Response, _ nem.Next) error {
		families, err := m.Gather()
		if err != nil {
			return nem.ErrInternalServerError("Failed to gather metrics", err)
		}
		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return nem.ErrInternalServerError("Failed to encode metrics", err)
			}
		}
		res.ContentType(string(format))
		return res.Send(buf.Bytes())
	}
}

// Mount serves the metrics at the root of r, for use as a module router:
//
//	nem.RouterMount{Path: "/metrics", Mount: m.Mount}
func (m *Metrics) Mount(r *nem.Router) {
	r.Get("/", m.Handler())
}
