package telemetry

import (
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mapsource"

// PrometheusRequestLogger exposes render attempts as prometheus metrics
type PrometheusRequestLogger struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	renderedBytes prometheus.Counter
}

func NewPrometheusRequestLogger(registerer prometheus.Registerer) (*PrometheusRequestLogger, errorsx.Error) {
	l := &PrometheusRequestLogger{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_requests_total",
			Help:      "Render attempts by method and status",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Wall-clock duration of render attempts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		renderedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rendered_bytes_total",
			Help:      "Total size of encoded images produced",
		}),
	}

	for _, collector := range []prometheus.Collector{l.requests, l.duration, l.renderedBytes} {
		err := registerer.Register(collector)
		if err != nil {
			return nil, errorsx.Wrap(err)
		}
	}

	return l, nil
}

func (l *PrometheusRequestLogger) LogRequest(record RequestRecord) {
	l.requests.WithLabelValues(record.Method, record.Status).Inc()
	l.duration.WithLabelValues(record.Status).Observe(record.Duration.Seconds())
	if record.Size > 0 {
		l.renderedBytes.Add(float64(record.Size))
	}
}
