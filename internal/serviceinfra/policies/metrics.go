package policies

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	si "github.com/jk-nd/npl-gateway/internal/serviceinfra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_http_requests_total",
		Help: "Count of HTTP requests handled by the gateway, by method and status class.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_http_request_duration_seconds",
		Help:    "Latency of HTTP requests handled by the gateway.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

// NewMetricsPolicy records request count and latency, the Go equivalent of
// the teacher's golden-signals NewMetricsPolicy, promoted from slog lines to
// real exported Prometheus series (see SPEC_FULL.md §10).
func NewMetricsPolicy() si.Policy {
	return func(ctx context.Context, r *si.ReqRes) error {
		mrw := &statusRecorder{ResponseWriter: r.RW, statusCode: http.StatusOK}
		r.RW = mrw
		start := time.Now()
		err := r.Next(ctx)
		requestDuration.WithLabelValues(r.R.Method).Observe(time.Since(start).Seconds())

		var se *si.ServiceError
		status := mrw.statusCode
		if errors.As(err, &se) {
			status = se.StatusCode
		}
		requestsTotal.WithLabelValues(r.R.Method, strconv.Itoa(status)).Inc()
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (s *statusRecorder) WriteHeader(statusCode int) {
	s.statusCode = statusCode
	s.ResponseWriter.WriteHeader(statusCode)
}

// Handler exposes the Prometheus exposition format for GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
