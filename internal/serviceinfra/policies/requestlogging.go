package policies

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	si "github.com/jk-nd/npl-gateway/internal/serviceinfra"
)

// NewRequestLogPolicy logs a line before and after every request, mirroring
// the teacher's requestlogging policy but keyed by a wall-clock-derived
// request id instead of an incrementing counter.
func NewRequestLogPolicy(logger *slog.Logger) si.Policy {
	return func(ctx context.Context, r *si.ReqRes) error {
		lrw := &logResponseWriter{statusCode: http.StatusOK, ResponseWriter: r.RW}
		r.RW = lrw
		start := time.Now()
		requestID := start.UnixNano()
		logger.Info("-> ", slog.Int64("requestId", requestID), slog.String("method", r.R.Method), slog.String("url", r.R.URL.String()))
		err := r.Next(ctx)
		logger.Info("<- ", slog.Int64("requestId", requestID), slog.String("method", r.R.Method), slog.String("url", r.R.URL.String()),
			slog.Int("statusCode", lrw.statusCode), slog.Duration("duration", time.Since(start)))
		return err
	}
}

type logResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *logResponseWriter) WriteHeader(statusCode int) {
	lrw.statusCode = statusCode
	lrw.ResponseWriter.WriteHeader(statusCode)
}
