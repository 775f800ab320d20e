package metrics

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// roundTripper instruments outbound market data requests.
type roundTripper struct {
	next   http.RoundTripper
	reg    *Registry
	logger *zap.Logger
}

// InstrumentTransport wraps next so every request is counted, timed and logged.
// A nil next uses http.DefaultTransport; a nil logger disables logging.
func InstrumentTransport(reg *Registry, logger *zap.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &roundTripper{next: next, reg: reg, logger: logger}
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.reg != nil {
		rt.reg.InFlightInc()
		defer rt.reg.InFlightDec()
	}

	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if rt.reg != nil {
		rt.reg.RecordFetch(req.URL.Host, status, duration.Seconds())
	}

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	}
	if err != nil {
		rt.logger.Warn("market data request failed", append(fields, zap.Error(err))...)
	} else {
		rt.logger.Debug("market data request", fields...)
	}

	return resp, err
}
