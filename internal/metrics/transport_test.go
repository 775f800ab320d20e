package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInstrumentTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	// Create a buffer to capture logs
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	logger := zap.New(core)

	reg := NewRegistry()
	client := &http.Client{Transport: InstrumentTransport(reg, logger, nil)}

	resp, err := client.Get(srv.URL + "/v8/finance/chart/UPS")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	mf := findMetric(t, reg, "smacross_fetch_requests_total")
	if mf == nil {
		t.Fatal("expected fetch counter")
	}
	found := false
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "status" && l.GetValue() == "4xx" {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected a 4xx fetch sample")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v, log: %s", err, buf.String())
	}
	if entry["path"] != "/v8/finance/chart/UPS" {
		t.Errorf("expected path in log, got %v", entry["path"])
	}
	if entry["status"] != float64(429) {
		t.Errorf("expected status 429, got %v", entry["status"])
	}
}

func TestInstrumentTransport_NilRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	client := &http.Client{Transport: InstrumentTransport(nil, nil, nil)}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
}
