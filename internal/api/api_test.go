package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vigil-sys/vigil/internal/metrics"
	"github.com/vigil-sys/vigil/internal/store"
)

const testHost = "testhost"

// newTestServer returns a server over a seeded store: five scalar cpu
// samples, one memory sample, one vector sample, a process snapshot,
// and the host metadata doc.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	st := store.New(store.Config{KeepSeconds: 3600, SamplePeriodSec: 1})
	host := map[string]string{"host": testHost}
	for i := int64(1); i <= 5; i++ {
		st.Append(metrics.Format("cpu.total_pct", host),
			store.Sample{TimestampMs: i * 1000, Value: float64(i * 10)})
	}
	st.Append(metrics.Format("mem.used", host), store.Sample{TimestampMs: 1000, Value: 1024})
	st.AppendVector(metrics.Format("cpu.core_pct", host),
		store.VectorSample{TimestampMs: 1000, Values: []float64{5, 15}})
	st.PutSnapshot("processes", []byte(`[{"pid":1,"name":"init","cpu_pct":0.5}]`))
	st.PutMetadata("system", map[string]any{"hostname": testHost, "os": "linux"})

	return New(Config{HostLabel: testHost, Version: "test"}, st, metrics.Builtin())
}

// get drives one request through the full middleware chain.
func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// decode unmarshals a JSON response body into out.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
}

// wantStatus fails the test unless the recorded status matches.
func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

func TestServer_Defaults(t *testing.T) {
	s := New(Config{}, store.New(store.Config{}), metrics.Builtin())

	if s.cfg.Listen == "" {
		t.Error("listen address should default")
	}
	if s.cfg.ReadTimeout <= 0 || s.cfg.WriteTimeout <= 0 {
		t.Error("timeouts should default")
	}
	if s.cfg.SketchAccuracy <= 0 {
		t.Error("sketch accuracy should default")
	}
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/status")
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}

	// Preflight short-circuits before routing.
	req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	pre := httptest.NewRecorder()
	s.Handler().ServeHTTP(pre, req)
	if pre.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", pre.Code)
	}
	if pre.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("missing CORS methods header on preflight")
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/nope")
	wantStatus(t, rec, http.StatusNotFound)

	var body struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decode(t, rec, &body)
	if body.Error.Code != http.StatusNotFound || body.Error.Message == "" {
		t.Errorf("malformed error envelope: %+v", body)
	}
}
