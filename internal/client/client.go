// Package client provides a client for the vigild HTTP API.
//
// Every call is a single request/response; the client holds no
// connection state beyond the pooling inside net/http.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vigil-sys/vigil/internal/collector"
	"github.com/vigil-sys/vigil/internal/metrics"
)

// =============================================================================
// Errors
// =============================================================================

// APIError is a non-200 response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// =============================================================================
// Client
// =============================================================================

// Client talks to one vigild instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// Config holds client configuration.
type Config struct {
	// BaseURL is the daemon root, e.g. "http://localhost:8080".
	BaseURL string

	// Timeout bounds each request end to end.
	Timeout time.Duration
}

// DefaultConfig returns default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:8080",
		Timeout: 30 * time.Second,
	}
}

// New creates a client.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the daemon root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// Request Types
// =============================================================================

// QueryRequest addresses one series over a window. Zero FromMs/ToMs mean
// the full retained window.
type QueryRequest struct {
	Metric string
	Labels map[string]string
	FromMs int64
	ToMs   int64
}

func (q QueryRequest) values() url.Values {
	v := url.Values{}
	v.Set("metric", q.Metric)
	if len(q.Labels) > 0 {
		v.Set("labels", metrics.FormatFilters(q.Labels))
	}
	if q.FromMs > 0 {
		v.Set("from", strconv.FormatInt(q.FromMs, 10))
	}
	if q.ToMs > 0 {
		v.Set("to", strconv.FormatInt(q.ToMs, 10))
	}
	return v
}

// ExportRequest bounds an export artifact. The window is mandatory on
// the server, so FromMs/ToMs are always sent.
type ExportRequest struct {
	QueryRequest
	Format string
	Limit  int
}

func (q ExportRequest) values() url.Values {
	v := q.QueryRequest.values()
	v.Set("from", strconv.FormatInt(q.FromMs, 10))
	v.Set("to", strconv.FormatInt(q.ToMs, 10))
	if q.Format != "" {
		v.Set("format", q.Format)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// =============================================================================
// Response Types
// =============================================================================

// Status mirrors /api/status.
type Status struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	UptimeS           int64  `json:"uptime_s"`
	ScalarSeries      int    `json:"scalar_series"`
	VectorSeries      int    `json:"vector_series"`
	RetainedSamples   int64  `json:"retained_samples"`
	IngestedSamples   int64  `json:"ingested_samples"`
	DroppedSamples    int64  `json:"dropped_samples"`
	CapacityPerSeries int    `json:"capacity_per_series"`
}

// MetricInfo mirrors one /api/metrics entry.
type MetricInfo struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Unit   string   `json:"unit"`
	Labels []string `json:"labels"`
	Help   string   `json:"help"`
}

// StoredSeries mirrors one /api/stored entry.
type StoredSeries struct {
	Selector string            `json:"selector"`
	Metric   string            `json:"metric"`
	Kind     string            `json:"kind"`
	Unit     string            `json:"unit"`
	Labels   map[string]string `json:"labels"`
	Samples  int               `json:"samples"`
}

// Sample is one scalar observation.
type Sample struct {
	TimestampMs int64
	Value       float64
}

// VectorSample is one vector observation.
type VectorSample struct {
	TimestampMs int64
	Values      []float64
}

// QueryResult holds a decoded /api/query response. Exactly one of
// Scalars and Vectors is populated, according to Kind.
type QueryResult struct {
	Metric  string
	Kind    string
	Unit    string
	Labels  map[string]string
	Scalars []Sample
	Vectors []VectorSample
}

// Summary mirrors /api/summary.
type Summary struct {
	Metric  string            `json:"metric"`
	Unit    string            `json:"unit"`
	Labels  map[string]string `json:"labels"`
	Count   int64             `json:"count"`
	Sum     float64           `json:"sum"`
	Min     float64           `json:"min"`
	Max     float64           `json:"max"`
	Avg     float64           `json:"avg"`
	P50     float64           `json:"p50"`
	P90     float64           `json:"p90"`
	P95     float64           `json:"p95"`
	P99     float64           `json:"p99"`
	FirstTs int64             `json:"first_ts"`
	LastTs  int64             `json:"last_ts"`
}

// =============================================================================
// Endpoints
// =============================================================================

// Status fetches daemon health and store occupancy.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.get(ctx, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Info fetches the host facts document.
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any)
	if err := c.get(ctx, "/api/info", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InfoKey fetches a single host fact. A key the daemon does not know
// is a not-found error.
func (c *Client) InfoKey(ctx context.Context, key string) (map[string]any, error) {
	q := url.Values{}
	q.Set("key", key)

	out := make(map[string]any)
	if err := c.get(ctx, "/api/info", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Metrics fetches the metric catalogue, sorted by name.
func (c *Client) Metrics(ctx context.Context) ([]MetricInfo, error) {
	var out struct {
		Metrics []MetricInfo `json:"metrics"`
	}
	if err := c.get(ctx, "/api/metrics", nil, &out); err != nil {
		return nil, err
	}
	return out.Metrics, nil
}

// Stored fetches every series currently holding data.
func (c *Client) Stored(ctx context.Context) ([]StoredSeries, error) {
	var out struct {
		Series []StoredSeries `json:"series"`
	}
	if err := c.get(ctx, "/api/stored", nil, &out); err != nil {
		return nil, err
	}
	return out.Series, nil
}

// Processes fetches the latest process table snapshot.
func (c *Client) Processes(ctx context.Context) ([]collector.ProcessRow, error) {
	var out struct {
		Processes []collector.ProcessRow `json:"processes"`
	}
	if err := c.get(ctx, "/api/processes", nil, &out); err != nil {
		return nil, err
	}
	return out.Processes, nil
}

// Query fetches raw samples for one series.
func (c *Client) Query(ctx context.Context, q QueryRequest) (*QueryResult, error) {
	var raw struct {
		Metric  string            `json:"metric"`
		Kind    string            `json:"kind"`
		Unit    string            `json:"unit"`
		Labels  map[string]string `json:"labels"`
		Samples []json.RawMessage `json:"samples"`
	}
	if err := c.get(ctx, "/api/query", q.values(), &raw); err != nil {
		return nil, err
	}

	res := &QueryResult{
		Metric: raw.Metric,
		Kind:   raw.Kind,
		Unit:   raw.Unit,
		Labels: raw.Labels,
	}
	for _, pair := range raw.Samples {
		if raw.Kind == "vector" {
			smp, err := decodeVectorPair(pair)
			if err != nil {
				return nil, err
			}
			res.Vectors = append(res.Vectors, smp)
		} else {
			smp, err := decodeScalarPair(pair)
			if err != nil {
				return nil, err
			}
			res.Scalars = append(res.Scalars, smp)
		}
	}
	return res, nil
}

// Summary fetches window statistics for a scalar series.
func (c *Client) Summary(ctx context.Context, q QueryRequest) (*Summary, error) {
	var out Summary
	if err := c.get(ctx, "/api/summary", q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export fetches a series as a bounded artifact in the requested format
// and returns the raw response body.
func (c *Client) Export(ctx context.Context, q ExportRequest) ([]byte, error) {
	resp, err := c.do(ctx, "/api/export", q.values())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export body: %w", err)
	}
	return data, nil
}

// =============================================================================
// Transport
// =============================================================================

func (c *Client) do(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// decodeAPIError turns an error envelope into an *APIError. A body that
// is not an envelope still yields the HTTP status.
func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		return &APIError{Status: resp.StatusCode, Message: envelope.Error.Message}
	}
	return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}

func decodeScalarPair(raw json.RawMessage) (Sample, error) {
	var p [2]float64
	if err := json.Unmarshal(raw, &p); err != nil {
		return Sample{}, fmt.Errorf("decode sample pair: %w", err)
	}
	return Sample{TimestampMs: int64(p[0]), Value: p[1]}, nil
}

func decodeVectorPair(raw json.RawMessage) (VectorSample, error) {
	var p [2]json.RawMessage
	if err := json.Unmarshal(raw, &p); err != nil {
		return VectorSample{}, fmt.Errorf("decode sample pair: %w", err)
	}

	var smp VectorSample
	if err := json.Unmarshal(p[0], &smp.TimestampMs); err != nil {
		return VectorSample{}, fmt.Errorf("decode sample timestamp: %w", err)
	}
	if err := json.Unmarshal(p[1], &smp.Values); err != nil {
		return VectorSample{}, fmt.Errorf("decode sample values: %w", err)
	}
	return smp, nil
}
