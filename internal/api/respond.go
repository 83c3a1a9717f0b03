package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/vigil-sys/vigil/internal/constants"
	"github.com/vigil-sys/vigil/internal/errors"
	"github.com/vigil-sys/vigil/internal/logging"
	"github.com/vigil-sys/vigil/internal/metrics"
)

// =============================================================================
// Response writers
// =============================================================================

// errorBody is the envelope every failed request gets.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v with the right content type. Encoding failures are
// logged; by then the status line is already out.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.WithContext(r.Context()).Error("response encoding failed", "error", err)
	}
}

// writeError maps err onto its HTTP status and writes the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context()).Error("request failed", "error", err)
	}
	writeJSON(w, r, status, errorBody{Error: errorDetail{Code: status, Message: err.Error()}})
}

// =============================================================================
// Parameter parsing
// =============================================================================

// optionalInt64 parses a query parameter, using def when absent.
func optionalInt64(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.NewBadParameter(name, "must be an integer millisecond timestamp")
	}
	return v, nil
}

// requiredInt64 parses a query parameter that must be present.
func requiredInt64(r *http.Request, name string) (int64, error) {
	if r.URL.Query().Get(name) == "" {
		return 0, errors.NewMissingField(name)
	}
	return optionalInt64(r, name, 0)
}

// window reads from/to with the given defaults and rejects inverted
// ranges.
func window(r *http.Request, defFrom, defTo int64) (int64, int64, error) {
	fromMs, err := optionalInt64(r, "from", defFrom)
	if err != nil {
		return 0, 0, err
	}
	toMs, err := optionalInt64(r, "to", defTo)
	if err != nil {
		return 0, 0, err
	}
	if fromMs > toMs {
		return 0, 0, errors.NewInvalidRange(fromMs, toMs)
	}
	return fromMs, toMs, nil
}

// =============================================================================
// Target resolution
// =============================================================================

// target is a validated (metric, labels) pair with its canonical selector.
type target struct {
	desc     metrics.Descriptor
	labels   map[string]string
	selector string
}

// resolveTarget reads metric and labels from the query string, fills in
// the daemon's host label when the metric takes one and the caller did
// not pin it, and validates the pair against the registry.
func (s *Server) resolveTarget(r *http.Request) (target, error) {
	q := r.URL.Query()
	name := q.Get("metric")
	if name == "" {
		return target{}, errors.NewMissingField("metric")
	}

	desc, ok := s.registry.Lookup(name)
	if !ok {
		return target{}, errors.NewMetricNotFound(name)
	}

	labels := metrics.ParseFilters(q.Get("labels"))
	if _, pinned := labels[constants.LabelHost]; !pinned && desc.HasLabel(constants.LabelHost) && s.cfg.HostLabel != "" {
		if labels == nil {
			labels = make(map[string]string, 1)
		}
		labels[constants.LabelHost] = s.cfg.HostLabel
	}
	if err := s.registry.Validate(name, labels); err != nil {
		return target{}, err
	}

	return target{desc: desc, labels: labels, selector: metrics.Format(name, labels)}, nil
}
