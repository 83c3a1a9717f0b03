package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vigil-sys/vigil/internal/constants"
	"github.com/vigil-sys/vigil/internal/errors"
)

// =============================================================================
// Status
// =============================================================================

type statusBody struct {
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

// handleStatus reports daemon health and store occupancy.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.store.Stats()
	writeJSON(w, r, http.StatusOK, statusBody{
		Status:            "ok",
		Version:           s.cfg.Version,
		UptimeS:           int64(time.Since(s.startedAt).Seconds()),
		ScalarSeries:      st.ScalarSeries,
		VectorSeries:      st.VectorSeries,
		RetainedSamples:   st.TotalSamples(),
		IngestedSamples:   st.IngestedSamples,
		DroppedSamples:    st.DroppedSamples,
		CapacityPerSeries: st.CapacityPerSeries,
	})
}

// =============================================================================
// Host info
// =============================================================================

// handleInfo serves the host facts collected at startup. With ?key= it
// returns just that entry.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.store.GetMetadata(constants.MetadataSystem)
	if !ok {
		doc = map[string]any{}
	}

	if key := r.URL.Query().Get("key"); key != "" {
		v, ok := doc[key]
		if !ok {
			writeError(w, r, errors.Wrapf(errors.ErrNotFound, "info key '%s'", key))
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{key: v})
		return
	}

	writeJSON(w, r, http.StatusOK, doc)
}

// =============================================================================
// Metric catalogue
// =============================================================================

type metricBody struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Unit   string   `json:"unit"`
	Labels []string `json:"labels"`
	Help   string   `json:"help,omitempty"`
}

// handleMetrics lists every registered metric, sorted by name.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	descs := s.registry.All()
	out := make([]metricBody, len(descs))
	for i, d := range descs {
		labels := d.Labels
		if labels == nil {
			labels = []string{}
		}
		out[i] = metricBody{
			Name:   d.Name,
			Kind:   d.Kind.String(),
			Unit:   d.Unit,
			Labels: labels,
			Help:   d.Help,
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"metrics": out, "count": len(out)})
}

// =============================================================================
// Process table
// =============================================================================

// handleProcesses serves the latest process table snapshot. Before the
// first full collection pass there is nothing to show; that is an empty
// table, not an error.
func (s *Server) handleProcesses(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.store.GetSnapshot(constants.SnapshotProcesses)
	if !ok {
		payload = []byte("[]")
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"processes": json.RawMessage(payload)})
}

// =============================================================================
// Fallback
// =============================================================================

// handleNotFound answers unrouted paths with the JSON error envelope.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, errors.Wrapf(errors.ErrNotFound, "no route for '%s'", r.URL.Path))
}
