package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/vigil-sys/vigil/internal/constants"
	"github.com/vigil-sys/vigil/internal/errors"
	"github.com/vigil-sys/vigil/internal/logging"
	"github.com/vigil-sys/vigil/internal/metrics"
	"github.com/vigil-sys/vigil/internal/store"
)

// exportRow is the Parquet schema for one exported sample.
type exportRow struct {
	Metric      string  `parquet:"metric,zstd"`
	Selector    string  `parquet:"selector,zstd"`
	TimestampMs int64   `parquet:"timestamp_ms"`
	Value       float64 `parquet:"value"`
}

// exportJSONBody is the JSON export envelope. Rollup is always "raw":
// the store keeps no aggregates.
type exportJSONBody struct {
	Metric  string            `json:"metric"`
	Labels  map[string]string `json:"labels,omitempty"`
	Rollup  string            `json:"rollup"`
	Samples [][]any           `json:"samples"`
}

// handleExport streams a scalar series in csv, json, or parquet form.
// The window is mandatory here: an export is a bounded artifact, not a
// live feed. With ?limit=N only the newest N samples survive.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	tgt, err := s.resolveTarget(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tgt.desc.Kind == metrics.KindVector {
		writeError(w, r, errors.NewValidation("metric", "vector series cannot be exported"))
		return
	}

	fromMs, err := requiredInt64(r, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	toMs, err := requiredInt64(r, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if fromMs > toMs {
		writeError(w, r, errors.NewInvalidRange(fromMs, toMs))
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = constants.FormatCSV
	}
	if !constants.IsValidExportFormat(format) {
		writeError(w, r, errors.NewInvalidFormat(format))
		return
	}

	limit, err := optionalInt64(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	samples := s.store.Query(tgt.selector, fromMs, toMs)
	if limit > 0 && int64(len(samples)) > limit {
		// Keep the newest rows; the trim comes off the front.
		samples = samples[int64(len(samples))-limit:]
	}

	switch format {
	case constants.FormatJSON:
		s.exportJSON(w, r, tgt, samples)
	case constants.FormatParquet:
		s.exportParquet(w, r, tgt, samples)
	default:
		s.exportCSV(w, r, tgt, samples)
	}
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request, tgt target, samples []store.Sample) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", attachment(tgt.desc.Name, constants.FormatCSV))

	cw := csv.NewWriter(w)
	cw.Write([]string{"timestamp", "value"})
	for _, smp := range samples {
		cw.Write([]string{
			strconv.FormatInt(smp.TimestampMs, 10),
			strconv.FormatFloat(smp.Value, 'f', -1, 64),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logging.WithContext(r.Context()).Error("csv export failed", "error", err)
	}
}

func (s *Server) exportJSON(w http.ResponseWriter, r *http.Request, tgt target, samples []store.Sample) {
	writeJSON(w, r, http.StatusOK, exportJSONBody{
		Metric:  tgt.desc.Name,
		Labels:  tgt.labels,
		Rollup:  "raw",
		Samples: scalarPairs(samples),
	})
}

func (s *Server) exportParquet(w http.ResponseWriter, r *http.Request, tgt target, samples []store.Sample) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", attachment(tgt.desc.Name, constants.FormatParquet))

	rows := make([]exportRow, len(samples))
	for i, smp := range samples {
		rows[i] = exportRow{
			Metric:      tgt.desc.Name,
			Selector:    tgt.selector,
			TimestampMs: smp.TimestampMs,
			Value:       smp.Value,
		}
	}

	pw := parquet.NewGenericWriter[exportRow](w, parquet.Compression(&parquet.Zstd))
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			logging.WithContext(r.Context()).Error("parquet export failed", "error", err)
			return
		}
	}
	if err := pw.Close(); err != nil {
		logging.WithContext(r.Context()).Error("parquet export failed", "error", err)
	}
}

func attachment(metric, ext string) string {
	return fmt.Sprintf("attachment; filename=%q", metric+"."+ext)
}
