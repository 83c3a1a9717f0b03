package api

import (
	"net/http"

	"github.com/vigil-sys/vigil/internal/metrics"
)

// storedSeries describes one live series in the store.
type storedSeries struct {
	Selector string            `json:"selector"`
	Metric   string            `json:"metric"`
	Kind     string            `json:"kind"`
	Unit     string            `json:"unit"`
	Labels   map[string]string `json:"labels,omitempty"`
	Samples  int               `json:"samples"`
}

// handleStored lists every series currently holding data. Dashboards fire
// this in bursts on reconnect, so identical in-flight scans are collapsed
// into one.
func (s *Server) handleStored(w http.ResponseWriter, r *http.Request) {
	v, _, _ := s.stored.Do("stored", func() (any, error) {
		return s.listStored(), nil
	})
	series := v.([]storedSeries)
	writeJSON(w, r, http.StatusOK, map[string]any{"series": series, "count": len(series)})
}

// listStored walks the store and annotates each selector from the
// registry. Series outside the registry still show up; their kind comes
// from the namespace the selector lives in.
func (s *Server) listStored() []storedSeries {
	selectors := s.store.ListSeries()
	out := make([]storedSeries, 0, len(selectors))
	for _, sel := range selectors {
		name, labels := metrics.Parse(sel)
		entry := storedSeries{Selector: sel, Metric: name, Labels: labels}

		if desc, ok := s.registry.Lookup(name); ok {
			entry.Kind = desc.Kind.String()
			entry.Unit = desc.Unit
		} else if s.store.HasVector(sel) {
			entry.Kind = metrics.KindVector.String()
			entry.Unit = "value"
		} else {
			entry.Kind = metrics.KindScalar.String()
			entry.Unit = "value"
		}

		// Count in the namespace the reported kind points at, so the
		// number matches what a query for this series would return.
		if entry.Kind == metrics.KindVector.String() {
			entry.Samples = s.store.CountVector(sel)
		} else {
			entry.Samples = s.store.Count(sel)
		}
		out = append(out, entry)
	}
	return out
}
