package metrics

import (
	"sort"

	"github.com/vigil-sys/vigil/internal/constants"
	"github.com/vigil-sys/vigil/internal/errors"
	"github.com/vigil-sys/vigil/internal/validation"
)

// Kind distinguishes scalar series from vector series. The two occupy
// separate store namespaces, so the registry must state which one a
// metric lives in rather than guessing from its name.
type Kind int

const (
	KindScalar Kind = iota
	KindVector
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindVector:
		return "vector"
	default:
		return "unknown"
	}
}

// Descriptor declares a metric: its kind, the unit of its values, and the
// exact set of label keys a query against it may use.
type Descriptor struct {
	Name   string
	Kind   Kind
	Unit   string
	Labels []string
	Help   string
}

// HasLabel reports whether key is an allowed label for this metric.
func (d Descriptor) HasLabel(key string) bool {
	for _, l := range d.Labels {
		if l == key {
			return true
		}
	}
	return false
}

// Registry holds the set of known metrics. It is populated once at startup
// and read-only afterwards, so lookups need no locking.
type Registry struct {
	byName map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Descriptor)}
}

// Register adds a descriptor. Duplicate names, empty fields, and names or
// label keys that would not survive the selector codec are configuration
// mistakes and rejected.
func (r *Registry) Register(d Descriptor) error {
	v := errors.NewValidationErrors()
	if d.Name == "" {
		v.AddMissing("metric name")
	} else if err := validation.ValidateMetricName(d.Name); err != nil {
		v.AddField("metric name", err.Error())
	}
	if d.Unit == "" {
		v.AddMissing("metric unit")
	}
	if d.Kind != KindScalar && d.Kind != KindVector {
		v.AddField("metric kind", "must be scalar or vector")
	}
	for _, key := range d.Labels {
		if err := validation.ValidateLabelKey(key); err != nil {
			v.AddField("metric labels", err.Error())
		}
	}
	if _, exists := r.byName[d.Name]; exists {
		v.AddField("metric name", "duplicate registration of "+d.Name)
	}
	if v.HasErrors() {
		return v.Err()
	}

	r.byName[d.Name] = d
	return nil
}

// Lookup returns the descriptor for a metric name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// All returns every descriptor, sorted by name.
func (r *Registry) All() []Descriptor {
	descs := make([]Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		descs = append(descs, d)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}

// Validate checks a query against the registry. Unknown metrics map to
// HTTP 404; label failures map to 422. A label key must pass two gates:
// the descriptor's allowed list and the global label universe, so a
// descriptor carrying a typoed key still cannot open a new dimension.
func (r *Registry) Validate(name string, labels map[string]string) error {
	d, ok := r.byName[name]
	if !ok {
		return errors.NewMetricNotFound(name)
	}

	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !d.HasLabel(key) {
			return errors.NewUnknownLabel(name, key)
		}
		if !constants.InLabelUniverse(key) {
			return errors.NewLabelOutsideUniverse(key)
		}
		if err := validation.ValidateLabelValue(labels[key]); err != nil {
			return errors.Wrapf(errors.ErrInvalidSelector, "label '%s': %s", key, err.Error())
		}
	}

	return nil
}

// Builtin returns the registry of metrics the collectors produce.
func Builtin() *Registry {
	r := NewRegistry()
	for _, d := range []Descriptor{
		{Name: "cpu.total_pct", Kind: KindScalar, Unit: constants.UnitPercent, Labels: []string{constants.LabelHost}, Help: "total CPU utilization"},
		{Name: "cpu.core_pct", Kind: KindVector, Unit: constants.UnitPercent, Labels: []string{constants.LabelHost, constants.LabelCore}, Help: "per-core CPU utilization"},
		{Name: "mem.used", Kind: KindScalar, Unit: constants.UnitBytes, Labels: []string{constants.LabelHost}, Help: "memory in use"},
		{Name: "mem.free", Kind: KindScalar, Unit: constants.UnitBytes, Labels: []string{constants.LabelHost}, Help: "memory available"},
		{Name: "disk.read", Kind: KindScalar, Unit: constants.UnitBytesPerSec, Labels: []string{constants.LabelHost, constants.LabelDev}, Help: "disk read throughput"},
		{Name: "disk.write", Kind: KindScalar, Unit: constants.UnitBytesPerSec, Labels: []string{constants.LabelHost, constants.LabelDev}, Help: "disk write throughput"},
		{Name: "net.rx", Kind: KindScalar, Unit: constants.UnitBytesPerSec, Labels: []string{constants.LabelHost, constants.LabelIface}, Help: "network receive throughput"},
		{Name: "net.tx", Kind: KindScalar, Unit: constants.UnitBytesPerSec, Labels: []string{constants.LabelHost, constants.LabelIface}, Help: "network transmit throughput"},
	} {
		// Builtin descriptors are static and known-valid.
		_ = r.Register(d)
	}
	return r
}
