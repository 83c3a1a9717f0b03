package metrics

import (
	"testing"

	"github.com/vigil-sys/vigil/internal/errors"
)

func TestRegistry_Lookup(t *testing.T) {
	r := Builtin()

	d, ok := r.Lookup("cpu.total_pct")
	if !ok {
		t.Fatal("cpu.total_pct should be registered")
	}
	if d.Kind != KindScalar {
		t.Errorf("expected scalar kind, got %s", d.Kind)
	}
	if d.Unit != "percent" {
		t.Errorf("expected unit percent, got %q", d.Unit)
	}

	if _, ok := r.Lookup("nope.metric"); ok {
		t.Error("unknown metric should not be found")
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := Builtin()

	tests := []struct {
		name    string
		metric  string
		labels  map[string]string
		wantErr error
	}{
		{"no labels", "cpu.total_pct", nil, nil},
		{"allowed label", "cpu.total_pct", map[string]string{"host": "web-1"}, nil},
		{"disallowed label", "cpu.total_pct", map[string]string{"core": "0"}, errors.ErrUnknownLabel},
		{"vector metric accepts core", "cpu.core_pct", map[string]string{"core": "0"}, nil},
		{"unknown metric", "bogus.metric", nil, errors.ErrMetricNotFound},
		{"disk dev allowed", "disk.read", map[string]string{"dev": "sda", "host": "a"}, nil},
		{"disk iface rejected", "disk.read", map[string]string{"iface": "eth0"}, errors.ErrUnknownLabel},
		{"delimiter in value", "cpu.total_pct", map[string]string{"host": "web{1"}, errors.ErrInvalidSelector},
		{"empty value", "cpu.total_pct", map[string]string{"host": ""}, errors.ErrInvalidSelector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate(tt.metric, tt.labels)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegistry_ValidateStatus(t *testing.T) {
	r := Builtin()

	// Unknown metric maps to 404, bad label key to 422.
	if status := errors.HTTPStatus(r.Validate("bogus", nil)); status != 404 {
		t.Errorf("unknown metric: expected 404, got %d", status)
	}
	if status := errors.HTTPStatus(r.Validate("cpu.total_pct", map[string]string{"core": "0"})); status != 422 {
		t.Errorf("bad label: expected 422, got %d", status)
	}
	if status := errors.HTTPStatus(r.Validate("cpu.total_pct", nil)); status != 200 {
		t.Errorf("valid query: expected 200, got %d", status)
	}
}

func TestRegistry_All(t *testing.T) {
	r := Builtin()

	descs := r.All()
	if len(descs) != 8 {
		t.Fatalf("expected 8 builtin metrics, got %d", len(descs))
	}

	for i := 1; i < len(descs); i++ {
		if descs[i-1].Name >= descs[i].Name {
			t.Errorf("descriptors not sorted: %q before %q", descs[i-1].Name, descs[i].Name)
		}
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	ok := Descriptor{Name: "custom.metric", Kind: KindScalar, Unit: "count", Labels: []string{"host"}}
	if err := r.Register(ok); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Duplicate registration is a configuration mistake.
	if err := r.Register(ok); err == nil {
		t.Error("duplicate registration should fail")
	}

	// Missing fields are collected into one validation error.
	err := r.Register(Descriptor{})
	if err == nil {
		t.Fatal("empty descriptor should fail")
	}
	if !errors.Is(err, errors.ErrMissingField) {
		t.Errorf("expected missing field error, got %v", err)
	}

	// Names and label keys must survive the selector codec.
	bad := Descriptor{Name: "bad metric", Kind: KindScalar, Unit: "count"}
	if err := r.Register(bad); err == nil {
		t.Error("metric name with a space should fail")
	}
	bad = Descriptor{Name: "custom.other", Kind: KindScalar, Unit: "count", Labels: []string{"bad-key"}}
	if err := r.Register(bad); err == nil {
		t.Error("label key with a hyphen should fail")
	}
}

func TestRegistry_LabelUniverse(t *testing.T) {
	r := NewRegistry()

	// A descriptor may name a syntactically valid key that is not part of
	// the global label set; queries against it must still be rejected.
	d := Descriptor{Name: "custom.metric", Kind: KindScalar, Unit: "count", Labels: []string{"host", "zone"}}
	if err := r.Register(d); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := r.Validate("custom.metric", map[string]string{"host": "a"}); err != nil {
		t.Errorf("host is in the universe: %v", err)
	}
	err := r.Validate("custom.metric", map[string]string{"zone": "us-east"})
	if !errors.Is(err, errors.ErrUnknownLabel) {
		t.Errorf("expected unknown label error for out-of-universe key, got %v", err)
	}
	if status := errors.HTTPStatus(err); status != 422 {
		t.Errorf("expected 422, got %d", status)
	}
}
