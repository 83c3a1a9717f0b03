// Package validation provides centralized input validation for vigil.
//
// Metric names and label keys become part of selector strings, and label
// values are embedded between '=' and ',' inside them, so the rules here
// exist to keep every accepted input round-trippable through the selector
// codec.
package validation

import (
	"fmt"
	"strings"
	"unicode"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for metric and label names.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowDots    bool
	AllowHyphens bool
	AllowUnders  bool
}

// MetricNameRules returns the rules for metric names. Dots separate the
// subsystem from the measurement, as in "cpu.total_pct".
func MetricNameRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    128,
		AllowDots:    true,
		AllowHyphens: false,
		AllowUnders:  true,
	}
}

// LabelKeyRules returns the rules for label keys.
func LabelKeyRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    64,
		AllowDots:    false,
		AllowHyphens: false,
		AllowUnders:  true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	if name == "." || name == ".." {
		return fmt.Errorf("name cannot be '.' or '..'")
	}

	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("name cannot start or end with '.'")
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '.':
		return rules.AllowDots
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	}
	return false
}

// ValidateMetricName validates a metric name with metric rules.
func ValidateMetricName(name string) error {
	if err := ValidateName(name, MetricNameRules()); err != nil {
		return fmt.Errorf("invalid metric name: %w", err)
	}
	return nil
}

// ValidateLabelKey validates a label key with label rules.
func ValidateLabelKey(key string) error {
	if err := ValidateName(key, LabelKeyRules()); err != nil {
		return fmt.Errorf("invalid label key: %w", err)
	}
	return nil
}

// =============================================================================
// Label Value Validation
// =============================================================================

// selectorDelimiters are the characters the selector codec splits on.
// A label value containing one would produce a selector string that no
// longer parses back to the same labels.
const selectorDelimiters = "{}=,"

// ValidateLabelValue validates a label value. Values travel inside
// selector strings, so the codec's delimiter characters are forbidden.
func ValidateLabelValue(value string) error {
	if value == "" {
		return fmt.Errorf("label value cannot be empty")
	}
	if len(value) > 256 {
		return fmt.Errorf("label value too long: maximum 256 characters")
	}

	if i := strings.IndexAny(value, selectorDelimiters); i >= 0 {
		return fmt.Errorf("label value cannot contain '%c'", value[i])
	}

	for i, r := range value {
		if r < 32 || r == 127 {
			return fmt.Errorf("label value cannot contain control characters at position %d", i)
		}
	}

	return nil
}

// ValidateLabels validates every key and value of a label map.
func ValidateLabels(labels map[string]string) error {
	for k, v := range labels {
		if err := ValidateLabelKey(k); err != nil {
			return fmt.Errorf("label %q: %w", k, err)
		}
		if err := ValidateLabelValue(v); err != nil {
			return fmt.Errorf("label %q: %w", k, err)
		}
	}
	return nil
}
