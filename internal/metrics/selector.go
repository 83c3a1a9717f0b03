// Package metrics defines metric identity for the vigil daemon: the
// selector codec that names stored series and the registry that declares
// which metrics exist, their kind, unit, and allowed label keys.
package metrics

import (
	"sort"
	"strings"
)

// Format renders the canonical selector for a metric name and label set.
// Label keys are sorted so that equal label sets always produce the same
// selector string regardless of map iteration order. A metric with no
// labels renders as the bare name.
//
// Example: Format("disk.read", {"host":"a","dev":"sda"}) == "disk.read{dev=sda,host=a}"
func Format(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.Grow(len(name) + 16*len(keys))
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

// Parse splits a selector into its metric name and label map. It accepts
// both "name" and "name{}" for a label-free series and tolerates whitespace
// around separators. Fragments without '=' are skipped; selectors never
// fail to parse because the store must accept whatever key it is handed.
func Parse(selector string) (string, map[string]string) {
	open := strings.IndexByte(selector, '{')
	if open < 0 {
		return strings.TrimSpace(selector), nil
	}

	name := strings.TrimSpace(selector[:open])
	body := selector[open+1:]
	if end := strings.IndexByte(body, '}'); end >= 0 {
		body = body[:end]
	}

	return name, parsePairs(body, '=')
}

// ParseFilters parses the HTTP label filter syntax "k:v,k2:v2" used by the
// query endpoints. Empty or malformed fragments are skipped.
func ParseFilters(expr string) map[string]string {
	return parsePairs(expr, ':')
}

// FormatFilters renders labels in the filter syntax ParseFilters accepts,
// with keys sorted. An empty label set renders as "".
func FormatFilters(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(labels[k])
	}
	return b.String()
}

// parsePairs splits a comma-separated list of sep-delimited pairs into a
// map. Returns nil when no valid pair is present.
func parsePairs(s string, sep byte) map[string]string {
	var labels map[string]string

	for _, frag := range strings.Split(s, ",") {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}

		idx := strings.IndexByte(frag, sep)
		if idx < 0 {
			continue
		}

		key := strings.TrimSpace(frag[:idx])
		val := strings.TrimSpace(frag[idx+1:])
		if key == "" {
			continue
		}

		if labels == nil {
			labels = make(map[string]string)
		}
		labels[key] = val
	}

	return labels
}
