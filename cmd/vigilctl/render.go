package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vigil-sys/vigil/internal/client"
	"github.com/vigil-sys/vigil/internal/collector"
	"github.com/vigil-sys/vigil/internal/metrics"
)

// newTable returns a borderless left-aligned table in the style of ps.
func newTable(w io.Writer) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(true)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetCenterSeparator("")
	t.SetColumnSeparator("")
	t.SetRowSeparator("")
	t.SetHeaderLine(false)
	t.SetBorder(false)
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)
	return t
}

func renderStatus(w io.Writer, st *client.Status) {
	t := newTable(w)
	t.Append([]string{"status", st.Status})
	t.Append([]string{"version", st.Version})
	t.Append([]string{"uptime", (time.Duration(st.UptimeS) * time.Second).String()})
	t.Append([]string{"scalar series", strconv.Itoa(st.ScalarSeries)})
	t.Append([]string{"vector series", strconv.Itoa(st.VectorSeries)})
	t.Append([]string{"retained samples", strconv.FormatInt(st.RetainedSamples, 10)})
	t.Append([]string{"ingested samples", strconv.FormatInt(st.IngestedSamples, 10)})
	t.Append([]string{"dropped samples", strconv.FormatInt(st.DroppedSamples, 10)})
	t.Append([]string{"capacity/series", strconv.Itoa(st.CapacityPerSeries)})
	t.Render()
}

func renderInfo(w io.Writer, doc map[string]any) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable(w)
	for _, k := range keys {
		t.Append([]string{k, fmt.Sprintf("%v", doc[k])})
	}
	t.Render()
}

func renderMetrics(w io.Writer, list []client.MetricInfo) {
	t := newTable(w)
	t.SetHeader([]string{"NAME", "KIND", "UNIT", "LABELS", "HELP"})
	for _, m := range list {
		t.Append([]string{m.Name, m.Kind, m.Unit, strings.Join(m.Labels, ","), m.Help})
	}
	t.Render()
}

func renderStored(w io.Writer, series []client.StoredSeries) {
	t := newTable(w)
	t.SetHeader([]string{"SELECTOR", "KIND", "UNIT", "SAMPLES"})
	for _, s := range series {
		t.Append([]string{s.Selector, s.Kind, s.Unit, strconv.Itoa(s.Samples)})
	}
	t.Render()
}

func renderProcesses(w io.Writer, rows []collector.ProcessRow) {
	t := newTable(w)
	t.SetHeader([]string{"PID", "USER", "NAME", "STATE", "CPU%", "MEM%", "RSS MB", "THR"})
	for _, p := range rows {
		t.Append([]string{
			strconv.Itoa(p.PID),
			p.User,
			p.Name,
			p.State,
			strconv.FormatFloat(p.CPUPct, 'f', 1, 64),
			strconv.FormatFloat(p.MemPct, 'f', 1, 64),
			strconv.FormatFloat(p.RSSMB, 'f', 1, 64),
			strconv.Itoa(p.Threads),
		})
	}
	t.Render()
}

func renderSummary(w io.Writer, sum *client.Summary) {
	sel := metrics.Format(sum.Metric, sum.Labels)
	if sum.Count == 0 {
		fmt.Fprintf(w, "%s: no samples in window\n", sel)
		return
	}

	fmt.Fprintf(w, "%s  %s..%s %s\n", sel,
		clock(sum.FirstTs), clock(sum.LastTs), sum.Unit)

	t := newTable(w)
	t.Append([]string{"count", strconv.FormatInt(sum.Count, 10)})
	t.Append([]string{"min", num(sum.Min)})
	t.Append([]string{"max", num(sum.Max)})
	t.Append([]string{"avg", num(sum.Avg)})
	t.Append([]string{"sum", num(sum.Sum)})
	t.Append([]string{"p50", num(sum.P50)})
	t.Append([]string{"p90", num(sum.P90)})
	t.Append([]string{"p95", num(sum.P95)})
	t.Append([]string{"p99", num(sum.P99)})
	t.Render()
}

func renderQuery(w io.Writer, res *client.QueryResult) {
	if res.Kind == "vector" {
		renderVectorSeries(w, res)
		return
	}
	renderScalarSeries(w, res)
}

func renderScalarSeries(w io.Writer, res *client.QueryResult) {
	sel := metrics.Format(res.Metric, res.Labels)
	n := len(res.Scalars)
	if n == 0 {
		fmt.Fprintf(w, "%s: no samples in window\n", sel)
		return
	}

	values := make([]float64, n)
	for i, s := range res.Scalars {
		values[i] = s.Value
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	fmt.Fprintf(w, "%s  %d samples  %s..%s %s\n", sel, n,
		clock(res.Scalars[0].TimestampMs), clock(res.Scalars[n-1].TimestampMs), res.Unit)
	fmt.Fprintf(w, "%s\n", sparkline(values, 60))
	fmt.Fprintf(w, "min %s  max %s  last %s\n", num(lo), num(hi), num(values[n-1]))
}

func renderVectorSeries(w io.Writer, res *client.QueryResult) {
	sel := metrics.Format(res.Metric, res.Labels)
	n := len(res.Vectors)
	if n == 0 {
		fmt.Fprintf(w, "%s: no samples in window\n", sel)
		return
	}
	fmt.Fprintf(w, "%s  %d samples %s\n", sel, n, res.Unit)

	// The tail is what an operator watches; cap the table there.
	rows := res.Vectors
	if len(rows) > 8 {
		rows = rows[len(rows)-8:]
	}

	t := newTable(w)
	t.SetHeader([]string{"TIME", "VALUES"})
	for _, v := range rows {
		parts := make([]string, len(v.Values))
		for i, f := range v.Values {
			parts[i] = strconv.FormatFloat(f, 'f', 1, 64)
		}
		t.Append([]string{clock(v.TimestampMs), strings.Join(parts, " ")})
	}
	t.Render()
}

// =============================================================================
// Sparkline
// =============================================================================

var sparks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders values as one line of block glyphs, averaging down
// to at most width columns. A flat series renders at the lowest level.
func sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}
	if width <= 0 || width > len(values) {
		width = len(values)
	}

	cols := make([]float64, width)
	per := float64(len(values)) / float64(width)
	for i := range cols {
		lo := int(float64(i) * per)
		hi := int(float64(i+1) * per)
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(values) {
			hi = len(values)
		}
		sum := 0.0
		for _, v := range values[lo:hi] {
			sum += v
		}
		cols[i] = sum / float64(hi-lo)
	}

	lo, hi := cols[0], cols[0]
	for _, v := range cols[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	for _, v := range cols {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparks)-1))
		}
		b.WriteRune(sparks[idx])
	}
	return b.String()
}

func clock(tsMs int64) string {
	return time.UnixMilli(tsMs).Format("15:04:05")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
