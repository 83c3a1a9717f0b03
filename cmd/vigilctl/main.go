// vigilctl is the interactive query shell for a vigild daemon.
//
// With arguments it runs a single command and exits; without, it
// starts a REPL (or, when stdin is not a terminal, executes commands
// line by line from stdin).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/vigil-sys/vigil/internal/client"
	"github.com/vigil-sys/vigil/internal/constants"
	"github.com/vigil-sys/vigil/internal/metrics"
)

// Version is set at build time via ldflags
var Version = "dev"

var commands = []prompt.Suggest{
	{Text: "status", Description: "daemon health and store occupancy"},
	{Text: "info", Description: "host facts: info [key]"},
	{Text: "metrics", Description: "metric catalogue"},
	{Text: "stored", Description: "series currently holding data"},
	{Text: "query", Description: "raw samples: query <metric> [k:v,...] [window]"},
	{Text: "summary", Description: "window statistics: summary <metric> [k:v,...] [window]"},
	{Text: "processes", Description: "latest process table"},
	{Text: "export", Description: "export <metric> [k:v,...] [window] [csv|json|parquet] [file]"},
	{Text: "help", Description: "list commands"},
	{Text: "exit", Description: "leave the shell"},
}

func main() {
	// CLI flags
	addr := flag.String("addr", "http://localhost:8080", "daemon base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "per-request timeout")
	flag.Parse()

	a := &app{
		client: client.New(&client.Config{BaseURL: *addr, Timeout: *timeout}),
		out:    os.Stdout,
	}

	// One-shot mode.
	if args := flag.Args(); len(args) > 0 {
		if err := a.run(args); err != nil {
			fmt.Fprintf(os.Stderr, "vigilctl: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Piped input executes line by line and stops on the first failure.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		if err := a.runScript(os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "vigilctl: %v\n", err)
			os.Exit(1)
		}
		return
	}

	a.runREPL()
}

// =============================================================================
// App
// =============================================================================

type app struct {
	client *client.Client
	out    *os.File
	quit   bool

	// metricCache backs tab completion; filled on first use.
	metricCache []prompt.Suggest
}

func (a *app) runREPL() {
	fmt.Fprintf(a.out, "vigilctl %s connected to %s (help for commands, exit to leave)\n",
		Version, a.client.BaseURL())

	// A dead daemon should not block the shell, just warn.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if _, err := a.client.Status(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	cancel()

	p := prompt.New(
		a.executor,
		a.completer,
		prompt.OptionTitle("vigilctl"),
		prompt.OptionPrefix("vigil> "),
		prompt.OptionPrefixTextColor(prompt.Cyan),
		prompt.OptionMaxSuggestion(12),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return a.quit
		}),
	)
	p.Run()
}

func (a *app) runScript(r *os.File) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := a.run(strings.Fields(line)); err != nil {
			return err
		}
		if a.quit {
			return nil
		}
	}
	return sc.Err()
}

func (a *app) executor(line string) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return
	}
	if err := a.run(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func (a *app) completer(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	fields := strings.Fields(text)

	// First word: the command itself.
	if len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(text, " ")) {
		return prompt.FilterHasPrefix(commands, d.GetWordBeforeCursor(), true)
	}

	// Metric-taking commands complete their first argument from the
	// daemon's catalogue.
	switch fields[0] {
	case "query", "summary", "export":
		if len(fields) == 1 || (len(fields) == 2 && !strings.HasSuffix(text, " ")) {
			return prompt.FilterHasPrefix(a.metricSuggestions(), d.GetWordBeforeCursor(), true)
		}
	}
	return nil
}

func (a *app) metricSuggestions() []prompt.Suggest {
	if a.metricCache != nil {
		return a.metricCache
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	list, err := a.client.Metrics(ctx)
	if err != nil {
		return nil
	}

	out := make([]prompt.Suggest, len(list))
	for i, m := range list {
		out[i] = prompt.Suggest{Text: m.Name, Description: m.Help}
	}
	a.metricCache = out
	return out
}

// =============================================================================
// Commands
// =============================================================================

func (a *app) run(args []string) error {
	ctx := context.Background()
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "status":
		return a.cmdStatus(ctx)
	case "info":
		return a.cmdInfo(ctx, rest)
	case "metrics":
		return a.cmdMetrics(ctx)
	case "stored":
		return a.cmdStored(ctx)
	case "query":
		return a.cmdQuery(ctx, rest)
	case "summary":
		return a.cmdSummary(ctx, rest)
	case "processes", "top":
		return a.cmdProcesses(ctx)
	case "export":
		return a.cmdExport(ctx, rest)
	case "help":
		a.cmdHelp()
		return nil
	case "exit", "quit":
		a.quit = true
		return nil
	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}

func (a *app) cmdStatus(ctx context.Context) error {
	st, err := a.client.Status(ctx)
	if err != nil {
		return err
	}
	renderStatus(a.out, st)
	return nil
}

func (a *app) cmdInfo(ctx context.Context, args []string) error {
	var (
		doc map[string]any
		err error
	)
	if len(args) > 0 {
		doc, err = a.client.InfoKey(ctx, args[0])
	} else {
		doc, err = a.client.Info(ctx)
	}
	if err != nil {
		return err
	}
	renderInfo(a.out, doc)
	return nil
}

func (a *app) cmdMetrics(ctx context.Context) error {
	list, err := a.client.Metrics(ctx)
	if err != nil {
		return err
	}
	renderMetrics(a.out, list)
	return nil
}

func (a *app) cmdStored(ctx context.Context) error {
	series, err := a.client.Stored(ctx)
	if err != nil {
		return err
	}
	renderStored(a.out, series)
	return nil
}

func (a *app) cmdQuery(ctx context.Context, args []string) error {
	req, err := parseQueryArgs(args)
	if err != nil {
		return err
	}
	res, err := a.client.Query(ctx, req)
	if err != nil {
		return err
	}
	renderQuery(a.out, res)
	return nil
}

func (a *app) cmdSummary(ctx context.Context, args []string) error {
	req, err := parseQueryArgs(args)
	if err != nil {
		return err
	}
	sum, err := a.client.Summary(ctx, req)
	if err != nil {
		return err
	}
	renderSummary(a.out, sum)
	return nil
}

func (a *app) cmdProcesses(ctx context.Context) error {
	rows, err := a.client.Processes(ctx)
	if err != nil {
		return err
	}
	renderProcesses(a.out, rows)
	return nil
}

func (a *app) cmdExport(ctx context.Context, args []string) error {
	req, outfile, err := parseExportArgs(args)
	if err != nil {
		return err
	}

	// Raw parquet bytes would wreck an interactive terminal.
	if req.Format == constants.FormatParquet && outfile == "" &&
		term.IsTerminal(int(a.out.Fd())) {
		return fmt.Errorf("parquet export needs an output file")
	}

	data, err := a.client.Export(ctx, req)
	if err != nil {
		return err
	}

	if outfile == "" {
		_, err = a.out.Write(data)
		return err
	}
	if err := os.WriteFile(outfile, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outfile, err)
	}
	fmt.Fprintf(a.out, "wrote %d bytes to %s\n", len(data), outfile)
	return nil
}

func (a *app) cmdHelp() {
	t := newTable(a.out)
	for _, c := range commands {
		t.Append([]string{c.Text, c.Description})
	}
	t.Render()
}

// =============================================================================
// Argument Parsing
// =============================================================================

// parseQueryArgs reads <metric> [k:v,...] [window] into a request. A
// window is any argument time.ParseDuration accepts and anchors the
// range at now.
func parseQueryArgs(args []string) (client.QueryRequest, error) {
	metric, labels, window, err := parseTarget(args)
	if err != nil {
		return client.QueryRequest{}, err
	}

	req := client.QueryRequest{Metric: metric, Labels: labels}
	if window > 0 {
		now := time.Now()
		req.FromMs = now.Add(-window).UnixMilli()
		req.ToMs = now.UnixMilli()
	}
	return req, nil
}

// parseExportArgs additionally accepts a format token and an output
// path. Without a window the export covers the full retained range.
func parseExportArgs(args []string) (client.ExportRequest, string, error) {
	if len(args) == 0 {
		return client.ExportRequest{}, "", fmt.Errorf("metric name required")
	}

	var (
		format  string
		outfile string
		kept    []string
	)
	kept = append(kept, args[0])
	for _, arg := range args[1:] {
		switch {
		case constants.IsValidExportFormat(arg):
			format = arg
		case isWindow(arg) || strings.Contains(arg, ":"):
			kept = append(kept, arg)
		case outfile == "":
			outfile = arg
		default:
			return client.ExportRequest{}, "", fmt.Errorf("unrecognized argument %q", arg)
		}
	}

	metric, labels, window, err := parseTarget(kept)
	if err != nil {
		return client.ExportRequest{}, "", err
	}

	now := time.Now()
	req := client.ExportRequest{
		QueryRequest: client.QueryRequest{Metric: metric, Labels: labels, ToMs: now.UnixMilli()},
		Format:       format,
	}
	if window > 0 {
		req.FromMs = now.Add(-window).UnixMilli()
	}
	return req, outfile, nil
}

// parseTarget splits command arguments into a metric name, label
// filters, and an optional window.
func parseTarget(args []string) (string, map[string]string, time.Duration, error) {
	if len(args) == 0 {
		return "", nil, 0, fmt.Errorf("metric name required")
	}

	metric := args[0]
	var (
		labels map[string]string
		window time.Duration
	)
	for _, arg := range args[1:] {
		if d, err := time.ParseDuration(arg); err == nil && d > 0 {
			window = d
			continue
		}
		if strings.Contains(arg, ":") {
			labels = metrics.ParseFilters(arg)
			continue
		}
		return "", nil, 0, fmt.Errorf("unrecognized argument %q", arg)
	}
	return metric, labels, window, nil
}

func isWindow(arg string) bool {
	d, err := time.ParseDuration(arg)
	return err == nil && d > 0
}
