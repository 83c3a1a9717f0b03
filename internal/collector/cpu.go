package collector

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// cpuTimes holds the jiffy counters from one /proc/stat cpu line.
type cpuTimes struct {
	user, nice, system, idle, iowait, irq, softirq, steal uint64
}

// active is the time the CPU spent doing work.
func (t cpuTimes) active() uint64 {
	return t.user + t.nice + t.system + t.irq + t.softirq + t.steal
}

// total is active plus idle and iowait time.
func (t cpuTimes) total() uint64 {
	return t.active() + t.idle + t.iowait
}

// CPU computes aggregate and per-core busy percentages from /proc/stat.
type CPU struct {
	openStat openFunc

	prevTotal   cpuTimes
	prevCores   []cpuTimes
	initialized bool
}

// NewCPU creates a CPU collector reading the live /proc/stat.
func NewCPU() *CPU {
	return &CPU{openStat: fileOpener("/proc/stat")}
}

// Percentages returns the aggregate busy percentage and one percentage
// per core, both computed over the interval since the previous call.
// The first call seeds the counters and returns zeros.
func (c *CPU) Percentages() (float64, []float64, error) {
	total, cores, err := c.read()
	if err != nil {
		return 0, nil, err
	}

	if !c.initialized {
		c.prevTotal = total
		c.prevCores = cores
		c.initialized = true
		return 0, make([]float64, len(cores)), nil
	}

	totalPct := busyPercent(c.prevTotal, total)

	corePcts := make([]float64, len(cores))
	for i := range cores {
		// A core count change mid-run leaves new cores at zero until
		// the next interval.
		if i < len(c.prevCores) {
			corePcts[i] = busyPercent(c.prevCores[i], cores[i])
		}
	}

	c.prevTotal = total
	c.prevCores = cores
	return totalPct, corePcts, nil
}

// busyPercent computes 100 * active-delta / total-delta between two readings.
func busyPercent(prev, cur cpuTimes) float64 {
	dActive := counterDelta(cur.active(), prev.active())
	dTotal := counterDelta(cur.total(), prev.total())
	if dTotal == 0 {
		return 0
	}
	return 100 * float64(dActive) / float64(dTotal)
}

// read parses the aggregate line and the per-core lines from /proc/stat.
func (c *CPU) read() (cpuTimes, []cpuTimes, error) {
	f, err := c.openStat()
	if err != nil {
		return cpuTimes{}, nil, fmt.Errorf("open /proc/stat: %w", err)
	}
	defer f.Close()

	var (
		total     cpuTimes
		cores     []cpuTimes
		haveTotal bool
	)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		// The cpu lines sit at the top of the file.
		if !strings.HasPrefix(line, "cpu") {
			break
		}

		fields := strings.Fields(line)
		if len(fields) < 9 {
			continue
		}

		t, err := parseCPUTimes(fields[1:9])
		if err != nil {
			continue
		}

		if fields[0] == "cpu" {
			total = t
			haveTotal = true
		} else {
			cores = append(cores, t)
		}
	}
	if err := scanner.Err(); err != nil {
		return cpuTimes{}, nil, fmt.Errorf("scan /proc/stat: %w", err)
	}
	if !haveTotal {
		return cpuTimes{}, nil, errors.New("cpu line not found in /proc/stat")
	}

	return total, cores, nil
}

// parseCPUTimes parses the eight jiffy fields following the cpu label.
func parseCPUTimes(fields []string) (cpuTimes, error) {
	vals := make([]uint64, 8)
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return cpuTimes{}, fmt.Errorf("parse cpu field %d: %w", i, err)
		}
		vals[i] = v
	}
	return cpuTimes{
		user: vals[0], nice: vals[1], system: vals[2], idle: vals[3],
		iowait: vals[4], irq: vals[5], softirq: vals[6], steal: vals[7],
	}, nil
}
