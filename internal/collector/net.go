package collector

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// InterfaceIO is a per-interface throughput reading.
type InterfaceIO struct {
	Interface     string
	RxBytesPerSec float64
	TxBytesPerSec float64
}

// netCounters holds the cumulative byte counters for one interface.
type netCounters struct {
	rxBytes uint64
	txBytes uint64
}

// Net computes per-interface rx/tx throughput from /proc/net/dev.
// The loopback interface is excluded.
type Net struct {
	openNetDev openFunc
	now        func() time.Time

	prev        map[string]netCounters
	prevTime    time.Time
	initialized bool
}

// NewNet creates a Net collector reading the live /proc/net/dev.
func NewNet() *Net {
	return &Net{
		openNetDev: fileOpener("/proc/net/dev"),
		now:        time.Now,
	}
}

// Rates returns bytes/sec per interface since the previous call, sorted
// by interface name. The first call seeds the counters and returns
// nothing.
func (n *Net) Rates() ([]InterfaceIO, error) {
	cur, err := n.readNetDev()
	if err != nil {
		return nil, err
	}
	now := n.now()

	if !n.initialized {
		n.prev = cur
		n.prevTime = now
		n.initialized = true
		return nil, nil
	}

	dt := now.Sub(n.prevTime).Seconds()
	if dt <= 0 {
		n.prev = cur
		n.prevTime = now
		return nil, nil
	}

	out := make([]InterfaceIO, 0, len(cur))
	for iface, c := range cur {
		p, ok := n.prev[iface]
		if !ok {
			// Interface appeared since the last read; no baseline yet.
			continue
		}
		out = append(out, InterfaceIO{
			Interface:     iface,
			RxBytesPerSec: float64(counterDelta(c.rxBytes, p.rxBytes)) / dt,
			TxBytesPerSec: float64(counterDelta(c.txBytes, p.txBytes)) / dt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interface < out[j].Interface })

	n.prev = cur
	n.prevTime = now
	return out, nil
}

// readNetDev parses interface names and byte counters, skipping the two
// header lines and the loopback interface.
func (n *Net) readNetDev() (map[string]netCounters, error) {
	f, err := n.openNetDev()
	if err != nil {
		return nil, fmt.Errorf("open /proc/net/dev: %w", err)
	}
	defer f.Close()

	counters := make(map[string]netCounters)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= 2 {
			continue
		}

		line := scanner.Text()
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}

		iface := strings.TrimSpace(line[:colon])
		if iface == "lo" {
			continue
		}

		// rx: bytes packets errs drop fifo frame compressed multicast
		// tx: bytes packets errs drop fifo colls carrier compressed
		fields := strings.Fields(line[colon+1:])
		if len(fields) < 16 {
			continue
		}

		rxBytes, err1 := strconv.ParseUint(fields[0], 10, 64)
		txBytes, err2 := strconv.ParseUint(fields[8], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}

		counters[iface] = netCounters{rxBytes: rxBytes, txBytes: txBytes}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan /proc/net/dev: %w", err)
	}

	return counters, nil
}
