package collector

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// userHZ is the tick rate the kernel uses for the CPU time fields in
// /proc/[pid]/stat. Linux fixes USER_HZ at 100 on every mainstream
// architecture.
const userHZ = 100

// ProcessRow is one process in a top-style snapshot.
type ProcessRow struct {
	PID           int     `json:"pid"`
	PPID          int     `json:"ppid"`
	User          string  `json:"user"`
	Name          string  `json:"name"`
	State         string  `json:"state"`
	CPUPct        float64 `json:"cpu_pct"`
	CPUTimeSec    float64 `json:"cpu_time_s"`
	Threads       int     `json:"threads"`
	WakeupsPerSec float64 `json:"idle_wakeups_per_s"`
	RSSMB         float64 `json:"rss_mb"`
	MemPct        float64 `json:"mem_pct"`
	Priority      int     `json:"priority"`
	Nice          int     `json:"nice"`
}

// procSample is the per-process state read from /proc/[pid]/{stat,status,statm}.
type procSample struct {
	pid         int
	comm        string
	state       byte
	ppid        int
	utimeTicks  uint64
	stimeTicks  uint64
	priority    int
	nice        int
	uid         string
	threads     int
	ctxSwitches uint64
	rssKB       uint64
	cmdline     string
}

// procSnapshot is one full pass over /proc.
type procSnapshot struct {
	byPID        map[int]procSample
	totalJiffies uint64
	memTotalKB   uint64
}

// Processes builds top-style process tables from consecutive /proc
// snapshots. CPU percentages are normalized against total machine
// capacity, so a process saturating one core of an 8-core host reads
// as 12.5.
type Processes struct {
	procRoot string
	hz       float64
	pageSize uint64

	prev     procSnapshot
	havePrev bool

	// uid string to username, filled lazily.
	users map[string]string
}

// NewProcesses creates a Processes collector reading the live /proc.
func NewProcesses() *Processes {
	return &Processes{
		procRoot: "/proc",
		hz:       userHZ,
		pageSize: uint64(os.Getpagesize()),
		users:    make(map[string]string),
	}
}

// Top returns the processes with the highest CPU usage since the
// previous call, at most limit rows (limit <= 0 means all). Ties keep
// ascending pid order. The first call seeds the snapshot and returns
// nothing.
func (p *Processes) Top(limit int) ([]ProcessRow, error) {
	cur, err := p.readSnapshot()
	if err != nil {
		return nil, err
	}

	if !p.havePrev {
		p.prev = cur
		p.havePrev = true
		return nil, nil
	}

	rows := p.computeRows(cur)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CPUPct > rows[j].CPUPct })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	p.prev = cur
	return rows, nil
}

// computeRows turns the previous and current snapshots into rows. The
// elapsed interval is inferred from the total jiffy delta rather than
// wall time, so the ratio stays exact even when a tick is delayed.
func (p *Processes) computeRows(cur procSnapshot) []ProcessRow {
	jiffies := uint64(1)
	if cur.totalJiffies > p.prev.totalJiffies {
		jiffies = cur.totalJiffies - p.prev.totalJiffies
	}
	dt := float64(jiffies) / p.hz
	if dt <= 0 {
		dt = 1.0
	}

	memTotalKB := float64(cur.memTotalKB)

	pids := make([]int, 0, len(cur.byPID))
	for pid := range cur.byPID {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	rows := make([]ProcessRow, 0, len(pids))
	for _, pid := range pids {
		b := cur.byPID[pid]

		name := b.cmdline
		if name == "" {
			name = "[" + b.comm + "]"
		}

		row := ProcessRow{
			PID:        pid,
			PPID:       b.ppid,
			User:       p.username(b.uid),
			Name:       name,
			State:      string(b.state),
			CPUTimeSec: float64(b.utimeTicks+b.stimeTicks) / p.hz,
			Threads:    b.threads,
			RSSMB:      float64(b.rssKB) / 1024.0,
			Priority:   b.priority,
			Nice:       b.nice,
		}
		if memTotalKB > 0 {
			row.MemPct = 100.0 * float64(b.rssKB) / memTotalKB
		}

		// A pid absent from the previous snapshot has no delta yet;
		// only its cumulative CPU time is known.
		if a, ok := p.prev.byPID[pid]; ok {
			dticks := counterDelta(b.utimeTicks, a.utimeTicks) + counterDelta(b.stimeTicks, a.stimeTicks)
			row.CPUPct = 100.0 * (float64(dticks) / p.hz) / dt
			row.WakeupsPerSec = float64(counterDelta(b.ctxSwitches, a.ctxSwitches)) / dt
		}

		rows = append(rows, row)
	}
	return rows
}

// readSnapshot walks the numeric entries of /proc. Processes that
// disappear mid-walk are skipped.
func (p *Processes) readSnapshot() (procSnapshot, error) {
	snap := procSnapshot{byPID: make(map[int]procSample)}

	var err error
	snap.totalJiffies, err = p.readTotalJiffies()
	if err != nil {
		return procSnapshot{}, err
	}
	snap.memTotalKB = p.readMemTotalKB()

	entries, err := os.ReadDir(p.procRoot)
	if err != nil {
		return procSnapshot{}, fmt.Errorf("read %s: %w", p.procRoot, err)
	}

	for _, e := range entries {
		pid, convErr := strconv.Atoi(e.Name())
		if convErr != nil || pid <= 0 {
			continue
		}

		s, ok := p.readStat(pid)
		if !ok {
			continue
		}
		p.readStatus(pid, &s)
		s.rssKB = p.readRSSKB(pid)
		s.cmdline = p.readCmdline(pid)

		snap.byPID[pid] = s
	}

	return snap, nil
}

// readTotalJiffies sums every field of the aggregate cpu line in
// /proc/stat, giving machine-wide elapsed jiffies.
func (p *Processes) readTotalJiffies() (uint64, error) {
	data, err := os.ReadFile(filepath.Join(p.procRoot, "stat"))
	if err != nil {
		return 0, fmt.Errorf("open %s/stat: %w", p.procRoot, err)
	}

	line, _, _ := strings.Cut(string(data), "\n")
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "cpu" {
		return 0, errors.New("aggregate cpu line not found in /proc/stat")
	}

	var sum uint64
	for _, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			break
		}
		sum += v
	}
	return sum, nil
}

// readMemTotalKB returns MemTotal in kB, or 0 when unavailable.
func (p *Processes) readMemTotalKB() uint64 {
	data, err := os.ReadFile(filepath.Join(p.procRoot, "meminfo"))
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "MemTotal:" {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return v
	}
	return 0
}

// readStat parses /proc/[pid]/stat. The comm field may contain spaces
// and is delimited by the outermost parentheses.
func (p *Processes) readStat(pid int) (procSample, bool) {
	data, err := os.ReadFile(filepath.Join(p.procRoot, strconv.Itoa(pid), "stat"))
	if err != nil {
		return procSample{}, false
	}

	line := string(data)
	l := strings.IndexByte(line, '(')
	r := strings.LastIndexByte(line, ')')
	if l < 0 || r <= l {
		return procSample{}, false
	}

	// After the comm: state ppid pgrp session tty_nr tpgid flags
	// minflt cminflt majflt cmajflt utime stime cutime cstime
	// priority nice ...
	fields := strings.Fields(line[r+1:])
	if len(fields) < 17 {
		return procSample{}, false
	}

	s := procSample{
		pid:   pid,
		comm:  line[l+1 : r],
		state: fields[0][0],
		uid:   "0",
	}
	s.ppid, _ = strconv.Atoi(fields[1])
	s.utimeTicks, _ = strconv.ParseUint(fields[11], 10, 64)
	s.stimeTicks, _ = strconv.ParseUint(fields[12], 10, 64)
	s.priority, _ = strconv.Atoi(fields[15])
	s.nice, _ = strconv.Atoi(fields[16])
	return s, true
}

// readStatus fills uid, thread count and context switch totals from
// /proc/[pid]/status. Voluntary and involuntary switches are summed.
func (p *Processes) readStatus(pid int, s *procSample) {
	data, err := os.ReadFile(filepath.Join(p.procRoot, strconv.Itoa(pid), "status"))
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "Uid:":
			s.uid = fields[1]
		case "Threads:":
			s.threads, _ = strconv.Atoi(fields[1])
		case "voluntary_ctxt_switches:", "nonvoluntary_ctxt_switches:":
			v, _ := strconv.ParseUint(fields[1], 10, 64)
			s.ctxSwitches += v
		}
	}
}

// readRSSKB prefers statm resident pages times the page size, falling
// back to VmRSS from status.
func (p *Processes) readRSSKB(pid int) uint64 {
	if data, err := os.ReadFile(filepath.Join(p.procRoot, strconv.Itoa(pid), "statm")); err == nil {
		fields := strings.Fields(string(data))
		if len(fields) >= 2 {
			if resident, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
				return resident * p.pageSize / 1024
			}
		}
	}

	data, err := os.ReadFile(filepath.Join(p.procRoot, strconv.Itoa(pid), "status"))
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "VmRSS:" {
			v, _ := strconv.ParseUint(fields[1], 10, 64)
			return v
		}
	}
	return 0
}

// readCmdline joins the NUL-separated argv of /proc/[pid]/cmdline with
// spaces. Kernel threads have no cmdline and return "".
func (p *Processes) readCmdline(pid int) string {
	data, err := os.ReadFile(filepath.Join(p.procRoot, strconv.Itoa(pid), "cmdline"))
	if err != nil || len(data) == 0 {
		return ""
	}
	for i, c := range data {
		if c == 0 {
			data[i] = ' '
		}
	}
	return strings.TrimRight(string(data), " ")
}

// username resolves a uid to a name, caching lookups. Unknown uids
// render as the uid itself.
func (p *Processes) username(uid string) string {
	if name, ok := p.users[uid]; ok {
		return name
	}
	name := uid
	if u, err := user.LookupId(uid); err == nil {
		name = u.Username
	}
	p.users[uid] = name
	return name
}
