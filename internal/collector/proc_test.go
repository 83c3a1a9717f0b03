package collector

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// procFixture builds a fake proc tree in a temp dir.
type procFixture struct {
	t    *testing.T
	root string
}

func newProcFixture(t *testing.T) *procFixture {
	t.Helper()
	return &procFixture{t: t, root: t.TempDir()}
}

func (f *procFixture) collector() *Processes {
	return &Processes{
		procRoot: f.root,
		hz:       userHZ,
		pageSize: 4096,
		users:    make(map[string]string),
	}
}

func (f *procFixture) write(rel, content string) {
	f.t.Helper()
	path := filepath.Join(f.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		f.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		f.t.Fatal(err)
	}
}

func (f *procFixture) setTotals(totalJiffies, memTotalKB uint64) {
	f.t.Helper()
	f.write("stat", fmt.Sprintf("cpu  %d 0 0 0 0 0 0 0 0 0\n", totalJiffies))
	if memTotalKB > 0 {
		f.write("meminfo", fmt.Sprintf("MemTotal:       %d kB\n", memTotalKB))
	} else {
		f.write("meminfo", "")
	}
}

type fakeProc struct {
	pid           int
	comm          string
	state         string
	ppid          int
	utime, stime  uint64
	priority      int
	nice          int
	uid           string
	threads       int
	volCtx        uint64
	nonvolCtx     uint64
	residentPages uint64
	cmdline       string
}

func (f *procFixture) writeProc(p fakeProc) {
	f.t.Helper()
	dir := strconv.Itoa(p.pid)

	stat := fmt.Sprintf("%d (%s) %s %d 0 0 0 0 0 0 0 0 0 %d %d 0 0 %d %d 1 0 4242\n",
		p.pid, p.comm, p.state, p.ppid, p.utime, p.stime, p.priority, p.nice)
	f.write(filepath.Join(dir, "stat"), stat)

	status := fmt.Sprintf("Name:\t%s\nUid:\t%s\t%s\t%s\t%s\nThreads:\t%d\nvoluntary_ctxt_switches:\t%d\nnonvoluntary_ctxt_switches:\t%d\n",
		p.comm, p.uid, p.uid, p.uid, p.uid, p.threads, p.volCtx, p.nonvolCtx)
	f.write(filepath.Join(dir, "status"), status)

	f.write(filepath.Join(dir, "statm"), fmt.Sprintf("%d %d 100 10 0 50 0\n", p.residentPages*2, p.residentPages))
	f.write(filepath.Join(dir, "cmdline"), p.cmdline)
}

func TestProcesses_TopComputesDeltas(t *testing.T) {
	f := newProcFixture(t)
	p := f.collector()
	// Resolution goes through the host user database; pin the cache.
	p.users["0"] = "root"

	f.setTotals(1000, 1024000)
	f.writeProc(fakeProc{
		pid: 100, comm: "busyloop", state: "R", ppid: 1,
		utime: 100, stime: 100, priority: 20, uid: "0", threads: 4,
		volCtx: 100, nonvolCtx: 50, residentPages: 1280,
		cmdline: "busyloop\x00--fast\x00",
	})
	f.writeProc(fakeProc{
		pid: 200, comm: "kworker/0:1", state: "S", ppid: 2,
		utime: 50, priority: 20, uid: "0", threads: 1, volCtx: 10,
	})
	// Entries that are not process dirs are skipped.
	f.write("irq/spurious", "count 0\n")
	f.write("999/cmdline", "orphan\x00")

	rows, err := p.Top(10)
	if err != nil {
		t.Fatalf("seed error: %v", err)
	}
	if rows != nil {
		t.Fatalf("first call = %v, want nil", rows)
	}

	// 1000 jiffies elapse (10s at 100 Hz). busyloop burns 500 of them,
	// kworker 10, and pid 300 appears with no baseline.
	f.setTotals(2000, 1024000)
	f.writeProc(fakeProc{
		pid: 100, comm: "busyloop", state: "R", ppid: 1,
		utime: 600, stime: 100, priority: 20, uid: "0", threads: 4,
		volCtx: 150, nonvolCtx: 100, residentPages: 1280,
		cmdline: "busyloop\x00--fast\x00",
	})
	f.writeProc(fakeProc{
		pid: 200, comm: "kworker/0:1", state: "S", ppid: 2,
		utime: 60, priority: 20, uid: "0", threads: 1, volCtx: 10,
	})
	f.writeProc(fakeProc{
		pid: 300, comm: "newcomer", state: "S", ppid: 1,
		utime: 30, stime: 10, priority: 20, uid: "0", threads: 2,
		volCtx: 5, residentPages: 256, cmdline: "newcomer\x00",
	})

	rows, err = p.Top(10)
	if err != nil {
		t.Fatalf("Top error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3: %v", len(rows), rows)
	}

	r0 := rows[0]
	if r0.PID != 100 {
		t.Fatalf("rows[0].PID = %d, want 100", r0.PID)
	}
	if r0.CPUPct != 50.0 {
		t.Errorf("CPUPct = %f, want 50.0", r0.CPUPct)
	}
	if r0.CPUTimeSec != 7.0 {
		t.Errorf("CPUTimeSec = %f, want 7.0", r0.CPUTimeSec)
	}
	if r0.WakeupsPerSec != 10.0 {
		t.Errorf("WakeupsPerSec = %f, want 10.0 (context switch total 150 -> 250)", r0.WakeupsPerSec)
	}
	if r0.Name != "busyloop --fast" {
		t.Errorf("Name = %q, want %q", r0.Name, "busyloop --fast")
	}
	if r0.User != "root" {
		t.Errorf("User = %q, want root", r0.User)
	}
	if r0.State != "R" || r0.PPID != 1 || r0.Threads != 4 {
		t.Errorf("state/ppid/threads = %q/%d/%d, want R/1/4", r0.State, r0.PPID, r0.Threads)
	}
	if r0.Priority != 20 || r0.Nice != 0 {
		t.Errorf("priority/nice = %d/%d, want 20/0", r0.Priority, r0.Nice)
	}
	if r0.RSSMB != 5.0 {
		t.Errorf("RSSMB = %f, want 5.0 (1280 pages at 4096 bytes)", r0.RSSMB)
	}
	if r0.MemPct != 0.5 {
		t.Errorf("MemPct = %f, want 0.5", r0.MemPct)
	}

	r1 := rows[1]
	if r1.PID != 200 {
		t.Fatalf("rows[1].PID = %d, want 200", r1.PID)
	}
	if math.Abs(r1.CPUPct-1.0) > 1e-9 {
		t.Errorf("CPUPct = %f, want 1.0", r1.CPUPct)
	}
	if r1.Name != "[kworker/0:1]" {
		t.Errorf("Name = %q, want comm in brackets for an empty cmdline", r1.Name)
	}

	r2 := rows[2]
	if r2.PID != 300 {
		t.Fatalf("rows[2].PID = %d, want 300", r2.PID)
	}
	if r2.CPUPct != 0 || r2.WakeupsPerSec != 0 {
		t.Errorf("new pid cpu/wakeups = %f/%f, want 0/0", r2.CPUPct, r2.WakeupsPerSec)
	}
	if r2.CPUTimeSec != 0.4 {
		t.Errorf("new pid CPUTimeSec = %f, want 0.4", r2.CPUTimeSec)
	}
}

func TestProcesses_TopLimit(t *testing.T) {
	f := newProcFixture(t)
	p := f.collector()

	f.setTotals(1000, 0)
	for pid, utime := range map[int]uint64{1: 10, 2: 20, 3: 30} {
		f.writeProc(fakeProc{pid: pid, comm: "w", state: "S", ppid: 1, utime: utime, uid: "0", threads: 1})
	}
	if _, err := p.Top(0); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	// Deltas: pid 1 +30, pid 2 +20, pid 3 +10 ticks.
	f.setTotals(1100, 0)
	for pid := 1; pid <= 3; pid++ {
		f.writeProc(fakeProc{pid: pid, comm: "w", state: "S", ppid: 1, utime: 40, uid: "0", threads: 1})
	}

	rows, err := p.Top(2)
	if err != nil {
		t.Fatalf("Top error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].PID != 1 || rows[1].PID != 2 {
		t.Errorf("pids = %d,%d, want 1,2 (highest CPU first)", rows[0].PID, rows[1].PID)
	}
	if rows[0].MemPct != 0 {
		t.Errorf("MemPct = %f, want 0 when MemTotal is unknown", rows[0].MemPct)
	}
}

func TestProcesses_StatCommWithParens(t *testing.T) {
	f := newProcFixture(t)
	p := f.collector()

	f.write("400/stat", "400 (tmux: server (1)) S 1 0 0 0 0 0 0 0 0 0 250 50 0 0 20 5 1 0 4242\n")

	s, ok := p.readStat(400)
	if !ok {
		t.Fatal("readStat failed")
	}
	if s.comm != "tmux: server (1)" {
		t.Errorf("comm = %q, want %q", s.comm, "tmux: server (1)")
	}
	if s.state != 'S' || s.ppid != 1 {
		t.Errorf("state/ppid = %c/%d, want S/1", s.state, s.ppid)
	}
	if s.utimeTicks != 250 || s.stimeTicks != 50 {
		t.Errorf("utime/stime = %d/%d, want 250/50", s.utimeTicks, s.stimeTicks)
	}
	if s.priority != 20 || s.nice != 5 {
		t.Errorf("priority/nice = %d/%d, want 20/5", s.priority, s.nice)
	}
}

func TestProcesses_RSSFallsBackToStatus(t *testing.T) {
	f := newProcFixture(t)
	p := f.collector()

	// No statm file; VmRSS from status is already in kB.
	f.write("500/status", "Name:\tx\nUid:\t0\t0\t0\t0\nVmRSS:\t2048 kB\nThreads:\t1\n")

	if got := p.readRSSKB(500); got != 2048 {
		t.Errorf("readRSSKB = %d, want 2048", got)
	}
}

func TestProcesses_UsernameFallback(t *testing.T) {
	f := newProcFixture(t)
	p := f.collector()

	p.users["42"] = "alice"
	if got := p.username("42"); got != "alice" {
		t.Errorf("cached lookup = %q, want alice", got)
	}

	// An unresolvable uid renders as itself.
	if got := p.username("999999999"); got != "999999999" {
		t.Errorf("fallback = %q, want the uid string", got)
	}
}
