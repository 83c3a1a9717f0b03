// Package sampler drives the collectors on a fixed period and feeds
// their readings into the store.
package sampler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vigil-sys/vigil/config"
	"github.com/vigil-sys/vigil/internal/collector"
	"github.com/vigil-sys/vigil/internal/constants"
	"github.com/vigil-sys/vigil/internal/logging"
	"github.com/vigil-sys/vigil/internal/metrics"
	"github.com/vigil-sys/vigil/internal/store"
)

var log = logging.Component("sampler")

// Config holds the sampler settings.
type Config struct {
	// Period is the interval between collection passes.
	Period time.Duration

	// HostLabel is attached to every series the sampler writes.
	HostLabel string

	// ProcessLimit caps the rows in the process table snapshot.
	ProcessLimit int

	// Disabled names collectors to skip. Known names: cpu, memory,
	// disk, net, processes.
	Disabled []string
}

// Sampler owns the collection loop.
type Sampler struct {
	cfg     Config
	store   *store.Store
	enabled map[string]bool

	// Collector entry points, swappable in tests.
	cpuPercentages func() (float64, []float64, error)
	memBytes       func() (collector.MemBytes, error)
	diskRates      func() ([]collector.DeviceIO, error)
	netRates       func() ([]collector.InterfaceIO, error)
	topProcesses   func(limit int) ([]collector.ProcessRow, error)
	systemInfo     func() map[string]any

	now func() time.Time

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a sampler over the live /proc collectors. Zero config
// fields fall back to the package defaults.
func New(cfg Config, st *store.Store) *Sampler {
	if cfg.Period <= 0 {
		cfg.Period = config.DefaultSamplePeriodSec * time.Second
	}
	if cfg.ProcessLimit <= 0 {
		cfg.ProcessLimit = config.DefaultProcessLimit
	}
	if cfg.HostLabel == "" {
		cfg.HostLabel = "localhost"
	}

	enabled := make(map[string]bool, len(constants.KnownCollectors))
	for _, name := range constants.KnownCollectors {
		enabled[name] = true
	}
	for _, name := range cfg.Disabled {
		enabled[name] = false
	}

	cpu := collector.NewCPU()
	mem := collector.NewMemory()
	disk := collector.NewDisk()
	net := collector.NewNet()
	proc := collector.NewProcesses()

	return &Sampler{
		cfg:     cfg,
		store:   st,
		enabled: enabled,

		cpuPercentages: cpu.Percentages,
		memBytes:       mem.Bytes,
		diskRates:      disk.Rates,
		netRates:       net.Rates,
		topProcesses:   proc.Top,
		systemInfo:     func() map[string]any { return collector.SystemInfo(mem) },

		now: time.Now,
	}
}

// Start stores the host metadata and launches the loop.
func (s *Sampler) Start() error {
	if s.running.Load() {
		return fmt.Errorf("sampler already running")
	}
	s.running.Store(true)

	// Host facts do not change while the daemon runs.
	s.store.PutMetadata(constants.MetadataSystem, s.systemInfo())

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	log.Info("sampler started",
		"period", s.cfg.Period,
		"host", s.cfg.HostLabel,
		"process_limit", s.cfg.ProcessLimit)
	return nil
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Sampler) Stop() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)

	s.cancel()
	s.wg.Wait()
	log.Info("sampler stopped")
}

// IsRunning reports whether the loop is active.
func (s *Sampler) IsRunning() bool {
	return s.running.Load()
}

func (s *Sampler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()

	// Rate collectors need a baseline reading; run the first pass
	// immediately rather than one period in.
	s.tick()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick runs one collection pass. A failing collector is logged and
// skipped; it must not take down the pass for the others.
func (s *Sampler) tick() {
	ts := s.now().UnixMilli()
	host := s.cfg.HostLabel

	if s.enabled[constants.CollectorCPU] {
		s.collectCPU(ts, host)
	}
	if s.enabled[constants.CollectorMemory] {
		s.collectMemory(ts, host)
	}
	if s.enabled[constants.CollectorDisk] {
		s.collectDisk(ts, host)
	}
	if s.enabled[constants.CollectorNet] {
		s.collectNet(ts, host)
	}
	if s.enabled[constants.CollectorProcesses] {
		s.collectProcesses()
	}
}

func (s *Sampler) collectCPU(ts int64, host string) {
	total, cores, err := s.cpuPercentages()
	if err != nil {
		log.Warn("cpu collection failed", "error", err)
		return
	}
	labels := map[string]string{constants.LabelHost: host}
	s.store.Append(metrics.Format("cpu.total_pct", labels),
		store.Sample{TimestampMs: ts, Value: total})
	s.store.AppendVector(metrics.Format("cpu.core_pct", labels),
		store.VectorSample{TimestampMs: ts, Values: cores})
}

func (s *Sampler) collectMemory(ts int64, host string) {
	mb, err := s.memBytes()
	if err != nil {
		log.Warn("memory collection failed", "error", err)
		return
	}
	labels := map[string]string{constants.LabelHost: host}
	s.store.Append(metrics.Format("mem.used", labels),
		store.Sample{TimestampMs: ts, Value: float64(mb.UsedBytes)})
	s.store.Append(metrics.Format("mem.free", labels),
		store.Sample{TimestampMs: ts, Value: float64(mb.FreeBytes)})
}

func (s *Sampler) collectDisk(ts int64, host string) {
	rates, err := s.diskRates()
	if err != nil {
		log.Warn("disk collection failed", "error", err)
		return
	}
	for _, io := range rates {
		labels := map[string]string{constants.LabelHost: host, constants.LabelDev: io.Device}
		s.store.Append(metrics.Format("disk.read", labels),
			store.Sample{TimestampMs: ts, Value: io.ReadBytesPerSec})
		s.store.Append(metrics.Format("disk.write", labels),
			store.Sample{TimestampMs: ts, Value: io.WriteBytesPerSec})
	}
}

func (s *Sampler) collectNet(ts int64, host string) {
	rates, err := s.netRates()
	if err != nil {
		log.Warn("net collection failed", "error", err)
		return
	}
	for _, io := range rates {
		labels := map[string]string{constants.LabelHost: host, constants.LabelIface: io.Interface}
		s.store.Append(metrics.Format("net.rx", labels),
			store.Sample{TimestampMs: ts, Value: io.RxBytesPerSec})
		s.store.Append(metrics.Format("net.tx", labels),
			store.Sample{TimestampMs: ts, Value: io.TxBytesPerSec})
	}
}

func (s *Sampler) collectProcesses() {
	rows, err := s.topProcesses(s.cfg.ProcessLimit)
	if err != nil {
		log.Warn("process collection failed", "error", err)
		return
	}
	if rows == nil {
		// Baseline pass; the table starts on the next one.
		return
	}

	data, err := json.Marshal(rows)
	if err != nil {
		log.Warn("process table encoding failed", "error", err)
		return
	}
	s.store.PutSnapshot(constants.SnapshotProcesses, data)
}
