// Package store implements the bounded in-memory time-series cache at the
// center of the daemon. Series are addressed by selector strings and held
// in fixed-capacity rings; scalar and vector series live in separate
// namespaces keyed by the same selectors. Alongside the series the store
// keeps named snapshots (opaque documents such as the process table) and
// metadata buckets (host facts).
//
// Store operations never fail: appending to an unknown selector creates
// the series, querying one returns an empty result.
//
// Locking is two-tier. Each namespace map has its own RWMutex guarding
// only the selector lookup; each ring carries its own lock guarding the
// samples. A map lock is always released before a ring is touched, so the
// two are never held simultaneously and a slow reader cannot stall
// ingestion into other series.
package store

import (
	"sort"
	"sync"

	"github.com/vigil-sys/vigil/internal/store/ring"
)

// Config fixes the store's retention geometry at construction.
type Config struct {
	// KeepSeconds is the retention window in seconds.
	KeepSeconds int

	// SamplePeriodSec is the expected sampling interval in seconds.
	SamplePeriodSec int
}

// Capacity derives the per-series ring capacity from the retention window:
// max(1, keep_seconds / max(1, sample_period_s)). Retention is therefore by
// sample count; a slow producer keeps old samples longer than KeepSeconds.
func (c Config) Capacity() int {
	period := c.SamplePeriodSec
	if period < 1 {
		period = 1
	}
	capacity := c.KeepSeconds / period
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}

// Store is the in-memory time-series cache.
type Store struct {
	perSeriesCap int

	scalarMu sync.RWMutex
	scalar   map[string]*ring.Buffer[Sample]

	vectorMu sync.RWMutex
	vector   map[string]*ring.Buffer[VectorSample]

	snapMu    sync.RWMutex
	snapshots map[string][]byte

	metaMu   sync.RWMutex
	metadata map[string]map[string]any
}

// New creates a store. The per-series capacity is fixed here and never
// changes afterwards.
func New(cfg Config) *Store {
	return &Store{
		perSeriesCap: cfg.Capacity(),
		scalar:       make(map[string]*ring.Buffer[Sample]),
		vector:       make(map[string]*ring.Buffer[VectorSample]),
		snapshots:    make(map[string][]byte),
		metadata:     make(map[string]map[string]any),
	}
}

// CapacityPerSeries returns the ring capacity shared by every series.
func (s *Store) CapacityPerSeries() int {
	return s.perSeriesCap
}

// =============================================================================
// Scalar namespace
// =============================================================================

// Append adds a scalar sample to a series, creating it on first touch.
func (s *Store) Append(selector string, sample Sample) {
	s.ensureScalar(selector).Push(sample)
}

// Query returns the scalar samples with fromMs <= ts <= toMs for a
// selector, oldest to newest. Unknown selectors yield an empty result.
func (s *Store) Query(selector string, fromMs, toMs int64) []Sample {
	s.scalarMu.RLock()
	rb, ok := s.scalar[selector]
	s.scalarMu.RUnlock()

	if !ok {
		return nil
	}
	return rb.Range(fromMs, toMs)
}

// Count returns the number of retained scalar samples for a selector.
func (s *Store) Count(selector string) int {
	s.scalarMu.RLock()
	rb, ok := s.scalar[selector]
	s.scalarMu.RUnlock()

	if !ok {
		return 0
	}
	return rb.Len()
}

// HasScalar reports whether a scalar series exists for the selector.
func (s *Store) HasScalar(selector string) bool {
	s.scalarMu.RLock()
	defer s.scalarMu.RUnlock()
	_, ok := s.scalar[selector]
	return ok
}

func (s *Store) ensureScalar(selector string) *ring.Buffer[Sample] {
	s.scalarMu.RLock()
	rb, ok := s.scalar[selector]
	s.scalarMu.RUnlock()
	if ok {
		return rb
	}

	s.scalarMu.Lock()
	defer s.scalarMu.Unlock()
	if rb, ok := s.scalar[selector]; ok {
		return rb
	}
	rb = ring.New[Sample](s.perSeriesCap)
	s.scalar[selector] = rb
	return rb
}

// =============================================================================
// Vector namespace
// =============================================================================

// AppendVector adds a vector sample to a series, creating it on first
// touch. The vector namespace is independent of the scalar one: appending
// a vector never creates a scalar series for the same selector.
func (s *Store) AppendVector(selector string, sample VectorSample) {
	s.ensureVector(selector).Push(sample)
}

// QueryVector returns the vector samples with fromMs <= ts <= toMs for a
// selector, oldest to newest. Unknown selectors yield an empty result.
func (s *Store) QueryVector(selector string, fromMs, toMs int64) []VectorSample {
	s.vectorMu.RLock()
	rb, ok := s.vector[selector]
	s.vectorMu.RUnlock()

	if !ok {
		return nil
	}
	return rb.Range(fromMs, toMs)
}

// CountVector returns the number of retained vector samples for a selector.
func (s *Store) CountVector(selector string) int {
	s.vectorMu.RLock()
	rb, ok := s.vector[selector]
	s.vectorMu.RUnlock()

	if !ok {
		return 0
	}
	return rb.Len()
}

// HasVector reports whether a vector series exists for the selector.
func (s *Store) HasVector(selector string) bool {
	s.vectorMu.RLock()
	defer s.vectorMu.RUnlock()
	_, ok := s.vector[selector]
	return ok
}

func (s *Store) ensureVector(selector string) *ring.Buffer[VectorSample] {
	s.vectorMu.RLock()
	rb, ok := s.vector[selector]
	s.vectorMu.RUnlock()
	if ok {
		return rb
	}

	s.vectorMu.Lock()
	defer s.vectorMu.Unlock()
	if rb, ok := s.vector[selector]; ok {
		return rb
	}
	rb = ring.New[VectorSample](s.perSeriesCap)
	s.vector[selector] = rb
	return rb
}

// =============================================================================
// Discovery
// =============================================================================

// ListSeries returns the union of selector keys across both namespaces,
// sorted. A selector present in both appears once.
func (s *Store) ListSeries() []string {
	seen := make(map[string]struct{})

	s.scalarMu.RLock()
	for key := range s.scalar {
		seen[key] = struct{}{}
	}
	s.scalarMu.RUnlock()

	s.vectorMu.RLock()
	for key := range s.vector {
		seen[key] = struct{}{}
	}
	s.vectorMu.RUnlock()

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// Snapshots
// =============================================================================

// PutSnapshot stores a named opaque document, replacing any previous value
// wholesale. The store does not inspect the payload.
func (s *Store) PutSnapshot(name string, payload []byte) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	s.snapshots[name] = payload
}

// GetSnapshot returns the named document. The returned slice is the stored
// value; callers must treat it as read-only.
func (s *Store) GetSnapshot(name string) ([]byte, bool) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	payload, ok := s.snapshots[name]
	return payload, ok
}

// =============================================================================
// Metadata
// =============================================================================

// PutMetadata stores a metadata bucket, replacing any previous document
// under the same key wholesale; fields from the old document do not
// survive.
func (s *Store) PutMetadata(key string, doc map[string]any) {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	s.metadata[key] = doc
}

// GetMetadata returns the metadata bucket for a key.
func (s *Store) GetMetadata(key string) (map[string]any, bool) {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	doc, ok := s.metadata[key]
	return doc, ok
}

// AllMetadata returns every metadata bucket keyed by bucket name.
func (s *Store) AllMetadata() map[string]map[string]any {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()

	out := make(map[string]map[string]any, len(s.metadata))
	for key, doc := range s.metadata {
		out[key] = doc
	}
	return out
}

// =============================================================================
// Statistics
// =============================================================================

// Stats summarizes the store's contents for the status endpoint.
// IngestedSamples counts every append since startup, DroppedSamples the
// appends that evicted an older sample; retained counts never exceed
// series count times capacity.
type Stats struct {
	ScalarSeries      int
	VectorSeries      int
	ScalarSamples     int64
	VectorSamples     int64
	IngestedSamples   int64
	DroppedSamples    int64
	CapacityPerSeries int
}

// TotalSamples returns the number of retained samples across both
// namespaces, counting a vector sample once.
func (st Stats) TotalSamples() int64 {
	return st.ScalarSamples + st.VectorSamples
}

// Stats walks both namespaces and counts retained samples. Ring locks are
// taken one at a time after the map locks are released.
func (s *Store) Stats() Stats {
	st := Stats{CapacityPerSeries: s.perSeriesCap}

	s.scalarMu.RLock()
	scalars := make([]*ring.Buffer[Sample], 0, len(s.scalar))
	for _, rb := range s.scalar {
		scalars = append(scalars, rb)
	}
	s.scalarMu.RUnlock()

	s.vectorMu.RLock()
	vectors := make([]*ring.Buffer[VectorSample], 0, len(s.vector))
	for _, rb := range s.vector {
		vectors = append(vectors, rb)
	}
	s.vectorMu.RUnlock()

	st.ScalarSeries = len(scalars)
	st.VectorSeries = len(vectors)
	for _, rb := range scalars {
		bs := rb.Stats()
		st.ScalarSamples += int64(bs.Count)
		st.IngestedSamples += bs.PushCount
		st.DroppedSamples += bs.DropCount
	}
	for _, rb := range vectors {
		bs := rb.Stats()
		st.VectorSamples += int64(bs.Count)
		st.IngestedSamples += bs.PushCount
		st.DroppedSamples += bs.DropCount
	}
	return st
}
