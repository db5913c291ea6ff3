// Package stats implements the process-wide statistics collector
// (spec.md §4.10 C11): per-op, per-execution-layer call counts, element
// counts, staged bytes, and wall time, with atomic updates so an
// out-of-band reader observes a consistent per-field view (spec.md §5).
//
// Grounded on the teacher's lazy-singleton pattern for process-wide
// state (internal/vm's module-level registries), adapted to atomic
// counters per spec.md's concurrency note, with human-readable byte
// figures in the report via github.com/dustin/go-humanize.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Layer identifies which execution layer serviced a call.
type Layer string

const (
	CpuSerial  Layer = "CpuSerial"
	CpuSimd    Layer = "CpuSimd"
	GpuCompute Layer = "GpuCompute"
)

type key struct {
	op    string
	layer Layer
}

// counters holds one op/layer's accumulated figures; every field is
// updated exclusively via atomic ops so concurrent recorders never race
// (spec.md §5: "statistics updates use atomic integer operations").
type counters struct {
	calls    int64
	elements int64
	bytes    int64
	nanos    int64
}

// Stats is the process-wide collector. backendName is guarded by its own
// mutex, matching spec.md §5's "the 'current backend name' is a single
// string updated under a mutex" — distinct from the atomic per-op
// counters.
type Stats struct {
	enabled atomic.Bool

	mu   sync.RWMutex
	rows map[key]*counters

	nameMu      sync.Mutex
	backendName string
}

var (
	instance *Stats
	once     sync.Once
)

// Get returns the lazy process-wide singleton (spec.md §4.10).
func Get() *Stats {
	once.Do(func() {
		instance = New()
		instance.enabled.Store(true)
	})
	return instance
}

// New constructs a standalone collector; most callers want Get().
func New() *Stats {
	return &Stats{rows: make(map[key]*counters)}
}

func (s *Stats) Enable()  { s.enabled.Store(true) }
func (s *Stats) Disable() { s.enabled.Store(false) }
func (s *Stats) Enabled() bool { return s.enabled.Load() }

// Reset zeros every recorded row.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[key]*counters)
}

// SetBackendName records the currently active backend's display name.
func (s *Stats) SetBackendName(name string) {
	s.nameMu.Lock()
	defer s.nameMu.Unlock()
	s.backendName = name
}

func (s *Stats) BackendName() string {
	s.nameMu.Lock()
	defer s.nameMu.Unlock()
	return s.backendName
}

func (s *Stats) row(op string, layer Layer) *counters {
	k := key{op: op, layer: layer}
	s.mu.RLock()
	c, ok := s.rows[k]
	s.mu.RUnlock()
	if ok {
		return c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.rows[k]; ok {
		return c
	}
	c = &counters{}
	s.rows[k] = c
	return c
}

// ElementwiseBytes computes the staged-byte figure for an element-wise op
// with the given operand arity (spec.md §4.10: "elements · 4 · (arity +
// 1)" — the +1 accounts for the output buffer).
func ElementwiseBytes(elements, arity int) int64 {
	return int64(elements) * 4 * int64(arity+1)
}

// ReductionBytes computes the staged-byte figure for a reduction
// (spec.md §4.10: "elements · 4").
func ReductionBytes(elements int) int64 {
	return int64(elements) * 4
}

// Record adds one call's figures to op/layer's running totals. A no-op
// while disabled, so instrumentation overhead vanishes when stats are
// off.
func (s *Stats) Record(op string, layer Layer, elements int, bytes int64, dur time.Duration) {
	if !s.enabled.Load() {
		return
	}
	c := s.row(op, layer)
	atomic.AddInt64(&c.calls, 1)
	atomic.AddInt64(&c.elements, int64(elements))
	atomic.AddInt64(&c.bytes, bytes)
	atomic.AddInt64(&c.nanos, int64(dur))
}

// Row is a read-only snapshot of one op/layer's totals, as returned by
// Snapshot/FormatReport. Multi-field snapshots are not atomic across
// rows (spec.md §5).
type Row struct {
	Op       string
	Layer    Layer
	Calls    int64
	Elements int64
	Bytes    int64
	Seconds  float64
}

// Snapshot returns every recorded row, sorted by op then layer for
// stable report output.
func (s *Stats) Snapshot() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]Row, 0, len(s.rows))
	for k, c := range s.rows {
		rows = append(rows, Row{
			Op:       k.op,
			Layer:    k.layer,
			Calls:    atomic.LoadInt64(&c.calls),
			Elements: atomic.LoadInt64(&c.elements),
			Bytes:    atomic.LoadInt64(&c.bytes),
			Seconds:  time.Duration(atomic.LoadInt64(&c.nanos)).Seconds(),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Op != rows[j].Op {
			return rows[i].Op < rows[j].Op
		}
		return rows[i].Layer < rows[j].Layer
	})
	return rows
}

// FormatReport renders the fixed textual table spec.md §6 describes: one
// line per op with columns op, calls, elements, bytes, seconds, layer.
// Byte counts are rendered human-readable via go-humanize.
func (s *Stats) FormatReport() string {
	rows := s.Snapshot()
	if len(rows) == 0 {
		return "(no statistics recorded)"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-16s %8s %12s %12s %10s %s\n", "op", "calls", "elements", "bytes", "seconds", "layer")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%-16s %8d %12d %12s %10.6f %s\n",
			r.Op, r.Calls, r.Elements, humanize.Bytes(uint64(r.Bytes)), r.Seconds, r.Layer)
	}
	return sb.String()
}
