// Package telemetry provides real-time monitoring and event replay for the
// throttle engine. It captures every probe fired by throttle.Tracer —
// waits, latency samples, utilization recomputations, delay adjustments —
// in a time-based ring buffer that any subscriber can tail live or query
// after the fact.
package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hydraide/iothrottle/app/core/throttle"
)

// Probe names one throttle.Tracer callback. Kept as a string rather than
// an enum so new probes never require a bus schema change.
type Probe string

const (
	ProbeWait        Probe = "wait"
	ProbeLatency     Probe = "latency"
	ProbeIOCnt       Probe = "io_cnt"
	ProbeUtilization Probe = "utilization"
	ProbeThrottle    Probe = "throttle"
	ProbeSysAvgLat   Probe = "sys_avg_lat"
	ProbeCalcWtAvg   Probe = "calc_wt_avg"
	ProbeStats       Probe = "stats"
)

// Event represents a single probe firing from the throttle engine.
// Only the fields relevant to Probe are populated; the rest are zero.
type Event struct {
	ID        string
	Timestamp time.Time
	Probe     Probe
	TenantID  uint64

	Op IOOpLabel // OnWait

	WaitUS     uint32 // OnWait
	LatencyUS  int64  // OnLatency, OnSysAvgLat and OnStats (read slot)
	WriteLatUS int64  // OnSysAvgLat and OnStats (write slot)

	ReadOps        int64 // OnIOCnt, OnUtilization
	WriteOps       int64 // OnIOCnt, OnUtilization
	LogicalWrites  int64 // OnIOCnt, OnUtilization
	Utilization    int64 // OnUtilization
	ActiveTenants  int   // OnStats (system-wide)
	AvgUtilization int64 // OnStats (system-wide)

	OldDelayUS uint32 // OnThrottle
	NewDelayUS uint32 // OnThrottle

	HistAvg    int64 // OnCalcWtAvg
	CycleTotal int64 // OnCalcWtAvg
	CycleCount int64 // OnCalcWtAvg
}

// IOOpLabel is the display string of a throttle.IOOp (its String()
// value), carried on wait events. SubscribeFilter and HistoryFilter do
// not filter on it.
type IOOpLabel string

// Subscriber is a channel that receives telemetry events.
type Subscriber chan Event

// Bus defines the interface for the telemetry collector.
type Bus interface {
	// Record adds a new event to the buffer and fans it out to matching
	// subscribers.
	Record(event Event)

	// Subscribe registers a new subscriber for live events. Returns the
	// channel and an unsubscribe function.
	Subscribe(filter SubscribeFilter) (Subscriber, func())

	// History retrieves buffered events within a time range.
	History(from, to time.Time, filter HistoryFilter) []Event

	// Stats returns aggregated statistics for the given time window.
	Stats(windowMinutes int) Stats

	// Close shuts down the bus and all subscriber channels.
	Close()
}

// SubscribeFilter filters a live subscription.
type SubscribeFilter struct {
	Probes   []Probe // empty = all probes
	TenantID uint64  // matched exactly unless AnyTenant is set; 0 is the global tenant
	AnyTenant bool   // if true, TenantID is ignored
}

// HistoryFilter filters a history query.
type HistoryFilter struct {
	Probes   []Probe
	TenantID uint64
	AnyTenant bool
	Limit    int
}

// Stats contains aggregated telemetry statistics for a time window.
type Stats struct {
	TotalEvents    int64
	ThrottleEvents int64
	ActiveTenants  int
	LastAvgUtil    int64
	TopTenants     []TenantStats
}

// TenantStats summarizes one tenant's activity within a window.
type TenantStats struct {
	TenantID    uint64
	EventCount  int64
	LastDelayUS uint32
}

type bus struct {
	mu          sync.RWMutex
	events      []Event
	head        int
	count       int
	capacity    int
	retention   time.Duration
	subscribers map[string]subInfo
	closed      bool
}

type subInfo struct {
	ch     Subscriber
	filter SubscribeFilter
}

// Config holds configuration for the telemetry bus.
type Config struct {
	// Capacity is the maximum number of events retained (default: 50000).
	Capacity int
	// Retention is how long history queries consider an event (default: 30m).
	Retention time.Duration
}

// DefaultConfig returns the default telemetry configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:  50000,
		Retention: 30 * time.Minute,
	}
}

// New creates a telemetry bus with the given configuration.
func New(cfg Config) Bus {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultConfig().Retention
	}

	return &bus{
		events:      make([]Event, cfg.Capacity),
		capacity:    cfg.Capacity,
		retention:   cfg.Retention,
		subscribers: make(map[string]subInfo),
	}
}

func (b *bus) Record(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.events[b.head] = event
	b.head = (b.head + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	}

	for _, sub := range b.subscribers {
		if matchesSubscribe(event, sub.filter) {
			select {
			case sub.ch <- event:
			default:
				// Slow subscriber; drop rather than block the engine.
			}
		}
	}
}

func (b *bus) Subscribe(filter SubscribeFilter) (Subscriber, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(Subscriber)
		close(ch)
		return ch, func() {}
	}

	id := uuid.New().String()
	ch := make(Subscriber, 256)
	b.subscribers[id] = subInfo{ch: ch, filter: filter}

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			close(sub.ch)
			delete(b.subscribers, id)
		}
	}
	return ch, unsubscribe
}

func (b *bus) History(from, to time.Time, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = b.capacity
	}

	var result []Event
	for i := 0; i < b.count && len(result) < limit; i++ {
		idx := (b.head - b.count + i + b.capacity) % b.capacity
		event := b.events[idx]

		if event.Timestamp.Before(from) || event.Timestamp.After(to) {
			continue
		}
		if time.Since(event.Timestamp) > b.retention {
			continue
		}
		if len(filter.Probes) > 0 && !containsProbe(filter.Probes, event.Probe) {
			continue
		}
		if !filter.AnyTenant && filter.TenantID != event.TenantID {
			continue
		}

		result = append(result, event)
	}
	return result
}

func (b *bus) Stats(windowMinutes int) Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cutoff := time.Now().Add(-time.Duration(windowMinutes) * time.Minute)

	var stats Stats
	tenantCounts := make(map[uint64]*TenantStats)

	for i := 0; i < b.count; i++ {
		idx := (b.head - b.count + i + b.capacity) % b.capacity
		event := b.events[idx]
		if event.Timestamp.Before(cutoff) {
			continue
		}

		stats.TotalEvents++
		if event.Probe == ProbeThrottle {
			stats.ThrottleEvents++
		}
		if event.Probe == ProbeStats {
			stats.ActiveTenants = event.ActiveTenants
			stats.LastAvgUtil = event.AvgUtilization
		}

		if ts, ok := tenantCounts[event.TenantID]; ok {
			ts.EventCount++
			if event.Probe == ProbeThrottle {
				ts.LastDelayUS = event.NewDelayUS
			}
		} else {
			ts := &TenantStats{TenantID: event.TenantID, EventCount: 1}
			if event.Probe == ProbeThrottle {
				ts.LastDelayUS = event.NewDelayUS
			}
			tenantCounts[event.TenantID] = ts
		}
	}

	stats.TopTenants = topNTenants(tenantCounts, 5)
	return stats
}

func (b *bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}

func matchesSubscribe(event Event, filter SubscribeFilter) bool {
	if len(filter.Probes) > 0 && !containsProbe(filter.Probes, event.Probe) {
		return false
	}
	if !filter.AnyTenant && filter.TenantID != event.TenantID {
		return false
	}
	return true
}

func containsProbe(probes []Probe, p Probe) bool {
	for _, candidate := range probes {
		if candidate == p {
			return true
		}
	}
	return false
}

func topNTenants(m map[uint64]*TenantStats, n int) []TenantStats {
	result := make([]TenantStats, 0, len(m))
	for _, v := range m {
		result = append(result, *v)
	}
	for i := 0; i < len(result) && i < n; i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].EventCount > result[i].EventCount {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	if len(result) > n {
		result = result[:n]
	}
	return result
}

// TracerSink adapts a Bus into a throttle.Tracer, so the engine's probes
// land directly on the telemetry bus without the engine knowing it's
// being observed.
type TracerSink struct {
	Bus Bus
}

var _ throttle.Tracer = TracerSink{}

func (s TracerSink) Wait(tenantID uint64, op throttle.IOOp, waitUS uint32) {
	s.Bus.Record(Event{Probe: ProbeWait, TenantID: tenantID, Op: IOOpLabel(op.String()), WaitUS: waitUS})
}

func (s TracerSink) Latency(tenantID uint64, latencyUS int64) {
	s.Bus.Record(Event{Probe: ProbeLatency, TenantID: tenantID, LatencyUS: latencyUS})
}

func (s TracerSink) IOCnt(tenantID uint64, readOps, writeOps, logicalWrites int64) {
	s.Bus.Record(Event{
		Probe: ProbeIOCnt, TenantID: tenantID,
		ReadOps: readOps, WriteOps: writeOps, LogicalWrites: logicalWrites,
	})
}

func (s TracerSink) Utilization(tenantID uint64, readOps, writeOps, logicalWrites uint64, util int64) {
	s.Bus.Record(Event{
		Probe: ProbeUtilization, TenantID: tenantID,
		ReadOps: int64(readOps), WriteOps: int64(writeOps), LogicalWrites: int64(logicalWrites),
		Utilization: util,
	})
}

func (s TracerSink) Throttle(tenantID uint64, oldDelayUS, newDelayUS uint32) {
	s.Bus.Record(Event{Probe: ProbeThrottle, TenantID: tenantID, OldDelayUS: oldDelayUS, NewDelayUS: newDelayUS})
}

func (s TracerSink) SysAvgLat(avgRLatUS, avgWLatUS int64) {
	s.Bus.Record(Event{Probe: ProbeSysAvgLat, LatencyUS: avgRLatUS, WriteLatUS: avgWLatUS})
}

func (s TracerSink) CalcWtAvg(histAvg, cycleTotal, cycleCount int64) {
	s.Bus.Record(Event{Probe: ProbeCalcWtAvg, HistAvg: histAvg, CycleTotal: cycleTotal, CycleCount: cycleCount})
}

func (s TracerSink) Stats(avgRLat, avgWLat int64, active int, avgUtil int64) {
	s.Bus.Record(Event{
		Probe: ProbeStats, LatencyUS: avgRLat, WriteLatUS: avgWLat,
		ActiveTenants: active, AvgUtilization: avgUtil,
	})
}
