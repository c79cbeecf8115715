package throttle

import (
	"sync"
	"sync/atomic"
)

// TenantTotals holds the atomically-updated observability counters a
// tenant accumulates over its lifetime. They are not read by the
// control loop; they exist purely so an operator can see what a
// tenant has actually moved through the pipeline.
type TenantTotals struct {
	LogicalReadOps     atomic.Uint64
	LogicalReadBytes   atomic.Uint64
	LogicalWriteOps    atomic.Uint64
	LogicalWriteBytes  atomic.Uint64
	PhysicalReadOps    atomic.Uint64
	PhysicalReadBytes  atomic.Uint64
	PhysicalWriteOps   atomic.Uint64
	PhysicalWriteBytes atomic.Uint64
}

// TenantState is the per-tenant record the throttle reads and writes.
// It is owned by the tenant registry (out of scope); the engine only
// ever touches one through a Registry-provided reference.
type TenantState struct {
	ID uint64

	// mu guards the three decaying counters and IOUtil — exactly the
	// "io_lock" of §3. IODelay is deliberately excluded: it is read
	// without this lock on the throttle fast path (§5), so it is
	// stored in an atomic word instead of a plain field. That choice
	// is the Go-safe equivalent of the spec's tolerated torn read: the
	// race the spec describes (an in-flight update landing between a
	// read and its use) is preserved, but a literal unsynchronized
	// word read would be undefined behavior in Go and flagged by the
	// race detector, which a real torn read on most architectures is
	// not.
	mu sync.Mutex

	rdOps  DecayingCounter
	wrOps  DecayingCounter
	lwrOps DecayingCounter

	ioUtil int64

	ioDelay atomic.Uint32

	Totals TenantTotals
}

// NewTenantState returns a zeroed tenant record for id, as created by
// the registry when a tenant comes into existence.
func NewTenantState(id uint64) *TenantState {
	return &TenantState{ID: id}
}

// IODelay returns the tenant's current per-op delay in microseconds.
func (t *TenantState) IODelay() uint32 {
	return t.ioDelay.Load()
}

// IOUtil returns the tenant's last computed utilization scalar.
func (t *TenantState) IOUtil() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ioUtil
}

// recordLogicalWrite feeds the logical-write counter under the tenant
// lock. Latency is always zero here: no physical work has happened
// yet for a logical write, only the bookkeeping of having seen one.
func (t *TenantState) recordLogicalWrite(now int64) {
	t.mu.Lock()
	t.lwrOps.Record(now)
	t.mu.Unlock()
}

// recordPhysical feeds the read or write counter for a completed
// physical op under the tenant lock, and samples the matching system
// latency aggregator at the same time — by design, not under any lock
// of the aggregator's own (§5, §9 open question).
func (t *TenantState) recordPhysical(now int64, op IOOp, latencyUS int64, rdLat, wrLat *LatencyAggregator) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch op {
	case OpRead:
		t.rdOps.Record(now)
		rdLat.Sample(now, latencyUS)
	case OpWrite:
		t.wrOps.Record(now)
		wrLat.Sample(now, latencyUS)
	}
}

// computeUtilization estimates the tenant's read/write/logical-write
// rates under its lock, derives io_util from them and the supplied
// system latency averages, and stores the result. It returns the new
// utilization and whether the tenant counted as active this round.
func (t *TenantState) computeUtilization(now, avgRLat, avgWLat int64, tr Tracer) (util int64, active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rOps := t.rdOps.Estimate(now)
	wOps := t.wrOps.Estimate(now)
	lwOps := t.lwrOps.Estimate(now)

	tr.IOCnt(t.ID, rOps, wOps, lwOps)

	if rOps == 0 && wOps == 0 && lwOps == 0 {
		t.ioUtil = 0
		return 0, false
	}

	// Scaled by 1000 so the arithmetic stays integral; logical writes
	// are weighted by the write-latency estimate, since they haven't
	// incurred their own physical latency yet.
	util = 1000 * (rOps*avgRLat + wOps*avgWLat + lwOps*avgWLat)
	t.ioUtil = util

	tr.Utilization(t.ID, uint64(rOps), uint64(wOps), uint64(lwOps), util)

	return util, util > 0
}
