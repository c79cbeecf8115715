package throttle

import "sync/atomic"

// Tunables are the process-wide knobs of §3/§6. They are writable at
// any time from any goroutine and read without synchronization on the
// throttle fast path, so every field is an atomic.
type Tunables struct {
	delayEnable  atomic.Bool
	delayStep    atomic.Uint32
	delayCeiling atomic.Uint32
}

// NewTunables returns the default tunables: throttling enabled, a 5us
// step, and a 100us ceiling.
func NewTunables() *Tunables {
	t := &Tunables{}
	t.delayEnable.Store(true)
	t.delayStep.Store(defaultDelayStep)
	t.delayCeiling.Store(defaultDelayCeiling)
	return t
}

func (t *Tunables) Enabled() bool       { return t.delayEnable.Load() }
func (t *Tunables) SetEnabled(v bool)   { t.delayEnable.Store(v) }
func (t *Tunables) Step() uint32        { return t.delayStep.Load() }
func (t *Tunables) SetStep(v uint32)    { t.delayStep.Store(v) }
func (t *Tunables) Ceiling() uint32     { return t.delayCeiling.Load() }
func (t *Tunables) SetCeiling(v uint32) { t.delayCeiling.Store(v) }

// Engine is the process-wide throttle context: the two system latency
// aggregators, the last re-evaluation timestamp, and the tunables, all
// bound to a host-provided clock, sleeper, registry, and tracer. §9
// asks that global mutable state be modeled as a single context object
// passed to each entry point rather than hidden package globals —
// Engine is that object.
type Engine struct {
	Tunables *Tunables

	clock    Clock
	sleeper  Sleeper
	registry Registry
	tracer   Tracer

	rdLat LatencyAggregator
	wrLat LatencyAggregator

	lastChecked atomic.Int64

	// lastAvgRLat/lastAvgWLat/lastActiveTenants/lastAvgUtil cache the
	// most recent reevaluate() round's system-wide figures, so callers
	// outside the hot path (the CLI's snapshot recorder, an /observe
	// query) can read them without re-deriving anything or taking a
	// lock reevaluate itself doesn't hold.
	lastAvgRLat       atomic.Int64
	lastAvgWLat       atomic.Int64
	lastActiveTenants atomic.Int32
	lastAvgUtil       atomic.Int64
}

// LastStats returns the system-wide read/write latency averages,
// active tenant count, and average utilization computed by the most
// recent re-evaluation round. Before the first round, all values are
// zero.
func (e *Engine) LastStats() (avgRLatUS, avgWLatUS int64, activeTenants int, avgUtil int64) {
	return e.lastAvgRLat.Load(), e.lastAvgWLat.Load(), int(e.lastActiveTenants.Load()), e.lastAvgUtil.Load()
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithTracer overrides the default NoopTracer.
func WithTracer(tr Tracer) Option {
	return func(e *Engine) { e.tracer = tr }
}

// WithSleeper overrides the default RealSleeper.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) { e.sleeper = s }
}

// NewEngine builds an Engine bound to the given clock and registry,
// the only two collaborators with no safe stdlib default.
func NewEngine(clock Clock, registry Registry, opts ...Option) *Engine {
	e := &Engine{
		Tunables: NewTunables(),
		clock:    clock,
		registry: registry,
		sleeper:  RealSleeper{},
		tracer:   NoopTracer{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnZioInit stamps the submitting tenant's ID onto a physical I/O so
// that OnPhysicalDone — possibly run on an unrelated worker — can
// still attribute the latency correctly.
func (e *Engine) OnZioInit(z *Zio, tenantID uint64) {
	z.ZoneID = tenantID
}

// OnLogicalOp is called by the upper storage layer for a logical read
// or write. It updates tenant counters and totals, and — if enough
// time has passed since the last re-evaluation — recomputes every
// tenant's delay before sleeping for this tenant's current delay.
//
// Write ops are double counted by design: a logical write lands here
// once (e.g. as it enters a transaction group), and its eventual
// physical flush lands again in OnPhysicalDone, often attributed to a
// different tenant or the global tenant entirely if the flush is
// performed by a shared background worker. This mirrors the original
// zone throttle's accounting and is preserved rather than "fixed",
// since the resulting over-count is part of how heavy writers get
// pushed toward the average.
func (e *Engine) OnLogicalOp(tenantID uint64, op IOOp, size uint64) {
	now := e.clock.NowUS()

	tenant, ok := e.registry.Find(tenantID)
	if !ok {
		return
	}
	defer e.registry.Release(tenant)

	switch op {
	case OpLogicalWrite:
		tenant.recordLogicalWrite(now)
		tenant.Totals.LogicalWriteOps.Add(1)
		tenant.Totals.LogicalWriteBytes.Add(size)
	default:
		// Logical reads are tracked via the physical-read path in
		// OnPhysicalDone; only the observability totals are bumped
		// here. Whether this asymmetry was intentional in the
		// original or an oversight is unclear (§9); the behavior is
		// preserved either way.
		tenant.Totals.LogicalReadOps.Add(1)
		tenant.Totals.LogicalReadBytes.Add(size)
	}

	if !e.Tunables.Enabled() {
		return
	}

	if now-e.lastChecked.Load() > RecheckIntervalUS {
		e.lastChecked.Store(now)
		e.reevaluate(now)
	}

	if wait := tenant.IODelay(); wait > 0 {
		e.tracer.Wait(tenantID, op, wait)
		e.sleeper.SleepUS(wait)
	}
}

// OnPhysicalStart stamps the issue time on a Zio as it's handed to the
// device. No-op when throttling is disabled, mirroring the original's
// early return.
func (e *Engine) OnPhysicalStart(z *Zio) {
	if !e.Tunables.Enabled() {
		return
	}
	z.Start = e.clock.NowUS()
}

// OnPhysicalDone is called after the storage device completes a
// physical I/O. It attributes the latency back to the tenant stamped
// at init time, updates that tenant's counters and the matching
// system latency aggregator, and bumps the physical op/byte totals.
func (e *Engine) OnPhysicalDone(z *Zio) {
	if !e.Tunables.Enabled() {
		return
	}

	tenant, ok := e.registry.Find(z.ZoneID)
	if !ok {
		// Tenant disappeared between start and done; nothing to
		// attribute the latency to.
		return
	}
	defer e.registry.Release(tenant)

	now := e.clock.NowUS()
	latency := now - z.Start

	tenant.recordPhysical(now, z.Type, latency, &e.rdLat, &e.wrLat)

	if z.Type == OpRead {
		tenant.Totals.PhysicalReadOps.Add(1)
		tenant.Totals.PhysicalReadBytes.Add(z.Size)
	} else {
		tenant.Totals.PhysicalWriteOps.Add(1)
		tenant.Totals.PhysicalWriteBytes.Add(z.Size)
	}

	e.tracer.Latency(z.ZoneID, latency)
}
