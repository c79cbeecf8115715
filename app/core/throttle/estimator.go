package throttle

// reevaluate runs one full utilization-estimate-then-delay-adjust
// cycle (§4.3 + §4.4). It is invoked from OnLogicalOp at most once per
// RecheckIntervalUS; concurrent callers may race into it together,
// which the design tolerates (§5) — at worst one cycle's worth of
// writes gets clobbered, and the next interval corrects it.
func (e *Engine) reevaluate(now int64) {
	avgRLat, avgWLat := e.systemAverageLatency(now)

	var totalUtil int64
	var activeTenants int

	err := e.registry.Enumerate(func(t *TenantState) error {
		if t.ID == GlobalTenantID {
			return nil
		}
		util, active := t.computeUtilization(now, avgRLat, avgWLat, e.tracer)
		totalUtil += util
		if active {
			activeTenants++
		}
		return nil
	})
	if err != nil {
		// Enumerator aborted; delays stay at their previous values
		// until the next interval boundary (§7).
		return
	}

	var avgUtil int64
	if activeTenants > 0 {
		avgUtil = totalUtil / int64(activeTenants)
	}

	e.tracer.Stats(avgRLat, avgWLat, activeTenants, avgUtil)

	e.lastAvgRLat.Store(avgRLat)
	e.lastAvgWLat.Store(avgWLat)
	e.lastActiveTenants.Store(int32(activeTenants))
	e.lastAvgUtil.Store(avgUtil)

	step := e.Tunables.Step()
	ceiling := e.Tunables.Ceiling()

	_ = e.registry.Enumerate(func(t *TenantState) error {
		if t.ID == GlobalTenantID {
			return nil
		}
		old := t.ioDelay.Load()
		next := adjustDelay(int64(old), t.IOUtil(), avgUtil, activeTenants, step, ceiling)
		if next != old {
			t.ioDelay.Store(next)
			e.tracer.Throttle(t.ID, old, next)
		}
		return nil
	})
}

// systemAverageLatency returns the current read/write latency
// averages, with the zero-latency floor of §4.2 applied so a tenant
// with no observed physical I/O still contributes non-zero
// utilization proportional to its op counts.
func (e *Engine) systemAverageLatency(now int64) (avgRLat, avgWLat int64) {
	avgRLat = e.rdLat.Average(now, e.tracer)
	avgWLat = e.wrLat.Average(now, e.tracer)

	if avgRLat == 0 {
		avgRLat = 1000
	}
	if avgWLat == 0 {
		avgWLat = 10
	}

	e.tracer.SysAvgLat(avgRLat, avgWLat)
	return avgRLat, avgWLat
}
