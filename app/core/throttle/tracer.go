package throttle

import "log/slog"

// Tracer mirrors the DTrace probes of the original zone throttle. Each
// method must be cheap enough to call unconditionally on the hot path;
// NoopTracer satisfies that by doing nothing at all.
type Tracer interface {
	// CalcWtAvg fires each time the current-cycle-weighted latency blend
	// is computed (no roll pending).
	CalcWtAvg(sysAvg, cycleLat, cycleCnt int64)
	// IOCnt fires once per tenant per re-evaluation with its read/write/
	// logical-write op counts.
	IOCnt(zone uint64, r, w, lw int64)
	// SysAvgLat fires once per re-evaluation with the system-wide
	// latency averages used for that round.
	SysAvgLat(r, w int64)
	// Utilization fires once per active tenant per re-evaluation; a
	// tenant whose three op estimates are all zero does not fire it.
	Utilization(zone uint64, r, w, lw uint64, util int64)
	// Throttle fires whenever a tenant's delay is adjusted.
	Throttle(zone uint64, oldDelay, newDelay uint32)
	// Stats fires once per re-evaluation with the round's summary.
	Stats(avgRLat, avgWLat int64, active int, avgUtil int64)
	// Wait fires immediately before the throttle sleeps.
	Wait(zone uint64, op IOOp, delayUS uint32)
	// Latency fires once per completed physical op.
	Latency(zone uint64, latencyUS int64)
}

// NoopTracer discards every probe. It is the tracer NewEngine installs
// by default and costs one no-op interface call per probe site — the Go
// equivalent of a DTrace probe compiled out.
type NoopTracer struct{}

func (NoopTracer) CalcWtAvg(int64, int64, int64)          {}
func (NoopTracer) IOCnt(uint64, int64, int64, int64)      {}
func (NoopTracer) SysAvgLat(int64, int64)                 {}
func (NoopTracer) Utilization(uint64, uint64, uint64, uint64, int64) {}
func (NoopTracer) Throttle(uint64, uint32, uint32)        {}
func (NoopTracer) Stats(int64, int64, int, int64)         {}
func (NoopTracer) Wait(uint64, IOOp, uint32)              {}
func (NoopTracer) Latency(uint64, int64)                  {}

// SlogTracer emits every probe as a structured slog.Debug record,
// tagged so they can be filtered out of normal operational logs.
type SlogTracer struct {
	Log *slog.Logger
}

func (t SlogTracer) logger() *slog.Logger {
	if t.Log == nil {
		return slog.Default()
	}
	return t.Log
}

func (t SlogTracer) CalcWtAvg(sysAvg, cycleLat, cycleCnt int64) {
	t.logger().Debug("throttle.calc_wt_avg", "sys_avg_lat", sysAvg, "cycle_lat", cycleLat, "cycle_cnt", cycleCnt)
}

func (t SlogTracer) IOCnt(zone uint64, r, w, lw int64) {
	t.logger().Debug("throttle.io_cnt", "zone", zone, "reads", r, "writes", w, "logical_writes", lw)
}

func (t SlogTracer) SysAvgLat(r, w int64) {
	t.logger().Debug("throttle.sys_avg_lat", "avg_read_us", r, "avg_write_us", w)
}

func (t SlogTracer) Utilization(zone uint64, r, w, lw uint64, util int64) {
	t.logger().Debug("throttle.utilization", "zone", zone, "reads", r, "writes", w, "logical_writes", lw, "util", util)
}

func (t SlogTracer) Throttle(zone uint64, oldDelay, newDelay uint32) {
	t.logger().Debug("throttle.throttle", "zone", zone, "old_delay_us", oldDelay, "new_delay_us", newDelay)
}

func (t SlogTracer) Stats(avgRLat, avgWLat int64, active int, avgUtil int64) {
	t.logger().Debug("throttle.stats", "avg_read_lat_us", avgRLat, "avg_write_lat_us", avgWLat, "active_tenants", active, "avg_util", avgUtil)
}

func (t SlogTracer) Wait(zone uint64, op IOOp, delayUS uint32) {
	t.logger().Debug("throttle.wait", "zone", zone, "op", op, "delay_us", delayUS)
}

func (t SlogTracer) Latency(zone uint64, latencyUS int64) {
	t.logger().Debug("throttle.latency", "zone", zone, "latency_us", latencyUS)
}
