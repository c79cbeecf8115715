// Package throttle implements the per-tenant I/O throttle: decaying
// counters and latency averages feed a periodic utilization estimate,
// which a bang-bang delay controller converts into a per-tenant
// per-operation delay.
package throttle

// Timing constants, all in microseconds. The counter decay cycle is
// longer than the latency decay cycle because a starved tenant can see
// well over a second of added latency before its next op lands.
const (
	CycleTimeUS       = 1_000_000
	ZoneCycleTimeUS   = 2_000_000
	RecheckIntervalUS = 100_000

	// ResetGenerations is the number of fully-elapsed, activity-free
	// cycles after which a decayed value is reset to zero instead of
	// decayed further.
	ResetGenerations = 5
)

// GlobalTenantID is excluded from throttling; it represents
// system-internal I/O rather than a billable tenant workload.
const GlobalTenantID uint64 = 0

const (
	defaultDelayStep    = 5
	defaultDelayCeiling = 100
)
