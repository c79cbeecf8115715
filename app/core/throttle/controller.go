package throttle

// adjustDelay is the bang-bang delay controller of §4.4. Given the
// round's average utilization and active-tenant count, it nudges one
// tenant's delay by step microseconds toward the ceiling or floor and
// returns the new value. It never touches the tenant's lock: io_delay
// is controller-owned and read unlocked elsewhere by design.
func adjustDelay(current, util, avgUtil int64, activeTenants int, step, ceiling uint32) uint32 {
	d := int64(current)

	switch {
	case util > avgUtil && d < int64(ceiling) && activeTenants > 1:
		d += int64(step)
		if d > int64(ceiling) {
			d = int64(ceiling)
		}
	case util < avgUtil || activeTenants <= 1:
		d -= int64(step)
		if d < 0 {
			d = 0
		}
	}

	return uint32(d)
}
