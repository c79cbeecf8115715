package throttle

// DecayingCounter tracks the recent rate of one op type (read, physical
// write, or logical write) for a single tenant using a decaying-average
// scheme: a live count for the current cycle, folded into a historical
// average whenever a cycle boundary is crossed.
//
// Not safe for concurrent use on its own — callers hold the owning
// tenant's lock.
type DecayingCounter struct {
	cycleStart int64
	cycleCnt   int64
	zoneAvgCnt int64
}

// rollForward lazily advances the cycle window to now. It returns the
// elapsed time since cycleStart when no roll was needed, or 0 once a
// roll has happened — the same overloaded-zero convention the original
// ZFS zone throttle uses, preserved here rather than split into two
// return values, since callers depend on exactly this behavior.
func (c *DecayingCounter) rollForward(now int64) int64 {
	delta := now - c.cycleStart
	if delta < ZoneCycleTimeUS {
		return delta
	}

	generations := delta / ZoneCycleTimeUS
	if generations > ResetGenerations {
		c.zoneAvgCnt = 0
	} else {
		if c.cycleCnt > 1 {
			// Recent activity dominates; discard stale history.
			c.zoneAvgCnt = c.cycleCnt
		} else {
			// Preserve an almost-idle tenant so it isn't lost to rounding.
			c.zoneAvgCnt = c.cycleCnt + c.zoneAvgCnt/2
		}
		for i := int64(1); i < generations; i++ {
			c.zoneAvgCnt = c.zoneAvgCnt / 2
		}
	}

	c.cycleStart = now
	c.cycleCnt = 0
	return 0
}

// Record registers one op of this counter's type at time now.
func (c *DecayingCounter) Record(now int64) {
	_ = c.rollForward(now)
	c.cycleCnt++
}

// Estimate returns the current operations-in-recent-window estimate.
func (c *DecayingCounter) Estimate(now int64) int64 {
	delta := c.rollForward(now)
	if delta == 0 {
		// No data in the new cycle yet; use the historical average.
		return c.zoneAvgCnt
	}
	if delta < ZoneCycleTimeUS/2 {
		return c.cycleCnt + c.zoneAvgCnt/2
	}
	// Current cycle carries enough weight to stand on its own.
	return c.cycleCnt
}
