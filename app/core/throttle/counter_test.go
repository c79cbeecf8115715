package throttle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecayingCounter_MonotoneWithinCycle(t *testing.T) {
	var c DecayingCounter
	// Start at a non-zero offset so rollForward's delta is never
	// coincidentally 0 — see the doc comment on rollForward for why a
	// literal 0 delta is ambiguous with "a roll just happened".
	now := int64(1000)

	c.Record(now)
	first := c.Estimate(now)

	c.Record(now)
	second := c.Estimate(now)

	assert.GreaterOrEqual(t, second, first, "extra record calls within a cycle must never decrease estimate")
}

func TestDecayingCounter_EarlyVsLateCycleWeighting(t *testing.T) {
	var c DecayingCounter
	now := int64(0)
	c.Record(now)
	c.Record(now)
	c.Record(now)

	early := c.Estimate(now + ZoneCycleTimeUS/4)
	require.Equal(t, int64(3), early, "with no history yet, zoneAvgCnt/2 contributes 0")

	var c2 DecayingCounter
	c2.Record(now)
	c2.Record(now)
	c2.Record(now)
	late := c2.Estimate(now + ZoneCycleTimeUS - 1)
	assert.Equal(t, int64(3), late)
}

func TestDecayingCounter_DecayToIdle(t *testing.T) {
	var c DecayingCounter
	// Non-zero start offset so the first Estimate isn't misread as "a
	// roll just happened" (see rollForward).
	now := int64(1000)

	// 10,000 ops/s for 1s => 10000 ops recorded in this cycle.
	for i := 0; i < 10000; i++ {
		c.Record(now)
	}
	require.Greater(t, c.Estimate(now), int64(0))

	// 12s later: >= 6 generations of the 2s counter cycle have
	// elapsed with zero activity, so the estimate must be 0.
	later := now + 12_000_000
	assert.Equal(t, int64(0), c.Estimate(later))
}

func TestDecayingCounter_DecayNonIncreasing(t *testing.T) {
	var c DecayingCounter
	now := int64(1000)
	for i := 0; i < 50; i++ {
		c.Record(now)
	}
	prev := c.Estimate(now)
	for k := int64(1); k <= 6; k++ {
		// Each estimate is taken on its own copy: Estimate rolls the
		// window forward, so chained per-cycle calls would halve once per
		// call instead of decaying over the whole k-cycle gap.
		later := c
		cur := later.Estimate(now + k*ZoneCycleTimeUS)
		assert.LessOrEqual(t, cur, prev, "decay must be non-increasing with no further activity")
		prev = cur
	}
	assert.Equal(t, int64(0), prev, "must fully decay by k=6")
}

func TestDecayingCounter_NeverNegative(t *testing.T) {
	var c DecayingCounter
	now := int64(0)
	c.Record(now)
	for k := int64(0); k < 20; k++ {
		now += ZoneCycleTimeUS
		est := c.Estimate(now)
		assert.GreaterOrEqual(t, est, int64(0))
		assert.GreaterOrEqual(t, c.zoneAvgCnt, int64(0))
		assert.GreaterOrEqual(t, c.cycleCnt, int64(0))
	}
}

func TestDecayingCounter_AlmostIdleTenantNotLostToRounding(t *testing.T) {
	var c DecayingCounter
	now := int64(0)

	// A single op every cycle: cycle_cnt never exceeds 1, so the
	// >1 threshold keeps folding half the history back in instead of
	// discarding it outright.
	for k := 0; k < 4; k++ {
		c.Record(now)
		now += ZoneCycleTimeUS
	}
	est := c.Estimate(now)
	assert.Greater(t, est, int64(0), "an intermittently-active tenant should not vanish from the estimate")
}
