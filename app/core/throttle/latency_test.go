package throttle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatencyAggregator_BlendOnFreshRoll(t *testing.T) {
	var l LatencyAggregator
	now := int64(0)
	l.Sample(now, 500)
	l.Sample(now, 500)

	// Force a roll with no samples in the new cycle.
	rolled := now + CycleTimeUS
	avg := l.Average(rolled, NoopTracer{})
	assert.Equal(t, l.sysAvgLat, avg, "average must equal sys_avg_lat right after a roll with cycle_cnt=0")
}

func TestLatencyAggregator_CurrentWeightedBlend(t *testing.T) {
	var l LatencyAggregator
	now := int64(1000)
	l.Sample(now, 100)

	avg := l.Average(now, NoopTracer{})
	// (0 + 8*100) / (1 + 8*1) = 800/9 = 88
	assert.Equal(t, int64(88), avg)
}

func TestLatencyAggregator_ZeroLatencyFloorAppliedBySystemAverage(t *testing.T) {
	var e Engine
	e.tracer = NoopTracer{}
	avgR, avgW := e.systemAverageLatency(0)
	assert.Equal(t, int64(1000), avgR, "unmeasured read latency floors to 1000us")
	assert.Equal(t, int64(10), avgW, "unmeasured write latency floors to 10us")
}

func TestLatencyAggregator_DecaysAndResetsAfterFiveGenerations(t *testing.T) {
	var l LatencyAggregator
	now := int64(0)
	for i := 0; i < 100; i++ {
		l.Sample(now, 1000)
	}

	// six whole cycles elapse with no activity
	later := now + 6*CycleTimeUS
	avg := l.Average(later, NoopTracer{})
	assert.Equal(t, int64(0), avg)
}
