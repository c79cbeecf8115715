package throttle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjustDelay_IncreasesWhenAboveAverageAndMultipleActive(t *testing.T) {
	next := adjustDelay(10, 200, 100, 2, 5, 100)
	assert.Equal(t, uint32(15), next)
}

func TestAdjustDelay_NeverExceedsCeiling(t *testing.T) {
	next := adjustDelay(98, 200, 100, 2, 5, 100)
	assert.Equal(t, uint32(100), next)
}

func TestAdjustDelay_DecreasesWhenBelowAverage(t *testing.T) {
	next := adjustDelay(10, 50, 100, 2, 5, 100)
	assert.Equal(t, uint32(5), next)
}

func TestAdjustDelay_NeverGoesNegative(t *testing.T) {
	next := adjustDelay(2, 50, 100, 2, 5, 100)
	assert.Equal(t, uint32(0), next)
}

func TestAdjustDelay_SoleActiveTenantAlwaysDrains(t *testing.T) {
	next := adjustDelay(50, 1_000_000, 100, 1, 5, 100)
	assert.Less(t, next, uint32(50), "a tenant that is the only active one must monotonically drain its delay")
}

func TestAdjustDelay_UnchangedWhenEqualAndMultipleActive(t *testing.T) {
	next := adjustDelay(42, 100, 100, 2, 5, 100)
	assert.Equal(t, uint32(42), next)
}
