// Package workload drives a simulated multi-tenant I/O pattern against
// a throttle.Engine so the CLI can demonstrate and exercise throttling
// without a real storage pipeline behind it.
package workload

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/hydraide/iothrottle/app/core/throttle"
	"github.com/hydraide/iothrottle/app/panichandler"
)

// Tenant describes one simulated tenant's I/O intensity.
type Tenant struct {
	ID          uint64
	Name        string
	OpsPerTick  int   // logical ops issued each tick
	SizeBytes   uint64
	LatencyUS   int64 // simulated physical latency per op
	jitter      *rand.Rand
}

// NewTenants builds n tenants with a skewed distribution: the first
// tenant is "heavy" (10x the others), the rest are uniform, so a demo
// run visibly throttles exactly one tenant.
//
// A tenant's ID is derived from its name with xxhash rather than just
// using its index, the way the observe model hashes swamp names down
// to a fixed-width key for filtering: it keeps the registry keyed on
// something that behaves like a real tenant identifier instead of a
// loop counter.
func NewTenants(n int, seed int64) []*Tenant {
	tenants := make([]*Tenant, 0, n)
	for i := 0; i < n; i++ {
		ops := 5
		if i == 0 {
			ops = 50
		}
		name := tenantName(i)
		tenants = append(tenants, &Tenant{
			ID:         tenantID(name),
			Name:       name,
			OpsPerTick: ops,
			SizeBytes:  4096,
			LatencyUS:  500,
			jitter:     rand.New(rand.NewSource(seed + int64(i))),
		})
	}
	return tenants
}

// tenantID derives a stable numeric tenant ID from its name. Masking
// off the top bit keeps it within the positive int64 range, while still
// spreading names across the ID space.
func tenantID(name string) uint64 {
	return xxhash.Sum64String(name) &^ (uint64(1) << 63)
}

func tenantName(i int) string {
	names := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	if i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("tenant-%d", i)
}

// Run drives every tenant's simulated I/O against engine once per tick
// until ctx is cancelled. onTick, if non-nil, is called after each
// round of ticks with the tenants that were just driven.
func Run(ctx context.Context, engine *throttle.Engine, registry *throttle.MemRegistry, tenants []*Tenant, tick time.Duration, onTick func([]*Tenant)) {
	for _, tn := range tenants {
		registry.Add(throttle.NewTenantState(tn.ID))
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, tn := range tenants {
				driveTenant(engine, tn)
			}
			if onTick != nil {
				onTick(tenants)
			}
		}
	}
}

func driveTenant(engine *throttle.Engine, tn *Tenant) {
	defer panichandler.Recover("workload tick: " + tn.Name)

	for i := 0; i < tn.OpsPerTick; i++ {
		engine.OnLogicalOp(tn.ID, throttle.OpLogicalWrite, tn.SizeBytes)

		z := &throttle.Zio{Type: throttle.OpRead, Size: tn.SizeBytes}
		engine.OnZioInit(z, tn.ID)
		engine.OnPhysicalStart(z)
		// Simulate device latency by back-dating Start rather than
		// actually sleeping the goroutine for it.
		z.Start -= tn.LatencyUS + int64(tn.jitter.Intn(50))
		engine.OnPhysicalDone(z)
	}
}
