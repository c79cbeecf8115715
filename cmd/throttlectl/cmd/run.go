package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/spf13/cobra"

	"github.com/hydraide/iothrottle/app/core/throttle"
	"github.com/hydraide/iothrottle/app/eventlog"
	"github.com/hydraide/iothrottle/app/panichandler"
	"github.com/hydraide/iothrottle/app/paniclogger"
	"github.com/hydraide/iothrottle/app/server/telemetry"
	"github.com/hydraide/iothrottle/cmd/throttlectl/cmd/internal/workload"
)

var (
	runTenants      int
	runDuration     time.Duration
	runTick         time.Duration
	runEventlogPath string
	runResourceLog  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulated workload against the throttle engine",
	RunE:  runThrottle,
}

func init() {
	runCmd.Flags().IntVar(&runTenants, "tenants", 3, "number of simulated tenants")
	runCmd.Flags().DurationVar(&runDuration, "duration", 20*time.Second, "how long to run (0 = forever)")
	runCmd.Flags().DurationVar(&runTick, "tick", 50*time.Millisecond, "simulated I/O round interval")
	runCmd.Flags().StringVar(&runEventlogPath, "eventlog", "", "path to append utilization snapshots to (disabled if empty)")
	runCmd.Flags().BoolVar(&runResourceLog, "resource-log", false, "periodically log host CPU/mem alongside throttle stats")
}

// tunablesFromEnv mirrors the hydraide server's init()-time env parsing:
// read overrides if set, panic on malformed numeric values rather than
// silently falling back, since a typo'd tunable should fail loudly.
func tunablesFromEnv(t *throttle.Tunables) {
	if v := os.Getenv("IOTHROTTLE_DELAY_ENABLE"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Sprintf("IOTHROTTLE_DELAY_ENABLE must be a bool: %v", err))
		}
		t.SetEnabled(enabled)
	}
	if v := os.Getenv("IOTHROTTLE_DELAY_STEP"); v != "" {
		step, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			panic(fmt.Sprintf("IOTHROTTLE_DELAY_STEP must be a number: %v", err))
		}
		t.SetStep(uint32(step))
	}
	if v := os.Getenv("IOTHROTTLE_DELAY_CEILING"); v != "" {
		ceiling, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			panic(fmt.Sprintf("IOTHROTTLE_DELAY_CEILING must be a number: %v", err))
		}
		t.SetCeiling(uint32(ceiling))
	}
}

func runThrottle(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	_ = paniclogger.Init()
	defer paniclogger.Close()
	defer panichandler.Recover("throttlectl run")

	registry := throttle.NewMemRegistry()
	bus := telemetry.New(telemetry.DefaultConfig())
	defer bus.Close()

	clock := throttle.NewSystemClock()
	engine := throttle.NewEngine(clock, registry,
		throttle.WithTracer(telemetry.TracerSink{Bus: bus}),
	)
	tunablesFromEnv(engine.Tunables)

	tenants := workload.NewTenants(runTenants, time.Now().UnixNano())

	var writer *eventlog.Writer
	if runEventlogPath != "" {
		var err error
		writer, err = eventlog.NewWriter(runEventlogPath)
		if err != nil {
			return fmt.Errorf("opening event log: %w", err)
		}
		defer writer.Close()
	}

	bar := progressbar.Default(10, "warming up tenants")
	for i := 0; i < 10; i++ {
		for _, tn := range tenants {
			engine.OnLogicalOp(tn.ID, throttle.OpLogicalWrite, tn.SizeBytes)
		}
		_ = bar.Add(1)
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}

	if runResourceLog {
		panichandler.SafeGo("resource logger", func() { logHostResources(ctx) })
	}

	workload.Run(ctx, engine, registry, tenants, runTick, func(ts []*workload.Tenant) {
		if writer == nil {
			return
		}
		snap := snapshotTenants(engine, registry, clock, ts)
		if err := writer.Write(snap); err != nil {
			slog.Error("failed to write eventlog snapshot", "error", err)
		}
	})

	slog.Info("throttlectl run finished")
	return nil
}

func snapshotTenants(engine *throttle.Engine, registry *throttle.MemRegistry, clock *throttle.SystemClock, tenants []*workload.Tenant) *eventlog.Snapshot {
	now := time.Now().UnixNano()
	snaps := make([]eventlog.TenantSnapshot, 0, len(tenants))
	for _, tn := range tenants {
		t, ok := registry.Find(tn.ID)
		if !ok {
			continue
		}
		snaps = append(snaps, eventlog.TenantSnapshot{
			TenantID:       t.ID,
			IOUtil:         t.IOUtil(),
			IODelayUS:      t.IODelay(),
			LogicalReads:   t.Totals.LogicalReadOps.Load(),
			LogicalWrites:  t.Totals.LogicalWriteOps.Load(),
			PhysicalReads:  t.Totals.PhysicalReadOps.Load(),
			PhysicalWrites: t.Totals.PhysicalWriteOps.Load(),
		})
	}

	avgRLat, avgWLat, activeTenants, _ := engine.LastStats()
	return eventlog.SnapshotOf(now, avgRLat, avgWLat, activeTenants, snaps)
}

func logHostResources(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pct, err := cpu.Percent(0, false)
			if err != nil || len(pct) == 0 {
				continue
			}
			vm, err := mem.VirtualMemory()
			if err != nil {
				continue
			}
			slog.Info("host resources", "cpu_pct", pct[0], "mem_used_pct", vm.UsedPercent)
		}
	}
}
