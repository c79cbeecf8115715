package telemetry

import (
	"testing"
	"time"

	"github.com/hydraide/iothrottle/app/core/throttle"
)

func TestBus_Record(t *testing.T) {
	b := New(Config{Capacity: 100, Retention: 5 * time.Minute})
	defer b.Close()

	b.Record(Event{Probe: ProbeThrottle, TenantID: 1, OldDelayUS: 0, NewDelayUS: 5})

	stats := b.Stats(5)
	if stats.TotalEvents != 1 {
		t.Errorf("expected 1 event, got %d", stats.TotalEvents)
	}
	if stats.ThrottleEvents != 1 {
		t.Errorf("expected 1 throttle event, got %d", stats.ThrottleEvents)
	}
}

func TestBus_Subscribe(t *testing.T) {
	b := New(Config{Capacity: 100, Retention: 5 * time.Minute})
	defer b.Close()

	ch, unsubscribe := b.Subscribe(SubscribeFilter{AnyTenant: true})
	defer unsubscribe()

	b.Record(Event{Probe: ProbeWait, TenantID: 7, WaitUS: 42})

	select {
	case received := <-ch:
		if received.TenantID != 7 || received.WaitUS != 42 {
			t.Errorf("unexpected event: %+v", received)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestBus_SubscribeFiltersByTenant(t *testing.T) {
	b := New(Config{Capacity: 100, Retention: 5 * time.Minute})
	defer b.Close()

	ch, unsubscribe := b.Subscribe(SubscribeFilter{TenantID: 1})
	defer unsubscribe()

	b.Record(Event{Probe: ProbeWait, TenantID: 2, WaitUS: 10})
	b.Record(Event{Probe: ProbeWait, TenantID: 1, WaitUS: 20})

	select {
	case received := <-ch:
		if received.TenantID != 1 {
			t.Errorf("expected only tenant 1's events, got tenant %d", received.TenantID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}

	select {
	case received := <-ch:
		t.Errorf("unexpected second event for tenant %d", received.TenantID)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_History(t *testing.T) {
	b := New(Config{Capacity: 100, Retention: 5 * time.Minute})
	defer b.Close()

	now := time.Now()
	for i := 0; i < 10; i++ {
		b.Record(Event{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Probe:     ProbeThrottle,
			TenantID:  1,
		})
	}

	events := b.History(now.Add(-time.Minute), now.Add(time.Minute), HistoryFilter{AnyTenant: true})
	if len(events) != 10 {
		t.Errorf("expected 10 events, got %d", len(events))
	}

	limited := b.History(now.Add(-time.Minute), now.Add(time.Minute), HistoryFilter{AnyTenant: true, Limit: 5})
	if len(limited) != 5 {
		t.Errorf("expected 5 events, got %d", len(limited))
	}
}

func TestBus_RingBuffer(t *testing.T) {
	b := New(Config{Capacity: 10, Retention: 5 * time.Minute})
	defer b.Close()

	now := time.Now()
	for i := 0; i < 25; i++ {
		b.Record(Event{Timestamp: now.Add(time.Duration(i) * time.Second), Probe: ProbeWait, TenantID: 1})
	}

	events := b.History(now.Add(-time.Minute), now.Add(time.Hour), HistoryFilter{AnyTenant: true})
	if len(events) != 10 {
		t.Errorf("expected 10 events (capacity), got %d", len(events))
	}
}

func TestBus_Stats(t *testing.T) {
	b := New(Config{Capacity: 100, Retention: 5 * time.Minute})
	defer b.Close()

	for i := 0; i < 20; i++ {
		tenant := uint64(i%5 + 1)
		b.Record(Event{Probe: ProbeWait, TenantID: tenant, WaitUS: uint32(i)})
	}
	b.Record(Event{Probe: ProbeStats, ActiveTenants: 5, AvgUtilization: 12345})

	stats := b.Stats(5)
	if stats.TotalEvents != 21 {
		t.Errorf("expected 21 events, got %d", stats.TotalEvents)
	}
	if stats.ActiveTenants != 5 {
		t.Errorf("expected 5 active tenants, got %d", stats.ActiveTenants)
	}
	if len(stats.TopTenants) == 0 {
		t.Error("expected top tenants to be populated")
	}
}

func TestTracerSink_SatisfiesThrottleTracer(t *testing.T) {
	b := New(Config{Capacity: 10, Retention: time.Minute})
	defer b.Close()

	sink := TracerSink{Bus: b}
	ch, unsubscribe := sink.Bus.Subscribe(SubscribeFilter{AnyTenant: true})
	defer unsubscribe()

	sink.Throttle(3, 0, 5)
	sink.Wait(3, throttle.OpRead, 5)

	received := 0
	for received < 2 {
		select {
		case <-ch:
			received++
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("expected 2 events, got %d", received)
		}
	}
}
