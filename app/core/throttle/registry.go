package throttle

import "sync"

// Registry is the tenant registry the throttle borrows from the host
// environment (§1, §6). It is intentionally minimal: enumeration is
// callback-based so the engine never needs to know how tenants are
// stored, and lookups hand back a reference that must be released.
type Registry interface {
	// Enumerate invokes cb once per live tenant. If cb returns a
	// non-nil error, enumeration stops immediately and that error is
	// returned to the caller.
	Enumerate(cb func(*TenantState) error) error
	// Find looks up a tenant by ID, returning ok=false if it is not
	// (or no longer) registered.
	Find(id uint64) (t *TenantState, ok bool)
	// Release drops a reference obtained from Find. The engine never
	// retains a tenant reference across entry-point boundaries, so
	// every Find is paired with exactly one Release.
	Release(t *TenantState)
}

// MemRegistry is a reference Registry backed by an in-memory map. It
// is not the storage stack's real tenant registry (still out of
// scope) — it exists so the engine can run standalone in tests, the
// CLI simulator, and benchmarks.
type MemRegistry struct {
	mu      sync.RWMutex
	tenants map[uint64]*TenantState
}

// NewMemRegistry returns an empty in-memory registry.
func NewMemRegistry() *MemRegistry {
	return &MemRegistry{tenants: make(map[uint64]*TenantState)}
}

// Add registers a freshly created tenant, as the storage stack would
// when a zone/tenant is first provisioned.
func (r *MemRegistry) Add(t *TenantState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = t
}

// Remove discards a tenant, as the storage stack would on teardown.
func (r *MemRegistry) Remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tenants, id)
}

func (r *MemRegistry) Enumerate(cb func(*TenantState) error) error {
	r.mu.RLock()
	snapshot := make([]*TenantState, 0, len(r.tenants))
	for _, t := range r.tenants {
		snapshot = append(snapshot, t)
	}
	r.mu.RUnlock()

	for _, t := range snapshot {
		if err := cb(t); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemRegistry) Find(id uint64) (*TenantState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	return t, ok
}

// Release is a no-op: MemRegistry hands out plain pointers backed by
// the Go garbage collector rather than a refcounted allocation, so
// there is nothing to release. It still exists to satisfy Registry,
// since a real tenant registry would need it.
func (r *MemRegistry) Release(*TenantState) {}
