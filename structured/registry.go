package structured

import (
	"sort"
	"sync"

	"github.com/BaSui01/generable/schema"
)

// Registry maps stable type names to descriptors. It is owned by the caller:
// generators given one consult it before deriving a named type, so a
// registered descriptor overrides what reflection would produce. It is safe
// for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	descs map[string]*schema.Descriptor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{descs: make(map[string]*schema.Descriptor)}
}

// Register stores d under its name, replacing any previous entry.
func (r *Registry) Register(d *schema.Descriptor) {
	if d == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descs[d.Name()] = d
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*schema.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[name]
	return d, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descs))
	for name := range r.descs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the dynamic nodes of every registered descriptor, for
// seeding a schema.Builder.
func (r *Registry) Definitions() []schema.DynamicSchema {
	var out []schema.DynamicSchema
	for _, name := range r.Names() {
		if d, ok := r.Lookup(name); ok {
			out = append(out, d.DynamicDefinitions()...)
		}
	}
	return out
}
