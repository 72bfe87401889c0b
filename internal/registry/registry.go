package registry

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/vk/fieldgrid/internal/config"
	"github.com/vk/fieldgrid/internal/domain"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/fieldops"
)

// Args carries everything a constructor needs, resolved by the builder.
type Args struct {
	Spec    *config.Field
	Sources []*field.Field
	Mesh    domain.Mesh
	Nodeset domain.Nodeset
}

// Constructor creates the described field through mod, which already
// carries the field's name, managed flag and component names.
type Constructor func(mod fieldops.Module, args Args) (*field.Field, error)

// Entry describes one registered type.
type Entry struct {
	Type        string
	Description string
	MinSources  int
	// MaxSources is -1 for no upper bound.
	MaxSources   int
	NeedsValues  bool
	NeedsMesh    bool
	NeedsNodeset bool
	Build        Constructor
}

// Registry holds entries by type string. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds e. Registering a type twice is an error.
func (r *Registry) Register(e Entry) error {
	if e.Type == "" || e.Build == nil {
		return fmt.Errorf("registry: entry needs a type and a constructor")
	}
	if e.MaxSources >= 0 && e.MaxSources < e.MinSources {
		return fmt.Errorf("registry: type %q accepts at most %d sources but needs %d", e.Type, e.MaxSources, e.MinSources)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.Type]; exists {
		return fmt.Errorf("registry: type %q already registered", e.Type)
	}
	r.entries[e.Type] = &e
	return nil
}

// MustRegister is Register for static tables.
func (r *Registry) MustRegister(entries ...Entry) {
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the entry for a type string.
func (r *Registry) Lookup(typ string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[typ]
	return e, ok
}

// Types lists the registered type strings in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Build checks args against the entry's shape and runs its constructor.
func (r *Registry) Build(mod fieldops.Module, args Args) (*field.Field, error) {
	e, ok := r.Lookup(args.Spec.Type)
	if !ok {
		return nil, fmt.Errorf("unknown field type %q", args.Spec.Type)
	}
	if err := e.checkShape(args.Spec); err != nil {
		return nil, err
	}
	if (e.NeedsMesh || args.Spec.Mesh != "") && args.Mesh == nil {
		return nil, fmt.Errorf("field type %q: mesh %q not found", e.Type, args.Spec.Mesh)
	}
	if (e.NeedsNodeset || args.Spec.Nodeset != "") && args.Nodeset == nil {
		return nil, fmt.Errorf("field type %q: nodeset %q not found", e.Type, args.Spec.Nodeset)
	}
	return e.Build(mod, args)
}

func (e *Entry) checkShape(spec *config.Field) error {
	n := len(spec.Sources)
	switch {
	case n < e.MinSources:
		return fmt.Errorf("field type %q needs at least %d sources, got %d", e.Type, e.MinSources, n)
	case e.MaxSources >= 0 && n > e.MaxSources:
		return fmt.Errorf("field type %q takes at most %d sources, got %d", e.Type, e.MaxSources, n)
	case e.NeedsValues && len(spec.Values) == 0:
		return fmt.Errorf("field type %q needs values", e.Type)
	case e.NeedsMesh && spec.Mesh == "":
		return fmt.Errorf("field type %q needs a mesh", e.Type)
	case e.NeedsNodeset && spec.Nodeset == "":
		return fmt.Errorf("field type %q needs a nodeset", e.Type)
	}
	return nil
}

// zeroBased converts 1-based component numbers.
func zeroBased(components []int) []int {
	out := slices.Clone(components)
	for i := range out {
		out[i]--
	}
	return out
}
