package field

import (
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
)

// Field is a named node of the field graph producing a fixed number of
// real components at a location.
type Field struct {
	name             string
	automaticName    bool
	managed          bool
	cacheIndex       int
	components       int
	componentNames   []string
	coordinateSystem CoordinateSystem
	core             Core
	sources          []*Field
	manager          *Manager
	tree             *tree
	accessCount      atomic.Int32
}

func (f *Field) Name() string { return f.name }

// IsAutomaticName reports whether the name was generated at creation.
func (f *Field) IsAutomaticName() bool { return f.automaticName }

func (f *Field) ComponentCount() int { return f.components }

// ComponentName returns the name of the 0-based component i. Unnamed
// components are called by their 1-based number.
func (f *Field) ComponentName(i int) string {
	if i < len(f.componentNames) && f.componentNames[i] != "" {
		return f.componentNames[i]
	}
	return strconv.Itoa(i + 1)
}

// ComponentIndex resolves a component name or 1-based number to a 0-based
// index.
func (f *Field) ComponentIndex(name string) (int, bool) {
	for i := 0; i < f.components; i++ {
		if f.ComponentName(i) == name {
			return i, true
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 && n <= f.components {
		return n - 1, true
	}
	return 0, false
}

func (f *Field) CoordinateSystem() CoordinateSystem { return f.coordinateSystem }
func (f *Field) Core() Core                         { return f.core }
func (f *Field) Type() Type                         { return f.core.Type() }
func (f *Field) SourceCount() int                   { return len(f.sources) }
func (f *Field) Source(i int) *Field                { return f.sources[i] }

// Sources returns a copy of the ordered source list.
func (f *Field) Sources() []*Field { return slices.Clone(f.sources) }

// Manager returns the owning manager, or nil once the field was removed.
func (f *Field) Manager() *Manager { return f.manager }

func (f *Field) CacheIndex() int { return f.cacheIndex }
func (f *Field) IsManaged() bool {
	f.tree.mu.RLock()
	defer f.tree.mu.RUnlock()
	return f.managed
}

// AccessCount is the number of live references: one from the manager, one
// per dependent field, plus any taken with Access.
func (f *Field) AccessCount() int { return int(f.accessCount.Load()) }

// Access takes a reference and returns f.
func (f *Field) Access() *Field {
	f.accessCount.Add(1)
	return f
}

// Release drops a reference. An unmanaged field left referenced only by its
// manager is removed.
func (f *Field) Release() {
	if f.accessCount.Add(-1) != 1 {
		return
	}
	_ = f.tree.mutate(func() error {
		if m := f.manager; m != nil {
			m.removeUnusedLocked(f)
		}
		return nil
	})
}

// SetName renames the field within its manager.
func (f *Field) SetName(name string) error {
	if f.manager == nil {
		return InvalidArgumentf("field %q is not in a region", f.name)
	}
	return f.manager.Rename(f, name)
}

// SetManaged marks whether the field outlives its last external reference.
func (f *Field) SetManaged(managed bool) {
	_ = f.tree.mutate(func() error {
		if f.managed == managed {
			return nil
		}
		f.managed = managed
		m := f.manager
		if m == nil {
			return nil
		}
		m.changes().modify(f.name)
		if !managed {
			m.removeUnusedLocked(f)
		}
		return nil
	})
}

// SetComponentName names the 0-based component i.
func (f *Field) SetComponentName(i int, name string) error {
	if i < 0 || i >= f.components {
		return InvalidArgumentf("field %q: component %d out of range 1..%d", f.name, i+1, f.components)
	}
	if f.manager == nil {
		return InvalidArgumentf("field %q is not in a region", f.name)
	}
	return f.manager.mutate(func() error {
		if len(f.componentNames) < f.components {
			names := make([]string, f.components)
			copy(names, f.componentNames)
			f.componentNames = names
		}
		f.componentNames[i] = name
		f.manager.changes().modify(f.name)
		return nil
	})
}

// SetCoordinateSystem changes the coordinate system tag.
func (f *Field) SetCoordinateSystem(cs CoordinateSystem) error {
	if f.manager == nil {
		return InvalidArgumentf("field %q is not in a region", f.name)
	}
	return f.manager.mutate(func() error {
		if f.coordinateSystem == cs {
			return nil
		}
		f.coordinateSystem = cs
		f.manager.changes().modify(f.name)
		return nil
	})
}

// DependsOn reports whether other is f or is reachable through f's sources.
func (f *Field) DependsOn(other *Field) bool {
	if f == other {
		return true
	}
	for _, s := range f.sources {
		if s.DependsOn(other) {
			return true
		}
	}
	return false
}

func (f *Field) String() string {
	return fmt.Sprintf("%s(%s, %d components)", f.name, f.core.Type(), f.components)
}
