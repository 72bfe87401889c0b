package field

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/btree"
	"github.com/vk/fieldgrid/internal/domain"
)

// Observer receives evaluation and generation events, typically to export
// metrics. Calls happen on evaluation hot paths and must be cheap.
type Observer interface {
	Evaluated(t Type, cached bool, err error)
	GenerationChanged(generation uint64)
}

type nopObserver struct{}

func (nopObserver) Evaluated(Type, bool, error) {}

func (nopObserver) GenerationChanged(uint64) {}

// tree is the state shared by the managers of one region tree. A single
// lock covers every manager so that fields may use sources from ancestors.
type tree struct {
	mu             sync.RWMutex
	generation     uint64
	nextCacheIndex int
	derivatives    *derivativeRegistry
	observer       Observer
	// dirty lists the managers with uncommitted changes.
	dirty []*Manager
}

// Change summarises one committed change bracket.
type Change struct {
	Generation uint64
	Added      []string
	Removed    []string
	Modified   []string
	// Related is set when external data such as finite element node values
	// changed without any field definition changing.
	Related bool
}

type changeSet struct {
	added, removed, modified map[string]struct{}
	related                  bool
}

func (cs *changeSet) ensure() {
	if cs.added == nil {
		cs.added = map[string]struct{}{}
		cs.removed = map[string]struct{}{}
		cs.modified = map[string]struct{}{}
	}
}

func (cs *changeSet) add(name string) {
	cs.ensure()
	cs.added[name] = struct{}{}
}

func (cs *changeSet) remove(name string) {
	cs.ensure()
	delete(cs.added, name)
	cs.removed[name] = struct{}{}
}

func (cs *changeSet) modify(name string) {
	cs.ensure()
	cs.modified[name] = struct{}{}
}

func (cs *changeSet) empty() bool {
	return !cs.related && len(cs.added) == 0 && len(cs.removed) == 0 && len(cs.modified) == 0
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

type nameItem struct {
	name  string
	field *Field
}

func (a nameItem) Less(b btree.Item) bool { return a.name < b.(nameItem).name }

// Manager owns the fields of one region.
type Manager struct {
	tree     *tree
	parent   *Manager
	children []*Manager
	log      *slog.Logger

	byName      *btree.BTree
	nextAutoID  int
	changeLevel int
	pending     changeSet
	dirty       bool
	callbacks   []func(Change)
}

// NewManager creates the manager of a root region.
func NewManager(log *slog.Logger) *Manager {
	t := &tree{derivatives: newDerivativeRegistry(), observer: nopObserver{}}
	return newManager(t, nil, log)
}

func newManager(t *tree, parent *Manager, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Manager{tree: t, parent: parent, log: log, byName: btree.New(8), nextAutoID: 1}
}

// NewChild creates the manager of a child region. Fields of the child may
// use fields of m and its ancestors as sources.
func (m *Manager) NewChild(log *slog.Logger) *Manager {
	m.tree.mu.Lock()
	defer m.tree.mu.Unlock()
	child := newManager(m.tree, m, log)
	m.children = append(m.children, child)
	return child
}

// Parent returns the manager of the parent region, or nil.
func (m *Manager) Parent() *Manager { return m.parent }

// SetObserver installs o for the whole region tree.
func (m *Manager) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	m.tree.mu.Lock()
	m.tree.observer = o
	m.tree.mu.Unlock()
}

// Generation is the current structural generation of the region tree.
func (m *Manager) Generation() uint64 {
	m.tree.mu.RLock()
	defer m.tree.mu.RUnlock()
	return m.tree.generation
}

// OnChange registers fn to be called after every committed change.
func (m *Manager) OnChange(fn func(Change)) {
	m.tree.mu.Lock()
	m.callbacks = append(m.callbacks, fn)
	m.tree.mu.Unlock()
}

// Derivative returns the descriptor of the order-th xi derivative on mesh.
// Descriptors and their cache indices live as long as the region tree.
func (m *Manager) Derivative(mesh domain.Mesh, order int) (*Derivative, error) {
	return m.tree.derivatives.get(mesh, order)
}

// NewCache creates an evaluation cache for fields of m and its ancestors.
func (m *Manager) NewCache() *Cache {
	return newCache(m, nil)
}

// BeginChange starts a bracket. Changes made until the matching EndChange
// are committed as one generation.
func (m *Manager) BeginChange() {
	m.tree.mu.Lock()
	m.changeLevel++
	m.tree.mu.Unlock()
}

// EndChange closes a bracket, committing pending changes at the outermost
// level.
func (m *Manager) EndChange() {
	m.tree.mu.Lock()
	if m.changeLevel == 0 {
		m.tree.mu.Unlock()
		m.log.Warn("EndChange without BeginChange")
		return
	}
	m.changeLevel--
	var fire []func()
	if m.changeLevel == 0 {
		fire = m.tree.commitLocked()
	}
	m.tree.mu.Unlock()
	for _, fn := range fire {
		fn()
	}
}

// NotifyRelatedChange invalidates cached values after external data that
// fields read, such as node parameters, was modified.
func (m *Manager) NotifyRelatedChange() {
	_ = m.mutate(func() error {
		m.changes().related = true
		return nil
	})
}

// mutate runs fn under the write lock and commits its changes unless a
// bracket is open.
func (m *Manager) mutate(fn func() error) error {
	return m.tree.mutate(fn)
}

func (t *tree) mutate(fn func() error) error {
	t.mu.Lock()
	err := fn()
	fire := t.commitLocked()
	t.mu.Unlock()
	for _, cb := range fire {
		cb()
	}
	return err
}

// changes returns m's pending change set, marking m for the next commit.
// A change made through one manager may touch another, as when removing a
// field releases an unmanaged source in an ancestor region.
func (m *Manager) changes() *changeSet {
	if !m.dirty {
		m.dirty = true
		m.tree.dirty = append(m.tree.dirty, m)
	}
	return &m.pending
}

// commitLocked commits every dirty manager that has no open bracket under
// one new generation and returns the callbacks to run after unlocking.
func (t *tree) commitLocked() []func() {
	var ready []*Manager
	keep := t.dirty[:0]
	for _, m := range t.dirty {
		switch {
		case m.changeLevel > 0:
			keep = append(keep, m)
		case m.pending.empty():
			m.dirty = false
		default:
			m.dirty = false
			ready = append(ready, m)
		}
	}
	clear(t.dirty[len(keep):])
	t.dirty = keep
	if len(ready) == 0 {
		return nil
	}
	t.generation++
	t.observer.GenerationChanged(t.generation)
	var fire []func()
	for _, m := range ready {
		ch := Change{
			Generation: t.generation,
			Added:      sortedKeys(m.pending.added),
			Removed:    sortedKeys(m.pending.removed),
			Modified:   sortedKeys(m.pending.modified),
			Related:    m.pending.related,
		}
		m.pending = changeSet{}
		m.log.Debug("field change committed",
			"generation", ch.Generation,
			"added", ch.Added,
			"removed", ch.Removed,
			"modified", ch.Modified,
			"related", ch.Related)
		for _, cb := range m.callbacks {
			fire = append(fire, func() { cb(ch) })
		}
	}
	return fire
}

// Definition describes a field to create.
type Definition struct {
	// Name may be empty to get an automatic "temp" name.
	Name             string
	Core             Core
	Sources          []*Field
	Components       int
	ComponentNames   []string
	CoordinateSystem CoordinateSystem
	Managed          bool
}

// Create adds a field. The returned field carries one reference for the
// caller in addition to the manager's.
func (m *Manager) Create(def Definition) (*Field, error) {
	var f *Field
	err := m.mutate(func() error {
		var err error
		f, err = m.createLocked(def)
		return err
	})
	return f, err
}

func (m *Manager) createLocked(def Definition) (*Field, error) {
	if def.Core == nil {
		return nil, InvalidArgumentf("create field: core is nil")
	}
	if def.Components < 1 {
		return nil, InvalidArgumentf("create field: %d components", def.Components)
	}
	if len(def.ComponentNames) > def.Components {
		return nil, InvalidArgumentf("create field: %d component names for %d components",
			len(def.ComponentNames), def.Components)
	}
	for i, s := range def.Sources {
		if err := m.checkSourceLocked(s); err != nil {
			return nil, fmt.Errorf("create field: source %d: %w", i+1, err)
		}
	}
	name := def.Name
	automatic := name == ""
	if automatic {
		name = m.nextAutomaticNameLocked()
	} else if err := m.claimNameLocked(name); err != nil {
		return nil, err
	}

	f := &Field{
		name:             name,
		automaticName:    automatic,
		managed:          def.Managed,
		cacheIndex:       m.tree.nextCacheIndex,
		components:       def.Components,
		componentNames:   slices.Clone(def.ComponentNames),
		coordinateSystem: def.CoordinateSystem,
		core:             def.Core,
		sources:          slices.Clone(def.Sources),
		manager:          m,
		tree:             m.tree,
	}
	m.tree.nextCacheIndex++
	for _, s := range f.sources {
		s.accessCount.Add(1)
	}
	// One reference for the manager, one for the caller.
	f.accessCount.Store(2)
	m.byName.ReplaceOrInsert(nameItem{name: name, field: f})
	m.changes().add(name)
	m.log.Debug("field created", "field", name, "type", def.Core.Type().String(), "components", def.Components)
	return f, nil
}

// Clone creates a new field with a copy of f's core and the same sources.
func (m *Manager) Clone(f *Field, name string) (*Field, error) {
	var out *Field
	err := m.mutate(func() error {
		if f == nil || f.manager == nil {
			return InvalidArgumentf("clone: field is not in a region")
		}
		var err error
		out, err = m.createLocked(Definition{
			Name:             name,
			Core:             f.core.Copy(),
			Sources:          f.sources,
			Components:       f.components,
			ComponentNames:   f.componentNames,
			CoordinateSystem: f.coordinateSystem,
			Managed:          f.managed,
		})
		return err
	})
	return out, err
}

func (m *Manager) checkSourceLocked(s *Field) error {
	if s == nil {
		return InvalidArgumentf("source is nil")
	}
	if s.manager == nil {
		return InvalidArgumentf("source %q has been removed", s.name)
	}
	for a := m; a != nil; a = a.parent {
		if a == s.manager {
			return nil
		}
	}
	return InvalidArgumentf("source %q belongs to an unrelated region", s.name)
}

func (m *Manager) nextAutomaticNameLocked() string {
	for {
		name := "temp" + strconv.Itoa(m.nextAutoID)
		m.nextAutoID++
		if m.byName.Get(nameItem{name: name}) == nil {
			return name
		}
	}
}

// claimNameLocked makes name available, moving a field that only holds it
// automatically out of the way.
func (m *Manager) claimNameLocked(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	item := m.byName.Get(nameItem{name: name})
	if item == nil {
		return nil
	}
	existing := item.(nameItem).field
	if !existing.automaticName {
		return Inconsistentf("field named %q already exists", name)
	}
	m.byName.Delete(item)
	m.changes().remove(existing.name)
	existing.name = m.nextAutomaticNameLocked()
	m.byName.ReplaceOrInsert(nameItem{name: existing.name, field: existing})
	m.changes().add(existing.name)
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return InvalidArgumentf("field name is empty")
	}
	return nil
}

// Rename gives f a new unique name.
func (m *Manager) Rename(f *Field, name string) error {
	return m.mutate(func() error {
		if f.manager != m {
			return InvalidArgumentf("rename: field %q is not in this region", f.name)
		}
		if name == f.name {
			f.automaticName = false
			return nil
		}
		if err := validateName(name); err != nil {
			return err
		}
		if m.byName.Get(nameItem{name: name}) != nil {
			return Inconsistentf("rename %q: field named %q already exists", f.name, name)
		}
		old := f.name
		m.byName.Delete(nameItem{name: old})
		f.name = name
		f.automaticName = false
		m.byName.ReplaceOrInsert(nameItem{name: name, field: f})
		m.changes().remove(old)
		m.changes().add(name)
		m.log.Debug("field renamed", "from", old, "to", name)
		return nil
	})
}

// Remove detaches f from the region. It fails if another field uses f.
func (m *Manager) Remove(f *Field) error {
	return m.mutate(func() error {
		if f == nil || f.manager != m {
			return InvalidArgumentf("remove: field is not in this region")
		}
		if user := m.firstDependentLocked(f); user != nil {
			return Inconsistentf("remove %q: in use by %q", f.name, user.name)
		}
		m.removeLocked(f)
		return nil
	})
}

func (m *Manager) removeLocked(f *Field) {
	m.byName.Delete(nameItem{name: f.name})
	m.changes().remove(f.name)
	f.manager = nil
	f.accessCount.Add(-1)
	m.log.Debug("field removed", "field", f.name)
	for _, s := range f.sources {
		s.accessCount.Add(-1)
		if s.manager != nil {
			s.manager.removeUnusedLocked(s)
		}
	}
}

// removeUnusedLocked removes an unmanaged field once only its manager
// refers to it.
func (m *Manager) removeUnusedLocked(f *Field) {
	if f.manager != m || f.managed || f.accessCount.Load() != 1 {
		return
	}
	m.removeLocked(f)
}

// firstDependentLocked searches m and its descendants for a field using f.
func (m *Manager) firstDependentLocked(f *Field) *Field {
	var found *Field
	m.byName.Ascend(func(i btree.Item) bool {
		g := i.(nameItem).field
		if slices.Contains(g.sources, f) {
			found = g
			return false
		}
		return true
	})
	if found != nil {
		return found
	}
	for _, child := range m.children {
		if g := child.firstDependentLocked(f); g != nil {
			return g
		}
	}
	return nil
}

// Redefine replaces target's core and sources with copies of source's,
// converting target in place. Fields using target see the new definition.
func (m *Manager) Redefine(target, source *Field) error {
	return m.mutate(func() error {
		if target == nil || target.manager != m {
			return InvalidArgumentf("redefine: target is not in this region")
		}
		if source == nil || source.manager == nil {
			return InvalidArgumentf("redefine: source is not in a region")
		}
		if source == target {
			return nil
		}
		if source.DependsOn(target) {
			return Inconsistentf("redefine %q: new definition depends on it", target.name)
		}
		for _, s := range source.sources {
			if err := m.checkSourceLocked(s); err != nil {
				return fmt.Errorf("redefine %q: %w", target.name, err)
			}
		}
		if source.components != target.components {
			if user := m.firstDependentLocked(target); user != nil {
				return InvalidArgumentf("redefine %q: cannot change from %d to %d components while used by %q",
					target.name, target.components, source.components, user.name)
			}
		}
		if target.components == source.components &&
			target.core.Type() == source.core.Type() &&
			target.core.Compare(source.core) &&
			slices.Equal(target.sources, source.sources) {
			return nil
		}
		for _, s := range source.sources {
			s.accessCount.Add(1)
		}
		old := target.sources
		target.core = source.core.Copy()
		target.sources = slices.Clone(source.sources)
		if target.components != source.components {
			target.componentNames = slices.Clone(source.componentNames)
		}
		target.components = source.components
		for _, s := range old {
			s.accessCount.Add(-1)
			if s.manager != nil {
				s.manager.removeUnusedLocked(s)
			}
		}
		m.changes().modify(target.name)
		m.log.Debug("field redefined", "field", target.name, "type", target.core.Type().String())
		return nil
	})
}

// markModifiedLocked records that f's parameters changed outside of
// Redefine.
func (m *Manager) markModifiedLocked(f *Field) {
	m.changes().modify(f.name)
}

// FindByName returns the field named name in this region.
func (m *Manager) FindByName(name string) (*Field, bool) {
	m.tree.mu.RLock()
	defer m.tree.mu.RUnlock()
	return m.findLocked(name)
}

func (m *Manager) findLocked(name string) (*Field, bool) {
	if item := m.byName.Get(nameItem{name: name}); item != nil {
		return item.(nameItem).field, true
	}
	return nil, false
}

// FindByNameComponent resolves "name" or "name.component". An exact name
// match wins; otherwise the text after the last dot must name a component
// by name or 1-based number. The component index is -1 for a whole field.
func (m *Manager) FindByNameComponent(ref string) (*Field, int, error) {
	m.tree.mu.RLock()
	defer m.tree.mu.RUnlock()
	return m.findByNameComponentLocked(ref)
}

func (m *Manager) findByNameComponentLocked(ref string) (*Field, int, error) {
	if f, ok := m.findLocked(ref); ok {
		return f, -1, nil
	}
	dot := strings.LastIndexByte(ref, '.')
	if dot <= 0 || dot == len(ref)-1 {
		return nil, 0, InvalidArgumentf("no field named %q", ref)
	}
	base, comp := ref[:dot], ref[dot+1:]
	f, ok := m.findLocked(base)
	if !ok {
		return nil, 0, InvalidArgumentf("no field named %q", base)
	}
	idx, ok := f.ComponentIndex(comp)
	if !ok {
		return nil, 0, InvalidArgumentf("field %q has no component %q", base, comp)
	}
	return f, idx, nil
}

// Fields returns every field of the region in name order.
func (m *Manager) Fields() []*Field {
	m.tree.mu.RLock()
	defer m.tree.mu.RUnlock()
	out := make([]*Field, 0, m.byName.Len())
	m.byName.Ascend(func(i btree.Item) bool {
		out = append(out, i.(nameItem).field)
		return true
	})
	return out
}

// FindField returns the first field, in name order, for which match is true.
func (m *Manager) FindField(match func(*Field) bool) (*Field, bool) {
	m.tree.mu.RLock()
	defer m.tree.mu.RUnlock()
	return m.findFieldLocked(match)
}

func (m *Manager) findFieldLocked(match func(*Field) bool) (*Field, bool) {
	var found *Field
	m.byName.Ascend(func(i btree.Item) bool {
		if f := i.(nameItem).field; match(f) {
			found = f
			return false
		}
		return true
	})
	return found, found != nil
}

// Len is the number of fields in the region.
func (m *Manager) Len() int {
	m.tree.mu.RLock()
	defer m.tree.mu.RUnlock()
	return m.byName.Len()
}

// Txn is the view of a region passed to Update. It is valid only until fn
// returns.
type Txn struct {
	m *Manager
}

func (tx Txn) FindByNameComponent(ref string) (*Field, int, error) {
	return tx.m.findByNameComponentLocked(ref)
}

func (tx Txn) FindField(match func(*Field) bool) (*Field, bool) {
	return tx.m.findFieldLocked(match)
}

// Create is Manager.Create inside the transaction.
func (tx Txn) Create(def Definition) (*Field, error) {
	return tx.m.createLocked(def)
}

// Update runs fn under one hold of the tree lock, so no rename, removal or
// creation lands between its lookups. Its changes commit together when fn
// returns, even if fn fails after creating a field. fn must not call
// methods that take the lock, such as Release.
func (m *Manager) Update(fn func(Txn) error) error {
	return m.mutate(func() error { return fn(Txn{m: m}) })
}
