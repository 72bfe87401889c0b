// Package region arranges field managers in a tree. Each region owns a
// field manager and the mesh data its finite element fields read; fields
// of a child region may use fields of any ancestor.
package region

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/vk/fieldgrid/internal/ctxlog"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/fieldops"
	"github.com/vk/fieldgrid/internal/inmemorymesh"
)

// Region is a node of the region tree.
type Region struct {
	name    string
	parent  *Region
	manager *field.Manager
	store   *inmemorymesh.Store

	mu       sync.RWMutex
	children []*Region
}

// NewRoot creates a root region, logging through the context logger.
func NewRoot(ctx context.Context, name string) *Region {
	log := ctxlog.FromContext(ctx).With("region", name)
	return &Region{name: name, manager: field.NewManager(log), store: inmemorymesh.New()}
}

// CreateChild adds a child region with a name unique among its siblings.
func (r *Region) CreateChild(ctx context.Context, name string) (*Region, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid region name %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.children {
		if c.name == name {
			return nil, fmt.Errorf("region %q already has a child %q", r.Path(), name)
		}
	}
	child := &Region{name: name, parent: r, store: inmemorymesh.New()}
	child.manager = r.manager.NewChild(ctxlog.FromContext(ctx).With("region", child.Path()))
	r.children = append(r.children, child)
	return child, nil
}

func (r *Region) Name() string                { return r.name }
func (r *Region) Parent() *Region             { return r.parent }
func (r *Region) Manager() *field.Manager     { return r.manager }
func (r *Region) Store() *inmemorymesh.Store  { return r.store }
func (r *Region) Fields() fieldops.Module     { return fieldops.NewModule(r.manager) }
func (r *Region) NewCache() *field.Cache      { return r.manager.NewCache() }
func (r *Region) Generation() uint64          { return r.manager.Generation() }
func (r *Region) Root() *Region               { return r.ancestors()[0] }
func (r *Region) IsAncestorOf(o *Region) bool { return o != r && slices.Contains(o.ancestors(), r) }

// Children returns the child regions in creation order.
func (r *Region) Children() []*Region {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.children)
}

// ancestors lists the root first and r last.
func (r *Region) ancestors() []*Region {
	var out []*Region
	for a := r; a != nil; a = a.parent {
		out = append(out, a)
	}
	slices.Reverse(out)
	return out
}

// Path is the slash-separated path from the root, "/" for the root.
func (r *Region) Path() string {
	if r.parent == nil {
		return "/"
	}
	var names []string
	for _, a := range r.ancestors()[1:] {
		names = append(names, a.name)
	}
	return "/" + strings.Join(names, "/")
}

// FindChild resolves a relative slash-separated path.
func (r *Region) FindChild(path string) (*Region, bool) {
	cur := r
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		var next *Region
		for _, c := range cur.Children() {
			if c.name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// FindField resolves "name" or "name.component" in r, then in each
// ancestor in turn. The component index is -1 for a whole field.
func (r *Region) FindField(ref string) (*field.Field, int, error) {
	var firstErr error
	for a := r; a != nil; a = a.parent {
		f, comp, err := a.manager.FindByNameComponent(ref)
		if err == nil {
			return f, comp, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, 0, firstErr
}
