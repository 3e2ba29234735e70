package view

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/jask/livetree/internal/dom"
	"github.com/jask/livetree/internal/keypath"
	"github.com/jask/livetree/internal/resolve"
	"github.com/jask/livetree/internal/template"
)

// item is anything a fragment holds.
type item interface {
	render() *html.Node
	unrender(detach bool)
	// release stops listening to the store but keeps the rendered nodes, so
	// an item staged for removal can still be unrendered later.
	release()
	teardown()
	firstNode() *html.Node
	nodes(out []*html.Node) []*html.Node
	rebind(oldKeypath, newKeypath string)
	findAll(q *Query)
	findAllComponents(name string, out *[]*Instance)
	text() string
}

// owner holds a fragment and places its nodes.
type owner interface {
	parentNode() *html.Node
	findNextNode(f *Fragment) *html.Node
	bubble()
}

// Fragment is a rendered piece of template with its own scope. Section
// fragments are bound to a context keypath; element children and component
// roots are not.
type Fragment struct {
	inst   *Instance
	parent *Fragment
	owner  owner

	context    string
	hasContext bool
	// index is the fragment's position in its section.
	index    int
	indexRef string
	// key is set for object iteration, where the index ref names a key.
	key   string
	isKey bool

	items    []item
	rendered bool
}

type fragmentOptions struct {
	inst       *Instance
	parent     *Fragment
	owner      owner
	template   []template.Node
	context    string
	hasContext bool
	index      int
	indexRef   string
	key        string
	isKey      bool
}

func newFragment(o fragmentOptions) (*Fragment, error) {
	f := &Fragment{
		inst:       o.inst,
		parent:     o.parent,
		owner:      o.owner,
		context:    o.context,
		hasContext: o.hasContext,
		index:      o.index,
		indexRef:   o.indexRef,
		key:        o.key,
		isKey:      o.isKey,
	}
	for _, n := range o.template {
		it, err := f.createItem(n)
		if err != nil {
			return f, err
		}
		f.items = append(f.items, it)
	}
	return f, nil
}

func (f *Fragment) createItem(n template.Node) (item, error) {
	switch x := n.(type) {
	case *template.Text:
		return &Text{value: x.Value, frag: f}, nil
	case *template.Interpolator:
		return newInterpolator(f, x.Ref)
	case *template.Section:
		return newSection(f, x)
	case *template.Element:
		return newElement(f, x)
	case *template.Component:
		return newComponent(f, x)
	}
	return nil, fmt.Errorf("unsupported template node %T", n)
}

// Scope

func (f *Fragment) Context() (string, bool) { return f.context, f.hasContext }

func (f *Fragment) ParentScope() resolve.Scope {
	if f.parent == nil {
		return nil
	}
	return f.parent
}

// IndexRefs returns the index aliases visible from f, nearest first.
func (f *Fragment) IndexRefs() map[string]int {
	var out map[string]int
	for s := f; s != nil; s = s.parent {
		if s.indexRef == "" {
			continue
		}
		if out == nil {
			out = map[string]int{}
		}
		if _, ok := out[s.indexRef]; !ok {
			out[s.indexRef] = s.index
		}
	}
	return out
}

// indexValue returns the value of the index alias name visible from f.
func (f *Fragment) indexValue(name string) (any, bool) {
	for s := f; s != nil; s = s.parent {
		if s.indexRef != name {
			continue
		}
		if s.isKey {
			return s.key, true
		}
		return s.index, true
	}
	return nil, false
}

// innerContext is the nearest context keypath.
func (f *Fragment) innerContext() string { return resolve.InnerContext(f) }

func (f *Fragment) render() *html.Node {
	container := f.inst.doc.CreateFragment()
	for _, it := range f.items {
		if n := it.render(); n != nil {
			dom.AppendChild(container, n)
		}
	}
	f.rendered = true
	return container
}

func (f *Fragment) unrender(detach bool) {
	if !f.rendered {
		return
	}
	for _, it := range f.items {
		it.unrender(detach)
	}
	f.rendered = false
}

func (f *Fragment) release() {
	for _, it := range f.items {
		it.release()
	}
}

func (f *Fragment) teardown() {
	for _, it := range f.items {
		it.teardown()
	}
}

func (f *Fragment) firstNode() *html.Node {
	for _, it := range f.items {
		if n := it.firstNode(); n != nil {
			return n
		}
	}
	return nil
}

func (f *Fragment) nodes(out []*html.Node) []*html.Node {
	for _, it := range f.items {
		out = it.nodes(out)
	}
	return out
}

// findNextNode returns the first node after it, looking past the end of
// the fragment into its owner.
func (f *Fragment) findNextNode(it item) *html.Node {
	after := false
	for _, x := range f.items {
		if after {
			if n := x.firstNode(); n != nil {
				return n
			}
		}
		if x == it {
			after = true
		}
	}
	return f.owner.findNextNode(f)
}

func (f *Fragment) parentNode() *html.Node { return f.owner.parentNode() }

func (f *Fragment) bubble() { f.owner.bubble() }

// rebindTo moves a section fragment to a new position and context.
func (f *Fragment) rebindTo(index int, context string) {
	f.index = index
	f.rebind(f.context, context)
}

func (f *Fragment) rebind(oldKeypath, newKeypath string) {
	if f.hasContext {
		if kp, ok := keypath.Rebase(f.context, oldKeypath, newKeypath); ok {
			f.context = kp
		}
	}
	for _, it := range f.items {
		it.rebind(oldKeypath, newKeypath)
	}
}

func (f *Fragment) findAll(q *Query) {
	for _, it := range f.items {
		it.findAll(q)
	}
}

func (f *Fragment) findAllComponents(name string, out *[]*Instance) {
	for _, it := range f.items {
		it.findAllComponents(name, out)
	}
}

func (f *Fragment) text() string {
	var b strings.Builder
	for _, it := range f.items {
		b.WriteString(it.text())
	}
	return b.String()
}

// element returns the nearest enclosing element.
func (f *Fragment) element() *Element {
	switch o := f.owner.(type) {
	case *Element:
		return o
	case *Section:
		return o.frag.element()
	case *Component:
		return o.frag.element()
	}
	return nil
}
