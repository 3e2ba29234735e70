package view

import (
	"fmt"
	"maps"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/jask/livetree/internal/anim"
	"github.com/jask/livetree/internal/keypath"
	"github.com/jask/livetree/internal/resolve"
	"github.com/jask/livetree/internal/template"
	"github.com/jask/livetree/internal/viewmodel"
)

// Component places an inline component: a child Instance with its own
// store that shares the host's document, runloop and scheduler.
type Component struct {
	inst     *Instance
	frag     *Fragment
	tmpl     *template.Component
	instance *Instance

	bindings []*componentBinding
	// indexRefs maps child keypaths to the host index alias they mirror.
	indexRefs map[string]string
}

func newComponent(f *Fragment, t *template.Component) (*Component, error) {
	host := f.inst
	def, ok := host.components[t.Name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", t.Name, ErrUnknownComponent)
	}
	c := &Component{inst: host, frag: f, tmpl: t, indexRefs: map[string]string{}}

	id := uuid.NewString()
	child := &Instance{
		ID:                 id,
		vm:                 viewmodel.New(maps.Clone(def.Data), host.log),
		doc:                host.doc,
		rl:                 host.rl,
		scheduler:          host.scheduler,
		log:                host.log.With("component", t.Name),
		components:         host.components,
		decorators:         host.decorators,
		transitions:        host.transitions,
		transitionsEnabled: host.transitionsEnabled,
		handlers:           map[string][]*handler{},
		tweens:             map[string]*anim.Tween{},
		parent:             host,
		host:               f,
		component:          c,
		isolated:           def.Isolated,
	}
	child.retrier = &retrier{inst: child}
	host.rl.Watch(child.vm)
	host.rl.Watch(child.retrier)
	c.instance = child

	for _, a := range t.Attrs {
		if ref, ok := a.Ref(); ok {
			ref = keypath.Normalise(ref)
			if v, isAlias := f.indexValue(ref); isAlias {
				child.vm.Set(a.Name, v, true)
				c.indexRefs[a.Name] = ref
				continue
			}
			r, err := resolve.Ref(host, ref, f)
			if err != nil {
				return c, fmt.Errorf("component %s: resolve %q: %w", t.Name, ref, err)
			}
			if r.Resolved {
				child.vm.Set(a.Name, host.vm.Get(r.Keypath, viewmodel.Evaluated), true)
				c.bind(r.Keypath, a.Name)
			}
			continue
		}
		if v, ok := a.Static(); ok {
			child.vm.Set(a.Name, v, true)
			continue
		}
		host.log.Debug("ignoring mixed component attribute", "component", t.Name, "attr", a.Name)
	}

	root, err := newFragment(fragmentOptions{inst: child, owner: c, template: def.Template})
	child.root = root
	return c, err
}

// Instance returns the component's instance.
func (c *Component) Instance() *Instance { return c.instance }

// bind keeps parentKeypath in the host and childKeypath in the component
// in sync.
func (c *Component) bind(parentKeypath, childKeypath string) {
	for _, b := range c.bindings {
		if b.parentKeypath == parentKeypath && b.childKeypath == childKeypath {
			return
		}
	}
	b := &componentBinding{c: c, parentKeypath: parentKeypath, childKeypath: childKeypath}
	b.up = &bindingEnd{b: b, toParent: true}
	b.down = &bindingEnd{b: b}
	c.inst.vm.Register(parentKeypath, b.down)
	c.instance.vm.Register(childKeypath, b.up)
	c.bindings = append(c.bindings, b)
}

type componentBinding struct {
	c             *Component
	parentKeypath string
	childKeypath  string
	up, down      *bindingEnd
	updating      bool
}

type bindingEnd struct {
	b        *componentBinding
	toParent bool
}

func (e *bindingEnd) SetValue(v any) {
	b := e.b
	if b.updating {
		return
	}
	b.updating = true
	defer func() { b.updating = false }()

	store, kp := b.c.instance.vm, b.childKeypath
	if e.toParent {
		store, kp = b.c.inst.vm, b.parentKeypath
	}
	if !viewmodel.Identical(store.Get(kp, viewmodel.Evaluated), v) {
		store.Set(kp, v, false)
	}
}

func (c *Component) render() *html.Node {
	c.instance.rendered = true
	return c.instance.root.render()
}

func (c *Component) unrender(detach bool) {
	c.instance.root.unrender(detach)
	c.instance.rendered = false
}

func (c *Component) release() {
	for _, b := range c.bindings {
		c.inst.vm.Unregister(b.parentKeypath, b.down)
		c.instance.vm.Unregister(b.childKeypath, b.up)
	}
	c.instance.root.release()
}

func (c *Component) teardown() {
	child := c.instance
	for _, b := range c.bindings {
		c.inst.vm.Unregister(b.parentKeypath, b.down)
		child.vm.Unregister(b.childKeypath, b.up)
	}
	c.bindings = nil
	child.root.teardown()
	child.torndown = true
	c.inst.rl.Unwatch(child.vm)
	c.inst.rl.Unwatch(child.retrier)
}

func (c *Component) firstNode() *html.Node { return c.instance.root.firstNode() }

func (c *Component) nodes(out []*html.Node) []*html.Node { return c.instance.root.nodes(out) }

// rebind moves the host side of the component's bindings when the host
// fragment is rebound, and refreshes values mirrored from index aliases.
func (c *Component) rebind(oldKeypath, newKeypath string) {
	host, child := c.inst, c.instance
	for _, b := range c.bindings {
		kp, ok := keypath.Rebase(b.parentKeypath, oldKeypath, newKeypath)
		if !ok || kp == b.parentKeypath {
			continue
		}
		host.vm.Unregister(b.parentKeypath, b.down)
		b.parentKeypath = kp
		host.vm.Register(kp, b.down)
		b.down.SetValue(host.vm.Get(kp, viewmodel.Evaluated))
	}
	for childKeypath, alias := range c.indexRefs {
		if v, ok := c.frag.indexValue(alias); ok && !viewmodel.Identical(child.vm.Get(childKeypath, viewmodel.GetOptions{}), v) {
			child.vm.Set(childKeypath, v, false)
		}
	}
}

func (c *Component) findAll(q *Query) { c.instance.root.findAll(q) }

func (c *Component) findAllComponents(name string, out *[]*Instance) {
	if name == "" || name == c.tmpl.Name {
		*out = append(*out, c.instance)
	}
	c.instance.root.findAllComponents(name, out)
}

func (c *Component) text() string { return c.instance.root.text() }

// owner

func (c *Component) parentNode() *html.Node { return c.frag.parentNode() }

func (c *Component) findNextNode(*Fragment) *html.Node { return c.frag.findNextNode(c) }

func (c *Component) bubble() { c.frag.bubble() }
