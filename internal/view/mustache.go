package view

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/jask/livetree/internal/dom"
	"github.com/jask/livetree/internal/keypath"
	"github.com/jask/livetree/internal/resolve"
	"github.com/jask/livetree/internal/viewmodel"
)

// mustache is the reference-tracking part shared by interpolators,
// sections and attribute values.
type mustache struct {
	inst *Instance
	frag *Fragment
	ref  string
	self viewmodel.Dependant

	keypath  string
	resolved bool
	// alias is set when ref names an index alias of an enclosing section.
	alias    string
	torndown bool
}

func (m *mustache) init() error {
	if v, ok := m.frag.indexValue(m.ref); ok {
		m.alias = m.ref
		m.self.SetValue(v)
		return nil
	}
	r, err := resolve.Ref(m.inst, m.ref, m.frag)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", m.ref, err)
	}
	if !r.Resolved {
		m.inst.addUnresolved(m)
		return nil
	}
	m.bind(r.Keypath)
	return nil
}

func (m *mustache) bind(kp string) {
	m.keypath = kp
	m.resolved = true
	m.inst.vm.Register(kp, m.self)
	m.self.SetValue(m.inst.vm.Get(kp, viewmodel.Evaluated))
}

// retry attempts to resolve a reference that was unresolved. It reports
// whether the reference is now bound.
func (m *mustache) retry() (bool, error) {
	if m.torndown || m.resolved {
		return false, nil
	}
	r, err := resolve.Ref(m.inst, m.ref, m.frag)
	if err != nil {
		return false, fmt.Errorf("resolve %q: %w", m.ref, err)
	}
	if !r.Resolved {
		return false, nil
	}
	m.bind(r.Keypath)
	return true, nil
}

func (m *mustache) rebindMustache(oldKeypath, newKeypath string) {
	if m.alias != "" {
		v, _ := m.frag.indexValue(m.alias)
		m.self.SetValue(v)
		return
	}
	if !m.resolved {
		return
	}
	kp, ok := keypath.Rebase(m.keypath, oldKeypath, newKeypath)
	if !ok || kp == m.keypath {
		return
	}
	m.inst.vm.Unregister(m.keypath, m.self)
	m.keypath = kp
	m.inst.vm.Register(kp, m.self)
	m.self.SetValue(m.inst.vm.Get(kp, viewmodel.Evaluated))
}

func (m *mustache) teardownMustache() {
	if m.torndown {
		return
	}
	m.torndown = true
	if m.resolved {
		m.inst.vm.Unregister(m.keypath, m.self)
	} else if m.alias == "" {
		m.inst.removeUnresolved(m)
	}
}

// forceBind binds an unresolved reference to the inner context, for
// two-way bindings that must write somewhere.
func (m *mustache) forceBind() string {
	if !m.resolved && m.alias == "" {
		m.inst.removeUnresolved(m)
		m.bind(keypath.Join(m.frag.innerContext(), m.ref))
	}
	return m.keypath
}

// Text is static text.
type Text struct {
	value string
	frag  *Fragment
	node  *html.Node
}

func (t *Text) render() *html.Node {
	t.node = t.frag.inst.doc.CreateTextNode(t.value)
	return t.node
}

func (t *Text) unrender(detach bool) {
	if detach && t.node != nil {
		dom.Detach(t.node)
	}
	t.node = nil
}

func (t *Text) release()              {}
func (t *Text) teardown()             {}
func (t *Text) firstNode() *html.Node { return t.node }

func (t *Text) nodes(out []*html.Node) []*html.Node {
	if t.node != nil {
		out = append(out, t.node)
	}
	return out
}

func (t *Text) rebind(string, string)                  {}
func (t *Text) findAll(*Query)                         {}
func (t *Text) findAllComponents(string, *[]*Instance) {}
func (t *Text) text() string                           { return t.value }

// Interpolator renders a value as a text node.
type Interpolator struct {
	mustache
	value any
	node  *html.Node
}

func newInterpolator(f *Fragment, ref string) (*Interpolator, error) {
	i := &Interpolator{}
	i.mustache = mustache{inst: f.inst, frag: f, ref: keypath.Normalise(ref), self: i}
	return i, i.init()
}

// SetValue implements viewmodel.Dependant.
func (i *Interpolator) SetValue(v any) {
	i.value = v
	if i.node != nil {
		i.node.Data = viewmodel.String(v)
	}
	i.frag.bubble()
}

func (i *Interpolator) render() *html.Node {
	i.node = i.inst.doc.CreateTextNode(viewmodel.String(i.value))
	return i.node
}

func (i *Interpolator) unrender(detach bool) {
	if detach && i.node != nil {
		dom.Detach(i.node)
	}
	i.node = nil
}

func (i *Interpolator) release()              { i.teardownMustache() }
func (i *Interpolator) teardown()             { i.teardownMustache() }
func (i *Interpolator) firstNode() *html.Node { return i.node }

func (i *Interpolator) nodes(out []*html.Node) []*html.Node {
	if i.node != nil {
		out = append(out, i.node)
	}
	return out
}

func (i *Interpolator) rebind(oldKeypath, newKeypath string) {
	i.rebindMustache(oldKeypath, newKeypath)
}

func (i *Interpolator) findAll(*Query)                         {}
func (i *Interpolator) findAllComponents(string, *[]*Instance) {}
func (i *Interpolator) text() string                           { return viewmodel.String(i.value) }
