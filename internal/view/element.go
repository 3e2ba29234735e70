package view

import (
	"slices"
	"sort"

	"golang.org/x/net/html"

	"github.com/jask/livetree/internal/dom"
	"github.com/jask/livetree/internal/template"
	"github.com/jask/livetree/internal/viewmodel"
)

// Element is a rendered markup element.
type Element struct {
	inst   *Instance
	frag   *Fragment
	tmpl   *template.Element
	name   string
	parent *Element

	attrs    []*Attribute
	children *Fragment
	binding  *Binding
	node     *html.Node
	rendered bool
	// textOnly elements (script, style) render their children as text.
	textOnly bool
	// Children of a bound contenteditable element are owned by the binding.
	skipChildren bool

	listeners         []func()
	decoratorTeardown func()
	decoratorDone     bool
	transition        *Transition
	queries           []*Query

	// form elements track the bindings below them for reset.
	formBindings []*Binding
	// select elements track their options; options point back.
	options []*Element
	selectEl *Element
}

func newElement(f *Fragment, t *template.Element) (*Element, error) {
	e := &Element{inst: f.inst, frag: f, tmpl: t, name: t.Name, parent: f.element()}
	if e.name == "option" {
		for p := e.parent; p != nil; p = p.parent {
			if p.name == "select" {
				e.selectEl = p
				p.options = append(p.options, e)
				break
			}
		}
	}
	for _, at := range t.Attrs {
		a, err := newAttribute(e, at)
		if err != nil {
			return e, err
		}
		e.attrs = append(e.attrs, a)
	}
	if len(t.Children) > 0 {
		children, err := newFragment(fragmentOptions{inst: f.inst, parent: f, owner: e, template: t.Children})
		e.children = children
		if err != nil {
			return e, err
		}
	}
	e.binding = newBinding(e)
	return e, nil
}

// Node returns the rendered node, or nil.
func (e *Element) Node() *html.Node { return e.node }

// Name returns the element name.
func (e *Element) Name() string { return e.name }

// Attribute returns the named attribute.
func (e *Element) Attribute(name string) (*Attribute, bool) {
	for _, a := range e.attrs {
		if a.name == name {
			return a, true
		}
	}
	return nil, false
}

func (e *Element) attrValue(name string) (any, bool) {
	a, ok := e.Attribute(name)
	if !ok {
		return nil, false
	}
	return a.Value(), true
}

func (e *Element) contentEditable() bool {
	v, ok := e.attrValue("contenteditable")
	return ok && viewmodel.String(v) != "false"
}

func (e *Element) namespace() string {
	if v, ok := e.attrValue("xmlns"); ok {
		if ns := viewmodel.String(v); ns != "" {
			return ns
		}
	}
	if e.name == "svg" {
		return dom.NamespaceSVG
	}
	if e.parent != nil {
		if e.parent.name == "foreignObject" {
			return dom.NamespaceHTML
		}
		return e.inst.doc.NamespaceURI(e.parent.node)
	}
	for in := e.inst; in != nil; in = in.parent {
		if in.target != nil {
			return e.inst.doc.NamespaceURI(in.target)
		}
	}
	return dom.NamespaceHTML
}

func (e *Element) render() *html.Node {
	inst, doc := e.inst, e.inst.doc
	node := doc.CreateElement(e.name, e.namespace())
	e.node = node

	meta := &dom.Meta{Proxy: e, Keypath: e.frag.innerContext(), Root: inst, Events: map[string]any{}}
	for typ, name := range e.tmpl.On {
		meta.Events[typ] = name
	}
	doc.SetMeta(node, meta)

	for _, a := range e.attrs {
		a.apply(node)
	}

	if e.children != nil {
		switch {
		case e.name == "script", e.name == "style":
			e.textOnly = true
			dom.SetText(node, e.children.text())
		case e.binding != nil && e.contentEditable():
			e.skipChildren = true
		default:
			dom.AppendChild(node, e.children.render())
		}
	}

	types := make([]string, 0, len(e.tmpl.On))
	for typ := range e.tmpl.On {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		e.listeners = append(e.listeners, doc.AddEventListener(node, typ, e.proxy(e.tmpl.On[typ])))
	}

	if e.binding != nil {
		e.binding.render()
		meta.Binding = e.binding
	}

	switch e.name {
	case "option":
		e.syncSelected()
		doc.SetProperty(node, "defaultSelected", doc.BoolProperty(node, "selected"))
	case "form":
		e.listeners = append(e.listeners, doc.AddEventListener(node, "reset", func(dom.Event) { e.reset() }))
	case "input", "textarea":
		doc.SetProperty(node, "defaultValue", doc.Property(node, "value"))
		doc.SetProperty(node, "defaultChecked", doc.BoolProperty(node, "checked"))
	}

	if e.tmpl.Decorator != "" {
		e.decorate(e.tmpl.Decorator)
	}

	if inst.transitionsEnabled && e.tmpl.Intro != "" {
		t := newTransition(e, e.tmpl.Intro, true)
		e.transition = t
		inst.rl.RegisterTransition(t)
		inst.rl.ScheduleTask(t.Start)
	}

	if doc.BoolProperty(node, "autofocus") {
		inst.rl.ScheduleTask(func() {
			if e.node == node {
				doc.Focus(node)
			}
		})
	}

	e.updateLiveQueries()
	e.rendered = true
	return node
}

func (e *Element) proxy(name string) dom.Listener {
	return func(ev dom.Event) {
		kp := e.frag.innerContext()
		e.inst.Fire(name, Event{
			Node:     e.node,
			Keypath:  kp,
			Context:  e.inst.vm.Get(kp, viewmodel.Evaluated),
			Original: ev,
		})
	}
}

func (e *Element) decorate(name string) {
	fn, ok := e.inst.decorators[name]
	if !ok {
		e.inst.log.Warn("missing decorator", "name", name)
		return
	}
	e.decoratorDone = false
	node := e.node
	e.inst.rl.ScheduleTask(func() {
		if e.decoratorDone || e.node != node {
			return
		}
		e.decoratorTeardown = fn(node, e.inst)
	})
}

func (e *Element) updateLiveQueries() {
	for in := e.inst; in != nil; in = in.parent {
		for _, q := range in.queries {
			if q.Test(e.node) {
				q.add(e.node)
				e.queries = append(e.queries, q)
			}
		}
	}
}

// syncSelected marks an option selected when its value matches the value
// of its select.
func (e *Element) syncSelected() {
	sel := e.selectEl
	if sel == nil || e.node == nil {
		return
	}
	sv, ok := sel.attrValue("value")
	if !ok {
		return
	}
	ov := e.optionValue()
	selected := false
	if _, multiple := sel.Attribute("multiple"); multiple {
		if list, isList := viewmodel.AsList(sv); isList {
			for _, x := range list {
				if viewmodel.String(x) == ov {
					selected = true
					break
				}
			}
		} else {
			selected = viewmodel.String(sv) == ov
		}
	} else {
		selected = viewmodel.String(sv) == ov
	}
	doc := e.inst.doc
	doc.SetProperty(e.node, "selected", selected)
	if selected {
		doc.SetAttribute(e.node, "selected", "")
	} else {
		doc.RemoveAttribute(e.node, "selected")
	}
}

func (e *Element) optionValue() string {
	if v, ok := e.attrValue("value"); ok {
		return viewmodel.String(v)
	}
	if e.children != nil {
		return e.children.text()
	}
	return ""
}

func (e *Element) form() *Element {
	for p := e.parent; p != nil; p = p.parent {
		if p.name == "form" {
			return p
		}
	}
	return nil
}

// reset restores the default values of the bindings inside a form.
func (e *Element) reset() {
	for _, b := range slices.Clone(e.formBindings) {
		b.reset()
	}
}

func (e *Element) unrender(detach bool) {
	if !e.rendered {
		return
	}
	node := e.node
	for _, remove := range e.listeners {
		remove()
	}
	e.listeners = nil
	if e.binding != nil {
		e.binding.unrender()
	}
	e.decoratorDone = true
	if e.decoratorTeardown != nil {
		e.decoratorTeardown()
		e.decoratorTeardown = nil
	}
	if e.transition != nil {
		e.transition.Complete()
		e.transition = nil
	}
	for _, q := range e.queries {
		q.remove(node)
	}
	e.queries = nil
	if e.children != nil && !e.textOnly && !e.skipChildren {
		e.children.unrender(false)
	}
	if detach {
		dom.Detach(node)
		e.inst.doc.Release(node)
	}
	e.node = nil
	e.rendered = false
}

func (e *Element) release() {
	for _, a := range e.attrs {
		a.teardown()
	}
	if e.children != nil {
		e.children.release()
	}
}

func (e *Element) teardown() {
	for _, a := range e.attrs {
		a.teardown()
	}
	if e.children != nil {
		e.children.teardown()
	}
	if e.selectEl != nil {
		e.selectEl.options = slices.DeleteFunc(e.selectEl.options, func(o *Element) bool { return o == e })
	}
}

func (e *Element) firstNode() *html.Node { return e.node }

func (e *Element) nodes(out []*html.Node) []*html.Node {
	if e.node != nil {
		out = append(out, e.node)
	}
	return out
}

func (e *Element) rebind(oldKeypath, newKeypath string) {
	for _, a := range e.attrs {
		a.rebind(oldKeypath, newKeypath)
	}
	if e.children != nil {
		e.children.rebind(oldKeypath, newKeypath)
	}
	if e.node != nil {
		if m := e.inst.doc.MetaOf(e.node); m != nil {
			m.Keypath = e.frag.innerContext()
		}
	}
}

func (e *Element) findAll(q *Query) {
	if e.node == nil {
		return
	}
	if q.Test(e.node) {
		q.add(e.node)
		if q.live {
			e.queries = append(e.queries, q)
		}
	}
	if e.children != nil && !e.textOnly && !e.skipChildren {
		e.children.findAll(q)
	}
}

func (e *Element) findAllComponents(name string, out *[]*Instance) {
	if e.children != nil {
		e.children.findAllComponents(name, out)
	}
}

func (e *Element) text() string {
	if e.node != nil {
		return dom.OuterHTML(e.node)
	}
	inner := ""
	if e.children != nil {
		inner = e.children.text()
	}
	return "<" + e.name + ">" + inner + "</" + e.name + ">"
}

// owner

func (e *Element) parentNode() *html.Node            { return e.node }
func (e *Element) findNextNode(*Fragment) *html.Node { return nil }

func (e *Element) bubble() {
	if !e.textOnly || e.node == nil {
		return
	}
	if e.name == "script" {
		e.inst.log.Warn("script element updated; the code is not re-evaluated")
	}
	dom.SetText(e.node, e.children.text())
}
