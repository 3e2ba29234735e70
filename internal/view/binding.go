package view

import (
	"slices"

	"github.com/jask/livetree/internal/dom"
)

// Binding keeps a form control and a keypath in sync in both directions.
// The store drives the control through the bound attribute; the control
// writes back on change and input events.
type Binding struct {
	el     *Element
	value  *attrValue
	prop   string
	remove []func()
}

func newBinding(e *Element) *Binding {
	prop := ""
	switch e.name {
	case "input":
		typ, _ := e.attrValue("type")
		if typ == "checkbox" || typ == "radio" {
			prop = "checked"
		} else {
			prop = "value"
		}
	case "textarea", "select":
		prop = "value"
	default:
		if e.contentEditable() {
			prop = "value"
		}
	}
	if prop == "" {
		return nil
	}
	a, ok := e.Attribute(prop)
	if !ok {
		return nil
	}
	v := a.bound()
	if v == nil || v.alias != "" {
		return nil
	}
	return &Binding{el: e, value: v, prop: prop}
}

// Keypath returns the bound keypath, binding an unresolved reference to
// the element's context.
func (b *Binding) Keypath() string { return b.value.forceBind() }

func (b *Binding) render() {
	doc, node := b.el.inst.doc, b.el.node
	for _, typ := range []string{"change", "input"} {
		b.remove = append(b.remove, doc.AddEventListener(node, typ, b.handle))
	}
	if form := b.el.form(); form != nil {
		form.formBindings = append(form.formBindings, b)
	}
}

func (b *Binding) unrender() {
	for _, remove := range b.remove {
		remove()
	}
	b.remove = nil
	if form := b.el.form(); form != nil {
		form.formBindings = slices.DeleteFunc(form.formBindings, func(x *Binding) bool { return x == b })
	}
}

// current reads the control's value.
func (b *Binding) current() any {
	doc, node := b.el.inst.doc, b.el.node
	switch {
	case b.prop == "checked":
		return doc.BoolProperty(node, "checked")
	case b.el.contentEditable():
		return dom.TextContent(node)
	}
	v := doc.Property(node, "value")
	if v == nil {
		return ""
	}
	return v
}

func (b *Binding) handle(dom.Event) {
	if b.el.node == nil {
		return
	}
	// Binding an unresolved reference pushes the store's value back into
	// the control, so the control is read first.
	v := b.current()
	kp := b.Keypath()
	inst := b.value.inst
	if err := inst.Set(kp, v); err != nil {
		inst.log.Error("binding update failed", "keypath", kp, "err", err)
	}
}

// reset restores the control's default and pushes it to the store.
func (b *Binding) reset() {
	doc, node := b.el.inst.doc, b.el.node
	if node == nil {
		return
	}
	if b.prop == "checked" {
		doc.SetProperty(node, "checked", doc.BoolProperty(node, "defaultChecked"))
	} else {
		doc.SetProperty(node, "value", doc.Property(node, "defaultValue"))
	}
	b.handle(dom.Event{Type: "reset", Target: node})
}
