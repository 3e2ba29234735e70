package view

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/jask/livetree/internal/dom"
	"github.com/jask/livetree/internal/keypath"
	"github.com/jask/livetree/internal/template"
	"github.com/jask/livetree/internal/viewmodel"
)

// Boolean attributes are present or absent and mirror a boolean property.
var booleanAttributes = map[string]bool{
	"autofocus": true, "checked": true, "disabled": true, "hidden": true,
	"multiple": true, "readonly": true, "required": true, "selected": true,
}

// Attribute is a rendered element attribute.
type Attribute struct {
	el    *Element
	name  string
	bare  bool
	parts []attrPart
}

type attrPart struct {
	text  string
	value *attrValue
}

// attrValue is an interpolator inside an attribute.
type attrValue struct {
	mustache
	attr  *Attribute
	value any
}

func (v *attrValue) SetValue(x any) {
	v.value = x
	v.attr.update()
}

func newAttribute(e *Element, t template.Attribute) (*Attribute, error) {
	a := &Attribute{el: e, name: t.Name, bare: t.Value == nil}
	for _, n := range t.Value {
		switch x := n.(type) {
		case *template.Text:
			a.parts = append(a.parts, attrPart{text: x.Value})
		case *template.Interpolator:
			v := &attrValue{attr: a}
			v.mustache = mustache{inst: e.inst, frag: e.frag, ref: keypath.Normalise(x.Ref), self: v}
			a.parts = append(a.parts, attrPart{value: v})
			if err := v.init(); err != nil {
				return a, err
			}
		}
	}
	return a, nil
}

// bound returns the interpolator when the attribute is a single reference.
func (a *Attribute) bound() *attrValue {
	if len(a.parts) != 1 {
		return nil
	}
	return a.parts[0].value
}

// Value returns the attribute's value: the raw value for a single
// reference, true for a bare attribute and a string otherwise.
func (a *Attribute) Value() any {
	if a.bare {
		return true
	}
	if v := a.bound(); v != nil {
		return v.value
	}
	var b strings.Builder
	for _, p := range a.parts {
		if p.value != nil {
			b.WriteString(viewmodel.String(p.value.value))
		} else {
			b.WriteString(p.text)
		}
	}
	return b.String()
}

func (a *Attribute) dynamic() bool {
	for _, p := range a.parts {
		if p.value != nil {
			return true
		}
	}
	return false
}

func (a *Attribute) update() {
	if a.el.node != nil {
		a.apply(a.el.node)
	}
}

func (a *Attribute) apply(node *html.Node) {
	e := a.el
	doc := e.inst.doc
	v := a.Value()

	if booleanAttributes[a.name] {
		on := a.bare || !a.dynamic() || viewmodel.Truthy(v)
		doc.SetProperty(node, a.name, on)
		if on {
			doc.SetAttribute(node, a.name, "")
		} else {
			doc.RemoveAttribute(node, a.name)
		}
		return
	}

	if a.name == "value" {
		switch {
		case e.contentEditable():
			if e.binding != nil {
				dom.SetText(node, viewmodel.String(v))
				return
			}
		case e.name == "select":
			doc.SetProperty(node, "value", v)
			if _, isList := viewmodel.AsList(v); !isList {
				doc.SetAttribute(node, "value", viewmodel.String(v))
			}
			for _, o := range e.options {
				o.syncSelected()
			}
			return
		case e.name == "input", e.name == "textarea", e.name == "option":
			doc.SetProperty(node, "value", viewmodel.String(v))
			if e.name == "textarea" {
				dom.SetText(node, viewmodel.String(v))
			}
		}
	}
	doc.SetAttribute(node, a.name, viewmodel.String(v))
	if e.name == "option" && a.name == "value" {
		e.syncSelected()
	}
}

func (a *Attribute) rebind(oldKeypath, newKeypath string) {
	for _, p := range a.parts {
		if p.value != nil {
			p.value.rebindMustache(oldKeypath, newKeypath)
		}
	}
}

func (a *Attribute) teardown() {
	for _, p := range a.parts {
		if p.value != nil {
			p.value.teardownMustache()
		}
	}
}
