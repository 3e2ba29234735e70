// Package template holds the parsed form of a view template. Templates are
// built in Go with the helpers below; there is no markup parser.
package template

import "strings"

// Node is one template item.
type Node interface {
	node()
}

// Text is static text.
type Text struct {
	Value string
}

// Interpolator renders the value of a reference as text.
type Interpolator struct {
	Ref string
}

// SectionKind selects how a section treats its value.
type SectionKind int

const (
	// KindAuto picks list, context or conditional behaviour from the value.
	KindAuto SectionKind = iota
	// KindIf renders once when the value is truthy.
	KindIf
	// KindUnless renders once when the value is falsy or empty.
	KindUnless
	// KindEach renders once per list item or object member.
	KindEach
	// KindWith renders once with the value as context.
	KindWith
)

func (k SectionKind) String() string {
	switch k {
	case KindIf:
		return "if"
	case KindUnless:
		return "unless"
	case KindEach:
		return "each"
	case KindWith:
		return "with"
	}
	return "auto"
}

// Section is a block rendered zero or more times depending on its value.
type Section struct {
	Ref      string
	Kind     SectionKind
	IndexRef string
	Children []Node
}

// Attribute is an element attribute. A nil Value is a bare boolean
// attribute.
type Attribute struct {
	Name  string
	Value []Node
}

// Static returns the attribute value when it contains no references.
func (a Attribute) Static() (string, bool) {
	var b strings.Builder
	for _, n := range a.Value {
		t, ok := n.(*Text)
		if !ok {
			return "", false
		}
		b.WriteString(t.Value)
	}
	return b.String(), true
}

// Ref returns the reference when the value is a single interpolator.
func (a Attribute) Ref() (string, bool) {
	if len(a.Value) != 1 {
		return "", false
	}
	i, ok := a.Value[0].(*Interpolator)
	if !ok {
		return "", false
	}
	return i.Ref, true
}

// Element is a markup element.
type Element struct {
	Name     string
	Attrs    []Attribute
	Children []Node
	// On maps DOM event types to the instance event fired for them.
	On        map[string]string
	Decorator string
	Intro     string
}

// Attr returns the named attribute.
func (e *Element) Attr(name string) (Attribute, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Component places a registered component. Attributes that are a single
// interpolator bind the component's data to the host's in both directions;
// other attributes seed it.
type Component struct {
	Name  string
	Attrs []Attribute
}

func (*Text) node()         {}
func (*Interpolator) node() {}
func (*Section) node()      {}
func (*Element) node()      {}
func (*Component) node()    {}

// T returns static text.
func T(s string) *Text { return &Text{Value: s} }

// I returns an interpolator for ref.
func I(ref string) *Interpolator { return &Interpolator{Ref: ref} }

// Each returns a list section. indexRef may be empty.
func Each(ref, indexRef string, children ...Node) *Section {
	return &Section{Ref: ref, Kind: KindEach, IndexRef: indexRef, Children: children}
}

// If returns a conditional section.
func If(ref string, children ...Node) *Section {
	return &Section{Ref: ref, Kind: KindIf, Children: children}
}

// Unless returns an inverted section.
func Unless(ref string, children ...Node) *Section {
	return &Section{Ref: ref, Kind: KindUnless, Children: children}
}

// With returns a context section.
func With(ref string, children ...Node) *Section {
	return &Section{Ref: ref, Kind: KindWith, Children: children}
}

// Sec returns a section whose behaviour follows its value.
func Sec(ref string, children ...Node) *Section {
	return &Section{Ref: ref, Children: children}
}

// El returns an element with children and no attributes.
func El(name string, children ...Node) *Element {
	return &Element{Name: name, Children: children}
}

// A returns an attribute whose value is the concatenation of parts.
func A(name string, parts ...Node) Attribute {
	return Attribute{Name: name, Value: parts}
}

// Bool returns a bare boolean attribute.
func Bool(name string) Attribute { return Attribute{Name: name} }

// With attributes.
func (e *Element) With(attrs ...Attribute) *Element {
	e.Attrs = append(e.Attrs, attrs...)
	return e
}

// Proxy adds a proxy event: DOM events of type typ fire name on the instance.
func (e *Element) Proxy(typ, name string) *Element {
	if e.On == nil {
		e.On = map[string]string{}
	}
	e.On[typ] = name
	return e
}

// Comp returns a component placement.
func Comp(name string, attrs ...Attribute) *Component {
	return &Component{Name: name, Attrs: attrs}
}

// Walk calls fn for every node below nodes, depth first. Returning false
// skips the children of a node.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		switch x := n.(type) {
		case *Section:
			Walk(x.Children, fn)
		case *Element:
			for _, a := range x.Attrs {
				Walk(a.Value, fn)
			}
			Walk(x.Children, fn)
		case *Component:
			for _, a := range x.Attrs {
				Walk(a.Value, fn)
			}
		}
	}
}

// Refs returns every reference used below nodes, in order of appearance.
func Refs(nodes []Node) []string {
	var out []string
	Walk(nodes, func(n Node) bool {
		switch x := n.(type) {
		case *Interpolator:
			out = append(out, x.Ref)
		case *Section:
			out = append(out, x.Ref)
		}
		return true
	})
	return out
}
