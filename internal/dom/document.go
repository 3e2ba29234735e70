// Package dom is the output tree the view engine renders into. Nodes are
// golang.org/x/net/html nodes; the Document keeps the state a browser would
// keep beside them: namespaces, properties, listeners, focus and the
// metadata the view engine attaches to its elements.
package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Namespace URIs.
const (
	NamespaceHTML   = "http://www.w3.org/1999/xhtml"
	NamespaceSVG    = "http://www.w3.org/2000/svg"
	NamespaceMathML = "http://www.w3.org/1998/Math/MathML"
)

// Meta is the view-engine data attached to a rendered element.
type Meta struct {
	Proxy   any
	Keypath string
	Root    any
	Binding any
	Events  map[string]any
}

// Event is dispatched to listeners.
type Event struct {
	Type   string
	Target *html.Node
	Data   any
}

// Listener handles an event.
type Listener func(Event)

type listener struct{ fn Listener }

type nodeState struct {
	namespace string
	meta      *Meta
	props     map[string]any
	listeners map[string][]*listener
}

// Document creates nodes and owns their side state.
type Document struct {
	state  map[*html.Node]*nodeState
	active *html.Node
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{state: map[*html.Node]*nodeState{}}
}

func (d *Document) st(n *html.Node) *nodeState {
	s, ok := d.state[n]
	if !ok {
		s = &nodeState{namespace: NamespaceHTML}
		d.state[n] = s
	}
	return s
}

// CreateElement returns a detached element in namespace ns (HTML when empty).
func (d *Document) CreateElement(name, ns string) *html.Node {
	if ns == "" {
		ns = NamespaceHTML
	}
	n := &html.Node{Type: html.ElementNode, Data: name, DataAtom: atom.Lookup([]byte(name))}
	switch ns {
	case NamespaceSVG:
		n.Namespace = "svg"
	case NamespaceMathML:
		n.Namespace = "math"
	}
	d.st(n).namespace = ns
	return n
}

// CreateTextNode returns a detached text node.
func (d *Document) CreateTextNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// CreateFragment returns a container that holds nodes until they are
// inserted elsewhere; inserting it moves its children.
func (d *Document) CreateFragment() *html.Node {
	return &html.Node{Type: html.DocumentNode}
}

// NamespaceURI returns the namespace of an element.
func (d *Document) NamespaceURI(n *html.Node) string {
	if n == nil {
		return NamespaceHTML
	}
	if s, ok := d.state[n]; ok {
		return s.namespace
	}
	switch n.Namespace {
	case "svg":
		return NamespaceSVG
	case "math":
		return NamespaceMathML
	}
	return NamespaceHTML
}

// SetAttribute sets or replaces an attribute.
func (d *Document) SetAttribute(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// Attribute returns an attribute value.
func (d *Document) Attribute(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// RemoveAttribute deletes an attribute.
func (d *Document) RemoveAttribute(n *html.Node, name string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// SetProperty sets a live property such as value, checked or selected.
func (d *Document) SetProperty(n *html.Node, name string, v any) {
	s := d.st(n)
	if s.props == nil {
		s.props = map[string]any{}
	}
	s.props[name] = v
}

// Property returns a live property, or nil.
func (d *Document) Property(n *html.Node, name string) any {
	if s, ok := d.state[n]; ok {
		return s.props[name]
	}
	return nil
}

// BoolProperty returns a property as a bool.
func (d *Document) BoolProperty(n *html.Node, name string) bool {
	b, _ := d.Property(n, name).(bool)
	return b
}

// SetMeta attaches view-engine metadata to n.
func (d *Document) SetMeta(n *html.Node, m *Meta) { d.st(n).meta = m }

// MetaOf returns the metadata attached to n.
func (d *Document) MetaOf(n *html.Node) *Meta {
	if s, ok := d.state[n]; ok {
		return s.meta
	}
	return nil
}

// AddEventListener registers fn for events of type typ on n and returns a
// function that removes it.
func (d *Document) AddEventListener(n *html.Node, typ string, fn Listener) func() {
	s := d.st(n)
	if s.listeners == nil {
		s.listeners = map[string][]*listener{}
	}
	l := &listener{fn}
	s.listeners[typ] = append(s.listeners[typ], l)
	return func() {
		list := s.listeners[typ]
		for i, x := range list {
			if x == l {
				s.listeners[typ] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Dispatch delivers an event of type typ to n's listeners, then bubbles it
// to n's ancestors.
func (d *Document) Dispatch(n *html.Node, typ string, data any) {
	ev := Event{Type: typ, Target: n, Data: data}
	for cur := n; cur != nil; cur = cur.Parent {
		s, ok := d.state[cur]
		if !ok {
			continue
		}
		for _, l := range append([]*listener(nil), s.listeners[typ]...) {
			l.fn(ev)
		}
	}
}

// Focus makes n the active element.
func (d *Document) Focus(n *html.Node) { d.active = n }

// ActiveElement returns the focused element.
func (d *Document) ActiveElement() *html.Node { return d.active }

// Release drops the side state of n and its descendants.
func (d *Document) Release(n *html.Node) {
	delete(d.state, n)
	if d.active == n {
		d.active = nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.Release(c)
	}
}
