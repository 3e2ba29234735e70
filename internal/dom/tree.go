package dom

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Detach removes n from its parent, if any.
func Detach(n *html.Node) *html.Node {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	return n
}

// InsertBefore inserts n into parent before ref, or at the end when ref is
// nil. A fragment container is replaced by its children.
func InsertBefore(parent, n, ref *html.Node) {
	if ref != nil && ref.Parent != parent {
		ref = nil
	}
	if n.Type == html.DocumentNode {
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
			parent.InsertBefore(c, ref)
		}
		return
	}
	Detach(n)
	parent.InsertBefore(n, ref)
}

// AppendChild appends n to parent, moving it if it is attached elsewhere.
func AppendChild(parent, n *html.Node) { InsertBefore(parent, n, nil) }

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// TextContent concatenates the text below n.
func TextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(TextContent(c))
	}
	return b.String()
}

// OuterHTML serialises n.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// InnerHTML serialises the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// Precedes reports whether a comes before b in document order.
func Precedes(a, b *html.Node) bool {
	if a == b {
		return false
	}
	pa, pb := path(a), path(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] == pb[i] {
			continue
		}
		if i == 0 {
			return false
		}
		for c := pa[i]; c != nil; c = c.NextSibling {
			if c == pb[i] {
				return true
			}
		}
		return false
	}
	// An ancestor precedes its descendants.
	return len(pa) < len(pb)
}

func path(n *html.Node) []*html.Node {
	var out []*html.Node
	for ; n != nil; n = n.Parent {
		out = append(out, n)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// SetStyle sets one declaration in the style attribute of n.
func SetStyle(n *html.Node, prop, value string) {
	var decls []string
	found := false
	for i, a := range n.Attr {
		if a.Key != "style" {
			continue
		}
		for _, d := range strings.Split(a.Val, ";") {
			k, _, ok := strings.Cut(d, ":")
			if !ok {
				continue
			}
			if strings.TrimSpace(k) == prop {
				d = prop + ": " + value
				found = true
			}
			decls = append(decls, strings.TrimSpace(d))
		}
		if !found {
			decls = append(decls, prop+": "+value)
		}
		n.Attr[i].Val = strings.Join(decls, "; ")
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: prop + ": " + value})
}

// Style returns one declaration from the style attribute of n.
func Style(n *html.Node, prop string) string {
	for _, a := range n.Attr {
		if a.Key != "style" {
			continue
		}
		for _, d := range strings.Split(a.Val, ";") {
			if k, v, ok := strings.Cut(d, ":"); ok && strings.TrimSpace(k) == prop {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}
