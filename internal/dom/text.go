package dom

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/net/html"
)

// Theme holds the styles used to draw a tree in the terminal.
type Theme struct {
	Heading lipgloss.Style
	Strong  lipgloss.Style
	Em      lipgloss.Style
	Muted   lipgloss.Style
	Bullet  string
	// Class styles apply to elements carrying the class.
	Class map[string]lipgloss.Style
}

// DefaultTheme is a plain theme that works on dark and light terminals.
func DefaultTheme() Theme {
	return Theme{
		Heading: lipgloss.NewStyle().Bold(true).Underline(true),
		Strong:  lipgloss.NewStyle().Bold(true),
		Em:      lipgloss.NewStyle().Italic(true),
		Muted:   lipgloss.NewStyle().Faint(true),
		Bullet:  "• ",
		Class: map[string]lipgloss.Style{
			"done":     lipgloss.NewStyle().Strikethrough(true).Faint(true),
			"selected": lipgloss.NewStyle().Reverse(true),
		},
	}
}

var blockElements = map[string]bool{
	"div": true, "p": true, "ul": true, "ol": true, "li": true, "section": true,
	"header": true, "footer": true, "h1": true, "h2": true, "h3": true, "form": true,
	"table": true, "tr": true, "label": true, "svg": true,
}

// RenderText draws the tree below n as styled terminal lines, each clipped
// to width. Script and style content is skipped.
func RenderText(n *html.Node, width int, theme Theme) string {
	r := textRenderer{theme: theme}
	r.walk(n, lipgloss.NewStyle(), 0)
	r.flush()
	lines := r.lines
	if width > 0 {
		for i, l := range lines {
			lines[i] = ansi.Truncate(l, width, "…")
		}
	}
	return strings.Join(lines, "\n")
}

type textRenderer struct {
	theme Theme
	lines []string
	cur   strings.Builder
}

func (r *textRenderer) flush() {
	if r.cur.Len() == 0 {
		return
	}
	r.lines = append(r.lines, r.cur.String())
	r.cur.Reset()
}

func (r *textRenderer) walk(n *html.Node, style lipgloss.Style, depth int) {
	switch n.Type {
	case html.TextNode:
		text := strings.Join(strings.Fields(n.Data), " ")
		if text == "" {
			return
		}
		if r.cur.Len() == 0 {
			r.cur.WriteString(strings.Repeat("  ", max(depth-1, 0)))
		} else if strings.HasPrefix(n.Data, " ") || !strings.HasSuffix(r.cur.String(), " ") {
			r.cur.WriteString(" ")
		}
		r.cur.WriteString(style.Render(text))
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style":
			return
		case "br":
			r.flush()
			return
		case "input":
			r.input(n, depth)
			return
		}
	}

	style = r.styleFor(n, style)
	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		r.flush()
	}
	if n.Type == html.ElementNode && n.Data == "li" {
		r.cur.WriteString(strings.Repeat("  ", max(depth-1, 0)) + r.theme.Bullet)
	}
	next := depth
	if n.Type == html.ElementNode && (n.Data == "ul" || n.Data == "ol") {
		next++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c, style, next)
	}
	if block {
		r.flush()
	}
}

func (r *textRenderer) input(n *html.Node, depth int) {
	typ, val := "", ""
	for _, a := range n.Attr {
		switch a.Key {
		case "type":
			typ = a.Val
		case "value":
			val = a.Val
		}
	}
	if r.cur.Len() == 0 {
		r.cur.WriteString(strings.Repeat("  ", max(depth-1, 0)))
	}
	if typ == "checkbox" {
		mark := "[ ]"
		for _, a := range n.Attr {
			if a.Key == "checked" {
				mark = "[x]"
			}
		}
		r.cur.WriteString(mark + " ")
		return
	}
	r.cur.WriteString(r.theme.Muted.Render("[" + val + "]"))
}

func (r *textRenderer) styleFor(n *html.Node, base lipgloss.Style) lipgloss.Style {
	if n.Type != html.ElementNode {
		return base
	}
	style := base
	switch n.Data {
	case "h1", "h2", "h3":
		style = style.Inherit(r.theme.Heading)
	case "strong", "b":
		style = style.Inherit(r.theme.Strong)
	case "em", "i":
		style = style.Inherit(r.theme.Em)
	}
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, class := range strings.Fields(a.Val) {
			if s, ok := r.theme.Class[class]; ok {
				style = style.Inherit(s)
			}
		}
	}
	return style
}
