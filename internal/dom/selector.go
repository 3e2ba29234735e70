package dom

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector matches elements against a CSS selector.
type Selector struct {
	source  string
	matcher cascadia.Matcher
}

// Compile parses a CSS selector.
func Compile(selector string) (*Selector, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", selector, err)
	}
	return &Selector{source: selector, matcher: m}, nil
}

// Match reports whether n is an element matching the selector.
func (s *Selector) Match(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && s.matcher.Match(n)
}

func (s *Selector) String() string { return s.source }
