package view

import (
	"slices"
	"sort"

	"golang.org/x/net/html"

	"github.com/jask/livetree/internal/dom"
)

// Query is the result of FindAll. A live query is kept up to date by
// elements as they render and unrender until it is cancelled.
type Query struct {
	inst  *Instance
	sel   *dom.Selector
	live  bool
	nodes []*html.Node
}

// Test reports whether n matches the query's selector.
func (q *Query) Test(n *html.Node) bool { return q.sel.Match(n) }

// Selector returns the selector source.
func (q *Query) Selector() string { return q.sel.String() }

// Live reports whether the query follows the output.
func (q *Query) Live() bool { return q.live }

// Nodes returns the matching nodes in document order. Nodes can move
// without entering or leaving the query, so the order is taken afresh.
func (q *Query) Nodes() []*html.Node {
	sort.SliceStable(q.nodes, func(i, j int) bool { return dom.Precedes(q.nodes[i], q.nodes[j]) })
	return slices.Clone(q.nodes)
}

// Len returns the number of matching nodes.
func (q *Query) Len() int { return len(q.nodes) }

// Cancel stops a live query from following the output.
func (q *Query) Cancel() {
	q.inst.queries = slices.DeleteFunc(q.inst.queries, func(x *Query) bool { return x == q })
	q.live = false
}

func (q *Query) add(n *html.Node) {
	if slices.Contains(q.nodes, n) {
		return
	}
	q.nodes = append(q.nodes, n)
}

func (q *Query) remove(n *html.Node) {
	if !q.live {
		return
	}
	q.nodes = slices.DeleteFunc(q.nodes, func(x *html.Node) bool { return x == n })
}
