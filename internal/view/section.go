package view

import (
	"slices"

	"golang.org/x/net/html"

	"github.com/jask/livetree/internal/dom"
	"github.com/jask/livetree/internal/keypath"
	"github.com/jask/livetree/internal/template"
	"github.com/jask/livetree/internal/viewmodel"
)

type sectionMode int

const (
	modeNone sectionMode = iota
	modeList
	modeObject
	modeContext
	modeConditional
)

// Section renders its children zero or more times depending on its value.
//
// Structural changes are staged in fragmentsToAdd and fragmentsToRemove and
// applied to the output tree by Update, which the runloop calls once per
// batch.
type Section struct {
	mustache
	tmpl     *template.Section
	inverted bool
	mode     sectionMode
	keys     []string

	fragments         []*Fragment
	fragmentsToAdd    []*Fragment
	fragmentsToRemove []*Fragment
	length            int
	rendered          bool

	// A value that arrives while another is being applied is queued and
	// applied afterwards. Only the latest queued value is kept.
	updating bool
	next     any
	hasNext  bool
}

func newSection(f *Fragment, t *template.Section) (*Section, error) {
	s := &Section{tmpl: t, inverted: t.Kind == template.KindUnless}
	s.mustache = mustache{inst: f.inst, frag: f, ref: keypath.Normalise(t.Ref), self: s}
	if err := s.init(); err != nil {
		return s, err
	}
	if !s.resolved && s.alias == "" {
		s.SetValue(nil)
	}
	return s, nil
}

// Len returns the number of fragments.
func (s *Section) Len() int { return s.length }

// Fragments returns the current fragments in order.
func (s *Section) Fragments() []*Fragment { return slices.Clone(s.fragments) }

// SetValue implements viewmodel.Dependant.
func (s *Section) SetValue(v any) {
	s.next, s.hasNext = v, true
	if s.updating {
		return
	}
	s.updating = true
	for s.hasNext {
		v := s.next
		s.next, s.hasNext = nil, false
		s.evaluate(v)
	}
	s.updating = false
	s.stage()
}

func (s *Section) stage() {
	if s.rendered && (len(s.fragmentsToAdd) > 0 || len(s.fragmentsToRemove) > 0) {
		s.inst.rl.AddView(s)
	}
}

func (s *Section) classify(v any) (sectionMode, int) {
	if s.inverted {
		return modeConditional, count(!viewmodel.Truthy(v) || viewmodel.IsEmpty(v))
	}
	_, isList := viewmodel.AsList(v)
	present := viewmodel.Truthy(v) && !viewmodel.IsEmpty(v)
	switch s.tmpl.Kind {
	case template.KindIf:
		return modeConditional, count(present)
	case template.KindWith:
		return modeContext, count(present)
	case template.KindEach:
		switch {
		case isList:
			return modeList, 0
		case viewmodel.IsObject(v):
			return modeObject, 0
		}
		return modeConditional, count(viewmodel.Truthy(v))
	}
	switch {
	case isList:
		return modeList, 0
	case viewmodel.IsObject(v) && s.tmpl.IndexRef != "":
		return modeObject, 0
	case viewmodel.IsObject(v):
		return modeContext, 1
	}
	return modeConditional, count(viewmodel.Truthy(v))
}

func count(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Section) evaluate(v any) {
	mode, n := s.classify(v)
	if mode != s.mode {
		s.removeFrom(0)
		s.keys = nil
		s.mode = mode
	}
	switch mode {
	case modeList:
		list, _ := viewmodel.AsList(v)
		s.resize(len(list), s.listFragment)
	case modeObject:
		keys := viewmodel.Keys(v)
		if !slices.Equal(keys, s.keys) {
			s.removeFrom(0)
			for i, k := range keys {
				s.add(fragmentOptions{
					context: keypath.Join(s.keypath, k), hasContext: true,
					index: i, indexRef: s.tmpl.IndexRef, key: k, isKey: true,
				})
			}
			s.keys = keys
		}
	case modeContext:
		s.resize(n, func(int) fragmentOptions {
			return fragmentOptions{context: s.keypath, hasContext: true}
		})
	case modeConditional:
		s.resize(n, func(int) fragmentOptions { return fragmentOptions{} })
	}
}

func (s *Section) listFragment(i int) fragmentOptions {
	return fragmentOptions{
		context:    keypath.Child(s.keypath, i),
		hasContext: true,
		index:      i,
		indexRef:   s.tmpl.IndexRef,
	}
}

func (s *Section) resize(n int, opts func(i int) fragmentOptions) {
	if n < s.length {
		s.removeFrom(n)
	}
	for i := s.length; i < n; i++ {
		s.add(opts(i))
	}
}

// removeFrom stages every fragment from position n onwards for removal.
func (s *Section) removeFrom(n int) {
	if n >= len(s.fragments) {
		return
	}
	s.remove(s.fragments[n:]...)
	s.fragments = s.fragments[:n:n]
	s.length = n
}

// remove stages fragments for removal. They stop listening to the store
// at once; their nodes stay until Update.
func (s *Section) remove(fs ...*Fragment) {
	for _, f := range fs {
		s.fragmentsToAdd = slices.DeleteFunc(s.fragmentsToAdd, func(x *Fragment) bool { return x == f })
		f.release()
		s.fragmentsToRemove = append(s.fragmentsToRemove, f)
	}
}

// add creates a fragment at the end of the section.
func (s *Section) add(o fragmentOptions) {
	o.inst, o.parent, o.owner, o.template = s.inst, s.frag, s, s.tmpl.Children
	f, err := newFragment(o)
	if err != nil {
		s.inst.rl.Fail(err)
	}
	s.fragments = append(s.fragments, f)
	s.fragmentsToAdd = append(s.fragmentsToAdd, f)
	s.length++
}

// Splice follows a positional edit of the array: fragments before the
// edit are left alone, removed ones are torn down and later ones are
// rebound to their new index.
func (s *Section) Splice(sum viewmodel.SpliceSummary) {
	if s.mode != modeList || s.updating {
		s.SetValue(s.inst.vm.Get(s.keypath, viewmodel.Evaluated))
		return
	}
	start := min(sum.Start, s.length)
	removed := min(sum.Removed, s.length-start)
	balance := sum.Added - removed

	tail := slices.Clone(s.fragments[start+removed:])
	s.remove(s.fragments[start : start+removed]...)
	s.fragments = s.fragments[:start:start]
	s.length = start

	for i := range sum.Added {
		s.add(s.listFragment(start + i))
	}
	for _, f := range tail {
		i := f.index + balance
		f.rebindTo(i, keypath.Child(s.keypath, i))
		s.fragments = append(s.fragments, f)
		s.length++
	}
	s.stage()
}

// Merge follows a reordering of the array. newIndices maps each old
// position to its new one, or -1 for removed items.
func (s *Section) Merge(newIndices []int) {
	if s.mode != modeList || s.updating {
		s.SetValue(s.inst.vm.Get(s.keypath, viewmodel.Evaluated))
		return
	}
	list, _ := viewmodel.AsList(s.inst.vm.Get(s.keypath, viewmodel.Evaluated))
	next := make([]*Fragment, len(list))
	for i, f := range s.fragments {
		j := -1
		if i < len(newIndices) {
			j = newIndices[i]
		}
		if j < 0 || j >= len(next) || next[j] != nil {
			s.remove(f)
			continue
		}
		next[j] = f
		if j != i {
			f.rebindTo(j, keypath.Child(s.keypath, j))
		}
	}

	s.fragments, s.length = nil, 0
	for j, f := range next {
		if f == nil {
			s.add(s.listFragment(j))
			continue
		}
		s.fragments = append(s.fragments, f)
		s.length++
	}
	if s.rendered {
		s.inst.rl.AddView(s)
	}
}

// Update applies staged changes to the output tree: removed fragments are
// unrendered, new ones rendered, and nodes that are out of order moved.
func (s *Section) Update() {
	for _, f := range s.fragmentsToRemove {
		f.unrender(true)
		f.teardown()
	}
	s.fragmentsToRemove = nil
	s.fragmentsToAdd = nil
	if !s.rendered {
		return
	}
	parent := s.frag.parentNode()
	if parent == nil {
		return
	}

	anchor := s.frag.findNextNode(s)
	for i := len(s.fragments) - 1; i >= 0; i-- {
		f := s.fragments[i]
		if !f.rendered {
			dom.InsertBefore(parent, f.render(), anchor)
		} else if nodes := f.nodes(nil); len(nodes) > 0 {
			last := nodes[len(nodes)-1]
			if last.Parent != parent || last.NextSibling != anchor {
				for _, n := range nodes {
					dom.InsertBefore(parent, n, anchor)
				}
			}
		}
		if n := f.firstNode(); n != nil {
			anchor = n
		}
	}
	s.frag.bubble()
}

func (s *Section) render() *html.Node {
	for _, f := range s.fragmentsToRemove {
		f.teardown()
	}
	s.fragmentsToRemove = nil
	s.fragmentsToAdd = nil

	container := s.inst.doc.CreateFragment()
	for _, f := range s.fragments {
		dom.AppendChild(container, f.render())
	}
	s.rendered = true
	return container
}

func (s *Section) unrender(detach bool) {
	for _, f := range s.fragments {
		f.unrender(detach)
	}
	for _, f := range s.fragmentsToRemove {
		f.unrender(detach)
	}
	s.rendered = false
}

func (s *Section) release() {
	s.teardownMustache()
	for _, f := range s.fragments {
		f.release()
	}
}

func (s *Section) teardown() {
	s.teardownMustache()
	for _, f := range s.fragments {
		f.teardown()
	}
	for _, f := range s.fragmentsToRemove {
		f.teardown()
	}
	s.fragments, s.fragmentsToAdd, s.fragmentsToRemove = nil, nil, nil
	s.length = 0
}

func (s *Section) firstNode() *html.Node {
	for _, f := range s.fragments {
		if n := f.firstNode(); n != nil {
			return n
		}
	}
	return nil
}

func (s *Section) nodes(out []*html.Node) []*html.Node {
	for _, f := range s.fragments {
		out = f.nodes(out)
	}
	return out
}

// owner

func (s *Section) parentNode() *html.Node { return s.frag.parentNode() }

func (s *Section) findNextNode(f *Fragment) *html.Node {
	i := slices.Index(s.fragments, f)
	if i >= 0 {
		for _, next := range s.fragments[i+1:] {
			if n := next.firstNode(); n != nil {
				return n
			}
		}
	}
	return s.frag.findNextNode(s)
}

func (s *Section) bubble() { s.frag.bubble() }

func (s *Section) rebind(oldKeypath, newKeypath string) {
	for _, f := range s.fragments {
		f.rebind(oldKeypath, newKeypath)
	}
	s.rebindMustache(oldKeypath, newKeypath)
}

func (s *Section) findAll(q *Query) {
	for _, f := range s.fragments {
		if f.rendered {
			f.findAll(q)
		}
	}
}

func (s *Section) findAllComponents(name string, out *[]*Instance) {
	for _, f := range s.fragments {
		f.findAllComponents(name, out)
	}
}

func (s *Section) text() string {
	var out string
	for _, f := range s.fragments {
		out += f.text()
	}
	return out
}
