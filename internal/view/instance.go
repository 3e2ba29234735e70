// Package view renders templates against a data store and keeps the output
// tree in sync as the data changes.
//
// An Instance owns a root Fragment. Fragments hold items: text,
// interpolators, sections, elements and inline components. Items register
// with the store at the keypaths they resolved to and are told about
// changes by the runloop, which batches every mutation made through the
// instance so the output tree is patched once per batch.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/jask/livetree/internal/anim"
	"github.com/jask/livetree/internal/dom"
	"github.com/jask/livetree/internal/keypath"
	"github.com/jask/livetree/internal/resolve"
	"github.com/jask/livetree/internal/runloop"
	"github.com/jask/livetree/internal/template"
	"github.com/jask/livetree/internal/viewmodel"
)

var (
	// ErrUnknownComponent is returned when a template places a component
	// that is not registered.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrNotRendered is returned by operations that need rendered output.
	ErrNotRendered = errors.New("instance is not rendered")
	// ErrAlreadyRendered is returned by a second Render.
	ErrAlreadyRendered = errors.New("instance is already rendered")
)

// ComponentDef describes a component that templates can place.
type ComponentDef struct {
	Template []template.Node
	// Data seeds the component's own store.
	Data map[string]any
	// Isolated components do not resolve references in the host.
	Isolated bool
}

// Decorator initialises a rendered element and returns its teardown.
type Decorator func(node *html.Node, inst *Instance) (teardown func())

// Options configures an Instance.
type Options struct {
	Template []template.Node
	Data     map[string]any
	// Viewmodel shares an existing store instead of creating one from Data.
	Viewmodel *viewmodel.Viewmodel
	Adaptors  []viewmodel.Adaptor
	Document  *dom.Document
	// Scheduler paces animations and transitions. Instances without one
	// get a scheduler whose frames are never delivered.
	Scheduler          *anim.Scheduler
	Components         map[string]ComponentDef
	Decorators         map[string]Decorator
	Transitions        map[string]TransitionFunc
	TransitionsEnabled bool
	Logger             *slog.Logger
}

// Event is delivered to handlers registered with On.
type Event struct {
	Name string
	// Node is the element that proxied the event, if any.
	Node *html.Node
	// Keypath is the context keypath of the element.
	Keypath string
	// Context is the value at Keypath.
	Context  any
	Original dom.Event
}

type handler struct{ fn func(Event) }

// Instance is a rendered template bound to a store.
type Instance struct {
	ID string

	vm        *viewmodel.Viewmodel
	doc       *dom.Document
	rl        *runloop.Runloop
	scheduler *anim.Scheduler
	log       *slog.Logger

	components         map[string]ComponentDef
	decorators         map[string]Decorator
	transitions        map[string]TransitionFunc
	transitionsEnabled bool

	root       *Fragment
	target     *html.Node
	rendered   bool
	torndown   bool
	handlers   map[string][]*handler
	queries    []*Query
	unresolved []*mustache
	retrier    *retrier
	tweens     map[string]*anim.Tween

	// Set for inline components.
	parent    *Instance
	host      *Fragment
	component *Component
	isolated  bool
}

// New builds an instance and resolves its template. Nothing is rendered
// until Render.
func New(opts Options) (*Instance, error) {
	inst := newInstance(opts)
	inst.rl.Start()
	root, err := newFragment(fragmentOptions{inst: inst, owner: inst, template: opts.Template})
	inst.root = root
	if endErr := inst.rl.End(); err == nil {
		err = endErr
	}
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	return inst, nil
}

func newInstance(opts Options) *Instance {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	vm := opts.Viewmodel
	if vm == nil {
		vm = viewmodel.New(opts.Data, logger, opts.Adaptors...)
	}
	doc := opts.Document
	if doc == nil {
		doc = dom.NewDocument()
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = anim.NewScheduler(&anim.ManualFrames{}, anim.WithLogger(logger))
	}
	id := uuid.NewString()
	inst := &Instance{
		ID:                 id,
		vm:                 vm,
		doc:                doc,
		rl:                 runloop.New(logger),
		scheduler:          scheduler,
		log:                logger.With("instance", id[:8]),
		components:         opts.Components,
		decorators:         opts.Decorators,
		transitions:        builtinTransitions(opts.Transitions),
		transitionsEnabled: opts.TransitionsEnabled,
		handlers:           map[string][]*handler{},
		tweens:             map[string]*anim.Tween{},
	}
	inst.retrier = &retrier{inst: inst}
	inst.rl.Watch(vm)
	inst.rl.Watch(inst.retrier)
	return inst
}

// Render appends the output to target. A nil target renders into a new
// detached div.
func (i *Instance) Render(target *html.Node) error {
	if i.rendered {
		return ErrAlreadyRendered
	}
	if target == nil {
		target = i.doc.CreateElement("div", "")
	}
	i.target = target
	i.rl.Start()
	dom.AppendChild(target, i.root.render())
	i.rendered = true
	return i.rl.End()
}

// Target returns the node the instance rendered into.
func (i *Instance) Target() *html.Node { return i.target }

// Document returns the document that creates the instance's nodes.
func (i *Instance) Document() *dom.Document { return i.doc }

// Viewmodel returns the instance's store.
func (i *Instance) Viewmodel() *viewmodel.Viewmodel { return i.vm }

// Scheduler returns the animation scheduler.
func (i *Instance) Scheduler() *anim.Scheduler { return i.scheduler }

// Parent returns the hosting instance of an inline component.
func (i *Instance) Parent() *Instance { return i.parent }

// HTML serialises the rendered output.
func (i *Instance) HTML() string {
	if i.target == nil {
		return ""
	}
	return dom.InnerHTML(i.target)
}

// String renders the template as text.
func (i *Instance) String() string { return i.root.text() }

// Get returns the value at kp.
func (i *Instance) Get(kp string) any {
	return i.vm.Get(keypath.Normalise(kp), viewmodel.Evaluated)
}

// Set stores value at kp and patches the output before returning.
func (i *Instance) Set(kp string, value any) error {
	i.rl.Start()
	i.vm.Set(keypath.Normalise(kp), value, false)
	return i.rl.End()
}

// SetMany stores several values in one batch.
func (i *Instance) SetMany(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	i.rl.Start()
	for _, k := range keys {
		i.vm.Set(keypath.Normalise(k), values[k], false)
	}
	return i.rl.End()
}

// Update re-notifies everything depending on kp, for data changed behind
// the store's back.
func (i *Instance) Update(kp string) error {
	i.rl.Start()
	i.vm.Mark(keypath.Normalise(kp))
	return i.rl.End()
}

// Splice removes removeCount items at start from the array at kp, inserts
// items in their place and returns the removed items. A negative start
// counts from the end. Sections iterating the array patch only the
// affected positions.
func (i *Instance) Splice(kp string, start, removeCount int, items ...any) ([]any, error) {
	kp = keypath.Normalise(kp)
	arr, err := i.vm.List(kp)
	if err != nil {
		return nil, err
	}
	out, removed, summary := viewmodel.SpliceSlice(arr, start, removeCount, items...)
	i.rl.Start()
	i.vm.Splice(kp, out, summary)
	return removed, i.rl.End()
}

// Push appends items to the array at kp.
func (i *Instance) Push(kp string, items ...any) error {
	arr, err := i.vm.List(keypath.Normalise(kp))
	if err != nil {
		return err
	}
	_, err = i.Splice(kp, len(arr), 0, items...)
	return err
}

// Pop removes and returns the last item of the array at kp.
func (i *Instance) Pop(kp string) (any, error) {
	removed, err := i.Splice(kp, -1, 1)
	if err != nil || len(removed) == 0 {
		return nil, err
	}
	return removed[0], nil
}

// Shift removes and returns the first item of the array at kp.
func (i *Instance) Shift(kp string) (any, error) {
	removed, err := i.Splice(kp, 0, 1)
	if err != nil || len(removed) == 0 {
		return nil, err
	}
	return removed[0], nil
}

// Unshift inserts items at the front of the array at kp.
func (i *Instance) Unshift(kp string, items ...any) error {
	_, err := i.Splice(kp, 0, 0, items...)
	return err
}

// MergeOptions configures Merge.
type MergeOptions struct {
	// Compare maps an item to the identity used to match old and new
	// items. Without it items match by identity.
	Compare func(item any) any
}

// Merge replaces the array at kp with arr, keeping the rendered output of
// items that survive and moving it to their new positions.
func (i *Instance) Merge(kp string, arr []any, opts MergeOptions) error {
	kp = keypath.Normalise(kp)
	old, err := i.vm.List(kp)
	if err != nil {
		return err
	}
	equal := viewmodel.Identical
	if opts.Compare != nil {
		equal = func(a, b any) bool {
			return viewmodel.Identical(opts.Compare(a), opts.Compare(b))
		}
	}
	newIndices := viewmodel.MapOldToNewIndex(old, arr, equal)
	i.rl.Start()
	i.vm.Merge(kp, arr, newIndices)
	return i.rl.End()
}

// AnimateOptions configures Animate.
type AnimateOptions struct {
	Duration time.Duration
	// Easing names an entry of anim.Easings; empty is linear.
	Easing   string
	Step     func(progress float64, value any)
	Complete func(value any)
}

// Animate moves the value at kp towards to over time. Any animation already
// running on kp is stopped first.
func (i *Instance) Animate(kp string, to any, opts AnimateOptions) *anim.Tween {
	kp = keypath.Normalise(kp)
	i.scheduler.Abort(kp, i)
	tween := anim.NewTween(i, kp, i.Get(kp), to, anim.TweenOptions{
		Duration: opts.Duration,
		Easing:   anim.Easings[opts.Easing],
		Step: func(p float64, v any) {
			if err := i.Set(kp, v); err != nil {
				i.log.Error("animation step failed", "keypath", kp, "err", err)
			}
			if opts.Step != nil {
				opts.Step(p, v)
			}
		},
		Complete: func(v any) {
			delete(i.tweens, kp)
			if opts.Complete != nil {
				opts.Complete(v)
			}
		},
	})
	i.tweens[kp] = tween
	i.scheduler.Add(tween)
	return tween
}

// On registers fn for events named name and returns a function that
// removes it.
func (i *Instance) On(name string, fn func(Event)) func() {
	h := &handler{fn}
	i.handlers[name] = append(i.handlers[name], h)
	return func() {
		list := i.handlers[name]
		for n, x := range list {
			if x == h {
				i.handlers[name] = append(list[:n:n], list[n+1:]...)
				return
			}
		}
	}
}

// Fire delivers ev to the handlers for name. Events fired in an inline
// component are also fired on the host as "component.name".
func (i *Instance) Fire(name string, ev Event) {
	ev.Name = name
	for _, h := range append([]*handler(nil), i.handlers[name]...) {
		h.fn(ev)
	}
	if i.parent != nil && i.component != nil {
		i.parent.Fire(i.component.tmpl.Name+"."+name, ev)
	}
}

// Find returns the first rendered element matching selector.
func (i *Instance) Find(selector string) (*html.Node, error) {
	q, err := i.FindAll(selector, false)
	if err != nil {
		return nil, err
	}
	if nodes := q.Nodes(); len(nodes) > 0 {
		return nodes[0], nil
	}
	return nil, nil
}

// FindAll returns the rendered elements matching selector in document
// order. A live query keeps itself up to date as elements render and
// unrender until it is cancelled.
func (i *Instance) FindAll(selector string, live bool) (*Query, error) {
	if !i.rendered {
		return nil, ErrNotRendered
	}
	sel, err := dom.Compile(selector)
	if err != nil {
		return nil, err
	}
	q := &Query{inst: i, sel: sel, live: live}
	i.root.findAll(q)
	if live {
		i.queries = append(i.queries, q)
	}
	return q, nil
}

// FindComponent returns the first inline component instance named name, or
// any component when name is empty.
func (i *Instance) FindComponent(name string) *Instance {
	var out []*Instance
	i.root.findAllComponents(name, &out)
	if len(out) == 0 {
		return nil
	}
	return out[0]
}

// FindAllComponents returns the inline component instances named name in
// render order.
func (i *Instance) FindAllComponents(name string) []*Instance {
	var out []*Instance
	i.root.findAllComponents(name, &out)
	return out
}

// Teardown removes the output and releases every registration.
func (i *Instance) Teardown() error {
	if i.torndown {
		return nil
	}
	i.torndown = true
	i.rl.Start()
	if i.rendered {
		i.root.unrender(true)
		i.rendered = false
	}
	i.root.teardown()
	for kp, t := range i.tweens {
		i.scheduler.Abort(kp, i)
		t.Stop()
	}
	i.queries = nil
	err := i.rl.End()
	i.rl.Unwatch(i.retrier)
	return err
}

// resolve.Instance

func (i *Instance) Store() resolve.Store { return i.vm }

func (i *Instance) ParentInstance() resolve.Instance {
	if i.parent == nil {
		return nil
	}
	return i.parent
}

func (i *Instance) Isolated() bool { return i.isolated }

func (i *Instance) HostScope() resolve.Scope {
	if i.host == nil {
		return nil
	}
	return i.host
}

func (i *Instance) BindIndexRef(ref string, index int) {
	i.vm.Set(ref, index, true)
	if i.component != nil {
		i.component.indexRefs[ref] = ref
	}
}

func (i *Instance) CreateComponentBinding(parentKeypath, childRef string) {
	if i.component != nil {
		i.component.bind(parentKeypath, childRef)
	}
}

// owner

func (i *Instance) parentNode() *html.Node            { return i.target }
func (i *Instance) findNextNode(*Fragment) *html.Node { return nil }
func (i *Instance) bubble()                           {}

func (i *Instance) addUnresolved(m *mustache) {
	i.unresolved = append(i.unresolved, m)
	if !i.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	args := []any{"ref", m.ref}
	if s := i.suggest(m.ref); s != "" {
		args = append(args, "did_you_mean", s)
	}
	i.log.Debug("unresolved reference", args...)
}

func (i *Instance) removeUnresolved(m *mustache) {
	for n, x := range i.unresolved {
		if x == m {
			i.unresolved = append(i.unresolved[:n], i.unresolved[n+1:]...)
			return
		}
	}
}

// suggest returns the root key closest to ref, if one is close enough to be
// a likely typo.
func (i *Instance) suggest(ref string) string {
	head := keypath.Head(keypath.Normalise(ref))
	best, bestDist := "", 3
	for _, k := range viewmodel.Keys(i.vm.Data()) {
		if d := levenshtein.ComputeDistance(head, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

// retrier re-attempts unresolved references after store changes.
type retrier struct {
	inst *Instance
}

func (r *retrier) ApplyChanges() bool {
	inst := r.inst
	if len(inst.unresolved) == 0 {
		return false
	}
	pending := inst.unresolved
	inst.unresolved = nil
	var still []*mustache
	progressed := false
	for _, m := range pending {
		ok, err := m.retry()
		if err != nil {
			inst.rl.Fail(err)
			continue
		}
		if ok {
			progressed = true
		} else if !m.torndown {
			still = append(still, m)
		}
	}
	inst.unresolved = append(still, inst.unresolved...)
	return progressed
}
