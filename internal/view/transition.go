package view

import (
	"time"

	"golang.org/x/net/html"

	"github.com/jask/livetree/internal/anim"
	"github.com/jask/livetree/internal/dom"
	"github.com/jask/livetree/internal/viewmodel"
)

// TransitionFunc runs a transition. It must eventually call Complete.
type TransitionFunc func(t *Transition)

// Transition animates an element as it enters the output. The runloop
// tracks it from render until Complete.
type Transition struct {
	Node  *html.Node
	Name  string
	Intro bool

	el   *Element
	fn   TransitionFunc
	done bool
}

func newTransition(e *Element, name string, intro bool) *Transition {
	t := &Transition{Node: e.node, Name: name, Intro: intro, el: e}
	fn, ok := e.inst.transitions[name]
	if !ok {
		e.inst.log.Warn("missing transition", "name", name)
	}
	t.fn = fn
	return t
}

// Start runs the transition. Unknown transitions complete at once.
func (t *Transition) Start() {
	if t.done {
		return
	}
	if t.fn == nil {
		t.Complete()
		return
	}
	t.fn(t)
}

// Complete marks the transition finished.
func (t *Transition) Complete() {
	if t.done {
		return
	}
	t.done = true
	t.el.inst.rl.Done(t)
}

// Done reports whether Complete has been called.
func (t *Transition) Done() bool { return t.done }

// SetStyle sets an inline style declaration on the node.
func (t *Transition) SetStyle(prop, value string) { dom.SetStyle(t.Node, prop, value) }

// Animate tweens from one value to another on the instance's scheduler,
// calling step with each value, and completes the transition at the end.
func (t *Transition) Animate(from, to any, d time.Duration, step func(v any)) *anim.Tween {
	tween := anim.NewTween(t.el.inst, "", from, to, anim.TweenOptions{
		Duration: d,
		Step:     func(_ float64, v any) { step(v) },
		Complete: func(any) { t.Complete() },
	})
	t.el.inst.scheduler.Add(tween)
	return tween
}

// FadeDuration is the length of the built-in fade transition.
const FadeDuration = 300 * time.Millisecond

func fade(t *Transition) {
	t.SetStyle("opacity", "0")
	t.Animate(0.0, 1.0, FadeDuration, func(v any) {
		t.SetStyle("opacity", viewmodel.String(v))
	})
}

func builtinTransitions(custom map[string]TransitionFunc) map[string]TransitionFunc {
	out := map[string]TransitionFunc{"fade": fade}
	for name, fn := range custom {
		out[name] = fn
	}
	return out
}
