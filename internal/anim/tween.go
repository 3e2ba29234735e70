package anim

import (
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Easing maps linear progress in [0,1] to eased progress.
type Easing func(t float64) float64

// Easings holds the named easing functions.
var Easings = map[string]Easing{
	"linear":    func(t float64) float64 { return t },
	"easeIn":    func(t float64) float64 { return t * t * t },
	"easeOut":   func(t float64) float64 { return math.Pow(t-1, 3) + 1 },
	"easeInOut": easeInOut,
}

func easeInOut(t float64) float64 {
	t /= 0.5
	if t < 1 {
		return 0.5 * t * t * t
	}
	t -= 2
	return 0.5 * (t*t*t + 2)
}

// TweenOptions configures a Tween.
type TweenOptions struct {
	Duration time.Duration
	Easing   Easing
	// Step receives every intermediate value, including the final one.
	Step func(progress float64, value any)
	// Complete runs once with the final value when the tween finishes
	// naturally; it does not run after Stop.
	Complete func(value any)
}

// Tween interpolates the value at a keypath from one value to another.
type Tween struct {
	id       string
	root     any
	keypath  string
	to       any
	interp   func(t float64) any
	opts     TweenOptions
	start    time.Time
	started  bool
	running  bool
	complete bool
}

// NewTween returns a running tween. Numbers, lists of numbers and maps of
// numbers are interpolated; any other value jumps to the target on the first
// tick.
func NewTween(root any, keypath string, from, to any, opts TweenOptions) *Tween {
	if opts.Easing == nil {
		opts.Easing = Easings["linear"]
	}
	return &Tween{
		id:      uuid.NewString(),
		root:    root,
		keypath: keypath,
		to:      to,
		interp:  Interpolate(from, to),
		opts:    opts,
		running: true,
	}
}

func (t *Tween) ID() string      { return t.id }
func (t *Tween) Root() any       { return t.root }
func (t *Tween) Keypath() string { return t.keypath }
func (t *Tween) Stop()           { t.running = false }

// Running reports whether the tween has neither finished nor been stopped.
func (t *Tween) Running() bool { return t.running }

// Completed reports whether the tween reached its target.
func (t *Tween) Completed() bool { return t.complete }

func (t *Tween) Tick(now time.Time) bool {
	if !t.running {
		return false
	}
	if !t.started {
		t.start, t.started = now, true
	}
	elapsed := now.Sub(t.start)
	if elapsed >= t.opts.Duration || t.interp == nil {
		t.running, t.complete = false, true
		if t.opts.Step != nil {
			t.opts.Step(1, t.to)
		}
		if t.opts.Complete != nil {
			t.opts.Complete(t.to)
		}
		return false
	}
	p := t.opts.Easing(float64(elapsed) / float64(t.opts.Duration))
	if t.opts.Step != nil {
		t.opts.Step(p, t.interp(p))
	}
	return true
}

// Interpolate returns a function producing the value at progress t between
// from and to, or nil when the values cannot be interpolated.
func Interpolate(from, to any) func(t float64) any {
	if a, ok := number(from); ok {
		if b, ok := number(to); ok {
			return func(t float64) any { return a + (b-a)*t }
		}
		return nil
	}
	switch b := to.(type) {
	case []any:
		a, ok := from.([]any)
		if !ok {
			return nil
		}
		parts := make([]func(float64) any, len(b))
		for i := range b {
			if i < len(a) {
				parts[i] = Interpolate(a[i], b[i])
			}
			if parts[i] == nil {
				v := b[i]
				parts[i] = func(float64) any { return v }
			}
		}
		return func(t float64) any {
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p(t)
			}
			return out
		}
	case map[string]any:
		a, ok := from.(map[string]any)
		if !ok {
			return nil
		}
		parts := make(map[string]func(float64) any, len(b))
		for k, v := range b {
			if p := Interpolate(a[k], v); p != nil {
				parts[k] = p
			} else {
				v := v
				parts[k] = func(float64) any { return v }
			}
		}
		return func(t float64) any {
			out := make(map[string]any, len(parts))
			for k, p := range parts {
				out[k] = p(t)
			}
			return out
		}
	}
	return nil
}

func number(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
