// Package anim drives frame-synchronised animations.
//
// A Scheduler keeps one queue of active animations and advances every entry
// exactly once per display frame. It requests a frame only while the queue is
// non-empty and goes idle by itself once the last animation finishes.
package anim

import (
	"fmt"
	"log/slog"
	"time"
)

// Animation is a unit of scheduled work.
type Animation interface {
	// Tick advances the animation to now and reports whether it continues.
	Tick(now time.Time) bool
	// Stop ends the animation; the next Tick must report false.
	Stop()
	// Root is the view instance that owns the animation.
	Root() any
	// Keypath is the keypath being animated.
	Keypath() string
}

// FrameSource invokes a callback on the next display refresh.
type FrameSource interface {
	RequestFrame(fn func())
}

// Scheduler advances queued animations once per frame. It is driven from a
// single goroutine and is not reentrant across frames.
type Scheduler struct {
	queue   []Animation
	running bool
	// gen invalidates frame callbacks requested before a Stop.
	gen    uint64
	frames FrameSource
	now    func() time.Time
	log    *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger used for failing animations.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// NewScheduler returns an idle scheduler that paces ticks with frames.
func NewScheduler(frames FrameSource, opts ...Option) *Scheduler {
	s := &Scheduler{frames: frames, now: time.Now, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add queues a. If the scheduler is idle it starts running and ticks
// immediately, so the first frame of a is not delayed. Adding an animation
// that is already queued does nothing.
func (s *Scheduler) Add(a Animation) {
	for _, x := range s.queue {
		if x == a {
			return
		}
	}
	s.queue = append(s.queue, a)
	if !s.running {
		s.running = true
		s.tick()
	}
}

// Tick runs one pass over the queue. Frame callbacks call it; tests may call
// it directly.
func (s *Scheduler) Tick() {
	if !s.running {
		return
	}
	s.tick()
}

func (s *Scheduler) tick() {
	now := s.now()
	for i := 0; i < len(s.queue); i++ {
		if !s.advance(s.queue[i], now) {
			// Remove in place and step back so the next entry is not
			// skipped.
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			i--
		}
	}

	if len(s.queue) > 0 {
		gen := s.gen
		s.frames.RequestFrame(func() {
			if gen == s.gen {
				s.Tick()
			}
		})
	} else {
		s.running = false
	}
}

// advance ticks a, dropping it if it panics so one broken animation cannot
// stall the queue.
func (s *Scheduler) advance(a Animation, now time.Time) (more bool) {
	defer func() {
		if r := recover(); r != nil {
			attrs := []any{"keypath", a.Keypath(), "err", fmt.Sprint(r)}
			if id, ok := a.(interface{ ID() string }); ok {
				attrs = append(attrs, "animation", id.ID())
			}
			s.log.Error("animation failed", attrs...)
			more = false
		}
	}()
	return a.Tick(now)
}

// Abort stops every queued animation whose root and keypath both match.
// The queue is scanned in reverse so removals caused by Stop do not disturb
// entries not yet visited.
func (s *Scheduler) Abort(keypath string, root any) {
	for i := len(s.queue) - 1; i >= 0; i-- {
		if i >= len(s.queue) {
			continue
		}
		a := s.queue[i]
		if a.Root() == root && a.Keypath() == keypath {
			a.Stop()
		}
	}
}

// Start resumes ticking after Stop if animations are queued.
func (s *Scheduler) Start() {
	if s.running || len(s.queue) == 0 {
		return
	}
	s.running = true
	s.tick()
}

// Stop stops every queued animation, empties the queue and goes idle.
// Outstanding frame callbacks become no-ops.
func (s *Scheduler) Stop() {
	queue := s.queue
	s.queue = nil
	for _, a := range queue {
		a.Stop()
	}
	s.running = false
	s.gen++
}

// IsRunning reports whether a frame is pending.
func (s *Scheduler) IsRunning() bool { return s.running }

// Len returns the number of queued animations.
func (s *Scheduler) Len() int { return len(s.queue) }
