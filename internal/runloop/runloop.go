// Package runloop batches store changes and the work they cause.
//
// A batch applies pending store changes, lets views that staged structural
// changes patch the output tree, and only then runs scheduled tasks, so that
// tasks such as decorator initialisation and transition starts always see a
// fully constructed tree.
package runloop

import "log/slog"

// Changer is a store with pending change notifications.
type Changer interface {
	ApplyChanges() bool
}

// View is something that staged changes during a batch and patches its
// output when the batch flushes.
type View interface {
	Update()
}

// Transition is a transition registered with the runloop until it calls
// Done.
type Transition interface {
	Start()
}

// Runloop coordinates batches. It is driven from a single goroutine.
type Runloop struct {
	depth       int
	changers    []Changer
	views       []View
	tasks       []func()
	transitions map[Transition]struct{}
	settled     []func()
	err         error
	log         *slog.Logger
}

// New returns an idle runloop.
func New(logger *slog.Logger) *Runloop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runloop{transitions: map[Transition]struct{}{}, log: logger}
}

// Watch adds a store whose changes are applied when a batch flushes.
func (r *Runloop) Watch(c Changer) {
	for _, x := range r.changers {
		if x == c {
			return
		}
	}
	r.changers = append(r.changers, c)
}

// Unwatch removes a store added with Watch.
func (r *Runloop) Unwatch(c Changer) {
	for i, x := range r.changers {
		if x == c {
			r.changers = append(r.changers[:i], r.changers[i+1:]...)
			return
		}
	}
}

// Start opens a batch. Batches nest; only the outermost End flushes.
func (r *Runloop) Start() { r.depth++ }

// InBatch reports whether a batch is open.
func (r *Runloop) InBatch() bool { return r.depth > 0 }

// End closes a batch. Closing the outermost batch flushes it and returns the
// first error reported with Fail during the batch.
func (r *Runloop) End() error {
	if r.depth == 0 {
		return nil
	}
	if r.depth > 1 {
		r.depth--
		return nil
	}
	r.flush()
	r.depth = 0
	err := r.err
	r.err = nil
	return err
}

func (r *Runloop) flush() {
	for {
		r.flushChanges()
		if len(r.tasks) == 0 {
			return
		}
		tasks := r.tasks
		r.tasks = nil
		for _, t := range tasks {
			t()
		}
	}
}

func (r *Runloop) flushChanges() {
	for {
		changed := false
		for _, c := range append([]Changer(nil), r.changers...) {
			if c.ApplyChanges() {
				changed = true
			}
		}
		views := r.views
		r.views = nil
		for _, v := range views {
			v.Update()
		}
		if !changed && len(views) == 0 {
			return
		}
	}
}

// AddView queues v to patch its output when the batch flushes. Outside a
// batch v updates immediately.
func (r *Runloop) AddView(v View) {
	if r.depth == 0 {
		v.Update()
		return
	}
	for _, x := range r.views {
		if x == v {
			return
		}
	}
	r.views = append(r.views, v)
}

// ScheduleTask defers fn until the output of the current batch is in place.
// Outside a batch fn runs immediately.
func (r *Runloop) ScheduleTask(fn func()) {
	if r.depth == 0 {
		fn()
		return
	}
	r.tasks = append(r.tasks, fn)
}

// Fail records err for the caller of the outermost End. Only the first error
// is kept.
func (r *Runloop) Fail(err error) {
	if err == nil {
		return
	}
	if r.err == nil {
		r.err = err
	} else {
		r.log.Debug("additional error in batch", "err", err)
	}
}

// RegisterTransition tracks t until Done is called for it.
func (r *Runloop) RegisterTransition(t Transition) {
	r.transitions[t] = struct{}{}
}

// Done marks t as finished.
func (r *Runloop) Done(t Transition) {
	if _, ok := r.transitions[t]; !ok {
		return
	}
	delete(r.transitions, t)
	if len(r.transitions) == 0 {
		settled := r.settled
		r.settled = nil
		for _, fn := range settled {
			fn()
		}
	}
}

// Outstanding returns the number of transitions still running.
func (r *Runloop) Outstanding() int { return len(r.transitions) }

// OnSettled runs fn once no transitions are outstanding.
func (r *Runloop) OnSettled(fn func()) {
	if len(r.transitions) == 0 {
		fn()
		return
	}
	r.settled = append(r.settled, fn)
}
