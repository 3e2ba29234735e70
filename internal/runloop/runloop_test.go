package runloop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	name string
	log  *[]string
}

func (v recorder) Update() { *v.log = append(*v.log, "update "+v.name) }

type changer struct {
	pending int
	onApply func()
}

func (c *changer) ApplyChanges() bool {
	if c.pending == 0 {
		return false
	}
	c.pending--
	if c.onApply != nil {
		c.onApply()
	}
	return true
}

func TestTasksRunAfterViews(t *testing.T) {
	t.Parallel()
	var log []string
	r := New(nil)
	r.Start()
	r.ScheduleTask(func() { log = append(log, "task") })
	r.AddView(recorder{"a", &log})
	r.AddView(recorder{"a", &log})
	require.Empty(t, log)
	require.NoError(t, r.End())
	require.Equal(t, []string{"update a", "task"}, log)
}

func TestNestedBatchesFlushOnce(t *testing.T) {
	t.Parallel()
	var log []string
	r := New(nil)
	r.Start()
	r.Start()
	r.AddView(recorder{"inner", &log})
	require.NoError(t, r.End())
	require.Empty(t, log)
	require.NoError(t, r.End())
	require.Equal(t, []string{"update inner"}, log)
}

func TestChangesAppliedUntilQuiet(t *testing.T) {
	t.Parallel()
	var log []string
	r := New(nil)
	c := &changer{pending: 2}
	c.onApply = func() { r.AddView(recorder{"from change", &log}) }
	r.Watch(c)
	r.Start()
	require.NoError(t, r.End())
	require.Equal(t, []string{"update from change", "update from change"}, log)
}

func TestTaskStartingNestedBatchIsFlushed(t *testing.T) {
	t.Parallel()
	var log []string
	r := New(nil)
	r.Start()
	r.ScheduleTask(func() {
		r.Start()
		r.AddView(recorder{"late", &log})
		_ = r.End()
	})
	require.NoError(t, r.End())
	require.Equal(t, []string{"update late"}, log)
}

func TestFailKeepsFirstError(t *testing.T) {
	t.Parallel()
	first := errors.New("first")
	r := New(nil)
	r.Start()
	r.Fail(first)
	r.Fail(errors.New("second"))
	require.ErrorIs(t, r.End(), first)
	r.Start()
	require.NoError(t, r.End())
}

type fakeTransition struct{}

func (*fakeTransition) Start() {}

func TestSettledAfterTransitionsDone(t *testing.T) {
	t.Parallel()
	r := New(nil)
	tr := &fakeTransition{}
	r.RegisterTransition(tr)
	settled := false
	r.OnSettled(func() { settled = true })
	require.False(t, settled)
	require.Equal(t, 1, r.Outstanding())
	r.Done(tr)
	require.True(t, settled)
}
