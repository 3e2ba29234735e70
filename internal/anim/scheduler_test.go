package anim

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countdown struct {
	root    any
	keypath string
	left    int
	calls   int
	stopped bool
	onTick  func()
}

func (c *countdown) Tick(time.Time) bool {
	c.calls++
	if c.onTick != nil {
		c.onTick()
	}
	if c.stopped {
		return false
	}
	c.left--
	return c.left > 0
}
func (c *countdown) Stop()           { c.stopped = true }
func (c *countdown) Root() any       { return c.root }
func (c *countdown) Keypath() string { return c.keypath }

func newTestScheduler() (*Scheduler, *ManualFrames) {
	frames := &ManualFrames{}
	return NewScheduler(frames), frames
}

func TestAddTicksImmediately(t *testing.T) {
	t.Parallel()
	s, frames := newTestScheduler()
	a := &countdown{left: 3}

	s.Add(a)
	require.Equal(t, 1, a.calls, "first frame must not wait")
	require.True(t, s.IsRunning())
	require.Equal(t, 1, frames.Pending())
}

func TestAnimationRunsExactlyNTimes(t *testing.T) {
	t.Parallel()
	s, frames := newTestScheduler()
	a := &countdown{left: 4}

	s.Add(a)
	for frames.Flush() {
	}
	require.Equal(t, 4, a.calls)
	require.Equal(t, 0, s.Len())
	require.False(t, s.IsRunning())
	require.Equal(t, 3, frames.Requests, "one frame request per non-empty pass")
}

func TestRemovalDoesNotSkipNextEntry(t *testing.T) {
	t.Parallel()
	s, frames := newTestScheduler()
	a := &countdown{left: 10}
	b := &countdown{left: 2}
	c := &countdown{left: 10}
	s.Add(a)
	s.Add(b)
	s.Add(c)

	frames.Flush()
	frames.Flush()
	require.Equal(t, 3, a.calls)
	require.Equal(t, 2, b.calls)
	require.Equal(t, 2, c.calls, "entry after a removed one must still tick")
	require.Equal(t, 2, s.Len())
}

func TestEveryAnimationAdvancedOncePerFrame(t *testing.T) {
	t.Parallel()
	s, frames := newTestScheduler()
	a := &countdown{left: 10}
	b := &countdown{left: 10}
	s.Add(a)
	s.Add(b)
	require.Equal(t, 1, a.calls)
	require.Equal(t, 0, b.calls)

	frames.Flush()
	require.Equal(t, 2, a.calls)
	require.Equal(t, 1, b.calls)
	require.Equal(t, 1, frames.Pending())
}

func TestAbortMatchesRootAndKeypath(t *testing.T) {
	t.Parallel()
	s, frames := newTestScheduler()
	rootA, rootB := new(int), new(int)
	hit := &countdown{root: rootA, keypath: "x", left: 10}
	otherRoot := &countdown{root: rootB, keypath: "x", left: 10}
	otherPath := &countdown{root: rootA, keypath: "y", left: 10}
	s.Add(hit)
	s.Add(otherRoot)
	s.Add(otherPath)

	s.Abort("x", rootA)
	require.True(t, hit.stopped)
	require.False(t, otherRoot.stopped)
	require.False(t, otherPath.stopped)

	frames.Flush()
	require.Equal(t, 2, s.Len())
	frames.Flush()
	require.Equal(t, 2, otherRoot.calls)
	require.Equal(t, 2, otherPath.calls)
	require.Equal(t, 2, hit.calls)
}

func TestStopGoesIdleAndIgnoresPendingFrame(t *testing.T) {
	t.Parallel()
	s, frames := newTestScheduler()
	a := &countdown{left: 10}
	s.Add(a)
	s.Stop()
	require.False(t, s.IsRunning())
	require.True(t, a.stopped)

	frames.Flush()
	require.Equal(t, 1, a.calls)

	b := &countdown{left: 2}
	s.Add(b)
	require.True(t, s.IsRunning())
	require.Equal(t, 1, b.calls)
}

func TestPanickingAnimationIsDropped(t *testing.T) {
	t.Parallel()
	s, frames := newTestScheduler()
	bad := &countdown{left: 5, onTick: func() { panic("boom") }}
	good := &countdown{left: 3}
	s.Add(good)
	s.Add(bad)
	for frames.Flush() {
	}
	require.Equal(t, 3, good.calls)
	require.Equal(t, 1, bad.calls)
	require.False(t, s.IsRunning())
}

func TestFailedTweenIsLoggedWithItsID(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	frames := &ManualFrames{}
	s := NewScheduler(frames, WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	tw := NewTween(nil, "x", 0.0, 1.0, TweenOptions{
		Duration: time.Second,
		Step:     func(float64, any) { panic("boom") },
	})
	s.Add(tw)
	require.Zero(t, s.Len())

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "animation failed", rec["msg"])
	require.Equal(t, "x", rec["keypath"])
	require.Equal(t, tw.ID(), rec["animation"])
	require.NotEmpty(t, tw.ID())
}

func TestTweenInterpolatesAndCompletes(t *testing.T) {
	t.Parallel()
	now := time.Unix(0, 0)
	frames := &ManualFrames{}
	s := NewScheduler(frames, WithClock(func() time.Time { return now }))

	var values []any
	var done any
	tw := NewTween(nil, "x", 0, 10, TweenOptions{
		Duration: 100 * time.Millisecond,
		Step:     func(_ float64, v any) { values = append(values, v) },
		Complete: func(v any) { done = v },
	})
	s.Add(tw)
	now = now.Add(50 * time.Millisecond)
	frames.Flush()
	now = now.Add(50 * time.Millisecond)
	frames.Flush()

	require.Equal(t, []any{0.0, 5.0, 10}, values)
	require.Equal(t, 10, done)
	require.True(t, tw.Completed())
	require.False(t, s.IsRunning())
}

func TestStoppedTweenDoesNotComplete(t *testing.T) {
	t.Parallel()
	s, frames := newTestScheduler()
	completed := false
	tw := NewTween("root", "x", 0, 1, TweenOptions{
		Duration: time.Hour,
		Complete: func(any) { completed = true },
	})
	s.Add(tw)
	s.Abort("x", "root")
	frames.Flush()
	require.False(t, completed)
	require.Equal(t, 0, s.Len())
}

func TestInterpolate(t *testing.T) {
	t.Parallel()
	f := Interpolate([]any{0, 10}, []any{10, 20})
	require.Equal(t, []any{5.0, 15.0}, f(0.5))

	g := Interpolate(map[string]any{"a": 0}, map[string]any{"a": 4, "b": "x"})
	require.Equal(t, map[string]any{"a": 2.0, "b": "x"}, g(0.5))

	require.Nil(t, Interpolate("a", "b"))
}
