package tui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/jask/livetree/internal/config"
	"github.com/jask/livetree/internal/ctxlog"
	"github.com/jask/livetree/internal/dom"
	"github.com/jask/livetree/internal/snapshot"
)

func newTodo(t *testing.T) *Todo {
	t.Helper()
	inst, _, err := NewInstance(config.Config{}, DefaultTodo(), ctxlog.Discard())
	require.NoError(t, err)
	todo, err := NewTodo(inst)
	require.NoError(t, err)
	return todo
}

func names(todo *Todo) []string {
	var out []string
	for _, it := range todo.items() {
		out = append(out, field(it, "name").(string))
	}
	return out
}

func TestTodoDerivedValues(t *testing.T) {
	t.Parallel()
	todo := newTodo(t)
	inst := todo.inst
	require.Equal(t, 2, inst.Get("remaining"))
	require.Equal(t, "done selected", inst.Get("items.0.class"))
	require.Equal(t, "", inst.Get("items.1.class"))

	require.NoError(t, todo.Move(1))
	require.Equal(t, "done", inst.Get("items.0.class"))
	require.Equal(t, "selected", inst.Get("items.1.class"))

	require.NoError(t, todo.Move(-5))
	require.Equal(t, 0, todo.Cursor())
	require.NoError(t, todo.Move(5))
	require.Equal(t, 2, todo.Cursor())
}

func TestTodoToggleGoesThroughBinding(t *testing.T) {
	t.Parallel()
	todo := newTodo(t)
	inst := todo.inst

	require.NoError(t, todo.Toggle())
	require.Equal(t, false, inst.Get("items.0.done"))
	require.Equal(t, 3, inst.Get("remaining"))
	require.Equal(t, "selected", inst.Get("items.0.class"))

	require.NoError(t, todo.Move(1))
	require.NoError(t, todo.Toggle())
	require.Equal(t, true, inst.Get("items.1.done"))
	require.Equal(t, "done selected", inst.Get("items.1.class"))

	box := todo.boxes.Nodes()[1]
	_, checked := inst.Document().Attribute(box, "checked")
	require.True(t, checked)
}

func TestTodoAddAndRemove(t *testing.T) {
	t.Parallel()
	todo := newTodo(t)
	inst := todo.inst

	require.NoError(t, todo.Add())
	require.Equal(t, 3, todo.Len())

	require.NoError(t, todo.Type("buy milk"))
	require.Equal(t, "buy milk", todo.Draft())
	require.NoError(t, todo.Add())
	require.Equal(t, 4, todo.Len())
	require.Equal(t, "buy milk", inst.Get("items.3.name"))
	require.Equal(t, "", todo.Draft())
	require.Equal(t, 3, inst.Get("remaining"))
	require.Len(t, todo.boxes.Nodes(), 4)

	require.NoError(t, todo.Move(10))
	require.Equal(t, 3, todo.Cursor())
	require.NoError(t, todo.Remove())
	require.Equal(t, 2, todo.Cursor())
	require.Equal(t, []string{"write the parser", "wire the scheduler", "ship it"}, names(todo))

	for todo.Len() > 0 {
		require.NoError(t, todo.Remove())
	}
	require.NoError(t, todo.Remove())
	require.Empty(t, todo.boxes.Nodes())
	require.Contains(t, todo.Render(0, dom.Theme{}), "nothing to do")
}

func TestTodoReverseKeepsRows(t *testing.T) {
	t.Parallel()
	todo := newTodo(t)
	inst := todo.inst

	q, err := inst.FindAll("li", false)
	require.NoError(t, err)
	before := q.Nodes()

	require.NoError(t, todo.Reverse())
	require.Equal(t, []string{"ship it", "wire the scheduler", "write the parser"}, names(todo))
	require.Equal(t, 2, todo.Cursor())

	q, err = inst.FindAll("li", false)
	require.NoError(t, err)
	after := q.Nodes()
	require.Len(t, after, 3)
	for i := range after {
		require.Same(t, before[len(before)-1-i], after[i])
	}

	// the selected row is still the first item, now rendered last
	require.NoError(t, todo.Toggle())
	require.Equal(t, false, inst.Get("items.2.done"))
	require.Equal(t, "selected", inst.Get("items.2.class"))
}

func TestTodoClearDone(t *testing.T) {
	t.Parallel()
	todo := newTodo(t)
	require.NoError(t, todo.Move(2))
	require.NoError(t, todo.ClearDone())
	require.Equal(t, []string{"wire the scheduler", "ship it"}, names(todo))
	require.Equal(t, 1, todo.Cursor())
	require.Len(t, todo.boxes.Nodes(), 2)
	require.Equal(t, 2, todo.inst.Get("remaining"))
}

func TestTodoRender(t *testing.T) {
	t.Parallel()
	todo := newTodo(t)
	got := todo.Render(0, dom.Theme{Bullet: "- "})
	for _, want := range []string{"todo", "- [x] write the parser", "- [ ] ship it", "2 left"} {
		require.Contains(t, got, want)
	}
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newApp(t *testing.T, store snapshot.Store) *App {
	t.Helper()
	cfg := config.Config{
		Engine: config.EngineConfig{FrameInterval: time.Millisecond},
		UI:     config.UIConfig{Width: 60, Theme: "plain"},
	}
	inst, frames, err := NewInstance(cfg, DefaultTodo(), ctxlog.Discard())
	require.NoError(t, err)
	app, err := New(context.Background(), cfg, inst, frames, store, "test", ctxlog.Discard())
	require.NoError(t, err)
	return app
}

func TestAppKeys(t *testing.T) {
	t.Parallel()
	app := newApp(t, nil)

	app.Update(keys("j"))
	app.Update(keys("x"))
	require.Equal(t, true, app.inst.Get("items.1.done"))

	app.Update(keys("a"))
	require.True(t, app.adding)
	for _, r := range "tea" {
		app.Update(keys(string(r)))
	}
	app.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	require.Contains(t, app.View(), "> te_")
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, app.adding)
	require.Equal(t, "te", app.inst.Get("items.3.name"))

	app.Update(keys("c"))
	require.Equal(t, 2, app.todo.Len())

	_, cmd := app.Update(keys("q"))
	require.NotNil(t, cmd)
	require.Equal(t, tea.Quit(), cmd())
}

func TestAppEscapeDiscardsDraft(t *testing.T) {
	t.Parallel()
	app := newApp(t, nil)
	app.Update(keys("a"))
	app.Update(keys("x"))
	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, app.adding)
	require.Equal(t, "", app.todo.Draft())
	require.Equal(t, 3, app.todo.Len())
}

func TestAppSaveWithoutStore(t *testing.T) {
	t.Parallel()
	app := newApp(t, nil)
	_, cmd := app.Update(keys("w"))
	msg := cmd()
	app.Update(msg)
	require.Contains(t, app.View(), "snapshots are disabled")
}

func TestAppSaveSnapshot(t *testing.T) {
	t.Parallel()
	store, err := snapshot.Open("bolt", filepath.Join(t.TempDir(), "state.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	app := newApp(t, store)
	_, cmd := app.Update(keys("w"))
	// edits after the key press must not leak into the saved copy
	app.Update(keys("d"))
	app.Update(cmd())
	require.Contains(t, app.View(), `saved "test"`)

	got, err := store.Load(context.Background(), "test")
	require.NoError(t, err)
	items := got["items"].([]any)
	require.Len(t, items, 3)
	if diff := cmp.Diff("write the parser", items[0].(map[string]any)["name"]); diff != "" {
		t.Fatalf("first item (-want +got):\n%s", diff)
	}
}

func TestAppPumpsFrames(t *testing.T) {
	t.Parallel()
	cfg := config.Config{Engine: config.EngineConfig{FrameInterval: time.Millisecond, TransitionsEnabled: true}}
	inst, frames, err := NewInstance(cfg, DefaultTodo(), ctxlog.Discard())
	require.NoError(t, err)
	app, err := New(context.Background(), cfg, inst, frames, nil, "", ctxlog.Discard())
	require.NoError(t, err)

	require.Positive(t, frames.Pending())
	cmd := app.Init()
	require.NotNil(t, cmd)
	require.True(t, app.ticking)
	require.Nil(t, app.pump())

	deadline := time.Now().Add(5 * time.Second)
	for frames.Pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
		app.Update(frameMsg(time.Now()))
	}
	require.Zero(t, frames.Pending())
	require.False(t, app.ticking)
	require.Contains(t, app.View(), "wire the scheduler")
}
