// Package tui drives a rendered view instance from the terminal.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/livetree/internal/anim"
	"github.com/jask/livetree/internal/config"
	"github.com/jask/livetree/internal/dom"
	"github.com/jask/livetree/internal/snapshot"
	"github.com/jask/livetree/internal/view"
)

// App ties the todo instance to the terminal.
type App struct {
	ctx    context.Context
	cfg    config.Config
	log    *slog.Logger
	inst   *view.Instance
	frames *anim.ManualFrames
	todo   *Todo
	theme  dom.Theme

	// store is nil when snapshots are disabled.
	store    snapshot.Store
	snapshot string

	adding  bool
	ticking bool
	status  string
	err     error
}

type frameMsg time.Time

type statusMsg string

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

var (
	helpStyle   = lipgloss.NewStyle().Faint(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// NewInstance renders TodoTemplate over data with frames paced by the
// returned ManualFrames.
func NewInstance(cfg config.Config, data map[string]any, logger *slog.Logger) (*view.Instance, *anim.ManualFrames, error) {
	frames := &anim.ManualFrames{}
	inst, err := view.New(view.Options{
		Template:           TodoTemplate(),
		Data:               data,
		Scheduler:          anim.NewScheduler(frames, anim.WithLogger(logger)),
		TransitionsEnabled: cfg.Engine.TransitionsEnabled,
		Logger:             logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := inst.Render(nil); err != nil {
		return nil, nil, fmt.Errorf("render: %w", err)
	}
	return inst, frames, nil
}

// New builds the app around a rendered instance. store may be nil.
func New(ctx context.Context, cfg config.Config, inst *view.Instance, frames *anim.ManualFrames, store snapshot.Store, name string, logger *slog.Logger) (*App, error) {
	todo, err := NewTodo(inst)
	if err != nil {
		return nil, err
	}
	return &App{
		ctx:      ctx,
		cfg:      cfg,
		log:      logger,
		inst:     inst,
		frames:   frames,
		todo:     todo,
		theme:    themeFor(cfg.UI.Theme),
		store:    store,
		snapshot: name,
	}, nil
}

func themeFor(name string) dom.Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "plain":
		return dom.Theme{Bullet: "- "}
	default:
		return dom.DefaultTheme()
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd { return a.pump() }

// pump schedules the next frame while animations are waiting on one.
func (a *App) pump() tea.Cmd {
	if a.ticking || a.frames.Pending() == 0 {
		return nil
	}
	a.ticking = true
	return tea.Tick(a.cfg.Engine.FrameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case frameMsg:
		a.ticking = false
		a.frames.Flush()
		return a, a.pump()
	case statusMsg:
		a.status, a.err = string(m), nil
		return a, nil
	case errMsg:
		a.err = m.err
		return a, nil
	case tea.KeyMsg:
		if a.adding {
			return a, a.withFrames(a.updateAdding(m))
		}
		return a.updateKeys(m)
	}
	return a, nil
}

func (a *App) withFrames(cmd tea.Cmd) tea.Cmd {
	return tea.Batch(cmd, a.pump())
}

func (a *App) updateKeys(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch m.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "j", "down":
		err = a.todo.Move(1)
	case "k", "up":
		err = a.todo.Move(-1)
	case "x", " ":
		err = a.todo.Toggle()
	case "a":
		a.adding = true
		a.status = "new item: enter to add, esc to cancel"
	case "d":
		err = a.todo.Remove()
	case "r":
		err = a.todo.Reverse()
	case "c":
		err = a.todo.ClearDone()
	case "w":
		return a, a.save()
	default:
		return a, nil
	}
	if err != nil {
		a.err = err
		a.log.Error("update failed", "key", m.String(), "err", err)
	}
	return a, a.pump()
}

func (a *App) updateAdding(m tea.KeyMsg) tea.Cmd {
	var err error
	switch m.Type {
	case tea.KeyEsc:
		a.adding = false
		a.status = ""
		err = a.todo.Type("")
	case tea.KeyEnter:
		a.adding = false
		a.status = ""
		err = a.todo.Add()
	case tea.KeyBackspace:
		draft := []rune(a.todo.Draft())
		if len(draft) > 0 {
			err = a.todo.Type(string(draft[:len(draft)-1]))
		}
	case tea.KeyRunes, tea.KeySpace:
		err = a.todo.Type(a.todo.Draft() + string(m.Runes))
	}
	if err != nil {
		a.err = err
	}
	return nil
}

// save snapshots a copy of the data so the write can run off the update
// loop.
func (a *App) save() tea.Cmd {
	if a.store == nil {
		return func() tea.Msg { return statusMsg("snapshots are disabled") }
	}
	data, _ := clone(a.inst.Viewmodel().Data()).(map[string]any)
	store, name, ctx := a.store, a.snapshot, a.ctx
	return func() tea.Msg {
		if err := store.Save(ctx, name, data); err != nil {
			return errMsg{fmt.Errorf("save snapshot %q: %w", name, err)}
		}
		return statusMsg(fmt.Sprintf("saved %q", name))
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder
	b.WriteString(a.todo.Render(a.cfg.UI.Width, a.theme))
	b.WriteString("\n\n")
	if a.adding {
		b.WriteString("> " + a.todo.Draft() + "_\n")
	}
	b.WriteString(helpStyle.Render("j/k move • x toggle • a add • d delete • r reverse • c clear done • w save • q quit"))
	switch {
	case a.err != nil:
		b.WriteString("\n" + errStyle.Render("error: "+a.err.Error()))
	case a.status != "":
		b.WriteString("\n" + statusStyle.Render(a.status))
	}
	return b.String()
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = clone(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = clone(x)
		}
		return out
	}
	return v
}
