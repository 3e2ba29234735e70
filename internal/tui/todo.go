package tui

import (
	"fmt"
	"strings"

	"github.com/jask/livetree/internal/dom"
	"github.com/jask/livetree/internal/keypath"
	tpl "github.com/jask/livetree/internal/template"
	"github.com/jask/livetree/internal/view"
	"github.com/jask/livetree/internal/viewmodel"
)

// TodoTemplate is the demo list: a title, one row per item with a bound
// checkbox, a count of open items and a form for new ones.
func TodoTemplate() []tpl.Node {
	row := &tpl.Element{
		Name:  "li",
		Intro: "fade",
		Attrs: []tpl.Attribute{tpl.A("class", tpl.T("item"))},
		Children: []tpl.Node{
			tpl.El("input").With(tpl.A("type", tpl.T("checkbox")), tpl.A("checked", tpl.I("done"))),
			tpl.El("span", tpl.I("name")).With(tpl.A("class", tpl.I("class"))),
		},
	}
	return []tpl.Node{
		tpl.El("section",
			tpl.El("h1", tpl.I("title")),
			tpl.El("ul", tpl.Each("items", "i", row)),
			tpl.Unless("items", tpl.El("p", tpl.El("em", tpl.T("nothing to do")))),
			tpl.El("p", tpl.I("remaining"), tpl.T(" left")),
			tpl.El("form", tpl.El("label", tpl.T("new:"), tpl.El("input").With(tpl.A("value", tpl.I("draft"))))),
		),
	}
}

// DefaultTodo seeds the demo when no data is given.
func DefaultTodo() map[string]any {
	return map[string]any{
		"title": "todo",
		"items": []any{
			map[string]any{"name": "write the parser", "done": true},
			map[string]any{"name": "wire the scheduler", "done": false},
			map[string]any{"name": "ship it", "done": false},
		},
	}
}

// Todo drives the demo list through the instance the way a user would:
// toggling goes through the checkbox binding, typing through the input
// binding, and list edits through the array methods.
type Todo struct {
	inst   *view.Instance
	boxes  *view.Query
	cursor int
}

// NewTodo attaches to a rendered instance of TodoTemplate.
func NewTodo(inst *view.Instance) (*Todo, error) {
	boxes, err := inst.FindAll(`input[type="checkbox"]`, true)
	if err != nil {
		return nil, fmt.Errorf("find checkboxes: %w", err)
	}
	t := &Todo{inst: inst, boxes: boxes}
	return t, t.refresh()
}

func (t *Todo) items() []any {
	list, _ := viewmodel.AsList(t.inst.Get("items"))
	return list
}

// Len returns the number of items.
func (t *Todo) Len() int { return len(t.items()) }

// Cursor returns the selected position.
func (t *Todo) Cursor() int { return t.cursor }

// Move shifts the selection by delta, clamped to the list.
func (t *Todo) Move(delta int) error {
	t.cursor = max(0, min(t.cursor+delta, t.Len()-1))
	return t.refresh()
}

// Toggle flips the selected item by clicking its checkbox.
func (t *Todo) Toggle() error {
	boxes := t.boxes.Nodes()
	if t.cursor >= len(boxes) {
		return nil
	}
	doc, box := t.inst.Document(), boxes[t.cursor]
	doc.SetProperty(box, "checked", !doc.BoolProperty(box, "checked"))
	doc.Dispatch(box, "change", nil)
	return t.refresh()
}

// Type replaces the draft by writing into the form input.
func (t *Todo) Type(text string) error {
	input, err := t.inst.Find(`form input`)
	if err != nil || input == nil {
		return err
	}
	doc := t.inst.Document()
	doc.SetProperty(input, "value", text)
	doc.Dispatch(input, "input", nil)
	return nil
}

// Draft returns the text typed so far.
func (t *Todo) Draft() string { return viewmodel.String(t.inst.Get("draft")) }

// Add appends the draft as a new item and clears it.
func (t *Todo) Add() error {
	name := strings.TrimSpace(t.Draft())
	if name == "" {
		return nil
	}
	if err := t.inst.Push("items", map[string]any{"name": name, "done": false}); err != nil {
		return err
	}
	if err := t.Type(""); err != nil {
		return err
	}
	return t.refresh()
}

// Remove deletes the selected item.
func (t *Todo) Remove() error {
	if t.Len() == 0 {
		return nil
	}
	if _, err := t.inst.Splice("items", t.cursor, 1); err != nil {
		return err
	}
	t.cursor = max(0, min(t.cursor, t.Len()-1))
	return t.refresh()
}

// Reverse flips the order of the list, keeping the rendered rows.
func (t *Todo) Reverse() error {
	items := t.items()
	reversed := make([]any, len(items))
	for i, it := range items {
		reversed[len(items)-1-i] = it
	}
	if err := t.inst.Merge("items", reversed, view.MergeOptions{}); err != nil {
		return err
	}
	t.cursor = max(0, len(items)-1-t.cursor)
	return t.refresh()
}

// ClearDone drops finished items.
func (t *Todo) ClearDone() error {
	var open []any
	for _, it := range t.items() {
		if !viewmodel.Truthy(field(it, "done")) {
			open = append(open, it)
		}
	}
	if open == nil {
		open = []any{}
	}
	if err := t.inst.Merge("items", open, view.MergeOptions{}); err != nil {
		return err
	}
	t.cursor = max(0, min(t.cursor, len(open)-1))
	return t.refresh()
}

// Render draws the list as terminal text.
func (t *Todo) Render(width int, theme dom.Theme) string {
	return dom.RenderText(t.inst.Target(), width, theme)
}

// refresh recomputes the derived values: each item's class and the open
// count.
func (t *Todo) refresh() error {
	changes := map[string]any{}
	open := 0
	for i, it := range t.items() {
		done := viewmodel.Truthy(field(it, "done"))
		if !done {
			open++
		}
		var classes []string
		if done {
			classes = append(classes, "done")
		}
		if i == t.cursor {
			classes = append(classes, "selected")
		}
		kp := keypath.Child("items", i)
		if class := strings.Join(classes, " "); field(it, "class") != class {
			changes[kp+".class"] = class
		}
	}
	if t.inst.Get("remaining") != open {
		changes["remaining"] = open
	}
	if len(changes) == 0 {
		return nil
	}
	return t.inst.SetMany(changes)
}

func field(item any, name string) any {
	v, _ := viewmodel.Child(item, name)
	return v
}
