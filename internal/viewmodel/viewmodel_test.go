package viewmodel

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	values []any
}

func (r *recorder) SetValue(v any) { r.values = append(r.values, v) }

type splicer struct {
	recorder
	splices []SpliceSummary
}

func (s *splicer) Splice(sum SpliceSummary) { s.splices = append(s.splices, sum) }

func TestGetAndSet(t *testing.T) {
	t.Parallel()
	vm := New(map[string]any{
		"user": map[string]any{"name": "ada"},
		"list": []any{"a", "b"},
	}, nil)

	require.Equal(t, "ada", vm.Get("user.name", GetOptions{}))
	require.Equal(t, "b", vm.Get("list.1", GetOptions{}))
	require.Equal(t, 2, vm.Get("list.length", GetOptions{}))
	require.Nil(t, vm.Get("user.missing.deep", GetOptions{}))

	vm.Set("user.address.city", "paris", false)
	require.Equal(t, "paris", vm.Get("user.address.city", GetOptions{}))

	vm.Set("grid.1", "x", false)
	require.Equal(t, []any{nil, "x"}, vm.Get("grid", GetOptions{}))
	require.True(t, vm.HasRoot("grid"))
	require.False(t, vm.HasRoot("nothing"))
}

func TestApplyChangesNotifiesRelatedKeypaths(t *testing.T) {
	t.Parallel()
	vm := New(map[string]any{"user": map[string]any{"name": "ada", "age": 36.0}}, nil)
	user, name, age, other := &recorder{}, &recorder{}, &recorder{}, &recorder{}
	vm.Register("user", user)
	vm.Register("user.name", name)
	vm.Register("user.age", age)
	vm.Register("other", other)

	vm.Set("user.name", "grace", false)
	require.True(t, vm.ApplyChanges())
	require.False(t, vm.ApplyChanges())

	require.Len(t, user.values, 1)
	require.Equal(t, []any{"grace"}, name.values)
	require.Empty(t, age.values)
	require.Empty(t, other.values)

	vm.Set("user", map[string]any{"name": "x", "age": 1.0}, false)
	vm.ApplyChanges()
	require.Equal(t, []any{"grace", "x"}, name.values)
	require.Equal(t, []any{1.0}, age.values)
}

func TestSilentSetDoesNotNotify(t *testing.T) {
	t.Parallel()
	vm := New(nil, nil)
	r := &recorder{}
	vm.Register("a", r)
	vm.Set("a", 1, true)
	require.False(t, vm.ApplyChanges())
	require.Empty(t, r.values)
}

type unregisterer struct {
	vm     *Viewmodel
	target *recorder
	calls  int
}

func (u *unregisterer) SetValue(any) {
	u.calls++
	u.vm.Unregister("a.b", u.target)
}

func TestUnregisteredDuringPassIsSkipped(t *testing.T) {
	t.Parallel()
	vm := New(nil, nil)
	child := &recorder{}
	u := &unregisterer{vm: vm, target: child}
	vm.Register("a", u)
	vm.Register("a.b", child)
	vm.Set("a", map[string]any{"b": 1}, false)
	vm.ApplyChanges()
	require.Equal(t, 1, u.calls)
	require.Empty(t, child.values)
	require.Zero(t, vm.Dependants("a.b"))
}

func TestSpliceSlice(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		start, del  int
		items       []any
		want        []any
		wantRemoved []any
		wantSummary SpliceSummary
	}{
		{"remove middle", 1, 1, nil, []any{1, 3}, []any{2}, SpliceSummary{1, 1, 0}},
		{"insert front", 0, 0, []any{0}, []any{0, 1, 2, 3}, []any{}, SpliceSummary{0, 0, 1}},
		{"negative start", -1, 1, []any{9}, []any{1, 2, 9}, []any{3}, SpliceSummary{2, 1, 1}},
		{"clamped", 2, 10, nil, []any{1, 2}, []any{3}, SpliceSummary{2, 1, 0}},
		{"past end", 7, 0, []any{4}, []any{1, 2, 3, 4}, []any{}, SpliceSummary{3, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed, sum := SpliceSlice([]any{1, 2, 3}, tt.start, tt.del, tt.items...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("result mismatch (-want +got):\n%s", diff)
			}
			require.Len(t, removed, len(tt.wantRemoved))
			require.Equal(t, tt.wantSummary, sum)
		})
	}
}

func TestSpliceNotifiesPositionally(t *testing.T) {
	t.Parallel()
	vm := New(map[string]any{"list": []any{"a", "b", "c"}}, nil)
	section := &splicer{}
	before, after, length := &recorder{}, &recorder{}, &recorder{}
	vm.Register("list", section)
	vm.Register("list.0", before)
	vm.Register("list.2", after)
	vm.Register("list.length", length)

	arr, _, sum := SpliceSlice([]any{"a", "b", "c"}, 1, 1)
	vm.Splice("list", arr, sum)

	require.Equal(t, []SpliceSummary{{Start: 1, Removed: 1}}, section.splices)
	require.Empty(t, section.values)
	require.Empty(t, before.values)
	require.Equal(t, []any{nil}, after.values)
	require.Equal(t, []any{2}, length.values)
}

func TestMapOldToNewIndex(t *testing.T) {
	t.Parallel()
	eq := func(a, b any) bool { return a == b }
	tests := []struct {
		name     string
		old, new []any
		want     []int
	}{
		{"reversed", []any{"a", "b", "c"}, []any{"c", "b", "a"}, []int{2, 1, 0}},
		{"removed", []any{"a", "b", "c"}, []any{"a", "c"}, []int{0, -1, 1}},
		{"duplicates take first available", []any{"x", "x"}, []any{"y", "x", "x"}, []int{1, 2}},
		{"empty new", []any{"a"}, nil, []int{-1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, MapOldToNewIndex(tt.old, tt.new, eq))
		})
	}
}

func TestIdentical(t *testing.T) {
	t.Parallel()
	m := map[string]any{"a": 1}
	require.True(t, Identical(m, m))
	require.False(t, Identical(m, map[string]any{"a": 1}))
	require.True(t, Identical("x", "x"))
	require.False(t, Identical(1, 1.0))
	require.True(t, Identical(nil, nil))
}

func TestTruthyAndEmpty(t *testing.T) {
	t.Parallel()
	require.False(t, Truthy(nil))
	require.False(t, Truthy(0.0))
	require.False(t, Truthy(""))
	require.True(t, Truthy([]any{}))
	require.True(t, Truthy("0"))
	require.True(t, IsEmpty([]any{}))
	require.True(t, IsEmpty(map[string]any{}))
	require.False(t, IsEmpty(0))
}

type upper struct{}

func (upper) Filter(v any, _ string) bool {
	_, ok := v.(*box)
	return ok
}

func (upper) Wrap(_ *Viewmodel, v any, _ string) Wrapper { return &boxWrapper{b: v.(*box)} }

type box struct{ name string }

type boxWrapper struct {
	b        *box
	torndown bool
}

func (w *boxWrapper) Get() any { return map[string]any{"name": strings.ToUpper(w.b.name)} }

func (w *boxWrapper) Set(key string, v any) {
	if key == "name" {
		w.b.name, _ = v.(string)
	}
}

func (w *boxWrapper) Reset(v any) bool {
	b, ok := v.(*box)
	if ok {
		w.b = b
	}
	return ok
}

func (w *boxWrapper) Teardown() { w.torndown = true }

func TestAdaptorWrapsValues(t *testing.T) {
	t.Parallel()
	b := &box{name: "ada"}
	vm := New(map[string]any{"person": b}, nil, upper{})

	require.Equal(t, "ADA", vm.Get("person.name", Evaluated))
	require.Equal(t, b, vm.Get("person", GetOptions{}))

	vm.Set("person.name", "grace", false)
	require.Equal(t, "grace", b.name)
	require.Equal(t, "GRACE", vm.Get("person.name", Evaluated))

	w, ok := vm.Wrapped("person")
	require.True(t, ok)
	vm.Set("person", "plain", false)
	require.True(t, w.(*boxWrapper).torndown)
	_, ok = vm.Wrapped("person")
	require.False(t, ok)
	require.Equal(t, "plain", vm.Get("person", Evaluated))
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	data, err := LoadYAML(strings.NewReader("title: todo\nitems:\n  - text: milk\n    done: false\n"))
	require.NoError(t, err)
	vm := New(data, nil)
	require.Equal(t, "milk", vm.Get("items.0.text", GetOptions{}))
	require.Equal(t, false, vm.Get("items.0.done", GetOptions{}))

	empty, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = LoadYAML(strings.NewReader("- a\n- b\n"))
	require.Error(t, err)
}

func TestString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "", String(nil))
	require.Equal(t, "1.5", String(1.5))
	require.Equal(t, "3", String(3))
	require.Equal(t, `{"a":1}`, String(map[string]any{"a": 1}))
}
