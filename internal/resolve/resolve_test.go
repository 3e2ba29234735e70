package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/livetree/internal/viewmodel"
)

type scope struct {
	ctx     string
	hasCtx  bool
	parent  *scope
	indices map[string]int
}

func (s *scope) Context() (string, bool) { return s.ctx, s.hasCtx }

func (s *scope) ParentScope() Scope {
	if s.parent == nil {
		return nil
	}
	return s.parent
}

func (s *scope) IndexRefs() map[string]int { return s.indices }

func bound(kp string, parent *scope) *scope {
	return &scope{ctx: kp, hasCtx: true, parent: parent}
}

type binding struct{ parent, child string }

type instance struct {
	vm       *viewmodel.Viewmodel
	parent   *instance
	isolated bool
	host     *scope
	byValue  map[string]int
	bindings []binding
}

func newInstance(data map[string]any) *instance {
	return &instance{vm: viewmodel.New(data, nil), byValue: map[string]int{}}
}

func (i *instance) Store() Store { return i.vm }

func (i *instance) ParentInstance() Instance {
	if i.parent == nil {
		return nil
	}
	return i.parent
}

func (i *instance) Isolated() bool { return i.isolated }

func (i *instance) HostScope() Scope {
	if i.host == nil {
		return nil
	}
	return i.host
}

func (i *instance) BindIndexRef(ref string, index int) {
	i.byValue[ref] = index
	i.vm.Set(ref, index, true)
}

func (i *instance) CreateComponentBinding(parentKeypath, childRef string) {
	i.bindings = append(i.bindings, binding{parentKeypath, childRef})
}

func TestAncestor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		base, ref string
		want      string
		err       error
	}{
		{"a.b.c", "../../x", "a.x", nil},
		{"a", "../../x", "", ErrTooManyAncestors},
		{"a.b", ".", "a.b", nil},
		{"a.b", "../", "a", nil},
		{"a.b", "./c", "a.b.c", nil},
		{"a.b", ".c", "a.b.c", nil},
		{"", "./c", "c", nil},
	}
	for _, tt := range tests {
		got, err := Ancestor(tt.base, tt.ref)
		if tt.err != nil {
			require.ErrorIs(t, err, tt.err, "%s %s", tt.base, tt.ref)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "%s %s", tt.base, tt.ref)
	}
}

func TestRelativeReferences(t *testing.T) {
	t.Parallel()
	inst := newInstance(nil)
	s := bound("a.b.c", nil)

	r, err := Ref(inst, "../../x", s)
	require.NoError(t, err)
	require.Equal(t, Result{Keypath: "a.x", Resolved: true}, r)

	r, err = Ref(inst, ".", bound("a.b", nil))
	require.NoError(t, err)
	require.Equal(t, "a.b", r.Keypath)

	_, err = Ref(inst, "../../x", bound("a", nil))
	require.ErrorIs(t, err, ErrTooManyAncestors)
}

func TestNearerScopeShadows(t *testing.T) {
	t.Parallel()
	inst := newInstance(map[string]any{
		"outer": map[string]any{"name": "outer", "inner": map[string]any{"name": "inner"}},
		"name":  "root",
	})
	outer := bound("outer", nil)
	inner := bound("outer.inner", outer)

	r, err := Ref(inst, "name", inner)
	require.NoError(t, err)
	require.Equal(t, "outer.inner.name", r.Keypath)

	r, err = Ref(inst, "inner.name", outer)
	require.NoError(t, err)
	require.Equal(t, "outer.inner.name", r.Keypath)

	r, err = Ref(inst, "name", nil)
	require.NoError(t, err)
	require.Equal(t, "name", r.Keypath)
}

func TestPrimitiveContextHasNoMembers(t *testing.T) {
	t.Parallel()
	inst := newInstance(map[string]any{"list": []any{"x"}, "length": 3})
	r, err := Ref(inst, "length", bound("list.0", nil))
	require.NoError(t, err)
	require.Equal(t, "length", r.Keypath)
}

func TestRootFallbacks(t *testing.T) {
	t.Parallel()
	inst := newInstance(map[string]any{"items": []any{map[string]any{"a": 1}}})

	r, err := Ref(inst, "missing", nil)
	require.NoError(t, err)
	require.True(t, r.Resolved, "no context chain resolves to the reference")
	require.Equal(t, "missing", r.Keypath)

	r, err = Ref(inst, "missing", bound("items.0", nil))
	require.NoError(t, err)
	require.False(t, r.Resolved)

	r, err = Ref(inst, "items[0].a", bound("items.0", nil))
	require.NoError(t, err)
	require.Equal(t, "items.0.a", r.Keypath)
}

func TestComponentClimb(t *testing.T) {
	t.Parallel()
	parent := newInstance(map[string]any{"rows": []any{map[string]any{"title": "one"}}})
	host := bound("rows.0", nil)
	host.indices = map[string]int{"i": 0}

	child := newInstance(nil)
	child.parent = parent
	child.host = host

	r, err := Ref(child, "title", nil)
	require.NoError(t, err)
	require.Equal(t, Result{Keypath: "title", Resolved: true}, r)
	require.Equal(t, []binding{{"rows.0.title", "title"}}, child.bindings)
	require.Equal(t, "one", child.vm.Get("title", viewmodel.GetOptions{}))

	r, err = Ref(child, "i", nil)
	require.NoError(t, err)
	require.True(t, r.ByValue)
	require.Equal(t, "i", r.Keypath)
	require.Equal(t, 0, child.byValue["i"])

	child.isolated = true
	child.bindings = nil
	r, err = Ref(child, "other", bound("x", nil))
	require.NoError(t, err)
	require.False(t, r.Resolved)
	require.Empty(t, child.bindings)
}
