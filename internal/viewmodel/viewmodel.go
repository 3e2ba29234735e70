// Package viewmodel implements the data store behind a view: a mutable tree
// of maps and slices addressed by keypaths, with dependants notified when
// the values they read change.
package viewmodel

import (
	"log/slog"
	"reflect"
	"sort"
	"strconv"

	"github.com/jask/livetree/internal/keypath"
)

// GetOptions controls how Get reads the store.
type GetOptions struct {
	// EvaluateWrapped reads through adaptor wrappers, returning the value
	// the wrapper exposes instead of the raw stored value.
	EvaluateWrapped bool
}

// Evaluated is the read mode used by the view layer.
var Evaluated = GetOptions{EvaluateWrapped: true}

// Dependant is notified with the current value at its keypath after a
// change that may affect it.
type Dependant interface {
	SetValue(value any)
}

// Splicer is a Dependant that can follow positional array edits instead of
// re-evaluating the whole array.
type Splicer interface {
	Dependant
	Splice(s SpliceSummary)
}

// Merger is a Dependant that can follow a reordering of an array.
type Merger interface {
	Dependant
	Merge(newIndices []int)
}

// Viewmodel is the data store. It is not safe for concurrent use; the view
// engine drives it from a single goroutine.
type Viewmodel struct {
	data     map[string]any
	wrapped  map[string]Wrapper
	adaptors []Adaptor
	deps     map[string][]Dependant
	changes  []string
	log      *slog.Logger
}

// New returns a store holding data. A nil map starts an empty store.
func New(data map[string]any, logger *slog.Logger, adaptors ...Adaptor) *Viewmodel {
	if data == nil {
		data = map[string]any{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	vm := &Viewmodel{
		data:     data,
		wrapped:  map[string]Wrapper{},
		adaptors: adaptors,
		deps:     map[string][]Dependant{},
		log:      logger,
	}
	for k, v := range data {
		vm.adapt(k, v)
	}
	return vm
}

// Data returns the root of the store.
func (vm *Viewmodel) Data() map[string]any { return vm.data }

// HasRoot reports whether key is an own property of the root.
func (vm *Viewmodel) HasRoot(key string) bool {
	_, ok := vm.data[key]
	return ok
}

// Get returns the value at kp, or nil if any part of the path is missing.
func (vm *Viewmodel) Get(kp string, opts GetOptions) any {
	if opts.EvaluateWrapped {
		if w, ok := vm.wrapped[kp]; ok {
			return w.Get()
		}
	}
	if kp == "" {
		return vm.data
	}
	var cur any = vm.data
	prefix := ""
	for _, seg := range keypath.Split(kp) {
		if w, ok := vm.wrapped[prefix]; ok && prefix != "" {
			cur = w.Get()
		}
		var ok bool
		if cur, ok = Child(cur, seg); !ok {
			return nil
		}
		prefix = keypath.Join(prefix, seg)
	}
	return cur
}

// Set stores value at kp, creating intermediate maps and slices as needed.
// Unless silent, kp is marked as changed and its dependants are notified on
// the next ApplyChanges.
func (vm *Viewmodel) Set(kp string, value any, silent bool) {
	if w, ok := vm.wrapped[kp]; ok {
		if w.Reset(value) {
			if !silent {
				vm.Mark(kp)
			}
			return
		}
		w.Teardown()
		delete(vm.wrapped, kp)
	}
	for k, w := range vm.wrapped {
		if keypath.IsDescendant(k, kp) {
			w.Teardown()
			delete(vm.wrapped, k)
		}
	}

	parent, key := keypath.Parent(kp), keypath.Base(kp)
	if w, ok := vm.wrapped[parent]; ok && kp != "" {
		w.Set(key, value)
	} else if kp == "" {
		if m, ok := value.(map[string]any); ok {
			vm.data = m
		}
	} else {
		vm.data = setIn(vm.data, keypath.Split(kp), value).(map[string]any)
	}
	vm.adapt(kp, value)
	if !silent {
		vm.Mark(kp)
	}
}

// Mark records kp as changed.
func (vm *Viewmodel) Mark(kp string) {
	for _, c := range vm.changes {
		if c == kp {
			return
		}
	}
	vm.changes = append(vm.changes, kp)
}

// Register subscribes d to changes at kp.
func (vm *Viewmodel) Register(kp string, d Dependant) {
	vm.deps[kp] = append(vm.deps[kp], d)
}

// Unregister removes d from kp. It is a no-op if d is not registered.
func (vm *Viewmodel) Unregister(kp string, d Dependant) {
	list := vm.deps[kp]
	for i, x := range list {
		if x == d {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(vm.deps, kp)
	} else {
		vm.deps[kp] = list
	}
}

// Dependants returns the number of dependants registered at kp.
func (vm *Viewmodel) Dependants(kp string) int { return len(vm.deps[kp]) }

func (vm *Viewmodel) registered(kp string, d Dependant) bool {
	for _, x := range vm.deps[kp] {
		if x == d {
			return true
		}
	}
	return false
}

// ApplyChanges notifies the dependants of every keypath marked since the
// last call. Dependants of ancestors and descendants of a changed keypath are
// notified as well, shallowest first. It reports whether anything was marked.
func (vm *Viewmodel) ApplyChanges() bool {
	if len(vm.changes) == 0 {
		return false
	}
	changes := vm.changes
	vm.changes = nil

	affected := vm.affected(func(k string) bool {
		for _, c := range changes {
			if k == c || keypath.IsDescendant(k, c) || keypath.IsDescendant(c, k) {
				return true
			}
		}
		return false
	})
	vm.notify(affected, nil)
	return true
}

// affected returns the registered keypaths accepted by match, shallowest
// first.
func (vm *Viewmodel) affected(match func(string) bool) []string {
	var out []string
	for k := range vm.deps {
		if match(k) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := keypath.Depth(out[i]), keypath.Depth(out[j])
		if di != dj {
			return di < dj
		}
		return out[i] < out[j]
	})
	return out
}

// notify sends current values to the dependants at each keypath. Dependants
// unregistered by an earlier notification in the same pass are skipped.
func (vm *Viewmodel) notify(kps []string, skip func(kp string, d Dependant) bool) {
	for _, k := range kps {
		list := append([]Dependant(nil), vm.deps[k]...)
		for _, d := range list {
			if skip != nil && skip(k, d) {
				continue
			}
			if !vm.registered(k, d) {
				continue
			}
			d.SetValue(vm.Get(k, Evaluated))
		}
	}
}

// Child returns the member key of v. Maps with string keys, slices, arrays
// and exported struct fields are supported; "length" on a slice is its
// length.
func Child(v any, key string) (any, bool) {
	switch c := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		x, ok := c[key]
		return x, ok
	case []any:
		if key == "length" {
			return len(c), true
		}
		i, ok := keypath.Index(key)
		if !ok || i >= len(c) {
			return nil, false
		}
		return c[i], true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		x := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !x.IsValid() {
			return nil, false
		}
		return x.Interface(), true
	case reflect.Slice, reflect.Array:
		if key == "length" {
			return rv.Len(), true
		}
		i, ok := keypath.Index(key)
		if !ok || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	case reflect.Struct:
		f := rv.FieldByName(key)
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	}
	return nil, false
}

// HasKey reports whether key is an own member of v. Only objects (maps,
// slices, structs) have members; primitives never do.
func HasKey(v any, key string) bool {
	_, ok := Child(v, key)
	return ok
}

func setIn(container any, segs []string, value any) any {
	seg := segs[0]
	if i, isIndex := keypath.Index(seg); isIndex {
		s, ok := container.([]any)
		if !ok {
			if m, isMap := container.(map[string]any); isMap {
				return setMap(m, seg, segs, value)
			}
			s = nil
		}
		for len(s) <= i {
			s = append(s, nil)
		}
		if len(segs) == 1 {
			s[i] = value
		} else {
			s[i] = setIn(s[i], segs[1:], value)
		}
		return s
	}
	m, ok := container.(map[string]any)
	if !ok {
		if s, isSlice := container.([]any); isSlice {
			// Non-numeric keys on arrays are ignored, there is nowhere to
			// keep them.
			return s
		}
		m = map[string]any{}
	}
	return setMap(m, seg, segs, value)
}

func setMap(m map[string]any, seg string, segs []string, value any) any {
	if len(segs) == 1 {
		m[seg] = value
	} else {
		m[seg] = setIn(m[seg], segs[1:], value)
	}
	return m
}

// String formats a stored value for text output.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	}
	return formatOther(v)
}
