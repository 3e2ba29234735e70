// Package resolve maps template references to keypaths in the data store.
//
// Resolution walks the scope chain from the rendering scope outward and,
// for inline components that are not isolated, continues in the parent
// instance. A reference that cannot be resolved yet is not an error: the
// caller keeps it and retries after the data changes. The only hard error is
// ErrTooManyAncestors.
package resolve

import (
	"errors"
	"strings"

	"github.com/jask/livetree/internal/keypath"
	"github.com/jask/livetree/internal/viewmodel"
)

// ErrTooManyAncestors is returned when a "../" reference climbs above the
// root context.
var ErrTooManyAncestors = errors.New(`could not resolve reference - too many "../" prefixes`)

// Scope is one level of rendering context, usually a fragment.
type Scope interface {
	// Context returns the keypath this scope is bound to, if any.
	Context() (string, bool)
	// ParentScope returns the enclosing scope, or nil at the top.
	ParentScope() Scope
	// IndexRefs returns the index aliases visible in this scope.
	IndexRefs() map[string]int
}

// Store is the part of the data store resolution reads and writes.
type Store interface {
	Get(kp string, opts viewmodel.GetOptions) any
	Set(kp string, value any, silent bool)
	HasRoot(key string) bool
}

// Instance is a view instance, possibly an inline component of another.
type Instance interface {
	Store() Store
	// ParentInstance returns the hosting instance of an inline component,
	// or nil.
	ParentInstance() Instance
	Isolated() bool
	// HostScope is the scope in the parent instance the component was
	// rendered in.
	HostScope() Scope
	// BindIndexRef records that ref mirrors an index alias of the host scope.
	BindIndexRef(ref string, index int)
	// CreateComponentBinding keeps childRef in this instance and
	// parentKeypath in the parent instance in sync in both directions.
	CreateComponentBinding(parentKeypath, childRef string)
}

// Result is the outcome of a resolution.
type Result struct {
	// Keypath is the absolute keypath, valid when Resolved.
	Keypath string
	// Resolved reports success.
	Resolved bool
	// ByValue reports that the reference was bound to an index alias
	// value in the local store rather than to a keypath upstream. The
	// local keypath is the reference itself.
	ByValue bool
}

func resolved(kp string) Result { return Result{Keypath: kp, Resolved: true} }

// Ref resolves ref as seen from scope in inst.
func Ref(inst Instance, ref string, scope Scope) (Result, error) {
	ref = keypath.Normalise(ref)

	if strings.HasPrefix(ref, ".") {
		kp, err := Ancestor(InnerContext(scope), ref)
		if err != nil {
			return Result{}, err
		}
		return resolved(kp), nil
	}

	store := inst.Store()
	key := keypath.Head(ref)
	hasContextChain := false
	for s := scope; s != nil; s = s.ParentScope() {
		ctx, ok := s.Context()
		if !ok || ctx == "" {
			continue
		}
		hasContextChain = true
		if viewmodel.HasKey(store.Get(ctx, viewmodel.Evaluated), key) {
			return resolved(ctx + "." + ref), nil
		}
	}

	if store.HasRoot(key) {
		return resolved(ref), nil
	}

	if parent := inst.ParentInstance(); parent != nil && !inst.Isolated() {
		host := inst.HostScope()
		if host != nil {
			if index, ok := host.IndexRefs()[ref]; ok {
				inst.BindIndexRef(ref, index)
				return Result{Keypath: ref, Resolved: true, ByValue: true}, nil
			}
		}

		up, err := Ref(parent, ref, host)
		if err != nil {
			return Result{}, err
		}
		if up.Resolved {
			store.Set(ref, parent.Store().Get(up.Keypath, viewmodel.Evaluated), true)
			inst.CreateComponentBinding(up.Keypath, ref)
		}
	}

	if !hasContextChain {
		return resolved(ref), nil
	}
	if store.Get(ref, viewmodel.GetOptions{}) != nil {
		return resolved(ref), nil
	}
	return Result{}, nil
}

// InnerContext returns the nearest context keypath enclosing scope, or the
// root keypath.
func InnerContext(scope Scope) string {
	for s := scope; s != nil; s = s.ParentScope() {
		if ctx, ok := s.Context(); ok {
			return ctx
		}
	}
	return ""
}

// Ancestor resolves a reference starting with "." against base: "." is base
// itself, each "../" pops one segment, and "./x" or ".x" is x restricted to
// base.
func Ancestor(base, ref string) (string, error) {
	if ref == "." {
		return base, nil
	}

	if strings.HasPrefix(ref, "../") {
		keys := keypath.Split(base)
		for strings.HasPrefix(ref, "../") {
			if len(keys) == 0 {
				return "", ErrTooManyAncestors
			}
			keys = keys[:len(keys)-1]
			ref = ref[3:]
		}
		if ref != "" && ref != "." {
			keys = append(keys, ref)
		}
		return strings.Join(keys, "."), nil
	}

	rest := strings.TrimPrefix(ref, "./")
	if rest == ref {
		rest = strings.TrimPrefix(ref, ".")
	}
	if base == "" {
		return rest, nil
	}
	return keypath.Join(base, rest), nil
}
