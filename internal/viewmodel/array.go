package viewmodel

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jask/livetree/internal/keypath"
)

// ErrNotArray is returned by array mutations on a keypath that does not hold
// an array.
var ErrNotArray = errors.New("viewmodel: value is not an array")

// SpliceSummary describes a positional edit of an array.
type SpliceSummary struct {
	Start   int
	Removed int
	Added   int
}

// Balance is the change in length.
func (s SpliceSummary) Balance() int { return s.Added - s.Removed }

// SpliceSlice applies a splice to a copy of arr. A negative start counts from
// the end; start and removeCount are clamped to the array.
func SpliceSlice(arr []any, start, removeCount int, items ...any) ([]any, []any, SpliceSummary) {
	n := len(arr)
	if start < 0 {
		start = max(n+start, 0)
	}
	start = min(start, n)
	removeCount = min(max(removeCount, 0), n-start)

	removed := append([]any(nil), arr[start:start+removeCount]...)
	out := make([]any, 0, n-removeCount+len(items))
	out = append(out, arr[:start]...)
	out = append(out, items...)
	out = append(out, arr[start+removeCount:]...)
	return out, removed, SpliceSummary{Start: start, Removed: removeCount, Added: len(items)}
}

// Splice replaces the array at kp with arr, the result of the edit s, and
// notifies dependants positionally: Splicers at kp follow the edit, and
// dependants below kp are refreshed only from index s.Start onwards.
func (vm *Viewmodel) Splice(kp string, arr []any, s SpliceSummary) {
	vm.Set(kp, arr, true)

	for _, d := range append([]Dependant(nil), vm.deps[kp]...) {
		if sp, ok := d.(Splicer); ok && vm.registered(kp, d) {
			sp.Splice(s)
		}
	}
	affected := vm.affected(func(k string) bool {
		if k == kp || keypath.IsDescendant(kp, k) {
			return true
		}
		if i, ok := keypath.IndexBelow(k, kp); ok {
			return i >= s.Start
		}
		return keypath.IsDescendant(k, kp)
	})
	vm.notify(affected, func(k string, d Dependant) bool {
		_, ok := d.(Splicer)
		return ok && k == kp
	})
}

// Merge replaces the array at kp with arr, where newIndices maps each old
// index to its new position (-1 for removed items).
func (vm *Viewmodel) Merge(kp string, arr []any, newIndices []int) {
	vm.Set(kp, arr, true)

	for _, d := range append([]Dependant(nil), vm.deps[kp]...) {
		if m, ok := d.(Merger); ok && vm.registered(kp, d) {
			m.Merge(newIndices)
		}
	}
	affected := vm.affected(func(k string) bool {
		return k == kp || keypath.IsDescendant(kp, k) || keypath.IsDescendant(k, kp)
	})
	vm.notify(affected, func(k string, d Dependant) bool {
		_, ok := d.(Merger)
		return ok && k == kp
	})
}

// List returns the array at kp.
func (vm *Viewmodel) List(kp string) ([]any, error) {
	v := vm.Get(kp, Evaluated)
	if v == nil {
		return nil, nil
	}
	arr, ok := AsList(v)
	if !ok {
		return nil, fmt.Errorf("%s: %w", kp, ErrNotArray)
	}
	return arr, nil
}

// MapOldToNewIndex matches each item of oldArr to a position in newArr. Items
// are matched in original order and each takes the first unused equal
// position; unmatched items map to -1.
func MapOldToNewIndex(oldArr, newArr []any, equal func(a, b any) bool) []int {
	if equal == nil {
		equal = Identical
	}
	used := make(map[int]bool, len(newArr))
	firstUnused := 0
	out := make([]int, len(oldArr))
	for i, item := range oldArr {
		out[i] = -1
		for j := firstUnused; j < len(newArr); j++ {
			if used[j] || !equal(item, newArr[j]) {
				continue
			}
			used[j] = true
			out[i] = j
			break
		}
		for firstUnused < len(newArr) && used[firstUnused] {
			firstUnused++
		}
	}
	return out
}

func sortStrings(s []string) { sort.Strings(s) }
