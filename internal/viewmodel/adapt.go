package viewmodel

// Adaptor recognises values that need an indirection between what is stored
// and what the view reads.
type Adaptor interface {
	Filter(value any, keypath string) bool
	Wrap(vm *Viewmodel, value any, keypath string) Wrapper
}

// Wrapper sits at a keypath in place of an adapted value.
type Wrapper interface {
	// Get returns the value the view sees.
	Get() any
	// Set writes a member of the wrapped value.
	Set(key string, value any)
	// Reset offers a replacement value. Returning false discards the wrapper.
	Reset(value any) bool
	Teardown()
}

func (vm *Viewmodel) adapt(kp string, value any) {
	if value == nil || kp == "" {
		return
	}
	if _, ok := vm.wrapped[kp]; ok {
		return
	}
	for _, a := range vm.adaptors {
		if a.Filter(value, kp) {
			vm.wrapped[kp] = a.Wrap(vm, value, kp)
			vm.log.Debug("value adapted", "keypath", kp)
			return
		}
	}
}

// Wrapped returns the wrapper at kp, if any.
func (vm *Viewmodel) Wrapped(kp string) (Wrapper, bool) {
	w, ok := vm.wrapped[kp]
	return w, ok
}
