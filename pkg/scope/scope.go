// Package scope implements the lexical environment shared by the parser and
// the evaluator.
//
// A Stack holds one frame per open block. Lookups search the innermost frame
// first and walk outward, so an inner declaration shadows an outer one for as
// long as its block is open. The bottom (global) frame is never popped.
package scope

// Stack is a chain of name→binding frames.
type Stack[T any] struct {
	frames []map[string]T
}

// New creates a stack holding only the global frame.
func New[T any]() *Stack[T] {
	return &Stack[T]{frames: []map[string]T{make(map[string]T)}}
}

// Push opens a new innermost frame.
func (s *Stack[T]) Push() {
	s.frames = append(s.frames, make(map[string]T))
}

// Pop discards the innermost frame. Popping the global frame is a no-op.
func (s *Stack[T]) Pop() {
	if len(s.frames) <= 1 {
		return
	}
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
}

// Depth returns the number of open frames, including the global frame.
func (s *Stack[T]) Depth() int {
	return len(s.frames)
}

// Reset drops every frame above the global one.
func (s *Stack[T]) Reset() {
	for len(s.frames) > 1 {
		s.Pop()
	}
}

// Declare binds name in the innermost frame. It reports whether the frame
// already held a binding for name, which is replaced.
func (s *Stack[T]) Declare(name string, val T) (replaced bool) {
	top := s.frames[len(s.frames)-1]
	_, replaced = top[name]
	top[name] = val
	return replaced
}

// Undeclare removes name from the innermost frame and reports whether it was
// bound there. Outer frames are untouched.
func (s *Stack[T]) Undeclare(name string) bool {
	top := s.frames[len(s.frames)-1]
	_, ok := top[name]
	delete(top, name)
	return ok
}

// Lookup finds name, searching from the innermost frame outward. distance is
// the number of frames walked past before the binding was found.
func (s *Stack[T]) Lookup(name string) (val T, distance int, ok bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, found := s.frames[i][name]; found {
			return v, len(s.frames) - 1 - i, true
		}
	}
	var zero T
	return zero, 0, false
}

// Get is Lookup without the distance.
func (s *Stack[T]) Get(name string) (T, bool) {
	v, _, ok := s.Lookup(name)
	return v, ok
}

// Has checks whether name is bound in any open frame.
func (s *Stack[T]) Has(name string) bool {
	_, _, ok := s.Lookup(name)
	return ok
}

// Assign rebinds name in the nearest frame that holds it. It never creates a
// binding and reports false when name is unbound everywhere.
func (s *Stack[T]) Assign(name string, val T) bool {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if _, found := s.frames[i][name]; found {
			s.frames[i][name] = val
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the stack. Bindings are copied
// shallowly.
func (s *Stack[T]) Clone() *Stack[T] {
	c := &Stack[T]{frames: make([]map[string]T, len(s.frames))}
	for i, f := range s.frames {
		m := make(map[string]T, len(f))
		for k, v := range f {
			m[k] = v
		}
		c.frames[i] = m
	}
	return c
}
