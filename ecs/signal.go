package ecs

import "slices"

// Subscription identifies one handler registered on a Signal.
type Subscription uint64

type handler[T any] struct {
	id Subscription
	fn func(T)
}

// Signal is an ordered list of handlers invoked synchronously, in
// registration order, every time the owner emits. The zero value is ready to
// use.
//
// Handlers may subscribe or unsubscribe while a delivery is in progress; the
// in-flight delivery keeps the handler list it started with.
type Signal[T any] struct {
	handlers []handler[T]
	nextID   Subscription
}

// Subscribe appends fn to the handler list.
func (s *Signal[T]) Subscribe(fn func(T)) Subscription {
	s.nextID++
	s.handlers = append(slices.Clip(s.handlers), handler[T]{id: s.nextID, fn: fn})
	return s.nextID
}

// Unsubscribe removes the handler registered under sub. It reports whether
// the handler was present.
func (s *Signal[T]) Unsubscribe(sub Subscription) bool {
	idx := slices.IndexFunc(s.handlers, func(h handler[T]) bool { return h.id == sub })
	if idx < 0 {
		return false
	}
	next := make([]handler[T], 0, len(s.handlers)-1)
	next = append(next, s.handlers[:idx]...)
	s.handlers = append(next, s.handlers[idx+1:]...)
	return true
}

// Len returns the number of registered handlers.
func (s *Signal[T]) Len() int {
	return len(s.handlers)
}

func (s *Signal[T]) emit(v T) {
	for _, h := range s.handlers {
		h.fn(v)
	}
}

func (s *Signal[T]) clear() {
	s.handlers = nil
}
