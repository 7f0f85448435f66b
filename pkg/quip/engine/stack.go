package engine

import "github.com/sambeau/quip/pkg/quip/object"

// ResultStack is the LIFO of evaluated results shared by a run and every run
// nested inside it. It is owned by the Context, not the engine.
type ResultStack struct {
	items []object.Object
}

// NewResultStack returns an empty stack.
func NewResultStack() *ResultStack {
	return &ResultStack{}
}

func (s *ResultStack) Push(o object.Object) {
	s.items = append(s.items, o)
}

func (s *ResultStack) Pop() (object.Object, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	o := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	return o, true
}

func (s *ResultStack) Peek() (object.Object, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	return s.items[len(s.items)-1], true
}

func (s *ResultStack) Len() int { return len(s.items) }

// Items returns a copy of the entries, bottom first.
func (s *ResultStack) Items() []object.Object {
	out := make([]object.Object, len(s.items))
	copy(out, s.items)
	return out
}

// Drain removes every entry above base and returns them bottom first.
func (s *ResultStack) Drain(base int) []object.Object {
	if base >= len(s.items) {
		return nil
	}
	out := make([]object.Object, len(s.items)-base)
	copy(out, s.items[base:])
	clear(s.items[base:])
	s.items = s.items[:base]
	return out
}
