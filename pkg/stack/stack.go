package stack

import (
	"errors"
)

var ErrEmptyStack = errors.New("empty stack")

type stack[T interface{}] struct {
	s []T
}

// Stack is a slice backed LIFO. It is not safe for concurrent use.
type Stack[T interface{}] interface {
	Push(v T)
	Pop() T
	Top() T
	// Peek returns the element depth positions below the top, Peek(0) == Top().
	Peek(depth int) T
	Size() int
	Empty() bool
	Clear()
}

func New[T interface{}](initialSize int) Stack[T] {
	return &stack[T]{make([]T, 0, initialSize)}
}

func (s *stack[T]) Push(value T) {
	s.s = append(s.s, value)
}

func (s *stack[T]) Pop() T {
	l := len(s.s)
	if l == 0 {
		panic(ErrEmptyStack)
	}

	value := s.s[l-1]
	s.s = s.s[:l-1]
	return value
}

func (s *stack[T]) Top() T {
	return s.Peek(0)
}

func (s *stack[T]) Peek(depth int) T {
	l := len(s.s)
	if depth < 0 || depth >= l {
		panic(ErrEmptyStack)
	}

	return s.s[l-1-depth]
}

func (s *stack[T]) Size() int {
	return len(s.s)
}

func (s *stack[T]) Empty() bool {
	return len(s.s) == 0
}

// Clear drops all elements but keeps the allocated capacity.
func (s *stack[T]) Clear() {
	s.s = s.s[:0]
}
