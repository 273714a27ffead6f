// Package heap provides an array backed binary heap and an indexed priority
// queue built on top of it.
package heap

import (
	"golang.org/x/exp/constraints"
)

// Heap is a binary heap ordered by less: Top is the element for which less
// holds against every other element. It is not safe for concurrent use.
type Heap[T any] struct {
	items  []T
	less   func(a, b T) bool
	onMove func(item T, index int)
}

func New[T any](less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{less: less}
}

// NewMin returns a heap popping the smallest element first.
func NewMin[T constraints.Ordered]() *Heap[T] {
	return New(func(a, b T) bool { return a < b })
}

// NewMax returns a heap popping the largest element first.
func NewMax[T constraints.Ordered]() *Heap[T] {
	return New(func(a, b T) bool { return a > b })
}

func (h *Heap[T]) Len() int {
	return len(h.items)
}

func (h *Heap[T]) Empty() bool {
	return len(h.items) == 0
}

func (h *Heap[T]) Push(item T) {
	h.items = append(h.items, item)
	h.moved(len(h.items) - 1)
	h.up(len(h.items) - 1)
}

func (h *Heap[T]) Top() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return h.items[0], true
}

func (h *Heap[T]) Pop() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return h.Remove(0), true
}

// Remove deletes the element at index i and returns it.
func (h *Heap[T]) Remove(i int) T {
	last := len(h.items) - 1
	item := h.items[i]
	if i != last {
		h.swap(i, last)
	}

	var zero T
	h.items[last] = zero
	h.items = h.items[:last]

	if i != last {
		h.Fix(i)
	}
	return item
}

// Fix restores the heap order after the element at index i changed.
func (h *Heap[T]) Fix(i int) {
	if !h.down(i) {
		h.up(i)
	}
}

func (h *Heap[T]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(h.items[i], h.items[parent]) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *Heap[T]) down(i0 int) bool {
	i := i0
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		j := left
		if right := left + 1; right < n && h.less(h.items[right], h.items[left]) {
			j = right
		}
		if !h.less(h.items[j], h.items[i]) {
			break
		}
		h.swap(i, j)
		i = j
	}
	return i > i0
}

func (h *Heap[T]) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.moved(i)
	h.moved(j)
}

func (h *Heap[T]) moved(i int) {
	if h.onMove != nil {
		h.onMove(h.items[i], i)
	}
}
