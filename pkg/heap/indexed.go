package heap

type entry[K comparable, V any] struct {
	key   K
	value V
	index int
}

// Indexed is a priority queue of unique keys. The position of every key is
// tracked so its priority can be changed or the key removed in O(log n).
type Indexed[K comparable, V any] struct {
	heap  *Heap[*entry[K, V]]
	index map[K]*entry[K, V]
}

// NewIndexed returns an indexed queue ordered by less over the values.
func NewIndexed[K comparable, V any](less func(a, b V) bool) *Indexed[K, V] {
	q := &Indexed[K, V]{
		heap: New(func(a, b *entry[K, V]) bool {
			return less(a.value, b.value)
		}),
		index: make(map[K]*entry[K, V]),
	}
	q.heap.onMove = func(e *entry[K, V], i int) {
		e.index = i
	}
	return q
}

func (q *Indexed[K, V]) Len() int {
	return q.heap.Len()
}

func (q *Indexed[K, V]) Contains(key K) bool {
	_, ok := q.index[key]
	return ok
}

func (q *Indexed[K, V]) Get(key K) (V, bool) {
	e, ok := q.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Push inserts key with the given value or updates the value of a key
// already in the queue.
func (q *Indexed[K, V]) Push(key K, value V) {
	if e, ok := q.index[key]; ok {
		e.value = value
		q.heap.Fix(e.index)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	q.index[key] = e
	q.heap.Push(e)
}

func (q *Indexed[K, V]) Top() (K, V, bool) {
	e, ok := q.heap.Top()
	if !ok {
		var (
			key   K
			value V
		)
		return key, value, false
	}
	return e.key, e.value, true
}

func (q *Indexed[K, V]) Pop() (K, V, bool) {
	e, ok := q.heap.Pop()
	if !ok {
		var (
			key   K
			value V
		)
		return key, value, false
	}
	delete(q.index, e.key)
	return e.key, e.value, true
}

func (q *Indexed[K, V]) Remove(key K) (V, bool) {
	e, ok := q.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	q.heap.Remove(e.index)
	delete(q.index, key)
	return e.value, true
}
