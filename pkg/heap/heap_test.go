package heap

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeap_MinOrder(t *testing.T) {
	h := NewMin[int]()
	rnd := rand.New(rand.NewSource(1))

	values := make([]int, 1000)
	for i := range values {
		values[i] = rnd.Intn(500)
		h.Push(values[i])
	}
	sort.Ints(values)

	for _, want := range values {
		top, ok := h.Top()
		require.True(t, ok)
		require.Equal(t, want, top)

		got, ok := h.Pop()
		require.True(t, ok)
		require.Equal(t, want, got)
	}

	_, ok := h.Pop()
	require.False(t, ok)
	require.True(t, h.Empty())
}

func TestHeap_MaxOrder(t *testing.T) {
	h := NewMax[uint32]()
	for _, v := range []uint32{3, 9, 1, 7, 9, 0} {
		h.Push(v)
	}

	var got []uint32
	for !h.Empty() {
		v, _ := h.Pop()
		got = append(got, v)
	}
	require.Equal(t, []uint32{9, 9, 7, 3, 1, 0}, got)
}

func TestHeap_Remove(t *testing.T) {
	h := NewMin[int]()
	for i := 10; i > 0; i-- {
		h.Push(i)
	}

	removed := h.Remove(3)
	require.Equal(t, 9, h.Len())

	var got []int
	for !h.Empty() {
		v, _ := h.Pop()
		got = append(got, v)
	}
	require.True(t, sort.IntsAreSorted(got))
	require.NotContains(t, got, removed)
}

func TestIndexed_UpdateAndRemove(t *testing.T) {
	q := NewIndexed[uint32, int](func(a, b int) bool { return a > b })

	q.Push(1, 10)
	q.Push(2, 30)
	q.Push(3, 20)

	id, v, ok := q.Top()
	require.True(t, ok)
	require.Equal(t, uint32(2), id)
	require.Equal(t, 30, v)

	q.Push(2, 5)
	id, _, _ = q.Top()
	require.Equal(t, uint32(3), id)
	require.Equal(t, 3, q.Len())

	v, ok = q.Remove(3)
	require.True(t, ok)
	require.Equal(t, 20, v)
	require.False(t, q.Contains(3))

	_, ok = q.Remove(3)
	require.False(t, ok)

	id, v, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(1), id)
	require.Equal(t, 10, v)

	got, ok := q.Get(2)
	require.True(t, ok)
	require.Equal(t, 5, got)
}

func TestIndexed_RandomOperations(t *testing.T) {
	q := NewIndexed[int, int](func(a, b int) bool { return a < b })
	model := map[int]int{}
	rnd := rand.New(rand.NewSource(7))

	for i := 0; i < 5000; i++ {
		key := rnd.Intn(200)
		switch rnd.Intn(3) {
		case 0, 1:
			v := rnd.Intn(1000)
			q.Push(key, v)
			model[key] = v
		case 2:
			_, inModel := model[key]
			_, ok := q.Remove(key)
			require.Equal(t, inModel, ok)
			delete(model, key)
		}
		require.Equal(t, len(model), q.Len())
	}

	prev := -1
	for q.Len() > 0 {
		key, v, _ := q.Pop()
		require.Equal(t, model[key], v)
		require.GreaterOrEqual(t, v, prev)
		prev = v
	}
}
