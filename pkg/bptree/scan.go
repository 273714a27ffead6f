package bptree

import (
	"go-bpt/pkg/customerrors"
	"go-bpt/pkg/pages"
)

// RangeQuery calls scanFn with every key in [lo, hi] in ascending order and
// a view of its record. The view is only valid during the call. Returning
// true from scanFn stops the scan. scanFn must not modify the tree.
func (tree *BPlusTree) RangeQuery(
	lo, hi uint32,
	scanFn func(key uint32, val []byte) (bool, error),
) (err error) {
	if tree.closed {
		return customerrors.ErrClosed
	}
	defer tree.hold()(&err)

	it := tree.Range(lo, hi)
	for it.Next() {
		stop, err := scanFn(it.Key(), it.Value())
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return it.Err()
}

// Range returns an iterator over the keys in [lo, hi]. The iterator is
// invalidated by any modification of the tree.
func (tree *BPlusTree) Range(lo, hi uint32) *Iterator {
	it := &Iterator{tree: tree, hi: hi}
	if tree.closed {
		it.err = customerrors.ErrClosed
		it.done = true
		return it
	}
	if hi < lo {
		it.done = true
		return it
	}

	tree.bm.Hold()
	leaf, err := tree.search(lo)
	if rerr := tree.bm.Release(); err == nil {
		err = rerr
	}
	if err != nil {
		it.err = err
		it.done = true
		return it
	}

	it.leaf = leaf
	it.idx, _ = leaf.Search(lo)
	return it
}

// Iterator walks the leaf chain in key order.
type Iterator struct {
	tree *BPlusTree
	hi   uint32
	leaf *pages.Node
	idx  int

	key  uint32
	val  []byte
	err  error
	done bool
}

// Next advances to the next entry and reports whether there is one.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}

	for it.idx >= it.leaf.Len() {
		if it.leaf.Next == pages.NullPage {
			it.done = true
			return false
		}

		next, err := it.tree.bm.GetNode(it.leaf.Next)
		if err != nil {
			it.err = err
			it.done = true
			return false
		}
		it.leaf, it.idx = next, 0
	}

	key := it.leaf.Keys[it.idx]
	if key > it.hi {
		it.done = true
		return false
	}

	val, err := it.tree.bm.GetData(it.leaf.RIDs[it.idx])
	if err != nil {
		it.err = err
		it.done = true
		return false
	}

	it.key, it.val = key, val
	it.idx++
	return true
}

func (it *Iterator) Key() uint32 { return it.key }

// Value returns a view of the current record, valid until the next call to
// Next or the next modification of the tree.
func (it *Iterator) Value() []byte { return it.val }

func (it *Iterator) Err() error { return it.err }
