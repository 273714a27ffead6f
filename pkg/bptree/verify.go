package bptree

import (
	"github.com/pkg/errors"

	"go-bpt/pkg/customerrors"
	"go-bpt/pkg/pages"
)

type bounds struct {
	lo, hi       uint32
	hasLo, hasHi bool
}

func (b bounds) contains(key uint32) bool {
	return (!b.hasLo || key >= b.lo) && (!b.hasHi || key < b.hi)
}

type verifyState struct {
	leafLevel int
	leaves    []uint32
	seen      map[uint32]bool
}

// Verify checks the structure of the whole tree: key order and ranges,
// node occupancy, uniform leaf depth, separators equal to the smallest key
// of their right subtree, readable records and a leaf chain visiting every
// leaf in order. It returns an error wrapping customerrors.ErrInvariant for
// the first violation found.
func (tree *BPlusTree) Verify() (err error) {
	if tree.closed {
		return customerrors.ErrClosed
	}
	defer tree.hold()(&err)

	st := &verifyState{seen: map[uint32]bool{}}
	if _, err := tree.verifyNode(tree.rootID, bounds{}, 1, st); err != nil {
		return err
	}

	id := st.leaves[0]
	for i := 0; id != pages.NullPage; i++ {
		if i >= len(st.leaves) || st.leaves[i] != id {
			return errors.Wrapf(customerrors.ErrInvariant, "leaf chain reaches leaf %d out of order", id)
		}

		n, err := tree.bm.GetNode(id)
		if err != nil {
			return err
		}
		id = n.Next
		if id == pages.NullPage && i != len(st.leaves)-1 {
			return errors.Wrapf(customerrors.ErrInvariant, "leaf chain ends at leaf %d of %d", i+1, len(st.leaves))
		}
	}
	return nil
}

// verifyNode checks the subtree at id and returns its smallest key.
func (tree *BPlusTree) verifyNode(id uint32, b bounds, level int, st *verifyState) (uint32, error) {
	violated := func(format string, args ...interface{}) error {
		return errors.Wrapf(customerrors.ErrInvariant, "node %d: "+format, append([]interface{}{id}, args...)...)
	}

	if st.seen[id] {
		return 0, violated("reachable twice")
	}
	st.seen[id] = true

	n, err := tree.bm.GetNode(id)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, violated("null page in tree")
	}
	isRoot := id == tree.rootID

	for i, key := range n.Keys {
		if i > 0 && key <= n.Keys[i-1] {
			return 0, violated("keys %d and %d out of order", n.Keys[i-1], key)
		}
		if !b.contains(key) {
			return 0, violated("key %d outside its range", key)
		}
	}

	if n.Leaf {
		if st.leafLevel == 0 {
			st.leafLevel = level
		} else if st.leafLevel != level {
			return 0, violated("leaf at depth %d, want %d", level, st.leafLevel)
		}
		if len(n.RIDs) != n.Len() {
			return 0, violated("%d keys but %d records", n.Len(), len(n.RIDs))
		}
		if n.Len() > tree.maxEntries || (!isRoot && n.Len() < tree.minEntries) {
			return 0, violated("%d entries not in [%d, %d]", n.Len(), tree.minEntries, tree.maxEntries)
		}
		for i, rid := range n.RIDs {
			if _, err := tree.bm.GetData(rid); err != nil {
				return 0, violated("record %s of key %d: %v", rid, n.Keys[i], err)
			}
		}

		st.leaves = append(st.leaves, id)
		if n.Len() == 0 {
			return 0, nil
		}
		return n.Keys[0], nil
	}

	if len(n.Children) != n.Len()+1 {
		return 0, violated("%d keys but %d children", n.Len(), len(n.Children))
	}
	if n.Len() > tree.maxKeys || n.Len() == 0 || (!isRoot && len(n.Children) < tree.minChildren) {
		return 0, violated("%d children not in [%d, %d]", len(n.Children), tree.minChildren, tree.maxKeys+1)
	}

	var min uint32
	for i, child := range n.Children {
		cb := b
		if i > 0 {
			cb.lo, cb.hasLo = n.Keys[i-1], true
		}
		if i < n.Len() {
			cb.hi, cb.hasHi = n.Keys[i], true
		}

		childMin, err := tree.verifyNode(child, cb, level+1, st)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			min = childMin
		} else if childMin != n.Keys[i-1] {
			return 0, violated("separator %d differs from subtree minimum %d", n.Keys[i-1], childMin)
		}
	}
	return min, nil
}
