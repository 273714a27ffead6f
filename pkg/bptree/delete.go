package bptree

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"go-bpt/pkg/pages"
)

func (tree *BPlusTree) delete(key uint32) (bool, error) {
	leaf, err := tree.search(key)
	if err != nil {
		return false, err
	}

	idx, found := leaf.Search(key)
	if !found {
		return false, nil
	}

	if err := tree.bm.FreeData(leaf.RIDs[idx]); err != nil {
		return false, err
	}
	leaf.RemoveEntry(idx)

	if leaf.Id == tree.rootID {
		return true, nil
	}

	if idx == 0 {
		if err := tree.replaceSeparator(key, leaf.Keys[0]); err != nil {
			return true, err
		}
	}

	if leaf.Len() >= tree.minEntries {
		return true, nil
	}
	return true, tree.rebalanceLeaf(leaf)
}

// replaceSeparator swaps old for repl in the nearest ancestor on the search
// path holding old as a separator. It stops at the first ancestor in which
// the searched leaf is not under the leftmost child, since no separator
// above it can equal old.
func (tree *BPlusTree) replaceSeparator(old, repl uint32) error {
	for depth := 0; depth < tree.path.Size(); depth++ {
		n, err := tree.bm.GetNode(tree.path.Peek(depth))
		if err != nil {
			return err
		}

		if i, found := n.Search(old); found {
			n.Keys[i] = repl
			n.Dirty = true
			return nil
		}
		if n.UpperBound(old) > 0 {
			return nil
		}
	}
	return nil
}

func (tree *BPlusTree) siblings(parent *pages.Node, c int) (left, right *pages.Node, err error) {
	if c > 0 {
		if left, err = tree.bm.GetNode(parent.Children[c-1]); err != nil {
			return nil, nil, err
		}
	}
	if c < len(parent.Children)-1 {
		if right, err = tree.bm.GetNode(parent.Children[c+1]); err != nil {
			return nil, nil, err
		}
	}
	return left, right, nil
}

// rebalanceLeaf fixes a leaf below minimum occupancy by borrowing from or
// merging with a sibling under the same parent.
func (tree *BPlusTree) rebalanceLeaf(n *pages.Node) error {
	parent, err := tree.bm.GetNode(tree.path.Top())
	if err != nil {
		return err
	}

	c := parent.UpperBound(n.Keys[0])
	if c >= len(parent.Children) || parent.Children[c] != n.Id {
		tree.invariant("leaf %d is not routed from node %d by key %d", n.Id, parent.Id, n.Keys[0])
	}

	left, right, err := tree.siblings(parent, c)
	if err != nil {
		return err
	}

	switch {
	case left != nil && left.Len() > tree.minEntries:
		key, rid := left.RemoveEntry(left.Len() - 1)
		n.InsertEntry(0, key, rid)
		parent.Keys[c-1] = key
		parent.Dirty = true
		return nil

	case right != nil && right.Len() > tree.minEntries:
		key, rid := right.RemoveEntry(0)
		n.InsertEntry(n.Len(), key, rid)
		parent.Keys[c] = right.Keys[0]
		parent.Dirty = true
		return nil

	case left != nil:
		left.Keys = append(left.Keys, n.Keys...)
		left.RIDs = append(left.RIDs, n.RIDs...)
		left.Next = n.Next
		left.Dirty = true
		parent.RemoveSeparator(c - 1)
		tree.bm.FreePage(n.Id)
		tree.log.WithFields(logrus.Fields{"leaf": n.Id, "into": left.Id}).Debug("merged leaf")

	case right != nil:
		n.Keys = append(n.Keys, right.Keys...)
		n.RIDs = append(n.RIDs, right.RIDs...)
		n.Next = right.Next
		n.Dirty = true
		parent.RemoveSeparator(c)
		tree.bm.FreePage(right.Id)
		tree.log.WithFields(logrus.Fields{"leaf": right.Id, "into": n.Id}).Debug("merged leaf")

	default:
		tree.invariant("leaf %d has no sibling under node %d", n.Id, parent.Id)
	}

	tree.path.Pop()
	return tree.rebalanceInternal(parent)
}

// rebalanceInternal fixes an internal node below minimum occupancy the same
// way, rotating keys through the parent. A root left without keys is
// replaced by its only child.
func (tree *BPlusTree) rebalanceInternal(n *pages.Node) error {
	if n.Id == tree.rootID {
		if n.Len() == 0 {
			tree.rootID = n.Children[0]
			tree.bm.FreePage(n.Id)
			tree.log.WithField("root", tree.rootID).Debug("root collapsed")
		}
		return nil
	}

	if len(n.Children) >= tree.minChildren {
		return nil
	}

	parent, err := tree.bm.GetNode(tree.path.Top())
	if err != nil {
		return err
	}

	c := parent.ChildIndex(n.Id)
	if c < 0 {
		tree.invariant("node %d is not a child of node %d", n.Id, parent.Id)
	}

	left, right, err := tree.siblings(parent, c)
	if err != nil {
		return err
	}

	switch {
	case left != nil && len(left.Children) > tree.minChildren:
		last := left.Len() - 1
		n.Keys = slices.Insert(n.Keys, 0, parent.Keys[c-1])
		n.Children = slices.Insert(n.Children, 0, left.Children[last+1])
		parent.Keys[c-1] = left.Keys[last]
		left.Keys = left.Keys[:last]
		left.Children = left.Children[:last+1]
		n.Dirty, left.Dirty, parent.Dirty = true, true, true
		return nil

	case right != nil && len(right.Children) > tree.minChildren:
		n.Keys = append(n.Keys, parent.Keys[c])
		n.Children = append(n.Children, right.Children[0])
		parent.Keys[c] = right.Keys[0]
		right.Keys = slices.Delete(right.Keys, 0, 1)
		right.Children = slices.Delete(right.Children, 0, 1)
		n.Dirty, right.Dirty, parent.Dirty = true, true, true
		return nil

	case left != nil:
		left.Keys = append(left.Keys, parent.Keys[c-1])
		left.Keys = append(left.Keys, n.Keys...)
		left.Children = append(left.Children, n.Children...)
		left.Dirty = true
		parent.RemoveSeparator(c - 1)
		tree.bm.FreePage(n.Id)

	case right != nil:
		n.Keys = append(n.Keys, parent.Keys[c])
		n.Keys = append(n.Keys, right.Keys...)
		n.Children = append(n.Children, right.Children...)
		n.Dirty = true
		parent.RemoveSeparator(c)
		tree.bm.FreePage(right.Id)

	default:
		tree.invariant("node %d has no sibling under node %d", n.Id, parent.Id)
	}

	tree.path.Pop()
	return tree.rebalanceInternal(parent)
}
