package bptree

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"go-bpt/pkg/pages"
)

func (tree *BPlusTree) insert(key uint32, data []byte) error {
	leaf, err := tree.search(key)
	if err != nil {
		return err
	}

	idx, found := leaf.Search(key)
	if found {
		old := leaf.RIDs[idx]
		rid, err := tree.bm.RequestSlot(data)
		if err != nil {
			return errors.Wrapf(err, "failed to store record of key %d", key)
		}

		leaf.RIDs[idx] = rid
		leaf.Dirty = true
		return tree.bm.FreeData(old)
	}

	rid, err := tree.bm.RequestSlot(data)
	if err != nil {
		return errors.Wrapf(err, "failed to store record of key %d", key)
	}

	leaf.InsertEntry(idx, key, rid)
	if leaf.Len() <= tree.maxEntries {
		return nil
	}
	return tree.splitLeaf(leaf)
}

// splitLeaf moves the upper half of an overfull leaf into a new right
// sibling and promotes the sibling's first key.
func (tree *BPlusTree) splitLeaf(n *pages.Node) error {
	split := n.Len() / 2

	right := tree.bm.AllocateNodePage(true)
	right.Keys = append(right.Keys, n.Keys[split:]...)
	right.RIDs = append(right.RIDs, n.RIDs[split:]...)
	right.Next = n.Next

	n.Keys = n.Keys[:split]
	n.RIDs = n.RIDs[:split]
	n.Next = right.Id
	n.Dirty = true

	return tree.promote(right.Keys[0], n.Id, right.Id)
}

// promote inserts the separator between left and right into the parent on
// the search path, growing a new root when left was the root.
func (tree *BPlusTree) promote(key uint32, left, right uint32) error {
	if tree.path.Empty() {
		root := tree.bm.AllocateNodePage(false)
		root.Keys = append(root.Keys, key)
		root.Children = append(root.Children, left, right)
		tree.rootID = root.Id

		tree.log.WithFields(logrus.Fields{
			"root":      root.Id,
			"separator": key,
		}).Debug("root split")
		return nil
	}

	parent, err := tree.bm.GetNode(tree.path.Pop())
	if err != nil {
		return err
	}

	parent.InsertSeparator(parent.UpperBound(key), key, right)
	if parent.Len() <= tree.maxKeys {
		return nil
	}
	return tree.splitInternal(parent)
}

// splitInternal moves the keys and children above the middle key into a new
// right sibling. The middle key moves up and is kept by neither half.
func (tree *BPlusTree) splitInternal(n *pages.Node) error {
	split := n.Len() / 2
	middle := n.Keys[split]

	right := tree.bm.AllocateNodePage(false)
	right.Keys = append(right.Keys, n.Keys[split+1:]...)
	right.Children = append(right.Children, n.Children[split+1:]...)

	n.Keys = n.Keys[:split]
	n.Children = n.Children[:split+1]
	n.Dirty = true

	return tree.promote(middle, n.Id, right.Id)
}
