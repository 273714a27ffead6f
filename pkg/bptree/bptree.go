// Package bptree implements a disk-backed B+ tree mapping uint32 keys to
// byte records. Nodes and records live in pages owned by a buffer manager;
// leaves hold record identifiers, internal nodes hold separators only.
package bptree

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"go-bpt/pkg/buffer"
	"go-bpt/pkg/customerrors"
	"go-bpt/pkg/pages"
	"go-bpt/pkg/stack"
	"go-bpt/util/logger"
)

// New creates an empty tree, a single root leaf, in the manager's file.
func New(bm *buffer.Manager, opts *Options) (*BPlusTree, error) {
	tree, err := newTree(bm, opts)
	if err != nil {
		return nil, err
	}

	root := bm.AllocateNodePage(true)
	tree.rootID = root.Id
	tree.log.WithField("root", root.Id).Debug("created tree")
	return tree, nil
}

// Open attaches to a tree previously created in the manager's file.
func Open(bm *buffer.Manager, rootID uint32, opts *Options) (*BPlusTree, error) {
	tree, err := newTree(bm, opts)
	if err != nil {
		return nil, err
	}

	root, err := bm.GetNode(rootID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open root %d", rootID)
	}
	if root == nil {
		return nil, errors.Wrap(customerrors.ErrMissingPage, "root page id is 0")
	}

	tree.rootID = rootID
	return tree, nil
}

func newTree(bm *buffer.Manager, opts *Options) (*BPlusTree, error) {
	if opts == nil {
		opts = &defaultOptions
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.L
	}

	maxChildren := opts.MaxKeys + 1
	return &BPlusTree{
		bm:          bm,
		log:         log,
		path:        stack.New[uint32](8),
		maxKeys:     opts.MaxKeys,
		minChildren: (maxChildren + 1) / 2,
		maxEntries:  opts.MaxEntriesLeaf,
		minEntries:  (opts.MaxEntriesLeaf + 1) / 2,
	}, nil
}

// BPlusTree is not safe for concurrent use.
type BPlusTree struct {
	bm     *buffer.Manager
	log    logrus.FieldLogger
	rootID uint32
	closed bool

	// internal ancestors of the last searched leaf, root at the bottom
	path stack.Stack[uint32]

	maxKeys     int
	minChildren int
	maxEntries  int
	minEntries  int
}

// Root returns the page id of the current root. It changes when the root
// splits or collapses and must be persisted by the caller to reopen the
// tree.
func (tree *BPlusTree) Root() uint32 {
	return tree.rootID
}

// Insert stores data under key. An existing record for key is replaced and
// its slot freed.
func (tree *BPlusTree) Insert(key uint32, data []byte) (err error) {
	if tree.closed {
		return customerrors.ErrClosed
	}
	defer tree.hold()(&err)

	return tree.insert(key, data)
}

// Get returns a copy of the record stored under key.
func (tree *BPlusTree) Get(key uint32) (val []byte, found bool, err error) {
	if tree.closed {
		return nil, false, customerrors.ErrClosed
	}
	defer tree.hold()(&err)

	leaf, err := tree.search(key)
	if err != nil {
		return nil, false, err
	}

	idx, found := leaf.Search(key)
	if !found {
		return nil, false, nil
	}

	data, err := tree.bm.GetData(leaf.RIDs[idx])
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read record of key %d", key)
	}
	return append([]byte{}, data...), true, nil
}

// Delete removes key and frees its record. Deleting a missing key is not an
// error.
func (tree *BPlusTree) Delete(key uint32) (deleted bool, err error) {
	if tree.closed {
		return false, customerrors.ErrClosed
	}
	defer tree.hold()(&err)

	return tree.delete(key)
}

// Height returns the number of levels, 1 for a tree that is a single leaf.
func (tree *BPlusTree) Height() (h int, err error) {
	if tree.closed {
		return 0, customerrors.ErrClosed
	}
	defer tree.hold()(&err)

	n, err := tree.bm.GetNode(tree.rootID)
	if err != nil {
		return 0, err
	}

	h = 1
	for !n.Leaf {
		if n, err = tree.bm.GetNode(n.Children[0]); err != nil {
			return 0, err
		}
		h++
	}
	return h, nil
}

// Flush writes all pages back to the file.
func (tree *BPlusTree) Flush() error {
	if tree.closed {
		return customerrors.ErrClosed
	}
	return tree.bm.Flush()
}

// Close flushes the tree. The buffer manager stays open.
func (tree *BPlusTree) Close() error {
	if tree.closed {
		return nil
	}

	err := tree.bm.Flush()
	tree.closed = true
	return err
}

func (tree *BPlusTree) String() string {
	return fmt.Sprintf(
		"BPlusTree{root=%d, max_keys=%d, max_entries_leaf=%d}",
		tree.rootID, tree.maxKeys, tree.maxEntries,
	)
}

// Print writes the tree to w, one node per line, right subtrees first so
// the output reads as the tree rotated counterclockwise.
func (tree *BPlusTree) Print(w io.Writer) (err error) {
	if tree.closed {
		return customerrors.ErrClosed
	}
	defer tree.hold()(&err)

	return tree.print(w, tree.rootID, 0)
}

func (tree *BPlusTree) print(w io.Writer, id uint32, indent int) error {
	n, err := tree.bm.GetNode(id)
	if err != nil {
		return err
	}

	if n.Leaf {
		_, err = fmt.Fprintf(w, "%*s%v (leaf %d -> %d)\n", indent, "", n.Keys, n.Id, n.Next)
		return err
	}

	for i := len(n.Children) - 1; i > 0; i-- {
		if err := tree.print(w, n.Children[i], indent+4); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%*s%d (node %d)\n", indent, "", n.Keys[i-1], n.Id); err != nil {
			return err
		}
	}
	return tree.print(w, n.Children[0], indent+4)
}

// hold keeps every page touched by the current operation resident until it
// returns.
func (tree *BPlusTree) hold() func(*error) {
	tree.bm.Hold()
	return func(err *error) {
		if rerr := tree.bm.Release(); *err == nil {
			*err = rerr
		}
	}
}

// search descends from the root to the leaf covering key, recording the
// internal nodes on the way.
func (tree *BPlusTree) search(key uint32) (*pages.Node, error) {
	tree.path.Clear()

	n, err := tree.bm.GetNode(tree.rootID)
	if err != nil {
		return nil, err
	}

	for !n.Leaf {
		tree.path.Push(n.Id)
		child := n.Children[n.UpperBound(key)]
		if n, err = tree.bm.GetNode(child); err != nil {
			return nil, err
		}
		if n == nil {
			return nil, errors.Wrapf(customerrors.ErrCorruptPage, "null child under node %d", tree.path.Top())
		}
	}
	return n, nil
}

func (tree *BPlusTree) invariant(format string, args ...interface{}) {
	panic(errors.Wrapf(customerrors.ErrInvariant, format, args...))
}
