package pages

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"go-bpt/pkg/customerrors"
)

const (
	// tag(1) + leaf flag(1) + key count(2)
	NodeHeaderSz = 4
	KeySz        = 4
	ChildSz      = 4
	// page id(4) + slot id(2)
	RIDSz  = 6
	NextSz = 4

	flagInternalNode = uint8(0x0)
	flagLeafNode     = uint8(0x1)
)

// MaxInternalKeys is the largest key count an internal node page can hold.
func MaxInternalKeys() int {
	return (PageSize - NodeHeaderSz - ChildSz) / (KeySz + ChildSz)
}

// MaxLeafEntries is the largest entry count a leaf node page can hold.
func MaxLeafEntries() int {
	return (PageSize - NodeHeaderSz - NextSz) / (KeySz + RIDSz)
}

// RID locates a record: the data page holding it and its slot in that page.
type RID struct {
	PageID uint32
	SlotID uint16
}

func (r RID) String() string {
	return fmt.Sprintf("%d:%d", r.PageID, r.SlotID)
}

// NewNode initializes an empty in-memory node.
func NewNode(id uint32, leaf bool) *Node {
	n := &Node{
		Dirty: true,
		Id:    id,
		Leaf:  leaf,
		Keys:  []uint32{},
	}
	if leaf {
		n.RIDs = []RID{}
	} else {
		n.Children = []uint32{}
	}
	return n
}

// Node represents an internal or leaf node in the B+ tree. Internal nodes
// hold len(Keys)+1 children, leaves hold one RID per key and a link to the
// next leaf.
type Node struct {
	Dirty bool

	Id       uint32
	Leaf     bool
	Keys     []uint32
	Children []uint32
	RIDs     []RID
	Next     uint32
}

func (n *Node) ID() uint32          { return n.Id }
func (n *Node) Kind() Kind          { return KindNode }
func (n *Node) IsDirty() bool       { return n.Dirty }
func (n *Node) SetDirty(dirty bool) { n.Dirty = dirty }
func (n *Node) Len() int            { return len(n.Keys) }

// Search returns the index of the first key not less than key and whether
// it is equal to key.
func (n *Node) Search(key uint32) (int, bool) {
	return slices.BinarySearch(n.Keys, key)
}

// UpperBound returns the index of the first key strictly greater than key.
// For an internal node it is the index of the child covering key.
func (n *Node) UpperBound(key uint32) int {
	idx, _ := slices.BinarySearchFunc(n.Keys, key, func(e, target uint32) int {
		if e <= target {
			return -1
		}
		return 1
	})
	return idx
}

// ChildIndex returns the position of child id among the children or -1.
func (n *Node) ChildIndex(id uint32) int {
	return slices.Index(n.Children, id)
}

func (n *Node) InsertEntry(idx int, key uint32, rid RID) {
	n.Dirty = true
	n.Keys = slices.Insert(n.Keys, idx, key)
	n.RIDs = slices.Insert(n.RIDs, idx, rid)
}

func (n *Node) RemoveEntry(idx int) (uint32, RID) {
	n.Dirty = true
	key, rid := n.Keys[idx], n.RIDs[idx]
	n.Keys = slices.Delete(n.Keys, idx, idx+1)
	n.RIDs = slices.Delete(n.RIDs, idx, idx+1)
	return key, rid
}

// InsertSeparator places key at idx and child right after it.
func (n *Node) InsertSeparator(idx int, key uint32, child uint32) {
	n.Dirty = true
	n.Keys = slices.Insert(n.Keys, idx, key)
	n.Children = slices.Insert(n.Children, idx+1, child)
}

// RemoveSeparator drops the key at idx together with the child to its right.
func (n *Node) RemoveSeparator(idx int) (uint32, uint32) {
	n.Dirty = true
	key, child := n.Keys[idx], n.Children[idx+1]
	n.Keys = slices.Delete(n.Keys, idx, idx+1)
	n.Children = slices.Delete(n.Children, idx+1, idx+2)
	return key, child
}

func (n *Node) String() string {
	return fmt.Sprintf(
		"{id=%d, leaf=%t, keys=%v, children=%v, next=%d}",
		n.Id, n.Leaf, n.Keys, n.Children, n.Next,
	)
}

// Size returns the number of bytes the encoded node occupies.
func (n *Node) Size() int {
	if n.Leaf {
		return NodeHeaderSz + len(n.Keys)*(KeySz+RIDSz) + NextSz
	}
	return NodeHeaderSz + len(n.Keys)*KeySz + len(n.Children)*ChildSz
}

func (n *Node) MarshalBinary() ([]byte, error) {
	if n.Leaf && len(n.RIDs) != len(n.Keys) {
		return nil, errors.Errorf("node %d: %d keys but %d rids", n.Id, len(n.Keys), len(n.RIDs))
	}
	if !n.Leaf && len(n.Children) != len(n.Keys)+1 {
		return nil, errors.Errorf("node %d: %d keys but %d children", n.Id, len(n.Keys), len(n.Children))
	}
	if sz := n.Size(); sz > PageSize {
		return nil, errors.Errorf("node %d: %d bytes does not fit in a page", n.Id, sz)
	}

	buf := make([]byte, PageSize)
	buf[0] = TagNode
	if n.Leaf {
		buf[1] = flagLeafNode
	} else {
		buf[1] = flagInternalNode
	}
	bin.PutUint16(buf[2:4], uint16(len(n.Keys)))

	offset := NodeHeaderSz
	for _, key := range n.Keys {
		bin.PutUint32(buf[offset:offset+KeySz], key)
		offset += KeySz
	}

	if !n.Leaf {
		for _, child := range n.Children {
			bin.PutUint32(buf[offset:offset+ChildSz], child)
			offset += ChildSz
		}
		return buf, nil
	}

	for _, rid := range n.RIDs {
		bin.PutUint32(buf[offset:offset+4], rid.PageID)
		bin.PutUint16(buf[offset+4:offset+6], rid.SlotID)
		offset += RIDSz
	}
	bin.PutUint32(buf[offset:offset+NextSz], n.Next)

	return buf, nil
}

func (n *Node) UnmarshalBinary(d []byte) error {
	if len(d) < NodeHeaderSz || d[0] != TagNode {
		return errors.Wrapf(customerrors.ErrCorruptPage, "page %d: not a node page", n.Id)
	}

	switch d[1] {
	case flagLeafNode:
		n.Leaf = true
	case flagInternalNode:
		n.Leaf = false
	default:
		return errors.Wrapf(customerrors.ErrCorruptPage, "page %d: bad leaf flag 0x%02x", n.Id, d[1])
	}

	count := int(bin.Uint16(d[2:4]))
	n.Keys = make([]uint32, count)
	n.Children = nil
	n.RIDs = nil
	n.Next = NullPage

	need := NodeHeaderSz + count*KeySz + (count+1)*ChildSz
	if n.Leaf {
		need = NodeHeaderSz + count*(KeySz+RIDSz) + NextSz
	}
	if need > len(d) {
		return errors.Wrapf(customerrors.ErrCorruptPage, "page %d: %d keys overflow the page", n.Id, count)
	}

	offset := NodeHeaderSz
	for i := range n.Keys {
		n.Keys[i] = bin.Uint32(d[offset : offset+KeySz])
		offset += KeySz
	}

	if !n.Leaf {
		n.Children = make([]uint32, count+1)
		for i := range n.Children {
			n.Children[i] = bin.Uint32(d[offset : offset+ChildSz])
			offset += ChildSz
		}
		n.Dirty = false
		return nil
	}

	n.RIDs = make([]RID, count)
	for i := range n.RIDs {
		n.RIDs[i] = RID{
			PageID: bin.Uint32(d[offset : offset+4]),
			SlotID: bin.Uint16(d[offset+4 : offset+6]),
		}
		offset += RIDSz
	}
	n.Next = bin.Uint32(d[offset : offset+NextSz])
	n.Dirty = false

	return nil
}
