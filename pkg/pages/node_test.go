package pages

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"go-bpt/pkg/customerrors"
)

func TestNode_Capacity(t *testing.T) {
	require.Equal(t, 511, MaxInternalKeys())
	require.Equal(t, 408, MaxLeafEntries())

	n := NewNode(1, false)
	for i := 0; i < MaxInternalKeys(); i++ {
		n.Keys = append(n.Keys, uint32(i))
	}
	n.Children = make([]uint32, len(n.Keys)+1)
	require.Equal(t, PageSize, n.Size())
}

func TestNode_LeafRoundTrip(t *testing.T) {
	n := NewNode(7, true)
	n.InsertEntry(0, 30, RID{PageID: 3, SlotID: 1})
	n.InsertEntry(0, 10, RID{PageID: 2, SlotID: 0})
	n.InsertEntry(1, 20, RID{PageID: 2, SlotID: 9})
	n.Next = 12

	buf, err := n.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, PageSize)
	require.Equal(t, TagNode, buf[0])
	require.Equal(t, flagLeafNode, buf[1])
	require.Equal(t, []byte{0, 3}, buf[2:4])
	require.Equal(t, []byte{0, 0, 0, 10}, buf[4:8])

	p, err := Decode(7, buf)
	require.NoError(t, err)
	got, ok := p.(*Node)
	require.True(t, ok)
	require.False(t, got.Dirty)
	require.True(t, got.Leaf)
	require.Equal(t, []uint32{10, 20, 30}, got.Keys)
	require.Equal(t, []RID{{2, 0}, {2, 9}, {3, 1}}, got.RIDs)
	require.Equal(t, uint32(12), got.Next)
	require.Nil(t, got.Children)
}

func TestNode_InternalRoundTrip(t *testing.T) {
	n := NewNode(1, false)
	n.Children = append(n.Children, 5)
	n.InsertSeparator(0, 100, 6)
	n.InsertSeparator(1, 200, 8)
	n.InsertSeparator(1, 150, 7)

	require.Equal(t, []uint32{100, 150, 200}, n.Keys)
	require.Equal(t, []uint32{5, 6, 7, 8}, n.Children)

	buf, err := n.MarshalBinary()
	require.NoError(t, err)

	got := &Node{Id: 1}
	require.NoError(t, got.UnmarshalBinary(buf))
	require.False(t, got.Leaf)
	require.Equal(t, n.Keys, got.Keys)
	require.Equal(t, n.Children, got.Children)

	key, child := got.RemoveSeparator(1)
	require.Equal(t, uint32(150), key)
	require.Equal(t, uint32(7), child)
	require.Equal(t, []uint32{5, 6, 8}, got.Children)
	require.True(t, got.Dirty)
}

func TestNode_Bounds(t *testing.T) {
	n := NewNode(1, false)
	n.Keys = []uint32{10, 20, 30}

	tests := []struct {
		key   uint32
		upper int
		lower int
		found bool
	}{
		{5, 0, 0, false},
		{10, 1, 0, true},
		{15, 1, 1, false},
		{30, 3, 2, true},
		{31, 3, 3, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.upper, n.UpperBound(tt.key), "upper bound of %d", tt.key)
		idx, found := n.Search(tt.key)
		require.Equal(t, tt.lower, idx, "lower bound of %d", tt.key)
		require.Equal(t, tt.found, found)
	}
}

func TestNode_MarshalRejectsMalformed(t *testing.T) {
	n := NewNode(1, false)
	n.Keys = append(n.Keys, 1)
	_, err := n.MarshalBinary()
	require.Error(t, err)

	leaf := NewNode(2, true)
	for i := 0; i <= MaxLeafEntries(); i++ {
		leaf.InsertEntry(i, uint32(i), RID{PageID: 1})
	}
	_, err = leaf.MarshalBinary()
	require.Error(t, err)
}

func TestDecode_Corrupt(t *testing.T) {
	buf := make([]byte, PageSize)

	buf[0] = TagOverflow
	_, err := Decode(3, buf)
	require.True(t, errors.Is(err, customerrors.ErrCorruptPage))

	buf[0] = 0x7f
	_, err = Decode(3, buf)
	require.True(t, errors.Is(err, customerrors.ErrCorruptPage))

	buf[0] = TagNode
	buf[1] = flagLeafNode
	bin.PutUint16(buf[2:4], 1000)
	_, err = Decode(3, buf)
	require.True(t, errors.Is(err, customerrors.ErrCorruptPage))

	_, err = Decode(3, buf[:10])
	require.True(t, errors.Is(err, customerrors.ErrCorruptPage))
}
