package pages

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"go-bpt/pkg/customerrors"
)

func TestData_PutGetFree(t *testing.T) {
	p := NewData(4)
	require.Equal(t, PageSize-DataHeaderSz, p.FreeSpace())

	s0, err := p.Put([]byte("hello"))
	require.NoError(t, err)
	s1, err := p.Put([]byte("world!"))
	require.NoError(t, err)
	require.Equal(t, uint16(0), s0)
	require.Equal(t, uint16(1), s1)
	require.Equal(t, PageSize-DataHeaderSz-2*SlotEntrySz-11, p.FreeSpace())

	v, err := p.Get(s1)
	require.NoError(t, err)
	require.Equal(t, []byte("world!"), v)

	require.NoError(t, p.Free(s0))
	require.Equal(t, 1, p.Live())
	_, err = p.Get(s0)
	require.True(t, errors.Is(err, customerrors.ErrSlotFree))
	require.True(t, errors.Is(p.Free(s0), customerrors.ErrSlotFree))

	_, err = p.Get(9)
	require.True(t, errors.Is(err, customerrors.ErrInvalidRID))

	// fits in the freed extent, so the slot is reused in place
	s2, err := p.Put([]byte("hey"))
	require.NoError(t, err)
	require.Equal(t, s0, s2)
	v, err = p.Get(s2)
	require.NoError(t, err)
	require.Equal(t, []byte("hey"), v)
}

func TestData_RoundTrip(t *testing.T) {
	p := NewData(9)
	for i := 0; i < 20; i++ {
		_, err := p.Put(bytes.Repeat([]byte{byte(i)}, i+1))
		require.NoError(t, err)
	}
	require.NoError(t, p.Free(3))
	require.NoError(t, p.Free(11))

	buf, err := p.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, TagData, buf[0])
	require.Equal(t, []byte{0, 20}, buf[1:3])

	decoded, err := Decode(9, buf)
	require.NoError(t, err)
	got := decoded.(*Data)
	require.Equal(t, p.Slots, got.Slots)
	require.Equal(t, p.FreeStart, got.FreeStart)
	require.Equal(t, p.FreeEnd, got.FreeEnd)
	require.Equal(t, p.FreeSpace(), got.FreeSpace())

	for i := 0; i < 20; i++ {
		v, err := got.Get(uint16(i))
		if i == 3 || i == 11 {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, bytes.Repeat([]byte{byte(i)}, i+1), v)
	}

	again, err := got.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, buf, again)
}

func TestData_CompactKeepsSlotIDs(t *testing.T) {
	p := NewData(2)
	rec := bytes.Repeat([]byte{0xab}, 1000)

	ids := make([]uint16, 0, 4)
	for i := 0; i < 4; i++ {
		id, err := p.Put(rec)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.False(t, p.Fits(1000))

	require.NoError(t, p.Free(ids[0]))
	require.NoError(t, p.Free(ids[2]))

	// larger than any freed extent, only fits after compaction
	big := bytes.Repeat([]byte{0xcd}, 1500)
	require.True(t, p.Fits(len(big)))
	id, err := p.Put(big)
	require.NoError(t, err)
	require.Equal(t, ids[0], id)

	v, err := p.Get(ids[1])
	require.NoError(t, err)
	require.Equal(t, rec, v)
	v, err = p.Get(ids[3])
	require.NoError(t, err)
	require.Equal(t, rec, v)
	v, err = p.Get(id)
	require.NoError(t, err)
	require.Equal(t, big, v)
}

func TestData_Limits(t *testing.T) {
	p := NewData(2)
	_, err := p.Put(make([]byte, MaxRecordSize+1))
	require.True(t, errors.Is(err, customerrors.ErrRecordTooLarge))

	_, err = p.Put(make([]byte, MaxRecordSize))
	require.NoError(t, err)
	require.Equal(t, 0, p.FreeSpace())

	_, err = p.Put([]byte{1})
	require.True(t, errors.Is(err, customerrors.ErrPageFull))
}

func TestData_CorruptHeader(t *testing.T) {
	p := NewData(2)
	_, err := p.Put([]byte("abc"))
	require.NoError(t, err)
	buf, err := p.MarshalBinary()
	require.NoError(t, err)

	bin.PutUint16(buf[1:3], 50)
	_, err = Decode(2, buf)
	require.True(t, errors.Is(err, customerrors.ErrCorruptPage))
}
