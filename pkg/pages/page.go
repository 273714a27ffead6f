package pages

import (
	"encoding"
	"encoding/binary"

	"github.com/pkg/errors"

	"go-bpt/pkg/customerrors"
)

var bin = binary.BigEndian

const (
	PageSize = 4096

	// NullPage is never allocated. A child, next or RID page id equal to it
	// means "none".
	NullPage = uint32(0)

	TagNode     = uint8(0x00)
	TagData     = uint8(0x01)
	TagOverflow = uint8(0x02)
)

type Kind uint8

const (
	KindNode Kind = iota
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// Page is a decoded page held by the buffer manager. Mutations must mark
// the page dirty so it is written back on eviction or flush.
type Page interface {
	encoding.BinaryMarshaler
	ID() uint32
	Kind() Kind
	IsDirty() bool
	SetDirty(dirty bool)
}

// Decode builds the in-memory page for the given image by its type tag.
func Decode(id uint32, d []byte) (Page, error) {
	if len(d) != PageSize {
		return nil, errors.Wrapf(customerrors.ErrCorruptPage, "page %d: image is %d bytes", id, len(d))
	}

	switch d[0] {
	case TagNode:
		n := &Node{Id: id}
		if err := n.UnmarshalBinary(d); err != nil {
			return nil, err
		}
		return n, nil
	case TagData:
		p := &Data{Id: id}
		if err := p.UnmarshalBinary(d); err != nil {
			return nil, err
		}
		return p, nil
	case TagOverflow:
		return nil, errors.Wrapf(customerrors.ErrCorruptPage, "page %d: overflow pages are not supported", id)
	default:
		return nil, errors.Wrapf(customerrors.ErrCorruptPage, "page %d: unknown type tag 0x%02x", id, d[0])
	}
}
