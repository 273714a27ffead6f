package pages

import (
	"github.com/pkg/errors"

	"go-bpt/pkg/customerrors"
)

const (
	// tag(1) + slot count(2) + free start(2) + free end(2)
	DataHeaderSz = 7
	// offset(2) + length(2) + flags(1)
	SlotEntrySz = 5

	// MaxRecordSize is the largest record a single empty data page can hold.
	MaxRecordSize = PageSize - DataHeaderSz - SlotEntrySz

	SlotFlagNone     = uint8(0x00)
	SlotFlagFree     = uint8(0x01)
	SlotFlagOverflow = uint8(0x02)
	SlotFlagInvalid  = uint8(0x80)
)

// Slot is a directory entry of a data page. Offset is absolute within the
// page image.
type Slot struct {
	Offset uint16
	Length uint16
	Flags  uint8
}

func (s Slot) IsFree() bool { return s.Flags&SlotFlagFree != 0 }

// NewData initializes an empty data page.
func NewData(id uint32) *Data {
	return &Data{
		Dirty:     true,
		Id:        id,
		FreeStart: DataHeaderSz,
		FreeEnd:   PageSize,
		buf:       make([]byte, PageSize),
	}
}

// Data is a slotted page. The slot directory grows from the header towards
// the end of the page, record bytes grow from the end of the page towards
// the directory. Slot ids are stable for the lifetime of a record.
type Data struct {
	Dirty bool

	Id        uint32
	Slots     []Slot
	FreeStart uint16
	FreeEnd   uint16

	buf  []byte
	live int
}

func (p *Data) ID() uint32          { return p.Id }
func (p *Data) Kind() Kind          { return KindData }
func (p *Data) IsDirty() bool       { return p.Dirty }
func (p *Data) SetDirty(dirty bool) { p.Dirty = dirty }

// FreeSpace returns the bytes available for records and new slot entries
// once the page is compacted.
func (p *Data) FreeSpace() int {
	return PageSize - DataHeaderSz - SlotEntrySz*len(p.Slots) - p.live
}

// Fits reports whether a record of the given size can be stored without
// touching any other page.
func (p *Data) Fits(size int) bool {
	if _, ok := p.reusableSlot(size); ok {
		return true
	}
	if _, ok := p.freeSlot(); ok {
		return size <= p.FreeSpace()
	}
	return size+SlotEntrySz <= p.FreeSpace()
}

// Live returns the number of slots holding a record.
func (p *Data) Live() int {
	n := 0
	for _, s := range p.Slots {
		if !s.IsFree() {
			n++
		}
	}
	return n
}

// Put stores the record and returns its slot id. A free slot whose old
// extent is large enough is overwritten in place, otherwise the record is
// placed in the gap, compacting the page first when the gap is too small.
func (p *Data) Put(rec []byte) (uint16, error) {
	size := len(rec)
	if size > MaxRecordSize {
		return 0, errors.Wrapf(customerrors.ErrRecordTooLarge, "%d bytes", size)
	}

	if idx, ok := p.reusableSlot(size); ok {
		s := p.Slots[idx]
		copy(p.buf[s.Offset:], rec)
		p.Slots[idx] = Slot{Offset: s.Offset, Length: uint16(size), Flags: SlotFlagNone}
		p.live += size
		p.Dirty = true
		return uint16(idx), nil
	}

	idx, reuse := p.freeSlot()
	need := size
	if !reuse {
		need += SlotEntrySz
	}

	if int(p.FreeEnd)-int(p.FreeStart) < need {
		if p.FreeSpace() < need {
			return 0, errors.Wrapf(customerrors.ErrPageFull, "page %d: need %d bytes, have %d", p.Id, need, p.FreeSpace())
		}
		p.Compact()
	}

	p.FreeEnd -= uint16(size)
	copy(p.buf[p.FreeEnd:], rec)
	s := Slot{Offset: p.FreeEnd, Length: uint16(size), Flags: SlotFlagNone}
	if reuse {
		p.Slots[idx] = s
	} else {
		idx = len(p.Slots)
		p.Slots = append(p.Slots, s)
		p.FreeStart += SlotEntrySz
	}

	p.live += size
	p.Dirty = true
	return uint16(idx), nil
}

// Get returns a view of the record bytes. The view is valid until the page
// is modified.
func (p *Data) Get(slot uint16) ([]byte, error) {
	if int(slot) >= len(p.Slots) {
		return nil, errors.Wrapf(customerrors.ErrInvalidRID, "page %d has no slot %d", p.Id, slot)
	}

	s := p.Slots[slot]
	if s.IsFree() {
		return nil, errors.Wrapf(customerrors.ErrSlotFree, "page %d slot %d", p.Id, slot)
	}
	return p.buf[s.Offset : s.Offset+s.Length], nil
}

// Free marks the slot free. Its bytes stay in place until the slot is
// reused or the page is compacted.
func (p *Data) Free(slot uint16) error {
	if int(slot) >= len(p.Slots) {
		return errors.Wrapf(customerrors.ErrInvalidRID, "page %d has no slot %d", p.Id, slot)
	}
	if p.Slots[slot].IsFree() {
		return errors.Wrapf(customerrors.ErrSlotFree, "page %d slot %d", p.Id, slot)
	}

	p.Slots[slot].Flags = SlotFlagFree
	p.live -= int(p.Slots[slot].Length)
	p.Dirty = true
	return nil
}

// Compact moves all live records to the end of the page so the gap between
// the slot directory and the records is the whole free space. Slot ids do
// not change.
func (p *Data) Compact() {
	buf := make([]byte, PageSize)
	end := uint16(PageSize)
	for i, s := range p.Slots {
		if s.IsFree() {
			continue
		}
		end -= s.Length
		copy(buf[end:], p.buf[s.Offset:s.Offset+s.Length])
		p.Slots[i].Offset = end
	}
	for i, s := range p.Slots {
		if s.IsFree() {
			p.Slots[i] = Slot{Offset: end, Length: 0, Flags: SlotFlagFree}
		}
	}

	p.buf = buf
	p.FreeEnd = end
	p.Dirty = true
}

func (p *Data) reusableSlot(size int) (int, bool) {
	for i, s := range p.Slots {
		if s.IsFree() && int(s.Length) >= size {
			return i, true
		}
	}
	return 0, false
}

func (p *Data) freeSlot() (int, bool) {
	for i, s := range p.Slots {
		if s.IsFree() {
			return i, true
		}
	}
	return 0, false
}

func (p *Data) MarshalBinary() ([]byte, error) {
	buf := make([]byte, PageSize)
	buf[0] = TagData
	bin.PutUint16(buf[1:3], uint16(len(p.Slots)))
	bin.PutUint16(buf[3:5], p.FreeStart)
	bin.PutUint16(buf[5:7], p.FreeEnd)

	offset := DataHeaderSz
	for _, s := range p.Slots {
		bin.PutUint16(buf[offset:offset+2], s.Offset)
		bin.PutUint16(buf[offset+2:offset+4], s.Length)
		buf[offset+4] = s.Flags
		offset += SlotEntrySz
	}

	copy(buf[p.FreeEnd:], p.buf[p.FreeEnd:])
	return buf, nil
}

func (p *Data) UnmarshalBinary(d []byte) error {
	if len(d) != PageSize || d[0] != TagData {
		return errors.Wrapf(customerrors.ErrCorruptPage, "page %d: not a data page", p.Id)
	}

	count := int(bin.Uint16(d[1:3]))
	p.FreeStart = bin.Uint16(d[3:5])
	p.FreeEnd = bin.Uint16(d[5:7])
	if int(p.FreeStart) != DataHeaderSz+count*SlotEntrySz || p.FreeEnd < p.FreeStart || p.FreeEnd > PageSize {
		return errors.Wrapf(
			customerrors.ErrCorruptPage,
			"page %d: bad header (slots=%d, free=[%d,%d))",
			p.Id, count, p.FreeStart, p.FreeEnd,
		)
	}

	p.Slots = make([]Slot, count)
	p.live = 0
	offset := DataHeaderSz
	for i := range p.Slots {
		s := Slot{
			Offset: bin.Uint16(d[offset : offset+2]),
			Length: bin.Uint16(d[offset+2 : offset+4]),
			Flags:  d[offset+4],
		}
		offset += SlotEntrySz

		if !s.IsFree() {
			if s.Offset < p.FreeEnd || int(s.Offset)+int(s.Length) > PageSize {
				return errors.Wrapf(customerrors.ErrCorruptPage, "page %d: slot %d out of bounds", p.Id, i)
			}
			p.live += int(s.Length)
		}
		p.Slots[i] = s
	}

	p.buf = make([]byte, PageSize)
	copy(p.buf, d)
	p.Dirty = false

	return nil
}
