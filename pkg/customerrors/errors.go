// Package customerrors defines the errors shared by the storage layers.
package customerrors

import (
	"errors"
)

var (
	// ErrMissingPage is returned when a page id has no page behind it: the id
	// is beyond the end of the file, was never written, or was freed.
	ErrMissingPage = errors.New("missing page")

	// ErrCorruptPage is returned when a page read from the file cannot be
	// decoded (unknown type tag, inconsistent header) or has the wrong kind.
	ErrCorruptPage = errors.New("corrupt page")

	// ErrRecordTooLarge is returned when a record does not fit in a single
	// data page.
	ErrRecordTooLarge = errors.New("record is too large")

	// ErrPageFull is returned by a data page that cannot hold a record.
	ErrPageFull = errors.New("not enough space in page")

	// ErrInvalidRID is returned when a record identifier does not point at a
	// slot of a data page.
	ErrInvalidRID = errors.New("invalid record identifier")

	// ErrSlotFree is returned when reading or freeing a slot that is free.
	ErrSlotFree = errors.New("slot is free")

	// ErrClosed is returned by operations on a closed pager or manager.
	ErrClosed = errors.New("closed")

	// ErrReadOnly is returned when writing through a read-only pager.
	ErrReadOnly = errors.New("read-only")

	// ErrInvariant is returned by structural verification.
	ErrInvariant = errors.New("invariant violated")

	ErrInvalidOptions = errors.New("invalid options")
)
