// Package pager provides fixed size page I/O over a single file. Page id N
// lives at byte offset N*pageSize.
package pager

import (
	"encoding"
	"io"
	"os"

	"github.com/pkg/errors"

	"go-bpt/pkg/customerrors"
)

// Open opens the named file, creating it unless readOnly is set.
func Open(fileName string, pageSize int, readOnly bool, mode os.FileMode) (*Pager, error) {
	if pageSize <= 0 {
		return nil, errors.Wrapf(customerrors.ErrInvalidOptions, "page size %d", pageSize)
	}

	flag := os.O_CREATE | os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}

	file, err := os.OpenFile(fileName, flag, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", fileName)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "failed to stat %s", fileName)
	}

	return &Pager{
		file:     file,
		fileName: fileName,
		pageSize: pageSize,
		readOnly: readOnly,
		size:     stat.Size(),
		count:    uint32((stat.Size() + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// Pager reads and writes whole pages. It is not safe for concurrent use.
type Pager struct {
	file     *os.File
	fileName string
	pageSize int
	readOnly bool
	size     int64
	count    uint32
}

// Count returns the number of pages in the file, counting a partial
// trailing page.
func (p *Pager) Count() uint32 {
	return p.count
}

func (p *Pager) ReadOnly() bool {
	return p.readOnly
}

// ReadPage returns the image of page id. Ids past the end of the file and
// pages that were never written (all zero) are reported as missing. A page
// cut short by the end of the file is corrupt.
func (p *Pager) ReadPage(id uint32) ([]byte, error) {
	if p.file == nil {
		return nil, customerrors.ErrClosed
	}
	if id == 0 || id >= p.count {
		return nil, errors.Wrapf(customerrors.ErrMissingPage, "page %d", id)
	}

	if avail := p.size - p.offset(id); avail < int64(p.pageSize) {
		return nil, errors.Wrapf(customerrors.ErrCorruptPage, "page %d: short read (%d bytes)", id, avail)
	}

	buf := make([]byte, p.pageSize)
	n, err := p.file.ReadAt(buf, p.offset(id))
	if err != nil && !(errors.Is(err, io.EOF) && n == p.pageSize) {
		return nil, errors.Wrapf(err, "failed to read page %d", id)
	}

	if isZero(buf) {
		return nil, errors.Wrapf(customerrors.ErrMissingPage, "page %d was never written", id)
	}
	return buf, nil
}

// WritePage writes a full page image at id, extending the file if needed.
func (p *Pager) WritePage(id uint32, buf []byte) error {
	if p.file == nil {
		return customerrors.ErrClosed
	}
	if p.readOnly {
		return errors.Wrapf(customerrors.ErrReadOnly, "write page %d", id)
	}
	if id == 0 {
		return errors.New("page 0 is reserved")
	}
	if len(buf) != p.pageSize {
		return errors.Errorf("page %d: image is %d bytes, want %d", id, len(buf), p.pageSize)
	}

	if _, err := p.file.WriteAt(buf, p.offset(id)); err != nil {
		return errors.Wrapf(err, "failed to write page %d", id)
	}
	if id >= p.count {
		p.count = id + 1
	}
	if end := p.offset(id) + int64(p.pageSize); end > p.size {
		p.size = end
	}
	return nil
}

// Marshal encodes v and writes it as page id.
func (p *Pager) Marshal(id uint32, v encoding.BinaryMarshaler) error {
	buf, err := v.MarshalBinary()
	if err != nil {
		return errors.Wrapf(err, "failed to encode page %d", id)
	}
	return p.WritePage(id, buf)
}

func (p *Pager) Sync() error {
	if p.file == nil {
		return customerrors.ErrClosed
	}
	if p.readOnly {
		return nil
	}
	return errors.Wrap(p.file.Sync(), "failed to sync")
}

// Close syncs and closes the file. Closing twice is a no-op.
func (p *Pager) Close() error {
	if p.file == nil {
		return nil
	}

	syncErr := p.Sync()
	err := p.file.Close()
	p.file = nil
	if syncErr != nil {
		return syncErr
	}
	return errors.Wrapf(err, "failed to close %s", p.fileName)
}

func (p *Pager) offset(id uint32) int64 {
	return int64(id) * int64(p.pageSize)
}

func isZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
