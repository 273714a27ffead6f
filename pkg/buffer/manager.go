// Package buffer mediates all page access for the tree: it caches decoded
// pages, allocates and recycles page ids, and places records into data
// pages.
package buffer

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"go-bpt/pkg/cache"
	"go-bpt/pkg/customerrors"
	"go-bpt/pkg/heap"
	"go-bpt/pkg/pager"
	"go-bpt/pkg/pages"
	"go-bpt/util/helpers"
	"go-bpt/util/logger"
)

// Open opens (or creates) the page file and returns a manager with an empty
// cache. Page ids continue after the last page in the file.
func Open(fileName string, opts *Options) (*Manager, error) {
	if opts == nil {
		opts = &DefaultOptions
	}
	if opts.CacheSize < 1 {
		return nil, errors.Wrapf(customerrors.ErrInvalidOptions, "cache size %d", opts.CacheSize)
	}
	if opts.EvictRatio <= 0 || opts.EvictRatio > 1 {
		return nil, errors.Wrapf(customerrors.ErrInvalidOptions, "evict ratio %v", opts.EvictRatio)
	}

	log := opts.Logger
	if log == nil {
		log = logger.L
	}

	mtr, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to register metrics")
	}

	mode := opts.FileMode
	if mode == 0 {
		mode = DefaultOptions.FileMode
	}

	p, err := pager.Open(fileName, pages.PageSize, opts.ReadOnly, mode)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		file:       fileName,
		log:        log.WithField("file", fileName),
		pager:      p,
		readOnly:   p.ReadOnly(),
		cacheSize:  opts.CacheSize,
		evictRatio: opts.EvictRatio,
		freeIDs:    heap.NewIndexed[uint32, uint32](func(a, b uint32) bool { return a < b }),
		freeSpace: heap.NewIndexed[uint32, int](func(a, b int) bool {
			return a > b
		}),
		nextID:  helpers.Max(p.Count(), 1),
		metrics: mtr,
	}
	m.cache = cache.NewCache[uint32, pages.Page](m.writeBack)

	m.log.WithField("next_id", m.nextID).Debug("opened page file")
	return m, nil
}

// Manager owns every page of one file. Pages handed out stay valid until the
// outermost Release, Flush or Close; callers holding page pointers across
// several calls must bracket them with Hold and Release. It is not safe for
// concurrent use.
type Manager struct {
	file  string
	log   logrus.FieldLogger
	pager *pager.Pager
	cache *cache.Cache[uint32, pages.Page]

	cacheSize  int
	evictRatio float64
	holds      int
	readOnly   bool

	freeIDs   *heap.Indexed[uint32, uint32]
	freeSpace *heap.Indexed[uint32, int]
	nextID    uint32

	metrics *metrics
}

// Stats describes the manager's bookkeeping.
type Stats struct {
	Resident  int
	FreeIDs   int
	DataPages int
	NextID    uint32
	ReadOnly  bool
}

func (m *Manager) Stats() Stats {
	return Stats{
		Resident:  m.cache.Len(),
		FreeIDs:   m.freeIDs.Len(),
		DataPages: m.freeSpace.Len(),
		NextID:    m.nextID,
		ReadOnly:  m.readOnly,
	}
}

// Hold defers batch eviction until the matching Release. Holds nest.
func (m *Manager) Hold() {
	m.holds++
}

// Release ends a Hold. The outermost Release runs a pending eviction.
func (m *Manager) Release() error {
	if m.holds == 0 {
		panic(errors.New("buffer: release without hold"))
	}
	m.holds--
	return m.evict()
}

// begin brackets a fallible manager call so pages it admits cannot be
// evicted before it returns.
func (m *Manager) begin() func(*error) {
	m.Hold()
	return func(err *error) {
		if rerr := m.Release(); *err == nil {
			*err = rerr
		}
	}
}

// AllocateNodePage returns a new empty node with the smallest free page id,
// or a fresh id when none is free. The node is cached and dirty.
func (m *Manager) AllocateNodePage(leaf bool) *pages.Node {
	n := pages.NewNode(m.allocateID(), leaf)
	m.admit(n)
	return n
}

// GetPage returns the page with the given id, reading it from the file on a
// cache miss. Id 0 yields nil.
func (m *Manager) GetPage(id uint32) (p pages.Page, err error) {
	if id == pages.NullPage {
		return nil, nil
	}
	if m.pager == nil {
		return nil, customerrors.ErrClosed
	}
	defer m.begin()(&err)

	if p, ok := m.cache.Get(id); ok {
		m.metrics.hits.Inc()
		return p, nil
	}
	m.metrics.misses.Inc()

	if m.freeIDs.Contains(id) {
		return nil, errors.Wrapf(customerrors.ErrMissingPage, "page %d is free", id)
	}

	buf, err := m.pager.ReadPage(id)
	if err != nil {
		return nil, err
	}
	p, err = pages.Decode(id, buf)
	if err != nil {
		return nil, err
	}

	m.admit(p)
	return p, nil
}

// GetNode is GetPage restricted to node pages.
func (m *Manager) GetNode(id uint32) (*pages.Node, error) {
	p, err := m.GetPage(id)
	if err != nil || p == nil {
		return nil, err
	}

	n, ok := p.(*pages.Node)
	if !ok {
		return nil, errors.Wrapf(customerrors.ErrCorruptPage, "page %d is a %s page, want node", id, p.Kind())
	}
	return n, nil
}

// FreePage drops the page from the cache and the free space index and
// returns its id to the free pool. The file is not touched.
func (m *Manager) FreePage(id uint32) {
	if id == pages.NullPage || id >= m.nextID || m.freeIDs.Contains(id) {
		return
	}

	m.cache.Remove(id)
	m.freeSpace.Remove(id)
	m.freeIDs.Push(id, id)
	m.metrics.freeIDs.Set(float64(m.freeIDs.Len()))
	m.metrics.resident.Set(float64(m.cache.Len()))
}

// RequestSlot stores data in the data page with the most free space or in a
// new data page when none can take it.
func (m *Manager) RequestSlot(data []byte) (rid pages.RID, err error) {
	if m.pager == nil {
		return pages.RID{}, customerrors.ErrClosed
	}
	if len(data) > pages.MaxRecordSize {
		return pages.RID{}, errors.Wrapf(customerrors.ErrRecordTooLarge, "%d bytes", len(data))
	}
	defer m.begin()(&err)

	var dp *pages.Data
	if id, _, ok := m.freeSpace.Top(); ok {
		if dp, err = m.getData(id); err != nil {
			return pages.RID{}, err
		}
		if !dp.Fits(len(data)) {
			dp = nil
		}
	}
	if dp == nil {
		dp = pages.NewData(m.allocateID())
		m.admit(dp)
	}

	slot, err := dp.Put(data)
	if err != nil {
		return pages.RID{}, err
	}
	m.freeSpace.Push(dp.Id, dp.FreeSpace())

	return pages.RID{PageID: dp.Id, SlotID: slot}, nil
}

// GetData returns a view of the record at rid. The view is valid until the
// record's page is modified or evicted.
func (m *Manager) GetData(rid pages.RID) (data []byte, err error) {
	if rid.PageID == pages.NullPage {
		return nil, errors.Wrapf(customerrors.ErrInvalidRID, "rid %s", rid)
	}
	defer m.begin()(&err)

	dp, err := m.getData(rid.PageID)
	if err != nil {
		return nil, err
	}
	return dp.Get(rid.SlotID)
}

// FreeData frees the record at rid. A data page left without live records
// is freed as well.
func (m *Manager) FreeData(rid pages.RID) (err error) {
	if rid.PageID == pages.NullPage {
		return errors.Wrapf(customerrors.ErrInvalidRID, "rid %s", rid)
	}
	defer m.begin()(&err)

	dp, err := m.getData(rid.PageID)
	if err != nil {
		return err
	}
	if err := dp.Free(rid.SlotID); err != nil {
		return err
	}

	if dp.Live() == 0 {
		m.log.WithField("page", dp.Id).Debug("data page emptied")
		m.FreePage(dp.Id)
		return nil
	}
	m.freeSpace.Push(dp.Id, dp.FreeSpace())
	return nil
}

// Flush writes every dirty cached page back, syncs the file and empties the
// cache. Page pointers obtained before Flush must not be used after it.
func (m *Manager) Flush() error {
	if m.pager == nil {
		return customerrors.ErrClosed
	}
	if err := m.cache.Flush(); err != nil {
		return err
	}
	if err := m.pager.Sync(); err != nil {
		return err
	}

	m.cache.Clear()
	m.metrics.resident.Set(0)
	return nil
}

// Close flushes and closes the file. The free pools are not persisted.
func (m *Manager) Close() error {
	if m.pager == nil {
		return nil
	}

	err := m.Flush()
	if cerr := m.pager.Close(); err == nil {
		err = cerr
	}
	m.pager = nil
	m.log.Debug("closed page file")
	return err
}

func (m *Manager) getData(id uint32) (*pages.Data, error) {
	p, err := m.GetPage(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.Wrapf(customerrors.ErrInvalidRID, "page %d", id)
	}

	dp, ok := p.(*pages.Data)
	if !ok {
		return nil, errors.Wrapf(customerrors.ErrInvalidRID, "page %d is a %s page", id, p.Kind())
	}

	// data pages written in earlier sessions enter the free space index on
	// first use
	if !m.freeSpace.Contains(id) {
		m.freeSpace.Push(id, dp.FreeSpace())
	}
	return dp, nil
}

func (m *Manager) allocateID() uint32 {
	if id, _, ok := m.freeIDs.Pop(); ok {
		m.metrics.freeIDs.Set(float64(m.freeIDs.Len()))
		return id
	}

	id := m.nextID
	m.nextID++
	return id
}

func (m *Manager) admit(p pages.Page) {
	m.cache.Add(p.ID(), p)
	m.metrics.resident.Set(float64(m.cache.Len()))
}

// evict writes back and drops the oldest EvictRatio share of the cache once
// it holds more than CacheSize pages and nothing is held.
func (m *Manager) evict() error {
	resident := m.cache.Len()
	if m.holds > 0 || resident <= m.cacheSize {
		return nil
	}

	n := helpers.Min(int(math.Ceil(float64(resident)*m.evictRatio)), resident)
	evicted, err := m.cache.Evict(n)
	m.metrics.evictions.Add(float64(evicted))
	m.metrics.resident.Set(float64(m.cache.Len()))
	m.log.WithFields(logrus.Fields{
		"resident": resident,
		"evicted":  evicted,
	}).Debug("batch eviction")
	return err
}

func (m *Manager) writeBack(id uint32, p pages.Page) error {
	if err := m.pager.Marshal(id, p); err != nil {
		return err
	}
	m.metrics.writes.Inc()
	return nil
}
