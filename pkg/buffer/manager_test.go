package buffer

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"go-bpt/pkg/customerrors"
	"go-bpt/pkg/pages"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openManager(t *testing.T, file string, cacheSize int) *Manager {
	t.Helper()

	m, err := Open(file, &Options{
		CacheSize:  cacheSize,
		EvictRatio: 0.8,
		FileMode:   0644,
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	return m
}

func TestManager_TwoSlotsSurviveFlush(t *testing.T) {
	file := filepath.Join(t.TempDir(), "buffer.db")
	m := openManager(t, file, 256)

	first := bytes.Repeat([]byte{0xaa}, 10)
	second := bytes.Repeat([]byte{0xbb}, 12)

	r1, err := m.RequestSlot(first)
	require.NoError(t, err)
	r2, err := m.RequestSlot(second)
	require.NoError(t, err)
	require.Equal(t, r1.PageID, r2.PageID)
	require.NotEqual(t, r1.SlotID, r2.SlotID)

	require.NoError(t, m.Flush())
	require.Equal(t, 0, m.Stats().Resident)

	got, err := m.GetData(r1)
	require.NoError(t, err)
	require.Equal(t, first, got)
	got, err = m.GetData(r2)
	require.NoError(t, err)
	require.Equal(t, second, got)

	require.NoError(t, m.Close())

	// and across a reopen
	m = openManager(t, file, 256)
	defer m.Close()

	got, err = m.GetData(r2)
	require.NoError(t, err)
	require.Equal(t, second, got)
	require.Equal(t, r1.PageID+1, m.Stats().NextID)
}

func TestManager_AllocateReusesSmallestFreeID(t *testing.T) {
	m := openManager(t, filepath.Join(t.TempDir(), "buffer.db"), 256)
	defer m.Close()

	ids := make([]uint32, 0, 6)
	for i := 0; i < 6; i++ {
		ids = append(ids, m.AllocateNodePage(i%2 == 0).Id)
	}
	require.Equal(t, []uint32{1, 2, 3, 4, 5, 6}, ids)

	m.FreePage(5)
	m.FreePage(2)
	m.FreePage(4)
	m.FreePage(2)
	require.Equal(t, 3, m.Stats().FreeIDs)

	_, err := m.GetPage(4)
	require.True(t, errors.Is(err, customerrors.ErrMissingPage))

	require.Equal(t, uint32(2), m.AllocateNodePage(true).Id)
	require.Equal(t, uint32(4), m.AllocateNodePage(true).Id)
	require.Equal(t, uint32(5), m.AllocateNodePage(true).Id)
	require.Equal(t, uint32(7), m.AllocateNodePage(true).Id)
}

func TestManager_NullPage(t *testing.T) {
	m := openManager(t, filepath.Join(t.TempDir(), "buffer.db"), 256)
	defer m.Close()

	p, err := m.GetPage(0)
	require.NoError(t, err)
	require.Nil(t, p)

	n, err := m.GetNode(0)
	require.NoError(t, err)
	require.Nil(t, n)

	_, err = m.GetData(pages.RID{})
	require.True(t, errors.Is(err, customerrors.ErrInvalidRID))

	_, err = m.GetPage(42)
	require.True(t, errors.Is(err, customerrors.ErrMissingPage))
}

func TestManager_BatchEviction(t *testing.T) {
	file := filepath.Join(t.TempDir(), "buffer.db")
	reg := prometheus.NewRegistry()
	m, err := Open(file, &Options{
		CacheSize:  10,
		EvictRatio: 0.8,
		FileMode:   0644,
		Logger:     quietLogger(),
		Registerer: reg,
	})
	require.NoError(t, err)
	defer m.Close()

	m.Hold()
	nodes := make([]*pages.Node, 0, 11)
	for i := 0; i < 11; i++ {
		n := m.AllocateNodePage(true)
		n.InsertEntry(0, uint32(i), pages.RID{PageID: 99, SlotID: uint16(i)})
		nodes = append(nodes, n)
	}
	require.Equal(t, 11, m.Stats().Resident)

	require.NoError(t, m.Release())
	// ceil(11 * 0.8) oldest pages were written back and dropped
	require.Equal(t, 2, m.Stats().Resident)
	require.Equal(t, float64(9), testutil.ToFloat64(m.metrics.evictions))
	require.Equal(t, float64(9), testutil.ToFloat64(m.metrics.writes))

	for i, want := range nodes {
		got, err := m.GetNode(want.Id)
		require.NoError(t, err)
		require.Equal(t, []uint32{uint32(i)}, got.Keys)
		require.Equal(t, want.RIDs, got.RIDs)
	}
	require.Greater(t, testutil.ToFloat64(m.metrics.misses), float64(0))
}

func TestManager_HoldKeepsPagesResident(t *testing.T) {
	m := openManager(t, filepath.Join(t.TempDir(), "buffer.db"), 4)
	defer m.Close()

	m.Hold()
	m.Hold()
	for i := 0; i < 20; i++ {
		_, err := m.RequestSlot(bytes.Repeat([]byte{byte(i)}, 3000))
		require.NoError(t, err)
	}
	require.Equal(t, 20, m.Stats().Resident)

	require.NoError(t, m.Release())
	require.Equal(t, 20, m.Stats().Resident)
	require.NoError(t, m.Release())
	require.Equal(t, 4, m.Stats().Resident)

	require.Panics(t, func() { _ = m.Release() })
}

func TestManager_RequestSlotPicksMostFreeSpace(t *testing.T) {
	m := openManager(t, filepath.Join(t.TempDir(), "buffer.db"), 256)
	defer m.Close()

	big, err := m.RequestSlot(make([]byte, 3000))
	require.NoError(t, err)
	// does not fit next to the 3000 byte record
	other, err := m.RequestSlot(make([]byte, 2000))
	require.NoError(t, err)
	require.NotEqual(t, big.PageID, other.PageID)

	// the second page has more room left
	small, err := m.RequestSlot([]byte("x"))
	require.NoError(t, err)
	require.Equal(t, other.PageID, small.PageID)
	require.Equal(t, 2, m.Stats().DataPages)

	_, err = m.RequestSlot(make([]byte, pages.MaxRecordSize+1))
	require.True(t, errors.Is(err, customerrors.ErrRecordTooLarge))
}

func TestManager_FreeDataReleasesEmptyPage(t *testing.T) {
	m := openManager(t, filepath.Join(t.TempDir(), "buffer.db"), 256)
	defer m.Close()

	r1, err := m.RequestSlot([]byte("one"))
	require.NoError(t, err)
	r2, err := m.RequestSlot([]byte("two"))
	require.NoError(t, err)

	require.NoError(t, m.FreeData(r1))
	require.True(t, errors.Is(m.FreeData(r1), customerrors.ErrSlotFree))
	_, err = m.GetData(r1)
	require.True(t, errors.Is(err, customerrors.ErrSlotFree))
	require.Equal(t, 0, m.Stats().FreeIDs)

	require.NoError(t, m.FreeData(r2))
	require.Equal(t, 1, m.Stats().FreeIDs)
	require.Equal(t, 0, m.Stats().DataPages)

	_, err = m.GetData(r2)
	require.True(t, errors.Is(err, customerrors.ErrMissingPage))

	// the freed id is handed out again
	require.Equal(t, r2.PageID, m.AllocateNodePage(true).Id)
}

func TestManager_WrongPageKind(t *testing.T) {
	m := openManager(t, filepath.Join(t.TempDir(), "buffer.db"), 256)
	defer m.Close()

	n := m.AllocateNodePage(true)
	_, err := m.GetData(pages.RID{PageID: n.Id})
	require.True(t, errors.Is(err, customerrors.ErrInvalidRID))

	rid, err := m.RequestSlot([]byte("v"))
	require.NoError(t, err)
	_, err = m.GetNode(rid.PageID)
	require.True(t, errors.Is(err, customerrors.ErrCorruptPage))
}

func TestManager_CorruptPageOnDisk(t *testing.T) {
	file := filepath.Join(t.TempDir(), "buffer.db")
	m := openManager(t, file, 256)
	n := m.AllocateNodePage(true)
	require.NoError(t, m.Close())

	f, err := os.OpenFile(file, os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{pages.TagOverflow}, int64(n.Id)*pages.PageSize)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	m = openManager(t, file, 256)
	defer m.Close()
	_, err = m.GetPage(n.Id)
	require.True(t, errors.Is(err, customerrors.ErrCorruptPage))
}

func TestManager_TruncatedPageIsCorrupt(t *testing.T) {
	file := filepath.Join(t.TempDir(), "buffer.db")
	m := openManager(t, file, 256)
	n := m.AllocateNodePage(true)
	require.NoError(t, m.Close())

	require.NoError(t, os.Truncate(file, int64(n.Id)*pages.PageSize+100))

	m = openManager(t, file, 256)
	defer m.Close()

	_, err := m.GetPage(n.Id)
	require.True(t, errors.Is(err, customerrors.ErrCorruptPage))
	require.False(t, errors.Is(err, customerrors.ErrMissingPage))

	fresh := m.AllocateNodePage(true)
	require.Greater(t, fresh.Id, n.Id)
}

func TestOpen_DefaultFileMode(t *testing.T) {
	file := filepath.Join(t.TempDir(), "buffer.db")
	m, err := Open(file, &Options{CacheSize: 8, EvictRatio: 0.8, Logger: quietLogger()})
	require.NoError(t, err)
	require.False(t, m.Stats().ReadOnly)
	m.AllocateNodePage(true)
	require.NoError(t, m.Close())

	stat, err := os.Stat(file)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), stat.Mode().Perm()&0600)

	m, err = Open(file, &Options{CacheSize: 8, EvictRatio: 0.8, ReadOnly: true, Logger: quietLogger()})
	require.NoError(t, err)
	defer m.Close()
	require.True(t, m.Stats().ReadOnly)
}

func TestManager_Closed(t *testing.T) {
	m := openManager(t, filepath.Join(t.TempDir(), "buffer.db"), 256)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.GetPage(1)
	require.True(t, errors.Is(err, customerrors.ErrClosed))
	_, err = m.RequestSlot([]byte("x"))
	require.True(t, errors.Is(err, customerrors.ErrClosed))
	require.True(t, errors.Is(m.Flush(), customerrors.ErrClosed))
}

func TestOpen_InvalidOptions(t *testing.T) {
	file := filepath.Join(t.TempDir(), "buffer.db")
	_, err := Open(file, &Options{CacheSize: 0, EvictRatio: 0.8})
	require.True(t, errors.Is(err, customerrors.ErrInvalidOptions))
	_, err = Open(file, &Options{CacheSize: 1, EvictRatio: 1.5})
	require.True(t, errors.Is(err, customerrors.ErrInvalidOptions))
}
