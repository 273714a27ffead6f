package cli

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go-bpt/pkg/bptree"
	"go-bpt/pkg/buffer"
	"go-bpt/util/helpers"
)

// rootMeta is kept next to the page file since the page file itself has no
// header page.
type rootMeta struct {
	Root uint32 `yaml:"root"`
}

func rootFile(dbFile string) string {
	return dbFile + ".root"
}

type session struct {
	bm       *buffer.Manager
	tree     *bptree.BPlusTree
	rootFile string
	readOnly bool
}

func (a *app) bufferOptions(readOnly bool) *buffer.Options {
	return &buffer.Options{
		CacheSize:  a.cfg.Storage.CacheSize,
		EvictRatio: a.cfg.Storage.EvictRatio,
		ReadOnly:   readOnly || a.cfg.Storage.ReadOnly,
		FileMode:   a.cfg.Storage.FileMode,
		Logger:     a.log,
	}
}

func (a *app) treeOptions() *bptree.Options {
	return &bptree.Options{
		MaxKeys:        a.cfg.Tree.MaxKeys,
		MaxEntriesLeaf: a.cfg.Tree.MaxEntriesLeaf,
		Logger:         a.log,
	}
}

// create starts a new tree, replacing any existing page file.
func (a *app) create() (*session, error) {
	path := a.cfg.Storage.Path
	if err := helpers.CreateParentDir(path); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}
	for _, f := range []string{path, rootFile(path)} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to remove %s", f)
		}
	}

	bm, err := buffer.Open(path, a.bufferOptions(false))
	if err != nil {
		return nil, err
	}

	tree, err := bptree.New(bm, a.treeOptions())
	if err != nil {
		_ = bm.Close()
		return nil, err
	}

	return &session{bm: bm, tree: tree, rootFile: rootFile(path)}, nil
}

// open attaches to the tree recorded in the root file.
func (a *app) open(readOnly bool) (*session, error) {
	path := a.cfg.Storage.Path

	raw, err := os.ReadFile(rootFile(path))
	if err != nil {
		return nil, errors.Wrapf(err, "no tree at %s, run init first", path)
	}
	meta := &rootMeta{}
	if err := yaml.Unmarshal(raw, meta); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", rootFile(path))
	}

	opts := a.bufferOptions(readOnly)
	bm, err := buffer.Open(path, opts)
	if err != nil {
		return nil, err
	}

	tree, err := bptree.Open(bm, meta.Root, a.treeOptions())
	if err != nil {
		_ = bm.Close()
		return nil, err
	}

	return &session{bm: bm, tree: tree, rootFile: rootFile(path), readOnly: opts.ReadOnly}, nil
}

// close flushes the tree and records its root.
func (s *session) close() error {
	err := s.tree.Close()
	if cerr := s.bm.Close(); err == nil {
		err = cerr
	}
	if err != nil || s.readOnly {
		return err
	}

	raw, err := yaml.Marshal(&rootMeta{Root: s.tree.Root()})
	if err != nil {
		return errors.Wrap(err, "failed to encode root")
	}
	return errors.Wrapf(os.WriteFile(s.rootFile, raw, 0644), "failed to write %s", s.rootFile)
}
