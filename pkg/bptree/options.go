package bptree

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"go-bpt/pkg/customerrors"
	"go-bpt/pkg/pages"
)

var defaultOptions = Options{
	MaxKeys:        511,
	MaxEntriesLeaf: 340,
}

// Options represents the configuration options for the B+ tree.
type Options struct {
	// MaxKeys is the largest number of separator keys an internal node
	// holds. Internal nodes have at most MaxKeys+1 children.
	MaxKeys int

	// MaxEntriesLeaf is the largest number of entries a leaf holds.
	MaxEntriesLeaf int

	// Logger defaults to the buffer manager's package logger.
	Logger logrus.FieldLogger
}

func (o *Options) validate() error {
	if o.MaxKeys < 2 || o.MaxKeys > pages.MaxInternalKeys() {
		return errors.Wrapf(
			customerrors.ErrInvalidOptions,
			"max keys %d not in [2, %d]", o.MaxKeys, pages.MaxInternalKeys(),
		)
	}
	if o.MaxEntriesLeaf < 3 || o.MaxEntriesLeaf > pages.MaxLeafEntries() {
		return errors.Wrapf(
			customerrors.ErrInvalidOptions,
			"max leaf entries %d not in [3, %d]", o.MaxEntriesLeaf, pages.MaxLeafEntries(),
		)
	}
	return nil
}
