package buffer

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// DefaultOptions is used when Open is called with nil options.
var DefaultOptions = Options{
	CacheSize:  256,
	EvictRatio: 0.8,
	ReadOnly:   false,
	FileMode:   0644,
}

type Options struct {
	// CacheSize is the number of resident pages above which a batch eviction
	// runs.
	CacheSize int

	// EvictRatio is the fraction of resident pages written back and dropped
	// by one batch eviction.
	EvictRatio float64

	ReadOnly bool

	// FileMode is used when the file is created. Zero means 0644.
	FileMode os.FileMode

	// Logger defaults to the package level logger.
	Logger logrus.FieldLogger

	// Registerer receives the manager's collectors when set.
	Registerer prometheus.Registerer
}
