package buffer

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	writes    prometheus.Counter
	resident  prometheus.Gauge
	freeIDs   prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bpt", Subsystem: "buffer", Name: "cache_hits_total",
			Help: "Page requests served from the cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bpt", Subsystem: "buffer", Name: "cache_misses_total",
			Help: "Page requests that had to read the file.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bpt", Subsystem: "buffer", Name: "evicted_pages_total",
			Help: "Pages dropped from the cache by batch eviction.",
		}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bpt", Subsystem: "buffer", Name: "page_writes_total",
			Help: "Pages written back to the file.",
		}),
		resident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bpt", Subsystem: "buffer", Name: "resident_pages",
			Help: "Pages currently held in the cache.",
		}),
		freeIDs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bpt", Subsystem: "buffer", Name: "free_page_ids",
			Help: "Page ids waiting for reuse.",
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.hits, m.misses, m.evictions, m.writes, m.resident, m.freeIDs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
