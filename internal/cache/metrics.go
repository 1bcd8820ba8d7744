package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pypiview_cache_hits_total",
		Help: "Number of archive lookups served from the disk cache.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pypiview_cache_misses_total",
		Help: "Number of archive lookups that required a download.",
	})

	cacheBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pypiview_cache_bytes_written_total",
		Help: "Total bytes written into the disk cache.",
	})
)
