package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var downloads = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pypiview_archive_downloads_total",
	Help: "Number of archive downloads issued against the index.",
})
