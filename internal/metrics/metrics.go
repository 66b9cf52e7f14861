package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Search and download metrics
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtitle_searches_total",
			Help: "Total number of subtitle searches.",
		},
		[]string{"status"},
	)

	ProviderSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtitle_provider_searches_total",
			Help: "Total number of per-provider search dispatches.",
		},
		[]string{"provider", "status"},
	)

	ProviderSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subtitle_provider_search_duration_seconds",
			Help:    "Duration of per-provider search dispatches.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtitle_downloads_total",
			Help: "Total number of subtitle downloads.",
		},
		[]string{"provider", "source", "status"},
	)

	SessionLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtitle_session_lookups_total",
			Help: "Total number of search-session lookups during downloads.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		SearchesTotal,
		ProviderSearchesTotal,
		ProviderSearchDuration,
		DownloadsTotal,
		SessionLookupsTotal,
	)
}
