package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
)

var (
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeweb_source_fetches_total",
			Help: "Source pages processed by the content extractor, by outcome",
		},
		[]string{"outcome"},
	)

	ScrapedPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeweb_scraped_pages_total",
			Help: "Pages processed by the structured scrape endpoint, by outcome",
		},
		[]string{"outcome"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeweb_upstream_errors_total",
			Help: "Failed calls to search or completion providers",
		},
		[]string{"provider"},
	)

	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeweb_chat_requests_total",
			Help: "Chat requests by result code",
		},
		[]string{"code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "citeweb_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)
