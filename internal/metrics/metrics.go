package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offers",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "offers",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	SearchRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offers",
		Name:      "web_search_requests_total",
		Help:      "Total web search attempts by region and result status.",
	}, []string{"region", "status"})

	SearchRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "offers",
		Name:      "web_search_request_duration_seconds",
		Help:      "Web search attempt duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"region"})

	MetadataRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offers",
		Name:      "metadata_requests_total",
		Help:      "Total metadata service requests by endpoint and result status.",
	}, []string{"endpoint", "status"})

	OffersResolvedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offers",
		Name:      "resolved_total",
		Help:      "Total validated offers by locale and tier.",
	}, []string{"locale", "tier"})

	ResolutionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "offers",
		Name:      "resolution_duration_seconds",
		Help:      "Full offer resolution duration in seconds.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	HistoryWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offers",
		Name:      "history_writes_total",
		Help:      "Total history records written by backing store.",
	}, []string{"store"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SearchRequestsTotal,
		SearchRequestDuration,
		MetadataRequestsTotal,
		OffersResolvedTotal,
		ResolutionDuration,
		HistoryWritesTotal,
	)
}
