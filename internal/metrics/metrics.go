// Package metrics holds the Prometheus collectors shared by the report
// pipeline and the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkFilesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marks_work_files_processed_total",
		Help: "Work files compiled into reports, by source kind",
	}, []string{"kind"})

	RangesEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marks_ranges_emitted_total",
		Help: "Frame ranges emitted by the compressor, by shape",
	}, []string{"shape"})

	UnresolvedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marks_unresolved_lines_total",
		Help: "Work-file lines whose path matched no manifest entry",
	})

	ThumbnailsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marks_thumbnails_rendered_total",
		Help: "Thumbnail render attempts, by outcome",
	}, []string{"status"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marks_http_requests_total",
		Help: "API requests served, by method and status code",
	}, []string{"method", "status"})
)
