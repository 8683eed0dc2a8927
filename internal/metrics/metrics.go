package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decoder Metrics
var (
	DecodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txdecoder_decodes_total",
		Help: "The total number of decode requests by chain and outcome",
	}, []string{"chain", "outcome"})

	DecodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "txdecoder_decode_duration_seconds",
		Help:    "Time spent decoding a single transaction",
		Buckets: prometheus.DefBuckets,
	}, []string{"chain"})

	DegradedFields = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txdecoder_degraded_fields_total",
		Help: "The number of result fields left absent because a collaborator failed",
	}, []string{"chain", "kind"})
)

// Transfer Metrics
var (
	TransfersExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txdecoder_transfers_extracted_total",
		Help: "The number of fungible token transfers returned in results",
	}, []string{"chain"})

	NonFungibleSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txdecoder_nonfungible_transfers_skipped_total",
		Help: "The number of non-fungible transfers recognized but not rendered",
	}, []string{"chain"})
)

// Output Metrics
var PublishedResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "txdecoder_published_results_total",
	Help: "The number of decoded results written to an output sink",
}, []string{"sink", "status"})

// RecordWarnings 按类别统计降级字段，"transfer_dropped:3" 计入 transfer_dropped
func RecordWarnings(chain string, warnings []string) {
	for _, w := range warnings {
		kind, _, _ := strings.Cut(w, ":")
		DegradedFields.WithLabelValues(chain, kind).Inc()
	}
}
