package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordWarnings(t *testing.T) {
	before := testutil.ToFloat64(DegradedFields.WithLabelValues("metrics-test", "transfer_dropped"))

	RecordWarnings("metrics-test", []string{"transfer_dropped:3", "transfer_dropped:7", "native_price_unavailable"})

	assert.Equal(t, before+2, testutil.ToFloat64(DegradedFields.WithLabelValues("metrics-test", "transfer_dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(DegradedFields.WithLabelValues("metrics-test", "native_price_unavailable")))
}
