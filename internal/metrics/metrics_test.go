package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRecommendation(t *testing.T) {
	before := testutil.ToFloat64(RecommendationRequests.WithLabelValues("external-popular-guest"))
	RecordRecommendation("external-popular-guest", 7)
	after := testutil.ToFloat64(RecommendationRequests.WithLabelValues("external-popular-guest"))
	assert.Equal(t, before+1, after)
}

func TestRecordProviderCall(t *testing.T) {
	before := testutil.ToFloat64(ProviderRequests.WithLabelValues("google", "rejected"))
	RecordProviderCall("google", "rejected", time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(ProviderRequests.WithLabelValues("google", "rejected")))
}
