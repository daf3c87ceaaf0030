package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	require.NotNil(t, channelAttemptsTotal)
	require.NotNil(t, rpcPagesTotal)
	require.NotNil(t, reviewsSkippedTotal)
	require.NotNil(t, httpRequestsTotal)
}

func TestObserveChannelAttempt(t *testing.T) {
	Init()
	before := testutil.ToFloat64(channelYieldTotal.WithLabelValues("test-secondary"))
	ObserveChannelAttempt("test-secondary", OutcomeSuccess, 4)
	ObserveChannelAttempt("test-secondary", OutcomeEmpty, 0)

	require.InDelta(t, before+4, testutil.ToFloat64(channelYieldTotal.WithLabelValues("test-secondary")), 0.001)
	require.InDelta(t, 1, testutil.ToFloat64(channelAttemptsTotal.WithLabelValues("test-secondary", OutcomeEmpty)), 0.001)
}

func TestObserveSkippedIgnoresZero(t *testing.T) {
	ObserveSkipped("test-reason", 0)
	ObserveSkipped("test-reason", 2)
	require.InDelta(t, 2, testutil.ToFloat64(reviewsSkippedTotal.WithLabelValues("test-reason")), 0.001)
}

func TestObserveRPCAndSelectorMiss(t *testing.T) {
	ObserveRPCStatus(418)
	ObserveSelectorMiss("test-stage")
	ObserveAcquisition("test-channel", 2*time.Second)

	require.InDelta(t, 1, testutil.ToFloat64(rpcPagesTotal.WithLabelValues("418")), 0.001)
	require.InDelta(t, 1, testutil.ToFloat64(selectorMissesTotal.WithLabelValues("test-stage")), 0.001)
	require.Positive(t, testutil.CollectAndCount(acquisitionDurationSeconds))
}

func TestObserveThrottleDelay(t *testing.T) {
	ObserveThrottleDelay("test-host", 150*time.Millisecond)
	require.Positive(t, testutil.CollectAndCount(throttleDelaySeconds))
}
