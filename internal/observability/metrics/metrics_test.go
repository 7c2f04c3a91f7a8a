package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHelpersRecordAfterInit(t *testing.T) {
	Init()
	Init()

	ObservePoll(ResultSuccess, 20*time.Millisecond)
	ObserveUpstream("", "", time.Millisecond)
	IncTipEmitted("dragon_prep", "warning")
	IncTipEmitted("dragon_prep", "warning")
	IncTipThrottled("dragon_prep")
	IncClockReset()
	ObserveRuleReload(ResultSuccess, 4)
	ObserveRuleReload(ResultError, 0)
	AddStreamSubscribers("sse", 2)
	AddStreamSubscribers("sse", -1)
	IncSinkError("redis")

	assert.Equal(t, 1.0, testutil.ToFloat64(pollCycles.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(upstreamRequests.WithLabelValues("unknown", ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(tipsEmitted.WithLabelValues("dragon_prep", "warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tipsThrottled.WithLabelValues("dragon_prep")))
	assert.Equal(t, 1.0, testutil.ToFloat64(clockResets))
	assert.Equal(t, 4.0, testutil.ToFloat64(rulesLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(ruleReloads.WithLabelValues(ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(streamSubscribers.WithLabelValues("sse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sinkErrors.WithLabelValues("redis")))
}
