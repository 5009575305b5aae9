package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEventQueueDepth(t *testing.T) {
	SetEventQueueDepth(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(eventQueueDepth))
	SetEventQueueDepth(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(eventQueueDepth))
}

func TestConnectAttempts(t *testing.T) {
	before := testutil.ToFloat64(connectAttempts.WithLabelValues("failure"))
	IncConnectAttempt("failure")
	assert.Equal(t, before+1, testutil.ToFloat64(connectAttempts.WithLabelValues("failure")))
}

func TestObserveSync(t *testing.T) {
	ObserveSync("chain", time.Now(), errors.New("down"))
	ObserveSync("chain", time.Now(), nil)
	assert.Equal(t, 2, testutil.CollectAndCount(syncDuration, "litnode_sync_duration_seconds"))
}

func TestSetRunning(t *testing.T) {
	SetRunning(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(nodeRunning))
	SetRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(nodeRunning))
}
