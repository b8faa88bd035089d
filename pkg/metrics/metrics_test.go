package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersRegisterAndCount(t *testing.T) {
	before := testutil.ToFloat64(PDUsGenerated)
	PDUsGenerated.Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(PDUsGenerated))
}

func TestSessionsGauge(t *testing.T) {
	before := testutil.ToFloat64(SessionsActive)
	SessionsActive.Inc()
	SessionsActive.Dec()
	assert.Equal(t, before, testutil.ToFloat64(SessionsActive))
}
