package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/dmx"
)

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewEngineMetrics(reg)
	require.NoError(t, err)

	m.StageChanged(controller.StageDraining)
	m.FrameSent(controller.StageRunning, 20*time.Millisecond)
	m.FrameSent(controller.StageRunning, 21*time.Millisecond)
	m.FrameSent(controller.StageDraining, 20*time.Millisecond)
	m.TickOverrun(3 * time.Millisecond)
	m.TransmitFailed(dmx.TransmitError("write", errors.New("gone")))
	m.TransmitFailed(errors.New("unclassified"))
	m.IntentApplied("http", nil)
	m.IntentApplied("http", errors.New("bad"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageGauge))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("draining")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TickOverruns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransmitErrors.WithLabelValues("transmit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransmitErrors.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntentsTotal.WithLabelValues("http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntentsRejected.WithLabelValues("http")))
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewEngineMetrics(reg)
	require.NoError(t, err)
	_, err = NewEngineMetrics(reg)
	assert.Error(t, err)
}
