package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDerivation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDerivation("pie-chart", 4, time.Millisecond)
	m.ObserveDerivation("pie-chart", 5, time.Millisecond)
	m.ObserveDerivation("bubble-chart", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Derivations.WithLabelValues("pie-chart")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Derivations.WithLabelValues("bubble-chart")))
}

func TestSetDatasetRows(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetDatasetRows(3313)
	assert.Equal(t, 3313.0, testutil.ToFloat64(m.DatasetRows))
}
