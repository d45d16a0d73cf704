package binding

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"gapdash/internal/controls"
	"gapdash/internal/engine/enginetest"
	"gapdash/internal/metrics"
	"gapdash/internal/models"
)

type GraphSuite struct {
	suite.Suite
	graph   *Graph
	metrics *metrics.Metrics
	state   controls.State
	ctx     context.Context
}

func TestGraphSuite(t *testing.T) {
	suite.Run(t, new(GraphSuite))
}

func (s *GraphSuite) SetupTest() {
	ds := enginetest.Dataset(s.T())
	s.metrics = metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	g, err := NewGraph(ds, Bindings(), s.metrics, logger)
	s.Require().NoError(err)
	s.graph = g
	s.state = controls.Defaults(ds)
	s.ctx = context.Background()
}

func (s *GraphSuite) TestAffected() {
	s.Run("no change means everything", func() {
		s.Equal([]ChartID{LineChart, BarChart, BubbleChart, PieChart}, s.graph.Affected())
	})

	s.Run("year drives bar, bubble and pie", func() {
		s.Equal([]ChartID{BarChart, BubbleChart, PieChart}, s.graph.Affected(controls.Year))
	})

	s.Run("measure drives line and bar", func() {
		s.Equal([]ChartID{LineChart, BarChart}, s.graph.Affected(controls.Measure))
	})

	s.Run("population bounds drive only the bubble chart", func() {
		s.Equal([]ChartID{BubbleChart}, s.graph.Affected(controls.PopulationMin))
		s.Equal([]ChartID{BubbleChart}, s.graph.Affected(controls.PopulationMax, controls.ScatterMeasures))
	})

	s.Run("countries drive only the line chart", func() {
		s.Equal([]ChartID{LineChart}, s.graph.Affected(controls.Countries))
	})
}

func (s *GraphSuite) TestInputs() {
	inputs, err := s.graph.Inputs(PieChart)
	s.Require().NoError(err)
	s.Equal([]controls.Key{controls.Year}, inputs)

	_, err = s.graph.Inputs("map-chart")
	s.ErrorIs(err, ErrUnknownChart)
}

func (s *GraphSuite) TestDispatchRunsOnlyAffected() {
	results, err := s.graph.Dispatch(s.ctx, s.state, controls.Countries)
	s.Require().NoError(err)
	s.Require().Len(results, 1)

	line := results[0]
	s.Equal(LineChart, line.Chart)
	table, ok := line.Table.(models.LineTable)
	s.Require().True(ok)
	s.Len(table.Rows, 3)
	s.Require().Len(line.Figure.Series, 1)
	s.Equal("Canada", line.Figure.Series[0].Name)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Derivations.WithLabelValues(string(LineChart))))
	s.Equal(0.0, testutil.ToFloat64(s.metrics.Derivations.WithLabelValues(string(PieChart))))
}

func (s *GraphSuite) TestDispatchAll() {
	results, err := s.graph.Dispatch(s.ctx, s.state)
	s.Require().NoError(err)
	s.Require().Len(results, 4)

	for i, id := range s.graph.Charts() {
		s.Equal(id, results[i].Chart)
	}
	pie := results[3].Table.(models.PieTable)
	s.Equal(enginetest.Population2007, pie.Total())
}

func (s *GraphSuite) TestDispatchEmptyScatter() {
	st := s.state
	st.ScatterMeasures = []models.Measure{models.Pop}

	results, err := s.graph.Dispatch(s.ctx, st, controls.ScatterMeasures)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.True(results[0].Figure.Empty)
}

func (s *GraphSuite) TestDispatchFractionalMaxKeepsNoRows() {
	st := s.state
	st.PopulationMax = controls.ParseBound("0.5")

	results, err := s.graph.Dispatch(s.ctx, st, controls.PopulationMax)
	s.Require().NoError(err)
	s.Require().Len(results, 1)

	table := results[0].Table.(models.ScatterTable)
	s.False(table.Empty)
	s.Equal(int64(0), table.PopulationMax)
	s.Empty(table.Rows)
}

func (s *GraphSuite) TestDispatchRejectsInvalidState() {
	st := s.state
	st.Measure = "happiness"

	_, err := s.graph.Dispatch(s.ctx, st)
	s.ErrorIs(err, controls.ErrInvalidControl)

	_, err = s.graph.Run(s.ctx, BarChart, st)
	s.ErrorIs(err, controls.ErrInvalidControl)
}

func (s *GraphSuite) TestDispatchCancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.graph.Dispatch(ctx, s.state)
	s.ErrorIs(err, context.Canceled)
}

func (s *GraphSuite) TestRun() {
	res, err := s.graph.Run(s.ctx, BarChart, s.state)
	s.Require().NoError(err)
	s.Equal(BarChart, res.Chart)
	s.Equal("Japan", res.Figure.Series[0].Points[0].Label)

	_, err = s.graph.Run(s.ctx, "map-chart", s.state)
	s.ErrorIs(err, ErrUnknownChart)
}

func TestNewGraphRejectsBadBindings(t *testing.T) {
	ds := enginetest.Dataset(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dup := append(Bindings(), Bindings()[0])
	_, err := NewGraph(ds, dup, nil, logger)
	assert.Error(t, err)

	bad := Bindings()
	bad[0].Inputs = []controls.Key{"colour"}
	_, err = NewGraph(ds, bad, nil, logger)
	require.Error(t, err)
	assert.ErrorIs(t, err, controls.ErrInvalidControl)
}
