package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"gapdash/internal/binding"
	"gapdash/internal/charts"
	"gapdash/internal/controls"
	"gapdash/internal/engine/enginetest"
	"gapdash/internal/export"
	"gapdash/internal/metrics"
	"gapdash/internal/models"
)

type HandlerSuite struct {
	suite.Suite
	server *echo.Echo
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ds := enginetest.Dataset(s.T())
	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	graph, err := binding.NewGraph(ds, binding.Bindings(), metrics.New(reg), logger)
	s.Require().NoError(err)

	s.server = NewServer(NewHandler(graph, logger), ServerOptions{
		Logger:   logger,
		Gatherer: reg,
	})
}

func (s *HandlerSuite) do(method, target string, body string, header ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type figuresBody struct {
	Figures map[binding.ChartID]charts.Figure `json:"figures"`
}

func (s *HandlerSuite) TestIndexAndHealth() {
	rec := s.do(http.MethodGet, "/", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get(echo.HeaderContentType), "text/html")
	s.Contains(rec.Body.String(), "Gapminder Dashboard")

	rec = s.do(http.MethodGet, "/healthz", "")
	s.Equal(http.StatusOK, rec.Code)
	var health struct {
		Status string `json:"status"`
		Rows   int    `json:"rows"`
	}
	s.decode(rec, &health)
	s.Equal("ok", health.Status)
	s.Equal(10, health.Rows)
	s.NotEmpty(rec.Header().Get(echo.HeaderXRequestID))
}

func (s *HandlerSuite) TestIndexScatterRendering() {
	page := s.do(http.MethodGet, "/", "").Body.String()

	// Bubble areas share one scale across every country's trace.
	s.Contains(page, "const sizeref = 2 * largest / (60 * 60);")
	s.Contains(page, "sizeref: sizeref")
	s.NotContains(page, "...s.points.map(p => p.size")

	// Multi-selects send values in click order, not option order.
	s.Contains(page, "order = clickOrder(order, el);")
	s.NotContains(page, "return Array.from(el.selectedOptions).map(o => o.value);")
}

func (s *HandlerSuite) TestControls() {
	rec := s.do(http.MethodGet, "/api/controls", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Controls []controls.Control                 `json:"controls"`
		Charts   map[binding.ChartID][]controls.Key `json:"charts"`
	}
	s.decode(rec, &body)
	s.Len(body.Controls, len(controls.Keys))
	s.Equal(controls.Countries, body.Controls[0].Key)
	s.Len(body.Controls[0].Options, 7)
	s.Equal([]controls.Key{controls.Year}, body.Charts[binding.PieChart])
}

func (s *HandlerSuite) TestChart() {
	s.Run("bar chart for a year", func() {
		rec := s.do(http.MethodGet, "/api/charts/top-population?year=2007&measure=lifeExp", "")
		s.Require().Equal(http.StatusOK, rec.Code)

		var fig charts.Figure
		s.decode(rec, &fig)
		s.Equal(charts.Bar, fig.Type)
		s.Require().Len(fig.Series, 1)
		s.Len(fig.Series[0].Points, 7)
		s.Equal("Japan", fig.Series[0].Points[0].Label)
	})

	s.Run("unknown chart is 404", func() {
		rec := s.do(http.MethodGet, "/api/charts/histogram", "")
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("unknown measure is 400", func() {
		rec := s.do(http.MethodGet, "/api/charts/graph-content?measure=height", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("non-integer year is 400", func() {
		rec := s.do(http.MethodGet, "/api/charts/pie-chart?year=latest", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("single scatter measure gives an empty figure", func() {
		rec := s.do(http.MethodGet, "/api/charts/bubble-chart?scatter-measures=pop", "")
		s.Require().Equal(http.StatusOK, rec.Code)
		var fig charts.Figure
		s.decode(rec, &fig)
		s.True(fig.Empty)
	})
}

func (s *HandlerSuite) TestDashboard() {
	rec := s.do(http.MethodGet, "/api/dashboard", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body figuresBody
	s.decode(rec, &body)
	s.Len(body.Figures, 4)
	s.Equal("Canada", body.Figures[binding.LineChart].Series[0].Name)
}

func (s *HandlerSuite) TestUpdate() {
	s.Run("only affected charts are returned", func() {
		rec := s.do(http.MethodPost, "/api/update",
			`{"state":{"population_min":30000000,"population_max":90000000},"changed":["population-min"]}`)
		s.Require().Equal(http.StatusOK, rec.Code)

		var body figuresBody
		s.decode(rec, &body)
		s.Require().Len(body.Figures, 1)
		fig := body.Figures[binding.BubbleChart]
		var n int
		for _, series := range fig.Series {
			n += len(series.Points)
		}
		// Canada, France, Germany and Kenya fall inside the bounds.
		s.Equal(4, n)
	})

	s.Run("year refreshes three charts", func() {
		rec := s.do(http.MethodPost, "/api/update", `{"state":{"year":2002},"changed":["year"]}`)
		s.Require().Equal(http.StatusOK, rec.Code)

		var body figuresBody
		s.decode(rec, &body)
		s.Len(body.Figures, 3)
		s.NotContains(body.Figures, binding.LineChart)
	})

	s.Run("scatter pair keeps the order it was sent in", func() {
		rec := s.do(http.MethodPost, "/api/update",
			`{"state":{"scatter_measures":["gdpPercap","lifeExp"]},"changed":["scatter-measures"]}`)
		s.Require().Equal(http.StatusOK, rec.Code)

		var body figuresBody
		s.decode(rec, &body)
		fig := body.Figures[binding.BubbleChart]
		s.Equal("gdpPercap", fig.XAxis)
		s.Equal("lifeExp", fig.YAxis)
	})

	s.Run("unknown changed key is 400", func() {
		rec := s.do(http.MethodPost, "/api/update", `{"changed":["colour"]}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("malformed body is 400", func() {
		rec := s.do(http.MethodPost, "/api/update", `{"state":`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("invalid measure is 400", func() {
		rec := s.do(http.MethodPost, "/api/update", `{"state":{"measure":"height"}}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestTables() {
	s.Run("json", func() {
		rec := s.do(http.MethodGet, "/api/tables/pie-chart?year=2007", "")
		s.Require().Equal(http.StatusOK, rec.Code)

		var pie models.PieTable
		s.decode(rec, &pie)
		s.Len(pie.Slices, 4)
		s.Equal(enginetest.Population2007, pie.Total())
	})

	s.Run("arrow stream", func() {
		rec := s.do(http.MethodGet, "/api/tables/top-population?year=2007&measure=pop", "",
			echo.HeaderAccept, export.ContentType)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal(export.ContentType, rec.Header().Get(echo.HeaderContentType))

		rdr, err := ipc.NewReader(bytes.NewReader(rec.Body.Bytes()))
		s.Require().NoError(err)
		defer rdr.Release()

		s.Require().True(rdr.Next())
		r := rdr.Record()
		s.Equal(int64(7), r.NumRows())
		s.Equal("Japan", r.Column(0).(*array.String).Value(0))
	})

	s.Run("unknown table is 404", func() {
		rec := s.do(http.MethodGet, "/api/tables/histogram", "")
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) TestMetricsEndpoint() {
	s.do(http.MethodGet, "/api/dashboard", "")

	rec := s.do(http.MethodGet, "/metrics", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `gapdash_derivations_total{chart="pie-chart"} 1`)
}

func TestRateLimiter(t *testing.T) {
	ds := enginetest.Dataset(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	graph, err := binding.NewGraph(ds, binding.Bindings(), nil, logger)
	require.NoError(t, err)

	e := NewServer(NewHandler(graph, logger), ServerOptions{
		Logger:    logger,
		RateLimit: 1,
		Gatherer:  prometheus.NewRegistry(),
	})

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes[1:], http.StatusTooManyRequests)
}
