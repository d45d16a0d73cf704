package api

import (
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"gapdash/internal/binding"
	"gapdash/internal/charts"
	"gapdash/internal/controls"
	"gapdash/internal/export"
)

//go:embed static/index.html
var indexHTML []byte

// Handler serves the dashboard page and its JSON API.
type Handler struct {
	graph  *binding.Graph
	logger *slog.Logger
}

func NewHandler(graph *binding.Graph, logger *slog.Logger) *Handler {
	return &Handler{graph: graph, logger: logger}
}

// RegisterRoutes mounts the page, the health check and the /api group on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.GetIndex)
	e.GET("/healthz", h.GetHealth)

	api := e.Group("/api")
	api.GET("/controls", h.GetControls)
	api.GET("/charts/:id", h.GetChart)
	api.GET("/dashboard", h.GetDashboard)
	api.POST("/update", h.PostUpdate)
	api.GET("/tables/:id", h.GetTable)
}

// UpdateRequest carries the full control state plus the keys that changed.
// An empty Changed list refreshes every chart.
type UpdateRequest struct {
	State   controls.State `json:"state"`
	Changed []string       `json:"changed"`
}

// FiguresResponse maps each re-derived chart to its figure.
type FiguresResponse struct {
	State   controls.State                    `json:"state"`
	Figures map[binding.ChartID]charts.Figure `json:"figures"`
}

func (h *Handler) GetIndex(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMETextHTMLCharsetUTF8, indexHTML)
}

func (h *Handler) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rows":   h.graph.Dataset().Len(),
	})
}

// GetControls returns the control definitions, with options drawn from the
// dataset, and the inputs each chart depends on.
func (h *Handler) GetControls(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"controls": controls.Config(h.graph.Dataset()),
		"charts":   h.chartInputs(),
	})
}

func (h *Handler) chartInputs() map[binding.ChartID][]controls.Key {
	out := make(map[binding.ChartID][]controls.Key)
	for _, id := range h.graph.Charts() {
		inputs, _ := h.graph.Inputs(id)
		out[id] = inputs
	}
	return out
}

func (h *Handler) GetChart(c echo.Context) error {
	state, err := h.stateFromQuery(c)
	if err != nil {
		return err
	}
	res, err := h.graph.Run(c.Request().Context(), binding.ChartID(c.Param("id")), state)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, res.Figure)
}

// GetDashboard renders all four charts for the state in the query string.
func (h *Handler) GetDashboard(c echo.Context) error {
	state, err := h.stateFromQuery(c)
	if err != nil {
		return err
	}
	return h.dispatch(c, state)
}

// PostUpdate re-derives only the charts that depend on the changed controls.
func (h *Handler) PostUpdate(c echo.Context) error {
	req := UpdateRequest{State: controls.Defaults(h.graph.Dataset())}
	if err := c.Bind(&req); err != nil {
		return err
	}

	changed := make([]controls.Key, 0, len(req.Changed))
	for _, s := range req.Changed {
		k, err := controls.ParseKey(s)
		if err != nil {
			return toHTTPError(err)
		}
		changed = append(changed, k)
	}
	return h.dispatch(c, req.State, changed...)
}

func (h *Handler) dispatch(c echo.Context, state controls.State, changed ...controls.Key) error {
	results, err := h.graph.Dispatch(c.Request().Context(), state, changed...)
	if err != nil {
		return toHTTPError(err)
	}
	resp := FiguresResponse{State: state, Figures: make(map[binding.ChartID]charts.Figure, len(results))}
	for _, r := range results {
		resp.Figures[r.Chart] = r.Figure
	}
	return c.JSON(http.StatusOK, resp)
}

// GetTable returns a chart's derived table as JSON, or as an Arrow IPC stream
// when the Accept header asks for one.
func (h *Handler) GetTable(c echo.Context) error {
	state, err := h.stateFromQuery(c)
	if err != nil {
		return err
	}
	res, err := h.graph.Run(c.Request().Context(), binding.ChartID(c.Param("id")), state)
	if err != nil {
		return toHTTPError(err)
	}

	if !strings.Contains(c.Request().Header.Get(echo.HeaderAccept), export.ContentType) {
		return c.JSON(http.StatusOK, res.Table)
	}
	c.Response().Header().Set(echo.HeaderContentType, export.ContentType)
	c.Response().WriteHeader(http.StatusOK)
	if err := export.WriteIPC(c.Response(), res.Table); err != nil {
		// Headers are already sent; all we can do is log.
		h.logger.ErrorContext(c.Request().Context(), "arrow export failed",
			"chart", res.Chart,
			"error", err,
		)
	}
	return nil
}

func (h *Handler) stateFromQuery(c echo.Context) (controls.State, error) {
	state, err := controls.FromQuery(c.QueryParams(), controls.Defaults(h.graph.Dataset()))
	if err != nil {
		return controls.State{}, toHTTPError(err)
	}
	return state, nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, controls.ErrInvalidControl):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, binding.ErrUnknownChart):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	}
	return err
}
