// Package binding wires controls to charts. Each Binding declares the control
// keys it reads and the chart it updates; a Graph re-runs only the bindings
// affected by a change.
package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"gapdash/internal/charts"
	"gapdash/internal/controls"
	"gapdash/internal/engine"
	"gapdash/internal/metrics"
	"gapdash/internal/models"
)

// ErrUnknownChart reports a chart ID with no binding.
var ErrUnknownChart = errors.New("unknown chart")

// ChartID names a chart output.
type ChartID string

const (
	LineChart   ChartID = "graph-content"
	BarChart    ChartID = "top-population"
	BubbleChart ChartID = "bubble-chart"
	PieChart    ChartID = "pie-chart"
)

// Binding is one declared input -> output dependency.
type Binding struct {
	Output ChartID
	Inputs []controls.Key
	Derive func(ds *engine.Dataset, s controls.State) models.Table
	Render func(t models.Table) charts.Figure
}

// Result is what one binding produced.
type Result struct {
	Chart  ChartID       `json:"chart"`
	Table  models.Table  `json:"table"`
	Figure charts.Figure `json:"figure"`
}

// Bindings returns the dashboard's static dependency graph, in layout order.
func Bindings() []Binding {
	return []Binding{
		{
			Output: LineChart,
			Inputs: []controls.Key{controls.Countries, controls.Measure},
			Derive: func(ds *engine.Dataset, s controls.State) models.Table {
				return engine.LineSeries(ds, s.Countries, s.Measure)
			},
			Render: func(t models.Table) charts.Figure { return charts.LineFigure(t.(models.LineTable)) },
		},
		{
			Output: BarChart,
			Inputs: []controls.Key{controls.Measure, controls.Year},
			Derive: func(ds *engine.Dataset, s controls.State) models.Table {
				return engine.TopCountries(ds, s.Measure, s.Year, engine.TopN)
			},
			Render: func(t models.Table) charts.Figure { return charts.BarFigure(t.(models.BarTable)) },
		},
		{
			Output: BubbleChart,
			Inputs: []controls.Key{controls.ScatterMeasures, controls.Year, controls.PopulationMin, controls.PopulationMax},
			Derive: func(ds *engine.Dataset, s controls.State) models.Table {
				return engine.Scatter(ds, engine.ScatterQuery{
					Measures:      s.ScatterMeasures,
					Year:          s.Year,
					PopulationMin: s.PopulationMin.Ptr(),
					PopulationMax: s.PopulationMax.Ptr(),
				})
			},
			Render: func(t models.Table) charts.Figure { return charts.ScatterFigure(t.(models.ScatterTable)) },
		},
		{
			Output: PieChart,
			Inputs: []controls.Key{controls.Year},
			Derive: func(ds *engine.Dataset, s controls.State) models.Table {
				return engine.ContinentPopulation(ds, s.Year)
			},
			Render: func(t models.Table) charts.Figure { return charts.PieFigure(t.(models.PieTable)) },
		},
	}
}

// Graph dispatches state changes to the bindings that depend on them. It only
// reads the dataset, so one Graph serves every client concurrently.
type Graph struct {
	ds       *engine.Dataset
	bindings []Binding
	byOutput map[ChartID]int
	byInput  map[controls.Key][]ChartID
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewGraph(ds *engine.Dataset, bindings []Binding, m *metrics.Metrics, logger *slog.Logger) (*Graph, error) {
	g := &Graph{
		ds:       ds,
		bindings: bindings,
		byOutput: make(map[ChartID]int, len(bindings)),
		byInput:  make(map[controls.Key][]ChartID),
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("gapdash/binding"),
	}
	for i, b := range bindings {
		if _, dup := g.byOutput[b.Output]; dup {
			return nil, fmt.Errorf("chart %q is bound twice", b.Output)
		}
		g.byOutput[b.Output] = i
		for _, k := range b.Inputs {
			if _, err := controls.ParseKey(string(k)); err != nil {
				return nil, fmt.Errorf("chart %q: %w", b.Output, err)
			}
			g.byInput[k] = append(g.byInput[k], b.Output)
		}
	}
	return g, nil
}

func (g *Graph) Dataset() *engine.Dataset { return g.ds }

// Charts lists every output in layout order.
func (g *Graph) Charts() []ChartID {
	ids := make([]ChartID, len(g.bindings))
	for i, b := range g.bindings {
		ids[i] = b.Output
	}
	return ids
}

// Inputs returns the control keys chart depends on.
func (g *Graph) Inputs(chart ChartID) ([]controls.Key, error) {
	i, ok := g.byOutput[chart]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, chart)
	}
	return slices.Clone(g.bindings[i].Inputs), nil
}

// Affected lists, in layout order, the charts depending on any changed key.
// No changed keys means everything is stale, as on first load.
func (g *Graph) Affected(changed ...controls.Key) []ChartID {
	if len(changed) == 0 {
		return g.Charts()
	}
	hit := make(map[ChartID]bool)
	for _, k := range changed {
		for _, id := range g.byInput[k] {
			hit[id] = true
		}
	}
	out := make([]ChartID, 0, len(hit))
	for _, b := range g.bindings {
		if hit[b.Output] {
			out = append(out, b.Output)
		}
	}
	return out
}

// Run derives and renders a single chart.
func (g *Graph) Run(ctx context.Context, chart ChartID, s controls.State) (Result, error) {
	i, ok := g.byOutput[chart]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownChart, chart)
	}
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	return g.run(ctx, g.bindings[i], s), nil
}

// Dispatch validates s and re-runs every chart affected by changed. The
// affected bindings run concurrently against the shared dataset.
func (g *Graph) Dispatch(ctx context.Context, s controls.State, changed ...controls.Key) ([]Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if !g.ds.HasYear(s.Year) {
		g.logger.DebugContext(ctx, "year not in dataset", "year", s.Year)
	}

	ids := g.Affected(changed...)
	results := make([]Result, len(ids))
	eg, ctx := errgroup.WithContext(ctx)
	for n, id := range ids {
		n := n
		b := g.bindings[g.byOutput[id]]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[n] = g.run(ctx, b, s)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Graph) run(ctx context.Context, b Binding, s controls.State) Result {
	_, span := g.tracer.Start(ctx, "derive "+string(b.Output),
		trace.WithAttributes(
			attribute.String("chart", string(b.Output)),
			attribute.Int("year", s.Year),
		))
	defer span.End()

	start := time.Now()
	table := b.Derive(g.ds, s)
	fig := b.Render(table)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Int("rows", table.Len()),
		attribute.Bool("empty", fig.Empty),
	)
	if g.metrics != nil {
		g.metrics.ObserveDerivation(string(b.Output), table.Len(), elapsed)
	}
	g.logger.DebugContext(ctx, "chart derived",
		"chart", b.Output,
		"rows", table.Len(),
		"elapsed", elapsed,
	)
	return Result{Chart: b.Output, Table: table, Figure: fig}
}
