// Package charts turns derived tables into render-ready figure descriptions.
// Drawing happens client side; a Figure only says what to plot.
package charts

import (
	"gapdash/internal/models"
)

type Type string

const (
	Line    Type = "line"
	Bar     Type = "bar"
	Scatter Type = "scatter"
	Pie     Type = "pie"
)

// Figure describes one chart.
type Figure struct {
	Type       Type     `json:"type"`
	Title      string   `json:"title"`
	XAxis      string   `json:"xAxis,omitempty"`
	YAxis      string   `json:"yAxis,omitempty"`
	Series     []Series `json:"series"`
	Colors     []string `json:"colors,omitempty"`
	ShowLegend bool     `json:"showLegend"`
	// Empty figures render as a blank chart area.
	Empty bool `json:"empty"`
}

// Series is a named run of points. For bar and pie charts Label carries the
// category; for line and scatter charts X/Y are the coordinates.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
	Color  string  `json:"color,omitempty"`
}

type Point struct {
	Label string  `json:"label,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size,omitempty"`
	Text  string  `json:"text,omitempty"`
}

var defaultColors = []string{
	"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A",
	"#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

// LineFigure draws one series per country, x = year.
func LineFigure(t models.LineTable) Figure {
	f := Figure{
		Type:       Line,
		Title:      t.Measure.Label() + " by year",
		XAxis:      "Year",
		YAxis:      t.Measure.Label(),
		Series:     make([]Series, 0),
		ShowLegend: true,
	}
	for _, r := range t.Rows {
		n := len(f.Series)
		if n == 0 || f.Series[n-1].Name != r.Country {
			f.Series = append(f.Series, Series{Name: r.Country, Color: color(n)})
			n++
		}
		f.Series[n-1].Points = append(f.Series[n-1].Points, Point{X: float64(r.Year), Y: r.Value})
	}
	f.Colors = assignColors(len(f.Series))
	f.Empty = len(f.Series) == 0
	return f
}

// BarFigure draws the top countries as a single series.
func BarFigure(t models.BarTable) Figure {
	points := make([]Point, 0, len(t.Rows))
	for i, r := range t.Rows {
		points = append(points, Point{Label: r.Country, X: float64(i), Y: r.Value})
	}
	return Figure{
		Type:   Bar,
		Title:  "Top countries: " + t.Measure.Label(),
		XAxis:  "Country",
		YAxis:  t.Measure.Label(),
		Series: []Series{{Name: t.Measure.Label(), Points: points, Color: color(0)}},
		Colors: assignColors(1),
		Empty:  len(points) == 0,
	}
}

// ScatterFigure draws one series per country; marker size is population.
func ScatterFigure(t models.ScatterTable) Figure {
	if t.Empty {
		return Figure{Type: Scatter, Series: make([]Series, 0), Empty: true}
	}
	f := Figure{
		Type:       Scatter,
		Title:      t.Y.Label() + " vs " + t.X.Label(),
		XAxis:      string(t.X),
		YAxis:      string(t.Y),
		Series:     make([]Series, 0, len(t.Rows)),
		ShowLegend: true,
	}
	index := make(map[string]int)
	for _, r := range t.Rows {
		i, ok := index[r.Country]
		if !ok {
			i = len(f.Series)
			index[r.Country] = i
			f.Series = append(f.Series, Series{Name: r.Country, Color: color(i)})
		}
		f.Series[i].Points = append(f.Series[i].Points, Point{
			X:    r.X,
			Y:    r.Y,
			Size: float64(r.Population),
			Text: r.Country,
		})
	}
	f.Colors = assignColors(len(f.Series))
	return f
}

// PieFigure draws one slice per continent. Percentages are left to the client.
func PieFigure(t models.PieTable) Figure {
	points := make([]Point, 0, len(t.Slices))
	for i, s := range t.Slices {
		points = append(points, Point{Label: s.Continent, X: float64(i), Y: float64(s.Population)})
	}
	return Figure{
		Type:       Pie,
		Title:      "Population by continent",
		Series:     []Series{{Name: "Population", Points: points}},
		Colors:     assignColors(len(points)),
		ShowLegend: true,
		Empty:      len(points) == 0,
	}
}

func color(i int) string {
	return defaultColors[i%len(defaultColors)]
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := range colors {
		colors[i] = color(i)
	}
	return colors
}
