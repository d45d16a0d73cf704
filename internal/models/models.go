package models

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Measure names one numeric column of the dataset.
type Measure string

const (
	LifeExp   Measure = "lifeExp"
	Pop       Measure = "pop"
	GDPPercap Measure = "gdpPercap"
)

// Measures lists every measure in display order.
var Measures = []Measure{LifeExp, Pop, GDPPercap}

func (m Measure) Valid() bool {
	switch m {
	case LifeExp, Pop, GDPPercap:
		return true
	}
	return false
}

// Label is the human readable name shown next to the measure.
func (m Measure) Label() string {
	switch m {
	case LifeExp:
		return "Life expectancy"
	case Pop:
		return "Population"
	case GDPPercap:
		return "GDP per capita"
	}
	return string(m)
}

func ParseMeasure(s string) (Measure, error) {
	m := Measure(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown measure %q", s)
	}
	return m, nil
}

// Table is any derived table produced for one chart.
type Table interface {
	Len() int
}

type LineRow struct {
	Country string  `json:"country"`
	Year    int     `json:"year"`
	Value   float64 `json:"value"`
}

// LineTable holds rows grouped by country (first-seen order) and sorted by year
// within each country.
type LineTable struct {
	Measure Measure   `json:"measure"`
	Rows    []LineRow `json:"rows"`
}

func (t LineTable) Len() int { return len(t.Rows) }

type BarRow struct {
	Country string  `json:"country"`
	Value   float64 `json:"value"`
}

type BarTable struct {
	Measure Measure  `json:"measure"`
	Year    int      `json:"year"`
	Rows    []BarRow `json:"rows"`
}

func (t BarTable) Len() int { return len(t.Rows) }

type ScatterRow struct {
	Country    string  `json:"country"`
	Continent  string  `json:"continent"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Population int64   `json:"pop"`
}

// ScatterTable is empty (Empty=true, no axes) when fewer than two measures were
// selected.
type ScatterTable struct {
	Empty         bool         `json:"empty"`
	X             Measure      `json:"x,omitempty"`
	Y             Measure      `json:"y,omitempty"`
	Year          int          `json:"year"`
	PopulationMin int64        `json:"population_min"`
	PopulationMax int64        `json:"population_max"`
	Rows          []ScatterRow `json:"rows"`
}

func (t ScatterTable) Len() int { return len(t.Rows) }

type PieSlice struct {
	Continent  string `json:"continent"`
	Population int64  `json:"pop"`
}

type PieTable struct {
	Year   int        `json:"year"`
	Slices []PieSlice `json:"slices"`
}

func (t PieTable) Len() int { return len(t.Slices) }

// Total is the sum of all slice values.
func (t PieTable) Total() int64 {
	vals := make([]int64, len(t.Slices))
	for i, s := range t.Slices {
		vals[i] = s.Population
	}
	return Sum(vals)
}

func Sum[T constraints.Integer | constraints.Float](vals []T) T {
	var total T
	for _, v := range vals {
		total += v
	}
	return total
}
