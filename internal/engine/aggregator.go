package engine

import (
	"math"
	"sort"

	"gapdash/internal/models"
)

// TopN is how many countries the bar chart shows.
const TopN = 15

// LineSeries returns the rows of the selected countries for measure m. Rows are
// grouped by country in dataset order and sorted by year within a country.
// Unknown countries contribute nothing; missing values are left out.
func LineSeries(ds *Dataset, countries []string, m models.Measure) models.LineTable {
	table := models.LineTable{Measure: m, Rows: make([]models.LineRow, 0)}
	if len(countries) == 0 {
		return table
	}

	selected := make([]bool, len(ds.countryDict))
	for _, c := range countries {
		if id, ok := ds.countryIndex[c]; ok {
			selected[id] = true
		}
	}

	rows := make([]int, 0)
	for i, cid := range ds.countryIDs {
		if selected[cid] {
			rows = append(rows, i)
		}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		ca, cb := ds.countryIDs[rows[a]], ds.countryIDs[rows[b]]
		if ca != cb {
			return ca < cb
		}
		return ds.years[rows[a]] < ds.years[rows[b]]
	})

	for _, i := range rows {
		v := ds.Value(i, m)
		if math.IsNaN(v) {
			continue
		}
		table.Rows = append(table.Rows, models.LineRow{
			Country: ds.Country(i),
			Year:    ds.Year(i),
			Value:   v,
		})
	}
	return table
}

// TopCountries sums measure m per country for year and keeps the n largest.
// Groups are formed in country-name order; equal sums keep that order.
func TopCountries(ds *Dataset, m models.Measure, year int, n int) models.BarTable {
	table := models.BarTable{Measure: m, Year: year, Rows: make([]models.BarRow, 0)}

	// Array indexing by country ID instead of a map.
	sums := make([]float64, len(ds.countryDict))
	seen := make([]bool, len(ds.countryDict))
	for i, y := range ds.years {
		if int(y) != year {
			continue
		}
		cid := ds.countryIDs[i]
		seen[cid] = true
		if v := ds.Value(i, m); !math.IsNaN(v) {
			sums[cid] += v
		}
	}

	for _, cid := range ds.countryOrder {
		if seen[cid] {
			table.Rows = append(table.Rows, models.BarRow{Country: ds.countryDict[cid], Value: sums[cid]})
		}
	}
	sort.SliceStable(table.Rows, func(i, j int) bool { return table.Rows[i].Value > table.Rows[j].Value })
	if n >= 0 && len(table.Rows) > n {
		table.Rows = table.Rows[:n]
	}
	return table
}

// ScatterQuery selects the bubble chart data. Measures[0] is the x axis and
// Measures[1] the y axis; nil bounds fall back to the dataset-wide range.
type ScatterQuery struct {
	Measures      []models.Measure
	Year          int
	PopulationMin *int64
	PopulationMax *int64
}

// Scatter returns one point per row of the year whose population lies inside
// the bounds. With fewer than two measures the result is empty. Rows missing
// either axis value cannot be placed and are skipped.
func Scatter(ds *Dataset, q ScatterQuery) models.ScatterTable {
	table := models.ScatterTable{Year: q.Year, Rows: make([]models.ScatterRow, 0)}
	if len(q.Measures) < 2 {
		table.Empty = true
		return table
	}

	lo, hi := ds.PopulationRange()
	if q.PopulationMin != nil {
		lo = *q.PopulationMin
	}
	if q.PopulationMax != nil {
		hi = *q.PopulationMax
	}
	table.X, table.Y = q.Measures[0], q.Measures[1]
	table.PopulationMin, table.PopulationMax = lo, hi

	for i, yr := range ds.years {
		if int(yr) != q.Year {
			continue
		}
		pop := ds.pops[i]
		if pop < lo || pop > hi {
			continue
		}
		x, y := ds.Value(i, table.X), ds.Value(i, table.Y)
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		table.Rows = append(table.Rows, models.ScatterRow{
			Country:    ds.Country(i),
			Continent:  ds.Continent(i),
			X:          x,
			Y:          y,
			Population: pop,
		})
	}
	return table
}

// ContinentPopulation sums population per continent for year, continents in
// name order. Continents without rows in that year are left out.
func ContinentPopulation(ds *Dataset, year int) models.PieTable {
	table := models.PieTable{Year: year, Slices: make([]models.PieSlice, 0)}

	sums := make([]int64, len(ds.continentDict))
	seen := make([]bool, len(ds.continentDict))
	for i, y := range ds.years {
		if int(y) != year {
			continue
		}
		cid := ds.continentIDs[i]
		sums[cid] += ds.pops[i]
		seen[cid] = true
	}

	for _, cid := range ds.continentOrder {
		if seen[cid] {
			table.Slices = append(table.Slices, models.PieSlice{Continent: ds.continentDict[cid], Population: sums[cid]})
		}
	}
	return table
}
