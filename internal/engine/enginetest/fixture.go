// Package enginetest provides a small gapminder-shaped dataset for tests.
package enginetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gapdash/internal/engine"
)

// CSV is the fixture in the dataset's file format.
const CSV = `country,continent,year,lifeExp,pop,gdpPercap
Canada,Americas,1952,68.75,14785584,11367.16
Canada,Americas,2007,80.653,33390141,36319.24
Canada,Americas,2002,79.77,31902268,33328.97
France,Europe,2007,80.657,61083916,30470.02
France,Europe,2002,79.59,59925035,28926.03
Germany,Europe,2007,79.406,82400996,32170.37
"Korea, Dem. Rep.",Asia,2007,67.297,23301725,1593.07
Kenya,Africa,2007,54.11,35610177,1463.25
Iceland,Europe,2007,81.757,301931,36180.79
Japan,Asia,2007,82.603,127467972,31656.07
`

// Population2007 is the total population of the 2007 rows.
const Population2007 int64 = 363556858

// Records returns the fixture rows in file order.
func Records() []engine.Record {
	return []engine.Record{
		{Country: "Canada", Continent: "Americas", Year: 1952, LifeExp: 68.75, Pop: 14785584, GDPPercap: 11367.16},
		{Country: "Canada", Continent: "Americas", Year: 2007, LifeExp: 80.653, Pop: 33390141, GDPPercap: 36319.24},
		{Country: "Canada", Continent: "Americas", Year: 2002, LifeExp: 79.77, Pop: 31902268, GDPPercap: 33328.97},
		{Country: "France", Continent: "Europe", Year: 2007, LifeExp: 80.657, Pop: 61083916, GDPPercap: 30470.02},
		{Country: "France", Continent: "Europe", Year: 2002, LifeExp: 79.59, Pop: 59925035, GDPPercap: 28926.03},
		{Country: "Germany", Continent: "Europe", Year: 2007, LifeExp: 79.406, Pop: 82400996, GDPPercap: 32170.37},
		{Country: "Korea, Dem. Rep.", Continent: "Asia", Year: 2007, LifeExp: 67.297, Pop: 23301725, GDPPercap: 1593.07},
		{Country: "Kenya", Continent: "Africa", Year: 2007, LifeExp: 54.11, Pop: 35610177, GDPPercap: 1463.25},
		{Country: "Iceland", Continent: "Europe", Year: 2007, LifeExp: 81.757, Pop: 301931, GDPPercap: 36180.79},
		{Country: "Japan", Continent: "Asia", Year: 2007, LifeExp: 82.603, Pop: 127467972, GDPPercap: 31656.07},
	}
}

// Dataset builds the fixture Dataset.
func Dataset(t testing.TB) *engine.Dataset {
	t.Helper()
	ds, err := engine.NewDataset(Records())
	require.NoError(t, err)
	return ds
}
