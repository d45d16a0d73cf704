package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"gapdash/internal/models"
)

// ErrSchema reports a row or header that does not fit the dataset layout.
var ErrSchema = errors.New("dataset schema violation")

// Record is one (country, continent, year) observation.
type Record struct {
	Country   string
	Continent string
	Year      int
	LifeExp   float64
	Pop       int64
	GDPPercap float64
}

// Dataset holds the loaded table in struct-of-arrays form. It is never mutated
// after NewDataset returns, so it can be shared by any number of goroutines.
type Dataset struct {
	// Data columns
	years      []int32
	lifeExps   []float64
	pops       []int64
	gdpPercaps []float64

	// Dictionary encoded IDs (0..N)
	countryIDs   []int32
	continentIDs []int32

	// Dictionaries (ID -> string), first-seen order
	countryDict   []string
	continentDict []string
	countryIndex  map[string]int32

	// Group-by order (name ascending) for countries and continents
	countryOrder   []int32
	continentOrder []int32

	distinctYears []int
	popMin        int64
	popMax        int64
}

// NewDataset copies records into a columnar Dataset. Every record needs a
// country, a continent and a year.
func NewDataset(records []Record) (*Dataset, error) {
	n := len(records)
	ds := &Dataset{
		years:        make([]int32, n),
		lifeExps:     make([]float64, n),
		pops:         make([]int64, n),
		gdpPercaps:   make([]float64, n),
		countryIDs:   make([]int32, n),
		continentIDs: make([]int32, n),
		countryIndex: make(map[string]int32),
	}
	countries := newDict(ds.countryIndex)
	continents := newDict(make(map[string]int32))
	yearSeen := make(map[int]struct{})

	ds.popMin, ds.popMax = math.MaxInt64, math.MinInt64
	for i, r := range records {
		if r.Country == "" || r.Continent == "" {
			return nil, fmt.Errorf("%w: row %d: country and continent are required", ErrSchema, i)
		}
		if r.Year <= 0 || r.Year > math.MaxInt32 {
			return nil, fmt.Errorf("%w: row %d: invalid year %d", ErrSchema, i, r.Year)
		}
		ds.countryIDs[i] = countries.id(r.Country)
		ds.continentIDs[i] = continents.id(r.Continent)
		ds.years[i] = int32(r.Year)
		ds.lifeExps[i] = r.LifeExp
		ds.pops[i] = r.Pop
		ds.gdpPercaps[i] = r.GDPPercap

		if _, ok := yearSeen[r.Year]; !ok {
			yearSeen[r.Year] = struct{}{}
			ds.distinctYears = append(ds.distinctYears, r.Year)
		}
		ds.popMin = min(ds.popMin, r.Pop)
		ds.popMax = max(ds.popMax, r.Pop)
	}
	if n == 0 {
		ds.popMin, ds.popMax = 0, 0
	}

	ds.countryDict = countries.list
	ds.continentDict = continents.list
	ds.countryOrder = sortedIDs(ds.countryDict)
	ds.continentOrder = sortedIDs(ds.continentDict)
	slices.Sort(ds.distinctYears)
	return ds, nil
}

type dict struct {
	index map[string]int32
	list  []string
}

func newDict(index map[string]int32) *dict {
	return &dict{index: index}
}

func (d *dict) id(s string) int32 {
	if id, ok := d.index[s]; ok {
		return id
	}
	id := int32(len(d.list))
	d.list = append(d.list, s)
	d.index[s] = id
	return id
}

func sortedIDs(dict []string) []int32 {
	ids := make([]int32, len(dict))
	for i := range ids {
		ids[i] = int32(i)
	}
	sort.SliceStable(ids, func(i, j int) bool { return dict[ids[i]] < dict[ids[j]] })
	return ids
}

func (ds *Dataset) Len() int { return len(ds.years) }

func (ds *Dataset) Record(i int) Record {
	return Record{
		Country:   ds.Country(i),
		Continent: ds.Continent(i),
		Year:      ds.Year(i),
		LifeExp:   ds.lifeExps[i],
		Pop:       ds.pops[i],
		GDPPercap: ds.gdpPercaps[i],
	}
}

func (ds *Dataset) Country(i int) string   { return ds.countryDict[ds.countryIDs[i]] }
func (ds *Dataset) Continent(i int) string { return ds.continentDict[ds.continentIDs[i]] }
func (ds *Dataset) Year(i int) int         { return int(ds.years[i]) }
func (ds *Dataset) Population(i int) int64 { return ds.pops[i] }

// Value returns row i's value for measure m. Unknown measures yield NaN.
func (ds *Dataset) Value(i int, m models.Measure) float64 {
	switch m {
	case models.LifeExp:
		return ds.lifeExps[i]
	case models.Pop:
		return float64(ds.pops[i])
	case models.GDPPercap:
		return ds.gdpPercaps[i]
	}
	return math.NaN()
}

// Countries returns the distinct countries in first-seen order.
func (ds *Dataset) Countries() []string { return slices.Clone(ds.countryDict) }

// Continents returns the distinct continents in first-seen order.
func (ds *Dataset) Continents() []string { return slices.Clone(ds.continentDict) }

// Years returns the distinct years, ascending.
func (ds *Dataset) Years() []int { return slices.Clone(ds.distinctYears) }

func (ds *Dataset) HasCountry(country string) bool {
	_, ok := ds.countryIndex[country]
	return ok
}

func (ds *Dataset) HasYear(year int) bool {
	_, ok := slices.BinarySearch(ds.distinctYears, year)
	return ok
}

// PopulationRange returns the smallest and largest population across all rows.
func (ds *Dataset) PopulationRange() (int64, int64) { return ds.popMin, ds.popMax }
