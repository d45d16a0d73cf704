// Package controls describes the dashboard's user inputs independently of any
// UI runtime: which controls exist, what values they accept, their defaults,
// and the filter state they add up to.
package controls

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"gapdash/internal/engine"
	"gapdash/internal/models"
)

// ErrInvalidControl reports a control value outside its allowed set.
var ErrInvalidControl = errors.New("invalid control value")

// Key identifies a control. Keys double as query parameter names.
type Key string

const (
	Countries       Key = "countries"
	Measure         Key = "measure"
	Year            Key = "year"
	ScatterMeasures Key = "scatter-measures"
	PopulationMin   Key = "population-min"
	PopulationMax   Key = "population-max"
)

// Keys lists every control in layout order.
var Keys = []Key{Countries, Measure, Year, ScatterMeasures, PopulationMin, PopulationMax}

func ParseKey(s string) (Key, error) {
	k := Key(s)
	if !slices.Contains(Keys, k) {
		return "", fmt.Errorf("%w: unknown control %q", ErrInvalidControl, s)
	}
	return k, nil
}

type Kind string

const (
	KindMultiSelect Kind = "multi-select"
	KindSelect      Kind = "select"
	KindNumber      Kind = "number"
)

// PersistLocal means the client keeps the last value across sessions.
const PersistLocal = "local"

type Option struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Control is the static description of one input.
type Control struct {
	Key         Key      `json:"key"`
	Kind        Kind     `json:"kind"`
	Label       string   `json:"label"`
	Options     []Option `json:"options,omitempty"`
	Default     any      `json:"default"`
	Placeholder string   `json:"placeholder,omitempty"`
	Persistence string   `json:"persistence,omitempty"`
}

// Default control values.
var (
	DefaultCountries       = []string{"Canada"}
	DefaultMeasure         = models.Pop
	DefaultYear            = 2007
	DefaultScatterMeasures = []models.Measure{models.LifeExp, models.Pop}
)

// Config returns the control set with options drawn from ds.
func Config(ds *engine.Dataset) []Control {
	def := Defaults(ds)

	countries := ds.Countries()
	countryOpts := make([]Option, 0, len(countries))
	for _, c := range countries {
		countryOpts = append(countryOpts, Option{Label: c, Value: c})
	}
	measureOpts := make([]Option, 0, len(models.Measures))
	for _, m := range models.Measures {
		measureOpts = append(measureOpts, Option{Label: m.Label(), Value: m})
	}
	years := ds.Years()
	yearOpts := make([]Option, 0, len(years))
	for _, y := range years {
		yearOpts = append(yearOpts, Option{Label: strconv.Itoa(y), Value: y})
	}

	return []Control{
		{Key: Countries, Kind: KindMultiSelect, Label: "Countries", Options: countryOpts, Default: def.Countries, Persistence: PersistLocal},
		{Key: Measure, Kind: KindSelect, Label: "Measure", Options: measureOpts, Default: def.Measure, Persistence: PersistLocal},
		{Key: Year, Kind: KindSelect, Label: "Year", Options: yearOpts, Default: def.Year, Persistence: PersistLocal},
		{Key: ScatterMeasures, Kind: KindMultiSelect, Label: "Bubble chart measures", Options: measureOpts, Default: def.ScatterMeasures, Persistence: PersistLocal},
		{Key: PopulationMin, Kind: KindNumber, Label: "Minimum population", Default: nil, Placeholder: "Minimum population", Persistence: PersistLocal},
		{Key: PopulationMax, Kind: KindNumber, Label: "Maximum population", Default: nil, Placeholder: "Maximum population", Persistence: PersistLocal},
	}
}

// State is the current value of every control.
type State struct {
	Countries       []string         `json:"countries"`
	Measure         models.Measure   `json:"measure"`
	Year            int              `json:"year"`
	ScatterMeasures []models.Measure `json:"scatter_measures"`
	PopulationMin   Bound            `json:"population_min"`
	PopulationMax   Bound            `json:"population_max"`
}

// Defaults returns the initial state. The default year falls back to the
// latest year in ds when it is missing from the data.
func Defaults(ds *engine.Dataset) State {
	year := DefaultYear
	if years := ds.Years(); !ds.HasYear(year) && len(years) > 0 {
		year = years[len(years)-1]
	}
	return State{
		Countries:       slices.Clone(DefaultCountries),
		Measure:         DefaultMeasure,
		Year:            year,
		ScatterMeasures: slices.Clone(DefaultScatterMeasures),
	}
}

// Validate checks enumerated values. Countries and years outside the dataset
// are allowed and simply select no rows.
func (s State) Validate() error {
	if !s.Measure.Valid() {
		return fmt.Errorf("%w: %s=%q", ErrInvalidControl, Measure, s.Measure)
	}
	for _, m := range s.ScatterMeasures {
		if !m.Valid() {
			return fmt.Errorf("%w: %s=%q", ErrInvalidControl, ScatterMeasures, m)
		}
	}
	return nil
}

// FromQuery overlays query parameters on base. Absent parameters keep the base
// value; a present but empty "countries" selects nothing.
func FromQuery(q url.Values, base State) (State, error) {
	s := base
	if vals, ok := q[string(Countries)]; ok {
		s.Countries = nonEmpty(vals)
	}
	if v := q.Get(string(Measure)); v != "" {
		s.Measure = models.Measure(v)
	}
	if v := q.Get(string(Year)); v != "" {
		year, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return State{}, fmt.Errorf("%w: %s=%q", ErrInvalidControl, Year, v)
		}
		s.Year = year
	}
	if vals, ok := q[string(ScatterMeasures)]; ok {
		s.ScatterMeasures = make([]models.Measure, 0, len(vals))
		for _, v := range nonEmpty(vals) {
			s.ScatterMeasures = append(s.ScatterMeasures, models.Measure(v))
		}
	}
	if _, ok := q[string(PopulationMin)]; ok {
		s.PopulationMin = ParseBound(q.Get(string(PopulationMin)))
	}
	if _, ok := q[string(PopulationMax)]; ok {
		s.PopulationMax = ParseBound(q.Get(string(PopulationMax)))
	}
	return s, s.Validate()
}

func nonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Bound is an optional population limit.
type Bound struct {
	Value int64
	Set   bool
}

func NewBound(v int64) Bound {
	if v == 0 {
		return Bound{}
	}
	return Bound{Value: v, Set: true}
}

// ParseBound reads user input leniently: empty, non-numeric and zero input
// leave the bound unset. Any other value is set, then truncated, so "0.5"
// is a bound of 0.
func ParseBound(s string) Bound {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return Bound{}
	}
	switch {
	case f >= math.MaxInt64:
		return Bound{Value: math.MaxInt64, Set: true}
	case f <= math.MinInt64:
		return Bound{Value: math.MinInt64, Set: true}
	}
	return Bound{Value: int64(f), Set: true}
}

// Ptr returns the bound value or nil when unset.
func (b Bound) Ptr() *int64 {
	if !b.Set {
		return nil
	}
	v := b.Value
	return &v
}

func (b Bound) MarshalJSON() ([]byte, error) {
	if !b.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(b.Value, 10)), nil
}

// UnmarshalJSON accepts numbers, numeric strings and null. Anything else
// leaves the bound unset rather than failing the request.
func (b *Bound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*b = Bound{}
			return nil
		}
		*b = ParseBound(s)
		return nil
	}
	*b = ParseBound(string(data))
	return nil
}
