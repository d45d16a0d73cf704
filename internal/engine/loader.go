package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// Columns is the expected header of the dataset file, in order.
var Columns = []string{"country", "continent", "year", "lifeExp", "pop", "gdpPercap"}

// pop is read as float64 so that values written as "1.2e+07" or "8425333.0" still load.
var csvSchema = arrow.NewSchema([]arrow.Field{
	{Name: "country", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "continent", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "year", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "lifeExp", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "pop", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "gdpPercap", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

const chunkRows = 4096

// Load fetches the dataset from source and parses it.
func Load(ctx context.Context, client *http.Client, source string, logger *slog.Logger) (*Dataset, error) {
	start := time.Now()
	logger.InfoContext(ctx, "loading dataset", "source", source)

	body, err := Fetch(ctx, client, source)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	ds, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}

	logger.InfoContext(ctx, "dataset loaded",
		"rows", ds.Len(),
		"countries", len(ds.countryDict),
		"years", len(ds.distinctYears),
		"elapsed", time.Since(start),
	)
	return ds, nil
}

// Fetch opens source for reading. http(s) URLs are fetched with a plain GET;
// anything else is treated as a local path (a file:// prefix is accepted).
func Fetch(ctx context.Context, client *http.Client, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(strings.TrimPrefix(source, "file://"))
		if err != nil {
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		return f, nil
	}

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build dataset request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch dataset: unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

// Parse decodes a dataset CSV. The header must match Columns.
func Parse(r io.Reader) (*Dataset, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && header == "" {
		return nil, fmt.Errorf("%w: missing header: %v", ErrSchema, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	rdr := csv.NewReader(br, csvSchema,
		csv.WithAllocator(memory.NewGoAllocator()),
		csv.WithChunk(chunkRows),
		csv.WithNullReader(true, "", "NA"),
	)
	defer rdr.Release()

	var records []Record
	for rdr.Next() {
		batch, err := appendBatch(records, rdr.Record())
		if err != nil {
			return nil, err
		}
		records = batch
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return NewDataset(records)
}

func checkHeader(line string) error {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) != len(Columns) {
		return fmt.Errorf("%w: header has %d columns, want %d", ErrSchema, len(fields), len(Columns))
	}
	for i, f := range fields {
		name := strings.Trim(strings.TrimSpace(f), `"`)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name != Columns[i] {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrSchema, i, name, Columns[i])
		}
	}
	return nil
}

func appendBatch(records []Record, rec arrow.Record) ([]Record, error) {
	countries := rec.Column(0).(*array.String)
	continents := rec.Column(1).(*array.String)
	years := rec.Column(2).(*array.Int64)
	lifeExps := rec.Column(3).(*array.Float64)
	pops := rec.Column(4).(*array.Float64)
	gdps := rec.Column(5).(*array.Float64)

	base := len(records)
	for i := 0; i < int(rec.NumRows()); i++ {
		row := base + i
		if countries.IsNull(i) || continents.IsNull(i) || years.IsNull(i) {
			return nil, fmt.Errorf("%w: row %d: country, continent and year are required", ErrSchema, row)
		}
		if pops.IsNull(i) {
			return nil, fmt.Errorf("%w: row %d: population is required", ErrSchema, row)
		}
		pop := pops.Value(i)
		if math.IsNaN(pop) || math.IsInf(pop, 0) {
			return nil, fmt.Errorf("%w: row %d: population %v is not a finite number", ErrSchema, row, pop)
		}
		records = append(records, Record{
			// Values alias the batch buffers, which are reused by the next chunk.
			Country:   strings.Clone(countries.Value(i)),
			Continent: strings.Clone(continents.Value(i)),
			Year:      int(years.Value(i)),
			LifeExp:   floatOrNaN(lifeExps, i),
			Pop:       int64(math.Round(pop)),
			GDPPercap: floatOrNaN(gdps, i),
		})
	}
	return records, nil
}

func floatOrNaN(col *array.Float64, i int) float64 {
	if col.IsNull(i) {
		return math.NaN()
	}
	return col.Value(i)
}
