// Package export encodes derived tables as Apache Arrow record batches.
package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"gapdash/internal/models"
)

// ContentType is the media type of an Arrow IPC stream.
const ContentType = "application/vnd.apache.arrow.stream"

// Record converts t into an Arrow record. The caller must Release it.
func Record(mem memory.Allocator, t models.Table) (arrow.Record, error) {
	switch t := t.(type) {
	case models.LineTable:
		return lineRecord(mem, t), nil
	case models.BarTable:
		return barRecord(mem, t), nil
	case models.ScatterTable:
		return scatterRecord(mem, t), nil
	case models.PieTable:
		return pieRecord(mem, t), nil
	}
	return nil, fmt.Errorf("export: unsupported table %T", t)
}

// WriteIPC streams t to w in Arrow IPC stream format.
func WriteIPC(w io.Writer, t models.Table) error {
	mem := memory.NewGoAllocator()
	rec, err := Record(mem, t)
	if err != nil {
		return err
	}
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := wr.Write(rec); err != nil {
		_ = wr.Close()
		return fmt.Errorf("export: write batch: %w", err)
	}
	return wr.Close()
}

func metadata(kv map[string]string) *arrow.Metadata {
	keys := make([]string, 0, len(kv))
	vals := make([]string, 0, len(kv))
	for k, v := range kv {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	md := arrow.NewMetadata(keys, vals)
	return &md
}

func lineRecord(mem memory.Allocator, t models.LineTable) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "country", Type: arrow.BinaryTypes.String},
		{Name: "year", Type: arrow.PrimitiveTypes.Int64},
		{Name: string(t.Measure), Type: arrow.PrimitiveTypes.Float64},
	}, metadata(map[string]string{"measure": string(t.Measure)}))

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	countries := b.Field(0).(*array.StringBuilder)
	years := b.Field(1).(*array.Int64Builder)
	values := b.Field(2).(*array.Float64Builder)
	for _, r := range t.Rows {
		countries.Append(r.Country)
		years.Append(int64(r.Year))
		values.Append(r.Value)
	}
	return b.NewRecord()
}

func barRecord(mem memory.Allocator, t models.BarTable) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "country", Type: arrow.BinaryTypes.String},
		{Name: string(t.Measure), Type: arrow.PrimitiveTypes.Float64},
	}, metadata(map[string]string{"measure": string(t.Measure), "year": fmt.Sprint(t.Year)}))

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	countries := b.Field(0).(*array.StringBuilder)
	values := b.Field(1).(*array.Float64Builder)
	for _, r := range t.Rows {
		countries.Append(r.Country)
		values.Append(r.Value)
	}
	return b.NewRecord()
}

func scatterRecord(mem memory.Allocator, t models.ScatterTable) arrow.Record {
	xName, yName := "x", "y"
	if !t.Empty {
		xName, yName = string(t.X), string(t.Y)
	}
	// Both axes may be the same measure; keep field names unique.
	if xName == yName {
		xName, yName = xName+"_x", yName+"_y"
	}
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "country", Type: arrow.BinaryTypes.String},
		{Name: "continent", Type: arrow.BinaryTypes.String},
		{Name: xName, Type: arrow.PrimitiveTypes.Float64},
		{Name: yName, Type: arrow.PrimitiveTypes.Float64},
		{Name: "pop", Type: arrow.PrimitiveTypes.Int64},
	}, metadata(map[string]string{
		"year":           fmt.Sprint(t.Year),
		"empty":          fmt.Sprint(t.Empty),
		"population_min": fmt.Sprint(t.PopulationMin),
		"population_max": fmt.Sprint(t.PopulationMax),
	}))

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	countries := b.Field(0).(*array.StringBuilder)
	continents := b.Field(1).(*array.StringBuilder)
	xs := b.Field(2).(*array.Float64Builder)
	ys := b.Field(3).(*array.Float64Builder)
	pops := b.Field(4).(*array.Int64Builder)
	for _, r := range t.Rows {
		countries.Append(r.Country)
		continents.Append(r.Continent)
		xs.Append(r.X)
		ys.Append(r.Y)
		pops.Append(r.Population)
	}
	return b.NewRecord()
}

func pieRecord(mem memory.Allocator, t models.PieTable) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "continent", Type: arrow.BinaryTypes.String},
		{Name: "pop", Type: arrow.PrimitiveTypes.Int64},
	}, metadata(map[string]string{"year": fmt.Sprint(t.Year)}))

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	continents := b.Field(0).(*array.StringBuilder)
	pops := b.Field(1).(*array.Int64Builder)
	for _, s := range t.Slices {
		continents.Append(s.Continent)
		pops.Append(s.Population)
	}
	return b.NewRecord()
}
