package columnar

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// EngineType maps a query engine result column type to the Arrow type it
// is decoded as. Temporal and unrecognised types stay text.
func EngineType(t string) arrow.DataType {
	switch strings.ToLower(t) {
	case "tinyint":
		return arrow.PrimitiveTypes.Int8
	case "smallint":
		return arrow.PrimitiveTypes.Int16
	case "integer", "int":
		return arrow.PrimitiveTypes.Int32
	case "bigint":
		return arrow.PrimitiveTypes.Int64
	case "float", "real":
		return arrow.PrimitiveTypes.Float32
	case "double":
		return arrow.PrimitiveTypes.Float64
	case "boolean":
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// ReadCSV decodes a CSV document with a header row into one record of the
// given schema. Empty fields decode as nulls. The caller releases the result.
func ReadCSV(r io.Reader, schema *arrow.Schema, mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	rdr := csv.NewReader(r, schema,
		csv.WithHeader(true),
		csv.WithChunk(-1),
		csv.WithNullReader(true, ""),
		csv.WithAllocator(mem),
	)
	defer rdr.Release()

	return drain(rdr, schema, mem)
}

// InferCSV decodes a CSV document with a header row, inferring column
// types from the first data row. The caller releases the result.
func InferCSV(r io.Reader, mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	// Rows are read one at a time: the inferring reader has no schema
	// until it sees a data row.
	rdr := csv.NewInferringReader(r,
		csv.WithHeader(true),
		csv.WithNullReader(true, ""),
		csv.WithAllocator(mem),
	)
	defer rdr.Release()

	var recs []arrow.Record
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode csv: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("csv input has no data rows")
	}

	tbl := array.NewTableFromRecords(recs[0].Schema(), recs)
	defer tbl.Release()
	return TableToRecord(tbl, mem)
}

func drain(rdr *csv.Reader, schema *arrow.Schema, mem memory.Allocator) (arrow.Record, error) {
	ok := rdr.Next()
	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode csv: %w", err)
	}
	if ok {
		rec := rdr.Record()
		rec.Retain()
		return rec, nil
	}
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	return b.NewRecord(), nil
}

// WriteCSV writes rec as CSV with a header row.
func WriteCSV(w io.Writer, rec arrow.Record) error {
	cw := csv.NewWriter(w, rec.Schema(), csv.WithHeader(true), csv.WithNullWriter(""))
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return cw.Flush()
}
