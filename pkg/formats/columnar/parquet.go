package columnar

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// WriteParquet writes rec to w as one Parquet file.
func WriteParquet(w io.Writer, rec arrow.Record, config *WriterConfig) error {
	if config == nil {
		config = DefaultWriterConfig()
	}
	codec, err := Codec(config.Compression)
	if err != nil {
		return err
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithMaxRowGroupLength(config.RowGroupSize),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(rec.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	return nil
}

// EncodeParquet serialises rec into one or more Parquet files holding at
// most MaxRowsPerFile rows each. An empty record yields no files.
func EncodeParquet(rec arrow.Record, config *WriterConfig) ([][]byte, error) {
	if config == nil {
		config = DefaultWriterConfig()
	}
	maxRows := config.MaxRowsPerFile
	if maxRows < 1 {
		maxRows = rec.NumRows()
	}

	var files [][]byte
	for start := int64(0); start < rec.NumRows(); start += maxRows {
		end := start + maxRows
		if end > rec.NumRows() {
			end = rec.NumRows()
		}

		slice := rec.NewSlice(start, end)
		var buf bytes.Buffer
		err := WriteParquet(&buf, slice, config)
		slice.Release()
		if err != nil {
			return nil, err
		}
		files = append(files, buf.Bytes())
	}
	return files, nil
}

// ReadParquet decodes a whole Parquet file into a single record. The
// caller releases the result.
func ReadParquet(ctx context.Context, data []byte, mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	tbl, err := pqarrow.ReadTable(ctx, bytes.NewReader(data), parquet.NewReaderProperties(mem),
		pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("failed to read Parquet data: %w", err)
	}
	defer tbl.Release()

	return TableToRecord(tbl, mem)
}

// TableToRecord concatenates the chunks of every column of tbl into one
// record. The caller releases the result.
func TableToRecord(tbl arrow.Table, mem memory.Allocator) (arrow.Record, error) {
	cols := make([]arrow.Array, tbl.NumCols())
	release := func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}

	for i := range cols {
		chunks := tbl.Column(i).Data().Chunks()
		switch len(chunks) {
		case 0:
			cols[i] = array.MakeArrayOfNull(mem, tbl.Schema().Field(i).Type, 0)
		case 1:
			chunks[0].Retain()
			cols[i] = chunks[0]
		default:
			arr, err := array.Concatenate(chunks, mem)
			if err != nil {
				release()
				return nil, fmt.Errorf("failed to concatenate column %s: %w", tbl.Schema().Field(i).Name, err)
			}
			cols[i] = arr
		}
	}

	rec := array.NewRecord(tbl.Schema(), cols, tbl.NumRows())
	release()
	return rec, nil
}
