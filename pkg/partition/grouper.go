package partition

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/featurestore/pkg/errors"
)

// Groups maps a partition suffix to the ascending row indices of a record
// that fall in that partition. Iteration order over suffixes carries no
// meaning.
type Groups map[string][]int

// Suffixes returns the suffixes of g in lexical order, which is also
// chronological order.
func (g Groups) Suffixes() []string {
	out := make([]string, 0, len(g))
	for s := range g {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Group buckets the rows of rec by the partition of their event time.
// The time column must be a non-null integer column in unit.
func Group(rec arrow.Record, timeColumn string, unit TimeUnit) (Groups, error) {
	if !unit.Valid() {
		return nil, errors.Newf(errors.ErrInvalidTimeUnit, "unknown time unit %q", unit)
	}

	idx := rec.Schema().FieldIndices(timeColumn)
	if len(idx) == 0 {
		return nil, errors.Newf(errors.ErrMissingTimeColumn, "time column %q absent from batch", timeColumn)
	}

	epoch, err := epochReader(rec.Column(idx[0]))
	if err != nil {
		return nil, err
	}

	groups := make(Groups)
	for row := 0; row < int(rec.NumRows()); row++ {
		v, ok := epoch(row)
		if !ok {
			return nil, errors.New(errors.ErrorTypeData, "null event time").
				WithDetail("column", timeColumn).
				WithDetail("row", row)
		}
		suffix := Suffix(unit.EpochSeconds(v))
		groups[suffix] = append(groups[suffix], row)
	}
	return groups, nil
}

// epochReader reads the time column as signed epochs. Unsigned widths up
// to 32 bits widen losslessly, matching the catalog types they infer to.
func epochReader(col arrow.Array) (func(int) (int64, bool), error) {
	switch c := col.(type) {
	case *array.Int64:
		return func(i int) (int64, bool) { return c.Value(i), c.IsValid(i) }, nil
	case *array.Int32:
		return func(i int) (int64, bool) { return int64(c.Value(i)), c.IsValid(i) }, nil
	case *array.Int16:
		return func(i int) (int64, bool) { return int64(c.Value(i)), c.IsValid(i) }, nil
	case *array.Int8:
		return func(i int) (int64, bool) { return int64(c.Value(i)), c.IsValid(i) }, nil
	case *array.Uint32:
		return func(i int) (int64, bool) { return int64(c.Value(i)), c.IsValid(i) }, nil
	case *array.Uint16:
		return func(i int) (int64, bool) { return int64(c.Value(i)), c.IsValid(i) }, nil
	case *array.Uint8:
		return func(i int) (int64, bool) { return int64(c.Value(i)), c.IsValid(i) }, nil
	default:
		return nil, errors.Newf(errors.ErrNonNumericTimeColumn, "time column has type %s", col.DataType())
	}
}

// Split materialises one record per group. The caller releases the
// returned records.
func Split(rec arrow.Record, groups Groups, mem memory.Allocator) (map[string]arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	out := make(map[string]arrow.Record, len(groups))
	release := func() {
		for _, r := range out {
			r.Release()
		}
	}

	for suffix, rows := range groups {
		sub, err := take(rec, rows, mem)
		if err != nil {
			release()
			return nil, err
		}
		out[suffix] = sub
	}
	return out, nil
}

// take copies the given ascending rows of rec into a new record, slicing
// contiguous runs and concatenating them column by column.
func take(rec arrow.Record, rows []int, mem memory.Allocator) (arrow.Record, error) {
	type run struct{ start, end int64 }
	var runs []run
	for _, r := range rows {
		if n := len(runs); n > 0 && runs[n-1].end == int64(r) {
			runs[n-1].end++
			continue
		}
		runs = append(runs, run{int64(r), int64(r) + 1})
	}

	cols := make([]arrow.Array, rec.NumCols())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i := range cols {
		pieces := make([]arrow.Array, len(runs))
		for j, rn := range runs {
			pieces[j] = array.NewSlice(rec.Column(i), rn.start, rn.end)
		}
		col, err := array.Concatenate(pieces, mem)
		for _, p := range pieces {
			p.Release()
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "split partition column").
				WithDetail("column", rec.ColumnName(i))
		}
		cols[i] = col
	}

	return array.NewRecord(rec.Schema(), cols, int64(len(rows))), nil
}
