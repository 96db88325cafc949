package schema

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/ajitpratap0/featurestore/pkg/errors"
	stringutil "github.com/ajitpratap0/featurestore/pkg/strings"
)

// TypeOf maps an Arrow data type to its catalog column type.
func TypeOf(dt arrow.DataType) (Type, error) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return String, nil
	case arrow.INT8:
		return TinyInt, nil
	case arrow.INT16, arrow.UINT8:
		return SmallInt, nil
	case arrow.INT32, arrow.UINT16:
		return Int, nil
	case arrow.INT64, arrow.UINT32:
		return BigInt, nil
	case arrow.FLOAT32:
		return Float, nil
	case arrow.FLOAT64:
		return Double, nil
	case arrow.BOOL:
		return Boolean, nil
	case arrow.TIMESTAMP:
		return Timestamp, nil
	case arrow.DATE32, arrow.DATE64:
		return Date, nil
	case arrow.BINARY, arrow.LARGE_BINARY:
		return Binary, nil
	default:
		return "", errors.Newf(errors.ErrUnsupportedType, "unsupported arrow type %s", dt)
	}
}

// ArrowType maps a catalog column type to the Arrow type used when decoding
// text results.
func ArrowType(t Type) arrow.DataType {
	switch t {
	case TinyInt:
		return arrow.PrimitiveTypes.Int8
	case SmallInt:
		return arrow.PrimitiveTypes.Int16
	case Int:
		return arrow.PrimitiveTypes.Int32
	case BigInt:
		return arrow.PrimitiveTypes.Int64
	case Float:
		return arrow.PrimitiveTypes.Float32
	case Double:
		return arrow.PrimitiveTypes.Float64
	case Boolean:
		return arrow.FixedWidthTypes.Boolean
	case Binary:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// FromArrow infers a schema from an Arrow schema. Column names are
// sanitised; names that collide after sanitisation are rejected.
func FromArrow(as *arrow.Schema) (Schema, error) {
	cols := make([]Column, 0, as.NumFields())
	origin := make(map[string]string, as.NumFields())

	for _, f := range as.Fields() {
		name := stringutil.Sanitise(f.Name)
		if name == "" {
			return Schema{}, errors.Newf(errors.ErrInvalidColumnName, "column %q is empty after sanitisation", f.Name)
		}
		if prev, dup := origin[name]; dup {
			return Schema{}, errors.Newf(errors.ErrDuplicateColumn, "columns %q and %q both sanitise to %q", prev, f.Name, name).
				WithDetail("column", name)
		}
		origin[name] = f.Name

		t, err := TypeOf(f.Type)
		if err != nil {
			return Schema{}, errors.Wrap(err, errors.ErrorTypeValidation, "infer column "+name)
		}
		cols = append(cols, Column{Name: name, Type: t})
	}
	return New(cols...)
}

// Normalize returns rec with sanitised column names so that written files
// match catalog column names. Column data is shared, not copied. The
// caller releases the result.
func Normalize(rec arrow.Record) (arrow.Record, error) {
	as := rec.Schema()
	if _, err := FromArrow(as); err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, as.NumFields())
	for i, f := range as.Fields() {
		f.Name = stringutil.Sanitise(f.Name)
		fields[i] = f
	}
	md := as.Metadata()
	return array.NewRecord(arrow.NewSchema(fields, &md), rec.Columns(), rec.NumRows()), nil
}
