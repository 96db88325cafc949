// Package schema models the column schema of a feature group and enforces
// the rules that gate its creation and every later append.
package schema

import (
	"strings"

	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/json"
	"github.com/ajitpratap0/featurestore/pkg/partition"
)

// Reserved descriptor keys recording the event-time column and its unit.
const (
	TimeColumnKey = "__time_col__"
	TimeUnitKey   = "__time_col_unit__"
)

// PartitionColumns are the catalog partition keys; data columns may not use them.
var PartitionColumns = []string{"y", "m", "d"}

// Type is a primitive catalog column type.
type Type string

// Supported column types.
const (
	String    Type = "string"
	TinyInt   Type = "tinyint"
	SmallInt  Type = "smallint"
	Int       Type = "int"
	BigInt    Type = "bigint"
	Float     Type = "float"
	Double    Type = "double"
	Boolean   Type = "boolean"
	Timestamp Type = "timestamp"
	Date      Type = "date"
	Binary    Type = "binary"
)

var knownTypes = map[Type]bool{
	String: true, TinyInt: true, SmallInt: true, Int: true, BigInt: true,
	Float: true, Double: true, Boolean: true, Timestamp: true, Date: true, Binary: true,
}

// ParseType validates a type name.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !knownTypes[t] {
		return "", errors.Newf(errors.ErrUnsupportedType, "unsupported column type %q", s)
	}
	return t, nil
}

// Integral reports whether t holds whole numbers.
func (t Type) Integral() bool {
	switch t {
	case TinyInt, SmallInt, Int, BigInt:
		return true
	}
	return false
}

// Column is a named, typed column.
type Column struct {
	Name string `json:"Name"`
	Type Type   `json:"Type"`
}

// Schema is the ordered column set of a feature group plus its event-time
// designation. It is immutable once persisted.
type Schema struct {
	Columns    []Column
	TimeColumn string
	TimeUnit   partition.TimeUnit
}

// New builds a schema from columns, rejecting duplicate names.
func New(cols ...Column) (Schema, error) {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c.Name] {
			return Schema{}, errors.Newf(errors.ErrDuplicateColumn, "duplicate column %q", c.Name)
		}
		seen[c.Name] = true
	}
	return Schema{Columns: append([]Column(nil), cols...)}, nil
}

// Lookup returns the type of the named column.
func (s Schema) Lookup(name string) (Type, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

// Has reports whether the named column exists.
func (s Schema) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Names returns column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// WithTime returns a copy of s recording the event-time column and unit.
func (s Schema) WithTime(column string, unit partition.TimeUnit) Schema {
	s.Columns = append([]Column(nil), s.Columns...)
	s.TimeColumn = column
	s.TimeUnit = unit
	return s
}

// MarshalJSON encodes the schema descriptor: one member per column in
// order, followed by the reserved time keys when set.
func (s Schema) MarshalJSON() ([]byte, error) {
	fields := make([]json.Field, 0, len(s.Columns)+2)
	for _, c := range s.Columns {
		v, err := json.Marshal(string(c.Type))
		if err != nil {
			return nil, err
		}
		fields = append(fields, json.Field{Key: c.Name, Value: v})
	}
	if s.TimeColumn != "" {
		v, _ := json.Marshal(s.TimeColumn)
		fields = append(fields, json.Field{Key: TimeColumnKey, Value: v})
	}
	if s.TimeUnit != "" {
		v, _ := json.Marshal(string(s.TimeUnit))
		fields = append(fields, json.Field{Key: TimeUnitKey, Value: v})
	}
	return json.EncodeObject(fields)
}

// UnmarshalJSON decodes a schema descriptor, keeping column order.
func (s *Schema) UnmarshalJSON(data []byte) error {
	fields, err := json.DecodeObject(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "decode schema descriptor")
	}

	var out Schema
	for _, f := range fields {
		var v string
		if err := json.Unmarshal(f.Value, &v); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "schema descriptor values must be strings").
				WithDetail("key", f.Key)
		}
		switch f.Key {
		case TimeColumnKey:
			out.TimeColumn = v
		case TimeUnitKey:
			out.TimeUnit = partition.TimeUnit(v)
		default:
			t, err := ParseType(v)
			if err != nil {
				return err
			}
			out.Columns = append(out.Columns, Column{Name: f.Key, Type: t})
		}
	}

	built, err := New(out.Columns...)
	if err != nil {
		return err
	}
	*s = built.WithTime(out.TimeColumn, out.TimeUnit)
	return nil
}
