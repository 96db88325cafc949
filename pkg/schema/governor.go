package schema

import (
	"sort"
	"strings"

	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/partition"
	stringutil "github.com/ajitpratap0/featurestore/pkg/strings"
)

// Validate checks a freshly inferred schema before a feature group is
// created from it. timeColumn must already be sanitised.
func Validate(s Schema, timeColumn, timeUnit string) error {
	if timeColumn == "" || !stringutil.HasLetter(timeColumn) {
		return errors.Newf(errors.ErrInvalidTimeColumn, "time column %q has no alphabetic character", timeColumn)
	}

	if _, err := partition.ParseTimeUnit(timeUnit); err != nil {
		return err
	}

	t, ok := s.Lookup(timeColumn)
	if !ok {
		return errors.Newf(errors.ErrMissingTimeColumn, "time column %q absent from schema", timeColumn)
	}
	if !t.Integral() {
		return errors.Newf(errors.ErrNonNumericTimeColumn, "time column %q has type %s, want an integral type", timeColumn, t).
			WithDetail("column", timeColumn)
	}

	for _, reserved := range PartitionColumns {
		if s.Has(reserved) {
			return errors.Newf(errors.ErrReservedColumnCollision, "column %q collides with a partition column", reserved).
				WithDetail("column", reserved)
		}
	}
	return nil
}

// CheckCompatible checks that actual, inferred from an append batch, has
// exactly the columns and types of expected, the persisted schema.
func CheckCompatible(expected, actual Schema) error {
	expectedCols := make(map[string]bool, len(expected.Columns))
	for _, c := range expected.Columns {
		expectedCols[c.Name] = true
	}

	var missing, extra []string
	for _, c := range expected.Columns {
		if !actual.Has(c.Name) {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return errors.Newf(errors.ErrSchemaMissingColumns, "batch lacks columns %s", list(missing)).
			WithDetail("columns", missing)
	}

	for _, c := range actual.Columns {
		if !expectedCols[c.Name] {
			extra = append(extra, c.Name)
		}
	}
	if len(extra) > 0 {
		return errors.Newf(errors.ErrSchemaExtraColumns, "batch has unexpected columns %s", list(extra)).
			WithDetail("columns", extra)
	}

	for _, c := range expected.Columns {
		if got, _ := actual.Lookup(c.Name); got != c.Type {
			return errors.Newf(errors.ErrSchemaTypeMismatch, "column %q: expected %s, got %s", c.Name, c.Type, got).
				WithDetail("column", c.Name)
		}
	}

	if expected.TimeColumn == "" || !actual.Has(expected.TimeColumn) {
		return errors.Newf(errors.ErrSchemaMissingTimeColumn, "time column %q absent from batch", expected.TimeColumn).
			WithDetail("column", expected.TimeColumn)
	}
	return nil
}

func list(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return "[" + strings.Join(sorted, ", ") + "]"
}
