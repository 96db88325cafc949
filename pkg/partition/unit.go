package partition

import (
	"github.com/ajitpratap0/featurestore/pkg/errors"
)

// TimeUnit is the unit of an epoch time column.
type TimeUnit string

// Supported time units.
const (
	Seconds      TimeUnit = "s"
	Milliseconds TimeUnit = "ms"
	Microseconds TimeUnit = "us"
	Nanoseconds  TimeUnit = "ns"
)

var divisors = map[TimeUnit]int64{
	Seconds:      1,
	Milliseconds: 1_000,
	Microseconds: 1_000_000,
	Nanoseconds:  1_000_000_000,
}

// ParseTimeUnit validates a time unit name.
func ParseTimeUnit(s string) (TimeUnit, error) {
	u := TimeUnit(s)
	if _, ok := divisors[u]; !ok {
		return "", errors.Newf(errors.ErrInvalidTimeUnit, "unknown time unit %q, want one of s, ms, us, ns", s)
	}
	return u, nil
}

// Valid reports whether u is a supported unit.
func (u TimeUnit) Valid() bool {
	_, ok := divisors[u]
	return ok
}

// Divisor returns the number of u in one second.
func (u TimeUnit) Divisor() int64 {
	d, ok := divisors[u]
	if !ok {
		panic("partition: unknown time unit " + string(u))
	}
	return d
}

// EpochSeconds converts v, expressed in u, to whole epoch seconds,
// rounding toward negative infinity.
func (u TimeUnit) EpochSeconds(v int64) int64 {
	d := u.Divisor()
	q := v / d
	if v%d != 0 && v < 0 {
		q--
	}
	return q
}
