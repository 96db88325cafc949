// Package partition derives the daily partition of a record from its event
// time and parses partition keys back out of storage paths.
//
// Every partition boundary is computed in one fixed civil time zone so that
// appends from writers in different locales agree on which day a record
// belongs to.
package partition

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // the zone must resolve on hosts without a zoneinfo database

	"github.com/ajitpratap0/featurestore/pkg/errors"
)

// Zone is the civil time zone of every partition boundary.
const Zone = "Asia/Kolkata"

// Scheme is the storage URL scheme partition paths must carry.
const Scheme = "s3://"

var (
	zone = mustLoadZone()

	pathRe   = regexp.MustCompile(`/y=(\d{4})/m=(\d{2})/d=(\d{2})(?:/|$)`)
	suffixRe = regexp.MustCompile(`^y=(\d{4})/m=(\d{2})/d=(\d{2})$`)
)

func mustLoadZone() *time.Location {
	loc, err := time.LoadLocation(Zone)
	if err != nil {
		panic(fmt.Sprintf("partition: load zone %s: %v", Zone, err))
	}
	return loc
}

// Key identifies a daily partition.
type Key struct {
	Year  string
	Month string
	Day   string
}

// String renders the key as a path segment, y=YYYY/m=MM/d=DD.
func (k Key) String() string {
	return "y=" + k.Year + "/m=" + k.Month + "/d=" + k.Day
}

// Values returns the partition column values in y, m, d order.
func (k Key) Values() []string {
	return []string{k.Year, k.Month, k.Day}
}

// KeyOf returns the partition key of an epoch timestamp in seconds.
func KeyOf(epochSeconds int64) Key {
	t := time.Unix(epochSeconds, 0).In(zone)
	return Key{
		Year:  fmt.Sprintf("%04d", t.Year()),
		Month: fmt.Sprintf("%02d", int(t.Month())),
		Day:   fmt.Sprintf("%02d", t.Day()),
	}
}

// Suffix returns the partition suffix y=YYYY/m=MM/d=DD of an epoch
// timestamp in seconds.
func Suffix(epochSeconds int64) string {
	return KeyOf(epochSeconds).String()
}

// ParseSuffix parses a bare y=YYYY/m=MM/d=DD suffix.
func ParseSuffix(suffix string) (Key, error) {
	m := suffixRe.FindStringSubmatch(suffix)
	if m == nil {
		return Key{}, errors.Newf(errors.ErrMalformedPath, "not a partition suffix: %q", suffix)
	}
	return Key{Year: m[1], Month: m[2], Day: m[3]}, nil
}

// Location is a storage path split around its partition key.
type Location struct {
	// DataRoot is everything before the key, ending in "/"
	DataRoot string
	// PartitionRoot is everything through the key, ending in "/"
	PartitionRoot string
	Key           Key
}

// Extract locates the first partition key segment in an s3:// path.
func Extract(path string) (Location, error) {
	if !strings.HasPrefix(path, Scheme) {
		return Location{}, errors.Newf(errors.ErrMalformedPath, "not an %s path: %q", Scheme, path)
	}

	m := pathRe.FindStringSubmatchIndex(path)
	if m == nil {
		return Location{}, errors.Newf(errors.ErrMalformedPath, "no partition key in %q", path)
	}

	return Location{
		DataRoot:      strings.TrimRight(path[:m[0]], "/") + "/",
		PartitionRoot: strings.TrimRight(path[:m[7]], "/") + "/",
		Key: Key{
			Year:  path[m[2]:m[3]],
			Month: path[m[4]:m[5]],
			Day:   path[m[6]:m[7]],
		},
	}, nil
}
