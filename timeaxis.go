/*
Copyright © 2024 the woaic authors.
This file is part of woaic.

woaic is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

woaic is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with woaic.  If not, see <http://www.gnu.org/licenses/>.
*/

package woaic

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeUnits is a parsed CF time units string such as
// "months since 1955-01-01 00:00:00".
type TimeUnits struct {
	// Unit is the lower-case unit name, e.g. "months".
	Unit string

	// Origin is the reference date at midnight UTC. Any time of day in
	// the units string is dropped.
	Origin time.Time
}

// ParseTimeUnits parses a string of the form "<unit> since Y-M-D", where
// the date may be followed by a time of day separated by a space or "T".
func ParseTimeUnits(s string) (TimeUnits, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " since ", 2)
	if len(parts) != 2 {
		return TimeUnits{}, fmt.Errorf("woaic: time units %q: missing \"since\"", s)
	}
	unit := strings.ToLower(strings.TrimSpace(parts[0]))
	if unit == "" || strings.ContainsAny(unit, " \t") {
		return TimeUnits{}, fmt.Errorf("woaic: time units %q: invalid unit", s)
	}
	date := strings.TrimSpace(parts[1])
	if i := strings.IndexAny(date, " T"); i >= 0 {
		date = date[:i]
	}
	ymd := strings.Split(date, "-")
	if len(ymd) != 3 {
		return TimeUnits{}, fmt.Errorf("woaic: time units %q: invalid date %q", s, date)
	}
	var v [3]int
	for i, f := range ymd {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return TimeUnits{}, fmt.Errorf("woaic: time units %q: invalid date %q", s, date)
		}
		v[i] = n
	}
	y, m, d := v[0], v[1], v[2]
	if y > 9999 || m < 1 || m > 12 || d < 1 || d > daysIn(time.Month(m), y) {
		return TimeUnits{}, fmt.Errorf("woaic: time units %q: invalid date %q", s, date)
	}
	return TimeUnits{Unit: unit, Origin: time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)}, nil
}

func (u TimeUnits) String() string {
	y, m, d := u.Origin.Date()
	return fmt.Sprintf("%s since %04d-%02d-%02d 00:00:00", u.Unit, y, int(m), d)
}

// DaysSince returns CF units of days since the date of origin.
func DaysSince(origin time.Time) string {
	return TimeUnits{Unit: "days", Origin: origin}.String()
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddCalendarMonths returns t moved by n calendar months. When the day
// of month does not exist in the target month it becomes the last day of
// that month, so January 31 plus one month is February 28 or 29.
func AddCalendarMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	y += total / 12
	total %= 12
	if total < 0 {
		total += 12
		y--
	}
	month := time.Month(total + 1)
	if last := daysIn(month, y); d > last {
		d = last
	}
	return time.Date(y, month, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysBetween returns the number of whole days from a to b.
func daysBetween(a, b time.Time) int64 {
	return (b.Unix() - a.Unix()) / 86400
}

// MonthsToDays converts offsets in calendar months from origin into
// offsets in days from origin. Offsets must be whole numbers of months.
func MonthsToDays(origin time.Time, months []float64) ([]float64, error) {
	days := make([]float64, len(months))
	for i, m := range months {
		if math.IsNaN(m) || math.IsInf(m, 0) || m != math.Trunc(m) {
			return nil, fmt.Errorf("woaic: %g is not a whole number of months", m)
		}
		days[i] = float64(daysBetween(origin, AddCalendarMonths(origin, int(m))))
	}
	return days, nil
}

// ReconcileTime rewrites the time metadata of dst for month m. Climatology
// bounds counted in months are converted to days from origin, the time
// value is set to the middle of the month and the time units become days
// since origin.
func ReconcileTime(dst Destination, origin time.Time, m Month) error {
	if !dst.HasVariable(varTime) {
		return fmt.Errorf("woaic: %s has no %s variable", dst.Path(), varTime)
	}
	u, _ := dst.Attribute(varTime, "units")
	units, ok := u.(string)
	if !ok || units == "" {
		return fmt.Errorf("woaic: %s: time variable has no units", dst.Path())
	}
	switch {
	case strings.Contains(units, "months since"):
		b, err := dst.ReadFloat64(varBounds)
		if err != nil {
			return err
		}
		if len(b.Shape) == 0 || b.Shape[0] == 0 {
			return fmt.Errorf("woaic: %s: %s is empty", dst.Path(), varBounds)
		}
		n := len(b.Elements) / b.Shape[0]
		days, err := MonthsToDays(origin, b.Elements[:n])
		if err != nil {
			return fmt.Errorf("woaic: %s: %s: %w", dst.Path(), varBounds, err)
		}
		copy(b.Elements, days)
		if err := dst.WriteFloat64(varBounds, b); err != nil {
			return err
		}
	case strings.Contains(units, "days since"):
		// Already in days; the bounds are left as they are.
	default:
		return fmt.Errorf("woaic: %s: unsupported time units %q; want months or days", dst.Path(), units)
	}

	t, err := dst.ReadFloat64(varTime)
	if err != nil {
		return err
	}
	if len(t.Elements) == 0 {
		return fmt.Errorf("woaic: %s: time variable is empty", dst.Path())
	}
	t.Elements[0] = m.MidMonthDay
	if err := dst.WriteFloat64(varTime, t); err != nil {
		return err
	}
	if err := dst.SetAttribute(varTime, "units", DaysSince(origin)); err != nil {
		return err
	}
	return dst.SetAttribute("", "time_coverage_resolution", "P01M")
}
