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

import "fmt"

// Month is one row of the table that drives processing.
type Month struct {
	// Calendar is the month number, 1 through 12.
	Calendar int

	// Surface identifies the monthly source files, e.g. "01".
	Surface string

	// DeepProxy identifies the seasonal source files whose deep levels
	// stand in for this month below the monthly fields, e.g. "13".
	DeepProxy string

	// MidMonthDay is the middle of the month in days since the start of
	// a 365-day year.
	MidMonthDay float64
}

func (m Month) String() string { return fmt.Sprintf("%02d", m.Calendar) }

// midMonthDays holds the middle of each month of a 365-day climatological
// year.
var midMonthDays = [12]float64{15.5, 45, 74.5, 105, 135.5, 166, 196.5, 227.5, 258, 288.5, 319, 349.5}

// DefaultDeepProxies are the seasonal atlas periods (winter, spring,
// summer, autumn) used below the monthly fields for each calendar month.
var DefaultDeepProxies = []string{"13", "13", "13", "14", "14", "14", "15", "15", "15", "16", "16", "16"}

// NewMonths returns the month table using deep[i] as the deep-proxy
// identifier for calendar month i+1.
func NewMonths(deep []string) ([]Month, error) {
	if len(deep) != len(midMonthDays) {
		return nil, fmt.Errorf("woaic: %d deep proxy months given; need %d", len(deep), len(midMonthDays))
	}
	months := make([]Month, len(midMonthDays))
	for i, day := range midMonthDays {
		if deep[i] == "" {
			return nil, fmt.Errorf("woaic: empty deep proxy identifier for month %d", i+1)
		}
		months[i] = Month{
			Calendar:    i + 1,
			Surface:     fmt.Sprintf("%02d", i+1),
			DeepProxy:   deep[i],
			MidMonthDay: day,
		}
	}
	return months, nil
}

// DefaultMonths returns the month table with the default deep proxies.
func DefaultMonths() []Month {
	m, err := NewMonths(DefaultDeepProxies)
	if err != nil {
		panic(err)
	}
	return m
}
