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

// Package woaic turns monthly World Ocean Atlas climatologies of in-situ
// temperature and practical salinity into initial conditions for an ocean
// model.
//
// For each calendar month the shallow monthly fields are stacked on top of a
// seasonal deep-ocean proxy, sentinel values are masked, and TEOS-10 is used
// to derive absolute salinity and conservative temperature. The results,
// along with CF-compliant time metadata, are written into a destination file
// that already exists for that month.
package woaic

// Version gives the version number.
const Version = "0.1.0"

// Variable names in the atlas source files.
const (
	varLat         = "lat"
	varLon         = "lon"
	varDepth       = "depth"
	varTime        = "time"
	varTemperature = "t_an"
	varSalinity    = "s_an"
)

// Variable names in the destination files.
const (
	varBounds                  = "climatology_bounds"
	varPracticalSalinity       = "practical_salinity"
	varConservativeTemperature = "conservative_temperature"
)

// cellMethods describes the averaging represented by the output fields.
const cellMethods = "area: mean depth: mean time: mean within years time: mean over years"

// DefaultFillValue is the missing value marker used for new output
// variables.
const DefaultFillValue float32 = 9.96921e+36
