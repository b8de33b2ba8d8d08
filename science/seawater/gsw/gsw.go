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

// Package gsw calculates seawater properties using the Gibbs SeaWater
// (GSW) Oceanographic Toolbox of TEOS-10, through its C reference
// implementation (libgswteos-10).
package gsw

/*
#cgo LDFLAGS: -lgswteos-10 -lm
#include <gswteos-10.h>
*/
import "C"

import (
	"fmt"
	"math"
)

// The C library returns GSW_INVALID_VALUE (9e15) for inputs outside
// the range where its functions are defined.
const invalidLimit = 1e10

// DomainError is returned when a GSW function is called with inputs it
// cannot handle.
type DomainError struct {
	Func string
	Args []float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("gsw: %s%v: input outside the valid domain", e.Func, e.Args)
}

// GSW performs TEOS-10 conversions. Its zero value is ready to use.
type GSW struct{}

func checked(name string, v float64, args ...float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= invalidLimit {
		return math.NaN(), &DomainError{Func: name, Args: args}
	}
	return v, nil
}

func finite(args ...float64) bool {
	for _, a := range args {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return false
		}
	}
	return true
}

// PFromZ returns sea pressure [dbar] at height z [m] (negative below the
// sea surface) and latitude lat [degrees north].
func (GSW) PFromZ(z, lat float64) (float64, error) {
	if !finite(z, lat) {
		return math.NaN(), &DomainError{Func: "p_from_z", Args: []float64{z, lat}}
	}
	p := float64(C.gsw_p_from_z(C.double(z), C.double(lat), 0, 0))
	return checked("p_from_z", p, z, lat)
}

// ZFromP returns height [m] (negative below the sea surface) at sea
// pressure p [dbar] and latitude lat [degrees north]. It inverts PFromZ.
func (GSW) ZFromP(p, lat float64) (float64, error) {
	if !finite(p, lat) {
		return math.NaN(), &DomainError{Func: "z_from_p", Args: []float64{p, lat}}
	}
	z := float64(C.gsw_z_from_p(C.double(p), C.double(lat), 0, 0))
	return checked("z_from_p", z, p, lat)
}

// SAFromSP returns Absolute Salinity [g/kg] from Practical Salinity sp
// (PSS-78) at sea pressure p [dbar], longitude lon and latitude lat
// [degrees].
func (GSW) SAFromSP(sp, p, lon, lat float64) (float64, error) {
	if !finite(sp, p, lon, lat) {
		return math.NaN(), &DomainError{Func: "sa_from_sp", Args: []float64{sp, p, lon, lat}}
	}
	sa := float64(C.gsw_sa_from_sp(C.double(sp), C.double(p), C.double(lon), C.double(lat)))
	return checked("sa_from_sp", sa, sp, p, lon, lat)
}

// CTFromT returns Conservative Temperature [°C] from Absolute Salinity sa
// [g/kg], in-situ temperature t [°C] and sea pressure p [dbar].
func (GSW) CTFromT(sa, t, p float64) (float64, error) {
	if !finite(sa, t, p) {
		return math.NaN(), &DomainError{Func: "ct_from_t", Args: []float64{sa, t, p}}
	}
	ct := float64(C.gsw_ct_from_t(C.double(sa), C.double(t), C.double(p)))
	return checked("ct_from_t", ct, sa, t, p)
}
