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
	"io"
	"math"
	"os"
	"testing"

	"github.com/ctessum/cdf"
)

// fakeSeawater is a simple stand-in for TEOS-10. It fails on non-finite
// input so tests notice if missing values reach it.
type fakeSeawater struct {
	calls int

	// failCT makes CTFromT fail for this in-situ temperature.
	failCT float64
}

func (f *fakeSeawater) PFromZ(z, lat float64) (float64, error) {
	f.calls++
	if math.IsNaN(z) || math.IsNaN(lat) {
		return 0, fmt.Errorf("PFromZ(%g, %g)", z, lat)
	}
	return -z * (1 + math.Abs(lat)/1000), nil
}

func (f *fakeSeawater) SAFromSP(sp, p, lon, lat float64) (float64, error) {
	f.calls++
	if math.IsNaN(sp) || math.IsNaN(p) || math.IsNaN(lon) || math.IsNaN(lat) {
		return 0, fmt.Errorf("SAFromSP(%g, %g, %g, %g)", sp, p, lon, lat)
	}
	return sp*35.16504/35 + p*1e-6 + lon*1e-7, nil
}

func (f *fakeSeawater) CTFromT(sa, t, p float64) (float64, error) {
	f.calls++
	if math.IsNaN(sa) || math.IsNaN(t) || math.IsNaN(p) || (f.failCT != 0 && t == f.failCT) {
		return 0, fmt.Errorf("CTFromT(%g, %g, %g)", sa, t, p)
	}
	return t + 0.01*(sa-35) - 1e-4*p, nil
}

const fixtureFill = float32(9.96921e+36)

func f32(v []float64) []float32 {
	o := make([]float32, len(v))
	for i, x := range v {
		if math.IsNaN(x) {
			o[i] = fixtureFill
			continue
		}
		o[i] = float32(x)
	}
	return o
}

// ramp returns n values start, start+step, ...
func ramp(n int, start, step float64) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = start + float64(i)*step
	}
	return o
}

type ncVar struct {
	name  string
	dims  []string
	data  []float32
	attrs map[string]interface{}
}

// writeNC writes a NetCDF classic file with one record. dims maps
// dimension names to lengths; "time" is the record dimension.
func writeNC(t *testing.T, path string, dimNames []string, dimLens []int, globals [][2]string, vars []ncVar) {
	t.Helper()
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	h := cdf.NewHeader(dimNames, dimLens)
	for _, g := range globals {
		h.AddAttribute("", g[0], g[1])
	}
	for _, v := range vars {
		h.AddVariable(v.name, v.dims, []float32{})
		for _, a := range []string{"units", "_FillValue"} {
			if val, ok := v.attrs[a]; ok {
				h.AddAttribute(v.name, a, val)
			}
		}
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range vars {
		end := make([]int, len(v.dims))
		for i, d := range v.dims {
			for j, n := range dimNames {
				if n == d {
					end[i] = dimLens[j] - 1
				}
			}
			if d == "time" {
				end[i] = 0
			}
		}
		if _, err := f.Writer(v.name, nil, end).Write(v.data); err != nil && err != io.EOF {
			t.Fatalf("writing %s: %v", v.name, err)
		}
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		t.Fatal(err)
	}
}

// writeAtlas writes an atlas source file holding variable name on the
// given grid.
func writeAtlas(t *testing.T, path, name string, depth, lat, lon, data []float64, timeUnits string) {
	t.Helper()
	if len(data) != len(depth)*len(lat)*len(lon) {
		t.Fatalf("fixture %s: %d values for a %dx%dx%d grid", path, len(data), len(depth), len(lat), len(lon))
	}
	writeNC(t, path,
		[]string{"time", "depth", "lat", "lon"},
		[]int{0, len(depth), len(lat), len(lon)},
		[][2]string{{"featureType", "Grid"}},
		[]ncVar{
			{name: "time", dims: []string{"time"}, data: []float32{6}, attrs: map[string]interface{}{"units": timeUnits}},
			{name: "depth", dims: []string{"depth"}, data: f32(depth), attrs: map[string]interface{}{"units": "meters"}},
			{name: "lat", dims: []string{"lat"}, data: f32(lat)},
			{name: "lon", dims: []string{"lon"}, data: f32(lon)},
			{name: name, dims: []string{"time", "depth", "lat", "lon"}, data: f32(data),
				attrs: map[string]interface{}{"units": "x", "_FillValue": []float32{fixtureFill}}},
		})
}

// writeDestination writes a destination file whose time axis uses
// timeUnits and whose first climatology bounds are bounds.
func writeDestination(t *testing.T, path string, depth, lat, lon []float64, timeUnits string, bounds []float64) {
	t.Helper()
	n := len(depth) * len(lat) * len(lon)
	writeNC(t, path,
		[]string{"time", "depth", "lat", "lon", "nbounds"},
		[]int{0, len(depth), len(lat), len(lon), 2},
		[][2]string{{"featureType", "Grid"}, {"id", "woa_fixture"}, {"history", "created for testing"}},
		[]ncVar{
			{name: "time", dims: []string{"time"}, data: []float32{6}, attrs: map[string]interface{}{"units": timeUnits}},
			{name: "climatology_bounds", dims: []string{"time", "nbounds"}, data: f32(bounds)},
			{name: "depth", dims: []string{"depth"}, data: f32(depth)},
			{name: "lat", dims: []string{"lat"}, data: f32(lat)},
			{name: "lon", dims: []string{"lon"}, data: f32(lon)},
			{name: "practical_salinity", dims: []string{"time", "depth", "lat", "lon"}, data: make([]float32, n),
				attrs: map[string]interface{}{"_FillValue": []float32{fixtureFill}}},
		})
}

// sameNaN reports whether a and b are equal, treating NaNs as equal.
func sameNaN(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}
