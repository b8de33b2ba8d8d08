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
	"time"

	"github.com/ctessum/sparse"
)

// Destination is an existing dataset opened for update. Changes need not
// reach the disk until the caller commits them.
type Destination interface {
	Path() string
	HasVariable(v string) bool
	Shape(v string) ([]int, error)
	ReadFloat64(v string) (*sparse.DenseArray, error)

	// WriteFloat64 writes data to v, or to the first record of v if data
	// has one dimension fewer. NaN is stored as the fill value.
	WriteFloat64(v string, data *sparse.DenseArray) error

	AddVariable(v string, dims []string, proto interface{}) error

	// Attribute, SetAttribute and DeleteAttribute act on global
	// attributes when v is empty.
	Attribute(v, a string) (interface{}, bool)
	SetAttribute(v, a string, value interface{}) error
	DeleteAttribute(v, a string) error
}

// Metadata holds the descriptive global attributes of the output.
type Metadata struct {
	Title, Summary, Source string

	// Program is named in the history line added to each file.
	Program string
}

// DefaultMetadata returns the global attributes for the WOA23 derived
// product.
func DefaultMetadata(program string) Metadata {
	return Metadata{
		Title:   "WOA23-derived temperature and salinity fields with conservative temperature",
		Summary: "Conservative temperature computed from in-situ temperature and practical salinity using TEOS-10 via the GSW library",
		Source:  "Data derived from NOAA World Ocean Atlas 2023 (WOA23) objective analyses",
		Program: program,
	}
}

// outputDims are the dimensions of conservative_temperature.
var outputDims = []string{"time", "depth", "lat", "lon"}

// WriteOutput stores practical salinity sp and conservative temperature ct
// as the first record of dst and updates the global attributes. now is
// recorded in the history attribute.
func WriteOutput(dst Destination, sp, ct *Field, meta Metadata, now time.Time) error {
	if err := writeFirstRecord(dst, varPracticalSalinity, sp); err != nil {
		return err
	}
	if err := dst.SetAttribute(varPracticalSalinity, "cell_methods", cellMethods); err != nil {
		return err
	}

	if dst.HasVariable(varConservativeTemperature) {
		return fmt.Errorf("woaic: %s already contains %s", dst.Path(), varConservativeTemperature)
	}
	if err := dst.AddVariable(varConservativeTemperature, outputDims, []float32{}); err != nil {
		return err
	}
	for _, a := range []struct {
		name  string
		value interface{}
	}{
		{"_FillValue", []float32{DefaultFillValue}},
		{"units", "degrees celsius"},
		{"standard_name", "sea_water_conservative_temperature"},
		{"long_name", "conservative temperature calculated using teos10 from objectively analysed mean fields for sea_water_temperature"},
		{"cell_methods", cellMethods},
	} {
		if err := dst.SetAttribute(varConservativeTemperature, a.name, a.value); err != nil {
			return err
		}
	}
	if err := writeFirstRecord(dst, varConservativeTemperature, ct); err != nil {
		return err
	}

	if err := dst.SetAttribute("", "Conventions", "CF-1.10"); err != nil {
		return err
	}
	for _, a := range []string{"featureType", "id"} {
		if err := dst.DeleteAttribute("", a); err != nil {
			return err
		}
	}
	for _, a := range [][2]string{{"title", meta.Title}, {"summary", meta.Summary}, {"source", meta.Source}} {
		if err := dst.SetAttribute("", a[0], a[1]); err != nil {
			return err
		}
	}
	return dst.SetAttribute("", "history", appendHistory(dst, now, meta.Program))
}

// appendHistory returns the history attribute of dst with a line for this
// update added at the end.
func appendHistory(dst Destination, now time.Time, program string) string {
	line := fmt.Sprintf("%s - %s and %s updated using %s",
		now.Format("2006-01-02 15:04:05"), varConservativeTemperature, varPracticalSalinity, program)
	if h, ok := dst.Attribute("", "history"); ok {
		if s, ok := h.(string); ok && s != "" {
			return s + "\n" + line
		}
	}
	return line
}

func writeFirstRecord(dst Destination, v string, f *Field) error {
	shape, err := dst.Shape(v)
	if err != nil {
		return err
	}
	if len(shape) != len(f.Shape)+1 || !sameInts(shape[1:], f.Shape) {
		return fmt.Errorf("woaic: %s: %s has shape %v, which cannot hold %s%v",
			dst.Path(), v, shape, f.Name, f.Shape)
	}
	switch shape[0] {
	case 0:
		return fmt.Errorf("woaic: %s: %s has no records", dst.Path(), v)
	case 1:
		// One record holds the whole field, whether or not time is the
		// record dimension.
		full := &sparse.DenseArray{Elements: f.Elements, Shape: shape}
		full.Fix()
		return dst.WriteFloat64(v, full)
	}
	return dst.WriteFloat64(v, f.DenseArray)
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
