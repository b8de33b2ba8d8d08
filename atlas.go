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
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"
)

// AtlasFile is an atlas source file opened for reading. Both the classic
// and the HDF5-based NetCDF formats are supported.
type AtlasFile struct {
	path string
	nc   api.Group
}

// OpenAtlas opens the atlas file at path.
func OpenAtlas(path string) (*AtlasFile, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("woaic: opening atlas file %s: %w", path, err)
	}
	return &AtlasFile{path: path, nc: nc}, nil
}

// Path returns the location of the file.
func (a *AtlasFile) Path() string { return a.path }

// Close closes the file.
func (a *AtlasFile) Close() { a.nc.Close() }

func (a *AtlasFile) variable(name string) (api.VarGetter, error) {
	vg, err := a.nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("woaic: atlas file %s: variable %s: %w", a.path, name, err)
	}
	return vg, nil
}

// Axis returns the values of the one-dimensional coordinate variable
// name.
func (a *AtlasFile) Axis(name string) ([]float64, error) {
	vg, err := a.variable(name)
	if err != nil {
		return nil, err
	}
	vals, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("woaic: atlas file %s: reading %s: %w", a.path, name, err)
	}
	data, shape, err := flatten(vals)
	if err != nil {
		return nil, fmt.Errorf("woaic: atlas file %s: reading %s: %w", a.path, name, err)
	}
	if len(shape) != 1 {
		return nil, fmt.Errorf("woaic: atlas file %s: %s has shape %v; want one dimension", a.path, name, shape)
	}
	return data, nil
}

// FirstRecord reads the first time record of the (time, depth, lat, lon)
// variable name. Values equal to the variable's _FillValue are returned
// as NaN.
func (a *AtlasFile) FirstRecord(name string) (*Field, error) {
	vg, err := a.variable(name)
	if err != nil {
		return nil, err
	}
	if dims := vg.Dimensions(); len(dims) != 4 {
		return nil, fmt.Errorf("woaic: atlas file %s: %s has dimensions %v; want (time, depth, lat, lon)",
			a.path, name, dims)
	}
	vals, err := vg.GetSlice(0, 1)
	if err != nil {
		return nil, fmt.Errorf("woaic: atlas file %s: reading %s: %w", a.path, name, err)
	}
	data, shape, err := flatten(vals)
	if err != nil {
		return nil, fmt.Errorf("woaic: atlas file %s: reading %s: %w", a.path, name, err)
	}
	if len(shape) != 4 || shape[0] != 1 {
		return nil, fmt.Errorf("woaic: atlas file %s: %s record has shape %v", a.path, name, shape)
	}

	f := &Field{
		DenseArray: sparse.ZerosDense(shape[1:]...),
		Name:       name,
		Source:     a.path,
		FillValue:  math.NaN(),
	}
	copy(f.Elements, data)

	attrs := vg.Attributes()
	if u, ok := attrs.Get("units"); ok {
		f.Units, _ = u.(string)
	}
	if fv, ok := attrs.Get("_FillValue"); ok {
		fill, _, err := flatten(fv)
		if err != nil || len(fill) != 1 {
			return nil, fmt.Errorf("woaic: atlas file %s: %s has invalid _FillValue %v", a.path, name, fv)
		}
		f.FillValue = fill[0]
		for i, v := range f.Elements {
			if v == f.FillValue {
				f.Elements[i] = math.NaN()
			}
		}
	}
	return f, nil
}

// TimeUnits returns the units attribute of the time variable.
func (a *AtlasFile) TimeUnits() (string, error) {
	vg, err := a.variable(varTime)
	if err != nil {
		return "", err
	}
	u, ok := vg.Attributes().Get("units")
	if !ok {
		return "", fmt.Errorf("woaic: atlas file %s: time has no units", a.path)
	}
	s, ok := u.(string)
	if !ok {
		return "", fmt.Errorf("woaic: atlas file %s: time units %v are not text", a.path, u)
	}
	return s, nil
}

// flatten converts a scalar or a nested slice of numbers into a row-major
// slice of float64, returning its shape.
func flatten(v interface{}) ([]float64, []int, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil, fmt.Errorf("no values")
	}
	var shape []int
	n := 1
	for t := rv; t.Kind() == reflect.Slice; t = t.Index(0) {
		shape = append(shape, t.Len())
		n *= t.Len()
		if t.Len() == 0 {
			break
		}
	}
	out := make([]float64, 0, n)

	var walk func(x reflect.Value, depth int) error
	walk = func(x reflect.Value, depth int) error {
		if x.Kind() == reflect.Slice {
			if depth >= len(shape) || x.Len() != shape[depth] {
				return fmt.Errorf("ragged array")
			}
			switch s := x.Interface().(type) {
			case []float32:
				for _, e := range s {
					out = append(out, float64(e))
				}
				return nil
			case []float64:
				out = append(out, s...)
				return nil
			}
			for i := 0; i < x.Len(); i++ {
				if err := walk(x.Index(i), depth+1); err != nil {
					return err
				}
			}
			return nil
		}
		if depth != len(shape) {
			return fmt.Errorf("ragged array")
		}
		switch x.Kind() {
		case reflect.Float32, reflect.Float64:
			out = append(out, x.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out = append(out, float64(x.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out = append(out, float64(x.Uint()))
		default:
			return fmt.Errorf("unsupported value type %s", x.Type())
		}
		return nil
	}
	if err := walk(rv, 0); err != nil {
		return nil, nil, err
	}
	return out, shape, nil
}
