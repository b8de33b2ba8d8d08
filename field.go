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

	"github.com/ctessum/sparse"
)

// Field is a gridded variable with axes (depth, lat, lon). Missing values
// are stored as NaN.
type Field struct {
	*sparse.DenseArray

	// Name is the variable name.
	Name string

	// Source is the path of the file the data was read from.
	Source string

	Units string

	// FillValue is the value that marked missing data in the source file.
	FillValue float64

	CellMethods string
}

// NewField returns a field of zeros with the given shape.
func NewField(name string, dims ...int) *Field {
	return &Field{DenseArray: sparse.ZerosDense(dims...), Name: name}
}

// Levels returns the number of depth levels in f.
func (f *Field) Levels() int { return f.Shape[0] }

// levelSize is the number of grid points on one depth level.
func (f *Field) levelSize() int {
	n := 1
	for _, s := range f.Shape[1:] {
		n *= s
	}
	return n
}

// Level returns the values at depth level k. The slice shares storage
// with f.
func (f *Field) Level(k int) []float64 {
	n := f.levelSize()
	return f.Elements[k*n : (k+1)*n]
}

// Missing returns the number of missing values in f.
func (f *Field) Missing() int {
	var n int
	for _, v := range f.Elements {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Summary returns the range of the valid values in f and how many
// there are.
func (f *Field) Summary() (lo, hi float64, n int) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range f.Elements {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		n++
	}
	if n == 0 {
		return math.NaN(), math.NaN(), 0
	}
	return lo, hi, n
}

func (f *Field) String() string {
	lo, hi, n := f.Summary()
	return fmt.Sprintf("%s%v [%s] valid=%d min=%.4g max=%.4g", f.Name, f.Shape, f.Units, n, lo, hi)
}

// checkRank3 returns an error if f is not a (depth, lat, lon) field.
func checkRank3(f *Field) error {
	if len(f.Shape) != 3 {
		return fmt.Errorf("woaic: %s from %s has shape %v; want (depth, lat, lon)", f.Name, f.Source, f.Shape)
	}
	return nil
}
