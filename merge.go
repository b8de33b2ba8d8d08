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
)

// depthTolerance is how closely the depths of two atlas files must agree
// to be considered the same level [m].
const depthTolerance = 1e-3

// MergeVertical returns a field whose top levels come from upper and whose
// remaining levels come from lower. Both fields must be on the same
// horizontal grid and upper may not have more levels than lower.
//
// The merged field is built in the storage of lower, which must not be
// used by the caller afterwards; lower.DenseArray is set to nil.
func MergeVertical(upper, lower *Field) (*Field, error) {
	if err := checkRank3(upper); err != nil {
		return nil, err
	}
	if err := checkRank3(lower); err != nil {
		return nil, err
	}
	if upper.Shape[1] != lower.Shape[1] || upper.Shape[2] != lower.Shape[2] {
		return nil, fmt.Errorf("woaic: cannot merge %s%v from %s onto %s%v from %s: lat/lon grids differ",
			upper.Name, upper.Shape, upper.Source, lower.Name, lower.Shape, lower.Source)
	}
	if upper.Shape[0] > lower.Shape[0] {
		return nil, fmt.Errorf("woaic: cannot merge %s%v from %s onto %s%v from %s: upper field has more depth levels",
			upper.Name, upper.Shape, upper.Source, lower.Name, lower.Shape, lower.Source)
	}

	// Levels are contiguous, so the upper field is a prefix of the storage.
	copy(lower.Elements, upper.Elements)

	merged := &Field{
		DenseArray:  lower.DenseArray,
		Name:        upper.Name,
		Source:      upper.Source + "+" + lower.Source,
		Units:       upper.Units,
		FillValue:   upper.FillValue,
		CellMethods: upper.CellMethods,
	}
	lower.DenseArray = nil
	return merged, nil
}

// CheckDepthPrefix returns an error unless the upper depth axis matches
// the first levels of the lower one and the lower axis increases
// strictly.
func CheckDepthPrefix(upper, lower []float64) error {
	if len(upper) > len(lower) {
		return fmt.Errorf("woaic: upper depth axis has %d levels but lower axis has only %d", len(upper), len(lower))
	}
	for i := 1; i < len(lower); i++ {
		if !(lower[i] > lower[i-1]) {
			return fmt.Errorf("woaic: depth axis is not increasing at level %d (%g m after %g m)", i, lower[i], lower[i-1])
		}
	}
	for i, d := range upper {
		if math.Abs(d-lower[i]) > depthTolerance {
			return fmt.Errorf("woaic: depth level %d is %g m in the upper field but %g m in the lower field", i, d, lower[i])
		}
	}
	return nil
}
