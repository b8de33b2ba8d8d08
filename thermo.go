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
	"github.com/sirupsen/logrus"
)

// Seawater holds the TEOS-10 conversions needed to derive conservative
// temperature. The gsw package provides an implementation.
type Seawater interface {
	// PFromZ returns sea pressure [dbar] at height z [m], which is
	// negative below the surface, and latitude lat [°N].
	PFromZ(z, lat float64) (float64, error)

	// SAFromSP returns Absolute Salinity [g/kg] from Practical Salinity.
	SAFromSP(sp, p, lon, lat float64) (float64, error)

	// CTFromT returns Conservative Temperature [°C] from in-situ
	// temperature.
	CTFromT(sa, t, p float64) (float64, error)
}

// PressureField is sea pressure [dbar] on a (depth, lat, lon) grid. It
// depends only on depth and latitude, so it is stored as a (depth, lat)
// profile and repeated along longitude on request.
type PressureField struct {
	profile *sparse.DenseArray
	nlon    int
}

// Shape returns the (depth, lat, lon) shape of the field.
func (p *PressureField) Shape() []int {
	return []int{p.profile.Shape[0], p.profile.Shape[1], p.nlon}
}

// At returns the pressure at depth index k and latitude index j.
func (p *PressureField) At(k, j int) float64 { return p.profile.Get(k, j) }

// Levels fills dst with the pressure on depth levels [k0, k1) in
// (depth, lat, lon) order, allocating dst if it is too small.
func (p *PressureField) Levels(k0, k1 int, dst []float64) []float64 {
	nlat := p.profile.Shape[1]
	n := (k1 - k0) * nlat * p.nlon
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	i := 0
	for k := k0; k < k1; k++ {
		for j := 0; j < nlat; j++ {
			v := p.profile.Get(k, j)
			for l := 0; l < p.nlon; l++ {
				dst[i] = v
				i++
			}
		}
	}
	return dst
}

// Broadcast returns the full three-dimensional pressure field.
func (p *PressureField) Broadcast() *Field {
	f := &Field{
		DenseArray: sparse.ZerosDense(p.Shape()...),
		Name:       "pressure",
		Units:      "dbar",
	}
	p.Levels(0, p.profile.Shape[0], f.Elements)
	return f
}

// Transformer derives TEOS-10 variables from atlas fields.
type Transformer struct {
	Seawater Seawater

	// LevelsPerChunk is the number of depth levels whose pressure is
	// expanded at once while computing absolute salinity.
	LevelsPerChunk int

	Log logrus.FieldLogger
}

func (t *Transformer) log() logrus.FieldLogger {
	if t.Log == nil {
		return logrus.StandardLogger()
	}
	return t.Log
}

// Pressure calculates pressure once for each depth and latitude and
// spreads it over nlon longitudes. depth is positive downward [m].
func (t *Transformer) Pressure(depth, lat []float64, nlon int) (*PressureField, error) {
	profile := sparse.ZerosDense(len(depth), len(lat))
	for k, d := range depth {
		for j, y := range lat {
			p, err := t.Seawater.PFromZ(-d, y)
			if err != nil {
				return nil, fmt.Errorf("woaic: pressure at depth %g m, latitude %g (index %d, %d): %w", d, y, k, j, err)
			}
			profile.Set(p, k, j)
		}
	}
	return &PressureField{profile: profile, nlon: nlon}, nil
}

func checkGrid(f *Field, p *PressureField) error {
	if err := checkRank3(f); err != nil {
		return err
	}
	ps := p.Shape()
	for i, s := range f.Shape {
		if s != ps[i] {
			return fmt.Errorf("woaic: %s%v from %s does not match pressure grid %v", f.Name, f.Shape, f.Source, ps)
		}
	}
	return nil
}

// AbsoluteSalinity converts practical salinity sp to absolute salinity.
// Depth levels are processed in chunks of LevelsPerChunk, so only one
// chunk of the pressure field is expanded in memory at a time. Missing
// values of sp are missing in the result.
func (t *Transformer) AbsoluteSalinity(sp *Field, p *PressureField, lon, lat []float64) (*Field, error) {
	if err := checkGrid(sp, p); err != nil {
		return nil, err
	}
	nz, nlat, nlon := sp.Shape[0], sp.Shape[1], sp.Shape[2]
	if len(lat) != nlat || len(lon) != nlon {
		return nil, fmt.Errorf("woaic: %s%v from %s does not match %d latitudes and %d longitudes",
			sp.Name, sp.Shape, sp.Source, len(lat), len(lon))
	}
	chunk := t.LevelsPerChunk
	if chunk < 1 {
		chunk = 1
	}

	// Longitude and latitude of every point on a level.
	n := nlat * nlon
	lonMesh, latMesh := make([]float64, n), make([]float64, n)
	for j := 0; j < nlat; j++ {
		for i := 0; i < nlon; i++ {
			lonMesh[j*nlon+i] = lon[i]
			latMesh[j*nlon+i] = lat[j]
		}
	}

	out := NewField("absolute_salinity", sp.Shape...)
	out.Source = sp.Source
	out.Units = "g/kg"
	var pres []float64
	for k0 := 0; k0 < nz; k0 += chunk {
		k1 := k0 + chunk
		if k1 > nz {
			k1 = nz
		}
		pres = p.Levels(k0, k1, pres)
		for k := k0; k < k1; k++ {
			if k%10 == 0 {
				t.log().WithField("level", k).Info("calculating absolute salinity")
			}
			in, dst := sp.Level(k), out.Level(k)
			pk := pres[(k-k0)*n : (k-k0+1)*n]
			for i, s := range in {
				if math.IsNaN(s) {
					dst[i] = math.NaN()
					continue
				}
				sa, err := t.Seawater.SAFromSP(s, pk[i], lonMesh[i], latMesh[i])
				if err != nil {
					return nil, fmt.Errorf("woaic: absolute salinity at index (%d, %d, %d) of %s: %w",
						k, i/nlon, i%nlon, sp.Source, err)
				}
				dst[i] = sa
			}
		}
	}
	return out, nil
}

// ConservativeTemperature converts in-situ temperature temp to
// conservative temperature over the whole grid. A point that is missing in
// either sa or temp is missing in the result.
func (t *Transformer) ConservativeTemperature(sa, temp *Field, p *PressureField) (*Field, error) {
	if err := checkGrid(sa, p); err != nil {
		return nil, err
	}
	if err := checkGrid(temp, p); err != nil {
		return nil, err
	}
	t.log().Info("calculating conservative temperature from in-situ temperature")
	pres := p.Broadcast()
	nlat, nlon := temp.Shape[1], temp.Shape[2]
	out := NewField(varConservativeTemperature, temp.Shape...)
	out.Source = temp.Source
	out.Units = "degrees celsius"
	for i, tv := range temp.Elements {
		s := sa.Elements[i]
		if math.IsNaN(tv) || math.IsNaN(s) {
			out.Elements[i] = math.NaN()
			continue
		}
		ct, err := t.Seawater.CTFromT(s, tv, pres.Elements[i])
		if err != nil {
			return nil, fmt.Errorf("woaic: conservative temperature at index (%d, %d, %d) of %s: %w",
				i/(nlat*nlon), (i/nlon)%nlat, i%nlon, temp.Source, err)
		}
		out.Elements[i] = ct
	}
	return out, nil
}
