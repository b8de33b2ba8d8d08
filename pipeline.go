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

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/woaic/internal/ncedit"
	"gonum.org/v1/gonum/floats"
)

// coordTolerance is how closely the coordinates of the monthly and
// deep-proxy files must agree [degrees].
const coordTolerance = 1e-6

// Pipeline converts atlas files into initial conditions, one month at a
// time.
type Pipeline struct {
	*Config

	Seawater Seawater
	Log      logrus.FieldLogger

	// Now returns the time recorded in the history attribute. It
	// defaults to time.Now.
	Now func() time.Time
}

func (p *Pipeline) log() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Run processes every month in order, stopping at the first error.
func (p *Pipeline) Run() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Seawater == nil {
		return fmt.Errorf("woaic: no seawater equation of state configured")
	}
	for _, m := range p.Months {
		if err := p.ProcessMonth(m); err != nil {
			return err
		}
	}
	return nil
}

// atlasRecord is the first record of one atlas variable together with its
// coordinates.
type atlasRecord struct {
	field           *Field
	depth, lat, lon []float64
	timeUnits       string
}

// readAtlas reads variable name from the atlas file at path. The time
// units are only read if withTime is true.
func (p *Pipeline) readAtlas(path, name string, withTime bool) (*atlasRecord, error) {
	p.log().WithField("file", path).Info("reading atlas file")
	a, err := OpenAtlas(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	r := new(atlasRecord)
	if r.field, err = a.FirstRecord(name); err != nil {
		return nil, err
	}
	if r.depth, err = a.Axis(varDepth); err != nil {
		return nil, err
	}
	if r.lat, err = a.Axis(varLat); err != nil {
		return nil, err
	}
	if r.lon, err = a.Axis(varLon); err != nil {
		return nil, err
	}
	if want := []int{len(r.depth), len(r.lat), len(r.lon)}; !sameInts(r.field.Shape, want) {
		return nil, fmt.Errorf("woaic: atlas file %s: %s has shape %v but the coordinates have lengths %v",
			path, name, r.field.Shape, want)
	}
	if withTime {
		if r.timeUnits, err = a.TimeUnits(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// readMerged reads variable name from the monthly and deep-proxy files
// and merges them vertically.
func (p *Pipeline) readMerged(upperPath, lowerPath, name string, withTime bool) (*Field, *atlasRecord, error) {
	upper, err := p.readAtlas(upperPath, name, withTime)
	if err != nil {
		return nil, nil, err
	}
	lower, err := p.readAtlas(lowerPath, name, false)
	if err != nil {
		return nil, nil, err
	}
	if err := CheckDepthPrefix(upper.depth, lower.depth); err != nil {
		return nil, nil, fmt.Errorf("woaic: merging %s onto %s: %w", upperPath, lowerPath, err)
	}
	if !floats.EqualApprox(upper.lat, lower.lat, coordTolerance) ||
		!floats.EqualApprox(upper.lon, lower.lon, coordTolerance) {
		return nil, nil, fmt.Errorf("woaic: merging %s onto %s: lat/lon coordinates differ", upperPath, lowerPath)
	}
	merged, err := MergeVertical(upper.field, lower.field)
	if err != nil {
		return nil, nil, err
	}
	// The merged field has the depth axis of the deep-proxy file.
	lower.field = merged
	lower.timeUnits = upper.timeUnits
	return merged, lower, nil
}

// ProcessMonth derives conservative temperature for month m and writes
// it, along with the merged salinity, to the month's destination file.
func (p *Pipeline) ProcessMonth(m Month) error {
	log := p.log().WithField("month", m.String())
	start := time.Now()

	temp, grid, err := p.readMerged(p.TemperaturePath(m.Surface), p.TemperaturePath(m.DeepProxy), varTemperature, true)
	if err != nil {
		return fmt.Errorf("woaic: month %s: %w", m, err)
	}
	sal, sgrid, err := p.readMerged(p.SalinityPath(m.Surface), p.SalinityPath(m.DeepProxy), varSalinity, false)
	if err != nil {
		return fmt.Errorf("woaic: month %s: %w", m, err)
	}
	if !sameInts(temp.Shape, sal.Shape) || !floats.EqualApprox(grid.depth, sgrid.depth, depthTolerance) {
		return fmt.Errorf("woaic: month %s: temperature%v from %s and salinity%v from %s are on different grids",
			m, temp.Shape, temp.Source, sal.Shape, sal.Source)
	}
	units, err := ParseTimeUnits(grid.timeUnits)
	if err != nil {
		return fmt.Errorf("woaic: month %s: %s: %w", m, p.TemperaturePath(m.Surface), err)
	}

	nt := MaskInvalid(temp, p.Threshold)
	ns := MaskInvalid(sal, p.Threshold)
	log.WithFields(logrus.Fields{
		"temperature": nt,
		"salinity":    ns,
		"threshold":   p.Threshold,
	}).Info("masked invalid values")

	tr := &Transformer{Seawater: p.Seawater, LevelsPerChunk: p.LevelsPerChunk, Log: log}
	log.Info("calculating pressure from depth")
	pres, err := tr.Pressure(grid.depth, grid.lat, len(grid.lon))
	if err != nil {
		return fmt.Errorf("woaic: month %s: %w", m, err)
	}
	sa, err := tr.AbsoluteSalinity(sal, pres, grid.lon, grid.lat)
	if err != nil {
		return fmt.Errorf("woaic: month %s: %w", m, err)
	}
	ct, err := tr.ConservativeTemperature(sa, temp, pres)
	if err != nil {
		return fmt.Errorf("woaic: month %s: %w", m, err)
	}
	lo, hi, n := ct.Summary()
	log.WithFields(logrus.Fields{"min": lo, "max": hi, "valid": n}).Info("conservative temperature")

	path := p.DestinationPath(m)
	log.WithField("file", path).Info("updating destination file")
	dst, err := ncedit.Open(path)
	if err != nil {
		return fmt.Errorf("woaic: month %s: %w", m, err)
	}
	defer dst.Close()

	if err := ReconcileTime(dst, units.Origin, m); err != nil {
		return fmt.Errorf("woaic: month %s: %w", m, err)
	}
	if err := WriteOutput(dst, sal, ct, DefaultMetadata(p.Program), p.now()); err != nil {
		return fmt.Errorf("woaic: month %s: %w", m, err)
	}
	if err := dst.Commit(); err != nil {
		return fmt.Errorf("woaic: month %s: %w", m, err)
	}
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("month complete")
	return nil
}
