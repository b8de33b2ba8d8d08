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

package ncedit

import (
	"io"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/kr/pretty"
)

const fill32 = float32(9.96921e+36)

// writeFixture creates a small record-oriented dataset with one record.
func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.nc")
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	h := cdf.NewHeader([]string{"time", "depth", "lat", "nbounds"}, []int{0, 2, 3, 2})
	h.AddAttribute("", "featureType", "Grid")
	h.AddAttribute("", "id", "fixture")
	h.AddAttribute("", "history", "created")
	h.AddVariable("time", []string{"time"}, []float32{})
	h.AddAttribute("time", "units", "months since 2005-01-01 00:00:00")
	h.AddVariable("climatology_bounds", []string{"time", "nbounds"}, []float32{})
	h.AddVariable("depth", []string{"depth"}, []float32{})
	h.AddVariable("s", []string{"time", "depth", "lat"}, []float32{})
	h.AddAttribute("s", "_FillValue", []float32{fill32})
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		t.Fatal(err)
	}
	write := func(v string, end []int, data []float32) {
		if _, err := f.Writer(v, nil, end).Write(data); err != nil && err != io.EOF {
			t.Fatal(err)
		}
	}
	write("time", []int{0}, []float32{0.5})
	write("climatology_bounds", []int{0, 1}, []float32{0, 1})
	write("depth", []int{1}, []float32{0, 10})
	write("s", []int{0, 1, 2}, []float32{34, 35, fill32, 36, 37, 38})
	if err := cdf.UpdateNumRecs(w); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.nc")); err == nil {
		t.Fatal("expected an error opening a missing file")
	}
}

func TestOpenHDF5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "woa23_decav_ts_01_04.nc")
	data := append([]byte("\x89HDF\r\n\x1a\n"), make([]byte, 504)...)
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected an error opening a netCDF-4 file")
	}
	if !strings.Contains(err.Error(), "classic netCDF") || !strings.Contains(err.Error(), path) {
		t.Errorf("err = %v; want it to name the file and the classic format", err)
	}
}

func TestReadFloat64(t *testing.T) {
	f, err := Open(writeFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	shape, err := f.Shape("s")
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 2, 3}; !reflect.DeepEqual(shape, want) {
		t.Errorf("shape: have %v, want %v", shape, want)
	}
	s, err := f.ReadFloat64("s")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{34, 35, math.NaN(), 36, 37, 38}
	for i, w := range want {
		h := s.Elements[i]
		if math.IsNaN(w) != math.IsNaN(h) || (!math.IsNaN(w) && h != w) {
			t.Errorf("element %d: have %g, want %g", i, h, w)
		}
	}
	if _, err := f.ReadFloat64("nothere"); err == nil {
		t.Error("expected an error reading a missing variable")
	}
}

func TestEditAndCommit(t *testing.T) {
	path := writeFixture(t)
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := f.DeleteAttribute("", "id"); err != nil {
		t.Fatal(err)
	}
	if err := f.DeleteAttribute("", "id"); err == nil {
		t.Error("expected an error deleting an absent attribute")
	}
	if err := f.SetAttribute("", "Conventions", "CF-1.10"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetAttribute("time", "units", "days since 2005-01-01 00:00:00"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetAttribute("", "bad", 3); err == nil {
		t.Error("expected an error for an unsupported attribute type")
	}
	if err := f.AddVariable("ct", []string{"time", "depth", "lat"}, []float32{}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddVariable("ct", []string{"time", "depth", "lat"}, []float32{}); err == nil {
		t.Error("expected an error adding a variable twice")
	}
	if err := f.AddVariable("bad", []string{"depth", "time"}, []float32{}); err == nil {
		t.Error("expected an error for a record dimension that is not first")
	}
	if err := f.SetAttribute("ct", "_FillValue", []float32{fill32}); err != nil {
		t.Fatal(err)
	}

	ct := sparse.ZerosDense(2, 3)
	copy(ct.Elements, []float64{1, 2, math.NaN(), 4, 5, 6})
	if err := f.WriteFloat64("ct", ct); err != nil {
		t.Fatal(err)
	}
	if err := f.WriteFloat64("ct", sparse.ZerosDense(3, 2)); err == nil {
		t.Error("expected an error for mismatched shape")
	}
	tm := sparse.ZerosDense(1)
	tm.Elements[0] = 15.5
	if err := f.WriteFloat64("time", tm); err != nil {
		t.Fatal(err)
	}
	if err := f.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	g, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	attrs, err := g.Attributes("")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"featureType", "history", "Conventions"}; !reflect.DeepEqual(attrs, want) {
		t.Errorf("global attributes: %v", pretty.Diff(attrs, want))
	}
	if u, _ := g.Attribute("time", "units"); u != "days since 2005-01-01 00:00:00" {
		t.Errorf("time units: %v", u)
	}
	if want := []string{"time", "climatology_bounds", "depth", "s", "ct"}; !reflect.DeepEqual(g.Variables(), want) {
		t.Errorf("variables: %v", pretty.Diff(g.Variables(), want))
	}

	have, err := g.ReadFloat64("ct")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(have.Shape, []int{1, 2, 3}) {
		t.Errorf("ct shape: %v", have.Shape)
	}
	for i, w := range ct.Elements {
		h := have.Elements[i]
		if math.IsNaN(w) != math.IsNaN(h) || (!math.IsNaN(w) && h != w) {
			t.Errorf("ct element %d: have %g, want %g", i, h, w)
		}
	}

	// Untouched variables survive the rewrite.
	cb, err := g.ReadFloat64("climatology_bounds")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cb.Elements, []float64{0, 1}) {
		t.Errorf("climatology_bounds: %v", cb.Elements)
	}
	s, err := g.ReadFloat64("s")
	if err != nil {
		t.Fatal(err)
	}
	if s.Elements[5] != 38 || !math.IsNaN(s.Elements[2]) {
		t.Errorf("s: %v", s.Elements)
	}
	tv, err := g.ReadFloat64("time")
	if err != nil {
		t.Fatal(err)
	}
	if tv.Elements[0] != 15.5 {
		t.Errorf("time: %v", tv.Elements)
	}
}

func TestCloseDiscards(t *testing.T) {
	path := writeFixture(t)
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.DeleteAttribute("", "featureType"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	g, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()
	if _, ok := g.Attribute("", "featureType"); !ok {
		t.Error("uncommitted deletion reached the file")
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".fixture.nc.*"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestCommitNeedsDirectory(t *testing.T) {
	path := writeFixture(t)
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		t.Fatal(err)
	}
	err = f.Commit()
	if err == nil {
		t.Fatal("expected an error committing without a directory to write to")
	}
	if !strings.Contains(err.Error(), "must be writable") {
		t.Errorf("err = %v", err)
	}
}
