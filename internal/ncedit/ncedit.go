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

// Package ncedit updates existing NetCDF classic files.
//
// A header read by the cdf package cannot be changed, so edits to a File are
// staged in memory and Commit rewrites the whole dataset to a temporary file
// next to the original, which then replaces it.
package ncedit

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

type attribute struct {
	name  string
	value interface{}
}

type variable struct {
	name  string
	dims  []string
	proto interface{} // zero-length value of the stored type
	attrs []attribute

	// staged holds replacement data in the stored type for the full
	// variable, or nil if the data on disk is current.
	staged interface{}
	added  bool
}

// File is a NetCDF classic file opened for update.
type File struct {
	path string
	f    *os.File
	cf   *cdf.File
	mode os.FileMode

	dims    []string
	lengths []int // the record dimension has length 0
	nrec    int

	globals []attribute
	vars    []*variable
}

// Open opens the existing NetCDF classic file at path for update.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("ncedit: opening %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ncedit: opening %s: %w", path, err)
	}
	if isHDF5(f) {
		f.Close()
		return nil, fmt.Errorf("ncedit: %s is a netCDF-4/HDF5 file; only classic netCDF files can be updated", path)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ncedit: reading header of %s: %w", path, err)
	}
	h := cf.Header
	o := &File{
		path:    path,
		f:       f,
		cf:      cf,
		mode:    fi.Mode().Perm(),
		dims:    h.Dimensions(""),
		lengths: h.Lengths(""),
		nrec:    int(h.NumRecs(fi.Size())),
	}
	for _, a := range h.Attributes("") {
		o.globals = append(o.globals, attribute{name: a, value: h.GetAttribute("", a)})
	}
	for _, name := range h.Variables() {
		v := &variable{name: name, dims: h.Dimensions(name), proto: h.ZeroValue(name, 0)}
		for _, a := range h.Attributes(name) {
			v.attrs = append(v.attrs, attribute{name: a, value: h.GetAttribute(name, a)})
		}
		o.vars = append(o.vars, v)
	}
	return o, nil
}

// hdf5Signature starts every netCDF-4 file.
var hdf5Signature = []byte("\x89HDF\r\n\x1a\n")

func isHDF5(r io.ReaderAt) bool {
	buf := make([]byte, len(hdf5Signature))
	if _, err := r.ReadAt(buf, 0); err != nil {
		return false
	}
	return bytes.Equal(buf, hdf5Signature)
}

// Path returns the location of the file on disk.
func (f *File) Path() string { return f.path }

// Variables returns the names of the variables in the file, in file order.
func (f *File) Variables() []string {
	r := make([]string, len(f.vars))
	for i, v := range f.vars {
		r[i] = v.name
	}
	return r
}

// HasVariable returns whether variable v exists.
func (f *File) HasVariable(v string) bool {
	_, err := f.lookup(v)
	return err == nil
}

func (f *File) lookup(v string) (*variable, error) {
	for _, vv := range f.vars {
		if vv.name == v {
			return vv, nil
		}
	}
	return nil, fmt.Errorf("ncedit: %s: no variable named %q", f.path, v)
}

func (f *File) dimLength(d string) (int, bool) {
	for i, name := range f.dims {
		if name == d {
			if f.lengths[i] == 0 {
				return f.nrec, true
			}
			return f.lengths[i], true
		}
	}
	return 0, false
}

func (f *File) isRecordDim(d string) bool {
	for i, name := range f.dims {
		if name == d {
			return f.lengths[i] == 0
		}
	}
	return false
}

// Dimensions returns the dimension names of variable v.
func (f *File) Dimensions(v string) ([]string, error) {
	vv, err := f.lookup(v)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), vv.dims...), nil
}

// Shape returns the current lengths of the dimensions of variable v. The
// record dimension has the number of records in the file.
func (f *File) Shape(v string) ([]int, error) {
	vv, err := f.lookup(v)
	if err != nil {
		return nil, err
	}
	return f.shape(vv), nil
}

func (f *File) shape(vv *variable) []int {
	s := make([]int, len(vv.dims))
	for i, d := range vv.dims {
		s[i], _ = f.dimLength(d)
	}
	return s
}

func (f *File) attrs(v string) (*[]attribute, error) {
	if v == "" {
		return &f.globals, nil
	}
	vv, err := f.lookup(v)
	if err != nil {
		return nil, err
	}
	return &vv.attrs, nil
}

// Attributes returns the attribute names of variable v, or the global
// attribute names if v is empty.
func (f *File) Attributes(v string) ([]string, error) {
	a, err := f.attrs(v)
	if err != nil {
		return nil, err
	}
	r := make([]string, len(*a))
	for i, aa := range *a {
		r[i] = aa.name
	}
	return r, nil
}

// Attribute returns the value of attribute a of variable v, or of the
// global attribute a if v is empty. The value is one of
// []uint8, string, []int16, []int32, []float32 or []float64.
func (f *File) Attribute(v, a string) (interface{}, bool) {
	attrs, err := f.attrs(v)
	if err != nil {
		return nil, false
	}
	for _, aa := range *attrs {
		if aa.name == a {
			return aa.value, true
		}
	}
	return nil, false
}

// SetAttribute creates or replaces attribute a of variable v (global if v
// is empty). Existing attributes keep their position.
func (f *File) SetAttribute(v, a string, value interface{}) error {
	if !validValue(value) {
		return fmt.Errorf("ncedit: %s: attribute %s:%s has unsupported type %T", f.path, v, a, value)
	}
	attrs, err := f.attrs(v)
	if err != nil {
		return err
	}
	for i, aa := range *attrs {
		if aa.name == a {
			(*attrs)[i].value = value
			return nil
		}
	}
	*attrs = append(*attrs, attribute{name: a, value: value})
	return nil
}

// DeleteAttribute removes attribute a of variable v (global if v is
// empty). It is an error for the attribute not to exist.
func (f *File) DeleteAttribute(v, a string) error {
	attrs, err := f.attrs(v)
	if err != nil {
		return err
	}
	for i, aa := range *attrs {
		if aa.name == a {
			*attrs = append((*attrs)[:i], (*attrs)[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("ncedit: %s: cannot delete attribute %s:%s: not found", f.path, v, a)
}

// AddVariable defines a new variable with the given dimensions. The stored
// type is the type of proto, which must be one of []uint8, []int16,
// []int32, []float32 or []float64. Until it is written the variable holds
// its fill value.
func (f *File) AddVariable(v string, dims []string, proto interface{}) error {
	if f.HasVariable(v) {
		return fmt.Errorf("ncedit: %s: variable %q already exists", f.path, v)
	}
	switch proto.(type) {
	case []uint8, []int16, []int32, []float32, []float64:
	default:
		return fmt.Errorf("ncedit: %s: variable %q has unsupported type %T", f.path, v, proto)
	}
	for i, d := range dims {
		if _, ok := f.dimLength(d); !ok {
			return fmt.Errorf("ncedit: %s: variable %q: no dimension named %q", f.path, v, d)
		}
		if i != 0 && f.isRecordDim(d) {
			return fmt.Errorf("ncedit: %s: variable %q: record dimension %q must be first", f.path, v, d)
		}
	}
	f.vars = append(f.vars, &variable{
		name:  v,
		dims:  append([]string(nil), dims...),
		proto: zero(proto, 0),
		added: true,
	})
	return nil
}

// ReadFloat64 returns the full contents of variable v converted to float64.
// Values equal to the variable's fill value are returned as NaN.
func (f *File) ReadFloat64(v string) (*sparse.DenseArray, error) {
	vv, err := f.lookup(v)
	if err != nil {
		return nil, err
	}
	raw, err := f.current(vv)
	if err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(f.shape(vv)...)
	vals, err := toFloat64(raw)
	if err != nil {
		return nil, fmt.Errorf("ncedit: %s: reading %s: %w", f.path, v, err)
	}
	if len(vals) != len(out.Elements) {
		return nil, fmt.Errorf("ncedit: %s: reading %s: shape is %v but %d values were read",
			f.path, v, out.Shape, len(vals))
	}
	fill := f.fillValue(vv)
	for i, x := range vals {
		if x == fill {
			x = math.NaN()
		}
		out.Elements[i] = x
	}
	return out, nil
}

// WriteFloat64 replaces the contents of variable v with data. If data has
// one dimension fewer than a record variable, it is written to the first
// record. NaN values are stored as the variable's fill value.
func (f *File) WriteFloat64(v string, data *sparse.DenseArray) error {
	vv, err := f.lookup(v)
	if err != nil {
		return err
	}
	shape := f.shape(vv)
	target := shape
	oneRecord := false
	if len(vv.dims) > 0 && f.isRecordDim(vv.dims[0]) && len(data.Shape) == len(shape)-1 {
		if f.nrec == 0 {
			return fmt.Errorf("ncedit: %s: writing %s: file has no records", f.path, v)
		}
		target = shape[1:]
		oneRecord = true
	}
	if !sameShape(target, data.Shape) {
		return fmt.Errorf("ncedit: %s: writing %s: variable shape is %v but data shape is %v",
			f.path, v, shape, data.Shape)
	}
	fill := f.fillValue(vv)
	if !oneRecord {
		vals, err := fromFloat64(data.Elements, vv.proto, fill)
		if err != nil {
			return fmt.Errorf("ncedit: %s: writing %s: %w", f.path, v, err)
		}
		vv.staged = vals
		return nil
	}
	cur, err := f.current(vv)
	if err != nil {
		return err
	}
	all, err := toFloat64(cur)
	if err != nil {
		return fmt.Errorf("ncedit: %s: writing %s: %w", f.path, v, err)
	}
	copy(all, data.Elements)
	vals, err := fromFloat64(all, vv.proto, fill)
	if err != nil {
		return fmt.Errorf("ncedit: %s: writing %s: %w", f.path, v, err)
	}
	vv.staged = vals
	return nil
}

// fillValue returns the value that marks missing data in vv, following the
// same rule as the cdf package: a scalar _FillValue attribute of the
// variable's own type, otherwise the default for the type.
func (f *File) fillValue(vv *variable) float64 {
	for _, a := range vv.attrs {
		if a.name != "_FillValue" {
			continue
		}
		if sameType(a.value, vv.proto) {
			if vals, err := toFloat64(a.value); err == nil && len(vals) == 1 {
				return vals[0]
			}
		}
	}
	switch vv.proto.(type) {
	case []uint8:
		return -127
	case []int16:
		return -32767
	case []int32:
		return -2147483647
	case []float32:
		return float64(float32(9.9692099683868690e+36))
	}
	return 9.9692099683868690e+36
}

// current returns the full data of vv in its stored type.
func (f *File) current(vv *variable) (interface{}, error) {
	if vv.staged != nil {
		return vv.staged, nil
	}
	n := size(f.shape(vv))
	if vv.added {
		fill := f.fillValue(vv)
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = fill
		}
		return fromFloat64(vals, vv.proto, fill)
	}
	return f.read(vv.name, f.shape(vv))
}

// read reads a variable as it exists in the original file.
func (f *File) read(v string, shape []int) (interface{}, error) {
	n := size(shape)
	r := f.cf.Reader(v, nil, lastIndex(shape))
	if n == 0 {
		return r.Zero(0), nil
	}
	buf := r.Zero(n)
	if _, ok := buf.(string); ok {
		buf = make([]uint8, n)
	}
	if _, err := r.Read(buf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("ncedit: %s: reading %s: %w", f.path, v, err)
	}
	return buf, nil
}

// Commit writes the file with all staged changes to a temporary file in
// the same directory and renames it over the original, so the directory as
// well as the file must be writable. The File remains usable for further
// edits.
func (f *File) Commit() error {
	h := cdf.NewHeader(f.dims, f.lengths)
	for _, a := range f.globals {
		h.AddAttribute("", a.name, a.value)
	}
	for _, vv := range f.vars {
		h.AddVariable(vv.name, vv.dims, vv.proto)
		for _, a := range vv.attrs {
			h.AddAttribute(vv.name, a.name, a.value)
		}
	}
	h.Define()

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("ncedit: committing %s: directory %s must be writable: %w", f.path, dir, err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if err := f.writeTo(tmp, h); err != nil {
		tmp.Close()
		return fmt.Errorf("ncedit: committing %s: %w", f.path, err)
	}
	if err := tmp.Chmod(f.mode); err != nil {
		tmp.Close()
		return fmt.Errorf("ncedit: committing %s: %w", f.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("ncedit: committing %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		tmp.Close()
		return fmt.Errorf("ncedit: committing %s: %w", f.path, err)
	}

	// The new file is now the one being edited.
	f.f.Close()
	f.f = tmp
	f.cf, err = cdf.Open(tmp)
	if err != nil {
		return fmt.Errorf("ncedit: reopening %s: %w", f.path, err)
	}
	for _, vv := range f.vars {
		vv.staged = nil
		vv.added = false
	}
	return nil
}

func (f *File) writeTo(w *os.File, h *cdf.Header) error {
	out, err := cdf.Create(w, h)
	if err != nil {
		return err
	}
	for _, vv := range f.vars {
		shape := f.shape(vv)
		if size(shape) == 0 {
			continue
		}
		data, err := f.current(vv)
		if err != nil {
			return err
		}
		if s, ok := data.(string); ok {
			data = []uint8(s)
		}
		n, err := out.Writer(vv.name, nil, lastIndex(shape)).Write(data)
		if err != nil && !(err == io.EOF && n == size(shape)) {
			return fmt.Errorf("writing variable %s: %v", vv.name, err)
		}
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		return err
	}
	return f.padRecords(w, h)
}

// padRecords extends w until its size accounts for all records. The last
// record may end short of the slab size by the padding of its final
// variable.
func (f *File) padRecords(w *os.File, h *cdf.Header) error {
	if f.nrec == 0 {
		return nil
	}
	for i := 0; i < 4; i++ {
		fi, err := w.Stat()
		if err != nil {
			return err
		}
		if int(h.NumRecs(fi.Size())) >= f.nrec {
			if i > 0 {
				return cdf.UpdateNumRecs(w)
			}
			return nil
		}
		if err := w.Truncate(fi.Size() + 1); err != nil {
			return err
		}
	}
	return fmt.Errorf("file holds fewer than %d records", f.nrec)
}

// Close releases the file handle. Uncommitted changes are discarded.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	return err
}

func size(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// lastIndex returns the index of the final element of an array with the
// given shape, which the cdf package uses as an inclusive end.
func lastIndex(shape []int) []int {
	if len(shape) == 0 {
		return nil
	}
	end := make([]int, len(shape))
	for i, s := range shape {
		end[i] = s - 1
	}
	return end
}

func sameShape(a, b []int) bool {
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

func validValue(v interface{}) bool {
	switch v.(type) {
	case []uint8, string, []int16, []int32, []float32, []float64:
		return true
	}
	return false
}

func sameType(a, b interface{}) bool {
	return fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
}

func zero(proto interface{}, n int) interface{} {
	switch proto.(type) {
	case []uint8:
		return make([]uint8, n)
	case []int16:
		return make([]int16, n)
	case []int32:
		return make([]int32, n)
	case []float32:
		return make([]float32, n)
	case []float64:
		return make([]float64, n)
	}
	return ""
}

func toFloat64(v interface{}) ([]float64, error) {
	switch t := v.(type) {
	case []uint8:
		o := make([]float64, len(t))
		for i, x := range t {
			o[i] = float64(int8(x))
		}
		return o, nil
	case []int16:
		o := make([]float64, len(t))
		for i, x := range t {
			o[i] = float64(x)
		}
		return o, nil
	case []int32:
		o := make([]float64, len(t))
		for i, x := range t {
			o[i] = float64(x)
		}
		return o, nil
	case []float32:
		o := make([]float64, len(t))
		for i, x := range t {
			o[i] = float64(x)
		}
		return o, nil
	case []float64:
		return append([]float64(nil), t...), nil
	}
	return nil, fmt.Errorf("cannot convert %T to float64", v)
}

// fromFloat64 converts vals to the type of proto, storing NaN as fill.
func fromFloat64(vals []float64, proto interface{}, fill float64) (interface{}, error) {
	get := func(x float64) float64 {
		if math.IsNaN(x) {
			return fill
		}
		return x
	}
	switch proto.(type) {
	case []uint8:
		o := make([]uint8, len(vals))
		for i, x := range vals {
			o[i] = uint8(int8(math.Round(get(x))))
		}
		return o, nil
	case []int16:
		o := make([]int16, len(vals))
		for i, x := range vals {
			o[i] = int16(math.Round(get(x)))
		}
		return o, nil
	case []int32:
		o := make([]int32, len(vals))
		for i, x := range vals {
			o[i] = int32(math.Round(get(x)))
		}
		return o, nil
	case []float32:
		o := make([]float32, len(vals))
		for i, x := range vals {
			o[i] = float32(get(x))
		}
		return o, nil
	case []float64:
		o := make([]float64, len(vals))
		for i, x := range vals {
			o[i] = get(x)
		}
		return o, nil
	}
	return nil, fmt.Errorf("cannot store float64 values as %T", proto)
}
