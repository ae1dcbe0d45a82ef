// Package ncio writes the WRF-Hydro parameter tables and routing grids as
// NetCDF classic files.
//
// Tables share the unlimited record dimension feature_id and are written
// one record at a time. Grids are written north-up on (y, x) with CF
// coordinate variables and a crs variable carrying the projection.
package ncio

import (
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

// RecordDim is the record dimension of every table.
const RecordDim = "feature_id"

// Kind is the NetCDF external type of a variable.
type Kind int

const (
	Int16 Kind = iota
	Int32
	Float32
	Float64
	Char
)

func (k Kind) String() string {
	switch k {
	case Int16:
		return "short"
	case Int32:
		return "int"
	case Float32:
		return "float"
	case Float64:
		return "double"
	case Char:
		return "char"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// template is the zero-length value cdf uses to infer a variable type.
func (k Kind) template() any {
	switch k {
	case Int16:
		return []int16{0}
	case Int32:
		return []int32{0}
	case Float32:
		return []float32{0}
	case Char:
		return ""
	default:
		return []float64{0}
	}
}

// Attr is a variable or global attribute. Value is a string, []int32,
// []float32 or []float64.
type Attr struct {
	Name  string
	Value any
}

// Column is one table variable. Numeric columns read Values; Char columns
// read Text, each entry padded or cut to the table's StrLen.
type Column struct {
	Name   string
	Kind   Kind
	Attrs  []Attr
	Values []float64
	Text   []string
}

// Table is a set of equal-length columns on the feature_id dimension.
type Table struct {
	Records int
	StrDim  string // dimension of Char columns, e.g. IDLength
	StrLen  int
	Global  []Attr
	Columns []Column
}

func (t Table) check() error {
	for _, c := range t.Columns {
		n := len(c.Values)
		if c.Kind == Char {
			n = len(c.Text)
			if t.StrLen <= 0 || t.StrDim == "" {
				return fmt.Errorf("char column %s needs a string dimension", c.Name)
			}
		}
		if n != t.Records {
			return fmt.Errorf("column %s has %d values, table has %d records", c.Name, n, t.Records)
		}
	}
	return nil
}

func (t Table) header() *cdf.Header {
	dims, lengths := []string{RecordDim}, []int{0}
	if t.StrDim != "" {
		dims = append(dims, t.StrDim)
		lengths = append(lengths, t.StrLen)
	}
	h := cdf.NewHeader(dims, lengths)
	for _, a := range t.Global {
		h.AddAttribute("", a.Name, a.Value)
	}
	for _, c := range t.Columns {
		vdims := []string{RecordDim}
		if c.Kind == Char {
			vdims = append(vdims, t.StrDim)
		}
		h.AddVariable(c.Name, vdims, c.Kind.template())
		for _, a := range c.Attrs {
			h.AddAttribute(c.Name, a.Name, a.Value)
		}
	}
	h.Define()
	return h
}

// WriteTable creates path and writes t into it.
func WriteTable(path string, t Table) error {
	const op = "ncio.WriteTable"
	if err := t.check(); err != nil {
		return hydroerr.IO(op, path, err)
	}
	h := t.header()
	if err := headerError(h); err != nil {
		return hydroerr.IO(op, path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return hydroerr.IO(op, path, err)
	}
	defer f.Close()

	nc, err := cdf.Create(f, h)
	if err != nil {
		return hydroerr.IO(op, path, err)
	}
	for _, c := range t.Columns {
		if err := writeColumn(nc, c, t.StrLen); err != nil {
			return hydroerr.IO(op, path, fmt.Errorf("variable %s: %w", c.Name, err))
		}
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		return hydroerr.IO(op, path, err)
	}
	return f.Close()
}

func writeColumn(nc *cdf.File, c Column, strLen int) error {
	if c.Kind == Char {
		for i, s := range c.Text {
			w := nc.Writer(c.Name, []int{i, 0}, []int{i + 1, 0})
			if _, err := w.Write(fixed(s, strLen)); err != nil {
				return err
			}
		}
		return nil
	}
	for i, v := range c.Values {
		w := nc.Writer(c.Name, []int{i}, []int{i + 1})
		if _, err := w.Write(convert(c.Kind, []float64{v}, 0)); err != nil {
			return err
		}
	}
	return nil
}

// convert narrows values to the Go slice type of k. NaN becomes fill.
func convert(k Kind, values []float64, fill float64) any {
	clean := func(v float64) float64 {
		if math.IsNaN(v) {
			return fill
		}
		return v
	}
	switch k {
	case Int16:
		out := make([]int16, len(values))
		for i, v := range values {
			out[i] = int16(math.Round(clean(v)))
		}
		return out
	case Int32:
		out := make([]int32, len(values))
		for i, v := range values {
			out[i] = int32(math.Round(clean(v)))
		}
		return out
	case Float32:
		out := make([]float32, len(values))
		for i, v := range values {
			out[i] = float32(clean(v))
		}
		return out
	default:
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = clean(v)
		}
		return out
	}
}

// fixed pads s with blanks or truncates it to n bytes.
func fixed(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + fmt.Sprintf("%*s", n-len(s), "")
}

func headerError(h *cdf.Header) error {
	for _, err := range h.Check() {
		if err != nil {
			return err
		}
	}
	return nil
}
