// Package dataframe implements the DataFrame arena backing store: typed
// columns, CSV I/O, and the small set of summary/reshaping operations
// exposed to XDL programs via method dispatch (spec.md §4.4, §6). Grounded
// on the teacher's database package (internal/database/db_manager.go) for
// the overall "typed tabular store with a string-keyed method surface"
// shape, adapted from a SQL row-set to an in-memory columnar frame.
package dataframe

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	xerrors "xdl/internal/errors"
	"xdl/internal/value"
)

// ColKind tags a Column's storage.
type ColKind int

const (
	ColNumeric ColKind = iota
	ColString
)

// Column is one named column; exactly one of Nums/Strs is populated
// according to Kind.
type Column struct {
	Name string
	Kind ColKind
	Nums []float64
	Strs []string
}

func (c Column) Len() int {
	if c.Kind == ColNumeric {
		return len(c.Nums)
	}
	return len(c.Strs)
}

// DataFrame is a typed, column-oriented table. ID is the external stable
// handle exposed to consumers (TOJSON export, GUI bridge) independent of
// the context arena's internal integer id (SPEC_FULL.md §3).
type DataFrame struct {
	ID      uuid.UUID
	Columns []Column
}

func New(columns []Column) *DataFrame {
	return &DataFrame{ID: uuid.New(), Columns: columns}
}

func (df *DataFrame) NRows() int {
	if len(df.Columns) == 0 {
		return 0
	}
	return df.Columns[0].Len()
}

func (df *DataFrame) NCols() int { return len(df.Columns) }

func (df *DataFrame) ColumnNames() []string {
	names := make([]string, len(df.Columns))
	for i, c := range df.Columns {
		names[i] = c.Name
	}
	return names
}

func (df *DataFrame) column(name string) (*Column, bool) {
	for i := range df.Columns {
		if strings.EqualFold(df.Columns[i].Name, name) {
			return &df.Columns[i], true
		}
	}
	return nil, false
}

// Column returns a column's contents as a Value: an Array for numeric
// columns, a NestedArray of strings otherwise.
func (df *DataFrame) Column(name string) (value.Value, error) {
	col, ok := df.column(name)
	if !ok {
		return value.Undefined, xerrors.New(xerrors.InvalidArgument, "no such column %q", name)
	}
	if col.Kind == ColNumeric {
		return value.Array(col.Nums), nil
	}
	rows := make([]value.Value, len(col.Strs))
	for i, s := range col.Strs {
		rows[i] = value.String(s)
	}
	return value.NestedArray(rows), nil
}

// Row returns row i as a Struct keyed by column name.
func (df *DataFrame) Row(i int) (value.Value, error) {
	n := df.NRows()
	if i < 0 {
		i = n + i
	}
	if i < 0 || i >= n {
		return value.Undefined, xerrors.New(xerrors.InvalidArgument, "row index %d out of range [0,%d)", i, n)
	}
	fields := make(map[string]value.Value, len(df.Columns))
	for _, c := range df.Columns {
		if c.Kind == ColNumeric {
			fields[c.Name] = value.Double(c.Nums[i])
		} else {
			fields[c.Name] = value.String(c.Strs[i])
		}
	}
	return value.Struct(fields), nil
}

func (df *DataFrame) slice(lo, hi int) *DataFrame {
	out := make([]Column, len(df.Columns))
	for i, c := range df.Columns {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == ColNumeric {
			nc.Nums = append([]float64(nil), c.Nums[lo:hi]...)
		} else {
			nc.Strs = append([]string(nil), c.Strs[lo:hi]...)
		}
		out[i] = nc
	}
	return New(out)
}

func (df *DataFrame) Head(n int) *DataFrame {
	if n > df.NRows() {
		n = df.NRows()
	}
	return df.slice(0, n)
}

func (df *DataFrame) Tail(n int) *DataFrame {
	total := df.NRows()
	if n > total {
		n = total
	}
	return df.slice(total-n, total)
}

// Describe renders a fixed per-column summary: count, and for numeric
// columns min/max/mean.
func (df *DataFrame) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DataFrame: %d rows x %d cols\n", df.NRows(), df.NCols())
	for _, c := range df.Columns {
		if c.Kind == ColNumeric {
			min, max, sum := c.Nums[0], c.Nums[0], 0.0
			for _, v := range c.Nums {
				if v < min {
					min = v
				}
				if v > max {
					max = v
				}
				sum += v
			}
			mean := sum / float64(len(c.Nums))
			fmt.Fprintf(&sb, "  %s: numeric count=%d min=%g max=%g mean=%g\n", c.Name, len(c.Nums), min, max, mean)
		} else {
			fmt.Fprintf(&sb, "  %s: string count=%d\n", c.Name, len(c.Strs))
		}
	}
	return sb.String()
}

// Select returns a new DataFrame containing only the named columns, in
// the order requested.
func (df *DataFrame) Select(names ...string) (*DataFrame, error) {
	out := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := df.column(n)
		if !ok {
			return nil, xerrors.New(xerrors.InvalidArgument, "no such column %q", n)
		}
		out = append(out, *c)
	}
	return New(out), nil
}

// SortBy reorders every column's rows by the given column's values.
func (df *DataFrame) SortBy(name string, ascending bool) (*DataFrame, error) {
	col, ok := df.column(name)
	if !ok {
		return nil, xerrors.New(xerrors.InvalidArgument, "no such column %q", name)
	}
	n := df.NRows()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	less := func(i, j int) bool {
		if col.Kind == ColNumeric {
			return col.Nums[order[i]] < col.Nums[order[j]]
		}
		return col.Strs[order[i]] < col.Strs[order[j]]
	}
	if ascending {
		sort.SliceStable(order, less)
	} else {
		sort.SliceStable(order, func(i, j int) bool { return less(j, i) })
	}
	out := make([]Column, len(df.Columns))
	for ci, c := range df.Columns {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == ColNumeric {
			nc.Nums = make([]float64, n)
			for i, o := range order {
				nc.Nums[i] = c.Nums[o]
			}
		} else {
			nc.Strs = make([]string, n)
			for i, o := range order {
				nc.Strs[i] = c.Strs[o]
			}
		}
		out[ci] = nc
	}
	return New(out), nil
}

// ToJSON renders the frame as a JSON array of row objects, in column
// order, keyed by the external uuid handle for cross-process correlation
// (SPEC_FULL.md §3).
func (df *DataFrame) ToJSON() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `{"id":"%s","rows":[`, df.ID)
	for i := 0; i < df.NRows(); i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("{")
		for ci, c := range df.Columns {
			if ci > 0 {
				sb.WriteString(",")
			}
			if c.Kind == ColNumeric {
				fmt.Fprintf(&sb, "%q:%s", c.Name, strconv.FormatFloat(c.Nums[i], 'g', -1, 64))
			} else {
				fmt.Fprintf(&sb, "%q:%q", c.Name, c.Strs[i])
			}
		}
		sb.WriteString("}")
	}
	sb.WriteString("]}")
	return sb.String()
}

// ReadCSV reads a UTF-8 CSV file, first row as header, with a
// single-byte configurable delimiter (spec.md §6). Columns whose every
// data row parses as a float are stored numeric; otherwise string.
func ReadCSV(path string, delim rune) (*DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.New(xerrors.RuntimeErr, "opening %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if delim != 0 {
		r.Comma = delim
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, xerrors.New(xerrors.RuntimeErr, "reading csv %s: %v", path, err)
	}
	if len(records) == 0 {
		return New(nil), nil
	}
	header := records[0]
	rows := records[1:]
	cols := make([]Column, len(header))
	for ci, name := range header {
		numeric := true
		nums := make([]float64, len(rows))
		strs := make([]string, len(rows))
		for ri, row := range rows {
			var cell string
			if ci < len(row) {
				cell = row[ci]
			}
			strs[ri] = cell
			if numeric {
				f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
				if err != nil {
					numeric = false
					continue
				}
				nums[ri] = f
			}
		}
		if numeric {
			cols[ci] = Column{Name: name, Kind: ColNumeric, Nums: nums}
		} else {
			cols[ci] = Column{Name: name, Kind: ColString, Strs: strs}
		}
	}
	return New(cols), nil
}

// WriteCSV writes the frame back out in the same header-plus-rows shape.
func (df *DataFrame) WriteCSV(path string, delim rune) error {
	f, err := os.Create(path)
	if err != nil {
		return xerrors.New(xerrors.RuntimeErr, "creating %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if delim != 0 {
		w.Comma = delim
	}
	defer w.Flush()

	if err := w.Write(df.ColumnNames()); err != nil {
		return xerrors.New(xerrors.RuntimeErr, "writing header: %v", err)
	}
	for i := 0; i < df.NRows(); i++ {
		row := make([]string, len(df.Columns))
		for ci, c := range df.Columns {
			if c.Kind == ColNumeric {
				row[ci] = strconv.FormatFloat(c.Nums[i], 'g', -1, 64)
			} else {
				row[ci] = c.Strs[i]
			}
		}
		if err := w.Write(row); err != nil {
			return xerrors.New(xerrors.RuntimeErr, "writing row %d: %v", i, err)
		}
	}
	return nil
}
