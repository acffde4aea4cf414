// Package frame is the table type used by the databank pipeline, backed by
// a gota DataFrame.
//
// Cells read back as one of nil (missing), string, int64, float64, bool or
// time.Time. Every transforming method returns a new Frame and leaves the
// receiver untouched.
package frame

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var ErrMissingColumn = errors.New("frame: missing column")

type Frame struct {
	df    dataframe.DataFrame
	cols  []string
	idx   map[string]int
	times map[string]bool
}

// New returns an empty frame with the given columns.
func New(cols ...string) *Frame {
	ss := make([]series.Series, len(cols))
	for i, c := range cols {
		ss[i] = series.New([]string{}, series.String, c)
	}
	return build(ss, nil)
}

// FromRows builds a frame from already typed rows. Rows shorter than the
// header are padded with nil.
func FromRows(cols []string, rows [][]any) *Frame {
	ss := make([]series.Series, len(cols))
	times := map[string]bool{}
	cells := make([]any, len(rows))
	for j, c := range cols {
		for i, r := range rows {
			cells[i] = nil
			if j < len(r) {
				cells[i] = r[j]
			}
		}
		s, isTime := newSeries(c, cells)
		ss[j] = s
		if isTime {
			times[c] = true
		}
	}
	return build(ss, times)
}

// Rows copies the cells out row by row.
func (f *Frame) Rows() [][]any {
	out := make([][]any, f.Len())
	for i := range out {
		row := make([]any, len(f.cols))
		for j := range f.cols {
			row[j] = f.cell(i, j)
		}
		out[i] = row
	}
	return out
}

// AppendRow adds a row in place. Each call rebuilds the frame, so bulk
// loads should go through FromRows.
func (f *Frame) AppendRow(vals ...any) {
	*f = *FromRows(f.cols, append(f.Rows(), vals))
}

func (f *Frame) cell(i, j int) any {
	return decode(f.df.Elem(i, j), f.times[f.cols[j]])
}

func (f *Frame) Columns() []string { return append([]string(nil), f.cols...) }
func (f *Frame) Len() int          { return f.df.Nrow() }

func (f *Frame) Has(col string) bool {
	_, ok := f.idx[col]
	return ok
}

// Missing reports the subset of cols absent from f.
func (f *Frame) Missing(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if !f.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Value returns the cell at row i, or nil when the column is absent.
func (f *Frame) Value(i int, col string) any {
	j, ok := f.idx[col]
	if !ok {
		return nil
	}
	return f.cell(i, j)
}

// Column copies one column out. Absent columns return nil.
func (f *Frame) Column(col string) []any {
	j, ok := f.idx[col]
	if !ok {
		return nil
	}
	out := make([]any, f.Len())
	for i := range out {
		out[i] = f.cell(i, j)
	}
	return out
}

// Row is a read view of one row.
type Row struct {
	f *Frame
	i int
}

func (r Row) Get(col string) any { return r.f.Value(r.i, col) }

func (r Row) String(col string) string { return Format(r.Get(col)) }

func (f *Frame) Row(i int) Row { return Row{f: f, i: i} }

func (f *Frame) Clone() *Frame {
	if len(f.cols) == 0 {
		return New()
	}
	return wrap(f.df.Copy(), f.times)
}

// RenameFunc renames every column through fn.
func (f *Frame) RenameFunc(fn func(string) string) *Frame {
	if len(f.cols) == 0 {
		return New()
	}
	df := f.df.Copy()
	names := make([]string, len(f.cols))
	times := map[string]bool{}
	for i, c := range f.cols {
		names[i] = fn(c)
		if f.times[c] {
			times[names[i]] = true
		}
	}
	if err := df.SetNames(names...); err != nil {
		return f.Clone()
	}
	return wrap(df, times)
}

// Rename renames the columns found in m and leaves the rest alone.
func (f *Frame) Rename(m map[string]string) *Frame {
	return f.RenameFunc(func(c string) string {
		if n, ok := m[c]; ok {
			return n
		}
		return c
	})
}

func (f *Frame) LowerHeaders() *Frame {
	return f.RenameFunc(strings.ToLower)
}

// Insert adds a column at position pos (clamped) computed per row. An
// existing column with the same name is replaced where it stands.
func (f *Frame) Insert(pos int, name string, fn func(Row) any) *Frame {
	cells := make([]any, f.Len())
	for i := range cells {
		cells[i] = fn(Row{f: f, i: i})
	}
	s, isTime := newSeries(name, cells)

	ss := f.allSeries()
	times := f.copyTimes()
	delete(times, name)
	if isTime {
		times[name] = true
	}
	if j, ok := f.idx[name]; ok {
		ss[j] = s
		return build(ss, times)
	}
	if pos < 0 || pos > len(ss) {
		pos = len(ss)
	}
	return build(slices.Insert(ss, pos, s), times)
}

// With appends (or replaces) a computed column.
func (f *Frame) With(name string, fn func(Row) any) *Frame {
	return f.Insert(len(f.cols), name, fn)
}

// Select projects cols in the given order.
func (f *Frame) Select(cols ...string) (*Frame, error) {
	if miss := f.Missing(cols...); len(miss) > 0 {
		return nil, errors.Wrapf(ErrMissingColumn, "select %v", miss)
	}
	if len(cols) == 0 {
		return New(), nil
	}
	df := f.df.Select(cols)
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "select %v", cols)
	}
	return wrap(df, f.times), nil
}

// Drop removes columns; absent ones are ignored.
func (f *Frame) Drop(cols ...string) *Frame {
	keep := make([]string, 0, len(f.cols))
	for _, c := range f.cols {
		if !slices.Contains(cols, c) {
			keep = append(keep, c)
		}
	}
	out, err := f.Select(keep...)
	if err != nil {
		return f.Clone()
	}
	return out
}

// subset keeps the rows at idx, in that order.
func (f *Frame) subset(idx []int) *Frame {
	if len(f.cols) == 0 {
		return New()
	}
	return wrap(f.df.Subset(idx), f.times)
}

func (f *Frame) Filter(keep func(Row) bool) *Frame {
	idx := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if keep(Row{f: f, i: i}) {
			idx = append(idx, i)
		}
	}
	return f.subset(idx)
}

// SortBy stable-sorts ascending on col with missing values last.
func (f *Frame) SortBy(col string) (*Frame, error) {
	if !f.Has(col) {
		return nil, errors.Wrapf(ErrMissingColumn, "sort by %q", col)
	}
	df := f.df.Arrange(dataframe.Sort(col))
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "sort by %q", col)
	}
	return wrap(df, f.times), nil
}

// DropDuplicates keeps the first row of each distinct combination of the
// subset columns, or of whole rows when subset is empty.
func (f *Frame) DropDuplicates(subset ...string) (*Frame, error) {
	if miss := f.Missing(subset...); len(miss) > 0 {
		return nil, errors.Wrapf(ErrMissingColumn, "drop duplicates %v", miss)
	}
	if len(subset) == 0 {
		subset = f.cols
	}
	seen := make(map[string]struct{}, f.Len())
	keep := make([]int, 0, f.Len())
	var sb strings.Builder
	for i := 0; i < f.Len(); i++ {
		sb.Reset()
		for _, c := range subset {
			sb.WriteString(keyOf(f.Value(i, c)))
			sb.WriteByte(0)
		}
		k := sb.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	return f.subset(keep), nil
}

func clamp(n, hi int) int { return max(0, min(n, hi)) }

func span(from, to int) []int {
	idx := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	return idx
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	return f.subset(span(0, clamp(n, f.Len())))
}

// Tail returns the last n rows.
func (f *Frame) Tail(n int) *Frame {
	return f.subset(span(f.Len()-clamp(n, f.Len()), f.Len()))
}

// ColumnsContaining lists the columns with at least one cell whose
// formatted value contains sub, ignoring case.
func (f *Frame) ColumnsContaining(sub string) []string {
	sub = strings.ToLower(sub)
	var out []string
	for j, c := range f.cols {
		for i := 0; i < f.Len(); i++ {
			v := f.cell(i, j)
			if v != nil && strings.Contains(strings.ToLower(Format(v)), sub) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// mapColumns rebuilds each named column from fn's rewrite of its cells.
// Absent columns are skipped.
func (f *Frame) mapColumns(cols []string, fn func(col string, cells []any) error) (*Frame, error) {
	ss := f.allSeries()
	times := f.copyTimes()
	for _, c := range cols {
		j, ok := f.idx[c]
		if !ok {
			continue
		}
		cells := f.Column(c)
		if err := fn(c, cells); err != nil {
			return nil, err
		}
		s, isTime := newSeries(c, cells)
		ss[j] = s
		delete(times, c)
		if isTime {
			times[c] = true
		}
	}
	return build(ss, times), nil
}

// FillNA replaces missing cells in cols with v.
func (f *Frame) FillNA(v any, cols ...string) *Frame {
	out, _ := f.mapColumns(cols, func(_ string, cells []any) error {
		for i, c := range cells {
			if c == nil {
				cells[i] = v
			}
		}
		return nil
	})
	return out
}

// NAToFalse turns missing cells into false and everything else into its
// truth value.
func (f *Frame) NAToFalse(cols ...string) *Frame {
	out, _ := f.mapColumns(cols, func(_ string, cells []any) error {
		for i, c := range cells {
			cells[i] = Truthy(c)
		}
		return nil
	})
	return out
}
