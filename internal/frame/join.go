package frame

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gota/gota/series"
)

// LeftJoin keeps every row of f and attaches each matching row of right on
// column on; a left row with several matches is repeated. Non-key columns
// present on both sides are suffixed _x (left) and _y (right). Missing keys
// never match.
//
// Matching is a hash lookup; the result is assembled from gota subsets.
// gota's own LeftJoin compares every pair of rows and copies missing text
// back in as the literal "NaN".
func (f *Frame) LeftJoin(right *Frame, on string) (*Frame, error) {
	if !f.Has(on) {
		return nil, errors.Wrapf(ErrMissingColumn, "left join: left side has no %q", on)
	}
	if !right.Has(on) {
		return nil, errors.Wrapf(ErrMissingColumn, "left join: right side has no %q", on)
	}

	lookup := make(map[string][]int, right.Len())
	for i := 0; i < right.Len(); i++ {
		v := right.Value(i, on)
		if v == nil {
			continue
		}
		k := keyOf(v)
		lookup[k] = append(lookup[k], i)
	}

	// Unmatched left rows point at the padding row right.Len().
	li := make([]int, 0, f.Len())
	ri := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		var matches []int
		if v := f.Value(i, on); v != nil {
			matches = lookup[keyOf(v)]
		}
		if len(matches) == 0 {
			li = append(li, i)
			ri = append(ri, right.Len())
			continue
		}
		for _, m := range matches {
			li = append(li, i)
			ri = append(ri, m)
		}
	}

	left := f.subset(li)
	ss := make([]series.Series, 0, len(f.cols)+len(right.cols)-1)
	times := map[string]bool{}
	for _, c := range f.cols {
		s := left.df.Col(c)
		if c != on && right.Has(c) {
			s.Name = c + "_x"
		}
		ss = append(ss, s)
		times[s.Name] = f.times[c]
	}
	for _, c := range right.cols {
		if c == on {
			continue
		}
		s := right.padded(c).Subset(ri)
		if f.Has(c) {
			s.Name = c + "_y"
		}
		ss = append(ss, s)
		times[s.Name] = right.times[c]
	}
	return build(ss, times), nil
}
