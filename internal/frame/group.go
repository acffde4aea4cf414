package frame

import (
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat"
)

// groupKey holds the exact encoding of the grouping value; gota formats
// float keys to six places, which would merge distinct values. Groups
// carry row positions only, since gota rebuilds each group from text and
// would read a value such as league "NA" as missing.
const (
	groupKey = "\x00group"
	groupRow = "\x00row"
)

// AggFunc reduces the values of one column within a group.
type AggFunc func(vals []any) any

// Agg names an aggregation. Column may be empty for Size.
type Agg struct {
	Column string
	As     string
	Fn     AggFunc
}

func (a Agg) name() string {
	if a.As != "" {
		return a.As
	}
	return a.Column
}

// GroupBy groups rows on key (ascending, missing keys dropped) and emits
// one row per group: the key followed by each aggregation. Groups come
// from gota's GroupBy; rows keep their order within a group.
func (f *Frame) GroupBy(key string, aggs ...Agg) (*Frame, error) {
	if !f.Has(key) {
		return nil, errors.Wrapf(ErrMissingColumn, "group by %q", key)
	}
	cols := []string{key}
	for _, a := range aggs {
		if a.Column != "" && !f.Has(a.Column) {
			return nil, errors.Wrapf(ErrMissingColumn, "aggregate %q", a.Column)
		}
		cols = append(cols, a.name())
	}

	rows := make([][]any, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if v := f.Value(i, key); v != nil {
			rows = append(rows, []any{keyOf(v), int64(i)})
		}
	}
	keyed := FromRows([]string{groupKey, groupRow}, rows)
	if keyed.Len() == 0 {
		return New(cols...), nil
	}

	g := keyed.df.GroupBy(groupKey)
	if g.Err != nil {
		return nil, errors.Wrapf(g.Err, "group by %q", key)
	}
	groups := make([]*Frame, 0, len(g.GetGroups()))
	for _, df := range g.GetGroups() {
		pos, err := df.Col(groupRow).Int()
		if err != nil {
			return nil, errors.Wrapf(err, "group by %q", key)
		}
		groups = append(groups, f.subset(pos))
	}
	sort.Slice(groups, func(a, b int) bool {
		return Less(groups[a].Value(0, key), groups[b].Value(0, key))
	})

	rows = make([][]any, len(groups))
	for i, grp := range groups {
		row := make([]any, 0, len(cols))
		row = append(row, grp.Value(0, key))
		for _, a := range aggs {
			vals := make([]any, grp.Len())
			if a.Column != "" {
				vals = grp.Column(a.Column)
			}
			row = append(row, a.Fn(vals))
		}
		rows[i] = row
	}
	return FromRows(cols, rows), nil
}

// Size counts rows in the group.
func Size(vals []any) any { return int64(len(vals)) }

// Sum adds the non-missing values. Integers stay integers; an all-missing
// group sums to 0.
func Sum(vals []any) any {
	var (
		isum   int64
		fsum   float64
		floaty bool
	)
	for _, v := range vals {
		switch x := v.(type) {
		case nil:
		case int64:
			isum += x
		case bool:
			if x {
				isum++
			}
		default:
			if fv, ok := ToFloat(x); ok {
				fsum += fv
				floaty = true
			}
		}
	}
	if floaty {
		return fsum + float64(isum)
	}
	return isum
}

// Mean averages the non-missing numeric values.
func Mean(vals []any) any {
	xs := make([]float64, 0, len(vals))
	for _, v := range vals {
		if fv, ok := ToFloat(v); ok {
			xs = append(xs, fv)
		}
	}
	if len(xs) == 0 {
		return nil
	}
	return stat.Mean(xs, nil)
}

// Max returns the largest non-missing value.
func Max(vals []any) any {
	var best any
	for _, v := range vals {
		if v == nil {
			continue
		}
		if best == nil || Less(best, v) {
			best = v
		}
	}
	return best
}

// Any is true when some value is truthy.
func Any(vals []any) any {
	for _, v := range vals {
		if Truthy(v) {
			return true
		}
	}
	return false
}

// First returns the first value of the group, missing or not.
func First(vals []any) any {
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

// Unique returns the distinct non-missing values in first-seen order.
func Unique(vals []any) []any {
	seen := map[string]bool{}
	var out []any
	for _, v := range vals {
		if v == nil {
			continue
		}
		k := keyOf(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// ValueCounts tallies col, most frequent first; ties keep value order.
func (f *Frame) ValueCounts(col string) (*Frame, error) {
	g, err := f.GroupBy(col, Agg{As: "count", Fn: Size})
	if err != nil {
		return nil, err
	}
	rows := g.Rows()
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a][1].(int64) > rows[b][1].(int64)
	})
	return FromRows(g.Columns(), rows), nil
}
