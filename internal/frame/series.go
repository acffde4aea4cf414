package frame

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Times live in gota string series, UTC and fixed width so lexical order
// is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type kind uint8

const (
	kindNone kind = iota
	kindInt
	kindFloat
	kindBool
	kindString
	kindTime
)

var seriesType = map[kind]series.Type{
	kindNone:   series.String,
	kindInt:    series.Int,
	kindFloat:  series.Float,
	kindBool:   series.Bool,
	kindString: series.String,
	kindTime:   series.String,
}

func missing(v any) bool {
	if v == nil {
		return true
	}
	x, ok := v.(float64)
	return ok && math.IsNaN(x)
}

// kindOf picks the narrowest series type holding every present cell. Ints
// mixed with floats widen to float; any other mix becomes text.
func kindOf(cells []any) kind {
	k := kindNone
	for _, v := range cells {
		if missing(v) {
			continue
		}
		var c kind
		switch v.(type) {
		case int64, int:
			c = kindInt
		case float64:
			c = kindFloat
		case bool:
			c = kindBool
		case time.Time:
			c = kindTime
		default:
			c = kindString
		}
		switch {
		case k == kindNone || k == c:
			k = c
		case (k == kindInt && c == kindFloat) || (k == kindFloat && c == kindInt):
			k = kindFloat
		default:
			return kindString
		}
	}
	return k
}

// newSeries stores cells in a gota series, reporting whether it holds times.
func newSeries(name string, cells []any) (series.Series, bool) {
	k := kindOf(cells)
	vals := make([]any, len(cells))
	for i, v := range cells {
		if missing(v) {
			continue
		}
		switch k {
		case kindInt:
			switch x := v.(type) {
			case int64:
				vals[i] = int(x)
			case int:
				vals[i] = x
			}
		case kindFloat:
			vals[i], _ = ToFloat(v)
		case kindBool:
			vals[i] = v
		case kindTime:
			vals[i] = v.(time.Time).UTC().Format(timeLayout)
		default:
			vals[i] = Format(v)
		}
	}
	return series.New(vals, seriesType[k], name), k == kindTime
}

// decode turns a gota element back into a cell.
func decode(e series.Element, isTime bool) any {
	switch x := e.Val().(type) {
	case int:
		return int64(x)
	case string:
		if !isTime {
			return x
		}
		t, err := time.Parse(timeLayout, x)
		if err != nil {
			return nil
		}
		return t
	default:
		return x
	}
}

// FromDataFrame wraps a gota DataFrame. NaN elements become missing cells.
func FromDataFrame(df dataframe.DataFrame) (*Frame, error) {
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "frame")
	}
	return wrap(df, nil), nil
}

// DataFrame returns a copy of the backing gota DataFrame. Time columns are
// RFC 3339 text.
func (f *Frame) DataFrame() dataframe.DataFrame {
	return f.df.Copy()
}

func wrap(df dataframe.DataFrame, times map[string]bool) *Frame {
	f := &Frame{df: df, times: map[string]bool{}}
	if df.Err == nil {
		f.cols = df.Names()
	}
	f.idx = make(map[string]int, len(f.cols))
	for i, c := range f.cols {
		f.idx[c] = i
		if times[c] {
			f.times[c] = true
		}
	}
	return f
}

func build(cols []series.Series, times map[string]bool) *Frame {
	if len(cols) == 0 {
		return wrap(dataframe.DataFrame{}, nil)
	}
	return wrap(dataframe.New(cols...), times)
}

// allSeries copies out every column in order.
func (f *Frame) allSeries() []series.Series {
	ss := make([]series.Series, len(f.cols))
	for j, c := range f.cols {
		ss[j] = f.df.Col(c)
	}
	return ss
}

func (f *Frame) copyTimes() map[string]bool {
	out := make(map[string]bool, len(f.times))
	for c := range f.times {
		out[c] = true
	}
	return out
}

// padded copies col with one trailing missing element.
func (f *Frame) padded(col string) series.Series {
	s := f.df.Col(col)
	vals := make([]any, s.Len()+1)
	for i := 0; i < s.Len(); i++ {
		vals[i] = s.Val(i)
	}
	return series.New(vals, s.Type(), col)
}
