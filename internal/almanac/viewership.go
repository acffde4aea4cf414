// Package almanac analyses All-Star game television viewership.
package almanac

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

const DefaultWindow = 10

var (
	ErrWindow   = errors.New("invalid moving window")
	ErrNoTable  = errors.New("no table in document")
	ErrZeroBase = errors.New("percent change from zero")

	leadingYear = regexp.MustCompile(`^\d{4}`)
)

// Calc is a moving-window aggregate.
type Calc int

const (
	Min Calc = iota
	Max
	Mean
)

// Parse reads viewership data as CSV, or as the first HTML table when the
// payload looks like markup.
func Parse(b []byte) (*frame.Frame, error) {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte("<")) {
		return ParseHTML(bytes.NewReader(b))
	}
	return frame.ReadCSV(bytes.NewReader(b))
}

// ParseHTML reads the first table of an HTML page. The first row is the
// header.
func ParseHTML(r io.Reader) (*frame.Frame, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}
	tbl := doc.Find("table").First()
	if tbl.Length() == 0 {
		return nil, ErrNoTable
	}

	var (
		header []string
		body   [][]string
	)
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.Join(strings.Fields(td.Text()), " "))
		})
		if len(cells) == 0 {
			return
		}
		if header == nil {
			header = cells
			return
		}
		body = append(body, cells)
	})
	if header == nil {
		return nil, ErrNoTable
	}
	return frame.FromRecords(header, body)
}

// Clean renames the source headers, drops the network and total viewers
// columns and makes household viewers numeric.
func Clean(raw *frame.Frame) (*frame.Frame, error) {
	f := raw.Rename(map[string]string{
		"Year | ASG": "Year",
		"Households": "HouseholdViewers",
	}).Drop("Network", "Viewers")
	if missing := f.Missing("Year", "Rating", "Share", "HouseholdViewers"); len(missing) > 0 {
		return nil, errors.Wrapf(frame.ErrMissingColumn, "viewership %v", missing)
	}
	f = f.With("HouseholdViewers", func(r frame.Row) any {
		s := strings.ReplaceAll(r.String("HouseholdViewers"), ",", "")
		if s == "" {
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if x, err := strconv.ParseFloat(s, 64); err == nil {
			return x
		}
		return nil
	})
	f = f.With("Year", func(r frame.Row) any {
		if y, ok := r.Get("Year").(int64); ok {
			return y
		}
		m := leadingYear.FindString(r.String("Year"))
		if m == "" {
			return nil
		}
		y, _ := strconv.ParseInt(m, 10, 64)
		return y
	})
	return f, nil
}

// MovingRange aggregates every full window of values in order. A window
// holding a missing value yields nothing. Means are rounded to 2 places;
// min and max are truncated to whole numbers.
func MovingRange(values []any, window int, calc Calc) ([]float64, error) {
	if window < 2 || window >= len(values) {
		return nil, errors.Wrapf(ErrWindow, "window %d must be between 2 and %d", window, len(values)-1)
	}
	xs := make([]float64, len(values))
	for i, v := range values {
		x, ok := frame.ToFloat(v)
		if !ok {
			x = math.NaN()
		}
		xs[i] = x
	}

	var out []float64
	for end := window; end <= len(xs); end++ {
		w := xs[end-window : end]
		agg, ok := aggregate(w, calc)
		if !ok {
			continue
		}
		if calc == Mean {
			agg = math.Round(agg*100) / 100
		} else {
			agg = math.Trunc(agg)
		}
		out = append(out, agg)
	}
	return out, nil
}

func aggregate(w []float64, calc Calc) (float64, bool) {
	acc := w[0]
	if calc == Mean {
		acc = 0
	}
	for _, x := range w {
		if math.IsNaN(x) {
			return 0, false
		}
		switch calc {
		case Min:
			acc = math.Min(acc, x)
		case Max:
			acc = math.Max(acc, x)
		default:
			acc += x
		}
	}
	if calc == Mean {
		acc /= float64(len(w))
	}
	return acc, true
}

// PercentChange is (first - last) / first rounded to 2 places. A zero
// first value returns ErrZeroBase.
func PercentChange(xs []float64) (float64, error) {
	if len(xs) < 2 {
		return 0, errors.Newf("percent change needs 2 values, have %d", len(xs))
	}
	first, last := xs[0], xs[len(xs)-1]
	if first == 0 {
		return 0, errors.Wrapf(ErrZeroBase, "first of %d values", len(xs))
	}
	return math.Round((first-last)/first*100) / 100, nil
}

// FirstLast compares the first and last moving windows of a cleaned
// viewership table.
func FirstLast(f *frame.Frame, window int) (*frame.Frame, error) {
	move := func(col string, calc Calc) ([]float64, error) {
		xs, err := MovingRange(f.Column(col), window, calc)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", col)
		}
		if len(xs) < 2 {
			return nil, errors.Newf("%s: need 2 complete windows, have %d", col, len(xs))
		}
		return xs, nil
	}
	minYears, err := move("Year", Min)
	if err != nil {
		return nil, err
	}
	maxYears, err := move("Year", Max)
	if err != nil {
		return nil, err
	}
	if len(minYears) != len(maxYears) {
		return nil, errors.Newf("year windows disagree: %d vs %d", len(minYears), len(maxYears))
	}
	years := func(i int) string {
		return fmt.Sprintf("%d-%d", int64(minYears[i]), int64(maxYears[i]))
	}

	first := []any{years(0)}
	last := []any{years(len(minYears) - 1)}
	cols := []string{"Years"}
	for _, m := range []struct{ col, avg, delta string }{
		{"Rating", "AvgRating", "RatingDelta"},
		{"Share", "AvgShare", "ShareDelta"},
		{"HouseholdViewers", "AvgHouseholdViewers", "ViewersDelta"},
	} {
		xs, err := move(m.col, Mean)
		if err != nil {
			return nil, err
		}
		var delta any
		switch d, err := PercentChange(xs); {
		case errors.Is(err, ErrZeroBase):
		case err != nil:
			return nil, errors.Wrapf(err, "%s", m.col)
		default:
			delta = d
		}
		cols = append(cols, m.avg, m.delta)
		first = append(first, xs[0], nil)
		last = append(last, xs[len(xs)-1], delta)
	}
	return frame.FromRows(cols, [][]any{first, last}), nil
}

// OutputFile is the name the comparison table is written under.
const OutputFile = "allstar_viewership_delta.csv"

// Analyze cleans raw viewership data and builds the first/last comparison.
func Analyze(raw *frame.Frame, window int) (*frame.Frame, error) {
	if window == 0 {
		window = DefaultWindow
	}
	f, err := Clean(raw)
	if err != nil {
		return nil, err
	}
	return FirstLast(f, window)
}
