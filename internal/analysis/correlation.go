package analysis

import (
	"math"
	"sort"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

const (
	significanceLevel  = 0.01
	practicalThreshold = 0.3
)

// Correlation is one row of the correlation report against a target column.
type Correlation struct {
	Field                    string
	Coefficient              float64
	PValue                   float64
	StatisticallySignificant bool
	PracticallySignificant   bool
	Magnitude                string
}

// Magnitude labels a coefficient. NaN has no label.
func Magnitude(r float64) string {
	a := math.Abs(r)
	sign := "(Negative)"
	if r > 0 {
		sign = "(Positive)"
	}
	switch {
	case math.IsNaN(r):
		return ""
	case a == 0:
		return "No Correlation"
	case a == 1:
		return "Perfect Correlation"
	case a < 0.3:
		return "Low " + sign
	case a < 0.6:
		return "Moderate " + sign
	case a < 0.9:
		return "High " + sign
	default:
		return "Very High " + sign
	}
}

// CorrelationReport correlates every column of f except target and skip
// against target, in column order.
func CorrelationReport(f *frame.Frame, target string, skip ...string) ([]Correlation, error) {
	skipped := map[string]bool{target: true}
	for _, s := range skip {
		skipped[s] = true
	}
	var out []Correlation
	for _, col := range f.Columns() {
		if skipped[col] {
			continue
		}
		r, p, err := PearsonColumns(f, target, col)
		if err != nil {
			return nil, err
		}
		r, p = Round(r, 4), Round(p, 4)
		out = append(out, Correlation{
			Field:                    col,
			Coefficient:              r,
			PValue:                   p,
			StatisticallySignificant: p < significanceLevel,
			PracticallySignificant:   math.Abs(r) >= practicalThreshold,
			Magnitude:                Magnitude(r),
		})
	}
	return out, nil
}

// TopFields returns up to n fields ordered by descending |coefficient|.
// NaN coefficients are never selected.
func TopFields(rows []Correlation, n int) []string {
	ranked := make([]Correlation, 0, len(rows))
	for _, r := range rows {
		if !math.IsNaN(r.Coefficient) {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Coefficient) > math.Abs(ranked[j].Coefficient)
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Field
	}
	return out
}

// CorrelationFrame renders the report for CSV export.
func CorrelationFrame(rows []Correlation) *frame.Frame {
	f := frame.New(
		"Baseball Databank Field",
		"Correlation Coefficient",
		"P-Value",
		"Statistically Significant",
		"Practically Significant",
		"Magnitude",
	)
	for _, r := range rows {
		var mag any
		if r.Magnitude != "" {
			mag = r.Magnitude
		}
		f.AppendRow(r.Field, nanToNil(r.Coefficient), nanToNil(r.PValue),
			r.StatisticallySignificant, r.PracticallySignificant, mag)
	}
	return f
}

// CorrelationMatrix computes pairwise coefficients of cols, each pair over
// the rows where both are present.
func CorrelationMatrix(f *frame.Frame, cols []string) ([][]float64, error) {
	m := make([][]float64, len(cols))
	for i := range m {
		m[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			x, y, err := Pairs(f, cols[i], cols[j])
			if err != nil {
				return nil, err
			}
			r, _ := Pearson(x, y)
			m[i][j], m[j][i] = r, r
		}
	}
	return m, nil
}

func nanToNil(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
