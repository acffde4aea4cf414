package export

import "github.com/tyler180/allstar-rosters/internal/frame"

// Column is a column name with its SQL type as Athena and DuckDB spell it.
type Column struct {
	Name string
	Type string
}

func sqlType(k kind) string {
	switch k {
	case kindInt:
		return "bigint"
	case kindFloat:
		return "double"
	case kindBool:
		return "boolean"
	case kindDate:
		return "date"
	default:
		return "string"
	}
}

// Columns lists f's columns in frame order with the types WriteParquet
// would store them as.
func Columns(f *frame.Frame) []Column {
	names := f.Columns()
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = Column{Name: n, Type: sqlType(columnKind(f.Column(n)))}
	}
	return out
}
