package frame

import (
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var ErrCast = errors.New("frame: value cannot be cast")

// blank reports cells that cast to missing.
func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// CastInt rounds half to even and stores int64. Missing stays missing;
// absent columns are skipped.
func (f *Frame) CastInt(cols ...string) (*Frame, error) {
	return f.mapColumns(cols, func(c string, cells []any) error {
		for i, v := range cells {
			if blank(v) {
				cells[i] = nil
				continue
			}
			x, ok := ToFloat(v)
			if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
				return errors.Wrapf(ErrCast, "int column %q row %d value %v", c, i, v)
			}
			cells[i] = int64(math.RoundToEven(x))
		}
		return nil
	})
}

// CastFloat stores float64. Missing stays missing; absent columns are skipped.
func (f *Frame) CastFloat(cols ...string) (*Frame, error) {
	return f.mapColumns(cols, func(c string, cells []any) error {
		for i, v := range cells {
			if blank(v) {
				cells[i] = nil
				continue
			}
			x, ok := ToFloat(v)
			if !ok {
				return errors.Wrapf(ErrCast, "float column %q row %d value %v", c, i, v)
			}
			cells[i] = x
		}
		return nil
	})
}

var dateLayouts = []string{
	dateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"2006/01/02",
}

// ParseDate tries the known layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CastDate parses cells into time.Time; anything unparseable becomes missing.
func (f *Frame) CastDate(cols ...string) *Frame {
	out, _ := f.mapColumns(cols, func(_ string, cells []any) error {
		for i, v := range cells {
			switch x := v.(type) {
			case time.Time:
			case string:
				if t, ok := ParseDate(x); ok {
					cells[i] = t
				} else {
					cells[i] = nil
				}
			default:
				cells[i] = nil
			}
		}
		return nil
	})
	return out
}
