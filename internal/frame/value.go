package frame

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Format renders a cell the way WriteCSV does.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(dateLayout)
		}
		return x.Format(time.RFC3339)
	default:
		return ""
	}
}

// ToFloat converts numeric and boolean cells. Strings are parsed.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, !math.IsNaN(x)
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Truthy mirrors a boolean cast: missing, zero, false and "" are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case time.Time:
		return !x.IsZero()
	default:
		f, ok := ToFloat(x)
		return ok && f != 0
	}
}

// Less orders cells: missing last, numbers numerically, everything else
// by formatted text.
func Less(a, b any) bool {
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Before(tb)
		}
	}
	_, sa := a.(string)
	_, sb := b.(string)
	if !sa && !sb {
		fa, oka := ToFloat(a)
		fb, okb := ToFloat(b)
		if oka && okb {
			return fa < fb
		}
	}
	return Format(a) < Format(b)
}

// keyOf builds an equality key that keeps 1 and "1" apart.
func keyOf(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x00"
	case string:
		return "s" + x
	case bool:
		return "b" + strconv.FormatBool(x)
	case time.Time:
		return "t" + x.Format(time.RFC3339Nano)
	default:
		if f, ok := ToFloat(x); ok {
			return "n" + strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "?"
	}
}

// Equal reports whether two cells hold the same value.
func Equal(a, b any) bool { return keyOf(a) == keyOf(b) }
