package warehouse

import (
	"context"
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

// QueryFrame runs sql on Athena and infers cell types from the text
// results.
func (r *Runner) QueryFrame(ctx context.Context, sql string) (*frame.Frame, error) {
	header, rows, err := r.QueryRows(ctx, sql)
	if err != nil {
		return nil, err
	}
	return frame.FromRecords(header, rows)
}

// QueryFrame runs q on DuckDB and converts the driver values to frame
// cells.
func (d *DuckDB) QueryFrame(ctx context.Context, q string, args ...any) (*frame.Frame, error) {
	cols, rows, err := d.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		for j, v := range r {
			r[j] = cell(v)
		}
	}
	return frame.FromRows(cols, rows), nil
}

type floater interface{ Float64() float64 }

func cell(v any) any {
	switch x := v.(type) {
	case nil, string, int64, float64, bool, time.Time:
		return x
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case floater:
		return x.Float64()
	}
	// DECIMAL and friends implement Float64 on the pointer.
	ptr := reflect.New(reflect.TypeOf(v))
	ptr.Elem().Set(reflect.ValueOf(v))
	if f, ok := ptr.Interface().(floater); ok {
		return f.Float64()
	}
	return fmt.Sprint(v)
}
