package export

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/parquet-go/parquet-go"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

type kind int

const (
	kindString kind = iota
	kindInt
	kindFloat
	kindBool
	kindDate
)

// columnKind is the type of the first non-missing cell; mixed columns
// fall back to string.
func columnKind(vals []any) kind {
	k, seen := kindString, false
	for _, v := range vals {
		var vk kind
		switch v.(type) {
		case nil:
			continue
		case int64:
			vk = kindInt
		case float64:
			vk = kindFloat
		case bool:
			vk = kindBool
		case time.Time:
			vk = kindDate
		default:
			vk = kindString
		}
		if !seen {
			k, seen = vk, true
			continue
		}
		if vk != k {
			if (vk == kindInt && k == kindFloat) || (vk == kindFloat && k == kindInt) {
				k = kindFloat
				continue
			}
			return kindString
		}
	}
	return k
}

func node(k kind) parquet.Node {
	switch k {
	case kindInt:
		return parquet.Optional(parquet.Int(64))
	case kindFloat:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case kindBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	case kindDate:
		return parquet.Optional(parquet.Date())
	default:
		return parquet.Optional(parquet.String())
	}
}

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func value(k kind, v any, col int) parquet.Value {
	if v == nil {
		return parquet.NullValue().Level(0, 0, col)
	}
	var pv parquet.Value
	switch k {
	case kindInt:
		f, _ := frame.ToFloat(v)
		pv = parquet.Int64Value(int64(f))
	case kindFloat:
		f, _ := frame.ToFloat(v)
		pv = parquet.DoubleValue(f)
	case kindBool:
		pv = parquet.BooleanValue(frame.Truthy(v))
	case kindDate:
		t := v.(time.Time)
		pv = parquet.Int32Value(int32(t.Sub(epoch).Hours() / 24))
	default:
		pv = parquet.ByteArrayValue([]byte(frame.Format(v)))
	}
	return pv.Level(0, 1, col)
}

// Schema derives a parquet schema from the frame's cell types.
func Schema(name string, f *frame.Frame) *parquet.Schema {
	group := parquet.Group{}
	for _, c := range f.Columns() {
		group[c] = node(columnKind(f.Column(c)))
	}
	return parquet.NewSchema(name, group)
}

// WriteParquet encodes f as Snappy-compressed parquet.
func WriteParquet(w io.Writer, name string, f *frame.Frame) error {
	schema := Schema(name, f)
	fields := schema.Fields()

	kinds := make([]kind, len(fields))
	cols := make([][]any, len(fields))
	for i, fld := range fields {
		cols[i] = f.Column(fld.Name())
		kinds[i] = columnKind(cols[i])
	}

	pw := parquet.NewWriter(w, schema, parquet.Compression(&parquet.Snappy))
	rows := make([]parquet.Row, 0, 1024)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if _, err := pw.WriteRows(rows); err != nil {
			return errors.Wrap(err, "write parquet rows")
		}
		rows = rows[:0]
		return nil
	}
	for r := 0; r < f.Len(); r++ {
		row := make(parquet.Row, len(fields))
		for i := range fields {
			row[i] = value(kinds[i], cols[i][r], i)
		}
		rows = append(rows, row)
		if len(rows) == cap(rows) {
			if err := flush(); err != nil {
				_ = pw.Close()
				return err
			}
		}
	}
	if err := flush(); err != nil {
		_ = pw.Close()
		return err
	}
	return errors.Wrap(pw.Close(), "close parquet writer")
}

// ParquetBytes encodes f in memory.
func ParquetBytes(name string, f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteParquet(&buf, name, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveParquet writes f to path, creating parent directories.
func SaveParquet(path, name string, f *frame.Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir for %s", path)
	}
	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteParquet(fh, name, f); err != nil {
		_ = fh.Close()
		return err
	}
	return errors.Wrapf(fh.Close(), "close %s", path)
}
