package frame

import (
	"encoding/csv"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// plainNumber is the only text a column may hold and still be read as
// numeric. strconv alone would also take "NaN", "Inf" and "infinity".
var plainNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ForceExtension swaps or appends ext on name ("People" -> "People.csv").
func ForceExtension(name, ext string) string {
	ext = "." + strings.TrimPrefix(ext, ".")
	if cur := filepath.Ext(name); cur != "" {
		name = strings.TrimSuffix(name, cur)
	}
	return name + ext
}

// ReadCSV parses a header row plus records and infers a type per column.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(recs) == 0 {
		return New(), nil
	}
	header := recs[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return FromRecords(header, recs[1:])
}

// FromRecords builds a frame from text cells, letting gota detect a type
// per column. Empty cells are missing; short records are padded.
func FromRecords(header []string, body [][]string) (*Frame, error) {
	if len(header) == 0 {
		return New(), nil
	}
	if len(body) == 0 {
		return New(header...), nil
	}
	records := make([][]string, 0, len(body)+1)
	records = append(records, append([]string(nil), header...))
	for _, rec := range body {
		row := make([]string, len(header))
		for j := range header {
			if j < len(rec) {
				row[j] = strings.TrimSpace(rec[j])
			}
		}
		records = append(records, row)
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues([]string{""}),
		dataframe.WithTypes(pinnedTypes(header, records[1:])),
	)
	f, err := FromDataFrame(df)
	if err != nil {
		return nil, errors.Wrap(err, "load records")
	}
	return f, nil
}

// pinnedTypes overrides gota's detection where it disagrees with how the
// pipeline reads text: a column holding anything but plain numbers stays
// text, and true/false in any case is boolean.
func pinnedTypes(header []string, rows [][]string) map[string]series.Type {
	types := map[string]series.Type{}
	for j, c := range header {
		numeric, boolean, seen := true, true, false
		for _, r := range rows {
			s := r[j]
			if s == "" || s == "NaN" {
				continue
			}
			seen = true
			if numeric && !plainNumber.MatchString(s) {
				numeric = false
			}
			if boolean && !strings.EqualFold(s, "true") && !strings.EqualFold(s, "false") {
				boolean = false
			}
		}
		switch {
		case !seen:
			types[c] = series.String
		case boolean:
			types[c] = series.Bool
		case !numeric:
			types[c] = series.String
		}
	}
	return types
}

// LoadCSV reads <name>.csv from fsys.
func LoadCSV(fsys fs.FS, name string) (*Frame, error) {
	name = ForceExtension(name, "csv")
	fh, err := fsys.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	defer fh.Close()
	f, err := ReadCSV(fh)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	return f, nil
}

// WriteCSV writes missing cells empty, floats in shortest form and dates
// as YYYY-MM-DD. gota's own writer prints "NaN" and fixed six-place floats.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.cols); err != nil {
		return errors.Wrap(err, "write header")
	}
	rec := make([]string, len(f.cols))
	for i := 0; i < f.Len(); i++ {
		for j := range f.cols {
			rec[j] = Format(f.cell(i, j))
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write record")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// SaveCSV writes the frame to path, creating parent directories.
func (f *Frame) SaveCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir for %s", path)
	}
	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := f.WriteCSV(fh); err != nil {
		fh.Close()
		return err
	}
	return errors.Wrapf(fh.Close(), "close %s", path)
}
