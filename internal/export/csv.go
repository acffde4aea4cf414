package export

import (
	"path/filepath"
	"sort"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

// SaveCSVs writes each table to dir/<name>.csv and returns the paths in
// name order.
func SaveCSVs(dir string, tables map[string]*frame.Frame) ([]string, error) {
	names := make([]string, 0, len(tables))
	for n := range tables {
		names = append(names, n)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, n := range names {
		p := filepath.Join(dir, frame.ForceExtension(n, "csv"))
		if err := tables[n].SaveCSV(p); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
