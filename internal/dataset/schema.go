// Package dataset loads the three input tables behind the selection
// pipeline. Columns are resolved by name against each file's header and
// validated up front, so reordering input columns never changes behavior.
package dataset

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Schema names the columns the pipeline depends on.
type Schema struct {
	SiteID        string
	Longitude     string
	Latitude      string
	Depth         string
	HydraulicHead string
	Hauls         []string
}

// DefaultSchema returns the column names used by the monitoring program's
// standard exports.
func DefaultSchema() Schema {
	return Schema{
		SiteID:        "Pool.ID",
		Longitude:     "Longitude",
		Latitude:      "Latitude",
		Depth:         "Mean.Depth",
		HydraulicHead: "Hydraulic.Head",
		Hauls:         []string{"Haul.1", "Haul.2", "Haul.3"},
	}
}

// Validate checks that the schema itself is usable before any file is read.
func (s Schema) Validate() error {
	for name, v := range map[string]string{
		"site_id":   s.SiteID,
		"longitude": s.Longitude,
		"latitude":  s.Latitude,
		"depth":     s.Depth,
	} {
		if strings.TrimSpace(v) == "" {
			return eris.Errorf("dataset: schema column %s is empty", name)
		}
	}
	if len(s.Hauls) != 3 {
		return eris.Errorf("dataset: schema must name exactly 3 haul columns, got %d", len(s.Hauls))
	}
	return nil
}

// headerIndex maps trimmed header names to their column positions.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	return idx
}

// requireColumns verifies that every named column exists in the header map.
func requireColumns(idx map[string]int, table string, cols ...string) error {
	for _, col := range cols {
		if _, ok := idx[col]; !ok {
			return eris.Errorf("dataset: %s table missing required column %q", table, col)
		}
	}
	return nil
}

// getCol safely retrieves a column value from a CSV row.
func getCol(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// isMissing reports whether a cell should be treated as a missing value.
func isMissing(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NA", "NAN", "NULL":
		return true
	}
	return false
}
