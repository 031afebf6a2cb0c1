// Package report writes the selection outcome: a CSV table, an optional
// XLSX workbook, and a text summary for the terminal.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/prairiefish/survey-cli/internal/model"
)

// fixedColumns are the leading output columns; extra input attributes
// follow in sorted order, then the prediction columns.
var fixedColumns = []string{
	"Pool.ID",
	"Longitude",
	"Latitude",
	"Mean.Depth",
	"Hydraulic.Head",
}

var predictionColumns = []string{
	"Occupancy.Psi",
	"Psi.Lower",
	"Psi.Upper",
}

// attrColumns returns the union of extra attribute names across sites,
// sorted for a stable output layout.
func attrColumns(sites []model.ScoredSite) []string {
	set := make(map[string]bool)
	for _, s := range sites {
		for k := range s.Attrs {
			set[k] = true
		}
	}
	cols := make([]string, 0, len(set))
	for k := range set {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func siteRow(s model.ScoredSite, attrs []string) []string {
	row := []string{
		s.PoolID,
		strconv.FormatFloat(s.Longitude, 'f', -1, 64),
		strconv.FormatFloat(s.Latitude, 'f', -1, 64),
		strconv.FormatFloat(s.MeanDepth, 'f', -1, 64),
		strconv.FormatFloat(s.HydraulicHead, 'f', -1, 64),
	}
	for _, a := range attrs {
		row = append(row, s.Attrs[a])
	}
	row = append(row,
		strconv.FormatFloat(s.Psi, 'f', 4, 64),
		strconv.FormatFloat(s.Lower, 'f', 4, 64),
		strconv.FormatFloat(s.Upper, 'f', 4, 64),
	)
	return row
}

// ExportCSV writes the selected sites with all original attributes and the
// predicted occupancy columns.
func ExportCSV(sel *model.Selection, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	attrs := attrColumns(sel.Sites)
	header := append(append(append([]string{}, fixedColumns...), attrs...), predictionColumns...)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, s := range sel.Sites {
		if err := w.Write(siteRow(s, attrs)); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	return nil
}

// ExportXLSX writes a workbook with the selected sites and the model fit.
func ExportXLSX(sel *model.Selection, fit model.FitSummary, path string) error {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Selected_Sites")
	if err != nil {
		return eris.Wrap(err, "report: add sites sheet")
	}

	attrs := attrColumns(sel.Sites)
	header := sheet.AddRow()
	for _, col := range append(append(append([]string{}, fixedColumns...), attrs...), predictionColumns...) {
		header.AddCell().Value = col
	}
	for _, s := range sel.Sites {
		row := sheet.AddRow()
		for _, cell := range siteRow(s, attrs) {
			row.AddCell().Value = cell
		}
	}

	fitSheet, err := file.AddSheet("Model_Fit")
	if err != nil {
		return eris.Wrap(err, "report: add fit sheet")
	}
	for _, kv := range [][2]string{
		{"Occupancy intercept", fmt.Sprintf("%.4f (SE %.4f)", fit.OccIntercept, fit.OccInterceptSE)},
		{"Occupancy slope (depth)", fmt.Sprintf("%.4f (SE %.4f)", fit.OccSlope, fit.OccSlopeSE)},
		{"Detection intercept", fmt.Sprintf("%.4f (SE %.4f)", fit.DetIntercept, fit.DetInterceptSE)},
		{"Detection probability", fmt.Sprintf("%.4f", fit.DetectionProb)},
		{"Log-likelihood", fmt.Sprintf("%.4f", fit.LogLikelihood)},
		{"Sites fitted", strconv.Itoa(fit.Sites)},
		{"Season", sel.Season},
		{"Sample size", strconv.Itoa(sel.SampleSize)},
		{"Seed", strconv.FormatInt(sel.Seed, 10)},
	} {
		row := fitSheet.AddRow()
		row.AddCell().Value = kv[0]
		row.AddCell().Value = kv[1]
	}

	if err := file.Save(path); err != nil {
		return eris.Wrap(err, "report: save xlsx")
	}
	return nil
}

// Summary formats a human-readable selection summary.
func Summary(sel *model.Selection, fit model.FitSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Selected %d of %d candidate sites", len(sel.Sites), sel.Candidates)
	if sel.Season != "" {
		fmt.Fprintf(&b, " for season %s", sel.Season)
	}
	fmt.Fprintf(&b, " (seed %d)\n\n", sel.Seed)

	fmt.Fprintf(&b, "Occupancy model (%d historical sites):\n", fit.Sites)
	fmt.Fprintf(&b, "  occupancy:  logit(psi) = %.3f + %.3f * depth  (SE %.3f, %.3f)\n",
		fit.OccIntercept, fit.OccSlope, fit.OccInterceptSE, fit.OccSlopeSE)
	fmt.Fprintf(&b, "  detection:  p = %.3f  (intercept %.3f, SE %.3f)\n",
		fit.DetectionProb, fit.DetIntercept, fit.DetInterceptSE)
	fmt.Fprintf(&b, "  log-likelihood: %.3f\n\n", fit.LogLikelihood)

	if len(sel.Sites) > 0 {
		minPsi, maxPsi := sel.Sites[0].Psi, sel.Sites[0].Psi
		for _, s := range sel.Sites[1:] {
			if s.Psi < minPsi {
				minPsi = s.Psi
			}
			if s.Psi > maxPsi {
				maxPsi = s.Psi
			}
		}
		fmt.Fprintf(&b, "Predicted occupancy among selected sites: %.3f to %.3f\n", minPsi, maxPsi)
	}
	return b.String()
}
