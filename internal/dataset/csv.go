package dataset

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prairiefish/survey-cli/internal/model"
)

// readCSV reads all records from a CSV file and splits off the header.
func readCSV(path, table string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: open %s table", table)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: read %s table", table)
	}
	if len(records) < 2 {
		return nil, nil, eris.Errorf("dataset: %s table has no data rows", table)
	}
	return records[0], records[1:], nil
}

// parseFloat parses a required numeric cell.
func parseFloat(val, table, col, siteID string) (float64, error) {
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, eris.Errorf("dataset: %s table: non-numeric %s %q for site %q", table, col, val, siteID)
	}
	return v, nil
}

// LoadCandidates reads the candidate-site table. All schema columns are
// required and numeric; any extra columns are preserved as string attributes.
func LoadCandidates(path string, schema Schema) ([]model.Site, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	header, rows, err := readCSV(path, "candidate")
	if err != nil {
		return nil, err
	}

	idx := headerIndex(header)
	if err := requireColumns(idx, "candidate",
		schema.SiteID, schema.Longitude, schema.Latitude, schema.Depth, schema.HydraulicHead); err != nil {
		return nil, err
	}

	core := map[string]bool{
		schema.SiteID:        true,
		schema.Longitude:     true,
		schema.Latitude:      true,
		schema.Depth:         true,
		schema.HydraulicHead: true,
	}

	seen := make(map[string]bool, len(rows))
	sites := make([]model.Site, 0, len(rows))
	for _, row := range rows {
		id := getCol(row, idx, schema.SiteID)
		if id == "" {
			return nil, eris.New("dataset: candidate table has a row with an empty site ID")
		}
		if seen[id] {
			return nil, eris.Errorf("dataset: candidate table has duplicate site ID %q", id)
		}
		seen[id] = true

		site := model.Site{PoolID: id}
		if site.Longitude, err = parseFloat(getCol(row, idx, schema.Longitude), "candidate", "longitude", id); err != nil {
			return nil, err
		}
		if site.Latitude, err = parseFloat(getCol(row, idx, schema.Latitude), "candidate", "latitude", id); err != nil {
			return nil, err
		}
		if site.MeanDepth, err = parseFloat(getCol(row, idx, schema.Depth), "candidate", "depth", id); err != nil {
			return nil, err
		}
		if site.HydraulicHead, err = parseFloat(getCol(row, idx, schema.HydraulicHead), "candidate", "hydraulic head", id); err != nil {
			return nil, err
		}

		for col, i := range idx {
			if core[col] || i >= len(row) {
				continue
			}
			if site.Attrs == nil {
				site.Attrs = make(map[string]string)
			}
			site.Attrs[col] = getCol(row, idx, col)
		}

		sites = append(sites, site)
	}

	if len(sites) == 0 {
		return nil, eris.New("dataset: candidate table has no valid rows")
	}

	zap.L().Info("dataset: candidates loaded",
		zap.String("path", path),
		zap.Int("sites", len(sites)),
	)
	return sites, nil
}

// LoadDetections reads the historical detection table: one row per site with
// exactly three repeated-visit haul columns in {0, 1, missing} and a depth
// covariate.
func LoadDetections(path string, schema Schema) ([]model.DetectionHistory, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	header, rows, err := readCSV(path, "detection")
	if err != nil {
		return nil, err
	}

	idx := headerIndex(header)
	required := append([]string{schema.SiteID, schema.Depth}, schema.Hauls...)
	if err := requireColumns(idx, "detection", required...); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(rows))
	histories := make([]model.DetectionHistory, 0, len(rows))
	for _, row := range rows {
		id := getCol(row, idx, schema.SiteID)
		if id == "" {
			return nil, eris.New("dataset: detection table has a row with an empty site ID")
		}
		if seen[id] {
			return nil, eris.Errorf("dataset: detection table has duplicate site ID %q", id)
		}
		seen[id] = true

		h := model.DetectionHistory{PoolID: id}
		if h.Depth, err = parseFloat(getCol(row, idx, schema.Depth), "detection", "depth", id); err != nil {
			return nil, err
		}

		for i, col := range schema.Hauls {
			val := getCol(row, idx, col)
			if isMissing(val) {
				continue
			}
			switch val {
			case "0":
				zero := 0
				h.Hauls[i] = &zero
			case "1":
				one := 1
				h.Hauls[i] = &one
			default:
				return nil, eris.Errorf("dataset: detection table: invalid haul value %q for site %q (want 0, 1, or missing)", val, id)
			}
		}

		histories = append(histories, h)
	}

	if len(histories) == 0 {
		return nil, eris.New("dataset: detection table has no valid rows")
	}

	zap.L().Info("dataset: detection histories loaded",
		zap.String("path", path),
		zap.Int("sites", len(histories)),
	)
	return histories, nil
}

// LoadHabitat reads the habitat covariate table for the spatial
// autocorrelation check. Rows missing coordinates or the covariate are
// dropped; the caller gets complete cases only.
func LoadHabitat(path string, schema Schema, covariate string) ([]model.HabitatRecord, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if covariate == "" {
		covariate = schema.Depth
	}
	header, rows, err := readCSV(path, "habitat")
	if err != nil {
		return nil, err
	}

	idx := headerIndex(header)
	if err := requireColumns(idx, "habitat",
		schema.SiteID, schema.Longitude, schema.Latitude, covariate); err != nil {
		return nil, err
	}

	var dropped int
	records := make([]model.HabitatRecord, 0, len(rows))
	for _, row := range rows {
		id := getCol(row, idx, schema.SiteID)
		lng := getCol(row, idx, schema.Longitude)
		lat := getCol(row, idx, schema.Latitude)
		val := getCol(row, idx, covariate)
		if isMissing(lng) || isMissing(lat) || isMissing(val) {
			dropped++
			continue
		}

		rec := model.HabitatRecord{PoolID: id}
		if rec.Longitude, err = parseFloat(lng, "habitat", "longitude", id); err != nil {
			return nil, err
		}
		if rec.Latitude, err = parseFloat(lat, "habitat", "latitude", id); err != nil {
			return nil, err
		}
		if rec.Value, err = parseFloat(val, "habitat", covariate, id); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if dropped > 0 {
		zap.L().Warn("dataset: habitat rows dropped as incomplete",
			zap.String("path", path),
			zap.Int("dropped", dropped),
			zap.Int("kept", len(records)),
		)
	}
	if len(records) == 0 {
		return nil, eris.Errorf("dataset: habitat table has no complete rows for covariate %q", covariate)
	}
	return records, nil
}
