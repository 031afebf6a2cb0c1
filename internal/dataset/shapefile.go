package dataset

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prairiefish/survey-cli/internal/model"
)

// LoadCandidatesShapefile reads candidate sites from a point shapefile.
// Coordinates come from the geometry; the remaining schema columns are
// matched against DBF attribute names (dots become underscores, truncated to
// the 10-character DBF limit).
func LoadCandidatesShapefile(path string, schema Schema) ([]model.Site, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open candidate shapefile")
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, dbfName(schema.SiteID))
	depthIdx := fieldIndex(reader, dbfName(schema.Depth))
	headIdx := fieldIndex(reader, dbfName(schema.HydraulicHead))
	if idIdx < 0 || depthIdx < 0 || headIdx < 0 {
		return nil, eris.Errorf("dataset: candidate shapefile missing required fields (%s, %s, %s)",
			dbfName(schema.SiteID), dbfName(schema.Depth), dbfName(schema.HydraulicHead))
	}

	seen := make(map[string]bool)
	var sites []model.Site
	for reader.Next() {
		n, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		if !ok {
			return nil, eris.Errorf("dataset: candidate shapefile record %d is not a point", n)
		}

		id := strings.TrimSpace(reader.ReadAttribute(n, idIdx))
		if id == "" {
			return nil, eris.Errorf("dataset: candidate shapefile record %d has an empty site ID", n)
		}
		if seen[id] {
			return nil, eris.Errorf("dataset: candidate shapefile has duplicate site ID %q", id)
		}
		seen[id] = true

		site := model.Site{
			PoolID:    id,
			Longitude: point.X,
			Latitude:  point.Y,
		}
		if site.MeanDepth, err = parseFloat(strings.TrimSpace(reader.ReadAttribute(n, depthIdx)), "candidate", "depth", id); err != nil {
			return nil, err
		}
		if site.HydraulicHead, err = parseFloat(strings.TrimSpace(reader.ReadAttribute(n, headIdx)), "candidate", "hydraulic head", id); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrap(err, "dataset: read candidate shapefile")
	}
	if len(sites) == 0 {
		return nil, eris.New("dataset: candidate shapefile has no records")
	}

	zap.L().Info("dataset: candidates loaded from shapefile",
		zap.String("path", path),
		zap.Int("sites", len(sites)),
	)
	return sites, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// dbfName maps a CSV column name to its DBF attribute form.
func dbfName(col string) string {
	name := strings.ToUpper(strings.ReplaceAll(col, ".", "_"))
	if len(name) > 10 {
		name = name[:10]
	}
	return name
}
