package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prairiefish/survey-cli/internal/charts"
	"github.com/prairiefish/survey-cli/internal/dataset"
	"github.com/prairiefish/survey-cli/internal/model"
	"github.com/prairiefish/survey-cli/internal/occupancy"
	"github.com/prairiefish/survey-cli/internal/report"
	"github.com/prairiefish/survey-cli/internal/sampling"
	"github.com/prairiefish/survey-cli/internal/spatial"
	"github.com/prairiefish/survey-cli/internal/store"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Draw the probability-weighted survey sample",
	Long: `Run the full selection pipeline: check pool depth for spatial
autocorrelation, fit the occupancy model to detection histories, predict
occupancy for every candidate pool, and draw a weighted sample without
replacement where each pool's weight is its predicted occupancy.

The draw is deterministic for a given seed, so a season's selection can be
reproduced exactly.

Examples:
  # Draw 100 pools with the configured defaults
  select --season 2026-spring

  # Smaller pilot draw from a shapefile, skipping the spatial check
  select --candidates pools_2026.shp --sample-size 25 --skip-moran

  # Reproduce last year's draw and archive it
  select --season 2025-spring --seed 1747 --store runs.db`,
	RunE: runSelect,
}

func init() {
	f := selectCmd.Flags()
	f.String("candidates", "", "candidate pool table, CSV or shapefile (overrides config)")
	f.String("detections", "", "detection history CSV (overrides config)")
	f.String("habitat", "", "habitat CSV for the spatial check (overrides config)")
	f.String("season", "", "season label recorded with the draw (overrides config)")
	f.Int("sample-size", 0, "number of pools to draw (overrides config)")
	f.Int64("seed", 0, "random seed for the draw (overrides config)")
	f.String("exclude", "", "comma-separated Pool.ID values to drop before fitting")
	f.Bool("skip-moran", false, "skip the spatial autocorrelation check")
	f.String("output", "selected_sites.csv", "output CSV path")
	f.String("xlsx", "", "also write an XLSX workbook to this path")
	f.String("charts-dir", "", "directory for diagnostic charts (overrides config; empty disables)")
	f.String("store", "", "SQLite run-history database path (overrides config; empty disables)")

	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, _ []string) error {
	candidatesPath, _ := cmd.Flags().GetString("candidates")
	if candidatesPath == "" {
		candidatesPath = cfg.Inputs.Candidates
	}
	if candidatesPath == "" {
		return eris.New("select: no candidate input (set --candidates or inputs.candidates)")
	}
	detectionsPath, _ := cmd.Flags().GetString("detections")
	if detectionsPath == "" {
		detectionsPath = cfg.Inputs.Detections
	}
	if detectionsPath == "" {
		return eris.New("select: no detection input (set --detections or inputs.detections)")
	}
	habitatPath, _ := cmd.Flags().GetString("habitat")
	if habitatPath == "" {
		habitatPath = cfg.Inputs.Habitat
	}

	season, _ := cmd.Flags().GetString("season")
	if season == "" {
		season = cfg.Selection.Season
	}
	sampleSize := intFlag(cmd, "sample-size", cfg.Selection.SampleSize)
	seed := int64Flag(cmd, "seed", cfg.Selection.Seed)
	exclude := cfg.Selection.ExcludeSites
	if v, _ := cmd.Flags().GetString("exclude"); v != "" {
		exclude = splitAndTrim(v)
	}
	skipMoran, _ := cmd.Flags().GetBool("skip-moran")
	outputPath, _ := cmd.Flags().GetString("output")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	chartsDir := cfg.Charts.Dir
	if v, _ := cmd.Flags().GetString("charts-dir"); v != "" {
		chartsDir = v
	}
	storePath := cfg.Store.Path
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		storePath = v
	}

	schema := schemaFromConfig(cfg)
	if err := schema.Validate(); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "select"))

	// Spatial autocorrelation check. Advisory only: a significant result is
	// reported but does not stop the draw.
	if !skipMoran && habitatPath != "" {
		records, err := dataset.LoadHabitat(habitatPath, schema, cfg.Moran.Covariate)
		if err != nil {
			return err
		}
		moran, err := spatial.Autocorrelation(records)
		if err != nil {
			return err
		}
		log.Info("spatial autocorrelation check",
			zap.Float64("morans_i", moran.I),
			zap.Float64("p_value", moran.PValue),
		)
		if moran.PValue < 0.05 {
			fmt.Printf("Warning: %s shows significant positive spatial autocorrelation (I=%.4f, p=%.4f)\n",
				cfg.Moran.Covariate, moran.I, moran.PValue)
		}
	}

	histories, err := dataset.LoadDetections(detectionsPath, schema)
	if err != nil {
		return err
	}

	fitted, err := occupancy.Fit(histories, occupancy.Options{Exclude: exclude})
	if err != nil {
		return err
	}
	log.Info("model fitted",
		zap.Int("sites", fitted.Sites),
		zap.Float64("detection_prob", fitted.DetectionProb),
	)

	candidates, err := loadCandidates(candidatesPath, schema)
	if err != nil {
		return err
	}
	if sampleSize > len(candidates) {
		return eris.Errorf("select: sample size %d exceeds %d candidates", sampleSize, len(candidates))
	}

	scored := make([]model.ScoredSite, len(candidates))
	ids := make([]string, len(candidates))
	weights := make([]float64, len(candidates))
	for i, site := range candidates {
		pred := fitted.Predict(site.MeanDepth)
		scored[i] = model.ScoredSite{Site: site, Prediction: pred}
		ids[i] = site.PoolID
		weights[i] = pred.Psi
	}

	rng := rand.New(rand.NewSource(seed))
	drawn, err := sampling.WithoutReplacement(rng, ids, weights, sampleSize)
	if err != nil {
		return err
	}

	byID := make(map[string]model.ScoredSite, len(scored))
	for _, s := range scored {
		byID[s.PoolID] = s
	}
	sel := &model.Selection{
		Season:     season,
		SampleSize: sampleSize,
		Seed:       seed,
		Candidates: len(candidates),
		Sites:      make([]model.ScoredSite, 0, len(drawn)),
	}
	for _, id := range drawn {
		sel.Sites = append(sel.Sites, byID[id])
	}

	fitSummary := fitted.Summary()

	if err := report.ExportCSV(sel, outputPath); err != nil {
		return err
	}
	fmt.Printf("Selected sites written to %s\n", outputPath)

	if xlsxPath != "" {
		if err := report.ExportXLSX(sel, fitSummary, xlsxPath); err != nil {
			return err
		}
		fmt.Printf("Workbook written to %s\n", xlsxPath)
	}

	if chartsDir != "" {
		if err := renderCharts(sel, fitted, candidates, histories, chartsDir); err != nil {
			return err
		}
		fmt.Printf("Charts written to %s\n", chartsDir)
	}

	if storePath != "" {
		st, err := store.Open(storePath)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		runID, err := st.SaveSelection(cmd.Context(), sel, fitSummary)
		if err != nil {
			return err
		}
		fmt.Printf("Run archived as %s\n", runID)
	}

	fmt.Println()
	fmt.Print(report.Summary(sel, fitSummary))

	return nil
}

// intFlag returns the flag value when the flag was set on the command line,
// else the config fallback. Checking Changed instead of the value keeps an
// explicit zero (e.g. --seed 0) distinct from an unset flag.
func intFlag(cmd *cobra.Command, name string, fallback int) int {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetInt(name)
		return v
	}
	return fallback
}

func int64Flag(cmd *cobra.Command, name string, fallback int64) int64 {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetInt64(name)
		return v
	}
	return fallback
}

// loadCandidates reads the candidate table, dispatching on file extension.
func loadCandidates(path string, schema dataset.Schema) ([]model.Site, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return dataset.LoadCandidatesShapefile(path, schema)
	}
	return dataset.LoadCandidates(path, schema)
}

func renderCharts(sel *model.Selection, fitted *occupancy.Fitted, candidates []model.Site, histories []model.DetectionHistory, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "select: create charts dir %s", dir)
	}
	chartCfg := chartConfig(cfg)

	depths := make([]float64, len(candidates))
	for i, c := range candidates {
		depths[i] = c.MeanDepth
	}
	if err := charts.DepthHistogram(depths, filepath.Join(dir, "depth_histogram.png"), chartCfg); err != nil {
		return err
	}

	minDepth, maxDepth := depthRange(histories)
	if err := charts.OccupancyCurve(fitted.Predict, minDepth, maxDepth, filepath.Join(dir, "occupancy_curve.png"), chartCfg); err != nil {
		return err
	}

	selected := make(map[string]bool, len(sel.Sites))
	for _, s := range sel.Sites {
		selected[s.PoolID] = true
	}
	return charts.SiteMap(candidates, selected, filepath.Join(dir, "site_map.png"), chartCfg)
}
