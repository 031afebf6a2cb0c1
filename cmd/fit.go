package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prairiefish/survey-cli/internal/charts"
	"github.com/prairiefish/survey-cli/internal/config"
	"github.com/prairiefish/survey-cli/internal/dataset"
	"github.com/prairiefish/survey-cli/internal/model"
	"github.com/prairiefish/survey-cli/internal/occupancy"
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the single-season occupancy model",
	Long: `Fit a single-season occupancy model to three-visit detection
histories. Detection probability is constant; occupancy probability is a
logistic function of mean pool depth.

Prints maximum-likelihood estimates with standard errors and can render the
fitted occupancy-versus-depth curve.

Examples:
  # Fit the default detection table
  fit

  # Fit with known bad sites excluded and render the curve
  fit --exclude P-0112,P-0240 --charts-dir out/charts`,
	RunE: runFit,
}

func init() {
	f := fitCmd.Flags()
	f.String("input", "", "detection history CSV path (overrides config)")
	f.String("exclude", "", "comma-separated Pool.ID values to drop before fitting")
	f.String("charts-dir", "", "directory for diagnostic charts (overrides config; empty disables)")

	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		input = cfg.Inputs.Detections
	}
	if input == "" {
		return eris.New("fit: no detection input (set --input or inputs.detections)")
	}

	exclude := cfg.Selection.ExcludeSites
	if v, _ := cmd.Flags().GetString("exclude"); v != "" {
		exclude = splitAndTrim(v)
	}
	chartsDir := cfg.Charts.Dir
	if v, _ := cmd.Flags().GetString("charts-dir"); v != "" {
		chartsDir = v
	}

	schema := schemaFromConfig(cfg)
	if err := schema.Validate(); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "fit"))
	log.Info("loading detection histories", zap.String("path", input))

	histories, err := dataset.LoadDetections(input, schema)
	if err != nil {
		return err
	}

	fitted, err := occupancy.Fit(histories, occupancy.Options{Exclude: exclude})
	if err != nil {
		return err
	}

	log.Info("model fitted",
		zap.Int("sites", fitted.Sites),
		zap.Float64("log_likelihood", fitted.LogLikelihood),
	)

	printFit(fitted)

	if chartsDir != "" {
		if err := os.MkdirAll(chartsDir, 0o755); err != nil {
			return eris.Wrapf(err, "fit: create charts dir %s", chartsDir)
		}
		minDepth, maxDepth := depthRange(histories)
		chartCfg := chartConfig(cfg)
		curvePath := filepath.Join(chartsDir, "occupancy_curve.png")
		if err := charts.OccupancyCurve(fitted.Predict, minDepth, maxDepth, curvePath, chartCfg); err != nil {
			return err
		}
		fmt.Printf("\nOccupancy curve written to %s\n", curvePath)
	}

	return nil
}

func chartConfig(c *config.Config) charts.Config {
	chartCfg := charts.DefaultConfig()
	if c.Charts.WidthInches > 0 {
		chartCfg.WidthInches = c.Charts.WidthInches
	}
	if c.Charts.HeightInches > 0 {
		chartCfg.HeightInches = c.Charts.HeightInches
	}
	return chartCfg
}

// depthRange returns the min and max depth across the fitted histories, for
// plotting the curve over the observed range only.
func depthRange(histories []model.DetectionHistory) (float64, float64) {
	minDepth, maxDepth := histories[0].Depth, histories[0].Depth
	for _, h := range histories[1:] {
		if h.Depth < minDepth {
			minDepth = h.Depth
		}
		if h.Depth > maxDepth {
			maxDepth = h.Depth
		}
	}
	return minDepth, maxDepth
}

func printFit(f *occupancy.Fitted) {
	fmt.Printf("Occupancy model fit (%d sites)\n\n", f.Sites)
	fmt.Printf("%-28s %12s %12s\n", "Parameter", "Estimate", "Std. Error")
	fmt.Printf("%-28s %12.4f %12.4f\n", "Occupancy intercept", f.OccIntercept, f.OccInterceptSE)
	fmt.Printf("%-28s %12.4f %12.4f\n", "Occupancy slope (depth)", f.OccSlope, f.OccSlopeSE)
	fmt.Printf("%-28s %12.4f %12.4f\n", "Detection intercept", f.DetIntercept, f.DetInterceptSE)
	fmt.Printf("\nDetection probability: %.4f\n", f.DetectionProb)
	fmt.Printf("Log-likelihood:        %.4f\n", f.LogLikelihood)
}
