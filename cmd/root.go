package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prairiefish/survey-cli/internal/config"
	"github.com/prairiefish/survey-cli/internal/dataset"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "survey-cli",
	Short: "Fish monitoring site selection pipeline",
	Long:  "Checks spatial autocorrelation in pool habitat, fits a single-season occupancy model to repeated-haul detection histories, and draws a probability-weighted sample of candidate pools for the coming season.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// schemaFromConfig builds the column schema from config, falling back to the
// standard export names for anything left unset.
func schemaFromConfig(c *config.Config) dataset.Schema {
	s := dataset.DefaultSchema()
	if c.Columns.SiteID != "" {
		s.SiteID = c.Columns.SiteID
	}
	if c.Columns.Longitude != "" {
		s.Longitude = c.Columns.Longitude
	}
	if c.Columns.Latitude != "" {
		s.Latitude = c.Columns.Latitude
	}
	if c.Columns.Depth != "" {
		s.Depth = c.Columns.Depth
	}
	if c.Columns.HydraulicHead != "" {
		s.HydraulicHead = c.Columns.HydraulicHead
	}
	if len(c.Columns.Hauls) == 3 {
		s.Hauls = c.Columns.Hauls
	}
	return s
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
