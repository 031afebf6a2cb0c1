package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/prairiefish/survey-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List or inspect archived selection runs",
	Long: `List selection runs archived in the run-history database, or show the
full site list of one run by ID.

Examples:
  # List recent runs
  runs --store runs.db

  # Show one run's selected sites
  runs 1b4e28ba-2fa1-11d2-883f-0016d3cca427 --store runs.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	f := runsCmd.Flags()
	f.String("store", "", "SQLite run-history database path (overrides config)")
	f.Int("limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	storePath, _ := cmd.Flags().GetString("store")
	if storePath == "" {
		storePath = cfg.Store.Path
	}
	if storePath == "" {
		return eris.New("runs: no store path (set --store or store.path)")
	}

	st, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(cmd.Context()); err != nil {
		return err
	}

	if len(args) == 1 {
		run, sites, err := st.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Run:        %s\n", run.ID)
		fmt.Printf("Season:     %s\n", run.Season)
		fmt.Printf("Drawn:      %d of %d candidates (seed %d)\n", run.SampleSize, run.Candidates, run.Seed)
		fmt.Printf("Created:    %s\n\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("%-12s %10s %10s %8s\n", "Pool.ID", "Depth", "Psi", "Head")
		for _, s := range sites {
			fmt.Printf("%-12s %10.3f %10.4f %8.3f\n", s.PoolID, s.MeanDepth, s.Psi, s.HydraulicHead)
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := st.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	fmt.Printf("%-36s %-14s %6s %10s %12s  %s\n", "ID", "Season", "Drawn", "Pool", "Seed", "Created")
	for _, r := range runs {
		fmt.Printf("%-36s %-14s %6d %10d %12d  %s\n",
			r.ID, r.Season, r.SampleSize, r.Candidates, r.Seed,
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
