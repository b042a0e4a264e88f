package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one analysis and print the snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx, buildOptions{dryRun: dryRun})
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.runner.Run(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Snapshot)
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "skip storage, publishing and notifications")
	rootCmd.AddCommand(runCmd)
}
