package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	useMock    bool
)

var rootCmd = &cobra.Command{
	Use:   "sectorpulse",
	Short: "Sector indicator and trend classification engine",
	Long: `SectorPulse fetches daily history for a universe of sector instruments,
computes RSI, Bollinger %B, MA deviation and volume ratio, labels each
instrument and ranks the hot ones into one snapshot per run.

Examples:
  sectorpulse run --dry-run
  sectorpulse serve --config configs/config.yaml`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $CONFIG_PATH or configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "use generated prices instead of the chart API")
}

func configPath() string {
	if configFile != "" {
		return configFile
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

func envBool(key string) bool {
	return os.Getenv(key) == "true"
}
