package cmd

import (
	"smartobd/internal/cmd/live"
	"smartobd/internal/cmd/root"

	"github.com/spf13/cobra"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Print live values",
	Args:  cobra.NoArgs,
	Run:   live.Live,
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log live values to a CSV file",
	Args:  cobra.NoArgs,
	Run:   live.Log,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the live dashboard",
	Args:  cobra.NoArgs,
	Run:   root.Run,
}

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Serve live values over WebSocket",
	Args:  cobra.NoArgs,
	Run:   live.Stream,
}

// addSamplingFlags adds --pids and --hz to c.
func addSamplingFlags(c *cobra.Command, hz float64) {
	c.Flags().StringSlice("pids", live.DefaultFields, "Comma separated fields to poll")
	c.Flags().Float64("hz", hz, "Samples per second")
}

func init() {
	addSamplingFlags(liveCmd, 1)
	liveCmd.Flags().Float64("secs", 15, "Duration in seconds")

	addSamplingFlags(logCmd, 5)
	logCmd.Flags().Float64("secs", 60, "Duration in seconds")
	logCmd.Flags().String("csv", "logs.csv", "Output CSV file")

	addSamplingFlags(dashboardCmd, 2)

	addSamplingFlags(streamCmd, 5)
	streamCmd.Flags().Float64("secs", 0, "Duration in seconds (0 runs until interrupted)")
	streamCmd.Flags().String("listen", ":8080", "HTTP listen address")

	rootCmd.AddCommand(liveCmd, logCmd, dashboardCmd, streamCmd)
}
