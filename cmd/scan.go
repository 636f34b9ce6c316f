package cmd

import (
	"smartobd/internal/cmd/scan"

	"github.com/spf13/cobra"
)

var readBasicCmd = &cobra.Command{
	Use:   "read-basic",
	Short: "Read RPM, speed and coolant temperature",
	Args:  cobra.NoArgs,
	Run:   scan.ReadBasic,
}

var dtcCmd = &cobra.Command{
	Use:   "dtc",
	Short: "Read stored trouble codes",
	Args:  cobra.NoArgs,
	Run:   scan.DTC,
}

var clearDTCCmd = &cobra.Command{
	Use:   "clear-dtc",
	Short: "Clear trouble codes and turn off the check engine light",
	Args:  cobra.NoArgs,
	Run:   scan.ClearDTC,
}

var vinCmd = &cobra.Command{
	Use:   "vin",
	Short: "Read the vehicle identification number",
	Args:  cobra.NoArgs,
	Run:   scan.VIN,
}

var batteryCmd = &cobra.Command{
	Use:   "battery",
	Short: "Read control module and adapter voltage",
	Args:  cobra.NoArgs,
	Run:   scan.Battery,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial devices",
	Args:  cobra.NoArgs,
	Run:   scan.Ports,
}

func init() {
	dtcCmd.Flags().Bool("pending", false, "Read pending codes (mode 07) instead")

	rootCmd.AddCommand(readBasicCmd, dtcCmd, clearDTCCmd, vinCmd, batteryCmd, portsCmd)
}
