package cmd

import (
	"smartobd/internal/cmd/export"

	"github.com/spf13/cobra"
)

var exportPDFCmd = &cobra.Command{
	Use:   "export-pdf",
	Short: "Write a PDF diagnostic report",
	Args:  cobra.NoArgs,
	Run:   export.Run(export.PDF),
}

var exportJSONCmd = &cobra.Command{
	Use:   "export-json",
	Short: "Write a JSON diagnostic report",
	Args:  cobra.NoArgs,
	Run:   export.Run(export.JSON),
}

func init() {
	exportPDFCmd.Flags().String("out", "", "Output file (default report_YYYYmmdd_HHMMSS.pdf)")
	exportJSONCmd.Flags().String("out", "", "Output file (default report_YYYYmmdd_HHMMSS.json)")

	rootCmd.AddCommand(exportPDFCmd, exportJSONCmd)
}
