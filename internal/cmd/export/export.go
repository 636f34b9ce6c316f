// Package export holds the report commands.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"smartobd/internal/cmd/session"
	"smartobd/internal/diag"
	"smartobd/internal/models"
	"smartobd/internal/report"
	"smartobd/internal/ui"
	"smartobd/pkg/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Format is one report renderer.
type Format struct {
	Ext   string
	Write func(path string, snap models.Snapshot) error
}

var (
	PDF  = Format{Ext: "pdf", Write: report.ExportPDF}
	JSON = Format{Ext: "json", Write: report.ExportJSON}
)

// Run returns the cobra body exporting a snapshot in format f.
func Run(f Format) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		out, _ := cmd.Flags().GetString("out")
		s, ctx, done := session.Start(cmd)
		defer done()

		if _, err := export(ctx, cmd.OutOrStdout(), s.Scanner, f, out); err != nil {
			done()
			log.Fatal("export failed", zap.String("format", f.Ext), zap.Error(err))
		}
	}
}

// export takes a snapshot and writes it to out, or to the default report
// name when out is empty. It returns the path written.
func export(ctx context.Context, w io.Writer, s *diag.Scanner, f Format, out string) (string, error) {
	snap := s.Snapshot(ctx)
	if out == "" {
		out = report.DefaultFilename(f.Ext, time.Now())
	}
	if err := f.Write(out, snap); err != nil {
		return "", err
	}
	log.Info("report written", zap.String("path", out), zap.String("id", snap.ID))
	fmt.Fprintln(w, ui.Field("Report", out))
	fmt.Fprintln(w, ui.Field("Trouble codes", fmt.Sprint(len(snap.DTCs))))
	return out, nil
}
