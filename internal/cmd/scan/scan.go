// Package scan holds the one-shot diagnostic commands.
package scan

import (
	"context"
	"fmt"
	"io"

	"smartobd/internal/cmd/session"
	"smartobd/internal/diag"
	"smartobd/internal/obd/elm327"
	"smartobd/internal/ui"
	"smartobd/pkg/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func ReadBasic(cmd *cobra.Command, args []string) {
	s, ctx, done := session.Start(cmd)
	defer done()
	readBasic(ctx, cmd.OutOrStdout(), s.Scanner)
}

func DTC(cmd *cobra.Command, args []string) {
	pending, _ := cmd.Flags().GetBool("pending")

	s, ctx, done := session.Start(cmd)
	defer done()
	readDTCs(ctx, cmd.OutOrStdout(), s.Scanner, pending)
}

func ClearDTC(cmd *cobra.Command, args []string) {
	s, ctx, done := session.Start(cmd)
	defer done()
	clearDTCs(ctx, cmd.OutOrStdout(), s.Scanner)
}

func VIN(cmd *cobra.Command, args []string) {
	s, ctx, done := session.Start(cmd)
	defer done()
	readVIN(ctx, cmd.OutOrStdout(), s.Scanner)
}

func Battery(cmd *cobra.Command, args []string) {
	s, ctx, done := session.Start(cmd)
	defer done()
	readBattery(ctx, cmd.OutOrStdout(), s.Scanner)
}

// Ports lists the serial devices without opening any of them.
func Ports(cmd *cobra.Command, args []string) {
	ports, err := elm327.ListPorts()
	if err != nil {
		log.Error("failed to enumerate serial ports", zap.Error(err))
	}
	printPorts(cmd.OutOrStdout(), ports)
}

func readBasic(ctx context.Context, w io.Writer, s *diag.Scanner) {
	b := s.ReadBasic(ctx)
	fmt.Fprintln(w, ui.Title("Basic readings"))
	fmt.Fprintln(w, ui.Reading("RPM", b.RPM, ""))
	fmt.Fprintln(w, ui.Reading("Speed", b.Speed, "km/h"))
	fmt.Fprintln(w, ui.Reading("Coolant", b.Temp, "°C"))
}

func readDTCs(ctx context.Context, w io.Writer, s *diag.Scanner, pending bool) {
	if pending {
		fmt.Fprintln(w, ui.Title("Pending trouble codes"))
		fmt.Fprintln(w, ui.DTCList(s.ReadPendingDTCs(ctx)))
		return
	}
	fmt.Fprintln(w, ui.Title("Stored trouble codes"))
	fmt.Fprintln(w, ui.DTCList(s.ReadDTCs(ctx)))
}

func clearDTCs(ctx context.Context, w io.Writer, s *diag.Scanner) {
	s.ClearDTCs(ctx)
	fmt.Fprintln(w, "Clear request sent. The result is not verified: run 'dtc' to check.")
}

func readVIN(ctx context.Context, w io.Writer, s *diag.Scanner) {
	vin := ui.DimStyle.Render(ui.NotAvailable)
	if v := s.ReadVIN(ctx); v != nil {
		vin = ui.BoldStyle.Render(*v)
	}
	fmt.Fprintln(w, ui.Field("VIN", vin))
}

func readBattery(ctx context.Context, w io.Writer, s *diag.Scanner) {
	fmt.Fprintln(w, ui.Reading("Module", s.ReadVoltage(ctx), "V"))
	fmt.Fprintln(w, ui.Reading("Adapter", s.ReadAdapterVoltage(ctx), "V"))
}

func printPorts(w io.Writer, ports []elm327.PortInfo) {
	if len(ports) == 0 {
		fmt.Fprintln(w, ui.DimStyle.Render("No serial devices found"))
		return
	}
	fmt.Fprintln(w, ui.Title("Serial devices"))
	for _, p := range ports {
		desc := p.Product
		if p.IsUSB {
			desc = fmt.Sprintf("%s (USB %s:%s)", desc, p.VID, p.PID)
		}
		fmt.Fprintln(w, ui.Field(p.Name, desc))
	}
}
