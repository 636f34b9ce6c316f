package root

import (
	"fmt"

	"smartobd/internal/cmd/live"
	"smartobd/internal/cmd/session"
	"smartobd/internal/displayer"
	"smartobd/pkg/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Run opens the live dashboard. It is the action of the bare command and
// of "dashboard".
func Run(cmd *cobra.Command, args []string) {
	opts := live.ReadOptions(cmd)
	s, ctx, done := session.Start(cmd)
	defer done()

	smp, err := live.NewSampler(s.Scanner, opts)
	if err != nil {
		done()
		log.Fatal("invalid sampling options", zap.Error(err))
	}

	// Codes are read once, before the sampling goroutine owns the adapter.
	d := displayer.New(smp, displayer.Config{
		Port:     s.Port,
		Status:   s.Conn.Status(),
		Registry: s.Scanner.Registry(),
		DTCs:     s.Scanner.ReadDTCs(ctx),
	})

	if err := d.Run(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
	}
}
