package displayer

import (
	"context"
	"fmt"
	"sync"

	"smartobd/internal/models"
	"smartobd/internal/obd"
	"smartobd/internal/sampler"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// historySize is the number of points kept for the sparkline.
const historySize = 60

// Config carries what the dashboard shows besides the live samples.
type Config struct {
	Port     string
	Status   obd.Status
	Registry *obd.Registry
	DTCs     []models.DTCEntry
}

// Displayer handles the TUI. It consumes the sample stream in a single
// goroutine, which is the only one touching the connection.
type Displayer struct {
	app     *tview.Application
	tabs    *tview.Pages
	sampler *sampler.Sampler
	cfg     Config

	mu      sync.Mutex
	last    sampler.Sample
	history []float64
	ticks   int

	// UI elements cached for updates
	statusText  *tview.TextView
	helpText    *tview.TextView
	elapsedText *tview.TextView
	sparkText   *tview.TextView
	valueTable  *tview.Table
	dtcTable    *tview.Table
}

func New(s *sampler.Sampler, cfg Config) *Displayer {
	if cfg.Registry == nil {
		cfg.Registry = obd.NewRegistry()
	}
	return &Displayer{
		app:     tview.NewApplication(),
		tabs:    tview.NewPages(),
		sampler: s,
		cfg:     cfg,
	}
}

// Run shows the dashboard until the user quits or ctx is cancelled. It
// returns once the sampling goroutine has finished its current tick.
func (d *Displayer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dashboard := d.buildDashboard()
	dtc := d.buildDTC()

	// header area: title, status, help
	title := tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText("smartobd - live OBD-II dashboard")
	d.statusText = tview.NewTextView().SetTextAlign(tview.AlignCenter).SetDynamicColors(true)
	d.helpText = tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText("[1 - Dashboard] [2 - DTC] [q - Quit]")

	headerFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	headerFlex.AddItem(title, 1, 0, false)
	headerFlex.AddItem(d.statusText, 1, 0, false)
	headerFlex.AddItem(d.helpText, 1, 0, false)

	mainFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	mainFlex.AddItem(headerFlex, 3, 0, false)

	d.tabs.AddPage("dashboard", dashboard, true, true)
	d.tabs.AddPage("dtc", dtc, true, false)
	mainFlex.AddItem(d.tabs, 0, 1, true)

	d.app.SetRoot(mainFlex, true)
	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q', 'Q':
			cancel()
			d.app.Stop()
			return nil
		case '1':
			d.tabs.SwitchToPage("dashboard")
			return nil
		case '2':
			d.tabs.SwitchToPage("dtc")
			return nil
		}
		return event
	})
	d.updateValues()

	// central BeforeDraw to update UI elements
	d.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		d.updateValues()
		return false
	})

	// The sampling goroutine never waits on the UI.
	redraw := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for sample := range d.sampler.Run(ctx, 0) {
			d.push(sample)
			select {
			case redraw <- struct{}{}:
			default:
			}
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				d.app.Stop()
				return
			case <-redraw:
				d.app.Draw()
			}
		}
	}()

	err := d.app.Run()
	cancel()
	<-done
	return err
}

func (d *Displayer) buildDashboard() *tview.Flex {
	d.valueTable = tview.NewTable().SetBorders(false)
	for col, h := range []string{"Field", "Value", "Unit"} {
		d.valueTable.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(tcell.ColorYellow).
			SetExpansion(1))
	}
	for i, f := range d.sampler.Fields() {
		unit := ""
		if p, err := d.cfg.Registry.Parse(f); err == nil {
			unit = string(p.Unit)
		}
		d.valueTable.SetCell(i+1, 0, tview.NewTableCell(f).SetExpansion(1))
		d.valueTable.SetCell(i+1, 1, tview.NewTableCell("-").SetExpansion(1).SetAlign(tview.AlignRight))
		d.valueTable.SetCell(i+1, 2, tview.NewTableCell(unit).SetExpansion(1))
	}

	d.elapsedText = tview.NewTextView().SetDynamicColors(true)
	d.sparkText = tview.NewTextView().SetDynamicColors(true)
	d.sparkText.SetBorder(true).SetTitle(" " + d.sampler.Fields()[0] + " ")

	infoFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	infoFlex.AddItem(d.valueTable, 0, 1, false)
	infoFlex.AddItem(d.elapsedText, 1, 0, false)
	infoFlex.AddItem(d.sparkText, 4, 0, false)
	return infoFlex
}

func (d *Displayer) buildDTC() *tview.Table {
	tbl := tview.NewTable().SetBorders(true)
	tbl.SetCell(0, 0, tview.NewTableCell("Code").SetSelectable(false).SetAlign(tview.AlignCenter))
	tbl.SetCell(0, 1, tview.NewTableCell("Description").SetSelectable(false).SetAlign(tview.AlignCenter))

	if len(d.cfg.DTCs) == 0 {
		tbl.SetCell(1, 0, tview.NewTableCell("-"))
		tbl.SetCell(1, 1, tview.NewTableCell("No stored trouble codes"))
	}
	for i, e := range d.cfg.DTCs {
		tbl.SetCell(i+1, 0, tview.NewTableCell(e.Code))
		tbl.SetCell(i+1, 1, tview.NewTableCell(e.Description))
	}
	d.dtcTable = tbl
	return tbl
}

// push records a sample and extends the history of the first field.
func (d *Displayer) push(s sampler.Sample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = s
	d.ticks++
	if len(s.Fields) == 0 {
		return
	}
	if f, ok := s.Value(s.Fields[0]).Float(); ok {
		d.history = appendBounded(d.history, f, historySize)
	}
}

// updateValues redraws the widgets from the last sample. It runs on the
// UI goroutine.
func (d *Displayer) updateValues() {
	d.mu.Lock()
	last, history, ticks := d.last, append([]float64(nil), d.history...), d.ticks
	d.mu.Unlock()

	status := fmt.Sprintf("[red]%s[white]", d.cfg.Status)
	if d.cfg.Status == obd.OBDConnected {
		status = fmt.Sprintf("[green]%s[white]", d.cfg.Status)
	}
	d.statusText.SetText(fmt.Sprintf("Port: %s  Status: %s", d.cfg.Port, status))

	for i, f := range d.sampler.Fields() {
		text := "-"
		if v := last.Value(f); !v.IsAbsent() {
			text = formatValue(v)
		}
		d.valueTable.GetCell(i+1, 1).SetText(text)
	}
	d.elapsedText.SetText(fmt.Sprintf("t = %.1f s  (%d samples)", last.Elapsed, ticks))
	d.sparkText.SetText("[green]" + Sparkline(history, historySize) + "[white]")
}
