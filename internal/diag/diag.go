// Package diag builds the scanner's user level operations on top of the
// query engine. None of them fail: whatever the vehicle does not answer
// comes back as nil or empty.
package diag

import (
	"context"
	"fmt"
	"time"

	"smartobd/internal/dtc"
	"smartobd/internal/models"
	"smartobd/internal/obd"
	"smartobd/pkg/log"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Link is the part of a connection the scanner needs.
type Link interface {
	obd.Sender
	AdapterVoltage(ctx context.Context) (float64, error)
	Status() obd.Status
}

type Scanner struct {
	link    Link
	reg     *obd.Registry
	catalog *dtc.Catalog
	now     func() time.Time
}

// NewScanner returns a scanner over link. A nil registry or catalog means
// the built-in one.
func NewScanner(link Link, reg *obd.Registry, catalog *dtc.Catalog) *Scanner {
	if reg == nil {
		reg = obd.NewRegistry()
	}
	if catalog == nil {
		catalog = dtc.NewCatalog(nil)
	}
	return &Scanner{
		link:    link,
		reg:     reg,
		catalog: catalog,
		now:     time.Now,
	}
}

func (s *Scanner) Registry() *obd.Registry { return s.reg }

func (s *Scanner) Status() obd.Status { return s.link.Status() }

// Read queries a live reading by its user facing name. Unknown names and
// commands that do not decode to a physical quantity (VIN, trouble code
// reads, clear) are absent and never reach the adapter.
func (s *Scanner) Read(ctx context.Context, field string) obd.Result {
	pid, err := s.field(field)
	if err != nil {
		log.Debug("field not readable", zap.String("field", field), zap.Error(err))
		return obd.Result{}
	}
	return obd.Query(ctx, s.link, pid)
}

// CheckField tells whether Read can return a value for field.
func (s *Scanner) CheckField(field string) error {
	_, err := s.field(field)
	return err
}

func (s *Scanner) field(field string) (obd.PID, error) {
	pid, err := s.reg.Parse(field)
	if err != nil {
		return obd.PID{}, err
	}
	if pid.Acknowledge() || !pid.Numeric() {
		return obd.PID{}, fmt.Errorf("%s is not a live reading: %w", field, obd.ErrUnknownPID)
	}
	return pid, nil
}

func (s *Scanner) query(ctx context.Context, name obd.Name) obd.Result {
	pid, err := s.reg.Lookup(name)
	if err != nil {
		log.Debug("pid not registered", zap.Stringer("pid", name), zap.Error(err))
		return obd.Result{}
	}
	return obd.Query(ctx, s.link, pid)
}

// ReadVIN returns nil when the vehicle or adapter does not support the
// request, which is common over Bluetooth.
func (s *Scanner) ReadVIN(ctx context.Context) *string {
	r := s.query(ctx, obd.VIN)
	vin, ok := r.Value.Text()
	if !r.Present || !ok {
		return nil
	}
	return &vin
}

// ReadVoltage returns the control module voltage.
func (s *Scanner) ReadVoltage(ctx context.Context) *float64 {
	return s.query(ctx, obd.ModuleVoltage).Value.FloatPtr()
}

// ReadAdapterVoltage returns the supply voltage measured by the adapter
// itself, available even with the ignition off.
func (s *Scanner) ReadAdapterVoltage(ctx context.Context) *float64 {
	v, err := s.link.AdapterVoltage(ctx)
	if err != nil {
		log.Debug("adapter voltage unavailable", zap.Error(err))
		return nil
	}
	return &v
}

func (s *Scanner) ReadBasic(ctx context.Context) models.BasicReadings {
	return models.BasicReadings{
		RPM:   s.query(ctx, obd.RPM).Value.FloatPtr(),
		Speed: s.query(ctx, obd.Speed).Value.FloatPtr(),
		Temp:  s.query(ctx, obd.CoolantTemp).Value.FloatPtr(),
	}
}

// ReadDTCs returns the stored trouble codes in the order the vehicle
// reported them.
func (s *Scanner) ReadDTCs(ctx context.Context) []models.DTCEntry {
	return s.readCodes(ctx, obd.GetDTC)
}

// ReadPendingDTCs returns codes detected during the current or last
// drive cycle that are not confirmed yet.
func (s *Scanner) ReadPendingDTCs(ctx context.Context) []models.DTCEntry {
	return s.readCodes(ctx, obd.PendingDTC)
}

func (s *Scanner) readCodes(ctx context.Context, name obd.Name) []models.DTCEntry {
	entries := []models.DTCEntry{}
	r := s.query(ctx, name)
	if !r.Present {
		return entries
	}
	for _, code := range r.Value.Codes() {
		entries = append(entries, models.DTCEntry{
			Code:        code,
			Description: s.catalog.Describe(code),
		})
	}
	return entries
}

// ClearDTCs asks the ECUs to erase stored codes and turn off the MIL.
// Adapters give no reliable confirmation, so the outcome is only logged.
func (s *Scanner) ClearDTCs(ctx context.Context) {
	r := s.query(ctx, obd.ClearDTC)
	log.Info("clear trouble codes sent", zap.Bool("acknowledged", r.Present))
}

// Snapshot reads everything a report needs, one query after the other.
func (s *Scanner) Snapshot(ctx context.Context) models.Snapshot {
	snap := models.Snapshot{
		ID:        uuid.NewString(),
		Timestamp: s.now(),
	}
	snap.VIN = s.ReadVIN(ctx)
	snap.Voltage = s.ReadVoltage(ctx)
	snap.Basic = s.ReadBasic(ctx)
	snap.DTCs = s.ReadDTCs(ctx)
	return snap
}
