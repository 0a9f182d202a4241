package service

import (
	"context"
	"errors"
	"testing"

	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/ports"
)

func newTestMeterService(f *fixture) *MeterService {
	return NewMeterService(f.meters, f.locations, f.readings, discardLogger)
}

func TestMeterService_Create_DerivesUnit(t *testing.T) {
	f := newFixture()
	svc := newTestMeterService(f)
	loc := f.addLocation("Home", 0)

	tests := []struct {
		ean  string
		typ  domain.MeterType
		unit domain.Unit
	}{
		{"1001", domain.MeterGas, domain.UnitCubicMeter},
		{"1002", domain.MeterWater, domain.UnitCubicMeter},
		{"1003", domain.MeterElectricity, domain.UnitKilowattHour},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			m, err := svc.Create(context.Background(), f.employee, ports.CreateMeterInput{EAN: tt.ean, Type: tt.typ, LocationID: loc.ID})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if m.Unit != tt.unit {
				t.Errorf("expected unit %s, got %s", tt.unit, m.Unit)
			}
			if m.Status != domain.MeterOpen {
				t.Errorf("expected default status open, got %s", m.Status)
			}
			if m.LastUpdate.IsZero() {
				t.Error("LastUpdate must be set")
			}
		})
	}
}

func TestMeterService_Create_Rejections(t *testing.T) {
	f := newFixture()
	svc := newTestMeterService(f)
	ctx := context.Background()
	loc := f.addLocation("Home", 0)
	f.addMeter("2001", domain.MeterGas, 0, loc.ID)

	tests := []struct {
		name string
		p    domain.Principal
		in   ports.CreateMeterInput
		want error
	}{
		{"consumer", f.consumer, ports.CreateMeterInput{EAN: "x", Type: domain.MeterGas, LocationID: loc.ID}, domain.ErrForbidden},
		{"blank ean", f.employee, ports.CreateMeterInput{Type: domain.MeterGas, LocationID: loc.ID}, domain.ErrInvalidInput},
		{"bad type", f.employee, ports.CreateMeterInput{EAN: "x", Type: "steam", LocationID: loc.ID}, domain.ErrInvalidInput},
		{"bad status", f.employee, ports.CreateMeterInput{EAN: "x", Type: domain.MeterGas, Status: "broken", LocationID: loc.ID}, domain.ErrInvalidInput},
		{"negative reading", f.employee, ports.CreateMeterInput{EAN: "x", Type: domain.MeterGas, Reading: -1, LocationID: loc.ID}, domain.ErrInvalidInput},
		{"missing location", f.employee, ports.CreateMeterInput{EAN: "x", Type: domain.MeterGas, LocationID: 999}, domain.ErrNotFound},
		{"duplicate ean", f.employee, ports.CreateMeterInput{EAN: "2001", Type: domain.MeterGas, LocationID: loc.ID}, domain.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.p, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMeterService_Update_ReadingMustIncrease(t *testing.T) {
	f := newFixture()
	svc := newTestMeterService(f)
	ctx := context.Background()
	loc := f.addLocation("Home", 0)
	f.addMeter("3001", domain.MeterElectricity, 100, loc.ID)

	for _, r := range []float64{100, 99} {
		if _, err := svc.Update(ctx, f.employee, "3001", ports.UpdateMeterInput{Reading: ptr(r)}); !errors.Is(err, domain.ErrReadingMustIncrease) {
			t.Errorf("reading %v: expected ErrReadingMustIncrease, got %v", r, err)
		}
	}

	m, err := svc.Update(ctx, f.employee, "3001", ports.UpdateMeterInput{Reading: ptr(100.01)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if m.Reading != 100.01 {
		t.Errorf("expected 100.01, got %v", m.Reading)
	}
	if len(f.readings.records) != 1 || f.readings.records[0].Source != domain.SourceAPI {
		t.Fatalf("expected one api history record, got %+v", f.readings.records)
	}
	if f.readings.records[0].RecordedBy != f.employee.Email {
		t.Errorf("expected recorder %s, got %s", f.employee.Email, f.readings.records[0].RecordedBy)
	}
}

func TestMeterService_Update_StatusOnlySkipsHistory(t *testing.T) {
	f := newFixture()
	svc := newTestMeterService(f)
	loc := f.addLocation("Home", 0)
	f.addMeter("3002", domain.MeterWater, 5, loc.ID)

	m, err := svc.Update(context.Background(), f.employee, "3002", ports.UpdateMeterInput{Status: ptr(domain.MeterClosed)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if m.Status != domain.MeterClosed || m.Reading != 5 {
		t.Errorf("unexpected meter %+v", m)
	}
	if len(f.readings.records) != 0 {
		t.Errorf("status change must not add history, got %d records", len(f.readings.records))
	}
}

func TestMeterService_Update_StoreRejectsLostRace(t *testing.T) {
	f := newFixture()
	svc := newTestMeterService(f)
	loc := f.addLocation("Home", 0)
	f.addMeter("3003", domain.MeterGas, 10, loc.ID)
	f.meters.applyErr = domain.ErrReadingMustIncrease

	if _, err := svc.Update(context.Background(), f.employee, "3003", ports.UpdateMeterInput{Reading: ptr(11.0)}); !errors.Is(err, domain.ErrReadingMustIncrease) {
		t.Fatalf("expected ErrReadingMustIncrease, got %v", err)
	}
}

func TestMeterService_Update_HistoryFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	svc := newTestMeterService(f)
	loc := f.addLocation("Home", 0)
	f.addMeter("3004", domain.MeterGas, 10, loc.ID)
	f.readings.appendErr = errStoreDown

	if _, err := svc.Update(context.Background(), f.employee, "3004", ports.UpdateMeterInput{Reading: ptr(11.0)}); err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}
}

func TestMeterService_ConsumerVisibility(t *testing.T) {
	f := newFixture()
	svc := newTestMeterService(f)
	ctx := context.Background()
	mine := f.addLocation("Mine", f.consumer.UserID)
	theirs := f.addLocation("Theirs", f.other.UserID)
	f.addMeter("4001", domain.MeterGas, 1, mine.ID)
	f.addMeter("4002", domain.MeterGas, 1, theirs.ID)

	meters, err := svc.List(ctx, f.consumer)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(meters) != 1 || meters[0].EAN != "4001" {
		t.Fatalf("expected only own meter, got %+v", meters)
	}

	if _, err := svc.Get(ctx, f.consumer, "4001"); err != nil {
		t.Errorf("own meter: %v", err)
	}
	if _, err := svc.Get(ctx, f.consumer, "4002"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign meter: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.History(ctx, f.consumer, "4002", 10); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign history: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Update(ctx, f.consumer, "4001", ports.UpdateMeterInput{Reading: ptr(2.0)}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("consumer update: expected ErrForbidden, got %v", err)
	}
}

func TestMeterService_History_NewestFirst(t *testing.T) {
	f := newFixture()
	svc := newTestMeterService(f)
	ctx := context.Background()
	loc := f.addLocation("Home", 0)
	f.addMeter("5001", domain.MeterGas, 0, loc.ID)

	for _, r := range []float64{1, 2, 3} {
		if _, err := svc.Update(ctx, f.employee, "5001", ports.UpdateMeterInput{Reading: ptr(r)}); err != nil {
			t.Fatalf("update %v: %v", r, err)
		}
	}

	recs, err := svc.History(ctx, f.admin, "5001", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(recs) != 2 || recs[0].Reading != 3 || recs[1].Reading != 2 {
		t.Fatalf("unexpected history %+v", recs)
	}
}

func TestMeterService_Delete_AdminOnly(t *testing.T) {
	f := newFixture()
	svc := newTestMeterService(f)
	ctx := context.Background()
	loc := f.addLocation("Home", 0)
	f.addMeter("6001", domain.MeterGas, 0, loc.ID)

	if err := svc.Delete(ctx, f.employee, "6001"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("employee delete: expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, f.admin, "6001"); err != nil {
		t.Errorf("admin delete: %v", err)
	}
	if err := svc.Delete(ctx, f.admin, "6001"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}
