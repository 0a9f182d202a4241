package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/utilityops/meter-api/internal/core/domain"
)

func TestMeterCreate_DerivesUnit(t *testing.T) {
	svc := &stubMeterService{}
	body := `{"ean":"871","type":"electricity","reading":3,"location_id":7}`
	c, rec := newContext(t, http.MethodPost, "/v1/meters", body, &employee)

	if err := NewMeterHandler(svc).Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp meterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Unit != string(domain.UnitKilowattHour) || resp.LocationID != 7 || resp.Status != "open" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if svc.created == nil || svc.created.Type != domain.MeterElectricity {
		t.Errorf("unexpected service input: %+v", svc.created)
	}
}

func TestMeterCreate_RejectsUnit(t *testing.T) {
	svc := &stubMeterService{}
	body := `{"ean":"871","type":"gas","reading":0,"location_id":7,"unit":"kWh"}`
	c, _ := newContext(t, http.MethodPost, "/v1/meters", body, &employee)

	err := NewMeterHandler(svc).Create(c)
	if httpCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	if svc.created != nil {
		t.Error("service must not be called when a unit is supplied")
	}
}

func TestMeterCreate_Validation(t *testing.T) {
	tests := map[string]string{
		"unknown type":     `{"ean":"1","type":"steam","location_id":1}`,
		"missing ean":      `{"type":"gas","location_id":1}`,
		"negative reading": `{"ean":"1","type":"gas","reading":-2,"location_id":1}`,
		"missing location": `{"ean":"1","type":"gas"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c, _ := newContext(t, http.MethodPost, "/v1/meters", body, &employee)
			if err := NewMeterHandler(&stubMeterService{}).Create(c); httpCode(err) != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %v", err)
			}
		})
	}
}

func TestMeterUpdate_ForwardsReading(t *testing.T) {
	svc := &stubMeterService{}
	c, rec := newContext(t, http.MethodPatch, "/v1/meters/871", `{"reading":42.5}`, &employee)
	c.SetParamNames("ean")
	c.SetParamValues("871")

	if err := NewMeterHandler(svc).Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.updated == nil || svc.updated.Reading == nil || *svc.updated.Reading != 42.5 || svc.updated.Status != nil {
		t.Errorf("unexpected service input: %+v", svc.updated)
	}
}

func TestMeterUpdate_ServiceErrorPropagates(t *testing.T) {
	svc := &stubMeterService{err: domain.ErrReadingMustIncrease}
	c, _ := newContext(t, http.MethodPatch, "/v1/meters/871", `{"reading":1}`, &employee)
	c.SetParamNames("ean")
	c.SetParamValues("871")

	if err := NewMeterHandler(svc).Update(c); !errors.Is(err, domain.ErrReadingMustIncrease) {
		t.Fatalf("expected ErrReadingMustIncrease, got %v", err)
	}
}

func TestMeterHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubMeterService{history: []*domain.ReadingRecord{
		{EAN: "871", Reading: 9, Unit: domain.UnitCubicMeter, RecordedAt: at, RecordedBy: "eve@example.com", Source: domain.SourceBatch},
	}}
	c, rec := newContext(t, http.MethodGet, "/v1/meters/871/readings?limit=5", "", &admin)
	c.SetParamNames("ean")
	c.SetParamValues("871")

	if err := NewMeterHandler(svc).History(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.limit != 5 {
		t.Errorf("expected limit 5, got %d", svc.limit)
	}
	var resp meterHistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.EAN != "871" || len(resp.Readings) != 1 || resp.Readings[0].RecordedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestMeterHistory_InvalidLimit(t *testing.T) {
	c, _ := newContext(t, http.MethodGet, "/v1/meters/871/readings?limit=abc", "", &admin)
	c.SetParamNames("ean")
	c.SetParamValues("871")

	if err := NewMeterHandler(&stubMeterService{}).History(c); httpCode(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
