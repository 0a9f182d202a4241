package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/utilityops/meter-api/internal/api/middleware"
	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/ports"
)

var (
	admin    = domain.Principal{UserID: 1, Email: "admin@example.com", Role: domain.RoleAdmin}
	employee = domain.Principal{UserID: 2, Email: "eve@example.com", Role: domain.RoleEmployee}
)

// newContext builds an echo context for a request with an optional JSON body
// and, when p is non-nil, an authenticated principal.
func newContext(t *testing.T, method, target, body string, p *domain.Principal) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p != nil {
		c.Set(middleware.PrincipalKey, *p)
	}
	return c, rec
}

// httpCode returns the status carried by an echo.HTTPError, or 0.
func httpCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

type stubAuthService struct {
	gotEmail    string
	gotPassword string
	err         error
}

func (s *stubAuthService) Login(_ context.Context, email, password string) (*ports.LoginResult, error) {
	s.gotEmail, s.gotPassword = email, password
	if s.err != nil {
		return nil, s.err
	}
	return &ports.LoginResult{
		Token:     "tok",
		ExpiresAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		User:      &domain.User{ID: 1, Email: email, Role: domain.RoleAdmin},
	}, nil
}

func (s *stubAuthService) Authenticate(context.Context, string) (domain.Principal, error) {
	return domain.Principal{}, domain.ErrInvalidCredentials
}

type stubMeterService struct {
	created *ports.CreateMeterInput
	updated *ports.UpdateMeterInput
	limit   int
	history []*domain.ReadingRecord
	err     error
}

func (s *stubMeterService) List(context.Context, domain.Principal) ([]*domain.Meter, error) {
	return nil, s.err
}

func (s *stubMeterService) Get(_ context.Context, _ domain.Principal, ean string) (*domain.Meter, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Meter{EAN: ean, Type: domain.MeterGas, Unit: domain.UnitCubicMeter, Status: domain.MeterOpen}, nil
}

func (s *stubMeterService) Create(_ context.Context, _ domain.Principal, in ports.CreateMeterInput) (*domain.Meter, error) {
	s.created = &in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Meter{
		EAN:        in.EAN,
		Type:       in.Type,
		Status:     domain.MeterOpen,
		Reading:    in.Reading,
		Unit:       domain.DeriveUnit(in.Type),
		LocationID: in.LocationID,
		LastUpdate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubMeterService) Update(_ context.Context, _ domain.Principal, ean string, in ports.UpdateMeterInput) (*domain.Meter, error) {
	s.updated = &in
	if s.err != nil {
		return nil, s.err
	}
	m := &domain.Meter{EAN: ean, Type: domain.MeterWater, Unit: domain.UnitCubicMeter, Status: domain.MeterOpen}
	if in.Reading != nil {
		m.Reading = *in.Reading
	}
	return m, nil
}

func (s *stubMeterService) Delete(context.Context, domain.Principal, string) error {
	return s.err
}

func (s *stubMeterService) History(_ context.Context, _ domain.Principal, _ string, limit int) ([]*domain.ReadingRecord, error) {
	s.limit = limit
	return s.history, s.err
}

type stubDispatcher struct {
	got []ports.ReadingInput
	err error
}

func (d *stubDispatcher) EnqueueBatch(_ context.Context, readings []ports.ReadingInput) error {
	if d.err != nil {
		return d.err
	}
	d.got = append(d.got, readings...)
	return nil
}
