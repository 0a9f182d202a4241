package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/policy"
	"github.com/utilityops/meter-api/internal/core/ports"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// MeterService implements meter management.
type MeterService struct {
	meters    ports.MeterRepository
	locations ports.LocationRepository
	readings  ports.ReadingRepository
	log       zerolog.Logger
	now       func() time.Time
}

func NewMeterService(
	meters ports.MeterRepository,
	locations ports.LocationRepository,
	readings ports.ReadingRepository,
	log zerolog.Logger,
) *MeterService {
	return &MeterService{meters: meters, locations: locations, readings: readings, log: log, now: time.Now}
}

// List returns the meters visible to p.
func (s *MeterService) List(ctx context.Context, p domain.Principal) ([]*domain.Meter, error) {
	d, err := policy.Authorize(p, policy.ListMeters)
	if err != nil {
		return nil, err
	}
	return s.meters.List(ctx, d.Scope)
}

// Get returns a meter when its location lies inside p's scope.
func (s *MeterService) Get(ctx context.Context, p domain.Principal, ean string) (*domain.Meter, error) {
	d, err := policy.Authorize(p, policy.ReadMeter)
	if err != nil {
		return nil, err
	}
	return s.visibleMeter(ctx, d.Scope, ean)
}

// Create registers a meter at an existing location. The unit is derived
// from the meter type.
func (s *MeterService) Create(ctx context.Context, p domain.Principal, in ports.CreateMeterInput) (*domain.Meter, error) {
	if _, err := policy.Authorize(p, policy.CreateMeter); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.EAN) == "" {
		return nil, fmt.Errorf("%w: ean is required", domain.ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown meter type %q", domain.ErrInvalidInput, in.Type)
	}
	status := in.Status
	if status == "" {
		status = domain.MeterOpen
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown meter status %q", domain.ErrInvalidInput, status)
	}
	if in.Reading < 0 {
		return nil, fmt.Errorf("%w: reading cannot be negative", domain.ErrInvalidInput)
	}
	if _, err := s.locations.FindByID(ctx, in.LocationID); err != nil {
		return nil, err
	}

	m := &domain.Meter{
		EAN:        in.EAN,
		Status:     status,
		Type:       in.Type,
		Reading:    in.Reading,
		Unit:       domain.DeriveUnit(in.Type),
		LocationID: in.LocationID,
		LastUpdate: s.now().UTC(),
	}
	if err := s.meters.Create(ctx, m); err != nil {
		return nil, err
	}

	s.log.Info().Str("ean", m.EAN).Str("type", string(m.Type)).Int64("location_id", m.LocationID).Msg("meter created")
	return m, nil
}

// Update changes the reading and/or status of a meter.
func (s *MeterService) Update(ctx context.Context, p domain.Principal, ean string, in ports.UpdateMeterInput) (*domain.Meter, error) {
	if _, err := policy.Authorize(p, policy.UpdateMeter); err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown meter status %q", domain.ErrInvalidInput, *in.Status)
	}

	current, err := s.meters.FindByEAN(ctx, ean)
	if err != nil {
		return nil, err
	}

	updated, err := applyMeterChange(ctx, s.meters, s.readings, s.log, current, in, p.Email, domain.SourceAPI, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a meter. Admin only.
func (s *MeterService) Delete(ctx context.Context, p domain.Principal, ean string) error {
	if _, err := policy.Authorize(p, policy.DeleteMeter); err != nil {
		return err
	}
	if _, err := s.meters.FindByEAN(ctx, ean); err != nil {
		return err
	}
	if err := s.meters.Delete(ctx, ean); err != nil {
		return err
	}
	s.log.Info().Str("ean", ean).Int64("actor_id", p.UserID).Msg("meter deleted")
	return nil
}

// History returns the newest accepted readings of a meter visible to p.
func (s *MeterService) History(ctx context.Context, p domain.Principal, ean string, limit int) ([]*domain.ReadingRecord, error) {
	d, err := policy.Authorize(p, policy.ReadMeter)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleMeter(ctx, d.Scope, ean); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.readings.ListByEAN(ctx, ean, limit)
}

func (s *MeterService) visibleMeter(ctx context.Context, scope policy.Scope, ean string) (*domain.Meter, error) {
	m, err := s.meters.FindByEAN(ctx, ean)
	if err != nil {
		return nil, err
	}
	if scope.Kind == policy.ScopeUnrestricted {
		return m, nil
	}
	loc, err := s.locations.FindByID(ctx, m.LocationID)
	if err != nil {
		return nil, domain.ErrForbidden
	}
	if !scope.MatchMeter(*m, *loc) {
		return nil, domain.ErrForbidden
	}
	return m, nil
}

// applyMeterChange validates and writes a meter change, then appends the
// reading to the audit trail. The store re-checks monotonicity at write time.
func applyMeterChange(
	ctx context.Context,
	meters ports.MeterRepository,
	readings ports.ReadingRepository,
	log zerolog.Logger,
	current *domain.Meter,
	in ports.UpdateMeterInput,
	actor string,
	source domain.ReadingSource,
	now time.Time,
) (*domain.Meter, error) {
	if in.Reading != nil {
		if err := domain.ValidateReadingTransition(current.Reading, *in.Reading); err != nil {
			return nil, err
		}
	}

	updated, err := meters.Apply(ctx, current.EAN, ports.MeterChange{
		Reading:    in.Reading,
		Status:     in.Status,
		LastUpdate: now,
	})
	if err != nil {
		return nil, err
	}

	if in.Reading != nil {
		rec := &domain.ReadingRecord{
			EAN:        updated.EAN,
			Reading:    updated.Reading,
			Unit:       updated.Unit,
			RecordedAt: now,
			RecordedBy: actor,
			Source:     source,
		}
		if err := readings.Append(ctx, rec); err != nil {
			log.Warn().Err(err).Str("ean", updated.EAN).Msg("failed to append reading history")
		}
	}

	log.Info().
		Str("ean", updated.EAN).
		Float64("reading", updated.Reading).
		Str("status", string(updated.Status)).
		Str("source", string(source)).
		Msg("meter updated")
	return updated, nil
}
